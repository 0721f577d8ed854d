// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package transcript

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wingedpig/claude-remote/internal/indexstore"
)

// maxScanTokenSize enlarges bufio.Scanner's line buffer; transcript lines
// can carry large tool outputs well past the stdlib's default 64KiB cap.
const maxScanTokenSize = 10 * 1024 * 1024

// ParseResult is everything a single JSONL transcript file yields.
type ParseResult struct {
	Session    indexstore.Session
	Messages   []indexstore.Message
	ToolUses   []indexstore.ToolUse
	FileEvents []indexstore.FileEvent
}

// ParseFile reads and parses a session transcript at jsonlPath.
//
// Parsing is line-tolerant: a line that fails to parse as JSON, or parses
// to something other than a JSON object, is skipped rather than aborting
// the whole file. This matches transcripts being actively appended to by a
// running session, where the last line may be a partial write.
func ParseFile(jsonlPath string) (ParseResult, error) {
	f, err := os.Open(jsonlPath)
	if err != nil {
		return ParseResult{}, fmt.Errorf("open %s: %w", jsonlPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return ParseResult{}, fmt.Errorf("stat %s: %w", jsonlPath, err)
	}

	sessionID := strings.TrimSuffix(filepath.Base(jsonlPath), filepath.Ext(jsonlPath))
	projectDirName := filepath.Base(filepath.Dir(jsonlPath))
	workingDir := WorkingDirFromProjectDir(projectDirName)

	var (
		slug, gitBranch, model, version string
		firstTimestamp, lastTimestamp   string
		cwdFromEntry                    string
		seqNum                          int
		userCount, asstCount            int
		totalInput, totalOutput         int64
		totalCacheRead, totalCacheCreate int64
	)

	var messages []indexstore.Message
	var toolUses []indexstore.ToolUse
	var fileEvents []indexstore.FileEvent

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxScanTokenSize)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}

		entryType, _ := entry["type"].(string)
		timestamp, _ := entry["timestamp"].(string)

		if slug == "" {
			if v, ok := entry["slug"].(string); ok && v != "" {
				slug = v
			}
		}
		if gitBranch == "" {
			if v, ok := entry["gitBranch"].(string); ok && v != "" {
				gitBranch = v
			}
		}
		if version == "" {
			if v, ok := entry["version"].(string); ok && v != "" {
				version = v
			}
		}
		if cwdFromEntry == "" {
			if v, ok := entry["cwd"].(string); ok && v != "" {
				cwdFromEntry = v
			}
		}

		if timestamp != "" {
			if firstTimestamp == "" || timestamp < firstTimestamp {
				firstTimestamp = timestamp
			}
			if lastTimestamp == "" || timestamp > lastTimestamp {
				lastTimestamp = timestamp
			}
		}

		if entryType != "user" && entryType != "assistant" {
			continue
		}

		msg, _ := entry["message"].(map[string]interface{})
		if msg == nil {
			continue
		}

		role, _ := msg["role"].(string)
		if role == "" {
			role = entryType
		}
		if role != "user" && role != "assistant" {
			continue
		}

		uuid, _ := entry["uuid"].(string)
		if uuid == "" {
			uuid = fmt.Sprintf("%s-%d", sessionID, seqNum)
		}
		parentUUID, _ := entry["parentUuid"].(string)

		msgModel, _ := msg["model"].(string)
		if msgModel != "" && model == "" {
			model = msgModel
		}

		contentText, thinkingText, msgToolUses := parseContent(msg["content"], sessionID, uuid, timestamp, &toolUses, &fileEvents)

		usage, _ := msg["usage"].(map[string]interface{})
		inputTokens := intFromUsage(usage, "input_tokens")
		outputTokens := intFromUsage(usage, "output_tokens")
		cacheRead := intFromUsage(usage, "cache_read_input_tokens")
		cacheCreate := intFromUsage(usage, "cache_creation_input_tokens")

		totalInput += inputTokens
		totalOutput += outputTokens
		totalCacheRead += cacheRead
		totalCacheCreate += cacheCreate

		hasThinking := strings.TrimSpace(thinkingText) != ""

		var toolUsesJSON string
		if len(msgToolUses) > 0 {
			type toolUseSummary struct {
				Name         string `json:"name"`
				InputSummary string `json:"input_summary"`
			}
			summaries := make([]toolUseSummary, 0, len(msgToolUses))
			for _, t := range msgToolUses {
				summaries = append(summaries, toolUseSummary{Name: t.name, InputSummary: t.summary})
			}
			if b, err := json.Marshal(summaries); err == nil {
				toolUsesJSON = string(b)
			}
		}

		effectiveModel := msgModel
		if effectiveModel == "" {
			effectiveModel = model
		}

		messages = append(messages, indexstore.Message{
			UUID:         uuid,
			SessionID:    sessionID,
			ParentUUID:   parentUUID,
			Role:         role,
			ContentText:  contentText,
			Model:        effectiveModel,
			InputTokens:  inputTokens,
			OutputTokens: outputTokens,
			CacheRead:    cacheRead,
			CacheCreate:  cacheCreate,
			HasThinking:  hasThinking,
			ThinkingText: thinkingText,
			ToolUsesJSON: toolUsesJSON,
			Timestamp:    timestamp,
			SeqNum:       seqNum,
		})

		if role == "user" {
			userCount++
		} else {
			asstCount++
		}
		seqNum++
	}
	if err := scanner.Err(); err != nil {
		return ParseResult{}, fmt.Errorf("scan %s: %w", jsonlPath, err)
	}

	if cwdFromEntry != "" {
		workingDir = cwdFromEntry
	}

	sess := indexstore.Session{
		SessionID:         sessionID,
		Slug:              slug,
		ProjectDir:        ProjectNameFromWorkingDir(workingDir),
		WorkingDir:        workingDir,
		GitBranch:         gitBranch,
		Model:             model,
		Version:           version,
		FirstMessage:      firstTimestamp,
		LastMessage:       lastTimestamp,
		MessageCount:      len(messages),
		UserMsgCount:      userCount,
		AsstMsgCount:      asstCount,
		TotalInputTokens:  totalInput,
		TotalOutputTokens: totalOutput,
		TotalCacheRead:    totalCacheRead,
		TotalCacheCreate:  totalCacheCreate,
		FileSizeBytes:     info.Size(),
		JSONLPath:         jsonlPath,
	}

	return ParseResult{Session: sess, Messages: messages, ToolUses: toolUses, FileEvents: fileEvents}, nil
}

type toolUseRef struct {
	name    string
	summary string
}

// parseContent normalizes a message's content field (either a plain string
// or a list of typed blocks) into plain text + thinking text, and appends
// any tool_use blocks it finds to toolUses/fileEvents as a side effect.
func parseContent(content interface{}, sessionID, msgUUID, timestamp string, toolUses *[]indexstore.ToolUse, fileEvents *[]indexstore.FileEvent) (text, thinking string, refs []toolUseRef) {
	switch v := content.(type) {
	case string:
		return v, "", nil
	case []interface{}:
		var textParts, thinkingParts []string
		for _, item := range v {
			blockStr, isStr := item.(string)
			if isStr {
				textParts = append(textParts, blockStr)
				continue
			}
			block, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			blockType, _ := block["type"].(string)
			switch blockType {
			case "text":
				t, _ := block["text"].(string)
				textParts = append(textParts, t)
			case "thinking":
				t, _ := block["thinking"].(string)
				thinkingParts = append(thinkingParts, t)
			case "tool_use":
				toolName, _ := block["name"].(string)
				if toolName == "" {
					toolName = "unknown"
				}
				toolID, _ := block["id"].(string)
				toolInput, _ := block["input"].(map[string]interface{})
				summary := extractToolSummary(toolName, toolInput)
				refs = append(refs, toolUseRef{name: toolName, summary: summary})
				*toolUses = append(*toolUses, indexstore.ToolUse{
					ToolUseID:    toolID,
					SessionID:    sessionID,
					MessageUUID:  msgUUID,
					ToolName:     toolName,
					InputSummary: summary,
					Timestamp:    timestamp,
				})

				if eventType, ok := toolEventMap[toolName]; ok {
					if fpath := extractFilePathFromTool(toolName, toolInput); fpath != "" {
						*fileEvents = append(*fileEvents, indexstore.FileEvent{
							SessionID: sessionID, FilePath: fpath, EventType: eventType, Timestamp: timestamp,
						})
					} else if toolName == "Bash" {
						cmd := truncate(toString(toolInput["command"]), 200)
						if cmd != "" {
							*fileEvents = append(*fileEvents, indexstore.FileEvent{
								SessionID: sessionID, FilePath: cmd, EventType: "bash", Timestamp: timestamp,
							})
						}
					}
				}
			case "tool_result":
				// tool_result content lives in user messages; not indexed.
			}
		}
		return strings.Join(textParts, "\n"), strings.Join(thinkingParts, "\n"), refs
	default:
		return "", "", nil
	}
}

func intFromUsage(usage map[string]interface{}, key string) int64 {
	if usage == nil {
		return 0
	}
	v, ok := usage[key]
	if !ok || v == nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return 0
	}
}
