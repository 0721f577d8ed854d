// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package transcript parses Claude Code session JSONL transcripts into the
// row shapes consumed by internal/indexstore, and estimates API cost from
// token usage.
package transcript

// toolEventMap maps a tool name to the file_events event_type it produces,
// when that tool's invocation should be recorded as a file event at all.
var toolEventMap = map[string]string{
	"Read":  "read",
	"Glob":  "read",
	"Grep":  "read",
	"Write": "create",
	"Edit":  "edit",
	"Bash":  "bash",
}

// toolSummaryMap maps a tool name to which field of its input to summarize
// in tool_uses.input_summary.
var toolSummaryMap = map[string]string{
	"Read":       "file_path",
	"Write":      "file_path",
	"Edit":       "file_path",
	"Bash":       "command",
	"Grep":       "pattern",
	"Glob":       "pattern",
	"Task":       "subject",
	"TaskCreate": "subject",
	"TaskUpdate": "description",
}

// fallbackSummaryFields is the field-name precedence list tried for tools
// that toolSummaryMap doesn't know about.
var fallbackSummaryFields = []string{"subject", "description", "file_path", "command", "query"}

func isTaskTool(name string) bool {
	return name == "Task" || name == "TaskCreate" || name == "TaskUpdate"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// extractToolSummary generates a short summary string from a tool_use
// block's input, mirroring the original indexer's field-precedence rules.
func extractToolSummary(toolName string, input map[string]interface{}) string {
	if input == nil {
		return ""
	}
	field, known := toolSummaryMap[toolName]
	if !known {
		for _, f := range fallbackSummaryFields {
			if v, ok := input[f]; ok {
				return truncate(toString(v), 80)
			}
		}
		return ""
	}
	val := toString(input[field])
	if val == "" && isTaskTool(toolName) {
		if v, ok := input["subject"]; ok {
			val = toString(v)
		} else if v, ok := input["description"]; ok {
			val = toString(v)
		}
	}
	switch {
	case toolName == "Bash":
		return truncate(val, 80)
	case isTaskTool(toolName):
		return truncate(val, 60)
	default:
		return val
	}
}

// extractFilePathFromTool pulls the file path a tool_use block operated on,
// for recording in file_events. Returns "" when the tool has no associated
// path (the caller decides whether that's worth recording as a non-path
// event, e.g. Bash commands).
func extractFilePathFromTool(toolName string, input map[string]interface{}) string {
	if input == nil {
		return ""
	}
	switch toolName {
	case "Read", "Write", "Edit":
		return toString(input["file_path"])
	case "Glob", "Grep":
		return toString(input["path"])
	default:
		return ""
	}
}

func toString(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// WorkingDirFromProjectDir reverses the Claude Code project-directory
// naming convention back into an absolute path, e.g.
// "-Users-cmericli-workspace" -> "/Users/cmericli/workspace".
func WorkingDirFromProjectDir(projectDirName string) string {
	stripped := trimLeadingDashes(projectDirName)
	return "/" + replaceDashes(stripped)
}

func trimLeadingDashes(s string) string {
	i := 0
	for i < len(s) && s[i] == '-' {
		i++
	}
	return s[i:]
}

func replaceDashes(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c == '-' {
			b[i] = '/'
		}
	}
	return string(b)
}

// ProjectNameFromWorkingDir extracts the last path component of workingDir
// ("unknown" when it is empty); the parser stores it as the session's
// ProjectDir.
func ProjectNameFromWorkingDir(workingDir string) string {
	if workingDir == "" {
		return "unknown"
	}
	trimmed := workingDir
	for len(trimmed) > 1 && trimmed[len(trimmed)-1] == '/' {
		trimmed = trimmed[:len(trimmed)-1]
	}
	idx := -1
	for i := len(trimmed) - 1; i >= 0; i-- {
		if trimmed[i] == '/' {
			idx = i
			break
		}
	}
	name := trimmed[idx+1:]
	if name == "" {
		return "unknown"
	}
	return name
}
