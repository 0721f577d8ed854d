// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package transcript

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTranscript(t *testing.T, lines ...string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "-home-dev-myproject")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, "abc123.jsonl")
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseFile_BasicConversation(t *testing.T) {
	path := writeTranscript(t,
		`{"type":"user","uuid":"u1","timestamp":"2026-01-01T00:00:00Z","gitBranch":"main","cwd":"/home/dev/myproject","message":{"role":"user","content":"fix the bug"}}`,
		`{"type":"assistant","uuid":"a1","parentUuid":"u1","timestamp":"2026-01-01T00:01:00Z","message":{"role":"assistant","model":"claude-opus-4-6","content":[{"type":"text","text":"On it."}],"usage":{"input_tokens":10,"output_tokens":20,"cache_read_input_tokens":1,"cache_creation_input_tokens":2}}}`,
	)

	result, err := ParseFile(path)
	require.NoError(t, err)

	assert.Equal(t, "abc123", result.Session.SessionID)
	assert.Equal(t, "/home/dev/myproject", result.Session.WorkingDir)
	assert.Equal(t, "myproject", result.Session.ProjectDir)
	assert.Equal(t, "main", result.Session.GitBranch)
	assert.Equal(t, 2, result.Session.MessageCount)
	assert.Equal(t, 1, result.Session.UserMsgCount)
	assert.Equal(t, 1, result.Session.AsstMsgCount)
	assert.Equal(t, int64(10), result.Session.TotalInputTokens)
	assert.Equal(t, int64(20), result.Session.TotalOutputTokens)

	require.Len(t, result.Messages, 2)
	assert.Equal(t, "fix the bug", result.Messages[0].ContentText)
	assert.Equal(t, "On it.", result.Messages[1].ContentText)
	assert.Equal(t, "claude-opus-4-6", result.Messages[1].Model)
}

func TestParseFile_ToolUseRecordsFileEvent(t *testing.T) {
	path := writeTranscript(t,
		`{"type":"assistant","uuid":"a1","timestamp":"2026-01-01T00:00:00Z","message":{"role":"assistant","model":"claude-sonnet-4","content":[{"type":"tool_use","id":"t1","name":"Edit","input":{"file_path":"/home/dev/myproject/main.go"}}]}}`,
	)

	result, err := ParseFile(path)
	require.NoError(t, err)

	require.Len(t, result.ToolUses, 1)
	assert.Equal(t, "Edit", result.ToolUses[0].ToolName)
	assert.Equal(t, "/home/dev/myproject/main.go", result.ToolUses[0].InputSummary)

	require.Len(t, result.FileEvents, 1)
	assert.Equal(t, "edit", result.FileEvents[0].EventType)
	assert.Equal(t, "/home/dev/myproject/main.go", result.FileEvents[0].FilePath)
}

func TestParseFile_BashToolRecordsCommandAsFileEvent(t *testing.T) {
	path := writeTranscript(t,
		`{"type":"assistant","uuid":"a1","timestamp":"2026-01-01T00:00:00Z","message":{"role":"assistant","content":[{"type":"tool_use","id":"t1","name":"Bash","input":{"command":"go test ./..."}}]}}`,
	)

	result, err := ParseFile(path)
	require.NoError(t, err)

	require.Len(t, result.FileEvents, 1)
	assert.Equal(t, "bash", result.FileEvents[0].EventType)
	assert.Equal(t, "go test ./...", result.FileEvents[0].FilePath)
}

func TestParseFile_ThinkingBlockSetsHasThinking(t *testing.T) {
	path := writeTranscript(t,
		`{"type":"assistant","uuid":"a1","timestamp":"2026-01-01T00:00:00Z","message":{"role":"assistant","content":[{"type":"thinking","thinking":"let me consider this"},{"type":"text","text":"done"}]}}`,
	)

	result, err := ParseFile(path)
	require.NoError(t, err)
	require.Len(t, result.Messages, 1)
	assert.True(t, result.Messages[0].HasThinking)
	assert.Equal(t, "let me consider this", result.Messages[0].ThinkingText)
	assert.Equal(t, "done", result.Messages[0].ContentText)
}

func TestParseFile_SkipsMalformedLines(t *testing.T) {
	path := writeTranscript(t,
		`not valid json at all`,
		`{"type":"user","uuid":"u1","timestamp":"2026-01-01T00:00:00Z","message":{"role":"user","content":"hello"}}`,
		``,
		`{"type":"summary","summary":"irrelevant entry type"}`,
	)

	result, err := ParseFile(path)
	require.NoError(t, err)
	require.Len(t, result.Messages, 1)
	assert.Equal(t, "hello", result.Messages[0].ContentText)
}

func TestWorkingDirFromProjectDir(t *testing.T) {
	assert.Equal(t, "/Users/cmericli/workspace", WorkingDirFromProjectDir("-Users-cmericli-workspace"))
	assert.Equal(t, "/home/dev/myproject", WorkingDirFromProjectDir("-home-dev-myproject"))
}

func TestProjectNameFromWorkingDir(t *testing.T) {
	assert.Equal(t, "myproject", ProjectNameFromWorkingDir("/home/dev/myproject"))
	assert.Equal(t, "myproject", ProjectNameFromWorkingDir("/home/dev/myproject/"))
	assert.Equal(t, "unknown", ProjectNameFromWorkingDir(""))
}

func TestEstimateCost(t *testing.T) {
	assert.Equal(t, 0.0, EstimateCost(0, 0, 0, 0, "claude-opus-4-6"))

	opusCost := EstimateCost(1_000_000, 1_000_000, 0, 0, "claude-opus-4-6")
	assert.Equal(t, 90.0, opusCost) // 15 + 75

	sonnetCost := EstimateCost(1_000_000, 1_000_000, 0, 0, "claude-sonnet-4")
	assert.Equal(t, 18.0, sonnetCost) // 3 + 15

	haikuCost := EstimateCost(1_000_000, 1_000_000, 0, 0, "claude-haiku-4")
	assert.Equal(t, 4.8, haikuCost) // 0.8 + 4.0
}
