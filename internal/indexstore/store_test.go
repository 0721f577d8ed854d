// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package indexstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "index.db")
	s, err := Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleSession(id string) Session {
	return Session{
		SessionID:    id,
		Slug:         "my-project",
		ProjectDir:   "/home/user/projects/my-project",
		WorkingDir:   "/home/user/projects/my-project",
		GitBranch:    "main",
		Model:        "claude-opus",
		Version:      "1.0.0",
		FirstMessage: "2026-01-01T00:00:00Z",
		LastMessage:  "2026-01-01T00:05:00Z",
		MessageCount: 2,
		UserMsgCount: 1,
		AsstMsgCount: 1,
		JSONLPath:    "/home/user/.claude/projects/my-project/" + id + ".jsonl",
	}
}

func TestReplaceSession_InsertsAndReplaces(t *testing.T) {
	s := openTestStore(t)

	sess := sampleSession("sess-1")
	messages := []Message{
		{UUID: "m1", SessionID: "sess-1", Role: "user", ContentText: "hello there", Timestamp: "2026-01-01T00:00:00Z", SeqNum: 0},
		{UUID: "m2", SessionID: "sess-1", Role: "assistant", ContentText: "hi back", Timestamp: "2026-01-01T00:05:00Z", SeqNum: 1},
	}
	toolUses := []ToolUse{
		{ToolUseID: "tu1", SessionID: "sess-1", MessageUUID: "m2", ToolName: "Read", InputSummary: "file.go"},
	}
	fileEvents := []FileEvent{
		{SessionID: "sess-1", FilePath: "file.go", EventType: "read", Timestamp: "2026-01-01T00:05:00Z"},
	}

	require.NoError(t, s.ReplaceSession(sess, messages, toolUses, fileEvents))

	got, ok, err := s.GetSession("sess-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "my-project", got.Slug)
	assert.NotEmpty(t, got.IndexedAt)

	msgs, total, err := s.Conversation("sess-1", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, msgs, 2)
	assert.Equal(t, "m1", msgs[0].UUID)
	assert.Equal(t, "m2", msgs[1].UUID)

	// Replacing again with fewer rows must delete the old ones, not append.
	sess.MessageCount = 1
	require.NoError(t, s.ReplaceSession(sess, messages[:1], nil, nil))

	msgs, total, err = s.Conversation("sess-1", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, msgs, 1)
	assert.Equal(t, "m1", msgs[0].UUID)
}

func TestDeleteSession_CascadesDependents(t *testing.T) {
	s := openTestStore(t)

	sess := sampleSession("sess-2")
	messages := []Message{{UUID: "m1", SessionID: "sess-2", Role: "user", ContentText: "x", SeqNum: 0}}
	require.NoError(t, s.ReplaceSession(sess, messages, nil, nil))

	require.NoError(t, s.DeleteSession("sess-2"))

	_, ok, err := s.GetSession("sess-2")
	require.NoError(t, err)
	assert.False(t, ok)

	_, total, err := s.Conversation("sess-2", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestIndexMeta_RoundTrip(t *testing.T) {
	s := openTestStore(t)

	_, ok, err := s.GetIndexMeta("/tmp/a.jsonl")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetIndexMeta(IndexMeta{JSONLPath: "/tmp/a.jsonl", FileMtime: 123.456, FileSize: 999}))

	meta, ok, err := s.GetIndexMeta("/tmp/a.jsonl")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 123.456, meta.FileMtime)
	assert.Equal(t, int64(999), meta.FileSize)
	assert.NotEmpty(t, meta.IndexedAt)

	paths, err := s.AllIndexedPaths()
	require.NoError(t, err)
	assert.Contains(t, paths, "/tmp/a.jsonl")

	require.NoError(t, s.DeleteIndexMeta("/tmp/a.jsonl"))
	_, ok, err = s.GetIndexMeta("/tmp/a.jsonl")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSessionIDForPath(t *testing.T) {
	s := openTestStore(t)
	sess := sampleSession("sess-3")
	require.NoError(t, s.ReplaceSession(sess, nil, nil, nil))

	id, ok, err := s.SessionIDForPath(sess.JSONLPath)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "sess-3", id)

	_, ok, err = s.SessionIDForPath("/no/such/path.jsonl")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIsFUSEPath(t *testing.T) {
	assert.True(t, IsFUSEPath("/Volumes/external/project"))
	assert.True(t, IsFUSEPath("/net/server/share"))
	assert.True(t, IsFUSEPath("/home/user/.SSHFS/mount"))
	assert.False(t, IsFUSEPath("/home/user/projects/my-project"))
}
