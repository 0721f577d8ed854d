// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package tailwatch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/claude-remote/internal/events"
)

func writeProjectFile(t *testing.T, projectsDir, project, session, content string) string {
	t.Helper()
	dir := filepath.Join(projectsDir, project)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, session+".jsonl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestWatcher_DoesNotReplayPreexistingContent(t *testing.T) {
	dir := t.TempDir()
	writeProjectFile(t, dir, "-home-dev-proj", "sess-1",
		`{"type":"user","timestamp":"2026-01-01T00:00:00Z","message":{"role":"user","content":"old message"}}`+"\n")

	bus := events.NewBus()
	w := New(dir, bus, "")
	w.seedPositions()

	ch, unsub := bus.Subscribe(events.GlobalTopic)
	defer unsub()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.pollOnce(ctx)

	select {
	case <-ch:
		t.Fatal("should not have republished pre-existing content")
	case <-time.After(700 * time.Millisecond):
	}
}

func TestWatcher_PublishesAppendedLines(t *testing.T) {
	dir := t.TempDir()
	path := writeProjectFile(t, dir, "-home-dev-proj", "sess-1",
		`{"type":"user","timestamp":"2026-01-01T00:00:00Z","message":{"role":"user","content":"old message"}}`+"\n")

	bus := events.NewBus()
	w := New(dir, bus, "my-host")
	w.seedPositions()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"type":"assistant","timestamp":"2026-01-01T00:01:00Z","message":{"role":"assistant","content":[{"type":"text","text":"new reply"}]}}` + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	ch, unsub := bus.Subscribe(events.GlobalTopic)
	defer unsub()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.pollOnce(ctx)

	select {
	case ev := <-ch:
		assert.Equal(t, "new_message", ev.Type)
		assert.Equal(t, "sess-1", ev.SessionID)
		assert.Equal(t, "my-host", ev.Hostname)
		assert.Equal(t, "new reply", ev.Payload["preview"])
	case <-time.After(2 * time.Second):
		t.Fatal("expected new_message event for appended line")
	}
}

func TestWatcher_SkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	path := writeProjectFile(t, dir, "-home-dev-proj", "sess-1", "")

	bus := events.NewBus()
	w := New(dir, bus, "")
	w.seedPositions()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("not valid json\n{\"type\":\"summary\"}\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	evs := w.readNewEvents(path)
	assert.Empty(t, evs)
}
