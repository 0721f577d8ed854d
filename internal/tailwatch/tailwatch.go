// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package tailwatch incrementally tails Claude Code session transcripts
// and publishes a "new_message" event for every line appended since the
// last pass. It is a stat-based poller, not an inotify/fsnotify watcher:
// Claude Code projects routinely live on FUSE-backed mounts (sshfs,
// Google Drive File Stream) where kernel change notifications are
// unreliable, so every pass simply re-stats every tracked file.
package tailwatch

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wingedpig/claude-remote/internal/events"
)

// PollInterval is how often the whole projects directory is re-scanned.
const PollInterval = 2 * time.Second

// BatchDelay is how long the events collected in one pass are held before
// being published; each event is still published on its own.
const BatchDelay = 500 * time.Millisecond

// maxScanTokenSize matches internal/transcript's scanner buffer size.
const maxScanTokenSize = 10 * 1024 * 1024

// Watcher tails every *.jsonl file under a Claude Code projects directory
// and publishes new_message events to a Bus.
type Watcher struct {
	projectsDir string
	bus         *events.Bus
	hostname    string

	positions map[string]int64
}

// New returns a Watcher over projectsDir, publishing to bus. hostname is
// stamped on every event for federation.
func New(projectsDir string, bus *events.Bus, hostname string) *Watcher {
	return &Watcher{
		projectsDir: projectsDir,
		bus:         bus,
		hostname:    hostname,
		positions:   make(map[string]int64),
	}
}

// Run seeds file positions to each tracked file's current size (so
// pre-existing content is never replayed as "new"), then polls forever
// until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	w.seedPositions()

	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.pollOnce(ctx)
		}
	}
}

func (w *Watcher) seedPositions() {
	for _, path := range w.listFiles() {
		if info, err := os.Stat(path); err == nil {
			w.positions[path] = info.Size()
		}
	}
}

type pendingEvent struct {
	sessionID string
	event     events.Event
}

func (w *Watcher) pollOnce(ctx context.Context) {
	files := w.listFiles()
	if files == nil {
		return
	}

	var pending []pendingEvent
	for _, path := range files {
		sessionID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		for _, ev := range w.readNewEvents(path) {
			pending = append(pending, pendingEvent{sessionID: sessionID, event: ev})
		}
	}

	if len(pending) == 0 {
		return
	}

	select {
	case <-time.After(BatchDelay):
	case <-ctx.Done():
		return
	}

	for _, p := range pending {
		p.event.Hostname = w.hostname
		w.bus.PublishToSession(p.sessionID, p.event)
	}
}

func (w *Watcher) listFiles() []string {
	entries, err := os.ReadDir(w.projectsDir)
	if err != nil {
		return nil
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		matches, err := filepath.Glob(filepath.Join(w.projectsDir, e.Name(), "*.jsonl"))
		if err != nil {
			continue
		}
		files = append(files, matches...)
	}
	return files
}

// readNewEvents reads every line appended to path since the last poll and
// turns user/assistant entries into dashboard events. Parse errors on
// individual lines are skipped, not fatal, since the file may be mid-write.
func (w *Watcher) readNewEvents(path string) []events.Event {
	f, err := os.Open(path)
	if err != nil {
		log.Printf("tailwatch: open %s: %v", path, err)
		return nil
	}
	defer f.Close()

	lastPos := w.positions[path]
	info, err := f.Stat()
	if err != nil {
		return nil
	}
	if info.Size() < lastPos {
		// File was truncated/replaced; restart from the beginning.
		lastPos = 0
	}

	if _, err := f.Seek(lastPos, io.SeekStart); err != nil {
		return nil
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxScanTokenSize)

	var out []events.Event
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if ev, ok := toDashboardEvent(entry); ok {
			out = append(out, ev)
		}
	}

	newPos, err := f.Seek(0, io.SeekCurrent)
	if err == nil {
		w.positions[path] = newPos
	}

	return out
}

func toDashboardEvent(entry map[string]interface{}) (events.Event, bool) {
	entryType, _ := entry["type"].(string)
	if entryType != "user" && entryType != "assistant" {
		return events.Event{}, false
	}

	msg, _ := entry["message"].(map[string]interface{})
	role := entryType
	var content interface{}
	if msg != nil {
		if r, ok := msg["role"].(string); ok && r != "" {
			role = r
		}
		content = msg["content"]
	}

	preview, toolNames := summarizeContent(content)

	payload := map[string]interface{}{
		"role":    role,
		"preview": preview,
	}
	if len(toolNames) > 0 {
		payload["tool_uses"] = toolNames
	}

	timestamp, _ := entry["timestamp"].(string)
	return events.Event{
		Type:      "new_message",
		Timestamp: timestamp,
		Payload:   payload,
	}, true
}

func summarizeContent(content interface{}) (preview string, toolNames []string) {
	switch v := content.(type) {
	case string:
		return truncate(v, 120), nil
	case []interface{}:
		for _, item := range v {
			block, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			blockType, _ := block["type"].(string)
			switch blockType {
			case "text":
				if preview == "" {
					text, _ := block["text"].(string)
					preview = truncate(text, 120)
				}
			case "tool_use":
				name, _ := block["name"].(string)
				if name != "" {
					toolNames = append(toolNames, name)
				}
			}
		}
		return preview, toolNames
	default:
		return "", nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
