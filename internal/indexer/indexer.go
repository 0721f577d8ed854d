// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package indexer drives incremental indexing of Claude Code session
// transcripts from disk into internal/indexstore, skipping files that have
// not changed since they were last indexed.
package indexer

import (
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/wingedpig/claude-remote/internal/indexstore"
	"github.com/wingedpig/claude-remote/internal/transcript"
)

// mtimeTolerance is how close two mtimes must be to be considered
// "unchanged" for the purposes of skipping a re-index; float mtimes
// round-trip through SQLite with a small amount of jitter.
const mtimeTolerance = 0.01

// Result summarizes one Run call, mirroring the POST /api/reindex response
// body.
type Result struct {
	SessionsIndexed int   `json:"sessions_indexed"`
	SessionsSkipped int   `json:"sessions_skipped"`
	MessagesIndexed int   `json:"messages_indexed"`
	DurationMS      int64 `json:"duration_ms"`
}

// Indexer scans a Claude Code projects root and keeps a Store in sync with
// it.
type Indexer struct {
	store       *indexstore.Store
	projectsDir string
}

// New returns an Indexer that walks projectsDir (typically
// ~/.claude/projects) and indexes into store.
func New(store *indexstore.Store, projectsDir string) *Indexer {
	return &Indexer{store: store, projectsDir: projectsDir}
}

// Run performs one incremental (or, with force, full) indexing pass: it
// walks every *.jsonl file under the projects directory, re-indexes any
// that are new or changed, and reaps sessions whose file has disappeared.
// The FTS index is rebuilt whenever any row mutation occurred at all,
// including an orphan-only removal pass with zero sessions indexed.
func (ix *Indexer) Run(force bool) (Result, error) {
	start := time.Now()

	files, err := ix.listTranscriptFiles()
	if err != nil {
		return Result{}, fmt.Errorf("list transcript files: %w", err)
	}

	var sessionsIndexed, sessionsSkipped, messagesIndexed int

	seenPaths := make(map[string]bool, len(files))
	for _, path := range files {
		seenPaths[path] = true

		info, err := os.Stat(path)
		if err != nil {
			log.Printf("indexer: stat %s: %v", path, err)
			continue
		}

		if !force {
			if meta, ok, err := ix.store.GetIndexMeta(path); err == nil && ok {
				if unchanged(meta, info) {
					sessionsSkipped++
					continue
				}
			}
		}

		n, err := ix.indexOne(path, info)
		if err != nil {
			log.Printf("indexer: failed to index %s: %v", path, err)
			continue
		}
		sessionsIndexed++
		messagesIndexed += n
	}

	sessionsRemoved, err := ix.reapOrphans(seenPaths)
	if err != nil {
		return Result{}, fmt.Errorf("reap orphans: %w", err)
	}

	if sessionsIndexed+sessionsRemoved > 0 {
		if err := ix.store.RebuildFTS(); err != nil {
			log.Printf("indexer: fts rebuild failed: %v", err)
		}
	}

	return Result{
		SessionsIndexed: sessionsIndexed,
		SessionsSkipped: sessionsSkipped,
		MessagesIndexed: messagesIndexed,
		DurationMS:      time.Since(start).Milliseconds(),
	}, nil
}

// IndexPath indexes a single transcript file immediately, bypassing the
// skip-if-unchanged check. The tail watcher does not call it; it only
// publishes events for appended lines.
func (ix *Indexer) IndexPath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if _, err := ix.indexOne(path, info); err != nil {
		return err
	}
	return ix.store.RebuildFTS()
}

func (ix *Indexer) indexOne(path string, info os.FileInfo) (int, error) {
	result, err := transcript.ParseFile(path)
	if err != nil {
		return 0, err
	}

	if err := ix.store.ReplaceSession(result.Session, result.Messages, result.ToolUses, result.FileEvents); err != nil {
		return 0, fmt.Errorf("replace session: %w", err)
	}

	meta := indexstore.IndexMeta{
		JSONLPath: path,
		FileMtime: float64(info.ModTime().UnixNano()) / 1e9,
		FileSize:  info.Size(),
	}
	if err := ix.store.SetIndexMeta(meta); err != nil {
		return 0, fmt.Errorf("set index meta: %w", err)
	}

	return len(result.Messages), nil
}

// reapOrphans deletes sessions (and their index_meta row) whose jsonl file
// is no longer present on disk.
func (ix *Indexer) reapOrphans(seenPaths map[string]bool) (int, error) {
	trackedPaths, err := ix.store.AllIndexedPaths()
	if err != nil {
		return 0, err
	}

	var removed int
	for _, path := range trackedPaths {
		if seenPaths[path] {
			continue
		}
		if sessionID, ok, err := ix.store.SessionIDForPath(path); err == nil && ok {
			if err := ix.store.DeleteSession(sessionID); err != nil {
				log.Printf("indexer: failed to delete orphaned session %s: %v", sessionID, err)
				continue
			}
			removed++
		}
		if err := ix.store.DeleteIndexMeta(path); err != nil {
			log.Printf("indexer: failed to delete index_meta for %s: %v", path, err)
		}
	}
	return removed, nil
}

// listTranscriptFiles finds every *.jsonl file directly under each
// project subdirectory of the projects root. Subagent transcripts live one
// level deeper still and are never picked up by this one-level glob,
// matching the original indexer's non-recursive scan.
func (ix *Indexer) listTranscriptFiles() ([]string, error) {
	entries, err := os.ReadDir(ix.projectsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		projectDir := filepath.Join(ix.projectsDir, e.Name())
		matches, err := filepath.Glob(filepath.Join(projectDir, "*.jsonl"))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	return files, nil
}

func unchanged(meta indexstore.IndexMeta, info os.FileInfo) bool {
	mtime := float64(info.ModTime().UnixNano()) / 1e9
	return math.Abs(mtime-meta.FileMtime) < mtimeTolerance && info.Size() == meta.FileSize
}
