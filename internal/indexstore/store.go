// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package indexstore

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the prepared-statement-backed handle to the SQLite index
// database. All methods are safe for concurrent use; SQLite itself
// serializes writers, so Store additionally holds a mutex around
// multi-statement mutations to keep them atomic from the caller's view.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (creating if necessary) the SQLite database at path, applies
// pragmas, and ensures the schema exists.
func Open(path string) (*Store, error) {
	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on&_busy_timeout=30000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite3 driver is not safe for concurrent writers across conns
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// nowISO returns the current time formatted like the rest of the store's
// timestamp columns (RFC3339, UTC).
func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// ReplaceSession atomically replaces all rows for sess.SessionID: existing
// messages/tool_uses/file_events are deleted, the session row is
// upserted, and the new rows are inserted. This is the store's half of the
// indexer's delete-then-reinsert re-indexing strategy.
func (s *Store) ReplaceSession(sess Session, messages []Message, toolUses []ToolUse, fileEvents []FileEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM messages WHERE session_id = ?`, sess.SessionID); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM tool_uses WHERE session_id = ?`, sess.SessionID); err != nil {
		return fmt.Errorf("delete tool_uses: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM file_events WHERE session_id = ?`, sess.SessionID); err != nil {
		return fmt.Errorf("delete file_events: %w", err)
	}

	sess.IndexedAt = nowISO()
	if _, err := tx.Exec(`
		INSERT INTO sessions (session_id, slug, project_dir, working_dir, git_branch, model, version,
			first_message, last_message, message_count, user_msg_count, asst_msg_count,
			total_input_tokens, total_output_tokens, total_cache_read, total_cache_create,
			file_size_bytes, jsonl_path, indexed_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(session_id) DO UPDATE SET
			slug=excluded.slug, project_dir=excluded.project_dir, working_dir=excluded.working_dir,
			git_branch=excluded.git_branch, model=excluded.model, version=excluded.version,
			first_message=excluded.first_message, last_message=excluded.last_message,
			message_count=excluded.message_count, user_msg_count=excluded.user_msg_count,
			asst_msg_count=excluded.asst_msg_count, total_input_tokens=excluded.total_input_tokens,
			total_output_tokens=excluded.total_output_tokens, total_cache_read=excluded.total_cache_read,
			total_cache_create=excluded.total_cache_create, file_size_bytes=excluded.file_size_bytes,
			jsonl_path=excluded.jsonl_path, indexed_at=excluded.indexed_at
	`, sess.SessionID, sess.Slug, sess.ProjectDir, sess.WorkingDir, sess.GitBranch, sess.Model, sess.Version,
		sess.FirstMessage, sess.LastMessage, sess.MessageCount, sess.UserMsgCount, sess.AsstMsgCount,
		sess.TotalInputTokens, sess.TotalOutputTokens, sess.TotalCacheRead, sess.TotalCacheCreate,
		sess.FileSizeBytes, sess.JSONLPath, sess.IndexedAt); err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	msgStmt, err := tx.Prepare(`
		INSERT INTO messages (uuid, session_id, parent_uuid, role, content_text, model,
			input_tokens, output_tokens, cache_read, cache_create, has_thinking, thinking_text,
			tool_uses_json, timestamp, seq_num)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare message insert: %w", err)
	}
	defer msgStmt.Close()
	for _, m := range messages {
		thinking := 0
		if m.HasThinking {
			thinking = 1
		}
		if _, err := msgStmt.Exec(m.UUID, sess.SessionID, m.ParentUUID, m.Role, m.ContentText, m.Model,
			m.InputTokens, m.OutputTokens, m.CacheRead, m.CacheCreate, thinking, m.ThinkingText,
			m.ToolUsesJSON, m.Timestamp, m.SeqNum); err != nil {
			return fmt.Errorf("insert message %s: %w", m.UUID, err)
		}
	}

	toolStmt, err := tx.Prepare(`
		INSERT INTO tool_uses (tool_use_id, session_id, message_uuid, tool_name, input_summary, timestamp)
		VALUES (?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare tool_use insert: %w", err)
	}
	defer toolStmt.Close()
	for _, t := range toolUses {
		if _, err := toolStmt.Exec(t.ToolUseID, sess.SessionID, t.MessageUUID, t.ToolName, t.InputSummary, t.Timestamp); err != nil {
			return fmt.Errorf("insert tool_use: %w", err)
		}
	}

	feStmt, err := tx.Prepare(`
		INSERT INTO file_events (session_id, file_path, event_type, timestamp)
		VALUES (?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare file_event insert: %w", err)
	}
	defer feStmt.Close()
	for _, fe := range fileEvents {
		if _, err := feStmt.Exec(sess.SessionID, fe.FilePath, fe.EventType, fe.Timestamp); err != nil {
			return fmt.Errorf("insert file_event: %w", err)
		}
	}

	return tx.Commit()
}

// DeleteSession removes a session and all of its dependent rows (orphan
// reaping, when the jsonl file it was indexed from no longer exists).
func (s *Store) DeleteSession(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`DELETE FROM sessions WHERE session_id = ?`, sessionID)
	return err
}

// RebuildFTS rebuilds the messages_fts external-content index. Must be
// called after any mutating pass, per the Open Question resolution in
// DESIGN.md (not gated on sessions_indexed > 0).
func (s *Store) RebuildFTS() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`INSERT INTO messages_fts(messages_fts) VALUES ('rebuild')`)
	return err
}

// GetIndexMeta returns the stored (mtime, size) for a jsonl path, or
// ok=false if it has never been indexed.
func (s *Store) GetIndexMeta(jsonlPath string) (meta IndexMeta, ok bool, err error) {
	row := s.db.QueryRow(`SELECT jsonl_path, file_mtime, file_size, indexed_at FROM index_meta WHERE jsonl_path = ?`, jsonlPath)
	err = row.Scan(&meta.JSONLPath, &meta.FileMtime, &meta.FileSize, &meta.IndexedAt)
	if err == sql.ErrNoRows {
		return IndexMeta{}, false, nil
	}
	if err != nil {
		return IndexMeta{}, false, err
	}
	return meta, true, nil
}

// SetIndexMeta records the (mtime, size) a jsonl path was indexed at.
func (s *Store) SetIndexMeta(meta IndexMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	meta.IndexedAt = nowISO()
	_, err := s.db.Exec(`
		INSERT INTO index_meta (jsonl_path, file_mtime, file_size, indexed_at) VALUES (?,?,?,?)
		ON CONFLICT(jsonl_path) DO UPDATE SET file_mtime=excluded.file_mtime, file_size=excluded.file_size, indexed_at=excluded.indexed_at
	`, meta.JSONLPath, meta.FileMtime, meta.FileSize, meta.IndexedAt)
	return err
}

// DeleteIndexMeta removes the index_meta row for a path that no longer
// exists on disk.
func (s *Store) DeleteIndexMeta(jsonlPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`DELETE FROM index_meta WHERE jsonl_path = ?`, jsonlPath)
	return err
}

// AllIndexedPaths returns every jsonl_path currently tracked in
// index_meta, for orphan detection against the live filesystem listing.
func (s *Store) AllIndexedPaths() ([]string, error) {
	rows, err := s.db.Query(`SELECT jsonl_path FROM index_meta`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// SessionIDForPath returns the session_id whose jsonl_path matches, if any.
func (s *Store) SessionIDForPath(jsonlPath string) (string, bool, error) {
	row := s.db.QueryRow(`SELECT session_id FROM sessions WHERE jsonl_path = ?`, jsonlPath)
	var id string
	err := row.Scan(&id)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}
