// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package indexstore is the SQLite-backed relational store for indexed
// Claude Code session transcripts: sessions, messages, tool uses, file
// events, incremental-index metadata, and push subscriptions.
package indexstore

const schemaSQL = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id         TEXT PRIMARY KEY,
	slug               TEXT,
	project_dir        TEXT,
	working_dir        TEXT,
	git_branch         TEXT,
	model              TEXT,
	version            TEXT,
	first_message      TEXT,
	last_message       TEXT,
	message_count      INTEGER NOT NULL DEFAULT 0,
	user_msg_count     INTEGER NOT NULL DEFAULT 0,
	asst_msg_count     INTEGER NOT NULL DEFAULT 0,
	total_input_tokens INTEGER NOT NULL DEFAULT 0,
	total_output_tokens INTEGER NOT NULL DEFAULT 0,
	total_cache_read   INTEGER NOT NULL DEFAULT 0,
	total_cache_create INTEGER NOT NULL DEFAULT 0,
	file_size_bytes    INTEGER NOT NULL DEFAULT 0,
	jsonl_path         TEXT NOT NULL,
	indexed_at         TEXT
);

CREATE TABLE IF NOT EXISTS messages (
	uuid          TEXT PRIMARY KEY,
	session_id    TEXT NOT NULL REFERENCES sessions(session_id) ON DELETE CASCADE,
	parent_uuid   TEXT,
	role          TEXT,
	content_text  TEXT,
	model         TEXT,
	input_tokens  INTEGER NOT NULL DEFAULT 0,
	output_tokens INTEGER NOT NULL DEFAULT 0,
	cache_read    INTEGER NOT NULL DEFAULT 0,
	cache_create  INTEGER NOT NULL DEFAULT 0,
	has_thinking  INTEGER NOT NULL DEFAULT 0,
	thinking_text TEXT,
	tool_uses_json TEXT,
	timestamp     TEXT,
	seq_num       INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS tool_uses (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	tool_use_id   TEXT,
	session_id    TEXT NOT NULL REFERENCES sessions(session_id) ON DELETE CASCADE,
	message_uuid  TEXT,
	tool_name     TEXT,
	input_summary TEXT,
	timestamp     TEXT
);

CREATE TABLE IF NOT EXISTS file_events (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL REFERENCES sessions(session_id) ON DELETE CASCADE,
	file_path  TEXT,
	event_type TEXT,
	timestamp  TEXT
);

CREATE TABLE IF NOT EXISTS index_meta (
	jsonl_path TEXT PRIMARY KEY,
	file_mtime REAL NOT NULL,
	file_size  INTEGER NOT NULL,
	indexed_at TEXT
);

CREATE TABLE IF NOT EXISTS push_subscriptions (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	endpoint   TEXT NOT NULL UNIQUE,
	p256dh_key TEXT,
	auth_key   TEXT,
	user_agent TEXT,
	created_at TEXT
);

-- Native (APNs) device registration, supplementing the Web Push table above.
CREATE TABLE IF NOT EXISTS push_devices (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	device_token TEXT NOT NULL UNIQUE,
	platform    TEXT,
	created_at  TEXT
);

CREATE INDEX IF NOT EXISTS idx_sessions_last ON sessions(last_message DESC);
CREATE INDEX IF NOT EXISTS idx_sessions_project ON sessions(project_dir);
CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, seq_num);
CREATE INDEX IF NOT EXISTS idx_tool_uses_session ON tool_uses(session_id);
CREATE INDEX IF NOT EXISTS idx_tool_uses_name ON tool_uses(tool_name);
CREATE INDEX IF NOT EXISTS idx_file_events_session ON file_events(session_id);

CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
	content_text, thinking_text,
	content='messages', content_rowid='rowid'
);

CREATE TRIGGER IF NOT EXISTS messages_ai AFTER INSERT ON messages BEGIN
	INSERT INTO messages_fts(rowid, content_text, thinking_text)
	VALUES (new.rowid, new.content_text, new.thinking_text);
END;
`

// IsFUSEPath reports whether path looks like it sits under a FUSE-style
// network mount (NFS, sshfs, macFUSE) where inotify-style change
// notifications are unreliable. Kept for forward compatibility; the tail
// watcher (internal/tailwatch) always polls regardless of this check, per
// the decision recorded in DESIGN.md.
func IsFUSEPath(path string) bool {
	fuseMarkers := []string{"/net/", "/Volumes/", "fuse", ".sshfs"}
	for _, m := range fuseMarkers {
		if containsFold(path, m) {
			return true
		}
	}
	return false
}

func containsFold(s, substr string) bool {
	sl, subl := len(s), len(substr)
	if subl == 0 {
		return true
	}
	for i := 0; i+subl <= sl; i++ {
		if equalFold(s[i:i+subl], substr) {
			return true
		}
	}
	return false
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if ca >= 'A' && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if cb >= 'A' && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
