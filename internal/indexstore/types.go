// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package indexstore

// Session is a row of the sessions table: one per Claude Code transcript
// file, keyed by the assistant's own session UUID.
type Session struct {
	SessionID         string
	Slug              string
	ProjectDir        string
	WorkingDir        string
	GitBranch         string
	Model             string
	Version           string
	FirstMessage      string
	LastMessage       string
	MessageCount      int
	UserMsgCount      int
	AsstMsgCount      int
	TotalInputTokens  int64
	TotalOutputTokens int64
	TotalCacheRead    int64
	TotalCacheCreate  int64
	FileSizeBytes     int64
	JSONLPath         string
	IndexedAt         string

	// Hostname is set by callers for federation tagging; not a DB column.
	Hostname string `json:"hostname,omitempty"`
}

// Message is a row of the messages table.
type Message struct {
	UUID         string
	SessionID    string
	ParentUUID   string
	Role         string
	ContentText  string
	Model        string
	InputTokens  int64
	OutputTokens int64
	CacheRead    int64
	CacheCreate  int64
	HasThinking  bool
	ThinkingText string
	ToolUsesJSON string
	Timestamp    string
	SeqNum       int
}

// ToolUse is a row of the tool_uses table.
type ToolUse struct {
	ID           int64
	ToolUseID    string
	SessionID    string
	MessageUUID  string
	ToolName     string
	InputSummary string
	Timestamp    string
}

// FileEvent is a row of the file_events table.
type FileEvent struct {
	ID        int64
	SessionID string
	FilePath  string
	EventType string
	Timestamp string
}

// IndexMeta tracks the (mtime, size) pair a jsonl file was last indexed at,
// used to skip re-indexing files that have not changed.
type IndexMeta struct {
	JSONLPath string
	FileMtime float64
	FileSize  int64
	IndexedAt string
}

// PushSubscription is a registered Web Push (VAPID) browser subscription.
type PushSubscription struct {
	ID        int64
	Endpoint  string
	P256dhKey string
	AuthKey   string
	UserAgent string
	CreatedAt string
}

// PushDevice is a registered native (APNs) device token.
type PushDevice struct {
	ID          int64
	DeviceToken string
	Platform    string
	CreatedAt   string
}
