// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package indexstore

import (
	"database/sql"
	"fmt"
)

// DashboardStats is the aggregate summary returned by the dashboard query.
type DashboardStats struct {
	TotalSessions     int
	TotalMessages     int
	TotalInputTokens  int64
	TotalOutputTokens int64
	TotalCacheRead    int64
	TotalCacheCreate  int64
	CacheHitRate      float64
	EstimatedCostUSD  float64
}

// ActivityRow is one row of the dashboard's recent-activity feed.
type ActivityRow struct {
	SessionID   string
	Slug        string
	ProjectDir  string
	Role        string
	ContentText string
	Timestamp   string
	Hostname    string `json:"hostname,omitempty"`
}

// Dashboard returns the aggregate stats and the most recent activity rows
// (bounded to limit, newest first).
func (s *Store) Dashboard(limit int) (DashboardStats, []ActivityRow, error) {
	var stats DashboardStats
	row := s.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(message_count),0), COALESCE(SUM(total_input_tokens),0),
			COALESCE(SUM(total_output_tokens),0), COALESCE(SUM(total_cache_read),0), COALESCE(SUM(total_cache_create),0)
		FROM sessions
	`)
	if err := row.Scan(&stats.TotalSessions, &stats.TotalMessages, &stats.TotalInputTokens,
		&stats.TotalOutputTokens, &stats.TotalCacheRead, &stats.TotalCacheCreate); err != nil {
		return stats, nil, fmt.Errorf("scan dashboard totals: %w", err)
	}
	denom := stats.TotalCacheRead + stats.TotalCacheCreate + stats.TotalInputTokens
	if denom > 0 {
		stats.CacheHitRate = float64(stats.TotalCacheRead) / float64(denom)
	}

	rows, err := s.db.Query(`
		SELECT m.session_id, s.slug, s.project_dir, m.role, m.content_text, m.timestamp
		FROM messages m JOIN sessions s ON s.session_id = m.session_id
		ORDER BY m.timestamp DESC LIMIT ?
	`, limit)
	if err != nil {
		return stats, nil, fmt.Errorf("query recent activity: %w", err)
	}
	defer rows.Close()

	var activity []ActivityRow
	for rows.Next() {
		var a ActivityRow
		if err := rows.Scan(&a.SessionID, &a.Slug, &a.ProjectDir, &a.Role, &a.ContentText, &a.Timestamp); err != nil {
			return stats, nil, fmt.Errorf("scan activity row: %w", err)
		}
		activity = append(activity, a)
	}
	return stats, activity, rows.Err()
}

// ToolActivityRow is one row of the dashboard's recent-activity feed,
// sourced from tool_uses rather than messages so it reflects actions taken
// rather than every chat turn.
type ToolActivityRow struct {
	SessionID    string
	Slug         string
	ProjectDir   string
	ToolName     string
	InputSummary string
	Timestamp    string
	Hostname     string `json:"hostname,omitempty"`
}

// RecentToolActivity returns the most recent tool invocations across every
// session, newest first, bounded to limit.
func (s *Store) RecentToolActivity(limit int) ([]ToolActivityRow, error) {
	rows, err := s.db.Query(`
		SELECT tu.session_id, s.slug, s.project_dir, tu.tool_name, tu.input_summary, tu.timestamp
		FROM tool_uses tu
		JOIN sessions s ON s.session_id = tu.session_id
		ORDER BY tu.timestamp DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent tool activity: %w", err)
	}
	defer rows.Close()

	var out []ToolActivityRow
	for rows.Next() {
		var a ToolActivityRow
		if err := rows.Scan(&a.SessionID, &a.Slug, &a.ProjectDir, &a.ToolName, &a.InputSummary, &a.Timestamp); err != nil {
			return nil, fmt.Errorf("scan tool activity: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// RangeStats is the token/session/cost rollup for sessions whose
// last_message falls on or after a cutoff timestamp.
type RangeStats struct {
	SessionCount int
	InputTokens  int64
	OutputTokens int64
	CacheRead    int64
	CacheCreate  int64
}

// StatsSince aggregates session counts and token totals for sessions last
// active at or after sinceISO.
func (s *Store) StatsSince(sinceISO string) (RangeStats, error) {
	var r RangeStats
	row := s.db.QueryRow(`
		SELECT COUNT(DISTINCT session_id), COALESCE(SUM(total_input_tokens),0),
			COALESCE(SUM(total_output_tokens),0), COALESCE(SUM(total_cache_read),0),
			COALESCE(SUM(total_cache_create),0)
		FROM sessions WHERE last_message >= ?
	`, sinceISO)
	err := row.Scan(&r.SessionCount, &r.InputTokens, &r.OutputTokens, &r.CacheRead, &r.CacheCreate)
	if err != nil {
		return r, fmt.Errorf("stats since: %w", err)
	}
	return r, nil
}

// ListSessions returns sessions ordered by last_message descending,
// paginated by offset/limit. project, if non-empty, filters by project_dir.
func (s *Store) ListSessions(project string, offset, limit int) ([]Session, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM sessions`
	listQuery := `SELECT session_id, slug, project_dir, working_dir, git_branch, model, version,
		first_message, last_message, message_count, user_msg_count, asst_msg_count,
		total_input_tokens, total_output_tokens, total_cache_read, total_cache_create,
		file_size_bytes, jsonl_path, indexed_at FROM sessions`
	args := []interface{}{}
	if project != "" {
		countQuery += ` WHERE project_dir = ?`
		listQuery += ` WHERE project_dir = ?`
		args = append(args, project)
	}
	if err := s.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}

	listQuery += ` ORDER BY last_message DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)
	rows, err := s.db.Query(listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		if err := scanSession(rows, &sess); err != nil {
			return nil, 0, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, total, rows.Err()
}

func scanSession(rows *sql.Rows, sess *Session) error {
	return rows.Scan(&sess.SessionID, &sess.Slug, &sess.ProjectDir, &sess.WorkingDir, &sess.GitBranch,
		&sess.Model, &sess.Version, &sess.FirstMessage, &sess.LastMessage, &sess.MessageCount,
		&sess.UserMsgCount, &sess.AsstMsgCount, &sess.TotalInputTokens, &sess.TotalOutputTokens,
		&sess.TotalCacheRead, &sess.TotalCacheCreate, &sess.FileSizeBytes, &sess.JSONLPath, &sess.IndexedAt)
}

// FileEventCount is one file's event histogram row for a session's detail
// view: how many times a given event type (edit, create, read, ...) was
// recorded against that path.
type FileEventCount struct {
	FilePath  string
	EventType string
	Count     int
}

// FileEventCounts groups a session's file_events by (path, event_type),
// most-touched first.
func (s *Store) FileEventCounts(sessionID string, limit int) ([]FileEventCount, error) {
	rows, err := s.db.Query(`
		SELECT file_path, event_type, COUNT(*) as cnt
		FROM file_events WHERE session_id = ?
		GROUP BY file_path, event_type
		ORDER BY cnt DESC LIMIT ?
	`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("file event counts: %w", err)
	}
	defer rows.Close()

	var out []FileEventCount
	for rows.Next() {
		var f FileEventCount
		if err := rows.Scan(&f.FilePath, &f.EventType, &f.Count); err != nil {
			return nil, fmt.Errorf("scan file event count: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// ToolUsageBySession groups a single session's tool_uses by tool_name,
// most-used first.
func (s *Store) ToolUsageBySession(sessionID string) ([]ToolUsageCount, error) {
	rows, err := s.db.Query(`
		SELECT tool_name, COUNT(*) FROM tool_uses WHERE session_id = ?
		GROUP BY tool_name ORDER BY COUNT(*) DESC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("tool usage by session: %w", err)
	}
	defer rows.Close()
	var out []ToolUsageCount
	for rows.Next() {
		var t ToolUsageCount
		if err := rows.Scan(&t.ToolName, &t.Count); err != nil {
			return nil, fmt.Errorf("scan tool usage: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetSession returns a single session's summary row.
func (s *Store) GetSession(sessionID string) (Session, bool, error) {
	row := s.db.QueryRow(`SELECT session_id, slug, project_dir, working_dir, git_branch, model, version,
		first_message, last_message, message_count, user_msg_count, asst_msg_count,
		total_input_tokens, total_output_tokens, total_cache_read, total_cache_create,
		file_size_bytes, jsonl_path, indexed_at FROM sessions WHERE session_id = ?`, sessionID)
	var sess Session
	err := row.Scan(&sess.SessionID, &sess.Slug, &sess.ProjectDir, &sess.WorkingDir, &sess.GitBranch,
		&sess.Model, &sess.Version, &sess.FirstMessage, &sess.LastMessage, &sess.MessageCount,
		&sess.UserMsgCount, &sess.AsstMsgCount, &sess.TotalInputTokens, &sess.TotalOutputTokens,
		&sess.TotalCacheRead, &sess.TotalCacheCreate, &sess.FileSizeBytes, &sess.JSONLPath, &sess.IndexedAt)
	if err == sql.ErrNoRows {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, fmt.Errorf("get session: %w", err)
	}
	return sess, true, nil
}

// GetSessionWorkingDir returns just the working_dir for a session, used by
// the terminal Join operation to seed a freshly spawned multiplexer
// session's cwd.
func (s *Store) GetSessionWorkingDir(sessionID string) (string, bool, error) {
	row := s.db.QueryRow(`SELECT working_dir FROM sessions WHERE session_id = ?`, sessionID)
	var dir string
	err := row.Scan(&dir)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return dir, true, nil
}

// Conversation returns a page of a session's messages ordered by seq_num.
func (s *Store) Conversation(sessionID string, offset, limit int) ([]Message, int, error) {
	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM messages WHERE session_id = ?`, sessionID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT uuid, session_id, parent_uuid, role, content_text, model, input_tokens, output_tokens,
			cache_read, cache_create, has_thinking, thinking_text, tool_uses_json, timestamp, seq_num
		FROM messages WHERE session_id = ? ORDER BY seq_num ASC LIMIT ? OFFSET ?
	`, sessionID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query conversation: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		var thinking int
		if err := rows.Scan(&m.UUID, &m.SessionID, &m.ParentUUID, &m.Role, &m.ContentText, &m.Model,
			&m.InputTokens, &m.OutputTokens, &m.CacheRead, &m.CacheCreate, &thinking, &m.ThinkingText,
			&m.ToolUsesJSON, &m.Timestamp, &m.SeqNum); err != nil {
			return nil, 0, fmt.Errorf("scan message: %w", err)
		}
		m.HasThinking = thinking != 0
		msgs = append(msgs, m)
	}
	return msgs, total, rows.Err()
}

// LastMessage returns the single most recent message in a session (used by
// the needs-input detector to avoid paging through the whole conversation).
func (s *Store) LastMessage(sessionID string) (Message, bool, error) {
	row := s.db.QueryRow(`
		SELECT uuid, session_id, parent_uuid, role, content_text, model, input_tokens, output_tokens,
			cache_read, cache_create, has_thinking, thinking_text, tool_uses_json, timestamp, seq_num
		FROM messages WHERE session_id = ? ORDER BY seq_num DESC LIMIT 1
	`, sessionID)
	var m Message
	var thinking int
	err := row.Scan(&m.UUID, &m.SessionID, &m.ParentUUID, &m.Role, &m.ContentText, &m.Model,
		&m.InputTokens, &m.OutputTokens, &m.CacheRead, &m.CacheCreate, &thinking, &m.ThinkingText,
		&m.ToolUsesJSON, &m.Timestamp, &m.SeqNum)
	if err == sql.ErrNoRows {
		return Message{}, false, nil
	}
	if err != nil {
		return Message{}, false, err
	}
	m.HasThinking = thinking != 0
	return m, true, nil
}

// SearchResult is one row returned by full-text search.
type SearchResult struct {
	SessionID   string
	Slug        string
	ProjectDir  string
	MessageUUID string
	Role        string
	Snippet     string
	Timestamp   string
}

// SearchFilter narrows a full-text query to a project and/or a timestamp
// range, mirroring the query/after/before parameters of the search route.
type SearchFilter struct {
	Project string
	After   string
	Before  string
}

// Search runs a full-text query against messages_fts and returns matches
// newest-first, bounded to limit.
func (s *Store) Search(query string, limit int) ([]SearchResult, error) {
	return s.SearchFiltered(query, SearchFilter{}, limit)
}

// SearchFiltered is Search plus the optional project/after/before
// predicates, pushed into the SQL query rather than filtered in Go.
func (s *Store) SearchFiltered(query string, filter SearchFilter, limit int) ([]SearchResult, error) {
	sql := `
		SELECT m.session_id, s.slug, s.project_dir, m.uuid, m.role,
			snippet(messages_fts, 0, '[', ']', '...', 16), m.timestamp
		FROM messages_fts
		JOIN messages m ON m.rowid = messages_fts.rowid
		JOIN sessions s ON s.session_id = m.session_id
		WHERE messages_fts MATCH ?
	`
	args := []interface{}{query}
	if filter.Project != "" {
		sql += " AND s.project_dir = ?"
		args = append(args, filter.Project)
	}
	if filter.After != "" {
		sql += " AND m.timestamp >= ?"
		args = append(args, filter.After)
	}
	if filter.Before != "" {
		sql += " AND m.timestamp <= ?"
		args = append(args, filter.Before)
	}
	sql += " ORDER BY m.timestamp DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(sql, args...)
	if err != nil {
		return nil, fmt.Errorf("fts search: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.SessionID, &r.Slug, &r.ProjectDir, &r.MessageUUID, &r.Role, &r.Snippet, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// TokenAnalytics is per-model token/cost usage, for the analytics routes.
// AVG(model) is intentionally not computed anywhere here (Open Question 3).
type TokenAnalytics struct {
	Model             string
	SessionCount      int
	TotalInputTokens  int64
	TotalOutputTokens int64
	TotalCacheRead    int64
	TotalCacheCreate  int64
}

// TokenUsageByModel aggregates token totals grouped by model.
func (s *Store) TokenUsageByModel() ([]TokenAnalytics, error) {
	rows, err := s.db.Query(`
		SELECT COALESCE(model,'unknown'), COUNT(*), COALESCE(SUM(total_input_tokens),0),
			COALESCE(SUM(total_output_tokens),0), COALESCE(SUM(total_cache_read),0), COALESCE(SUM(total_cache_create),0)
		FROM sessions GROUP BY model ORDER BY COUNT(*) DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("token usage by model: %w", err)
	}
	defer rows.Close()
	var out []TokenAnalytics
	for rows.Next() {
		var t TokenAnalytics
		if err := rows.Scan(&t.Model, &t.SessionCount, &t.TotalInputTokens, &t.TotalOutputTokens,
			&t.TotalCacheRead, &t.TotalCacheCreate); err != nil {
			return nil, fmt.Errorf("scan token analytics: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ToolUsageCount is per-tool invocation counts, for the analytics routes.
type ToolUsageCount struct {
	ToolName string
	Count    int
}

// ToolUsage aggregates tool_uses rows by tool_name.
func (s *Store) ToolUsage() ([]ToolUsageCount, error) {
	rows, err := s.db.Query(`
		SELECT tool_name, COUNT(*) FROM tool_uses GROUP BY tool_name ORDER BY COUNT(*) DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("tool usage: %w", err)
	}
	defer rows.Close()
	var out []ToolUsageCount
	for rows.Next() {
		var t ToolUsageCount
		if err := rows.Scan(&t.ToolName, &t.Count); err != nil {
			return nil, fmt.Errorf("scan tool usage: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SavePushSubscription upserts a Web Push subscription by endpoint.
func (s *Store) SavePushSubscription(sub PushSubscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub.CreatedAt = nowISO()
	_, err := s.db.Exec(`
		INSERT INTO push_subscriptions (endpoint, p256dh_key, auth_key, user_agent, created_at)
		VALUES (?,?,?,?,?)
		ON CONFLICT(endpoint) DO UPDATE SET p256dh_key=excluded.p256dh_key, auth_key=excluded.auth_key, user_agent=excluded.user_agent
	`, sub.Endpoint, sub.P256dhKey, sub.AuthKey, sub.UserAgent, sub.CreatedAt)
	return err
}

// DeletePushSubscription removes a subscription by endpoint (used both for
// explicit unsubscribe and for pruning a subscription that the push
// gateway reported as gone, HTTP 410).
func (s *Store) DeletePushSubscription(endpoint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`DELETE FROM push_subscriptions WHERE endpoint = ?`, endpoint)
	return err
}

// ListPushSubscriptions returns all registered Web Push subscriptions.
func (s *Store) ListPushSubscriptions() ([]PushSubscription, error) {
	rows, err := s.db.Query(`SELECT id, endpoint, p256dh_key, auth_key, user_agent, created_at FROM push_subscriptions`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PushSubscription
	for rows.Next() {
		var p PushSubscription
		if err := rows.Scan(&p.ID, &p.Endpoint, &p.P256dhKey, &p.AuthKey, &p.UserAgent, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// RegisterPushDevice upserts a native (APNs) device token registration.
func (s *Store) RegisterPushDevice(token, platform string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
		INSERT INTO push_devices (device_token, platform, created_at) VALUES (?,?,?)
		ON CONFLICT(device_token) DO UPDATE SET platform=excluded.platform
	`, token, platform, nowISO())
	return err
}

// UnregisterPushDevice removes a native device token registration.
func (s *Store) UnregisterPushDevice(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`DELETE FROM push_devices WHERE device_token = ?`, token)
	return err
}

// ListPushDevices returns all registered native device tokens.
func (s *Store) ListPushDevices() ([]PushDevice, error) {
	rows, err := s.db.Query(`SELECT id, device_token, platform, created_at FROM push_devices`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PushDevice
	for rows.Next() {
		var d PushDevice
		if err := rows.Scan(&d.ID, &d.DeviceToken, &d.Platform, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
