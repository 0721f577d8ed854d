// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"encoding/json"
	"net/http"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/wingedpig/claude-remote/internal/indexstore"
	"github.com/wingedpig/claude-remote/internal/transcript"
)

type sessionListItem struct {
	SessionID     string  `json:"session_id"`
	Slug          string  `json:"slug"`
	Project       string  `json:"project"`
	WorkingDir    string  `json:"working_dir"`
	Model         string  `json:"model"`
	GitBranch     string  `json:"git_branch"`
	FirstMessage  string  `json:"first_message"`
	LastMessage   string  `json:"last_message"`
	MessageCount  int     `json:"message_count"`
	UserMsgCount  int     `json:"user_msg_count"`
	AsstMsgCount  int     `json:"asst_msg_count"`
	TotalTokens   int64   `json:"total_tokens"`
	CostEstimate  float64 `json:"cost_estimate"`
	FileSizeMB    float64 `json:"file_size_mb"`
	IsRunning     bool    `json:"is_running"`
	IsInTmux      bool    `json:"is_in_tmux"`
	Hostname      string  `json:"hostname,omitempty"`
}

type sessionListResponse struct {
	Sessions []sessionListItem `json:"sessions"`
	Total    int               `json:"total"`
	Limit    int                `json:"limit"`
	Offset   int                `json:"offset"`
}

// ListSessions serves GET /api/sessions?status&project&limit&offset.
func (d *Deps) ListSessions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := q.Get("status")
	project := q.Get("project")
	limit := queryInt(q, "limit", 30)
	offset := queryInt(q, "offset", 0)

	active, tmux := d.ActiveAndTmuxIDs()

	sessions, total, err := d.Store.ListSessions(project, offset, limit)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	items := make([]sessionListItem, 0, len(sessions))
	for _, sess := range sessions {
		isRunning := active[sess.SessionID]
		isInTmux := tmux[shortID(sess.SessionID)]
		if status == "running" && !isRunning {
			continue
		}
		if status == "stopped" && isRunning {
			continue
		}
		item := toSessionListItem(sess, isRunning, isInTmux)
		item.Hostname = d.Hostname
		items = append(items, item)
	}

	WriteJSON(w, http.StatusOK, sessionListResponse{
		Sessions: items,
		Total:    total,
		Limit:    limit,
		Offset:   offset,
	})
}

type sessionDetailResponse struct {
	Session       sessionListItem        `json:"session"`
	FilesTouched  []fileTouchedItem      `json:"files_touched"`
	ToolSummary   map[string]int         `json:"tool_summary"`
	TokenBreakdown tokenBreakdown        `json:"token_breakdown"`
}

type fileTouchedItem struct {
	Path      string `json:"path"`
	EventType string `json:"event_type"`
	Count     int    `json:"count"`
}

type tokenBreakdown struct {
	Input        int64 `json:"input"`
	Output       int64 `json:"output"`
	CacheRead    int64 `json:"cache_read"`
	CacheCreate  int64 `json:"cache_create"`
}

// SessionDetail serves GET /api/sessions/{id}.
func (d *Deps) SessionDetail(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	sess, ok, err := d.Store.GetSession(sessionID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		WriteError(w, http.StatusNotFound, "Session not found")
		return
	}

	active, tmux := d.ActiveAndTmuxIDs()

	filesTouched, toolSummary, err := d.sessionBreakdown(sessionID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, sessionDetailResponse{
		Session:      toSessionListItem(sess, active[sessionID], tmux[shortID(sessionID)]),
		FilesTouched: filesTouched,
		ToolSummary:  toolSummary,
		TokenBreakdown: tokenBreakdown{
			Input:       sess.TotalInputTokens,
			Output:      sess.TotalOutputTokens,
			CacheRead:   sess.TotalCacheRead,
			CacheCreate: sess.TotalCacheCreate,
		},
	})
}

type conversationResponse struct {
	SessionID string            `json:"session_id"`
	Messages  []conversationMsg `json:"messages"`
	Total     int               `json:"total"`
	Limit     int               `json:"limit"`
	Offset    int               `json:"offset"`
}

type conversationMsg struct {
	UUID         string        `json:"uuid"`
	Role         string        `json:"role"`
	ContentText  string        `json:"content_text"`
	Timestamp    string        `json:"timestamp"`
	SeqNum       int           `json:"seq_num"`
	Model        string        `json:"model,omitempty"`
	OutputTokens int64         `json:"output_tokens,omitempty"`
	HasThinking  *bool         `json:"has_thinking,omitempty"`
	ThinkingText string        `json:"thinking_text,omitempty"`
	ToolUses     []toolUseItem `json:"tool_uses,omitempty"`
}

type toolUseItem struct {
	Name    string `json:"name"`
	Summary string `json:"summary"`
}

// Conversation serves GET /api/sessions/{id}/conversation?limit&offset.
func (d *Deps) Conversation(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	q := r.URL.Query()
	limit := queryInt(q, "limit", 200)
	offset := queryInt(q, "offset", 0)

	if _, ok, err := d.Store.GetSession(sessionID); err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	} else if !ok {
		WriteError(w, http.StatusNotFound, "Session not found")
		return
	}

	msgs, total, err := d.Store.Conversation(sessionID, offset, limit)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]conversationMsg, 0, len(msgs))
	for _, m := range msgs {
		item := conversationMsg{
			UUID:        m.UUID,
			Role:        m.Role,
			ContentText: m.ContentText,
			Timestamp:   m.Timestamp,
			SeqNum:      m.SeqNum,
		}
		if m.Role == "assistant" {
			item.Model = m.Model
			item.OutputTokens = m.OutputTokens
			hasThinking := m.HasThinking
			item.HasThinking = &hasThinking
			if m.HasThinking && m.ThinkingText != "" {
				item.ThinkingText = m.ThinkingText
			}
			if m.ToolUsesJSON != "" {
				item.ToolUses = parseToolUses(m.ToolUsesJSON)
			}
		}
		out = append(out, item)
	}

	WriteJSON(w, http.StatusOK, conversationResponse{
		SessionID: sessionID,
		Messages:  out,
		Total:     total,
		Limit:     limit,
		Offset:    offset,
	})
}

type rawToolUse struct {
	Name         string `json:"name"`
	InputSummary string `json:"input_summary"`
}

func parseToolUses(raw string) []toolUseItem {
	var tools []rawToolUse
	if err := json.Unmarshal([]byte(raw), &tools); err != nil {
		return []toolUseItem{}
	}
	out := make([]toolUseItem, 0, len(tools))
	for _, t := range tools {
		out = append(out, toolUseItem{Name: t.Name, Summary: t.InputSummary})
	}
	return out
}

type spawnRequest struct {
	Name       string `json:"name"`
	WorkingDir string `json:"working_dir"`
	ResumeID   string `json:"resume_id"`
	Rows       int    `json:"rows"`
	Cols       int    `json:"cols"`
}

type spawnResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	WorkingDir  string `json:"working_dir"`
	TmuxSession string `json:"tmux_session"`
	ResumeID    string `json:"resume_id,omitempty"`
}

// SpawnSession serves POST /api/sessions: creates a brand new multiplexer
// session, optionally resuming a prior transcript.
func (d *Deps) SpawnSession(w http.ResponseWriter, r *http.Request) {
	req := spawnRequest{Name: "Claude Session", WorkingDir: "~", Rows: 36, Cols: 120}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	wd := expandHome(req.WorkingDir)
	info, err := os.Stat(wd)
	if err != nil || !info.IsDir() {
		WriteError(w, http.StatusBadRequest, "Invalid directory: "+wd)
		return
	}

	id := uuid.NewString()[:8]
	if err := d.Terminal.Spawn(id, wd, req.ResumeID, req.Rows, req.Cols); err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to create tmux session")
		return
	}

	WriteJSON(w, http.StatusOK, spawnResponse{
		ID:          id,
		Name:        req.Name,
		WorkingDir:  wd,
		TmuxSession: "claude-remote-" + id,
		ResumeID:    req.ResumeID,
	})
}

// KillSession serves DELETE /api/sessions/{id}.
func (d *Deps) KillSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !d.Terminal.Exists(id) {
		WriteError(w, http.StatusNotFound, "Session not found")
		return
	}
	if err := d.Terminal.Kill(id); err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "terminated"})
}

type joinResponse struct {
	Action      string `json:"action"`
	TmuxSession string `json:"tmux_session"`
	TmuxID      string `json:"tmux_id"`
}

// JoinSession serves POST /api/sessions/{id}/join: attaches to an existing
// multiplexer session for this transcript if one exists, or spawns a new
// --resume session.
func (d *Deps) JoinSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if existing, ok := d.Terminal.FindByResume(sessionID); ok {
		WriteJSON(w, http.StatusOK, joinResponse{
			Action:      "attached",
			TmuxSession: existing,
			TmuxID:      strings.TrimPrefix(existing, "claude-remote-"),
		})
		return
	}

	wd, ok, err := d.Store.GetSessionWorkingDir(sessionID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok || wd == "" {
		wd = expandHome("~")
	}
	if info, err := os.Stat(wd); err != nil || !info.IsDir() {
		wd = expandHome("~")
	}

	id := uuid.NewString()[:8]
	if err := d.Terminal.Spawn(id, wd, sessionID, 36, 120); err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to create tmux session")
		return
	}

	WriteJSON(w, http.StatusOK, joinResponse{
		Action:      "created",
		TmuxSession: "claude-remote-" + id,
		TmuxID:      id,
	})
}

// InjectTerminal serves POST /api/terminal/{id}/inject.
func (d *Deps) InjectTerminal(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var body struct {
		Text string `json:"text"`
	}
	if r.Body == nil {
		WriteError(w, http.StatusBadRequest, "Missing 'text' field in body")
		return
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Text == "" {
		WriteError(w, http.StatusBadRequest, "Missing 'text' field in body")
		return
	}

	targetID := id
	if !d.Terminal.Exists(targetID) {
		found, ok := d.Terminal.FindByResume(id)
		if !ok {
			WriteError(w, http.StatusNotFound, "No tmux session found")
			return
		}
		targetID = strings.TrimPrefix(found, "claude-remote-")
	}

	if err := d.Terminal.Inject(targetID, body.Text); err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to inject text")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status":       "ok",
		"text":         strings.TrimRight(body.Text, "\n"),
		"tmux_session": "claude-remote-" + targetID,
	})
}

func toSessionListItem(sess indexstore.Session, isRunning, isInTmux bool) sessionListItem {
	return sessionListItem{
		SessionID:    sess.SessionID,
		Slug:         sess.Slug,
		Project:      sess.ProjectDir,
		WorkingDir:   sess.WorkingDir,
		Model:        sess.Model,
		GitBranch:    sess.GitBranch,
		FirstMessage: sess.FirstMessage,
		LastMessage:  sess.LastMessage,
		MessageCount: sess.MessageCount,
		UserMsgCount: sess.UserMsgCount,
		AsstMsgCount: sess.AsstMsgCount,
		TotalTokens:  totalTokens(sess),
		CostEstimate: transcript.EstimateCost(sess.TotalInputTokens, sess.TotalOutputTokens, sess.TotalCacheRead, sess.TotalCacheCreate, sess.Model),
		FileSizeMB:   round2(float64(sess.FileSizeBytes) / 1024 / 1024),
		IsRunning:    isRunning,
		IsInTmux:     isInTmux,
	}
}

// sessionBreakdown returns the files-touched histogram and per-tool usage
// counts for a session's detail view.
func (d *Deps) sessionBreakdown(sessionID string) ([]fileTouchedItem, map[string]int, error) {
	fileRows, err := d.Store.FileEventCounts(sessionID, 100)
	if err != nil {
		return nil, nil, err
	}
	files := make([]fileTouchedItem, 0, len(fileRows))
	for _, f := range fileRows {
		files = append(files, fileTouchedItem{Path: f.FilePath, EventType: f.EventType, Count: f.Count})
	}

	toolRows, err := d.Store.ToolUsageBySession(sessionID)
	if err != nil {
		return nil, nil, err
	}
	summary := make(map[string]int, len(toolRows))
	for _, t := range toolRows {
		summary[t.ToolName] = t.Count
	}

	return files, summary, nil
}

func queryInt(q map[string][]string, key string, def int) int {
	vals, ok := q[key]
	if !ok || len(vals) == 0 || vals[0] == "" {
		return def
	}
	n, err := strconv.Atoi(vals[0])
	if err != nil {
		return def
	}
	return n
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home := ""
		if u, err := user.Current(); err == nil {
			home = u.HomeDir
		} else if h, ok := os.LookupEnv("HOME"); ok {
			home = h
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
