// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"net/http"
	"time"

	"github.com/wingedpig/claude-remote/internal/indexstore"
	"github.com/wingedpig/claude-remote/internal/transcript"
)

// activeSessionSummary is one row of the dashboard's active-sessions list.
type activeSessionSummary struct {
	SessionID          string `json:"session_id"`
	Slug               string `json:"slug"`
	Project            string `json:"project"`
	WorkingDir         string `json:"working_dir"`
	Model              string `json:"model"`
	GitBranch          string `json:"git_branch"`
	IsRunning          bool   `json:"is_running"`
	IsInTmux           bool   `json:"is_in_tmux"`
	LastMessage        string `json:"last_message"`
	LastMessagePreview string `json:"last_message_preview"`
	MessageCount       int    `json:"message_count"`
	TotalTokens        int64  `json:"total_tokens"`
	DurationMinutes    int    `json:"duration_minutes"`
	Hostname           string `json:"hostname,omitempty"`
}

type recentActivityItem struct {
	SessionID string `json:"session_id"`
	Slug      string `json:"slug"`
	Project   string `json:"project"`
	Type      string `json:"type"`
	ToolName  string `json:"tool_name"`
	Summary   string `json:"summary"`
	Timestamp string `json:"timestamp"`
	Hostname  string `json:"hostname,omitempty"`
}

type dashboardStats struct {
	TodaySessions     int     `json:"today_sessions"`
	TodayTokens       int64   `json:"today_tokens"`
	TodayCostEstimate float64 `json:"today_cost_estimate"`
	WeekSessions      int     `json:"week_sessions"`
	WeekTokens        int64   `json:"week_tokens"`
	WeekCostEstimate  float64 `json:"week_cost_estimate"`
	TotalSessions     int     `json:"total_sessions"`
	CacheHitRate      float64 `json:"cache_hit_rate"`
}

type dashboardResponse struct {
	ActiveSessions []activeSessionSummary `json:"active_sessions"`
	RecentActivity []recentActivityItem   `json:"recent_activity"`
	Stats          dashboardStats         `json:"stats"`
}

// Dashboard assembles the single-page operator view: sessions with a live
// process or an attached multiplexer, the 20 most recent tool invocations
// fleet-wide, and today/week/total rollup stats.
func (d *Deps) Dashboard(w http.ResponseWriter, r *http.Request) {
	active, tmux := d.ActiveAndTmuxIDs()

	sessions, _, err := d.Store.ListSessions("", 0, 50)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	activeSessions := make([]activeSessionSummary, 0, len(sessions))
	for _, sess := range sessions {
		isRunning := active[sess.SessionID]
		isInTmux := tmux[shortID(sess.SessionID)]
		if !isRunning && !isInTmux {
			continue
		}

		preview := ""
		if last, ok, _ := d.Store.LastMessage(sess.SessionID); ok && last.Role == "assistant" {
			preview = truncate(last.ContentText, 120)
		}

		activeSessions = append(activeSessions, activeSessionSummary{
			SessionID:          sess.SessionID,
			Slug:               sess.Slug,
			Project:            sess.ProjectDir,
			WorkingDir:         sess.WorkingDir,
			Model:              sess.Model,
			GitBranch:          sess.GitBranch,
			IsRunning:          isRunning,
			IsInTmux:           isInTmux,
			LastMessage:        sess.LastMessage,
			LastMessagePreview: preview,
			MessageCount:       sess.MessageCount,
			TotalTokens:        totalTokens(sess),
			DurationMinutes:    durationMinutes(sess.FirstMessage, sess.LastMessage),
			Hostname:           d.Hostname,
		})
	}

	toolRows, err := d.Store.RecentToolActivity(20)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	recentActivity := make([]recentActivityItem, 0, len(toolRows))
	for _, row := range toolRows {
		recentActivity = append(recentActivity, recentActivityItem{
			SessionID: row.SessionID,
			Slug:      row.Slug,
			Project:   row.ProjectDir,
			Type:      "tool_use",
			ToolName:  row.ToolName,
			Summary:   row.InputSummary,
			Timestamp: row.Timestamp,
			Hostname:  d.Hostname,
		})
	}

	now := time.Now().UTC()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Format(time.RFC3339)
	weekStart := now.Add(-7 * 24 * time.Hour).Format(time.RFC3339)

	todayRange, err := d.Store.StatsSince(todayStart)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	weekRange, err := d.Store.StatsSince(weekStart)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	totalRange, err := d.Store.StatsSince("")
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	stats := dashboardStats{
		TodaySessions:     todayRange.SessionCount,
		TodayTokens:       todayRange.InputTokens + todayRange.OutputTokens + todayRange.CacheRead + todayRange.CacheCreate,
		TodayCostEstimate: transcript.EstimateCost(todayRange.InputTokens, todayRange.OutputTokens, todayRange.CacheRead, todayRange.CacheCreate, ""),
		WeekSessions:      weekRange.SessionCount,
		WeekTokens:        weekRange.InputTokens + weekRange.OutputTokens + weekRange.CacheRead + weekRange.CacheCreate,
		WeekCostEstimate:  transcript.EstimateCost(weekRange.InputTokens, weekRange.OutputTokens, weekRange.CacheRead, weekRange.CacheCreate, ""),
		TotalSessions:     totalRange.SessionCount,
		CacheHitRate:      cacheHitRate(totalRange),
	}

	WriteJSON(w, http.StatusOK, dashboardResponse{
		ActiveSessions: activeSessions,
		RecentActivity: recentActivity,
		Stats:          stats,
	})
}

func totalTokens(sess indexstore.Session) int64 {
	return sess.TotalInputTokens + sess.TotalOutputTokens + sess.TotalCacheRead + sess.TotalCacheCreate
}

func cacheHitRate(r indexstore.RangeStats) float64 {
	denom := r.CacheRead + r.CacheCreate + r.InputTokens
	if denom == 0 {
		return 0
	}
	return round2(float64(r.CacheRead) / float64(denom))
}

func durationMinutes(firstISO, lastISO string) int {
	first, err1 := time.Parse(time.RFC3339, firstISO)
	last, err2 := time.Parse(time.RFC3339, lastISO)
	if err1 != nil || err2 != nil {
		return 0
	}
	return int(last.Sub(first).Minutes())
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func round2(f float64) float64 {
	scaled := f*100 + 0.5
	return float64(int64(scaled)) / 100
}
