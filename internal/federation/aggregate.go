// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package federation

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/wingedpig/claude-remote/internal/api/handlers"
	"github.com/wingedpig/claude-remote/internal/config"
)

type activeSessionWire struct {
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

type recentActivityWire struct {
	SessionID string `json:"session_id"`
	Slug      string `json:"slug"`
	Project   string `json:"project"`
	Type      string `json:"type"`
	ToolName  string `json:"tool_name"`
	Summary   string `json:"summary"`
	Timestamp string `json:"timestamp"`
	Hostname  string `json:"hostname,omitempty"`
}

type dashboardStatsWire struct {
	TodaySessions     int     `json:"today_sessions"`
	TodayTokens       int64   `json:"today_tokens"`
	TodayCostEstimate float64 `json:"today_cost_estimate"`
	WeekSessions      int     `json:"week_sessions"`
	WeekTokens        int64   `json:"week_tokens"`
	WeekCostEstimate  float64 `json:"week_cost_estimate"`
	TotalSessions     int     `json:"total_sessions"`
	CacheHitRate      float64 `json:"cache_hit_rate"`
}

type dashboardWire struct {
	ActiveSessions []activeSessionWire   `json:"active_sessions"`
	RecentActivity []recentActivityWire  `json:"recent_activity"`
	Stats          dashboardStatsWire    `json:"stats"`
}

// MultiDashboard serves GET /api/multi/dashboard: the local dashboard plus
// every peer's, stats summed, recent activity re-sorted and capped at 20.
func (h *Handler) MultiDashboard(w http.ResponseWriter, r *http.Request) {
	if !h.coordinating() {
		h.Deps.Dashboard(w, r)
		return
	}

	var merged dashboardWire
	if err := callLocal(h.Deps.Dashboard, "/api/dashboard", nil, &merged); err != nil {
		handlers.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	type peerResult struct {
		data dashboardWire
		ok   bool
	}
	results := make([]peerResult, len(h.Peers))

	ctx, cancel := context.WithTimeout(r.Context(), dataTimeout)
	defer cancel()

	var g errgroup.Group
	for i, peer := range h.Peers {
		i, baseURL := i, peer.URL
		g.Go(func() error {
			var d dashboardWire
			if fetchJSON(ctx, h.HTTP, baseURL, "/api/dashboard", nil, &d) {
				results[i] = peerResult{data: d, ok: true}
			}
			return nil
		})
	}
	_ = g.Wait()

	for i, peer := range h.Peers {
		if !results[i].ok {
			continue
		}
		d := results[i].data
		for _, s := range d.ActiveSessions {
			if s.Hostname == "" {
				s.Hostname = peer.Hostname
			}
			merged.ActiveSessions = append(merged.ActiveSessions, s)
		}
		for _, a := range d.RecentActivity {
			if a.Hostname == "" {
				a.Hostname = peer.Hostname
			}
			merged.RecentActivity = append(merged.RecentActivity, a)
		}
		merged.Stats.TodaySessions += d.Stats.TodaySessions
		merged.Stats.TodayTokens += d.Stats.TodayTokens
		merged.Stats.TodayCostEstimate = round2(merged.Stats.TodayCostEstimate + d.Stats.TodayCostEstimate)
		merged.Stats.WeekSessions += d.Stats.WeekSessions
		merged.Stats.WeekTokens += d.Stats.WeekTokens
		merged.Stats.WeekCostEstimate = round2(merged.Stats.WeekCostEstimate + d.Stats.WeekCostEstimate)
		merged.Stats.TotalSessions += d.Stats.TotalSessions
	}

	sort.SliceStable(merged.RecentActivity, func(i, j int) bool {
		return merged.RecentActivity[i].Timestamp > merged.RecentActivity[j].Timestamp
	})
	if len(merged.RecentActivity) > 20 {
		merged.RecentActivity = merged.RecentActivity[:20]
	}

	handlers.WriteJSON(w, http.StatusOK, merged)
}

func round2(f float64) float64 {
	scaled := f*100 + 0.5
	return float64(int64(scaled)) / 100
}

type sessionItemWire struct {
	SessionID    string  `json:"session_id"`
	Slug         string  `json:"slug"`
	Project      string  `json:"project"`
	WorkingDir   string  `json:"working_dir"`
	Model        string  `json:"model"`
	GitBranch    string  `json:"git_branch"`
	FirstMessage string  `json:"first_message"`
	LastMessage  string  `json:"last_message"`
	MessageCount int     `json:"message_count"`
	UserMsgCount int     `json:"user_msg_count"`
	AsstMsgCount int     `json:"asst_msg_count"`
	TotalTokens  int64   `json:"total_tokens"`
	CostEstimate float64 `json:"cost_estimate"`
	FileSizeMB   float64 `json:"file_size_mb"`
	IsRunning    bool    `json:"is_running"`
	IsInTmux     bool    `json:"is_in_tmux"`
	Hostname     string  `json:"hostname,omitempty"`
}

type sessionListWire struct {
	Sessions []sessionItemWire `json:"sessions"`
	Total    int               `json:"total"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

// MultiSessions serves GET /api/multi/sessions?status&project&hostname&limit&offset.
func (h *Handler) MultiSessions(w http.ResponseWriter, r *http.Request) {
	if !h.coordinating() {
		h.Deps.ListSessions(w, r)
		return
	}

	q := r.URL.Query()
	hostnameFilter := q.Get("hostname")
	limit := queryIntDefault(q, "limit", 30)
	offset := queryIntDefault(q, "offset", 0)

	if hostnameFilter != "" && hostnameFilter == h.Deps.Hostname {
		h.Deps.ListSessions(w, r)
		return
	}

	var all []sessionItemWire

	if hostnameFilter == "" || hostnameFilter == h.Deps.Hostname {
		localQuery := url.Values{}
		localQuery.Set("status", q.Get("status"))
		localQuery.Set("project", q.Get("project"))
		localQuery.Set("limit", strconv.Itoa(limit))
		var local sessionListWire
		if err := callLocal(h.Deps.ListSessions, "/api/sessions", localQuery, &local); err == nil {
			for _, s := range local.Sessions {
				if s.Hostname == "" {
					s.Hostname = h.Deps.Hostname
				}
				all = append(all, s)
			}
		}
	}

	peers := h.Peers
	if hostnameFilter != "" {
		peers = nil
		if peer, ok := h.findPeer(hostnameFilter); ok {
			peers = []config.Machine{peer}
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), dataTimeout)
	defer cancel()

	peerQuery := url.Values{}
	peerQuery.Set("status", q.Get("status"))
	peerQuery.Set("limit", strconv.Itoa(limit))
	if q.Get("project") != "" {
		peerQuery.Set("project", q.Get("project"))
	}

	type peerResult struct {
		data sessionListWire
		ok   bool
	}
	results := make([]peerResult, len(peers))
	var g errgroup.Group
	for i, peer := range peers {
		i, baseURL := i, peer.URL
		g.Go(func() error {
			var d sessionListWire
			if fetchJSON(ctx, h.HTTP, baseURL, "/api/sessions", peerQuery, &d) {
				results[i] = peerResult{data: d, ok: true}
			}
			return nil
		})
	}
	_ = g.Wait()

	for i, peer := range peers {
		if !results[i].ok {
			continue
		}
		for _, s := range results[i].data.Sessions {
			if s.Hostname == "" {
				s.Hostname = peer.Hostname
			}
			all = append(all, s)
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].LastMessage > all[j].LastMessage
	})

	total := len(all)
	end := offset + limit
	if end > total {
		end = total
	}
	var paged []sessionItemWire
	if offset < total {
		paged = all[offset:end]
	}

	handlers.WriteJSON(w, http.StatusOK, sessionListWire{
		Sessions: paged,
		Total:    total,
		Limit:    limit,
		Offset:   offset,
	})
}

type searchResultWire struct {
	SessionID   string `json:"session_id"`
	Slug        string `json:"slug"`
	Project     string `json:"project"`
	MessageUUID string `json:"message_uuid"`
	Role        string `json:"role"`
	Snippet     string `json:"snippet"`
	Timestamp   string `json:"timestamp"`
	Hostname    string `json:"hostname,omitempty"`
}

type searchWire struct {
	Query   string             `json:"query"`
	Results []searchResultWire `json:"results"`
	Total   int                `json:"total"`
}

// MultiSearch serves GET /api/multi/search?q&project&after&before&limit.
func (h *Handler) MultiSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("q") == "" {
		handlers.WriteJSON(w, http.StatusOK, searchWire{Query: q.Get("q"), Results: []searchResultWire{}})
		return
	}
	if !h.coordinating() {
		h.Deps.Search(w, r)
		return
	}

	limit := queryIntDefault(q, "limit", 20)

	var local searchWire
	_ = callLocal(h.Deps.Search, "/api/search", q, &local)
	all := make([]searchResultWire, 0, len(local.Results))
	for _, res := range local.Results {
		if res.Hostname == "" {
			res.Hostname = h.Deps.Hostname
		}
		all = append(all, res)
	}

	ctx, cancel := context.WithTimeout(r.Context(), dataTimeout)
	defer cancel()

	type peerResult struct {
		data searchWire
		ok   bool
	}
	results := make([]peerResult, len(h.Peers))
	var g errgroup.Group
	for i, peer := range h.Peers {
		i, baseURL := i, peer.URL
		g.Go(func() error {
			var d searchWire
			if fetchJSON(ctx, h.HTTP, baseURL, "/api/search", q, &d) {
				results[i] = peerResult{data: d, ok: true}
			}
			return nil
		})
	}
	_ = g.Wait()

	for i, peer := range h.Peers {
		if !results[i].ok {
			continue
		}
		for _, res := range results[i].data.Results {
			if res.Hostname == "" {
				res.Hostname = peer.Hostname
			}
			all = append(all, res)
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Timestamp > all[j].Timestamp
	})
	if len(all) > limit {
		all = all[:limit]
	}

	handlers.WriteJSON(w, http.StatusOK, searchWire{Query: q.Get("q"), Results: all, Total: len(all)})
}

func queryIntDefault(q url.Values, key string, def int) int {
	v := q.Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
