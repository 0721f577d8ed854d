// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"net/http"

	"github.com/wingedpig/claude-remote/internal/transcript"
)

type tokenAnalyticsItem struct {
	Label        string  `json:"label"`
	Input        int64   `json:"input"`
	Output       int64   `json:"output"`
	CacheRead    int64   `json:"cache_read"`
	CacheCreate  int64   `json:"cache_create"`
	CostEstimate float64 `json:"cost_estimate"`
}

type tokenAnalyticsTotals struct {
	Input        int64   `json:"input"`
	Output       int64   `json:"output"`
	CacheRead    int64   `json:"cache_read"`
	CacheCreate  int64   `json:"cache_create"`
	CostEstimate float64 `json:"cost_estimate"`
}

type tokenAnalyticsResponse struct {
	Period  string               `json:"period"`
	GroupBy string               `json:"group_by"`
	Data    []tokenAnalyticsItem `json:"data"`
	Totals  tokenAnalyticsTotals `json:"totals"`
}

// TokenAnalytics serves GET /api/analytics/tokens?period&group_by. It
// always groups by model and totals every indexed session: group_by and
// period (defaults "day" and "7d") are echoed back in the response but
// neither changes the grouping or the time range.
func (d *Deps) TokenAnalytics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	period := q.Get("period")
	if period == "" {
		period = "7d"
	}
	groupBy := q.Get("group_by")
	if groupBy == "" {
		groupBy = "day"
	}

	rows, err := d.Store.TokenUsageByModel()
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	data := make([]tokenAnalyticsItem, 0, len(rows))
	var totals tokenAnalyticsTotals
	for _, row := range rows {
		cost := transcript.EstimateCost(row.TotalInputTokens, row.TotalOutputTokens, row.TotalCacheRead, row.TotalCacheCreate, row.Model)
		data = append(data, tokenAnalyticsItem{
			Label:        row.Model,
			Input:        row.TotalInputTokens,
			Output:       row.TotalOutputTokens,
			CacheRead:    row.TotalCacheRead,
			CacheCreate:  row.TotalCacheCreate,
			CostEstimate: cost,
		})
		totals.Input += row.TotalInputTokens
		totals.Output += row.TotalOutputTokens
		totals.CacheRead += row.TotalCacheRead
		totals.CacheCreate += row.TotalCacheCreate
		totals.CostEstimate += cost
	}
	totals.CostEstimate = round2(totals.CostEstimate)

	WriteJSON(w, http.StatusOK, tokenAnalyticsResponse{
		Period:  period,
		GroupBy: groupBy,
		Data:    data,
		Totals:  totals,
	})
}

type toolAnalyticsItem struct {
	Name       string  `json:"name"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type toolAnalyticsResponse struct {
	Period string              `json:"period"`
	Tools  []toolAnalyticsItem `json:"tools"`
}

// ToolAnalytics serves GET /api/analytics/tools?period. Counts cover every
// indexed session; period (default "7d") is echoed back in the response
// but does not limit the time range.
func (d *Deps) ToolAnalytics(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "7d"
	}

	rows, err := d.Store.ToolUsage()
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	total := 0
	for _, row := range rows {
		total += row.Count
	}
	if total == 0 {
		total = 1
	}

	tools := make([]toolAnalyticsItem, 0, len(rows))
	for _, row := range rows {
		tools = append(tools, toolAnalyticsItem{
			Name:       row.ToolName,
			Count:      row.Count,
			Percentage: round1(float64(row.Count) / float64(total) * 100),
		})
	}

	WriteJSON(w, http.StatusOK, toolAnalyticsResponse{Period: period, Tools: tools})
}

func round1(f float64) float64 {
	scaled := f*10 + 0.5
	return float64(int64(scaled)) / 10
}
