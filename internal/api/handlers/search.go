// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"net/http"
	"strings"

	"github.com/wingedpig/claude-remote/internal/indexstore"
)

type searchResultItem struct {
	SessionID   string `json:"session_id"`
	Slug        string `json:"slug"`
	Project     string `json:"project"`
	MessageUUID string `json:"message_uuid"`
	Role        string `json:"role"`
	Snippet     string `json:"snippet"`
	Timestamp   string `json:"timestamp"`
	Hostname    string `json:"hostname,omitempty"`
}

type searchResponse struct {
	Query   string             `json:"query"`
	Results []searchResultItem `json:"results"`
	Total   int                `json:"total"`
}

// Search serves GET /api/search?q&project&after&before&limit.
func (d *Deps) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("q"))
	if query == "" {
		WriteJSON(w, http.StatusOK, searchResponse{Query: q.Get("q"), Results: []searchResultItem{}, Total: 0})
		return
	}

	limit := queryInt(q, "limit", 20)
	filter := indexstore.SearchFilter{
		Project: q.Get("project"),
		After:   q.Get("after"),
		Before:  q.Get("before"),
	}

	results, err := d.Store.SearchFiltered(query, filter, limit)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]searchResultItem, 0, len(results))
	for _, res := range results {
		out = append(out, searchResultItem{
			SessionID:   res.SessionID,
			Slug:        res.Slug,
			Project:     res.ProjectDir,
			MessageUUID: res.MessageUUID,
			Role:        res.Role,
			Snippet:     res.Snippet,
			Timestamp:   res.Timestamp,
			Hostname:    d.Hostname,
		})
	}

	WriteJSON(w, http.StatusOK, searchResponse{Query: query, Results: out, Total: len(out)})
}
