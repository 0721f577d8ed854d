// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package federation

import (
	"context"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/wingedpig/claude-remote/internal/api/handlers"
	"github.com/wingedpig/claude-remote/internal/config"
)

type healthWire struct {
	Hostname       string `json:"hostname"`
	Version        string `json:"version"`
	ActiveSessions int    `json:"active_sessions"`
	Status         string `json:"status"`
}

type machineEntry struct {
	Hostname       string `json:"hostname"`
	URL            string `json:"url"`
	Label          string `json:"label"`
	Status         string `json:"status"`
	ActiveSessions int    `json:"active_sessions"`
	Version        string `json:"version"`
}

type machinesResponse struct {
	Coordinator bool           `json:"coordinator"`
	Machines    []machineEntry `json:"machines"`
}

// Machines serves GET /api/machines: the fleet roster with live health
// status, including a synthetic local entry.
func (h *Handler) Machines(w http.ResponseWriter, r *http.Request) {
	active, tmux := h.Deps.ActiveAndTmuxIDs()

	local := machineEntry{
		Hostname:       h.Deps.Hostname,
		URL:            "",
		Label:          h.Deps.Hostname + " (local)",
		Status:         "ok",
		ActiveSessions: len(active) + len(tmux),
		Version:        h.Deps.Version,
	}

	if !h.coordinating() {
		handlers.WriteJSON(w, http.StatusOK, machinesResponse{Coordinator: false, Machines: []machineEntry{local}})
		return
	}

	entries := make([]machineEntry, 1+len(h.Peers))
	entries[0] = local

	var g errgroup.Group
	for i, peer := range h.Peers {
		i, peer := i, peer
		g.Go(func() error {
			entries[i+1] = h.checkPeerHealth(r.Context(), peer)
			return nil
		})
	}
	_ = g.Wait()

	handlers.WriteJSON(w, http.StatusOK, machinesResponse{Coordinator: true, Machines: entries})
}

func (h *Handler) checkPeerHealth(ctx context.Context, peer config.Machine) machineEntry {
	entry := machineEntry{
		Hostname: peer.Hostname,
		URL:      peer.URL,
		Label:    peer.Label,
		Status:   "offline",
	}

	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	var health healthWire
	if fetchJSON(ctx, h.HTTP, peer.URL, "/api/health", nil, &health) {
		entry.Status = health.Status
		entry.ActiveSessions = health.ActiveSessions
		entry.Version = health.Version
		if health.Hostname != "" {
			entry.Hostname = health.Hostname
		}
	}
	return entry
}
