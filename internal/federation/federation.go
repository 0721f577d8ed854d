// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package federation implements coordinator-mode fan-out: health-checking
// and aggregating a configured roster of peer claude-remote instances, and
// proxying join/inject/terminal control actions to whichever peer owns a
// session. A Handler with an empty peer roster degrades every aggregate
// route to a pure passthrough of the local result, so the same binary
// serves both standalone and coordinator deployments.
package federation

import (
	"net/http"
	"time"

	"github.com/wingedpig/claude-remote/internal/api/handlers"
	"github.com/wingedpig/claude-remote/internal/config"
	"github.com/wingedpig/claude-remote/internal/events"
)

// healthTimeout and dataTimeout bound the two classes of peer HTTP call:
// the /api/machines roster health-check, and every aggregate data fetch.
const (
	healthTimeout = 5 * time.Second
	dataTimeout   = 10 * time.Second
)

// Handler serves the federation-aware routes mounted alongside the local
// API router. Deps gives it the same collaborators the local handlers use
// so local aggregation legs never leave the process.
type Handler struct {
	Deps  *handlers.Deps
	Peers []config.Machine
	HTTP  *http.Client
	Bus   *events.Bus
}

// NewHandler builds a Handler. An empty or nil peers slice is valid: every
// method then behaves as a single-machine passthrough.
func NewHandler(deps *handlers.Deps, peers []config.Machine) *Handler {
	return &Handler{
		Deps:  deps,
		Peers: peers,
		HTTP:  &http.Client{},
		Bus:   deps.Bus,
	}
}

// coordinating reports whether any peers are configured.
func (h *Handler) coordinating() bool {
	return len(h.Peers) > 0
}

func (h *Handler) findPeer(hostname string) (config.Machine, bool) {
	for _, m := range h.Peers {
		if m.Hostname == hostname {
			return m, true
		}
	}
	return config.Machine{}, false
}
