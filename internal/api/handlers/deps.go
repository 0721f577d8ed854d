// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package handlers implements the HTTP/WebSocket/SSE surface described in
// the external interfaces section: dashboard, session listing and detail,
// search, analytics, reindexing, live event streams, and the terminal
// multiplexer control routes. Federation-aware variants live in
// internal/federation and call back into these through the same Deps.
package handlers

import (
	"time"

	"github.com/wingedpig/claude-remote/internal/config"
	"github.com/wingedpig/claude-remote/internal/events"
	"github.com/wingedpig/claude-remote/internal/indexer"
	"github.com/wingedpig/claude-remote/internal/indexstore"
	"github.com/wingedpig/claude-remote/internal/needsinput"
	"github.com/wingedpig/claude-remote/internal/procdetect"
	"github.com/wingedpig/claude-remote/internal/terminal"
)

// tmuxScanTimeout bounds the `tmux list-sessions` shell-out every handler
// that needs is_in_tmux performs; distinct from procdetect.Config's own
// subprocess timeout since this one gates a request path, not a background
// scan.
const tmuxScanTimeout = 5 * time.Second

// Deps is the set of collaborators every handler in this package needs.
// Constructed once in internal/app and threaded through the router.
type Deps struct {
	Store              *indexstore.Store
	Bus                *events.Bus
	Detector           *procdetect.Detector
	NeedsInputDetector *needsinput.Detector
	Terminal           *terminal.Manager
	Indexer            *indexer.Indexer
	Settings           config.Settings
	Hostname           string
	Version            string
}

// ActiveAndTmuxIDs returns the live-process session set and the
// currently-attached-tmux short-ID set, the two pieces every
// dashboard/session listing needs to compute is_running/is_in_tmux.
func (d *Deps) ActiveAndTmuxIDs() (map[string]bool, map[string]bool) {
	active := d.Detector.ActiveSessionIDs()
	tmux := procdetect.TmuxSessionIDs(tmuxScanTimeout)
	return active, tmux
}

func shortID(sessionID string) string {
	if len(sessionID) > 8 {
		return sessionID[:8]
	}
	return sessionID
}
