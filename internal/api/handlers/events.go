// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"

	"github.com/wingedpig/claude-remote/internal/events"
)

// maxSSEConnections caps the number of concurrent SSE streams across the
// whole process (dashboard + per-session combined).
const maxSSEConnections = 5

// keepaliveInterval is how often an idle SSE stream gets a comment line, so
// intermediate proxies and browsers don't time out the connection.
const keepaliveInterval = 30 * time.Second

var sseConnectionCount int64

// DashboardStream serves GET /api/dashboard/stream: an SSE feed of every
// event published fleet-wide.
func (d *Deps) DashboardStream(w http.ResponseWriter, r *http.Request) {
	d.streamTopic(w, r, events.GlobalTopic)
}

// SessionStream serves GET /api/sessions/{id}/stream: an SSE feed scoped
// to one session's events.
func (d *Deps) SessionStream(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	d.streamTopic(w, r, sessionID)
}

func (d *Deps) streamTopic(w http.ResponseWriter, r *http.Request, topic string) {
	if atomic.LoadInt64(&sseConnectionCount) >= maxSSEConnections {
		WriteError(w, http.StatusTooManyRequests, "Too many SSE connections")
		return
	}
	atomic.AddInt64(&sseConnectionCount, 1)
	defer atomic.AddInt64(&sseConnectionCount, -1)

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ch, unsubscribe := d.Bus.Subscribe(topic)
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload)
			flusher.Flush()
		case <-ticker.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}
