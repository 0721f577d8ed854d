// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import "net/http"

type healthResponse struct {
	Hostname       string `json:"hostname"`
	Version        string `json:"version"`
	ActiveSessions int    `json:"active_sessions"`
	Status         string `json:"status"`
}

// Health reports liveness plus a cheap activity count, used by both the
// operator and the federation health check.
func (d *Deps) Health(w http.ResponseWriter, r *http.Request) {
	active := d.Detector.ActiveSessionIDs()
	WriteJSON(w, http.StatusOK, healthResponse{
		Hostname:       d.Hostname,
		Version:        d.Version,
		ActiveSessions: len(active),
		Status:         "ok",
	})
}
