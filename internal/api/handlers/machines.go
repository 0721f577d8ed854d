// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import "net/http"

type machineStatus struct {
	Hostname       string `json:"hostname"`
	URL            string `json:"url"`
	Label          string `json:"label"`
	Status         string `json:"status"`
	ActiveSessions int    `json:"active_sessions"`
}

// LocalOnlyMachines serves GET /api/machines when no coordinator/peer
// roster is configured: a synthetic single-entry roster describing this
// machine, so a dashboard pointed at a standalone instance still renders
// a fleet view rather than a 404.
func (d *Deps) LocalOnlyMachines(w http.ResponseWriter, r *http.Request) {
	active, _ := d.ActiveAndTmuxIDs()
	WriteJSON(w, http.StatusOK, []machineStatus{{
		Hostname:       d.Hostname,
		URL:            "",
		Label:          d.Hostname,
		Status:         "online",
		ActiveSessions: len(active),
	}})
}
