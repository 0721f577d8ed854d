// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import "net/http"

// NeedsInput serves GET /api/needs-input: the set of session IDs currently
// believed to be waiting on a reply.
func (d *Deps) NeedsInput(w http.ResponseWriter, r *http.Request) {
	ids := d.NeedsInputDetector.Waiting()
	if ids == nil {
		ids = []string{}
	}
	WriteJSON(w, http.StatusOK, map[string][]string{"session_ids": ids})
}
