// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import "net/http"

// Reindex serves POST /api/reindex: forces a full pass over every
// transcript file, ignoring the incremental (mtime, size) skip check.
func (d *Deps) Reindex(w http.ResponseWriter, r *http.Request) {
	result, err := d.Indexer.Run(true)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, result)
}
