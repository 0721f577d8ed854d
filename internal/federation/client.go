// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package federation

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/url"
)

// fetchJSON GETs path+query from a peer's base URL and decodes the body
// into out. It never returns an error to the caller: an unreachable or
// non-200 peer is logged and treated as an absent row, per the
// aggregation contract (dropped, not failed).
func fetchJSON(ctx context.Context, client *http.Client, baseURL, path string, query url.Values, out interface{}) bool {
	full := baseURL + path
	if len(query) > 0 {
		full += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, full, nil)
	if err != nil {
		return false
	}

	resp, err := client.Do(req)
	if err != nil {
		log.Printf("federation: fetch %s: %v", full, err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("federation: fetch %s: status %d", full, resp.StatusCode)
		return false
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		log.Printf("federation: decode %s: %v", full, err)
		return false
	}
	return true
}
