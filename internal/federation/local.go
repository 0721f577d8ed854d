// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package federation

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
)

// callLocal invokes a local handler in-process via an httptest recorder
// and decodes its JSON body into out, so aggregation reuses the exact
// same query logic (status/project filters, pagination) the non-federated
// route uses rather than duplicating it against the store directly.
func callLocal(fn http.HandlerFunc, path string, query url.Values, out interface{}) error {
	u := path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req := httptest.NewRequest(http.MethodGet, u, nil)
	rec := httptest.NewRecorder()
	fn(rec, req)
	return json.Unmarshal(rec.Body.Bytes(), out)
}
