// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/claude-remote/internal/indexstore"
)

func openTestStore(t *testing.T) *indexstore.Store {
	t.Helper()
	store, err := indexstore.Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPushRegisterDevice_DefaultsPlatformToIOS(t *testing.T) {
	d := &Deps{Store: openTestStore(t)}

	body, _ := json.Marshal(map[string]string{"device_token": "tok-1"})
	req := httptest.NewRequest(http.MethodPost, "/api/push/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	d.PushRegisterDevice(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	devices, err := d.Store.ListPushDevices()
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "tok-1", devices[0].DeviceToken)
	assert.Equal(t, "ios", devices[0].Platform)
}

func TestPushRegisterDevice_MissingTokenIsBadRequest(t *testing.T) {
	d := &Deps{Store: openTestStore(t)}

	req := httptest.NewRequest(http.MethodPost, "/api/push/register", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	d.PushRegisterDevice(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPushUnregisterDevice_RemovesToken(t *testing.T) {
	d := &Deps{Store: openTestStore(t)}
	require.NoError(t, d.Store.RegisterPushDevice("tok-1", "android"))

	body, _ := json.Marshal(map[string]string{"device_token": "tok-1"})
	req := httptest.NewRequest(http.MethodDelete, "/api/push/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	d.PushUnregisterDevice(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	devices, err := d.Store.ListPushDevices()
	require.NoError(t, err)
	assert.Empty(t, devices)
}
