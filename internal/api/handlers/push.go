// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/wingedpig/claude-remote/internal/indexstore"
)

type pushSubscribeRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
	UserAgent string `json:"user_agent"`
}

// PushSubscribe serves POST /api/push/subscribe: registers (or replaces) a
// Web Push subscription by endpoint.
func (d *Deps) PushSubscribe(w http.ResponseWriter, r *http.Request) {
	var req pushSubscribeRequest
	if r.Body == nil {
		WriteError(w, http.StatusBadRequest, "Missing subscription body")
		return
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Endpoint == "" {
		WriteError(w, http.StatusBadRequest, "Missing subscription body")
		return
	}

	if err := d.Store.SavePushSubscription(indexstore.PushSubscription{
		Endpoint:  req.Endpoint,
		P256dhKey: req.Keys.P256dh,
		AuthKey:   req.Keys.Auth,
		UserAgent: req.UserAgent,
	}); err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "subscribed"})
}

type pushUnsubscribeRequest struct {
	Endpoint string `json:"endpoint"`
}

// PushUnsubscribe serves POST /api/push/unsubscribe.
func (d *Deps) PushUnsubscribe(w http.ResponseWriter, r *http.Request) {
	var req pushUnsubscribeRequest
	if r.Body == nil {
		WriteError(w, http.StatusBadRequest, "Missing endpoint")
		return
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Endpoint == "" {
		WriteError(w, http.StatusBadRequest, "Missing endpoint")
		return
	}

	if err := d.Store.DeletePushSubscription(req.Endpoint); err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "unsubscribed"})
}

// PushSubscriptions serves GET /api/push/subscriptions: lists registered
// endpoints, keys included, for operator visibility. The route applies no
// authentication of its own.
func (d *Deps) PushSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := d.Store.ListPushSubscriptions()
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, subs)
}

type pushRegisterDeviceRequest struct {
	DeviceToken string `json:"device_token"`
	Platform    string `json:"platform"`
}

// PushRegisterDevice serves POST /api/push/register: upserts a native
// (APNs) device token, defaulting platform to "ios" when omitted.
func (d *Deps) PushRegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req pushRegisterDeviceRequest
	if r.Body == nil {
		WriteError(w, http.StatusBadRequest, "Missing device_token")
		return
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DeviceToken == "" {
		WriteError(w, http.StatusBadRequest, "Missing device_token")
		return
	}
	if req.Platform == "" {
		req.Platform = "ios"
	}

	if err := d.Store.RegisterPushDevice(req.DeviceToken, req.Platform); err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "registered"})
}

type pushUnregisterDeviceRequest struct {
	DeviceToken string `json:"device_token"`
}

// PushUnregisterDevice serves DELETE /api/push/register.
func (d *Deps) PushUnregisterDevice(w http.ResponseWriter, r *http.Request) {
	var req pushUnregisterDeviceRequest
	if r.Body == nil {
		WriteError(w, http.StatusBadRequest, "Missing device_token")
		return
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DeviceToken == "" {
		WriteError(w, http.StatusBadRequest, "Missing device_token")
		return
	}

	if err := d.Store.UnregisterPushDevice(req.DeviceToken); err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "unregistered"})
}
