// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package federation

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/wingedpig/claude-remote/internal/api/handlers"
)

// MultiJoin serves POST /api/multi/sessions/{host}/{id}/join: dispatches
// locally or HTTP-forwards to the owning peer.
func (h *Handler) MultiJoin(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	host, id := vars["host"], vars["id"]

	if host == h.Deps.Hostname {
		r = mux.SetURLVars(r, map[string]string{"id": id})
		h.Deps.JoinSession(w, r)
		return
	}

	peer, ok := h.findPeer(host)
	if !ok {
		handlers.WriteError(w, http.StatusNotFound, "Machine '"+host+"' not found")
		return
	}
	h.forwardPost(w, r, peer.URL, "/api/sessions/"+id+"/join")
}

// MultiInject serves POST /api/multi/terminal/{host}/{id}/inject.
func (h *Handler) MultiInject(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	host, id := vars["host"], vars["id"]

	if host == h.Deps.Hostname {
		r = mux.SetURLVars(r, map[string]string{"id": id})
		h.Deps.InjectTerminal(w, r)
		return
	}

	peer, ok := h.findPeer(host)
	if !ok {
		handlers.WriteError(w, http.StatusNotFound, "Machine '"+host+"' not found")
		return
	}
	h.forwardPost(w, r, peer.URL, "/api/terminal/"+id+"/inject")
}

// forwardPost replays the inbound request body to a peer's path and
// mirrors its status and body back, mapping any transport failure to 502.
func (h *Handler) forwardPost(w http.ResponseWriter, r *http.Request, baseURL, path string) {
	var body []byte
	if r.Body != nil {
		body, _ = io.ReadAll(r.Body)
	}

	ctx, cancel := context.WithTimeout(r.Context(), dataTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+path, bytes.NewReader(body))
	if err != nil {
		handlers.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.HTTP.Do(req)
	if err != nil {
		handlers.WriteError(w, http.StatusBadGateway, "Remote machine error: "+err.Error())
		return
	}
	defer resp.Body.Close()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

var terminalUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// MultiTerminal serves WS /api/multi/terminal/{host}/{id}: dispatches
// locally, or dials the peer's terminal WebSocket and forwards frames in
// both directions until either side closes.
func (h *Handler) MultiTerminal(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	host, id := vars["host"], vars["id"]

	if host == h.Deps.Hostname {
		r = mux.SetURLVars(r, map[string]string{"id": id})
		h.Deps.TerminalWebSocket(w, r)
		return
	}

	peer, ok := h.findPeer(host)
	if !ok {
		conn, err := terminalUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		closeMsg := websocket.FormatCloseMessage(4004, "Machine '"+host+"' not found")
		_ = conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(time.Second))
		_ = conn.Close()
		return
	}

	mode := r.URL.Query().Get("mode")
	remoteURL := strings.Replace(peer.URL, "https://", "wss://", 1)
	remoteURL = strings.Replace(remoteURL, "http://", "ws://", 1)
	remoteURL += "/api/terminal/" + id + "?mode=" + mode

	peerConn, _, err := websocket.DefaultDialer.Dial(remoteURL, nil)
	if err != nil {
		conn, uerr := terminalUpgrader.Upgrade(w, r, nil)
		if uerr != nil {
			return
		}
		closeMsg := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "Remote machine unreachable")
		_ = conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(time.Second))
		_ = conn.Close()
		return
	}
	defer peerConn.Close()

	clientConn, err := terminalUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer clientConn.Close()

	relayTerminal(r.Context(), clientConn, peerConn)
}

// relayTerminal bidirectionally forwards WebSocket frames between a
// client and a peer connection until either side errs or ctx is
// cancelled; the first direction to finish tears down the other.
func relayTerminal(ctx context.Context, client, peer *websocket.Conn) {
	done := make(chan struct{}, 2)

	go func() {
		defer func() { done <- struct{}{} }()
		for {
			mt, data, err := client.ReadMessage()
			if err != nil {
				return
			}
			if err := peer.WriteMessage(mt, data); err != nil {
				return
			}
		}
	}()

	go func() {
		defer func() { done <- struct{}{} }()
		for {
			mt, data, err := peer.ReadMessage()
			if err != nil {
				return
			}
			if err := client.WriteMessage(mt, data); err != nil {
				return
			}
		}
	}()

	select {
	case <-ctx.Done():
	case <-done:
	}
}
