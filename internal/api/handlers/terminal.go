// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/wingedpig/claude-remote/internal/terminal"
)

// sessionNotFoundCloseCode is the WebSocket close code sent when the named
// multiplexer session does not exist, matching the wire protocol's
// documented 4004 status.
const sessionNotFoundCloseCode = 4004

var terminalUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// TerminalWebSocket serves WS /api/terminal/{id}?mode=interactive|spectator:
// bridges a browser WebSocket to a PTY attached to the named tmux session.
func (d *Deps) TerminalWebSocket(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	readOnly := r.URL.Query().Get("mode") == "spectator"

	if !d.Terminal.Exists(id) {
		conn, err := terminalUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		closeMsg := websocket.FormatCloseMessage(sessionNotFoundCloseCode, "Session not found")
		_ = conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(time.Second))
		_ = conn.Close()
		return
	}

	conn, err := terminalUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	bridge, err := terminal.Attach(terminal.SessionPrefix+id, readOnly, 36, 120)
	if err != nil {
		log.Printf("terminal: attach %s: %v", id, err)
		return
	}

	bridge.Run(r.Context(), conn)
}
