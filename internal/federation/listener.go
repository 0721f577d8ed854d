// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package federation

import (
	"bufio"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/wingedpig/claude-remote/internal/config"
	"github.com/wingedpig/claude-remote/internal/events"
)

// peerReconnectDelay is the fixed backoff between SSE client attempts
// after any error, including the peer refusing the initial connection.
const peerReconnectDelay = 5 * time.Second

// StartPeerListeners opens one SSE client connection to each peer's
// dashboard stream and republishes every event to the local bus, tagging
// it with the peer's hostname when the event doesn't already carry one.
// Each listener reconnects on its own after any failure; it runs until
// ctx is cancelled. A no-op when this Handler has no configured peers.
func (h *Handler) StartPeerListeners(ctx context.Context) {
	for _, peer := range h.Peers {
		go h.runPeerListener(ctx, peer)
	}
}

func (h *Handler) runPeerListener(ctx context.Context, peer config.Machine) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := h.streamPeerOnce(ctx, peer); err != nil {
			log.Printf("federation: peer stream %s: %v", peer.Hostname, err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(peerReconnectDelay):
		}
	}
}

func (h *Handler) streamPeerOnce(ctx context.Context, peer config.Machine) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, peer.URL+"/api/dashboard/stream", nil)
	if err != nil {
		return err
	}

	resp, err := h.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var eventType string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			eventType = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			h.republishPeerEvent(peer, eventType, strings.TrimPrefix(line, "data: "))
		case line == "":
			eventType = ""
		}
	}
	return scanner.Err()
}

func (h *Handler) republishPeerEvent(peer config.Machine, eventType, data string) {
	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		return
	}

	hostname, _ := payload["hostname"].(string)
	if hostname == "" {
		hostname = peer.Hostname
	}
	sessionID, _ := payload["session_id"].(string)
	timestamp, _ := payload["timestamp"].(string)

	delete(payload, "type")
	delete(payload, "hostname")
	delete(payload, "session_id")
	delete(payload, "timestamp")

	event := events.Event{
		Type:      eventType,
		SessionID: sessionID,
		Hostname:  hostname,
		Timestamp: timestamp,
		Payload:   payload,
	}

	if sessionID != "" {
		h.Bus.PublishToSession(sessionID, event)
	} else {
		h.Bus.Publish(events.GlobalTopic, event)
	}
}
