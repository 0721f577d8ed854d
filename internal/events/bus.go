// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package events is an in-process pub/sub bus used to fan live activity
// out to SSE and WebSocket subscribers. Topics are matched exactly (no
// glob patterns); the reserved "__global__" topic mirrors every
// PublishToSession call, so the dashboard's single stream sees
// everything.
package events

import (
	"encoding/json"
	"sync"
)

// GlobalTopic is the reserved topic that every session-scoped publish is
// also mirrored to.
const GlobalTopic = "__global__"

// queueSize bounds each subscriber's buffered channel; a slow subscriber
// drops its oldest unread event rather than blocking the publisher.
const queueSize = 100

// Event is a single pub/sub message. Payload carries type-specific fields
// (role, preview, tool_uses, ...); Type, SessionID, Hostname, and
// Timestamp are promoted because nearly every consumer needs them.
type Event struct {
	Type      string                 `json:"type"`
	SessionID string                 `json:"session_id,omitempty"`
	Hostname  string                 `json:"hostname,omitempty"`
	Timestamp string                 `json:"timestamp,omitempty"`
	Payload   map[string]interface{} `json:"-"`
}

// MarshalJSON flattens Payload alongside the promoted fields so the wire
// shape is a single flat object, matching the original event dicts.
func (e Event) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(e.Payload)+4)
	for k, v := range e.Payload {
		out[k] = v
	}
	out["type"] = e.Type
	if e.SessionID != "" {
		out["session_id"] = e.SessionID
	}
	if e.Hostname != "" {
		out["hostname"] = e.Hostname
	}
	if e.Timestamp != "" {
		out["timestamp"] = e.Timestamp
	}
	return json.Marshal(out)
}

// subscription is one subscriber's channel, closed and removed on
// Unsubscribe.
type subscription struct {
	ch chan Event
}

// Bus is a topic-exact, bounded-queue pub/sub event bus.
type Bus struct {
	mu          sync.Mutex
	subscribers map[string][]*subscription
}

// NewBus returns an empty Bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[string][]*subscription)}
}

// Subscribe registers a new subscriber on topic and returns its channel
// plus an unsubscribe func. The channel is never closed by Publish; call
// the returned func when done to release it (and stop it from leaking).
func (b *Bus) Subscribe(topic string) (<-chan Event, func()) {
	sub := &subscription{ch: make(chan Event, queueSize)}

	b.mu.Lock()
	b.subscribers[topic] = append(b.subscribers[topic], sub)
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subscribers[topic]
		for i, s := range subs {
			if s == sub {
				b.subscribers[topic] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		if len(b.subscribers[topic]) == 0 {
			delete(b.subscribers, topic)
		}
		close(sub.ch)
	}
	return sub.ch, unsubscribe
}

// Publish delivers event to every subscriber of topic. A subscriber whose
// queue is full has its oldest buffered event dropped to make room,
// rather than blocking the publisher.
func (b *Bus) Publish(topic string, event Event) {
	b.mu.Lock()
	subs := make([]*subscription, len(b.subscribers[topic]))
	copy(subs, b.subscribers[topic])
	b.mu.Unlock()

	for _, sub := range subs {
		publishOne(sub.ch, event)
	}
}

// PublishToSession publishes event to its own session topic (SessionID)
// as well as the reserved global topic, matching the original watcher's
// "publish(session_id, event); publish_global(event)" pattern.
func (b *Bus) PublishToSession(sessionID string, event Event) {
	event.SessionID = sessionID
	b.Publish(sessionID, event)
	b.Publish(GlobalTopic, event)
}

func publishOne(ch chan Event, event Event) {
	select {
	case ch <- event:
		return
	default:
	}
	// Queue full: drop the oldest buffered event, then retry once.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- event:
	default:
	}
}
