// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package needsinput periodically scans active sessions for ones that look
// like they are waiting on the user: the session has a live process, but
// its last transcript entry is an assistant message old enough that the
// user has plausibly stepped away.
package needsinput

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/wingedpig/claude-remote/internal/events"
	"github.com/wingedpig/claude-remote/internal/indexstore"
)

// CheckInterval is how often the active session set is rescanned.
const CheckInterval = 15 * time.Second

// StaleThreshold is how long a session's last assistant message must sit
// unanswered before the session is considered to be waiting on the user.
const StaleThreshold = 30 * time.Second

// Cooldown is the minimum interval between two needs_input events for the
// same session, to avoid re-firing on every scan while it's waiting.
const Cooldown = 300 * time.Second

// GlobalHourlyLimit bounds how many Notifier alerts go out across all
// sessions combined in one hour-long window (a window opens with the first
// alert after the previous one expired), independent of the per-session
// Cooldown; once hit, further alerts are silently dropped until the
// window rolls over. The bus publish (which drives the live dashboard)
// is never subject to this limit, only the out-of-band Notifier call.
const GlobalHourlyLimit = 10

// Notifier delivers a needs_input alert to whatever out-of-band channel a
// deployment wants (Web Push, APNs, ...). The default Notifier only logs;
// wiring an actual push gateway is left to the operator, since doing so
// safely requires VAPID/APNs credentials this module has no business
// generating.
type Notifier interface {
	Notify(ctx context.Context, sessionID, title, body string) error
}

// LogNotifier is the default Notifier: it just logs. Safe with zero
// configuration, and is what every deployment gets until a push gateway is
// wired in front of it.
type LogNotifier struct{}

// Notify implements Notifier by logging the alert.
func (LogNotifier) Notify(_ context.Context, sessionID, title, body string) error {
	log.Printf("needsinput: %s: %s: %s", sessionID, title, body)
	return nil
}

// ActiveSessionIDsFunc returns the set of session IDs that currently have a
// live process (internal/procdetect.Detector.ActiveSessionIDs).
type ActiveSessionIDsFunc func() map[string]bool

// Detector watches active sessions for ones waiting on user input and
// publishes a needs_input event (plus a Notifier alert) the moment one is
// detected.
type Detector struct {
	store    *indexstore.Store
	bus      *events.Bus
	notifier Notifier
	hostname string
	active   ActiveSessionIDsFunc

	mu              sync.Mutex
	lastNotified    map[string]time.Time
	waiting         map[string]bool
	hourCount       int
	hourWindowStart time.Time
}

// New returns a Detector. notifier may be nil, in which case LogNotifier is
// used.
func New(store *indexstore.Store, bus *events.Bus, active ActiveSessionIDsFunc, hostname string, notifier Notifier) *Detector {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &Detector{
		store:        store,
		bus:          bus,
		notifier:     notifier,
		hostname:     hostname,
		active:       active,
		lastNotified: make(map[string]time.Time),
		waiting:      make(map[string]bool),
	}
}

// Run polls every CheckInterval until ctx is cancelled.
func (d *Detector) Run(ctx context.Context) {
	ticker := time.NewTicker(CheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.scanOnce(ctx)
		}
	}
}

// scanOnce re-derives the full "waiting" set from scratch each pass
// (rather than accumulating sessions into it forever), so a session that
// resumes activity naturally drops out on the very next scan.
func (d *Detector) scanOnce(ctx context.Context) {
	now := time.Now()
	newlyWaiting := make(map[string]bool)

	for sessionID := range d.active() {
		msg, ok, err := d.store.LastMessage(sessionID)
		if err != nil || !ok {
			continue
		}
		if msg.Role != "assistant" {
			continue
		}

		ts, err := time.Parse(time.RFC3339, msg.Timestamp)
		if err != nil {
			continue
		}
		if now.Sub(ts) <= StaleThreshold {
			continue
		}

		newlyWaiting[sessionID] = true
	}

	d.mu.Lock()
	previouslyWaiting := d.waiting
	d.mu.Unlock()

	for sessionID := range newlyWaiting {
		if previouslyWaiting[sessionID] {
			continue
		}
		if last, ok := d.lastNotified[sessionID]; ok && now.Sub(last) < Cooldown {
			continue
		}

		d.bus.PublishToSession(sessionID, events.Event{
			Type:      "needs_input",
			Hostname:  d.hostname,
			Timestamp: now.UTC().Format(time.RFC3339),
		})
		d.lastNotified[sessionID] = now

		if !d.allowNotify(now) {
			continue
		}

		shortID := sessionID
		if len(shortID) > 8 {
			shortID = shortID[:8]
		}
		if err := d.notifier.Notify(ctx, sessionID, "Session needs input",
			"Session "+shortID+"... is waiting for your response"); err != nil {
			log.Printf("needsinput: notify failed for %s: %v", sessionID, err)
		}
	}

	d.mu.Lock()
	d.waiting = newlyWaiting
	d.mu.Unlock()
}

// allowNotify enforces GlobalHourlyLimit across every session combined,
// rolling the window over once it's more than an hour old. Returns false
// once the limit for the current window has been reached.
func (d *Detector) allowNotify(now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.hourWindowStart.IsZero() || now.Sub(d.hourWindowStart) > time.Hour {
		d.hourWindowStart = now
		d.hourCount = 0
	}
	if d.hourCount >= GlobalHourlyLimit {
		return false
	}
	d.hourCount++
	return true
}

// Waiting returns the session IDs currently believed to be waiting on user
// input, for the /api/needs-input route.
func (d *Detector) Waiting() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := make([]string, 0, len(d.waiting))
	for id := range d.waiting {
		ids = append(ids, id)
	}
	return ids
}
