// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package api assembles the HTTP/WebSocket/SSE router: the local routes in
// internal/api/handlers plus, when a coordinator is configured, the
// federation-aware /api/machines and /api/multi/* routes.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wingedpig/claude-remote/internal/api/handlers"
	"github.com/wingedpig/claude-remote/internal/api/middleware"
)

// FederationRoutes is implemented by internal/federation's Handler. Kept as
// an interface here so this package doesn't need to import federation
// directly; internal/app wires the concrete type in.
type FederationRoutes interface {
	Machines(w http.ResponseWriter, r *http.Request)
	MultiDashboard(w http.ResponseWriter, r *http.Request)
	MultiSessions(w http.ResponseWriter, r *http.Request)
	MultiSearch(w http.ResponseWriter, r *http.Request)
	MultiJoin(w http.ResponseWriter, r *http.Request)
	MultiInject(w http.ResponseWriter, r *http.Request)
	MultiTerminal(w http.ResponseWriter, r *http.Request)
}

// NewRouter builds the complete route table. fed may be nil for a
// single-machine deployment with no coordinator/peers configured, in which
// case /api/machines serves a local-only roster instead of failing
// outright and the /api/multi/* routes are not registered.
func NewRouter(deps *handlers.Deps, fed FederationRoutes) *mux.Router {
	r := mux.NewRouter()

	r.Use(middleware.Logging)
	r.Use(middleware.Recovery)
	r.Use(middleware.CORS)

	r.HandleFunc("/api/health", deps.Health).Methods(http.MethodGet)
	r.HandleFunc("/api/dashboard", deps.Dashboard).Methods(http.MethodGet)
	r.HandleFunc("/api/dashboard/stream", deps.DashboardStream).Methods(http.MethodGet)

	r.HandleFunc("/api/sessions", deps.ListSessions).Methods(http.MethodGet)
	r.HandleFunc("/api/sessions", deps.SpawnSession).Methods(http.MethodPost)
	r.HandleFunc("/api/sessions/{id}", deps.SessionDetail).Methods(http.MethodGet)
	r.HandleFunc("/api/sessions/{id}", deps.KillSession).Methods(http.MethodDelete)
	r.HandleFunc("/api/sessions/{id}/conversation", deps.Conversation).Methods(http.MethodGet)
	r.HandleFunc("/api/sessions/{id}/join", deps.JoinSession).Methods(http.MethodPost)
	r.HandleFunc("/api/sessions/{id}/stream", deps.SessionStream).Methods(http.MethodGet)

	r.HandleFunc("/api/terminal/{id}/inject", deps.InjectTerminal).Methods(http.MethodPost)
	r.HandleFunc("/api/terminal/{id}", deps.TerminalWebSocket).Methods(http.MethodGet)

	r.HandleFunc("/api/search", deps.Search).Methods(http.MethodGet)

	r.HandleFunc("/api/analytics/tokens", deps.TokenAnalytics).Methods(http.MethodGet)
	r.HandleFunc("/api/analytics/tools", deps.ToolAnalytics).Methods(http.MethodGet)

	r.HandleFunc("/api/reindex", deps.Reindex).Methods(http.MethodPost)
	r.HandleFunc("/api/needs-input", deps.NeedsInput).Methods(http.MethodGet)

	r.HandleFunc("/api/push/subscribe", deps.PushSubscribe).Methods(http.MethodPost)
	r.HandleFunc("/api/push/unsubscribe", deps.PushUnsubscribe).Methods(http.MethodPost)
	r.HandleFunc("/api/push/subscriptions", deps.PushSubscriptions).Methods(http.MethodGet)
	r.HandleFunc("/api/push/register", deps.PushRegisterDevice).Methods(http.MethodPost)
	r.HandleFunc("/api/push/register", deps.PushUnregisterDevice).Methods(http.MethodDelete)

	if fed != nil {
		r.HandleFunc("/api/machines", fed.Machines).Methods(http.MethodGet)
		r.HandleFunc("/api/multi/dashboard", fed.MultiDashboard).Methods(http.MethodGet)
		r.HandleFunc("/api/multi/sessions", fed.MultiSessions).Methods(http.MethodGet)
		r.HandleFunc("/api/multi/search", fed.MultiSearch).Methods(http.MethodGet)
		r.HandleFunc("/api/multi/sessions/{host}/{id}/join", fed.MultiJoin).Methods(http.MethodPost)
		r.HandleFunc("/api/multi/terminal/{host}/{id}/inject", fed.MultiInject).Methods(http.MethodPost)
		r.HandleFunc("/api/multi/terminal/{host}/{id}", fed.MultiTerminal).Methods(http.MethodGet)
	} else {
		r.HandleFunc("/api/machines", deps.LocalOnlyMachines).Methods(http.MethodGet)
	}

	return r
}
