// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package terminal spawns and attaches to multiplexer sessions that run the
// assistant binary on behalf of a dashboard user. Every session this
// package creates is named with SessionPrefix, so it can coexist on the
// same tmux server as a user's own unrelated sessions without colliding
// with or listing them.
package terminal

// SessionPrefix isolates this system's multiplexer sessions from any
// other tmux session a user might have running on the same host.
const SessionPrefix = "claude-remote-"

// SessionInfo describes one live multiplexer session.
type SessionInfo struct {
	Name        string
	CreatedUnix int64
	Cwd         string
	PID         int
}

// Executor is the subset of tmux operations Manager needs. It exists so
// tests can substitute a fake instead of shelling out to a real tmux
// server.
type Executor interface {
	HasSession(name string) bool
	ListSessions() ([]SessionInfo, error)
	NewSession(name, workdir, command string, cols, rows int) error
	KillSession(name string) error
	ResizeWindow(name string, cols, rows int) error
	SendKeys(name, text string) error
}
