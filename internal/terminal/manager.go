// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package terminal

import (
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Manager spawns, lists, and controls multiplexer sessions through an
// Executor, and locates the session backing a given assistant session id.
type Manager struct {
	exec      Executor
	claudeBin string
}

// NewManager returns a Manager that drives exec and spawns claudeBin as
// the foreground command of every session it creates.
func NewManager(exec Executor, claudeBin string) *Manager {
	if claudeBin == "" {
		claudeBin = "claude"
	}
	return &Manager{exec: exec, claudeBin: claudeBin}
}

// sessionName builds the prefixed tmux session name for a short id.
func sessionName(shortID string) string {
	return SessionPrefix + shortID
}

// Spawn creates a detached session running the assistant binary in
// workingDir, optionally resuming resumeID. It fails if workingDir is not
// a directory.
func (m *Manager) Spawn(shortID, workingDir, resumeID string, rows, cols int) error {
	info, err := os.Stat(workingDir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("terminal: working dir %q is not a directory", workingDir)
	}

	command := m.claudeBin
	if resumeID != "" {
		command = fmt.Sprintf("%s --resume %s", m.claudeBin, resumeID)
	}

	return m.exec.NewSession(sessionName(shortID), workingDir, command, cols, rows)
}

// List enumerates every multiplexer session this system owns.
func (m *Manager) List() ([]SessionInfo, error) {
	return m.exec.ListSessions()
}

// Exists reports whether a session for shortID is currently alive.
func (m *Manager) Exists(shortID string) bool {
	return m.exec.HasSession(sessionName(shortID))
}

// Kill terminates a session.
func (m *Manager) Kill(shortID string) error {
	return m.exec.KillSession(sessionName(shortID))
}

// Resize resizes a session's window.
func (m *Manager) Resize(shortID string, cols, rows int) error {
	return m.exec.ResizeWindow(sessionName(shortID), cols, rows)
}

// Inject sends text followed by a newline keystroke to a session's input.
// Any trailing newline the caller included is stripped first, since the
// multiplexer itself supplies the terminating Enter keystroke.
func (m *Manager) Inject(shortID, text string) error {
	text = strings.TrimSuffix(text, "\n")
	text = strings.TrimSuffix(text, "\r")
	return m.exec.SendKeys(sessionName(shortID), text)
}

var resumeArgRe = regexp.MustCompile(`--resume\s+(\S+)`)

// FindByResume scans every multiplexer session's root pane PID and its
// direct children for a process whose argv contains "--resume
// <sessionID>", so a dashboard reconnect can join an already-running
// session idempotently rather than spawning a duplicate.
func (m *Manager) FindByResume(sessionID string) (string, bool) {
	sessions, err := m.exec.ListSessions()
	if err != nil {
		return "", false
	}

	for _, sess := range sessions {
		if sess.PID == 0 {
			continue
		}
		if cmdlineHasResume(sess.PID, sessionID) {
			return sess.Name, true
		}
		for _, childPID := range childPIDs(sess.PID) {
			if cmdlineHasResume(childPID, sessionID) {
				return sess.Name, true
			}
		}
	}
	return "", false
}

// cmdlineHasResume and childPIDs are package vars, not plain funcs, so
// tests can substitute a fixed process tree instead of shelling out to a
// real ps/pgrep.
var cmdlineHasResume = func(pid int, sessionID string) bool {
	out, err := runWithTimeout(2*time.Second, "ps", "-o", "args=", "-p", strconv.Itoa(pid))
	if err != nil {
		return false
	}
	matches := resumeArgRe.FindStringSubmatch(out)
	return matches != nil && matches[1] == sessionID
}

var childPIDs = func(pid int) []int {
	out, err := runWithTimeout(2*time.Second, "pgrep", "-P", strconv.Itoa(pid))
	if err != nil {
		return nil
	}
	var pids []int
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if n, err := strconv.Atoi(strings.TrimSpace(line)); err == nil {
			pids = append(pids, n)
		}
	}
	return pids
}

// runWithTimeout runs a subprocess to completion or kills it after
// timeout, matching the subprocess guard internal/procdetect uses for the
// same reason: a wedged ps/pgrep must never hang a dashboard request.
func runWithTimeout(timeout time.Duration, name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	done := make(chan error, 1)
	var output []byte
	var outErr error
	go func() {
		output, outErr = cmd.Output()
		done <- outErr
	}()

	select {
	case err := <-done:
		return string(output), err
	case <-time.After(timeout):
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		return "", fmt.Errorf("terminal: %s timed out after %s", name, timeout)
	}
}
