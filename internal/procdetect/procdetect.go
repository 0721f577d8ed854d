// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package procdetect detects which Claude Code sessions currently have a
// live process, so the dashboard can distinguish "running" from
// "historical" sessions.
package procdetect

import (
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	ps "github.com/mitchellh/go-ps"
)

// Config controls which processes are considered a Claude Code session and
// which are excluded (the server's own process, browser-extension native
// hosts, etc).
type Config struct {
	ProjectsDir string

	// ExcludeMarkers is a list of substrings; a process whose command line
	// contains any of them is never treated as a session, regardless of
	// whether it also matches the "claude" marker. Configurable (rather than
	// an inline constant list) so a claude-remote.hjson overlay can extend
	// it for unusual deployments.
	ExcludeMarkers []string

	// subprocess timeout for macOS's ps fallback path.
	SubprocessTimeout time.Duration
}

// DefaultExcludeMarkers is the marker set ported from the original
// indexer's process scan, plus this server's own binary name.
var DefaultExcludeMarkers = []string{
	"--chrome-native-host",
	"--claude-in-chrome-mcp",
	"server.py",
	"grep",
	"claude-remote",
}

// DefaultConfig returns a Config with DefaultExcludeMarkers and a 5s
// subprocess timeout.
func DefaultConfig(projectsDir string) Config {
	return Config{
		ProjectsDir:       projectsDir,
		ExcludeMarkers:    DefaultExcludeMarkers,
		SubprocessTimeout: 5 * time.Second,
	}
}

var resumeRe = regexp.MustCompile(`--resume\s+([a-f0-9-]{36})`)
var sessionIDRe = regexp.MustCompile(`--session-id\s+([a-f0-9-]{36})`)

// Detector scans live processes for active Claude Code sessions.
type Detector struct {
	cfg Config
}

// New returns a Detector using cfg.
func New(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

// ActiveSessionIDs returns the set of session IDs with a currently running
// claude process, detected via /proc on Linux or ps on macOS.
func (d *Detector) ActiveSessionIDs() map[string]bool {
	switch runtime.GOOS {
	case "linux":
		return d.detectLinux()
	case "darwin":
		return d.detectMacOS()
	default:
		return map[string]bool{}
	}
}

func (d *Detector) excluded(cmdline string) bool {
	for _, marker := range d.cfg.ExcludeMarkers {
		if strings.Contains(cmdline, marker) {
			return true
		}
	}
	return false
}

// detectLinux enumerates candidate PIDs via go-ps (matching on executable
// name) before reading the heavier /proc/<pid>/cmdline for each one. This
// sidesteps directories we have no permission to read cmdline for but can
// still see in the process table, and avoids re-deriving PID enumeration
// by hand from /proc's directory listing.
func (d *Detector) detectLinux() map[string]bool {
	active := map[string]bool{}

	procs, err := listProcesses()
	if err != nil {
		return active
	}

	for _, p := range procs {
		if !strings.Contains(strings.ToLower(p.Executable()), "claude") {
			continue
		}
		pid := p.Pid()

		cmdlineBytes, err := os.ReadFile(filepath.Join("/proc", strconv.Itoa(pid), "cmdline"))
		if err != nil {
			continue
		}
		cmdline := strings.ReplaceAll(string(cmdlineBytes), "\x00", " ")
		lower := strings.ToLower(cmdline)
		if !strings.Contains(lower, "claude") {
			continue
		}
		if d.excluded(cmdline) {
			continue
		}

		cwd, err := os.Readlink(filepath.Join("/proc", strconv.Itoa(pid), "cwd"))
		if err != nil {
			continue
		}

		if sessionID := d.extractSessionID(cmdline, cwd); sessionID != "" {
			active[sessionID] = true
		}
	}

	return active
}

func (d *Detector) detectMacOS() map[string]bool {
	active := map[string]bool{}

	out, err := runWithTimeout(d.cfg.SubprocessTimeout, "ps", "aux")
	if err != nil {
		return active
	}

	for _, line := range strings.Split(out, "\n") {
		lower := strings.ToLower(line)
		if !strings.Contains(lower, "claude") {
			continue
		}
		if d.excluded(line) {
			continue
		}

		if sessionID := d.extractSessionID(line, ""); sessionID != "" {
			active[sessionID] = true
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		pid := fields[1]
		if _, err := strconv.Atoi(pid); err != nil {
			continue
		}

		if cwd := guessCwdFromPSLine(line); cwd != "" {
			if sessionID := d.findMostRecentSessionInDir(cwd); sessionID != "" {
				active[sessionID] = true
			}
		}
	}

	return active
}

func (d *Detector) extractSessionID(cmdline, cwd string) string {
	if m := resumeRe.FindStringSubmatch(cmdline); m != nil {
		return m[1]
	}
	if m := sessionIDRe.FindStringSubmatch(cmdline); m != nil {
		return m[1]
	}
	if cwd != "" {
		return d.findMostRecentSessionInDir(cwd)
	}
	return ""
}

// findMostRecentSessionInDir maps a working directory back to its
// Claude Code project directory name and returns the most recently
// modified session file's ID, for sessions started without --resume or
// --session-id (i.e. plain "claude" or "claude --continue").
func (d *Detector) findMostRecentSessionInDir(cwd string) string {
	projectDirName := "-" + strings.TrimPrefix(strings.ReplaceAll(cwd, "/", "-"), "-")
	projectPath := filepath.Join(d.cfg.ProjectsDir, projectDirName)

	matches, err := filepath.Glob(filepath.Join(projectPath, "*.jsonl"))
	if err != nil || len(matches) == 0 {
		return ""
	}

	sort.Slice(matches, func(i, j int) bool {
		si, erri := os.Stat(matches[i])
		sj, errj := os.Stat(matches[j])
		if erri != nil || errj != nil {
			return false
		}
		return si.ModTime().After(sj.ModTime())
	})

	base := filepath.Base(matches[0])
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func guessCwdFromPSLine(line string) string {
	fields := strings.Fields(line)
	for i := len(fields) - 1; i >= 0; i-- {
		if strings.HasPrefix(fields[i], "/") {
			if info, err := os.Stat(fields[i]); err == nil && info.IsDir() {
				return fields[i]
			}
		}
	}
	return ""
}

func runWithTimeout(timeout time.Duration, name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	done := make(chan struct{})
	var out []byte
	var err error
	go func() {
		out, err = cmd.Output()
		close(done)
	}()
	select {
	case <-done:
		return string(out), err
	case <-time.After(timeout):
		_ = cmd.Process.Kill()
		return "", exec.ErrNotFound
	}
}

// TmuxSessionIDs returns the set of short IDs for tmux sessions matching
// the "claude-remote-<id>" naming convention (internal/terminal.tmux.go
// creates sessions with this prefix).
func TmuxSessionIDs(timeout time.Duration) map[string]bool {
	ids := map[string]bool{}
	out, err := runWithTimeout(timeout, "tmux", "list-sessions", "-F", "#{session_name}")
	if err != nil {
		return ids
	}
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if strings.HasPrefix(line, "claude-remote-") {
			ids[strings.TrimPrefix(line, "claude-remote-")] = true
		}
	}
	return ids
}

// listProcesses enumerates the live process table. Isolated behind a
// var so tests can substitute a fixed process list.
var listProcesses = func() ([]ps.Process, error) {
	return ps.Processes()
}
