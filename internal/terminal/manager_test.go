// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package terminal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExecutor struct {
	sessions map[string]SessionInfo
	newErr   error
	sentKeys map[string]string
	resized  map[string][2]int
	commands map[string]string
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{
		sessions: make(map[string]SessionInfo),
		sentKeys: make(map[string]string),
		resized:  make(map[string][2]int),
		commands: make(map[string]string),
	}
}

func (f *fakeExecutor) HasSession(name string) bool { _, ok := f.sessions[name]; return ok }

func (f *fakeExecutor) ListSessions() ([]SessionInfo, error) {
	var out []SessionInfo
	for _, s := range f.sessions {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeExecutor) NewSession(name, workdir, command string, cols, rows int) error {
	if f.newErr != nil {
		return f.newErr
	}
	f.sessions[name] = SessionInfo{Name: name, Cwd: workdir, PID: 1000 + len(f.sessions)}
	f.commands[name] = command
	return nil
}

func (f *fakeExecutor) KillSession(name string) error {
	delete(f.sessions, name)
	return nil
}

func (f *fakeExecutor) ResizeWindow(name string, cols, rows int) error {
	f.resized[name] = [2]int{cols, rows}
	return nil
}

func (f *fakeExecutor) SendKeys(name, text string) error {
	f.sentKeys[name] = text
	return nil
}

func TestSpawn_RejectsNonDirectoryWorkingDir(t *testing.T) {
	m := NewManager(newFakeExecutor(), "claude")
	err := m.Spawn("abc12345", "/definitely/not/a/real/path", "", 36, 120)
	assert.Error(t, err)
}

func TestSpawn_CreatesSessionWithoutResume(t *testing.T) {
	exec := newFakeExecutor()
	m := NewManager(exec, "claude")

	require.NoError(t, m.Spawn("abc12345", t.TempDir(), "", 36, 120))
	assert.True(t, m.Exists("abc12345"))
}

func TestSpawn_WithResumeBuildsResumeCommand(t *testing.T) {
	exec := newFakeExecutor()
	m := NewManager(exec, "claude")

	require.NoError(t, m.Spawn("abc12345", t.TempDir(), "sess-xyz", 36, 120))
	assert.True(t, exec.sessions[sessionName("abc12345")].Name != "")
	assert.Equal(t, "claude --resume sess-xyz", exec.commands[sessionName("abc12345")])
}

func TestKillAndResize(t *testing.T) {
	exec := newFakeExecutor()
	m := NewManager(exec, "claude")
	require.NoError(t, m.Spawn("abc12345", t.TempDir(), "", 36, 120))

	require.NoError(t, m.Resize("abc12345", 200, 50))
	assert.Equal(t, [2]int{200, 50}, exec.resized[sessionName("abc12345")])

	require.NoError(t, m.Kill("abc12345"))
	assert.False(t, m.Exists("abc12345"))
}

func TestInject_StripsTrailingNewline(t *testing.T) {
	exec := newFakeExecutor()
	m := NewManager(exec, "claude")
	require.NoError(t, m.Spawn("abc12345", t.TempDir(), "", 36, 120))

	require.NoError(t, m.Inject("abc12345", "hello world\n"))
	assert.Equal(t, "hello world", exec.sentKeys[sessionName("abc12345")])
}

func TestFindByResume_MatchesRootPaneProcess(t *testing.T) {
	exec := newFakeExecutor()
	exec.sessions[sessionName("abc12345")] = SessionInfo{Name: sessionName("abc12345"), PID: 555}

	origCmdline, origChildren := cmdlineHasResume, childPIDs
	defer func() { cmdlineHasResume, childPIDs = origCmdline, origChildren }()
	cmdlineHasResume = func(pid int, sessionID string) bool {
		return pid == 555 && sessionID == "sess-target"
	}
	childPIDs = func(pid int) []int { return nil }

	m := NewManager(exec, "claude")
	name, found := m.FindByResume("sess-target")
	assert.True(t, found)
	assert.Equal(t, sessionName("abc12345"), name)
}

func TestFindByResume_MatchesChildProcess(t *testing.T) {
	exec := newFakeExecutor()
	exec.sessions[sessionName("abc12345")] = SessionInfo{Name: sessionName("abc12345"), PID: 555}

	origCmdline, origChildren := cmdlineHasResume, childPIDs
	defer func() { cmdlineHasResume, childPIDs = origCmdline, origChildren }()
	cmdlineHasResume = func(pid int, sessionID string) bool {
		return pid == 777 && sessionID == "sess-target"
	}
	childPIDs = func(pid int) []int {
		if pid == 555 {
			return []int{777}
		}
		return nil
	}

	m := NewManager(exec, "claude")
	name, found := m.FindByResume("sess-target")
	assert.True(t, found)
	assert.Equal(t, sessionName("abc12345"), name)
}

func TestFindByResume_NoMatch(t *testing.T) {
	exec := newFakeExecutor()
	exec.sessions[sessionName("abc12345")] = SessionInfo{Name: sessionName("abc12345"), PID: 555}

	origCmdline, origChildren := cmdlineHasResume, childPIDs
	defer func() { cmdlineHasResume, childPIDs = origCmdline, origChildren }()
	cmdlineHasResume = func(pid int, sessionID string) bool { return false }
	childPIDs = func(pid int) []int { return nil }

	m := NewManager(exec, "claude")
	_, found := m.FindByResume("sess-target")
	assert.False(t, found)
}
