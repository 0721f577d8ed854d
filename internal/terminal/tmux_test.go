// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package terminal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSessionList_FiltersByPrefixAndParsesFields(t *testing.T) {
	output := "claude-remote-abc12345|1700000000|/home/dev/proj|4321\n" +
		"some-other-session|1700000001|/home/dev/other|4322\n" +
		"claude-remote-def67890|1700000002|/home/dev/proj2|4323\n"

	sessions := parseSessionList(output)
	require.Len(t, sessions, 2)

	assert.Equal(t, "claude-remote-abc12345", sessions[0].Name)
	assert.Equal(t, int64(1700000000), sessions[0].CreatedUnix)
	assert.Equal(t, "/home/dev/proj", sessions[0].Cwd)
	assert.Equal(t, 4321, sessions[0].PID)

	assert.Equal(t, "claude-remote-def67890", sessions[1].Name)
}

func TestParseSessionList_EmptyOutput(t *testing.T) {
	assert.Empty(t, parseSessionList(""))
	assert.Empty(t, parseSessionList("\n"))
}

func TestFilterTMUXEnv_StripsTMUXVariable(t *testing.T) {
	env := []string{"PATH=/usr/bin", "TMUX=/tmp/tmux-0/default,1234,0", "HOME=/root"}
	filtered := filterTMUXEnv(env)
	assert.Equal(t, []string{"PATH=/usr/bin", "HOME=/root"}, filtered)
}

func TestRealTmuxExecutor_HasSession_NonexistentReturnsFalse(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	e := NewRealTmuxExecutor()
	assert.False(t, e.HasSession("claude-remote-test-nonexistent-12345"))
}
