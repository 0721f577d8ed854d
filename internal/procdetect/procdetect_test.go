// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package procdetect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractSessionID_PrefersResumeFlag(t *testing.T) {
	d := New(DefaultConfig("/tmp/projects"))
	cmdline := "claude --resume 12345678-1234-1234-1234-123456789012 --other-flag"
	assert.Equal(t, "12345678-1234-1234-1234-123456789012", d.extractSessionID(cmdline, ""))
}

func TestExtractSessionID_FallsBackToSessionIDFlag(t *testing.T) {
	d := New(DefaultConfig("/tmp/projects"))
	cmdline := "claude --session-id abcdef12-abcd-abcd-abcd-abcdef123456"
	assert.Equal(t, "abcdef12-abcd-abcd-abcd-abcdef123456", d.extractSessionID(cmdline, ""))
}

func TestExtractSessionID_NoMatchWithoutCwd(t *testing.T) {
	d := New(DefaultConfig("/tmp/projects"))
	assert.Equal(t, "", d.extractSessionID("claude --continue", ""))
}

func TestExcluded(t *testing.T) {
	d := New(DefaultConfig("/tmp/projects"))
	assert.True(t, d.excluded("some/path/server.py --flag"))
	assert.True(t, d.excluded("grep claude /var/log/x"))
	assert.False(t, d.excluded("claude --resume abc"))
}

func TestGuessCwdFromPSLine(t *testing.T) {
	assert.Equal(t, "/tmp", guessCwdFromPSLine("user 123 0.0 0.1 claude --continue /tmp"))
	assert.Equal(t, "", guessCwdFromPSLine("user 123 0.0 0.1 claude --continue"))
}
