// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettings_MissingFileReturnsDefaults(t *testing.T) {
	s, err := LoadSettings(filepath.Join(t.TempDir(), "does-not-exist.hjson"))
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), s)
}

func TestLoadSettings_OverridesMergeWithDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "claude-remote.hjson")
	require.NoError(t, os.WriteFile(path, []byte(`{
		push_hourly_limit: 25
		exclude_markers: ["my-other-tool"]
	}`), 0o644))

	s, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, 25, s.PushHourlyLimit)
	assert.Equal(t, []string{"my-other-tool"}, s.ExcludeMarkers)
	// Unset fields still fall back to defaults.
	assert.Equal(t, 300, s.PushMinIntervalSeconds)
	assert.Equal(t, 2000, s.TailPollIntervalMS)
}

func TestLoadSettings_MalformedFileIsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "claude-remote.hjson")
	require.NoError(t, os.WriteFile(path, []byte(`{not valid`), 0o644))

	_, err := LoadSettings(path)
	assert.Error(t, err)
}
