// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMachines_MissingFileReturnsEmptyRoster(t *testing.T) {
	machines, err := LoadMachines(filepath.Join(t.TempDir(), "machines.json"))
	require.NoError(t, err)
	assert.Empty(t, machines)
}

func TestLoadMachines_ParsesRoster(t *testing.T) {
	path := filepath.Join(t.TempDir(), "machines.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"machines":[
		{"hostname":"laptop","url":"https://laptop.local:7860","label":"Laptop"},
		{"hostname":"desktop","url":"https://desktop.local:7860","label":"Desktop"}
	]}`), 0o644))

	machines, err := LoadMachines(path)
	require.NoError(t, err)
	require.Len(t, machines, 2)
	assert.Equal(t, "laptop", machines[0].Hostname)
	assert.Equal(t, "Desktop", machines[1].Label)
}

func TestWatchMachines_FiresOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "machines.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"machines":[]}`), 0o644))

	changes := make(chan []Machine, 1)
	stop, err := WatchMachines(path, func(m []Machine) { changes <- m })
	require.NoError(t, err)
	defer stop()

	require.NoError(t, os.WriteFile(path, []byte(`{"machines":[{"hostname":"new-host","url":"https://new:7860","label":"New"}]}`), 0o644))

	select {
	case m := <-changes:
		require.Len(t, m, 1)
		assert.Equal(t, "new-host", m[0].Hostname)
	case <-time.After(3 * time.Second):
		t.Fatal("expected onChange to fire after file write")
	}
}
