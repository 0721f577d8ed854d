// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package config loads the optional HJSON settings overlay and the
// machines.json peer roster, following the teacher's tolerant,
// log-and-continue approach to configuration: a missing file is not an
// error, it just means defaults apply.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/hjson/hjson-go/v4"
)

// Settings holds the values of the optional settings overlay. Every field
// has a zero value that means "use the built-in default"; applyDefaults
// fills in anything left unset. Only ExcludeMarkers is applied by the app
// (to the process detector); the numeric fields are parsed and defaulted
// but the push, tail watcher and needs-input components run on their
// built-in constants regardless of them.
type Settings struct {
	ExcludeMarkers                 []string `json:"exclude_markers"`
	PushMinIntervalSeconds         int      `json:"push_min_interval_seconds"`
	PushHourlyLimit                int      `json:"push_hourly_limit"`
	TailPollIntervalMS             int      `json:"tail_poll_interval_ms"`
	TailBatchDelayMS               int      `json:"tail_batch_delay_ms"`
	NeedsInputCheckIntervalSeconds int      `json:"needs_input_check_interval_seconds"`
	NeedsInputStaleSeconds         int      `json:"needs_input_stale_seconds"`
	NeedsInputCooldownSeconds      int      `json:"needs_input_cooldown_seconds"`
}

// DefaultExcludeMarkers mirrors internal/procdetect.DefaultExcludeMarkers;
// duplicated here (rather than imported) so this package has no
// dependency on procdetect, keeping the dependency graph leaf-to-root.
var DefaultExcludeMarkers = []string{"--chrome-native-host", "--claude-in-chrome-mcp", "server.py", "grep", "claude-remote"}

// DefaultSettings returns every built-in default, matching the constants
// named throughout §4 and §10.
func DefaultSettings() Settings {
	return Settings{
		ExcludeMarkers:                 DefaultExcludeMarkers,
		PushMinIntervalSeconds:         300,
		PushHourlyLimit:                10,
		TailPollIntervalMS:             2000,
		TailBatchDelayMS:               500,
		NeedsInputCheckIntervalSeconds: 15,
		NeedsInputStaleSeconds:         30,
		NeedsInputCooldownSeconds:      300,
	}
}

// applyDefaults fills in any zero-valued field from DefaultSettings.
func (s Settings) applyDefaults() Settings {
	d := DefaultSettings()
	if len(s.ExcludeMarkers) == 0 {
		s.ExcludeMarkers = d.ExcludeMarkers
	}
	if s.PushMinIntervalSeconds == 0 {
		s.PushMinIntervalSeconds = d.PushMinIntervalSeconds
	}
	if s.PushHourlyLimit == 0 {
		s.PushHourlyLimit = d.PushHourlyLimit
	}
	if s.TailPollIntervalMS == 0 {
		s.TailPollIntervalMS = d.TailPollIntervalMS
	}
	if s.TailBatchDelayMS == 0 {
		s.TailBatchDelayMS = d.TailBatchDelayMS
	}
	if s.NeedsInputCheckIntervalSeconds == 0 {
		s.NeedsInputCheckIntervalSeconds = d.NeedsInputCheckIntervalSeconds
	}
	if s.NeedsInputStaleSeconds == 0 {
		s.NeedsInputStaleSeconds = d.NeedsInputStaleSeconds
	}
	if s.NeedsInputCooldownSeconds == 0 {
		s.NeedsInputCooldownSeconds = d.NeedsInputCooldownSeconds
	}
	return s
}

// LoadSettings reads an HJSON settings file at path. A missing file
// returns DefaultSettings with no error, matching the teacher's
// tolerant-missing-file idiom; a present-but-malformed file is still an
// error, since that indicates the operator's intent was not honored.
func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultSettings(), nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("config: read settings: %w", err)
	}

	var raw map[string]interface{}
	if err := hjson.Unmarshal(data, &raw); err != nil {
		return Settings{}, fmt.Errorf("config: parse hjson: %w", err)
	}

	jsonData, err := json.Marshal(raw)
	if err != nil {
		return Settings{}, fmt.Errorf("config: convert to json: %w", err)
	}

	var s Settings
	if err := json.Unmarshal(jsonData, &s); err != nil {
		return Settings{}, fmt.Errorf("config: unmarshal settings: %w", err)
	}
	return s.applyDefaults(), nil
}
