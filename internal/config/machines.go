// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Machine is one coordinator-configured peer.
type Machine struct {
	Hostname string `json:"hostname"`
	URL      string `json:"url"`
	Label    string `json:"label"`
}

type machinesFile struct {
	Machines []Machine `json:"machines"`
}

// LoadMachines reads the peer roster from path. A missing file yields an
// empty roster (non-coordinator mode), not an error.
func LoadMachines(path string) ([]Machine, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read machines.json: %w", err)
	}

	var parsed machinesFile
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("config: parse machines.json: %w", err)
	}
	return parsed.Machines, nil
}

// WatchMachines watches path for changes and calls onChange with the
// freshly reloaded roster whenever the file is written or replaced
// (editors commonly rename-over-write, which fsnotify reports as a
// Create on the watched directory entry). The returned stop func closes
// the watcher; it is idempotent-safe to call once.
func WatchMachines(path string, onChange func([]Machine)) (stop func(), err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: new watcher: %w", err)
	}

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("config: watch %s: %w", dir, err)
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != path {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				machines, err := LoadMachines(path)
				if err != nil {
					log.Printf("config: reload %s: %v", path, err)
					continue
				}
				onChange(machines)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("config: watch error: %v", err)
			}
		}
	}()

	return func() { _ = watcher.Close() }, nil
}
