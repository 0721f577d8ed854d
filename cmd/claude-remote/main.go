// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/wingedpig/claude-remote/internal/app"
)

var version = "0.1.0"

func main() {
	var (
		stateDir    string
		projectsDir string
		configPath  string
		host        string
		port        int
		https       bool
		claudeBin   string
		hostname    string
		showVersion bool
		debug       bool
	)

	home, _ := os.UserHomeDir()

	flag.StringVar(&stateDir, "state-dir", filepath.Join(home, ".claude-remote"), "Directory for index.db and machines.json")
	flag.StringVar(&projectsDir, "projects-dir", filepath.Join(home, ".claude", "projects"), "Claude Code projects root to index")
	flag.StringVar(&configPath, "config", "", "Path to claude-remote.hjson settings overlay")
	flag.StringVar(&configPath, "c", "", "Path to claude-remote.hjson settings overlay (short)")
	flag.StringVar(&host, "host", "0.0.0.0", "HTTP server host")
	flag.IntVar(&port, "port", 7860, "HTTP server port")
	flag.BoolVar(&https, "https", false, "Serve HTTPS using a Tailscale-issued certificate")
	flag.StringVar(&claudeBin, "claude-bin", "claude", "Path to the Claude Code binary to spawn in new sessions")
	flag.StringVar(&hostname, "hostname", "", "Hostname to report in federation (default: os.Hostname)")
	flag.BoolVar(&showVersion, "version", false, "Show version")
	flag.BoolVar(&showVersion, "v", false, "Show version (short)")
	flag.BoolVar(&debug, "debug", false, "Accepted for compatibility; logging output is the same with or without it")
	flag.Parse()

	if showVersion {
		fmt.Printf("claude-remote %s\n", version)
		os.Exit(0)
	}

	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		log.Fatalf("Failed to create state dir: %v", err)
	}

	application, err := app.New(app.Options{
		StateDir:    stateDir,
		ProjectsDir: projectsDir,
		ConfigPath:  configPath,
		Host:        host,
		Port:        port,
		HTTPS:       https,
		ClaudeBin:   claudeBin,
		Hostname:    hostname,
		Version:     version,
		Debug:       debug,
	})
	if err != nil {
		log.Fatalf("Failed to create app: %v", err)
	}

	ctx := context.Background()
	if err := application.Run(ctx); err != nil {
		log.Fatalf("App error: %v", err)
	}
}
