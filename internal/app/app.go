// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package app wires every component together into the running server:
// the index store, indexer, process detector, transcript tailer, needs-
// input detector, terminal manager, HTTP/WebSocket/SSE router, and
// (optionally) the federation layer. It owns the process lifecycle --
// Initialize builds everything, Start brings it up, Run blocks until a
// shutdown signal, and Shutdown stops the HTTP server, the machines.json
// watcher and the index store, in that order.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/wingedpig/claude-remote/internal/api"
	"github.com/wingedpig/claude-remote/internal/api/handlers"
	"github.com/wingedpig/claude-remote/internal/config"
	"github.com/wingedpig/claude-remote/internal/events"
	"github.com/wingedpig/claude-remote/internal/federation"
	"github.com/wingedpig/claude-remote/internal/indexer"
	"github.com/wingedpig/claude-remote/internal/indexstore"
	"github.com/wingedpig/claude-remote/internal/needsinput"
	"github.com/wingedpig/claude-remote/internal/procdetect"
	"github.com/wingedpig/claude-remote/internal/tailwatch"
	"github.com/wingedpig/claude-remote/internal/terminal"
)

// Options holds the command-line-derived configuration for one run of the
// server.
type Options struct {
	StateDir    string // directory holding the index.db and machines.json
	ProjectsDir string // Claude Code projects root to index and tail
	ConfigPath  string // optional claude-remote.hjson settings overlay
	Host        string
	Port        int
	HTTPS       bool
	ClaudeBin   string
	Hostname    string // empty uses os.Hostname()
	Version     string
	Debug       bool
}

// App is the assembled server. Every long-lived component is a field so
// Shutdown can tear them down explicitly and in order.
type App struct {
	mu sync.RWMutex

	opts Options

	store              *indexstore.Store
	bus                *events.Bus
	indexer            *indexer.Indexer
	detector           *procdetect.Detector
	tailer             *tailwatch.Watcher
	needsInputDetector *needsinput.Detector
	terminalManager    *terminal.Manager
	federationHandler  *federation.Handler
	stopMachineWatch   func()

	httpServer *http.Server

	done     chan struct{}
	stopOnce sync.Once
}

// New fills in the hostname and port defaults and constructs an App. It
// does not load settings or the peer roster, open the index store or start
// any goroutines; that happens in Initialize/Start.
func New(opts Options) (*App, error) {
	if opts.Hostname == "" {
		h, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("app: resolve hostname: %w", err)
		}
		opts.Hostname = h
	}
	if opts.Port == 0 {
		opts.Port = 7860
	}

	return &App{
		opts: opts,
		done: make(chan struct{}),
	}, nil
}

// Initialize opens the index store and builds every component, wiring
// them into the router. It does not start any background goroutines or
// the HTTP listener; call Start for that.
func (app *App) Initialize(ctx context.Context) error {
	app.mu.Lock()
	defer app.mu.Unlock()

	settings := config.DefaultSettings()
	if app.opts.ConfigPath != "" {
		loaded, err := config.LoadSettings(app.opts.ConfigPath)
		if err != nil {
			return fmt.Errorf("app: load settings: %w", err)
		}
		settings = loaded
	}

	dbPath := app.opts.StateDir + "/index.db"
	store, err := indexstore.Open(dbPath)
	if err != nil {
		return fmt.Errorf("app: open index store: %w", err)
	}
	app.store = store

	app.bus = events.NewBus()

	app.indexer = indexer.New(app.store, app.opts.ProjectsDir)

	procCfg := procdetect.DefaultConfig(app.opts.ProjectsDir)
	procCfg.ExcludeMarkers = settings.ExcludeMarkers
	app.detector = procdetect.New(procCfg)

	app.tailer = tailwatch.New(app.opts.ProjectsDir, app.bus, app.opts.Hostname)

	app.needsInputDetector = needsinput.New(
		app.store,
		app.bus,
		app.detector.ActiveSessionIDs,
		app.opts.Hostname,
		nil,
	)

	app.terminalManager = terminal.NewManager(terminal.NewRealTmuxExecutor(), app.opts.ClaudeBin)

	deps := &handlers.Deps{
		Store:              app.store,
		Bus:                app.bus,
		Detector:           app.detector,
		NeedsInputDetector: app.needsInputDetector,
		Terminal:           app.terminalManager,
		Indexer:            app.indexer,
		Settings:           settings,
		Hostname:           app.opts.Hostname,
		Version:            app.opts.Version,
	}

	machinesPath := app.opts.StateDir + "/machines.json"
	peers, err := config.LoadMachines(machinesPath)
	if err != nil {
		return fmt.Errorf("app: load machines.json: %w", err)
	}
	app.federationHandler = federation.NewHandler(deps, peers)

	stop, err := config.WatchMachines(machinesPath, func(updated []config.Machine) {
		app.mu.Lock()
		app.federationHandler.Peers = updated
		app.mu.Unlock()
		log.Printf("app: reloaded %d peer(s) from machines.json", len(updated))
	})
	if err != nil {
		log.Printf("app: not watching machines.json: %v", err)
	} else {
		app.stopMachineWatch = stop
	}

	router := api.NewRouter(deps, app.federationHandler)

	addr := fmt.Sprintf("%s:%d", app.opts.Host, app.opts.Port)
	app.httpServer = &http.Server{
		Addr:    addr,
		Handler: router,
	}
	if app.opts.HTTPS {
		app.httpServer.TLSConfig = api.TLSConfig()
	}

	return nil
}

// Start runs an initial indexing pass, then launches every background
// goroutine and the HTTP listener. It returns once the listener goroutine
// has been launched; it does not block.
func (app *App) Start(ctx context.Context) error {
	app.mu.RLock()
	defer app.mu.RUnlock()

	if result, err := app.indexer.Run(false); err != nil {
		log.Printf("app: initial index pass failed: %v", err)
	} else {
		log.Printf("app: indexed %d session(s), skipped %d, %d message(s) in %dms",
			result.SessionsIndexed, result.SessionsSkipped, result.MessagesIndexed, result.DurationMS)
	}

	go app.tailer.Run(ctx)
	go app.needsInputDetector.Run(ctx)
	app.federationHandler.StartPeerListeners(ctx)

	go func() {
		log.Printf("app: listening on %s (https=%v)", app.httpServer.Addr, app.opts.HTTPS)
		var err error
		if app.opts.HTTPS {
			err = app.httpServer.ListenAndServeTLS("", "")
		} else {
			err = app.httpServer.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Printf("app: server error: %v", err)
		}
	}()

	return nil
}

// Run initializes and starts the app, then blocks until a termination
// signal, context cancellation, or an explicit Stop, and shuts down
// gracefully before returning.
func (app *App) Run(ctx context.Context) error {
	if err := app.Initialize(ctx); err != nil {
		return err
	}
	if err := app.Start(ctx); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("app: received signal %v, shutting down...", sig)
	case <-ctx.Done():
		log.Printf("app: context cancelled, shutting down...")
	case <-app.done:
		log.Printf("app: shutdown requested...")
	}

	return app.Shutdown(context.Background())
}

// Shutdown stops the HTTP server first (within a bounded timeout) so no new
// requests arrive mid-teardown, then stops the machines.json watcher and
// closes the index store. The goroutines launched by Start are bound to
// Start's context and are not stopped here.
func (app *App) Shutdown(ctx context.Context) error {
	app.mu.Lock()
	defer app.mu.Unlock()

	log.Println("app: shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if app.httpServer != nil {
		if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("app: error shutting down HTTP server: %v", err)
		}
	}

	if app.stopMachineWatch != nil {
		app.stopMachineWatch()
	}

	if app.store != nil {
		if err := app.store.Close(); err != nil {
			log.Printf("app: error closing index store: %v", err)
		}
	}

	log.Println("app: shutdown complete")
	return nil
}

// Stop signals Run to shut down. Safe to call more than once.
func (app *App) Stop() {
	app.stopOnce.Do(func() {
		close(app.done)
	})
}
