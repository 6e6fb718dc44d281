// Command sessionforge runs the Session Orchestration Core's HTTP surface:
// it wires the Session Manager, Watchdog, Task/Settings stores and the
// CLI/Terminal adapter registries into one process and serves the §6
// HTTP + WebSocket surface. Flag handling follows the teacher's
// cmd/cliaimonitor/main.go shape (flag.* against a small, flat set of
// paths and ports) generalized to this core's own inputs.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sessionforge/sessionforge/internal/broadcaster"
	"github.com/sessionforge/sessionforge/internal/cliadapter"
	"github.com/sessionforge/sessionforge/internal/config"
	"github.com/sessionforge/sessionforge/internal/contextmgr"
	"github.com/sessionforge/sessionforge/internal/events"
	"github.com/sessionforge/sessionforge/internal/httpapi"
	"github.com/sessionforge/sessionforge/internal/notify"
	"github.com/sessionforge/sessionforge/internal/sessionmgr"
	"github.com/sessionforge/sessionforge/internal/store"
	"github.com/sessionforge/sessionforge/internal/taskfsm"
	"github.com/sessionforge/sessionforge/internal/termadapter"
	"github.com/sessionforge/sessionforge/internal/tmpl"
	"github.com/sessionforge/sessionforge/internal/watchdog"
)

func main() {
	port := flag.Int("port", 7337, "HTTP server port")
	configPath := flag.String("config", "configs/settings.yaml", "settings YAML file (optional; defaults are used if absent)")
	dbPath := flag.String("db", "data/sessionforge.db", "sqlite database path for tasks and settings")
	scratchDir := flag.String("scratch-dir", "data/scratch", "directory for scratch prompt files")
	callbackHost := flag.String("callback-host", "localhost", "hostname the spawned CLI should POST status callbacks to")
	flag.Parse()

	settings := config.Defaults()
	if *configPath != "" {
		if loaded, err := config.Load(*configPath); err == nil {
			settings = loaded
		} else if !errors.Is(err, os.ErrNotExist) {
			log.Fatalf("[SESSIONFORGE] failed to load %s: %v", *configPath, err)
		}
	}
	snapshot := config.NewSnapshot(settings)

	db, err := store.Open(*dbPath)
	if err != nil {
		log.Fatalf("[SESSIONFORGE] failed to open store: %v", err)
	}
	defer db.Close()

	taskStore := store.NewTaskStore(db)

	renderer, err := tmpl.New()
	if err != nil {
		log.Fatalf("[SESSIONFORGE] failed to build template renderer: %v", err)
	}

	clis := cliadapter.NewRegistry()
	terms := termadapter.NewRegistry()
	ctxMgr := contextmgr.New(settings.ContextRestartPercent, settings.MinimumRunDuration)
	fsm := taskfsm.New()
	bcast := broadcaster.New()
	notifier := notify.New("sessionforge")
	eventBus := events.NewBus()

	callbackURL := fmt.Sprintf("http://%s:%d/api/tasks", *callbackHost, *port)

	sessions := sessionmgr.New(snapshot, clis, terms, ctxMgr, fsm, taskStore, bcast, renderer, notifier, eventBus, *scratchDir, callbackURL)
	if err := sessions.Reconcile(); err != nil {
		log.Fatalf("[SESSIONFORGE] startup reconciliation failed: %v", err)
	}

	wd := watchdog.New(sessions, taskStore, notifier, settings.WatchdogInterval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go wd.Run(ctx)

	auditCh, unsubscribeAudit := eventBus.Subscribe()
	defer unsubscribeAudit()
	go func() {
		for ev := range auditCh {
			log.Printf("[AUDIT] %s task=%s id=%s data=%v", ev.Type, ev.TaskID, ev.ID, ev.Data)
		}
	}()

	api := httpapi.New(sessions, taskStore, fsm, bcast, wd)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", *port),
		Handler: api.Router(),
	}

	go func() {
		log.Printf("[SESSIONFORGE] listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[SESSIONFORGE] server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Printf("[SESSIONFORGE] shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)

	cancel()
	sessions.StopAll(context.Background())
}
