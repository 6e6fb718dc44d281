// Package watchdog implements the Watchdog (§4.5): a single supervisory
// loop waking on a fixed interval, computing a liveness verdict and polling
// the context-restart advisory for every registered session and driving
// recovery through the Session Manager. The idle-lockup verdict is not part
// of the sweep: the terminal adapters expose no output stream, so it is
// computed by CheckIdleSignature when a CLI callback's message arrives.
// Grounded on the teacher's internal/instance/manager.go
// (PID-based HealthCheck polling) and internal/metrics/collector.go's
// idle/active bookkeeping, generalized to the spec's three-valued liveness
// and idle-lockup disambiguation via the Markdown checkbox inspector.
package watchdog

import (
	"context"
	"log"
	"time"

	"github.com/sessionforge/sessionforge/internal/cliadapter"
	"github.com/sessionforge/sessionforge/internal/notify"
	"github.com/sessionforge/sessionforge/internal/store"
	"github.com/sessionforge/sessionforge/internal/termadapter"
	"github.com/sessionforge/sessionforge/internal/types"
)

// SessionController is the subset of the Session Manager the watchdog
// drives; narrowed to an interface so this package never depends on
// sessionmgr directly (avoids an import cycle, since sessionmgr already
// depends on checklist/store/etc. that watchdog also touches).
type SessionController interface {
	Sessions() []*types.Session
	TerminalHandleFor(taskID string) (termadapter.Handle, bool)
	TerminalAdapterFor() (termadapter.Adapter, error)
	CLIAdapterFor(kind types.CLIKind) (cliadapter.Adapter, error)
	HeartbeatTimeout() time.Duration
	HandleProcessDied(task *types.Task) error
	HandleIdleLockup(task *types.Task) error
	ShouldRestart(taskID string) bool
	HandleContextExhausted(ctx context.Context, task *types.Task) error
}

// Watchdog runs the periodic sweep.
type Watchdog struct {
	sessions SessionController
	tasks    *store.TaskStore
	notifier *notify.Notifier
	interval time.Duration
}

// New constructs a Watchdog with the given sweep interval.
func New(sessions SessionController, tasks *store.TaskStore, notifier *notify.Notifier, interval time.Duration) *Watchdog {
	return &Watchdog{sessions: sessions, tasks: tasks, notifier: notifier, interval: interval}
}

// Run blocks, sweeping on every tick until ctx is canceled. A defective
// sweep logs and retries on the next tick — one bad session must never
// halt supervision of the others (§7 "Propagation policy").
func (w *Watchdog) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweepSafely()
		}
	}
}

func (w *Watchdog) sweepSafely() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[WATCHDOG] sweep panicked, recovering: %v", r)
		}
	}()
	w.sweep()
}

func (w *Watchdog) sweep() {
	for _, sess := range w.sessions.Sessions() {
		if sess.Phase == types.RunStopping {
			continue // a stop is already in flight; don't race it
		}
		w.checkOne(sess)
	}
}

// checkOne computes at most one verdict per session per sweep (§4.5
// "coalesced"): liveness is checked first; only a session not pronounced
// dead is then checked against the context-restart advisory.
func (w *Watchdog) checkOne(sess *types.Session) {
	task, err := w.tasks.Get(sess.TaskID)
	if err != nil {
		log.Printf("[WATCHDOG] failed to load task %s: %v", sess.TaskID, err)
		return
	}

	liveness := w.probeLiveness(sess)
	switch liveness {
	case termadapter.Dead:
		log.Printf("[WATCHDOG] task %s: process died", task.ID)
		w.notifyDied(task.ID, "process died")
		if err := w.sessions.HandleProcessDied(task); err != nil {
			log.Printf("[WATCHDOG] HandleProcessDied(%s) failed: %v", task.ID, err)
		}
		return
	case termadapter.Unknown:
		if time.Since(sess.LastLiveness) > w.sessions.HeartbeatTimeout() {
			log.Printf("[WATCHDOG] task %s: no activity for heartbeat_timeout, treating as dead", task.ID)
			w.notifyDied(task.ID, "heartbeat timeout")
			if err := w.sessions.HandleProcessDied(task); err != nil {
				log.Printf("[WATCHDOG] HandleProcessDied(%s) failed: %v", task.ID, err)
			}
			return
		}
	}

	// Alive (or Unknown-but-within-heartbeat). Idle-lockup is not checked
	// here: idle detection needs an output sample, and the terminal adapter
	// offers no output capture (§4.2 names only spawn/is_alive/close), so
	// it runs in CheckIdleSignature off the CLI callback's free-form
	// message instead (see DESIGN.md).

	// Context-exhaustion restart advisory (§4.4): polled every sweep so a
	// session that never calls back again after its last low reading
	// still gets restarted, not just ones lucky enough to notify again.
	if w.sessions.ShouldRestart(task.ID) {
		log.Printf("[WATCHDOG] task %s: context exhausted, restarting", task.ID)
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := w.sessions.HandleContextExhausted(ctx, task); err != nil {
			log.Printf("[WATCHDOG] HandleContextExhausted(%s) failed: %v", task.ID, err)
		}
	}
}

func (w *Watchdog) probeLiveness(sess *types.Session) termadapter.Liveness {
	term, err := w.sessions.TerminalAdapterFor()
	if err != nil {
		return termadapter.Unknown
	}
	handle, ok := w.sessions.TerminalHandleFor(sess.TaskID)
	if !ok {
		return termadapter.Unknown
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return term.IsAlive(ctx, handle)
}

// CheckIdleSignature is invoked by the HTTP layer's callback handler when
// a CLI callback's free-form message arrives: the watchdog's idle-lockup
// verdict is event-driven off that message rather than off the fixed
// sweep, since the core has no independent output stream to poll (see
// package doc). A task not yet marked complete whose CLI just went idle
// is routed through HandleIdleLockup for checkbox disambiguation.
func (w *Watchdog) CheckIdleSignature(task *types.Task, outputTail string) {
	cli, err := w.sessions.CLIAdapterFor(task.PreferredCLI)
	if err != nil {
		return
	}
	if !cli.IdleSignature(outputTail) {
		return
	}
	if task.Status != types.TaskInProgress && task.Status != types.TaskInReviewing {
		return
	}
	log.Printf("[WATCHDOG] task %s: idle signature observed", task.ID)
	if err := w.sessions.HandleIdleLockup(task); err != nil {
		log.Printf("[WATCHDOG] HandleIdleLockup(%s) failed: %v", task.ID, err)
	}
}

func (w *Watchdog) notifyDied(taskID, reason string) {
	if w.notifier == nil {
		return
	}
	w.notifier.SessionDied(taskID, reason)
}
