// Package sessionmgr implements the Session Manager (§4.6): the
// admission-control and lifecycle authority owning the live session
// registry, active_count, and the FIFO waiting_queue. It owns the CLI and
// Terminal Adapter registries (§4.1, §4.2) and drives the Context Manager
// and Task State Machine as a consequence of its own transitions. Grounded
// on the teacher's internal/agents/spawner.go for the spawn/stop shape and
// internal/tasks/queue.go for the FIFO admission queue, generalized from
// the teacher's 3x3 WezTerm-pane grid bookkeeping to the spec's
// slot-counting admission model.
package sessionmgr

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sessionforge/sessionforge/internal/broadcaster"
	"github.com/sessionforge/sessionforge/internal/checklist"
	"github.com/sessionforge/sessionforge/internal/cliadapter"
	"github.com/sessionforge/sessionforge/internal/config"
	"github.com/sessionforge/sessionforge/internal/contextmgr"
	"github.com/sessionforge/sessionforge/internal/events"
	"github.com/sessionforge/sessionforge/internal/notify"
	"github.com/sessionforge/sessionforge/internal/orcherrors"
	"github.com/sessionforge/sessionforge/internal/store"
	"github.com/sessionforge/sessionforge/internal/taskfsm"
	"github.com/sessionforge/sessionforge/internal/termadapter"
	"github.com/sessionforge/sessionforge/internal/tmpl"
	"github.com/sessionforge/sessionforge/internal/types"
)

// Outcome is the synchronous result of a start() call (§6).
type Outcome string

const (
	OutcomeStarted Outcome = "started"
	OutcomeQueued  Outcome = "queued"
)

// registryEntry pairs a Session with the mutable bookkeeping the manager
// needs but which is not part of the externally-relevant Session shape.
type registryEntry struct {
	session *types.Session
	cancel  context.CancelFunc
}

// Manager is the Session Manager (§4.6).
type Manager struct {
	mu            sync.Mutex // guards everything below; never held across a blocking op (§5)
	registry      map[string]*registryEntry
	activeCount   int
	waitingQueue  []string

	settings     *config.Snapshot
	clis         *cliadapter.Registry
	terms        *termadapter.Registry
	contextMgr   *contextmgr.Manager
	fsm          *taskfsm.Machine
	tasks        *store.TaskStore
	bcast        *broadcaster.Broadcaster
	renderer     *tmpl.Renderer
	notifier     *notify.Notifier
	events       *events.Bus

	scratchDir  string
	callbackURL string
}

// New constructs a Manager wired to its collaborators.
func New(
	settings *config.Snapshot,
	clis *cliadapter.Registry,
	terms *termadapter.Registry,
	contextMgr *contextmgr.Manager,
	fsm *taskfsm.Machine,
	tasks *store.TaskStore,
	bcast *broadcaster.Broadcaster,
	renderer *tmpl.Renderer,
	notifier *notify.Notifier,
	eventBus *events.Bus,
	scratchDir, callbackURL string,
) *Manager {
	return &Manager{
		registry:    make(map[string]*registryEntry),
		settings:    settings,
		clis:        clis,
		terms:       terms,
		contextMgr:  contextMgr,
		fsm:         fsm,
		tasks:       tasks,
		bcast:       bcast,
		renderer:    renderer,
		notifier:    notifier,
		events:      eventBus,
		scratchDir:  scratchDir,
		callbackURL: callbackURL,
	}
}

// publish emits an internal event if an event bus is wired; nil-safe so
// callers (and tests) can construct a Manager without one.
func (m *Manager) publish(eventType, taskID string, data any) {
	if m.events == nil {
		return
	}
	m.events.Publish(events.NewEvent(eventType, taskID, data))
}

// Reconcile implements §3's startup lifecycle rule: every task persisted
// as in_progress/in_reviewing is either reconnected (not attempted here —
// the core has no reliable way to re-attach to a terminal it did not
// spawn, §9 "Restart on startup") or marked failed with *RecoveryFailed*.
func (m *Manager) Reconcile() error {
	for _, status := range []types.TaskStatus{types.TaskInProgress, types.TaskInReviewing} {
		tasks, err := m.tasks.ListByStatus(status)
		if err != nil {
			return fmt.Errorf("sessionmgr: reconcile list %s: %w", status, err)
		}
		for _, t := range tasks {
			now := time.Now()
			if err := m.tasks.UpdateStatus(t.ID, types.TaskFailed, string(orcherrors.RecoveryFailed), nil, now); err != nil {
				log.Printf("[SESSIONMGR] reconcile: failed to mark %s failed: %v", t.ID, err)
				continue
			}
			log.Printf("[SESSIONMGR] reconcile: task %s was %s at startup, marked failed (%s)", t.ID, status, orcherrors.RecoveryFailed)
		}
	}
	return nil
}

// StartOpts carries the per-start overrides an HTTP caller may supply.
type StartOpts struct {
	Dangerous bool
}

// Start implements §4.6 start(task_id, opts).
func (m *Manager) Start(ctx context.Context, task *types.Task, opts StartOpts) (Outcome, error) {
	if task.Status != types.TaskPending {
		return "", orcherrors.New(orcherrors.InvalidState, task.ID, fmt.Sprintf("task is %s, not pending", task.Status), nil)
	}

	m.mu.Lock()
	settings := m.settings.Get()
	if m.activeCount >= settings.MaxConcurrent {
		m.waitingQueue = append(m.waitingQueue, task.ID)
		m.mu.Unlock()
		log.Printf("[SESSIONMGR] task %s queued (active=%d max=%d)", task.ID, m.activeCount, settings.MaxConcurrent)
		return OutcomeQueued, nil
	}
	m.mu.Unlock()

	return m.spawn(ctx, task, opts, false)
}

// spawn runs the all-or-nothing steps of §4.6 start. isResume selects the
// CLI adapter's resume prompt instead of the initial_task template.
func (m *Manager) spawn(ctx context.Context, task *types.Task, opts StartOpts, isResume bool) (Outcome, error) {
	settings := m.settings.Get()

	cli, err := m.clis.Resolve(task.PreferredCLI, settings.DefaultCLI)
	if err != nil {
		return "", orcherrors.New(orcherrors.AdapterUnavailable, task.ID, "no CLI adapter", err)
	}
	term, err := m.terms.Resolve(string(settings.TerminalPreference))
	if err != nil {
		return "", orcherrors.New(orcherrors.AdapterUnavailable, task.ID, "no terminal adapter", err)
	}

	promptFile, err := m.writePrompt(task, cli, settings, isResume)
	if err != nil {
		return "", orcherrors.New(orcherrors.SpawnFailed, task.ID, "failed to render prompt", err)
	}

	argv := cli.LaunchCommand(task.ProjectDir, promptFile, opts.Dangerous)

	spawnCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	handle, err := term.Spawn(spawnCtx, task.ProjectDir, argv)
	cancel()
	if err != nil {
		if spawnCtx.Err() == context.DeadlineExceeded {
			return "", orcherrors.New(orcherrors.SpawnTimeout, task.ID, "spawn timed out", err)
		}
		return "", orcherrors.New(orcherrors.SpawnFailed, task.ID, "terminal spawn failed", err)
	}

	sessCtx, sessCancel := context.WithCancel(context.Background())

	m.mu.Lock()
	existing, had := m.registry[task.ID]
	counter := uint64(1)
	if had {
		counter = existing.session.Counter + 1
	}
	session := &types.Session{
		TaskID:       task.ID,
		CLIKind:      cli.Kind(),
		TerminalKind: types.TerminalKind(term.Kind()),
		StartedAt:    time.Now(),
		PID:          handle.PID,
		LastLiveness: time.Now(),
		Phase:        types.RunRunning,
		Counter:      counter,
		Handle:       handle,
		TaskStatus:   task.Status,
	}
	m.registry[task.ID] = &registryEntry{session: session, cancel: sessCancel}
	m.activeCount++
	m.mu.Unlock()

	m.contextMgr.Start(task.ID, session.StartedAt)

	// Only a fresh (pending) task needs the admission transition into
	// in_progress. A restart/context-exhausted respawn keeps the task at
	// whatever status it already holds (in_progress), and the cross-review
	// spawn's task has already been moved to in_reviewing by finish() before
	// spawn was ever called — re-applying either transition here would be
	// illegal under the §4.7 graph and would wrongly roll back a perfectly
	// good respawn.
	if task.Status == types.TaskPending {
		if err := m.fsm.TransitionTo(task, types.TaskInProgress, settings.ReviewEnabled); err != nil {
			m.rollback(task.ID, sessCtx, sessCancel, term, handle)
			return "", err
		}
		if err := m.tasks.UpdateStatus(task.ID, types.TaskInProgress, "", nil, time.Now()); err != nil {
			log.Printf("[SESSIONMGR] failed to persist in_progress for %s: %v", task.ID, err)
		}
		m.mu.Lock()
		session.TaskStatus = task.Status
		m.mu.Unlock()
	}

	m.publishSnapshot()
	m.publish("session.spawned", task.ID, map[string]any{"cli": string(cli.Kind()), "terminal": term.Kind(), "resume": isResume})
	log.Printf("[SESSIONMGR] task %s spawned (cli=%s term=%s resume=%v)", task.ID, cli.Kind(), term.Kind(), isResume)

	return OutcomeStarted, nil
}

func (m *Manager) rollback(taskID string, sessCtx context.Context, cancel context.CancelFunc, term termadapter.Adapter, handle termadapter.Handle) {
	cancel()
	closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCancel()
	_ = term.Close(closeCtx, handle)

	m.mu.Lock()
	if _, ok := m.registry[taskID]; ok {
		delete(m.registry, taskID)
		m.activeCount--
	}
	m.mu.Unlock()
	m.contextMgr.Stop(taskID)
}

func (m *Manager) writePrompt(task *types.Task, cli cliadapter.Adapter, settings types.Settings, isResume bool) (string, error) {
	vars := tmpl.Vars{
		ProjectName:   filepath.Base(task.ProjectDir),
		DocPath:       task.DocPath,
		FullDocPath:   filepath.Join(task.ProjectDir, task.DocPath),
		TaskID:        task.ID,
		CLIType:       string(cli.Kind()),
		ReviewEnabled: task.EffectiveReview(settings.ReviewEnabled),
		CallbackURL:   m.callbackURL,
	}

	var body string
	var err error
	if isResume {
		body = cli.ResumePrompt(task)
	} else {
		body, err = m.renderer.Render(tmpl.KindInitialTask, vars)
	}
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(m.scratchDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(m.scratchDir, task.ID+".prompt.txt")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// Stop implements §4.6 stop(task_id): tears down the live session and
// drives the operator-initiated status transition named in §4.6 ("the
// next task status... operator-initiated (pending) or automatic") and
// exercised by §8 scenario 6 (a stop issued while in_reviewing yields
// completed, never pending). in_progress resumes later from pending;
// in_reviewing is treated as "good enough to ship" and marked completed
// rather than losing the reviewed work back to the front of the queue.
func (m *Manager) Stop(ctx context.Context, task *types.Task) error {
	m.mu.Lock()
	entry, ok := m.registry[task.ID]
	if !ok {
		m.mu.Unlock()
		return nil // no-op on a task with no session (§8 round-trip law)
	}
	entry.session.Phase = types.RunStopping
	m.mu.Unlock()

	m.teardownSession(task.ID, entry)

	settings := m.settings.Get()
	reviewEnabled := task.EffectiveReview(settings.ReviewEnabled)
	now := time.Now()

	switch task.Status {
	case types.TaskInProgress:
		if err := m.fsm.TransitionTo(task, types.TaskPending, reviewEnabled); err != nil {
			return err
		}
		if err := m.tasks.UpdateStatus(task.ID, types.TaskPending, "", nil, now); err != nil {
			log.Printf("[SESSIONMGR] failed to persist pending for %s: %v", task.ID, err)
		}
	case types.TaskInReviewing:
		if err := m.fsm.TransitionTo(task, types.TaskCompleted, reviewEnabled); err != nil {
			return err
		}
		if err := m.tasks.UpdateStatus(task.ID, types.TaskCompleted, "", &now, now); err != nil {
			log.Printf("[SESSIONMGR] failed to persist completed for %s: %v", task.ID, err)
		}
	}

	m.publishSnapshot()
	m.publish("session.stopped", task.ID, map[string]any{"resulting_status": string(task.Status)})
	m.advanceQueue(ctx)
	return nil
}

// Pause implements the optional §4.6 pause(task_id): frees a slot without
// asserting a task-status change (left to the caller / state machine).
// Unlike Stop, it tears the session down directly rather than delegating,
// since Stop now always drives a status transition pause must not make.
func (m *Manager) Pause(ctx context.Context, taskID string) error {
	m.mu.Lock()
	entry, ok := m.registry[taskID]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	entry.session.Phase = types.RunPaused
	m.mu.Unlock()

	m.teardownSession(taskID, entry)
	m.publishSnapshot()
	m.advanceQueue(ctx)
	return nil
}

// StopAll implements §4.6 stop_all(): every stop is independent; failures
// are collected and reported.
func (m *Manager) StopAll(ctx context.Context) []error {
	m.mu.Lock()
	ids := make([]string, 0, len(m.registry))
	for id := range m.registry {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	var errs []error
	for _, id := range ids {
		task, err := m.tasks.Get(id)
		if err != nil {
			errs = append(errs, fmt.Errorf("stop %s: load task: %w", id, err))
			continue
		}
		if err := m.Stop(ctx, task); err != nil {
			errs = append(errs, fmt.Errorf("stop %s: %w", id, err))
		}
	}
	return errs
}

// Restart implements §4.6 restart(task_id, reason): stop + immediate
// re-start, bypassing admission (keeps its slot), using the resume prompt.
// It tears the prior incarnation down directly (not via Stop, which would
// wrongly flip the task to pending/completed) and reclaims the freed slot
// before anything else can hand it to the waiting queue.
func (m *Manager) Restart(ctx context.Context, task *types.Task, reason orcherrors.Kind) error {
	m.mu.Lock()
	entry, had := m.registry[task.ID]
	if had {
		entry.session.Phase = types.RunStopping
	}
	m.mu.Unlock()

	if had {
		m.teardownSession(task.ID, entry)
		m.mu.Lock()
		m.activeCount++
		m.mu.Unlock()
	}

	log.Printf("[SESSIONMGR] restarting task %s (%s)", task.ID, reason)
	m.publish("session.restarting", task.ID, map[string]any{"reason": string(reason)})
	_, err := m.spawn(ctx, task, StartOpts{}, true)
	if had {
		// Release the reservation: a successful spawn has counted the new
		// session itself, and a failed one leaves no session to count.
		m.mu.Lock()
		m.activeCount--
		m.mu.Unlock()
	}
	return err
}

// advanceQueue pops the oldest waiting task id and attempts to spawn it,
// called after every slot-freeing Stop, Pause, finish or fail. The queued
// task's current record is loaded back from the task store.
func (m *Manager) advanceQueue(ctx context.Context) {
	m.mu.Lock()
	if len(m.waitingQueue) == 0 {
		m.mu.Unlock()
		return
	}
	settings := m.settings.Get()
	if m.activeCount >= settings.MaxConcurrent {
		m.mu.Unlock()
		return
	}
	nextID := m.waitingQueue[0]
	m.waitingQueue = m.waitingQueue[1:]
	m.mu.Unlock()

	task, err := m.tasks.Get(nextID)
	if err != nil {
		log.Printf("[SESSIONMGR] advanceQueue: failed to load queued task %s: %v", nextID, err)
		return
	}
	if task.Status != types.TaskPending {
		return
	}
	if _, err := m.Start(ctx, task, StartOpts{}); err != nil {
		log.Printf("[SESSIONMGR] advanceQueue: failed to start queued task %s: %v", nextID, err)
	}
}

// NotifyStatus implements the CLI callback (§6): an advisory event that
// competes with and supplements output parsing. A later callback cannot
// regress a session from completed to in_progress — enforced because by
// the time a task reaches completed its Session has already been removed
// from the registry, so a late callback simply finds nothing to update.
func (m *Manager) NotifyStatus(task *types.Task, payload types.StatusPayload) error {
	m.mu.Lock()
	entry, ok := m.registry[task.ID]
	m.mu.Unlock()
	if !ok {
		return orcherrors.New(orcherrors.InvalidState, task.ID, "no live session for callback", nil)
	}

	if payload.ContextPercent != nil {
		m.contextMgr.Observe(task.ID, *payload.ContextPercent, time.Now())
	}
	entry.session.LastLiveness = time.Now()

	switch payload.Status {
	case "completed":
		return m.finish(task, entry, true)
	case "failed":
		return m.fail(task, entry, "reported failed via callback: "+payload.Message)
	default:
		return nil
	}
}

// finish drives a task from in_progress to completed or in_reviewing
// (§4.7), tearing down its session.
func (m *Manager) finish(task *types.Task, entry *registryEntry, stopSession bool) error {
	settings := m.settings.Get()
	reviewEnabled := task.EffectiveReview(settings.ReviewEnabled)

	if task.Status == types.TaskInProgress && reviewEnabled {
		if err := m.fsm.TransitionTo(task, types.TaskInReviewing, true); err != nil {
			return err
		}
		if err := m.tasks.UpdateStatus(task.ID, types.TaskInReviewing, "", nil, time.Now()); err != nil {
			log.Printf("[SESSIONMGR] failed to persist in_reviewing for %s: %v", task.ID, err)
		}
		if stopSession {
			m.teardownSession(task.ID, entry)
		}
		m.publishSnapshot()

		ctx := context.Background()
		reviewTask := *task
		reviewTask.PreferredCLI = settings.ReviewCLI
		reviewTask.Status = types.TaskInReviewing
		if _, err := m.spawn(ctx, &reviewTask, StartOpts{}, false); err != nil {
			log.Printf("[SESSIONMGR] cross-review spawn failed for %s: %v", task.ID, err)
		}
		return nil
	}

	if err := m.fsm.TransitionTo(task, types.TaskCompleted, reviewEnabled); err != nil {
		return err
	}
	now := time.Now()
	if err := m.tasks.UpdateStatus(task.ID, types.TaskCompleted, "", &now, now); err != nil {
		log.Printf("[SESSIONMGR] failed to persist completed for %s: %v", task.ID, err)
	}
	if stopSession {
		m.teardownSession(task.ID, entry)
	}
	m.publishSnapshot()
	m.publish("task.completed", task.ID, nil)
	m.advanceQueue(context.Background())
	return nil
}

func (m *Manager) fail(task *types.Task, entry *registryEntry, reason string) error {
	settings := m.settings.Get()
	if err := m.fsm.TransitionTo(task, types.TaskFailed, task.EffectiveReview(settings.ReviewEnabled)); err != nil {
		return err
	}
	now := time.Now()
	if err := m.tasks.UpdateStatus(task.ID, types.TaskFailed, reason, nil, now); err != nil {
		log.Printf("[SESSIONMGR] failed to persist failed for %s: %v", task.ID, err)
	}
	m.teardownSession(task.ID, entry)
	m.publishSnapshot()
	m.publish("task.failed", task.ID, map[string]any{"reason": reason})
	m.advanceQueue(context.Background())
	return nil
}

func (m *Manager) teardownSession(taskID string, entry *registryEntry) {
	settings := m.settings.Get()
	if term, err := m.terms.Resolve(string(settings.TerminalPreference)); err == nil {
		handle, _ := entry.session.Handle.(termadapter.Handle)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = term.Close(ctx, handle)
		cancel()
	}
	entry.cancel()

	m.mu.Lock()
	delete(m.registry, taskID)
	m.activeCount--
	m.mu.Unlock()
	m.contextMgr.Stop(taskID)
}

// HandleProcessDied drives the ProcessDied error into the state machine
// (watchdog-originated).
func (m *Manager) HandleProcessDied(task *types.Task) error {
	m.mu.Lock()
	entry, ok := m.registry[task.ID]
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return m.fail(task, entry, string(orcherrors.ProcessDied))
}

// HandleIdleLockup disambiguates an idle CLI using the Markdown checkbox
// inspector (§4.5): complete routes to completed (or in_reviewing), not
// complete routes to failed/IdleLockup.
func (m *Manager) HandleIdleLockup(task *types.Task) error {
	m.mu.Lock()
	entry, ok := m.registry[task.ID]
	m.mu.Unlock()
	if !ok {
		return nil
	}

	progress, err := checklist.ReadProgress(filepath.Join(task.ProjectDir, task.DocPath))
	if err != nil {
		log.Printf("[SESSIONMGR] idle-lockup: failed to read progress for %s: %v, treating as incomplete", task.ID, err)
		return m.fail(task, entry, string(orcherrors.IdleLockup))
	}
	if progress.Complete() {
		return m.finish(task, entry, true)
	}
	if m.notifier != nil {
		m.notifier.IdleLockup(task.ID)
	}
	return m.fail(task, entry, string(orcherrors.IdleLockup))
}

// HandleContextExhausted drives the §4.4 restart advisory into an actual
// restart via the state machine (it does not itself transition status —
// Restart keeps the task in_progress and simply re-spawns).
func (m *Manager) HandleContextExhausted(ctx context.Context, task *types.Task) error {
	return m.Restart(ctx, task, orcherrors.ContextExhausted)
}

// ShouldRestart exposes the Context Manager's restart advisory (§4.4) to
// the watchdog sweep, which polls it once per live session on every tick.
func (m *Manager) ShouldRestart(taskID string) bool {
	return m.contextMgr.ShouldRestart(taskID, time.Now())
}

// ListSessions returns the §6 list_sessions snapshot.
func (m *Manager) ListSessions() (sessions []*types.Session, active, maxConcurrent, available int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	settings := m.settings.Get()
	for _, e := range m.registry {
		sessions = append(sessions, e.session)
	}
	active = m.activeCount
	maxConcurrent = settings.MaxConcurrent
	available = maxConcurrent - active
	if available < 0 {
		available = 0
	}
	return
}

// Snapshot builds the broadcast payload (§6 push channel).
func (m *Manager) Snapshot() types.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	settings := m.settings.Get()
	entries := make([]types.SessionSnapshotEntry, 0, len(m.registry))
	for _, e := range m.registry {
		var pctPtr *int
		if v, ok := m.contextMgr.LastPercent(e.session.TaskID); ok {
			pctPtr = &v
		}
		entries = append(entries, types.SessionSnapshotEntry{
			TaskID:         e.session.TaskID,
			Status:         e.session.TaskStatus,
			PID:            e.session.PID,
			StartedAt:      e.session.StartedAt,
			ContextPercent: pctPtr,
		})
	}
	return types.Snapshot{
		Sessions:      entries,
		Count:         len(entries),
		MaxConcurrent: settings.MaxConcurrent,
		PublishedAt:   time.Now(),
	}
}

func (m *Manager) publishSnapshot() {
	m.bcast.Publish(m.Snapshot())
}

// Sessions returns a shallow copy of the live registry, for the watchdog's
// sweep.
func (m *Manager) Sessions() []*types.Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*types.Session, 0, len(m.registry))
	for _, e := range m.registry {
		out = append(out, e.session)
	}
	return out
}

// TerminalHandleFor returns the live terminal handle for a task id, for
// watchdog liveness probes.
func (m *Manager) TerminalHandleFor(taskID string) (termadapter.Handle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.registry[taskID]
	if !ok {
		return termadapter.Handle{}, false
	}
	h, ok := e.session.Handle.(termadapter.Handle)
	return h, ok
}

// TerminalAdapterFor resolves the terminal adapter currently configured
// (watchdog uses the same resolution policy as spawn).
func (m *Manager) TerminalAdapterFor() (termadapter.Adapter, error) {
	settings := m.settings.Get()
	return m.terms.Resolve(string(settings.TerminalPreference))
}

// CLIAdapterFor resolves the CLI adapter for kind, falling back to the
// configured default CLI when kind is empty (a task with no per-task
// override).
func (m *Manager) CLIAdapterFor(kind types.CLIKind) (cliadapter.Adapter, error) {
	return m.clis.Resolve(kind, m.settings.Get().DefaultCLI)
}

// HeartbeatTimeout exposes the configured watchdog heartbeat timeout.
func (m *Manager) HeartbeatTimeout() time.Duration {
	return m.settings.Get().HeartbeatTimeout
}
