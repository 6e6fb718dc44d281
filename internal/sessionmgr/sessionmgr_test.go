package sessionmgr

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sessionforge/sessionforge/internal/broadcaster"
	"github.com/sessionforge/sessionforge/internal/cliadapter"
	"github.com/sessionforge/sessionforge/internal/config"
	"github.com/sessionforge/sessionforge/internal/contextmgr"
	"github.com/sessionforge/sessionforge/internal/notify"
	"github.com/sessionforge/sessionforge/internal/orcherrors"
	"github.com/sessionforge/sessionforge/internal/store"
	"github.com/sessionforge/sessionforge/internal/taskfsm"
	"github.com/sessionforge/sessionforge/internal/termadapter"
	"github.com/sessionforge/sessionforge/internal/tmpl"
	"github.com/sessionforge/sessionforge/internal/types"
)

// newTestManager wires a Manager against real collaborators (no fakes for
// the CLI/Terminal adapter registries themselves — the registries always
// resolve, and only the outbound Spawn() exec call can fail in a sandboxed
// test environment with no kitty/wt.exe/osascript binary present, which is
// exactly the SpawnFailed path exercised below).
func newTestManager(t *testing.T, maxConcurrent int) (*Manager, *store.TaskStore) {
	t.Helper()

	db, err := store.Open(filepath.Join(t.TempDir(), "sessionmgr.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	tasks := store.NewTaskStore(db)

	renderer, err := tmpl.New()
	require.NoError(t, err)

	settings := config.Defaults()
	settings.MaxConcurrent = maxConcurrent
	snap := config.NewSnapshot(settings)

	m := New(
		snap,
		cliadapter.NewRegistry(),
		termadapter.NewRegistry(),
		contextmgr.New(settings.ContextRestartPercent, settings.MinimumRunDuration),
		taskfsm.New(),
		tasks,
		broadcaster.New(),
		renderer,
		notify.New("sessionforge-test"),
		nil,
		t.TempDir(),
		"http://localhost:7337/api/tasks",
	)
	return m, tasks
}

func newPendingTask(id string) *types.Task {
	now := time.Now()
	return &types.Task{ID: id, ProjectDir: "/tmp/proj", DocPath: "TASKS.md", Status: types.TaskPending, CreatedAt: now, UpdatedAt: now}
}

// registerFakeSession installs a live registry entry directly, bypassing
// spawn (which would need a real terminal binary), so Stop/Pause/Restart's
// teardown-and-transition logic can be exercised against a task that is
// already "running" as far as the Manager is concerned.
func registerFakeSession(m *Manager, taskID string) {
	_, cancel := context.WithCancel(context.Background())
	m.mu.Lock()
	m.registry[taskID] = &registryEntry{
		session: &types.Session{TaskID: taskID, Phase: types.RunRunning, StartedAt: time.Now(), LastLiveness: time.Now()},
		cancel:  cancel,
	}
	m.activeCount++
	m.mu.Unlock()
}

func TestStart_NonPendingTaskIsInvalidState(t *testing.T) {
	m, _ := newTestManager(t, 3)
	task := newPendingTask("t1")
	task.Status = types.TaskInProgress

	_, err := m.Start(context.Background(), task, StartOpts{})
	require.Error(t, err)
	assert.True(t, orcherrors.Is(err, orcherrors.InvalidState))
}

func TestStart_AtCapacityQueuesWithoutSpawning(t *testing.T) {
	m, _ := newTestManager(t, 0)
	task := newPendingTask("t1")

	outcome, err := m.Start(context.Background(), task, StartOpts{})
	require.NoError(t, err)
	assert.Equal(t, OutcomeQueued, outcome)
	assert.Equal(t, types.TaskPending, task.Status) // unchanged: never reached spawn
}

func TestStart_SpawnFailureRollsBackAndLeavesTaskPending(t *testing.T) {
	m, tasks := newTestManager(t, 3)
	task := newPendingTask("t1")
	require.NoError(t, tasks.Create(task))

	_, err := m.Start(context.Background(), task, StartOpts{})
	require.Error(t, err) // no real terminal binary available in this environment
	assert.Equal(t, types.TaskPending, task.Status)

	_, active, _, available := m.ListSessions()
	assert.Equal(t, 0, active)
	assert.Equal(t, 3, available)
}

func TestStop_NoSessionIsNoOp(t *testing.T) {
	m, _ := newTestManager(t, 3)
	task := newPendingTask("no-such-task")
	assert.NoError(t, m.Stop(context.Background(), task))
	assert.Equal(t, types.TaskPending, task.Status) // untouched: no live session to stop
}

func TestStop_InProgressReturnsToPending(t *testing.T) {
	m, tasks := newTestManager(t, 3)
	now := time.Now()
	task := &types.Task{ID: "t1", ProjectDir: "/p", DocPath: "d.md", Status: types.TaskInProgress, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, tasks.Create(task))
	registerFakeSession(m, task.ID)

	require.NoError(t, m.Stop(context.Background(), task))
	assert.Equal(t, types.TaskPending, task.Status)

	persisted, err := tasks.Get(task.ID)
	require.NoError(t, err)
	assert.Equal(t, types.TaskPending, persisted.Status)

	_, active, _, _ := m.ListSessions()
	assert.Equal(t, 0, active)
}

func TestStop_InReviewingCompletesRatherThanPending(t *testing.T) {
	m, tasks := newTestManager(t, 3)
	now := time.Now()
	task := &types.Task{ID: "t1", ProjectDir: "/p", DocPath: "d.md", Status: types.TaskInReviewing, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, tasks.Create(task))
	registerFakeSession(m, task.ID)

	require.NoError(t, m.Stop(context.Background(), task))
	assert.Equal(t, types.TaskCompleted, task.Status)

	persisted, err := tasks.Get(task.ID)
	require.NoError(t, err)
	assert.Equal(t, types.TaskCompleted, persisted.Status)
	require.NotNil(t, persisted.CompletedAt)
}

func TestPause_DoesNotChangeTaskStatus(t *testing.T) {
	m, tasks := newTestManager(t, 3)
	now := time.Now()
	task := &types.Task{ID: "t1", ProjectDir: "/p", DocPath: "d.md", Status: types.TaskInProgress, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, tasks.Create(task))
	registerFakeSession(m, task.ID)

	require.NoError(t, m.Pause(context.Background(), task.ID))

	persisted, err := tasks.Get(task.ID)
	require.NoError(t, err)
	assert.Equal(t, types.TaskInProgress, persisted.Status)

	_, active, _, _ := m.ListSessions()
	assert.Equal(t, 0, active)
}

func TestReconcile_MarksInProgressAndInReviewingFailed(t *testing.T) {
	m, tasks := newTestManager(t, 3)
	now := time.Now()
	require.NoError(t, tasks.Create(&types.Task{ID: "a", ProjectDir: "/p", DocPath: "d.md", Status: types.TaskInProgress, CreatedAt: now, UpdatedAt: now}))
	require.NoError(t, tasks.Create(&types.Task{ID: "b", ProjectDir: "/p", DocPath: "d.md", Status: types.TaskInReviewing, CreatedAt: now, UpdatedAt: now}))
	require.NoError(t, tasks.Create(&types.Task{ID: "c", ProjectDir: "/p", DocPath: "d.md", Status: types.TaskPending, CreatedAt: now, UpdatedAt: now}))

	require.NoError(t, m.Reconcile())

	a, err := tasks.Get("a")
	require.NoError(t, err)
	assert.Equal(t, types.TaskFailed, a.Status)

	b, err := tasks.Get("b")
	require.NoError(t, err)
	assert.Equal(t, types.TaskFailed, b.Status)

	c, err := tasks.Get("c")
	require.NoError(t, err)
	assert.Equal(t, types.TaskPending, c.Status) // untouched: was never running
}

func TestNotifyStatus_NoLiveSessionIsInvalidState(t *testing.T) {
	m, tasks := newTestManager(t, 3)
	task := newPendingTask("t1")
	require.NoError(t, tasks.Create(task))

	err := m.NotifyStatus(task, types.StatusPayload{Status: "completed"})
	require.Error(t, err)
	assert.True(t, orcherrors.Is(err, orcherrors.InvalidState))
}
