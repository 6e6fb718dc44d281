// Package taskfsm implements the Task State Machine (§4.7): the legal
// transition graph and the single-writer-per-task-id serialization that
// guards it. Directly grounded on the teacher's internal/tasks/types.go,
// which keys a validTransitions map by current state and exposes a
// TransitionTo method checked against it; here the state set and graph are
// specific to pending/in_progress/in_reviewing/completed/failed.
package taskfsm

import (
	"fmt"
	"sync"

	"github.com/sessionforge/sessionforge/internal/orcherrors"
	"github.com/sessionforge/sessionforge/internal/types"
)

// validTransitions is the legal graph from spec §4.7. Keys are the
// "from" state; values are allowed "to" states.
var validTransitions = map[types.TaskStatus][]types.TaskStatus{
	types.TaskPending:     {types.TaskInProgress},
	types.TaskInProgress:  {types.TaskInReviewing, types.TaskCompleted, types.TaskFailed, types.TaskPending}, // operator stop
	types.TaskInReviewing: {types.TaskCompleted, types.TaskFailed},
	types.TaskCompleted:   {types.TaskPending}, // operator re-create
	types.TaskFailed:      {},                  // terminal; operator must re-create or manually reset
}

func isLegal(from, to types.TaskStatus) bool {
	for _, candidate := range validTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// Machine drives one Task's status, serializing transitions per task id
// with a keyed mutex (§5 "per task id, state transitions are strictly
// ordered").
type Machine struct {
	locks sync.Map // task id -> *sync.Mutex
}

// New constructs an empty Machine.
func New() *Machine {
	return &Machine{}
}

func (m *Machine) lockFor(taskID string) *sync.Mutex {
	l, _ := m.locks.LoadOrStore(taskID, &sync.Mutex{})
	return l.(*sync.Mutex)
}

// TransitionTo attempts to move task from its current status to to,
// serialized per task id. It validates against validTransitions and the
// §4.7 additional rules the plain graph can't express: in_progress may
// only reach in_reviewing when reviewEnabled is true, and a stop issued
// while in_reviewing must target completed, never pending (callers select
// "to" accordingly; this only guards the graph and the review gate).
func (m *Machine) TransitionTo(task *types.Task, to types.TaskStatus, reviewEnabled bool) error {
	lock := m.lockFor(task.ID)
	lock.Lock()
	defer lock.Unlock()

	from := task.Status
	if !isLegal(from, to) {
		return orcherrors.New(orcherrors.InvalidState, task.ID,
			fmt.Sprintf("illegal transition %s -> %s", from, to), nil)
	}
	if from == types.TaskInProgress && to == types.TaskInReviewing && !reviewEnabled {
		return orcherrors.New(orcherrors.InvalidState, task.ID,
			"in_progress -> in_reviewing requires review enabled", nil)
	}

	task.Status = to
	return nil
}

// WithLock runs fn while holding task's per-id lock, for callers (the
// Session Manager) that need to check-then-transition atomically against
// concurrent triggers for the same task.
func (m *Machine) WithLock(taskID string, fn func()) {
	lock := m.lockFor(taskID)
	lock.Lock()
	defer lock.Unlock()
	fn()
}

// IsTerminal reports whether status has no further automatic transitions
// (failed is terminal; completed can only be reopened by explicit
// operator re-creation, handled above the state machine).
func IsTerminal(status types.TaskStatus) bool {
	return status == types.TaskFailed
}

// HasLiveSession reports whether a task in this status must have exactly
// one live Session (invariant 2, §8): true for in_progress/in_reviewing.
func HasLiveSession(status types.TaskStatus) bool {
	return status == types.TaskInProgress || status == types.TaskInReviewing
}
