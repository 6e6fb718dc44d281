// Package httpapi implements the HTTP surface consumed by the core (§6):
// start/stop/pause/restart/stop_all, the CLI callback (notify_status),
// list_sessions, and the WebSocket subscribe endpoint. Framing concerns
// (request validation beyond what's needed to dispatch, auth, UI) are
// explicitly out of scope (§1 Non-goals) — this package is a thin
// dispatcher onto sessionmgr, taskfsm and store. Routing is
// github.com/gorilla/mux, matching the teacher's internal/server/server.go
// setupRoutes.
package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/sessionforge/sessionforge/internal/broadcaster"
	"github.com/sessionforge/sessionforge/internal/orcherrors"
	"github.com/sessionforge/sessionforge/internal/sessionmgr"
	"github.com/sessionforge/sessionforge/internal/store"
	"github.com/sessionforge/sessionforge/internal/taskfsm"
	"github.com/sessionforge/sessionforge/internal/types"
	"github.com/sessionforge/sessionforge/internal/watchdog"
)

// Server wires the HTTP surface to the core components.
type Server struct {
	sessions *sessionmgr.Manager
	tasks    *store.TaskStore
	fsm      *taskfsm.Machine
	bcast    *broadcaster.Broadcaster
	wd       *watchdog.Watchdog
}

// New constructs a Server.
func New(sessions *sessionmgr.Manager, tasks *store.TaskStore, fsm *taskfsm.Machine, bcast *broadcaster.Broadcaster, wd *watchdog.Watchdog) *Server {
	return &Server{sessions: sessions, tasks: tasks, fsm: fsm, bcast: bcast, wd: wd}
}

// Router builds the gorilla/mux router for this surface.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/tasks/{id}/start", s.handleStart).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{id}/stop", s.handleStop).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{id}/pause", s.handlePause).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{id}/restart", s.handleRestart).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{id}/notify_status", s.handleNotifyStatus).Methods(http.MethodPost)
	api.HandleFunc("/stop_all", s.handleStopAll).Methods(http.MethodPost)
	api.HandleFunc("/sessions", s.handleListSessions).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.bcast.ServeWS)

	return r
}

func (s *Server) loadTask(w http.ResponseWriter, r *http.Request) (*types.Task, bool) {
	id := mux.Vars(r)["id"]
	task, err := s.tasks.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, orcherrors.InvalidState, "task not found")
		return nil, false
	}
	return task, true
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	task, ok := s.loadTask(w, r)
	if !ok {
		return
	}

	var body struct {
		Dangerous bool `json:"dangerous"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	outcome, err := s.sessions.Start(ctx, task, sessionmgr.StartOpts{Dangerous: body.Dangerous})
	if err != nil {
		writeOrchError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"outcome": string(outcome)})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	task, ok := s.loadTask(w, r)
	if !ok {
		return
	}
	if err := s.sessions.Stop(r.Context(), task); err != nil {
		writeOrchError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"outcome": "stopped"})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	task, ok := s.loadTask(w, r)
	if !ok {
		return
	}
	if err := s.sessions.Pause(r.Context(), task.ID); err != nil {
		writeOrchError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"outcome": "paused"})
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	task, ok := s.loadTask(w, r)
	if !ok {
		return
	}
	if err := s.sessions.Restart(r.Context(), task, orcherrors.Kind("operator_restart")); err != nil {
		writeOrchError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"outcome": "restarted"})
}

func (s *Server) handleStopAll(w http.ResponseWriter, r *http.Request) {
	errs := s.sessions.StopAll(r.Context())
	if len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		writeJSON(w, http.StatusMultiStatus, map[string]any{"outcome": "partial", "errors": msgs})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"outcome": "stopped_all"})
}

func (s *Server) handleNotifyStatus(w http.ResponseWriter, r *http.Request) {
	task, ok := s.loadTask(w, r)
	if !ok {
		return
	}

	var payload types.StatusPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, orcherrors.InvalidState, "malformed payload")
		return
	}

	if err := s.sessions.NotifyStatus(task, payload); err != nil {
		writeOrchError(w, err)
		return
	}

	// The free-form message doubles as the output tail the idle-lockup
	// verdict needs, since the Terminal Adapter exposes no independent
	// output stream (§4.2); see DESIGN.md.
	if payload.Message != "" {
		s.wd.CheckIdleSignature(task, payload.Message)
	}

	writeJSON(w, http.StatusOK, map[string]string{"outcome": "accepted"})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, active, maxConcurrent, available := s.sessions.ListSessions()

	entries := make([]types.SessionSnapshotEntry, 0, len(sessions))
	for _, sess := range sessions {
		entries = append(entries, types.SessionSnapshotEntry{
			TaskID:    sess.TaskID,
			PID:       sess.PID,
			StartedAt: sess.StartedAt,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sessions":        entries,
		"active":          active,
		"max_concurrent":  maxConcurrent,
		"available_slots": available,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("[HTTPAPI] failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, kind orcherrors.Kind, reason string) {
	writeJSON(w, status, map[string]string{"error": string(kind), "reason": reason})
}

func writeOrchError(w http.ResponseWriter, err error) {
	var status int
	kind := orcherrors.Kind("unknown")
	if oe, ok := err.(*orcherrors.OrchError); ok {
		kind = oe.Kind
	}
	switch kind {
	case orcherrors.InvalidState:
		status = http.StatusConflict
	case orcherrors.CapacityReached:
		status = http.StatusAccepted
	case orcherrors.SpawnFailed, orcherrors.SpawnTimeout, orcherrors.AdapterUnavailable:
		status = http.StatusInternalServerError
	default:
		status = http.StatusInternalServerError
	}
	writeError(w, status, kind, err.Error())
}
