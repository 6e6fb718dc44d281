package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
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
	"github.com/sessionforge/sessionforge/internal/sessionmgr"
	"github.com/sessionforge/sessionforge/internal/store"
	"github.com/sessionforge/sessionforge/internal/taskfsm"
	"github.com/sessionforge/sessionforge/internal/termadapter"
	"github.com/sessionforge/sessionforge/internal/tmpl"
	"github.com/sessionforge/sessionforge/internal/types"
	"github.com/sessionforge/sessionforge/internal/watchdog"
)

func newTestServer(t *testing.T) (*Server, *store.TaskStore) {
	t.Helper()

	db, err := store.Open(filepath.Join(t.TempDir(), "httpapi.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	tasks := store.NewTaskStore(db)

	renderer, err := tmpl.New()
	require.NoError(t, err)

	settings := config.NewSnapshot(config.Defaults())
	clis := cliadapter.NewRegistry()
	terms := termadapter.NewRegistry()
	ctxMgr := contextmgr.New(15, time.Minute)
	fsm := taskfsm.New()
	bcast := broadcaster.New()
	notifier := notify.New("sessionforge-test")

	sessions := sessionmgr.New(settings, clis, terms, ctxMgr, fsm, tasks, bcast, renderer, notifier, nil, t.TempDir(), "http://localhost:7337/api/tasks")
	wd := watchdog.New(sessions, tasks, notifier, time.Hour)

	return New(sessions, tasks, fsm, bcast, wd), tasks
}

func TestHandleStart_UnknownTaskReturns404(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("POST", "/api/tasks/missing/start", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, 404, w.Code)
}

func TestHandleNotifyStatus_MalformedBodyReturns400(t *testing.T) {
	srv, tasks := newTestServer(t)
	now := time.Now()
	require.NoError(t, tasks.Create(&types.Task{ID: "t1", ProjectDir: "/p", DocPath: "d.md", Status: types.TaskPending, CreatedAt: now, UpdatedAt: now}))

	req := httptest.NewRequest("POST", "/api/tasks/t1/notify_status", bytes.NewBufferString("not json"))
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, 400, w.Code)
}

func TestHandleNotifyStatus_NoLiveSessionReturnsConflict(t *testing.T) {
	srv, tasks := newTestServer(t)
	now := time.Now()
	require.NoError(t, tasks.Create(&types.Task{ID: "t1", ProjectDir: "/p", DocPath: "d.md", Status: types.TaskPending, CreatedAt: now, UpdatedAt: now}))

	body, _ := json.Marshal(types.StatusPayload{Status: "completed"})
	req := httptest.NewRequest("POST", "/api/tasks/t1/notify_status", bytes.NewBuffer(body))
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, 409, w.Code)
}

func TestHandleListSessions_EmptyRegistry(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/sessions", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, 200, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(0), body["active"])
}

func TestHandleStopAll_NoSessionsReturnsStoppedAll(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("POST", "/api/stop_all", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, 200, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "stopped_all", body["outcome"])
}

func TestHandleStop_NoSessionIsNoOp(t *testing.T) {
	srv, tasks := newTestServer(t)
	now := time.Now()
	require.NoError(t, tasks.Create(&types.Task{ID: "t2", ProjectDir: "/p", DocPath: "d.md", Status: types.TaskPending, CreatedAt: now, UpdatedAt: now}))

	req := httptest.NewRequest("POST", "/api/tasks/t2/stop", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
}
