package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/flabs/taskmanager/bus"
	"github.com/flabs/taskmanager/cluster/mocks"
	"github.com/flabs/taskmanager/task"
	"github.com/flabs/taskmanager/types"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, config types.Config) (*Server, *mocks.Cluster) {
	if config.Bridge.PermittedAddresses == "" {
		config.Bridge.PermittedAddresses = `^orchestrate\..*`
	}
	c := mocks.NewCluster(t)
	s, err := New(c, config)
	require.NoError(t, err)
	return s, c
}

func do(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) *types.ReplyError {
	body := &types.ReplyError{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), body))
	return body
}

func TestNewBadRegexp(t *testing.T) {
	_, err := New(mocks.NewCluster(t), types.Config{Bridge: types.BridgeConfig{PermittedAddresses: "("}})
	assert.Error(t, err)
}

func TestSpecs(t *testing.T) {
	s, c := newTestServer(t, types.Config{})
	spec := task.Define("simple-task", task.WithRoute("ETL_SERVICE"), task.WithPreConditions("EV-1"))

	c.On("ListTaskSpecs", mock.Anything).Return([]*types.TaskSpec{spec}, nil).Once()
	rec := do(s, http.MethodGet, "/api/specs", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	specs := []*types.TaskSpec{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &specs))
	require.Len(t, specs, 1)
	assert.Equal(t, "simple-task", specs[0].ID)

	c.On("GetTaskSpec", mock.Anything, "simple-task").Return(spec, nil).Once()
	rec = do(s, http.MethodGet, "/api/specs/simple-task", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	c.On("GetTaskSpec", mock.Anything, "nope").Return(nil, types.NewDetailedErr(types.ErrTaskSpecNotFound, "nope")).Once()
	rec = do(s, http.MethodGet, "/api/specs/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, http.StatusNotFound, decodeError(t, rec).Code)

	c.On("AddTaskSpecs", mock.Anything, mock.MatchedBy(func(s *types.TaskSpec) bool { return s.ID == "one" })).Return(nil).Once()
	rec = do(s, http.MethodPost, "/api/specs", `{"id": "one"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	c.On("AddTaskSpecs", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	rec = do(s, http.MethodPost, "/api/specs", `[{"id": "a"}, {"id": "b"}]`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = do(s, http.MethodPost, "/api/specs", `[]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(s, http.MethodPost, "/api/specs", `{bad`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c.On("RemoveTaskSpec", mock.Anything, "one").Return(nil).Once()
	rec = do(s, http.MethodDelete, "/api/specs/one", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestTasks(t *testing.T) {
	s, c := newTestServer(t, types.Config{})
	inst := task.NewInstance(task.Define("simple-task"), nil, nil)

	c.On("GetTask", mock.Anything, "simple-task").Return(inst, nil).Once()
	rec := do(s, http.MethodGet, "/api/tasks/simple-task", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	c.On("ListHierarchies", mock.Anything).Return([]*types.TaskInstance{inst}, nil).Once()
	rec = do(s, http.MethodGet, "/api/hierarchies", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	c.On("CloseTask", mock.Anything, "simple-task").Return("success - simple-task", nil).Once()
	rec = do(s, http.MethodPost, "/api/tasks/simple-task/close", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"result": "success - simple-task"}`, rec.Body.String())

	c.On("StartTask", mock.Anything, "nope").Return("", &types.ReplyError{Code: http.StatusNotFound, Message: "task instance not found"}).Once()
	rec = do(s, http.MethodPost, "/api/tasks/nope/start", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "task instance not found", decodeError(t, rec).Message)

	c.On("FailTask", mock.Anything, "slow").Return("", types.NewDetailedErr(types.ErrReplyTimeout, "orchestrate.task.fail")).Once()
	rec = do(s, http.MethodPost, "/api/tasks/slow/fail", "")
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
}

func TestHierarchies(t *testing.T) {
	s, c := newTestServer(t, types.Config{})

	c.On("RemoveHierarchy", mock.Anything, "R-2016").Return(nil).Once()
	rec := do(s, http.MethodDelete, "/api/hierarchies/R-2016", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	c.On("RemoveHierarchy", mock.Anything, "busy").Return(types.NewDetailedErr(types.ErrLockTimeout, "hierarchy_R")).Once()
	rec = do(s, http.MethodDelete, "/api/hierarchies/busy", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	c.On("RemoveHierarchy", mock.Anything, "running").Return(types.NewDetailedErr(types.ErrHierarchyActive, "running")).Once()
	rec = do(s, http.MethodDelete, "/api/hierarchies/running", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	c.On("PurgeHierarchies", mock.Anything).Return(3, nil).Once()
	rec = do(s, http.MethodPost, "/api/hierarchies/purge", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"purged": 3}`, rec.Body.String())
}

func TestSubmit(t *testing.T) {
	s, c := newTestServer(t, types.Config{})

	c.On("SubmitEvent", mock.Anything, mock.MatchedBy(func(ev *types.Event) bool {
		return ev.Type == "EV-1" && ev.Payload["date"] == "2016"
	})).Return(nil).Once()
	rec := do(s, http.MethodPost, "/api/events", `{"id": "ev1", "type": "EV-1", "payload": {"date": "2016"}}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	ev := &types.Event{ID: "dbBig-UK-Party", Type: "dbBig-UK-Party"}
	c.On("SubmitSourceMessage", mock.Anything, "db-big", mock.Anything).Return(ev, nil).Once()
	rec = do(s, http.MethodPost, "/api/sources/db-big", `{"publisher": "dbBig", "region": "UK", "dataClass": "Party"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	c.On("SubmitSourceMessage", mock.Anything, "nope", mock.Anything).Return(nil, types.NewDetailedErr(types.ErrUnknownSource, "nope")).Once()
	rec = do(s, http.MethodPost, "/api/sources/nope", `{}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBasicAuthAndMetrics(t *testing.T) {
	s, c := newTestServer(t, types.Config{
		Profile: ":9090",
		Auth:    types.AuthConfig{Username: "admin", Password: "secret"},
	})

	rec := do(s, http.MethodGet, "/api/specs", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	c.On("ListTaskSpecs", mock.Anything).Return([]*types.TaskSpec{}, nil).Once()
	req := httptest.NewRequest(http.MethodGet, "/api/specs", nil)
	req.SetBasicAuth("admin", "secret")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	rec = do(s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStreamEvents(t *testing.T) {
	s, c := newTestServer(t, types.Config{Bridge: types.BridgeConfig{Heartbeat: 50 * time.Millisecond}})

	rec := do(s, http.MethodGet, "/events?address=secret.stuff", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	ch := make(chan *bus.Message, 1)
	ch <- &bus.Message{Address: "orchestrate.unroutable", Body: &types.Event{ID: "x", Type: "nobody"}}
	c.On("Watch", mock.Anything, "orchestrate.unroutable").Return((<-chan *bus.Message)(ch), nil).Once()

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events?address=orchestrate.unroutable", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get(echo.HeaderContentType))

	scanner := bufio.NewScanner(resp.Body)
	var data string
	for scanner.Scan() {
		if line := scanner.Text(); strings.HasPrefix(line, "data: ") {
			data = strings.TrimPrefix(line, "data: ")
			break
		}
	}
	f := map[string]any{}
	require.NoError(t, json.Unmarshal([]byte(data), &f))
	assert.Equal(t, "orchestrate.unroutable", f["address"])
	assert.Equal(t, "nobody", f["body"].(map[string]any)["type"])
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusOf(types.ErrEmptyTaskID))
	assert.Equal(t, http.StatusServiceUnavailable, statusOf(types.NewDetailedErr(types.ErrNoConsumer, "x")))
	assert.Equal(t, http.StatusInternalServerError, statusOf(assert.AnError))
	assert.Equal(t, http.StatusTeapot, statusOf(echo.NewHTTPError(http.StatusTeapot)))
}
