package http_test

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/reel"
	httpAdapter "github.com/aretw0/reel/pkg/adapters/http"
	"github.com/aretw0/reel/pkg/adapters/memory"
	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/observability"
	"github.com/aretw0/reel/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDeck() *domain.Deck {
	return &domain.Deck{
		Folders: []domain.Folder{{ID: "f1", Name: "F1", Order: 0}},
		Slides: []domain.Slide{
			{ID: "s1", Order: 1, FolderID: "f1"},
			{ID: "s2", Order: 2},
			{ID: "s3", Order: 3, FolderID: "f1"},
		},
	}
}

type fixture struct {
	handler http.Handler
	engine  *reel.Engine
	store   *memory.Store
	metrics *observability.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	metrics := observability.NewMetrics()
	store := memory.NewStore(testDeck())
	engine, err := reel.New(context.Background(), store,
		reel.WithLifecycleHooks(metrics.Hooks()),
		reel.WithSessionOptions(session.WithSessionCount(func(n int) { metrics.Sessions.Set(float64(n)) })),
	)
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close(context.Background()) })

	return &fixture{
		handler: httpAdapter.NewHandler(engine, httpAdapter.WithMetrics(metrics.Handler())),
		engine:  engine,
		store:   store,
		metrics: metrics,
	}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type sessionBody struct {
	ID       string               `json:"id"`
	State    domain.PlaybackState `json:"state"`
	Accepted *bool                `json:"accepted"`
}

type commitBody struct {
	Outcome domain.Outcome `json:"outcome"`
	Order   []struct {
		ID    string `json:"id"`
		Order int    `json:"order"`
	} `json:"order"`
	Results []struct {
		SlideID string         `json:"slide_id"`
		Outcome domain.Outcome `json:"outcome"`
		Error   string         `json:"error"`
	} `json:"results"`
}

func TestHealthAndInfo(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = f.do(t, "GET", "/info", "")
	require.Equal(t, http.StatusOK, w.Code)
	info := decode[map[string]any](t, w)
	assert.Equal(t, "reel-http", info["app"])
	assert.EqualValues(t, 3, info["slides"])
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, "OPTIONS", "/deck", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestGetDeck(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, "GET", "/deck", "")
	require.Equal(t, http.StatusOK, w.Code)

	deck := decode[domain.Deck](t, w)
	require.Len(t, deck.Slides, 3)
	assert.Equal(t, "s1", deck.Slides[0].ID)
	assert.Equal(t, "F1", deck.Folders[0].Name)
}

func TestGetGraph(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, "GET", "/deck/graph", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "graph TD")
	assert.Contains(t, w.Body.String(), "subgraph folder_f1")

	w = f.do(t, "GET", "/deck/graph?session=nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReorder(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, "POST", "/deck/reorder", `{"ids":["s3","s1","s2"]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode[commitBody](t, w)
	assert.Equal(t, domain.OutcomeSuccess, body.Outcome)
	require.Len(t, body.Order, 3)
	assert.Equal(t, "s3", body.Order[0].ID)
	assert.Equal(t, 1, body.Order[0].Order)

	first, _ := f.engine.Graph().At(0)
	assert.Equal(t, "s3", first.ID)
}

func TestReorder_Errors(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusBadRequest, f.do(t, "POST", "/deck/reorder", `{`).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, "POST", "/deck/reorder", `{"ids":["ghost"]}`).Code)
}

func TestPutConnections(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, "PUT", "/slides/s1/connections", `{"default_next":"s3"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "s3", f.engine.Resolve("s1", domain.Trigger{}).SlideID)

	assert.Equal(t, http.StatusNotFound, f.do(t, "PUT", "/slides/ghost/connections", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, "PUT", "/slides/s1/connections", `[`).Code)
}

func TestPutConnections_Conflict(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.SetConnections(context.Background(), "s2", domain.Connections{DefaultNext: "s1"}, 0)
	require.NoError(t, err)

	w := f.do(t, "PUT", "/slides/s2/connections", `{"default_next":"s3"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	body := decode[commitBody](t, w)
	require.Len(t, body.Results, 1)
	assert.Equal(t, domain.OutcomeConflict, body.Results[0].Outcome)
	assert.NotEmpty(t, body.Results[0].Error)
}

func TestSessionLifecycle(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, "POST", "/sessions", "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[sessionBody](t, w)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "s1", created.State.ActiveID)

	base := "/sessions/" + created.ID
	w = f.do(t, "POST", base+"/key", `{"delta":1}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	moved := decode[sessionBody](t, w)
	require.NotNil(t, moved.Accepted)
	assert.True(t, *moved.Accepted)
	assert.Equal(t, "s2", moved.State.ActiveID)

	w = f.do(t, "POST", base+"/element", `{"element":{"id":"g","kind":"gate-button","locked":true}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decode[sessionBody](t, w).State.Locked)

	w = f.do(t, "POST", base+"/key", `{"delta":1}`)
	assert.Equal(t, "s2", decode[sessionBody](t, w).State.ActiveID, "locked slide reverses forward motion")

	w = f.do(t, "POST", base+"/release", `{"element_id":"g"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[sessionBody](t, w).State.Locked)

	w = f.do(t, "GET", base, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created.ID, decode[sessionBody](t, w).ID)

	w = f.do(t, "GET", "/sessions", "")
	assert.Contains(t, w.Body.String(), created.ID)

	assert.Equal(t, http.StatusNoContent, f.do(t, "DELETE", base, "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, "GET", base, "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, "DELETE", base, "").Code)
}

func TestCreateSession_StartSlide(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, "POST", "/sessions", `{"start":"s3"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "s3", decode[sessionBody](t, w).State.ActiveID)

	assert.Equal(t, http.StatusNotFound, f.do(t, "POST", "/sessions", `{"start":"ghost"}`).Code)
}

func TestDispatch_Errors(t *testing.T) {
	f := newFixture(t)
	created := decode[sessionBody](t, f.do(t, "POST", "/sessions", ""))
	base := "/sessions/" + created.ID

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"unknown command", base + "/teleport", `{}`, http.StatusBadRequest},
		{"bad json", base + "/key", `{`, http.StatusBadRequest},
		{"bad element", base + "/element", `{"element":{"id":"x","kind":"slider"}}`, http.StatusBadRequest},
		{"release without element", base + "/release", `{}`, http.StatusBadRequest},
		{"unknown session", "/sessions/nope/key", `{"delta":1}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.do(t, "POST", tt.path, tt.body).Code)
		})
	}
}

func TestMetrics(t *testing.T) {
	f := newFixture(t)
	created := decode[sessionBody](t, f.do(t, "POST", "/sessions", ""))
	f.do(t, "POST", "/sessions/"+created.ID+"/key", `{"delta":1}`)

	w := f.do(t, "GET", "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "reel_active_sessions 1")
	assert.Contains(t, body, `reel_transitions_total{cause="key",rule="none"} 1`)
}

func TestSubscribeEvents(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	created := decode[sessionBody](t, f.do(t, "POST", "/sessions", ""))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/sessions/"+created.ID+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readEvent := func() (string, string) {
		var name, data string
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			line = strings.TrimRight(line, "\n")
			switch {
			case strings.HasPrefix(line, "event: "):
				name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			case line == "":
				return name, data
			}
		}
	}

	name, _ := readEvent()
	require.Equal(t, "ping", name)

	f.do(t, "POST", "/sessions/"+created.ID+"/key", `{"delta":1}`)

	name, data := readEvent()
	assert.Equal(t, "scroll", name)
	var ev session.ViewportEvent
	require.NoError(t, json.Unmarshal([]byte(data), &ev))
	assert.Equal(t, 1, ev.Index)
	assert.Equal(t, created.ID, ev.SessionID)

	f.do(t, "DELETE", "/sessions/"+created.ID, "")
	name, _ = readEvent()
	assert.Equal(t, "closed", name)
}

func TestSubscribeEvents_UnknownSession(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusNotFound, f.do(t, "GET", "/sessions/nope/events", "").Code)
}
