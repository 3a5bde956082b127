package api

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ItsNotGoodName/niri-taskbar/internal/action"
	"github.com/ItsNotGoodName/niri-taskbar/internal/build"
	"github.com/ItsNotGoodName/niri-taskbar/internal/config"
	"github.com/ItsNotGoodName/niri-taskbar/internal/drag"
	"github.com/ItsNotGoodName/niri-taskbar/internal/niri"
	"github.com/ItsNotGoodName/niri-taskbar/internal/rules"
	"github.com/ItsNotGoodName/niri-taskbar/internal/store"
	"github.com/ItsNotGoodName/niri-taskbar/internal/taskbar"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu  sync.Mutex
	err error
}

func (f *fakeConn) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeConn) Send(ctx context.Context, req niri.Request) (niri.Reply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return niri.Reply(`"Handled"`), nil
}

func newTaskbar(t *testing.T) (*taskbar.Taskbar, *fakeConn) {
	t.Helper()

	cfg := config.Default()
	engine, err := rules.Compile(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	st := store.New()
	st.SetOutputs(map[string]niri.Output{
		"A": {Name: "A", Logical: &niri.LogicalOutput{X: 0, Width: 1920, Height: 1080, Scale: 1}},
		"B": {Name: "B", Logical: &niri.LogicalOutput{X: 1920, Width: 1920, Height: 1080, Scale: 1}},
	})

	conn := &fakeConn{}
	tb := taskbar.New(st, conn, cfg, engine)
	go tb.Serve(ctx)

	tiled := func(id, workspace uint64, column uint32) niri.Window {
		return niri.Window{
			ID:          id,
			AppID:       niri.Ptr("foot"),
			Title:       niri.Ptr("foot"),
			WorkspaceID: niri.Ptr(workspace),
			Layout: niri.WindowLayout{
				PosInScrollingLayout: &niri.Pair[uint32]{X: column, Y: 1},
			},
		}
	}

	events := []any{
		niri.WorkspacesChanged{Workspaces: []niri.Workspace{
			{ID: 1, Idx: 1, Output: niri.Ptr("A"), IsActive: true},
			{ID: 2, Idx: 1, Output: niri.Ptr("B"), IsActive: true},
		}},
		niri.WindowsChanged{Windows: []niri.Window{
			tiled(11, 1, 1),
			tiled(12, 1, 2),
			{ID: 13, AppID: niri.Ptr("mpv"), WorkspaceID: niri.Ptr[uint64](1), IsFloating: true},
			tiled(21, 2, 1),
		}},
		niri.WindowFocusChanged{ID: niri.Ptr[uint64](12)},
	}
	for i, payload := range events {
		require.NoError(t, tb.Deliver(ctx, niri.Event{Stream: "test", Seq: uint64(i + 1), Payload: payload}))
	}

	return tb, conn
}

func newAPI(t *testing.T) (humatest.TestAPI, *fakeConn) {
	tb, conn := newTaskbar(t)
	_, api := humatest.New(t)
	Register(api, tb)
	return api, conn
}

func decode[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &v), resp.Body.String())
	return v
}

func TestStatus(t *testing.T) {
	api, _ := newAPI(t)

	resp := api.Get("/status")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	status := decode[taskbar.Status](t, resp)
	assert.Equal(t, uint64(12), status.Focused)
	assert.Equal(t, 4, status.Windows)
	assert.Equal(t, []string{"A", "B"}, status.Outputs)
	assert.Nil(t, status.Drag)
}

func TestBuild(t *testing.T) {
	api, _ := newAPI(t)

	resp := api.Get("/build")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, build.Current.Version, decode[build.Build](t, resp).Version)
}

func TestBars(t *testing.T) {
	api, _ := newAPI(t)

	resp := api.Get("/bars")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	bars := decode[[]taskbar.BarView](t, resp)
	require.Len(t, bars, 2)
	assert.Equal(t, []uint64{11, 12, 13}, bars[0].Order)
	assert.Equal(t, []uint64{21}, bars[1].Order)

	resp = api.Get("/bars/B")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "B", decode[taskbar.BarView](t, resp).Output)

	resp = api.Get("/bars/C")
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = api.Post("/bars/A/scroll", map[string]any{"delta": 1})
	require.Equal(t, http.StatusOK, resp.Code)
	// Everything fits so there is nothing to scroll.
	assert.Equal(t, 0, decode[taskbar.BarView](t, resp).Offset)
}

func TestMeasurements(t *testing.T) {
	api, _ := newAPI(t)

	resp := api.Put("/measurements", map[string]any{
		"widths": []Measurement{{ID: 11, Width: 100}, {ID: 12, Width: 0}},
	})
	require.Equal(t, http.StatusNoContent, resp.Code, resp.Body.String())

	bar := decode[taskbar.BarView](t, api.Get("/bars/A"))
	assert.Equal(t, 100, bar.Buttons[0].Width)
	assert.Equal(t, 150, bar.Buttons[1].Width)

	resp = api.Put("/measurements", map[string]any{
		"widths": []map[string]any{{"id": 11, "width": -1}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestClick(t *testing.T) {
	api, conn := newAPI(t)

	resp := api.Post("/windows/11/click", map[string]any{"gesture": "left"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, action.Focus, decode[taskbar.ClickResult](t, resp).Action)

	resp = api.Post("/windows/13/click", map[string]any{"gesture": "right"})
	require.Equal(t, http.StatusOK, resp.Code)
	res := decode[taskbar.ClickResult](t, resp)
	assert.Equal(t, action.Menu, res.Action)
	assert.NotEmpty(t, res.Menu)

	resp = api.Post("/windows/99/click", map[string]any{"gesture": "left"})
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = api.Post("/windows/11/click", map[string]any{"gesture": "sideways"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	conn.fail(fmt.Errorf("%w: FocusWindow", niri.ErrTimeout))
	resp = api.Post("/windows/12/click", map[string]any{"gesture": "middle"})
	assert.Equal(t, http.StatusGatewayTimeout, resp.Code)

	conn.fail(niri.RejectedError{Message: "no"})
	resp = api.Post("/windows/12/click", map[string]any{"gesture": "middle"})
	assert.Equal(t, http.StatusBadGateway, resp.Code)
}

func TestMenu(t *testing.T) {
	api, _ := newAPI(t)

	resp := api.Get("/windows/13/menu")
	require.Equal(t, http.StatusOK, resp.Code)
	items := decode[[]taskbar.MenuItem](t, resp)
	require.NotEmpty(t, items)
	for _, item := range items {
		assert.NotEqual(t, action.MaximizeColumn, item.Action, "floating window")
	}

	resp = api.Get("/windows/99/menu")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestDispatch(t *testing.T) {
	api, _ := newAPI(t)

	resp := api.Post("/actions", action.Request{Kind: action.Close, WindowID: 11})
	assert.Equal(t, http.StatusNoContent, resp.Code, resp.Body.String())

	resp = api.Post("/actions", action.Request{Kind: action.MaximizeColumn, WindowID: 13})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	resp = api.Post("/actions", action.Request{Kind: "explode", WindowID: 11})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	resp = api.Post("/actions", action.Request{Kind: action.MoveToMonitor, WindowID: 11, Output: "B"})
	assert.Equal(t, http.StatusNoContent, resp.Code, resp.Body.String())
}

func TestDrag(t *testing.T) {
	api, _ := newAPI(t)

	resp := api.Delete("/drag")
	assert.Equal(t, http.StatusConflict, resp.Code)

	resp = api.Post("/drag", map[string]any{"output": "A", "window_id": 99})
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = api.Post("/drag", map[string]any{"output": "A", "window_id": 13})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	session := decode[drag.Session](t, resp)
	assert.Equal(t, 2, session.Source)
	assert.NotEmpty(t, session.ID)

	resp = api.Post("/drag", map[string]any{"output": "A", "window_id": 11})
	assert.Equal(t, http.StatusConflict, resp.Code)

	resp = api.Put("/drag", map[string]any{"index": 0})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, []uint64{13, 11, 12}, decode[drag.Session](t, resp).Preview)

	status := decode[taskbar.Status](t, api.Get("/status"))
	require.NotNil(t, status.Drag)
	assert.Equal(t, uint64(13), status.Drag.WindowID)

	resp = api.Post("/drag/drop", map[string]any{"index": 0})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	out := decode[drag.Outcome](t, resp)
	assert.Equal(t, drag.Reordered, out.Result)
	assert.Equal(t, []uint64{13, 11, 12}, out.Order)

	bar := decode[taskbar.BarView](t, api.Get("/bars/A"))
	assert.Equal(t, []uint64{13, 11, 12}, bar.Order)

	resp = api.Post("/drag/drop", map[string]any{"index": 0})
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestEvents(t *testing.T) {
	tb, _ := newTaskbar(t)
	srv := httptest.NewServer(NewHandler(tb))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		var u taskbar.Update
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &u))
		assert.Equal(t, uint64(12), u.Status.Focused)
		assert.Len(t, u.Bars, 2)
		return
	}
	t.Fatal("no update", scanner.Err())
}
