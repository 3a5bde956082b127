package action

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ItsNotGoodName/niri-taskbar/internal/niri"
	"github.com/ItsNotGoodName/niri-taskbar/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	requests []string
	err      error
	// failAt fails only the request with this 1-based index.
	failAt   int
}

func (f *fakeConn) Send(ctx context.Context, req niri.Request) (niri.Reply, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	f.requests = append(f.requests, string(b))
	if f.err != nil && (f.failAt == 0 || f.failAt == len(f.requests)) {
		return nil, f.err
	}
	return niri.Reply(`"Handled"`), nil
}

func seed(t *testing.T) *store.Store {
	t.Helper()

	s := store.New()
	seq := uint64(0)
	apply := func(payload any) {
		seq++
		require.True(t, s.Apply(niri.Event{Stream: "test", Seq: seq, Payload: payload}))
	}

	ws := func(id uint64, idx uint8, output string, active bool) niri.Workspace {
		return niri.Workspace{ID: id, Idx: idx, Output: niri.Ptr(output), IsActive: active}
	}
	tiled := func(id, workspace uint64, column, tile uint32) niri.Window {
		return niri.Window{ID: id, WorkspaceID: niri.Ptr(workspace), Layout: niri.WindowLayout{
			PosInScrollingLayout: &niri.Pair[uint32]{X: column, Y: tile},
		}}
	}

	apply(niri.WorkspacesChanged{Workspaces: []niri.Workspace{
		ws(1, 1, "A", true), ws(2, 2, "A", false),
		ws(3, 1, "B", true), ws(4, 2, "B", false),
	}})
	apply(niri.WindowsChanged{Windows: []niri.Window{
		{ID: 10, WorkspaceID: niri.Ptr[uint64](1), IsFloating: true},
		tiled(11, 1, 2, 1),
		tiled(12, 1, 1, 1),
		tiled(13, 1, 1, 2),
		tiled(30, 3, 1, 1),
	}})
	apply(niri.WindowFocusChanged{ID: niri.Ptr[uint64](12)})
	return s
}

func action(name string, fields string) string {
	return `{"Action":{"` + name + `":` + fields + `}}`
}

func TestDispatchFocusIsOptimistic(t *testing.T) {
	s := seed(t)
	conn := &fakeConn{}
	d := NewDispatcher(conn, s, s)

	require.NoError(t, d.Dispatch(context.Background(), Focus, 11))

	assert.Equal(t, []string{action("FocusWindow", `{"id":11}`)}, conn.requests)
	assert.Equal(t, uint64(11), s.FocusedWindow())
	require.Len(t, s.Pending(), 1)
	assert.Equal(t, store.PendingFocus, s.Pending()[0].Kind)
}

func TestDispatchFocusFailureRollsBack(t *testing.T) {
	s := seed(t)
	conn := &fakeConn{err: niri.ErrTimeout}
	d := NewDispatcher(conn, s, s)

	err := d.Dispatch(context.Background(), Focus, 11)
	assert.ErrorIs(t, err, niri.ErrTimeout)
	assert.Len(t, conn.requests, 1)
	assert.Empty(t, s.Pending())
	assert.Equal(t, uint64(12), s.FocusedWindow())
}

func TestDispatchErrors(t *testing.T) {
	s := seed(t)
	conn := &fakeConn{}
	d := NewDispatcher(conn, s, s)
	ctx := context.Background()

	assert.ErrorIs(t, d.Dispatch(ctx, Close, 99), ErrUnknownWindow)
	assert.ErrorIs(t, d.Dispatch(ctx, ExpelFromColumn, 11), ErrUnsupportedAction)
	assert.ErrorIs(t, d.Dispatch(ctx, MaximizeColumn, 10), ErrUnsupportedAction)
	assert.ErrorIs(t, d.Dispatch(ctx, MoveToWorkspaceUp, 12), ErrUnsupportedAction)
	assert.ErrorIs(t, d.Dispatch(ctx, MoveToMonitorLeft, 12), ErrUnsupportedAction)
	assert.ErrorIs(t, d.Dispatch(ctx, Menu, 12), ErrUnsupportedAction)
	assert.ErrorIs(t, d.Dispatch(ctx, ConsumeIntoColumn, 13), ErrUnsupportedAction)
	assert.ErrorIs(t, d.DispatchRequest(ctx, Request{Kind: MoveToMonitor, WindowID: 12, Output: "A"}), ErrUnsupportedAction)
	assert.ErrorIs(t, d.DispatchRequest(ctx, Request{Kind: MoveColumnToIndex, WindowID: 12}), ErrUnsupportedAction)
	assert.Empty(t, conn.requests)

	assert.NoError(t, d.Dispatch(ctx, None, 99))
	assert.Empty(t, conn.requests)
}

func TestDispatchFocusedOnlyActions(t *testing.T) {
	s := seed(t)
	conn := &fakeConn{}
	d := NewDispatcher(conn, s, s)

	require.NoError(t, d.Dispatch(context.Background(), MaximizeColumn, 11))
	assert.Equal(t, []string{
		action("FocusWindow", `{"id":11}`),
		action("MaximizeColumn", `{}`),
	}, conn.requests)
	assert.Equal(t, uint64(11), s.FocusedWindow())

	conn.requests = nil
	require.NoError(t, d.DispatchRequest(context.Background(), Request{Kind: ExpelFromColumn, WindowID: 13, PreserveFocus: true}))
	assert.Equal(t, []string{
		action("FocusWindow", `{"id":13}`),
		action("ExpelWindowFromColumn", `{}`),
		action("FocusWindow", `{"id":11}`),
	}, conn.requests)
	assert.Equal(t, uint64(11), s.FocusedWindow())
}

func TestDispatchRestoresFocusAfterFailure(t *testing.T) {
	s := seed(t)
	conn := &fakeConn{err: niri.RejectedError{Message: "no"}, failAt: 2}
	d := NewDispatcher(conn, s, s)

	err := d.DispatchRequest(context.Background(), Request{Kind: MoveColumnToIndex, WindowID: 11, Index: 1, PreserveFocus: true})
	var rejected niri.RejectedError
	assert.ErrorAs(t, err, &rejected)
	assert.Equal(t, []string{
		action("FocusWindow", `{"id":11}`),
		action("MoveColumnToIndex", `{"index":1}`),
		action("FocusWindow", `{"id":12}`),
	}, conn.requests)
	assert.Equal(t, uint64(12), s.FocusedWindow())
}

func TestDispatchPreserveFocusWithoutFocus(t *testing.T) {
	s := seed(t)
	require.True(t, s.Apply(niri.Event{Stream: "test", Seq: 100, Payload: niri.WindowFocusChanged{}}))
	require.Zero(t, s.FocusedWindow())

	conn := &fakeConn{}
	d := NewDispatcher(conn, s, s)

	require.NoError(t, d.DispatchRequest(context.Background(), Request{Kind: ExpelFromColumn, WindowID: 13, PreserveFocus: true}))
	assert.Equal(t, []string{
		action("FocusWindow", `{"id":13}`),
		action("ExpelWindowFromColumn", `{}`),
	}, conn.requests)
	assert.Equal(t, uint64(13), s.FocusedWindow())
}

func TestDispatchMoves(t *testing.T) {
	s := seed(t)
	conn := &fakeConn{}
	d := NewDispatcher(conn, s, s)
	ctx := context.Background()

	require.NoError(t, d.Dispatch(ctx, MoveToWorkspaceDn, 11))
	require.NoError(t, d.Dispatch(ctx, MoveToMonitorRight, 11))
	require.NoError(t, d.DispatchRequest(ctx, Request{Kind: MoveToMonitor, WindowID: 30, Output: "A", PreserveFocus: true}))
	require.NoError(t, d.Dispatch(ctx, Close, 10))

	assert.Equal(t, []string{
		action("MoveWindowToWorkspace", `{"focus":false,"reference":{"Id":2},"window_id":11}`),
		action("MoveWindowToMonitor", `{"id":11,"output":"B"}`),
		action("MoveWindowToMonitor", `{"id":30,"output":"A"}`),
		action("FocusWindow", `{"id":12}`),
		action("CloseWindow", `{"id":10}`),
	}, conn.requests)
}

func TestApplicable(t *testing.T) {
	s := seed(t)

	w, _ := s.Window(10)
	assert.Equal(t, []Kind{Focus, ToggleFloating, CyclePresetWidth, MoveToWorkspaceDn, MoveToMonitorRight, Close}, Applicable(s, w))

	w, _ = s.Window(11)
	assert.Contains(t, Applicable(s, w), ConsumeIntoColumn)
	assert.NotContains(t, Applicable(s, w), ExpelFromColumn)

	w, _ = s.Window(13)
	assert.Contains(t, Applicable(s, w), ExpelFromColumn)
	assert.NotContains(t, Applicable(s, w), ConsumeIntoColumn)
}

func TestParse(t *testing.T) {
	k, err := ParseKind("toggle-tabbed")
	require.NoError(t, err)
	assert.Equal(t, ToggleTabbed, k)
	assert.Equal(t, "Toggle Tabbed Display", k.Label())

	_, err = ParseKind("explode")
	assert.Error(t, err)

	_, err = ParseGesture("left")
	assert.NoError(t, err)
	_, err = ParseGesture("scroll")
	assert.Error(t, err)
}

func TestClickerResolve(t *testing.T) {
	b := DefaultBindings()
	c := NewClicker(300 * time.Millisecond)
	now := time.Now()

	assert.Equal(t, Focus, c.Resolve(Left, 1, false, b, now))
	assert.Equal(t, MaximizeColumn, c.Resolve(Left, 1, true, b, now))
	assert.Equal(t, None, c.Resolve(Left, 1, true, b, now.Add(200*time.Millisecond)))
	assert.Equal(t, MaximizeColumn, c.Resolve(Left, 1, true, b, now.Add(time.Second)))
	assert.Equal(t, Menu, c.Resolve(Right, 1, true, b, now))
	assert.Equal(t, Close, c.Resolve(Middle, 1, false, b, now))
	assert.Equal(t, None, c.Resolve(Double, 1, false, b, now))

	merged := Bindings{Middle: None}.Merge(b)
	assert.Equal(t, None, merged.Middle)
	assert.Equal(t, Focus, merged.Left)

	// Without a separate binding a focused click just focuses again.
	same := Bindings{LeftFocused: Focus}.Merge(b)
	assert.Equal(t, Focus, c.Resolve(Left, 2, true, same, now))
	assert.Equal(t, Focus, c.Resolve(Left, 2, true, same, now))
}
