package store

import (
	"testing"
	"time"

	"github.com/ItsNotGoodName/niri-taskbar/internal/niri"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type eventer struct {
	seq uint64
}

func (e *eventer) next(payload any) niri.Event {
	e.seq++
	return niri.Event{Stream: "test", Seq: e.seq, Payload: payload}
}

func workspace(id uint64, idx uint8, output string, active bool) niri.Workspace {
	return niri.Workspace{ID: id, Idx: idx, Output: niri.Ptr(output), IsActive: active}
}

func tiled(id, workspace uint64, column, tile uint32) niri.Window {
	return niri.Window{
		ID:          id,
		AppID:       niri.Ptr("app"),
		Title:       niri.Ptr("title"),
		WorkspaceID: niri.Ptr(workspace),
		Layout: niri.WindowLayout{
			PosInScrollingLayout: &niri.Pair[uint32]{X: column, Y: tile},
		},
	}
}

func floating(id, workspace uint64) niri.Window {
	return niri.Window{ID: id, WorkspaceID: niri.Ptr(workspace), IsFloating: true}
}

func seed(t *testing.T) (*Store, *eventer) {
	t.Helper()

	s, e := New(), &eventer{}
	require.True(t, s.Apply(e.next(niri.WorkspacesChanged{Workspaces: []niri.Workspace{
		workspace(1, 1, "A", true),
		workspace(2, 2, "A", false),
		workspace(3, 1, "B", true),
		workspace(4, 2, "B", false),
	}})))
	require.True(t, s.Apply(e.next(niri.WindowsChanged{Windows: []niri.Window{
		floating(10, 1),
		tiled(11, 1, 2, 1),
		tiled(12, 1, 1, 1),
		tiled(13, 1, 1, 2),
		tiled(20, 2, 1, 1),
		tiled(30, 3, 1, 1),
	}})))
	return s, e
}

func ids(windows []Window) []uint64 {
	out := make([]uint64, 0, len(windows))
	for _, w := range windows {
		out = append(out, w.ID)
	}
	return out
}

func activeCount(s *Store, output string) int {
	count := 0
	for _, w := range []uint64{1, 2, 3, 4} {
		ws, ok := s.Workspace(w)
		if ok && ws.Output == output && ws.Active {
			count++
		}
	}
	return count
}

func TestSnapshotOrder(t *testing.T) {
	s, _ := seed(t)

	assert.Equal(t, []uint64{12, 13, 11, 10}, ids(s.Snapshot("A")))
	assert.Equal(t, []uint64{30}, ids(s.Snapshot("B")))
	assert.Equal(t, []uint64{12, 13, 11, 10, 20}, ids(s.OutputWindows("A")))
	assert.Nil(t, s.Snapshot("missing"))

	w, ok := s.Window(12)
	require.True(t, ok)
	assert.Equal(t, "A", w.Output)
	assert.Equal(t, 2, s.ColumnSize(12))
	assert.Equal(t, 1, s.ColumnSize(11))
	assert.Equal(t, 0, s.ColumnSize(10))
}

func TestWorkspaceActivatedIsOutputScoped(t *testing.T) {
	s, e := seed(t)
	before := ids(s.Snapshot("A"))

	require.True(t, s.Apply(e.next(niri.WorkspaceActivated{ID: 4, Focused: true})))

	ws, _ := s.ActiveWorkspace("A")
	assert.Equal(t, uint64(1), ws.ID)
	ws, _ = s.ActiveWorkspace("B")
	assert.Equal(t, uint64(4), ws.ID)
	assert.Equal(t, before, ids(s.Snapshot("A")))
	assert.Empty(t, s.Snapshot("B"))

	assert.Equal(t, 1, activeCount(s, "A"))
	assert.Equal(t, 1, activeCount(s, "B"))

	require.True(t, s.Apply(e.next(niri.WorkspaceActivated{ID: 2})))
	assert.Equal(t, 1, activeCount(s, "A"))
	assert.Equal(t, 1, activeCount(s, "B"))
	ws, _ = s.ActiveWorkspace("B")
	assert.Equal(t, uint64(4), ws.ID)
	focused, _ := s.Workspace(4)
	assert.True(t, focused.Focused)

	assert.False(t, s.Apply(e.next(niri.WorkspaceActivated{ID: 99})))
}

func TestApplyIgnoresDuplicates(t *testing.T) {
	s, e := seed(t)

	ev := e.next(niri.WindowClosed{ID: 11})
	require.True(t, s.Apply(ev))
	require.True(t, s.Apply(e.next(niri.WindowOpenedOrChanged{Window: tiled(11, 1, 2, 1)})))

	// Redelivery of the close must not remove the reopened window.
	assert.False(t, s.Apply(ev))
	_, ok := s.Window(11)
	assert.True(t, ok)

	// A new stream starts over.
	assert.True(t, s.Apply(niri.Event{Stream: "other", Seq: 1, Payload: niri.WindowClosed{ID: 11}}))
}

func TestApplyIgnoresUnknownAndBroken(t *testing.T) {
	s, e := seed(t)

	assert.False(t, s.Apply(e.next(niri.Unknown{})))
	assert.False(t, s.Apply(niri.Event{Stream: "test", Seq: 100, Err: niri.ErrProtocol}))
	assert.False(t, s.Apply(e.next(struct{}{})))
	assert.Len(t, s.Windows(), 6)
}

func TestWorkspaceRemovalClosesWindows(t *testing.T) {
	s, e := seed(t)
	require.True(t, s.Apply(e.next(niri.WindowFocusChanged{ID: niri.Ptr[uint64](20)})))

	require.True(t, s.Apply(e.next(niri.WorkspacesChanged{Workspaces: []niri.Workspace{
		workspace(1, 1, "A", true),
		workspace(3, 1, "B", true),
	}})))

	_, ok := s.Window(20)
	assert.False(t, ok)
	assert.Equal(t, uint64(0), s.FocusedWindow())
	output, ok := s.Output("A")
	require.True(t, ok)
	assert.Equal(t, []uint64{1}, output.Workspaces)
}

func TestUrgencyAndLayouts(t *testing.T) {
	s, e := seed(t)

	require.True(t, s.Apply(e.next(niri.WindowUrgencyChanged{ID: 11, Urgent: true})))
	assert.False(t, s.Apply(e.next(niri.WindowUrgencyChanged{ID: 11, Urgent: true})))
	w, _ := s.Window(11)
	assert.True(t, w.Urgent)

	require.True(t, s.Apply(e.next(niri.WindowLayoutsChanged{Changes: []niri.WindowLayoutChange{
		{ID: 11, Layout: niri.WindowLayout{PosInScrollingLayout: &niri.Pair[uint32]{X: 1, Y: 3}}},
	}})))
	assert.Equal(t, []uint64{12, 13, 11, 10}, ids(s.Snapshot("A")))
	assert.Equal(t, 3, s.ColumnSize(11))
}

func TestPendingFocusConfirmed(t *testing.T) {
	s, e := seed(t)
	require.True(t, s.Apply(e.next(niri.WindowFocusChanged{ID: niri.Ptr[uint64](12)})))

	s.FocusOptimistic(11, time.Now())
	assert.Equal(t, uint64(11), s.FocusedWindow())
	w, _ := s.Window(12)
	assert.False(t, w.Focused)

	require.True(t, s.Apply(e.next(niri.WindowFocusChanged{ID: niri.Ptr[uint64](11)})))
	assert.Empty(t, s.Pending())
	assert.Equal(t, uint64(11), s.FocusedWindow())
}

func TestPendingFocusExpires(t *testing.T) {
	s, e := seed(t)
	s.SetPendingTTL(100 * time.Millisecond)
	require.True(t, s.Apply(e.next(niri.WindowFocusChanged{ID: niri.Ptr[uint64](12)})))

	now := time.Now()
	s.FocusOptimistic(11, now)

	// An unrelated focus event updates the confirmed value only.
	require.True(t, s.Apply(e.next(niri.WindowFocusChanged{ID: niri.Ptr[uint64](13)})))
	assert.Equal(t, uint64(11), s.FocusedWindow())

	assert.Empty(t, s.ExpirePending(now.Add(50*time.Millisecond)))
	expired := s.ExpirePending(now.Add(100 * time.Millisecond))
	require.Len(t, expired, 1)
	assert.Equal(t, Pending{WindowID: 11, Kind: PendingFocus, Issued: now}, expired[0])

	assert.Empty(t, s.Pending())
	assert.Equal(t, uint64(13), s.FocusedWindow())
}

func TestPendingDroppedWithWindow(t *testing.T) {
	s, e := seed(t)

	s.FocusOptimistic(11, time.Now())
	require.True(t, s.Apply(e.next(niri.WindowClosed{ID: 11})))
	assert.Empty(t, s.Pending())
	assert.False(t, s.Apply(e.next(niri.WindowClosed{ID: 11})))
}

func TestSetOutputs(t *testing.T) {
	s, _ := seed(t)

	s.SetOutputs(map[string]niri.Output{
		"A": {Name: "A", Make: "Dell", Logical: &niri.LogicalOutput{X: 1920, Width: 1920, Height: 1080, Scale: 1}},
		"B": {Name: "B", Logical: &niri.LogicalOutput{X: 0, Width: 1920, Height: 1080, Scale: 1}},
	})

	outputs := s.Outputs()
	require.Len(t, outputs, 2)
	assert.Equal(t, "B", outputs[0].Name)
	assert.Equal(t, "Dell", outputs[1].Make)
	assert.Equal(t, []uint64{1, 2}, outputs[1].Workspaces)
}
