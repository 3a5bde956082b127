package store

import (
	"time"

	"github.com/ItsNotGoodName/niri-taskbar/internal/niri"
)

type Window struct {
	ID          uint64 `json:"id"`
	AppID       string `json:"app_id"`
	Title       string `json:"title"`
	PID         int32  `json:"pid,omitempty"`
	WorkspaceID uint64 `json:"workspace_id"`
	Output      string `json:"output"`
	Urgent      bool   `json:"urgent"`
	Focused     bool   `json:"focused"`
	Floating    bool   `json:"floating"`
	// Column and Tile are the 1-based position in the scrolling layout, 0 when
	// the window is floating or the position is unknown.
	Column uint32 `json:"column,omitempty"`
	Tile   uint32 `json:"tile,omitempty"`
}

func (w Window) Tiled() bool {
	return !w.Floating && w.Column != 0
}

type Workspace struct {
	ID             uint64 `json:"id"`
	Idx            uint8  `json:"idx"`
	Name           string `json:"name,omitempty"`
	Output         string `json:"output"`
	Active         bool   `json:"active"`
	Focused        bool   `json:"focused"`
	Urgent         bool   `json:"urgent"`
	ActiveWindowID uint64 `json:"active_window_id,omitempty"`
}

type Output struct {
	Name       string   `json:"name"`
	Make       string   `json:"make,omitempty"`
	Model      string   `json:"model,omitempty"`
	X          int32    `json:"x"`
	Y          int32    `json:"y"`
	Width      uint32   `json:"width"`
	Height     uint32   `json:"height"`
	Scale      float64  `json:"scale"`
	Workspaces []uint64 `json:"workspaces"`
}

// PendingKind names the effect of an optimistic update.
type PendingKind string

const PendingFocus PendingKind = "focus"

// Pending is an optimistic local update waiting for compositor confirmation.
type Pending struct {
	WindowID uint64      `json:"window_id"`
	Kind     PendingKind `json:"kind"`
	Issued   time.Time   `json:"issued"`
}

type pendingKey struct {
	windowID uint64
	kind     PendingKind
}

func newWindow(w niri.Window) *Window {
	window := &Window{
		ID:          w.ID,
		AppID:       niri.Deref(w.AppID),
		Title:       niri.Deref(w.Title),
		PID:         niri.Deref(w.PID),
		WorkspaceID: niri.Deref(w.WorkspaceID),
		Urgent:      w.IsUrgent,
		Floating:    w.IsFloating,
	}
	window.setLayout(w.Layout)
	return window
}

func (w *Window) setLayout(layout niri.WindowLayout) {
	if pos := layout.PosInScrollingLayout; pos != nil && !w.Floating {
		w.Column, w.Tile = pos.X, pos.Y
	} else {
		w.Column, w.Tile = 0, 0
	}
}

func newWorkspace(ws niri.Workspace) *Workspace {
	return &Workspace{
		ID:             ws.ID,
		Idx:            ws.Idx,
		Name:           niri.Deref(ws.Name),
		Output:         niri.Deref(ws.Output),
		Active:         ws.IsActive,
		Focused:        ws.IsFocused,
		Urgent:         ws.IsUrgent,
		ActiveWindowID: niri.Deref(ws.ActiveWindowID),
	}
}
