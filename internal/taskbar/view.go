package taskbar

import (
	"time"

	"github.com/ItsNotGoodName/niri-taskbar/internal/action"
	"github.com/ItsNotGoodName/niri-taskbar/internal/drag"
	"github.com/ItsNotGoodName/niri-taskbar/internal/store"
)

// Button is a visible button as the renderer draws it.
type Button struct {
	ID          uint64   `json:"id"`
	AppID       string   `json:"app_id"`
	Title       string   `json:"title"`
	WorkspaceID uint64   `json:"workspace_id"`
	Focused     bool     `json:"focused"`
	Urgent      bool     `json:"urgent"`
	Floating    bool     `json:"floating"`
	Classes     []string `json:"classes"`
	Index       int      `json:"index"`
	X           int      `json:"x"`
	Width       int      `json:"width"`
	Clipped     bool     `json:"clipped,omitempty"`
}

type Arrow struct {
	Glyph string `json:"glyph"`
	Shown bool   `json:"shown"`
	Width int    `json:"width"`
}

type BarView struct {
	Output     string   `json:"output"`
	Stale      bool     `json:"stale"`
	MaxWidth   int      `json:"max_width"`
	Width      int      `json:"width"`
	Offset     int      `json:"offset"`
	Scrolled   bool     `json:"scrolled"`
	LeftArrow  Arrow    `json:"left_arrow"`
	RightArrow Arrow    `json:"right_arrow"`
	Buttons    []Button `json:"buttons"`
	// Order is every button of the bar, visible or not.
	Order []uint64 `json:"order"`
}

type Status struct {
	Connected bool            `json:"connected"`
	Stream    string          `json:"stream,omitempty"`
	Since     time.Time       `json:"since"`
	Focused   uint64          `json:"focused"`
	Windows   int             `json:"windows"`
	Outputs   []string        `json:"outputs"`
	Pending   []store.Pending `json:"pending"`
	Drag      *drag.Session   `json:"drag,omitempty"`
}

// Update is broadcast after every change that alters what a renderer shows.
type Update struct {
	Status Status    `json:"status"`
	Bars   []BarView `json:"bars"`
}

type MenuItem struct {
	Action action.Kind `json:"action"`
	Label  string      `json:"label"`
}

type ClickResult struct {
	Action action.Kind `json:"action"`
	// Menu is set when the gesture opens the context menu.
	Menu []MenuItem `json:"menu,omitempty"`
}
