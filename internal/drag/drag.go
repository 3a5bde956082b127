// Package drag tracks reordering of taskbar buttons by drag and drop.
//
// The authoritative order handed to Begin is never changed while dragging.
// Moves only produce preview orders. Drop and Cancel return an Outcome the
// caller commits.
package drag

import (
	"errors"
	"fmt"
	"slices"

	"github.com/ItsNotGoodName/niri-taskbar/internal/action"
	"github.com/ItsNotGoodName/niri-taskbar/internal/store"
	"github.com/google/uuid"
)

var (
	ErrDragActive = errors.New("drag already in progress")
	ErrNoDrag     = errors.New("no drag in progress")
	ErrNoButton   = errors.New("window has no button")
)

type Result string

const (
	Reordered Result = "reordered"
	Moved     Result = "moved"
	Cancelled Result = "cancelled"
)

// Session is an in-progress drag.
type Session struct {
	ID       string   `json:"id"`
	Output   string   `json:"output"`
	WindowID uint64   `json:"window_id"`
	Source   int      `json:"source"`
	Current  int      `json:"current"`
	Preview  []uint64 `json:"preview"`
	// Focus and Offset are restored when the drag ends.
	Focus  uint64 `json:"focus"`
	Offset int    `json:"offset"`

	order []uint64
}

type Outcome struct {
	Session string `json:"session"`
	Result  Result `json:"result"`
	// Output is the origin output and Order its new button order.
	Output string   `json:"output"`
	Order  []uint64 `json:"order"`
	// TargetOutput and TargetIndex locate the dropped button.
	TargetOutput string `json:"target_output"`
	TargetIndex  int    `json:"target_index"`
	Focus        uint64 `json:"focus"`
	Offset       int    `json:"offset"`
	// Requests are compositor actions to dispatch, in order.
	Requests []action.Request `json:"requests"`
}

// Controller is not safe for concurrent use.
type Controller struct {
	session        *Session
	reorderColumns bool
}

func NewController(reorderColumns bool) *Controller {
	return &Controller{reorderColumns: reorderColumns}
}

func (c *Controller) SetReorderColumns(reorderColumns bool) {
	c.reorderColumns = reorderColumns
}

// Active returns the current session.
func (c *Controller) Active() (Session, bool) {
	if c.session == nil {
		return Session{}, false
	}
	s := *c.session
	s.Preview = slices.Clone(s.Preview)
	return s, true
}

// Begin starts dragging windowID on output. order is the committed button
// order, focus the focused window and offset the scroll offset of output.
func (c *Controller) Begin(output string, order []uint64, windowID, focus uint64, offset int) (Session, error) {
	if c.session != nil {
		return Session{}, ErrDragActive
	}

	source := slices.Index(order, windowID)
	if source == -1 {
		return Session{}, fmt.Errorf("%w: %d on %s", ErrNoButton, windowID, output)
	}

	c.session = &Session{
		ID:       uuid.NewString(),
		Output:   output,
		WindowID: windowID,
		Source:   source,
		Current:  source,
		Preview:  slices.Clone(order),
		Focus:    focus,
		Offset:   offset,
		order:    slices.Clone(order),
	}

	s, _ := c.Active()
	return s, nil
}

// Move previews the dragged button at index.
func (c *Controller) Move(index int) (Session, error) {
	if c.session == nil {
		return Session{}, ErrNoDrag
	}

	index = clamp(index, len(c.session.order))
	c.session.Current = index
	c.session.Preview = reorder(c.session.order, c.session.Source, index)

	s, _ := c.Active()
	return s, nil
}

// Drop ends the drag over targetIndex of targetOutput. lookup resolves
// windows for column reordering.
func (c *Controller) Drop(targetOutput string, targetIndex int, lookup func(id uint64) (store.Window, bool)) (Outcome, error) {
	s := c.session
	if s == nil {
		return Outcome{}, ErrNoDrag
	}
	c.session = nil

	out := Outcome{
		Session:      s.ID,
		Output:       s.Output,
		TargetOutput: targetOutput,
		Focus:        s.Focus,
		Offset:       s.Offset,
		Requests:     []action.Request{},
	}

	if targetOutput == "" || targetOutput == s.Output {
		out.Result = Reordered
		out.TargetOutput = s.Output
		out.TargetIndex = clamp(targetIndex, len(s.order))
		out.Order = reorder(s.order, s.Source, out.TargetIndex)

		if c.reorderColumns && out.TargetIndex != s.Source {
			if req, ok := columnRequest(s, out.TargetIndex, lookup); ok {
				out.Requests = append(out.Requests, req)
			}
		}
		return out, nil
	}

	out.Result = Moved
	out.TargetIndex = max(targetIndex, 0)
	out.Order = slices.DeleteFunc(slices.Clone(s.order), func(id uint64) bool { return id == s.WindowID })
	out.Requests = append(out.Requests, action.Request{
		Kind:          action.MoveToMonitor,
		WindowID:      s.WindowID,
		Output:        targetOutput,
		PreserveFocus: true,
	})
	return out, nil
}

// Cancel ends the drag without side effects.
func (c *Controller) Cancel() (Outcome, error) {
	s := c.session
	if s == nil {
		return Outcome{}, ErrNoDrag
	}
	c.session = nil

	return Outcome{
		Session:      s.ID,
		Result:       Cancelled,
		Output:       s.Output,
		Order:        slices.Clone(s.order),
		TargetOutput: s.Output,
		TargetIndex:  s.Source,
		Focus:        s.Focus,
		Offset:       s.Offset,
		Requests:     []action.Request{},
	}, nil
}

// Forget cancels the drag when its window disappears.
func (c *Controller) Forget(windowID uint64) bool {
	if c.session == nil || c.session.WindowID != windowID {
		return false
	}
	c.session = nil
	return true
}

// columnRequest moves the dragged column to the column of the window it was
// dropped on, when both are tiled on the same workspace.
func columnRequest(s *Session, target int, lookup func(id uint64) (store.Window, bool)) (action.Request, bool) {
	if lookup == nil {
		return action.Request{}, false
	}
	dragged, ok := lookup(s.WindowID)
	if !ok || !dragged.Tiled() {
		return action.Request{}, false
	}
	other, ok := lookup(s.order[target])
	if !ok || !other.Tiled() || other.WorkspaceID != dragged.WorkspaceID || other.Column == dragged.Column {
		return action.Request{}, false
	}

	return action.Request{
		Kind:          action.MoveColumnToIndex,
		WindowID:      s.WindowID,
		Index:         int(other.Column),
		PreserveFocus: true,
	}, true
}

func reorder(order []uint64, from, to int) []uint64 {
	out := slices.Clone(order)
	if from == to || from < 0 || from >= len(out) {
		return out
	}
	id := out[from]
	out = slices.Delete(out, from, from+1)
	return slices.Insert(out, to, id)
}

func clamp(index, n int) int {
	if index < 0 || n == 0 {
		return 0
	}
	if index >= n {
		return n - 1
	}
	return index
}
