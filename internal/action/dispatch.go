package action

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ItsNotGoodName/niri-taskbar/internal/niri"
	"github.com/ItsNotGoodName/niri-taskbar/internal/store"
)

var (
	ErrUnknownWindow     = errors.New("unknown window")
	ErrUnsupportedAction = errors.New("unsupported action")
)

// Ledger records optimistic updates.
type Ledger interface {
	FocusOptimistic(id uint64, now time.Time)
	CancelPending(windowID uint64, kind store.PendingKind) bool
}

// Request is a fully specified dispatch.
type Request struct {
	Kind     Kind   `json:"kind"`
	WindowID uint64 `json:"window_id"`
	// Output is the target of move-to-monitor.
	Output string `json:"output,omitempty"`
	// Index is the 1-based target column of move-column-to-index.
	Index int `json:"index,omitempty"`
	// PreserveFocus refocuses the previously focused window afterwards.
	PreserveFocus bool `json:"preserve_focus,omitempty"`
}

type Dispatcher struct {
	conn   niri.Requester
	state  State
	ledger Ledger
	now    func() time.Time
}

func NewDispatcher(conn niri.Requester, state State, ledger Ledger) *Dispatcher {
	return &Dispatcher{
		conn:   conn,
		state:  state,
		ledger: ledger,
		now:    time.Now,
	}
}

// Dispatch runs kind against window id.
func (d *Dispatcher) Dispatch(ctx context.Context, kind Kind, id uint64) error {
	return d.DispatchRequest(ctx, Request{Kind: kind, WindowID: id})
}

// DispatchRequest issues the niri requests for req. Only focus is applied
// optimistically, every other outcome arrives as events. Transport errors are
// returned as is and never retried.
func (d *Dispatcher) DispatchRequest(ctx context.Context, req Request) error {
	slog := slog.With("package", "action", "action", req.Kind, "window", req.WindowID)

	if req.Kind == None {
		return nil
	}

	w, ok := d.state.Window(req.WindowID)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownWindow, req.WindowID)
	}
	if err := applies(d.state, req.Kind, w); err != nil {
		return err
	}

	action, focusFirst, err := d.build(req, w)
	if err != nil {
		return err
	}

	previous := d.state.FocusedWindow()

	if req.Kind == Focus {
		if err := d.focus(ctx, w.ID); err != nil {
			slog.Error("Failed to dispatch action", "error", err)
			return err
		}
		return nil
	}

	if focusFirst && previous != w.ID {
		if err := d.focus(ctx, w.ID); err != nil {
			slog.Error("Failed to focus window before action", "error", err)
			return err
		}
	}

	err = niri.Do(ctx, d.conn, action)
	if err != nil {
		slog.Error("Failed to dispatch action", "niri", action.Name, "error", err)
	} else {
		slog.Debug("Dispatched action", "niri", action.Name)
	}

	// Focus goes back even when the action failed. Without a previously
	// focused window there is nothing to go back to.
	if req.PreserveFocus && previous != 0 && previous != w.ID {
		if _, ok := d.state.Window(previous); ok {
			if rerr := d.focus(ctx, previous); rerr != nil {
				slog.Warn("Failed to restore focus", "focus", previous, "error", rerr)
				return errors.Join(err, rerr)
			}
		}
	}

	return err
}

// focus sends FocusWindow and shows the result before niri confirms it.
func (d *Dispatcher) focus(ctx context.Context, id uint64) error {
	d.ledger.FocusOptimistic(id, d.now())
	if err := niri.Do(ctx, d.conn, niri.NewAction("FocusWindow", map[string]any{"id": id})); err != nil {
		d.ledger.CancelPending(id, store.PendingFocus)
		return err
	}
	return nil
}

// build maps req to a niri action. focusFirst is set for actions niri only
// applies to the focused window.
func (d *Dispatcher) build(req Request, w store.Window) (niri.Action, bool, error) {
	id := map[string]any{"id": w.ID}

	switch req.Kind {
	case Focus:
		return niri.NewAction("FocusWindow", id), false, nil
	case Close:
		return niri.NewAction("CloseWindow", id), false, nil
	case ToggleFloating:
		return niri.NewAction("ToggleWindowFloating", id), false, nil
	case CenterWindow:
		return niri.NewAction("CenterWindow", id), false, nil
	case ResetHeight:
		return niri.NewAction("ResetWindowHeight", id), false, nil
	case CyclePresetWidth:
		return niri.NewAction("SwitchPresetWindowWidth", id), false, nil
	case CyclePresetHeight:
		return niri.NewAction("SwitchPresetWindowHeight", id), false, nil
	case ConsumeIntoColumn:
		return niri.NewAction("ConsumeOrExpelWindowLeft", id), false, nil
	case CenterColumn:
		return niri.NewAction("CenterColumn", nil), true, nil
	case ExpandColumn:
		return niri.NewAction("ExpandColumnToAvailableWidth", nil), true, nil
	case ExpelFromColumn:
		return niri.NewAction("ExpelWindowFromColumn", nil), true, nil
	case ToggleTabbed:
		return niri.NewAction("ToggleColumnTabbedDisplay", nil), true, nil
	case MaximizeColumn:
		return niri.NewAction("MaximizeColumn", nil), true, nil
	case MoveColumnToIndex:
		if req.Index < 1 {
			return niri.Action{}, false, fmt.Errorf("%w: %s needs an index", ErrUnsupportedAction, req.Kind)
		}
		return niri.NewAction("MoveColumnToIndex", map[string]any{"index": req.Index}), true, nil
	case MoveToWorkspaceUp, MoveToWorkspaceDn:
		delta := -1
		if req.Kind == MoveToWorkspaceDn {
			delta = 1
		}
		ws, _ := neighbourWorkspace(d.state, w, delta)
		return moveToWorkspace(w.ID, ws.ID), false, nil
	case MoveToMonitorLeft, MoveToMonitorRight:
		delta := -1
		if req.Kind == MoveToMonitorRight {
			delta = 1
		}
		output, _ := neighbourOutput(d.state, w, delta)
		return moveToMonitor(w.ID, output.Name), false, nil
	case MoveToMonitor:
		if req.Output == "" || req.Output == w.Output {
			return niri.Action{}, false, fmt.Errorf("%w: %s needs another output", ErrUnsupportedAction, req.Kind)
		}
		if _, ok := d.state.Output(req.Output); !ok {
			return niri.Action{}, false, fmt.Errorf("%w: unknown output %q", ErrUnsupportedAction, req.Output)
		}
		return moveToMonitor(w.ID, req.Output), false, nil
	}

	return niri.Action{}, false, fmt.Errorf("%w: %s", ErrUnsupportedAction, req.Kind)
}

func moveToWorkspace(windowID, workspaceID uint64) niri.Action {
	return niri.NewAction("MoveWindowToWorkspace", map[string]any{
		"window_id": windowID,
		"reference": map[string]any{"Id": workspaceID},
		"focus":     false,
	})
}

func moveToMonitor(windowID uint64, output string) niri.Action {
	return niri.NewAction("MoveWindowToMonitor", map[string]any{
		"id":     windowID,
		"output": output,
	})
}
