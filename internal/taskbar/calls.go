package taskbar

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ItsNotGoodName/niri-taskbar/internal/action"
	"github.com/ItsNotGoodName/niri-taskbar/internal/config"
	"github.com/ItsNotGoodName/niri-taskbar/internal/drag"
	"github.com/ItsNotGoodName/niri-taskbar/internal/niri"
	"github.com/ItsNotGoodName/niri-taskbar/internal/rules"
	"github.com/ItsNotGoodName/niri-taskbar/internal/store"
)

func (t *Taskbar) Status(ctx context.Context) (Status, error) {
	return call(ctx, t, func(ctx context.Context) (Status, error) {
		return t.status(), nil
	})
}

func (t *Taskbar) Bars(ctx context.Context) ([]BarView, error) {
	return call(ctx, t, func(ctx context.Context) ([]BarView, error) {
		t.refresh()
		return t.views(), nil
	})
}

func (t *Taskbar) Bar(ctx context.Context, output string) (BarView, error) {
	return call(ctx, t, func(ctx context.Context) (BarView, error) {
		t.refresh()
		bar, err := t.bar(output)
		if err != nil {
			return BarView{}, err
		}
		return t.view(bar), nil
	})
}

func (t *Taskbar) bar(output string) (*Bar, error) {
	bar, ok := t.bars[output]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOutput, output)
	}
	return bar, nil
}

// Scroll moves the bar of output by delta buttons.
func (t *Taskbar) Scroll(ctx context.Context, output string, delta int) (BarView, error) {
	return call(ctx, t, func(ctx context.Context) (BarView, error) {
		bar, err := t.bar(output)
		if err != nil {
			return BarView{}, err
		}
		bar.Scroll(delta)
		t.refresh()
		return t.view(bar), nil
	})
}

// Measure records preferred widths reported by the renderer. A width of 0
// reverts the window to the estimate.
func (t *Taskbar) Measure(ctx context.Context, widths map[uint64]int) error {
	_, err := call(ctx, t, func(ctx context.Context) (struct{}, error) {
		for id, width := range widths {
			if width <= 0 {
				delete(t.measured, id)
				continue
			}
			t.measured[id] = width
		}
		return struct{}{}, nil
	})
	return err
}

// Click resolves a gesture on the button of window id and runs the action.
func (t *Taskbar) Click(ctx context.Context, id uint64, gesture action.Gesture) (ClickResult, error) {
	return call(ctx, t, func(ctx context.Context) (ClickResult, error) {
		w, ok := t.store.Window(id)
		if !ok {
			return ClickResult{}, fmt.Errorf("%w: %d", action.ErrUnknownWindow, id)
		}

		d := t.engine.Evaluate(w)
		kind := t.clicker.Resolve(gesture, id, w.Focused, d.Bindings, t.now())
		res := ClickResult{Action: kind}

		switch kind {
		case action.None:
		case action.Menu:
			res.Menu = t.menu(w)
		default:
			if err := t.dispatcher.Dispatch(ctx, kind, id); err != nil {
				return res, err
			}
		}

		slog.Debug("Handled click", "package", "taskbar", "window", id, "gesture", gesture, "action", kind)
		return res, nil
	})
}

// Menu lists the context menu of window id.
func (t *Taskbar) Menu(ctx context.Context, id uint64) ([]MenuItem, error) {
	return call(ctx, t, func(ctx context.Context) ([]MenuItem, error) {
		w, ok := t.store.Window(id)
		if !ok {
			return nil, fmt.Errorf("%w: %d", action.ErrUnknownWindow, id)
		}
		return t.menu(w), nil
	})
}

func (t *Taskbar) menu(w store.Window) []MenuItem {
	kinds := action.Applicable(t.store, w)
	if len(t.cfg.Menu) > 0 {
		allowed := make(map[action.Kind]struct{}, len(kinds))
		for _, k := range kinds {
			allowed[k] = struct{}{}
		}
		kinds = kinds[:0]
		for _, name := range t.cfg.Menu {
			k, err := action.ParseKind(name)
			if err != nil {
				continue
			}
			if _, ok := allowed[k]; ok {
				kinds = append(kinds, k)
			}
		}
	}

	items := make([]MenuItem, 0, len(kinds))
	for _, k := range kinds {
		items = append(items, MenuItem{Action: k, Label: k.Label()})
	}
	return items
}

func (t *Taskbar) Dispatch(ctx context.Context, req action.Request) error {
	_, err := call(ctx, t, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, t.dispatcher.DispatchRequest(ctx, req)
	})
	return err
}

func (t *Taskbar) DragBegin(ctx context.Context, output string, id uint64) (drag.Session, error) {
	return call(ctx, t, func(ctx context.Context) (drag.Session, error) {
		bar, err := t.bar(output)
		if err != nil {
			return drag.Session{}, err
		}
		return t.drag.Begin(output, bar.Order(), id, t.store.FocusedWindow(), bar.Offset())
	})
}

func (t *Taskbar) DragMove(ctx context.Context, index int) (drag.Session, error) {
	return call(ctx, t, func(ctx context.Context) (drag.Session, error) {
		return t.drag.Move(index)
	})
}

// DragDrop ends the drag over index of output, or of the origin output when
// output is empty. Focus and the origin scroll offset are restored.
func (t *Taskbar) DragDrop(ctx context.Context, output string, index int) (drag.Outcome, error) {
	return call(ctx, t, func(ctx context.Context) (drag.Outcome, error) {
		if output != "" {
			if _, err := t.bar(output); err != nil {
				return drag.Outcome{}, err
			}
		}

		out, err := t.drag.Drop(output, index, t.store.Window)
		if err != nil {
			return drag.Outcome{}, err
		}

		// A moved button leaves the origin bar once niri reports the move.
		origin, ok := t.bars[out.Output]
		if ok && out.Result == drag.Reordered {
			origin.SetOrder(out.Order)
		}
		if out.Result == drag.Moved {
			if t.inserts[out.TargetOutput] == nil {
				t.inserts[out.TargetOutput] = make(map[uint64]int)
			}
			t.inserts[out.TargetOutput][out.Requests[0].WindowID] = out.TargetIndex
		}

		var dispatchErr error
		for _, req := range out.Requests {
			if dispatchErr = t.dispatcher.DispatchRequest(ctx, req); dispatchErr != nil {
				break
			}
		}
		if dispatchErr != nil && out.Result == drag.Moved {
			delete(t.inserts[out.TargetOutput], out.Requests[0].WindowID)
		}

		if ok {
			origin.SetOffset(out.Offset)
		}
		t.holdScroll = true
		t.refresh()

		return out, dispatchErr
	})
}

func (t *Taskbar) DragCancel(ctx context.Context) (drag.Outcome, error) {
	return call(ctx, t, func(ctx context.Context) (drag.Outcome, error) {
		out, err := t.drag.Cancel()
		if err != nil {
			return drag.Outcome{}, err
		}
		if bar, ok := t.bars[out.Output]; ok {
			bar.SetOffset(out.Offset)
		}
		t.holdScroll = true
		return out, nil
	})
}

// Reload compiles cfg and swaps it in. A config that fails to compile is
// rejected and the running one kept.
func (t *Taskbar) Reload(ctx context.Context, cfg config.Config) error {
	engine, err := rules.Compile(cfg)
	if err != nil {
		return err
	}

	_, err = call(ctx, t, func(ctx context.Context) (struct{}, error) {
		t.configure(cfg, engine)
		return struct{}{}, nil
	})
	return err
}

func (t *Taskbar) connect(ctx context.Context, stream string, outputs map[string]niri.Output) error {
	_, err := call(ctx, t, func(ctx context.Context) (struct{}, error) {
		t.connected = true
		t.stream = stream
		t.since = t.now()
		if outputs != nil {
			t.store.SetOutputs(outputs)
		}
		return struct{}{}, nil
	})
	return err
}

func (t *Taskbar) setOutputs(ctx context.Context, outputs map[string]niri.Output) error {
	_, err := call(ctx, t, func(ctx context.Context) (struct{}, error) {
		t.store.SetOutputs(outputs)
		return struct{}{}, nil
	})
	return err
}

func (t *Taskbar) disconnect(ctx context.Context) error {
	_, err := call(ctx, t, func(ctx context.Context) (struct{}, error) {
		t.connected = false
		t.since = t.now()
		return struct{}{}, nil
	})
	return err
}
