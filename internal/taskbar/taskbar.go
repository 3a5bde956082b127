// Package taskbar owns the event loop that applies niri events to the store,
// lays out one bar per output and serves calls from the API.
package taskbar

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ItsNotGoodName/niri-taskbar/internal/action"
	"github.com/ItsNotGoodName/niri-taskbar/internal/bus"
	"github.com/ItsNotGoodName/niri-taskbar/internal/config"
	"github.com/ItsNotGoodName/niri-taskbar/internal/drag"
	"github.com/ItsNotGoodName/niri-taskbar/internal/layout"
	"github.com/ItsNotGoodName/niri-taskbar/internal/niri"
	"github.com/ItsNotGoodName/niri-taskbar/internal/rules"
	"github.com/ItsNotGoodName/niri-taskbar/internal/store"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var ErrUnknownOutput = errors.New("unknown output")

// EventBuffer is how many events may queue while the loop is busy, e.g.
// waiting on a dispatch.
const EventBuffer = 256

const expiryInterval = 100 * time.Millisecond

type command struct {
	ctx   context.Context
	fn    func(ctx context.Context) (any, error)
	doneC chan result
}

type result struct {
	value any
	err   error
}

// Taskbar is the single writer of the store. Every exported method is safe
// for concurrent use and runs inside the loop started by Serve.
type Taskbar struct {
	store      *store.Store
	dispatcher *action.Dispatcher
	hub        *bus.Hub[Update]

	eventC   chan niri.Event
	commandC chan command

	// Owned by the loop.
	cfg        config.Config
	engine     *rules.Engine
	metrics    layout.Metrics
	clicker    *action.Clicker
	drag       *drag.Controller
	bars       map[string]*Bar
	measured   map[uint64]int
	inserts    map[string]map[uint64]int
	connected  bool
	stream     string
	since      time.Time
	lastFocus  uint64
	holdScroll bool
	last       Update
	now        func() time.Time
}

func New(st *store.Store, conn niri.Requester, cfg config.Config, engine *rules.Engine) *Taskbar {
	t := &Taskbar{
		store:      st,
		dispatcher: action.NewDispatcher(conn, st, st),
		hub:        bus.NewHub[Update]("taskbar"),
		eventC:     make(chan niri.Event, EventBuffer),
		commandC:   make(chan command),
		clicker:    action.NewClicker(0),
		drag:       drag.NewController(false),
		bars:       make(map[string]*Bar),
		measured:   make(map[uint64]int),
		inserts:    make(map[string]map[uint64]int),
		now:        time.Now,
	}
	t.configure(cfg, engine)
	t.since = t.now()
	return t
}

func (t *Taskbar) configure(cfg config.Config, engine *rules.Engine) {
	t.cfg = cfg
	t.engine = engine
	t.metrics = layout.Metrics{
		MinWidth:    cfg.MinButtonWidth,
		MaxWidth:    cfg.MaxButtonWidth,
		IconSize:    cfg.IconSize,
		IconSpacing: cfg.IconSpacing,
		Padding:     layout.DefaultMetrics().Padding,
		CharWidth:   layout.DefaultMetrics().CharWidth,
		ShowTitles:  cfg.ShowWindowTitles,
	}
	t.clicker.SetDebounce(cfg.Actions.FocusedDebounce.Std())
	t.drag.SetReorderColumns(cfg.Drag.ReorderColumns)
	t.store.SetPendingTTL(cfg.PendingTimeout.Std())
}

func (t *Taskbar) String() string {
	return "taskbar.Taskbar"
}

func (t *Taskbar) Serve(ctx context.Context) error {
	ticker := time.NewTicker(expiryInterval)
	defer ticker.Stop()

	t.refresh()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-t.eventC:
			t.apply(ev)
			t.drain()
			t.refresh()
		case cmd := <-t.commandC:
			// Calls observe every event delivered before them.
			if len(t.eventC) > 0 {
				t.drain()
				t.refresh()
			}
			value, err := cmd.fn(cmd.ctx)
			cmd.doneC <- result{value: value, err: err}
			t.refresh()
		case <-ticker.C:
			if expired := t.store.ExpirePending(t.now()); len(expired) > 0 {
				t.refresh()
			}
		}
	}
}

// drain applies events that queued up so the layout is computed once.
func (t *Taskbar) drain() {
	for {
		select {
		case ev := <-t.eventC:
			t.apply(ev)
		default:
			return
		}
	}
}

func (t *Taskbar) apply(ev niri.Event) {
	if !t.store.Apply(ev) {
		return
	}
	if closed, ok := ev.Payload.(niri.WindowClosed); ok {
		t.clicker.Forget(closed.ID)
		delete(t.measured, closed.ID)
	}
}

// Deliver queues an event for the loop.
func (t *Taskbar) Deliver(ctx context.Context, ev niri.Event) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case t.eventC <- ev:
		return nil
	}
}

// Subscribe returns a channel of updates. The first update is the current
// state.
func (t *Taskbar) Subscribe(ctx context.Context) (<-chan Update, func(), error) {
	updateC, unsubscribe := t.hub.Subscribe()
	current, err := call(ctx, t, func(ctx context.Context) (Update, error) {
		return t.last, nil
	})
	if err != nil {
		unsubscribe()
		return nil, nil, err
	}

	outC := make(chan Update, 1)
	outC <- current
	go func() {
		defer close(outC)
		for {
			select {
			case <-ctx.Done():
				return
			case u, ok := <-updateC:
				if !ok {
					return
				}
				select {
				case outC <- u:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return outC, unsubscribe, nil
}

// call runs fn inside the loop.
func call[T any](ctx context.Context, t *Taskbar, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	cmd := command{
		ctx: ctx,
		fn: func(ctx context.Context) (any, error) {
			return fn(ctx)
		},
		doneC: make(chan result, 1),
	}

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case t.commandC <- cmd:
	}

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case r := <-cmd.doneC:
		if r.err != nil {
			return zero, r.err
		}
		return r.value.(T), nil
	}
}

// windows returns the windows listed on the bar of output. Every bar lists
// every output when ShowAllOutputs is set or there is only one output.
func (t *Taskbar) windows(output string, outputs []store.Output) []store.Window {
	if !t.cfg.ShowAllOutputs && len(outputs) > 1 {
		return t.outputWindows(output)
	}

	var windows []store.Window
	for _, o := range outputs {
		windows = append(windows, t.outputWindows(o.Name)...)
	}
	return windows
}

func (t *Taskbar) outputWindows(output string) []store.Window {
	if t.cfg.OnlyActiveWorkspace {
		return t.store.Snapshot(output)
	}
	return t.store.OutputWindows(output)
}

// refresh recomputes every bar from the store and broadcasts the result
// when it changed.
func (t *Taskbar) refresh() {
	outputs := t.store.Outputs()
	seen := make(map[string]struct{}, len(outputs))

	for _, output := range outputs {
		seen[output.Name] = struct{}{}

		bar, ok := t.bars[output.Name]
		if !ok {
			bar = NewBar(output.Name)
			t.bars[output.Name] = bar
		}

		bar.windows = make(map[uint64]store.Window)
		bar.decisions = make(map[uint64]rules.Decision)
		var ids []uint64
		for _, w := range t.windows(output.Name, outputs) {
			d := t.engine.Evaluate(w)
			if !d.Visible {
				continue
			}
			bar.windows[w.ID] = w
			bar.decisions[w.ID] = d
			ids = append(ids, w.ID)
		}
		bar.sync(ids, t.inserts[output.Name])

		buttons := make([]layout.Button, 0, len(bar.order))
		for _, id := range bar.order {
			width, ok := t.measured[id]
			if !ok {
				width = t.metrics.Measure(bar.windows[id].Title)
			}
			buttons = append(buttons, layout.Button{ID: id, Width: width})
		}

		maxWidth := t.cfg.MaxWidth(output.Name)
		bar.Commit(layout.Input{
			Buttons:    t.metrics.Narrow(buttons, maxWidth),
			MaxWidth:   maxWidth,
			ArrowWidth: t.cfg.ArrowWidth(output.Name),
		})
	}

	for name := range t.bars {
		if _, ok := seen[name]; !ok {
			delete(t.bars, name)
			delete(t.inserts, name)
		}
	}

	if s, ok := t.drag.Active(); ok {
		if _, ok := t.store.Window(s.WindowID); !ok {
			t.drag.Forget(s.WindowID)
			slog.Info("Cancelled drag of closed window", "package", "taskbar", "window", s.WindowID)
		}
	}

	focus := t.store.FocusedWindow()
	if focus != t.lastFocus {
		_, dragging := t.drag.Active()
		if focus != 0 && t.cfg.ScrollToFocused && !dragging && !t.holdScroll {
			for _, bar := range t.bars {
				bar.Reveal(focus)
			}
		}
		t.lastFocus = focus
	}
	t.holdScroll = false

	t.broadcast()
}

func (t *Taskbar) broadcast() {
	u := Update{
		Status: t.status(),
		Bars:   t.views(),
	}
	if cmp.Equal(u, t.last, cmpopts.IgnoreUnexported(drag.Session{}), cmpopts.EquateEmpty()) {
		return
	}
	t.last = u
	t.hub.Broadcast(u)
}

func (t *Taskbar) status() Status {
	s := Status{
		Connected: t.connected,
		Stream:    t.stream,
		Since:     t.since,
		Focused:   t.store.FocusedWindow(),
		Windows:   len(t.store.Windows()),
		Outputs:   []string{},
		Pending:   t.store.Pending(),
	}
	for _, output := range t.store.Outputs() {
		s.Outputs = append(s.Outputs, output.Name)
	}
	if session, ok := t.drag.Active(); ok {
		s.Drag = &session
	}
	return s
}

func (t *Taskbar) views() []BarView {
	views := make([]BarView, 0, len(t.bars))
	for _, output := range t.store.Outputs() {
		if bar, ok := t.bars[output.Name]; ok {
			views = append(views, t.view(bar))
		}
	}
	return views
}

func (t *Taskbar) view(bar *Bar) BarView {
	res := bar.Result()
	arrowWidth := t.cfg.ArrowWidth(bar.Output)

	v := BarView{
		Output:     bar.Output,
		Stale:      !t.connected,
		MaxWidth:   t.cfg.MaxWidth(bar.Output),
		Width:      res.Width,
		Offset:     res.Offset,
		Scrolled:   res.Scrolled,
		LeftArrow:  Arrow{Glyph: t.cfg.Arrows.Left, Shown: bar.LeftArrow.Value(), Width: arrowWidth},
		RightArrow: Arrow{Glyph: t.cfg.Arrows.Right, Shown: bar.RightArrow.Value(), Width: arrowWidth},
		Buttons:    make([]Button, 0, len(res.Visible)),
		Order:      bar.Order(),
	}

	for _, slot := range res.Visible {
		w := bar.windows[slot.ID]
		v.Buttons = append(v.Buttons, Button{
			ID:          w.ID,
			AppID:       w.AppID,
			Title:       w.Title,
			WorkspaceID: w.WorkspaceID,
			Focused:     w.Focused,
			Urgent:      w.Urgent,
			Floating:    w.Floating,
			Classes:     bar.decisions[slot.ID].Classes,
			Index:       slot.Index,
			X:           slot.X,
			Width:       slot.Width,
			Clipped:     slot.Clipped,
		})
	}

	return v
}
