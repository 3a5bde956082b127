package store

import (
	"cmp"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/ItsNotGoodName/niri-taskbar/internal/niri"
)

// Store is the local mirror of niri windows, workspaces and outputs.
//
// Only one goroutine may call the mutating methods. Readers on other
// goroutines always observe a fully applied event.
type Store struct {
	mu sync.RWMutex

	windows    map[uint64]*Window
	workspaces map[uint64]*Workspace
	outputs    map[string]*Output
	// active maps output name to the active workspace on that output.
	active map[string]uint64

	confirmedFocus uint64
	pending        map[pendingKey]Pending
	pendingTTL     time.Duration

	lastStream string
	lastSeq    uint64
}

const DefaultPendingTTL = time.Second

func New() *Store {
	return &Store{
		windows:    make(map[uint64]*Window),
		workspaces: make(map[uint64]*Workspace),
		outputs:    make(map[string]*Output),
		active:     make(map[string]uint64),
		pending:    make(map[pendingKey]Pending),
		pendingTTL: DefaultPendingTTL,
	}
}

func (s *Store) SetPendingTTL(ttl time.Duration) {
	s.mu.Lock()
	s.pendingTTL = ttl
	s.mu.Unlock()
}

// Apply applies one event and reports whether the store changed.
func (s *Store) Apply(ev niri.Event) bool {
	slog := slog.With("package", "store", "kind", ev.Kind, "seq", ev.Seq)

	if ev.Err != nil {
		slog.Warn("Skipping undecodable event", "error", ev.Err)
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ev.Stream != "" {
		if ev.Stream == s.lastStream && ev.Seq <= s.lastSeq {
			slog.Debug("Skipping duplicate event")
			return false
		}
		s.lastStream, s.lastSeq = ev.Stream, ev.Seq
	}

	switch p := ev.Payload.(type) {
	case niri.WindowsChanged:
		s.windows = make(map[uint64]*Window, len(p.Windows))
		var focused uint64
		for _, w := range p.Windows {
			s.windows[w.ID] = newWindow(w)
			if w.IsFocused {
				focused = w.ID
			}
		}
		s.confirmFocus(focused)
		s.prunePending()
	case niri.WindowOpenedOrChanged:
		s.windows[p.Window.ID] = newWindow(p.Window)
		if p.Window.IsFocused {
			s.confirmFocus(p.Window.ID)
		} else if s.confirmedFocus == p.Window.ID {
			s.confirmFocus(0)
		}
	case niri.WindowClosed:
		if _, ok := s.windows[p.ID]; !ok {
			return false
		}
		delete(s.windows, p.ID)
		if s.confirmedFocus == p.ID {
			s.confirmedFocus = 0
		}
		s.prunePending()
	case niri.WindowFocusChanged:
		s.confirmFocus(niri.Deref(p.ID))
	case niri.WindowUrgencyChanged:
		w, ok := s.windows[p.ID]
		if !ok || w.Urgent == p.Urgent {
			return false
		}
		w.Urgent = p.Urgent
	case niri.WindowLayoutsChanged:
		changed := false
		for _, change := range p.Changes {
			if w, ok := s.windows[change.ID]; ok {
				w.setLayout(change.Layout)
				changed = true
			}
		}
		return changed
	case niri.WorkspacesChanged:
		s.replaceWorkspaces(p.Workspaces)
	case niri.WorkspaceActivated:
		return s.activateWorkspace(p.ID, p.Focused)
	case niri.WorkspaceActiveWindowChanged:
		ws, ok := s.workspaces[p.WorkspaceID]
		if !ok {
			return false
		}
		ws.ActiveWindowID = niri.Deref(p.ActiveWindowID)
	case niri.WorkspaceUrgencyChanged:
		ws, ok := s.workspaces[p.ID]
		if !ok {
			return false
		}
		ws.Urgent = p.Urgent
	case niri.Unknown:
		slog.Debug("Ignoring unknown event")
		return false
	default:
		slog.Warn("Ignoring unsupported event payload")
		return false
	}

	return true
}

func (s *Store) replaceWorkspaces(workspaces []niri.Workspace) {
	s.workspaces = make(map[uint64]*Workspace, len(workspaces))
	s.active = make(map[string]uint64)
	for _, output := range s.outputs {
		output.Workspaces = nil
	}

	for _, raw := range workspaces {
		ws := newWorkspace(raw)
		s.workspaces[ws.ID] = ws
		if ws.Output == "" {
			continue
		}

		output := s.output(ws.Output)
		output.Workspaces = append(output.Workspaces, ws.ID)
		if ws.Active {
			s.active[ws.Output] = ws.ID
		}
	}

	for _, output := range s.outputs {
		slices.SortFunc(output.Workspaces, func(a, b uint64) int {
			return cmp.Compare(s.workspaces[a].Idx, s.workspaces[b].Idx)
		})
	}

	// Windows die with their workspace.
	for id, w := range s.windows {
		if w.WorkspaceID == 0 {
			continue
		}
		if _, ok := s.workspaces[w.WorkspaceID]; !ok {
			delete(s.windows, id)
			if s.confirmedFocus == id {
				s.confirmedFocus = 0
			}
		}
	}
	s.prunePending()
}

// activateWorkspace only touches workspaces on the activated workspace's
// output. Other outputs keep their active workspace.
func (s *Store) activateWorkspace(id uint64, focused bool) bool {
	target, ok := s.workspaces[id]
	if !ok {
		slog.Warn("Activated unknown workspace", "package", "store", "workspace", id)
		return false
	}

	if target.Output != "" {
		for _, ws := range s.workspaces {
			if ws.Output == target.Output {
				ws.Active = ws.ID == id
			}
		}
		s.active[target.Output] = id
	} else {
		target.Active = true
	}

	if focused {
		for _, ws := range s.workspaces {
			ws.Focused = ws.ID == id
		}
	}

	return true
}

func (s *Store) output(name string) *Output {
	output, ok := s.outputs[name]
	if !ok {
		output = &Output{Name: name}
		s.outputs[name] = output
	}
	return output
}

// SetOutputs records output metadata queried from niri.
func (s *Store) SetOutputs(outputs map[string]niri.Output) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name := range s.outputs {
		if _, ok := outputs[name]; !ok && len(s.outputs[name].Workspaces) == 0 {
			delete(s.outputs, name)
		}
	}

	for name, raw := range outputs {
		output := s.output(name)
		output.Make = raw.Make
		output.Model = raw.Model
		if l := raw.Logical; l != nil {
			output.X, output.Y = l.X, l.Y
			output.Width, output.Height = l.Width, l.Height
			output.Scale = l.Scale
		}
	}
}

// focus returns the locally visible focused window: the newest pending
// optimistic focus, else the last confirmed focus.
func (s *Store) focus() uint64 {
	var (
		newest time.Time
		id     = s.confirmedFocus
	)
	for key, p := range s.pending {
		if key.kind == PendingFocus && p.Issued.After(newest) {
			newest, id = p.Issued, p.WindowID
		}
	}
	return id
}

func (s *Store) copyWindow(w *Window) Window {
	c := *w
	if ws, ok := s.workspaces[w.WorkspaceID]; ok {
		c.Output = ws.Output
	}
	c.Focused = w.ID == s.focus()
	return c
}

func (s *Store) Window(id uint64) (Window, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.windows[id]
	if !ok {
		return Window{}, false
	}
	return s.copyWindow(w), true
}

// Windows returns every window ordered by id.
func (s *Store) Windows() []Window {
	s.mu.RLock()
	defer s.mu.RUnlock()

	windows := make([]Window, 0, len(s.windows))
	for _, w := range s.windows {
		windows = append(windows, s.copyWindow(w))
	}
	slices.SortFunc(windows, func(a, b Window) int { return cmp.Compare(a.ID, b.ID) })
	return windows
}

// Snapshot returns the windows on the active workspace of output.
func (s *Store) Snapshot(output string) []Window {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active, ok := s.active[output]
	if !ok {
		return nil
	}

	var windows []Window
	for _, w := range s.windows {
		if w.WorkspaceID == active {
			windows = append(windows, s.copyWindow(w))
		}
	}
	slices.SortFunc(windows, compareWindows)
	return windows
}

// OutputWindows returns the windows of every workspace on output, ordered by
// workspace position first.
func (s *Store) OutputWindows(output string) []Window {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var windows []Window
	for _, w := range s.windows {
		if ws, ok := s.workspaces[w.WorkspaceID]; ok && ws.Output == output {
			windows = append(windows, s.copyWindow(w))
		}
	}
	slices.SortFunc(windows, func(a, b Window) int {
		if c := cmp.Compare(s.workspaces[a.WorkspaceID].Idx, s.workspaces[b.WorkspaceID].Idx); c != 0 {
			return c
		}
		return compareWindows(a, b)
	})
	return windows
}

// compareWindows orders tiled windows by column and tile, floating windows last.
func compareWindows(a, b Window) int {
	if a.Tiled() != b.Tiled() {
		if a.Tiled() {
			return -1
		}
		return 1
	}
	if c := cmp.Compare(a.Column, b.Column); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Tile, b.Tile); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

func (s *Store) Workspace(id uint64) (Workspace, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ws, ok := s.workspaces[id]
	if !ok {
		return Workspace{}, false
	}
	return *ws, true
}

// ActiveWorkspace returns the active workspace of output.
func (s *Store) ActiveWorkspace(output string) (Workspace, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.active[output]
	if !ok {
		return Workspace{}, false
	}
	ws, ok := s.workspaces[id]
	if !ok {
		return Workspace{}, false
	}
	return *ws, true
}

func (s *Store) Output(name string) (Output, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	output, ok := s.outputs[name]
	if !ok {
		return Output{}, false
	}
	c := *output
	c.Workspaces = slices.Clone(output.Workspaces)
	return c, true
}

// Outputs returns every known output ordered left to right.
func (s *Store) Outputs() []Output {
	s.mu.RLock()
	defer s.mu.RUnlock()

	outputs := make([]Output, 0, len(s.outputs))
	for _, output := range s.outputs {
		c := *output
		c.Workspaces = slices.Clone(output.Workspaces)
		outputs = append(outputs, c)
	}
	slices.SortFunc(outputs, func(a, b Output) int {
		if c := cmp.Compare(a.X, b.X); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Y, b.Y); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return outputs
}

// FocusedWindow returns the locally focused window id, 0 when none.
func (s *Store) FocusedWindow() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.windows[s.focus()]; !ok {
		return 0
	}
	return s.focus()
}

// ColumnSize returns how many tiled windows share the column of window id.
func (s *Store) ColumnSize(id uint64) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.windows[id]
	if !ok || w.Floating || w.Column == 0 {
		return 0
	}

	count := 0
	for _, other := range s.windows {
		if other.WorkspaceID == w.WorkspaceID && !other.Floating && other.Column == w.Column {
			count++
		}
	}
	return count
}
