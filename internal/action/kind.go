package action

import (
	"fmt"

	"github.com/ItsNotGoodName/niri-taskbar/internal/store"
)

// Kind is one entry of the fixed action set.
type Kind string

const (
	None               Kind = "none"
	Menu               Kind = "menu"
	Focus              Kind = "focus"
	Close              Kind = "close"
	MoveToWorkspaceUp  Kind = "move-to-workspace-up"
	MoveToWorkspaceDn  Kind = "move-to-workspace-down"
	MoveToMonitorLeft  Kind = "move-to-monitor-left"
	MoveToMonitorRight Kind = "move-to-monitor-right"
	MoveToMonitor      Kind = "move-to-monitor"
	CenterWindow       Kind = "center-window"
	CenterColumn       Kind = "center-column"
	ExpandColumn       Kind = "expand-column"
	ConsumeIntoColumn  Kind = "consume-into-column"
	ExpelFromColumn    Kind = "expel-from-column"
	ResetHeight        Kind = "reset-height"
	CyclePresetWidth   Kind = "cycle-preset-width"
	CyclePresetHeight  Kind = "cycle-preset-height"
	ToggleTabbed       Kind = "toggle-tabbed"
	MaximizeColumn     Kind = "maximize-column"
	ToggleFloating     Kind = "toggle-floating"
	MoveColumnToIndex  Kind = "move-column-to-index"
)

// Kinds lists every action in context menu order.
var Kinds = []Kind{
	Focus,
	MaximizeColumn,
	ToggleFloating,
	CenterWindow,
	CenterColumn,
	ExpandColumn,
	ConsumeIntoColumn,
	ExpelFromColumn,
	ResetHeight,
	CyclePresetWidth,
	CyclePresetHeight,
	ToggleTabbed,
	MoveToWorkspaceUp,
	MoveToWorkspaceDn,
	MoveToMonitorLeft,
	MoveToMonitorRight,
	MoveToMonitor,
	MoveColumnToIndex,
	Close,
	Menu,
	None,
}

var labels = map[Kind]string{
	Focus:              "Focus",
	MaximizeColumn:     "Maximize Column",
	ToggleFloating:     "Toggle Floating",
	CenterWindow:       "Center Window",
	CenterColumn:       "Center Column",
	ExpandColumn:       "Expand Column",
	ConsumeIntoColumn:  "Consume into Column",
	ExpelFromColumn:    "Expel from Column",
	ResetHeight:        "Reset Height",
	CyclePresetWidth:   "Cycle Preset Width",
	CyclePresetHeight:  "Cycle Preset Height",
	ToggleTabbed:       "Toggle Tabbed Display",
	MoveToWorkspaceUp:  "Move to Workspace Up",
	MoveToWorkspaceDn:  "Move to Workspace Down",
	MoveToMonitorLeft:  "Move to Monitor Left",
	MoveToMonitorRight: "Move to Monitor Right",
	MoveToMonitor:      "Move to Monitor",
	MoveColumnToIndex:  "Move Column to Index",
	Close:              "Close Window",
	Menu:               "Menu",
	None:               "None",
}

func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := labels[k]; !ok {
		return "", fmt.Errorf("unknown action %q", s)
	}
	return k, nil
}

func (k Kind) Label() string {
	return labels[k]
}

// Local reports whether the action never reaches niri.
func (k Kind) Local() bool {
	return k == Menu || k == None
}

// needsArgument reports whether the action needs a Request field besides the
// window id.
func (k Kind) needsArgument() bool {
	return k == MoveToMonitor || k == MoveColumnToIndex
}

// State is the read side of the window store plus the optimistic ledger.
type State interface {
	Window(id uint64) (store.Window, bool)
	Workspace(id uint64) (store.Workspace, bool)
	Output(name string) (store.Output, bool)
	Outputs() []store.Output
	FocusedWindow() uint64
	ColumnSize(id uint64) int
}

// Applicable lists the dispatchable actions that apply to w in menu order.
// Actions that need an argument are left out.
func Applicable(state State, w store.Window) []Kind {
	var kinds []Kind
	for _, k := range Kinds {
		if k.Local() || k.needsArgument() {
			continue
		}
		if applies(state, k, w) == nil {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// applies returns ErrUnsupportedAction when k does not apply to the current
// mode of w.
func applies(state State, k Kind, w store.Window) error {
	unsupported := func(reason string) error {
		return fmt.Errorf("%w: %s %s", ErrUnsupportedAction, k, reason)
	}

	switch k {
	case Menu, None:
		return unsupported("is not a compositor action")
	case Focus, Close, ToggleFloating, CyclePresetWidth:
		return nil
	case CenterWindow, CenterColumn, ExpandColumn, ResetHeight, CyclePresetHeight, ToggleTabbed, MaximizeColumn, MoveColumnToIndex:
		if !w.Tiled() {
			return unsupported("needs a tiled window")
		}
		return nil
	case ConsumeIntoColumn:
		if !w.Tiled() {
			return unsupported("needs a tiled window")
		}
		if w.Column <= 1 {
			return unsupported("has no column to the left")
		}
		if state.ColumnSize(w.ID) > 1 {
			return unsupported("window is already in a column")
		}
		return nil
	case ExpelFromColumn:
		if !w.Tiled() || state.ColumnSize(w.ID) < 2 {
			return unsupported("window is not in a column")
		}
		return nil
	case MoveToWorkspaceUp:
		if _, ok := neighbourWorkspace(state, w, -1); !ok {
			return unsupported("no workspace above")
		}
		return nil
	case MoveToWorkspaceDn:
		if _, ok := neighbourWorkspace(state, w, 1); !ok {
			return unsupported("no workspace below")
		}
		return nil
	case MoveToMonitorLeft:
		if _, ok := neighbourOutput(state, w, -1); !ok {
			return unsupported("no output to the left")
		}
		return nil
	case MoveToMonitorRight:
		if _, ok := neighbourOutput(state, w, 1); !ok {
			return unsupported("no output to the right")
		}
		return nil
	case MoveToMonitor:
		if len(state.Outputs()) < 2 {
			return unsupported("needs more than one output")
		}
		return nil
	}

	return unsupported("is unknown")
}

func neighbourWorkspace(state State, w store.Window, delta int) (store.Workspace, bool) {
	current, ok := state.Workspace(w.WorkspaceID)
	if !ok {
		return store.Workspace{}, false
	}
	output, ok := state.Output(current.Output)
	if !ok {
		return store.Workspace{}, false
	}
	for _, id := range output.Workspaces {
		ws, ok := state.Workspace(id)
		if ok && int(ws.Idx) == int(current.Idx)+delta {
			return ws, true
		}
	}
	return store.Workspace{}, false
}

func neighbourOutput(state State, w store.Window, delta int) (store.Output, bool) {
	outputs := state.Outputs()
	for i, output := range outputs {
		if output.Name != w.Output {
			continue
		}
		j := i + delta
		if j < 0 || j >= len(outputs) {
			return store.Output{}, false
		}
		return outputs[j], true
	}
	return store.Output{}, false
}
