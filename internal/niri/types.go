package niri

import (
	"encoding/json"
	"fmt"
)

// Window is a toplevel window as reported by niri.
type Window struct {
	ID          uint64       `json:"id"`
	Title       *string      `json:"title"`
	AppID       *string      `json:"app_id"`
	PID         *int32       `json:"pid"`
	WorkspaceID *uint64      `json:"workspace_id"`
	IsFocused   bool         `json:"is_focused"`
	IsFloating  bool         `json:"is_floating"`
	IsUrgent    bool         `json:"is_urgent"`
	Layout      WindowLayout `json:"layout"`
}

// WindowLayout holds the position related properties of a window.
//
// PosInScrollingLayout is (column index, tile index in column), 1-based, and
// unset for floating windows.
type WindowLayout struct {
	PosInScrollingLayout *Pair[uint32] `json:"pos_in_scrolling_layout"`
	TileSize             Pair[float64] `json:"tile_size"`
	WindowSize           Pair[int32]   `json:"window_size"`
}

type Workspace struct {
	ID             uint64  `json:"id"`
	Idx            uint8   `json:"idx"`
	Name           *string `json:"name"`
	Output         *string `json:"output"`
	IsUrgent       bool    `json:"is_urgent"`
	IsActive       bool    `json:"is_active"`
	IsFocused      bool    `json:"is_focused"`
	ActiveWindowID *uint64 `json:"active_window_id"`
}

type Output struct {
	Name    string         `json:"name"`
	Make    string         `json:"make"`
	Model   string         `json:"model"`
	Logical *LogicalOutput `json:"logical"`
}

type LogicalOutput struct {
	X      int32   `json:"x"`
	Y      int32   `json:"y"`
	Width  uint32  `json:"width"`
	Height uint32  `json:"height"`
	Scale  float64 `json:"scale"`
}

type Numeric interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Pair is encoded as a 2-element JSON array.
type Pair[T Numeric] struct {
	X T
	Y T
}

func (p Pair[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal([]T{p.X, p.Y})
}

func (p *Pair[T]) UnmarshalJSON(data []byte) error {
	var arr []T
	if err := json.Unmarshal(data, &arr); err != nil {
		return err
	}
	if len(arr) != 2 {
		return fmt.Errorf("expected array of length 2, got %d", len(arr))
	}
	p.X, p.Y = arr[0], arr[1]
	return nil
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// Deref returns *p or the zero value.
func Deref[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}
