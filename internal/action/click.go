package action

import (
	"fmt"
	"time"
)

type Gesture string

const (
	Left   Gesture = "left"
	Right  Gesture = "right"
	Middle Gesture = "middle"
	Double Gesture = "double"
)

func ParseGesture(s string) (Gesture, error) {
	switch g := Gesture(s); g {
	case Left, Right, Middle, Double:
		return g, nil
	}
	return "", fmt.Errorf("unknown gesture %q", s)
}

// Bindings maps gestures to actions. LeftFocused applies to a left click on
// the already focused window.
type Bindings struct {
	Left        Kind `json:"left"`
	LeftFocused Kind `json:"left_focused"`
	Right       Kind `json:"right"`
	Middle      Kind `json:"middle"`
	Double      Kind `json:"double"`
}

func DefaultBindings() Bindings {
	return Bindings{
		Left:        Focus,
		LeftFocused: MaximizeColumn,
		Right:       Menu,
		Middle:      Close,
		Double:      None,
	}
}

// Merge fills unset bindings of b from fallback.
func (b Bindings) Merge(fallback Bindings) Bindings {
	pick := func(k, f Kind) Kind {
		if k == "" {
			return f
		}
		return k
	}
	return Bindings{
		Left:        pick(b.Left, fallback.Left),
		LeftFocused: pick(b.LeftFocused, fallback.LeftFocused),
		Right:       pick(b.Right, fallback.Right),
		Middle:      pick(b.Middle, fallback.Middle),
		Double:      pick(b.Double, fallback.Double),
	}
}

func (b Bindings) For(g Gesture, focused bool) Kind {
	var k Kind
	switch g {
	case Left:
		k = b.Left
		if focused {
			k = b.LeftFocused
		}
	case Right:
		k = b.Right
	case Middle:
		k = b.Middle
	case Double:
		k = b.Double
	}
	if k == "" {
		return None
	}
	return k
}

// Clicker resolves gestures to actions. Repeated left clicks on a focused
// window within the debounce interval resolve to None.
//
// Clicker is not safe for concurrent use.
type Clicker struct {
	debounce time.Duration
	last     map[uint64]time.Time
}

func NewClicker(debounce time.Duration) *Clicker {
	return &Clicker{
		debounce: debounce,
		last:     make(map[uint64]time.Time),
	}
}

func (c *Clicker) SetDebounce(debounce time.Duration) {
	c.debounce = debounce
}

func (c *Clicker) Resolve(g Gesture, windowID uint64, focused bool, b Bindings, now time.Time) Kind {
	k := b.For(g, focused)
	if g != Left || !focused || k == b.Left {
		return k
	}

	if last, ok := c.last[windowID]; ok && now.Sub(last) <= c.debounce {
		return None
	}
	c.last[windowID] = now
	return k
}

// Forget drops the debounce state of a closed window.
func (c *Clicker) Forget(windowID uint64) {
	delete(c.last, windowID)
}
