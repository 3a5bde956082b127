package taskbar

import (
	"log/slog"
	"slices"

	"github.com/ItsNotGoodName/niri-taskbar/internal/core"
	"github.com/ItsNotGoodName/niri-taskbar/internal/layout"
	"github.com/ItsNotGoodName/niri-taskbar/internal/rules"
	"github.com/ItsNotGoodName/niri-taskbar/internal/store"
)

// Bar is the button strip of one output.
type Bar struct {
	Output string

	// order is the committed button order. New windows are appended, drops
	// reorder it.
	order  []uint64
	offset int
	input  layout.Input
	result layout.Result

	windows   map[uint64]store.Window
	decisions map[uint64]rules.Decision

	LeftArrow  *core.Signal[bool]
	RightArrow *core.Signal[bool]
}

func NewBar(output string) *Bar {
	b := &Bar{
		Output:     output,
		result:     layout.Compute(layout.Input{}),
		LeftArrow:  core.NewSignal(false),
		RightArrow: core.NewSignal(false),
	}
	b.LeftArrow.AddEffect(func(shown bool) {
		slog.Debug("Left arrow changed", "package", "taskbar", "output", output, "shown", shown)
	})
	b.RightArrow.AddEffect(func(shown bool) {
		slog.Debug("Right arrow changed", "package", "taskbar", "output", output, "shown", shown)
	})
	return b
}

// sync drops closed windows from the order and appends new ones in the
// given order. insert places a window dropped from another output.
func (b *Bar) sync(ids []uint64, insert map[uint64]int) {
	present := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		present[id] = struct{}{}
	}

	b.order = slices.DeleteFunc(b.order, func(id uint64) bool {
		_, ok := present[id]
		return !ok
	})

	for _, id := range ids {
		if slices.Contains(b.order, id) {
			continue
		}
		if index, ok := insert[id]; ok && index < len(b.order) {
			b.order = slices.Insert(b.order, index, id)
			delete(insert, id)
			continue
		}
		delete(insert, id)
		b.order = append(b.order, id)
	}
}

// Order returns the committed button order.
func (b *Bar) Order() []uint64 {
	return slices.Clone(b.order)
}

func (b *Bar) SetOrder(order []uint64) {
	b.order = slices.Clone(order)
}

func (b *Bar) Offset() int {
	return b.offset
}

func (b *Bar) Result() layout.Result {
	return b.result
}

// Commit computes the layout, commits the visible set and only then updates
// the arrow signals.
func (b *Bar) Commit(in layout.Input) layout.Result {
	in.Offset = b.offset
	b.input = in
	b.result = layout.Compute(in)
	b.offset = b.result.Offset

	b.LeftArrow.SetValue(b.result.LeftArrow)
	b.RightArrow.SetValue(b.result.RightArrow)

	return b.result
}

// Scroll moves the committed view by delta buttons.
func (b *Bar) Scroll(delta int) layout.Result {
	b.offset = layout.Scroll(b.input, delta).Offset
	return b.Commit(b.input)
}

// Reveal scrolls the least amount needed to fully show window id.
func (b *Bar) Reveal(id uint64) bool {
	index := slices.Index(b.order, id)
	if index == -1 || b.result.Contains(index) {
		return false
	}
	in := b.input
	in.Offset = b.offset
	offset := layout.EnsureVisible(in, index)
	if offset == b.offset {
		return false
	}
	b.offset = offset
	b.Commit(b.input)
	return true
}

func (b *Bar) SetOffset(offset int) {
	b.offset = layout.Clamp(offset, len(b.order))
}
