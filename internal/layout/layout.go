// Package layout decides which taskbar buttons are visible on an output.
//
// Everything here is pure: the same Input always yields the same Result.
package layout

type Button struct {
	ID    uint64 `json:"id"`
	Width int    `json:"width"`
}

type Input struct {
	Buttons    []Button
	MaxWidth   int
	ArrowWidth int
	// Offset is the index of the first visible button when scrolled.
	Offset int
}

type Slot struct {
	ID    uint64 `json:"id"`
	Index int    `json:"index"`
	X     int    `json:"x"`
	Width int    `json:"width"`
	// Clipped is set when the button got less than its preferred width.
	Clipped bool `json:"clipped,omitempty"`
}

type Result struct {
	Offset     int    `json:"offset"`
	Scrolled   bool   `json:"scrolled"`
	Visible    []Slot `json:"visible"`
	LeftArrow  bool   `json:"left_arrow"`
	RightArrow bool   `json:"right_arrow"`
	// Width is the used width including arrows.
	Width int `json:"width"`
}

// Clamp keeps offset inside [0, n-1], or 0 when there are no buttons.
func Clamp(offset, n int) int {
	if n <= 0 || offset < 0 {
		return 0
	}
	if offset > n-1 {
		return n - 1
	}
	return offset
}

func Compute(in Input) Result {
	n := len(in.Buttons)
	if n == 0 {
		return Result{Visible: []Slot{}}
	}

	total := 0
	for _, b := range in.Buttons {
		total += b.Width
	}

	if total <= in.MaxWidth {
		return Result{
			Visible: place(in.Buttons, 0, 0, n),
			Width:   total,
		}
	}

	res := Result{
		Offset:   Clamp(in.Offset, n),
		Scrolled: true,
	}

	// Arrows that do not fit are dropped so the bar never exceeds MaxWidth.
	start := 0
	avail := in.MaxWidth
	if res.Offset > 0 && in.ArrowWidth <= avail {
		res.LeftArrow = true
		start = in.ArrowWidth
		avail -= in.ArrowWidth
	}

	rest := 0
	for _, b := range in.Buttons[res.Offset:] {
		rest += b.Width
	}

	if rest <= avail {
		res.Visible = place(in.Buttons, start, res.Offset, n)
		res.Width = start + rest
		return res
	}

	if in.ArrowWidth <= avail {
		res.RightArrow = true
		avail -= in.ArrowWidth
	}

	end, used := res.Offset, 0
	for end < n && used+in.Buttons[end].Width <= avail {
		used += in.Buttons[end].Width
		end++
	}

	if end > res.Offset {
		res.Visible = place(in.Buttons, start, res.Offset, end)
	} else if avail > 0 {
		b := in.Buttons[res.Offset]
		res.Visible = []Slot{{ID: b.ID, Index: res.Offset, X: start, Width: avail, Clipped: true}}
		used = avail
	} else {
		res.Visible = []Slot{}
	}

	res.Width = start + used
	if res.RightArrow {
		res.Width += in.ArrowWidth
	}
	return res
}

func place(buttons []Button, x, from, to int) []Slot {
	slots := make([]Slot, 0, to-from)
	for i := from; i < to; i++ {
		slots = append(slots, Slot{ID: buttons[i].ID, Index: i, X: x, Width: buttons[i].Width})
		x += buttons[i].Width
	}
	return slots
}

// Scroll moves the offset by delta buttons and recomputes.
func Scroll(in Input, delta int) Result {
	in.Offset = Clamp(Compute(in).Offset+delta, len(in.Buttons))
	return Compute(in)
}

// EnsureVisible returns the offset closest to in.Offset that fully shows the
// button at index.
func EnsureVisible(in Input, index int) int {
	res := Compute(in)
	if !res.Scrolled || index < 0 || index >= len(in.Buttons) {
		return res.Offset
	}
	if index <= res.Offset {
		return index
	}
	if res.Contains(index) {
		return res.Offset
	}

	for offset := res.Offset + 1; offset < index; offset++ {
		in.Offset = offset
		if Compute(in).Contains(index) {
			return offset
		}
	}
	return index
}

// Contains reports whether the button at index is fully visible.
func (r Result) Contains(index int) bool {
	for _, slot := range r.Visible {
		if slot.Index == index {
			return !slot.Clipped
		}
	}
	return false
}

// Slot returns the visible slot of button id.
func (r Result) Slot(id uint64) (Slot, bool) {
	for _, slot := range r.Visible {
		if slot.ID == id {
			return slot, true
		}
	}
	return Slot{}, false
}
