package layout

import "unicode/utf8"

// Measurer returns the preferred button width for a window title.
type Measurer interface {
	Measure(title string) int
}

// Metrics estimates button widths from icon and character sizes when the
// renderer has not reported real measurements.
type Metrics struct {
	MinWidth    int
	MaxWidth    int
	IconSize    int
	IconSpacing int
	Padding     int
	CharWidth   int
	ShowTitles  bool
}

func DefaultMetrics() Metrics {
	return Metrics{
		MinWidth:    150,
		MaxWidth:    235,
		IconSize:    24,
		IconSpacing: 6,
		Padding:     16,
		CharWidth:   8,
	}
}

func (m Metrics) Measure(title string) int {
	width := m.IconSize + m.Padding
	if m.ShowTitles && title != "" {
		width += m.IconSpacing + utf8.RuneCountInString(title)*m.CharWidth
	}

	if width < m.MinWidth {
		width = m.MinWidth
	}
	if m.MaxWidth > 0 && width > m.MaxWidth {
		width = m.MaxWidth
	}
	return width
}

// MaxTitleChars is how many title characters fit next to the icon at the
// maximum button width.
func (m Metrics) MaxTitleChars() int {
	if m.CharWidth <= 0 {
		return 0
	}
	chars := (m.MaxWidth - m.IconSize - m.IconSpacing - m.Padding) / m.CharWidth
	if chars < 0 {
		return 0
	}
	return chars
}

// Narrow shrinks buttons to an equal share of maxWidth when together they
// are wider than it. No button is shrunk below MinWidth or grown.
func (m Metrics) Narrow(buttons []Button, maxWidth int) []Button {
	total := 0
	for _, b := range buttons {
		total += b.Width
	}
	if len(buttons) == 0 || total <= maxWidth {
		return buttons
	}

	share := max(maxWidth/len(buttons), m.MinWidth)
	for i := range buttons {
		buttons[i].Width = min(buttons[i].Width, share)
	}
	return buttons
}
