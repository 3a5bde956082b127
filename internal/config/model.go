package config

import (
	"fmt"
	"time"
)

const DefaultFile = ".niri-taskbar.yaml"

func Default() Config {
	return Config{
		MaxTaskbarWidth:     1200,
		MinButtonWidth:      150,
		MaxButtonWidth:      235,
		IconSize:            24,
		IconSpacing:         6,
		OnlyActiveWorkspace: true,
		ScrollToFocused:     true,
		Arrows: Arrows{
			Left:  "‹",
			Right: "›",
			Width: 20,
		},
		Outputs: map[string]OutputConfig{},
		Actions: Actions{
			Left:            "focus",
			LeftFocused:     "maximize-column",
			Right:           "menu",
			Middle:          "close",
			Double:          "none",
			FocusedDebounce: Duration(300 * time.Millisecond),
		},
		Menu:           []string{},
		IgnoreAppIDs:   []string{},
		Apps:           map[string][]AppRule{},
		Rules:          []Rule{},
		PendingTimeout: Duration(time.Second),
		RequestTimeout: Duration(2 * time.Second),
	}
}

type Config struct {
	// Socket overrides $NIRI_SOCKET.
	Socket string `json:"socket,omitempty" yaml:"socket,omitempty"`

	MaxTaskbarWidth     int  `json:"max_taskbar_width" yaml:"max_taskbar_width"`
	MinButtonWidth      int  `json:"min_button_width" yaml:"min_button_width"`
	MaxButtonWidth      int  `json:"max_button_width" yaml:"max_button_width"`
	IconSize            int  `json:"icon_size" yaml:"icon_size"`
	IconSpacing         int  `json:"icon_spacing" yaml:"icon_spacing"`
	ShowWindowTitles    bool `json:"show_window_titles" yaml:"show_window_titles"`
	OnlyActiveWorkspace bool `json:"only_active_workspace" yaml:"only_active_workspace"`
	ScrollToFocused     bool `json:"scroll_to_focused" yaml:"scroll_to_focused"`
	// ShowAllOutputs lists the windows of every output on each bar.
	ShowAllOutputs      bool `json:"show_all_outputs" yaml:"show_all_outputs"`

	Arrows  Arrows                  `json:"arrows" yaml:"arrows"`
	Outputs map[string]OutputConfig `json:"outputs" yaml:"outputs"`
	Actions Actions                 `json:"actions" yaml:"actions"`
	// Menu lists the actions offered by the context menu, every applicable
	// action when empty.
	Menu []string `json:"menu" yaml:"menu"`

	// Legacy switches, applied on top of Actions when set.
	MiddleClickClose      *bool `json:"middle_click_close,omitempty" yaml:"middle_click_close,omitempty"`
	ClickFocusedMaximizes *bool `json:"click_focused_maximizes,omitempty" yaml:"click_focused_maximizes,omitempty"`

	IgnoreAppIDs []string             `json:"ignore_app_ids" yaml:"ignore_app_ids"`
	Apps         map[string][]AppRule `json:"apps" yaml:"apps"`
	Rules        []Rule               `json:"rules" yaml:"rules"`

	PendingTimeout Duration `json:"pending_timeout" yaml:"pending_timeout"`
	RequestTimeout Duration `json:"request_timeout" yaml:"request_timeout"`

	Drag Drag `json:"drag" yaml:"drag"`
}

type Arrows struct {
	Left  string `json:"left" yaml:"left"`
	Right string `json:"right" yaml:"right"`
	Width int    `json:"width" yaml:"width"`
}

type OutputConfig struct {
	MaxTaskbarWidth int `json:"max_taskbar_width,omitempty" yaml:"max_taskbar_width,omitempty"`
	ArrowWidth      int `json:"arrow_width,omitempty" yaml:"arrow_width,omitempty"`
}

// Actions binds click gestures to action names. Empty fields inherit.
type Actions struct {
	Left            string   `json:"left,omitempty" yaml:"left,omitempty"`
	LeftFocused     string   `json:"left_focused,omitempty" yaml:"left_focused,omitempty"`
	Right           string   `json:"right,omitempty" yaml:"right,omitempty"`
	Middle          string   `json:"middle,omitempty" yaml:"middle,omitempty"`
	Double          string   `json:"double,omitempty" yaml:"double,omitempty"`
	FocusedDebounce Duration `json:"focused_debounce,omitempty" yaml:"focused_debounce,omitempty"`
}

type AppRule struct {
	Match string `json:"match" yaml:"match"`
	Class string `json:"class" yaml:"class"`
}

type Rule struct {
	AppID   string  `json:"app_id,omitempty" yaml:"app_id,omitempty"`
	Title   string  `json:"title,omitempty" yaml:"title,omitempty"`
	Visible *bool   `json:"visible,omitempty" yaml:"visible,omitempty"`
	Class   string  `json:"class,omitempty" yaml:"class,omitempty"`
	Actions Actions `json:"actions,omitempty" yaml:"actions,omitempty"`
}

type Drag struct {
	ReorderColumns bool `json:"reorder_columns" yaml:"reorder_columns"`
}

// MaxWidth returns the taskbar width limit of output.
func (c Config) MaxWidth(output string) int {
	if o, ok := c.Outputs[output]; ok && o.MaxTaskbarWidth > 0 {
		return o.MaxTaskbarWidth
	}
	return c.MaxTaskbarWidth
}

// ArrowWidth returns the scroll arrow width on output.
func (c Config) ArrowWidth(output string) int {
	if o, ok := c.Outputs[output]; ok && o.ArrowWidth > 0 {
		return o.ArrowWidth
	}
	return c.Arrows.Width
}

// Bindings returns the global click bindings with legacy switches applied.
func (c Config) Bindings() Actions {
	a := c.Actions
	if c.MiddleClickClose != nil {
		if *c.MiddleClickClose {
			a.Middle = "close"
		} else {
			a.Middle = "none"
		}
	}
	if c.ClickFocusedMaximizes != nil {
		if *c.ClickFocusedMaximizes {
			a.LeftFocused = "maximize-column"
		} else {
			a.LeftFocused = a.Left
		}
	}
	return a
}

func (c Config) Validate() error {
	switch {
	case c.MaxTaskbarWidth <= 0:
		return fmt.Errorf("max_taskbar_width must be positive: %d", c.MaxTaskbarWidth)
	case c.MinButtonWidth < 0:
		return fmt.Errorf("min_button_width must not be negative: %d", c.MinButtonWidth)
	case c.MaxButtonWidth < c.MinButtonWidth:
		return fmt.Errorf("max_button_width %d is below min_button_width %d", c.MaxButtonWidth, c.MinButtonWidth)
	case c.IconSize < 0 || c.IconSpacing < 0:
		return fmt.Errorf("icon_size and icon_spacing must not be negative")
	case c.Arrows.Width < 0:
		return fmt.Errorf("arrows.width must not be negative: %d", c.Arrows.Width)
	case c.MaxTaskbarWidth < 2*c.Arrows.Width:
		return fmt.Errorf("max_taskbar_width %d cannot hold both arrows of width %d", c.MaxTaskbarWidth, c.Arrows.Width)
	case c.PendingTimeout <= 0:
		return fmt.Errorf("pending_timeout must be positive: %s", c.PendingTimeout)
	case c.RequestTimeout <= 0:
		return fmt.Errorf("request_timeout must be positive: %s", c.RequestTimeout)
	case c.Actions.FocusedDebounce < 0:
		return fmt.Errorf("actions.focused_debounce must not be negative: %s", c.Actions.FocusedDebounce)
	}

	for name, o := range c.Outputs {
		if o.MaxTaskbarWidth < 0 || o.ArrowWidth < 0 {
			return fmt.Errorf("outputs.%s: widths must not be negative", name)
		}
		if width, arrow := c.MaxWidth(name), c.ArrowWidth(name); width < 2*arrow {
			return fmt.Errorf("outputs.%s: max_taskbar_width %d cannot hold both arrows of width %d", name, width, arrow)
		}
	}

	return nil
}

// Duration is a time.Duration written as "1s" in config files.
type Duration time.Duration

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}
