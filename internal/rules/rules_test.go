package rules

import (
	"testing"

	"github.com/ItsNotGoodName/niri-taskbar/internal/action"
	"github.com/ItsNotGoodName/niri-taskbar/internal/config"
	"github.com/ItsNotGoodName/niri-taskbar/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestEvaluateDefaults(t *testing.T) {
	e, err := Compile(config.Default())
	require.NoError(t, err)

	d := e.Evaluate(store.Window{ID: 1, AppID: "foot", Title: "~"})
	assert.True(t, d.Visible)
	assert.Empty(t, d.Classes)
	assert.Equal(t, action.DefaultBindings(), d.Bindings)
}

func TestEvaluateFirstMatchPerAxis(t *testing.T) {
	cfg := config.Default()
	cfg.Rules = []config.Rule{
		{AppID: "^firefox$", Title: "Private", Visible: ptr(false)},
		{AppID: "^firefox$", Class: "browser", Actions: config.Actions{Middle: "none"}},
		{AppID: "^fire", Visible: ptr(true), Class: "hot", Actions: config.Actions{Middle: "close", Right: "toggle-floating"}},
	}
	e, err := Compile(cfg)
	require.NoError(t, err)

	d := e.Evaluate(store.Window{AppID: "firefox", Title: "Private Browsing"})
	assert.False(t, d.Visible)
	assert.Equal(t, []string{"browser"}, d.Classes)
	assert.Equal(t, action.None, d.Bindings.Middle)
	assert.Equal(t, action.ToggleFloating, d.Bindings.Right)
	assert.Equal(t, action.Focus, d.Bindings.Left)

	d = e.Evaluate(store.Window{AppID: "firefox", Title: "Docs"})
	assert.True(t, d.Visible)

	d = e.Evaluate(store.Window{AppID: "firefly", Title: "Docs"})
	assert.True(t, d.Visible)
	assert.Equal(t, []string{"hot"}, d.Classes)
	assert.Equal(t, action.Close, d.Bindings.Middle)
}

func TestEvaluateIgnoreAndApps(t *testing.T) {
	cfg := config.Default()
	cfg.IgnoreAppIDs = []string{"nm-applet"}
	cfg.Rules = []config.Rule{{AppID: "nm-applet", Visible: ptr(true)}, {AppID: "mpv", Class: "media"}}
	cfg.Apps = map[string][]config.AppRule{
		"mpv": {
			{Match: "\\.mkv$", Class: "video"},
			{Match: ".*", Class: "media"},
			{Match: "^$", Class: "empty"},
		},
	}
	e, err := Compile(cfg)
	require.NoError(t, err)

	assert.False(t, e.Evaluate(store.Window{AppID: "nm-applet"}).Visible)
	assert.Equal(t, []string{"media", "video"}, e.Evaluate(store.Window{AppID: "mpv", Title: "a.mkv"}).Classes)
}

func TestCompileErrors(t *testing.T) {
	cfg := config.Default()
	cfg.Rules = []config.Rule{{AppID: "ok"}, {Title: "("}}
	_, err := Compile(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rules[1].title")

	cfg = config.Default()
	cfg.Apps = map[string][]config.AppRule{"foot": {{Match: "[", Class: "x"}}}
	_, err = Compile(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apps.foot[0].match")

	cfg = config.Default()
	cfg.Rules = []config.Rule{{Actions: config.Actions{Double: "explode"}}}
	_, err = Compile(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rules[0].actions: double")

	cfg = config.Default()
	cfg.Actions.Left = "nope"
	_, err = Compile(cfg)
	assert.Error(t, err)
}

func TestLegacySwitches(t *testing.T) {
	cfg := config.Default()
	cfg.MiddleClickClose = ptr(false)
	cfg.ClickFocusedMaximizes = ptr(false)
	e, err := Compile(cfg)
	require.NoError(t, err)

	assert.Equal(t, action.None, e.Bindings().Middle)
	assert.Equal(t, action.Focus, e.Bindings().LeftFocused)
}
