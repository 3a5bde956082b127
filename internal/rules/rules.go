// Package rules decides per window whether it gets a button, which style
// classes the button carries and which actions its gestures trigger.
package rules

import (
	"fmt"
	"regexp"
	"slices"

	"github.com/ItsNotGoodName/niri-taskbar/internal/action"
	"github.com/ItsNotGoodName/niri-taskbar/internal/config"
	"github.com/ItsNotGoodName/niri-taskbar/internal/store"
)

// Decision is the outcome of evaluating a window.
type Decision struct {
	Visible  bool            `json:"visible"`
	Classes  []string        `json:"classes"`
	Bindings action.Bindings `json:"bindings"`
}

type rule struct {
	appID    *regexp.Regexp
	title    *regexp.Regexp
	visible  *bool
	class    string
	bindings action.Bindings
}

func (r rule) match(w store.Window) bool {
	if r.appID != nil && !r.appID.MatchString(w.AppID) {
		return false
	}
	if r.title != nil && !r.title.MatchString(w.Title) {
		return false
	}
	return true
}

type appRule struct {
	match *regexp.Regexp
	class string
}

// Engine evaluates compiled rules. It is immutable after Compile.
type Engine struct {
	ignore   map[string]struct{}
	rules    []rule
	apps     map[string][]appRule
	bindings action.Bindings
}

// Compile compiles every pattern of cfg. Errors name the offending rule.
func Compile(cfg config.Config) (*Engine, error) {
	bindings, err := parseBindings(cfg.Bindings())
	if err != nil {
		return nil, fmt.Errorf("actions: %w", err)
	}

	e := &Engine{
		ignore:   make(map[string]struct{}, len(cfg.IgnoreAppIDs)),
		apps:     make(map[string][]appRule, len(cfg.Apps)),
		bindings: bindings.Merge(action.DefaultBindings()),
	}

	for _, id := range cfg.IgnoreAppIDs {
		e.ignore[id] = struct{}{}
	}

	for i, r := range cfg.Rules {
		compiled := rule{
			visible: r.Visible,
			class:   r.Class,
		}

		if r.AppID != "" {
			if compiled.appID, err = regexp.Compile(r.AppID); err != nil {
				return nil, fmt.Errorf("rules[%d].app_id: %w", i, err)
			}
		}
		if r.Title != "" {
			if compiled.title, err = regexp.Compile(r.Title); err != nil {
				return nil, fmt.Errorf("rules[%d].title: %w", i, err)
			}
		}
		if compiled.bindings, err = parseBindings(r.Actions); err != nil {
			return nil, fmt.Errorf("rules[%d].actions: %w", i, err)
		}

		e.rules = append(e.rules, compiled)
	}

	for appID, rules := range cfg.Apps {
		for i, r := range rules {
			match, err := regexp.Compile(r.Match)
			if err != nil {
				return nil, fmt.Errorf("apps.%s[%d].match: %w", appID, i, err)
			}
			e.apps[appID] = append(e.apps[appID], appRule{match: match, class: r.Class})
		}
	}

	return e, nil
}

func parseBindings(a config.Actions) (action.Bindings, error) {
	var (
		b   action.Bindings
		err error
	)
	for _, f := range []struct {
		name  string
		value string
		dst   *action.Kind
	}{
		{"left", a.Left, &b.Left},
		{"left_focused", a.LeftFocused, &b.LeftFocused},
		{"right", a.Right, &b.Right},
		{"middle", a.Middle, &b.Middle},
		{"double", a.Double, &b.Double},
	} {
		if f.value == "" {
			continue
		}
		if *f.dst, err = action.ParseKind(f.value); err != nil {
			return action.Bindings{}, fmt.Errorf("%s: %w", f.name, err)
		}
	}
	return b, nil
}

// Evaluate decides how w is shown. Visibility, class and every gesture are
// settled independently by the first rule that sets them.
func (e *Engine) Evaluate(w store.Window) Decision {
	d := Decision{
		Visible:  true,
		Classes:  []string{},
		Bindings: e.bindings,
	}

	if _, ok := e.ignore[w.AppID]; ok {
		d.Visible = false
		return d
	}

	var (
		visibleSet bool
		classSet   bool
		bindings   action.Bindings
	)
	for _, r := range e.rules {
		if !r.match(w) {
			continue
		}
		if !visibleSet && r.visible != nil {
			d.Visible, visibleSet = *r.visible, true
		}
		if !classSet && r.class != "" {
			d.Classes, classSet = append(d.Classes, r.class), true
		}
		bindings = bindings.Merge(r.bindings)
	}
	d.Bindings = bindings.Merge(e.bindings)

	for _, r := range e.apps[w.AppID] {
		if r.match.MatchString(w.Title) && !slices.Contains(d.Classes, r.class) {
			d.Classes = append(d.Classes, r.class)
		}
	}

	return d
}

// Bindings returns the global click bindings.
func (e *Engine) Bindings() action.Bindings {
	return e.bindings
}
