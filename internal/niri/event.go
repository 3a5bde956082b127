package niri

import (
	"encoding/json"
	"fmt"
)

// Event is one record of the niri event stream.
//
// Stream identifies the connection the event arrived on and Seq its 1-based
// position on that connection, so (Stream, Seq) identifies a delivery. Err is
// set when the line could not be decoded, in which case Payload is nil.
type Event struct {
	Stream  string
	Seq     uint64
	Kind    string
	Payload any
	Err     error
}

type (
	WindowsChanged struct {
		Windows []Window `json:"windows"`
	}
	WindowOpenedOrChanged struct {
		Window Window `json:"window"`
	}
	WindowClosed struct {
		ID uint64 `json:"id"`
	}
	WindowFocusChanged struct {
		ID *uint64 `json:"id"`
	}
	WindowUrgencyChanged struct {
		ID     uint64 `json:"id"`
		Urgent bool   `json:"urgent"`
	}
	WindowLayoutsChanged struct {
		Changes []WindowLayoutChange `json:"changes"`
	}
	WorkspacesChanged struct {
		Workspaces []Workspace `json:"workspaces"`
	}
	WorkspaceActivated struct {
		ID      uint64 `json:"id"`
		Focused bool   `json:"focused"`
	}
	WorkspaceActiveWindowChanged struct {
		WorkspaceID    uint64  `json:"workspace_id"`
		ActiveWindowID *uint64 `json:"active_window_id"`
	}
	WorkspaceUrgencyChanged struct {
		ID     uint64 `json:"id"`
		Urgent bool   `json:"urgent"`
	}
	// Unknown is any event kind this program does not model.
	Unknown struct {
		Raw json.RawMessage
	}
)

// WindowLayoutChange is encoded by niri as [id, layout].
type WindowLayoutChange struct {
	ID     uint64
	Layout WindowLayout
}

func (c *WindowLayoutChange) UnmarshalJSON(data []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return err
	}
	if len(tuple) != 2 {
		return fmt.Errorf("expected [id, layout], got %d elements", len(tuple))
	}
	if err := json.Unmarshal(tuple[0], &c.ID); err != nil {
		return err
	}
	return json.Unmarshal(tuple[1], &c.Layout)
}

var eventDecoders = map[string]func() any{
	"WindowsChanged":               func() any { return &WindowsChanged{} },
	"WindowOpenedOrChanged":        func() any { return &WindowOpenedOrChanged{} },
	"WindowClosed":                 func() any { return &WindowClosed{} },
	"WindowFocusChanged":           func() any { return &WindowFocusChanged{} },
	"WindowUrgencyChanged":         func() any { return &WindowUrgencyChanged{} },
	"WindowLayoutsChanged":         func() any { return &WindowLayoutsChanged{} },
	"WorkspacesChanged":            func() any { return &WorkspacesChanged{} },
	"WorkspaceActivated":           func() any { return &WorkspaceActivated{} },
	"WorkspaceActiveWindowChanged": func() any { return &WorkspaceActiveWindowChanged{} },
	"WorkspaceUrgencyChanged":      func() any { return &WorkspaceUrgencyChanged{} },
}

// DecodeEvent decodes a single event line of the form {"Kind": {...}}.
// The returned payload is a value (not a pointer) of one of the event types.
func DecodeEvent(line []byte) (string, any, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(line, &envelope); err != nil {
		return "", nil, fmt.Errorf("%w: decode event: %w", ErrProtocol, err)
	}
	if len(envelope) != 1 {
		return "", nil, fmt.Errorf("%w: event has %d keys, want 1", ErrProtocol, len(envelope))
	}

	for kind, raw := range envelope {
		newPayload, ok := eventDecoders[kind]
		if !ok {
			return kind, Unknown{Raw: raw}, nil
		}

		payload := newPayload()
		if err := json.Unmarshal(raw, payload); err != nil {
			return kind, nil, fmt.Errorf("%w: decode %s: %w", ErrProtocol, kind, err)
		}

		return kind, deref(payload), nil
	}

	panic("unreachable")
}

func deref(payload any) any {
	switch p := payload.(type) {
	case *WindowsChanged:
		return *p
	case *WindowOpenedOrChanged:
		return *p
	case *WindowClosed:
		return *p
	case *WindowFocusChanged:
		return *p
	case *WindowUrgencyChanged:
		return *p
	case *WindowLayoutsChanged:
		return *p
	case *WorkspacesChanged:
		return *p
	case *WorkspaceActivated:
		return *p
	case *WorkspaceActiveWindowChanged:
		return *p
	case *WorkspaceUrgencyChanged:
		return *p
	default:
		return payload
	}
}
