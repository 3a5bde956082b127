package niri

import (
	"encoding/json"
	"fmt"
)

// Request is anything that encodes to a niri request.
type Request interface{}

const (
	RequestWindows       = "Windows"
	RequestWorkspaces    = "Workspaces"
	RequestOutputs       = "Outputs"
	RequestFocusedWindow = "FocusedWindow"
	RequestEventStream   = "EventStream"
	RequestVersion       = "Version"
)

// Action is a niri action such as {"FocusWindow": {"id": 1}}.
type Action struct {
	Name   string
	Fields map[string]any
}

func NewAction(name string, fields map[string]any) Action {
	if fields == nil {
		fields = map[string]any{}
	}
	return Action{Name: name, Fields: fields}
}

func (a Action) MarshalJSON() ([]byte, error) {
	fields := a.Fields
	if fields == nil {
		fields = map[string]any{}
	}
	return json.Marshal(map[string]any{a.Name: fields})
}

func (a Action) String() string {
	return a.Name
}

// ActionRequest wraps an action into a request.
func ActionRequest(a Action) Request {
	return map[string]any{"Action": a}
}

// Reply is the Ok payload of a successful reply.
type Reply json.RawMessage

// Handled reports whether the reply is the bare "Handled" acknowledgement.
func (r Reply) Handled() bool {
	var s string
	return json.Unmarshal(r, &s) == nil && s == "Handled"
}

// Decode unmarshals the reply payload stored under key, e.g. {"Windows": [...]}.
func (r Reply) Decode(key string, v any) error {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(r, &envelope); err != nil {
		return fmt.Errorf("%w: decode reply: %w", ErrProtocol, err)
	}
	raw, ok := envelope[key]
	if !ok {
		return fmt.Errorf("%w: expected %s reply", ErrProtocol, key)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: decode %s: %w", ErrProtocol, key, err)
	}
	return nil
}

func decodeReply(line []byte) (Reply, error) {
	var envelope struct {
		Ok  json.RawMessage `json:"Ok"`
		Err *string         `json:"Err"`
	}
	if err := json.Unmarshal(line, &envelope); err != nil {
		return nil, fmt.Errorf("%w: decode reply: %w", ErrProtocol, err)
	}
	if envelope.Err != nil {
		return nil, RejectedError{Message: *envelope.Err}
	}
	if envelope.Ok == nil {
		return nil, fmt.Errorf("%w: reply has neither Ok nor Err", ErrProtocol)
	}
	return Reply(envelope.Ok), nil
}
