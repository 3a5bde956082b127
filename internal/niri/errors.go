package niri

import (
	"errors"
	"fmt"
)

var (
	ErrConnection = errors.New("niri connection failed")
	ErrProtocol   = errors.New("niri protocol error")
	ErrTimeout    = errors.New("niri request timed out")
)

// RejectedError is returned when niri answers a request with {"Err": ...}.
type RejectedError struct {
	Message string
}

func (e RejectedError) Error() string {
	return fmt.Sprintf("niri rejected request: %s", e.Message)
}

func (e RejectedError) Is(target error) bool {
	return target == ErrProtocol
}
