package core

// Signal holds a value and runs its effects when the value changes.
type Signal[T comparable] struct {
	v       T
	effects []func(T)
}

func NewSignal[T comparable](value T) *Signal[T] {
	return &Signal[T]{v: value}
}

func (s *Signal[T]) Value() T {
	return s.v
}

// SetValue stores value and reports whether it changed.
func (s *Signal[T]) SetValue(value T) bool {
	if s.v == value {
		return false
	}
	s.v = value
	for _, fn := range s.effects {
		fn(value)
	}
	return true
}

func (s *Signal[T]) AddEffect(fn func(T)) {
	s.effects = append(s.effects, fn)
}
