package store

import (
	"cmp"
	"errors"
	"log/slog"
	"slices"
	"time"
)

// ErrStalePending is logged when an optimistic update was never confirmed and
// got rolled back.
var ErrStalePending = errors.New("optimistic update not confirmed")

// RecordPending records an optimistic update. Recording the same window and
// kind again refreshes the issue time.
func (s *Store) RecordPending(p Pending) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending[pendingKey{windowID: p.WindowID, kind: p.Kind}] = p
}

// FocusOptimistic shows id as focused before niri confirms it. Older pending
// focus records are superseded.
func (s *Store) FocusOptimistic(id uint64, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.pending {
		if key.kind == PendingFocus {
			delete(s.pending, key)
		}
	}
	s.pending[pendingKey{windowID: id, kind: PendingFocus}] = Pending{
		WindowID: id,
		Kind:     PendingFocus,
		Issued:   now,
	}
}

// ConfirmPending removes the pending record and reports whether it existed.
func (s *Store) ConfirmPending(windowID uint64, kind PendingKind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.confirmPending(windowID, kind)
}

func (s *Store) confirmPending(windowID uint64, kind PendingKind) bool {
	key := pendingKey{windowID: windowID, kind: kind}
	if _, ok := s.pending[key]; !ok {
		return false
	}
	delete(s.pending, key)
	return true
}

// CancelPending drops a pending record without waiting for its expiry, used
// when the request behind it failed.
func (s *Store) CancelPending(windowID uint64, kind PendingKind) bool {
	return s.ConfirmPending(windowID, kind)
}

// ExpirePending rolls back every pending record older than the pending TTL
// and returns them. Local state falls back to the last confirmed value.
func (s *Store) ExpirePending(now time.Time) []Pending {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []Pending
	for key, p := range s.pending {
		if now.Sub(p.Issued) >= s.pendingTTL {
			delete(s.pending, key)
			expired = append(expired, p)
		}
	}
	slices.SortFunc(expired, comparePending)

	for _, p := range expired {
		slog.Warn("Rolled back optimistic update",
			"package", "store",
			"window", p.WindowID,
			"kind", p.Kind,
			"error", ErrStalePending)
	}

	return expired
}

// Pending returns every unconfirmed optimistic update, oldest first.
func (s *Store) Pending() []Pending {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pending := make([]Pending, 0, len(s.pending))
	for _, p := range s.pending {
		pending = append(pending, p)
	}
	slices.SortFunc(pending, comparePending)
	return pending
}

func comparePending(a, b Pending) int {
	if c := a.Issued.Compare(b.Issued); c != 0 {
		return c
	}
	return cmp.Compare(a.WindowID, b.WindowID)
}

// confirmFocus records authoritative focus. A matching pending focus is
// confirmed and pending focus records issued before it are superseded.
// Non-matching pending records stay until confirmed or expired.
func (s *Store) confirmFocus(id uint64) {
	s.confirmedFocus = id
	if id == 0 {
		return
	}

	key := pendingKey{windowID: id, kind: PendingFocus}
	confirmed, ok := s.pending[key]
	if !ok {
		return
	}
	delete(s.pending, key)

	for k, p := range s.pending {
		if k.kind == PendingFocus && !p.Issued.After(confirmed.Issued) {
			delete(s.pending, k)
		}
	}
}

// prunePending drops records of windows that no longer exist.
func (s *Store) prunePending() {
	for key := range s.pending {
		if _, ok := s.windows[key.windowID]; !ok {
			delete(s.pending, key)
		}
	}
}
