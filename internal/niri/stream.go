package niri

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"
)

// EventStream is a single subscription to the niri event stream.
// It cannot be restarted; subscribe again after it ends.
type EventStream struct {
	id      string
	conn    net.Conn
	eventC  chan Event
	scanErr error
}

// Subscribe opens a dedicated socket, requests the event stream and starts
// decoding events. The returned stream stops when ctx is done or the socket
// closes.
func Subscribe(ctx context.Context, path string) (*EventStream, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}

	// Only the handshake has a deadline.
	deadline := time.Now().Add(DefaultTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Unix(1, 0))
	})

	reader, err := handshake(conn)
	if !stop() && err == nil {
		err = ctx.Err()
	}
	if err != nil {
		conn.Close()
		return nil, handshakeError(ctx, err)
	}
	if err := conn.SetDeadline(time.Time{}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}

	s := &EventStream{
		id:     uuid.NewString(),
		conn:   conn,
		eventC: make(chan Event),
	}

	go s.run(ctx, reader)

	return s, nil
}

func handshake(conn net.Conn) (*bufio.Reader, error) {
	payload, _ := json.Marshal(RequestEventStream)
	if _, err := conn.Write(append(payload, '\n')); err != nil {
		return nil, err
	}

	reader := bufio.NewReader(conn)
	line, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, err
	}
	reply, err := decodeReply(line)
	if err != nil {
		return nil, err
	}
	if !reply.Handled() {
		return nil, fmt.Errorf("%w: unexpected event stream reply %s", ErrProtocol, string(reply))
	}
	return reader, nil
}

func handshakeError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	var netErr net.Error
	switch {
	case errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("%w: event stream handshake", ErrTimeout)
	case errors.Is(err, ErrProtocol):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}
}

func (s *EventStream) ID() string {
	return s.id
}

// Events yields events in received order. It is closed when the stream ends.
func (s *EventStream) Events() <-chan Event {
	return s.eventC
}

// Err returns the read error that ended the stream, if any. Only valid after
// Events is closed.
func (s *EventStream) Err() error {
	return s.scanErr
}

func (s *EventStream) Close() error {
	return s.conn.Close()
}

func (s *EventStream) run(ctx context.Context, reader *bufio.Reader) {
	defer close(s.eventC)
	defer s.conn.Close()
	slog := slog.With("package", "niri", "stream", s.id)

	stop := context.AfterFunc(ctx, func() { s.conn.Close() })
	defer stop()

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var seq uint64
	for scanner.Scan() {
		seq++
		ev := Event{Stream: s.id, Seq: seq}

		kind, payload, err := DecodeEvent(scanner.Bytes())
		ev.Kind, ev.Payload, ev.Err = kind, payload, err
		if err != nil {
			slog.Warn("Failed to decode event", "seq", seq, "error", err)
		}

		select {
		case s.eventC <- ev:
		case <-ctx.Done():
			return
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		s.scanErr = fmt.Errorf("%w: %w", ErrConnection, err)
		slog.Error("Event stream failed", "error", err)
	}
}
