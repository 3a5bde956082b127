package niri

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

const DefaultTimeout = 2 * time.Second

// SocketPath returns the path of the niri IPC socket.
func SocketPath() (string, error) {
	path := os.Getenv("NIRI_SOCKET")
	if path == "" {
		return "", fmt.Errorf("%w: NIRI_SOCKET not set", ErrConnection)
	}
	return path, nil
}

// Requester sends a single request to niri.
type Requester interface {
	Send(ctx context.Context, req Request) (Reply, error)
}

// Conn is the request side of the niri socket.
//
// niri answers exactly one request per connection, so every Send dials a
// fresh socket. Sends are serialized so requests reach niri in call order.
type Conn struct {
	path    string
	timeout time.Duration

	mu sync.Mutex
}

// Dial checks that the niri socket answers and returns a Conn for it.
func Dial(ctx context.Context, path string, timeout time.Duration) (*Conn, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &Conn{
		path:    path,
		timeout: timeout,
	}

	if _, err := c.Send(ctx, RequestVersion); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Conn) Path() string {
	return c.path
}

func (c *Conn) Send(ctx context.Context, req Request) (Reply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := uuid.NewString()
	slog := slog.With("package", "niri", "request", id)

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %w", ErrProtocol, err)
	}
	payload = append(payload, '\n')

	line, err := c.roundTrip(ctx, payload)
	if err != nil {
		slog.Debug("Request failed", "payload", string(payload[:len(payload)-1]), "error", err)
		return nil, err
	}

	reply, err := decodeReply(line)
	if err != nil {
		slog.Debug("Request rejected", "payload", string(payload[:len(payload)-1]), "error", err)
		return nil, err
	}

	slog.Debug("Request handled", "payload", string(payload[:len(payload)-1]))

	return reply, nil
}

func (c *Conn) roundTrip(ctx context.Context, payload []byte) ([]byte, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", c.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}

	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	if _, err := conn.Write(payload); err != nil {
		return nil, c.wrapIOError(ctx, err)
	}

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		return nil, c.wrapIOError(ctx, err)
	}

	return line, nil
}

func (c *Conn) wrapIOError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w after %s", ErrTimeout, c.timeout)
	}

	return fmt.Errorf("%w: %w", ErrConnection, err)
}

// Windows returns every window.
func Windows(ctx context.Context, r Requester) ([]Window, error) {
	reply, err := r.Send(ctx, RequestWindows)
	if err != nil {
		return nil, err
	}
	var windows []Window
	return windows, reply.Decode("Windows", &windows)
}

// Workspaces returns every workspace.
func Workspaces(ctx context.Context, r Requester) ([]Workspace, error) {
	reply, err := r.Send(ctx, RequestWorkspaces)
	if err != nil {
		return nil, err
	}
	var workspaces []Workspace
	return workspaces, reply.Decode("Workspaces", &workspaces)
}

// Outputs returns every connected output keyed by name.
func Outputs(ctx context.Context, r Requester) (map[string]Output, error) {
	reply, err := r.Send(ctx, RequestOutputs)
	if err != nil {
		return nil, err
	}
	var outputs map[string]Output
	return outputs, reply.Decode("Outputs", &outputs)
}

// FocusedWindow returns the focused window or nil.
func FocusedWindow(ctx context.Context, r Requester) (*Window, error) {
	reply, err := r.Send(ctx, RequestFocusedWindow)
	if err != nil {
		return nil, err
	}
	var window *Window
	return window, reply.Decode("FocusedWindow", &window)
}

// Do runs an action and expects the Handled acknowledgement.
func Do(ctx context.Context, r Requester, action Action) error {
	reply, err := r.Send(ctx, ActionRequest(action))
	if err != nil {
		return fmt.Errorf("%s: %w", action.Name, err)
	}
	if !reply.Handled() {
		return fmt.Errorf("%s: %w: unexpected reply %s", action.Name, ErrProtocol, string(reply))
	}
	return nil
}
