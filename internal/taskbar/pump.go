package taskbar

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ItsNotGoodName/niri-taskbar/internal/niri"
)

// Pump forwards the niri event stream to the taskbar. It returns when the
// stream ends so its supervisor can reconnect with backoff.
type Pump struct {
	path    string
	conn    niri.Requester
	taskbar *Taskbar
}

func NewPump(path string, conn niri.Requester, taskbar *Taskbar) Pump {
	return Pump{
		path:    path,
		conn:    conn,
		taskbar: taskbar,
	}
}

func (p Pump) String() string {
	return "taskbar.Pump"
}

func (p Pump) Serve(ctx context.Context) error {
	slog := slog.With("package", "taskbar", "socket", p.path)

	stream, err := niri.Subscribe(ctx, p.path)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer stream.Close()

	slog.Info("Connected to niri", "stream", stream.ID())

	outputs, err := niri.Outputs(ctx, p.conn)
	if err != nil {
		slog.Warn("Failed to query outputs", "error", err)
	}
	if err := p.taskbar.connect(ctx, stream.ID(), outputs); err != nil {
		return err
	}

	for ev := range stream.Events() {
		if err := p.taskbar.Deliver(ctx, ev); err != nil {
			return err
		}

		// niri has no output events. New workspaces are the hint that
		// outputs changed.
		if _, ok := ev.Payload.(niri.WorkspacesChanged); ok {
			outputs, err := niri.Outputs(ctx, p.conn)
			if err != nil {
				slog.Warn("Failed to query outputs", "error", err)
				continue
			}
			if err := p.taskbar.setOutputs(ctx, outputs); err != nil {
				return err
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	slog.Warn("Disconnected from niri", "error", stream.Err())
	if err := p.taskbar.disconnect(ctx); err != nil {
		return err
	}

	if err := stream.Err(); err != nil {
		return err
	}
	return fmt.Errorf("%w: event stream closed", niri.ErrConnection)
}
