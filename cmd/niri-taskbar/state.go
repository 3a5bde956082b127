package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/ItsNotGoodName/niri-taskbar/internal/niri"
	"github.com/ItsNotGoodName/niri-taskbar/internal/rules"
	"github.com/ItsNotGoodName/niri-taskbar/internal/store"
	"github.com/ItsNotGoodName/niri-taskbar/internal/taskbar"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/k0kubun/pp"
)

// printState connects once, builds the store from queries and prints it with
// the bars the taskbar would show.
func printState(ctx context.Context, options *Options) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()

	cfgStore, _, err := openConfig(options)
	if err != nil {
		return err
	}
	cfg, err := cfgStore.GetConfig()
	if err != nil {
		return err
	}
	engine, err := rules.Compile(cfg)
	if err != nil {
		return err
	}

	socket, err := socketPath(options, cfg)
	if err != nil {
		return err
	}
	conn, err := niri.Dial(ctx, socket, cfg.RequestTimeout.Std())
	if err != nil {
		return err
	}

	outputs, err := niri.Outputs(ctx, conn)
	if err != nil {
		return err
	}
	workspaces, err := niri.Workspaces(ctx, conn)
	if err != nil {
		return err
	}
	windows, err := niri.Windows(ctx, conn)
	if err != nil {
		return err
	}
	focused, err := niri.FocusedWindow(ctx, conn)
	if err != nil {
		return err
	}

	st := store.New()
	st.SetOutputs(outputs)

	tb := taskbar.New(st, conn, cfg, engine)
	go tb.Serve(ctx)

	stream := uuid.NewString()
	payloads := []any{
		niri.WorkspacesChanged{Workspaces: workspaces},
		niri.WindowsChanged{Windows: windows},
	}
	if focused != nil {
		payloads = append(payloads, niri.WindowFocusChanged{ID: &focused.ID})
	}
	for i, payload := range payloads {
		if err := tb.Deliver(ctx, niri.Event{Stream: stream, Seq: uint64(i + 1), Payload: payload}); err != nil {
			return err
		}
	}

	bars, err := tb.Bars(ctx)
	if err != nil {
		return err
	}

	header := color.New(color.FgCyan, color.Bold)

	header.Println("Outputs")
	pp.Println(st.Outputs())

	header.Println("Windows")
	pp.Println(st.Windows())

	for _, bar := range bars {
		header.Printf("Bar %s\n", bar.Output)
		pp.Println(bar)
	}

	return nil
}
