package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ItsNotGoodName/niri-taskbar/internal/api"
	"github.com/ItsNotGoodName/niri-taskbar/internal/build"
	"github.com/ItsNotGoodName/niri-taskbar/internal/config"
	"github.com/ItsNotGoodName/niri-taskbar/internal/core"
	"github.com/ItsNotGoodName/niri-taskbar/internal/niri"
	"github.com/ItsNotGoodName/niri-taskbar/internal/rules"
	"github.com/ItsNotGoodName/niri-taskbar/internal/store"
	"github.com/ItsNotGoodName/niri-taskbar/internal/taskbar"
	"github.com/ItsNotGoodName/niri-taskbar/pkg/sutureext"
	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/joho/godotenv"
	"github.com/phsym/console-slog"
	"github.com/spf13/cobra"
)

type Options struct {
	Debug  bool   `doc:"enable debug"`
	Host   string `doc:"host to listen on" default:"127.0.0.1"`
	Port   int    `doc:"port to listen on" default:"8080"`
	Config string `doc:"config file" default:".niri-taskbar.yaml"`
	Socket string `doc:"niri socket, defaults to the config file then $NIRI_SOCKET"`
}

func main() {
	godotenv.Load()

	var opts *Options
	cli := humacli.New(func(hooks humacli.Hooks, options *Options) {
		opts = options
		if options.Debug {
			InitLogger(slog.LevelDebug)
		} else {
			InitLogger(slog.LevelInfo)
		}

		OnServe(hooks, func(ctx context.Context) error {
			slog.Info("Starting niri-taskbar", "version", build.Current.String())

			cfgStore, configFilePath, err := openConfig(options)
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

			conn, err := dial(ctx, socket, cfg.RequestTimeout.Std())
			if err != nil {
				return err
			}

			tb := taskbar.New(store.New(), conn, cfg, engine)

			super := sutureext.NewSimple("niri-taskbar")
			sutureext.Add(super, tb)
			sutureext.Add(super, taskbar.NewPump(socket, conn, tb))
			sutureext.Add(super, config.NewWatcher(configFilePath, cfgStore, tb.Reload))
			sutureext.Add(super, api.NewServer(core.Address(options.Host, options.Port), api.NewHandler(tb)))

			return super.Serve(ctx)
		})
	})

	cli.Root().AddCommand(&cobra.Command{
		Use:   "state",
		Short: "Print niri state and the computed bars",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printState(cmd.Context(), opts)
		},
	})

	cli.Root().Version = build.Current.Version

	cli.Run()
}

func InitLogger(level slog.Level) {
	slog.SetDefault(slog.New(console.NewHandler(os.Stderr, &console.HandlerOptions{
		Level: level,
	})))
}

func OnServe(hooks humacli.Hooks, serveFn func(ctx context.Context) error) {
	stopC := make(chan struct{})
	hooks.OnStart(func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		errC := make(chan error, 1)

		go func() { errC <- serveFn(ctx) }()

		select {
		case <-stopC:
			cancel()
		case err := <-errC:
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Fatal(err)
			}
			return
		}

		<-errC
		<-stopC
	})
	hooks.OnStop(func() {
		stopC <- struct{}{}
		stopC <- struct{}{}
	})
}

func openConfig(options *Options) (*config.Store, string, error) {
	configFilePath, err := filepath.Abs(options.Config)
	if err != nil {
		return nil, "", err
	}

	cfgStore, err := config.NewStore(config.NewDriver(configFilePath))
	if err != nil {
		return nil, "", err
	}

	return cfgStore, configFilePath, nil
}

func socketPath(options *Options, cfg config.Config) (string, error) {
	if options.Socket != "" {
		return options.Socket, nil
	}
	if cfg.Socket != "" {
		return cfg.Socket, nil
	}
	return niri.SocketPath()
}

const (
	dialBackoff    = 500 * time.Millisecond
	dialBackoffMax = 10 * time.Second
)

// dial retries until niri answers, the compositor may start after us.
func dial(ctx context.Context, socket string, timeout time.Duration) (*niri.Conn, error) {
	backoff := dialBackoff
	for {
		conn, err := niri.Dial(ctx, socket, timeout)
		if err == nil {
			return conn, nil
		}
		if !errors.Is(err, niri.ErrConnection) && !errors.Is(err, niri.ErrTimeout) {
			return nil, err
		}

		slog.Warn("Waiting for niri", "socket", socket, "error", err, "retry", backoff)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}

		backoff = min(backoff*2, dialBackoffMax)
	}
}
