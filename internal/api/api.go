// Package api exposes the taskbar to renderers over HTTP and server-sent
// events.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/ItsNotGoodName/niri-taskbar/internal/action"
	"github.com/ItsNotGoodName/niri-taskbar/internal/build"
	"github.com/ItsNotGoodName/niri-taskbar/internal/drag"
	"github.com/ItsNotGoodName/niri-taskbar/internal/niri"
	"github.com/ItsNotGoodName/niri-taskbar/internal/taskbar"
	"github.com/ItsNotGoodName/niri-taskbar/pkg/chiext"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Taskbar interface {
	Status(ctx context.Context) (taskbar.Status, error)
	Bars(ctx context.Context) ([]taskbar.BarView, error)
	Bar(ctx context.Context, output string) (taskbar.BarView, error)
	Scroll(ctx context.Context, output string, delta int) (taskbar.BarView, error)
	Measure(ctx context.Context, widths map[uint64]int) error
	Click(ctx context.Context, id uint64, gesture action.Gesture) (taskbar.ClickResult, error)
	Menu(ctx context.Context, id uint64) ([]taskbar.MenuItem, error)
	Dispatch(ctx context.Context, req action.Request) error
	DragBegin(ctx context.Context, output string, id uint64) (drag.Session, error)
	DragMove(ctx context.Context, index int) (drag.Session, error)
	DragDrop(ctx context.Context, output string, index int) (drag.Outcome, error)
	DragCancel(ctx context.Context) (drag.Outcome, error)
	Subscribe(ctx context.Context) (<-chan taskbar.Update, func(), error)
}

// NewHandler returns the router serving the API of tb.
func NewHandler(tb Taskbar) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chiext.Logger())
	r.Use(middleware.Recoverer)

	api := humachi.New(r, huma.DefaultConfig("niri-taskbar", build.Current.Version))
	Register(api, tb)

	return r
}

// Register adds every operation of the API to api.
func Register(api huma.API, tb Taskbar) {
	h := handler{taskbar: tb}

	huma.Register(api, huma.Operation{
		OperationID: "get-status",
		Method:      http.MethodGet,
		Path:        "/status",
		Summary:     "Connection, focus, pending and drag state",
		Tags:        []string{"Taskbar"},
	}, h.status)

	huma.Register(api, huma.Operation{
		OperationID: "get-build",
		Method:      http.MethodGet,
		Path:        "/build",
		Summary:     "Version of the running binary",
		Tags:        []string{"Taskbar"},
	}, func(ctx context.Context, input *struct{}) (*BuildOutput, error) {
		return &BuildOutput{Body: build.Current}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-bars",
		Method:      http.MethodGet,
		Path:        "/bars",
		Summary:     "Bars of every output, left to right",
		Tags:        []string{"Bars"},
	}, h.bars)

	huma.Register(api, huma.Operation{
		OperationID: "get-bar",
		Method:      http.MethodGet,
		Path:        "/bars/{output}",
		Summary:     "Bar of one output",
		Tags:        []string{"Bars"},
	}, h.bar)

	huma.Register(api, huma.Operation{
		OperationID: "scroll-bar",
		Method:      http.MethodPost,
		Path:        "/bars/{output}/scroll",
		Summary:     "Scroll a bar by whole buttons",
		Tags:        []string{"Bars"},
	}, h.scroll)

	huma.Register(api, huma.Operation{
		OperationID:   "put-measurements",
		Method:        http.MethodPut,
		Path:          "/measurements",
		Summary:       "Report measured button widths",
		Tags:          []string{"Bars"},
		DefaultStatus: http.StatusNoContent,
	}, h.measure)

	huma.Register(api, huma.Operation{
		OperationID: "click-window",
		Method:      http.MethodPost,
		Path:        "/windows/{id}/click",
		Summary:     "Resolve and run a click on a button",
		Tags:        []string{"Windows"},
	}, h.click)

	huma.Register(api, huma.Operation{
		OperationID: "get-window-menu",
		Method:      http.MethodGet,
		Path:        "/windows/{id}/menu",
		Summary:     "Context menu of a window",
		Tags:        []string{"Windows"},
	}, h.menu)

	huma.Register(api, huma.Operation{
		OperationID:   "dispatch-action",
		Method:        http.MethodPost,
		Path:          "/actions",
		Summary:       "Dispatch an action",
		Tags:          []string{"Windows"},
		DefaultStatus: http.StatusNoContent,
	}, h.dispatch)

	huma.Register(api, huma.Operation{
		OperationID: "begin-drag",
		Method:      http.MethodPost,
		Path:        "/drag",
		Summary:     "Start dragging a button",
		Tags:        []string{"Drag"},
	}, h.dragBegin)

	huma.Register(api, huma.Operation{
		OperationID: "move-drag",
		Method:      http.MethodPut,
		Path:        "/drag",
		Summary:     "Move the dragged button over an index",
		Tags:        []string{"Drag"},
	}, h.dragMove)

	huma.Register(api, huma.Operation{
		OperationID: "drop-drag",
		Method:      http.MethodPost,
		Path:        "/drag/drop",
		Summary:     "Drop the dragged button",
		Tags:        []string{"Drag"},
	}, h.dragDrop)

	huma.Register(api, huma.Operation{
		OperationID: "cancel-drag",
		Method:      http.MethodDelete,
		Path:        "/drag",
		Summary:     "Cancel the drag",
		Tags:        []string{"Drag"},
	}, h.dragCancel)

	sse.Register(api, huma.Operation{
		OperationID: "events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "Stream of taskbar updates, starting with the current state",
		Tags:        []string{"Taskbar"},
	}, map[string]any{
		"update": taskbar.Update{},
	}, h.events)
}

// toHTTP maps domain errors to HTTP errors. Unknown errors become 500.
func toHTTP(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, action.ErrUnknownWindow),
		errors.Is(err, taskbar.ErrUnknownOutput),
		errors.Is(err, drag.ErrNoButton):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, action.ErrUnsupportedAction):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.Is(err, drag.ErrNoDrag),
		errors.Is(err, drag.ErrDragActive):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, niri.ErrTimeout):
		return huma.Error504GatewayTimeout(err.Error())
	case errors.Is(err, niri.ErrConnection),
		errors.Is(err, niri.ErrProtocol):
		return huma.Error502BadGateway(err.Error())
	default:
		return err
	}
}
