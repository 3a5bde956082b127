package api

import (
	"context"
	"log/slog"

	"github.com/ItsNotGoodName/niri-taskbar/internal/action"
	"github.com/ItsNotGoodName/niri-taskbar/internal/build"
	"github.com/ItsNotGoodName/niri-taskbar/internal/drag"
	"github.com/ItsNotGoodName/niri-taskbar/internal/taskbar"
	"github.com/danielgtaylor/huma/v2/sse"
)

type handler struct {
	taskbar Taskbar
}

type StatusOutput struct {
	Body taskbar.Status
}

func (h handler) status(ctx context.Context, input *struct{}) (*StatusOutput, error) {
	status, err := h.taskbar.Status(ctx)
	if err != nil {
		return nil, toHTTP(err)
	}
	return &StatusOutput{Body: status}, nil
}

type BuildOutput struct {
	Body build.Build
}

type BarsOutput struct {
	Body []taskbar.BarView
}

func (h handler) bars(ctx context.Context, input *struct{}) (*BarsOutput, error) {
	bars, err := h.taskbar.Bars(ctx)
	if err != nil {
		return nil, toHTTP(err)
	}
	return &BarsOutput{Body: bars}, nil
}

type BarInput struct {
	Output string `path:"output" doc:"Output name"`
}

type BarOutput struct {
	Body taskbar.BarView
}

func (h handler) bar(ctx context.Context, input *BarInput) (*BarOutput, error) {
	bar, err := h.taskbar.Bar(ctx, input.Output)
	if err != nil {
		return nil, toHTTP(err)
	}
	return &BarOutput{Body: bar}, nil
}

type ScrollInput struct {
	Output string `path:"output" doc:"Output name"`
	Body   struct {
		Delta int `json:"delta" doc:"Buttons to scroll, negative scrolls left"`
	}
}

func (h handler) scroll(ctx context.Context, input *ScrollInput) (*BarOutput, error) {
	bar, err := h.taskbar.Scroll(ctx, input.Output, input.Body.Delta)
	if err != nil {
		return nil, toHTTP(err)
	}
	return &BarOutput{Body: bar}, nil
}

type Measurement struct {
	ID    uint64 `json:"id" doc:"Window id"`
	Width int    `json:"width" minimum:"0" doc:"Measured width, 0 reverts to the estimate"`
}

type MeasureInput struct {
	Body struct {
		Widths []Measurement `json:"widths"`
	}
}

func (h handler) measure(ctx context.Context, input *MeasureInput) (*struct{}, error) {
	widths := make(map[uint64]int, len(input.Body.Widths))
	for _, m := range input.Body.Widths {
		widths[m.ID] = m.Width
	}
	if err := h.taskbar.Measure(ctx, widths); err != nil {
		return nil, toHTTP(err)
	}
	return nil, nil
}

type ClickInput struct {
	ID   uint64 `path:"id" doc:"Window id"`
	Body struct {
		Gesture action.Gesture `json:"gesture" enum:"left,right,middle,double"`
	}
}

type ClickOutput struct {
	Body taskbar.ClickResult
}

func (h handler) click(ctx context.Context, input *ClickInput) (*ClickOutput, error) {
	res, err := h.taskbar.Click(ctx, input.ID, input.Body.Gesture)
	if err != nil {
		return nil, toHTTP(err)
	}
	return &ClickOutput{Body: res}, nil
}

type MenuInput struct {
	ID uint64 `path:"id" doc:"Window id"`
}

type MenuOutput struct {
	Body []taskbar.MenuItem
}

func (h handler) menu(ctx context.Context, input *MenuInput) (*MenuOutput, error) {
	items, err := h.taskbar.Menu(ctx, input.ID)
	if err != nil {
		return nil, toHTTP(err)
	}
	return &MenuOutput{Body: items}, nil
}

type DispatchInput struct {
	Body action.Request
}

func (h handler) dispatch(ctx context.Context, input *DispatchInput) (*struct{}, error) {
	if err := h.taskbar.Dispatch(ctx, input.Body); err != nil {
		return nil, toHTTP(err)
	}
	return nil, nil
}

type DragBeginInput struct {
	Body struct {
		Output   string `json:"output"`
		WindowID uint64 `json:"window_id"`
	}
}

type SessionOutput struct {
	Body drag.Session
}

func (h handler) dragBegin(ctx context.Context, input *DragBeginInput) (*SessionOutput, error) {
	session, err := h.taskbar.DragBegin(ctx, input.Body.Output, input.Body.WindowID)
	if err != nil {
		return nil, toHTTP(err)
	}
	return &SessionOutput{Body: session}, nil
}

type DragMoveInput struct {
	Body struct {
		Index int `json:"index" minimum:"0"`
	}
}

func (h handler) dragMove(ctx context.Context, input *DragMoveInput) (*SessionOutput, error) {
	session, err := h.taskbar.DragMove(ctx, input.Body.Index)
	if err != nil {
		return nil, toHTTP(err)
	}
	return &SessionOutput{Body: session}, nil
}

type DragDropInput struct {
	Body struct {
		Output string `json:"output,omitempty" required:"false" doc:"Target output, the origin output when empty"`
		Index  int    `json:"index" minimum:"0"`
	}
}

type OutcomeOutput struct {
	Body drag.Outcome
}

func (h handler) dragDrop(ctx context.Context, input *DragDropInput) (*OutcomeOutput, error) {
	out, err := h.taskbar.DragDrop(ctx, input.Body.Output, input.Body.Index)
	if err != nil {
		return nil, toHTTP(err)
	}
	return &OutcomeOutput{Body: out}, nil
}

func (h handler) dragCancel(ctx context.Context, input *struct{}) (*OutcomeOutput, error) {
	out, err := h.taskbar.DragCancel(ctx)
	if err != nil {
		return nil, toHTTP(err)
	}
	return &OutcomeOutput{Body: out}, nil
}

func (h handler) events(ctx context.Context, input *struct{}, send sse.Sender) {
	updateC, unsubscribe, err := h.taskbar.Subscribe(ctx)
	if err != nil {
		slog.Error("Failed to subscribe", "package", "api", "error", err)
		return
	}
	defer unsubscribe()

	for u := range updateC {
		if err := send.Data(u); err != nil {
			slog.Debug("Closed event stream", "package", "api", "error", err)
			return
		}
	}
}
