package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/samber/do"

	"annotate/internal/services"
)

type groupTranscript struct {
	container *do.Injector
}

func (gr *groupTranscript) List(c echo.Context) error {
	ctx := c.Request().Context()
	actor, err := ResolveActor(ctx, gr.container)
	if err != nil {
		return abort(c, err)
	}

	serviceTranscript, err := do.Invoke[*services.ServiceTranscript](gr.container)
	if err != nil {
		return abort(c, err)
	}

	transcripts, err := serviceTranscript.ListTranscripts(ctx, actor)
	if err != nil {
		return abort(c, err)
	}
	return success(c, echo.Map{"transcripts": transcripts})
}

func (gr *groupTranscript) Show(c echo.Context) error {
	ctx := c.Request().Context()
	actor, err := ResolveActor(ctx, gr.container)
	if err != nil {
		return abort(c, err)
	}

	transcriptID, err := transcriptIDOf(c)
	if err != nil {
		return abort(c, err)
	}

	serviceTranscript, err := do.Invoke[*services.ServiceTranscript](gr.container)
	if err != nil {
		return abort(c, err)
	}

	detail, err := serviceTranscript.GetTranscript(ctx, actor, transcriptID)
	if err != nil {
		return abort(c, err)
	}
	return success(c, echo.Map{
		"transcript":       detail.Transcript,
		"lines":            detail.Lines,
		"llm_annotations":  detail.LLMAnnotations,
		"assignment":       detail.Assignment,
		"assignments":      detail.Assignments,
		"flagged_line_ids": detail.FlaggedLineIDs,
	})
}

type completedRequest struct {
	Completed *bool `json:"completed"`
}

func (r completedRequest) value() bool {
	return r.Completed == nil || *r.Completed
}

func (gr *groupTranscript) SetAnnotationCompleted(c echo.Context) error {
	ctx := c.Request().Context()
	actor, err := ResolveActor(ctx, gr.container)
	if err != nil {
		return abort(c, err)
	}

	transcriptID, err := transcriptIDOf(c)
	if err != nil {
		return abort(c, err)
	}

	var body completedRequest
	if err := bind(c, &body); err != nil {
		return abort(c, err)
	}

	serviceAssignment, err := do.Invoke[*services.ServiceAssignment](gr.container)
	if err != nil {
		return abort(c, err)
	}

	assignment, err := serviceAssignment.SetAnnotationCompleted(ctx, actor, transcriptID, body.value())
	if err != nil {
		return abort(c, err)
	}
	return success(c, echo.Map{"assignment": assignment})
}

func (gr *groupTranscript) VideoURL(c echo.Context) error {
	ctx := c.Request().Context()
	actor, err := ResolveActor(ctx, gr.container)
	if err != nil {
		return abort(c, err)
	}

	transcriptID, err := transcriptIDOf(c)
	if err != nil {
		return abort(c, err)
	}

	serviceVideo, err := do.Invoke[*services.ServiceVideo](gr.container)
	if err != nil {
		return abort(c, err)
	}

	url, err := serviceVideo.VideoURL(ctx, actor, transcriptID)
	if err != nil {
		return abort(c, err)
	}
	return success(c, echo.Map{"url": url.URL, "expires_at": url.ExpiresAt})
}
