package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/samber/do"

	"annotate/internal/services"
)

type groupAnnotation struct {
	container *do.Injector
}

func (gr *groupAnnotation) service() (*services.ServiceAnnotation, error) {
	return do.Invoke[*services.ServiceAnnotation](gr.container)
}

func (gr *groupAnnotation) ListNotes(c echo.Context) error {
	ctx := c.Request().Context()
	actor, err := ResolveActor(ctx, gr.container)
	if err != nil {
		return abort(c, err)
	}

	transcriptID, err := transcriptIDOf(c)
	if err != nil {
		return abort(c, err)
	}

	serviceAnnotation, err := gr.service()
	if err != nil {
		return abort(c, err)
	}

	notes, err := serviceAnnotation.ListNotes(ctx, actor, transcriptID)
	if err != nil {
		return abort(c, err)
	}
	return success(c, echo.Map{"notes": notes})
}

func (gr *groupAnnotation) CreateNote(c echo.Context) error {
	ctx := c.Request().Context()
	actor, err := ResolveActor(ctx, gr.container)
	if err != nil {
		return abort(c, err)
	}

	transcriptID, err := transcriptIDOf(c)
	if err != nil {
		return abort(c, err)
	}

	var input services.NoteInput
	if err := bind(c, &input); err != nil {
		return abort(c, err)
	}

	serviceAnnotation, err := gr.service()
	if err != nil {
		return abort(c, err)
	}

	note, err := serviceAnnotation.CreateNote(ctx, actor, transcriptID, input)
	if err != nil {
		return abort(c, err)
	}
	return success(c, echo.Map{"note": note})
}

func (gr *groupAnnotation) UpdateNote(c echo.Context) error {
	ctx := c.Request().Context()
	actor, err := ResolveActor(ctx, gr.container)
	if err != nil {
		return abort(c, err)
	}

	transcriptID, err := transcriptIDOf(c)
	if err != nil {
		return abort(c, err)
	}
	noteID, err := parseID(c.Param("noteId"), "note id")
	if err != nil {
		return abort(c, err)
	}

	var input services.NoteInput
	if err := bind(c, &input); err != nil {
		return abort(c, err)
	}

	serviceAnnotation, err := gr.service()
	if err != nil {
		return abort(c, err)
	}

	note, err := serviceAnnotation.UpdateNote(ctx, actor, transcriptID, noteID, input)
	if err != nil {
		return abort(c, err)
	}
	return success(c, echo.Map{"note": note})
}

func (gr *groupAnnotation) DeleteNote(c echo.Context) error {
	ctx := c.Request().Context()
	actor, err := ResolveActor(ctx, gr.container)
	if err != nil {
		return abort(c, err)
	}

	transcriptID, err := transcriptIDOf(c)
	if err != nil {
		return abort(c, err)
	}
	noteID, err := parseID(c.Param("noteId"), "note id")
	if err != nil {
		return abort(c, err)
	}

	serviceAnnotation, err := gr.service()
	if err != nil {
		return abort(c, err)
	}

	if err := serviceAnnotation.DeleteNote(ctx, actor, transcriptID, noteID); err != nil {
		return abort(c, err)
	}
	return success(c, nil)
}

type flagRequest struct {
	Flagged *bool `json:"flagged" validate:"required"`
}

func (gr *groupAnnotation) SetFlag(c echo.Context) error {
	ctx := c.Request().Context()
	actor, err := ResolveActor(ctx, gr.container)
	if err != nil {
		return abort(c, err)
	}

	transcriptID, err := transcriptIDOf(c)
	if err != nil {
		return abort(c, err)
	}
	lineID, err := parseID(c.Param("lineId"), "line id")
	if err != nil {
		return abort(c, err)
	}

	var body flagRequest
	if err := bind(c, &body); err != nil {
		return abort(c, err)
	}

	serviceAnnotation, err := gr.service()
	if err != nil {
		return abort(c, err)
	}

	flags, err := serviceAnnotation.SetFlag(ctx, actor, transcriptID, lineID, *body.Flagged)
	if err != nil {
		return abort(c, err)
	}
	return success(c, echo.Map{"flagged": *body.Flagged, "flagged_line_ids": flags})
}
