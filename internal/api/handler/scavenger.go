package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/samber/do"

	"annotate/internal/services"
)

type groupScavenger struct {
	container *do.Injector
}

func (gr *groupScavenger) Show(c echo.Context) error {
	ctx := c.Request().Context()
	actor, err := ResolveActor(ctx, gr.container)
	if err != nil {
		return abort(c, err)
	}

	transcriptID, err := transcriptIDOf(c)
	if err != nil {
		return abort(c, err)
	}

	serviceScavenger, err := do.Invoke[*services.ServiceScavenger](gr.container)
	if err != nil {
		return abort(c, err)
	}

	state, err := serviceScavenger.GetHunt(ctx, actor, transcriptID)
	if err != nil {
		return abort(c, err)
	}
	return success(c, echo.Map{
		"scavengerCompleted": state.Completed,
		"scavengerHunt":      state.Hunt,
	})
}

func (gr *groupScavenger) SaveAnswer(c echo.Context) error {
	ctx := c.Request().Context()
	actor, err := ResolveActor(ctx, gr.container)
	if err != nil {
		return abort(c, err)
	}

	transcriptID, err := transcriptIDOf(c)
	if err != nil {
		return abort(c, err)
	}

	var input services.SaveAnswerInput
	if err := bind(c, &input); err != nil {
		return abort(c, err)
	}

	serviceScavenger, err := do.Invoke[*services.ServiceScavenger](gr.container)
	if err != nil {
		return abort(c, err)
	}

	answer, err := serviceScavenger.SaveAnswer(ctx, actor, transcriptID, input)
	if err != nil {
		return abort(c, err)
	}
	return success(c, echo.Map{"answer": answer})
}

func (gr *groupScavenger) SetCompleted(c echo.Context) error {
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

	serviceScavenger, err := do.Invoke[*services.ServiceScavenger](gr.container)
	if err != nil {
		return abort(c, err)
	}

	completed, err := serviceScavenger.SetCompleted(ctx, actor, transcriptID, body.value())
	if err != nil {
		return abort(c, err)
	}
	return success(c, echo.Map{"completed": completed})
}
