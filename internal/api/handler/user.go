package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

type groupUser struct {
	container *do.Injector
}

func (gr *groupUser) Me(c echo.Context) error {
	user, err := ResolveActor(c.Request().Context(), gr.container)
	if err != nil {
		return abort(c, err)
	}

	return success(c, echo.Map{"user": user})
}
