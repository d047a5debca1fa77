package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/labstack/echo/v4"
	"github.com/samber/do"

	"annotate/internal/models"
	"annotate/internal/services"
)

type ctxKey string

var ctxKeyIdentity ctxKey = "IDENTITY"

const sessionCookie = "__session"

func tokenFrom(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header != "" {
		parts := strings.Split(header, "Bearer")
		if len(parts) == 2 {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}

	cookie, err := c.Cookie(sessionCookie)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cookie.Value)
}

func Authn(verifier interface {
	Validate(token string) (*models.Identity, error)
},
) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := tokenFrom(c)
			if len(token) == 0 {
				return next(c)
			}

			identity, err := verifier.Validate(token)
			if err != nil {
				// although it's a client error, we don't want to detailed information
				return abort(c, errorx.Wrap(errors.New("invalid access token"), errorx.Authn))
			}

			ctx := c.Request().Context()
			ctx = context.WithValue(ctx, ctxKeyIdentity, identity)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func ResolveActor(ctx context.Context, container *do.Injector) (*models.User, error) {
	identity, ok := ctx.Value(ctxKeyIdentity).(*models.Identity)
	if !ok {
		return nil, errorx.Wrap(errors.New("unauthorized"), errorx.Authn)
	}

	serviceUser, err := do.Invoke[*services.ServiceUser](container)
	if err != nil {
		return nil, err
	}

	return serviceUser.ResolveActor(ctx, identity)
}
