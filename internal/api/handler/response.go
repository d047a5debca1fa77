package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/getsentry/sentry-go"
	"github.com/go-playground/validator/v10"
	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"annotate/internal/models"
)

func report(c echo.Context, err error) {
	requestID := c.Response().Header().Get(echo.HeaderXRequestID)
	actor := ""
	if identity, ok := c.Request().Context().Value(ctxKeyIdentity).(*models.Identity); ok {
		actor = identity.ExternalID
	}
	log.Errorj(log.JSON{
		"request_id": requestID,
		"actor":      actor,
		"method":     c.Request().Method,
		"path":       c.Path(),
		"uri":        c.Request().RequestURI,
		"error":      err.Error(),
	})

	hub := sentry.CurrentHub().Clone()
	hub.Scope().SetTag("request_id", requestID)
	if actor != "" {
		hub.Scope().SetUser(sentry.User{ID: actor})
	}
	hub.Scope().SetRequest(c.Request())
	hub.CaptureException(err)
}

// statusOf reports 500 for errors that carry no errorx kind.
func statusOf(err error) int {
	var target *errorx.Error
	if errors.As(err, &target) {
		return target.Status()
	}
	return http.StatusInternalServerError
}

// abort writes {success:false, error}; server side failures are reported and masked.
func abort(c echo.Context, err error) error {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		report(c, err)
	}
	return c.JSON(status, echo.Map{"success": false, "error": errorx.MaskErrorMessage(err)})
}

// abortExport is abort for the binary export routes, which answer {error}.
func abortExport(c echo.Context, err error) error {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		report(c, err)
	}
	return c.JSON(status, echo.Map{"error": errorx.MaskErrorMessage(err)})
}

func success(c echo.Context, body echo.Map) error {
	if body == nil {
		body = echo.Map{}
	}
	body["success"] = true
	return c.JSON(http.StatusOK, body)
}

// bind decodes the request body and runs struct validation.
func bind(c echo.Context, target interface{}) error {
	if err := c.Bind(target); err != nil {
		return errorx.Wrap(errors.New("invalid request body"), errorx.Invalid)
	}
	if err := c.Validate(target); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return errorx.Wrap(fmt.Errorf("invalid %s", verrs[0].Field()), errorx.Invalid)
		}
		return errorx.Wrap(err, errorx.Invalid)
	}
	return nil
}

func parseID(value string, name string) (int64, error) {
	if value == "" {
		return 0, errorx.Wrap(errors.New("missing "+name), errorx.Invalid)
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, errorx.Wrap(errors.New("invalid "+name), errorx.Invalid)
	}
	return id, nil
}

// paramOrQuery reads a path param, falling back to a query string key.
func paramOrQuery(c echo.Context, param string, query string, name string) (int64, error) {
	value := c.Param(param)
	if value == "" {
		value = c.QueryParam(query)
	}
	return parseID(value, name)
}

func transcriptIDOf(c echo.Context) (int64, error) {
	return paramOrQuery(c, "id", "transcriptId", "transcript id")
}
