package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/labstack/echo/v4"
	"github.com/samber/do"

	"annotate/internal/services"
)

var errMissingFile = errorx.Wrap(errors.New("missing file"), errorx.Invalid)

type groupAdmin struct {
	container *do.Injector
}

func (gr *groupAdmin) ImportTranscript(c echo.Context) error {
	ctx := c.Request().Context()
	actor, err := ResolveActor(ctx, gr.container)
	if err != nil {
		return abort(c, err)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return abort(c, errMissingFile)
	}
	file, err := fh.Open()
	if err != nil {
		return abort(c, err)
	}
	defer file.Close()

	serviceTranscript, err := do.Invoke[*services.ServiceTranscript](gr.container)
	if err != nil {
		return abort(c, err)
	}

	transcript, err := serviceTranscript.ImportTranscript(ctx, actor, c.FormValue("name"), fh.Filename, file)
	if err != nil {
		return abort(c, err)
	}
	return success(c, echo.Map{"transcript": transcript})
}

func (gr *groupAdmin) DeleteTranscript(c echo.Context) error {
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

	if err := serviceTranscript.DeleteTranscript(ctx, actor, transcriptID); err != nil {
		return abort(c, err)
	}
	return success(c, nil)
}

// UploadVideo streams the "file" part straight through without buffering it to disk.
func (gr *groupAdmin) UploadVideo(c echo.Context) error {
	ctx := c.Request().Context()
	actor, err := ResolveActor(ctx, gr.container)
	if err != nil {
		return abort(c, err)
	}

	transcriptID, err := transcriptIDOf(c)
	if err != nil {
		return abort(c, err)
	}

	reader, err := c.Request().MultipartReader()
	if err != nil {
		return abort(c, errorx.Wrap(errors.New("expected multipart form"), errorx.Invalid))
	}

	serviceVideo, err := do.Invoke[*services.ServiceVideo](gr.container)
	if err != nil {
		return abort(c, err)
	}

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			return abort(c, errMissingFile)
		}
		if err != nil {
			return abort(c, errorx.Wrap(fmt.Errorf("invalid multipart form: %w", err), errorx.Invalid))
		}
		if part.FormName() != "file" {
			part.Close()
			continue
		}

		transcript, err := serviceVideo.UploadVideo(ctx, actor, transcriptID, part.FileName(), part.Header.Get(echo.HeaderContentType), part)
		part.Close()
		if err != nil {
			return abort(c, err)
		}
		return success(c, echo.Map{"transcript": transcript})
	}
}

func (gr *groupAdmin) DeleteVideo(c echo.Context) error {
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

	if err := serviceVideo.DeleteVideo(ctx, actor, transcriptID); err != nil {
		return abort(c, err)
	}
	return success(c, nil)
}

func (gr *groupAdmin) Assign(c echo.Context) error {
	ctx := c.Request().Context()
	actor, err := ResolveActor(ctx, gr.container)
	if err != nil {
		return abort(c, err)
	}

	transcriptID, err := transcriptIDOf(c)
	if err != nil {
		return abort(c, err)
	}

	var input services.AssignInput
	if err := bind(c, &input); err != nil {
		return abort(c, err)
	}

	serviceAssignment, err := do.Invoke[*services.ServiceAssignment](gr.container)
	if err != nil {
		return abort(c, err)
	}

	assignment, err := serviceAssignment.Assign(ctx, actor, transcriptID, input)
	if err != nil {
		return abort(c, err)
	}
	return success(c, echo.Map{"assignment": assignment})
}

type updateAssignmentRequest struct {
	LLMAnnotationsVisible *bool `json:"llmAnnotationsVisible" validate:"required"`
}

func (gr *groupAdmin) UpdateAssignment(c echo.Context) error {
	ctx := c.Request().Context()
	actor, err := ResolveActor(ctx, gr.container)
	if err != nil {
		return abort(c, err)
	}

	assignmentID, err := parseID(c.Param("id"), "assignment id")
	if err != nil {
		return abort(c, err)
	}

	var body updateAssignmentRequest
	if err := bind(c, &body); err != nil {
		return abort(c, err)
	}

	serviceAssignment, err := do.Invoke[*services.ServiceAssignment](gr.container)
	if err != nil {
		return abort(c, err)
	}

	assignment, err := serviceAssignment.UpdateAssignment(ctx, actor, assignmentID, *body.LLMAnnotationsVisible)
	if err != nil {
		return abort(c, err)
	}
	return success(c, echo.Map{"assignment": assignment})
}

func (gr *groupAdmin) DeleteAssignment(c echo.Context) error {
	ctx := c.Request().Context()
	actor, err := ResolveActor(ctx, gr.container)
	if err != nil {
		return abort(c, err)
	}

	assignmentID, err := parseID(c.Param("id"), "assignment id")
	if err != nil {
		return abort(c, err)
	}

	serviceAssignment, err := do.Invoke[*services.ServiceAssignment](gr.container)
	if err != nil {
		return abort(c, err)
	}

	if err := serviceAssignment.DeleteAssignment(ctx, actor, assignmentID); err != nil {
		return abort(c, err)
	}
	return success(c, nil)
}

func (gr *groupAdmin) ListSubmissions(c echo.Context) error {
	ctx := c.Request().Context()
	actor, err := ResolveActor(ctx, gr.container)
	if err != nil {
		return abort(c, err)
	}

	serviceExport, err := do.Invoke[*services.ServiceExport](gr.container)
	if err != nil {
		return abort(c, err)
	}

	submissions, err := serviceExport.ListSubmissions(ctx, actor)
	if err != nil {
		return abort(c, err)
	}
	return success(c, echo.Map{"submissions": submissions})
}

func (gr *groupAdmin) Export(c echo.Context) error {
	ctx := c.Request().Context()
	actor, err := ResolveActor(ctx, gr.container)
	if err != nil {
		return abortExport(c, err)
	}

	assignmentID, err := paramOrQuery(c, "id", "assignmentId", "assignment id")
	if err != nil {
		return abortExport(c, err)
	}

	serviceExport, err := do.Invoke[*services.ServiceExport](gr.container)
	if err != nil {
		return abortExport(c, err)
	}

	workbook, filename, err := serviceExport.ExportSubmission(ctx, actor, assignmentID)
	if err != nil {
		return abortExport(c, err)
	}
	// nolint:errcheck
	defer workbook.Close()

	buf, err := workbook.WriteToBuffer()
	if err != nil {
		return abortExport(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, services.SCAVENGER_EXPORT_CONTENT_TYPE, buf.Bytes())
}
