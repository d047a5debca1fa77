package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/samber/do"
	"github.com/xuri/excelize/v2"

	"annotate/internal/interfaces"
	"annotate/internal/models"
)

var errSubmissionNotFound = errorx.Wrap(errors.New("submission not found"), errorx.NotExist)

type ServiceExport struct {
	container *do.Injector
	repo      interfaces.Repository
}

func NewServiceExport(container *do.Injector) (*ServiceExport, error) {
	repo, err := do.Invoke[interfaces.Repository](container)
	if err != nil {
		return nil, err
	}

	return &ServiceExport{container, repo}, nil
}

func (service *ServiceExport) ListSubmissions(ctx context.Context, actor *models.User) ([]*models.ScavengerSubmission, error) {
	if !actor.IsAdmin() {
		return nil, errAdminOnly
	}
	return service.repo.ListScavengerSubmissions(ctx, actor.WorkspaceID)
}

// ExportSubmission renders one scavenger assignment as a workbook, one sheet per question.
func (service *ServiceExport) ExportSubmission(ctx context.Context, actor *models.User, assignmentID int64) (*excelize.File, string, error) {
	if !actor.IsAdmin() {
		return nil, "", errAdminOnly
	}
	if assignmentID <= 0 {
		return nil, "", errorx.Wrap(errors.New("invalid assignment id"), errorx.Invalid)
	}

	sheets, err := service.collect(ctx, actor, assignmentID)
	if err != nil {
		return nil, "", err
	}

	f, err := BuildWorkbook(sheets)
	if err != nil {
		return nil, "", err
	}
	return f, fmt.Sprintf("scavenger-hunt-%d.xlsx", assignmentID), nil
}

func (service *ServiceExport) collect(ctx context.Context, actor *models.User, assignmentID int64) ([]ExportSheet, error) {
	assignment, err := service.repo.GetScavengerAssignmentByID(ctx, assignmentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errSubmissionNotFound
	}
	if err != nil {
		return nil, err
	}

	hunt, err := service.repo.GetHuntByID(ctx, assignment.HuntID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errSubmissionNotFound
	}
	if err != nil {
		return nil, err
	}

	transcript, err := service.repo.GetTranscript(ctx, hunt.TranscriptID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errSubmissionNotFound
	}
	if err != nil {
		return nil, err
	}
	if transcript.WorkspaceID != actor.WorkspaceID {
		return nil, errSubmissionNotFound
	}

	questions, err := service.repo.GetQuestions(ctx, hunt.ID)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, errorx.Wrap(errors.New("scavenger hunt has no questions"), errorx.NotExist)
	}

	answers, err := service.repo.GetAnswers(ctx, assignment.ID)
	if err != nil {
		return nil, err
	}
	byQuestion := make(map[int64]*models.ScavengerAnswer, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a
	}

	sheets := make([]ExportSheet, 0, len(questions))
	for _, q := range questions {
		sheet := ExportSheet{Question: q.Question}
		if a, ok := byQuestion[q.ID]; ok {
			if a.Answer != nil {
				sheet.Answer = *a.Answer
			}
			lines, err := service.repo.GetAnswerLineRows(ctx, a.ID)
			if err != nil {
				return nil, err
			}
			sheet.Lines = lines
		}
		sheets = append(sheets, sheet)
	}
	return sheets, nil
}
