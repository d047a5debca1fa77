package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/samber/do"

	"annotate/internal/interfaces"
	"annotate/internal/models"
)

var errAssignmentNotFound = errorx.Wrap(errors.New("assignment not found"), errorx.NotExist)

type AssignInput struct {
	AnnotatorID           int64 `json:"annotatorId" validate:"required,gt=0"`
	LLMAnnotationsVisible bool  `json:"llmAnnotationsVisible"`
}

type ServiceAssignment struct {
	container *do.Injector
	repo      interfaces.Repository
}

func NewServiceAssignment(container *do.Injector) (*ServiceAssignment, error) {
	repo, err := do.Invoke[interfaces.Repository](container)
	if err != nil {
		return nil, err
	}

	return &ServiceAssignment{container, repo}, nil
}

func (service *ServiceAssignment) Assign(ctx context.Context, actor *models.User, transcriptID int64, input AssignInput) (*models.AnnotationAssignment, error) {
	if _, err := requireAdminTranscript(ctx, service.repo, actor, transcriptID); err != nil {
		return nil, err
	}

	annotator, err := service.repo.FindUserByID(ctx, input.AnnotatorID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errorx.Wrap(errors.New("annotator not found"), errorx.NotExist)
	}
	if err != nil {
		return nil, err
	}
	if annotator.Role != models.RoleAnnotator || annotator.WorkspaceID != actor.WorkspaceID {
		return nil, errorx.Wrap(errors.New("user is not an annotator of this workspace"), errorx.Invalid)
	}

	_, err = service.repo.GetAssignment(ctx, transcriptID, annotator.ID)
	if err == nil {
		return nil, errorx.Wrap(errors.New("already assigned"), errorx.Invalid)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	assignment := &models.AnnotationAssignment{
		TranscriptID:          transcriptID,
		AnnotatorID:           annotator.ID,
		LLMAnnotationsVisible: input.LLMAnnotationsVisible,
	}
	if err := service.repo.CreateAssignment(ctx, assignment); err != nil {
		return nil, err
	}
	return assignment, nil
}

func (service *ServiceAssignment) adminAssignment(ctx context.Context, actor *models.User, assignmentID int64) (*models.AnnotationAssignment, error) {
	if !actor.IsAdmin() {
		return nil, errAdminOnly
	}

	assignment, err := service.repo.GetAssignmentByID(ctx, assignmentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errAssignmentNotFound
	}
	if err != nil {
		return nil, err
	}

	if _, err := requireAdminTranscript(ctx, service.repo, actor, assignment.TranscriptID); err != nil {
		if isKind(err, errorx.NotExist) {
			return nil, errAssignmentNotFound
		}
		return nil, err
	}
	return assignment, nil
}

func (service *ServiceAssignment) UpdateAssignment(ctx context.Context, actor *models.User, assignmentID int64, llmVisible bool) (*models.AnnotationAssignment, error) {
	assignment, err := service.adminAssignment(ctx, actor, assignmentID)
	if err != nil {
		return nil, err
	}

	assignment.LLMAnnotationsVisible = llmVisible
	if err := service.repo.UpdateAssignment(ctx, assignment); err != nil {
		return nil, err
	}
	return assignment, nil
}

func (service *ServiceAssignment) DeleteAssignment(ctx context.Context, actor *models.User, assignmentID int64) error {
	if _, err := service.adminAssignment(ctx, actor, assignmentID); err != nil {
		return err
	}
	return service.repo.DeleteAssignment(ctx, assignmentID)
}

// SetAnnotationCompleted toggles the caller's own annotation assignment.
func (service *ServiceAssignment) SetAnnotationCompleted(ctx context.Context, actor *models.User, transcriptID int64, completed bool) (*models.AnnotationAssignment, error) {
	assignment, err := requireAssignment(ctx, service.repo, actor, transcriptID)
	if err != nil {
		return nil, err
	}

	assignment.Completed = completed
	assignment.CompletedAt = nil
	if completed {
		now := time.Now()
		assignment.CompletedAt = &now
	}
	if err := service.repo.UpdateAssignment(ctx, assignment); err != nil {
		return nil, err
	}
	return assignment, nil
}
