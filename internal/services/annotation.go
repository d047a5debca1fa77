package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/samber/do"

	"annotate/internal/interfaces"
	"annotate/internal/models"
	"annotate/internal/pkg/caching"
)

var errNoteNotFound = errorx.Wrap(errors.New("note not found"), errorx.NotExist)

type NoteInput struct {
	Content string  `json:"content"`
	LineIDs []int64 `json:"lineIds"`
}

// ServiceAnnotation owns the notes and line flags of annotation assignments.
type ServiceAnnotation struct {
	container *do.Injector
	repo      interfaces.Repository
	cache     caching.Cache
}

func NewServiceAnnotation(container *do.Injector) (*ServiceAnnotation, error) {
	repo, err := do.Invoke[interfaces.Repository](container)
	if err != nil {
		return nil, err
	}

	cache, err := do.Invoke[caching.Cache](container)
	if err != nil {
		return nil, err
	}

	return &ServiceAnnotation{container, repo, cache}, nil
}

func (service *ServiceAnnotation) ListNotes(ctx context.Context, actor *models.User, transcriptID int64) ([]*models.Note, error) {
	assignment, err := requireAssignment(ctx, service.repo, actor, transcriptID)
	if err != nil {
		return nil, err
	}
	return service.repo.ListNotes(ctx, assignment.ID)
}

func (service *ServiceAnnotation) prepare(ctx context.Context, transcriptID int64, input NoteInput) (string, []int64, error) {
	content := strings.TrimSpace(input.Content)
	lineIDs, err := validateLineIDs(ctx, service.repo, service.cache, transcriptID, input.LineIDs)
	if err != nil {
		return "", nil, err
	}
	if content == "" && len(lineIDs) == 0 {
		return "", nil, errorx.Wrap(errors.New("note is empty"), errorx.Invalid)
	}
	return content, lineIDs, nil
}

func (service *ServiceAnnotation) CreateNote(ctx context.Context, actor *models.User, transcriptID int64, input NoteInput) (*models.Note, error) {
	assignment, err := requireAssignment(ctx, service.repo, actor, transcriptID)
	if err != nil {
		return nil, err
	}

	content, lineIDs, err := service.prepare(ctx, transcriptID, input)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	note := &models.Note{AssignmentID: assignment.ID, Content: content, CreatedAt: now, UpdatedAt: now}
	err = service.repo.RunInTx(ctx, func(ctx context.Context, tx interfaces.Repository) error {
		if err := tx.CreateNote(ctx, note); err != nil {
			return err
		}
		return tx.ReplaceNoteLines(ctx, note.ID, lineIDs)
	})
	if err != nil {
		return nil, err
	}

	note.LineIDs = lineIDs
	return note, nil
}

func (service *ServiceAnnotation) ownNote(ctx context.Context, assignment *models.AnnotationAssignment, noteID int64) (*models.Note, error) {
	note, err := service.repo.GetNote(ctx, noteID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNoteNotFound
	}
	if err != nil {
		return nil, err
	}
	if note.AssignmentID != assignment.ID {
		return nil, errNoteNotFound
	}
	return note, nil
}

func (service *ServiceAnnotation) UpdateNote(ctx context.Context, actor *models.User, transcriptID int64, noteID int64, input NoteInput) (*models.Note, error) {
	assignment, err := requireAssignment(ctx, service.repo, actor, transcriptID)
	if err != nil {
		return nil, err
	}

	note, err := service.ownNote(ctx, assignment, noteID)
	if err != nil {
		return nil, err
	}

	content, lineIDs, err := service.prepare(ctx, transcriptID, input)
	if err != nil {
		return nil, err
	}

	note.Content = content
	note.UpdatedAt = time.Now()
	err = service.repo.RunInTx(ctx, func(ctx context.Context, tx interfaces.Repository) error {
		if err := tx.UpdateNote(ctx, note); err != nil {
			return err
		}
		return tx.ReplaceNoteLines(ctx, note.ID, lineIDs)
	})
	if err != nil {
		return nil, err
	}

	note.LineIDs = lineIDs
	return note, nil
}

func (service *ServiceAnnotation) DeleteNote(ctx context.Context, actor *models.User, transcriptID int64, noteID int64) error {
	assignment, err := requireAssignment(ctx, service.repo, actor, transcriptID)
	if err != nil {
		return err
	}

	if _, err := service.ownNote(ctx, assignment, noteID); err != nil {
		return err
	}
	return service.repo.DeleteNote(ctx, noteID)
}

// SetFlag is idempotent in both directions and returns the flagged line ids afterwards.
func (service *ServiceAnnotation) SetFlag(ctx context.Context, actor *models.User, transcriptID int64, lineID int64, flagged bool) ([]int64, error) {
	assignment, err := requireAssignment(ctx, service.repo, actor, transcriptID)
	if err != nil {
		return nil, err
	}

	if lineID <= 0 {
		return nil, errInvalidLineID
	}
	if _, err := validateLineIDs(ctx, service.repo, service.cache, transcriptID, []int64{lineID}); err != nil {
		return nil, err
	}

	if flagged {
		err = service.repo.AddLineFlag(ctx, assignment.ID, lineID)
	} else {
		err = service.repo.RemoveLineFlag(ctx, assignment.ID, lineID)
	}
	if err != nil {
		return nil, err
	}

	return service.repo.ListLineFlags(ctx, assignment.ID)
}
