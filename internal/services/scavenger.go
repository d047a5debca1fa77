package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/samber/do"

	"annotate/internal/interfaces"
	"annotate/internal/models"
	"annotate/internal/pkg/caching"
	"annotate/internal/pkg/limiter"
)

var (
	errHuntNotFound      = errorx.Wrap(errors.New("scavenger hunt not found"), errorx.NotExist)
	errInvalidQuestionID = errorx.Wrap(errors.New("invalid question id"), errorx.Invalid)
)

type HuntQuestion struct {
	ID              int64   `json:"id"`
	Question        string  `json:"question"`
	OrderIndex      int     `json:"orderIndex"`
	Answer          string  `json:"answer"`
	SelectedLineIDs []int64 `json:"selectedLineIds"`
}

type HuntView struct {
	ID        int64           `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	Questions []*HuntQuestion `json:"questions"`
}

// HuntState is what an annotator sees of a transcript's hunt. Hunt is nil when
// the transcript has none.
type HuntState struct {
	Hunt      *HuntView `json:"scavengerHunt"`
	Completed bool      `json:"scavengerCompleted"`
}

type SaveAnswerInput struct {
	QuestionID int64   `json:"questionId"`
	Answer     *string `json:"answer"`
	LineIDs    []int64 `json:"lineIds"`
}

type SavedAnswer struct {
	QuestionID      int64      `json:"questionId"`
	Answer          string     `json:"answer"`
	SelectedLineIDs []int64    `json:"selectedLineIds"`
	UpdatedAt       *time.Time `json:"updatedAt"`
}

type ServiceScavenger struct {
	container *do.Injector
	repo      interfaces.Repository
	cache     caching.Cache
	locker    interfaces.Locker
	limiter   interfaces.Limiter
	config    *Config
}

func NewServiceScavenger(container *do.Injector) (*ServiceScavenger, error) {
	repo, err := do.Invoke[interfaces.Repository](container)
	if err != nil {
		return nil, err
	}

	cache, err := do.Invoke[caching.Cache](container)
	if err != nil {
		return nil, err
	}

	locker, err := do.Invoke[interfaces.Locker](container)
	if err != nil {
		return nil, err
	}

	limiter, err := do.Invoke[interfaces.Limiter](container)
	if err != nil {
		return nil, err
	}

	config, err := do.Invoke[*Config](container)
	if err != nil {
		return nil, err
	}

	return &ServiceScavenger{container, repo, cache, locker, limiter, config}, nil
}

func (service *ServiceScavenger) questions(ctx context.Context, huntID int64) ([]*models.ScavengerQuestion, error) {
	callback := func() ([]*models.ScavengerQuestion, error) {
		return service.repo.GetQuestions(ctx, huntID)
	}
	return caching.UseCache(ctx, service.cache, DBKeyHuntQuestions(huntID), CACHE_TTL_5_MINS, callback)
}

func (service *ServiceScavenger) huntOf(ctx context.Context, transcriptID int64) (*models.ScavengerHunt, error) {
	hunt, err := service.repo.GetHuntByTranscript(ctx, transcriptID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return hunt, err
}

func (service *ServiceScavenger) GetHunt(ctx context.Context, actor *models.User, transcriptID int64) (*HuntState, error) {
	if _, err := requireAssignment(ctx, service.repo, actor, transcriptID); err != nil {
		return nil, err
	}

	hunt, err := service.huntOf(ctx, transcriptID)
	if err != nil {
		return nil, err
	}
	if hunt == nil {
		return &HuntState{}, nil
	}

	questions, err := service.questions(ctx, hunt.ID)
	if err != nil {
		return nil, err
	}

	state := &HuntState{}
	answers := map[int64]*models.ScavengerAnswer{}

	assignment, err := service.repo.FindScavengerAssignment(ctx, hunt.ID, actor.ID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if assignment != nil {
		state.Completed = assignment.Completed

		rows, err := service.repo.GetAnswers(ctx, assignment.ID)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			answers[row.QuestionID] = row
		}
	}

	view := &HuntView{ID: hunt.ID, CreatedAt: hunt.CreatedAt, Questions: make([]*HuntQuestion, 0, len(questions))}
	for _, q := range questions {
		item := &HuntQuestion{ID: q.ID, Question: q.Question, OrderIndex: q.OrderIndex, SelectedLineIDs: []int64{}}
		if a, ok := answers[q.ID]; ok {
			if a.Answer != nil {
				item.Answer = *a.Answer
			}
			if a.LineIDs != nil {
				item.SelectedLineIDs = a.LineIDs
			}
		}
		view.Questions = append(view.Questions, item)
	}
	state.Hunt = view
	return state, nil
}

func (service *ServiceScavenger) SaveAnswer(ctx context.Context, actor *models.User, transcriptID int64, input SaveAnswerInput) (*SavedAnswer, error) {
	if _, err := requireAssignment(ctx, service.repo, actor, transcriptID); err != nil {
		return nil, err
	}

	if service.config.SaveRatePerMinute > 0 {
		err := service.limiter.Allow(ctx, LimitKeySaveAnswer(actor.ID), redis_rate.PerMinute(service.config.SaveRatePerMinute))
		if limiter.IsRateLimited(err) {
			return nil, errorx.Wrap(errors.New("too many requests"), errorx.RateLimiting)
		}
		if err != nil {
			return nil, err
		}
	}

	if input.QuestionID <= 0 {
		return nil, errInvalidQuestionID
	}

	hunt, err := service.huntOf(ctx, transcriptID)
	if err != nil {
		return nil, err
	}
	if hunt == nil {
		return nil, errInvalidQuestionID
	}

	questions, err := service.questions(ctx, hunt.ID)
	if err != nil {
		return nil, err
	}
	var question *models.ScavengerQuestion
	for _, q := range questions {
		if q.ID == input.QuestionID {
			question = q
			break
		}
	}
	if question == nil {
		return nil, errInvalidQuestionID
	}

	lineIDs, err := validateLineIDs(ctx, service.repo, service.cache, transcriptID, input.LineIDs)
	if err != nil {
		return nil, err
	}

	text := ""
	if input.Answer != nil {
		text = strings.TrimSpace(*input.Answer)
	}

	unlock, err := service.locker.Lock(ctx, LockKeyScavengerAssignment(hunt.ID, actor.ID))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScavengerLock, err)
	}
	defer unlock()

	result := &SavedAnswer{QuestionID: question.ID, SelectedLineIDs: []int64{}}
	err = service.repo.RunInTx(ctx, func(ctx context.Context, tx interfaces.Repository) error {
		assignment, err := tx.FindOrCreateScavengerAssignment(ctx, hunt.ID, actor.ID)
		if err != nil {
			return err
		}

		existing, err := tx.FindAnswer(ctx, assignment.ID, question.ID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		if text == "" && len(lineIDs) == 0 {
			if existing != nil {
				return tx.DeleteAnswer(ctx, existing.ID)
			}
			return nil
		}

		answer := &models.ScavengerAnswer{
			AssignmentID: assignment.ID,
			QuestionID:   question.ID,
			UpdatedAt:    time.Now(),
		}
		if existing != nil {
			answer.ID = existing.ID
		}
		if text != "" {
			answer.Answer = &text
		}
		if err := tx.UpsertAnswer(ctx, answer); err != nil {
			return err
		}
		if err := tx.ReplaceAnswerLines(ctx, answer.ID, lineIDs); err != nil {
			return err
		}

		result.Answer = text
		if len(lineIDs) > 0 {
			result.SelectedLineIDs = lineIDs
		}
		result.UpdatedAt = &answer.UpdatedAt
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// SetCompleted refreshes completed_at on every call that marks the hunt complete.
func (service *ServiceScavenger) SetCompleted(ctx context.Context, actor *models.User, transcriptID int64, completed bool) (bool, error) {
	if _, err := requireAssignment(ctx, service.repo, actor, transcriptID); err != nil {
		return false, err
	}

	hunt, err := service.huntOf(ctx, transcriptID)
	if err != nil {
		return false, err
	}
	if hunt == nil {
		return false, errHuntNotFound
	}

	unlock, err := service.locker.Lock(ctx, LockKeyScavengerAssignment(hunt.ID, actor.ID))
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrScavengerLock, err)
	}
	defer unlock()

	err = service.repo.RunInTx(ctx, func(ctx context.Context, tx interfaces.Repository) error {
		assignment, err := tx.FindOrCreateScavengerAssignment(ctx, hunt.ID, actor.ID)
		if err != nil {
			return err
		}

		assignment.Completed = completed
		assignment.CompletedAt = nil
		if completed {
			now := time.Now()
			assignment.CompletedAt = &now
		}
		return tx.UpdateScavengerCompletion(ctx, assignment)
	})
	if err != nil {
		return false, err
	}

	return completed, nil
}

// ImportHunt creates the hunt of a transcript with its questions in the given order.
func (service *ServiceScavenger) ImportHunt(ctx context.Context, transcriptID int64, questions []string) (*models.ScavengerHunt, error) {
	if _, err := service.repo.GetTranscript(ctx, transcriptID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errTranscriptNotFound
		}
		return nil, err
	}

	items := []*models.ScavengerQuestion{}
	for _, q := range questions {
		if q = strings.TrimSpace(q); q != "" {
			items = append(items, &models.ScavengerQuestion{Question: q, OrderIndex: len(items)})
		}
	}
	if len(items) == 0 {
		return nil, errorx.Wrap(errors.New("no questions to import"), errorx.Invalid)
	}

	hunt := &models.ScavengerHunt{TranscriptID: transcriptID}
	err := service.repo.RunInTx(ctx, func(ctx context.Context, tx interfaces.Repository) error {
		existing, err := tx.GetHuntByTranscript(ctx, transcriptID)
		if err == nil && existing != nil {
			return errorx.Wrap(errors.New("transcript already has a scavenger hunt"), errorx.Invalid)
		}
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		if err := tx.CreateHunt(ctx, hunt); err != nil {
			return err
		}
		for _, item := range items {
			item.HuntID = hunt.ID
		}
		return tx.CreateQuestions(ctx, items)
	})
	if err != nil {
		return nil, err
	}

	hunt.Questions = items
	return hunt, nil
}
