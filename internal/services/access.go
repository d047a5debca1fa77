package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/hiendaovinh/toolkit/pkg/errorx"

	"annotate/internal/interfaces"
	"annotate/internal/models"
	"annotate/internal/pkg/caching"
)

var (
	errTranscriptNotFound = errorx.Wrap(errors.New("transcript not found"), errorx.NotExist)
	errAdminOnly          = errorx.Wrap(errors.New("admin access required"), errorx.Authz)
	errInvalidLineID      = errorx.Wrap(errors.New("invalid line id"), errorx.Invalid)
)

// requireAssignment returns the annotation assignment of actor on transcriptID.
func requireAssignment(ctx context.Context, repo interfaces.Repository, actor *models.User, transcriptID int64) (*models.AnnotationAssignment, error) {
	if actor == nil {
		return nil, errorx.Wrap(errors.New("unauthorized"), errorx.Authn)
	}
	if transcriptID <= 0 {
		return nil, errorx.Wrap(errors.New("invalid transcript id"), errorx.Invalid)
	}

	assignment, err := repo.GetAssignment(ctx, transcriptID, actor.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errTranscriptNotFound
	}
	if err != nil {
		return nil, err
	}
	return assignment, nil
}

// requireAdminTranscript loads a transcript of the admin's own workspace.
func requireAdminTranscript(ctx context.Context, repo interfaces.Repository, actor *models.User, transcriptID int64) (*models.Transcript, error) {
	if !actor.IsAdmin() {
		return nil, errAdminOnly
	}
	if transcriptID <= 0 {
		return nil, errorx.Wrap(errors.New("invalid transcript id"), errorx.Invalid)
	}

	transcript, err := repo.GetTranscript(ctx, transcriptID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errTranscriptNotFound
	}
	if err != nil {
		return nil, err
	}
	if transcript.WorkspaceID != actor.WorkspaceID {
		return nil, errTranscriptNotFound
	}
	return transcript, nil
}

// readableTranscript lets same-workspace admins and assigned annotators in. The
// assignment is nil for admins without one.
func readableTranscript(ctx context.Context, repo interfaces.Repository, actor *models.User, transcriptID int64) (*models.Transcript, *models.AnnotationAssignment, error) {
	if actor.IsAdmin() {
		transcript, err := requireAdminTranscript(ctx, repo, actor, transcriptID)
		if err != nil {
			return nil, nil, err
		}
		assignment, err := repo.GetAssignment(ctx, transcriptID, actor.ID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, nil, err
		}
		return transcript, assignment, nil
	}

	assignment, err := requireAssignment(ctx, repo, actor, transcriptID)
	if err != nil {
		return nil, nil, err
	}
	transcript, err := repo.GetTranscript(ctx, transcriptID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, errTranscriptNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	return transcript, assignment, nil
}

// validateLineIDs dedupes ids in first-seen order and rejects any id outside the transcript.
func validateLineIDs(ctx context.Context, repo interfaces.Repository, cash caching.Cache, transcriptID int64, ids []int64) ([]int64, error) {
	ids = dedupeIDs(ids)
	if len(ids) == 0 {
		return ids, nil
	}

	callback := func() ([]int64, error) {
		return repo.GetLineIDs(ctx, transcriptID)
	}
	known, err := caching.UseCache(ctx, cash, DBKeyTranscriptLineIDs(transcriptID), CACHE_TTL_5_MINS, callback)
	if err != nil {
		return nil, err
	}

	valid := make(map[int64]struct{}, len(known))
	for _, id := range known {
		valid[id] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := valid[id]; !ok {
			return nil, errInvalidLineID
		}
	}
	return ids, nil
}

func dedupeIDs(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func isKind(err error, kind errorx.Kind) bool {
	var target *errorx.Error
	return errors.As(err, &target) && target.Of(kind)
}
