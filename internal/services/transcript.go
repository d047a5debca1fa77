package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/samber/do"

	"annotate/internal/interfaces"
	"annotate/internal/models"
	"annotate/internal/pkg/caching"
)

type TranscriptSummary struct {
	*models.Transcript
	Assignment *models.AnnotationAssignment `json:"assignment,omitempty"`
}

type TranscriptDetail struct {
	Transcript     *models.Transcript             `json:"transcript"`
	Lines          []*models.Line                 `json:"lines"`
	LLMAnnotations []*models.LLMAnnotation        `json:"llm_annotations,omitempty"`
	Assignment     *models.AnnotationAssignment   `json:"assignment,omitempty"`
	Assignments    []*models.AnnotationAssignment `json:"assignments,omitempty"`
	FlaggedLineIDs []int64                        `json:"flagged_line_ids"`
}

type ServiceTranscript struct {
	container *do.Injector
	repo      interfaces.Repository
	cache     caching.Cache
	store     interfaces.ObjectStore
}

func NewServiceTranscript(container *do.Injector) (*ServiceTranscript, error) {
	repo, err := do.Invoke[interfaces.Repository](container)
	if err != nil {
		return nil, err
	}

	cache, err := do.Invoke[caching.Cache](container)
	if err != nil {
		return nil, err
	}

	store, err := do.Invoke[interfaces.ObjectStore](container)
	if err != nil {
		return nil, err
	}

	return &ServiceTranscript{container, repo, cache, store}, nil
}

func decorate(t *models.Transcript) *models.Transcript {
	t.HasVideo = t.VideoObject != nil
	return t
}

func (service *ServiceTranscript) ListTranscripts(ctx context.Context, actor *models.User) ([]*TranscriptSummary, error) {
	summaries := []*TranscriptSummary{}

	if actor.IsAdmin() {
		transcripts, err := service.repo.ListTranscriptsByWorkspace(ctx, actor.WorkspaceID)
		if err != nil {
			return nil, err
		}
		for _, t := range transcripts {
			summaries = append(summaries, &TranscriptSummary{Transcript: decorate(t)})
		}
		return summaries, nil
	}

	assignments, err := service.repo.ListAssignmentsByAnnotator(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	for _, a := range assignments {
		if a.Transcript == nil {
			continue
		}
		t := decorate(a.Transcript)
		a.Transcript = nil
		summaries = append(summaries, &TranscriptSummary{Transcript: t, Assignment: a})
	}
	return summaries, nil
}

// GetTranscript returns the lines ordered by ordinal. LLM annotations are included for
// admins and for assignments that have them enabled.
func (service *ServiceTranscript) GetTranscript(ctx context.Context, actor *models.User, transcriptID int64) (*TranscriptDetail, error) {
	transcript, assignment, err := readableTranscript(ctx, service.repo, actor, transcriptID)
	if err != nil {
		return nil, err
	}

	lines, err := service.repo.GetLines(ctx, transcriptID)
	if err != nil {
		return nil, err
	}

	detail := &TranscriptDetail{
		Transcript:     decorate(transcript),
		Lines:          lines,
		Assignment:     assignment,
		FlaggedLineIDs: []int64{},
	}
	transcript.LineCount = len(lines)

	if actor.IsAdmin() || (assignment != nil && assignment.LLMAnnotationsVisible) {
		detail.LLMAnnotations, err = service.repo.GetLLMAnnotations(ctx, transcriptID)
		if err != nil {
			return nil, err
		}
	}

	if actor.IsAdmin() {
		detail.Assignments, err = service.repo.ListAssignmentsByTranscript(ctx, transcriptID)
		if err != nil {
			return nil, err
		}
	}

	if assignment != nil {
		flags, err := service.repo.ListLineFlags(ctx, assignment.ID)
		if err != nil {
			return nil, err
		}
		detail.FlaggedLineIDs = flags
	}

	return detail, nil
}

// ImportTranscript creates a transcript from a .csv or .xlsx upload in one transaction.
func (service *ServiceTranscript) ImportTranscript(ctx context.Context, actor *models.User, name string, filename string, r io.Reader) (*models.Transcript, error) {
	if !actor.IsAdmin() {
		return nil, errAdminOnly
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}
	if name == "" {
		return nil, errorx.Wrap(errors.New("transcript name is required"), errorx.Invalid)
	}

	rows, err := readRows(filename, r)
	if err != nil {
		return nil, err
	}
	imported, err := ParseTranscriptRows(rows)
	if err != nil {
		return nil, err
	}

	transcript := &models.Transcript{WorkspaceID: actor.WorkspaceID, Name: name, CreatedBy: actor.ID}
	err = service.repo.RunInTx(ctx, func(ctx context.Context, tx interfaces.Repository) error {
		if err := tx.CreateTranscript(ctx, transcript); err != nil {
			return err
		}

		segments := []*models.Segment{}
		segmentIndex := map[string]int{}
		for _, l := range imported {
			if l.Segment == "" {
				continue
			}
			if _, ok := segmentIndex[l.Segment]; ok {
				continue
			}
			segmentIndex[l.Segment] = len(segments)
			segments = append(segments, &models.Segment{TranscriptID: transcript.ID, Name: l.Segment, OrderIndex: len(segments)})
		}
		if err := tx.CreateSegments(ctx, segments); err != nil {
			return err
		}

		lines := make([]*models.Line, 0, len(imported))
		for _, l := range imported {
			line := &models.Line{TranscriptID: transcript.ID, Line: l.Line, Speaker: l.Speaker, Utterance: l.Utterance}
			if i, ok := segmentIndex[l.Segment]; ok {
				line.SegmentID = &segments[i].ID
			}
			lines = append(lines, line)
		}
		return tx.CreateLines(ctx, lines)
	})
	if err != nil {
		return nil, err
	}

	transcript.LineCount = len(imported)
	return transcript, nil
}

// ImportLLMAnnotations attaches annotations keyed by line ordinal to a transcript.
func (service *ServiceTranscript) ImportLLMAnnotations(ctx context.Context, transcriptID int64, filename string, r io.Reader) (int, error) {
	if _, err := service.repo.GetTranscript(ctx, transcriptID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, errTranscriptNotFound
		}
		return 0, err
	}

	rows, err := readRows(filename, r)
	if err != nil {
		return 0, err
	}
	imported, err := ParseAnnotationRows(rows)
	if err != nil {
		return 0, err
	}

	lines, err := service.repo.GetLines(ctx, transcriptID)
	if err != nil {
		return 0, err
	}
	byOrdinal := make(map[int]int64, len(lines))
	for _, l := range lines {
		byOrdinal[l.Line] = l.ID
	}

	annotations := make([]*models.LLMAnnotation, 0, len(imported))
	for _, a := range imported {
		lineID, ok := byOrdinal[a.Line]
		if !ok {
			return 0, errorx.Wrap(fmt.Errorf("unknown line %d", a.Line), errorx.Invalid)
		}
		annotations = append(annotations, &models.LLMAnnotation{TranscriptID: transcriptID, LineID: lineID, Category: a.Category, Content: a.Content})
	}

	if err := service.repo.CreateLLMAnnotations(ctx, annotations); err != nil {
		return 0, err
	}
	return len(annotations), nil
}

func (service *ServiceTranscript) DeleteTranscript(ctx context.Context, actor *models.User, transcriptID int64) error {
	transcript, err := requireAdminTranscript(ctx, service.repo, actor, transcriptID)
	if err != nil {
		return err
	}

	if err := service.repo.DeleteTranscript(ctx, transcriptID); err != nil {
		return err
	}

	// nolint:errcheck
	service.cache.Delete(ctx, DBKeyTranscriptLineIDs(transcriptID))

	if transcript.VideoObject != nil {
		if err := service.store.Delete(ctx, *transcript.VideoObject); err != nil {
			log.Printf("delete video object %s of transcript %d: %v", *transcript.VideoObject, transcriptID, err)
		}
	}
	return nil
}
