package inmem

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"annotate/internal/models"
)

func (r *Repository) CreateTranscript(ctx context.Context, transcript *models.Transcript) error {
	defer r.lock()()
	if err := r.failure("CreateTranscript"); err != nil {
		return err
	}
	transcript.ID = r.nextID()
	if transcript.CreatedAt.IsZero() {
		transcript.CreatedAt = time.Now()
	}
	r.st.transcripts[transcript.ID] = *transcript
	return nil
}

func (r *Repository) GetTranscript(ctx context.Context, transcriptID int64) (*models.Transcript, error) {
	defer r.lock()()
	t, ok := r.st.transcripts[transcriptID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &t, nil
}

func (r *Repository) ListTranscriptsByWorkspace(ctx context.Context, workspaceID int64) ([]*models.Transcript, error) {
	defer r.lock()()
	transcripts := []*models.Transcript{}
	for _, t := range r.st.transcripts {
		if t.WorkspaceID == workspaceID {
			t := t
			transcripts = append(transcripts, &t)
		}
	}
	sort.Slice(transcripts, func(i, j int) bool { return transcripts[i].ID > transcripts[j].ID })
	return transcripts, nil
}

func (r *Repository) UpdateTranscriptVideo(ctx context.Context, transcript *models.Transcript) error {
	defer r.lock()()
	if err := r.failure("UpdateTranscriptVideo"); err != nil {
		return err
	}
	t, ok := r.st.transcripts[transcript.ID]
	if !ok {
		return nil
	}
	t.VideoObject = transcript.VideoObject
	t.VideoContentType = transcript.VideoContentType
	t.VideoUploadedAt = transcript.VideoUploadedAt
	r.st.transcripts[t.ID] = t
	return nil
}

// DeleteTranscript mirrors the ON DELETE CASCADE foreign keys of the real schema.
func (r *Repository) DeleteTranscript(ctx context.Context, transcriptID int64) error {
	defer r.lock()()
	delete(r.st.transcripts, transcriptID)

	for id, s := range r.st.segments {
		if s.TranscriptID == transcriptID {
			delete(r.st.segments, id)
		}
	}
	for id, l := range r.st.lines {
		if l.TranscriptID == transcriptID {
			delete(r.st.lines, id)
		}
	}
	for id, a := range r.st.llm {
		if a.TranscriptID == transcriptID {
			delete(r.st.llm, id)
		}
	}
	for id, a := range r.st.assignments {
		if a.TranscriptID == transcriptID {
			r.deleteAssignment(id)
		}
	}
	for id, h := range r.st.hunts {
		if h.TranscriptID != transcriptID {
			continue
		}
		for qid, q := range r.st.questions {
			if q.HuntID == id {
				delete(r.st.questions, qid)
			}
		}
		for aid, a := range r.st.sAssignments {
			if a.HuntID != id {
				continue
			}
			for ansID, ans := range r.st.answers {
				if ans.AssignmentID == aid {
					delete(r.st.answers, ansID)
					delete(r.st.answerLines, ansID)
				}
			}
			delete(r.st.sAssignments, aid)
		}
		delete(r.st.hunts, id)
	}

	return nil
}

func (r *Repository) CreateSegments(ctx context.Context, segments []*models.Segment) error {
	defer r.lock()()
	for _, s := range segments {
		for _, existing := range r.st.segments {
			if existing.TranscriptID == s.TranscriptID && existing.OrderIndex == s.OrderIndex {
				return ErrDuplicate
			}
		}
		s.ID = r.nextID()
		r.st.segments[s.ID] = *s
	}
	return nil
}

func (r *Repository) CreateLines(ctx context.Context, lines []*models.Line) error {
	defer r.lock()()
	if err := r.failure("CreateLines"); err != nil {
		return err
	}
	for _, l := range lines {
		for _, existing := range r.st.lines {
			if existing.TranscriptID == l.TranscriptID && existing.Line == l.Line {
				return ErrDuplicate
			}
		}
		l.ID = r.nextID()
		r.st.lines[l.ID] = *l
	}
	return nil
}

func (r *Repository) transcriptLines(transcriptID int64) []*models.Line {
	lines := []*models.Line{}
	for _, l := range r.st.lines {
		if l.TranscriptID == transcriptID {
			l := l
			lines = append(lines, &l)
		}
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].Line < lines[j].Line })
	return lines
}

func (r *Repository) GetLines(ctx context.Context, transcriptID int64) ([]*models.Line, error) {
	defer r.lock()()
	return r.transcriptLines(transcriptID), nil
}

func (r *Repository) GetLineIDs(ctx context.Context, transcriptID int64) ([]int64, error) {
	defer r.lock()()
	ids := []int64{}
	for _, l := range r.transcriptLines(transcriptID) {
		ids = append(ids, l.ID)
	}
	return ids, nil
}

func (r *Repository) CreateLLMAnnotations(ctx context.Context, annotations []*models.LLMAnnotation) error {
	defer r.lock()()
	for _, a := range annotations {
		a.ID = r.nextID()
		r.st.llm[a.ID] = *a
	}
	return nil
}

func (r *Repository) GetLLMAnnotations(ctx context.Context, transcriptID int64) ([]*models.LLMAnnotation, error) {
	defer r.lock()()
	annotations := []*models.LLMAnnotation{}
	for _, a := range r.st.llm {
		if a.TranscriptID == transcriptID {
			a := a
			annotations = append(annotations, &a)
		}
	}
	sort.Slice(annotations, func(i, j int) bool {
		if annotations[i].LineID != annotations[j].LineID {
			return annotations[i].LineID < annotations[j].LineID
		}
		return annotations[i].ID < annotations[j].ID
	})
	return annotations, nil
}

// sortByLine orders line ids by their ordinal within the transcript.
func (r *Repository) sortByLine(ids []int64) []int64 {
	out := append([]int64{}, ids...)
	sort.SliceStable(out, func(i, j int) bool {
		return r.st.lines[out[i]].Line < r.st.lines[out[j]].Line
	})
	return out
}
