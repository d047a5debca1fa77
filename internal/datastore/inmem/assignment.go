package inmem

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"annotate/internal/models"
)

func (r *Repository) CreateAssignment(ctx context.Context, assignment *models.AnnotationAssignment) error {
	defer r.lock()()
	for _, a := range r.st.assignments {
		if a.TranscriptID == assignment.TranscriptID && a.AnnotatorID == assignment.AnnotatorID {
			return ErrDuplicate
		}
	}
	assignment.ID = r.nextID()
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = time.Now()
	}
	stored := *assignment
	stored.Transcript = nil
	r.st.assignments[assignment.ID] = stored
	return nil
}

func (r *Repository) GetAssignment(ctx context.Context, transcriptID, annotatorID int64) (*models.AnnotationAssignment, error) {
	defer r.lock()()
	for _, a := range r.st.assignments {
		if a.TranscriptID == transcriptID && a.AnnotatorID == annotatorID {
			return &a, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *Repository) GetAssignmentByID(ctx context.Context, assignmentID int64) (*models.AnnotationAssignment, error) {
	defer r.lock()()
	a, ok := r.st.assignments[assignmentID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &a, nil
}

func (r *Repository) ListAssignmentsByAnnotator(ctx context.Context, annotatorID int64) ([]*models.AnnotationAssignment, error) {
	defer r.lock()()
	assignments := []*models.AnnotationAssignment{}
	for _, a := range r.st.assignments {
		if a.AnnotatorID != annotatorID {
			continue
		}
		a := a
		if t, ok := r.st.transcripts[a.TranscriptID]; ok {
			a.Transcript = &t
		}
		assignments = append(assignments, &a)
	}
	sort.Slice(assignments, func(i, j int) bool { return assignments[i].ID > assignments[j].ID })
	return assignments, nil
}

func (r *Repository) ListAssignmentsByTranscript(ctx context.Context, transcriptID int64) ([]*models.AnnotationAssignment, error) {
	defer r.lock()()
	assignments := []*models.AnnotationAssignment{}
	for _, a := range r.st.assignments {
		if a.TranscriptID == transcriptID {
			a := a
			assignments = append(assignments, &a)
		}
	}
	sort.Slice(assignments, func(i, j int) bool { return assignments[i].ID < assignments[j].ID })
	return assignments, nil
}

func (r *Repository) UpdateAssignment(ctx context.Context, assignment *models.AnnotationAssignment) error {
	defer r.lock()()
	a, ok := r.st.assignments[assignment.ID]
	if !ok {
		return nil
	}
	a.LLMAnnotationsVisible = assignment.LLMAnnotationsVisible
	a.Completed = assignment.Completed
	a.CompletedAt = assignment.CompletedAt
	r.st.assignments[a.ID] = a
	return nil
}

func (r *Repository) DeleteAssignment(ctx context.Context, assignmentID int64) error {
	defer r.lock()()
	r.deleteAssignment(assignmentID)
	return nil
}

func (r *Repository) deleteAssignment(assignmentID int64) {
	for id, n := range r.st.notes {
		if n.AssignmentID == assignmentID {
			delete(r.st.notes, id)
			delete(r.st.noteLines, id)
		}
	}
	for id, f := range r.st.flags {
		if f.AssignmentID == assignmentID {
			delete(r.st.flags, id)
		}
	}
	delete(r.st.assignments, assignmentID)
}

func (r *Repository) ListNotes(ctx context.Context, assignmentID int64) ([]*models.Note, error) {
	defer r.lock()()
	notes := []*models.Note{}
	for _, n := range r.st.notes {
		if n.AssignmentID == assignmentID {
			n := n
			n.LineIDs = r.sortByLine(r.st.noteLines[n.ID])
			notes = append(notes, &n)
		}
	}
	sort.Slice(notes, func(i, j int) bool { return notes[i].ID < notes[j].ID })
	return notes, nil
}

func (r *Repository) GetNote(ctx context.Context, noteID int64) (*models.Note, error) {
	defer r.lock()()
	n, ok := r.st.notes[noteID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	n.LineIDs = r.sortByLine(r.st.noteLines[n.ID])
	return &n, nil
}

func (r *Repository) CreateNote(ctx context.Context, note *models.Note) error {
	defer r.lock()()
	note.ID = r.nextID()
	now := time.Now()
	if note.CreatedAt.IsZero() {
		note.CreatedAt = now
	}
	if note.UpdatedAt.IsZero() {
		note.UpdatedAt = now
	}
	stored := *note
	stored.LineIDs = nil
	r.st.notes[note.ID] = stored
	return nil
}

func (r *Repository) UpdateNote(ctx context.Context, note *models.Note) error {
	defer r.lock()()
	n, ok := r.st.notes[note.ID]
	if !ok {
		return nil
	}
	n.Content = note.Content
	n.UpdatedAt = note.UpdatedAt
	r.st.notes[n.ID] = n
	return nil
}

func (r *Repository) DeleteNote(ctx context.Context, noteID int64) error {
	defer r.lock()()
	delete(r.st.notes, noteID)
	delete(r.st.noteLines, noteID)
	return nil
}

func (r *Repository) ReplaceNoteLines(ctx context.Context, noteID int64, lineIDs []int64) error {
	defer r.lock()()
	if err := r.failure("ReplaceNoteLines"); err != nil {
		return err
	}
	r.st.noteLines[noteID] = append([]int64{}, lineIDs...)
	return nil
}

func (r *Repository) ListLineFlags(ctx context.Context, assignmentID int64) ([]int64, error) {
	defer r.lock()()
	ids := []int64{}
	for _, f := range r.st.flags {
		if f.AssignmentID == assignmentID {
			ids = append(ids, f.LineID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *Repository) AddLineFlag(ctx context.Context, assignmentID, lineID int64) error {
	defer r.lock()()
	for _, f := range r.st.flags {
		if f.AssignmentID == assignmentID && f.LineID == lineID {
			return nil
		}
	}
	id := r.nextID()
	r.st.flags[id] = models.LineFlag{ID: id, AssignmentID: assignmentID, LineID: lineID, CreatedAt: time.Now()}
	return nil
}

func (r *Repository) RemoveLineFlag(ctx context.Context, assignmentID, lineID int64) error {
	defer r.lock()()
	for id, f := range r.st.flags {
		if f.AssignmentID == assignmentID && f.LineID == lineID {
			delete(r.st.flags, id)
		}
	}
	return nil
}
