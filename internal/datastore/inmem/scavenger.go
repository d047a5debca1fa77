package inmem

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"time"

	"annotate/internal/models"
)

func (r *Repository) CreateHunt(ctx context.Context, hunt *models.ScavengerHunt) error {
	defer r.lock()()
	for _, h := range r.st.hunts {
		if h.TranscriptID == hunt.TranscriptID {
			return ErrDuplicate
		}
	}
	hunt.ID = r.nextID()
	if hunt.CreatedAt.IsZero() {
		hunt.CreatedAt = time.Now()
	}
	stored := *hunt
	stored.Questions = nil
	r.st.hunts[hunt.ID] = stored
	return nil
}

func (r *Repository) GetHuntByTranscript(ctx context.Context, transcriptID int64) (*models.ScavengerHunt, error) {
	defer r.lock()()
	for _, h := range r.st.hunts {
		if h.TranscriptID == transcriptID {
			return &h, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *Repository) GetHuntByID(ctx context.Context, huntID int64) (*models.ScavengerHunt, error) {
	defer r.lock()()
	h, ok := r.st.hunts[huntID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &h, nil
}

func (r *Repository) CreateQuestions(ctx context.Context, questions []*models.ScavengerQuestion) error {
	defer r.lock()()
	for _, q := range questions {
		for _, existing := range r.st.questions {
			if existing.HuntID == q.HuntID && existing.OrderIndex == q.OrderIndex {
				return ErrDuplicate
			}
		}
		q.ID = r.nextID()
		r.st.questions[q.ID] = *q
	}
	return nil
}

func (r *Repository) GetQuestions(ctx context.Context, huntID int64) ([]*models.ScavengerQuestion, error) {
	defer r.lock()()
	questions := []*models.ScavengerQuestion{}
	for _, q := range r.st.questions {
		if q.HuntID == huntID {
			q := q
			questions = append(questions, &q)
		}
	}
	sort.Slice(questions, func(i, j int) bool { return questions[i].OrderIndex < questions[j].OrderIndex })
	return questions, nil
}

func (r *Repository) findScavengerAssignment(huntID, annotatorID int64) (*models.ScavengerAssignment, bool) {
	for _, a := range r.st.sAssignments {
		if a.HuntID == huntID && a.AnnotatorID == annotatorID {
			return &a, true
		}
	}
	return nil, false
}

func (r *Repository) FindScavengerAssignment(ctx context.Context, huntID, annotatorID int64) (*models.ScavengerAssignment, error) {
	defer r.lock()()
	a, ok := r.findScavengerAssignment(huntID, annotatorID)
	if !ok {
		return nil, sql.ErrNoRows
	}
	return a, nil
}

func (r *Repository) GetScavengerAssignmentByID(ctx context.Context, assignmentID int64) (*models.ScavengerAssignment, error) {
	defer r.lock()()
	a, ok := r.st.sAssignments[assignmentID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &a, nil
}

func (r *Repository) FindOrCreateScavengerAssignment(ctx context.Context, huntID, annotatorID int64) (*models.ScavengerAssignment, error) {
	defer r.lock()()
	if err := r.failure("FindOrCreateScavengerAssignment"); err != nil {
		return nil, err
	}
	if a, ok := r.findScavengerAssignment(huntID, annotatorID); ok {
		return a, nil
	}
	a := models.ScavengerAssignment{ID: r.nextID(), HuntID: huntID, AnnotatorID: annotatorID, CreatedAt: time.Now()}
	r.st.sAssignments[a.ID] = a
	return &a, nil
}

func (r *Repository) UpdateScavengerCompletion(ctx context.Context, assignment *models.ScavengerAssignment) error {
	defer r.lock()()
	a, ok := r.st.sAssignments[assignment.ID]
	if !ok {
		return nil
	}
	a.Completed = assignment.Completed
	a.CompletedAt = assignment.CompletedAt
	r.st.sAssignments[a.ID] = a
	return nil
}

func (r *Repository) ListScavengerSubmissions(ctx context.Context, workspaceID int64) ([]*models.ScavengerSubmission, error) {
	defer r.lock()()
	submissions := []*models.ScavengerSubmission{}
	for _, a := range r.st.sAssignments {
		hunt, ok := r.st.hunts[a.HuntID]
		if !ok {
			continue
		}
		transcript, ok := r.st.transcripts[hunt.TranscriptID]
		if !ok || transcript.WorkspaceID != workspaceID {
			continue
		}
		annotator := r.st.users[a.AnnotatorID]

		count := 0
		for _, ans := range r.st.answers {
			if ans.AssignmentID == a.ID {
				count++
			}
		}

		submissions = append(submissions, &models.ScavengerSubmission{
			AssignmentID:   a.ID,
			HuntID:         hunt.ID,
			TranscriptID:   transcript.ID,
			TranscriptName: transcript.Name,
			WorkspaceID:    transcript.WorkspaceID,
			AnnotatorID:    a.AnnotatorID,
			AnnotatorName:  annotator.Name,
			AnnotatorEmail: annotator.Email,
			Completed:      a.Completed,
			CompletedAt:    a.CompletedAt,
			AnswerCount:    count,
		})
	}
	sort.Slice(submissions, func(i, j int) bool {
		a, b := submissions[i], submissions[j]
		if c := strings.Compare(a.TranscriptName, b.TranscriptName); c != 0 {
			return c < 0
		}
		if c := strings.Compare(a.AnnotatorName, b.AnnotatorName); c != 0 {
			return c < 0
		}
		return a.AssignmentID < b.AssignmentID
	})
	return submissions, nil
}

func (r *Repository) GetAnswers(ctx context.Context, assignmentID int64) ([]*models.ScavengerAnswer, error) {
	defer r.lock()()
	answers := []*models.ScavengerAnswer{}
	for _, a := range r.st.answers {
		if a.AssignmentID == assignmentID {
			a := a
			a.LineIDs = r.sortByLine(r.st.answerLines[a.ID])
			answers = append(answers, &a)
		}
	}
	sort.Slice(answers, func(i, j int) bool { return answers[i].ID < answers[j].ID })
	return answers, nil
}

func (r *Repository) FindAnswer(ctx context.Context, assignmentID, questionID int64) (*models.ScavengerAnswer, error) {
	defer r.lock()()
	for _, a := range r.st.answers {
		if a.AssignmentID == assignmentID && a.QuestionID == questionID {
			return &a, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *Repository) UpsertAnswer(ctx context.Context, answer *models.ScavengerAnswer) error {
	defer r.lock()()
	if err := r.failure("UpsertAnswer"); err != nil {
		return err
	}

	if answer.ID == 0 {
		for _, a := range r.st.answers {
			if a.AssignmentID == answer.AssignmentID && a.QuestionID == answer.QuestionID {
				answer.ID = a.ID
				break
			}
		}
	}
	if answer.ID == 0 {
		answer.ID = r.nextID()
	}

	stored := *answer
	stored.LineIDs = nil
	r.st.answers[answer.ID] = stored
	return nil
}

func (r *Repository) DeleteAnswer(ctx context.Context, answerID int64) error {
	defer r.lock()()
	if err := r.failure("DeleteAnswer"); err != nil {
		return err
	}
	delete(r.st.answers, answerID)
	delete(r.st.answerLines, answerID)
	return nil
}

func (r *Repository) ReplaceAnswerLines(ctx context.Context, answerID int64, lineIDs []int64) error {
	defer r.lock()()
	if err := r.failure("ReplaceAnswerLines"); err != nil {
		return err
	}
	seen := map[int64]bool{}
	for _, id := range lineIDs {
		if seen[id] {
			return ErrDuplicate
		}
		seen[id] = true
	}
	r.st.answerLines[answerID] = append([]int64{}, lineIDs...)
	return nil
}

// SeedAnswerLineRows appends raw join rows without the uniqueness check, reproducing
// legacy data where the same line is linked more than once.
func (r *Repository) SeedAnswerLineRows(answerID int64, lineIDs ...int64) {
	defer r.lock()()
	r.st.answerLines[answerID] = append(r.st.answerLines[answerID], lineIDs...)
}

func (r *Repository) GetAnswerLineRows(ctx context.Context, answerID int64) ([]*models.Line, error) {
	defer r.lock()()
	lines := []*models.Line{}
	for _, id := range r.sortByLine(r.st.answerLines[answerID]) {
		if l, ok := r.st.lines[id]; ok {
			l := l
			lines = append(lines, &l)
		}
	}
	return lines, nil
}
