package datastore

import (
	"context"

	"annotate/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableScavenger(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.ScavengerHunt)(nil)).IfNotExists().
		ForeignKey(`("transcript_id") REFERENCES "transcript" ("id") ON DELETE CASCADE`).
		Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.ScavengerHunt)(nil)).Index("index_scavenger_hunt_transcript_id").Unique().IfNotExists().Column("transcript_id").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateTable().Model((*models.ScavengerQuestion)(nil)).IfNotExists().
		ForeignKey(`("hunt_id") REFERENCES "scavenger_hunt" ("id") ON DELETE CASCADE`).
		Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.ScavengerQuestion)(nil)).Index("index_scavenger_question_hunt_order").Unique().IfNotExists().Column("hunt_id", "order_index").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateTable().Model((*models.ScavengerAssignment)(nil)).IfNotExists().
		ForeignKey(`("hunt_id") REFERENCES "scavenger_hunt" ("id") ON DELETE CASCADE`).
		ForeignKey(`("annotator_id") REFERENCES "user" ("id") ON DELETE CASCADE`).
		Exec(ctx)
	if err != nil {
		return err
	}

	// one assignment per (hunt, annotator), so concurrent first writes converge on one row
	_, err = db.NewCreateIndex().Model((*models.ScavengerAssignment)(nil)).Index("index_scavenger_assignment_hunt_annotator").Unique().IfNotExists().Column("hunt_id", "annotator_id").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateTable().Model((*models.ScavengerAnswer)(nil)).IfNotExists().
		ForeignKey(`("assignment_id") REFERENCES "scavenger_assignment" ("id") ON DELETE CASCADE`).
		ForeignKey(`("question_id") REFERENCES "scavenger_question" ("id") ON DELETE CASCADE`).
		Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.ScavengerAnswer)(nil)).Index("index_scavenger_answer_assignment_question").Unique().IfNotExists().Column("assignment_id", "question_id").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateTable().Model((*models.ScavengerAnswerLine)(nil)).IfNotExists().
		ForeignKey(`("answer_id") REFERENCES "scavenger_answer" ("id") ON DELETE CASCADE`).
		ForeignKey(`("line_id") REFERENCES "line" ("line_id") ON DELETE CASCADE`).
		Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func (s *Store) CreateHunt(ctx context.Context, hunt *models.ScavengerHunt) error {
	_, err := s.db.NewInsert().Model(hunt).Returning("*").Exec(ctx)
	return err
}

func (s *Store) GetHuntByTranscript(ctx context.Context, transcriptID int64) (*models.ScavengerHunt, error) {
	var hunt models.ScavengerHunt
	err := s.db.NewSelect().Model(&hunt).Where("transcript_id = ?", transcriptID).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &hunt, nil
}

func (s *Store) GetHuntByID(ctx context.Context, huntID int64) (*models.ScavengerHunt, error) {
	var hunt models.ScavengerHunt
	err := s.db.NewSelect().Model(&hunt).Where("id = ?", huntID).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &hunt, nil
}

func (s *Store) CreateQuestions(ctx context.Context, questions []*models.ScavengerQuestion) error {
	if len(questions) == 0 {
		return nil
	}
	_, err := s.db.NewInsert().Model(&questions).Returning("*").Exec(ctx)
	return err
}

func (s *Store) GetQuestions(ctx context.Context, huntID int64) ([]*models.ScavengerQuestion, error) {
	var questions []*models.ScavengerQuestion
	err := s.db.NewSelect().Model(&questions).Where("hunt_id = ?", huntID).Order("order_index ASC").Scan(ctx)
	if err != nil {
		return nil, err
	}
	return questions, nil
}

func (s *Store) FindScavengerAssignment(ctx context.Context, huntID, annotatorID int64) (*models.ScavengerAssignment, error) {
	var assignment models.ScavengerAssignment
	err := s.db.NewSelect().Model(&assignment).
		Where("hunt_id = ?", huntID).
		Where("annotator_id = ?", annotatorID).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (s *Store) GetScavengerAssignmentByID(ctx context.Context, assignmentID int64) (*models.ScavengerAssignment, error) {
	var assignment models.ScavengerAssignment
	err := s.db.NewSelect().Model(&assignment).Where("id = ?", assignmentID).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (s *Store) insertScavengerAssignmentQuery(assignment *models.ScavengerAssignment) *bun.InsertQuery {
	return s.db.NewInsert().Model(assignment).
		On("CONFLICT (hunt_id, annotator_id) DO NOTHING").
		Returning("NULL")
}

func (s *Store) FindOrCreateScavengerAssignment(ctx context.Context, huntID, annotatorID int64) (*models.ScavengerAssignment, error) {
	assignment := &models.ScavengerAssignment{HuntID: huntID, AnnotatorID: annotatorID}
	_, err := s.insertScavengerAssignmentQuery(assignment).Exec(ctx)
	if err != nil {
		return nil, err
	}

	return s.FindScavengerAssignment(ctx, huntID, annotatorID)
}

func (s *Store) UpdateScavengerCompletion(ctx context.Context, assignment *models.ScavengerAssignment) error {
	_, err := s.db.NewUpdate().Model(assignment).Column("completed", "completed_at").WherePK().Exec(ctx)
	return err
}

func (s *Store) ListScavengerSubmissions(ctx context.Context, workspaceID int64) ([]*models.ScavengerSubmission, error) {
	var submissions []*models.ScavengerSubmission
	err := s.db.NewSelect().
		TableExpr("scavenger_assignment AS sa").
		ColumnExpr("sa.id AS assignment_id, sa.hunt_id, h.transcript_id, t.name AS transcript_name, t.workspace_id").
		ColumnExpr("sa.annotator_id, u.name AS annotator_name, u.email AS annotator_email, sa.completed, sa.completed_at").
		ColumnExpr("(SELECT count(*) FROM scavenger_answer AS a WHERE a.assignment_id = sa.id) AS answer_count").
		Join("JOIN scavenger_hunt AS h ON h.id = sa.hunt_id").
		Join("JOIN transcript AS t ON t.id = h.transcript_id").
		Join(`JOIN "user" AS u ON u.id = sa.annotator_id`).
		Where("t.workspace_id = ?", workspaceID).
		OrderExpr("t.name ASC, u.name ASC, sa.id ASC").
		Scan(ctx, &submissions)
	if err != nil {
		return nil, err
	}
	return submissions, nil
}

func (s *Store) GetAnswers(ctx context.Context, assignmentID int64) ([]*models.ScavengerAnswer, error) {
	var answers []*models.ScavengerAnswer
	err := s.db.NewSelect().Model(&answers).Where("assignment_id = ?", assignmentID).Scan(ctx)
	if err != nil {
		return nil, err
	}

	if len(answers) == 0 {
		return answers, nil
	}

	ids := make([]int64, 0, len(answers))
	byID := make(map[int64]*models.ScavengerAnswer, len(answers))
	for _, answer := range answers {
		answer.LineIDs = []int64{}
		ids = append(ids, answer.ID)
		byID[answer.ID] = answer
	}

	var links []*models.ScavengerAnswerLine
	err = s.answerLinksQuery(&links, ids).Scan(ctx)
	if err != nil {
		return nil, err
	}

	for _, link := range links {
		byID[link.AnswerID].LineIDs = append(byID[link.AnswerID].LineIDs, link.LineID)
	}

	return answers, nil
}

// answerLinksQuery selects the links of answerIDs ordered by line ordinal within each answer.
func (s *Store) answerLinksQuery(links *[]*models.ScavengerAnswerLine, answerIDs []int64) *bun.SelectQuery {
	return s.db.NewSelect().Model(links).
		Join("JOIN line AS l ON l.line_id = ?TableAlias.line_id").
		Where("?TableAlias.answer_id IN (?)", bun.In(answerIDs)).
		OrderExpr("?TableAlias.answer_id ASC, l.line ASC")
}

func (s *Store) FindAnswer(ctx context.Context, assignmentID, questionID int64) (*models.ScavengerAnswer, error) {
	var answer models.ScavengerAnswer
	err := s.db.NewSelect().Model(&answer).
		Where("assignment_id = ?", assignmentID).
		Where("question_id = ?", questionID).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &answer, nil
}

// UpsertAnswer updates by primary key when the answer is known, otherwise inserts
// and falls back to updating the row already holding (assignment_id, question_id).
func (s *Store) UpsertAnswer(ctx context.Context, answer *models.ScavengerAnswer) error {
	if answer.ID > 0 {
		_, err := s.db.NewUpdate().Model(answer).Column("answer", "updated_at").WherePK().Exec(ctx)
		return err
	}

	_, err := s.upsertAnswerQuery(answer).Exec(ctx)
	return err
}

func (s *Store) upsertAnswerQuery(answer *models.ScavengerAnswer) *bun.InsertQuery {
	return s.db.NewInsert().Model(answer).
		On("CONFLICT (assignment_id, question_id) DO UPDATE").
		Set("answer = EXCLUDED.answer").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("id")
}

func (s *Store) DeleteAnswer(ctx context.Context, answerID int64) error {
	_, err := s.db.NewDelete().Model((*models.ScavengerAnswerLine)(nil)).Where("answer_id = ?", answerID).Exec(ctx)
	if err != nil {
		return err
	}
	_, err = s.db.NewDelete().Model((*models.ScavengerAnswer)(nil)).Where("id = ?", answerID).Exec(ctx)
	return err
}

func (s *Store) ReplaceAnswerLines(ctx context.Context, answerID int64, lineIDs []int64) error {
	_, err := s.db.NewDelete().Model((*models.ScavengerAnswerLine)(nil)).Where("answer_id = ?", answerID).Exec(ctx)
	if err != nil {
		return err
	}

	if len(lineIDs) == 0 {
		return nil
	}

	links := make([]*models.ScavengerAnswerLine, 0, len(lineIDs))
	for _, lineID := range lineIDs {
		links = append(links, &models.ScavengerAnswerLine{AnswerID: answerID, LineID: lineID})
	}
	_, err = s.db.NewInsert().Model(&links).Exec(ctx)
	return err
}

func (s *Store) GetAnswerLineRows(ctx context.Context, answerID int64) ([]*models.Line, error) {
	var lines []*models.Line
	err := s.db.NewSelect().Model(&lines).
		Join("JOIN scavenger_answer_line AS sal ON sal.line_id = ?TableAlias.line_id").
		Where("sal.answer_id = ?", answerID).
		OrderExpr("?TableAlias.line ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return lines, nil
}
