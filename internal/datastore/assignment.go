package datastore

import (
	"context"

	"annotate/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableAssignment(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.AnnotationAssignment)(nil)).IfNotExists().
		ForeignKey(`("transcript_id") REFERENCES "transcript" ("id") ON DELETE CASCADE`).
		ForeignKey(`("annotator_id") REFERENCES "user" ("id") ON DELETE CASCADE`).
		Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.AnnotationAssignment)(nil)).Index("index_assignment_transcript_annotator").Unique().IfNotExists().Column("transcript_id", "annotator_id").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.AnnotationAssignment)(nil)).Index("index_assignment_annotator_id").IfNotExists().Column("annotator_id").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func (s *Store) CreateAssignment(ctx context.Context, assignment *models.AnnotationAssignment) error {
	_, err := s.db.NewInsert().Model(assignment).Returning("*").Exec(ctx)
	return err
}

func (s *Store) GetAssignment(ctx context.Context, transcriptID, annotatorID int64) (*models.AnnotationAssignment, error) {
	var assignment models.AnnotationAssignment
	err := s.db.NewSelect().Model(&assignment).
		Where("transcript_id = ?", transcriptID).
		Where("annotator_id = ?", annotatorID).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (s *Store) GetAssignmentByID(ctx context.Context, assignmentID int64) (*models.AnnotationAssignment, error) {
	var assignment models.AnnotationAssignment
	err := s.db.NewSelect().Model(&assignment).Where("id = ?", assignmentID).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (s *Store) ListAssignmentsByAnnotator(ctx context.Context, annotatorID int64) ([]*models.AnnotationAssignment, error) {
	var assignments []*models.AnnotationAssignment
	err := s.db.NewSelect().Model(&assignments).Where("annotator_id = ?", annotatorID).Order("created_at DESC", "id DESC").Scan(ctx)
	if err != nil {
		return nil, err
	}

	if len(assignments) == 0 {
		return assignments, nil
	}

	ids := make([]int64, 0, len(assignments))
	for _, assignment := range assignments {
		ids = append(ids, assignment.TranscriptID)
	}

	var transcripts []*models.Transcript
	err = s.db.NewSelect().Model(&transcripts).Where("id IN (?)", bun.In(ids)).Scan(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*models.Transcript, len(transcripts))
	for _, transcript := range transcripts {
		byID[transcript.ID] = transcript
	}
	for _, assignment := range assignments {
		assignment.Transcript = byID[assignment.TranscriptID]
	}

	return assignments, nil
}

func (s *Store) ListAssignmentsByTranscript(ctx context.Context, transcriptID int64) ([]*models.AnnotationAssignment, error) {
	var assignments []*models.AnnotationAssignment
	err := s.db.NewSelect().Model(&assignments).Where("transcript_id = ?", transcriptID).Order("id ASC").Scan(ctx)
	if err != nil {
		return nil, err
	}
	return assignments, nil
}

func (s *Store) UpdateAssignment(ctx context.Context, assignment *models.AnnotationAssignment) error {
	_, err := s.db.NewUpdate().Model(assignment).
		Column("llm_annotations_visible", "completed", "completed_at").
		WherePK().Exec(ctx)
	return err
}

func (s *Store) DeleteAssignment(ctx context.Context, assignmentID int64) error {
	_, err := s.db.NewDelete().Model((*models.AnnotationAssignment)(nil)).Where("id = ?", assignmentID).Exec(ctx)
	return err
}
