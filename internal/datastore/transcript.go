package datastore

import (
	"context"

	"annotate/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableTranscript(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.Transcript)(nil)).IfNotExists().
		ForeignKey(`("workspace_id") REFERENCES "workspace" ("id") ON DELETE CASCADE`).
		Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Transcript)(nil)).Index("index_transcript_workspace_id").IfNotExists().Column("workspace_id").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateTable().Model((*models.Segment)(nil)).IfNotExists().
		ForeignKey(`("transcript_id") REFERENCES "transcript" ("id") ON DELETE CASCADE`).
		Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Segment)(nil)).Index("index_segment_transcript_order").Unique().IfNotExists().Column("transcript_id", "order_index").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateTable().Model((*models.Line)(nil)).IfNotExists().
		ForeignKey(`("transcript_id") REFERENCES "transcript" ("id") ON DELETE CASCADE`).
		ForeignKey(`("segment_id") REFERENCES "segment" ("id") ON DELETE SET NULL`).
		Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Line)(nil)).Index("index_line_transcript_line").Unique().IfNotExists().Column("transcript_id", "line").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateTable().Model((*models.LLMAnnotation)(nil)).IfNotExists().
		ForeignKey(`("transcript_id") REFERENCES "transcript" ("id") ON DELETE CASCADE`).
		ForeignKey(`("line_id") REFERENCES "line" ("line_id") ON DELETE CASCADE`).
		Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.LLMAnnotation)(nil)).Index("index_llm_annotation_transcript_id").IfNotExists().Column("transcript_id").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func (s *Store) CreateTranscript(ctx context.Context, transcript *models.Transcript) error {
	_, err := s.db.NewInsert().Model(transcript).Returning("*").Exec(ctx)
	return err
}

func (s *Store) GetTranscript(ctx context.Context, transcriptID int64) (*models.Transcript, error) {
	var transcript models.Transcript
	err := s.db.NewSelect().Model(&transcript).Where("id = ?", transcriptID).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &transcript, nil
}

func (s *Store) ListTranscriptsByWorkspace(ctx context.Context, workspaceID int64) ([]*models.Transcript, error) {
	var transcripts []*models.Transcript
	err := s.db.NewSelect().Model(&transcripts).Where("workspace_id = ?", workspaceID).Order("created_at DESC", "id DESC").Scan(ctx)
	if err != nil {
		return nil, err
	}
	return transcripts, nil
}

func (s *Store) UpdateTranscriptVideo(ctx context.Context, transcript *models.Transcript) error {
	_, err := s.db.NewUpdate().Model(transcript).
		Column("video_object", "video_content_type", "video_uploaded_at").
		WherePK().Exec(ctx)
	return err
}

// DeleteTranscript relies on the ON DELETE CASCADE foreign keys for dependent rows.
func (s *Store) DeleteTranscript(ctx context.Context, transcriptID int64) error {
	_, err := s.db.NewDelete().Model((*models.Transcript)(nil)).Where("id = ?", transcriptID).Exec(ctx)
	return err
}

func (s *Store) CreateSegments(ctx context.Context, segments []*models.Segment) error {
	if len(segments) == 0 {
		return nil
	}
	_, err := s.db.NewInsert().Model(&segments).Returning("*").Exec(ctx)
	return err
}

func (s *Store) CreateLines(ctx context.Context, lines []*models.Line) error {
	if len(lines) == 0 {
		return nil
	}
	_, err := s.db.NewInsert().Model(&lines).Returning("*").Exec(ctx)
	return err
}

func (s *Store) GetLines(ctx context.Context, transcriptID int64) ([]*models.Line, error) {
	var lines []*models.Line
	err := s.db.NewSelect().Model(&lines).Where("transcript_id = ?", transcriptID).Order("line ASC").Scan(ctx)
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (s *Store) GetLineIDs(ctx context.Context, transcriptID int64) ([]int64, error) {
	var ids []int64
	err := s.db.NewSelect().Model((*models.Line)(nil)).Column("line_id").Where("transcript_id = ?", transcriptID).Order("line ASC").Scan(ctx, &ids)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Store) CreateLLMAnnotations(ctx context.Context, annotations []*models.LLMAnnotation) error {
	if len(annotations) == 0 {
		return nil
	}
	_, err := s.db.NewInsert().Model(&annotations).Exec(ctx)
	return err
}

func (s *Store) GetLLMAnnotations(ctx context.Context, transcriptID int64) ([]*models.LLMAnnotation, error) {
	var annotations []*models.LLMAnnotation
	err := s.db.NewSelect().Model(&annotations).Where("transcript_id = ?", transcriptID).Order("line_id ASC", "id ASC").Scan(ctx)
	if err != nil {
		return nil, err
	}
	return annotations, nil
}
