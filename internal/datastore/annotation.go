package datastore

import (
	"context"

	"annotate/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableNote(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.Note)(nil)).IfNotExists().
		ForeignKey(`("assignment_id") REFERENCES "annotation_assignment" ("id") ON DELETE CASCADE`).
		Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Note)(nil)).Index("index_note_assignment_id").IfNotExists().Column("assignment_id").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateTable().Model((*models.NoteLine)(nil)).IfNotExists().
		ForeignKey(`("note_id") REFERENCES "note" ("id") ON DELETE CASCADE`).
		ForeignKey(`("line_id") REFERENCES "line" ("line_id") ON DELETE CASCADE`).
		Exec(ctx)
	return err
}

func CreateTableLineFlag(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.LineFlag)(nil)).IfNotExists().
		ForeignKey(`("assignment_id") REFERENCES "annotation_assignment" ("id") ON DELETE CASCADE`).
		ForeignKey(`("line_id") REFERENCES "line" ("line_id") ON DELETE CASCADE`).
		Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.LineFlag)(nil)).Index("index_line_flag_assignment_line").Unique().IfNotExists().Column("assignment_id", "line_id").Exec(ctx)
	return err
}

func (s *Store) ListNotes(ctx context.Context, assignmentID int64) ([]*models.Note, error) {
	var notes []*models.Note
	err := s.db.NewSelect().Model(&notes).Where("assignment_id = ?", assignmentID).Order("created_at ASC", "id ASC").Scan(ctx)
	if err != nil {
		return nil, err
	}

	if len(notes) == 0 {
		return notes, nil
	}

	ids := make([]int64, 0, len(notes))
	byID := make(map[int64]*models.Note, len(notes))
	for _, note := range notes {
		note.LineIDs = []int64{}
		ids = append(ids, note.ID)
		byID[note.ID] = note
	}

	var links []*models.NoteLine
	err = s.db.NewSelect().Model(&links).
		Join("JOIN line AS l ON l.line_id = ?TableAlias.line_id").
		Where("?TableAlias.note_id IN (?)", bun.In(ids)).
		OrderExpr("?TableAlias.note_id ASC, l.line ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	for _, link := range links {
		byID[link.NoteID].LineIDs = append(byID[link.NoteID].LineIDs, link.LineID)
	}

	return notes, nil
}

func (s *Store) GetNote(ctx context.Context, noteID int64) (*models.Note, error) {
	var note models.Note
	err := s.db.NewSelect().Model(&note).Where("id = ?", noteID).Scan(ctx)
	if err != nil {
		return nil, err
	}

	note.LineIDs = []int64{}
	err = s.db.NewSelect().Model((*models.NoteLine)(nil)).
		Column("note_line.line_id").
		Join("JOIN line AS l ON l.line_id = note_line.line_id").
		Where("note_line.note_id = ?", noteID).
		OrderExpr("l.line ASC").
		Scan(ctx, &note.LineIDs)
	if err != nil {
		return nil, err
	}

	return &note, nil
}

func (s *Store) CreateNote(ctx context.Context, note *models.Note) error {
	_, err := s.db.NewInsert().Model(note).Returning("*").Exec(ctx)
	return err
}

func (s *Store) UpdateNote(ctx context.Context, note *models.Note) error {
	_, err := s.db.NewUpdate().Model(note).Column("content", "updated_at").WherePK().Exec(ctx)
	return err
}

func (s *Store) DeleteNote(ctx context.Context, noteID int64) error {
	_, err := s.db.NewDelete().Model((*models.NoteLine)(nil)).Where("note_id = ?", noteID).Exec(ctx)
	if err != nil {
		return err
	}
	_, err = s.db.NewDelete().Model((*models.Note)(nil)).Where("id = ?", noteID).Exec(ctx)
	return err
}

func (s *Store) ReplaceNoteLines(ctx context.Context, noteID int64, lineIDs []int64) error {
	_, err := s.db.NewDelete().Model((*models.NoteLine)(nil)).Where("note_id = ?", noteID).Exec(ctx)
	if err != nil {
		return err
	}

	if len(lineIDs) == 0 {
		return nil
	}

	links := make([]*models.NoteLine, 0, len(lineIDs))
	for _, lineID := range lineIDs {
		links = append(links, &models.NoteLine{NoteID: noteID, LineID: lineID})
	}
	_, err = s.db.NewInsert().Model(&links).Exec(ctx)
	return err
}

func (s *Store) ListLineFlags(ctx context.Context, assignmentID int64) ([]int64, error) {
	var ids []int64
	err := s.db.NewSelect().Model((*models.LineFlag)(nil)).Column("line_id").Where("assignment_id = ?", assignmentID).Order("line_id ASC").Scan(ctx, &ids)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Store) AddLineFlag(ctx context.Context, assignmentID, lineID int64) error {
	flag := &models.LineFlag{AssignmentID: assignmentID, LineID: lineID}
	_, err := s.db.NewInsert().Model(flag).
		On("CONFLICT (assignment_id, line_id) DO NOTHING").
		Returning("NULL").
		Exec(ctx)
	return err
}

func (s *Store) RemoveLineFlag(ctx context.Context, assignmentID, lineID int64) error {
	_, err := s.db.NewDelete().Model((*models.LineFlag)(nil)).
		Where("assignment_id = ?", assignmentID).
		Where("line_id = ?", lineID).
		Exec(ctx)
	return err
}
