package models

import (
	"time"

	"github.com/uptrace/bun"
)

// AnnotationAssignment pairs one annotator with one transcript.
type AnnotationAssignment struct {
	bun.BaseModel         `bun:"table:annotation_assignment"`
	ID                    int64      `bun:"id,pk,autoincrement" json:"id"`
	TranscriptID          int64      `bun:"transcript_id,notnull" json:"transcript_id"`
	AnnotatorID           int64      `bun:"annotator_id,notnull" json:"annotator_id"`
	LLMAnnotationsVisible bool       `bun:"llm_annotations_visible,notnull,default:false" json:"llm_annotations_visible"`
	Completed             bool       `bun:"completed,notnull,default:false" json:"completed"`
	CompletedAt           *time.Time `bun:"completed_at" json:"completed_at"`
	CreatedAt             time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`

	Transcript *Transcript `bun:"-" json:"transcript,omitempty"`
}

type Note struct {
	bun.BaseModel `bun:"table:note"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	AssignmentID  int64     `bun:"assignment_id,notnull" json:"assignment_id"`
	Content       string    `bun:"content" json:"content"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`

	LineIDs []int64 `bun:"-" json:"line_ids"`
}

type NoteLine struct {
	bun.BaseModel `bun:"table:note_line"`
	NoteID        int64 `bun:"note_id,pk"`
	LineID        int64 `bun:"line_id,pk"`
}

type LineFlag struct {
	bun.BaseModel `bun:"table:line_flag"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	AssignmentID  int64     `bun:"assignment_id,notnull" json:"assignment_id"`
	LineID        int64     `bun:"line_id,notnull" json:"line_id"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}
