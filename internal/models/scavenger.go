package models

import (
	"time"

	"github.com/uptrace/bun"
)

// ScavengerHunt is 1:1 with a transcript.
type ScavengerHunt struct {
	bun.BaseModel `bun:"table:scavenger_hunt"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	TranscriptID  int64     `bun:"transcript_id,notnull" json:"transcript_id"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`

	Questions []*ScavengerQuestion `bun:"-" json:"questions,omitempty"`
}

type ScavengerQuestion struct {
	bun.BaseModel `bun:"table:scavenger_question"`
	ID            int64  `bun:"id,pk,autoincrement" json:"id"`
	HuntID        int64  `bun:"hunt_id,notnull" json:"hunt_id"`
	Question      string `bun:"question,notnull" json:"question"`
	OrderIndex    int    `bun:"order_index,notnull" json:"order_index"`
}

// ScavengerAssignment is created lazily on the first write of an annotator.
type ScavengerAssignment struct {
	bun.BaseModel `bun:"table:scavenger_assignment"`
	ID            int64      `bun:"id,pk,autoincrement" json:"id"`
	HuntID        int64      `bun:"hunt_id,notnull" json:"hunt_id"`
	AnnotatorID   int64      `bun:"annotator_id,notnull" json:"annotator_id"`
	Completed     bool       `bun:"completed,notnull,default:false" json:"completed"`
	CompletedAt   *time.Time `bun:"completed_at" json:"completed_at"`
	CreatedAt     time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

type ScavengerAnswer struct {
	bun.BaseModel `bun:"table:scavenger_answer"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	AssignmentID  int64     `bun:"assignment_id,notnull" json:"assignment_id"`
	QuestionID    int64     `bun:"question_id,notnull" json:"question_id"`
	Answer        *string   `bun:"answer" json:"answer"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`

	LineIDs []int64 `bun:"-" json:"line_ids"`
}

type ScavengerAnswerLine struct {
	bun.BaseModel `bun:"table:scavenger_answer_line"`
	AnswerID      int64 `bun:"answer_id,pk"`
	LineID        int64 `bun:"line_id,pk"`
}

// ScavengerSubmission is a read model joining an assignment with its annotator and transcript.
type ScavengerSubmission struct {
	AssignmentID   int64      `bun:"assignment_id" json:"assignment_id"`
	HuntID         int64      `bun:"hunt_id" json:"hunt_id"`
	TranscriptID   int64      `bun:"transcript_id" json:"transcript_id"`
	TranscriptName string     `bun:"transcript_name" json:"transcript_name"`
	WorkspaceID    int64      `bun:"workspace_id" json:"workspace_id"`
	AnnotatorID    int64      `bun:"annotator_id" json:"annotator_id"`
	AnnotatorName  string     `bun:"annotator_name" json:"annotator_name"`
	AnnotatorEmail string     `bun:"annotator_email" json:"annotator_email"`
	Completed      bool       `bun:"completed" json:"completed"`
	CompletedAt    *time.Time `bun:"completed_at" json:"completed_at"`
	AnswerCount    int        `bun:"answer_count" json:"answer_count"`
}
