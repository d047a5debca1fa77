package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Transcript struct {
	bun.BaseModel    `bun:"table:transcript"`
	ID               int64      `bun:"id,pk,autoincrement" json:"id"`
	WorkspaceID      int64      `bun:"workspace_id,notnull" json:"workspace_id"`
	Name             string     `bun:"name,notnull" json:"name"`
	VideoObject      *string    `bun:"video_object" json:"-"`
	VideoContentType *string    `bun:"video_content_type" json:"video_content_type"`
	VideoUploadedAt  *time.Time `bun:"video_uploaded_at" json:"video_uploaded_at"`
	CreatedBy        int64      `bun:"created_by" json:"created_by"`
	CreatedAt        time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`

	HasVideo  bool `bun:"-" json:"has_video"`
	LineCount int  `bun:"-" json:"line_count"`
}

type Segment struct {
	bun.BaseModel `bun:"table:segment"`
	ID            int64  `bun:"id,pk,autoincrement" json:"id"`
	TranscriptID  int64  `bun:"transcript_id,notnull" json:"transcript_id"`
	Name          string `bun:"name" json:"name"`
	OrderIndex    int    `bun:"order_index,notnull" json:"order_index"`
}

// Line is immutable once imported.
type Line struct {
	bun.BaseModel `bun:"table:line"`
	ID            int64  `bun:"line_id,pk,autoincrement" json:"line_id"`
	TranscriptID  int64  `bun:"transcript_id,notnull" json:"transcript_id"`
	SegmentID     *int64 `bun:"segment_id" json:"segment_id"`
	Line          int    `bun:"line,notnull" json:"line"`
	Speaker       string `bun:"speaker" json:"speaker"`
	Utterance     string `bun:"utterance" json:"utterance"`
}

type LLMAnnotation struct {
	bun.BaseModel `bun:"table:llm_annotation"`
	ID            int64  `bun:"id,pk,autoincrement" json:"id"`
	TranscriptID  int64  `bun:"transcript_id,notnull" json:"transcript_id"`
	LineID        int64  `bun:"line_id,notnull" json:"line_id"`
	Category      string `bun:"category" json:"category"`
	Content       string `bun:"content" json:"content"`
}
