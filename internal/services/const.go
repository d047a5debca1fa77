package services

import (
	"errors"
	"fmt"
	"time"
)

var ErrScavengerLock = errors.New("scavenger assignment locked")

const (
	CACHE_TTL_1_MIN  = 1 * time.Minute
	CACHE_TTL_5_MINS = 5 * time.Minute
	CACHE_TTL_1_HOUR = 1 * time.Hour

	DEFAULT_VIDEO_URL_TTL          = 1 * time.Hour
	DEFAULT_SAVE_RATE_PER_MINUTE   = 120
	SCAVENGER_EXPORT_CONTENT_TYPE  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	TRANSCRIPT_VIDEO_OBJECT_PREFIX = "transcripts"
)

func DBKeyTranscriptLineIDs(transcriptID int64) string {
	return fmt.Sprintf("transcript:%d:line_ids", transcriptID)
}

func DBKeyHuntQuestions(huntID int64) string {
	return fmt.Sprintf("scavenger_hunt:%d:questions", huntID)
}

func LockKeyScavengerAssignment(huntID int64, annotatorID int64) string {
	return fmt.Sprintf("lock:scavenger:%d:%d", huntID, annotatorID)
}

func LimitKeySaveAnswer(userID int64) string {
	return fmt.Sprintf("limit:scavenger_answer:%d", userID)
}

func VideoObjectName(transcriptID int64, id string, ext string) string {
	return fmt.Sprintf("%s/%d/%s%s", TRANSCRIPT_VIDEO_OBJECT_PREFIX, transcriptID, id, ext)
}
