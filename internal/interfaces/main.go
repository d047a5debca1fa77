package interfaces

import (
	"context"
	"io"
	"time"

	"annotate/internal/models"

	"github.com/go-redis/redis_rate/v10"
)

type Limiter interface {
	Allow(ctx context.Context, key string, limit redis_rate.Limit) error
}

// Locker hands out named mutexes; the returned func releases the lock.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

type ObjectStore interface {
	Upload(ctx context.Context, name string, contentType string, r io.Reader) (int64, error)
	Delete(ctx context.Context, name string) error
	SignedURL(ctx context.Context, name string, ttl time.Duration) (string, error)
}

// Lookups return sql.ErrNoRows when a single row is absent.

type UserRepository interface {
	CreateWorkspace(ctx context.Context, workspace *models.Workspace) error
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByClerkID(ctx context.Context, clerkID string) (*models.User, error)
	FindUserByID(ctx context.Context, userID int64) (*models.User, error)
}

type TranscriptRepository interface {
	CreateTranscript(ctx context.Context, transcript *models.Transcript) error
	GetTranscript(ctx context.Context, transcriptID int64) (*models.Transcript, error)
	ListTranscriptsByWorkspace(ctx context.Context, workspaceID int64) ([]*models.Transcript, error)
	UpdateTranscriptVideo(ctx context.Context, transcript *models.Transcript) error
	DeleteTranscript(ctx context.Context, transcriptID int64) error

	CreateSegments(ctx context.Context, segments []*models.Segment) error
	CreateLines(ctx context.Context, lines []*models.Line) error
	GetLines(ctx context.Context, transcriptID int64) ([]*models.Line, error)
	GetLineIDs(ctx context.Context, transcriptID int64) ([]int64, error)

	CreateLLMAnnotations(ctx context.Context, annotations []*models.LLMAnnotation) error
	GetLLMAnnotations(ctx context.Context, transcriptID int64) ([]*models.LLMAnnotation, error)
}

type AssignmentRepository interface {
	CreateAssignment(ctx context.Context, assignment *models.AnnotationAssignment) error
	GetAssignment(ctx context.Context, transcriptID, annotatorID int64) (*models.AnnotationAssignment, error)
	GetAssignmentByID(ctx context.Context, assignmentID int64) (*models.AnnotationAssignment, error)
	ListAssignmentsByAnnotator(ctx context.Context, annotatorID int64) ([]*models.AnnotationAssignment, error)
	ListAssignmentsByTranscript(ctx context.Context, transcriptID int64) ([]*models.AnnotationAssignment, error)
	UpdateAssignment(ctx context.Context, assignment *models.AnnotationAssignment) error
	DeleteAssignment(ctx context.Context, assignmentID int64) error

	ListNotes(ctx context.Context, assignmentID int64) ([]*models.Note, error)
	GetNote(ctx context.Context, noteID int64) (*models.Note, error)
	CreateNote(ctx context.Context, note *models.Note) error
	UpdateNote(ctx context.Context, note *models.Note) error
	DeleteNote(ctx context.Context, noteID int64) error
	ReplaceNoteLines(ctx context.Context, noteID int64, lineIDs []int64) error

	ListLineFlags(ctx context.Context, assignmentID int64) ([]int64, error)
	AddLineFlag(ctx context.Context, assignmentID, lineID int64) error
	RemoveLineFlag(ctx context.Context, assignmentID, lineID int64) error
}

type ScavengerRepository interface {
	CreateHunt(ctx context.Context, hunt *models.ScavengerHunt) error
	GetHuntByTranscript(ctx context.Context, transcriptID int64) (*models.ScavengerHunt, error)
	GetHuntByID(ctx context.Context, huntID int64) (*models.ScavengerHunt, error)
	CreateQuestions(ctx context.Context, questions []*models.ScavengerQuestion) error
	GetQuestions(ctx context.Context, huntID int64) ([]*models.ScavengerQuestion, error)

	FindScavengerAssignment(ctx context.Context, huntID, annotatorID int64) (*models.ScavengerAssignment, error)
	GetScavengerAssignmentByID(ctx context.Context, assignmentID int64) (*models.ScavengerAssignment, error)
	FindOrCreateScavengerAssignment(ctx context.Context, huntID, annotatorID int64) (*models.ScavengerAssignment, error)
	UpdateScavengerCompletion(ctx context.Context, assignment *models.ScavengerAssignment) error
	ListScavengerSubmissions(ctx context.Context, workspaceID int64) ([]*models.ScavengerSubmission, error)

	// GetAnswers returns the answers of an assignment with LineIDs populated.
	GetAnswers(ctx context.Context, assignmentID int64) ([]*models.ScavengerAnswer, error)
	FindAnswer(ctx context.Context, assignmentID, questionID int64) (*models.ScavengerAnswer, error)
	UpsertAnswer(ctx context.Context, answer *models.ScavengerAnswer) error
	DeleteAnswer(ctx context.Context, answerID int64) error
	ReplaceAnswerLines(ctx context.Context, answerID int64, lineIDs []int64) error
	// GetAnswerLineRows returns the raw joined lines of an answer, duplicates included.
	GetAnswerLineRows(ctx context.Context, answerID int64) ([]*models.Line, error)
}

type Repository interface {
	UserRepository
	TranscriptRepository
	AssignmentRepository
	ScavengerRepository

	// RunInTx runs fn inside one transaction; fn must only use the repository it is given.
	RunInTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error
}
