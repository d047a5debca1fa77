package services

import (
	"context"
	"testing"

	"github.com/samber/do"
	"github.com/stretchr/testify/require"

	"annotate/internal/datastore/inmem"
	"annotate/internal/interfaces"
	"annotate/internal/models"
	"annotate/internal/pkg/caching"
	"annotate/internal/pkg/limiter"
	"annotate/internal/pkg/locking"
	"annotate/internal/pkg/objectstore"
)

type fixture struct {
	ctx       context.Context
	container *do.Injector
	repo      *inmem.Repository
	store     *objectstore.Memory
	config    *Config

	workspace *models.Workspace
	admin     *models.User
	annotator *models.User
	outsider  *models.User

	transcript *models.Transcript
	lines      []*models.Line
	other      *models.Transcript
	otherLines []*models.Line

	assignment *models.AnnotationAssignment
	hunt       *models.ScavengerHunt
	questions  []*models.ScavengerQuestion
}

func newContainer(repo interfaces.Repository, store interfaces.ObjectStore, config *Config, lim interfaces.Limiter) *do.Injector {
	injector := do.New()
	do.ProvideValue[interfaces.Repository](injector, repo)
	do.ProvideValue[caching.Cache](injector, caching.Noop{})
	do.ProvideValue[interfaces.Locker](injector, locking.NewLocal())
	do.ProvideValue[interfaces.Limiter](injector, lim)
	do.ProvideValue[interfaces.ObjectStore](injector, store)
	do.ProvideValue(injector, config)
	return injector
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	repo := inmem.New()
	store := objectstore.NewMemory()
	config := DefaultConfig()

	f := &fixture{
		ctx:       ctx,
		container: newContainer(repo, store, config, limiter.Unlimited{}),
		repo:      repo,
		store:     store,
		config:    config,
	}

	f.workspace = &models.Workspace{Name: "Lincoln Elementary"}
	require.NoError(t, repo.CreateWorkspace(ctx, f.workspace))
	otherWorkspace := &models.Workspace{Name: "Other"}
	require.NoError(t, repo.CreateWorkspace(ctx, otherWorkspace))

	f.admin = &models.User{ClerkID: "user_admin", Name: "Ada", Email: "ada@example.com", Role: models.RoleAdmin, WorkspaceID: f.workspace.ID}
	f.annotator = &models.User{ClerkID: "user_annotator", Name: "Ben", Email: "ben@example.com", Role: models.RoleAnnotator, WorkspaceID: f.workspace.ID}
	f.outsider = &models.User{ClerkID: "user_outsider", Name: "Cy", Email: "cy@example.com", Role: models.RoleAdmin, WorkspaceID: otherWorkspace.ID}
	for _, u := range []*models.User{f.admin, f.annotator, f.outsider} {
		require.NoError(t, repo.CreateUser(ctx, u))
	}

	f.transcript, f.lines = f.addTranscript(t, "Fractions lesson", 3)
	f.other, f.otherLines = f.addTranscript(t, "Reading lesson", 2)

	f.assignment = &models.AnnotationAssignment{TranscriptID: f.transcript.ID, AnnotatorID: f.annotator.ID}
	require.NoError(t, repo.CreateAssignment(ctx, f.assignment))
	require.NoError(t, repo.CreateAssignment(ctx, &models.AnnotationAssignment{TranscriptID: f.other.ID, AnnotatorID: f.annotator.ID}))

	f.hunt = &models.ScavengerHunt{TranscriptID: f.transcript.ID}
	require.NoError(t, repo.CreateHunt(ctx, f.hunt))
	// inserted out of order on purpose
	f.questions = []*models.ScavengerQuestion{
		{HuntID: f.hunt.ID, Question: "Where does the teacher ask why?", OrderIndex: 1},
		{HuntID: f.hunt.ID, Question: "Where does a student explain?", OrderIndex: 0},
	}
	require.NoError(t, repo.CreateQuestions(ctx, f.questions))
	return f
}

func (f *fixture) addTranscript(t *testing.T, name string, n int) (*models.Transcript, []*models.Line) {
	t.Helper()
	transcript := &models.Transcript{WorkspaceID: f.workspace.ID, Name: name, CreatedBy: f.admin.ID}
	require.NoError(t, f.repo.CreateTranscript(f.ctx, transcript))

	lines := []*models.Line{}
	for i := 1; i <= n; i++ {
		speaker := "Teacher"
		if i%2 == 0 {
			speaker = "Student"
		}
		lines = append(lines, &models.Line{TranscriptID: transcript.ID, Line: i, Speaker: speaker, Utterance: name + " utterance"})
	}
	require.NoError(t, f.repo.CreateLines(f.ctx, lines))
	return transcript, lines
}

func (f *fixture) scavenger(t *testing.T) *ServiceScavenger {
	t.Helper()
	s, err := NewServiceScavenger(f.container)
	require.NoError(t, err)
	return s
}

func ptr[T any](v T) *T {
	return &v
}

func questionOf(state *HuntState, questionID int64) *HuntQuestion {
	for _, q := range state.Hunt.Questions {
		if q.ID == questionID {
			return q
		}
	}
	return nil
}
