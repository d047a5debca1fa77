// Package inmem is an in-memory interfaces.Repository used by tests and local runs.
package inmem

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"annotate/internal/interfaces"
	"annotate/internal/models"
)

var ErrDuplicate = errors.New("inmem: duplicate key value violates unique constraint")

type state struct {
	seq int64

	workspaces   map[int64]models.Workspace
	users        map[int64]models.User
	transcripts  map[int64]models.Transcript
	segments     map[int64]models.Segment
	lines        map[int64]models.Line
	llm          map[int64]models.LLMAnnotation
	assignments  map[int64]models.AnnotationAssignment
	notes        map[int64]models.Note
	noteLines    map[int64][]int64
	flags        map[int64]models.LineFlag
	hunts        map[int64]models.ScavengerHunt
	questions    map[int64]models.ScavengerQuestion
	sAssignments map[int64]models.ScavengerAssignment
	answers      map[int64]models.ScavengerAnswer
	answerLines  map[int64][]int64

	failures map[string]error
}

func newState() *state {
	return &state{
		workspaces:   map[int64]models.Workspace{},
		users:        map[int64]models.User{},
		transcripts:  map[int64]models.Transcript{},
		segments:     map[int64]models.Segment{},
		lines:        map[int64]models.Line{},
		llm:          map[int64]models.LLMAnnotation{},
		assignments:  map[int64]models.AnnotationAssignment{},
		notes:        map[int64]models.Note{},
		noteLines:    map[int64][]int64{},
		flags:        map[int64]models.LineFlag{},
		hunts:        map[int64]models.ScavengerHunt{},
		questions:    map[int64]models.ScavengerQuestion{},
		sAssignments: map[int64]models.ScavengerAssignment{},
		answers:      map[int64]models.ScavengerAnswer{},
		answerLines:  map[int64][]int64{},
		failures:     map[string]error{},
	}
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyLinks(m map[int64][]int64) map[int64][]int64 {
	out := make(map[int64][]int64, len(m))
	for k, v := range m {
		out[k] = append([]int64(nil), v...)
	}
	return out
}

func (st *state) clone() *state {
	return &state{
		seq:          st.seq,
		workspaces:   copyMap(st.workspaces),
		users:        copyMap(st.users),
		transcripts:  copyMap(st.transcripts),
		segments:     copyMap(st.segments),
		lines:        copyMap(st.lines),
		llm:          copyMap(st.llm),
		assignments:  copyMap(st.assignments),
		notes:        copyMap(st.notes),
		noteLines:    copyLinks(st.noteLines),
		flags:        copyMap(st.flags),
		hunts:        copyMap(st.hunts),
		questions:    copyMap(st.questions),
		sAssignments: copyMap(st.sAssignments),
		answers:      copyMap(st.answers),
		answerLines:  copyLinks(st.answerLines),
		failures:     st.failures,
	}
}

type Repository struct {
	mu   *sync.Mutex
	st   *state
	inTx bool
}

var _ interfaces.Repository = (*Repository)(nil)

func New() *Repository {
	return &Repository{mu: &sync.Mutex{}, st: newState()}
}

func (r *Repository) lock() func() {
	if r.inTx {
		return func() {}
	}
	r.mu.Lock()
	return r.mu.Unlock
}

func (r *Repository) nextID() int64 {
	r.st.seq++
	return r.st.seq
}

// Fail makes the next call of method return err.
func (r *Repository) Fail(method string, err error) {
	defer r.lock()()
	r.st.failures[method] = err
}

func (r *Repository) failure(method string) error {
	err, ok := r.st.failures[method]
	if !ok {
		return nil
	}
	delete(r.st.failures, method)
	return err
}

func (r *Repository) RunInTx(ctx context.Context, fn func(ctx context.Context, repo interfaces.Repository) error) error {
	if r.inTx {
		return fn(ctx, r)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := r.st.clone()
	err := fn(ctx, &Repository{mu: r.mu, st: r.st, inTx: true})
	if err != nil {
		*r.st = *snapshot
	}
	return err
}

func (r *Repository) CreateWorkspace(ctx context.Context, workspace *models.Workspace) error {
	defer r.lock()()
	workspace.ID = r.nextID()
	if workspace.CreatedAt.IsZero() {
		workspace.CreatedAt = time.Now()
	}
	r.st.workspaces[workspace.ID] = *workspace
	return nil
}

func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	defer r.lock()()
	for _, u := range r.st.users {
		if u.ClerkID == user.ClerkID {
			return ErrDuplicate
		}
	}
	user.ID = r.nextID()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	r.st.users[user.ID] = *user
	return nil
}

func (r *Repository) FindUserByClerkID(ctx context.Context, clerkID string) (*models.User, error) {
	defer r.lock()()
	for _, u := range r.st.users {
		if u.ClerkID == clerkID {
			return &u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *Repository) FindUserByID(ctx context.Context, userID int64) (*models.User, error) {
	defer r.lock()()
	u, ok := r.st.users[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &u, nil
}
