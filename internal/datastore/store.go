package datastore

import (
	"context"

	"annotate/internal/interfaces"

	"github.com/uptrace/bun"
)

// Store implements interfaces.Repository on top of bun.
type Store struct {
	root *bun.DB
	db   bun.IDB
}

var _ interfaces.Repository = (*Store)(nil)

func NewStore(db *bun.DB) *Store {
	return &Store{root: db, db: db}
}

func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, repo interfaces.Repository) error) error {
	return s.root.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &Store{root: s.root, db: tx})
	})
}

// CreateTables creates every table and index in dependency order.
func CreateTables(ctx context.Context, db *bun.DB) error {
	steps := []func(context.Context, *bun.DB) error{
		CreateTableWorkspace,
		CreateTableUser,
		CreateTableTranscript,
		CreateTableAssignment,
		CreateTableNote,
		CreateTableLineFlag,
		CreateTableScavenger,
	}

	for _, step := range steps {
		if err := step(ctx, db); err != nil {
			return err
		}
	}

	return nil
}
