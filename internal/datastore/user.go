package datastore

import (
	"context"

	"annotate/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableWorkspace(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.Workspace)(nil)).IfNotExists().Exec(ctx)
	return err
}

func CreateTableUser(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.User)(nil)).IfNotExists().
		ForeignKey(`("workspace_id") REFERENCES "workspace" ("id") ON DELETE CASCADE`).
		Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.User)(nil)).Index("index_user_clerk_id").Unique().IfNotExists().Column("clerk_id").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.User)(nil)).Index("index_user_workspace_id").IfNotExists().Column("workspace_id").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func (s *Store) CreateWorkspace(ctx context.Context, workspace *models.Workspace) error {
	_, err := s.db.NewInsert().Model(workspace).Returning("*").Exec(ctx)
	return err
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	_, err := s.db.NewInsert().Model(user).Returning("*").Exec(ctx)
	return err
}

func (s *Store) FindUserByClerkID(ctx context.Context, clerkID string) (*models.User, error) {
	var user models.User
	err := s.db.NewSelect().Model(&user).Where("clerk_id = ?", clerkID).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) FindUserByID(ctx context.Context, userID int64) (*models.User, error) {
	var user models.User
	err := s.db.NewSelect().Model(&user).Where("id = ?", userID).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
