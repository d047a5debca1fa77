package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/samber/do"

	"annotate/internal/interfaces"
	"annotate/internal/models"
)

type ServiceUser struct {
	container *do.Injector
	repo      interfaces.Repository
}

func NewServiceUser(container *do.Injector) (*ServiceUser, error) {
	repo, err := do.Invoke[interfaces.Repository](container)
	if err != nil {
		return nil, err
	}

	return &ServiceUser{container, repo}, nil
}

// ResolveActor maps a verified identity to the internal user row.
func (service *ServiceUser) ResolveActor(ctx context.Context, identity *models.Identity) (*models.User, error) {
	if identity == nil || identity.ExternalID == "" {
		return nil, errorx.Wrap(errors.New("unauthorized"), errorx.Authn)
	}

	user, err := service.repo.FindUserByClerkID(ctx, identity.ExternalID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errorx.Wrap(errors.New("user not found"), errorx.Authz)
	}
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (service *ServiceUser) AddWorkspace(ctx context.Context, name string) (*models.Workspace, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errorx.Wrap(errors.New("workspace name is required"), errorx.Invalid)
	}

	workspace := &models.Workspace{Name: name}
	if err := service.repo.CreateWorkspace(ctx, workspace); err != nil {
		return nil, err
	}
	return workspace, nil
}

func (service *ServiceUser) AddUser(ctx context.Context, user *models.User) error {
	user.ClerkID = strings.TrimSpace(user.ClerkID)
	if user.ClerkID == "" {
		return errorx.Wrap(errors.New("clerk id is required"), errorx.Invalid)
	}
	if !user.Role.Valid() {
		return errorx.Wrap(errors.New("invalid role"), errorx.Invalid)
	}
	if user.WorkspaceID <= 0 {
		return errorx.Wrap(errors.New("workspace is required"), errorx.Invalid)
	}

	return service.repo.CreateUser(ctx, user)
}
