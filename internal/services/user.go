package services

import (
	"context"
	"errors"

	"github.com/clikanban/kanban/internal/apperr"
	"github.com/clikanban/kanban/internal/store"
	"github.com/clikanban/kanban/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	ListByRole(ctx context.Context, role types.Role) ([]types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Delete(ctx context.Context, id string) error
}

// UserService encapsulates account lookups.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) GetByID(ctx context.Context, id string) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.User{}, userLookupError(err, id)
	}
	return user, nil
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (types.User, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return types.User{}, userLookupError(err, username)
	}
	return user, nil
}

func userLookupError(err error, who string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("user '%s' not found", who)
	}
	return apperr.Internal(err, "load user")
}
