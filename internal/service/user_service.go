package service

import (
	"context"
	"fmt"

	"garage/internal/domain"
	"garage/internal/models"

	"github.com/rs/zerolog"
)

type UserService struct {
	store  domain.Store
	logger *zerolog.Logger
}

func NewUserService(store domain.Store, logger *zerolog.Logger) *UserService {
	return &UserService{store: store, logger: logger}
}

func (s *UserService) CreateUser(ctx context.Context, actor models.Principal, user *models.User) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	if user.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	switch user.Role {
	case models.RoleCustomer, models.RoleMechanic, models.RoleAdmin:
	default:
		return fmt.Errorf("%w: unknown role %q", ErrValidation, user.Role)
	}
	return s.store.CreateUser(ctx, user)
}

func (s *UserService) GetUser(ctx context.Context, actor models.Principal, id int64) (*models.User, error) {
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && actor.ID != id {
		return nil, ErrForbidden
	}
	return user, nil
}

// ListMechanics backs the assignment picker.
func (s *UserService) ListMechanics(ctx context.Context) ([]*models.User, error) {
	return s.store.ListUsersByRole(ctx, models.RoleMechanic)
}
