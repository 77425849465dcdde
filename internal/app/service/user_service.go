package service

import (
	"authgate/internal/common"
	"authgate/internal/common/security"
	"authgate/internal/domain/model"
	"authgate/internal/domain/repository"
	"context"
	"errors"
	"fmt"
)

type UserService struct {
	userRepo repository.UserRepository
	hasher   security.PasswordHasher
}

func NewUserService(userRepo repository.UserRepository, hasher security.PasswordHasher) *UserService {
	return &UserService{userRepo: userRepo, hasher: hasher}
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// BootstrapAdmin creates an admin account when it does not exist yet.
// It reports whether a user was created.
func (s *UserService) BootstrapAdmin(ctx context.Context, username, password string) (bool, error) {
	if username == "" || password == "" {
		return false, common.ErrMissingField
	}

	exists, err := s.userRepo.ExistsByUsername(ctx, username)
	if err != nil {
		return false, fmt.Errorf("failed to check admin user: %w", err)
	}
	if exists {
		return false, nil
	}

	hashedPassword, err := s.hasher.Hash(password)
	if err != nil {
		return false, fmt.Errorf("failed to hash admin password: %w", err)
	}

	_, err = s.userRepo.Save(ctx, &model.User{
		Username:       username,
		HashedPassword: hashedPassword,
		Roles:          []string{model.RoleUser, model.RoleAdmin},
	})
	if errors.Is(err, common.ErrDuplicateUser) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create admin user: %w", err)
	}
	return true, nil
}
