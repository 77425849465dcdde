package repository

import (
	"authgate/internal/common"
	"authgate/internal/domain/model"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memoryUserRepository keeps users in process memory. Used when no
// database is configured and in tests.
type memoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]model.User
}

func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{users: make(map[string]model.User)}
}

func (r *memoryUserRepository) ExistsByUsername(_ context.Context, username string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.users[username]
	return ok, nil
}

func (r *memoryUserRepository) FindByUsername(_ context.Context, username string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[username]
	if !ok {
		return nil, common.ErrNotFound
	}
	return copyUser(u), nil
}

func (r *memoryUserRepository) Save(_ context.Context, user *model.User) (*model.User, error) {
	if err := validateRoles(user.Roles); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.Username]; ok {
		return nil, common.ErrDuplicateUser
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = time.Now().UTC()
	r.users[user.Username] = *copyUser(*user)
	return user, nil
}

func copyUser(u model.User) *model.User {
	u.Roles = slices.Clone(u.Roles)
	return &u
}
