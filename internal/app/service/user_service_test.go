package service

import (
	"authgate/internal/common"
	"authgate/internal/common/security"
	"authgate/internal/domain/model"
	"authgate/internal/domain/repository"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newUserService(t *testing.T) (*UserService, repository.UserRepository, *security.BcryptHasher) {
	t.Helper()
	hasher, err := security.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)
	repo := repository.NewMemoryUserRepository()
	return NewUserService(repo, hasher), repo, hasher
}

func TestUserService_BootstrapAdmin(t *testing.T) {
	svc, repo, hasher := newUserService(t)
	ctx := context.Background()

	created, err := svc.BootstrapAdmin(ctx, "root", "s3cret")
	require.NoError(t, err)
	assert.True(t, created)

	user, err := repo.FindByUsername(ctx, "root")
	require.NoError(t, err)
	assert.True(t, user.HasRole(model.RoleAdmin))
	assert.True(t, user.HasRole(model.RoleUser))
	assert.True(t, hasher.Verify("s3cret", user.HashedPassword))

	created, err = svc.BootstrapAdmin(ctx, "root", "changed")
	require.NoError(t, err)
	assert.False(t, created)

	user, err = repo.FindByUsername(ctx, "root")
	require.NoError(t, err)
	assert.True(t, hasher.Verify("s3cret", user.HashedPassword))
}

func TestUserService_BootstrapAdminMissingFields(t *testing.T) {
	svc, _, _ := newUserService(t)

	_, err := svc.BootstrapAdmin(context.Background(), "root", "")
	assert.ErrorIs(t, err, common.ErrMissingField)
}

func TestUserService_GetByUsername(t *testing.T) {
	svc, _, _ := newUserService(t)
	ctx := context.Background()

	_, err := svc.GetByUsername(ctx, "ghost")
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = svc.BootstrapAdmin(ctx, "root", "pw")
	require.NoError(t, err)

	user, err := svc.GetByUsername(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, "root", user.Username)
	assert.NotEmpty(t, user.ID)
}
