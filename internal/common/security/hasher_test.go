package security_test

import (
	"authgate/internal/common"
	"authgate/internal/common/security"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newHasher(t *testing.T) *security.BcryptHasher {
	t.Helper()
	h, err := security.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)
	return h
}

func TestBcryptHasher_Hash(t *testing.T) {
	h := newHasher(t)

	t.Run("same password produces different hashes", func(t *testing.T) {
		h1, err := h.Hash("pw123")
		require.NoError(t, err)
		h2, err := h.Hash("pw123")
		require.NoError(t, err)

		assert.NotEqual(t, h1, h2)
		assert.True(t, h.Verify("pw123", h1))
		assert.True(t, h.Verify("pw123", h2))
	})

	t.Run("hash does not contain the raw password", func(t *testing.T) {
		hashed, err := h.Hash("correct horse battery staple")
		require.NoError(t, err)
		assert.NotContains(t, hashed, "correct horse")
	})

	t.Run("rejects passwords over the bcrypt limit", func(t *testing.T) {
		_, err := h.Hash(strings.Repeat("a", 73))
		assert.ErrorIs(t, err, common.ErrPasswordTooLong)
	})
}

func TestBcryptHasher_Verify(t *testing.T) {
	h := newHasher(t)

	hashed, err := h.Hash("pw123")
	require.NoError(t, err)

	t.Run("different password fails", func(t *testing.T) {
		assert.False(t, h.Verify("pw124", hashed))
		assert.False(t, h.Verify("", hashed))
	})

	t.Run("malformed hash fails without error", func(t *testing.T) {
		assert.False(t, h.Verify("pw123", "not-a-hash"))
		assert.False(t, h.Verify("pw123", ""))
	})
}

func TestNewBcryptHasher_RejectsBadCost(t *testing.T) {
	_, err := security.NewBcryptHasher(bcrypt.MinCost - 1)
	assert.Error(t, err)

	_, err = security.NewBcryptHasher(bcrypt.MaxCost + 1)
	assert.Error(t, err)
}
