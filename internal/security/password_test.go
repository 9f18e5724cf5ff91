package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_HashAndVerify(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("Secret1$")
	require.NoError(t, err)
	assert.NotEqual(t, "Secret1$", hash)

	assert.True(t, h.Verify("Secret1$", hash))
	assert.False(t, h.Verify("Secret1!", hash))
	assert.False(t, h.Verify("Secret1$", "not-a-hash"))
}

func TestBcryptHasher_SaltsEveryHash(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	first, err := h.Hash("Secret1$")
	require.NoError(t, err)
	second, err := h.Hash("Secret1$")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestBcryptHasher_RejectsLongPasswords(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	_, err := h.Hash(strings.Repeat("a", 73))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestNewBcryptHasher_ClampsCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(1).cost)
	assert.Equal(t, 12, NewBcryptHasher(12).cost)
}
