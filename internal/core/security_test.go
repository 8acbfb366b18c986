// AngelaMos | 2026
// security_test.go

package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHasher(t *testing.T) *PasswordHasher {
	t.Helper()
	h, err := NewPasswordHasher(ArgonParams{Time: 1, Memory: 1024, Threads: 1})
	require.NoError(t, err)
	return h
}

func TestPasswordHasher_RoundTrip(t *testing.T) {
	h := testHasher(t)

	passwords := []string{"Secret1", "p@ssw0rd!@#$%^&*()", "", "пароль-юникод"}
	for _, pw := range passwords {
		hash, err := h.Hash(pw)
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"))
		assert.True(t, h.Verify(pw, hash), "password %q should verify", pw)
		assert.False(t, h.Verify(pw+"x", hash))
	}
}

func TestPasswordHasher_SaltIsRandom(t *testing.T) {
	h := testHasher(t)

	a, err := h.Hash("same-password")
	require.NoError(t, err)
	b, err := h.Hash("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, h.Verify("same-password", a))
	assert.True(t, h.Verify("same-password", b))
}

func TestPasswordHasher_MalformedHashFailsClosed(t *testing.T) {
	h := testHasher(t)

	malformed := []string{
		"",
		"plaintext",
		"$2a$10$abcdefghijklmnopqrstuv",
		"$argon2id$v=19$m=1024,t=1,p=1$!!!$!!!",
		"$argon2id$v=18$m=1024,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=1024,t=0,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=1024,t=1,p=0$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=1024,t=1,p=1$c2FsdA$",
		"$argon2i$v=19$m=1024,t=1,p=1$c2FsdA$aGFzaA",
	}

	for _, enc := range malformed {
		assert.NotPanics(t, func() {
			assert.False(t, h.Verify("anything", enc), "hash %q", enc)
		})
	}
}

func TestPasswordHasher_Rehash(t *testing.T) {
	old, err := NewPasswordHasher(ArgonParams{Time: 1, Memory: 1024, Threads: 1})
	require.NoError(t, err)
	current, err := NewPasswordHasher(ArgonParams{Time: 2, Memory: 2048, Threads: 1})
	require.NoError(t, err)

	stored, err := old.Hash("Secret1")
	require.NoError(t, err)

	assert.True(t, current.NeedsRehash(stored))

	ok, upgraded := current.VerifyWithRehash("Secret1", stored)
	require.True(t, ok)
	require.NotEmpty(t, upgraded)
	assert.False(t, current.NeedsRehash(upgraded))
	assert.True(t, current.Verify("Secret1", upgraded))

	ok, upgraded = current.VerifyWithRehash("wrong", stored)
	assert.False(t, ok)
	assert.Empty(t, upgraded)

	ok, upgraded = current.VerifyWithRehash("Secret1", mustHash(t, current, "Secret1"))
	assert.True(t, ok)
	assert.Empty(t, upgraded)
}

func TestNewPasswordHasher_RejectsZeroParams(t *testing.T) {
	_, err := NewPasswordHasher(ArgonParams{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func mustHash(t *testing.T, h *PasswordHasher, pw string) string {
	t.Helper()
	hash, err := h.Hash(pw)
	require.NoError(t, err)
	return hash
}
