package auth

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// GenerateAPIKey tests
// =============================================================================

func TestGenerateAPIKey_Format(t *testing.T) {
	key, err := GenerateAPIKey()
	require.NoError(t, err)

	decoded, err := base64.URLEncoding.DecodeString(key)
	require.NoError(t, err)
	assert.Len(t, decoded, 32)
	assert.Len(t, key, 44)
	assert.False(t, strings.ContainsAny(key, "+/"), "key must be URL safe: %s", key)
}

func TestGenerateAPIKey_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		key, err := GenerateAPIKey()
		require.NoError(t, err)
		require.False(t, seen[key], "duplicate key on iteration %d", i)
		seen[key] = true
	}
}

// =============================================================================
// Password hashing tests
// =============================================================================

func TestHashPassword_Bcrypt(t *testing.T) {
	h1, err := HashPassword("hunter2")
	require.NoError(t, err)
	h2, err := HashPassword("hunter2")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(h1, "$2"))
	assert.NotEqual(t, h1, h2, "salts should differ")
}

func TestHashPassword_Length(t *testing.T) {
	_, err := HashPassword(strings.Repeat("a", 73))
	assert.Error(t, err)

	hash, err := HashPassword(strings.Repeat("a", 72))
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
}

func TestCheckPasswordHash(t *testing.T) {
	tests := []struct {
		name     string
		password string
		attempt  string
		want     bool
	}{
		{name: "correct", password: "correct horse", attempt: "correct horse", want: true},
		{name: "wrong", password: "correct horse", attempt: "battery staple", want: false},
		{name: "case sensitive", password: "Overseerr", attempt: "overseerr", want: false},
		{name: "empty round trip", password: "", attempt: "", want: true},
		{name: "empty rejects other", password: "", attempt: "x", want: false},
		{name: "unicode", password: "日本語 パス", attempt: "日本語 パス", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := HashPassword(tt.password)
			require.NoError(t, err)
			assert.Equal(t, tt.want, CheckPasswordHash(tt.attempt, hash))
		})
	}
}

func TestCheckPasswordHash_InvalidHash(t *testing.T) {
	assert.False(t, CheckPasswordHash("anything", "not-a-bcrypt-hash"))
}

// =============================================================================
// Key comparison tests
// =============================================================================

func TestKeysEqual(t *testing.T) {
	assert.True(t, KeysEqual("abc", "abc"))
	assert.False(t, KeysEqual("abc", "abd"))
	assert.False(t, KeysEqual("abc", ""))
	assert.False(t, KeysEqual("", ""))
}
