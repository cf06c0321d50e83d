package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// IsEncrypted tests
// =============================================================================

func TestIsEncrypted(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"enc:v1:somedata", true},
		{"plaintext", false},
		{"enc:v1:", false},
		{"enc:", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, IsEncrypted(tt.value))
		})
	}
}

// =============================================================================
// KeyManager tests
// =============================================================================

func TestKeyManager_NoKeyPassesThrough(t *testing.T) {
	km := NewKeyManager("")
	assert.False(t, km.HasKey())

	out, err := km.Encrypt("overseerr-key")
	require.NoError(t, err)
	assert.Equal(t, "overseerr-key", out)

	plain, err := km.Decrypt("overseerr-key")
	require.NoError(t, err)
	assert.Equal(t, "overseerr-key", plain)
}

func TestKeyManager_RoundTrip(t *testing.T) {
	km := NewKeyManager("correct horse battery staple")
	require.True(t, km.HasKey())

	sealed, err := km.Encrypt("abc123")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sealed, EncryptedPrefix))
	assert.NotContains(t, sealed, "abc123")

	plain, err := km.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "abc123", plain)
}

func TestKeyManager_NonceIsRandom(t *testing.T) {
	km := NewKeyManager("secret")
	a, err := km.Encrypt("same")
	require.NoError(t, err)
	b, err := km.Encrypt("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestKeyManager_DecryptWithoutKey(t *testing.T) {
	sealed, err := NewKeyManager("secret").Encrypt("value")
	require.NoError(t, err)

	_, err = NewKeyManager("").Decrypt(sealed)
	assert.ErrorIs(t, err, ErrNoEncryptionKey)
}

func TestKeyManager_DecryptWrongKey(t *testing.T) {
	sealed, err := NewKeyManager("one").Encrypt("value")
	require.NoError(t, err)

	_, err = NewKeyManager("two").Decrypt(sealed)
	assert.ErrorIs(t, err, ErrDecryptFailed)
}

func TestKeyManager_DecryptTruncated(t *testing.T) {
	_, err := NewKeyManager("secret").Decrypt(EncryptedPrefix + "AAAA")
	assert.ErrorIs(t, err, ErrDecryptFailed)
}

func TestKeyManager_DecryptBadBase64(t *testing.T) {
	_, err := NewKeyManager("secret").Decrypt(EncryptedPrefix + "!!!not-base64")
	assert.Error(t, err)
}

// =============================================================================
// Mask tests
// =============================================================================

func TestMask(t *testing.T) {
	assert.Equal(t, "", Mask(""))
	assert.Equal(t, "****", Mask("abcd"))
	assert.Equal(t, "********6789", Mask("0123456789"))
}
