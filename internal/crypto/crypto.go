// Package crypto encrypts credentials (Overseerr, Radarr and Sonarr API keys)
// before they are written to the settings table.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
)

// EncryptedPrefix marks values produced by Encrypt.
const EncryptedPrefix = "enc:v1:"

// KeyEnvVar is the environment variable holding the encryption secret.
const KeyEnvVar = "HASSARR_ENCRYPTION_KEY"

var (
	keyManager     *KeyManager
	keyManagerOnce sync.Once

	ErrNoEncryptionKey = errors.New("no encryption key configured")
	ErrDecryptFailed   = errors.New("decryption failed: invalid ciphertext")
)

// KeyManager holds the AES-256 key derived from the configured secret.
// A KeyManager without a key passes values through unchanged.
type KeyManager struct {
	key []byte
}

// NewKeyManager derives a key from secret with SHA-256. An empty secret
// yields a pass-through manager.
func NewKeyManager(secret string) *KeyManager {
	if secret == "" {
		return &KeyManager{}
	}
	sum := sha256.Sum256([]byte(secret))
	return &KeyManager{key: sum[:]}
}

// GetKeyManager returns the process-wide manager initialised from KeyEnvVar.
func GetKeyManager() *KeyManager {
	keyManagerOnce.Do(func() {
		keyManager = NewKeyManager(os.Getenv(KeyEnvVar))
	})
	return keyManager
}

// ResetForTesting drops the global manager so the next call re-reads KeyEnvVar.
func ResetForTesting() {
	keyManager = nil
	keyManagerOnce = sync.Once{}
}

// HasKey returns true if an encryption key is configured
func (km *KeyManager) HasKey() bool {
	return km.key != nil
}

func (km *KeyManager) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(km.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt seals plaintext with AES-GCM and returns EncryptedPrefix + base64(nonce|ciphertext).
func (km *KeyManager) Encrypt(plaintext string) (string, error) {
	if !km.HasKey() {
		return plaintext, nil
	}

	gcm, err := km.aead()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return EncryptedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Values without EncryptedPrefix are returned as-is
// so settings written before a key was configured keep working.
func (km *KeyManager) Decrypt(value string) (string, error) {
	if !IsEncrypted(value) {
		return value, nil
	}
	if !km.HasKey() {
		return "", ErrNoEncryptionKey
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, EncryptedPrefix))
	if err != nil {
		return "", err
	}

	gcm, err := km.aead()
	if err != nil {
		return "", err
	}

	if len(data) < gcm.NonceSize() {
		return "", ErrDecryptFailed
	}
	nonce, sealed := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrDecryptFailed
	}
	return string(plain), nil
}

// Encrypt encrypts plaintext using the global key manager
func Encrypt(plaintext string) (string, error) {
	return GetKeyManager().Encrypt(plaintext)
}

// Decrypt decrypts a value using the global key manager
func Decrypt(value string) (string, error) {
	return GetKeyManager().Decrypt(value)
}

// IsEncrypted checks if a value carries EncryptedPrefix and a payload
func IsEncrypted(value string) bool {
	return len(value) > len(EncryptedPrefix) && strings.HasPrefix(value, EncryptedPrefix)
}

// EncryptionEnabled returns true if the global manager has a key
func EncryptionEnabled() bool {
	return GetKeyManager().HasKey()
}

// Mask returns a redacted form of a credential for display, keeping the last four characters.
func Mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return "****"
	}
	return strings.Repeat("*", 8) + secret[len(secret)-4:]
}
