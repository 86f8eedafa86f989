// Package secrets encrypts integration keys at rest with AES-256-GCM.
// Each value gets its own salt; the encryption key is derived from the
// master key and a scope with PBKDF2.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

var (
	ErrInvalidKey       = errors.New("invalid encryption key")
	ErrDecryptionFailed = errors.New("decryption failed - data may be corrupted or key is wrong")
)

const (
	defaultIterations = 100000
	masterKeyMinBytes = 32
)

// Sealed is an encrypted value plus what is needed to open it.
type Sealed struct {
	Ciphertext  string
	Salt        string
	Fingerprint string
}

type derivedKey struct {
	key         []byte
	fingerprint string
}

// Manager encrypts and decrypts values under one master key.
type Manager struct {
	masterKey  []byte
	iterations int
}

// NewManager creates a manager from a base64 master key of at least 32
// bytes.
func NewManager(masterKeyBase64 string) (*Manager, error) {
	if masterKeyBase64 == "" {
		return nil, ErrInvalidKey
	}
	masterKey, err := base64.StdEncoding.DecodeString(masterKeyBase64)
	if err != nil {
		return nil, fmt.Errorf("invalid master key format: %w", err)
	}
	if len(masterKey) < masterKeyMinBytes {
		return nil, ErrInvalidKey
	}
	return &Manager{masterKey: masterKey, iterations: defaultIterations}, nil
}

// NewEphemeralManager creates a manager with a random master key. Values
// sealed by it cannot be opened after the process exits.
func NewEphemeralManager() (*Manager, error) {
	key := make([]byte, masterKeyMinBytes)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("failed to generate master key: %w", err)
	}
	return &Manager{masterKey: key, iterations: defaultIterations}, nil
}

func (m *Manager) derive(scope string, salt []byte) derivedKey {
	material := make([]byte, 0, len(m.masterKey)+len(scope)+6)
	material = append(material, m.masterKey...)
	material = append(material, "scope:"...)
	material = append(material, scope...)

	key := pbkdf2.Key(material, salt, m.iterations, 32, sha256.New)
	sum := sha256.Sum256(key)
	return derivedKey{key: key, fingerprint: base64.StdEncoding.EncodeToString(sum[:8])}
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// Encrypt seals value under scope, for example a service name.
func (m *Manager) Encrypt(scope, value string) (Sealed, error) {
	salt := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return Sealed{}, fmt.Errorf("failed to generate salt: %w", err)
	}

	dk := m.derive(scope, salt)
	gcm, err := newGCM(dk.key)
	if err != nil {
		return Sealed{}, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return Sealed{}, fmt.Errorf("failed to generate nonce: %w", err)
	}
	ciphertext := gcm.Seal(nonce, nonce, []byte(value), []byte(scope))

	return Sealed{
		Ciphertext:  base64.StdEncoding.EncodeToString(ciphertext),
		Salt:        base64.StdEncoding.EncodeToString(salt),
		Fingerprint: dk.fingerprint,
	}, nil
}

// Decrypt opens a value sealed under scope.
func (m *Manager) Decrypt(scope string, s Sealed) (string, error) {
	salt, err := base64.StdEncoding.DecodeString(s.Salt)
	if err != nil {
		return "", fmt.Errorf("invalid salt: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(s.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("invalid ciphertext: %w", err)
	}

	gcm, err := newGCM(m.derive(scope, salt).key)
	if err != nil {
		return "", err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return "", ErrDecryptionFailed
	}

	nonce, body := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, body, []byte(scope))
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plaintext), nil
}

// SameKey reports whether s was sealed with this manager's master key.
func (m *Manager) SameKey(scope string, s Sealed) (bool, error) {
	salt, err := base64.StdEncoding.DecodeString(s.Salt)
	if err != nil {
		return false, fmt.Errorf("invalid salt: %w", err)
	}
	return m.derive(scope, salt).fingerprint == s.Fingerprint, nil
}
