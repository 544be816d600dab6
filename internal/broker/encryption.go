// Package broker keeps login credentials sealed while a session holds them.
package broker

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeySize is the size of the AES-256 key in bytes.
	KeySize = 32
	// PBKDF2Iterations is the number of iterations for key derivation.
	PBKDF2Iterations = 100000
)

var (
	ErrInvalidKey        = errors.New("invalid sealing key: must be at least 32 bytes")
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	ErrDecryptionFailed  = errors.New("decryption failed")
)

// Credentials is a login identity with its secret sealed.
type Credentials struct {
	Identity   string
	ciphertext []byte
	nonce      []byte
}

// Sealer encrypts login secrets with a key that never leaves the process.
type Sealer struct {
	masterKey []byte
}

// NewSealer creates a Sealer with a random master key.
func NewSealer() (*Sealer, error) {
	secret := make([]byte, KeySize)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generating master key: %w", err)
	}
	return NewSealerWithKey(secret)
}

// NewSealerWithKey creates a Sealer from caller-provided key material.
func NewSealerWithKey(secret []byte) (*Sealer, error) {
	if len(secret) < KeySize {
		return nil, ErrInvalidKey
	}
	// Use SHA-256 to normalize the key length
	hash := sha256.Sum256(secret)
	return &Sealer{masterKey: hash[:]}, nil
}

// DeriveKey derives the encryption key for one identity using PBKDF2.
func (s *Sealer) DeriveKey(identity string) []byte {
	salt := "identity:" + identity
	return pbkdf2.Key(s.masterKey, []byte(salt), PBKDF2Iterations, KeySize, sha256.New)
}

// Seal encrypts secret using AES-256-GCM with an identity-specific key.
func (s *Sealer) Seal(identity, secret string) (*Credentials, error) {
	gcm, err := s.aead(identity)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	return &Credentials{
		Identity:   identity,
		ciphertext: gcm.Seal(nil, nonce, []byte(secret), []byte(identity)),
		nonce:      nonce,
	}, nil
}

// Open returns the secret sealed in c.
func (s *Sealer) Open(c *Credentials) (string, error) {
	if c == nil || len(c.ciphertext) == 0 || len(c.nonce) == 0 {
		return "", ErrInvalidCiphertext
	}

	gcm, err := s.aead(c.Identity)
	if err != nil {
		return "", err
	}

	if len(c.nonce) != gcm.NonceSize() {
		return "", ErrInvalidCiphertext
	}

	plaintext, err := gcm.Open(nil, c.nonce, c.ciphertext, []byte(c.Identity))
	if err != nil {
		return "", ErrDecryptionFailed
	}

	return string(plaintext), nil
}

func (s *Sealer) aead(identity string) (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.DeriveKey(identity))
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}
	return gcm, nil
}
