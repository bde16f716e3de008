package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// sealedPrefix marks values written by FieldCipher so plaintext rows from
// before a key was configured still read back.
const sealedPrefix = "enc1:"

var ErrCiphertext = errors.New("malformed ciphertext")

// FieldCipher encrypts individual text columns with XChaCha20-Poly1305.
// A nil *FieldCipher passes values through unchanged.
type FieldCipher struct {
	key []byte
}

// NewFieldCipher derives the column key from secret with HKDF-SHA256.
// An empty secret disables encryption.
func NewFieldCipher(secret string) (*FieldCipher, error) {
	if secret == "" {
		return nil, nil
	}
	if len(secret) < 16 {
		return nil, errors.New("encryption secret must be at least 16 bytes")
	}
	key := make([]byte, chacha20poly1305.KeySize)
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte("mindfuleat field cipher"))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return &FieldCipher{key: key}, nil
}

// Seal returns the encoded ciphertext for plaintext. Empty input stays empty.
func (c *FieldCipher) Seal(plaintext string) (string, error) {
	if c == nil || plaintext == "" {
		return plaintext, nil
	}
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	out := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedPrefix + base64.RawStdEncoding.EncodeToString(out), nil
}

// Open reverses Seal. Values without the sealed prefix are returned as is.
func (c *FieldCipher) Open(value string) (string, error) {
	if c == nil || !strings.HasPrefix(value, sealedPrefix) {
		return value, nil
	}
	data, err := base64.RawStdEncoding.DecodeString(strings.TrimPrefix(value, sealedPrefix))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCiphertext, err)
	}
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", err
	}
	if len(data) < aead.NonceSize() {
		return "", ErrCiphertext
	}
	nonce, sealed := data[:aead.NonceSize()], data[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCiphertext, err)
	}
	return string(plain), nil
}
