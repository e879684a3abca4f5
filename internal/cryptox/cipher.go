// Package cryptox implements authenticated encryption of individual field
// values (AES-256-GCM) for data stored at rest.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/passvault/internal/common"
)

const (
	// KeySize is the only accepted key length (AES-256).
	KeySize = 32
	// NonceSize is the GCM nonce length prepended to every blob.
	NonceSize = 12
	// TagSize is the GCM authentication tag length appended by Seal.
	TagSize = 16

	base64KeyPrefix = "base64:"
)

// Cipher encrypts and decrypts string fields. The encoded form is
// base64(nonce || ciphertext || tag). A Cipher holds only read-only key
// material and is safe for concurrent use.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher validates the key and prepares the AEAD. Any key length other
// than KeySize is rejected with common.ErrEncryption.
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: key must be exactly %d bytes, got %d", common.ErrEncryption, KeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrEncryption, err)
	}

	aead, err := cipher.NewGCMWithNonceSize(block, NonceSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrEncryption, err)
	}

	return &Cipher{aead: aead}, nil
}

// ParseKey turns configured key material into raw bytes. Values prefixed
// with "base64:" are decoded; anything else is taken byte for byte.
func ParseKey(s string) ([]byte, error) {
	if rest, ok := strings.CutPrefix(s, base64KeyPrefix); ok {
		key, err := base64.StdEncoding.DecodeString(rest)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid base64 key: %v", common.ErrEncryption, err)
		}
		return key, nil
	}
	return []byte(s), nil
}

// Encrypt seals plaintext under a fresh random nonce. The empty string is
// returned unchanged.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return plaintext, nil
	}

	nonce := common.GenerateRandByteArray(NonceSize)

	// Seal appends ciphertext||tag to the nonce slice.
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)

	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Malformed encoding, truncated input, a wrong key
// or any modification of the blob fails with common.ErrDecryption; no partial
// plaintext is ever returned. The empty string is returned unchanged.
func (c *Cipher) Decrypt(blob string) (string, error) {
	if blob == "" {
		return blob, nil
	}

	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", fmt.Errorf("%w: invalid encoding", common.ErrDecryption)
	}

	if len(raw) < NonceSize+TagSize {
		return "", fmt.Errorf("%w: ciphertext too short", common.ErrDecryption)
	}

	plaintext, err := c.aead.Open(nil, raw[:NonceSize], raw[NonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("%w: authentication failed", common.ErrDecryption)
	}

	return string(plaintext), nil
}
