// Package encryption seals small secrets (cookie values) for storage at rest.
package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

// CipherType represents the encryption algorithm used.
type CipherType string

const (
	CipherChaCha20Poly1305  CipherType = "chacha20-poly1305"
	CipherXChaCha20Poly1305 CipherType = "xchacha20-poly1305"
	CipherAES256GCM         CipherType = "aes-256-gcm"
)

// KeySize is the key length every supported cipher expects.
const KeySize = chacha20poly1305.KeySize

// Cipher wraps an AEAD with its type.
type Cipher struct {
	aead       cipher.AEAD
	cipherType CipherType
}

// NewCipher builds an AEAD of the given type. An empty type selects ChaCha20-Poly1305.
func NewCipher(typ CipherType, key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("invalid key size: got %d, want %d", len(key), KeySize)
	}
	if typ == "" {
		typ = CipherChaCha20Poly1305
	}

	var (
		aead cipher.AEAD
		err  error
	)
	switch typ {
	case CipherChaCha20Poly1305:
		aead, err = chacha20poly1305.New(key)
	case CipherXChaCha20Poly1305:
		aead, err = chacha20poly1305.NewX(key)
	case CipherAES256GCM:
		var block cipher.Block
		if block, err = aes.NewCipher(key); err == nil {
			aead, err = cipher.NewGCM(block)
		}
	default:
		return nil, fmt.Errorf("unsupported cipher %q", typ)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s cipher: %w", typ, err)
	}
	return &Cipher{aead: aead, cipherType: typ}, nil
}

// Seal encrypts plaintext. Output layout: [nonce][ciphertext+tag].
func (c *Cipher) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open reverses Seal.
func (c *Cipher) Open(sealed []byte) ([]byte, error) {
	n := c.aead.NonceSize()
	if len(sealed) < n {
		return nil, fmt.Errorf("ciphertext too short: got %d, need at least %d", len(sealed), n)
	}
	plaintext, err := c.aead.Open(nil, sealed[:n], sealed[n:], nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plaintext, nil
}

func (c *Cipher) Type() CipherType {
	return c.cipherType
}
