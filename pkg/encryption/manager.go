package encryption

import (
	"encoding/base64"
	"fmt"
)

// Manager encrypts string values into a text-safe form for database columns.
type Manager struct {
	cipher *Cipher
}

func NewManager(cipher *Cipher) *Manager {
	return &Manager{cipher: cipher}
}

// NewManagerFromKey is a shortcut for NewManager(NewCipher(typ, key)).
func NewManagerFromKey(typ CipherType, key []byte) (*Manager, error) {
	c, err := NewCipher(typ, key)
	if err != nil {
		return nil, err
	}
	return NewManager(c), nil
}

func (m *Manager) CipherType() CipherType {
	return m.cipher.Type()
}

// EncryptString returns base64(nonce || ciphertext).
func (m *Manager) EncryptString(plaintext string) (string, error) {
	sealed, err := m.cipher.Seal([]byte(plaintext))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptString reverses EncryptString.
func (m *Manager) DecryptString(encoded string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	plaintext, err := m.cipher.Open(sealed)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
