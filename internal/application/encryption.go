package application

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"thirdcoast.systems/gifmoments/internal/config"
	"thirdcoast.systems/gifmoments/pkg/encryption"
)

// ErrNoEncryptionKey means the cookie jar cannot be enabled.
var ErrNoEncryptionKey = errors.New("ENCRYPTION_KEY not set")

// InitEncryptionManager builds the cookie jar cipher from configuration.
// The key is a 64-character hex string (32 bytes). The cipher defaults to
// chacha20-poly1305.
func InitEncryptionManager(conf config.Config) (*encryption.Manager, error) {
	keyHex := strings.TrimSpace(conf.EncryptionKey)
	if keyHex == "" {
		return nil, ErrNoEncryptionKey
	}

	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid ENCRYPTION_KEY format (must be 64-char hex string): %w", err)
	}
	if len(key) != encryption.KeySize {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be exactly %d bytes (%d hex chars), got %d bytes", encryption.KeySize, encryption.KeySize*2, len(key))
	}

	cipherType := encryption.CipherType(strings.ToLower(conf.EncryptionCipher))
	switch cipherType {
	case "":
		cipherType = encryption.CipherChaCha20Poly1305
	case encryption.CipherChaCha20Poly1305, encryption.CipherXChaCha20Poly1305, encryption.CipherAES256GCM:
	default:
		return nil, fmt.Errorf("unsupported ENCRYPTION_CIPHER: %s (must be chacha20-poly1305, xchacha20-poly1305, or aes-256-gcm)", conf.EncryptionCipher)
	}

	manager, err := encryption.NewManagerFromKey(cipherType, key)
	if err != nil {
		return nil, fmt.Errorf("create encryption manager: %w", err)
	}
	return manager, nil
}
