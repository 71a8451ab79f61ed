// Package passwords hashes and checks shared secrets such as the admin API token.
package passwords

import (
	"errors"
	"strings"

	"github.com/alexedwards/argon2id"
	"github.com/go-playground/validator/v10"
)

var params = &argon2id.Params{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: uint8(2),
	SaltLength:  16,
	KeyLength:   32,
}

// ErrNotArgon is returned when a stored hash is not argon2id encoded.
var ErrNotArgon = errors.New("hash is not argon2id encoded")

type secretInput struct {
	Secret string `validate:"required,min=16,max=512"`
}

// Hash produces an argon2id hash of secret. Secrets shorter than 16 characters are rejected.
func Hash(secret string) (string, error) {
	if err := validator.New().Struct(secretInput{Secret: secret}); err != nil {
		return "", err
	}
	return argon2id.CreateHash(secret, params)
}

// Matches reports whether secret corresponds to hash.
func Matches(secret, hash string) (bool, error) {
	if !IsArgonEncoded(hash) {
		return false, ErrNotArgon
	}
	return argon2id.ComparePasswordAndHash(secret, hash)
}

// IsArgonEncoded returns true if the input is an argon2id hash
func IsArgonEncoded(input string) bool {
	return strings.HasPrefix(input, "$argon2id$")
}
