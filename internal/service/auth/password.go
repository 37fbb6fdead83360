package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// DefaultPBKDF2Iterations is the key derivation work factor for stored passwords.
	DefaultPBKDF2Iterations = 600000

	keySize  = 32
	saltSize = 32
)

type hasher struct {
	iterations int
}

func (h hasher) hash(password string) (key, salt []byte, err error) {
	salt = make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return h.derive(password, salt), salt, nil
}

func (h hasher) derive(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, h.iterations, keySize, sha256.New)
}

func (h hasher) verify(password string, salt, key []byte) bool {
	return subtle.ConstantTimeCompare(h.derive(password, salt), key) == 1
}
