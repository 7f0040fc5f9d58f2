// Package crypto implements password hashing schemes and credential verification.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Verifier compares a supplied credential with a stored password hash.
type Verifier interface {
	Verify(supplied, stored string) bool
}

// Scheme is a Verifier that can also produce the values it verifies.
// Hash yields what gets stored at registration, Credential yields what is
// supplied at login.
type Scheme interface {
	Verifier
	Name() string
	Hash(plain string) (string, error)
	Credential(plain string) string
}

// Scheme names accepted by NewScheme.
const (
	SchemePlain  = "plain"
	SchemeBcrypt = "bcrypt"
	SchemeArgon2 = "argon2id"
)

// NewScheme returns the scheme registered under name.
func NewScheme(name string) (Scheme, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case SchemePlain, "":
		return PlainVerifier{}, nil
	case SchemeBcrypt:
		return BcryptScheme{Cost: bcrypt.DefaultCost}, nil
	case SchemeArgon2:
		return Argon2Scheme{}, nil
	default:
		return nil, fmt.Errorf("unknown password scheme %q", name)
	}
}

// Argon2id parameters.
const (
	argonTime    uint32 = 3         // iterations
	argonMemory  uint32 = 64 * 1024 // 64 MB
	argonThreads uint8  = 1
	argonKeyLen  uint32 = 32
	argonSaltLen        = 16
	argonPrefix         = "argon2id"
)

// RandBytes returns n cryptographically secure random bytes.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// HashPassword returns the Argon2id key of password using the provided salt.
func HashPassword(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

// VerifyPassword verifies password against expected Argon2id key and salt.
func VerifyPassword(password, salt, expected []byte) bool {
	got := HashPassword(password, salt)
	return subtle.ConstantTimeCompare(got, expected) == 1
}

// PlainVerifier treats both sides as already-hashed strings and compares them.
// Its Hash and Credential produce a hex SHA-256 digest, so the stored value
// and the supplied value are the same string for the same password.
type PlainVerifier struct{}

func (PlainVerifier) Name() string { return SchemePlain }

func (PlainVerifier) Verify(supplied, stored string) bool {
	if supplied == "" || stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(supplied), []byte(stored)) == 1
}

func (PlainVerifier) Hash(plain string) (string, error) { return sha256Hex(plain), nil }

func (PlainVerifier) Credential(plain string) string { return sha256Hex(plain) }

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// BcryptScheme stores bcrypt hashes; the supplied credential is the plaintext.
type BcryptScheme struct{ Cost int }

func (BcryptScheme) Name() string { return SchemeBcrypt }

func (s BcryptScheme) Hash(plain string) (string, error) {
	cost := s.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt hash: %w", err)
	}
	return string(h), nil
}

func (BcryptScheme) Credential(plain string) string { return plain }

func (BcryptScheme) Verify(supplied, stored string) bool {
	if stored == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(supplied)) == nil
}

// Argon2Scheme stores "argon2id$<salt>$<key>" with raw std base64 parts.
type Argon2Scheme struct{}

func (Argon2Scheme) Name() string { return SchemeArgon2 }

func (Argon2Scheme) Hash(plain string) (string, error) {
	salt, err := RandBytes(argonSaltLen)
	if err != nil {
		return "", fmt.Errorf("argon2 salt: %w", err)
	}
	key := HashPassword([]byte(plain), salt)
	enc := base64.RawStdEncoding
	return argonPrefix + "$" + enc.EncodeToString(salt) + "$" + enc.EncodeToString(key), nil
}

func (Argon2Scheme) Credential(plain string) string { return plain }

func (Argon2Scheme) Verify(supplied, stored string) bool {
	parts := strings.Split(stored, "$")
	if len(parts) != 3 || parts[0] != argonPrefix {
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[2])
	if err != nil || len(key) != int(argonKeyLen) {
		return false
	}
	return VerifyPassword([]byte(supplied), salt, key)
}
