package account

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltBytes = 32
	saltHex   = 2 * saltBytes
	keyBytes  = sha256.Size
	minLength = 8
	symbols   = `!@#$%^&*(),.?":{}|<>`
)

// HashPassword derives a PBKDF2-SHA256 hash and returns it as the hex salt
// followed by the hex key.
func HashPassword(password string, iterations int) (string, error) {
	raw := make([]byte, saltBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	salt := hex.EncodeToString(raw)
	return salt + derive(password, salt, iterations), nil
}

// VerifyPassword reports whether password matches a hash made by
// HashPassword with the same iteration count.
func VerifyPassword(stored, password string, iterations int) bool {
	if len(stored) <= saltHex {
		return false
	}
	salt, want := stored[:saltHex], stored[saltHex:]
	got := derive(password, salt, iterations)
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func derive(password, salt string, iterations int) string {
	return hex.EncodeToString(pbkdf2.Key([]byte(password), []byte(salt), iterations, keyBytes, sha256.New))
}

// CheckStrength lists the rules password breaks; nil means it is strong.
func CheckStrength(password string) []string {
	var problems []string
	if len([]rune(password)) < minLength {
		problems = append(problems, fmt.Sprintf("at least %d characters", minLength))
	}
	if !strings.ContainsFunc(password, unicode.IsLower) {
		problems = append(problems, "a lowercase letter")
	}
	if !strings.ContainsFunc(password, unicode.IsUpper) {
		problems = append(problems, "an uppercase letter")
	}
	if !strings.ContainsFunc(password, unicode.IsDigit) {
		problems = append(problems, "a digit")
	}
	if !strings.ContainsAny(password, symbols) {
		problems = append(problems, "a symbol")
	}
	return problems
}
