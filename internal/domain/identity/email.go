package identity

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// emailNamespace scopes the name-based UUIDs derived from email addresses.
var emailNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://renshu.app/identity/email"))

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether email looks like an address.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}

// EmailIdentity derives the stable identity of an email address. The
// result is a UUID, so email users qualify for durable storage.
func EmailIdentity(email string) string {
	return uuid.NewSHA1(emailNamespace, []byte(NormalizeEmail(email))).String()
}
