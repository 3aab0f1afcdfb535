package domain

import (
	"fmt"
	"net/mail"
	"strings"
)

// NormalizeEmail lowercases and trims an address.
func NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// NormalizeDomain accepts "example.com" or "@example.com".
func NormalizeDomain(raw string) string {
	return strings.TrimPrefix(NormalizeEmail(raw), "@")
}

// LocalPart returns the substring before the first "@".
func LocalPart(email string) (string, error) {
	at := strings.Index(email, "@")
	if at < 0 {
		return "", fmt.Errorf("%w: %q has no @", ErrMalformedEmail, email)
	}
	return email[:at], nil
}

// ValidateSyntax accepts a bare addr-spec with a dotted domain.
func ValidateSyntax(email string) error {
	if email == "" {
		return ErrInvalidFormat
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Name != "" || addr.Address != email {
		return ErrInvalidFormat
	}
	host := email[strings.LastIndex(email, "@")+1:]
	if !strings.Contains(host, ".") || strings.HasPrefix(host, ".") || strings.HasSuffix(host, ".") {
		return ErrInvalidFormat
	}
	return nil
}

// HasAllowedDomain reports whether a normalized email ends with @domain.
func HasAllowedDomain(email, domain string) bool {
	return strings.HasSuffix(email, "@"+NormalizeDomain(domain))
}

// ValidateEmail runs the syntax check and then the domain check.
func ValidateEmail(email, domain string) error {
	if err := ValidateSyntax(email); err != nil {
		return err
	}
	if !HasAllowedDomain(email, domain) {
		return ErrWrongDomain
	}
	return nil
}

// EmailPattern selects stored emails whose local part starts with LocalPrefix
// and whose domain is exactly Domain, case-insensitively. It is the LIKE
// pattern "<prefix>%@<domain>".
type EmailPattern struct {
	LocalPrefix string
	Domain      string
}

// NewEmailPattern builds the fuzzy pattern for a normalized email.
func NewEmailPattern(email, domain string) (EmailPattern, error) {
	local, err := LocalPart(NormalizeEmail(email))
	if err != nil {
		return EmailPattern{}, err
	}
	return EmailPattern{LocalPrefix: local, Domain: NormalizeDomain(domain)}, nil
}

// LikeEscape is the escape character used by Like.
const LikeEscape = `\`

// Like renders the pattern for SQL LIKE/ILIKE with backslash escaping.
func (p EmailPattern) Like() string {
	return escapeLike(p.LocalPrefix) + "%@" + escapeLike(p.Domain)
}

// Matches evaluates the pattern in memory.
func (p EmailPattern) Matches(email string) bool {
	email = strings.ToLower(email)
	suffix := "@" + p.Domain
	if len(email) < len(p.LocalPrefix)+len(suffix) {
		return false
	}
	return strings.HasPrefix(email, p.LocalPrefix) && strings.HasSuffix(email, suffix)
}

var likeReplacer = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeReplacer.Replace(s)
}
