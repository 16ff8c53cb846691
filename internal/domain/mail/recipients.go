package mail

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

// Content limits enforced at request validation time.
const (
	MaxSubjectLen = 256
	MaxBodyLen    = 100_000
)

// Validation errors surfaced to callers before anything is persisted.
var (
	ErrNoRecipients   = errors.New("at least one recipient is required")
	ErrEmptySubject   = errors.New("subject line is required")
	ErrEmptyBody      = errors.New("email body is required")
	ErrSubjectTooLong = errors.New("subject line exceeds 256 characters")
	ErrBodyTooLong    = errors.New("email body exceeds 100000 characters")
)

// Normalize trims, lowercases and de-duplicates a recipient list while
// preserving first-seen order. Blank entries are dropped.
// PRE: raw may contain mixed case, whitespace and duplicates
// POST: Returns a lowercase, trimmed, duplicate-free, order-preserving list
func Normalize(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	var out []string
	for _, r := range raw {
		addr := strings.ToLower(strings.TrimSpace(r))
		if addr == "" {
			continue
		}
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	return out
}

// Join serializes a recipient list into the comma-delimited storage form.
func Join(recipients []string) string {
	return strings.Join(recipients, ",")
}

// Split parses the comma-delimited storage form back into a list,
// dropping blank entries. The inverse of Join for well-formed input;
// tolerant of malformed stored data.
func Split(stored string) []string {
	var out []string
	for _, r := range strings.Split(stored, ",") {
		if addr := strings.TrimSpace(r); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

// ValidateAddresses checks each recipient is a parseable email address.
// PRE: recipients has been normalized
// POST: Returns nil if all parse, or an error naming the first bad address
func ValidateAddresses(recipients []string) error {
	if len(recipients) == 0 {
		return ErrNoRecipients
	}
	for _, addr := range recipients {
		if _, err := mail.ParseAddress(addr); err != nil {
			return fmt.Errorf("invalid recipient address %q: %w", addr, err)
		}
	}
	return nil
}

// ValidateContent checks subject and body against the service limits.
// POST: Returns nil if within limits, a validation error otherwise
func ValidateContent(subject, body string) error {
	if strings.TrimSpace(subject) == "" {
		return ErrEmptySubject
	}
	if strings.TrimSpace(body) == "" {
		return ErrEmptyBody
	}
	if len(subject) > MaxSubjectLen {
		return ErrSubjectTooLong
	}
	if len(body) > MaxBodyLen {
		return ErrBodyTooLong
	}
	return nil
}
