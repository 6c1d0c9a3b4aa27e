package auth

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// Identity is one credential pair from the account store. Immutable once
// loaded.
type Identity struct {
	Email    string
	Password string
}

// CredentialPool holds the rotating set of identities in file order plus the
// cursor selecting the active one. The pool is never mutated after load; only
// the cursor moves. Callers are expected to serialize access (see Session).
type CredentialPool struct {
	identities []Identity
	cursor     int
}

// LoadCredentialPool reads an account store file: one `email:password` per
// line, UTF-8. Malformed lines are skipped. Fails when the file is missing or
// contains no usable line.
func LoadCredentialPool(path string) (*CredentialPool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open account store %s: %w", path, err)
	}
	defer f.Close()

	pool, err := ParseCredentialPool(f)
	if err != nil {
		return nil, fmt.Errorf("account store %s: %w", path, err)
	}

	log.Printf("[Auth] Loaded %d account(s) from %s", pool.Size(), path)
	return pool, nil
}

// ParseCredentialPool parses `email:password` lines from r. Only the first
// colon splits; passwords may contain colons. Duplicate emails are legal and
// simply rotate redundantly.
func ParseCredentialPool(r io.Reader) (*CredentialPool, error) {
	var identities []Identity

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.Contains(line, ":") {
			continue
		}
		email, password, _ := strings.Cut(line, ":")
		email = strings.TrimSpace(email)
		password = strings.TrimSpace(password)
		if email == "" || password == "" {
			continue
		}
		identities = append(identities, Identity{Email: email, Password: password})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read account store: %w", err)
	}

	if len(identities) == 0 {
		return nil, fmt.Errorf("no usable accounts found")
	}

	return &CredentialPool{identities: identities}, nil
}

// Current returns the identity selected by the cursor.
func (p *CredentialPool) Current() Identity {
	return p.identities[p.cursor]
}

// Advance moves the cursor to the next identity, wrapping around.
func (p *CredentialPool) Advance() Identity {
	p.cursor = (p.cursor + 1) % len(p.identities)
	return p.identities[p.cursor]
}

// Cursor returns the index of the active identity.
func (p *CredentialPool) Cursor() int {
	return p.cursor
}

// Size returns the number of loaded identities.
func (p *CredentialPool) Size() int {
	return len(p.identities)
}
