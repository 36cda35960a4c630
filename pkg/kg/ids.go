package kg

import (
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

const maxIDAttempts = 32

// NewEntityID derives a short, human-greppable id from an entity's display
// name: the first four alphanumeric characters lowercased, a dot, and four
// random lowercase-alphanumeric characters. The random tail is not
// cryptographic; taken reports ids already in use and the generator retries
// on collision.
func NewEntityID(name string, taken func(id string) bool) (string, error) {
	prefix := idPrefix(name)
	for range maxIDAttempts {
		suffix, err := gonanoid.Generate(idAlphabet, 4)
		if err != nil {
			return "", fmt.Errorf("failed to generate entity id: %w", err)
		}
		id := prefix + "." + suffix
		if taken != nil && taken(id) {
			continue
		}
		return id, nil
	}
	return "", fmt.Errorf("failed to generate entity id for %q: suffix space exhausted", name)
}

// NewRelationshipID returns a fresh synthetic relationship id. Relationships
// have no display name to derive a prefix from, so the id is a fixed-width
// random tag.
func NewRelationshipID() (string, error) {
	suffix, err := gonanoid.Generate(idAlphabet, 8)
	if err != nil {
		return "", fmt.Errorf("failed to generate relationship id: %w", err)
	}
	return "rel." + suffix, nil
}

func idPrefix(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			if b.Len() == 4 {
				break
			}
		}
	}
	return b.String()
}
