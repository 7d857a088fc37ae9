// Package uuid generates duel ids and validates player ids
package uuid

//go:generate mockgen -destination=mock/mock_generator.go -package=mockuuid -source=uuid.go

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator is an interface for generating ids
type Generator interface {
	New() string
}

// GoogleUUIDGenerator implements the Generator interface using Google's UUID package
type GoogleUUIDGenerator struct{}

// New generates a new random UUID string
func (g *GoogleUUIDGenerator) New() string {
	return uuid.New().String()
}

// NewGoogleUUIDGenerator creates a new GoogleUUIDGenerator
func NewGoogleUUIDGenerator() *GoogleUUIDGenerator {
	return &GoogleUUIDGenerator{}
}

// NormalizePlayerID parses a player id as sent by the host and returns its canonical
// lower-case hyphenated form. Both dashed and undashed forms are accepted.
func NormalizePlayerID(id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("invalid player id %q: %w", id, err)
	}
	return parsed.String(), nil
}
