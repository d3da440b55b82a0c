package id

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator creates opaque IDs for model artifacts and prediction runs.
type Generator interface {
	NewID() (string, error)
}

// UUIDGenerator issues time-ordered UUIDv7 values so ids sort by creation.
type UUIDGenerator struct{}

func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

func (g *UUIDGenerator) NewID() (string, error) {
	v, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid v7: %w", err)
	}
	return v.String(), nil
}

// Static always returns the same id. Useful for tests.
type Static string

func (s Static) NewID() (string, error) {
	return string(s), nil
}
