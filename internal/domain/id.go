package domain

import "github.com/google/uuid"

// NewID returns a new entity identifier. Identifiers are UUIDv7, so sorting by id
// follows creation order within the process.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}
