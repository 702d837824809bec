package util

import "github.com/google/uuid"

// NewID returns a random UUID string used for entity and audit-log IDs.
func NewID() string {
	return uuid.NewString()
}
