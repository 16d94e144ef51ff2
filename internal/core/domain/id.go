package domain

import "github.com/google/uuid"

// GenerateID creates a unique record ID.
func GenerateID() string {
	return uuid.NewString()
}
