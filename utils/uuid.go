package utils

import "github.com/google/uuid"

// GetToken returns a random identifier, used for token ids.
func GetToken() string {
	return uuid.NewString()
}
