package services

import (
	"strings"

	"github.com/google/uuid"
)

// NewSlug returns an unguessable public handle for an invitation.
func NewSlug() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
