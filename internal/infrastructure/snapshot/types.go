// Package snapshot persists the local cache: the last known assignment collection and
// the user's settings overrides.
package snapshot

import (
	"time"

	"github.com/gavinmorrow/hunter-extension-sub000/domain"
)

// Document is the stored form of the collection.
type Document struct {
	SavedAt  time.Time           `json:"savedAt"`
	Entities []domain.Assignment `json:"entities"`
}
