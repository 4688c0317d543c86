package providers

import (
	"context"
)

// PreferenceStore persists plain-string preferences per user
type PreferenceStore interface {
	// Get retrieves a preference. ok is false when it was never set.
	Get(ctx context.Context, userID, key string) (value string, ok bool, err error)

	// Set stores a preference
	Set(ctx context.Context, userID, key, value string) error

	// Delete removes a preference
	Delete(ctx context.Context, userID, key string) error
}
