package repositories

import (
	"context"

	"github.com/Rakhazzan/SINTESIS/internal/domain/entities"
)

// UserRepository defines the interface for user profile operations
type UserRepository interface {
	// GetByID retrieves a profile by user ID
	GetByID(ctx context.Context, id string) (*entities.UserProfile, error)

	// GetByIDs retrieves the profiles that exist among ids
	GetByIDs(ctx context.Context, ids []string) ([]*entities.UserProfile, error)

	// ListExcept retrieves every profile but the given user's, ordered by name
	ListExcept(ctx context.Context, id string) ([]*entities.UserProfile, error)

	// Update updates name, phone and occupation of a profile
	Update(ctx context.Context, profile *entities.UserProfile) error
}
