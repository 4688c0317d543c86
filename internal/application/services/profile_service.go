package services

import (
	"context"
	"strings"

	"github.com/Rakhazzan/SINTESIS/internal/domain/entities"
	"github.com/Rakhazzan/SINTESIS/internal/domain/repositories"
	apperrors "github.com/Rakhazzan/SINTESIS/pkg/errors"
)

// ProfileInput carries the editable profile fields. Email is not one of them.
type ProfileInput struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Occupation string `json:"occupation"`
}

// ProfileService reads and edits the signed-in user's profile
type ProfileService struct {
	users repositories.UserRepository
}

// NewProfileService creates a new profile service
func NewProfileService(users repositories.UserRepository) *ProfileService {
	return &ProfileService{users: users}
}

// Get returns the session user's profile
func (s *ProfileService) Get(ctx context.Context, session *entities.Session) (*entities.UserProfile, error) {
	profile, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if profile.Email == "" {
		profile.Email = session.Email
	}
	return profile, nil
}

// Update changes name, phone and occupation of the session user's profile
func (s *ProfileService) Update(ctx context.Context, session *entities.Session, input ProfileInput) (*entities.UserProfile, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, apperrors.NewValidationError("name is required")
	}

	profile, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	profile.Name = strings.TrimSpace(input.Name)
	profile.Phone = strings.TrimSpace(input.Phone)
	profile.Occupation = strings.TrimSpace(input.Occupation)

	if err := s.users.Update(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}
