package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/Rakhazzan/SINTESIS/internal/domain/entities"
	"github.com/Rakhazzan/SINTESIS/internal/domain/repositories"
	"github.com/Rakhazzan/SINTESIS/internal/infrastructure/clients/postgres"
	apperrors "github.com/Rakhazzan/SINTESIS/pkg/errors"
)

var userColumns = []any{"id", "email", "name", "phone", "occupation"}

// UserAdapter implements the UserRepository interface
type UserAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewUserAdapter creates a new user profile adapter
func NewUserAdapter(client *postgres.Client) repositories.UserRepository {
	return &UserAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// GetByID retrieves a profile by user ID
func (a *UserAdapter) GetByID(ctx context.Context, id string) (*entities.UserProfile, error) {
	query, args, err := a.db.Select(userColumns...).
		From(entities.TableUsers).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	profile, err := scanUser(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("user with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get user", err)
	}
	return profile, nil
}

// GetByIDs retrieves the profiles that exist among ids
func (a *UserAdapter) GetByIDs(ctx context.Context, ids []string) ([]*entities.UserProfile, error) {
	if len(ids) == 0 {
		return []*entities.UserProfile{}, nil
	}
	return a.list(ctx, a.db.Select(userColumns...).
		From(entities.TableUsers).
		Where(goqu.Ex{"id": ids}))
}

// ListExcept retrieves every profile but the given user's, ordered by name
func (a *UserAdapter) ListExcept(ctx context.Context, id string) ([]*entities.UserProfile, error) {
	return a.list(ctx, a.db.Select(userColumns...).
		From(entities.TableUsers).
		Where(goqu.C("id").Neq(id)).
		Order(goqu.I("name").Asc()))
}

// Update updates name, phone and occupation. Email is never written.
func (a *UserAdapter) Update(ctx context.Context, profile *entities.UserProfile) error {
	query, args, err := a.db.Update(entities.TableUsers).
		Set(goqu.Record{
			"name":       profile.Name,
			"phone":      profile.Phone,
			"occupation": profile.Occupation,
		}).
		Where(goqu.Ex{"id": profile.ID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update user", err)
	}
	return expectAffected(result, "user", profile.ID)
}

func (a *UserAdapter) list(ctx context.Context, ds *goqu.SelectDataset) ([]*entities.UserProfile, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list users", err)
	}
	defer rows.Close()

	profiles := make([]*entities.UserProfile, 0)
	for rows.Next() {
		profile, err := scanUser(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan user", err)
		}
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("error iterating users", err)
	}
	return profiles, nil
}

func scanUser(row rowScanner) (*entities.UserProfile, error) {
	profile := &entities.UserProfile{}
	if err := row.Scan(&profile.ID, &profile.Email, &profile.Name, &profile.Phone, &profile.Occupation); err != nil {
		return nil, err
	}
	return profile, nil
}
