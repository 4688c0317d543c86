package preferences

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sqliteclient "github.com/Rakhazzan/SINTESIS/internal/infrastructure/clients/sqlite"
)

// SQLiteStore persists preferences in a local SQLite file
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates the preferences table if needed
func NewSQLiteStore(ctx context.Context, client *sqliteclient.Client) (*SQLiteStore, error) {
	if _, err := client.DB().ExecContext(ctx, `CREATE TABLE IF NOT EXISTS preferences (
		user_id TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, key)
	)`); err != nil {
		return nil, fmt.Errorf("create preferences table: %w", err)
	}
	return &SQLiteStore{db: client.DB()}, nil
}

// Get retrieves a preference
func (s *SQLiteStore) Get(ctx context.Context, userID, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM preferences WHERE user_id = ? AND key = ?`, userID, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("select preference: %w", err)
	}
	return value, true, nil
}

// Set stores a preference, replacing any previous value
func (s *SQLiteStore) Set(ctx context.Context, userID, key, value string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO preferences (user_id, key, value) VALUES (?, ?, ?)
		ON CONFLICT (user_id, key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		userID, key, value)
	if err != nil {
		return fmt.Errorf("upsert preference: %w", err)
	}
	return nil
}

// Delete removes a preference
func (s *SQLiteStore) Delete(ctx context.Context, userID, key string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM preferences WHERE user_id = ? AND key = ?`, userID, key,
	); err != nil {
		return fmt.Errorf("delete preference: %w", err)
	}
	return nil
}
