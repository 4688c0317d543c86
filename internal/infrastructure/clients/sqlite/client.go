package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// Client is a local SQLite database used for per-user preferences
type Client struct {
	db *sql.DB
}

// Open opens (creating if needed) the database file at path. ":memory:"
// opens a private in-memory database.
func Open(path string) (*Client, error) {
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// SQLite allows a single writer; one connection also keeps :memory: shared.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	log.Info().Str("path", path).Msg("opened SQLite preference database")
	return &Client{db: db}, nil
}

// DB returns the underlying database handle
func (c *Client) DB() *sql.DB {
	return c.db
}

// Close closes the database
func (c *Client) Close() error {
	return c.db.Close()
}
