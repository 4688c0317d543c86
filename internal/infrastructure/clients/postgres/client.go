package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/Rakhazzan/SINTESIS/pkg/config"
	"github.com/Rakhazzan/SINTESIS/pkg/retry"
)

//go:embed schema.sql
var schemaSQL string

// Client represents a PostgreSQL database client
type Client struct {
	db  *sql.DB
	dsn string
}

// NewClient creates a new PostgreSQL client with exponential backoff retry
func NewClient(cfg *config.DatabaseConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	err = retry.DoWithLog(
		context.Background(),
		retry.DefaultConfig(),
		"PostgreSQL",
		func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return db.PingContext(ctx)
		},
		func(attempt int, err error, nextDelay time.Duration) {
			log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", nextDelay).Msg("PostgreSQL connection attempt failed")
		},
	)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL after retries: %w", err)
	}

	log.Info().Str("host", cfg.Host).Str("database", cfg.Database).Msg("connected to PostgreSQL")
	return &Client{db: db, dsn: cfg.DatabaseDSN()}, nil
}

// NewClientFromDB wraps an existing connection pool
func NewClientFromDB(db *sql.DB) *Client {
	return &Client{db: db}
}

// DB returns the underlying database connection
func (c *Client) DB() *sql.DB {
	return c.db
}

// DSN returns the connection string the client was opened with
func (c *Client) DSN() string {
	return c.dsn
}

// Close closes the database connection
func (c *Client) Close() error {
	return c.db.Close()
}

// Ping verifies the connection to the database
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// DefaultNotifyChannel is the NOTIFY channel used by the change triggers
const DefaultNotifyChannel = "row_changes"

// Migrate applies the schema, including the change-notification triggers
// publishing on notifyChannel. Every statement is idempotent.
func (c *Client) Migrate(ctx context.Context, notifyChannel string) error {
	if notifyChannel == "" {
		notifyChannel = DefaultNotifyChannel
	}
	stmt := strings.ReplaceAll(schemaSQL, pq.QuoteLiteral(DefaultNotifyChannel), pq.QuoteLiteral(notifyChannel))
	if _, err := c.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	log.Info().Str("notify_channel", notifyChannel).Msg("database schema applied")
	return nil
}
