package site

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/theemilyd/react-riftsurge/handlers"
)

//go:embed sql/create_contact_submissions.sql
var createContactSubmissionsQuery string

//go:embed sql/insert_contact_submission.sql
var insertContactSubmissionQuery string

type PgxIface interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
}

// PostgresContactStore writes contact submissions to the
// contact_submissions table.
type PostgresContactStore struct {
	pool PgxIface
}

func NewPostgresContactStore(pool PgxIface) *PostgresContactStore {
	return &PostgresContactStore{pool: pool}
}

// Migrate creates the submissions table if it does not exist.
func (s *PostgresContactStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, createContactSubmissionsQuery); err != nil {
		return fmt.Errorf("creating contact_submissions: %w", err)
	}
	return nil
}

func (s *PostgresContactStore) SaveContactSubmission(ctx context.Context, sub handlers.ContactSubmission) error {
	tag, err := s.pool.Exec(ctx, insertContactSubmissionQuery,
		sub.Name,
		sub.Email,
		sub.Subject,
		sub.Message,
		sub.RemoteAddr,
		sub.ReceivedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting contact submission: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("inserting contact submission: %d rows affected", tag.RowsAffected())
	}
	return nil
}

// LogContactStore records submissions in the log only. It is used when no
// database is configured.
type LogContactStore struct {
	Logger zerolog.Logger
}

func (s LogContactStore) SaveContactSubmission(_ context.Context, sub handlers.ContactSubmission) error {
	s.Logger.Info().
		Str("name", sub.Name).
		Str("email", sub.Email).
		Str("subject", sub.Subject).
		Int("message_length", len(sub.Message)).
		Time("received_at", sub.ReceivedAt).
		Msg("contact submission (no database configured)")
	return nil
}

// OpenContactStore connects to databaseURL and prepares the submissions
// table. With an empty URL it returns a LogContactStore and a no-op close.
func OpenContactStore(ctx context.Context, databaseURL string, logger zerolog.Logger) (handlers.ContactStore, func(), error) {
	if databaseURL == "" {
		logger.Warn().Msg("SITE_CONTACT_DATABASE_URL not set; contact submissions will only be logged")
		return LogContactStore{Logger: logger}, func() {}, nil
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to reach postgres: %w", err)
	}
	logger.Info().Msg("postgres connection pool created")

	store := NewPostgresContactStore(pool)
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return store, pool.Close, nil
}
