package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/kovalyov-valentin/job-digest/internal/model"
	"github.com/samber/lo"
)

// Schema works on both PostgreSQL and SQLite. Timestamps are stored as RFC 3339 text.
const Schema = `
CREATE TABLE IF NOT EXISTS digest_runs (
	id           TEXT PRIMARY KEY,
	generated_at TEXT NOT NULL,
	subject      TEXT NOT NULL,
	match_count  INTEGER NOT NULL,
	failed_feeds INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS digest_matches (
	run_id    TEXT NOT NULL REFERENCES digest_runs (id),
	position  INTEGER NOT NULL,
	title     TEXT NOT NULL,
	link      TEXT NOT NULL,
	source    TEXT NOT NULL,
	published TEXT NOT NULL,
	PRIMARY KEY (run_id, position)
);
`

// Run is one delivered digest.
type Run struct {
	ID          uuid.UUID
	Subject     string
	FailedFeeds int
	Digest      model.Digest
}

// ArchiveStorage keeps a history of delivered digests. It is write-only for the
// job itself and never consulted for deduplication.
type ArchiveStorage struct {
	db *sqlx.DB
}

// Open connects with one of the registered drivers ("postgres" or "sqlite3").
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s archive: %w", driver, err)
	}
	return db, nil
}

func NewArchiveStorage(db *sqlx.DB) *ArchiveStorage {
	return &ArchiveStorage{db: db}
}

// Migrate creates the archive tables when missing.
func (s *ArchiveStorage) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("migrate archive: %w", err)
	}
	return nil
}

// StoreRun writes the run and its matches in one transaction.
func (s *ArchiveStorage) StoreRun(ctx context.Context, run Run) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin archive tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.NamedExecContext(ctx,
		`INSERT INTO digest_runs (id, generated_at, subject, match_count, failed_feeds)
		 VALUES (:id, :generated_at, :subject, :match_count, :failed_feeds)`,
		dbRun{
			ID:          run.ID.String(),
			GeneratedAt: run.Digest.GeneratedAt.UTC().Format(time.RFC3339),
			Subject:     run.Subject,
			MatchCount:  len(run.Digest.Matches),
			FailedFeeds: run.FailedFeeds,
		},
	); err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	matches := lo.Map(run.Digest.Matches, func(m model.JobMatch, i int) dbMatch {
		return dbMatch{
			RunID:     run.ID.String(),
			Position:  i,
			Title:     m.Title,
			Link:      m.Link,
			Source:    m.Source,
			Published: m.Published,
		}
	})

	for _, m := range matches {
		if _, err := tx.NamedExecContext(ctx,
			`INSERT INTO digest_matches (run_id, position, title, link, source, published)
			 VALUES (:run_id, :position, :title, :link, :source, :published)`,
			m,
		); err != nil {
			return fmt.Errorf("insert match %d of run %s: %w", m.Position, run.ID, err)
		}
	}

	return tx.Commit()
}

// Internal row models mapped onto the table columns
type dbRun struct {
	ID          string `db:"id"`
	GeneratedAt string `db:"generated_at"`
	Subject     string `db:"subject"`
	MatchCount  int    `db:"match_count"`
	FailedFeeds int    `db:"failed_feeds"`
}

type dbMatch struct {
	RunID     string `db:"run_id"`
	Position  int    `db:"position"`
	Title     string `db:"title"`
	Link      string `db:"link"`
	Source    string `db:"source"`
	Published string `db:"published"`
}
