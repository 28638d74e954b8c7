// Package sqlite persists the learned categorization memory in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/boddenberg/categorizer-go/internal/domain"
	"github.com/boddenberg/categorizer-go/internal/merchant"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SourceUserFeedback marks memories built from user corrections.
const SourceUserFeedback = "user_feedback"

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS memory_votes (
		memory_key TEXT NOT NULL,
		category   TEXT NOT NULL,
		votes      INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (memory_key, category)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_memory_votes_key ON memory_votes(memory_key)`,
}

// MemoryStore implements port.MemoryStore on SQLite.
type MemoryStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewMemoryStore opens (or creates) the database at dbPath and runs migrations.
// Use ":memory:" for an ephemeral store.
func NewMemoryStore(ctx context.Context, dbPath string) (*MemoryStore, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, &domain.ErrValidation{Field: "dbPath", Message: "required"}
	}

	dsn := dbPath
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = dbPath + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &MemoryStore{db: db, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *MemoryStore) migrate(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *MemoryStore) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Consult returns the category with the most votes for the query, or nil when
// nobody has corrected this merchant/description yet. Ties go to the most
// recently voted category.
func (s *MemoryStore) Consult(ctx context.Context, q domain.MemoryQuery) (*domain.LearnedMemory, error) {
	key := merchant.MemoryKey(q.Merchant, q.Description)
	if key == "" {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT category, votes FROM memory_votes
		 WHERE memory_key = ? AND votes > 0
		 ORDER BY votes DESC, updated_at DESC`, key)
	if err != nil {
		return nil, fmt.Errorf("query memory: %w", err)
	}
	defer rows.Close()

	var (
		winner      string
		winnerVotes int
		total       int
	)
	for rows.Next() {
		var (
			category string
			votes    int
		)
		if err := rows.Scan(&category, &votes); err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		if winner == "" {
			winner, winnerVotes = category, votes
		}
		total += votes
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memory: %w", err)
	}
	if winner == "" {
		return nil, nil
	}

	return &domain.LearnedMemory{
		Category:   winner,
		Confidence: float64(winnerVotes) / float64(total),
		Source:     SourceUserFeedback,
		Count:      winnerVotes,
	}, nil
}

// Record adds one vote for category under the query's memory key.
func (s *MemoryStore) Record(ctx context.Context, q domain.MemoryQuery, category string) (int, error) {
	key := merchant.MemoryKey(q.Merchant, q.Description)
	if key == "" {
		return 0, &domain.ErrValidation{Field: "description", Message: "description or merchant required"}
	}
	category = strings.TrimSpace(category)
	if category == "" {
		return 0, &domain.ErrValidation{Field: "category", Message: "required"}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO memory_votes (memory_key, category, votes, updated_at)
		 VALUES (?, ?, 1, ?)
		 ON CONFLICT(memory_key, category)
		 DO UPDATE SET votes = votes + 1, updated_at = excluded.updated_at`,
		key, category, s.now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("record vote: %w", err)
	}

	var votes int
	err = tx.QueryRowContext(ctx,
		`SELECT votes FROM memory_votes WHERE memory_key = ? AND category = ?`,
		key, category).Scan(&votes)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, &domain.ErrNotFound{Resource: "memory vote", ID: key}
	}
	if err != nil {
		return 0, fmt.Errorf("read vote: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return votes, nil
}
