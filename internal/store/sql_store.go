// Package store persists classified job records and ignored-email
// records behind the core.JobStore and core.IgnoredStore ports, backed
// by sqlite or mysql depending on configuration.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	"github.com/jobtrail/jobtrail/internal/config"
	"github.com/jobtrail/jobtrail/internal/core"
	"go.uber.org/zap"
)

// SQLStore implements core.JobStore and core.IgnoredStore
type SQLStore struct {
	db     *sql.DB
	driver string
	logger *zap.Logger
}

// Open opens the configured database and creates the schema if needed
func Open(cfg *config.Config, logger *zap.Logger) (*SQLStore, error) {
	driver := cfg.GetString("store.driver")

	var db *sql.DB
	var err error
	switch driver {
	case "sqlite":
		path := cfg.GetString("store.sqlite_path")
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
		db, err = sql.Open("sqlite3", path)
	case "mysql":
		db, err = sql.Open("mysql", cfg.GetString("store.mysql_dsn"))
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	s := &SQLStore{db: db, driver: driver, logger: logger}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB wraps an existing database handle, creating the schema.
// Intended for tests.
func NewWithDB(db *sql.DB, driver string, logger *zap.Logger) (*SQLStore, error) {
	s := &SQLStore{db: db, driver: driver, logger: logger}
	if err := s.createSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) createSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS job_records (
			external_id VARCHAR(128) PRIMARY KEY,
			thread_id VARCHAR(128),
			label VARCHAR(64),
			company TEXT,
			role TEXT,
			salary TEXT,
			summary TEXT,
			method VARCHAR(64),
			confidence VARCHAR(16),
			updated_at TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS ignored_emails (
			external_id VARCHAR(128) PRIMARY KEY,
			subject TEXT,
			sender TEXT,
			reason VARCHAR(64),
			created_at TIMESTAMP
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// UpsertByExternalID inserts or updates a job record in place. A
// second call for the same id updates, never duplicates.
func (s *SQLStore) UpsertByExternalID(ctx context.Context, rec *core.JobRecord) error {
	var stmt string
	if s.driver == "mysql" {
		stmt = `INSERT INTO job_records
			(external_id, thread_id, label, company, role, salary, summary, method, confidence, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE
			thread_id=VALUES(thread_id), label=VALUES(label), company=VALUES(company),
			role=VALUES(role), salary=VALUES(salary), summary=VALUES(summary),
			method=VALUES(method), confidence=VALUES(confidence), updated_at=VALUES(updated_at)`
	} else {
		stmt = `INSERT INTO job_records
			(external_id, thread_id, label, company, role, salary, summary, method, confidence, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(external_id) DO UPDATE SET
			thread_id=excluded.thread_id, label=excluded.label, company=excluded.company,
			role=excluded.role, salary=excluded.salary, summary=excluded.summary,
			method=excluded.method, confidence=excluded.confidence, updated_at=excluded.updated_at`
	}

	updatedAt := rec.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, stmt,
		rec.ExternalID, rec.ThreadID, rec.Label, rec.Company, rec.Role,
		rec.Salary, rec.Summary, rec.Method, rec.Confidence, updatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert job record %s: %w", rec.ExternalID, err)
	}
	return nil
}

// FindByExternalID returns the job record for id, or nil when absent
func (s *SQLStore) FindByExternalID(ctx context.Context, id string) (*core.JobRecord, error) {
	rec := &core.JobRecord{}
	err := s.db.QueryRowContext(ctx, `
		SELECT external_id, thread_id, label, company, role, salary, summary, method, confidence, updated_at
		FROM job_records WHERE external_id = ?`, id).
		Scan(&rec.ExternalID, &rec.ThreadID, &rec.Label, &rec.Company, &rec.Role,
			&rec.Salary, &rec.Summary, &rec.Method, &rec.Confidence, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query job record %s: %w", id, err)
	}
	return rec, nil
}

// Ignored returns the ignored-email view of the store
func (s *SQLStore) Ignored() *IgnoredView {
	return &IgnoredView{s: s}
}

// IgnoredView implements core.IgnoredStore over the same database
type IgnoredView struct {
	s *SQLStore
}

// Create records a message the pipeline evaluated and dismissed.
// Re-creating an existing id is a no-op.
func (v *IgnoredView) Create(ctx context.Context, rec *core.IgnoredRecord) error {
	var stmt string
	if v.s.driver == "mysql" {
		stmt = `INSERT IGNORE INTO ignored_emails (external_id, subject, sender, reason, created_at)
			VALUES (?, ?, ?, ?, ?)`
	} else {
		stmt = `INSERT OR IGNORE INTO ignored_emails (external_id, subject, sender, reason, created_at)
			VALUES (?, ?, ?, ?, ?)`
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := v.s.db.ExecContext(ctx, stmt, rec.ExternalID, rec.Subject, rec.From, rec.Reason, createdAt)
	if err != nil {
		return fmt.Errorf("failed to create ignored record %s: %w", rec.ExternalID, err)
	}
	return nil
}

// FindByExternalID returns the ignored record for id, or nil when absent
func (v *IgnoredView) FindByExternalID(ctx context.Context, id string) (*core.IgnoredRecord, error) {
	rec := &core.IgnoredRecord{}
	err := v.s.db.QueryRowContext(ctx, `
		SELECT external_id, subject, sender, reason, created_at
		FROM ignored_emails WHERE external_id = ?`, id).
		Scan(&rec.ExternalID, &rec.Subject, &rec.From, &rec.Reason, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query ignored record %s: %w", id, err)
	}
	return rec, nil
}

// Close closes the underlying database
func (s *SQLStore) Close() error {
	return s.db.Close()
}
