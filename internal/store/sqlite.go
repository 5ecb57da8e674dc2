package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nvolkov/auditbot/internal/domain"
	"github.com/nvolkov/auditbot/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS audits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project_type TEXT NOT NULL,
		answers_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_audits_created ON audits(created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// AppendAudit persists one completed questionnaire.
func (s *SQLiteStore) AppendAudit(ctx context.Context, projectType string, answers []domain.QA, at time.Time) (int64, error) {
	payload, err := json.Marshal(answers)
	if err != nil {
		return 0, fmt.Errorf("serialize answers: %w", err)
	}

	query := `INSERT INTO audits (project_type, answers_json, created_at) VALUES (?, ?, ?)`

	res, err := s.db.ExecContext(ctx, query, projectType, string(payload), at.UTC().Format(time.RFC3339))
	if shared.IsSQLiteConflictError(err) {
		// One retry on a busy database; the write is idempotent from the
		// caller's point of view only if it did not land the first time.
		res, err = s.db.ExecContext(ctx, query, projectType, string(payload), at.UTC().Format(time.RFC3339))
	}
	if err != nil {
		return 0, fmt.Errorf("insert audit: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read audit id: %w", err)
	}
	return id, nil
}

// ListAudits returns the most recent completed audits, newest first.
func (s *SQLiteStore) ListAudits(ctx context.Context, limit int) ([]domain.AuditRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, project_type, answers_json, created_at
		FROM audits ORDER BY id DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query audits: %w", err)
	}
	defer rows.Close()

	var records []domain.AuditRecord
	for rows.Next() {
		var rec domain.AuditRecord
		var answersJSON, createdAt string
		if err := rows.Scan(&rec.ID, &rec.ProjectType, &answersJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		if err := json.Unmarshal([]byte(answersJSON), &rec.Answers); err != nil {
			return nil, fmt.Errorf("decode answers for audit %d: %w", rec.ID, err)
		}
		rec.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at for audit %d: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit rows: %w", err)
	}
	return records, nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
