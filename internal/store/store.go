// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/nvolkov/auditbot/internal/domain"
)

// Repository defines the interface for persisting completed audits.
// The dialog path is write-only; ListAudits exists for the operator surface.
type Repository interface {
	// AppendAudit persists one completed questionnaire and returns the
	// assigned record id.
	AppendAudit(ctx context.Context, projectType string, answers []domain.QA, at time.Time) (int64, error)

	// ListAudits returns the most recent completed audits, newest first.
	ListAudits(ctx context.Context, limit int) ([]domain.AuditRecord, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
