package domain

import "time"

// AuditRecord is one completed questionnaire as persisted by the store.
// Records are append-only: the system never updates or deletes them.
type AuditRecord struct {
	ID          int64     `json:"id"`
	ProjectType string    `json:"project_type"`
	Answers     []QA      `json:"answers"`
	CreatedAt   time.Time `json:"created_at"`
}
