package service

import (
	"context"
	"errors"

	"risk-service/internal/models"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// AuditSink receives recovered-conflict and lifecycle records for the audit
// trail. The Kafka producer implements it; tests inject a recorder.
type AuditSink interface {
	PublishAudit(ctx context.Context, kind string, fields map[string]interface{}) error
}

// EventIndexer mirrors breach events into the search index. Indexing is
// best-effort and never blocks the write path.
type EventIndexer interface {
	IndexEvent(ctx context.Context, event *models.BreachEvent) error
	SearchEvents(ctx context.Context, query string, limit int) ([]models.BreachEvent, error)
}

// ScoreHistorySink appends composite-score computations to the analytics
// store and reads them back for the history endpoint.
type ScoreHistorySink interface {
	AppendScore(ctx context.Context, rec *models.ScoreRecord) error
	ScoreHistory(ctx context.Context, subjectID string, limit int) ([]models.ScoreRecord, error)
}

// ExternalIDRevealer decrypts a subject's stored external identifier.
// SubjectService implements it.
type ExternalIDRevealer interface {
	RevealExternalID(ctx context.Context, subject *models.Subject) (string, error)
}
