package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"risk-service/internal/models"
	"risk-service/internal/repository/scylla"
	"risk-service/internal/scoring"
	"risk-service/internal/util"
)

// BreachEventService owns the breach event lifecycle: creation with the
// effect weight frozen at creation time, the one-way OPEN to CLOSED
// transition, and the read projections.
type BreachEventService struct {
	events   scylla.EventRepository
	orgs     scylla.OrganizationRepository
	resolver *scoring.EffectResolver
	indexer  EventIndexer
	audit    AuditSink
}

// CreateEventRequest is the caller's view of a new breach event.
type CreateEventRequest struct {
	SubjectID   string                `json:"subject_id"`
	OrgID       string                `json:"org_id"`
	Category    models.BreachCategory `json:"breach_category"`
	Severity    models.Severity       `json:"severity"`
	Description string                `json:"description"`
	ManualEntry bool                  `json:"manual_entry"`
}

func NewBreachEventService(
	events scylla.EventRepository,
	orgs scylla.OrganizationRepository,
	resolver *scoring.EffectResolver,
	indexer EventIndexer,
	audit AuditSink,
) *BreachEventService {
	return &BreachEventService{
		events:   events,
		orgs:     orgs,
		resolver: resolver,
		indexer:  indexer,
		audit:    audit,
	}
}

// CreateEvent records a new breach event. The effect weight is resolved once
// here and stored on the event; later declaration changes do not rewrite
// history.
func (s *BreachEventService) CreateEvent(ctx context.Context, req *CreateEventRequest) (*models.BreachEvent, error) {
	if err := s.validateCreateRequest(req); err != nil {
		return nil, err
	}

	org, err := s.orgs.GetOrganization(ctx, req.OrgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, fmt.Errorf("%w: organization %s", ErrNotFound, req.OrgID)
	}

	weight, err := s.resolver.ResolveEffect(ctx, req.OrgID, req.Category)
	if err != nil {
		return nil, err
	}

	severity := req.Severity
	if severity == "" {
		severity = models.SeverityLow
	}

	event := &models.BreachEvent{
		EventID:      uuid.NewString(),
		SubjectID:    req.SubjectID,
		OrgID:        req.OrgID,
		Category:     req.Category,
		Severity:     severity,
		EffectWeight: weight,
		Status:       models.StatusOpen,
		Description:  util.SanitizeInput(req.Description),
		ManualEntry:  req.ManualEntry,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.events.CreateEvent(ctx, event); err != nil {
		return nil, err
	}

	s.indexEvent(ctx, event)
	return event, nil
}

func (s *BreachEventService) validateCreateRequest(req *CreateEventRequest) error {
	if req.SubjectID == "" {
		return fmt.Errorf("%w: subject_id is required", ErrInvalidInput)
	}
	if req.OrgID == "" {
		return fmt.Errorf("%w: org_id is required", ErrInvalidInput)
	}
	if req.Category == "" {
		return fmt.Errorf("%w: breach_category is required", ErrInvalidInput)
	}
	if util.ContainsSuspicious(req.Description) {
		return fmt.Errorf("%w: description contains disallowed characters", ErrInvalidInput)
	}
	switch req.Severity {
	case "", models.SeverityLow, models.SeverityMedium, models.SeverityHigh, models.SeverityCritical:
	default:
		return fmt.Errorf("%w: unknown severity %q", ErrInvalidInput, req.Severity)
	}
	return nil
}

// ResolveEvent transitions an event OPEN -> CLOSED. A malformed id, an absent
// event, or an already-closed event all return (nil, nil): from the caller's
// side they are the same "nothing to resolve" answer, and the terminal state
// is never mutated twice.
func (s *BreachEventService) ResolveEvent(ctx context.Context, eventID, notes string) (*models.BreachEvent, error) {
	if _, err := uuid.Parse(eventID); err != nil {
		util.Debug("Malformed event id treated as not found", zap.String("event_id", eventID))
		return nil, nil
	}

	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event == nil || event.Resolved() {
		return nil, nil
	}

	now := time.Now().UTC()
	event.Status = models.StatusClosed
	event.ResolutionNotes = util.SanitizeInput(notes)
	event.ResolvedAt = &now

	if err := s.events.MarkResolved(ctx, event); err != nil {
		return nil, err
	}

	if s.audit != nil {
		if err := s.audit.PublishAudit(ctx, "event_resolved", map[string]interface{}{
			"event_id":   event.EventID,
			"subject_id": event.SubjectID,
			"org_id":     event.OrgID,
		}); err != nil {
			util.Warn("Failed to publish resolution audit record", zap.Error(err))
		}
	}

	s.indexEvent(ctx, event)
	return event, nil
}

// GetEvent returns one event by id, or nil when the id is malformed or
// unknown.
func (s *BreachEventService) GetEvent(ctx context.Context, eventID string) (*models.BreachEvent, error) {
	if _, err := uuid.Parse(eventID); err != nil {
		return nil, nil
	}
	return s.events.GetEvent(ctx, eventID)
}

// ListForSubject returns the subject's events newest-first; empty when none.
func (s *BreachEventService) ListForSubject(ctx context.Context, subjectID string) ([]models.BreachEvent, error) {
	return s.events.ListBySubject(ctx, subjectID)
}

// ListForOrganization returns the organization's events newest-first.
func (s *BreachEventService) ListForOrganization(ctx context.Context, orgID string) ([]models.BreachEvent, error) {
	return s.events.ListByOrganization(ctx, orgID)
}

// ListUnresolved returns every still-open event newest-first.
func (s *BreachEventService) ListUnresolved(ctx context.Context) ([]models.BreachEvent, error) {
	return s.events.ListUnresolved(ctx)
}

// Search runs a full-text query over the mirrored event documents.
func (s *BreachEventService) Search(ctx context.Context, query string, limit int) ([]models.BreachEvent, error) {
	if s.indexer == nil {
		return []models.BreachEvent{}, nil
	}
	if query == "" {
		return nil, fmt.Errorf("%w: search query is required", ErrInvalidInput)
	}
	return s.indexer.SearchEvents(ctx, query, limit)
}

func (s *BreachEventService) indexEvent(ctx context.Context, event *models.BreachEvent) {
	if s.indexer == nil {
		return
	}
	if err := s.indexer.IndexEvent(ctx, event); err != nil {
		util.Warn("Failed to index breach event",
			zap.String("event_id", event.EventID),
			zap.Error(err))
	}
}
