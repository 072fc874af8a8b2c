package scylla

import (
	"context"
	"fmt"
	"sort"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"risk-service/internal/bucketing"
	"risk-service/internal/models"
	"risk-service/internal/util"
)

// eventRepository maintains the denormalized breach-event tables: a canonical
// row keyed by event id plus by-subject, by-org and unresolved projections.
// events_by_subject and events_by_org cluster on created_at DESC, so reads
// come back newest-first without sorting.
type eventRepository struct {
	client    *ScyllaClient
	bucketing *bucketing.BucketingManager
}

func NewEventRepository(client *ScyllaClient, bucketingMgr *bucketing.BucketingManager) EventRepository {
	return &eventRepository{
		client:    client,
		bucketing: bucketingMgr,
	}
}

func (r *eventRepository) CreateEvent(ctx context.Context, event *models.BreachEvent) error {
	batch := r.client.Batch(gocql.LoggedBatch).WithContext(ctx)

	batch.Query(r.client.Stmts.InsertEvent,
		event.EventID, event.SubjectID, event.OrgID, string(event.Category),
		string(event.Severity), event.EffectWeight, string(event.Status),
		event.Description, event.ManualEntry, event.CreatedAt,
		event.ResolutionNotes, event.ResolvedAt)

	batch.Query(r.client.Stmts.InsertEventBySubject,
		event.SubjectID, event.CreatedAt, event.EventID, event.OrgID,
		string(event.Category), string(event.Severity), event.EffectWeight,
		string(event.Status), event.Description, event.ManualEntry,
		event.ResolutionNotes, event.ResolvedAt)

	batch.Query(r.client.Stmts.InsertEventByOrg,
		event.OrgID, event.CreatedAt, event.EventID, event.SubjectID,
		string(event.Category), string(event.Severity), event.EffectWeight,
		string(event.Status), event.Description, event.ManualEntry,
		event.ResolutionNotes, event.ResolvedAt)

	batch.Query(r.client.Stmts.InsertUnresolved,
		r.bucketing.GetEventBucket(event.EventID), event.CreatedAt,
		event.EventID, event.SubjectID, event.OrgID, string(event.Category),
		string(event.Severity), event.EffectWeight, event.Description,
		event.ManualEntry)

	if err := r.client.ExecuteBatch(batch); err != nil {
		return fmt.Errorf("%w: failed to create breach event: %v", ErrStoreUnavailable, err)
	}

	util.Info("Breach event created",
		zap.String("event_id", event.EventID),
		zap.String("subject_id", event.SubjectID),
		zap.String("org_id", event.OrgID),
		zap.String("category", string(event.Category)),
		zap.Int("effect_weight", event.EffectWeight))
	return nil
}

func (r *eventRepository) GetEvent(ctx context.Context, eventID string) (*models.BreachEvent, error) {
	var ev models.BreachEvent
	var category, severity, status string
	err := r.client.Query(r.client.Stmts.SelectEvent, eventID).
		WithContext(ctx).Scan(
		&ev.EventID, &ev.SubjectID, &ev.OrgID, &category, &severity,
		&ev.EffectWeight, &status, &ev.Description, &ev.ManualEntry,
		&ev.CreatedAt, &ev.ResolutionNotes, &ev.ResolvedAt)
	if err == gocql.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get breach event: %v", ErrStoreUnavailable, err)
	}
	ev.Category = models.BreachCategory(category)
	ev.Severity = models.Severity(severity)
	ev.Status = models.EventStatus(status)
	return &ev, nil
}

func (r *eventRepository) ListBySubject(ctx context.Context, subjectID string) ([]models.BreachEvent, error) {
	return r.scanEvents(
		r.client.Query(r.client.Stmts.SelectEventsBySubject, subjectID).WithContext(ctx).Iter(),
		"list events by subject")
}

func (r *eventRepository) ListByOrganization(ctx context.Context, orgID string) ([]models.BreachEvent, error) {
	return r.scanEvents(
		r.client.Query(r.client.Stmts.SelectEventsByOrg, orgID).WithContext(ctx).Iter(),
		"list events by organization")
}

func (r *eventRepository) scanEvents(iter *gocql.Iter, op string) ([]models.BreachEvent, error) {
	events := []models.BreachEvent{}
	var ev models.BreachEvent
	var category, severity, status string
	for iter.Scan(&ev.EventID, &ev.SubjectID, &ev.OrgID, &category, &severity,
		&ev.EffectWeight, &status, &ev.Description, &ev.ManualEntry,
		&ev.CreatedAt, &ev.ResolutionNotes, &ev.ResolvedAt) {
		ev.Category = models.BreachCategory(category)
		ev.Severity = models.Severity(severity)
		ev.Status = models.EventStatus(status)
		events = append(events, ev)
		ev = models.BreachEvent{}
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("%w: failed to %s: %v", ErrStoreUnavailable, op, err)
	}
	return events, nil
}

// ListUnresolved fans out over every unresolved-events partition and merges
// the results newest-first.
func (r *eventRepository) ListUnresolved(ctx context.Context) ([]models.BreachEvent, error) {
	events := []models.BreachEvent{}

	for bucket := 0; bucket < r.bucketing.EventBuckets(); bucket++ {
		iter := r.client.Query(r.client.Stmts.SelectUnresolved, bucket).
			WithContext(ctx).Iter()

		var ev models.BreachEvent
		var category, severity string
		for iter.Scan(&ev.EventID, &ev.SubjectID, &ev.OrgID, &category,
			&severity, &ev.EffectWeight, &ev.Description, &ev.ManualEntry,
			&ev.CreatedAt) {
			ev.Category = models.BreachCategory(category)
			ev.Severity = models.Severity(severity)
			ev.Status = models.StatusOpen
			events = append(events, ev)
			ev = models.BreachEvent{}
		}
		if err := iter.Close(); err != nil {
			return nil, fmt.Errorf("%w: failed to list unresolved events: %v", ErrStoreUnavailable, err)
		}
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].CreatedAt.After(events[j].CreatedAt)
	})
	return events, nil
}

// MarkResolved closes the event everywhere in one logged batch: canonical
// row, both projections, and removal from the unresolved partition.
func (r *eventRepository) MarkResolved(ctx context.Context, event *models.BreachEvent) error {
	batch := r.client.Batch(gocql.LoggedBatch).WithContext(ctx)

	batch.Query(r.client.Stmts.ResolveEvent,
		string(models.StatusClosed), event.ResolutionNotes, event.ResolvedAt,
		event.EventID)
	batch.Query(r.client.Stmts.ResolveEventBySubject,
		string(models.StatusClosed), event.ResolutionNotes, event.ResolvedAt,
		event.SubjectID, event.CreatedAt, event.EventID)
	batch.Query(r.client.Stmts.ResolveEventByOrg,
		string(models.StatusClosed), event.ResolutionNotes, event.ResolvedAt,
		event.OrgID, event.CreatedAt, event.EventID)
	batch.Query(r.client.Stmts.DeleteUnresolved,
		r.bucketing.GetEventBucket(event.EventID), event.CreatedAt, event.EventID)

	if err := r.client.ExecuteBatch(batch); err != nil {
		return fmt.Errorf("%w: failed to resolve breach event: %v", ErrStoreUnavailable, err)
	}

	util.Info("Breach event resolved",
		zap.String("event_id", event.EventID),
		zap.String("subject_id", event.SubjectID))
	return nil
}
