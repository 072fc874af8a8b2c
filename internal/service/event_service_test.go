package service

import (
	"context"
	"sort"
	"testing"

	"github.com/google/uuid"

	"risk-service/internal/models"
	"risk-service/internal/scoring"
)

type memEventRepo struct {
	events map[string]models.BreachEvent
}

func newMemEventRepo() *memEventRepo {
	return &memEventRepo{events: map[string]models.BreachEvent{}}
}

func (m *memEventRepo) CreateEvent(ctx context.Context, event *models.BreachEvent) error {
	m.events[event.EventID] = *event
	return nil
}

func (m *memEventRepo) GetEvent(ctx context.Context, eventID string) (*models.BreachEvent, error) {
	event, ok := m.events[eventID]
	if !ok {
		return nil, nil
	}
	return &event, nil
}

func (m *memEventRepo) listWhere(match func(models.BreachEvent) bool) []models.BreachEvent {
	var out []models.BreachEvent
	for _, event := range m.events {
		if match(event) {
			out = append(out, event)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memEventRepo) ListBySubject(ctx context.Context, subjectID string) ([]models.BreachEvent, error) {
	return m.listWhere(func(e models.BreachEvent) bool { return e.SubjectID == subjectID }), nil
}

func (m *memEventRepo) ListByOrganization(ctx context.Context, orgID string) ([]models.BreachEvent, error) {
	return m.listWhere(func(e models.BreachEvent) bool { return e.OrgID == orgID }), nil
}

func (m *memEventRepo) ListUnresolved(ctx context.Context) ([]models.BreachEvent, error) {
	return m.listWhere(func(e models.BreachEvent) bool { return e.Status == models.StatusOpen }), nil
}

func (m *memEventRepo) MarkResolved(ctx context.Context, event *models.BreachEvent) error {
	m.events[event.EventID] = *event
	return nil
}

type memOrgRepo struct {
	orgs  map[string]models.Organization
	decls map[string]models.BreachDeclaration
}

func newMemOrgRepo(orgIDs ...string) *memOrgRepo {
	repo := &memOrgRepo{
		orgs:  map[string]models.Organization{},
		decls: map[string]models.BreachDeclaration{},
	}
	for _, id := range orgIDs {
		repo.orgs[id] = models.Organization{OrgID: id, Name: id}
	}
	return repo
}

func (m *memOrgRepo) CreateOrganization(ctx context.Context, org *models.Organization) (*models.Organization, bool, error) {
	if existing, ok := m.orgs[org.OrgID]; ok {
		return &existing, false, nil
	}
	m.orgs[org.OrgID] = *org
	return org, true, nil
}

func (m *memOrgRepo) GetOrganization(ctx context.Context, orgID string) (*models.Organization, error) {
	org, ok := m.orgs[orgID]
	if !ok {
		return nil, nil
	}
	return &org, nil
}

func (m *memOrgRepo) ListOrganizations(ctx context.Context) ([]models.Organization, error) {
	var out []models.Organization
	for _, org := range m.orgs {
		out = append(out, org)
	}
	return out, nil
}

func (m *memOrgRepo) UpsertDeclaration(ctx context.Context, decl *models.BreachDeclaration) error {
	m.decls[decl.OrgID] = *decl
	return nil
}

func (m *memOrgRepo) GetDeclaration(ctx context.Context, orgID string) (*models.BreachDeclaration, error) {
	decl, ok := m.decls[orgID]
	if !ok {
		return nil, nil
	}
	return &decl, nil
}

func (m *memOrgRepo) DeleteDeclaration(ctx context.Context, orgID string) error {
	delete(m.decls, orgID)
	return nil
}

func (m *memOrgRepo) ListDeclarations(ctx context.Context) ([]models.BreachDeclaration, error) {
	var out []models.BreachDeclaration
	for _, decl := range m.decls {
		out = append(out, decl)
	}
	return out, nil
}

func newEventServiceForTest(events *memEventRepo, orgs *memOrgRepo) *BreachEventService {
	resolver := scoring.NewEffectResolver(scoring.DefaultEffectTable(), orgs, nil)
	return NewBreachEventService(events, orgs, resolver, nil, nil)
}

func TestCreateEventFreezesEffectWeight(t *testing.T) {
	ctx := context.Background()
	events := newMemEventRepo()
	orgs := newMemOrgRepo("org-1")
	orgs.decls["org-1"] = models.BreachDeclaration{
		OrgID:        "org-1",
		Category:     models.CategoryFraud,
		EffectWeight: 90,
	}
	svc := newEventServiceForTest(events, orgs)

	event, err := svc.CreateEvent(ctx, &CreateEventRequest{
		SubjectID: "subj-1",
		OrgID:     "org-1",
		Category:  models.CategoryFraud,
		Severity:  models.SeverityHigh,
	})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if event.EffectWeight != 90 {
		t.Errorf("effect weight = %d, want declared 90", event.EffectWeight)
	}
	if event.Status != models.StatusOpen {
		t.Errorf("status = %s, want OPEN", event.Status)
	}

	// Changing the declaration later must not rewrite the stored weight.
	orgs.decls["org-1"] = models.BreachDeclaration{
		OrgID:        "org-1",
		Category:     models.CategoryFraud,
		EffectWeight: 10,
	}
	stored, _ := events.GetEvent(ctx, event.EventID)
	if stored.EffectWeight != 90 {
		t.Errorf("stored weight = %d, weight must be frozen at creation", stored.EffectWeight)
	}
}

func TestCreateEventMismatchedCategoryUsesTable(t *testing.T) {
	ctx := context.Background()
	events := newMemEventRepo()
	orgs := newMemOrgRepo("org-1")
	orgs.decls["org-1"] = models.BreachDeclaration{
		OrgID:        "org-1",
		Category:     models.CategoryFraud,
		EffectWeight: 90,
	}
	svc := newEventServiceForTest(events, orgs)

	event, err := svc.CreateEvent(ctx, &CreateEventRequest{
		SubjectID: "subj-1",
		OrgID:     "org-1",
		Category:  models.CategoryDataLeak,
	})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if event.EffectWeight != 85 {
		t.Errorf("effect weight = %d, want table value 85 for DATA_LEAK", event.EffectWeight)
	}
}

func TestCreateEventUnknownOrganization(t *testing.T) {
	svc := newEventServiceForTest(newMemEventRepo(), newMemOrgRepo())

	_, err := svc.CreateEvent(context.Background(), &CreateEventRequest{
		SubjectID: "subj-1",
		OrgID:     "ghost",
		Category:  models.CategoryFraud,
	})
	if err == nil {
		t.Fatal("expected error for unknown organization")
	}
}

func TestCreateEventValidation(t *testing.T) {
	svc := newEventServiceForTest(newMemEventRepo(), newMemOrgRepo("org-1"))

	cases := []CreateEventRequest{
		{OrgID: "org-1", Category: models.CategoryFraud},
		{SubjectID: "subj-1", Category: models.CategoryFraud},
		{SubjectID: "subj-1", OrgID: "org-1"},
		{SubjectID: "subj-1", OrgID: "org-1", Category: models.CategoryFraud, Severity: "EXTREME"},
	}
	for i, req := range cases {
		if _, err := svc.CreateEvent(context.Background(), &req); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}

func TestResolveEventOneWayTransition(t *testing.T) {
	ctx := context.Background()
	events := newMemEventRepo()
	svc := newEventServiceForTest(events, newMemOrgRepo("org-1"))

	created, err := svc.CreateEvent(ctx, &CreateEventRequest{
		SubjectID: "subj-1",
		OrgID:     "org-1",
		Category:  models.CategoryFraud,
	})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}

	resolved, err := svc.ResolveEvent(ctx, created.EventID, "confirmed and handled")
	if err != nil {
		t.Fatalf("ResolveEvent: %v", err)
	}
	if resolved == nil {
		t.Fatal("first resolve must return the closed event")
	}
	if resolved.Status != models.StatusClosed || resolved.ResolvedAt == nil {
		t.Errorf("event = %+v, want CLOSED with timestamp", resolved)
	}
	if resolved.ResolutionNotes != "confirmed and handled" {
		t.Errorf("notes = %q", resolved.ResolutionNotes)
	}

	// Second resolve is a no-op.
	again, err := svc.ResolveEvent(ctx, created.EventID, "ignored")
	if err != nil {
		t.Fatalf("second ResolveEvent: %v", err)
	}
	if again != nil {
		t.Error("resolving a closed event must return nil")
	}
	stored, _ := events.GetEvent(ctx, created.EventID)
	if stored.ResolutionNotes != "confirmed and handled" {
		t.Errorf("notes overwritten to %q, terminal state must not change", stored.ResolutionNotes)
	}
}

func TestResolveEventAbsentOrMalformed(t *testing.T) {
	svc := newEventServiceForTest(newMemEventRepo(), newMemOrgRepo())

	event, err := svc.ResolveEvent(context.Background(), "not-a-uuid", "")
	if err != nil || event != nil {
		t.Errorf("malformed id: got (%v, %v), want (nil, nil)", event, err)
	}

	event, err = svc.ResolveEvent(context.Background(), uuid.NewString(), "")
	if err != nil || event != nil {
		t.Errorf("absent id: got (%v, %v), want (nil, nil)", event, err)
	}
}

func TestListUnresolvedExcludesClosed(t *testing.T) {
	ctx := context.Background()
	events := newMemEventRepo()
	svc := newEventServiceForTest(events, newMemOrgRepo("org-1"))

	first, _ := svc.CreateEvent(ctx, &CreateEventRequest{
		SubjectID: "subj-1", OrgID: "org-1", Category: models.CategoryFraud,
	})
	svc.CreateEvent(ctx, &CreateEventRequest{
		SubjectID: "subj-2", OrgID: "org-1", Category: models.CategoryDataLeak,
	})
	if _, err := svc.ResolveEvent(ctx, first.EventID, ""); err != nil {
		t.Fatalf("ResolveEvent: %v", err)
	}

	open, err := svc.ListUnresolved(ctx)
	if err != nil {
		t.Fatalf("ListUnresolved: %v", err)
	}
	if len(open) != 1 || open[0].SubjectID != "subj-2" {
		t.Errorf("open events = %+v, want only subj-2's event", open)
	}
}
