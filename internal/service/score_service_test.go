package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"risk-service/internal/models"
	"risk-service/internal/scoring"
)

type memSubjectRepo struct {
	subjects map[string]models.Subject
}

func newMemSubjectRepo(ids ...string) *memSubjectRepo {
	repo := &memSubjectRepo{subjects: map[string]models.Subject{}}
	for _, id := range ids {
		repo.subjects[id] = models.Subject{SubjectID: id, RefScore: 50, CreatedAt: time.Now().UTC()}
	}
	return repo
}

func (m *memSubjectRepo) CreateSubject(ctx context.Context, subject *models.Subject) (*models.Subject, bool, error) {
	for _, existing := range m.subjects {
		if existing.ExternalHash == subject.ExternalHash {
			copied := existing
			return &copied, false, nil
		}
	}
	m.subjects[subject.SubjectID] = *subject
	return subject, true, nil
}

func (m *memSubjectRepo) GetByExternalHash(ctx context.Context, externalHash string) (*models.Subject, error) {
	for _, subject := range m.subjects {
		if subject.ExternalHash == externalHash {
			copied := subject
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memSubjectRepo) GetByID(ctx context.Context, subjectID string) (*models.Subject, error) {
	subject, ok := m.subjects[subjectID]
	if !ok {
		return nil, nil
	}
	return &subject, nil
}

func (m *memSubjectRepo) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	var out []models.Subject
	for _, subject := range m.subjects {
		out = append(out, subject)
	}
	return out, nil
}

func (m *memSubjectRepo) UpdateProfile(ctx context.Context, subjectID, fullName, email string) error {
	subject := m.subjects[subjectID]
	subject.FullName = fullName
	subject.Email = email
	m.subjects[subjectID] = subject
	return nil
}

func (m *memSubjectRepo) UpdateRefScore(ctx context.Context, subjectID string, refScore int) error {
	subject := m.subjects[subjectID]
	subject.RefScore = refScore
	m.subjects[subjectID] = subject
	return nil
}

func (m *memSubjectRepo) DeleteSubject(ctx context.Context, subject *models.Subject) error {
	delete(m.subjects, subject.SubjectID)
	return nil
}

type recordingHistorySink struct {
	records []models.ScoreRecord
}

func (r *recordingHistorySink) AppendScore(ctx context.Context, rec *models.ScoreRecord) error {
	r.records = append(r.records, *rec)
	return nil
}

func (r *recordingHistorySink) ScoreHistory(ctx context.Context, subjectID string, limit int) ([]models.ScoreRecord, error) {
	var out []models.ScoreRecord
	for _, rec := range r.records {
		if rec.SubjectID == subjectID {
			out = append(out, rec)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type staticRevealer struct {
	externalID string
	err        error
}

func (s *staticRevealer) RevealExternalID(ctx context.Context, subject *models.Subject) (string, error) {
	return s.externalID, s.err
}

func newScoreServiceForTest(
	subjects *memSubjectRepo,
	events *memEventRepo,
	fps *memFingerprintRepo,
	history ScoreHistorySink,
) *ScoreService {
	devices := newDeviceServiceForTest(fps, &countingProvider{})
	return NewScoreService(subjects, events, fps, devices, scoring.DefaultWeights(), history,
		&staticRevealer{externalID: "AB1234567"})
}

func TestComputeNoEventsStoresNeutralRefScore(t *testing.T) {
	ctx := context.Background()
	subjects := newMemSubjectRepo("subj-1")
	history := &recordingHistorySink{}
	svc := newScoreServiceForTest(subjects, newMemEventRepo(), newMemFingerprintRepo(), history)

	result, err := svc.Compute(ctx, "subj-1")
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if result.Score != scoring.NeutralScore {
		t.Errorf("score = %v, want neutral %v", result.Score, scoring.NeutralScore)
	}
	if result.RefScore != 50 {
		t.Errorf("ref score = %d, want 50", result.RefScore)
	}

	stored, _ := subjects.GetByID(ctx, "subj-1")
	if stored.RefScore != 50 {
		t.Errorf("stored ref score = %d, want 50", stored.RefScore)
	}
	if len(history.records) != 1 {
		t.Errorf("history records = %d, want 1", len(history.records))
	}
}

func TestComputeIsRepeatable(t *testing.T) {
	ctx := context.Background()
	subjects := newMemSubjectRepo("subj-1")
	events := newMemEventRepo()
	events.CreateEvent(ctx, &models.BreachEvent{
		EventID:   "e1",
		SubjectID: "subj-1",
		OrgID:     "org-1",
		Severity:  models.SeverityCritical,
		Status:    models.StatusOpen,
		CreatedAt: time.Now().UTC(),
	})
	svc := newScoreServiceForTest(subjects, events, newMemFingerprintRepo(), nil)

	first, err := svc.Compute(ctx, "subj-1")
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	second, err := svc.Compute(ctx, "subj-1")
	if err != nil {
		t.Fatalf("second Compute: %v", err)
	}
	if first.Score != second.Score || first.RefScore != second.RefScore {
		t.Errorf("recompute changed result: %v vs %v", first, second)
	}
	if first.Score <= scoring.NeutralScore {
		t.Errorf("score = %v, want above neutral with a critical event", first.Score)
	}
}

func TestComputeUnknownSubject(t *testing.T) {
	svc := newScoreServiceForTest(newMemSubjectRepo(), newMemEventRepo(), newMemFingerprintRepo(), nil)

	if _, err := svc.Compute(context.Background(), "ghost"); err == nil {
		t.Fatal("expected error for unknown subject")
	}
}

func TestProfileIncludesDevicesAndOpenEvents(t *testing.T) {
	ctx := context.Background()
	subjects := newMemSubjectRepo("subj-1")
	events := newMemEventRepo()
	fps := newMemFingerprintRepo()
	fps.Upsert(ctx, &models.DeviceFingerprint{
		SubjectID:      "subj-1",
		NetworkAddress: "203.0.113.7",
		IsVPN:          true,
		FraudScore:     30,
	})
	now := time.Now().UTC()
	events.CreateEvent(ctx, &models.BreachEvent{
		EventID: "e1", SubjectID: "subj-1", OrgID: "org-1",
		Severity: models.SeverityLow, Status: models.StatusOpen, CreatedAt: now,
	})
	resolvedAt := now
	events.CreateEvent(ctx, &models.BreachEvent{
		EventID: "e2", SubjectID: "subj-1", OrgID: "org-1",
		Severity: models.SeverityLow, Status: models.StatusClosed,
		CreatedAt: now, ResolvedAt: &resolvedAt,
	})

	svc := newScoreServiceForTest(subjects, events, fps, nil)
	profile, err := svc.Profile(ctx, "subj-1")
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if profile.OpenEvents != 1 {
		t.Errorf("open events = %d, want 1", profile.OpenEvents)
	}
	if len(profile.Devices) != 1 {
		t.Errorf("devices = %d, want 1", len(profile.Devices))
	}
	// Max fraud 30 + VPN bonus 10.
	if profile.DeviceRisk != 40 {
		t.Errorf("device risk = %d, want 40", profile.DeviceRisk)
	}
	if profile.Score == nil || profile.Score.EventCount != 2 {
		t.Errorf("score = %+v, want event count 2", profile.Score)
	}
	if profile.ExternalID != "AB1234567" {
		t.Errorf("external id = %q, want AB1234567", profile.ExternalID)
	}
}

func TestProfileServedWhenRevealFails(t *testing.T) {
	ctx := context.Background()
	subjects := newMemSubjectRepo("subj-1")
	fps := newMemFingerprintRepo()
	devices := newDeviceServiceForTest(fps, &countingProvider{})
	svc := NewScoreService(subjects, newMemEventRepo(), fps, devices,
		scoring.DefaultWeights(), nil,
		&staticRevealer{err: errors.New("unwrap failed")})

	profile, err := svc.Profile(ctx, "subj-1")
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if profile.ExternalID != "" {
		t.Errorf("external id = %q, want empty on reveal failure", profile.ExternalID)
	}
}

func TestHistoryWithoutSink(t *testing.T) {
	svc := newScoreServiceForTest(newMemSubjectRepo("subj-1"), newMemEventRepo(), newMemFingerprintRepo(), nil)

	records, err := svc.History(context.Background(), "subj-1", 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("records = %d, want empty without a sink", len(records))
	}
}
