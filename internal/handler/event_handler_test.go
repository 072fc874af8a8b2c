package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"risk-service/internal/config"
	"risk-service/internal/encryption"
	"risk-service/internal/models"
	"risk-service/internal/repository/scylla"
	"risk-service/internal/service"
)

// unavailableSubjectRepo fails every read the way the store layer does during
// an outage.
type unavailableSubjectRepo struct{}

func (r *unavailableSubjectRepo) storeErr(op string) error {
	return fmt.Errorf("%w: %s", scylla.ErrStoreUnavailable, op)
}

func (r *unavailableSubjectRepo) CreateSubject(ctx context.Context, subject *models.Subject) (*models.Subject, bool, error) {
	return nil, false, r.storeErr("create subject")
}

func (r *unavailableSubjectRepo) GetByExternalHash(ctx context.Context, externalHash string) (*models.Subject, error) {
	return nil, r.storeErr("get by external hash")
}

func (r *unavailableSubjectRepo) GetByID(ctx context.Context, subjectID string) (*models.Subject, error) {
	return nil, r.storeErr("get by id")
}

func (r *unavailableSubjectRepo) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	return nil, r.storeErr("list subjects")
}

func (r *unavailableSubjectRepo) UpdateProfile(ctx context.Context, subjectID, fullName, email string) error {
	return r.storeErr("update profile")
}

func (r *unavailableSubjectRepo) UpdateRefScore(ctx context.Context, subjectID string, refScore int) error {
	return r.storeErr("update ref score")
}

func (r *unavailableSubjectRepo) DeleteSubject(ctx context.Context, subject *models.Subject) error {
	return r.storeErr("delete subject")
}

// A store outage while resolving the external identifier must fail the
// request, not create an event keyed to the raw identifier string.
func TestCreateEventSubjectStoreOutage(t *testing.T) {
	subjects := service.NewSubjectService(
		&unavailableSubjectRepo{},
		nil,
		encryption.NewEncryptionManager(&config.Config{}, nil),
		nil,
	)
	h := NewEventHandler(service.NewBreachEventService(nil, nil, nil, nil, nil), subjects, zap.NewNop())

	body, _ := json.Marshal(map[string]string{
		"subject_id": "AB1234567",
		"org_id":     "org-1",
		"category":   "FRAUD",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}

	var resp Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Success {
		t.Error("expected success=false")
	}
	if resp.Message != "Failed to resolve subject" {
		t.Errorf("message = %q", resp.Message)
	}
}
