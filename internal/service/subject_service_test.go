package service

import (
	"context"
	"errors"
	"testing"

	"risk-service/internal/config"
	"risk-service/internal/encryption"
	"risk-service/internal/models"
)

type serviceAuditRecorder struct {
	kinds []string
}

func (r *serviceAuditRecorder) PublishAudit(ctx context.Context, kind string, fields map[string]interface{}) error {
	r.kinds = append(r.kinds, kind)
	return nil
}

func newSubjectServiceForTest(subjects *memSubjectRepo, fps *memFingerprintRepo, audit AuditSink) *SubjectService {
	enc := encryption.NewEncryptionManager(&config.Config{}, nil)
	devices := newDeviceServiceForTest(fps, &countingProvider{})
	return NewSubjectService(subjects, devices, enc, audit)
}

func TestRegisterEncryptsExternalID(t *testing.T) {
	ctx := context.Background()
	subjects := newMemSubjectRepo()
	svc := newSubjectServiceForTest(subjects, newMemFingerprintRepo(), nil)

	subject, created, err := svc.Register(ctx, &RegisterRequest{
		ExternalID: "AB1234567",
		FullName:   "Jo Smith",
		Email:      "jo@example.com",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !created {
		t.Error("first register must report created=true")
	}
	if subject.RefScore != 50 {
		t.Errorf("initial ref score = %d, want neutral 50", subject.RefScore)
	}
	if subject.ExternalEncrypted == "" || subject.ExternalEncrypted == "AB1234567" {
		t.Error("external id must be stored encrypted")
	}
	if subject.ExternalHash == "" || subject.ExternalHash == "AB1234567" {
		t.Error("external hash must not be the raw identifier")
	}

	revealed, err := svc.RevealExternalID(ctx, subject)
	if err != nil {
		t.Fatalf("RevealExternalID: %v", err)
	}
	if revealed != "AB1234567" {
		t.Errorf("revealed = %q, want round-trip of the external id", revealed)
	}
}

func TestRegisterDuplicateReturnsExisting(t *testing.T) {
	ctx := context.Background()
	audit := &serviceAuditRecorder{}
	svc := newSubjectServiceForTest(newMemSubjectRepo(), newMemFingerprintRepo(), audit)

	first, _, err := svc.Register(ctx, &RegisterRequest{ExternalID: "AB1234567", FullName: "Jo Smith"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	// Same identifier with different spacing and case is the same subject.
	second, created, err := svc.Register(ctx, &RegisterRequest{ExternalID: "  ab1234567 ", FullName: "Someone Else"})
	if err != nil {
		t.Fatalf("second Register: %v", err)
	}
	if created {
		t.Error("duplicate register must report created=false")
	}
	if second.SubjectID != first.SubjectID {
		t.Errorf("subject id = %s, want existing %s", second.SubjectID, first.SubjectID)
	}
	if len(audit.kinds) != 1 || audit.kinds[0] != "duplicate_registration" {
		t.Errorf("audit kinds = %v, want one duplicate_registration", audit.kinds)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newSubjectServiceForTest(newMemSubjectRepo(), newMemFingerprintRepo(), nil)
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, &RegisterRequest{FullName: "Jo"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("missing external id: err = %v, want ErrInvalidInput", err)
	}
	if _, _, err := svc.Register(ctx, &RegisterRequest{ExternalID: "AB1"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("missing name: err = %v, want ErrInvalidInput", err)
	}
}

func TestGetByExternalNormalizesIdentifier(t *testing.T) {
	ctx := context.Background()
	svc := newSubjectServiceForTest(newMemSubjectRepo(), newMemFingerprintRepo(), nil)

	registered, _, err := svc.Register(ctx, &RegisterRequest{ExternalID: "AB1234567", FullName: "Jo Smith"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	found, err := svc.GetByExternal(ctx, "ab1234567", "")
	if err != nil {
		t.Fatalf("GetByExternal: %v", err)
	}
	if found == nil || found.SubjectID != registered.SubjectID {
		t.Errorf("found = %+v, want the registered subject", found)
	}

	missing, err := svc.GetByExternal(ctx, "ZZ0000000", "")
	if err != nil {
		t.Fatalf("GetByExternal unknown: %v", err)
	}
	if missing != nil {
		t.Errorf("missing = %+v, want nil", missing)
	}
}

func TestDeleteCascadesFingerprints(t *testing.T) {
	ctx := context.Background()
	fps := newMemFingerprintRepo()
	svc := newSubjectServiceForTest(newMemSubjectRepo(), fps, nil)

	subject, _, err := svc.Register(ctx, &RegisterRequest{ExternalID: "AB1234567", FullName: "Jo Smith"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	fps.Upsert(ctx, &models.DeviceFingerprint{SubjectID: subject.SubjectID, NetworkAddress: "203.0.113.7"})

	if err := svc.Delete(ctx, subject.SubjectID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	remaining, _ := fps.ListBySubject(ctx, subject.SubjectID)
	if len(remaining) != 0 {
		t.Errorf("fingerprints = %d, want cascade delete", len(remaining))
	}

	gone, err := svc.GetByID(ctx, subject.SubjectID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if gone != nil {
		t.Errorf("subject = %+v, want nil after delete", gone)
	}
}

func TestDeleteUnknownSubject(t *testing.T) {
	svc := newSubjectServiceForTest(newMemSubjectRepo(), newMemFingerprintRepo(), nil)

	err := svc.Delete(context.Background(), "2f9c6f0e-9f9f-4717-9a62-0b3c9d4d2f10")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
