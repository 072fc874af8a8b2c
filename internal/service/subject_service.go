package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"risk-service/internal/encryption"
	"risk-service/internal/models"
	"risk-service/internal/repository/scylla"
	"risk-service/internal/util"
)

const initialRefScore = 50

// SubjectService manages the scored entities. External identifiers never hit
// storage in plaintext: lookups use a SHA-256 hash and the value itself is
// envelope-encrypted.
type SubjectService struct {
	subjects   scylla.SubjectRepository
	devices    *DeviceService
	encryption *encryption.EncryptionManager
	audit      AuditSink
}

// RegisterRequest carries the fields needed to register a subject.
type RegisterRequest struct {
	ExternalID string `json:"external_id"`
	FullName   string `json:"full_name"`
	Email      string `json:"email"`
	// RemoteAddr is the caller's network address, observed as a device
	// fingerprint when present.
	RemoteAddr string `json:"-"`
}

func NewSubjectService(
	subjects scylla.SubjectRepository,
	devices *DeviceService,
	enc *encryption.EncryptionManager,
	audit AuditSink,
) *SubjectService {
	return &SubjectService{
		subjects:   subjects,
		devices:    devices,
		encryption: enc,
		audit:      audit,
	}
}

// hashExternalID normalizes and hashes an external identifier for lookup.
func hashExternalID(externalID string) string {
	normalized := strings.ToUpper(strings.TrimSpace(externalID))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// Register creates a subject for the given external identifier. Registering
// the same identifier twice returns the already-stored subject with
// created=false instead of an error.
func (s *SubjectService) Register(ctx context.Context, req *RegisterRequest) (*models.Subject, bool, error) {
	if strings.TrimSpace(req.ExternalID) == "" {
		return nil, false, fmt.Errorf("%w: external_id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(req.FullName) == "" {
		return nil, false, fmt.Errorf("%w: full_name is required", ErrInvalidInput)
	}
	if util.ContainsSuspicious(req.FullName) || util.ContainsSuspicious(req.Email) {
		return nil, false, fmt.Errorf("%w: profile fields contain disallowed characters", ErrInvalidInput)
	}

	encrypted, err := s.encryption.EncryptField(ctx, strings.ToUpper(strings.TrimSpace(req.ExternalID)))
	if err != nil {
		return nil, false, fmt.Errorf("encrypt external id: %w", err)
	}

	subject := &models.Subject{
		SubjectID:         uuid.NewString(),
		ExternalHash:      hashExternalID(req.ExternalID),
		ExternalEncrypted: encrypted.EncryptedValue,
		ExternalDEK:       encrypted.EncryptedDEK,
		ExternalKeyID:     encrypted.KeyID,
		FullName:          util.SanitizeInput(req.FullName),
		Email:             util.SanitizeInput(req.Email),
		RefScore:          initialRefScore,
		CreatedAt:         time.Now().UTC(),
	}

	stored, created, err := s.subjects.CreateSubject(ctx, subject)
	if err != nil {
		return nil, false, err
	}

	if !created && s.audit != nil {
		if err := s.audit.PublishAudit(ctx, "duplicate_registration", map[string]interface{}{
			"subject_id": stored.SubjectID,
		}); err != nil {
			util.Warn("Failed to publish duplicate registration audit record", zap.Error(err))
		}
	}

	s.observeCaller(ctx, stored.SubjectID, req.RemoteAddr)
	return stored, created, nil
}

// GetByExternal looks a subject up by its external identifier. The caller's
// address, when given, is recorded as a fingerprint observation.
func (s *SubjectService) GetByExternal(ctx context.Context, externalID, remoteAddr string) (*models.Subject, error) {
	if strings.TrimSpace(externalID) == "" {
		return nil, fmt.Errorf("%w: external_id is required", ErrInvalidInput)
	}
	subject, err := s.subjects.GetByExternalHash(ctx, hashExternalID(externalID))
	if err != nil {
		return nil, err
	}
	if subject == nil {
		return nil, nil
	}
	s.observeCaller(ctx, subject.SubjectID, remoteAddr)
	return subject, nil
}

// GetByID returns a subject by its internal id, or nil when unknown.
func (s *SubjectService) GetByID(ctx context.Context, subjectID string) (*models.Subject, error) {
	if _, err := uuid.Parse(subjectID); err != nil {
		return nil, nil
	}
	return s.subjects.GetByID(ctx, subjectID)
}

// List returns every registered subject.
func (s *SubjectService) List(ctx context.Context) ([]models.Subject, error) {
	return s.subjects.ListSubjects(ctx)
}

// UpdateProfile rewrites the mutable profile fields.
func (s *SubjectService) UpdateProfile(ctx context.Context, subjectID, fullName, email string) (*models.Subject, error) {
	subject, err := s.GetByID(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if subject == nil {
		return nil, fmt.Errorf("%w: subject %s", ErrNotFound, subjectID)
	}
	if strings.TrimSpace(fullName) == "" {
		return nil, fmt.Errorf("%w: full_name is required", ErrInvalidInput)
	}
	if util.ContainsSuspicious(fullName) || util.ContainsSuspicious(email) {
		return nil, fmt.Errorf("%w: profile fields contain disallowed characters", ErrInvalidInput)
	}

	fullName = util.SanitizeInput(fullName)
	email = util.SanitizeInput(email)
	if err := s.subjects.UpdateProfile(ctx, subjectID, fullName, email); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	subject.FullName = fullName
	subject.Email = email
	subject.UpdatedAt = &now
	return subject, nil
}

// Delete removes the subject, its lookup row, and its device fingerprints.
func (s *SubjectService) Delete(ctx context.Context, subjectID string) error {
	subject, err := s.GetByID(ctx, subjectID)
	if err != nil {
		return err
	}
	if subject == nil {
		return fmt.Errorf("%w: subject %s", ErrNotFound, subjectID)
	}

	if s.devices != nil {
		if err := s.devices.CleanupSubject(ctx, subjectID); err != nil {
			return err
		}
	}
	return s.subjects.DeleteSubject(ctx, subject)
}

// RevealExternalID decrypts the stored external identifier for the risk
// profile.
func (s *SubjectService) RevealExternalID(ctx context.Context, subject *models.Subject) (string, error) {
	return s.encryption.DecryptField(ctx, &encryption.EncryptedData{
		EncryptedValue: subject.ExternalEncrypted,
		EncryptedDEK:   subject.ExternalDEK,
		KeyID:          subject.ExternalKeyID,
	})
}

func (s *SubjectService) observeCaller(ctx context.Context, subjectID, remoteAddr string) {
	if s.devices == nil || remoteAddr == "" {
		return
	}
	if _, err := s.devices.Observe(ctx, subjectID, remoteAddr); err != nil {
		util.Warn("Failed to observe caller device",
			zap.String("subject_id", subjectID),
			zap.Error(err))
	}
}
