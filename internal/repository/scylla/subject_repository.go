package scylla

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"risk-service/internal/bucketing"
	"risk-service/internal/models"
	"risk-service/internal/util"
)

type subjectRepository struct {
	client    *ScyllaClient
	bucketing *bucketing.BucketingManager
}

func NewSubjectRepository(client *ScyllaClient, bucketingMgr *bucketing.BucketingManager) SubjectRepository {
	return &subjectRepository{
		client:    client,
		bucketing: bucketingMgr,
	}
}

// CreateSubject claims the external hash first with a conditional insert so
// two racing registrations cannot both win. The loser re-reads and returns
// the record the winner created, closing the TOCTOU window structurally.
func (r *subjectRepository) CreateSubject(ctx context.Context, subject *models.Subject) (*models.Subject, bool, error) {
	subject.SubjectBucket = r.bucketing.GetSubjectBucket(subject.SubjectID)

	var existingID string
	applied, err := r.client.Query(r.client.Stmts.InsertSubjectExternal,
		subject.ExternalHash, subject.SubjectID, subject.CreatedAt).
		WithContext(ctx).ScanCAS(&existingID)
	if err != nil {
		return nil, false, fmt.Errorf("%w: failed to claim external id: %v", ErrStoreUnavailable, err)
	}

	if !applied {
		// Uniqueness conflict: someone else registered this external id.
		existing, err := r.GetByID(ctx, existingID)
		if err != nil {
			return nil, false, err
		}
		if existing == nil {
			// Claim row exists but the subject row is not readable yet;
			// surface as a store fault so the caller retries.
			return nil, false, fmt.Errorf("%w: subject %s claimed but not found", ErrStoreUnavailable, existingID)
		}
		util.Info("Duplicate subject registration recovered",
			zap.String("subject_id", existing.SubjectID))
		return existing, false, nil
	}

	if err := r.client.Query(r.client.Stmts.InsertSubject,
		subject.SubjectBucket, subject.SubjectID, subject.ExternalHash,
		subject.ExternalEncrypted, subject.ExternalDEK, subject.ExternalKeyID,
		subject.FullName, subject.Email, subject.RefScore,
		subject.CreatedAt, subject.UpdatedAt).
		WithContext(ctx).Exec(); err != nil {
		return nil, false, fmt.Errorf("%w: failed to insert subject: %v", ErrStoreUnavailable, err)
	}

	return subject, true, nil
}

func (r *subjectRepository) GetByExternalHash(ctx context.Context, externalHash string) (*models.Subject, error) {
	var subjectID string
	err := r.client.Query(r.client.Stmts.SelectSubjectExternal, externalHash).
		WithContext(ctx).Scan(&subjectID)
	if err == gocql.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to look up external hash: %v", ErrStoreUnavailable, err)
	}
	return r.GetByID(ctx, subjectID)
}

func (r *subjectRepository) GetByID(ctx context.Context, subjectID string) (*models.Subject, error) {
	bucket := r.bucketing.GetSubjectBucket(subjectID)

	var s models.Subject
	err := r.client.Query(r.client.Stmts.SelectSubjectByID, bucket, subjectID).
		WithContext(ctx).Scan(
		&s.SubjectBucket, &s.SubjectID, &s.ExternalHash, &s.ExternalEncrypted,
		&s.ExternalDEK, &s.ExternalKeyID, &s.FullName, &s.Email, &s.RefScore,
		&s.CreatedAt, &s.UpdatedAt)
	if err == gocql.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get subject: %v", ErrStoreUnavailable, err)
	}
	return &s, nil
}

func (r *subjectRepository) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	iter := r.client.Query(r.client.Stmts.SelectAllSubjects).WithContext(ctx).Iter()

	subjects := []models.Subject{}
	var s models.Subject
	for iter.Scan(&s.SubjectBucket, &s.SubjectID, &s.ExternalHash,
		&s.ExternalEncrypted, &s.ExternalDEK, &s.ExternalKeyID,
		&s.FullName, &s.Email, &s.RefScore, &s.CreatedAt, &s.UpdatedAt) {
		subjects = append(subjects, s)
		s = models.Subject{}
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("%w: failed to list subjects: %v", ErrStoreUnavailable, err)
	}
	return subjects, nil
}

func (r *subjectRepository) UpdateProfile(ctx context.Context, subjectID, fullName, email string) error {
	bucket := r.bucketing.GetSubjectBucket(subjectID)
	now := time.Now().UTC()

	if err := r.client.Query(r.client.Stmts.UpdateSubjectProfile,
		fullName, email, now, bucket, subjectID).
		WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("%w: failed to update subject profile: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (r *subjectRepository) UpdateRefScore(ctx context.Context, subjectID string, refScore int) error {
	bucket := r.bucketing.GetSubjectBucket(subjectID)
	now := time.Now().UTC()

	if err := r.client.Query(r.client.Stmts.UpdateSubjectScore,
		refScore, now, bucket, subjectID).
		WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("%w: failed to update ref score: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (r *subjectRepository) DeleteSubject(ctx context.Context, subject *models.Subject) error {
	batch := r.client.Batch(gocql.LoggedBatch).WithContext(ctx)
	batch.Query(r.client.Stmts.DeleteSubject, subject.SubjectBucket, subject.SubjectID)
	batch.Query(r.client.Stmts.DeleteSubjectExternal, subject.ExternalHash)

	if err := r.client.ExecuteBatch(batch); err != nil {
		return fmt.Errorf("%w: failed to delete subject: %v", ErrStoreUnavailable, err)
	}

	util.Info("Subject deleted", zap.String("subject_id", subject.SubjectID))
	return nil
}
