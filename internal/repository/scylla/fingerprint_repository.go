package scylla

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"risk-service/internal/models"
	"risk-service/internal/util"
)

type fingerprintRepository struct {
	client *ScyllaClient
}

func NewFingerprintRepository(client *ScyllaClient) FingerprintRepository {
	return &fingerprintRepository{client: client}
}

// Upsert writes the fingerprint row for (subject, address). A plain insert on
// the composite key gives last-write-wins replacement of every column, which
// is exactly the contract: no merge of old and new flags.
func (r *fingerprintRepository) Upsert(ctx context.Context, fp *models.DeviceFingerprint) error {
	if err := r.client.Query(r.client.Stmts.UpsertFingerprint,
		fp.SubjectID, fp.NetworkAddress, fp.IsVPN, fp.IsProxy, fp.IsDatacenter,
		fp.IsTor, fp.IsAutomatedAgent, fp.AgentProvider, fp.FraudScore,
		fp.CountryCode, fp.City, fp.LastSeen).
		WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("%w: failed to upsert fingerprint: %v", ErrStoreUnavailable, err)
	}

	util.Debug("Device fingerprint upserted",
		zap.String("subject_id", fp.SubjectID),
		zap.String("network_address", fp.NetworkAddress),
		zap.Int("fraud_score", fp.FraudScore))
	return nil
}

func (r *fingerprintRepository) ListBySubject(ctx context.Context, subjectID string) ([]models.DeviceFingerprint, error) {
	iter := r.client.Query(r.client.Stmts.SelectFingerprints, subjectID).
		WithContext(ctx).Iter()

	fingerprints := []models.DeviceFingerprint{}
	var fp models.DeviceFingerprint
	for iter.Scan(&fp.SubjectID, &fp.NetworkAddress, &fp.IsVPN, &fp.IsProxy,
		&fp.IsDatacenter, &fp.IsTor, &fp.IsAutomatedAgent, &fp.AgentProvider,
		&fp.FraudScore, &fp.CountryCode, &fp.City, &fp.LastSeen) {
		fingerprints = append(fingerprints, fp)
		fp = models.DeviceFingerprint{}
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("%w: failed to list fingerprints: %v", ErrStoreUnavailable, err)
	}
	return fingerprints, nil
}

func (r *fingerprintRepository) DeleteBySubject(ctx context.Context, subjectID string) error {
	if err := r.client.Query(r.client.Stmts.DeleteSubjectFingerprints, subjectID).
		WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("%w: failed to delete fingerprints: %v", ErrStoreUnavailable, err)
	}
	return nil
}
