package service

import (
	"context"
	"fmt"
	"net/netip"
	"time"

	"go.uber.org/zap"

	"risk-service/internal/models"
	"risk-service/internal/repository/scylla"
	"risk-service/internal/reputation"
	"risk-service/internal/scoring"
	"risk-service/internal/util"
)

// ReputationCache is the optional Redis-backed cache in front of the external
// provider.
type ReputationCache interface {
	Get(ctx context.Context, address string) (*reputation.Result, error)
	Set(ctx context.Context, address string, result *reputation.Result) error
}

// DeviceService is the device signal aggregator: it merges repeated
// observations of a (subject, address) pair into one fingerprint and derives
// the bounded per-subject device risk.
type DeviceService struct {
	fingerprints scylla.FingerprintRepository
	provider     reputation.Provider
	cache        ReputationCache
	params       scoring.DeviceRiskParams
	agentPenalty int
}

func NewDeviceService(
	fingerprints scylla.FingerprintRepository,
	provider reputation.Provider,
	cache ReputationCache,
	params scoring.DeviceRiskParams,
	agentPenalty int,
) *DeviceService {
	return &DeviceService{
		fingerprints: fingerprints,
		provider:     provider,
		cache:        cache,
		params:       params,
		agentPenalty: agentPenalty,
	}
}

// Observe records one access-time observation of a subject from a network
// address. Private and loopback addresses short-circuit to a zero-risk LOCAL
// fingerprint without touching the external provider. Provider failures
// degrade to the safe default rather than failing the observation.
func (s *DeviceService) Observe(ctx context.Context, subjectID, address string) (*models.DeviceFingerprint, error) {
	if subjectID == "" || address == "" {
		return nil, fmt.Errorf("%w: subject id and network address are required", ErrInvalidInput)
	}

	verdict := s.lookup(ctx, address)

	fp := &models.DeviceFingerprint{
		SubjectID:      subjectID,
		NetworkAddress: address,
		IsVPN:          verdict.IsVPN,
		IsProxy:        verdict.IsProxy,
		IsDatacenter:   verdict.IsDatacenter,
		IsTor:          verdict.IsTor,
		FraudScore:     scoring.ClampScore(verdict.FraudScore),
		CountryCode:    verdict.CountryCode,
		City:           verdict.City,
		LastSeen:       time.Now().UTC(),
	}

	if provider, ok := reputation.MatchAutomatedAgent(address); ok {
		fp.IsAutomatedAgent = true
		fp.AgentProvider = provider
		// Additive penalty on top of the provider's raw score, capped.
		fp.FraudScore = scoring.ClampScore(fp.FraudScore + s.agentPenalty)
		util.Info("Automated agent range matched",
			zap.String("subject_id", subjectID),
			zap.String("network_address", address),
			zap.String("agent_provider", provider))
	}

	if err := s.fingerprints.Upsert(ctx, fp); err != nil {
		return nil, err
	}
	return fp, nil
}

func (s *DeviceService) lookup(ctx context.Context, address string) reputation.Result {
	if _, err := netip.ParseAddr(address); err != nil {
		util.Warn("Unparseable network address, using safe default",
			zap.String("network_address", address))
		return reputation.SafeDefault()
	}

	if reputation.IsPrivateOrLoopback(address) {
		return reputation.LocalResult()
	}

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, address); err != nil {
			util.Warn("Reputation cache read failed", zap.Error(err))
		} else if cached != nil {
			return *cached
		}
	}

	if s.provider == nil {
		return reputation.SafeDefault()
	}

	verdict, err := s.provider.Check(ctx, address)
	if err != nil {
		util.Warn("Reputation lookup degraded to safe default",
			zap.String("network_address", address),
			zap.Error(err))
		return reputation.SafeDefault()
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, address, &verdict); err != nil {
			util.Warn("Reputation cache write failed", zap.Error(err))
		}
	}
	return verdict
}

// AggregateRisk returns the bounded device-risk contribution for a subject.
// A subject with no fingerprints scores 0; that is an answer, not an error.
func (s *DeviceService) AggregateRisk(ctx context.Context, subjectID string) (int, error) {
	fingerprints, err := s.fingerprints.ListBySubject(ctx, subjectID)
	if err != nil {
		return 0, err
	}
	return scoring.AggregateDeviceRisk(fingerprints, s.params), nil
}

// ListDevices returns all fingerprints for a subject.
func (s *DeviceService) ListDevices(ctx context.Context, subjectID string) ([]models.DeviceFingerprint, error) {
	return s.fingerprints.ListBySubject(ctx, subjectID)
}

// CleanupSubject removes every fingerprint for a subject; called when the
// subject record is deleted so no orphaned device rows remain.
func (s *DeviceService) CleanupSubject(ctx context.Context, subjectID string) error {
	return s.fingerprints.DeleteBySubject(ctx, subjectID)
}
