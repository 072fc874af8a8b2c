package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"risk-service/internal/models"
	"risk-service/internal/repository/scylla"
	"risk-service/internal/scoring"
	"risk-service/internal/util"
)

// ScoreService computes the composite risk score and assembles the full risk
// profile for a subject.
type ScoreService struct {
	subjects     scylla.SubjectRepository
	events       scylla.EventRepository
	fingerprints scylla.FingerprintRepository
	devices      *DeviceService
	weights      scoring.Weights
	history      ScoreHistorySink
	revealer     ExternalIDRevealer
}

// ScoreResult is the outcome of one composite computation.
type ScoreResult struct {
	SubjectID   string    `json:"subject_id"`
	Score       float64   `json:"score"`
	RefScore    int       `json:"ref_score"`
	EventCount  int       `json:"event_count"`
	DeviceCount int       `json:"device_count"`
	ComputedAt  time.Time `json:"computed_at"`
}

// RiskProfile is the aggregate view served by the profile endpoint.
type RiskProfile struct {
	Subject    *models.Subject            `json:"subject"`
	ExternalID string                     `json:"external_id,omitempty"`
	Score      *ScoreResult               `json:"score"`
	DeviceRisk int                        `json:"device_risk"`
	Devices    []models.DeviceFingerprint `json:"devices"`
	OpenEvents int                        `json:"open_events"`
}

func NewScoreService(
	subjects scylla.SubjectRepository,
	events scylla.EventRepository,
	fingerprints scylla.FingerprintRepository,
	devices *DeviceService,
	weights scoring.Weights,
	history ScoreHistorySink,
	revealer ExternalIDRevealer,
) *ScoreService {
	return &ScoreService{
		subjects:     subjects,
		events:       events,
		fingerprints: fingerprints,
		devices:      devices,
		weights:      weights,
		history:      history,
		revealer:     revealer,
	}
}

// Compute recalculates the subject's composite score from its current events
// and devices, persists the rounded reference score, and appends the result
// to the score history. Re-running with unchanged inputs yields the same
// stored value.
func (s *ScoreService) Compute(ctx context.Context, subjectID string) (*ScoreResult, error) {
	subject, err := s.subjects.GetByID(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if subject == nil {
		return nil, fmt.Errorf("%w: subject %s", ErrNotFound, subjectID)
	}

	var (
		events []models.BreachEvent
		fps    []models.DeviceFingerprint
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		events, err = s.events.ListBySubject(gctx, subjectID)
		return err
	})
	g.Go(func() error {
		var err error
		fps, err = s.fingerprints.ListBySubject(gctx, subjectID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	score := scoring.CompositeScore(events, len(fps), s.weights)
	result := &ScoreResult{
		SubjectID:   subjectID,
		Score:       score,
		RefScore:    scoring.RefScore(score),
		EventCount:  len(events),
		DeviceCount: len(fps),
		ComputedAt:  time.Now().UTC(),
	}

	if err := s.subjects.UpdateRefScore(ctx, subjectID, result.RefScore); err != nil {
		return nil, err
	}

	s.appendHistory(ctx, result)
	return result, nil
}

// Profile assembles the subject record, a fresh composite score, the device
// risk aggregate, and the device list.
func (s *ScoreService) Profile(ctx context.Context, subjectID string) (*RiskProfile, error) {
	subject, err := s.subjects.GetByID(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if subject == nil {
		return nil, fmt.Errorf("%w: subject %s", ErrNotFound, subjectID)
	}

	result, err := s.Compute(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	subject.RefScore = result.RefScore

	devices, err := s.devices.ListDevices(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	deviceRisk, err := s.devices.AggregateRisk(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	events, err := s.events.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	open := 0
	for _, e := range events {
		if !e.Resolved() {
			open++
		}
	}

	profile := &RiskProfile{
		Subject:    subject,
		Score:      result,
		DeviceRisk: deviceRisk,
		Devices:    devices,
		OpenEvents: open,
	}

	// The profile is still served when the identifier cannot be decrypted.
	if s.revealer != nil {
		externalID, err := s.revealer.RevealExternalID(ctx, subject)
		if err != nil {
			util.Warn("Failed to reveal external identifier",
				zap.String("subject_id", subjectID),
				zap.Error(err))
		} else {
			profile.ExternalID = externalID
		}
	}
	return profile, nil
}

// History returns the most recent score computations for the subject.
func (s *ScoreService) History(ctx context.Context, subjectID string, limit int) ([]models.ScoreRecord, error) {
	if s.history == nil {
		return []models.ScoreRecord{}, nil
	}
	if limit <= 0 {
		limit = 50
	}
	return s.history.ScoreHistory(ctx, subjectID, limit)
}

func (s *ScoreService) appendHistory(ctx context.Context, result *ScoreResult) {
	if s.history == nil {
		return
	}
	rec := &models.ScoreRecord{
		SubjectID:   result.SubjectID,
		Score:       result.Score,
		RefScore:    result.RefScore,
		EventCount:  result.EventCount,
		DeviceCount: result.DeviceCount,
		ComputedAt:  result.ComputedAt,
	}
	if err := s.history.AppendScore(ctx, rec); err != nil {
		util.Warn("Failed to append score history",
			zap.String("subject_id", result.SubjectID),
			zap.Error(err))
	}
}
