package scoring

import (
	"math"
	"testing"

	"risk-service/internal/models"
)

func event(org string, severity models.Severity) models.BreachEvent {
	return models.BreachEvent{OrgID: org, Severity: severity}
}

func TestCompositeScoreNoEventsIsNeutral(t *testing.T) {
	score := CompositeScore(nil, 5, DefaultWeights())
	if score != NeutralScore {
		t.Errorf("score = %v, want exactly %v for empty history", score, NeutralScore)
	}
}

func TestCompositeScoreAboveNeutralWithEvents(t *testing.T) {
	events := []models.BreachEvent{
		event("org-a", models.SeverityCritical),
		event("org-a", models.SeverityLow),
		event("org-b", models.SeverityLow),
	}
	score := CompositeScore(events, 2, DefaultWeights())
	if score <= NeutralScore {
		t.Errorf("score = %v, want > %v when events exist", score, NeutralScore)
	}
	if score >= 1 {
		t.Errorf("score = %v, must stay below 1", score)
	}
}

func TestCompositeScoreMatchesFormula(t *testing.T) {
	w := DefaultWeights()
	events := []models.BreachEvent{
		event("org-a", models.SeverityCritical),
		event("org-a", models.SeverityLow),
		event("org-b", models.SeverityLow),
	}

	raw := w.Platforms*math.Log1p(2) + w.Devices*math.Log1p(2)
	raw += w.Severity[models.SeverityCritical] * math.Log1p(1)
	raw += w.Severity[models.SeverityLow] * math.Log1p(2)
	want := 1 / (1 + math.Exp(-raw))

	got := CompositeScore(events, 2, w)
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("score = %v, want %v", got, want)
	}
}

func TestCompositeScoreMonotonicInSeverityCount(t *testing.T) {
	w := DefaultWeights()
	base := []models.BreachEvent{event("org-a", models.SeverityHigh)}
	more := append([]models.BreachEvent{}, base...)
	more = append(more, event("org-a", models.SeverityHigh))

	if CompositeScore(more, 0, w) <= CompositeScore(base, 0, w) {
		t.Error("adding an event must not lower the score")
	}
}

func TestCompositeScoreUnknownSeverityTreatedAsLow(t *testing.T) {
	w := DefaultWeights()
	unknown := []models.BreachEvent{event("org-a", models.Severity("WEIRD"))}
	low := []models.BreachEvent{event("org-a", models.SeverityLow)}

	if CompositeScore(unknown, 0, w) != CompositeScore(low, 0, w) {
		t.Error("unknown severity should score as LOW")
	}
}

func TestRefScore(t *testing.T) {
	cases := []struct {
		score float64
		want  int
	}{
		{0, 0},
		{0.5, 50},
		{0.505, 51},
		{0.494, 49},
		{1, 100},
	}
	for _, tc := range cases {
		if got := RefScore(tc.score); got != tc.want {
			t.Errorf("RefScore(%v) = %d, want %d", tc.score, got, tc.want)
		}
	}
}
