package scoring

import (
	"testing"

	"risk-service/internal/models"
)

func TestAggregateDeviceRiskNoFingerprints(t *testing.T) {
	if got := AggregateDeviceRisk(nil, DefaultDeviceRiskParams()); got != 0 {
		t.Errorf("risk = %d, want 0 for no fingerprints", got)
	}
}

func TestAggregateDeviceRiskMaxPlusBonuses(t *testing.T) {
	fps := []models.DeviceFingerprint{
		{FraudScore: 30, IsVPN: true},
		{FraudScore: 12},
	}
	// Base 30 + VPN bonus 10.
	if got := AggregateDeviceRisk(fps, DefaultDeviceRiskParams()); got != 40 {
		t.Errorf("risk = %d, want 40", got)
	}
}

func TestAggregateDeviceRiskBonusAppliedOncePerFlag(t *testing.T) {
	fps := []models.DeviceFingerprint{
		{FraudScore: 20, IsVPN: true},
		{FraudScore: 10, IsVPN: true},
		{FraudScore: 5, IsProxy: true},
	}
	// Base 20 + VPN 10 + Proxy 15; two VPN fingerprints still add one bonus.
	if got := AggregateDeviceRisk(fps, DefaultDeviceRiskParams()); got != 45 {
		t.Errorf("risk = %d, want 45", got)
	}
}

func TestAggregateDeviceRiskClampedAtHundred(t *testing.T) {
	fps := []models.DeviceFingerprint{
		{FraudScore: 95, IsVPN: true, IsProxy: true, IsTor: true},
	}
	if got := AggregateDeviceRisk(fps, DefaultDeviceRiskParams()); got != 100 {
		t.Errorf("risk = %d, want clamp at 100", got)
	}
}

func TestClampScore(t *testing.T) {
	cases := []struct {
		in   int
		want int
	}{
		{-5, 0},
		{0, 0},
		{55, 55},
		{100, 100},
		{140, 100},
	}
	for _, tc := range cases {
		if got := ClampScore(tc.in); got != tc.want {
			t.Errorf("ClampScore(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
