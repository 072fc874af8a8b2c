package scoring

import "risk-service/internal/models"

// DeviceRiskParams holds the fixed bonuses applied on top of the maximum raw
// fraud score across a subject's fingerprints.
type DeviceRiskParams struct {
	VPNBonus   int
	ProxyBonus int
	TorBonus   int
}

func DefaultDeviceRiskParams() DeviceRiskParams {
	return DeviceRiskParams{
		VPNBonus:   10,
		ProxyBonus: 15,
		TorBonus:   20,
	}
}

// AggregateDeviceRisk derives a bounded per-subject device risk from all of
// the subject's fingerprints: the maximum raw fraud score is the base, then a
// single bonus per anonymization flag seen on any fingerprint, clamped to
// [0,100]. Max-plus-bonus rather than averaging: one severe access should
// dominate, repeated low-risk accesses should not dilute it.
func AggregateDeviceRisk(fingerprints []models.DeviceFingerprint, p DeviceRiskParams) int {
	if len(fingerprints) == 0 {
		return 0
	}

	base := 0
	anyVPN, anyProxy, anyTor := false, false, false
	for _, fp := range fingerprints {
		if fp.FraudScore > base {
			base = fp.FraudScore
		}
		anyVPN = anyVPN || fp.IsVPN
		anyProxy = anyProxy || fp.IsProxy
		anyTor = anyTor || fp.IsTor
	}

	total := base
	if anyVPN {
		total += p.VPNBonus
	}
	if anyProxy {
		total += p.ProxyBonus
	}
	if anyTor {
		total += p.TorBonus
	}

	return ClampScore(total)
}

// ClampScore bounds a raw score to the [0,100] scale.
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
