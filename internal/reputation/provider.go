// Package reputation provides the external IP/network reputation collaborator
// used by the device signal aggregator.
package reputation

import "context"

// Result is the normalized reputation verdict for one network address.
type Result struct {
	IsVPN        bool   `json:"is_vpn"`
	IsProxy      bool   `json:"is_proxy"`
	IsDatacenter bool   `json:"is_datacenter"`
	IsTor        bool   `json:"is_tor"`
	FraudScore   int    `json:"fraud_score"`
	CountryCode  string `json:"country_code"`
	City         string `json:"city,omitempty"`
}

// Provider looks up the reputation of a network address. Implementations may
// fail or time out; callers degrade to SafeDefault rather than propagating.
type Provider interface {
	// Check returns the reputation verdict for addr. An error means the
	// provider was unreachable or returned garbage, never "bad address".
	Check(ctx context.Context, addr string) (Result, error)
}

// SafeDefault is the zero-risk verdict used when the provider is unavailable.
func SafeDefault() Result {
	return Result{CountryCode: "UNKNOWN"}
}

// LocalResult is the verdict for private/loopback addresses, which never
// reach the external provider.
func LocalResult() Result {
	return Result{CountryCode: "LOCAL", City: "LOCAL"}
}
