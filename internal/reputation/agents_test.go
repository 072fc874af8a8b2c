package reputation

import "testing"

func TestMatchAutomatedAgent(t *testing.T) {
	cases := []struct {
		addr     string
		provider string
		match    bool
	}{
		{"160.79.104.15", "anthropic", true},
		{"66.249.70.1", "googlebot", true},
		{"23.98.142.180", "openai", true},
		{"8.8.8.8", "", false},
		{"not-an-ip", "", false},
	}
	for _, tc := range cases {
		provider, ok := MatchAutomatedAgent(tc.addr)
		if ok != tc.match || provider != tc.provider {
			t.Errorf("MatchAutomatedAgent(%s) = (%q, %v), want (%q, %v)",
				tc.addr, provider, ok, tc.provider, tc.match)
		}
	}
}

func TestIsPrivateOrLoopback(t *testing.T) {
	cases := []struct {
		addr string
		want bool
	}{
		{"127.0.0.1", true},
		{"10.1.2.3", true},
		{"192.168.0.10", true},
		{"172.16.44.2", true},
		{"169.254.1.1", true},
		{"0.0.0.0", true},
		{"::1", true},
		{"8.8.8.8", false},
		{"160.79.104.15", false},
		{"garbage", false},
	}
	for _, tc := range cases {
		if got := IsPrivateOrLoopback(tc.addr); got != tc.want {
			t.Errorf("IsPrivateOrLoopback(%s) = %v, want %v", tc.addr, got, tc.want)
		}
	}
}

func TestSafeDefaultAndLocalResults(t *testing.T) {
	safe := SafeDefault()
	if safe.FraudScore != 0 || safe.IsVPN || safe.IsProxy || safe.IsTor {
		t.Errorf("SafeDefault() must carry zero risk, got %+v", safe)
	}
	if safe.CountryCode != "UNKNOWN" {
		t.Errorf("SafeDefault() country = %q, want UNKNOWN", safe.CountryCode)
	}

	local := LocalResult()
	if local.CountryCode != "LOCAL" || local.City != "LOCAL" {
		t.Errorf("LocalResult() = %+v, want LOCAL markers", local)
	}
}
