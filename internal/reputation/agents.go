package reputation

import (
	"net/netip"

	"risk-service/internal/util"

	"go.uber.org/zap"
)

// agentRange ties a known automated/AI infrastructure provider to one of its
// published egress prefixes.
type agentRange struct {
	provider string
	prefix   netip.Prefix
}

// agentRanges is the fixed set of address ranges checked at observation time.
// Kept deliberately small; additions go through config review, not runtime.
var agentRanges = buildAgentRanges(map[string][]string{
	"openai":       {"23.98.142.176/28", "40.84.180.224/28", "13.65.240.240/28"},
	"anthropic":    {"160.79.104.0/23"},
	"perplexity":   {"107.20.236.0/22"},
	"googlebot":    {"66.249.64.0/19"},
	"aws-crawlers": {"3.80.0.0/12"},
})

func buildAgentRanges(raw map[string][]string) []agentRange {
	var out []agentRange
	for provider, prefixes := range raw {
		for _, p := range prefixes {
			prefix, err := netip.ParsePrefix(p)
			if err != nil {
				util.Warn("Skipping malformed agent range",
					zap.String("provider", provider),
					zap.String("prefix", p),
					zap.Error(err))
				continue
			}
			out = append(out, agentRange{provider: provider, prefix: prefix})
		}
	}
	return out
}

// MatchAutomatedAgent reports whether addr falls inside a known automated
// agent provider range, and which provider it belongs to.
func MatchAutomatedAgent(addr string) (string, bool) {
	ip, err := netip.ParseAddr(addr)
	if err != nil {
		return "", false
	}
	for _, r := range agentRanges {
		if r.prefix.Contains(ip) {
			return r.provider, true
		}
	}
	return "", false
}

// IsPrivateOrLoopback reports whether addr is in a private, loopback, or
// link-local range. These addresses short-circuit to a LOCAL fingerprint and
// never reach the external provider.
func IsPrivateOrLoopback(addr string) bool {
	ip, err := netip.ParseAddr(addr)
	if err != nil {
		return false
	}
	return ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsUnspecified()
}
