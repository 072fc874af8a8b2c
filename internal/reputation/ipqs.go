package reputation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"risk-service/internal/config"
	"risk-service/internal/util"

	"go.uber.org/zap"
)

var ErrMissingAPIKey = errors.New("reputation API key not configured")

// IPQSClient queries an IPQualityScore-compatible JSON endpoint:
// GET {base}/{api_key}/{address}.
type IPQSClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// ipqsResponse mirrors the provider's wire format.
type ipqsResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	VPN         bool   `json:"vpn"`
	Proxy       bool   `json:"proxy"`
	Datacenter  bool   `json:"datacenter"`
	Tor         bool   `json:"tor"`
	FraudScore  int    `json:"fraud_score"`
	CountryCode string `json:"country_code"`
	City        string `json:"city"`
}

func NewIPQSClient(cfg config.ReputationConfig) (*IPQSClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &IPQSClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Check implements Provider.
func (c *IPQSClient) Check(ctx context.Context, addr string) (Result, error) {
	endpoint := fmt.Sprintf("%s/%s/%s", c.baseURL, url.PathEscape(c.apiKey), url.PathEscape(addr))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Result{}, fmt.Errorf("failed to build reputation request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("reputation lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Result{}, fmt.Errorf("reputation lookup returned status %d: %s", resp.StatusCode, string(body))
	}

	var wire ipqsResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return Result{}, fmt.Errorf("failed to decode reputation response: %w", err)
	}

	if !wire.Success {
		return Result{}, fmt.Errorf("reputation provider rejected lookup: %s", wire.Message)
	}

	util.Debug("Reputation lookup completed",
		zap.String("address", addr),
		zap.Int("fraud_score", wire.FraudScore),
		zap.String("country_code", wire.CountryCode))

	return Result{
		IsVPN:        wire.VPN,
		IsProxy:      wire.Proxy,
		IsDatacenter: wire.Datacenter,
		IsTor:        wire.Tor,
		FraudScore:   wire.FraudScore,
		CountryCode:  wire.CountryCode,
		City:         wire.City,
	}, nil
}
