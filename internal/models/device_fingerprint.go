package models

import "time"

// DeviceFingerprint holds the latest known risk attributes for one
// (subject, network address) pair. Re-observation fully replaces the row;
// there is no merge of old and new flags.
type DeviceFingerprint struct {
	SubjectID        string    `db:"subject_id" json:"subject_id"`
	NetworkAddress   string    `db:"network_address" json:"network_address"`
	IsVPN            bool      `db:"is_vpn" json:"is_vpn"`
	IsProxy          bool      `db:"is_proxy" json:"is_proxy"`
	IsDatacenter     bool      `db:"is_datacenter" json:"is_datacenter"`
	IsTor            bool      `db:"is_tor" json:"is_tor"`
	IsAutomatedAgent bool      `db:"is_automated_agent" json:"is_automated_agent"`
	AgentProvider    string    `db:"agent_provider" json:"agent_provider,omitempty"`
	FraudScore       int       `db:"fraud_score" json:"fraud_score"`
	CountryCode      string    `db:"country_code" json:"country_code"`
	City             string    `db:"city" json:"city,omitempty"`
	LastSeen         time.Time `db:"last_seen" json:"last_seen"`
}

// ScoreRecord is one row of the composite-score history kept in ClickHouse.
type ScoreRecord struct {
	SubjectID   string    `json:"subject_id"`
	Score       float64   `json:"score"`
	RefScore    int       `json:"ref_score"`
	EventCount  int       `json:"event_count"`
	DeviceCount int       `json:"device_count"`
	ComputedAt  time.Time `json:"computed_at"`
}
