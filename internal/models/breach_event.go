package models

import "time"

type BreachCategory string

const (
	CategoryViolatingTerms     BreachCategory = "VIOLATING_TERMS"
	CategorySuspiciousActivity BreachCategory = "SUSPICIOUS_ACTIVITY"
	CategoryFraud              BreachCategory = "FRAUD"
	CategoryIllegalActivity    BreachCategory = "ILLEGAL_ACTIVITY"
	CategoryDataLeak           BreachCategory = "DATA_LEAK"
	CategoryDefault            BreachCategory = "DEFAULT"
)

type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

type EventStatus string

const (
	StatusOpen   EventStatus = "OPEN"
	StatusClosed EventStatus = "CLOSED"
)

// BreachEvent links a subject and an organization with a categorized incident.
// EffectWeight is resolved once at creation time and never recomputed, so the
// event history stays stable when an organization later changes its
// declaration.
type BreachEvent struct {
	EventID         string         `db:"event_id" json:"event_id"`
	SubjectID       string         `db:"subject_id" json:"subject_id"`
	OrgID           string         `db:"org_id" json:"org_id"`
	Category        BreachCategory `db:"breach_category" json:"breach_category"`
	Severity        Severity       `db:"severity" json:"severity"`
	EffectWeight    int            `db:"effect_weight" json:"effect_weight"`
	Status          EventStatus    `db:"status" json:"status"`
	Description     string         `db:"description" json:"description"`
	ManualEntry     bool           `db:"manual_entry" json:"manual_entry,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	ResolutionNotes string         `db:"resolution_notes" json:"resolution_notes,omitempty"`
	ResolvedAt      *time.Time     `db:"resolved_at" json:"resolved_at,omitempty"`
}

// Resolved reports whether the event reached its terminal state.
func (e *BreachEvent) Resolved() bool {
	return e.Status == StatusClosed
}
