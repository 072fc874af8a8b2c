package models

import "time"

type Organization struct {
	OrgID     string    `db:"org_id" json:"org_id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// BreachDeclaration is an organization's effect-weight override for a single
// breach category. At most one declaration exists per organization; the
// single-row primary key on org_id enforces that.
type BreachDeclaration struct {
	OrgID        string         `db:"org_id" json:"org_id"`
	Category     BreachCategory `db:"breach_category" json:"breach_category"`
	EffectWeight int            `db:"effect_weight" json:"effect_weight"`
	Description  string         `db:"description" json:"description,omitempty"`
	DeclaredAt   time.Time      `db:"declared_at" json:"declared_at"`
}
