package scoring

import (
	"context"
	"fmt"

	"risk-service/internal/models"
	"risk-service/internal/util"

	"go.uber.org/zap"
)

// EffectTable maps breach categories to severity/effect weights on a 0-100
// scale. It is injected as an immutable value so tests can run with alternate
// weight sets.
type EffectTable struct {
	Weights map[models.BreachCategory]int
	Default int
}

// DefaultEffectTable returns the fixed weight table. The values keep an
// ordered severity ranking: illegal activity > data leak > fraud > terms
// violations > suspicious activity > default.
func DefaultEffectTable() EffectTable {
	return EffectTable{
		Weights: map[models.BreachCategory]int{
			models.CategoryViolatingTerms:     50,
			models.CategorySuspiciousActivity: 40,
			models.CategoryFraud:              75,
			models.CategoryIllegalActivity:    90,
			models.CategoryDataLeak:           85,
			models.CategoryDefault:            30,
		},
		Default: 30,
	}
}

// Lookup returns the table weight for a category. An unknown category falls
// back to the default weight; this is deliberate policy, not a failure.
func (t EffectTable) Lookup(category models.BreachCategory) int {
	if w, ok := t.Weights[category]; ok {
		return w
	}
	return t.Default
}

// DeclarationSource provides an organization's breach declaration, or
// (nil, nil) when the organization has none.
type DeclarationSource interface {
	GetDeclaration(ctx context.Context, orgID string) (*models.BreachDeclaration, error)
}

// AuditSink receives recovered-conflict records for the audit trail.
type AuditSink interface {
	PublishAudit(ctx context.Context, kind string, fields map[string]interface{}) error
}

// EffectResolver resolves the effect weight of a reported breach category
// against an organization's declared override.
type EffectResolver struct {
	table EffectTable
	decls DeclarationSource
	audit AuditSink
}

// NewEffectResolver creates a resolver. audit may be nil.
func NewEffectResolver(table EffectTable, decls DeclarationSource, audit AuditSink) *EffectResolver {
	return &EffectResolver{
		table: table,
		decls: decls,
		audit: audit,
	}
}

// ResolveEffect returns the effect weight for a reported category. A matching
// declaration wins; a mismatched declaration is logged and audited, then the
// fixed table applies keyed by the reported category. Declaration lookup
// failures propagate so callers can surface a store fault.
func (r *EffectResolver) ResolveEffect(ctx context.Context, orgID string, category models.BreachCategory) (int, error) {
	decl, err := r.decls.GetDeclaration(ctx, orgID)
	if err != nil {
		return 0, fmt.Errorf("failed to load declaration for org %s: %w", orgID, err)
	}

	if decl == nil {
		return r.table.Lookup(category), nil
	}

	if decl.Category == category {
		return decl.EffectWeight, nil
	}

	fallback := r.table.Lookup(category)
	util.Warn("Breach category mismatch against declaration, using default table",
		zap.String("org_id", orgID),
		zap.String("reported_category", string(category)),
		zap.String("declared_category", string(decl.Category)),
		zap.Int("fallback_weight", fallback))

	if r.audit != nil {
		if err := r.audit.PublishAudit(ctx, "category_mismatch", map[string]interface{}{
			"org_id":            orgID,
			"reported_category": string(category),
			"declared_category": string(decl.Category),
			"fallback_weight":   fallback,
		}); err != nil {
			util.Warn("Failed to publish category mismatch audit record", zap.Error(err))
		}
	}

	return fallback, nil
}
