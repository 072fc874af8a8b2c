package scoring

import (
	"context"
	"errors"
	"testing"

	"risk-service/internal/models"
)

type fakeDeclarationSource struct {
	decl *models.BreachDeclaration
	err  error
}

func (f *fakeDeclarationSource) GetDeclaration(ctx context.Context, orgID string) (*models.BreachDeclaration, error) {
	return f.decl, f.err
}

type recordingAuditSink struct {
	kinds  []string
	fields []map[string]interface{}
}

func (r *recordingAuditSink) PublishAudit(ctx context.Context, kind string, fields map[string]interface{}) error {
	r.kinds = append(r.kinds, kind)
	r.fields = append(r.fields, fields)
	return nil
}

func TestEffectTableLookup(t *testing.T) {
	table := DefaultEffectTable()

	cases := []struct {
		category models.BreachCategory
		want     int
	}{
		{models.CategoryViolatingTerms, 50},
		{models.CategorySuspiciousActivity, 40},
		{models.CategoryFraud, 75},
		{models.CategoryIllegalActivity, 90},
		{models.CategoryDataLeak, 85},
		{models.CategoryDefault, 30},
		{models.BreachCategory("SOMETHING_NEW"), 30},
	}
	for _, tc := range cases {
		if got := table.Lookup(tc.category); got != tc.want {
			t.Errorf("Lookup(%s) = %d, want %d", tc.category, got, tc.want)
		}
	}
}

func TestResolveEffectNoDeclaration(t *testing.T) {
	resolver := NewEffectResolver(DefaultEffectTable(), &fakeDeclarationSource{}, nil)

	weight, err := resolver.ResolveEffect(context.Background(), "org-1", models.CategoryFraud)
	if err != nil {
		t.Fatalf("ResolveEffect returned error: %v", err)
	}
	if weight != 75 {
		t.Errorf("weight = %d, want 75", weight)
	}
}

func TestResolveEffectMatchingDeclaration(t *testing.T) {
	source := &fakeDeclarationSource{
		decl: &models.BreachDeclaration{
			OrgID:        "org-1",
			Category:     models.CategoryFraud,
			EffectWeight: 90,
		},
	}
	resolver := NewEffectResolver(DefaultEffectTable(), source, nil)

	weight, err := resolver.ResolveEffect(context.Background(), "org-1", models.CategoryFraud)
	if err != nil {
		t.Fatalf("ResolveEffect returned error: %v", err)
	}
	if weight != 90 {
		t.Errorf("weight = %d, want declared 90", weight)
	}
}

func TestResolveEffectMismatchFallsBackToTable(t *testing.T) {
	source := &fakeDeclarationSource{
		decl: &models.BreachDeclaration{
			OrgID:        "org-1",
			Category:     models.CategoryFraud,
			EffectWeight: 90,
		},
	}
	audit := &recordingAuditSink{}
	resolver := NewEffectResolver(DefaultEffectTable(), source, audit)

	weight, err := resolver.ResolveEffect(context.Background(), "org-1", models.CategoryDataLeak)
	if err != nil {
		t.Fatalf("ResolveEffect returned error: %v", err)
	}
	if weight != 85 {
		t.Errorf("weight = %d, want table value 85 for DATA_LEAK", weight)
	}

	if len(audit.kinds) != 1 || audit.kinds[0] != "category_mismatch" {
		t.Fatalf("audit kinds = %v, want one category_mismatch record", audit.kinds)
	}
	if got := audit.fields[0]["declared_category"]; got != string(models.CategoryFraud) {
		t.Errorf("audited declared_category = %v, want %s", got, models.CategoryFraud)
	}
}

func TestResolveEffectUnknownCategoryMismatch(t *testing.T) {
	source := &fakeDeclarationSource{
		decl: &models.BreachDeclaration{
			OrgID:        "org-1",
			Category:     models.CategoryDataLeak,
			EffectWeight: 95,
		},
	}
	resolver := NewEffectResolver(DefaultEffectTable(), source, nil)

	weight, err := resolver.ResolveEffect(context.Background(), "org-1", models.BreachCategory("NOVEL"))
	if err != nil {
		t.Fatalf("ResolveEffect returned error: %v", err)
	}
	if weight != 30 {
		t.Errorf("weight = %d, want default 30 for unknown category", weight)
	}
}

func TestResolveEffectLookupErrorPropagates(t *testing.T) {
	source := &fakeDeclarationSource{err: errors.New("store down")}
	resolver := NewEffectResolver(DefaultEffectTable(), source, nil)

	if _, err := resolver.ResolveEffect(context.Background(), "org-1", models.CategoryFraud); err == nil {
		t.Fatal("expected declaration lookup error to propagate")
	}
}
