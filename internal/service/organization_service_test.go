package service

import (
	"context"
	"errors"
	"testing"

	"risk-service/internal/models"
)

func TestCreateOrganizationIdempotent(t *testing.T) {
	ctx := context.Background()
	svc := NewOrganizationService(newMemOrgRepo())

	first, created, err := svc.Create(ctx, "org-1", "Acme Corp")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !created {
		t.Error("first create must report created=true")
	}

	second, created, err := svc.Create(ctx, "org-1", "Different Name")
	if err != nil {
		t.Fatalf("second Create: %v", err)
	}
	if created {
		t.Error("second create must report created=false")
	}
	if second.Name != first.Name {
		t.Errorf("name = %q, want original %q preserved", second.Name, first.Name)
	}
}

func TestCreateOrganizationValidation(t *testing.T) {
	svc := NewOrganizationService(newMemOrgRepo())

	if _, _, err := svc.Create(context.Background(), "", "Acme"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("empty org_id: err = %v, want ErrInvalidInput", err)
	}
	if _, _, err := svc.Create(context.Background(), "org-1", "  "); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("blank name: err = %v, want ErrInvalidInput", err)
	}
}

func TestDeclareBreachReplacesPrevious(t *testing.T) {
	ctx := context.Background()
	repo := newMemOrgRepo("org-1")
	svc := NewOrganizationService(repo)

	_, err := svc.DeclareBreach(ctx, "org-1", &DeclareBreachRequest{
		Category:     models.CategoryFraud,
		EffectWeight: 80,
	})
	if err != nil {
		t.Fatalf("DeclareBreach: %v", err)
	}

	_, err = svc.DeclareBreach(ctx, "org-1", &DeclareBreachRequest{
		Category:     models.CategoryDataLeak,
		EffectWeight: 95,
	})
	if err != nil {
		t.Fatalf("second DeclareBreach: %v", err)
	}

	decl, err := svc.GetDeclaration(ctx, "org-1")
	if err != nil {
		t.Fatalf("GetDeclaration: %v", err)
	}
	if decl.Category != models.CategoryDataLeak || decl.EffectWeight != 95 {
		t.Errorf("declaration = %+v, want the replacement to win", decl)
	}

	decls, _ := repo.ListDeclarations(ctx)
	if len(decls) != 1 {
		t.Errorf("declarations = %d, want at most one per organization", len(decls))
	}
}

func TestDeclareBreachValidation(t *testing.T) {
	svc := NewOrganizationService(newMemOrgRepo("org-1"))
	ctx := context.Background()

	if _, err := svc.DeclareBreach(ctx, "ghost", &DeclareBreachRequest{
		Category: models.CategoryFraud, EffectWeight: 50,
	}); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown org: err = %v, want ErrNotFound", err)
	}

	if _, err := svc.DeclareBreach(ctx, "org-1", &DeclareBreachRequest{
		EffectWeight: 50,
	}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("missing category: err = %v, want ErrInvalidInput", err)
	}

	for _, weight := range []int{-1, 101} {
		if _, err := svc.DeclareBreach(ctx, "org-1", &DeclareBreachRequest{
			Category: models.CategoryFraud, EffectWeight: weight,
		}); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("weight %d: err = %v, want ErrInvalidInput", weight, err)
		}
	}
}

func TestHighImpactDeclarations(t *testing.T) {
	ctx := context.Background()
	repo := newMemOrgRepo("org-1", "org-2", "org-3")
	svc := NewOrganizationService(repo)

	svc.DeclareBreach(ctx, "org-1", &DeclareBreachRequest{Category: models.CategoryFraud, EffectWeight: 90})
	svc.DeclareBreach(ctx, "org-2", &DeclareBreachRequest{Category: models.CategoryViolatingTerms, EffectWeight: 40})
	svc.DeclareBreach(ctx, "org-3", &DeclareBreachRequest{Category: models.CategoryDataLeak, EffectWeight: 70})

	high, err := svc.HighImpactDeclarations(ctx, 70)
	if err != nil {
		t.Fatalf("HighImpactDeclarations: %v", err)
	}
	if len(high) != 2 {
		t.Errorf("high-impact count = %d, want 2 (threshold inclusive)", len(high))
	}
	for _, decl := range high {
		if decl.EffectWeight < 70 {
			t.Errorf("declaration %+v below threshold", decl)
		}
	}
}

func TestDeleteDeclaration(t *testing.T) {
	ctx := context.Background()
	svc := NewOrganizationService(newMemOrgRepo("org-1"))

	svc.DeclareBreach(ctx, "org-1", &DeclareBreachRequest{Category: models.CategoryFraud, EffectWeight: 80})
	if err := svc.DeleteDeclaration(ctx, "org-1"); err != nil {
		t.Fatalf("DeleteDeclaration: %v", err)
	}

	decl, err := svc.GetDeclaration(ctx, "org-1")
	if err != nil {
		t.Fatalf("GetDeclaration: %v", err)
	}
	if decl != nil {
		t.Errorf("declaration = %+v, want nil after delete", decl)
	}

	// Deleting again is a no-op, not an error.
	if err := svc.DeleteDeclaration(ctx, "org-1"); err != nil {
		t.Errorf("repeat delete: %v", err)
	}
}
