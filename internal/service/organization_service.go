package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"risk-service/internal/models"
	"risk-service/internal/repository/scylla"
	"risk-service/internal/util"
)

// OrganizationService manages reporting organizations and their single
// declared breach category.
type OrganizationService struct {
	orgs scylla.OrganizationRepository
}

// DeclareBreachRequest is an organization's declared (category, weight) pair.
type DeclareBreachRequest struct {
	Category     models.BreachCategory `json:"breach_category"`
	EffectWeight int                   `json:"effect_weight"`
	Description  string                `json:"description"`
}

func NewOrganizationService(orgs scylla.OrganizationRepository) *OrganizationService {
	return &OrganizationService{orgs: orgs}
}

// Create registers an organization under the given id. Re-creating an
// existing id returns the stored record with created=false.
func (s *OrganizationService) Create(ctx context.Context, orgID, name string) (*models.Organization, bool, error) {
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return nil, false, fmt.Errorf("%w: org_id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(name) == "" {
		return nil, false, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if util.ContainsSuspicious(name) {
		return nil, false, fmt.Errorf("%w: name contains disallowed characters", ErrInvalidInput)
	}

	org := &models.Organization{
		OrgID:     orgID,
		Name:      util.SanitizeInput(name),
		CreatedAt: time.Now().UTC(),
	}
	return s.orgs.CreateOrganization(ctx, org)
}

// Get returns an organization by id, or nil when unknown.
func (s *OrganizationService) Get(ctx context.Context, orgID string) (*models.Organization, error) {
	return s.orgs.GetOrganization(ctx, orgID)
}

// List returns every organization.
func (s *OrganizationService) List(ctx context.Context) ([]models.Organization, error) {
	return s.orgs.ListOrganizations(ctx)
}

// DeclareBreach stores the organization's single breach declaration,
// replacing any previous one. Weight must lie in [0, 100].
func (s *OrganizationService) DeclareBreach(ctx context.Context, orgID string, req *DeclareBreachRequest) (*models.BreachDeclaration, error) {
	org, err := s.orgs.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, fmt.Errorf("%w: organization %s", ErrNotFound, orgID)
	}
	if req.Category == "" {
		return nil, fmt.Errorf("%w: breach_category is required", ErrInvalidInput)
	}
	if req.EffectWeight < 0 || req.EffectWeight > 100 {
		return nil, fmt.Errorf("%w: effect_weight must be between 0 and 100", ErrInvalidInput)
	}
	if util.ContainsSuspicious(req.Description) {
		return nil, fmt.Errorf("%w: description contains disallowed characters", ErrInvalidInput)
	}

	decl := &models.BreachDeclaration{
		OrgID:        orgID,
		Category:     req.Category,
		EffectWeight: req.EffectWeight,
		Description:  util.SanitizeInput(req.Description),
		DeclaredAt:   time.Now().UTC(),
	}
	if err := s.orgs.UpsertDeclaration(ctx, decl); err != nil {
		return nil, err
	}
	return decl, nil
}

// GetDeclaration returns the organization's declaration, or nil when it has
// not declared one.
func (s *OrganizationService) GetDeclaration(ctx context.Context, orgID string) (*models.BreachDeclaration, error) {
	return s.orgs.GetDeclaration(ctx, orgID)
}

// DeleteDeclaration removes the organization's declaration. Deleting an
// absent declaration is a no-op.
func (s *OrganizationService) DeleteDeclaration(ctx context.Context, orgID string) error {
	org, err := s.orgs.GetOrganization(ctx, orgID)
	if err != nil {
		return err
	}
	if org == nil {
		return fmt.Errorf("%w: organization %s", ErrNotFound, orgID)
	}
	return s.orgs.DeleteDeclaration(ctx, orgID)
}

// HighImpactDeclarations returns declarations whose weight meets or exceeds
// the threshold.
func (s *OrganizationService) HighImpactDeclarations(ctx context.Context, threshold int) ([]models.BreachDeclaration, error) {
	decls, err := s.orgs.ListDeclarations(ctx)
	if err != nil {
		return nil, err
	}
	high := make([]models.BreachDeclaration, 0, len(decls))
	for _, d := range decls {
		if d.EffectWeight >= threshold {
			high = append(high, d)
		}
	}
	return high, nil
}
