package scylla

import (
	"context"
	"fmt"

	"github.com/gocql/gocql"

	"risk-service/internal/models"
)

type organizationRepository struct {
	client *ScyllaClient
}

func NewOrganizationRepository(client *ScyllaClient) OrganizationRepository {
	return &organizationRepository{client: client}
}

func (r *organizationRepository) CreateOrganization(ctx context.Context, org *models.Organization) (*models.Organization, bool, error) {
	var existing models.Organization
	applied, err := r.client.Query(r.client.Stmts.InsertOrganization,
		org.OrgID, org.Name, org.CreatedAt).
		WithContext(ctx).ScanCAS(&existing.Name, &existing.CreatedAt)
	if err != nil {
		return nil, false, fmt.Errorf("%w: failed to create organization: %v", ErrStoreUnavailable, err)
	}

	if !applied {
		existing.OrgID = org.OrgID
		return &existing, false, nil
	}
	return org, true, nil
}

func (r *organizationRepository) GetOrganization(ctx context.Context, orgID string) (*models.Organization, error) {
	var org models.Organization
	err := r.client.Query(r.client.Stmts.SelectOrganization, orgID).
		WithContext(ctx).Scan(&org.OrgID, &org.Name, &org.CreatedAt)
	if err == gocql.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get organization: %v", ErrStoreUnavailable, err)
	}
	return &org, nil
}

func (r *organizationRepository) ListOrganizations(ctx context.Context) ([]models.Organization, error) {
	iter := r.client.Query(r.client.Stmts.SelectAllOrgs).WithContext(ctx).Iter()

	orgs := []models.Organization{}
	var org models.Organization
	for iter.Scan(&org.OrgID, &org.Name, &org.CreatedAt) {
		orgs = append(orgs, org)
		org = models.Organization{}
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("%w: failed to list organizations: %v", ErrStoreUnavailable, err)
	}
	return orgs, nil
}

// UpsertDeclaration overwrites the organization's single declaration row.
// The org_id primary key is what enforces "at most one declaration per
// organization".
func (r *organizationRepository) UpsertDeclaration(ctx context.Context, decl *models.BreachDeclaration) error {
	if err := r.client.Query(r.client.Stmts.UpsertDeclaration,
		decl.OrgID, string(decl.Category), decl.EffectWeight,
		decl.Description, decl.DeclaredAt).
		WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("%w: failed to upsert declaration: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (r *organizationRepository) GetDeclaration(ctx context.Context, orgID string) (*models.BreachDeclaration, error) {
	var decl models.BreachDeclaration
	var category string
	err := r.client.Query(r.client.Stmts.SelectDeclaration, orgID).
		WithContext(ctx).Scan(&decl.OrgID, &category, &decl.EffectWeight,
		&decl.Description, &decl.DeclaredAt)
	if err == gocql.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get declaration: %v", ErrStoreUnavailable, err)
	}
	decl.Category = models.BreachCategory(category)
	return &decl, nil
}

func (r *organizationRepository) DeleteDeclaration(ctx context.Context, orgID string) error {
	if err := r.client.Query(r.client.Stmts.DeleteDeclaration, orgID).
		WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("%w: failed to delete declaration: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (r *organizationRepository) ListDeclarations(ctx context.Context) ([]models.BreachDeclaration, error) {
	iter := r.client.Query(r.client.Stmts.SelectAllDeclarations).WithContext(ctx).Iter()

	decls := []models.BreachDeclaration{}
	var decl models.BreachDeclaration
	var category string
	for iter.Scan(&decl.OrgID, &category, &decl.EffectWeight,
		&decl.Description, &decl.DeclaredAt) {
		decl.Category = models.BreachCategory(category)
		decls = append(decls, decl)
		decl = models.BreachDeclaration{}
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("%w: failed to list declarations: %v", ErrStoreUnavailable, err)
	}
	return decls, nil
}
