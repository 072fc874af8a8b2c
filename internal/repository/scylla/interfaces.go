package scylla

import (
	"context"

	"risk-service/internal/models"
)

// Repositories return (nil, nil) / empty slices for absent records; every
// error they do return wraps ErrStoreUnavailable.

type SubjectRepository interface {
	// CreateSubject inserts the subject, claiming its external hash with a
	// conditional insert. When another writer won the race, the existing
	// subject is returned with created=false.
	CreateSubject(ctx context.Context, subject *models.Subject) (existing *models.Subject, created bool, err error)
	GetByExternalHash(ctx context.Context, externalHash string) (*models.Subject, error)
	GetByID(ctx context.Context, subjectID string) (*models.Subject, error)
	ListSubjects(ctx context.Context) ([]models.Subject, error)
	UpdateProfile(ctx context.Context, subjectID, fullName, email string) error
	UpdateRefScore(ctx context.Context, subjectID string, refScore int) error
	DeleteSubject(ctx context.Context, subject *models.Subject) error
}

type OrganizationRepository interface {
	// CreateOrganization is idempotent: re-creating an existing org returns
	// the stored record with created=false.
	CreateOrganization(ctx context.Context, org *models.Organization) (existing *models.Organization, created bool, err error)
	GetOrganization(ctx context.Context, orgID string) (*models.Organization, error)
	ListOrganizations(ctx context.Context) ([]models.Organization, error)
	UpsertDeclaration(ctx context.Context, decl *models.BreachDeclaration) error
	GetDeclaration(ctx context.Context, orgID string) (*models.BreachDeclaration, error)
	DeleteDeclaration(ctx context.Context, orgID string) error
	ListDeclarations(ctx context.Context) ([]models.BreachDeclaration, error)
}

type EventRepository interface {
	CreateEvent(ctx context.Context, event *models.BreachEvent) error
	GetEvent(ctx context.Context, eventID string) (*models.BreachEvent, error)
	ListBySubject(ctx context.Context, subjectID string) ([]models.BreachEvent, error)
	ListByOrganization(ctx context.Context, orgID string) ([]models.BreachEvent, error)
	ListUnresolved(ctx context.Context) ([]models.BreachEvent, error)
	// MarkResolved closes the event in every denormalized table. The caller
	// has already verified the event exists and is still open.
	MarkResolved(ctx context.Context, event *models.BreachEvent) error
}

type FingerprintRepository interface {
	// Upsert fully replaces the (subject, address) row; last write wins.
	Upsert(ctx context.Context, fp *models.DeviceFingerprint) error
	ListBySubject(ctx context.Context, subjectID string) ([]models.DeviceFingerprint, error)
	DeleteBySubject(ctx context.Context, subjectID string) error
}
