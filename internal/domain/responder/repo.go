package responder

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrProfileNotFound = errors.New("profile not found")
	ErrCatalogNotFound = errors.New("catalog entry not found")
)

type UserRepository interface {
	GetBySubject(ctx context.Context, subject string) (*User, error)
	Create(ctx context.Context, u *User) error
	TouchLogin(ctx context.Context, id uuid.UUID) error
}

type ProfileRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	GetByUser(ctx context.Context, userID uuid.UUID) (*Profile, error)
	Create(ctx context.Context, p *Profile) error
	UpdateInfo(ctx context.Context, id uuid.UUID, info ProfileInfo) error
	UpdateCredentials(ctx context.Context, id uuid.UUID, responderNumber string, organizationID, roleID int) error
	ReplaceCertifications(ctx context.Context, id uuid.UUID, certificationIDs []int) error
	CertificationsOf(ctx context.Context, id uuid.UUID) ([]Certification, error)
}

// CatalogRepository reads the organization, role and certification tables.
type CatalogRepository interface {
	GetOrganization(ctx context.Context, id int) (*Organization, error)
	GetRole(ctx context.Context, id int) (*Role, error)
	ListOrganizations(ctx context.Context) ([]Organization, error)
	ListRoles(ctx context.Context) ([]Role, error)
	ListCertifications(ctx context.Context) ([]Certification, error)
}
