package responder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ems/casebook/internal/platform/auth"
	"github.com/ems/casebook/internal/platform/db"
	"github.com/ems/casebook/pkg/validation"
)

type Service struct {
	users    UserRepository
	profiles ProfileRepository
	catalog  CatalogRepository
	tx       db.Transactor
	log      zerolog.Logger
}

func NewService(users UserRepository, profiles ProfileRepository, catalog CatalogRepository) *Service {
	return &Service{
		users:    users,
		profiles: profiles,
		catalog:  catalog,
		tx:       db.NoopTransactor{},
		log:      zerolog.Nop(),
	}
}

// SetTransactor makes provisioning and credential updates atomic.
func (s *Service) SetTransactor(tx db.Transactor) { s.tx = tx }

func (s *Service) SetLogger(l zerolog.Logger) { s.log = l }

// Provision returns the caller's profile, creating the user row and a
// profile seeded from the token claims on first sign-in. Calling it again
// only refreshes last_login.
func (s *Service) Provision(ctx context.Context, id auth.Identity) (*Profile, error) {
	if id.Subject == "" {
		return nil, fmt.Errorf("subject is required")
	}

	var profile *Profile
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		u, err := s.users.GetBySubject(ctx, id.Subject)
		if errors.Is(err, ErrUserNotFound) {
			u = &User{ExternalSubject: id.Subject}
			err = s.users.Create(ctx, u)
		}
		if err != nil {
			return err
		}
		if err := s.users.TouchLogin(ctx, u.ID); err != nil {
			return err
		}

		profile, err = s.profiles.GetByUser(ctx, u.ID)
		if errors.Is(err, ErrProfileNotFound) {
			profile = profileFromClaims(u.ID, id)
			err = s.profiles.Create(ctx, profile)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("provision %s: %w", id.Subject, err)
	}
	return s.resolve(ctx, profile), nil
}

func profileFromClaims(userID uuid.UUID, id auth.Identity) *Profile {
	first, last := id.GivenName, id.FamilyName
	if first == "" && last == "" && id.Name != "" {
		parts := strings.Fields(id.Name)
		first = parts[0]
		if len(parts) > 1 {
			last = strings.Join(parts[1:], " ")
		}
	}
	if first == "" {
		first = "First"
	}
	if last == "" {
		last = "Responder"
	}
	p := &Profile{UserID: userID, FirstName: first, LastName: last}
	if id.Picture != "" {
		p.AvatarURL = &id.Picture
	}
	if id.Email != "" {
		p.Email = &id.Email
	}
	return p
}

// profileFor returns the stored profile of subject without resolving it.
func (s *Service) profileFor(ctx context.Context, subject string) (*Profile, error) {
	if subject == "" {
		return nil, fmt.Errorf("subject is required")
	}
	u, err := s.users.GetBySubject(ctx, subject)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.profiles.GetByUser(ctx, u.ID)
}

// CurrentProfile resolves the profile of the signed-in subject.
func (s *Service) CurrentProfile(ctx context.Context, subject string) (*Profile, error) {
	p, err := s.profileFor(ctx, subject)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, p), nil
}

// ResponderID returns the profile id cases are recorded under.
func (s *Service) ResponderID(ctx context.Context, subject string) (uuid.UUID, error) {
	p, err := s.profileFor(ctx, subject)
	if err != nil {
		return uuid.Nil, err
	}
	return p.ID, nil
}

func (s *Service) GetResponder(ctx context.Context, id uuid.UUID) (*Profile, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("id is required")
	}
	p, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, p), nil
}

// resolve attaches organization, role and certifications. Each lookup that
// fails is logged and left empty; the profile itself is still returned.
func (s *Service) resolve(ctx context.Context, p *Profile) *Profile {
	if p.OrganizationID != nil {
		org, err := s.catalog.GetOrganization(ctx, *p.OrganizationID)
		if err != nil {
			s.log.Warn().Err(err).Str("profile_id", p.ID.String()).Int("organization_id", *p.OrganizationID).
				Msg("organization lookup failed")
		}
		p.Organization = org
	}
	if p.RoleID != nil {
		role, err := s.catalog.GetRole(ctx, *p.RoleID)
		if err != nil {
			s.log.Warn().Err(err).Str("profile_id", p.ID.String()).Int("responder_role_id", *p.RoleID).
				Msg("responder role lookup failed")
		}
		p.Role = role
	}
	certs, err := s.profiles.CertificationsOf(ctx, p.ID)
	if err != nil {
		s.log.Warn().Err(err).Str("profile_id", p.ID.String()).Msg("certification lookup failed")
	}
	if certs == nil {
		certs = []Certification{}
	}
	p.Certifications = certs
	return p
}

func validateInfo(info ProfileInfo) error {
	var v validation.Error
	v.Required("first_name", "First name", info.FirstName)
	v.Required("last_name", "Last name", info.LastName)
	v.Required("birth_date", "Birth date", info.BirthDate)
	v.Required("address", "Address", info.Address)
	v.Required("email", "Email address", info.Email)
	v.Required("phone", "Phone number", info.Phone)
	v.Required("sex", "Gender", info.Sex)
	if info.BirthDate != "" && !v.Has("birth_date") {
		if _, err := time.Parse(time.DateOnly, info.BirthDate); err != nil {
			v.Add("birth_date", "Birth date must be YYYY-MM-DD")
		}
	}
	return v.Err()
}

// UpdateProfile replaces the personal information of subject's profile.
func (s *Service) UpdateProfile(ctx context.Context, subject string, info ProfileInfo) (*Profile, error) {
	if err := validateInfo(info); err != nil {
		return nil, err
	}
	p, err := s.profileFor(ctx, subject)
	if err != nil {
		return nil, err
	}
	if err := s.profiles.UpdateInfo(ctx, p.ID, info); err != nil {
		return nil, err
	}
	return s.CurrentProfile(ctx, subject)
}

func validateCredentials(c Credentials) error {
	var v validation.Error
	v.Required("responder_number", "Responder #", c.ResponderNumber)
	if c.OrganizationID < 1 {
		v.Add("organization_id", "Organization is required")
	}
	if c.RoleID < 1 {
		v.Add("responder_role_id", "Responder Role is required")
	}
	if len(c.Certifications) == 0 {
		v.Add("certifications", "Must have at least 1 certificate")
	}
	return v.Err()
}

// UpdateCredentials sets responder number, organization and role and
// replaces the certification links in one transaction.
func (s *Service) UpdateCredentials(ctx context.Context, subject string, c Credentials) (*Profile, error) {
	if err := validateCredentials(c); err != nil {
		return nil, err
	}
	p, err := s.profileFor(ctx, subject)
	if err != nil {
		return nil, err
	}
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.profiles.UpdateCredentials(ctx, p.ID, c.ResponderNumber, c.OrganizationID, c.RoleID); err != nil {
			return err
		}
		return s.profiles.ReplaceCertifications(ctx, p.ID, c.Certifications)
	})
	if err != nil {
		return nil, err
	}
	return s.CurrentProfile(ctx, subject)
}

// Lists returns the credential form catalogs, newest first.
func (s *Service) Lists(ctx context.Context) (*Lists, error) {
	orgs, err := s.catalog.ListOrganizations(ctx)
	if err != nil {
		return nil, err
	}
	roles, err := s.catalog.ListRoles(ctx)
	if err != nil {
		return nil, err
	}
	certs, err := s.catalog.ListCertifications(ctx)
	if err != nil {
		return nil, err
	}
	return &Lists{Organizations: orgs, Roles: roles, Certifications: certs}, nil
}
