package responder

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

type mockUserRepo struct {
	mu      sync.Mutex
	store   map[string]*User
	touches int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{store: make(map[string]*User)}
}

func (m *mockUserRepo) GetBySubject(_ context.Context, subject string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.store[subject]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (m *mockUserRepo) Create(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	m.store[u.ExternalSubject] = u
	return nil
}

func (m *mockUserRepo) TouchLogin(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touches++
	return nil
}

type mockProfileRepo struct {
	mu       sync.Mutex
	store    map[uuid.UUID]*Profile
	certs    map[uuid.UUID][]int
	catalog  *mockCatalogRepo
	certErr  error
	linkErr  error
	creates  int
	replaced int
}

func newMockProfileRepo(catalog *mockCatalogRepo) *mockProfileRepo {
	return &mockProfileRepo{
		store:   make(map[uuid.UUID]*Profile),
		certs:   make(map[uuid.UUID][]int),
		catalog: catalog,
	}
}

func (m *mockProfileRepo) GetByID(_ context.Context, id uuid.UUID) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return nil, ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockProfileRepo) GetByUser(_ context.Context, userID uuid.UUID) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.store {
		if p.UserID == userID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrProfileNotFound
}

func (m *mockProfileRepo) Create(_ context.Context, p *Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	cp := *p
	m.store[p.ID] = &cp
	m.creates++
	return nil
}

func (m *mockProfileRepo) UpdateInfo(_ context.Context, id uuid.UUID, info ProfileInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return ErrProfileNotFound
	}
	p.FirstName, p.LastName = info.FirstName, info.LastName
	p.MiddleName, p.Suffix = info.MiddleName, info.Suffix
	p.BirthDate, p.Address = &info.BirthDate, &info.Address
	p.Email, p.Phone, p.Sex = &info.Email, &info.Phone, &info.Sex
	return nil
}

func (m *mockProfileRepo) UpdateCredentials(_ context.Context, id uuid.UUID, number string, orgID, roleID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return ErrProfileNotFound
	}
	p.ResponderNumber, p.OrganizationID, p.RoleID = &number, &orgID, &roleID
	return nil
}

func (m *mockProfileRepo) ReplaceCertifications(_ context.Context, id uuid.UUID, ids []int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.linkErr != nil {
		return m.linkErr
	}
	m.certs[id] = append([]int(nil), ids...)
	m.replaced++
	return nil
}

func (m *mockProfileRepo) CertificationsOf(_ context.Context, id uuid.UUID) ([]Certification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.certErr != nil {
		return nil, m.certErr
	}
	var out []Certification
	for _, cid := range m.certs[id] {
		for _, c := range m.catalog.certs {
			if c.ID == cid {
				out = append(out, c)
			}
		}
	}
	return out, nil
}

type mockCatalogRepo struct {
	orgs   []Organization
	roles  []Role
	certs  []Certification
	orgErr error
}

func newMockCatalogRepo() *mockCatalogRepo {
	return &mockCatalogRepo{
		orgs:  []Organization{{ID: 1, Name: "Cebu City Rescue"}, {ID: 2, Name: "Red Cross Cebu"}},
		roles: []Role{{ID: 1, Title: "EMT-Basic", Level: "1"}, {ID: 2, Title: "Paramedic", Level: "3"}},
		certs: []Certification{{ID: 1, Name: "BLS"}, {ID: 2, Name: "ACLS"}, {ID: 3, Name: "PHTLS"}},
	}
}

func (m *mockCatalogRepo) GetOrganization(_ context.Context, id int) (*Organization, error) {
	if m.orgErr != nil {
		return nil, m.orgErr
	}
	for _, o := range m.orgs {
		if o.ID == id {
			return &o, nil
		}
	}
	return nil, ErrCatalogNotFound
}

func (m *mockCatalogRepo) GetRole(_ context.Context, id int) (*Role, error) {
	for _, r := range m.roles {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, ErrCatalogNotFound
}

func (m *mockCatalogRepo) ListOrganizations(context.Context) ([]Organization, error) {
	return m.orgs, nil
}

func (m *mockCatalogRepo) ListRoles(context.Context) ([]Role, error) { return m.roles, nil }

func (m *mockCatalogRepo) ListCertifications(context.Context) ([]Certification, error) {
	return m.certs, nil
}

var errLookup = errors.New("relation does not exist")
