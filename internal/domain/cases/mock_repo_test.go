package cases

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ems/casebook/internal/domain/patient"
	"github.com/ems/casebook/internal/domain/responder"
	"github.com/ems/casebook/internal/platform/events"
)

type mockCaseRepo struct {
	mu    sync.Mutex
	store map[string]*Case
	order []string
	calls int
	err   error
}

func newMockCaseRepo() *mockCaseRepo {
	return &mockCaseRepo{store: make(map[string]*Case)}
}

func (m *mockCaseRepo) Create(_ context.Context, c *Case) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return m.err
	}
	if _, dup := m.store[c.CaseNumber]; dup {
		return ErrDuplicateNumber
	}
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	cp := *c
	m.store[c.CaseNumber] = &cp
	m.order = append(m.order, c.CaseNumber)
	return nil
}

func (m *mockCaseRepo) GetByNumber(_ context.Context, caseNumber string) (*Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	c, ok := m.store[caseNumber]
	if !ok {
		return nil, ErrCaseNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockCaseRepo) ListAll(_ context.Context) ([]Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := []Case{}
	for i := len(m.order) - 1; i >= 0; i-- {
		out = append(out, *m.store[m.order[i]])
	}
	return out, nil
}

func (m *mockCaseRepo) Recent(ctx context.Context, limit int) ([]Case, error) {
	all, err := m.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(all, func(a, b Case) int { return b.RecordedOn().Compare(a.RecordedOn()) })
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (m *mockCaseRepo) UpdateStatus(_ context.Context, caseNumber string, status Status, description *string) (*Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	c, ok := m.store[caseNumber]
	if !ok {
		return nil, ErrCaseNotFound
	}
	c.Status, c.StatusDescription = status, description
	cp := *c
	return &cp, nil
}

func (m *mockCaseRepo) CountRecorded(_ context.Context, from, to time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.store {
		d := c.RecordedOn()
		if !d.Before(from) && d.Before(to) {
			n++
		}
	}
	return n, nil
}

func (m *mockCaseRepo) snapshot() func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	store, order := maps.Clone(m.store), slices.Clone(m.order)
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.store, m.order = store, order
	}
}

type mockPatientRepo struct {
	mu    sync.Mutex
	store map[string]*patient.Patient
	calls int
	err   error
}

func newMockPatientRepo() *mockPatientRepo {
	return &mockPatientRepo{store: make(map[string]*patient.Patient)}
}

func (m *mockPatientRepo) Create(_ context.Context, p *patient.Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return m.err
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	m.store[p.PatientNumber] = p
	return nil
}

func (m *mockPatientRepo) GetByNumber(_ context.Context, n string) (*patient.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.store[n]
	if !ok {
		return nil, patient.ErrPatientNotFound
	}
	return p, nil
}

func (m *mockPatientRepo) ListAll(_ context.Context) ([]*patient.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*patient.Patient, 0, len(m.store))
	for _, p := range m.store {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockPatientRepo) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.store), nil
}

func (m *mockPatientRepo) snapshot() func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	store := maps.Clone(m.store)
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.store = store
	}
}

type mockInjuryRepo struct {
	mu     sync.Mutex
	items  []Injury
	calls  int
	failAt int
	err    error
}

func (m *mockInjuryRepo) Create(_ context.Context, in *Injury) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failAt > 0 && m.calls == m.failAt {
		return errors.New("injuries_severity_check violated")
	}
	in.ID = uuid.New()
	in.CreatedAt = time.Now()
	m.items = append(m.items, *in)
	return nil
}

func (m *mockInjuryRepo) ListByCase(_ context.Context, caseNumber, patientNumber string) ([]Injury, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := []Injury{}
	for _, in := range m.items {
		if in.CaseNumber == caseNumber && in.PatientNumber == patientNumber {
			out = append(out, in)
		}
	}
	return out, nil
}

func (m *mockInjuryRepo) snapshot() func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := slices.Clone(m.items)
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.items = items
	}
}

type mockCatalog struct {
	mu            sync.Mutex
	interventions []Intervention
	types         []InjuryTypeItem
	calls         int
	err           error
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{
		interventions: []Intervention{
			{ID: 1, Value: "cpr", Title: "CPR"},
			{ID: 2, Value: "bleeding_control", Title: "Bleeding Control"},
			{ID: 3, Value: "splinting", Title: "Splinting"},
		},
		types: []InjuryTypeItem{{ID: 1, Name: "Laceration"}, {ID: 2, Name: "Fracture"}},
	}
}

func (m *mockCatalog) ListInterventions(context.Context) ([]Intervention, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.interventions, m.err
}

func (m *mockCatalog) ListInjuryTypes(context.Context) ([]InjuryTypeItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.types, m.err
}

func (m *mockCatalog) lookups() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockCatalog) InterventionsByValue(_ context.Context, values []string) (map[string]Intervention, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[string]Intervention)
	for _, i := range m.interventions {
		if slices.Contains(values, i.Value) {
			out[i.Value] = i
		}
	}
	return out, nil
}

type mockResponders struct {
	profiles map[uuid.UUID]*responder.Profile
	subjects map[string]uuid.UUID
}

func newMockResponders() *mockResponders {
	return &mockResponders{profiles: make(map[uuid.UUID]*responder.Profile), subjects: make(map[string]uuid.UUID)}
}

func (m *mockResponders) add(subject, first, last string) uuid.UUID {
	id := uuid.New()
	m.profiles[id] = &responder.Profile{ID: id, FirstName: first, LastName: last}
	m.subjects[subject] = id
	return id
}

func (m *mockResponders) GetResponder(_ context.Context, id uuid.UUID) (*responder.Profile, error) {
	p, ok := m.profiles[id]
	if !ok {
		return nil, responder.ErrProfileNotFound
	}
	return p, nil
}

func (m *mockResponders) ResponderID(_ context.Context, subject string) (uuid.UUID, error) {
	id, ok := m.subjects[subject]
	if !ok {
		return uuid.Nil, responder.ErrProfileNotFound
	}
	return id, nil
}

// memTx restores every mock when the unit of work fails.
type memTx struct {
	cases    *mockCaseRepo
	patients *mockPatientRepo
	injuries *mockInjuryRepo
	rolled   int
}

func (t *memTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	restore := []func(){t.cases.snapshot(), t.patients.snapshot(), t.injuries.snapshot()}
	if err := fn(ctx); err != nil {
		for _, r := range restore {
			r()
		}
		t.rolled++
		return err
	}
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type fixture struct {
	svc        *Service
	cases      *mockCaseRepo
	patients   *mockPatientRepo
	injuries   *mockInjuryRepo
	catalog    *mockCatalog
	responders *mockResponders
	tx         *memTx
	events     *recordingPublisher
}

func newFixture() *fixture {
	f := &fixture{
		cases:      newMockCaseRepo(),
		patients:   newMockPatientRepo(),
		injuries:   &mockInjuryRepo{},
		catalog:    newMockCatalog(),
		responders: newMockResponders(),
		events:     &recordingPublisher{},
	}
	f.tx = &memTx{cases: f.cases, patients: f.patients, injuries: f.injuries}
	agg := NewAggregator(f.patients, f.injuries, f.catalog, f.responders)
	f.svc = NewService(f.cases, f.patients, f.injuries, f.catalog, agg)
	f.svc.SetTransactor(f.tx)
	f.svc.SetPublisher(f.events)
	return f
}

// totalCalls counts repository calls made so far.
func (f *fixture) totalCalls() int {
	return f.cases.calls + f.patients.calls + f.injuries.calls + f.catalog.calls
}
