package patient

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type mockRepo struct {
	mu    sync.Mutex
	store map[string]*Patient
	order []string
	err   error
}

func newMockRepo() *mockRepo {
	return &mockRepo{store: make(map[string]*Patient)}
}

func (m *mockRepo) Create(_ context.Context, p *Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	m.store[p.PatientNumber] = p
	m.order = append(m.order, p.PatientNumber)
	return nil
}

func (m *mockRepo) GetByNumber(_ context.Context, patientNumber string) (*Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[patientNumber]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return p, nil
}

func (m *mockRepo) ListAll(_ context.Context) ([]*Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]*Patient, 0, len(m.order))
	for _, n := range m.order {
		out = append(out, m.store[n])
	}
	return out, nil
}

func (m *mockRepo) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.store), m.err
}
