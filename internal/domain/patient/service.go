package patient

import (
	"context"
	"fmt"
	"strings"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetPatient(ctx context.Context, patientNumber string) (*Patient, error) {
	if strings.TrimSpace(patientNumber) == "" {
		return nil, fmt.Errorf("patient_number is required")
	}
	return s.repo.GetByNumber(ctx, patientNumber)
}

// ListPatients loads every patient and applies f in memory.
func (s *Service) ListPatients(ctx context.Context, f Filter) ([]*Patient, error) {
	items, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return Apply(items, f), nil
}

func (s *Service) CountPatients(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}
