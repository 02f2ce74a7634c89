package patient

import (
	"context"
	"errors"
)

var ErrPatientNotFound = errors.New("patient not found")

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByNumber(ctx context.Context, patientNumber string) (*Patient, error)
	ListAll(ctx context.Context) ([]*Patient, error)
	Count(ctx context.Context) (int, error)
}
