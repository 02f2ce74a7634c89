package cases

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ems/casebook/internal/domain/patient"
	"github.com/ems/casebook/internal/domain/responder"
)

var (
	ErrCaseNotFound        = errors.New("case not found")
	ErrUnknownIntervention = errors.New("unknown intervention")

	// ErrDuplicateNumber is returned when a generated case or patient number
	// is already taken.
	ErrDuplicateNumber = errors.New("case or patient number already exists")
)

type CaseRepository interface {
	Create(ctx context.Context, c *Case) error
	GetByNumber(ctx context.Context, caseNumber string) (*Case, error)
	// ListAll returns every case, newest first.
	ListAll(ctx context.Context) ([]Case, error)
	// Recent returns the latest limit cases by date recorded.
	Recent(ctx context.Context, limit int) ([]Case, error)
	UpdateStatus(ctx context.Context, caseNumber string, status Status, description *string) (*Case, error)
	// CountRecorded counts cases with from <= date_recorded < to.
	CountRecorded(ctx context.Context, from, to time.Time) (int, error)
}

type InjuryRepository interface {
	Create(ctx context.Context, in *Injury) error
	ListByCase(ctx context.Context, caseNumber, patientNumber string) ([]Injury, error)
}

type CatalogRepository interface {
	ListInterventions(ctx context.Context) ([]Intervention, error)
	ListInjuryTypes(ctx context.Context) ([]InjuryTypeItem, error)
	// InterventionsByValue returns the known interventions among values,
	// keyed by value.
	InterventionsByValue(ctx context.Context, values []string) (map[string]Intervention, error)
}

// PatientLookup is satisfied by patient.Repository.
type PatientLookup interface {
	GetByNumber(ctx context.Context, patientNumber string) (*patient.Patient, error)
}

// ResponderLookup is satisfied by *responder.Service.
type ResponderLookup interface {
	GetResponder(ctx context.Context, id uuid.UUID) (*responder.Profile, error)
}
