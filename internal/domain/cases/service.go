package cases

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/ems/casebook/internal/domain/bodymap"
	"github.com/ems/casebook/internal/domain/patient"
	"github.com/ems/casebook/internal/platform/db"
	"github.com/ems/casebook/internal/platform/events"
)

// ErrMissingIdentifier is returned when an operation needs the recording
// responder and none was given.
var ErrMissingIdentifier = errors.New("unable to create case without responder identifier")

// RecentLimit is how many cases the dashboard shows.
const RecentLimit = 3

const maxNumberAttempts = 3

type Service struct {
	cases    CaseRepository
	patients patient.Repository
	injuries InjuryRepository
	catalog  CatalogRepository
	agg      *Aggregator

	tx        db.Transactor
	publisher events.Publisher
	log       zerolog.Logger
	newNumber func(prefix string) string

	created       prometheus.Counter
	statusChanges *prometheus.CounterVec
}

func NewService(cases CaseRepository, patients patient.Repository, injuries InjuryRepository, catalog CatalogRepository, agg *Aggregator) *Service {
	return &Service{
		cases:     cases,
		patients:  patients,
		injuries:  injuries,
		catalog:   catalog,
		agg:       agg,
		tx:        db.NoopTransactor{},
		log:       zerolog.Nop(),
		newNumber: randomNumber,
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "casebook",
			Name:      "cases_created_total",
			Help:      "Cases committed with their patient and injuries.",
		}),
		statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "casebook",
			Name:      "case_status_changes_total",
			Help:      "Case status updates by new status.",
		}, []string{"status"}),
	}
}

// SetTransactor makes case creation atomic. Without one the inserts run
// independently.
func (s *Service) SetTransactor(tx db.Transactor) { s.tx = tx }

func (s *Service) SetPublisher(p events.Publisher) { s.publisher = p }

func (s *Service) SetLogger(l zerolog.Logger) { s.log = l }

// RegisterMetrics exposes the case counters on reg.
func (s *Service) RegisterMetrics(reg prometheus.Registerer) error {
	if err := reg.Register(s.created); err != nil {
		return err
	}
	return reg.Register(s.statusChanges)
}

// randomNumber returns prefix-NNNNN with NNNNN in [10000, 99999].
func randomNumber(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, 10000+rand.IntN(90000))
}

// CreateCase validates f and stores the case, its patient and every injury
// in one transaction. Nothing is written when validation fails. A
// case.created event is published after commit.
func (s *Service) CreateCase(ctx context.Context, responderID uuid.UUID, f CaseForm) (*CaseView, error) {
	if responderID == uuid.Nil {
		return nil, ErrMissingIdentifier
	}
	if err := ValidateForm(f); err != nil {
		return nil, err
	}

	titles, err := s.agg.InterventionTitles(ctx, f.Interventions)
	if errors.Is(err, ErrUnknownIntervention) {
		var v ValidationError
		v.Add("interventions", err.Error())
		return nil, v.Err()
	}
	if err != nil {
		return nil, err
	}

	date, clock, _ := splitDateTime(f.DateTime)
	var view *CaseView
	for attempt := 1; ; attempt++ {
		view, err = s.insertCase(ctx, responderID, f, date, clock)
		if err == nil {
			break
		}
		if attempt >= maxNumberAttempts || !(errors.Is(err, ErrDuplicateNumber) || isUniqueViolation(err)) {
			return nil, err
		}
		s.log.Warn().Int("attempt", attempt).Msg("generated case number collided, retrying")
	}
	view.Interventions = titles

	s.created.Inc()
	ev := events.New(events.CaseCreated, view.CaseNumber)
	ev.PatientNumber = view.PatientNumber
	ev.ResponderID = responderID.String()
	ev.Status = string(view.Status)
	ev.InjuryCount = len(view.Injuries)
	s.publish(ctx, ev)

	s.log.Info().
		Str("case_number", view.CaseNumber).
		Str("patient_number", view.PatientNumber).
		Int("injuries", len(view.Injuries)).
		Msg("case created")
	return view, nil
}

func (s *Service) insertCase(ctx context.Context, responderID uuid.UUID, f CaseForm, date, clock string) (*CaseView, error) {
	c := Case{
		CaseNumber:    s.newNumber("CASE"),
		PatientNumber: s.newNumber("PAT"),
		Cause:         strings.TrimSpace(f.Cause),
		Description:   f.Description,
		Location:      strings.TrimSpace(f.Location),
		Latitude:      f.Latitude,
		Longitude:     f.Longitude,
		DateRecorded:  date,
		TimeRecorded:  clock,
		Interventions: f.Interventions,
		Status:        Active,
		ResponderID:   responderID,
	}
	p := &patient.Patient{
		PatientNumber:  c.PatientNumber,
		FirstName:      strings.TrimSpace(f.FirstName),
		MiddleName:     f.MiddleName,
		LastName:       strings.TrimSpace(f.LastName),
		Suffix:         f.Suffix,
		Age:            f.Age,
		Sex:            f.Sex,
		ContactInfo:    f.ContactInfo,
		MedicalHistory: f.MedicalHistory,
		ResponderID:    responderID,
	}
	injuries := make([]Injury, len(f.Injuries))
	for i, d := range f.Injuries {
		injuries[i] = injuryFromDraft(c.CaseNumber, c.PatientNumber, d)
	}

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.cases.Create(ctx, &c); err != nil {
			return err
		}
		if err := s.patients.Create(ctx, p); err != nil {
			return err
		}
		for i := range injuries {
			if err := s.injuries.Create(ctx, &injuries[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &CaseView{Case: c, Patient: p, Injuries: injuries}, nil
}

func injuryFromDraft(caseNumber, patientNumber string, d bodymap.InjuryDraft) Injury {
	in := Injury{
		CaseNumber:    caseNumber,
		PatientNumber: patientNumber,
		Location:      d.Location,
		Type:          d.Type,
		Severity:      d.Severity,
		Side:          d.Side,
		X:             d.X,
		Y:             d.Y,
	}
	if d.Description != "" {
		desc := d.Description
		in.Description = &desc
	}
	return in
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.log.Error().Err(err).Str("event_type", string(e.Type)).Str("case_number", e.CaseNumber).
			Msg("publish case event")
	}
}

// UpdateStatus sets a case's status and publishes case.status_changed.
func (s *Service) UpdateStatus(ctx context.Context, caseNumber, status string, description *string) (*Case, error) {
	if strings.TrimSpace(caseNumber) == "" {
		return nil, fmt.Errorf("case_number is required")
	}
	st, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}
	c, err := s.cases.UpdateStatus(ctx, caseNumber, st, description)
	if err != nil {
		return nil, err
	}
	s.statusChanges.WithLabelValues(string(st)).Inc()

	ev := events.New(events.CaseStatusChanged, c.CaseNumber)
	ev.PatientNumber = c.PatientNumber
	ev.Status = string(st)
	s.publish(ctx, ev)
	return c, nil
}

// ListCases aggregates every case, newest first, and applies f.
func (s *Service) ListCases(ctx context.Context, f Filter) ([]CaseView, error) {
	rows, err := s.cases.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	views, err := s.agg.BuildAll(ctx, rows)
	if err != nil {
		return nil, err
	}
	return Apply(views, f), nil
}

func (s *Service) GetCaseDetails(ctx context.Context, caseNumber string) (*CaseDetailsView, error) {
	if strings.TrimSpace(caseNumber) == "" {
		return nil, fmt.Errorf("case_number is required")
	}
	return s.agg.BuildCaseDetails(ctx, s.cases, caseNumber)
}

// MapCases returns markers for the cases matching f that have coordinates.
func (s *Service) MapCases(ctx context.Context, f Filter) ([]MapMarker, error) {
	rows, err := s.cases.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	views, err := s.agg.BuildAllForMap(ctx, rows)
	if err != nil {
		return nil, err
	}
	return Markers(ApplyMap(views, f)), nil
}

// RecentCases returns the latest RecentLimit cases by date recorded.
func (s *Service) RecentCases(ctx context.Context) ([]CaseView, error) {
	rows, err := s.cases.Recent(ctx, RecentLimit)
	if err != nil {
		return nil, err
	}
	return s.agg.BuildAll(ctx, rows)
}

// CountRecorded counts cases recorded on days in [from, to).
func (s *Service) CountRecorded(ctx context.Context, from, to time.Time) (int, error) {
	return s.cases.CountRecorded(ctx, from, to)
}

func (s *Service) Lists(ctx context.Context) (*CaseLists, error) {
	interventions, err := s.catalog.ListInterventions(ctx)
	if err != nil {
		return nil, err
	}
	injuries, err := s.catalog.ListInjuryTypes(ctx)
	if err != nil {
		return nil, err
	}
	return &CaseLists{
		Interventions: interventions,
		Injuries:      injuries,
		Sides:         bodymap.Sides,
		Severities:    bodymap.Severities,
	}, nil
}
