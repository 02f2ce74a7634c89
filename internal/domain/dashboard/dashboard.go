package dashboard

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"

	"github.com/ems/casebook/internal/domain/cases"
	"github.com/ems/casebook/internal/platform/auth"
)

// PatientCounter is the patient service surface the dashboard reads.
type PatientCounter interface {
	CountPatients(ctx context.Context) (int, error)
}

// CaseStats is the case service surface the dashboard reads.
type CaseStats interface {
	CountRecorded(ctx context.Context, from, to time.Time) (int, error)
	RecentCases(ctx context.Context) ([]cases.CaseView, error)
}

// Summary is the landing page payload.
type Summary struct {
	NumOfPatients  int              `json:"num_of_patients"`
	CasesToday     int              `json:"cases_today"`
	CasesThisMonth int              `json:"cases_this_month"`
	RecentCases    []cases.CaseView `json:"recent_cases"`
	GeneratedAt    time.Time        `json:"generated_at"`
}

// MeasureDefinition names a single dashboard figure.
type MeasureDefinition struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// MeasureReport holds one evaluated measure.
type MeasureReport struct {
	MeasureID   string    `json:"measure_id"`
	MeasureName string    `json:"measure_name"`
	GeneratedAt time.Time `json:"generated_at"`
	Value       int       `json:"value"`
}

var PredefinedMeasures = []MeasureDefinition{
	{ID: "patient-count", Name: "Patient Count", Description: "Total number of patients recorded"},
	{ID: "cases-today", Name: "Cases Today", Description: "Cases recorded on the current calendar day"},
	{ID: "cases-this-month", Name: "Cases This Month", Description: "Cases recorded since the first of the current month"},
}

func FindMeasure(id string) *MeasureDefinition {
	for i := range PredefinedMeasures {
		if PredefinedMeasures[i].ID == id {
			return &PredefinedMeasures[i]
		}
	}
	return nil
}

// dayBounds returns [start of day, start of next day) and [first of month,
// first of next month) in t's location.
func dayBounds(t time.Time) (dayFrom, dayTo, monthFrom, monthTo time.Time) {
	y, m, d := t.Date()
	dayFrom = time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	monthFrom = time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
	return dayFrom, dayFrom.AddDate(0, 0, 1), monthFrom, monthFrom.AddDate(0, 1, 0)
}

type Service struct {
	patients PatientCounter
	cases    CaseStats
	now      func() time.Time
}

func NewService(patients PatientCounter, cases CaseStats) *Service {
	return &Service{patients: patients, cases: cases, now: time.Now}
}

// Summary loads the counters and the recent cases concurrently. Any failure
// fails the whole summary.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	now := s.now()
	dayFrom, dayTo, monthFrom, monthTo := dayBounds(now)
	out := &Summary{GeneratedAt: now}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.patients.CountPatients(ctx)
		if err != nil {
			return fmt.Errorf("count patients: %w", err)
		}
		out.NumOfPatients = n
		return nil
	})
	g.Go(func() error {
		n, err := s.cases.CountRecorded(ctx, dayFrom, dayTo)
		if err != nil {
			return fmt.Errorf("count cases today: %w", err)
		}
		out.CasesToday = n
		return nil
	})
	g.Go(func() error {
		n, err := s.cases.CountRecorded(ctx, monthFrom, monthTo)
		if err != nil {
			return fmt.Errorf("count cases this month: %w", err)
		}
		out.CasesThisMonth = n
		return nil
	})
	g.Go(func() error {
		recent, err := s.cases.RecentCases(ctx)
		if err != nil {
			return fmt.Errorf("recent cases: %w", err)
		}
		if recent == nil {
			recent = []cases.CaseView{}
		}
		out.RecentCases = recent
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Evaluate computes a single measure by id.
func (s *Service) Evaluate(ctx context.Context, m *MeasureDefinition) (*MeasureReport, error) {
	now := s.now()
	dayFrom, dayTo, monthFrom, monthTo := dayBounds(now)

	var (
		value int
		err   error
	)
	switch m.ID {
	case "patient-count":
		value, err = s.patients.CountPatients(ctx)
	case "cases-today":
		value, err = s.cases.CountRecorded(ctx, dayFrom, dayTo)
	case "cases-this-month":
		value, err = s.cases.CountRecorded(ctx, monthFrom, monthTo)
	default:
		return nil, fmt.Errorf("no evaluator for measure %q", m.ID)
	}
	if err != nil {
		return nil, err
	}
	return &MeasureReport{MeasureID: m.ID, MeasureName: m.Name, GeneratedAt: now, Value: value}, nil
}

// Handler provides HTTP handlers for the dashboard API.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/dashboard", auth.RequireRole("responder"))
	g.GET("", h.Summary)
	g.GET("/measures", h.ListMeasures)
	g.GET("/measures/:id/evaluate", h.EvaluateMeasure)
}

func (h *Handler) Summary(c echo.Context) error {
	sum, err := h.svc.Summary(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, sum)
}

func (h *Handler) ListMeasures(c echo.Context) error {
	return c.JSON(http.StatusOK, PredefinedMeasures)
}

func (h *Handler) EvaluateMeasure(c echo.Context) error {
	m := FindMeasure(c.Param("id"))
	if m == nil {
		return echo.NewHTTPError(http.StatusNotFound, "measure not found")
	}
	report, err := h.svc.Evaluate(c.Request().Context(), m)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("evaluate measure: %v", err))
	}
	return c.JSON(http.StatusOK, report)
}
