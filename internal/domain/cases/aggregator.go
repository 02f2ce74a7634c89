package cases

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds how many cases BuildAll aggregates at once.
const DefaultConcurrency = 8

// Aggregator joins a case row with its patient, injuries, intervention
// titles and, for details, its responder. Any failed lookup fails the whole
// view.
type Aggregator struct {
	patients    PatientLookup
	injuries    InjuryRepository
	catalog     CatalogRepository
	responders  ResponderLookup
	concurrency int
}

func NewAggregator(patients PatientLookup, injuries InjuryRepository, catalog CatalogRepository, responders ResponderLookup) *Aggregator {
	return &Aggregator{
		patients:    patients,
		injuries:    injuries,
		catalog:     catalog,
		responders:  responders,
		concurrency: DefaultConcurrency,
	}
}

// SetConcurrency changes the BuildAll bound. Values below 1 are ignored.
func (a *Aggregator) SetConcurrency(n int) {
	if n >= 1 {
		a.concurrency = n
	}
}

// InterventionTitles resolves value codes to titles in the given order. An
// unknown code is an error.
func (a *Aggregator) InterventionTitles(ctx context.Context, values []string) ([]string, error) {
	if len(values) == 0 {
		return []string{}, nil
	}
	known, err := a.catalog.InterventionsByValue(ctx, values)
	if err != nil {
		return nil, err
	}
	titles := make([]string, len(values))
	for i, v := range values {
		in, ok := known[v]
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownIntervention, v)
		}
		titles[i] = in.Title
	}
	return titles, nil
}

func (a *Aggregator) build(ctx context.Context, c Case, withInterventions bool) (*CaseView, error) {
	view := &CaseView{Case: c}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		p, err := a.patients.GetByNumber(ctx, c.PatientNumber)
		if err != nil {
			return fmt.Errorf("patient %s: %w", c.PatientNumber, err)
		}
		view.Patient = p
		return nil
	})
	g.Go(func() error {
		injuries, err := a.injuries.ListByCase(ctx, c.CaseNumber, c.PatientNumber)
		if err != nil {
			return fmt.Errorf("injuries: %w", err)
		}
		if injuries == nil {
			injuries = []Injury{}
		}
		view.Injuries = injuries
		return nil
	})
	if withInterventions {
		g.Go(func() error {
			titles, err := a.InterventionTitles(ctx, c.Interventions)
			if err != nil {
				return fmt.Errorf("interventions: %w", err)
			}
			view.Interventions = titles
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("build case %s: %w", c.CaseNumber, err)
	}
	return view, nil
}

// BuildCase runs the patient, injury and intervention lookups concurrently.
func (a *Aggregator) BuildCase(ctx context.Context, c Case) (*CaseView, error) {
	return a.build(ctx, c, true)
}

// BuildMapCase skips the intervention lookup; map markers do not show them.
func (a *Aggregator) BuildMapCase(ctx context.Context, c Case) (*CaseView, error) {
	return a.build(ctx, c, false)
}

// BuildCaseDetails loads caseNumber and adds the recording responder to
// the view. An unknown number returns ErrCaseNotFound.
func (a *Aggregator) BuildCaseDetails(ctx context.Context, cases CaseRepository, caseNumber string) (*CaseDetailsView, error) {
	c, err := cases.GetByNumber(ctx, caseNumber)
	if err != nil {
		return nil, err
	}

	var (
		view   *CaseView
		detail = &CaseDetailsView{}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		view, err = a.BuildCase(gctx, *c)
		return err
	})
	g.Go(func() error {
		r, err := a.responders.GetResponder(gctx, c.ResponderID)
		if err != nil {
			return fmt.Errorf("responder %s: %w", c.ResponderID, err)
		}
		detail.Responder = r
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	detail.CaseView = *view
	return detail, nil
}

func (a *Aggregator) buildAll(ctx context.Context, rows []Case, build func(context.Context, Case) (*CaseView, error)) ([]CaseView, error) {
	out := make([]CaseView, len(rows))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i := range rows {
		g.Go(func() error {
			v, err := build(ctx, rows[i])
			if err != nil {
				return err
			}
			out[i] = *v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// BuildAll aggregates every row, keeping the input order. The first error
// cancels the rest and is returned alone.
func (a *Aggregator) BuildAll(ctx context.Context, rows []Case) ([]CaseView, error) {
	return a.buildAll(ctx, rows, a.BuildCase)
}

func (a *Aggregator) BuildAllForMap(ctx context.Context, rows []Case) ([]CaseView, error) {
	return a.buildAll(ctx, rows, a.BuildMapCase)
}
