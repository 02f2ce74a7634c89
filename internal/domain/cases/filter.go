package cases

import (
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/ems/casebook/internal/domain/bodymap"
)

// Filter narrows an aggregated case list. Empty fields and "All" are
// ignored.
type Filter struct {
	Status        string
	Severity      string
	Search        string
	SortDirection string
}

func active(v string) bool { return v != "" && v != "All" }

// match applies the status, severity and search steps in that order.
func match(items []CaseView, f Filter) []CaseView {
	out := slices.Clone(items)

	if active(f.Status) {
		out = lo.Filter(out, func(v CaseView, _ int) bool { return string(v.Status) == f.Status })
	}

	if active(f.Severity) {
		out = lo.Filter(out, func(v CaseView, _ int) bool {
			return lo.ContainsBy(v.Injuries, func(in Injury) bool { return string(in.Severity) == f.Severity })
		})
	}

	if f.Search != "" {
		q := strings.ToLower(f.Search)
		out = lo.Filter(out, func(v CaseView, _ int) bool {
			return strings.Contains(strings.ToLower(v.CaseNumber), q) ||
				strings.Contains(strings.ToLower(v.PatientNumber), q) ||
				strings.Contains(strings.ToLower(v.Cause), q)
		})
	}
	return out
}

// Apply filters and then stable-sorts by recorded date when a direction is
// set. The input slice is never modified.
func Apply(items []CaseView, f Filter) []CaseView {
	out := match(items, f)
	switch f.SortDirection {
	case "asc":
		slices.SortStableFunc(out, func(a, b CaseView) int { return a.RecordedOn().Compare(b.RecordedOn()) })
	case "desc":
		slices.SortStableFunc(out, func(a, b CaseView) int { return b.RecordedOn().Compare(a.RecordedOn()) })
	}
	return out
}

// ApplyMap filters like Apply but keeps the repository order.
func ApplyMap(items []CaseView, f Filter) []CaseView {
	return match(items, f)
}

// WorstSeverity returns the highest-ranked severity among injuries, or ""
// when there are none.
func WorstSeverity(injuries []Injury) bodymap.Severity {
	var worst bodymap.Severity
	for _, in := range injuries {
		if in.Severity.Rank() > worst.Rank() {
			worst = in.Severity
		}
	}
	return worst
}

// Markers turns map views into markers, skipping cases without coordinates.
func Markers(views []CaseView) []MapMarker {
	out := []MapMarker{}
	for _, v := range views {
		if v.Latitude == nil || v.Longitude == nil {
			continue
		}
		m := MapMarker{
			CaseNumber:    v.CaseNumber,
			PatientNumber: v.PatientNumber,
			Status:        v.Status,
			Cause:         v.Cause,
			Location:      v.Location,
			Latitude:      *v.Latitude,
			Longitude:     *v.Longitude,
			DateRecorded:  v.DateRecorded,
			InjuryCount:   len(v.Injuries),
			WorstSeverity: WorstSeverity(v.Injuries),
		}
		if v.Patient != nil {
			m.PatientName = v.Patient.FullName()
		}
		out = append(out, m)
	}
	return out
}
