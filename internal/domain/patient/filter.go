package patient

import (
	"slices"
	"strings"

	"github.com/samber/lo"
)

// Filter narrows the patient list. Empty fields and "All" are ignored.
type Filter struct {
	Search        string
	Sex           string
	SortDirection string
}

// Apply filters by sex, then by a case-insensitive search over patient
// number, first and last name and medical history, then stable-sorts by
// creation time. The input slice is never modified.
func Apply(items []*Patient, f Filter) []*Patient {
	out := slices.Clone(items)

	if f.Sex != "" && f.Sex != "All" {
		out = lo.Filter(out, func(p *Patient, _ int) bool { return p.Sex == f.Sex })
	}

	if f.Search != "" {
		q := strings.ToLower(f.Search)
		out = lo.Filter(out, func(p *Patient, _ int) bool {
			return strings.Contains(strings.ToLower(p.PatientNumber), q) ||
				strings.Contains(strings.ToLower(p.FirstName), q) ||
				strings.Contains(strings.ToLower(p.LastName), q) ||
				(p.MedicalHistory != nil && strings.Contains(strings.ToLower(*p.MedicalHistory), q))
		})
	}

	switch f.SortDirection {
	case "asc":
		slices.SortStableFunc(out, func(a, b *Patient) int { return a.CreatedAt.Compare(b.CreatedAt) })
	case "desc":
		slices.SortStableFunc(out, func(a, b *Patient) int { return b.CreatedAt.Compare(a.CreatedAt) })
	}
	return out
}
