package cases

import (
	"fmt"
	"strings"
	"time"

	"github.com/ems/casebook/pkg/validation"
)

// ValidationError lists every failed field of a CaseForm.
type ValidationError = validation.Error

var timeLayouts = []string{"15:04:05", "15:04"}

// splitDateTime splits "YYYY-MM-DD HH:MM[:SS]" into its date and time parts.
func splitDateTime(v string) (date, clock string, err error) {
	date, clock, ok := strings.Cut(strings.TrimSpace(v), " ")
	if !ok {
		return "", "", fmt.Errorf("missing time in %q", v)
	}
	clock = strings.TrimSpace(clock)
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		return "", "", fmt.Errorf("invalid date %q", date)
	}
	for _, layout := range timeLayouts {
		if _, err := time.Parse(layout, clock); err == nil {
			return date, clock, nil
		}
	}
	return "", "", fmt.Errorf("invalid time %q", clock)
}

// ValidateForm checks a submission without touching storage. It returns a
// *ValidationError or nil.
func ValidateForm(f CaseForm) error {
	var v ValidationError
	v.Required("first_name", "First name", f.FirstName)
	v.Required("last_name", "Last name", f.LastName)
	v.Required("sex", "Sex", f.Sex)
	v.Required("date_time", "Date", f.DateTime)
	v.Required("location", "Location", f.Location)
	v.Required("cause", "Cause", f.Cause)

	if !v.Has("date_time") {
		if _, _, err := splitDateTime(f.DateTime); err != nil {
			v.Add("date_time", "Date must be YYYY-MM-DD HH:MM")
		}
	}
	if f.Age != nil && *f.Age < 0 {
		v.Add("age", "Age must not be negative")
	}
	if (f.Latitude == nil) != (f.Longitude == nil) {
		v.Add("latitude", "Latitude and longitude must be given together")
	} else if f.Latitude != nil {
		if *f.Latitude < -90 || *f.Latitude > 90 {
			v.Add("latitude", "Latitude must be between -90 and 90")
		}
		if *f.Longitude < -180 || *f.Longitude > 180 {
			v.Add("longitude", "Longitude must be between -180 and 180")
		}
	}

	if len(f.Injuries) == 0 {
		v.Add("injuries", "Need to specify injury")
	}
	for i, in := range f.Injuries {
		field := fmt.Sprintf("injuries[%d]", i)
		switch {
		case in.Type == "":
			v.Add(field+".type", "Injury Type is required")
		case !in.Type.Valid():
			v.Add(field+".type", fmt.Sprintf("Unknown injury type %q", in.Type))
		}
		switch {
		case in.Severity == "":
			v.Add(field+".severity", "Severity is required")
		case !in.Severity.Valid():
			v.Add(field+".severity", fmt.Sprintf("Unknown severity %q", in.Severity))
		}
		switch {
		case in.Side == "":
			v.Add(field+".side", "Side is required")
		case !in.Side.Valid():
			v.Add(field+".side", fmt.Sprintf("Unknown side %q", in.Side))
		}
		v.Required(field+".location", "Location", in.Location)
	}

	if len(f.Interventions) == 0 {
		v.Add("interventions", "Need to specify intervention")
	}
	return v.Err()
}
