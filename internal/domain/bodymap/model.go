package bodymap

import (
	"fmt"
	"slices"
)

// Side is the body view an injury was marked on.
type Side string

const (
	Front Side = "Front"
	Back  Side = "Back"
)

var Sides = []Side{Front, Back}

func (s Side) Valid() bool { return s == Front || s == Back }

func ParseSide(v string) (Side, error) {
	s := Side(v)
	if !s.Valid() {
		return "", fmt.Errorf("invalid side %q", v)
	}
	return s, nil
}

type InjuryType string

const (
	Laceration  InjuryType = "Laceration"
	Abrasion    InjuryType = "Abrasion"
	Fracture    InjuryType = "Fracture"
	Burn        InjuryType = "Burn"
	Contusion   InjuryType = "Contusion"
	Puncture    InjuryType = "Puncture"
	Sprain      InjuryType = "Sprain"
	Dislocation InjuryType = "Dislocation"
	OtherInjury InjuryType = "Other"
)

var InjuryTypes = []InjuryType{
	Laceration, Abrasion, Fracture, Burn, Contusion, Puncture, Sprain, Dislocation, OtherInjury,
}

func (t InjuryType) Valid() bool { return slices.Contains(InjuryTypes, t) }

func ParseInjuryType(v string) (InjuryType, error) {
	t := InjuryType(v)
	if !t.Valid() {
		return "", fmt.Errorf("invalid injury type %q", v)
	}
	return t, nil
}

// Severity is ordered from Mild to Critical.
type Severity string

const (
	Mild     Severity = "Mild"
	Moderate Severity = "Moderate"
	Severe   Severity = "Severe"
	Critical Severity = "Critical"
)

var Severities = []Severity{Mild, Moderate, Severe, Critical}

func (s Severity) Valid() bool { return slices.Contains(Severities, s) }

// Rank orders severities; invalid values rank -1.
func (s Severity) Rank() int { return slices.Index(Severities, s) }

func ParseSeverity(v string) (Severity, error) {
	s := Severity(v)
	if !s.Valid() {
		return "", fmt.Errorf("invalid severity %q", v)
	}
	return s, nil
}

// InjuryDraft is an injury marker that has not been saved with a case yet.
type InjuryDraft struct {
	ID          string     `json:"id"`
	X           float64    `json:"x"`
	Y           float64    `json:"y"`
	Type        InjuryType `json:"type"`
	Severity    Severity   `json:"severity"`
	Side        Side       `json:"side"`
	Location    string     `json:"location"`
	Description string     `json:"description,omitempty"`
}
