package bodymap

import (
	"fmt"
	"strings"
)

// InjuryUpdate changes one editable field of a draft. The implementations
// below are the complete set.
type InjuryUpdate interface {
	apply(d *InjuryDraft)
	validate() error
}

type SetType struct{ Type InjuryType }

type SetSeverity struct{ Severity Severity }

type SetSide struct{ Side Side }

type SetLocation struct{ Location string }

type SetDescription struct{ Description string }

func (u SetType) apply(d *InjuryDraft)        { d.Type = u.Type }
func (u SetSeverity) apply(d *InjuryDraft)    { d.Severity = u.Severity }
func (u SetSide) apply(d *InjuryDraft)        { d.Side = u.Side }
func (u SetLocation) apply(d *InjuryDraft)    { d.Location = u.Location }
func (u SetDescription) apply(d *InjuryDraft) { d.Description = u.Description }

func (u SetType) validate() error {
	if !u.Type.Valid() {
		return fmt.Errorf("invalid injury type %q", u.Type)
	}
	return nil
}

func (u SetSeverity) validate() error {
	if !u.Severity.Valid() {
		return fmt.Errorf("invalid severity %q", u.Severity)
	}
	return nil
}

func (u SetSide) validate() error {
	if !u.Side.Valid() {
		return fmt.Errorf("invalid side %q", u.Side)
	}
	return nil
}

func (u SetLocation) validate() error {
	if strings.TrimSpace(u.Location) == "" {
		return fmt.Errorf("location is required")
	}
	return nil
}

func (u SetDescription) validate() error { return nil }

// ParseUpdate maps a wire {field, value} pair onto its update.
func ParseUpdate(field, value string) (InjuryUpdate, error) {
	var u InjuryUpdate
	switch field {
	case "type":
		u = SetType{Type: InjuryType(value)}
	case "severity":
		u = SetSeverity{Severity: Severity(value)}
	case "side":
		u = SetSide{Side: Side(value)}
	case "location":
		u = SetLocation{Location: value}
	case "description":
		u = SetDescription{Description: value}
	default:
		return nil, fmt.Errorf("unknown injury field %q", field)
	}
	if err := u.validate(); err != nil {
		return nil, err
	}
	return u, nil
}
