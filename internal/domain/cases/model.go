package cases

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/ems/casebook/internal/domain/bodymap"
	"github.com/ems/casebook/internal/domain/patient"
	"github.com/ems/casebook/internal/domain/responder"
)

type Status string

const (
	Active      Status = "Active"
	Critical    Status = "Critical"
	Stable      Status = "Stable"
	Transferred Status = "Transferred"
	Closed      Status = "Closed"
)

var Statuses = []Status{Active, Critical, Stable, Transferred, Closed}

func (s Status) Valid() bool { return slices.Contains(Statuses, s) }

func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if !s.Valid() {
		return "", fmt.Errorf("invalid status %q", v)
	}
	return s, nil
}

// Case maps to the cases table. Interventions holds value codes.
type Case struct {
	ID                uuid.UUID `db:"id" json:"id"`
	CaseNumber        string    `db:"case_number" json:"case_number"`
	PatientNumber     string    `db:"patient_number" json:"patient_number"`
	Cause             string    `db:"cause" json:"cause"`
	Description       *string   `db:"description" json:"description"`
	Location          string    `db:"location" json:"location"`
	Latitude          *float64  `db:"latitude" json:"latitude"`
	Longitude         *float64  `db:"longitude" json:"longitude"`
	DateRecorded      string    `db:"date_recorded" json:"date_recorded"`
	TimeRecorded      string    `db:"time_recorded" json:"time_recorded"`
	Interventions     []string  `db:"interventions" json:"interventions"`
	Status            Status    `db:"status" json:"status"`
	StatusDescription *string   `db:"status_description" json:"status_description"`
	ResponderID       uuid.UUID `db:"responder_id" json:"responder_id"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

// RecordedOn parses DateRecorded. Unparseable dates yield the zero time.
func (c *Case) RecordedOn() time.Time {
	t, err := time.Parse(time.DateOnly, c.DateRecorded)
	if err != nil {
		return time.Time{}
	}
	return t
}

type Injury struct {
	ID            uuid.UUID          `db:"id" json:"id"`
	CaseNumber    string             `db:"case_number" json:"case_number"`
	PatientNumber string             `db:"patient_number" json:"patient_number"`
	Location      string             `db:"location" json:"location"`
	Type          bodymap.InjuryType `db:"type" json:"type"`
	Severity      bodymap.Severity   `db:"severity" json:"severity"`
	Side          bodymap.Side       `db:"side" json:"side"`
	Description   *string            `db:"description" json:"description"`
	X             float64            `db:"x" json:"x"`
	Y             float64            `db:"y" json:"y"`
	CreatedAt     time.Time          `db:"created_at" json:"created_at"`
}

type Intervention struct {
	ID        int       `db:"id" json:"id"`
	Value     string    `db:"value" json:"value"`
	Title     string    `db:"title" json:"title"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type InjuryTypeItem struct {
	ID          int       `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// CaseView is a case with its patient, injuries and intervention titles.
// The Interventions field shadows the value codes of the embedded row.
type CaseView struct {
	Case
	Interventions []string         `json:"interventions"`
	Patient       *patient.Patient `json:"patient"`
	Injuries      []Injury         `json:"injuries"`
}

// CaseDetailsView adds the recording responder.
type CaseDetailsView struct {
	CaseView
	Responder *responder.Profile `json:"responder"`
}

// CaseLists feeds the case form selects.
type CaseLists struct {
	Interventions []Intervention     `json:"interventions"`
	Injuries      []InjuryTypeItem   `json:"injuries"`
	Sides         []bodymap.Side     `json:"sides"`
	Severities    []bodymap.Severity `json:"severities"`
}

// CaseForm is the new-case submission. DateTime is "YYYY-MM-DD HH:MM[:SS]".
type CaseForm struct {
	FirstName          string                `json:"first_name"`
	MiddleName         *string               `json:"middle_name,omitempty"`
	LastName           string                `json:"last_name"`
	Suffix             *string               `json:"suffix,omitempty"`
	Age                *int                  `json:"age,omitempty"`
	Sex                string                `json:"sex"`
	ContactInfo        string                `json:"contact_info"`
	WithMedicalHistory bool                  `json:"with_medical_history"`
	MedicalHistory     *string               `json:"medical_history,omitempty"`
	DateTime           string                `json:"date_time"`
	Location           string                `json:"location"`
	Latitude           *float64              `json:"latitude,omitempty"`
	Longitude          *float64              `json:"longitude,omitempty"`
	Cause              string                `json:"cause"`
	Description        *string               `json:"description,omitempty"`
	Injuries           []bodymap.InjuryDraft `json:"injuries"`
	Interventions      []string              `json:"interventions"`
	UseDraft           bool                  `json:"use_draft"`
}

// MapMarker is one case plotted on the incident map.
type MapMarker struct {
	CaseNumber    string           `json:"case_number"`
	PatientNumber string           `json:"patient_number"`
	Status        Status           `json:"status"`
	Cause         string           `json:"cause"`
	Location      string           `json:"location"`
	Latitude      float64          `json:"latitude"`
	Longitude     float64          `json:"longitude"`
	DateRecorded  string           `json:"date_recorded"`
	PatientName   string           `json:"patient_name"`
	InjuryCount   int              `json:"injury_count"`
	WorstSeverity bodymap.Severity `json:"worst_severity,omitempty"`
}
