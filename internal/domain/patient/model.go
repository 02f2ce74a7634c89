package patient

import (
	"time"

	"github.com/google/uuid"
)

// Patient maps to the patients table. One patient row is created with every
// case.
type Patient struct {
	ID             uuid.UUID `db:"id" json:"id"`
	PatientNumber  string    `db:"patient_number" json:"patient_number"`
	FirstName      string    `db:"first_name" json:"first_name"`
	MiddleName     *string   `db:"middle_name" json:"middle_name,omitempty"`
	LastName       string    `db:"last_name" json:"last_name"`
	Suffix         *string   `db:"suffix" json:"suffix,omitempty"`
	Age            *int      `db:"age" json:"age,omitempty"`
	Sex            string    `db:"sex" json:"sex"`
	ContactInfo    string    `db:"contact_info" json:"contact_info"`
	MedicalHistory *string   `db:"medical_history" json:"medical_history,omitempty"`
	ResponderID    uuid.UUID `db:"responder_id" json:"responder_id"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// FullName joins the name parts that are set.
func (p *Patient) FullName() string {
	name := p.FirstName
	if p.MiddleName != nil && *p.MiddleName != "" {
		name += " " + *p.MiddleName
	}
	name += " " + p.LastName
	if p.Suffix != nil && *p.Suffix != "" {
		name += " " + *p.Suffix
	}
	return name
}

// Sex filter values offered by the patient list.
var Sexes = []string{"Male", "Female", "Others"}
