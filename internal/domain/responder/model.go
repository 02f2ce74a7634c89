package responder

import (
	"time"

	"github.com/google/uuid"
)

// User links an identity-provider subject to a responder profile.
type User struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	ExternalSubject string     `db:"external_subject" json:"external_subject"`
	LastLogin       *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}

type Organization struct {
	ID          int       `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type Role struct {
	ID          int       `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Level       string    `db:"level" json:"level"`
	ShiftType   string    `db:"shift_type" json:"shift_type"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type Certification struct {
	ID             int       `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Description    string    `db:"description" json:"description"`
	Organization   string    `db:"organization" json:"organization"`
	ExpiryDuration int       `db:"expiry_duration" json:"expiry_duration"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Profile is a responder. Organization, Role and Certifications are filled
// in by the service and are never stored on the row.
type Profile struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	UserID          uuid.UUID  `db:"user_id" json:"user_id"`
	FirstName       string     `db:"first_name" json:"first_name"`
	MiddleName      *string    `db:"middle_name" json:"middle_name,omitempty"`
	LastName        string     `db:"last_name" json:"last_name"`
	Suffix          *string    `db:"suffix" json:"suffix,omitempty"`
	AvatarURL       *string    `db:"avatar_url" json:"avatar_url,omitempty"`
	Email           *string    `db:"email" json:"email,omitempty"`
	Phone           *string    `db:"phone" json:"phone,omitempty"`
	BirthDate       *string    `db:"birth_date" json:"birth_date,omitempty"`
	Address         *string    `db:"address" json:"address,omitempty"`
	Sex             *string    `db:"sex" json:"sex,omitempty"`
	ResponderNumber *string    `db:"responder_number" json:"responder_number,omitempty"`
	OrganizationID  *int       `db:"organization_id" json:"organization_id,omitempty"`
	RoleID          *int       `db:"responder_role_id" json:"responder_role_id,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       *time.Time `db:"updated_at" json:"updated_at,omitempty"`

	Organization   *Organization   `json:"organization"`
	Role           *Role           `json:"responder"`
	Certifications []Certification `json:"certifications"`
}

// ProfileInfo is the personal-information form.
type ProfileInfo struct {
	FirstName  string  `json:"first_name"`
	MiddleName *string `json:"middle_name,omitempty"`
	LastName   string  `json:"last_name"`
	Suffix     *string `json:"suffix,omitempty"`
	BirthDate  string  `json:"birth_date"`
	Address    string  `json:"address"`
	Email      string  `json:"email"`
	Phone      string  `json:"phone"`
	Sex        string  `json:"sex"`
}

// Credentials is the responder-credentials form. Organization and role ids
// start at 1.
type Credentials struct {
	ResponderNumber string `json:"responder_number"`
	OrganizationID  int    `json:"organization_id"`
	RoleID          int    `json:"responder_role_id"`
	Certifications  []int  `json:"certifications"`
}

// Lists feeds the credential form selects.
type Lists struct {
	Organizations  []Organization  `json:"organizations"`
	Roles          []Role          `json:"responder_roles"`
	Certifications []Certification `json:"certifications"`
}
