package identity

import (
	"time"

	"github.com/google/uuid"
)

// Patient maps to the patient table.
type Patient struct {
	ID                  uuid.UUID  `db:"id" json:"id"`
	FirstName           string     `db:"first_name" json:"first_name"`
	LastName            string     `db:"last_name" json:"last_name"`
	DateOfBirth         *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender              *string    `db:"gender" json:"gender,omitempty"`
	Email               *string    `db:"email" json:"email,omitempty"`
	Phone               *string    `db:"phone" json:"phone,omitempty"`
	Address             *string    `db:"address" json:"address,omitempty"`
	MedicalAidName      *string    `db:"medical_aid_name" json:"medical_aid_name,omitempty"`
	MedicalAidNumber    *string    `db:"medical_aid_number" json:"medical_aid_number,omitempty"`
	MedicalAidPlan      *string    `db:"medical_aid_plan" json:"medical_aid_plan,omitempty"`
	AssignedTherapistID *uuid.UUID `db:"assigned_therapist_id" json:"assigned_therapist_id,omitempty"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

// FullName returns the patient's display name.
func (p *Patient) FullName() string {
	return p.FirstName + " " + p.LastName
}

// Therapist maps to the therapist table.
type Therapist struct {
	ID         uuid.UUID `db:"id" json:"id"`
	FirstName  string    `db:"first_name" json:"first_name"`
	LastName   string    `db:"last_name" json:"last_name"`
	Profession string    `db:"profession" json:"profession"`
	Email      *string   `db:"email" json:"email,omitempty"`
	Phone      *string   `db:"phone" json:"phone,omitempty"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// FullName returns the therapist's display name.
func (t *Therapist) FullName() string {
	return t.FirstName + " " + t.LastName
}

// PatientSummary combines a patient record with their assigned therapist.
type PatientSummary struct {
	Patient   *Patient   `json:"patient"`
	Therapist *Therapist `json:"therapist,omitempty"`
}
