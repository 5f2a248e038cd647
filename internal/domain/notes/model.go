package notes

import (
	"time"

	"github.com/google/uuid"
)

// TreatmentNote maps to the treatment_note table. Once signed, a note is
// immutable.
type TreatmentNote struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	BookingID   *uuid.UUID `db:"booking_id" json:"booking_id,omitempty"`
	PatientID   uuid.UUID  `db:"patient_id" json:"patient_id"`
	TherapistID uuid.UUID  `db:"therapist_id" json:"therapist_id"`
	Discipline  string     `db:"discipline" json:"discipline"`
	Subjective  *string    `db:"subjective" json:"subjective,omitempty"`
	Objective   *string    `db:"objective" json:"objective,omitempty"`
	Assessment  *string    `db:"assessment" json:"assessment,omitempty"`
	Plan        *string    `db:"plan" json:"plan,omitempty"`
	Signed      bool       `db:"signed" json:"signed"`
	SignedAt    *time.Time `db:"signed_at" json:"signed_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}
