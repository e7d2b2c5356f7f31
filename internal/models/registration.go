package models

import "time"

// RegistrationStatus represents the confirmation workflow state.
type RegistrationStatus string

// Possible registration statuses. Pending is the initial state; confirmed and
// cancelled are terminal in the normal flow, though same-state transitions are
// treated as no-ops rather than errors.
const (
	RegistrationStatusPending   RegistrationStatus = "pending"
	RegistrationStatusConfirmed RegistrationStatus = "confirmed"
	RegistrationStatusCancelled RegistrationStatus = "cancelled"
)

// Valid reports whether the status is a known workflow state.
func (s RegistrationStatus) Valid() bool {
	switch s {
	case RegistrationStatusPending, RegistrationStatusConfirmed, RegistrationStatusCancelled:
		return true
	}
	return false
}

// Registration is one participant's submission against an edition. Cancelled
// registrations stay on record for auditing; only an edition hard delete
// removes them.
type Registration struct {
	ID        string             `db:"id" json:"id"`
	EditionID string             `db:"edition_id" json:"edition_id"`
	FirstName string             `db:"first_name" json:"first_name"`
	LastName  string             `db:"last_name" json:"last_name"`
	Email     string             `db:"email" json:"email"`
	Phone     string             `db:"phone" json:"phone"`
	WhatsApp  *string            `db:"whatsapp" json:"whatsapp,omitempty"`
	Message   *string            `db:"message" json:"message,omitempty"`
	Consent   bool               `db:"consent" json:"consent"`
	Status    RegistrationStatus `db:"status" json:"status"`
	CreatedAt time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt time.Time          `db:"updated_at" json:"updated_at"`
}

// DateChoice links a registration to the date option it selected for one
// session. Created atomically with its registration.
type DateChoice struct {
	RegistrationID string `db:"registration_id" json:"registration_id"`
	DateOptionID   string `db:"date_option_id" json:"date_option_id"`
}

// RegistrationDetail enriches a registration with its edition title.
type RegistrationDetail struct {
	Registration
	EditionTitle string `db:"edition_title" json:"edition_title"`
	ProgrammeKey string `db:"programme_key" json:"programme_key"`
}

// ChoiceDetail is a date choice resolved through its session and date option,
// ordered by session number for display.
type ChoiceDetail struct {
	DateOptionID  string    `db:"date_option_id" json:"date_option_id"`
	SessionID     string    `db:"session_id" json:"session_id"`
	SessionNumber int       `db:"session_number" json:"session_number"`
	SessionTitle  string    `db:"session_title" json:"session_title"`
	StartsAt      time.Time `db:"starts_at" json:"starts_at"`
	Location      string    `db:"location" json:"location"`
}

// RegistrationFilter provides filters for listing registrations.
type RegistrationFilter struct {
	EditionID string
	Status    RegistrationStatus
	Page      int
	PageSize  int
}
