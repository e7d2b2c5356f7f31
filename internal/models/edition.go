package models

import "time"

// Edition is one offering of a programme, containing ordered sessions.
// MaxCapacity is the default seat limit propagated to date options that do
// not override it.
type Edition struct {
	ID                string    `db:"id" json:"id"`
	ProgrammeKey      string    `db:"programme_key" json:"programme_key"`
	Title             string    `db:"title" json:"title"`
	TitleEN           string    `db:"title_en" json:"title_en"`
	MaxCapacity       int       `db:"max_capacity" json:"max_capacity"`
	IsActive          bool      `db:"is_active" json:"is_active"`
	SessionsMandatory bool      `db:"sessions_mandatory" json:"sessions_mandatory"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// Session is a numbered meeting within an edition. SessionNumber is unique
// per edition and defines ordering.
type Session struct {
	ID            string `db:"id" json:"id"`
	EditionID     string `db:"edition_id" json:"edition_id"`
	SessionNumber int    `db:"session_number" json:"session_number"`
	Title         string `db:"title" json:"title"`
	TitleEN       string `db:"title_en" json:"title_en"`
}

// DateOption is a bookable date/time/location slot for a session.
// MaxCapacity is nil when the option inherits the edition default.
type DateOption struct {
	ID          string    `db:"id" json:"id"`
	SessionID   string    `db:"session_id" json:"session_id"`
	StartsAt    time.Time `db:"starts_at" json:"starts_at"`
	Location    string    `db:"location" json:"location"`
	MaxCapacity *int      `db:"max_capacity" json:"max_capacity,omitempty"`
}

// EffectiveCapacity resolves the seat limit for an option given its edition
// default.
func (d DateOption) EffectiveCapacity(editionDefault int) int {
	if d.MaxCapacity != nil {
		return *d.MaxCapacity
	}
	return editionDefault
}

// DateOptionDetail enriches a date option with its derived availability.
type DateOptionDetail struct {
	DateOption
	Availability DateAvailability `json:"availability"`
}

// SessionDetail is a session with its date options.
type SessionDetail struct {
	Session
	DateOptions []DateOptionDetail `json:"date_options"`
}

// EditionDetail is the full aggregate returned by catalog reads.
type EditionDetail struct {
	Edition
	Sessions []SessionDetail `json:"sessions"`
}

// EditionFilter provides filters for listing editions.
type EditionFilter struct {
	ProgrammeKey string
	ActiveOnly   bool
	Page         int
	PageSize     int
}
