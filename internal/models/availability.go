package models

// DateAvailability is the derived seat ledger for a single date option.
// It is never stored; every read recomputes it from committed rows so that
// cancellations free seats immediately and admin capacity edits cannot cause
// counter drift.
type DateAvailability struct {
	DateOptionID   string `db:"date_option_id" json:"date_option_id"`
	MaxCapacity    int    `db:"max_capacity" json:"max_capacity"`
	CurrentCount   int    `db:"current_count" json:"current_count"`
	RemainingSpots int    `db:"remaining_spots" json:"remaining_spots"`
	IsFull         bool   `db:"is_full" json:"is_full"`
}
