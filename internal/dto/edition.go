package dto

import "time"

// DateOptionInput is one date/time/location slot inside an edition write.
// ID is set when updating an existing option; empty for new options.
type DateOptionInput struct {
	ID          string    `json:"id"`
	StartsAt    time.Time `json:"startsAt"`
	Location    string    `json:"location"`
	MaxCapacity *int      `json:"maxCapacity,omitempty"`
}

// SessionInput is one session inside an edition write. Sessions absent from
// an update are deleted together with their date options.
type SessionInput struct {
	ID            string            `json:"id"`
	SessionNumber int               `json:"sessionNumber"`
	Title         string            `json:"title"`
	TitleEN       string            `json:"titleEn"`
	DateOptions   []DateOptionInput `json:"dateOptions"`
}

// UpsertEditionRequest carries the full edition aggregate for create and
// update. Updates replace the session set wholesale: present ids are
// upserted, absent existing ones removed.
type UpsertEditionRequest struct {
	ProgrammeKey      string         `json:"programmeKey" validate:"required"`
	Title             string         `json:"title" validate:"required"`
	TitleEN           string         `json:"titleEn"`
	MaxCapacity       int            `json:"maxCapacity" validate:"gte=0"`
	IsActive          *bool          `json:"isActive,omitempty"`
	SessionsMandatory bool           `json:"sessionsMandatory"`
	Sessions          []SessionInput `json:"sessions" validate:"required,min=1"`
}
