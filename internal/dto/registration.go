package dto

import (
	"time"

	"github.com/noah-isme/programme-booking-api/internal/models"
)

// RegisterRequest is the public booking submission for an edition.
type RegisterRequest struct {
	FirstName   string   `json:"firstName" validate:"required"`
	LastName    string   `json:"lastName" validate:"required"`
	Email       string   `json:"email" validate:"required,email"`
	Phone       string   `json:"phone" validate:"required,min=6,max=20"`
	WhatsApp    *string  `json:"whatsapp,omitempty"`
	Message     *string  `json:"message,omitempty"`
	Consent     bool     `json:"consent"`
	DateChoices []string `json:"dateChoices" validate:"required,min=1"`
}

// RegisterResponse acknowledges a created registration.
type RegisterResponse struct {
	RegistrationID string                    `json:"registrationId"`
	Status         models.RegistrationStatus `json:"status"`
}

// ConflictDetails lists the date options that became full, so the client can
// re-fetch availability and let the participant choose again.
type ConflictDetails struct {
	FullDates []string `json:"fullDates"`
}

// UpdateStatusRequest drives the confirmation workflow.
type UpdateStatusRequest struct {
	Status models.RegistrationStatus `json:"status" validate:"required"`
}

// ExportLinkResponse carries a signed, shareable export download token.
type ExportLinkResponse struct {
	Token     string    `json:"token"`
	Filename  string    `json:"filename"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// StatusResponse reports the result of a status transition. EmailSent is true
// when a notification was handed to the dispatcher; Message carries
// "status unchanged" for idempotent no-ops.
type StatusResponse struct {
	Registration models.RegistrationDetail `json:"registration"`
	EmailSent    bool                      `json:"emailSent"`
	Message      string                    `json:"message,omitempty"`
}
