package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/programme-booking-api/internal/dto"
	"github.com/noah-isme/programme-booking-api/internal/models"
	appErrors "github.com/noah-isme/programme-booking-api/pkg/errors"
	"github.com/noah-isme/programme-booking-api/pkg/export"
	"github.com/noah-isme/programme-booking-api/pkg/storage"
)

type registrationAdminStore interface {
	FindDetailByID(ctx context.Context, id string) (*models.RegistrationDetail, error)
	UpdateStatus(ctx context.Context, id string, status models.RegistrationStatus) error
	List(ctx context.Context, filter models.RegistrationFilter) ([]models.RegistrationDetail, int, error)
	ListByEdition(ctx context.Context, editionID string) ([]models.RegistrationDetail, error)
	ChoiceDetails(ctx context.Context, registrationID string) ([]models.ChoiceDetail, error)
	ChoiceDetailsForEdition(ctx context.Context, editionID string) (map[string][]models.ChoiceDetail, error)
}

type statusNotifier interface {
	NotifyStatusChanged(registration *models.RegistrationDetail, choices []models.ChoiceDetail) bool
}

type editionFinder interface {
	FindByID(ctx context.Context, id string) (*models.Edition, error)
}

// StatusService drives the registration confirmation workflow and the admin
// read surface, including participant list exports.
type StatusService struct {
	registrations registrationAdminStore
	editions      editionFinder
	notifier      statusNotifier
	metrics       *MetricsService
	csv           *export.CSVExporter
	pdf           *export.PDFExporter
	store         *storage.ExportStore
	signer        *storage.ExportLinkSigner
	logger        *zap.Logger
	location      *time.Location
}

// NewStatusService constructs StatusService. displayTimezone formats session
// dates in exports; unknown zones fall back to UTC. store and signer enable
// shareable export links and may be nil to disable them.
func NewStatusService(
	registrations registrationAdminStore,
	editions editionFinder,
	notifier statusNotifier,
	metrics *MetricsService,
	store *storage.ExportStore,
	signer *storage.ExportLinkSigner,
	displayTimezone string,
	logger *zap.Logger,
) *StatusService {
	if logger == nil {
		logger = zap.NewNop()
	}
	location, err := time.LoadLocation(displayTimezone)
	if err != nil {
		location = time.UTC
	}
	return &StatusService{
		registrations: registrations,
		editions:      editions,
		notifier:      notifier,
		metrics:       metrics,
		csv:           export.NewCSVExporter(),
		pdf:           export.NewPDFExporter(),
		store:         store,
		signer:        signer,
		logger:        logger,
		location:      location,
	}
}

// SetStatus transitions a registration to the requested status. Repeating the
// current status is an idempotent no-op and sends no mail. Confirmed and
// cancelled transitions hand a participant notification to the dispatcher;
// EmailSent reports whether that handover happened, not delivery.
func (s *StatusService) SetStatus(ctx context.Context, id string, status models.RegistrationStatus) (*dto.StatusResponse, error) {
	if !status.Valid() {
		return nil, appErrors.Validation("invalid status", []appErrors.FieldViolation{{
			Field:   "status",
			Rule:    "oneof",
			Message: "status must be one of pending, confirmed, cancelled",
		}})
	}

	detail, err := s.registrations.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
	}

	if detail.Status == status {
		return &dto.StatusResponse{Registration: *detail, EmailSent: false, Message: "status unchanged"}, nil
	}

	if err := s.registrations.UpdateStatus(ctx, id, status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update registration status")
	}
	detail.Status = status
	detail.UpdatedAt = time.Now().UTC()
	s.metrics.RecordStatusTransition(string(status))

	emailSent := false
	if status == models.RegistrationStatusConfirmed || status == models.RegistrationStatusCancelled {
		choices, err := s.registrations.ChoiceDetails(ctx, id)
		if err != nil {
			s.logger.Sugar().Warnw("failed to load choices for status notification", "registration_id", id, "error", err)
		} else {
			emailSent = s.notifier.NotifyStatusChanged(detail, choices)
		}
	}

	return &dto.StatusResponse{Registration: *detail, EmailSent: emailSent}, nil
}

// Get returns a registration with its resolved date choices.
func (s *StatusService) Get(ctx context.Context, id string) (*models.RegistrationDetail, []models.ChoiceDetail, error) {
	detail, err := s.registrations.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
	}
	choices, err := s.registrations.ChoiceDetails(ctx, id)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load date choices")
	}
	return detail, choices, nil
}

// List returns registrations matching the filter with pagination metadata.
func (s *StatusService) List(ctx context.Context, filter models.RegistrationFilter) ([]models.RegistrationDetail, *models.Pagination, error) {
	registrations, total, err := s.registrations.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list registrations")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return registrations, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Export formats. PDF is meant for printing attendance lists, CSV for
// spreadsheet follow-up.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

// Export renders the complete participant list of an edition. Returns the
// file bytes, its content type and a suggested filename.
func (s *StatusService) Export(ctx context.Context, editionID, format string) ([]byte, string, string, error) {
	edition, err := s.editions.FindByID(ctx, editionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", "", appErrors.Clone(appErrors.ErrNotFound, "edition not found")
		}
		return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load edition")
	}

	registrations, err := s.registrations.ListByEdition(ctx, editionID)
	if err != nil {
		return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registrations")
	}
	choicesByRegistration, err := s.registrations.ChoiceDetailsForEdition(ctx, editionID)
	if err != nil {
		return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load date choices")
	}

	dataset := s.buildDataset(registrations, choicesByRegistration)
	dataset.Title = fmt.Sprintf("%s registrations", edition.Title)

	switch format {
	case ExportFormatCSV:
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return data, "text/csv", fmt.Sprintf("%s-registrations.csv", edition.ProgrammeKey), nil
	case ExportFormatPDF:
		data, err := s.pdf.Render(dataset)
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return data, "application/pdf", fmt.Sprintf("%s-registrations.pdf", edition.ProgrammeKey), nil
	default:
		return nil, "", "", appErrors.Validation("invalid export format", []appErrors.FieldViolation{{
			Field:   "format",
			Rule:    "oneof",
			Message: "format must be csv or pdf",
		}})
	}
}

// ExportLink renders an export, archives it on disk and returns a signed
// download token. The token alone authorizes the download, so the list can be
// shared with people who have no admin access.
func (s *StatusService) ExportLink(ctx context.Context, editionID, format string) (*dto.ExportLinkResponse, error) {
	if s.store == nil || s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "export links are not configured")
	}

	data, _, filename, err := s.Export(ctx, editionID, format)
	if err != nil {
		return nil, err
	}

	relPath := fmt.Sprintf("%s/%d-%s", editionID, time.Now().UTC().Unix(), filename)
	if _, err := s.store.Save(relPath, data); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}

	token, expiresAt, err := s.signer.Generate(editionID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export link")
	}

	return &dto.ExportLinkResponse{
		Token:     token,
		Filename:  filename,
		ExpiresAt: expiresAt.UTC(),
	}, nil
}

// OpenExport validates a download token and opens the archived file. The
// caller owns the returned handle.
func (s *StatusService) OpenExport(token string) (*os.File, string, error) {
	if s.store == nil || s.signer == nil {
		return nil, "", appErrors.Clone(appErrors.ErrUnavailable, "export links are not configured")
	}

	_, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export link is invalid or expired")
	}

	file, err := s.store.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export file no longer available")
	}

	contentType := "text/csv"
	if strings.HasSuffix(relPath, ".pdf") {
		contentType = "application/pdf"
	}
	return file, contentType, nil
}

func (s *StatusService) buildDataset(registrations []models.RegistrationDetail, choices map[string][]models.ChoiceDetail) export.Dataset {
	dataset := export.Dataset{
		Headers: []string{"Name", "Email", "Phone", "Status", "Chosen dates", "Registered at"},
		Rows:    make([]map[string]string, 0, len(registrations)),
	}
	for _, registration := range registrations {
		lines := make([]string, 0, len(choices[registration.ID]))
		for _, choice := range choices[registration.ID] {
			start := choice.StartsAt.In(s.location)
			lines = append(lines, fmt.Sprintf("S%d %s %s", choice.SessionNumber, start.Format("02-01-2006 15:04"), choice.Location))
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Name":          fmt.Sprintf("%s %s", registration.FirstName, registration.LastName),
			"Email":         registration.Email,
			"Phone":         registration.Phone,
			"Status":        string(registration.Status),
			"Chosen dates":  strings.Join(lines, "; "),
			"Registered at": registration.CreatedAt.In(s.location).Format("02-01-2006 15:04"),
		})
	}
	return dataset
}
