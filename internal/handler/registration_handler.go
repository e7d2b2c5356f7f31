package handler

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/programme-booking-api/internal/dto"
	"github.com/noah-isme/programme-booking-api/internal/models"
	"github.com/noah-isme/programme-booking-api/internal/service"
	appErrors "github.com/noah-isme/programme-booking-api/pkg/errors"
	"github.com/noah-isme/programme-booking-api/pkg/response"
)

type bookingService interface {
	Register(ctx context.Context, idOrKey string, req dto.RegisterRequest) (*dto.RegisterResponse, error)
}

type workflowService interface {
	List(ctx context.Context, filter models.RegistrationFilter) ([]models.RegistrationDetail, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.RegistrationDetail, []models.ChoiceDetail, error)
	SetStatus(ctx context.Context, id string, status models.RegistrationStatus) (*dto.StatusResponse, error)
	Export(ctx context.Context, editionID, format string) ([]byte, string, string, error)
	ExportLink(ctx context.Context, editionID, format string) (*dto.ExportLinkResponse, error)
	OpenExport(token string) (*os.File, string, error)
}

// RegistrationHandler exposes the public booking endpoint and the admin
// registration workflow.
type RegistrationHandler struct {
	registrations bookingService
	status        workflowService
}

// NewRegistrationHandler constructs RegistrationHandler.
func NewRegistrationHandler(registrations bookingService, status workflowService) *RegistrationHandler {
	return &RegistrationHandler{registrations: registrations, status: status}
}

// Register godoc
// @Summary Register for an edition
// @Tags Registrations
// @Accept json
// @Produce json
// @Param idOrKey path string true "Edition ID or programme key"
// @Param payload body dto.RegisterRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope "One or more chosen dates are full"
// @Failure 422 {object} response.Envelope "Validation failed"
// @Router /editions/{idOrKey}/register [post]
func (h *RegistrationHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.registrations.Register(c.Request.Context(), c.Param("idOrKey"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// List godoc
// @Summary List registrations
// @Tags Registrations
// @Produce json
// @Param editionId query string false "Filter by edition"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /registrations [get]
func (h *RegistrationHandler) List(c *gin.Context) {
	var filter models.RegistrationFilter
	filter.EditionID = c.Query("editionId")
	filter.Status = models.RegistrationStatus(c.Query("status"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	registrations, pagination, err := h.status.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, registrations, pagination)
}

// Get godoc
// @Summary Get a registration with its date choices
// @Tags Registrations
// @Produce json
// @Param id path string true "Registration ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /registrations/{id} [get]
func (h *RegistrationHandler) Get(c *gin.Context) {
	registration, choices, err := h.status.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"registration": registration, "dateChoices": choices}, nil)
}

// UpdateStatus godoc
// @Summary Transition a registration's status
// @Tags Registrations
// @Accept json
// @Produce json
// @Param id path string true "Registration ID"
// @Param payload body dto.UpdateStatusRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /registrations/{id}/status [patch]
func (h *RegistrationHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.status.SetStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Export godoc
// @Summary Export an edition's participant list
// @Tags Registrations
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Edition ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Security BearerAuth
// @Router /editions/{id}/registrations/export [get]
func (h *RegistrationHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", service.ExportFormatCSV)

	if c.Query("share") == "true" {
		link, err := h.status.ExportLink(c.Request.Context(), c.Param("idOrKey"), format)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, link, nil)
		return
	}

	data, contentType, filename, err := h.status.Export(c.Request.Context(), c.Param("idOrKey"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, data)
}

// Download godoc
// @Summary Download an export via a signed link
// @Tags Registrations
// @Produce text/csv
// @Produce application/pdf
// @Param token path string true "Signed export token"
// @Success 200 {file} file
// @Router /exports/{token} [get]
func (h *RegistrationHandler) Download(c *gin.Context) {
	file, contentType, err := h.status.OpenExport(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", info.Name()))
	c.DataFromReader(http.StatusOK, info.Size(), contentType, file, nil)
}
