package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/programme-booking-api/internal/dto"
	"github.com/noah-isme/programme-booking-api/internal/models"
	appErrors "github.com/noah-isme/programme-booking-api/pkg/errors"
	"github.com/noah-isme/programme-booking-api/pkg/response"
)

type catalogService interface {
	List(ctx context.Context, filter models.EditionFilter) ([]models.Edition, *models.Pagination, error)
	Get(ctx context.Context, idOrKey string) (*models.EditionDetail, error)
	Resolve(ctx context.Context, idOrKey string) (*models.Edition, error)
	Create(ctx context.Context, req dto.UpsertEditionRequest) (*models.EditionDetail, error)
	Update(ctx context.Context, id string, req dto.UpsertEditionRequest) (*models.EditionDetail, error)
	Archive(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

type availabilityService interface {
	ForEdition(ctx context.Context, editionID string) (map[string]models.DateAvailability, error)
}

// EditionHandler exposes catalog endpoints.
type EditionHandler struct {
	catalog      catalogService
	availability availabilityService
}

// NewEditionHandler constructs EditionHandler.
func NewEditionHandler(catalog catalogService, availability availabilityService) *EditionHandler {
	return &EditionHandler{catalog: catalog, availability: availability}
}

// List godoc
// @Summary List programme editions
// @Tags Editions
// @Produce json
// @Param programmeKey query string false "Filter by programme key"
// @Param active query bool false "Only active editions"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /editions [get]
func (h *EditionHandler) List(c *gin.Context) {
	var filter models.EditionFilter
	filter.ProgrammeKey = c.Query("programmeKey")
	filter.ActiveOnly = c.DefaultQuery("active", "true") == "true"
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	editions, pagination, err := h.catalog.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, editions, pagination)
}

// Get godoc
// @Summary Get an edition with sessions, date options and availability
// @Tags Editions
// @Produce json
// @Param idOrKey path string true "Edition ID or programme key"
// @Success 200 {object} response.Envelope
// @Router /editions/{idOrKey} [get]
func (h *EditionHandler) Get(c *gin.Context) {
	edition, err := h.catalog.Get(c.Request.Context(), c.Param("idOrKey"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, edition, nil)
}

// Availability godoc
// @Summary Get the seat ledger for an edition's date options
// @Tags Editions
// @Produce json
// @Param idOrKey path string true "Edition ID or programme key"
// @Success 200 {object} response.Envelope
// @Router /editions/{idOrKey}/availability [get]
func (h *EditionHandler) Availability(c *gin.Context) {
	edition, err := h.catalog.Resolve(c.Request.Context(), c.Param("idOrKey"))
	if err != nil {
		response.Error(c, err)
		return
	}
	availability, err := h.availability.ForEdition(c.Request.Context(), edition.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, availability, nil)
}

// Create godoc
// @Summary Create an edition
// @Tags Editions
// @Accept json
// @Produce json
// @Param payload body dto.UpsertEditionRequest true "Edition payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /editions [post]
func (h *EditionHandler) Create(c *gin.Context) {
	var req dto.UpsertEditionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	edition, err := h.catalog.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, edition)
}

// Update godoc
// @Summary Replace an edition aggregate
// @Tags Editions
// @Accept json
// @Produce json
// @Param id path string true "Edition ID"
// @Param payload body dto.UpsertEditionRequest true "Edition payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /editions/{id} [put]
func (h *EditionHandler) Update(c *gin.Context) {
	var req dto.UpsertEditionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	edition, err := h.catalog.Update(c.Request.Context(), c.Param("idOrKey"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, edition, nil)
}

// Delete godoc
// @Summary Delete an edition
// @Description Archives the edition by default. Pass hard=true to remove it with its sessions, date options and registrations.
// @Tags Editions
// @Param id path string true "Edition ID"
// @Param hard query bool false "true for a cascading hard delete"
// @Success 204
// @Security BearerAuth
// @Router /editions/{id} [delete]
func (h *EditionHandler) Delete(c *gin.Context) {
	var err error
	if c.Query("hard") == "true" {
		err = h.catalog.Delete(c.Request.Context(), c.Param("idOrKey"))
	} else {
		err = h.catalog.Archive(c.Request.Context(), c.Param("idOrKey"))
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
