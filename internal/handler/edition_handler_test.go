package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/programme-booking-api/internal/dto"
	"github.com/noah-isme/programme-booking-api/internal/models"
	appErrors "github.com/noah-isme/programme-booking-api/pkg/errors"
)

type catalogServiceMock struct {
	detail     *models.EditionDetail
	detailErr  error
	lastFilter models.EditionFilter
	archived   []string
	deleted    []string
}

func (m *catalogServiceMock) List(ctx context.Context, filter models.EditionFilter) ([]models.Edition, *models.Pagination, error) {
	m.lastFilter = filter
	return []models.Edition{{ID: "ed-1", ProgrammeKey: "evening-2026"}}, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: 1}, nil
}

func (m *catalogServiceMock) Get(ctx context.Context, idOrKey string) (*models.EditionDetail, error) {
	return m.detail, m.detailErr
}

func (m *catalogServiceMock) Resolve(ctx context.Context, idOrKey string) (*models.Edition, error) {
	if m.detailErr != nil {
		return nil, m.detailErr
	}
	return &models.Edition{ID: "ed-1", ProgrammeKey: idOrKey}, nil
}

func (m *catalogServiceMock) Create(ctx context.Context, req dto.UpsertEditionRequest) (*models.EditionDetail, error) {
	return m.detail, m.detailErr
}

func (m *catalogServiceMock) Update(ctx context.Context, id string, req dto.UpsertEditionRequest) (*models.EditionDetail, error) {
	return m.detail, m.detailErr
}

func (m *catalogServiceMock) Archive(ctx context.Context, id string) error {
	m.archived = append(m.archived, id)
	return nil
}

func (m *catalogServiceMock) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

type availabilityServiceMock struct {
	ledger map[string]models.DateAvailability
}

func (m *availabilityServiceMock) ForEdition(ctx context.Context, editionID string) (map[string]models.DateAvailability, error) {
	return m.ledger, nil
}

func newCatalogContext(t *testing.T, method, target string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	req, err := http.NewRequest(method, target, nil)
	require.NoError(t, err)
	c.Request = req
	return c, w
}

func TestEditionHandlerListParsesFilter(t *testing.T) {
	mockSvc := &catalogServiceMock{}
	h := NewEditionHandler(mockSvc, &availabilityServiceMock{})

	c, w := newCatalogContext(t, http.MethodGet, "/editions?programmeKey=evening-2026&active=true&page=2&limit=5")

	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "evening-2026", mockSvc.lastFilter.ProgrammeKey)
	assert.True(t, mockSvc.lastFilter.ActiveOnly)
	assert.Equal(t, 2, mockSvc.lastFilter.Page)
	assert.Equal(t, 5, mockSvc.lastFilter.PageSize)
}

func TestEditionHandlerGetNotFound(t *testing.T) {
	mockSvc := &catalogServiceMock{detailErr: appErrors.ErrNotFound}
	h := NewEditionHandler(mockSvc, &availabilityServiceMock{})

	c, w := newCatalogContext(t, http.MethodGet, "/editions/missing")
	c.Params = gin.Params{{Key: "idOrKey", Value: "missing"}}

	h.Get(c)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_FOUND")
}

func TestEditionHandlerAvailability(t *testing.T) {
	mockAvail := &availabilityServiceMock{ledger: map[string]models.DateAvailability{
		"opt-1": {DateOptionID: "opt-1", MaxCapacity: 8, CurrentCount: 8, RemainingSpots: 0, IsFull: true},
	}}
	h := NewEditionHandler(&catalogServiceMock{}, mockAvail)

	c, w := newCatalogContext(t, http.MethodGet, "/editions/evening-2026/availability")
	c.Params = gin.Params{{Key: "idOrKey", Value: "evening-2026"}}

	h.Availability(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"is_full":true`)
}

func TestEditionHandlerDeleteModes(t *testing.T) {
	mockSvc := &catalogServiceMock{}
	h := NewEditionHandler(mockSvc, &availabilityServiceMock{})

	c, w := newCatalogContext(t, http.MethodDelete, "/editions/ed-1")
	c.Params = gin.Params{{Key: "idOrKey", Value: "ed-1"}}
	h.Delete(c)
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"ed-1"}, mockSvc.archived)
	assert.Empty(t, mockSvc.deleted)

	c, w = newCatalogContext(t, http.MethodDelete, "/editions/ed-2?hard=true")
	c.Params = gin.Params{{Key: "idOrKey", Value: "ed-2"}}
	h.Delete(c)
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"ed-2"}, mockSvc.deleted)
}

func TestEditionHandlerCreateMalformedBody(t *testing.T) {
	h := NewEditionHandler(&catalogServiceMock{}, &availabilityServiceMock{})

	c, w := newCatalogContext(t, http.MethodPost, "/editions")
	c.Request.Body = http.NoBody

	h.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
