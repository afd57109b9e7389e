package router

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"places-api/internal/handler"
	"places-api/internal/models"
	"places-api/internal/pagination"
	"places-api/internal/repository"
	"places-api/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type placePage struct {
	Count    int64          `json:"count"`
	Next     *string        `json:"next"`
	Previous *string        `json:"previous"`
	Results  []models.Place `json:"results"`
}

func newAPI(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := service.NewPlaceService(repository.NewMemoryRepository())
	return Setup(handler.NewPlaceHandler(svc, pagination.DefaultPolicy()))
}

func do(t *testing.T, r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func createPlace(t *testing.T, r http.Handler, name, description, geom string) models.Place {
	t.Helper()

	body := fmt.Sprintf(`{"name":%q,"description":%q,"geom":%q}`, name, description, geom)
	w := do(t, r, http.MethodPost, "/places", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var place models.Place
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &place))
	return place
}

func TestHealth(t *testing.T) {
	r := newAPI(t)

	w := do(t, r, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestPlaces_CreateThenRetrieve(t *testing.T) {
	r := newAPI(t)

	created := createPlace(t, r, "New Place", "A new place", "SRID=4326;POINT(15 15)")

	w := do(t, r, http.MethodGet, fmt.Sprintf("/places/%d", created.ID), "")
	require.Equal(t, http.StatusOK, w.Code)

	var got models.Place
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, models.Place{ID: created.ID, Name: "New Place", Description: "A new place", Geom: models.NewPoint(15, 15)}, got)
}

func TestPlaces_InvalidGeometry(t *testing.T) {
	r := newAPI(t)

	w := do(t, r, http.MethodPost, "/places", `{"name":"Test Place","description":"A test place","geom":"Invalid geometry"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body handler.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body.Fields, "geom")
}

func TestPlaces_UpdatePatchDelete(t *testing.T) {
	r := newAPI(t)

	place := createPlace(t, r, "Place 1", "Description 1", "SRID=4326;POINT(10 10)")
	path := fmt.Sprintf("/places/%d", place.ID)

	w := do(t, r, http.MethodPut, path, `{"name":"Updated Place","description":"An updated place","geom":"SRID=4326;POINT(25 25)"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"id":%d,"name":"Updated Place","description":"An updated place","geom":"SRID=4326;POINT(25 25)"}`, place.ID), w.Body.String())

	w = do(t, r, http.MethodPatch, path, `{"description":"Partially updated"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"id":%d,"name":"Updated Place","description":"Partially updated","geom":"SRID=4326;POINT(25 25)"}`, place.ID), w.Body.String())

	w = do(t, r, http.MethodDelete, path, "")
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, r, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodGet, "/places", "")
	require.Equal(t, http.StatusOK, w.Code)

	var page placePage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, int64(0), page.Count)
	assert.Empty(t, page.Results)
}

func TestPlaces_ClosestPoint(t *testing.T) {
	r := newAPI(t)

	w := do(t, r, http.MethodGet, "/places/closest_point?latitude=5&longitude=5", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	place1 := createPlace(t, r, "Place 1", "Description 1", "SRID=4326;POINT(10 10)")
	createPlace(t, r, "Place 2", "Description 2", "SRID=4326;POINT(20 20)")

	w = do(t, r, http.MethodGet, "/places/closest_point?latitude=5&longitude=5", "")
	require.Equal(t, http.StatusOK, w.Code)

	var got models.Place
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, place1, got)

	w = do(t, r, http.MethodGet, "/places/closest_point?latitude=five&longitude=5", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Invalid latitude or longitude values"}`, w.Body.String())
}

func TestPlaces_Pagination(t *testing.T) {
	r := newAPI(t)

	for i := 1; i <= 12; i++ {
		createPlace(t, r, fmt.Sprintf("Place %d", i), fmt.Sprintf("Description %d", i), fmt.Sprintf("SRID=4326;POINT(%d %d)", i, i))
	}

	w := do(t, r, http.MethodGet, "/places", "")
	require.Equal(t, http.StatusOK, w.Code)

	var page placePage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, int64(12), page.Count)
	assert.Len(t, page.Results, 5)
	assert.Equal(t, "Place 1", page.Results[0].Name)
	require.NotNil(t, page.Next)
	assert.Equal(t, "http://example.com/places?page=2", *page.Next)
	assert.Nil(t, page.Previous)

	w = do(t, r, http.MethodGet, "/places?page=3", "")
	require.Equal(t, http.StatusOK, w.Code)
	page = placePage{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Len(t, page.Results, 2)
	assert.Nil(t, page.Next)

	w = do(t, r, http.MethodGet, "/places?page=3&page_size=1001", "")
	require.Equal(t, http.StatusOK, w.Code)
	page = placePage{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, int64(12), page.Count)
	assert.Empty(t, page.Results)

	w = do(t, r, http.MethodGet, "/places?page=1&page_size=1001", "")
	require.Equal(t, http.StatusOK, w.Code)
	page = placePage{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Len(t, page.Results, 12)
}

func TestPlaces_PaginationHugePage(t *testing.T) {
	r := newAPI(t)

	for i := 1; i <= 3; i++ {
		createPlace(t, r, fmt.Sprintf("Place %d", i), "", fmt.Sprintf("POINT(%d %d)", i, i))
	}

	tests := []struct {
		name   string
		target string
	}{
		{name: "default size", target: "/places?page=2305843009213693953"},
		{name: "explicit size", target: "/places?page=2305843009213693953&page_size=4"},
		{name: "max int page", target: "/places?page=9223372036854775807&page_size=1000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, http.MethodGet, tt.target, "")
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			var page placePage
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
			assert.Equal(t, int64(3), page.Count)
			assert.Empty(t, page.Results)
			assert.Nil(t, page.Next)
			require.NotNil(t, page.Previous)
			assert.Equal(t, "http://example.com/places", strings.Split(*page.Previous, "?")[0])
		})
	}
}
