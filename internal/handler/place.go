package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"places-api/internal/apperr"
	"places-api/internal/dto"
	"places-api/internal/models"
	"places-api/internal/pagination"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// PlaceService interface for dependency injection
type PlaceService interface {
	List(ctx context.Context, window pagination.Window) ([]models.Place, int64, error)
	Get(ctx context.Context, id int64) (*models.Place, error)
	Create(ctx context.Context, name, description string, geom models.Point) (*models.Place, error)
	Update(ctx context.Context, id int64, name, description string, geom models.Point) (*models.Place, error)
	Patch(ctx context.Context, id int64, patch models.PlacePatch) (*models.Place, error)
	Delete(ctx context.Context, id int64) error
	Nearest(ctx context.Context, lat, lon float64) (*models.Place, error)
}

// PlaceHandler serves the places resource.
type PlaceHandler struct {
	service PlaceService
	policy  pagination.Policy
}

// PlacePage is the documented shape of a list response.
type PlacePage = pagination.Envelope[models.Place]

// NewPlaceHandler creates a new place handler
func NewPlaceHandler(svc PlaceService, policy pagination.Policy) *PlaceHandler {
	return &PlaceHandler{service: svc, policy: policy}
}

// Register mounts the places routes on r.
func (h *PlaceHandler) Register(r gin.IRoutes) {
	r.GET("/places", h.List)
	r.POST("/places", h.Create)
	r.GET("/places/closest_point", h.ClosestPoint)
	r.GET("/places/:id", h.Retrieve)
	r.PUT("/places/:id", h.Update)
	r.PATCH("/places/:id", h.PartialUpdate)
	r.DELETE("/places/:id", h.Destroy)
}

// List godoc
// @Summary List places
// @Description Retrieve a list of places.
// @Tags places
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Results per page (max 1000)"
// @Success 200 {object} PlacePage
// @Failure 400 {object} ErrorResponse
// @Router /places [get]
func (h *PlaceHandler) List(c *gin.Context) {
	var q dto.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, bindingError(err))
		return
	}

	window := h.policy.Resolve(q.Page, q.PageSize)

	places, total, err := h.service.List(c.Request.Context(), window)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, pagination.NewEnvelope(places, total, window, requestURL(c)))
}

// Create godoc
// @Summary Create place
// @Description Create a new place.
// @Tags places
// @Accept json
// @Produce json
// @Param place body dto.PlaceRequest true "Place"
// @Success 201 {object} models.Place
// @Failure 400 {object} ErrorResponse
// @Router /places [post]
func (h *PlaceHandler) Create(c *gin.Context) {
	req, geom, err := bindPlace(c)
	if err != nil {
		respondError(c, err)
		return
	}

	place, err := h.service.Create(c.Request.Context(), *req.Name, *req.Description, geom)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, place)
}

// Retrieve godoc
// @Summary Get place
// @Description Retrieve a single place by ID.
// @Tags places
// @Produce json
// @Param id path int true "Place ID"
// @Success 200 {object} models.Place
// @Failure 404 {object} ErrorResponse
// @Router /places/{id} [get]
func (h *PlaceHandler) Retrieve(c *gin.Context) {
	id, ok := h.placeID(c)
	if !ok {
		return
	}

	place, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, place)
}

// Update godoc
// @Summary Update place
// @Description Update a place by ID.
// @Tags places
// @Accept json
// @Produce json
// @Param id path int true "Place ID"
// @Param place body dto.PlaceRequest true "Place"
// @Success 200 {object} models.Place
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /places/{id} [put]
func (h *PlaceHandler) Update(c *gin.Context) {
	id, ok := h.placeID(c)
	if !ok {
		return
	}

	req, geom, err := bindPlace(c)
	if err != nil {
		respondError(c, err)
		return
	}

	place, err := h.service.Update(c.Request.Context(), id, *req.Name, *req.Description, geom)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, place)
}

// PartialUpdate godoc
// @Summary Patch place
// @Description Partial update of a place by ID.
// @Tags places
// @Accept json
// @Produce json
// @Param id path int true "Place ID"
// @Param place body dto.PatchPlaceRequest true "Fields to change"
// @Success 200 {object} models.Place
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /places/{id} [patch]
func (h *PlaceHandler) PartialUpdate(c *gin.Context) {
	id, ok := h.placeID(c)
	if !ok {
		return
	}

	var req dto.PatchPlaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindingError(err))
		return
	}

	patch, err := req.Patch()
	if err != nil {
		respondError(c, err)
		return
	}

	place, err := h.service.Patch(c.Request.Context(), id, patch)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, place)
}

// Destroy godoc
// @Summary Delete place
// @Description Delete a place by ID.
// @Tags places
// @Param id path int true "Place ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /places/{id} [delete]
func (h *PlaceHandler) Destroy(c *gin.Context) {
	id, ok := h.placeID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ClosestPoint godoc
// @Summary Closest place
// @Description Find the closest place to the given coordinates.
// @Tags places
// @Produce json
// @Param latitude query number true "Latitude coordinate of the target location."
// @Param longitude query number true "Longitude coordinate of the target location."
// @Success 200 {object} models.Place
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /places/closest_point [get]
func (h *PlaceHandler) ClosestPoint(c *gin.Context) {
	var q dto.ClosestPointQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, bindingError(err))
		return
	}

	lat, lon, err := q.Coordinates()
	if err != nil {
		respondError(c, err)
		return
	}

	place, err := h.service.Nearest(c.Request.Context(), lat, lon)
	if err != nil {
		respondError(c, err)
		return
	}

	if place == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no places stored"})
		return
	}

	c.JSON(http.StatusOK, place)
}

// bindPlace binds a full place body and decodes its geometry. When the body
// is well-formed JSON, field and geometry problems are reported together.
func bindPlace(c *gin.Context) (dto.PlaceRequest, models.Point, error) {
	var req dto.PlaceRequest
	bindErr := c.ShouldBindJSON(&req)

	var verrs validator.ValidationErrors
	if bindErr != nil && !errors.As(bindErr, &verrs) {
		return req, models.Point{}, bindingError(bindErr)
	}

	geom, geomErr := req.Point()
	if bindErr == nil {
		return req, geom, geomErr
	}

	err := bindingError(bindErr)
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) {
		return req, models.Point{}, err
	}
	var geomVE *apperr.ValidationError
	if errors.As(geomErr, &geomVE) {
		ve.Merge(geomVE)
	}
	return req, models.Point{}, ve
}

// placeID binds the path id. Ids that are not positive integers cannot
// exist, so they are reported as not found.
func (h *PlaceHandler) placeID(c *gin.Context) (int64, bool) {
	var p dto.PlaceID
	if err := c.ShouldBindUri(&p); err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "place not found"})
		return 0, false
	}
	return p.ID, true
}

// requestURL reconstructs the absolute URL of the request for page links.
func requestURL(c *gin.Context) *url.URL {
	u := *c.Request.URL
	u.Scheme = "http"
	if c.Request.TLS != nil || strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https") {
		u.Scheme = "https"
	}
	u.Host = c.Request.Host
	return &u
}
