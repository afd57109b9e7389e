package dto

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"places-api/internal/apperr"
	"places-api/internal/models"
)

// PlaceRequest is the body of POST /places and PUT /places/{id}.
type PlaceRequest struct {
	Name        *string         `json:"name" binding:"required,min=1,max=255" example:"New Place"`
	Description *string         `json:"description" binding:"required" example:"A new place"`
	Geom        json.RawMessage `json:"geom" swaggertype:"string" example:"SRID=4326;POINT(15 15)"`
}

// Point decodes and validates the geometry.
func (r PlaceRequest) Point() (models.Point, error) {
	if r.Geom == nil {
		return models.Point{}, apperr.FieldError("geom", "This field is required.")
	}
	return models.ParseGeometry(r.Geom)
}

// PatchPlaceRequest is the body of PATCH /places/{id}. Every field is optional.
type PatchPlaceRequest struct {
	Name        *string         `json:"name" binding:"omitempty,min=1,max=255" example:"Renamed Place"`
	Description *string         `json:"description" example:"New description"`
	Geom        json.RawMessage `json:"geom" swaggertype:"string" example:"SRID=4326;POINT(16 16)"`
}

// Patch converts the request into a models.PlacePatch.
func (r PatchPlaceRequest) Patch() (models.PlacePatch, error) {
	patch := models.PlacePatch{Name: r.Name, Description: r.Description}
	if r.Geom != nil {
		p, err := models.ParseGeometry(r.Geom)
		if err != nil {
			return models.PlacePatch{}, err
		}
		patch.Geom = &p
	}
	return patch, nil
}

// ListQuery binds the list pagination parameters.
type ListQuery struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1"`
}

// PlaceID binds the {id} path parameter.
type PlaceID struct {
	ID int64 `uri:"id" binding:"required,min=1"`
}

// ClosestPointQuery holds the raw nearest-point query parameters.
type ClosestPointQuery struct {
	Latitude  string `form:"latitude"`
	Longitude string `form:"longitude"`
}

// Coordinates parses both parameters as finite floats.
func (q ClosestPointQuery) Coordinates() (lat, lon float64, err error) {
	lat, latErr := strconv.ParseFloat(strings.TrimSpace(q.Latitude), 64)
	lon, lonErr := strconv.ParseFloat(strings.TrimSpace(q.Longitude), 64)
	if latErr != nil || lonErr != nil || !finite(lat) || !finite(lon) {
		return 0, 0, apperr.Validation("Invalid latitude or longitude values")
	}
	return lat, lon, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
