package service

import (
	"context"
	"fmt"

	"places-api/internal/apperr"
	"places-api/internal/models"
	"places-api/internal/pagination"
)

// PlaceRepository interface for dependency injection
type PlaceRepository interface {
	Create(ctx context.Context, name, description string, geom models.Point) (*models.Place, error)
	Get(ctx context.Context, id int64) (*models.Place, error)
	List(ctx context.Context, limit, offset int) ([]models.Place, int64, error)
	Update(ctx context.Context, id int64, name, description string, geom models.Point) (*models.Place, error)
	Patch(ctx context.Context, id int64, patch models.PlacePatch) (*models.Place, error)
	Delete(ctx context.Context, id int64) error
	Nearest(ctx context.Context, point models.Point) (*models.Place, error)
}

// PlaceService contains the business logic for the places resource.
type PlaceService struct {
	repo PlaceRepository
}

// NewPlaceService creates a new place service
func NewPlaceService(repo PlaceRepository) *PlaceService {
	return &PlaceService{repo: repo}
}

// List returns the places in window and the total number stored.
func (s *PlaceService) List(ctx context.Context, window pagination.Window) ([]models.Place, int64, error) {
	places, total, err := s.repo.List(ctx, window.Limit(), window.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("service: failed to list places: %w", err)
	}
	return places, total, nil
}

// Get returns a single place.
func (s *PlaceService) Get(ctx context.Context, id int64) (*models.Place, error) {
	place, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get place: %w", err)
	}
	return place, nil
}

// Create stores a new place.
func (s *PlaceService) Create(ctx context.Context, name, description string, geom models.Point) (*models.Place, error) {
	place, err := s.repo.Create(ctx, name, description, geom)
	if err != nil {
		return nil, fmt.Errorf("service: failed to create place: %w", err)
	}
	return place, nil
}

// Update replaces name, description and geometry of a place.
func (s *PlaceService) Update(ctx context.Context, id int64, name, description string, geom models.Point) (*models.Place, error) {
	place, err := s.repo.Update(ctx, id, name, description, geom)
	if err != nil {
		return nil, fmt.Errorf("service: failed to update place: %w", err)
	}
	return place, nil
}

// Patch changes only the fields present in patch.
func (s *PlaceService) Patch(ctx context.Context, id int64, patch models.PlacePatch) (*models.Place, error) {
	place, err := s.repo.Patch(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("service: failed to patch place: %w", err)
	}
	return place, nil
}

// Delete removes a place.
func (s *PlaceService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("service: failed to delete place: %w", err)
	}
	return nil
}

// Nearest finds the stored place closest to the given WGS84 coordinates.
// It returns nil, nil when nothing is stored.
func (s *PlaceService) Nearest(ctx context.Context, lat, lon float64) (*models.Place, error) {
	if !(lat >= -90 && lat <= 90) {
		return nil, apperr.FieldError("latitude", fmt.Sprintf("must be between -90 and 90, got %g", lat))
	}
	if !(lon >= -180 && lon <= 180) {
		return nil, apperr.FieldError("longitude", fmt.Sprintf("must be between -180 and 180, got %g", lon))
	}

	place, err := s.repo.Nearest(ctx, models.NewPoint(lon, lat))
	if err != nil {
		return nil, fmt.Errorf("service: failed to find nearest place: %w", err)
	}

	return place, nil
}
