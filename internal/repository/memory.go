package repository

import (
	"context"
	"fmt"
	"math"
	"sync"

	"places-api/internal/apperr"
	"places-api/internal/models"

	"github.com/dhconnelly/rtreego"
)

const (
	// pointTolerance is the half-width of the box indexing each point.
	pointTolerance = 1e-9
	// searchSlack widens the tie search box beyond pointTolerance.
	searchSlack = 1e-6
)

// indexedPlace is the R-tree entry for one place.
type indexedPlace struct {
	place models.Place
}

func (p *indexedPlace) Bounds() rtreego.Rect {
	return rtreego.Point{p.place.Geom.X, p.place.Geom.Y}.ToRect(pointTolerance)
}

// MemoryRepository keeps places in process memory with an R-tree for
// nearest lookups. It only accepts SRID 4326 points and measures planar
// distance in degrees, like a PostGIS geometry column does.
type MemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]*indexedPlace
	order  []int64
	tree   *rtreego.Rtree
}

// NewMemoryRepository creates an empty in-memory store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		nextID: 1,
		byID:   make(map[int64]*indexedPlace),
		tree:   rtreego.NewTree(2, 25, 50),
	}
}

func (r *MemoryRepository) Create(ctx context.Context, name, description string, geom models.Point) (_ *models.Place, err error) {
	defer observe(ctx, "places.create")(&err)

	if err := checkMemorySRID(geom); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	place := r.insertLocked(name, description, geom)
	return &place, nil
}

func (r *MemoryRepository) CreateMany(ctx context.Context, places []models.Place) (_ int, err error) {
	defer observe(ctx, "places.create_many")(&err)

	for _, p := range places {
		if err := checkMemorySRID(p.Geom); err != nil {
			return 0, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range places {
		r.insertLocked(p.Name, p.Description, p.Geom)
	}
	return len(places), nil
}

func (r *MemoryRepository) Get(ctx context.Context, id int64) (_ *models.Place, err error) {
	defer observe(ctx, "places.get")(&err)

	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("repository: place %d: %w", id, apperr.ErrNotFound)
	}
	place := entry.place
	return &place, nil
}

func (r *MemoryRepository) List(ctx context.Context, limit, offset int) (_ []models.Place, _ int64, err error) {
	defer observe(ctx, "places.list")(&err)

	r.mu.RLock()
	defer r.mu.RUnlock()

	total := int64(len(r.order))
	places := []models.Place{}
	if offset < 0 || offset >= len(r.order) || limit <= 0 {
		return places, total, nil
	}

	end := offset + limit
	if end > len(r.order) {
		end = len(r.order)
	}
	for _, id := range r.order[offset:end] {
		places = append(places, r.byID[id].place)
	}
	return places, total, nil
}

// Update is a patch that sets every field.
func (r *MemoryRepository) Update(ctx context.Context, id int64, name, description string, geom models.Point) (*models.Place, error) {
	return r.Patch(ctx, id, models.PlacePatch{Name: &name, Description: &description, Geom: &geom})
}

func (r *MemoryRepository) Patch(ctx context.Context, id int64, patch models.PlacePatch) (_ *models.Place, err error) {
	defer observe(ctx, "places.patch")(&err)

	if patch.Geom != nil {
		if err := checkMemorySRID(*patch.Geom); err != nil {
			return nil, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("repository: place %d: %w", id, apperr.ErrNotFound)
	}

	if patch.Geom != nil {
		r.tree.Delete(entry)
		patch.Apply(&entry.place)
		r.tree.Insert(entry)
	} else {
		patch.Apply(&entry.place)
	}

	place := entry.place
	return &place, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id int64) (err error) {
	defer observe(ctx, "places.delete")(&err)

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("repository: place %d: %w", id, apperr.ErrNotFound)
	}

	r.tree.Delete(entry)
	delete(r.byID, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Nearest returns the place closest to point, ties going to the lowest id,
// or nil when the store is empty.
func (r *MemoryRepository) Nearest(ctx context.Context, point models.Point) (_ *models.Place, err error) {
	defer observe(ctx, "places.nearest")(&err)

	if err := checkMemorySRID(point); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	q := rtreego.Point{point.X, point.Y}
	first, ok := r.tree.NearestNeighbor(q).(*indexedPlace)
	if !ok || first == nil {
		return nil, nil
	}

	// The tree sees boxes, not points, so collect everything within the
	// candidate's distance and pick the exact minimum.
	d := planarDistance(point, first.place.Geom) + searchSlack
	box, err := rtreego.NewRectFromPoints(
		rtreego.Point{point.X - d, point.Y - d},
		rtreego.Point{point.X + d, point.Y + d},
	)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to build search box: %w", err)
	}

	best := first
	bestDist := planarDistance(point, first.place.Geom)
	for _, s := range r.tree.SearchIntersect(box) {
		entry := s.(*indexedPlace)
		dist := planarDistance(point, entry.place.Geom)
		if dist < bestDist || (dist == bestDist && entry.place.ID < best.place.ID) {
			best, bestDist = entry, dist
		}
	}

	place := best.place
	return &place, nil
}

func (r *MemoryRepository) insertLocked(name, description string, geom models.Point) models.Place {
	entry := &indexedPlace{place: models.Place{
		ID:          r.nextID,
		Name:        name,
		Description: description,
		Geom:        geom,
	}}
	r.nextID++

	r.byID[entry.place.ID] = entry
	r.order = append(r.order, entry.place.ID)
	r.tree.Insert(entry)
	return entry.place
}

func planarDistance(a, b models.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func checkMemorySRID(p models.Point) error {
	if p.SRID != models.DefaultSRID {
		return apperr.FieldError("geom", fmt.Sprintf("SRID %d is not supported by the in-memory store; use %d", p.SRID, models.DefaultSRID))
	}
	return nil
}
