package models

// Place is a named geographic point.
type Place struct {
	ID          int64  `json:"id" example:"1"`
	Name        string `json:"name" example:"Central Park"`
	Description string `json:"description" example:"Urban park in Manhattan"`
	Geom        Point  `json:"geom" swaggertype:"string" example:"SRID=4326;POINT(-73.9654 40.7829)"`
}

// PlacePatch carries a partial update. Nil fields are left unchanged.
type PlacePatch struct {
	Name        *string
	Description *string
	Geom        *Point
}

// Empty reports whether the patch changes nothing.
func (p PlacePatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Geom == nil
}

// Apply merges the patch into place.
func (p PlacePatch) Apply(place *Place) {
	if p.Name != nil {
		place.Name = *p.Name
	}
	if p.Description != nil {
		place.Description = *p.Description
	}
	if p.Geom != nil {
		place.Geom = *p.Geom
	}
}
