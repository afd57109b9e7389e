package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"places-api/internal/apperr"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geojson"
)

// DefaultSRID is WGS84 longitude/latitude degrees.
const DefaultSRID = 4326

const geomField = "geom"

// Point is a 2D point under a spatial reference system. For SRID 4326, X is
// the longitude and Y the latitude.
type Point struct {
	X    float64
	Y    float64
	SRID int
}

// NewPoint builds a WGS84 point from longitude and latitude.
func NewPoint(lon, lat float64) Point {
	return Point{X: lon, Y: lat, SRID: DefaultSRID}
}

// Orb returns the point as an orb geometry.
func (p Point) Orb() orb.Point {
	return orb.Point{p.X, p.Y}
}

// EWKT renders the point as "SRID=4326;POINT(x y)".
func (p Point) EWKT() string {
	return fmt.Sprintf("SRID=%d;%s", p.SRID, wkt.MarshalString(p.Orb()))
}

func (p Point) String() string {
	return p.EWKT()
}

// MarshalJSON encodes the point in the EWKT notation accepted on input.
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.EWKT())
}

// UnmarshalJSON accepts every notation ParseGeometry does.
func (p *Point) UnmarshalJSON(data []byte) error {
	parsed, err := ParseGeometry(data)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParseGeometry decodes a JSON geometry value: either a string holding WKT
// or SRID-prefixed EWKT, or a GeoJSON Point object. Failures are reported as
// a validation error on the geom field.
func ParseGeometry(raw json.RawMessage) (Point, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Point{}, apperr.FieldError(geomField, "This field may not be null.")
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Point{}, invalidGeometry()
		}
		return ParseEWKT(s)
	case '{':
		return parseGeoJSON(raw)
	default:
		return Point{}, invalidGeometry()
	}
}

// ParseEWKT parses "SRID=n;POINT(x y)" or a bare "POINT(x y)", which is
// taken to be in DefaultSRID.
func ParseEWKT(s string) (Point, error) {
	s = strings.TrimSpace(s)
	srid := DefaultSRID

	if len(s) > 5 && strings.EqualFold(s[:5], "SRID=") {
		idx := strings.IndexByte(s, ';')
		if idx < 0 {
			return Point{}, invalidGeometry()
		}
		n, err := strconv.Atoi(strings.TrimSpace(s[5:idx]))
		if err != nil || n <= 0 {
			return Point{}, apperr.FieldError(geomField, "invalid SRID in geometry")
		}
		srid = n
		s = strings.TrimSpace(s[idx+1:])
	}

	if strings.Contains(strings.ToUpper(s), "EMPTY") {
		return Point{}, apperr.FieldError(geomField, "empty point geometry is not allowed")
	}

	p, err := wkt.UnmarshalPoint(strings.ToUpper(s))
	if err != nil {
		return Point{}, invalidGeometry()
	}

	return checkFinite(Point{X: p[0], Y: p[1], SRID: srid})
}

func parseGeoJSON(raw []byte) (Point, error) {
	if err := checkPointPosition(raw); err != nil {
		return Point{}, err
	}

	g, err := geojson.UnmarshalGeometry(raw)
	if err != nil || g.Coordinates == nil {
		return Point{}, invalidGeometry()
	}

	p, ok := g.Coordinates.(orb.Point)
	if !ok {
		return Point{}, apperr.FieldError(geomField, fmt.Sprintf("expected a Point geometry, got %s", g.Type))
	}

	return checkFinite(Point{X: p[0], Y: p[1], SRID: DefaultSRID})
}

// checkPointPosition rejects Point objects whose position has fewer than two
// numbers, which orb would otherwise pad with zeros.
func checkPointPosition(raw []byte) error {
	var obj struct {
		Type        string          `json:"type"`
		Coordinates json.RawMessage `json:"coordinates"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return invalidGeometry()
	}
	if obj.Type != "Point" {
		return nil
	}

	var position []interface{}
	if err := json.Unmarshal(obj.Coordinates, &position); err != nil || len(position) < 2 {
		return invalidGeometry()
	}
	for _, v := range position {
		if _, ok := v.(float64); !ok {
			return invalidGeometry()
		}
	}
	return nil
}

func checkFinite(p Point) (Point, error) {
	for _, v := range []float64{p.X, p.Y} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Point{}, apperr.FieldError(geomField, "point coordinates must be finite numbers")
		}
	}
	return p, nil
}

func invalidGeometry() error {
	return apperr.FieldError(geomField, "Invalid format: input unrecognized as GeoJSON, WKT or EWKT point.")
}
