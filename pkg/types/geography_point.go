package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

const geoJSONPoint = "Point"

// GeoPoint is a GeoJSON Point. Coordinates are ordered [lon, lat].
type GeoPoint struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// NewGeoPoint builds a Point from latitude and longitude.
func NewGeoPoint(lat, lng float64) GeoPoint {
	return GeoPoint{Type: geoJSONPoint, Coordinates: [2]float64{lng, lat}}
}

func (g GeoPoint) Lng() float64 { return g.Coordinates[0] }
func (g GeoPoint) Lat() float64 { return g.Coordinates[1] }

// Validate checks the GeoJSON type and coordinate ranges.
func (g GeoPoint) Validate() error {
	if g.Type != geoJSONPoint {
		return fmt.Errorf("geometry: unsupported type %q", g.Type)
	}
	lng, lat := g.Lng(), g.Lat()
	if math.IsNaN(lng) || math.IsNaN(lat) {
		return fmt.Errorf("geometry: coordinates must be numbers")
	}
	if lng < -180 || lng > 180 {
		return fmt.Errorf("geometry: longitude %f out of range", lng)
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("geometry: latitude %f out of range", lat)
	}
	return nil
}

// Value stores the point as GeoJSON text (jsonb in Postgres).
func (g GeoPoint) Value() (driver.Value, error) {
	if g.Type == "" {
		g.Type = geoJSONPoint
	}
	raw, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("geometry: encode %w", err)
	}
	return string(raw), nil
}

func (g *GeoPoint) Scan(value interface{}) error {
	if value == nil {
		*g = GeoPoint{}
		return nil
	}

	raw, ok := toString(value)
	if !ok {
		return fmt.Errorf("geometry: unsupported scan type %T", value)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		*g = GeoPoint{}
		return nil
	}

	var decoded GeoPoint
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return fmt.Errorf("geometry: decode %w", err)
	}
	*g = decoded
	return nil
}

func toString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	default:
		if stringer, ok := value.(fmt.Stringer); ok {
			return stringer.String(), true
		}
		return "", false
	}
}
