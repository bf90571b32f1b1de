package domain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// Feature is one observed procedure (sensor) within a single offering and
// observed-property request.
type Feature struct {
	// Name identifies the procedure, unique within a response.
	Name string
	// Geometry is the sensor position in the collection's source CRS.
	Geometry Point
	// Series maps identifier-safe timestamp keys (see EncodeKey) to the
	// observed value.
	Series map[string]float64
	// Fields holds auxiliary data columns retained from structured-array
	// responses, keyed by field name.
	Fields map[string][]string
	// Empty marks a procedure that reported no observations and was kept
	// only because import-empty was requested. Its Series holds a single
	// synthetic zero value.
	Empty bool
}

// Point is a 2D or 3D position. Dimensionality is whatever the source
// provided; coordinates are never padded or truncated.
type Point struct {
	Coordinates []float64
}

// NewPoint builds a Point from raw coordinates.
func NewPoint(coords ...float64) Point {
	return Point{Coordinates: coords}
}

// XY returns the horizontal position.
func (p Point) XY() orb.Point {
	var pt orb.Point
	if len(p.Coordinates) > 0 {
		pt[0] = p.Coordinates[0]
	}
	if len(p.Coordinates) > 1 {
		pt[1] = p.Coordinates[1]
	}
	return pt
}

// Z returns the vertical coordinate, or 0 when the point is 2D.
func (p Point) Z() float64 {
	if len(p.Coordinates) > 2 {
		return p.Coordinates[2]
	}
	return 0
}

// Is3D reports whether the point carries a vertical coordinate.
func (p Point) Is3D() bool {
	return len(p.Coordinates) > 2
}

// FeatureCollection is the parser output: an ordered sequence of features
// sharing one source CRS.
type FeatureCollection struct {
	// SourceCRS is the declared CRS name, e.g. "EPSG:4326" or an URN
	// ending in the code.
	SourceCRS string
	// BBox is an optional bounding-box hint.
	BBox *orb.Bound
	Features []Feature
}

// SourceEPSG extracts the numeric EPSG code from the declared CRS name.
func (fc *FeatureCollection) SourceEPSG() (int, error) {
	if fc.SourceCRS == "" {
		return 0, fmt.Errorf("no source CRS declared in response")
	}
	parts := strings.Split(fc.SourceCRS, ":")
	code, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return 0, fmt.Errorf("source CRS %q has no numeric EPSG code", fc.SourceCRS)
	}
	return code, nil
}
