// Package reproject maps source-CRS points into the configured target CRS.
package reproject

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"

	"github.com/pesekon2/sosflow/internal/domain"
)

// Known EPSG codes.
const (
	EPSGWGS84       = 4326
	EPSGWebMercator = 3857
)

// geographic lists unprojected coordinate systems. Targeting one of these
// invalidates bounding-box and grid-resolution arithmetic downstream, so it
// is rejected at startup.
var geographic = map[int]bool{
	EPSGWGS84: true,
	4258:      true, // ETRS89
	4269:      true, // NAD83
}

// Transform maps a horizontal position between two coordinate systems.
type Transform func(orb.Point) orb.Point

// Reprojector builds and caches per-source-EPSG transformations into one
// process-wide target CRS. The cache lives for one invocation.
type Reprojector struct {
	target int
	cache  map[int]Transform
}

// New validates the target CRS. A zero or geographic target is a fatal
// configuration error, detected before any request is issued.
func New(targetEPSG int) (*Reprojector, error) {
	if targetEPSG == 0 || geographic[targetEPSG] {
		return nil, fmt.Errorf("%w: EPSG:%d", domain.ErrUnprojectedTarget, targetEPSG)
	}
	return &Reprojector{target: targetEPSG, cache: make(map[int]Transform)}, nil
}

// Target returns the target EPSG code.
func (r *Reprojector) Target() int { return r.target }

// Transformation returns the cached transform for a source EPSG code,
// constructing it on first use.
func (r *Reprojector) Transformation(sourceEPSG int) (Transform, error) {
	if tr, ok := r.cache[sourceEPSG]; ok {
		return tr, nil
	}
	tr, err := build(sourceEPSG, r.target)
	if err != nil {
		return nil, err
	}
	r.cache[sourceEPSG] = tr
	return tr, nil
}

// Apply reprojects a 2D or 3D point. The vertical coordinate, when present,
// passes through untouched.
func (r *Reprojector) Apply(sourceEPSG int, p domain.Point) (domain.Point, error) {
	tr, err := r.Transformation(sourceEPSG)
	if err != nil {
		return domain.Point{}, err
	}
	xy := tr(p.XY())
	if p.Is3D() {
		return domain.NewPoint(xy[0], xy[1], p.Z()), nil
	}
	return domain.NewPoint(xy[0], xy[1]), nil
}

func build(source, target int) (Transform, error) {
	switch {
	case source == target:
		return func(p orb.Point) orb.Point { return p }, nil
	case source == EPSGWGS84 && target == EPSGWebMercator:
		return func(p orb.Point) orb.Point { return project.WGS84.ToMercator(p) }, nil
	case source == EPSGWebMercator && target == EPSGWGS84:
		return func(p orb.Point) orb.Point { return project.Mercator.ToWGS84(p) }, nil
	}
	return nil, fmt.Errorf("no transformation from EPSG:%d to EPSG:%d", source, target)
}
