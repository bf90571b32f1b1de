// Package geojson renders parsed observation collections as GeoJSON for use
// outside the host GIS.
package geojson

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/pesekon2/sosflow/internal/domain"
	"github.com/pesekon2/sosflow/internal/parse"
)

// Format selects the wire encoding of the input payload.
type Format string

const (
	FormatXML  Format = "xml"
	FormatJSON Format = "json"
)

// Convert parses a raw observation payload and renders it as a GeoJSON
// FeatureCollection: one feature per procedure, with the full series and any
// auxiliary fields kept as properties.
func Convert(payload []byte, format Format, opts parse.Options) ([]byte, error) {
	var (
		fc  *domain.FeatureCollection
		err error
	)
	switch format {
	case FormatJSON:
		fc, err = parse.OMJSON(payload, opts)
	case FormatXML:
		fc, err = parse.OM10(payload, opts)
	default:
		return nil, fmt.Errorf("unknown payload format %q", format)
	}
	if err != nil {
		return nil, err
	}

	out := geojson.NewFeatureCollection()
	for _, f := range fc.Features {
		var geom orb.Geometry = f.Geometry.XY()
		feature := geojson.NewFeature(geom)
		feature.Properties["name"] = f.Name
		if f.Geometry.Is3D() {
			feature.Properties["z"] = f.Geometry.Z()
		}

		series := make(map[string]float64, len(f.Series))
		for key, value := range f.Series {
			ts, err := domain.DecodeKey(key)
			if err != nil {
				return nil, fmt.Errorf("procedure %s: %w", f.Name, err)
			}
			series[ts.UTC().Format("2006-01-02T15:04:05")] = value
		}
		feature.Properties[opts.ObservedProperty] = series

		for field, values := range f.Fields {
			feature.Properties[field] = values
		}
		out.Append(feature)
	}
	if fc.SourceCRS != "" {
		out.ExtraMembers = map[string]interface{}{"crs": fc.SourceCRS}
	}
	return out.MarshalJSON()
}
