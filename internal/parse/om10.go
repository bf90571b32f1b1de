package parse

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/pesekon2/sosflow/internal/domain"
	"github.com/pesekon2/sosflow/internal/ports"
)

// emptySeriesKey stamps the synthetic zero observation of an import-empty
// procedure: the Unix epoch, guaranteed identifier-safe and outside any
// sane request range.
var emptySeriesKey = domain.KeyPrefix + "19700101T000000"

// Wire structure of a text/xml;subtype="om/1.0.0" GetObservation response.
// Tags match local names, so namespace prefixes on the wire are irrelevant.
type om10Collection struct {
	XMLName xml.Name     `xml:"ObservationCollection"`
	Members []om10Member `xml:"member"`
}

type om10Member struct {
	Observation om10Observation `xml:"Observation"`
}

type om10Observation struct {
	Name     string       `xml:"name"`
	Point    om10Point    `xml:"location>Point"`
	Fields   []om10Field  `xml:"result>DataArray>elementType>DataRecord>field"`
	Encoding om10Encoding `xml:"result>DataArray>encoding>TextBlock"`
	Values   string       `xml:"result>DataArray>values"`
}

type om10Point struct {
	SrsName     string `xml:"srsName,attr"`
	Coordinates string `xml:"coordinates"`
}

type om10Field struct {
	Name     string        `xml:"name,attr"`
	Quantity *om10Quantity `xml:"Quantity"`
}

type om10Quantity struct {
	Definition string `xml:"definition,attr"`
}

type om10Encoding struct {
	TokenSeparator string `xml:"tokenSeparator,attr"`
	BlockSeparator string `xml:"blockSeparator,attr"`
}

// OM10 parses the tagged-block XML encoding. Each member declares one
// procedure: its name, an ordered field list (one Quantity per named
// phenomenon), the text encoding separators, the values text and a located
// point with the CRS name.
func OM10(payload []byte, opts Options) (*domain.FeatureCollection, error) {
	var root om10Collection
	if err := xml.Unmarshal(payload, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}

	fc := &domain.FeatureCollection{}
	for _, m := range root.Members {
		feature, crs, err := om10Feature(m.Observation, opts)
		if err != nil {
			return nil, err
		}
		if crs != "" {
			if fc.SourceCRS == "" {
				fc.SourceCRS = crs
			} else if fc.SourceCRS != crs {
				return nil, fmt.Errorf("%w: %q then %q",
					domain.ErrCRSMismatch, fc.SourceCRS, crs)
			}
		}
		if feature != nil {
			fc.Features = append(fc.Features, *feature)
		}
	}
	return fc, nil
}

// om10Feature decodes one procedure block. A nil feature with nil error
// means the block was skipped (no data and import-empty off).
func om10Feature(o om10Observation, opts Options) (*domain.Feature, string, error) {
	crs := strings.TrimSpace(o.Point.SrsName)

	// The wanted value index within a data row: 0 is the timestamp token,
	// Quantity fields count from 1 in declaration order.
	wanted := 0
	position := 1
	for _, f := range o.Fields {
		if f.Quantity == nil {
			continue
		}
		if strings.Contains(f.Quantity.Definition, opts.ObservedProperty) {
			wanted = position
			break
		}
		position++
	}

	geometry, err := om10Geometry(o.Point)
	if err != nil {
		return nil, "", fmt.Errorf("procedure %q: %w", o.Name, err)
	}

	values := strings.TrimSpace(o.Values)
	if values == "" || wanted == 0 {
		f, err := emptyProcedure(o.Name, geometry, opts)
		return f, crs, err
	}

	block := o.Encoding.BlockSeparator
	token := o.Encoding.TokenSeparator
	if block == "" || token == "" {
		return nil, "", fmt.Errorf("%w: procedure %q lacks a text encoding declaration",
			domain.ErrMalformedResponse, o.Name)
	}

	series := make(map[string]float64)
	for _, row := range strings.Split(values, block) {
		row = strings.TrimSpace(row)
		if row == "" {
			continue
		}
		tokens := strings.Split(row, token)
		if wanted >= len(tokens) {
			return nil, "", fmt.Errorf("%w: procedure %q row %q has no token at index %d",
				domain.ErrMalformedResponse, o.Name, row, wanted)
		}
		ts, err := domain.ParseTimestamp(tokens[0])
		if err != nil {
			return nil, "", fmt.Errorf("procedure %q: %w", o.Name, err)
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(tokens[wanted]), 64)
		if err != nil {
			return nil, "", fmt.Errorf("procedure %q: value %q at index %d is not numeric",
				o.Name, tokens[wanted], wanted)
		}
		series[domain.EncodeKey(ts)] = value
	}
	opts.obs().IncCounter("sos_observations_parsed_total", float64(len(series)))

	return &domain.Feature{Name: o.Name, Geometry: geometry, Series: series}, crs, nil
}

func om10Geometry(p om10Point) (domain.Point, error) {
	text := strings.ReplaceAll(strings.TrimSpace(p.Coordinates), "\n", "")
	if text == "" {
		return domain.Point{}, fmt.Errorf("missing point coordinates")
	}
	tokens := strings.Split(text, ",")
	coords := make([]float64, len(tokens))
	for i, tok := range tokens {
		v, err := strconv.ParseFloat(strings.TrimSpace(tok), 64)
		if err != nil {
			return domain.Point{}, fmt.Errorf("coordinate %q is not numeric", tok)
		}
		coords[i] = v
	}
	return domain.Point{Coordinates: coords}, nil
}

// emptyProcedure applies the import-empty policy and warns the operator
// either way.
func emptyProcedure(name string, geometry domain.Point, opts Options) (*domain.Feature, error) {
	obs := opts.obs()
	obs.IncCounter("sos_empty_procedures_total", 1)
	if !opts.ImportEmpty {
		obs.LogWarn("procedure has no observations for the requested property, skipping",
			ports.Field{Key: "procedure", Value: name},
			ports.Field{Key: "property", Value: opts.ObservedProperty})
		return nil, nil
	}
	obs.LogWarn("procedure has no observations for the requested property, importing with zero value",
		ports.Field{Key: "procedure", Value: name},
		ports.Field{Key: "property", Value: opts.ObservedProperty})
	return &domain.Feature{
		Name:     name,
		Geometry: geometry,
		Series:   map[string]float64{emptySeriesKey: 0},
		Empty:    true,
	}, nil
}
