package parse

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/pesekon2/sosflow/internal/domain"
)

// Wire structure of an application/json GetObservation response:
// {"ObservationCollection":{"member":[...]}} with a columnar DataArray per
// member.
type jsonEnvelope struct {
	ObservationCollection *jsonCollection `json:"ObservationCollection"`
}

type jsonCollection struct {
	Members []jsonMember `json:"member"`
}

type jsonMember struct {
	Name              string              `json:"name"`
	FeatureOfInterest jsonFeatureOfInterest `json:"featureOfInterest"`
	Result            jsonResult          `json:"result"`
}

type jsonFeatureOfInterest struct {
	// Geom is a GML markup fragment carrying the point and, on the first
	// member, the CRS declaration.
	Geom string `json:"geom"`
}

type jsonResult struct {
	DataArray jsonDataArray `json:"DataArray"`
}

type jsonDataArray struct {
	ElementCount flexInt       `json:"elementCount"`
	Fields       []jsonField   `json:"field"`
	Values       [][]flexValue `json:"values"`
}

type jsonField struct {
	Name string `json:"name"`
}

// flexInt accepts both numeric and quoted counts.
type flexInt int

func (n *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	v, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("element count %q is not an integer", s)
	}
	*n = flexInt(v)
	return nil
}

// flexValue keeps the raw token of a data cell, whether it arrived as a
// JSON string or number.
type flexValue string

func (v *flexValue) UnmarshalJSON(data []byte) error {
	*v = flexValue(strings.Trim(string(data), `"`))
	return nil
}

// OMJSON parses the structured-array JSON encoding. Every member carries a
// procedure name, a GML point and a fixed-width data array in columnar
// layout: field i's time series lives at position i of every values row.
func OMJSON(payload []byte, opts Options) (*domain.FeatureCollection, error) {
	var root jsonEnvelope
	if err := json.Unmarshal(payload, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	if root.ObservationCollection == nil {
		return nil, fmt.Errorf("%w: missing ObservationCollection root key",
			domain.ErrMalformedResponse)
	}
	members := root.ObservationCollection.Members
	if len(members) == 0 {
		return nil, fmt.Errorf("%w: empty member list", domain.ErrMissingData)
	}

	// The CRS is declared once, as an attribute fragment embedded in the
	// first member's geometry markup.
	crs, err := scanSrsName(members[0].FeatureOfInterest.Geom)
	if err != nil {
		return nil, err
	}

	fc := &domain.FeatureCollection{SourceCRS: crs}
	for _, m := range members {
		feature, err := jsonFeature(m, opts)
		if err != nil {
			return nil, err
		}
		if feature != nil {
			fc.Features = append(fc.Features, *feature)
		}
	}
	return fc, nil
}

// scanSrsName extracts the quoted srsName attribute value by delimiter
// scanning bounded by the closing angle bracket, without parsing the full
// markup.
func scanSrsName(geom string) (string, error) {
	_, after, found := strings.Cut(geom, "srsName=")
	if !found {
		return "", fmt.Errorf("%w: geometry lacks an srsName declaration",
			domain.ErrMalformedResponse)
	}
	end := strings.IndexByte(after, '>')
	if end < 0 {
		return "", fmt.Errorf("%w: unterminated srsName attribute",
			domain.ErrMalformedResponse)
	}
	value := after[:end]
	value = strings.TrimSuffix(value, "/")
	if len(value) < 2 {
		return "", fmt.Errorf("%w: empty srsName attribute", domain.ErrMalformedResponse)
	}
	// strip the surrounding quotes
	return value[1 : len(value)-1], nil
}

// gmlPoint resolves the point coordinates from the GML fragment.
type gmlPoint struct {
	XMLName     xml.Name
	Coordinates string `xml:"coordinates"`
	Pos         string `xml:"pos"`
}

func jsonGeometry(geom string) (domain.Point, error) {
	var p gmlPoint
	if err := xml.Unmarshal([]byte(geom), &p); err != nil {
		return domain.Point{}, fmt.Errorf("%w: unparseable geometry markup: %v",
			domain.ErrMalformedResponse, err)
	}
	var tokens []string
	switch {
	case p.Coordinates != "":
		tokens = strings.Split(strings.TrimSpace(p.Coordinates), ",")
	case p.Pos != "":
		tokens = strings.Fields(p.Pos)
	default:
		return domain.Point{}, fmt.Errorf("%w: geometry carries no coordinates",
			domain.ErrMalformedResponse)
	}
	if len(tokens) < 2 {
		return domain.Point{}, fmt.Errorf("%w: geometry %q is not a 2D point",
			domain.ErrMalformedResponse, geom)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(tokens[0]), 64)
	if err != nil {
		return domain.Point{}, fmt.Errorf("coordinate %q is not numeric", tokens[0])
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(tokens[1]), 64)
	if err != nil {
		return domain.Point{}, fmt.Errorf("coordinate %q is not numeric", tokens[1])
	}
	// the geometry engine reports X/Y only
	return domain.NewPoint(x, y), nil
}

func jsonFeature(m jsonMember, opts Options) (*domain.Feature, error) {
	geometry, err := jsonGeometry(m.FeatureOfInterest.Geom)
	if err != nil {
		return nil, fmt.Errorf("procedure %q: %w", m.Name, err)
	}

	da := m.Result.DataArray
	count := int(da.ElementCount)
	if count > len(da.Fields) {
		return nil, fmt.Errorf("%w: procedure %q declares %d elements but %d fields",
			domain.ErrMalformedResponse, m.Name, count, len(da.Fields))
	}

	// Transpose the row-major values matrix into per-field columns.
	columns := make([][]string, count)
	for _, row := range da.Values {
		if len(row) < count {
			return nil, fmt.Errorf("%w: procedure %q has a values row of width %d, want %d",
				domain.ErrMalformedResponse, m.Name, len(row), count)
		}
		for i := 0; i < count; i++ {
			columns[i] = append(columns[i], string(row[i]))
		}
	}

	timeIdx := 0
	for i := 0; i < count; i++ {
		if strings.Contains(strings.ToLower(da.Fields[i].Name), "time") {
			timeIdx = i
			break
		}
	}

	propIdx := -1
	for i := 0; i < count; i++ {
		if i == timeIdx {
			continue
		}
		if strings.Contains(da.Fields[i].Name, opts.ObservedProperty) {
			propIdx = i
			break
		}
	}

	if propIdx < 0 || len(columns) == 0 || len(columns[timeIdx]) == 0 {
		return emptyProcedure(m.Name, geometry, opts)
	}

	series := make(map[string]float64, len(columns[timeIdx]))
	for i, token := range columns[timeIdx] {
		ts, err := domain.ParseTimestamp(token)
		if err != nil {
			return nil, fmt.Errorf("procedure %q: %w", m.Name, err)
		}
		value, err := strconv.ParseFloat(columns[propIdx][i], 64)
		if err != nil {
			return nil, fmt.Errorf("procedure %q: value %q in field %q is not numeric",
				m.Name, columns[propIdx][i], da.Fields[propIdx].Name)
		}
		series[domain.EncodeKey(ts)] = value
	}
	opts.obs().IncCounter("sos_observations_parsed_total", float64(len(series)))

	// Retain every other declared field as auxiliary data.
	fields := make(map[string][]string)
	for i := 0; i < count; i++ {
		if i == timeIdx || i == propIdx {
			continue
		}
		fields[da.Fields[i].Name] = columns[i]
	}
	if len(fields) == 0 {
		fields = nil
	}

	return &domain.Feature{
		Name:     m.Name,
		Geometry: geometry,
		Series:   series,
		Fields:   fields,
	}, nil
}
