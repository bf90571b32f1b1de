package sos

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/pesekon2/sosflow/internal/domain"
	"github.com/pesekon2/sosflow/internal/ports"
)

type capabilitiesDoc struct {
	XMLName   xml.Name      `xml:"Capabilities"`
	Offerings []offeringDoc `xml:"Contents>ObservationOfferingList>ObservationOffering"`
}

type offeringDoc struct {
	ID                 string    `xml:"id,attr"`
	Name               string    `xml:"name"`
	Procedures         []hrefRef `xml:"procedure"`
	ObservedProperties []hrefRef `xml:"observedProperty"`
	Begin              string    `xml:"time>TimePeriod>beginPosition"`
	End                string    `xml:"time>TimePeriod>endPosition"`
}

type hrefRef struct {
	Href string `xml:"href,attr"`
}

func parseCapabilities(body []byte) (*ports.Capabilities, error) {
	var doc capabilitiesDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("sos: decode capabilities: %w", err)
	}

	caps := &ports.Capabilities{}
	for _, off := range doc.Offerings {
		id := off.ID
		if id == "" {
			id = off.Name
		}
		o := ports.Offering{ID: id}
		for _, p := range off.Procedures {
			o.Procedures = append(o.Procedures, p.Href)
		}
		for _, p := range off.ObservedProperties {
			o.ObservedProperties = append(o.ObservedProperties, p.Href)
		}
		if off.Begin != "" {
			t, err := domain.ParseTimestamp(off.Begin)
			if err != nil {
				return nil, fmt.Errorf("sos: offering %s begin position: %w", id, err)
			}
			o.Begin = t
		}
		if off.End != "" {
			t, err := domain.ParseTimestamp(off.End)
			if err != nil {
				return nil, fmt.Errorf("sos: offering %s end position: %w", id, err)
			}
			o.End = t
		}
		caps.Offerings = append(caps.Offerings, o)
	}
	return caps, nil
}

// SensorML subset: the system member with its classifiers and located point.
type sensorMLDoc struct {
	XMLName xml.Name  `xml:"SensorML"`
	System  systemDoc `xml:"member>System"`
}

type systemDoc struct {
	Name        string          `xml:"name"`
	Description string          `xml:"description"`
	Keywords    []string        `xml:"keywords>KeywordList>keyword"`
	Classifiers []classifierDoc `xml:"classification>ClassifierList>classifier"`
	Point       pointDoc        `xml:"location>Point"`
}

type classifierDoc struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"Term>value"`
}

type pointDoc struct {
	SrsName     string `xml:"srsName,attr"`
	Coordinates string `xml:"coordinates"`
}

func parseSensorML(body []byte) (*ports.SensorDescription, error) {
	var doc sensorMLDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("sos: decode sensor description: %w", err)
	}

	desc := &ports.SensorDescription{
		Name:        doc.System.Name,
		Description: doc.System.Description,
		Keywords:    doc.System.Keywords,
	}
	for _, c := range doc.System.Classifiers {
		switch c.Name {
		case "Sensor Type":
			desc.SensorType = c.Value
		case "System Type":
			desc.SystemType = c.Value
		}
	}

	srs := doc.System.Point.SrsName
	if srs != "" {
		parts := strings.Split(srs, ":")
		code, err := strconv.Atoi(parts[len(parts)-1])
		if err != nil {
			return nil, fmt.Errorf("sos: sensor location CRS %q has no numeric EPSG code", srs)
		}
		desc.SourceEPSG = code
	}

	coords := strings.Split(strings.ReplaceAll(strings.TrimSpace(doc.System.Point.Coordinates), "\n", ""), ",")
	if len(coords) < 2 {
		return nil, fmt.Errorf("sos: sensor location has no coordinates")
	}
	var err error
	if desc.X, err = strconv.ParseFloat(strings.TrimSpace(coords[0]), 64); err != nil {
		return nil, fmt.Errorf("sos: sensor x coordinate %q: %w", coords[0], err)
	}
	if desc.Y, err = strconv.ParseFloat(strings.TrimSpace(coords[1]), 64); err != nil {
		return nil, fmt.Errorf("sos: sensor y coordinate %q: %w", coords[1], err)
	}
	if len(coords) > 2 {
		if desc.Z, err = strconv.ParseFloat(strings.TrimSpace(coords[2]), 64); err != nil {
			return nil, fmt.Errorf("sos: sensor z coordinate %q: %w", coords[2], err)
		}
	}
	return desc, nil
}
