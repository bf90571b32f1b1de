package ports

import (
	"context"
	"fmt"
	"time"
)

// Client is the upstream Sensor Observation Service. The core treats the
// observation payload as opaque bytes and never retries a call; a failed
// fetch aborts the whole invocation.
type Client interface {
	// Capabilities fetches the service description: offerings with their
	// procedures, observed properties and time extent.
	Capabilities(ctx context.Context) (*Capabilities, error)
	// GetObservation fetches the raw observation payload for one offering.
	GetObservation(ctx context.Context, req GetObservationRequest) ([]byte, error)
	// DescribeSensor fetches the metadata summary of one procedure.
	DescribeSensor(ctx context.Context, procedure string) (*SensorDescription, error)
}

// GetObservationRequest describes one GetObservation call.
type GetObservationRequest struct {
	Offering           string
	ObservedProperties []string
	Procedure          string
	// EventTime is the ISO start/end range.
	EventTime      string
	ResponseFormat string
}

// Capabilities is the parsed service description.
type Capabilities struct {
	Offerings []Offering
}

// Offering groups procedures for joint querying.
type Offering struct {
	ID                 string
	Procedures         []string
	ObservedProperties []string
	Begin              time.Time
	End                time.Time
}

// Offering looks up one offering by id.
func (c *Capabilities) Offering(id string) (*Offering, error) {
	for i := range c.Offerings {
		if c.Offerings[i].ID == id {
			return &c.Offerings[i], nil
		}
	}
	return nil, fmt.Errorf("offering %q not present on the service", id)
}

// SensorDescription is the subset of a sensor's self-description used by the
// procedure-info import.
type SensorDescription struct {
	Name        string
	Description string
	Keywords    []string
	SensorType  string
	SystemType  string
	SourceEPSG  int
	X, Y, Z     float64
}
