// Package pipeline runs the sequential import flows: fetch, parse,
// reproject, bucket, aggregate, lay out, write.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/pesekon2/sosflow/internal/app/config"
	"github.com/pesekon2/sosflow/internal/bucket"
	"github.com/pesekon2/sosflow/internal/domain"
	"github.com/pesekon2/sosflow/internal/parse"
	"github.com/pesekon2/sosflow/internal/ports"
	"github.com/pesekon2/sosflow/internal/reproject"
)

// Deps are the collaborators a pipeline writes through. Temporal and
// Rasterizer may be nil when the selected flow does not use them.
type Deps struct {
	Client     ports.Client
	Store      ports.TableStore
	Temporal   ports.TemporalStore
	Rasterizer ports.Rasterizer
	Obs        ports.Observability
}

// Pipeline holds one invocation's validated configuration and collaborators.
// Offerings are processed strictly in order; the first fatal error aborts
// the whole invocation.
type Pipeline struct {
	cfg    *config.Config
	deps   Deps
	repro  *reproject.Reprojector
	method bucket.Method
	// granularity is the bucket width in seconds.
	granularity int64
	// caps is fetched lazily, once, to fill absent request options.
	caps *ports.Capabilities
}

// New validates the configuration against the wired collaborators.
func New(cfg *config.Config, deps Deps) (*Pipeline, error) {
	if deps.Client == nil {
		return nil, fmt.Errorf("pipeline: no service client wired")
	}
	if deps.Obs == nil {
		deps.Obs = ports.Nop{}
	}

	method, err := bucket.ParseMethod(cfg.Aggregate.Method)
	if err != nil {
		return nil, err
	}
	granularity, err := cfg.SecondsGranularity()
	if err != nil {
		return nil, err
	}
	repro, err := reproject.New(cfg.TargetEPSG)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		cfg:         cfg,
		deps:        deps,
		repro:       repro,
		method:      method,
		granularity: granularity,
	}, nil
}

// requireStore guards the import flows. Describe and payload conversion
// run without a table store, so the check happens per flow rather than
// at construction.
func (p *Pipeline) requireStore() error {
	if p.deps.Store == nil {
		return fmt.Errorf("pipeline: no table store wired")
	}
	return nil
}

// request is one offering/property fetch with all absent options resolved.
type request struct {
	offering string
	property string
	start    time.Time
	end      time.Time
}

// resolve fills the request options the configuration left empty from the
// service capabilities: all observed properties of the offering, and the
// offering's full time extent.
func (p *Pipeline) resolve(ctx context.Context, offering string) ([]request, error) {
	properties := p.cfg.Request.ObservedProperties
	var start, end time.Time

	if p.cfg.Request.EventTime != "" {
		var err error
		start, end, err = domain.ParseEventTime(p.cfg.Request.EventTime)
		if err != nil {
			return nil, err
		}
	}

	if len(properties) == 0 || p.cfg.Request.EventTime == "" {
		off, err := p.offering(ctx, offering)
		if err != nil {
			return nil, err
		}
		if len(properties) == 0 {
			properties = off.ObservedProperties
		}
		if p.cfg.Request.EventTime == "" {
			start, end = off.Begin, off.End
		}
	}

	if len(properties) == 0 {
		return nil, fmt.Errorf("%w: offering %s declares no observed properties",
			domain.ErrMissingData, offering)
	}

	reqs := make([]request, 0, len(properties))
	for _, prop := range properties {
		reqs = append(reqs, request{
			offering: offering,
			property: prop,
			start:    start,
			end:      end,
		})
	}
	return reqs, nil
}

func (p *Pipeline) offering(ctx context.Context, id string) (*ports.Offering, error) {
	if p.caps == nil {
		caps, err := p.deps.Client.Capabilities(ctx)
		if err != nil {
			return nil, err
		}
		p.caps = caps
	}
	return p.caps.Offering(id)
}

// wireFormat maps the configured format shorthand onto the responseFormat
// value the service expects.
func wireFormat(format string) string {
	if format == "json" {
		return "application/json"
	}
	return `text/xml;subtype="om/1.0.0"`
}

// eventTime renders the resolved range back into the wire filter.
func (r request) eventTime() string {
	const layout = "2006-01-02T15:04:05"
	return r.start.UTC().Format(layout) + "/" + r.end.UTC().Format(layout)
}

// fetch retrieves and parses one offering/property payload, then reprojects
// every feature into the target CRS.
func (p *Pipeline) fetch(ctx context.Context, req request) (*domain.FeatureCollection, error) {
	payload, err := p.deps.Client.GetObservation(ctx, ports.GetObservationRequest{
		Offering:           req.offering,
		ObservedProperties: []string{req.property},
		Procedure:          p.cfg.Request.Procedure,
		EventTime:          req.eventTime(),
		ResponseFormat:     wireFormat(p.cfg.Request.ResponseFormat),
	})
	if err != nil {
		return nil, err
	}

	opts := parse.Options{
		ObservedProperty: req.property,
		ImportEmpty:      p.cfg.Output.ImportEmpty,
		Obs:              p.deps.Obs,
	}
	var fc *domain.FeatureCollection
	if p.cfg.Request.ResponseFormat == "json" {
		fc, err = parse.OMJSON(payload, opts)
	} else {
		fc, err = parse.OM10(payload, opts)
	}
	if err != nil {
		return nil, err
	}
	if len(fc.Features) == 0 {
		return nil, fmt.Errorf("%w: offering %s has no observations of %s in the requested range; "+
			"adjust the time range, offering, procedure or observed-property filters",
			domain.ErrMissingData, req.offering, req.property)
	}

	source, err := fc.SourceEPSG()
	if err != nil {
		return nil, err
	}
	for i := range fc.Features {
		pt, err := p.repro.Apply(source, fc.Features[i].Geometry)
		if err != nil {
			return nil, err
		}
		fc.Features[i].Geometry = pt
	}
	p.deps.Obs.IncCounter("sos_features_emitted_total", float64(len(fc.Features)))
	return fc, nil
}

// aggregate buckets and reduces one parsed collection.
func (p *Pipeline) aggregate(req request, fc *domain.FeatureCollection) ([]bucket.AggregatedValue, *bucket.Assignment, error) {
	b, err := bucket.New(req.start, req.end, p.granularity)
	if err != nil {
		return nil, nil, err
	}
	p.deps.Obs.SetGauge("sos_bucket_count", float64(b.Count()))

	assignment, err := b.Assign(fc.Features)
	if err != nil {
		return nil, nil, err
	}
	if assignment.Dropped > 0 {
		p.deps.Obs.IncCounter("sos_out_of_range_dropped_total", float64(assignment.Dropped))
		p.deps.Obs.LogWarn("observations outside the requested event time were dropped",
			ports.Field{Key: "offering", Value: req.offering},
			ports.Field{Key: "dropped", Value: assignment.Dropped})
	}
	return bucket.Aggregate(assignment, p.method), assignment, nil
}

// points indexes reprojected sensor positions by procedure name.
func points(fc *domain.FeatureCollection) map[string]domain.Point {
	m := make(map[string]domain.Point, len(fc.Features))
	for _, f := range fc.Features {
		m[f.Name] = f.Geometry
	}
	return m
}
