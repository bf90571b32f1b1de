package pipeline

import (
	"context"
	"fmt"

	"github.com/pesekon2/sosflow/internal/domain"
	"github.com/pesekon2/sosflow/internal/layout"
	"github.com/pesekon2/sosflow/internal/ports"
)

// RunTemporalVector imports per-bucket vector tables and registers them
// into one space-time vector dataset per offering/property.
func (p *Pipeline) RunTemporalVector(ctx context.Context) error {
	if err := p.requireStore(); err != nil {
		return err
	}
	if p.deps.Temporal == nil {
		return fmt.Errorf("pipeline: no temporal store wired")
	}
	for _, offering := range p.cfg.Request.Offerings {
		reqs, err := p.resolve(ctx, offering)
		if err != nil {
			return err
		}
		for _, req := range reqs {
			if err := p.temporalVectorPass(ctx, req); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Pipeline) temporalVectorPass(ctx context.Context, req request) error {
	fc, err := p.fetch(ctx, req)
	if err != nil {
		return err
	}
	values, _, err := p.aggregate(req, fc)
	if err != nil {
		return err
	}

	dataset := domain.Sanitize(p.cfg.Output.Name, req.offering, req.property)
	if err := p.createDataset(dataset, req, ports.DatasetVector); err != nil {
		return err
	}

	position := points(fc)
	for _, table := range layout.PerBucket(p.cfg.Output.Name, req.offering, req.property, values) {
		if err := p.writeTable(table, position); err != nil {
			return err
		}
		start := bucketStart(table.Name, values)
		if err := p.deps.Temporal.Register(dataset, table.Name, start); err != nil {
			return err
		}
	}
	return nil
}

// RunTemporalRaster rasterizes per-bucket maps and registers them into one
// space-time raster dataset per offering/property.
func (p *Pipeline) RunTemporalRaster(ctx context.Context) error {
	if err := p.requireStore(); err != nil {
		return err
	}
	if p.deps.Temporal == nil {
		return fmt.Errorf("pipeline: no temporal store wired")
	}
	if p.deps.Rasterizer == nil {
		return fmt.Errorf("pipeline: no rasterizer wired")
	}
	for _, offering := range p.cfg.Request.Offerings {
		reqs, err := p.resolve(ctx, offering)
		if err != nil {
			return err
		}
		for _, req := range reqs {
			maps, err := p.rasterPass(ctx, req)
			if err != nil {
				return err
			}
			dataset := domain.Sanitize(p.cfg.Output.Name, req.offering, req.property)
			if err := p.createDataset(dataset, req, ports.DatasetRaster); err != nil {
				return err
			}
			for _, m := range maps {
				if err := p.deps.Temporal.Register(dataset, m.name, m.start); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (p *Pipeline) createDataset(name string, req request, kind ports.DatasetType) error {
	title := name
	description := fmt.Sprintf("%s observations of offering %s", req.property, req.offering)
	return p.deps.Temporal.CreateDataset(name, title, description, kind)
}
