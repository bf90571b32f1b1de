package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pesekon2/sosflow/internal/adapters/rasterize"
	"github.com/pesekon2/sosflow/internal/bucket"
	"github.com/pesekon2/sosflow/internal/domain"
	"github.com/pesekon2/sosflow/internal/layout"
	"github.com/pesekon2/sosflow/internal/ports"
)

// RunRaster imports every configured offering as one raster map per bucket.
// Each bucket becomes an intermediate per-bucket table handed to the
// rasterizer; intermediates are dropped afterwards unless the configuration
// keeps them.
func (p *Pipeline) RunRaster(ctx context.Context) error {
	if err := p.requireStore(); err != nil {
		return err
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
			if _, err := p.rasterPass(ctx, req); err != nil {
				return err
			}
		}
	}
	return nil
}

// rasterPass imports one offering/property and returns the rasterized map
// names keyed by bucket start for temporal registration.
func (p *Pipeline) rasterPass(ctx context.Context, req request) ([]rasterMap, error) {
	fc, err := p.fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	values, _, err := p.aggregate(req, fc)
	if err != nil {
		return nil, err
	}

	region, err := p.region(fc)
	if err != nil {
		return nil, err
	}
	position := points(fc)

	var maps []rasterMap
	for _, table := range layout.PerBucket(p.cfg.Output.Name, req.offering, req.property, values) {
		if err := p.writeTable(table, position); err != nil {
			return nil, err
		}

		cells := rasterCells(table, position)
		if err := p.deps.Rasterizer.Rasterize(table.Name, region, cells); err != nil {
			return nil, err
		}
		maps = append(maps, rasterMap{name: table.Name, start: bucketStart(table.Name, values)})

		if !p.cfg.Output.KeepIntermediates {
			if err := p.deps.Store.DropTable(table.Name); err != nil {
				return nil, err
			}
		}
	}
	sort.Slice(maps, func(i, j int) bool { return maps[i].start.Before(maps[j].start) })
	return maps, nil
}

type rasterMap struct {
	name  string
	start time.Time
}

// region returns the configured bounding box, or one padded from the
// reprojected sensor positions when none was given.
func (p *Pipeline) region(fc *domain.FeatureCollection) (ports.Region, error) {
	if p.cfg.Raster.BBox != "" {
		return p.cfg.Region()
	}
	pts := make([]domain.Point, 0, len(fc.Features))
	for _, f := range fc.Features {
		pts = append(pts, f.Geometry)
	}
	return rasterize.PadRegion(pts, p.cfg.Raster.Resolution)
}

// rasterCells pairs each per-bucket row with its sensor position.
func rasterCells(table layout.Table, position map[string]domain.Point) []ports.Cell {
	cells := make([]ports.Cell, 0, len(table.Rows))
	for _, row := range table.Rows {
		proc, ok := rowProcedure(row)
		if !ok {
			continue
		}
		pt, ok := position[proc]
		if !ok {
			continue
		}
		value, ok := row[2].(float64)
		if !ok {
			continue
		}
		xy := pt.XY()
		cells = append(cells, ports.Cell{X: xy[0], Y: xy[1], Value: value})
	}
	return cells
}

// bucketStart recovers the bucket instant encoded in a per-bucket table
// name.
func bucketStart(tableName string, values []bucket.AggregatedValue) time.Time {
	for _, v := range values {
		if strings.HasSuffix(tableName, domain.EncodeKey(v.BucketStart)) {
			return v.BucketStart
		}
	}
	return time.Time{}
}
