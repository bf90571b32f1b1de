package pipeline

import (
	"context"
	"strings"

	"github.com/pesekon2/sosflow/internal/bucket"
	"github.com/pesekon2/sosflow/internal/domain"
	"github.com/pesekon2/sosflow/internal/layout"
	"github.com/pesekon2/sosflow/internal/ports"
)

// RunVector imports every configured offering as vector attribute tables.
// The wide layout writes one table per offering/property with a column per
// bucket timestamp; the default layout writes one table per procedure with
// a row per bucket timestamp, updated in place on repeat runs.
func (p *Pipeline) RunVector(ctx context.Context) error {
	if err := p.requireStore(); err != nil {
		return err
	}
	for _, offering := range p.cfg.Request.Offerings {
		reqs, err := p.resolve(ctx, offering)
		if err != nil {
			return err
		}
		allProperties := make([]string, 0, len(reqs))
		for _, req := range reqs {
			allProperties = append(allProperties, req.property)
		}
		for _, req := range reqs {
			if err := p.vectorPass(ctx, req, allProperties); err != nil {
				return err
			}
		}
		if p.cfg.Output.SensorInfo {
			if err := p.ImportSensorInfo(ctx, offering); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Pipeline) vectorPass(ctx context.Context, req request, allProperties []string) error {
	fc, err := p.fetch(ctx, req)
	if err != nil {
		return err
	}
	values, assignment, err := p.aggregate(req, fc)
	if err != nil {
		return err
	}

	if p.cfg.Output.WideLayout {
		name := domain.Sanitize(p.cfg.Output.Name, req.offering, req.property)
		table := layout.WideByProcedure(name, values, assignment.EmptyProcedures)
		return p.writeTable(table, points(fc))
	}
	return p.writePerProcedure(req, allProperties, values, fc)
}

// writePerProcedure maintains one wide-per-timestamp table per procedure.
// A table from an earlier property pass is extended column-wise: rows whose
// timestamp already exists get a cell update, new timestamps get a fresh
// row.
func (p *Pipeline) writePerProcedure(req request, allProperties []string, values []bucket.AggregatedValue, fc *domain.FeatureCollection) error {
	byProcedure := make(map[string][]bucket.AggregatedValue)
	for _, v := range values {
		byProcedure[v.Procedure] = append(byProcedure[v.Procedure], v)
	}
	position := points(fc)

	cat := 0
	for _, f := range fc.Features {
		procValues, ok := byProcedure[f.Name]
		if !ok {
			continue
		}
		cat++
		name := domain.Sanitize(p.cfg.Output.Name, req.offering, f.Name)
		table, updates := layout.WideByTimestamp(name, cat, req.property, allProperties, procValues)

		exists, err := p.deps.Store.HasTable(name)
		if err != nil {
			return err
		}
		if !exists {
			// rows key on timestamps, not procedures, so the point is
			// recorded directly
			if err := p.writeTable(table, nil); err != nil {
				return err
			}
			if err := p.deps.Store.WritePoint(name, cat, position[f.Name]); err != nil {
				return err
			}
			continue
		}
		for i, u := range updates {
			present, err := p.deps.Store.HasTimestampRow(name, u.TimestampKey)
			if err != nil {
				return err
			}
			if present {
				if err := p.deps.Store.UpdateCell(name, u.Column, u.Value, u.TimestampKey); err != nil {
					return err
				}
				continue
			}
			if err := p.deps.Store.InsertRows(name, table.Columns, []layout.Row{table.Rows[i]}); err != nil {
				return err
			}
			p.deps.Obs.IncCounter("sos_rows_written_total", 1)
		}
	}
	return nil
}

// writeTable creates a table, fills it and records its point set. The
// column guard is a warning, never an error.
func (p *Pipeline) writeTable(table layout.Table, position map[string]domain.Point) error {
	if table.OverColumnGuard() {
		p.deps.Obs.LogWarn("table exceeds the recommended column count",
			ports.Field{Key: "table", Value: table.Name},
			ports.Field{Key: "columns", Value: len(table.Columns)})
	}
	p.deps.Obs.SetGauge("sos_column_count", float64(len(table.Columns)))

	if err := p.deps.Store.CreateTable(table.Name, table.Columns); err != nil {
		return err
	}
	if err := p.deps.Store.InsertRows(table.Name, table.Columns, table.Rows); err != nil {
		return err
	}
	p.deps.Obs.IncCounter("sos_rows_written_total", float64(len(table.Rows)))

	for _, row := range table.Rows {
		cat, ok := row[0].(int)
		if !ok {
			continue
		}
		proc, ok := rowProcedure(row)
		if !ok {
			continue
		}
		pt, ok := position[proc]
		if !ok {
			continue
		}
		if err := p.deps.Store.WritePoint(table.Name, cat, pt); err != nil {
			return err
		}
	}
	return nil
}

// rowProcedure extracts the procedure name column when the row carries one.
func rowProcedure(row layout.Row) (string, bool) {
	if len(row) < 2 {
		return "", false
	}
	s, ok := row[1].(string)
	return s, ok
}

// ImportSensorInfo writes one metadata row per procedure of an offering,
// fetched via DescribeSensor, with the sensor position reprojected into the
// target CRS.
func (p *Pipeline) ImportSensorInfo(ctx context.Context, offering string) error {
	if err := p.requireStore(); err != nil {
		return err
	}
	off, err := p.offering(ctx, offering)
	if err != nil {
		return err
	}

	cols := []layout.Column{
		{Name: "cat", Type: layout.TypeKey},
		{Name: "name", Type: layout.TypeVarchar},
		{Name: "description", Type: layout.TypeVarchar},
		{Name: "keywords", Type: layout.TypeVarchar},
		{Name: "sensor_type", Type: layout.TypeVarchar},
		{Name: "system_type", Type: layout.TypeVarchar},
		{Name: "crs", Type: layout.TypeInteger},
		{Name: "x", Type: layout.TypeDouble},
		{Name: "y", Type: layout.TypeDouble},
		{Name: "z", Type: layout.TypeDouble},
	}
	name := domain.Sanitize(p.cfg.Output.Name, offering, "sensor_info")
	if err := p.deps.Store.CreateTable(name, cols); err != nil {
		return err
	}

	for i, proc := range off.Procedures {
		desc, err := p.deps.Client.DescribeSensor(ctx, proc)
		if err != nil {
			return err
		}
		cat := i + 1
		row := layout.Row{
			cat, desc.Name, desc.Description, strings.Join(desc.Keywords, ","),
			desc.SensorType, desc.SystemType, desc.SourceEPSG,
			desc.X, desc.Y, desc.Z,
		}
		if err := p.deps.Store.InsertRows(name, cols, []layout.Row{row}); err != nil {
			return err
		}
		p.deps.Obs.IncCounter("sos_rows_written_total", 1)

		if desc.SourceEPSG != 0 {
			pt, err := p.repro.Apply(desc.SourceEPSG, domain.NewPoint(desc.X, desc.Y, desc.Z))
			if err != nil {
				return err
			}
			if err := p.deps.Store.WritePoint(name, cat, pt); err != nil {
				return err
			}
		}
	}
	return nil
}
