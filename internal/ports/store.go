package ports

import (
	"time"

	"github.com/pesekon2/sosflow/internal/domain"
	"github.com/pesekon2/sosflow/internal/layout"
)

// TableStore is the host storage API: named, columned tables plus a point
// geometry per category id. Writes are sequential against a single handle;
// each mutation is flushed before the next table is touched.
type TableStore interface {
	CreateTable(name string, cols []layout.Column) error
	InsertRows(name string, cols []layout.Column, rows []layout.Row) error
	// UpdateCell sets one aggregate column on the row matching a
	// timestamp key, for incremental wide-per-timestamp updates.
	UpdateCell(table, column string, value float64, timestampKey string) error
	HasTable(name string) (bool, error)
	HasTimestampRow(table, timestampKey string) (bool, error)
	// WritePoint records the geometry of one category in a table's
	// companion point set.
	WritePoint(table string, cat int, p domain.Point) error
	DropTable(name string) error
	Close() error
}

// DatasetType distinguishes raster from vector space-time datasets.
type DatasetType string

const (
	DatasetRaster DatasetType = "strds"
	DatasetVector DatasetType = "stvds"
)

// TemporalStore registers per-bucket maps into space-time datasets.
type TemporalStore interface {
	CreateDataset(name, title, description string, kind DatasetType) error
	Register(dataset, mapName string, start time.Time) error
}

// Region is the side-channel raster configuration handed to the external
// point-to-grid operation.
type Region struct {
	North, South, East, West float64
	Resolution               float64
}

// Cell is one point sample handed to the rasterizer.
type Cell struct {
	X, Y, Value float64
}

// Rasterizer is the external point-to-grid collaborator.
type Rasterizer interface {
	Rasterize(mapName string, region Region, cells []Cell) error
}
