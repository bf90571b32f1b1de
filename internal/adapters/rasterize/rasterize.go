// Package rasterize hands aggregated point samples to an external
// point-to-grid tool as x y z cell streams.
package rasterize

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pesekon2/sosflow/internal/domain"
	"github.com/pesekon2/sosflow/internal/ports"
)

// XYZStreamer writes one stream file per raster map under a working
// directory. Each file starts with a region header so the consumer can
// set its computational window before gridding, followed by one
// space-separated x y value line per cell.
type XYZStreamer struct {
	dir string
}

// NewXYZStreamer prepares the working directory.
func NewXYZStreamer(dir string) (*XYZStreamer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("rasterize dir: %w", err)
	}
	return &XYZStreamer{dir: dir}, nil
}

func (x *XYZStreamer) Rasterize(mapName string, region ports.Region, cells []ports.Cell) error {
	path := filepath.Join(x.dir, mapName+".xyz")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("rasterize %s: %w", mapName, err)
	}
	w := bufio.NewWriter(f)

	fmt.Fprintf(w, "# north=%s south=%s east=%s west=%s res=%s\n",
		coord(region.North), coord(region.South),
		coord(region.East), coord(region.West),
		coord(region.Resolution))
	for _, c := range cells {
		w.WriteString(coord(c.X))
		w.WriteByte(' ')
		w.WriteString(coord(c.Y))
		w.WriteByte(' ')
		w.WriteString(coord(c.Value))
		w.WriteByte('\n')
	}

	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("rasterize %s: %w", mapName, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("rasterize %s: %w", mapName, err)
	}
	return nil
}

func coord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// PadRegion derives a computational region from sensor positions: the
// bounding box of the points grown by one resolution step on every side,
// so that boundary sensors land inside a full cell instead of on the
// region edge.
func PadRegion(points []domain.Point, resolution float64) (ports.Region, error) {
	if len(points) == 0 {
		return ports.Region{}, fmt.Errorf("no points to derive a region from")
	}
	first := points[0].XY()
	r := ports.Region{
		North: first[1], South: first[1],
		East: first[0], West: first[0],
		Resolution: resolution,
	}
	for _, p := range points[1:] {
		xy := p.XY()
		if xy[1] > r.North {
			r.North = xy[1]
		}
		if xy[1] < r.South {
			r.South = xy[1]
		}
		if xy[0] > r.East {
			r.East = xy[0]
		}
		if xy[0] < r.West {
			r.West = xy[0]
		}
	}
	r.North += resolution
	r.South -= resolution
	r.East += resolution
	r.West -= resolution
	return r, nil
}

var _ ports.Rasterizer = (*XYZStreamer)(nil)
