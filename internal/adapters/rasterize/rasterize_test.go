package rasterize

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pesekon2/sosflow/internal/domain"
	"github.com/pesekon2/sosflow/internal/ports"
)

func TestRasterizeWritesStream(t *testing.T) {
	dir := t.TempDir()
	x, err := NewXYZStreamer(dir)
	require.NoError(t, err)

	region := ports.Region{North: 21, South: 9, East: 31, West: 14, Resolution: 1}
	cells := []ports.Cell{
		{X: 15, Y: 10, Value: 6},
		{X: 30, Y: 20, Value: 7.5},
	}
	require.NoError(t, x.Rasterize("out_off_t20200101T000000", region, cells))

	raw, err := os.ReadFile(filepath.Join(dir, "out_off_t20200101T000000.xyz"))
	require.NoError(t, err)
	assert.Equal(t,
		"# north=21 south=9 east=31 west=14 res=1\n15 10 6\n30 20 7.5\n",
		string(raw))
}

func TestPadRegion(t *testing.T) {
	points := []domain.Point{
		domain.NewPoint(15, 10),
		domain.NewPoint(30, 20),
		domain.NewPoint(22, 12),
	}
	r, err := PadRegion(points, 2)
	require.NoError(t, err)

	assert.Equal(t, 22.0, r.North)
	assert.Equal(t, 8.0, r.South)
	assert.Equal(t, 32.0, r.East)
	assert.Equal(t, 13.0, r.West)
	assert.Equal(t, 2.0, r.Resolution)
}

func TestPadRegionEmpty(t *testing.T) {
	_, err := PadRegion(nil, 1)
	assert.Error(t, err)
}
