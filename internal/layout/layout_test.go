package layout

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pesekon2/sosflow/internal/bucket"
)

var (
	bucketA = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	bucketB = time.Date(2020, 1, 1, 0, 1, 0, 0, time.UTC)
)

func TestPerBucket(t *testing.T) {
	tables := PerBucket("out", "offering", "urn:temp", []bucket.AggregatedValue{
		{Procedure: "s1", BucketStart: bucketA, Value: 6},
		{Procedure: "s2", BucketStart: bucketA, Value: 7},
		{Procedure: "s1", BucketStart: bucketB, Value: 8},
	})
	require.Len(t, tables, 2)

	first := tables[0]
	assert.Equal(t, "out_offering_urn_temp_t20200101T000000", first.Name)
	require.Len(t, first.Columns, 3)
	assert.Equal(t, TypeKey, first.Columns[0].Type)
	require.Len(t, first.Rows, 2)
	assert.Equal(t, Row{1, "s1", 6.0}, first.Rows[0])
	assert.Equal(t, Row{2, "s2", 7.0}, first.Rows[1])

	second := tables[1]
	assert.Equal(t, "out_offering_urn_temp_t20200101T000100", second.Name)
	require.Len(t, second.Rows, 1)
	assert.Equal(t, Row{1, "s1", 8.0}, second.Rows[0])
}

func TestPerBucketEmptyInput(t *testing.T) {
	assert.Empty(t, PerBucket("out", "off", "p", nil))
}

func TestWideByProcedure(t *testing.T) {
	table := WideByProcedure("out_off_temp", []bucket.AggregatedValue{
		{Procedure: "s1", BucketStart: bucketA, Value: 1.5},
		{Procedure: "s1", BucketStart: bucketB, Value: 2.5},
		{Procedure: "s2", BucketStart: bucketB, Value: 9},
	}, []string{"ghost"})

	require.Len(t, table.Columns, 4)
	assert.Equal(t, "cat", table.Columns[0].Name)
	assert.Equal(t, "name", table.Columns[1].Name)
	assert.Equal(t, "t20200101T000000", table.Columns[2].Name)
	assert.Equal(t, "t20200101T000100", table.Columns[3].Name)

	require.Len(t, table.Rows, 3)
	// empty procedure first, all aggregate cells NULL
	assert.Equal(t, Row{1, "ghost", nil, nil}, table.Rows[0])
	assert.Equal(t, Row{2, "s1", 1.5, 2.5}, table.Rows[1])
	assert.Equal(t, Row{3, "s2", nil, 9.0}, table.Rows[2])
}

func TestWideByTimestamp(t *testing.T) {
	table, updates := WideByTimestamp("out_off_s1", 4, "temperature",
		[]string{"temperature", "pressure"}, []bucket.AggregatedValue{
			{Procedure: "s1", BucketStart: bucketA, Value: 6},
		})

	require.Len(t, table.Columns, 4)
	assert.Equal(t, "connection", table.Columns[0].Name)
	assert.Equal(t, "timestamp", table.Columns[1].Name)
	assert.Equal(t, "temperature", table.Columns[2].Name)
	assert.Equal(t, "pressure", table.Columns[3].Name)

	require.Len(t, table.Rows, 1)
	assert.Equal(t, Row{4, "t20200101T000000", 6.0, nil}, table.Rows[0])

	require.Len(t, updates, 1)
	assert.Equal(t, CellUpdate{Column: "temperature", Value: 6, TimestampKey: "t20200101T000000"}, updates[0])
}

func TestWideByTimestampUnlistedProperty(t *testing.T) {
	table, _ := WideByTimestamp("t", 1, "humidity", []string{"temperature"}, nil)
	require.Len(t, table.Columns, 4)
	assert.Equal(t, "humidity", table.Columns[3].Name)
}

func TestOverColumnGuard(t *testing.T) {
	var values []bucket.AggregatedValue
	for i := 0; i < MaxColumns-2; i++ {
		values = append(values, bucket.AggregatedValue{
			Procedure:   "s",
			BucketStart: bucketA.Add(time.Duration(i) * time.Minute),
			Value:       float64(i),
		})
	}
	table := WideByProcedure("wide", values, nil)
	assert.False(t, table.OverColumnGuard(), fmt.Sprintf("%d columns", len(table.Columns)))

	values = append(values, bucket.AggregatedValue{
		Procedure:   "s",
		BucketStart: bucketA.Add(time.Duration(MaxColumns) * time.Minute),
		Value:       1,
	})
	table = WideByProcedure("wide", values, nil)
	assert.True(t, table.OverColumnGuard())
}
