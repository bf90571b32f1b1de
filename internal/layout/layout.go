// Package layout translates aggregated observation values into the table
// shapes the host store accepts.
package layout

import (
	"github.com/pesekon2/sosflow/internal/bucket"
	"github.com/pesekon2/sosflow/internal/domain"
)

// Column types understood by the host store.
const (
	TypeKey     = "INTEGER PRIMARY KEY"
	TypeInteger = "INTEGER"
	TypeVarchar = "VARCHAR"
	TypeDouble  = "DOUBLE"
)

// MaxColumns is the recommended upper bound on generated columns. Crossing
// it is reported, not enforced; the backing store may still accept the
// write.
const MaxColumns = 2000

// Column is one named, typed attribute column.
type Column struct {
	Name string
	Type string
}

// Row holds one value per column; nil means NULL.
type Row []any

// Table is a named schema plus its rows, ready for the store.
type Table struct {
	Name    string
	Columns []Column
	Rows    []Row
}

// OverColumnGuard reports whether the table crossed the recommended column
// limit. Callers warn the operator and proceed.
func (t *Table) OverColumnGuard() bool {
	return len(t.Columns) > MaxColumns
}

// CellUpdate is a column-wise write against an existing wide-per-timestamp
// table: set column Column to Value on the row whose timestamp key matches.
type CellUpdate struct {
	Column       string
	Value        float64
	TimestampKey string
}

// PerBucket lays out one table per non-empty bucket, a row per procedure:
// (cat, name, value). Used by the raster and temporal map paths, where every
// bucket becomes its own map.
func PerBucket(output, offering, property string, values []bucket.AggregatedValue) []Table {
	cols := []Column{
		{Name: "cat", Type: TypeKey},
		{Name: "name", Type: TypeVarchar},
		{Name: "value", Type: TypeDouble},
	}

	var tables []Table
	index := make(map[string]int)
	for _, v := range values {
		key := domain.EncodeKey(v.BucketStart)
		i, ok := index[key]
		if !ok {
			i = len(tables)
			index[key] = i
			tables = append(tables, Table{
				Name:    domain.Sanitize(output, offering, property, key),
				Columns: cols,
			})
		}
		cat := len(tables[i].Rows) + 1
		tables[i].Rows = append(tables[i].Rows, Row{cat, v.Procedure, v.Value})
	}
	return tables
}

// WideByProcedure lays out one table per (offering, observed property): a
// row per procedure, a DOUBLE column per distinct bucket timestamp. When
// import-empty was requested, procedures without observations get a row with
// every aggregate column NULL.
func WideByProcedure(name string, values []bucket.AggregatedValue, emptyProcedures []string) Table {
	cols := []Column{
		{Name: "cat", Type: TypeKey},
		{Name: "name", Type: TypeVarchar},
	}
	colIndex := make(map[string]int)
	for _, v := range values {
		key := domain.EncodeKey(v.BucketStart)
		if _, ok := colIndex[key]; !ok {
			colIndex[key] = len(cols)
			cols = append(cols, Column{Name: key, Type: TypeDouble})
		}
	}

	rows := make([]Row, 0, len(emptyProcedures))
	rowIndex := make(map[string]int)
	nextCat := 1

	rowFor := func(proc string) int {
		i, ok := rowIndex[proc]
		if !ok {
			row := make(Row, len(cols))
			row[0] = nextCat
			row[1] = proc
			nextCat++
			i = len(rows)
			rowIndex[proc] = i
			rows = append(rows, row)
		}
		return i
	}

	for _, proc := range emptyProcedures {
		rowFor(proc)
	}
	for _, v := range values {
		i := rowFor(v.Procedure)
		rows[i][colIndex[domain.EncodeKey(v.BucketStart)]] = v.Value
	}

	return Table{Name: name, Columns: cols, Rows: rows}
}

// WideByTimestamp lays out one table per procedure: a row per bucket
// timestamp, a DOUBLE column per jointly requested observed property. The
// fresh table carries only the property being written; Updates carries the
// same cells as column-wise writes for when the table already exists from an
// earlier property pass.
func WideByTimestamp(name string, cat int, property string, allProperties []string, values []bucket.AggregatedValue) (Table, []CellUpdate) {
	cols := []Column{
		{Name: "connection", Type: TypeInteger},
		{Name: "timestamp", Type: TypeVarchar},
	}
	propIndex := -1
	for _, p := range allProperties {
		col := domain.Sanitize(p)
		if col == domain.Sanitize(property) {
			propIndex = len(cols)
		}
		cols = append(cols, Column{Name: col, Type: TypeDouble})
	}
	if propIndex < 0 {
		// property not among the requested set; write it anyway as its
		// own column
		propIndex = len(cols)
		cols = append(cols, Column{Name: domain.Sanitize(property), Type: TypeDouble})
	}

	t := Table{Name: name, Columns: cols}
	updates := make([]CellUpdate, 0, len(values))
	for _, v := range values {
		key := domain.EncodeKey(v.BucketStart)
		row := make(Row, len(cols))
		row[0] = cat
		row[1] = key
		row[propIndex] = v.Value
		t.Rows = append(t.Rows, row)
		updates = append(updates, CellUpdate{
			Column:       cols[propIndex].Name,
			Value:        v.Value,
			TimestampKey: key,
		})
	}
	return t, updates
}
