// Package sink adapts the host storage port onto a SQL database.
package sink

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/pesekon2/sosflow/internal/domain"
	"github.com/pesekon2/sosflow/internal/layout"
	"github.com/pesekon2/sosflow/internal/ports"
)

// PostgresStore writes attribute tables and companion point sets through a
// single database handle. Mutations run strictly sequentially; row batches
// are committed per table so intermediate state is flushed before the next
// layer is touched.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// columnType maps host column types onto the backing dialect.
func columnType(t string) string {
	if t == layout.TypeDouble {
		return "DOUBLE PRECISION"
	}
	return t
}

func (s *PostgresStore) CreateTable(name string, cols []layout.Column) error {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = fmt.Sprintf("%s %s", quoteIdent(c.Name), columnType(c.Type))
	}
	query := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(name), strings.Join(defs, ", "))
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create table %s: %w", name, err)
	}
	return nil
}

func (s *PostgresStore) InsertRows(name string, cols []layout.Column, rows []layout.Row) error {
	if len(rows) == 0 {
		return nil
	}

	colNames := make([]string, len(cols))
	for i, c := range cols {
		colNames[i] = quoteIdent(c.Name)
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(quoteIdent(name))
	b.WriteString(" (")
	b.WriteString(strings.Join(colNames, ", "))
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(cols))
	for i, row := range rows {
		if len(row) != len(cols) {
			return fmt.Errorf("insert into %s: row %d has %d values, want %d",
				name, i, len(row), len(cols))
		}
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(")
		for j, v := range row {
			if j > 0 {
				b.WriteString(",")
			}
			fmt.Fprintf(&b, "$%d", len(args)+1)
			args = append(args, v)
		}
		b.WriteString(")")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("insert into %s: begin: %w", name, err)
	}
	if _, err := tx.Exec(b.String(), args...); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert into %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert into %s: commit: %w", name, err)
	}
	return nil
}

func (s *PostgresStore) UpdateCell(table, column string, value float64, timestampKey string) error {
	query := fmt.Sprintf("UPDATE %s SET %s = $1 WHERE %s = $2",
		quoteIdent(table), quoteIdent(column), quoteIdent("timestamp"))
	if _, err := s.db.Exec(query, value, timestampKey); err != nil {
		return fmt.Errorf("update %s.%s: %w", table, column, err)
	}
	return nil
}

func (s *PostgresStore) HasTable(name string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(
		"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)",
		name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", name, err)
	}
	return exists, nil
}

func (s *PostgresStore) HasTimestampRow(table, timestampKey string) (bool, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = $1",
		quoteIdent(table), quoteIdent("timestamp"))
	var count int
	if err := s.db.QueryRow(query, timestampKey).Scan(&count); err != nil {
		return false, fmt.Errorf("check timestamp row in %s: %w", table, err)
	}
	return count > 0, nil
}

func (s *PostgresStore) WritePoint(table string, cat int, p domain.Point) error {
	points := pointTable(table)
	create := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (cat INTEGER, x DOUBLE PRECISION, y DOUBLE PRECISION, z DOUBLE PRECISION)",
		quoteIdent(points))
	if _, err := s.db.Exec(create); err != nil {
		return fmt.Errorf("create point set for %s: %w", table, err)
	}
	insert := fmt.Sprintf("INSERT INTO %s (cat, x, y, z) VALUES ($1,$2,$3,$4)", quoteIdent(points))
	xy := p.XY()
	if _, err := s.db.Exec(insert, cat, xy[0], xy[1], p.Z()); err != nil {
		return fmt.Errorf("write point %d into %s: %w", cat, table, err)
	}
	return nil
}

func (s *PostgresStore) DropTable(name string) error {
	for _, t := range []string{name, pointTable(name)} {
		if _, err := s.db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdent(t))); err != nil {
			return fmt.Errorf("drop table %s: %w", t, err)
		}
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func pointTable(table string) string {
	return table + "_points"
}

// quoteIdent double-quotes an identifier. Names have already passed the
// sanitizer but "timestamp" is a reserved word in most dialects.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, ``) + `"`
}

var _ ports.TableStore = (*PostgresStore)(nil)
