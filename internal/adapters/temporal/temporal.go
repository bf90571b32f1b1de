// Package temporal maintains the space-time dataset registry: named
// datasets plus the maps registered into them with their valid-time start.
package temporal

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/pesekon2/sosflow/internal/domain"
	"github.com/pesekon2/sosflow/internal/ports"
)

// PostgresRegistry keeps the registry in two tables beside the imported
// data. Registration is idempotent on the dataset side: creating a
// dataset that already exists is not an error.
type PostgresRegistry struct {
	db        *sql.DB
	schema    sync.Once
	schemaErr error
}

func NewPostgresRegistry(db *sql.DB) *PostgresRegistry {
	return &PostgresRegistry{db: db}
}

// ensureSchema creates the registry tables when missing. It runs lazily
// on the first write so constructing the registry never touches the
// database.
func (r *PostgresRegistry) ensureSchema() error {
	r.schema.Do(func() {
		r.schemaErr = r.createSchema()
	})
	return r.schemaErr
}

func (r *PostgresRegistry) createSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS temporal_datasets (name VARCHAR PRIMARY KEY, title VARCHAR, description VARCHAR, kind VARCHAR)`,
		`CREATE TABLE IF NOT EXISTS temporal_maps (dataset VARCHAR, map VARCHAR, start_time VARCHAR)`,
	}
	for _, q := range stmts {
		if _, err := r.db.Exec(q); err != nil {
			return fmt.Errorf("temporal schema: %w", err)
		}
	}
	return nil
}

func (r *PostgresRegistry) CreateDataset(name, title, description string, kind ports.DatasetType) error {
	if err := r.ensureSchema(); err != nil {
		return err
	}
	query := `INSERT INTO temporal_datasets (name, title, description, kind) VALUES ($1,$2,$3,$4) ON CONFLICT (name) DO NOTHING`
	if _, err := r.db.Exec(query, name, title, description, string(kind)); err != nil {
		return fmt.Errorf("create dataset %s: %w", name, err)
	}
	return nil
}

func (r *PostgresRegistry) Register(dataset, mapName string, start time.Time) error {
	if err := r.ensureSchema(); err != nil {
		return err
	}
	query := `INSERT INTO temporal_maps (dataset, map, start_time) VALUES ($1,$2,$3)`
	if _, err := r.db.Exec(query, dataset, mapName, domain.RegisterStamp(start)); err != nil {
		return fmt.Errorf("register %s into %s: %w", mapName, dataset, err)
	}
	return nil
}

var _ ports.TemporalStore = (*PostgresRegistry)(nil)
