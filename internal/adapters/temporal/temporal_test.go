package temporal

import (
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/pesekon2/sosflow/internal/ports"
)

func TestSchemaCreatedLazilyOnce(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	// Constructing the registry issues no statements; the schema runs
	// before the first write and is not repeated on the second.
	reg := NewPostgresRegistry(db)

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS temporal_datasets`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS temporal_maps`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO temporal_datasets`)).
		WithArgs("d1", "d1", "SOS import", "stvds").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO temporal_datasets`)).
		WithArgs("d2", "d2", "SOS import", "stvds").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := reg.CreateDataset("d1", "d1", "SOS import", ports.DatasetVector); err != nil {
		t.Fatalf("create dataset: %v", err)
	}
	if err := reg.CreateDataset("d2", "d2", "SOS import", ports.DatasetVector); err != nil {
		t.Fatalf("create dataset: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateDatasetAndRegister(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	reg := NewPostgresRegistry(db)
	reg.schema.Do(func() {})

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO temporal_datasets (name, title, description, kind) VALUES ($1,$2,$3,$4) ON CONFLICT (name) DO NOTHING`)).
		WithArgs("out_off_temperature", "out_off_temperature", "SOS import", "strds").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := reg.CreateDataset("out_off_temperature", "out_off_temperature", "SOS import", ports.DatasetRaster); err != nil {
		t.Fatalf("create dataset: %v", err)
	}

	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO temporal_maps (dataset, map, start_time) VALUES ($1,$2,$3)`)).
		WithArgs("out_off_temperature", "out_off_t20200101T000000", "2020-01-01 00:00").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := reg.Register("out_off_temperature", "out_off_t20200101T000000", start); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
