// Package sosflow is the embedding surface: it wires the default adapters
// around the import pipelines and exposes lifecycle hooks for use inside
// any Go service.
package sosflow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pesekon2/sosflow/internal/adapters/observability"
	"github.com/pesekon2/sosflow/internal/adapters/rasterize"
	"github.com/pesekon2/sosflow/internal/adapters/sink"
	"github.com/pesekon2/sosflow/internal/adapters/sos"
	"github.com/pesekon2/sosflow/internal/adapters/temporal"
	"github.com/pesekon2/sosflow/internal/app/config"
	"github.com/pesekon2/sosflow/internal/app/geojson"
	"github.com/pesekon2/sosflow/internal/app/pipeline"
	"github.com/pesekon2/sosflow/internal/domain"
	"github.com/pesekon2/sosflow/internal/parse"
	"github.com/pesekon2/sosflow/internal/ports"
)

// Fatal error categories. Wrapped causes carry the detail.
var (
	ErrMalformedResponse = domain.ErrMalformedResponse
	ErrCRSMismatch       = domain.ErrCRSMismatch
	ErrMissingData       = domain.ErrMissingData
	ErrUnsupportedMethod = domain.ErrUnsupportedMethod
	ErrUnprojectedTarget = domain.ErrUnprojectedTarget
)

// Aliases so consumers can import this package alone.
type (
	Config        = config.Config
	Client        = ports.Client
	TableStore    = ports.TableStore
	TemporalStore = ports.TemporalStore
	Rasterizer    = ports.Rasterizer
	Observability = ports.Observability
	DescribeStyle = pipeline.DescribeStyle
	PayloadFormat = geojson.Format
)

const (
	DescribePlain = pipeline.DescribePlain
	DescribeShell = pipeline.DescribeShell
	FormatXML     = geojson.FormatXML
	FormatJSON    = geojson.FormatJSON
)

// LoadConfig reads, defaults and validates a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// Option overrides one default collaborator.
type Option func(*overrides)

type overrides struct {
	client        ports.Client
	store         ports.TableStore
	temporal      ports.TemporalStore
	rasterizer    ports.Rasterizer
	observability ports.Observability
}

// WithClient injects a custom service client (recorded responses, another
// protocol version, a different transport).
func WithClient(c Client) Option {
	return func(o *overrides) { o.client = c }
}

// WithStore injects a custom table store so imports can target any
// database or API.
func WithStore(s TableStore) Option {
	return func(o *overrides) { o.store = s }
}

// WithTemporalStore injects a custom space-time dataset registry.
func WithTemporalStore(t TemporalStore) Option {
	return func(o *overrides) { o.temporal = t }
}

// WithRasterizer injects a custom point-to-grid collaborator.
func WithRasterizer(r Rasterizer) Option {
	return func(o *overrides) { o.rasterizer = r }
}

// WithObservability plugs in a custom metrics and logging backend.
func WithObservability(obs Observability) Option {
	return func(o *overrides) { o.observability = obs }
}

// Runtime owns one invocation's collaborators and its metrics endpoint.
type Runtime struct {
	cfg        *config.Config
	pipe       *pipeline.Pipeline
	obs        ports.Observability
	db         *sql.DB
	metricsSrv *http.Server
}

// NewRuntime bootstraps the default adapters (HTTP SOS client, Postgres
// table store and temporal registry, XYZ stream rasterizer, Prometheus
// observability). Options override any of them.
func NewRuntime(cfg *Config, opts ...Option) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var ov overrides
	for _, opt := range opts {
		if opt != nil {
			opt(&ov)
		}
	}

	obs := ov.observability
	if obs == nil {
		obs = observability.NewPromObs()
	}

	client := ov.client
	if client == nil {
		var err error
		client, err = sos.NewClient(cfg.Service, obs)
		if err != nil {
			return nil, err
		}
	}

	// Storage wiring is optional: read-only commands (describe, convert)
	// run without a database, and the import flows fail with a clear
	// error when no store is wired. The registry creates its schema on
	// first write, so nothing here touches the database.
	var db *sql.DB
	store := ov.store
	temporalStore := ov.temporal
	if (store == nil || temporalStore == nil) && cfg.Storage.ConnString != "" {
		var err error
		db, err = sql.Open("postgres", cfg.Storage.ConnString)
		if err != nil {
			return nil, err
		}
		if store == nil {
			store = sink.NewPostgresStore(db)
		}
		if temporalStore == nil {
			temporalStore = temporal.NewPostgresRegistry(db)
		}
	}

	rast := ov.rasterizer
	if rast == nil {
		var err error
		rast, err = rasterize.NewXYZStreamer(cfg.Raster.Workdir)
		if err != nil {
			return nil, err
		}
	}

	pipe, err := pipeline.New(cfg, pipeline.Deps{
		Client:     client,
		Store:      store,
		Temporal:   temporalStore,
		Rasterizer: rast,
		Obs:        obs,
	})
	if err != nil {
		return nil, err
	}

	return &Runtime{cfg: cfg, pipe: pipe, obs: obs, db: db}, nil
}

// RunVector imports the configured offerings as vector attribute tables.
func (r *Runtime) RunVector(ctx context.Context) error {
	return r.pipe.RunVector(ctx)
}

// RunRaster imports the configured offerings as per-bucket raster maps.
func (r *Runtime) RunRaster(ctx context.Context) error {
	return r.pipe.RunRaster(ctx)
}

// RunTemporalVector imports per-bucket vector tables registered into
// space-time datasets.
func (r *Runtime) RunTemporalVector(ctx context.Context) error {
	return r.pipe.RunTemporalVector(ctx)
}

// RunTemporalRaster imports per-bucket raster maps registered into
// space-time datasets.
func (r *Runtime) RunTemporalRaster(ctx context.Context) error {
	return r.pipe.RunTemporalRaster(ctx)
}

// Describe renders the service description.
func (r *Runtime) Describe(ctx context.Context, style DescribeStyle) (string, error) {
	return r.pipe.Describe(ctx, style)
}

// ImportSensorInfo writes the per-procedure metadata table for one offering.
func (r *Runtime) ImportSensorInfo(ctx context.Context, offering string) error {
	return r.pipe.ImportSensorInfo(ctx, offering)
}

// Convert renders a raw observation payload as GeoJSON.
func Convert(payload []byte, format PayloadFormat, observedProperty string, importEmpty bool) ([]byte, error) {
	return geojson.Convert(payload, format, parse.Options{
		ObservedProperty: observedProperty,
		ImportEmpty:      importEmpty,
	})
}

// StartMetrics serves /metrics and /healthz on the configured address.
func (r *Runtime) StartMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.metricsSrv = &http.Server{Addr: r.cfg.Metrics.Addr, Handler: mux}

	go func() {
		if err := r.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics server exited: %v", err)
		}
	}()
}

// Shutdown stops the metrics endpoint and closes the database handle.
func (r *Runtime) Shutdown(ctx context.Context) error {
	var errs []error

	if r.metricsSrv != nil {
		if err := r.metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}
	if r.db != nil {
		if err := r.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
