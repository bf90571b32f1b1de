package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pesekon2/sosflow/internal/adapters/sos"
	"github.com/pesekon2/sosflow/internal/bucket"
	"github.com/pesekon2/sosflow/internal/domain"
	"github.com/pesekon2/sosflow/internal/ports"
	"github.com/pesekon2/sosflow/internal/reproject"
)

type Config struct {
	Service    sos.Config      `yaml:"service"`
	Request    RequestConfig   `yaml:"request"`
	Aggregate  AggregateConfig `yaml:"aggregate"`
	Output     OutputConfig    `yaml:"output"`
	Raster     RasterConfig    `yaml:"raster"`
	Storage    StorageConfig   `yaml:"storage"`
	Metrics    MetricsConfig   `yaml:"metrics"`
	TargetEPSG int             `yaml:"target_epsg"`
}

// RequestConfig selects the data to fetch. Observed properties, event time
// and the procedure filter may be left empty and are then filled from the
// service capabilities before the pipeline runs.
type RequestConfig struct {
	Offerings          []string `yaml:"offerings"`
	ObservedProperties []string `yaml:"observed_properties"`
	Procedure          string   `yaml:"procedure"`
	// EventTime is ISO_START/ISO_END.
	EventTime string `yaml:"event_time"`
	// ResponseFormat is xml or json.
	ResponseFormat string `yaml:"response_format"`
}

type AggregateConfig struct {
	Method string `yaml:"method"`
	// Granularity is a positive count of Units.
	Granularity int    `yaml:"granularity"`
	Units       string `yaml:"granularity_units"`
}

type OutputConfig struct {
	Name string `yaml:"name"`
	// WideLayout selects one table per offering/property with a column
	// per timestamp instead of one table per bucket.
	WideLayout  bool `yaml:"wide_layout"`
	ImportEmpty bool `yaml:"import_empty"`
	// SensorInfo also imports per-procedure metadata via DescribeSensor.
	SensorInfo        bool `yaml:"sensor_info"`
	KeepIntermediates bool `yaml:"keep_intermediates"`
}

type RasterConfig struct {
	Resolution float64 `yaml:"resolution"`
	// BBox is west,south,east,north in the target CRS. When empty the
	// region is padded from the reprojected sensor positions.
	BBox    string `yaml:"bbox"`
	Workdir string `yaml:"workdir"`
}

type StorageConfig struct {
	ConnString string `yaml:"conn_string"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// secondsPerUnit follows the fixed-width convention of the importers: a
// month is 30 days and a year is the mean tropical year.
var secondsPerUnit = map[string]int64{
	"seconds": 1,
	"minutes": 60,
	"hours":   3600,
	"days":    86400,
	"months":  2_592_000,
	"years":   31_556_926,
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Service.Version == "" {
		c.Service.Version = "1.0.0"
	}
	if c.Service.Timeout == 0 {
		c.Service.Timeout = 30 * time.Second
	}
	if c.Request.ResponseFormat == "" {
		c.Request.ResponseFormat = "xml"
	}
	if c.Aggregate.Method == "" {
		c.Aggregate.Method = string(bucket.MethodAverage)
	}
	if c.Aggregate.Granularity == 0 {
		c.Aggregate.Granularity = 1
	}
	if c.Aggregate.Units == "" {
		c.Aggregate.Units = "seconds"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
	if c.Raster.Workdir == "" {
		c.Raster.Workdir = "./data/xyz"
	}
	if c.TargetEPSG == 0 {
		c.TargetEPSG = reproject.EPSGWebMercator
	}
}

func (c *Config) validate() error {
	if c.Service.URL == "" {
		return fmt.Errorf("service.url is required")
	}
	if len(c.Request.Offerings) == 0 {
		return fmt.Errorf("request.offerings is required")
	}
	if c.Output.Name == "" {
		return fmt.Errorf("output.name is required")
	}
	switch c.Request.ResponseFormat {
	case "xml", "json":
	default:
		return fmt.Errorf("request.response_format must be xml or json, got %q",
			c.Request.ResponseFormat)
	}
	if _, err := bucket.ParseMethod(c.Aggregate.Method); err != nil {
		return fmt.Errorf("aggregate config: %w", err)
	}
	if _, err := c.SecondsGranularity(); err != nil {
		return fmt.Errorf("aggregate config: %w", err)
	}
	if c.Request.EventTime != "" {
		if _, _, err := domain.ParseEventTime(c.Request.EventTime); err != nil {
			return fmt.Errorf("request config: %w", err)
		}
	}
	if _, err := reproject.New(c.TargetEPSG); err != nil {
		return err
	}
	if c.Raster.BBox != "" {
		if _, err := c.Region(); err != nil {
			return err
		}
	}
	return nil
}

// SecondsGranularity resolves the granularity value and unit into a bucket
// width in seconds.
func (c *Config) SecondsGranularity() (int64, error) {
	mult, ok := secondsPerUnit[c.Aggregate.Units]
	if !ok {
		return 0, fmt.Errorf("unknown granularity unit %q", c.Aggregate.Units)
	}
	if c.Aggregate.Granularity <= 0 {
		return 0, fmt.Errorf("granularity must be positive, got %d", c.Aggregate.Granularity)
	}
	return int64(c.Aggregate.Granularity) * mult, nil
}

// Region parses the configured bounding box into a raster region carrying
// the configured resolution.
func (c *Config) Region() (ports.Region, error) {
	parts := strings.Split(c.Raster.BBox, ",")
	if len(parts) != 4 {
		return ports.Region{}, fmt.Errorf("raster.bbox must be west,south,east,north, got %q",
			c.Raster.BBox)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return ports.Region{}, fmt.Errorf("raster.bbox: %w", err)
		}
		vals[i] = v
	}
	r := ports.Region{
		West: vals[0], South: vals[1], East: vals[2], North: vals[3],
		Resolution: c.Raster.Resolution,
	}
	if r.West >= r.East || r.South >= r.North {
		return ports.Region{}, fmt.Errorf("raster.bbox is degenerate: %q", c.Raster.BBox)
	}
	return r, nil
}
