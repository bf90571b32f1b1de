package sosflow

import (
	base "github.com/pesekon2/sosflow/pkg/sosflow"
)

// Re-exported errors for convenience.
var (
	ErrMalformedResponse = base.ErrMalformedResponse
	ErrCRSMismatch       = base.ErrCRSMismatch
	ErrMissingData       = base.ErrMissingData
	ErrUnsupportedMethod = base.ErrUnsupportedMethod
	ErrUnprojectedTarget = base.ErrUnprojectedTarget
)

// Type aliases so consumers can import github.com/pesekon2/sosflow directly.
type (
	Config        = base.Config
	Runtime       = base.Runtime
	Option        = base.Option
	Client        = base.Client
	TableStore    = base.TableStore
	TemporalStore = base.TemporalStore
	Rasterizer    = base.Rasterizer
	Observability = base.Observability
	DescribeStyle = base.DescribeStyle
	PayloadFormat = base.PayloadFormat
)

const (
	DescribePlain = base.DescribePlain
	DescribeShell = base.DescribeShell
	FormatXML     = base.FormatXML
	FormatJSON    = base.FormatJSON
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

// Runtime helpers.
func NewRuntime(cfg *Config, opts ...Option) (*Runtime, error) {
	return base.NewRuntime(cfg, opts...)
}

// Dependency overrides.
func WithClient(c Client) Option {
	return base.WithClient(c)
}

func WithStore(s TableStore) Option {
	return base.WithStore(s)
}

func WithTemporalStore(t TemporalStore) Option {
	return base.WithTemporalStore(t)
}

func WithRasterizer(r Rasterizer) Option {
	return base.WithRasterizer(r)
}

func WithObservability(o Observability) Option {
	return base.WithObservability(o)
}

// Convert renders a raw observation payload as GeoJSON.
func Convert(payload []byte, format PayloadFormat, observedProperty string, importEmpty bool) ([]byte, error) {
	return base.Convert(payload, format, observedProperty, importEmpty)
}
