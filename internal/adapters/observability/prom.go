package observability

import (
	"fmt"
	"log"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pesekon2/sosflow/internal/ports"
)

type PromObs struct {
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

func NewPromObs() *PromObs {
	parsed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sos_observations_parsed_total",
		Help: "Observations decoded from service responses.",
	})
	features := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sos_features_emitted_total",
		Help: "Procedures emitted by the parsers.",
	})
	empty := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sos_empty_procedures_total",
		Help: "Procedures that reported no observations.",
	})
	dropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sos_out_of_range_dropped_total",
		Help: "Observations outside the requested event time.",
	})
	rows := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sos_rows_written_total",
		Help: "Rows written to the host store.",
	})
	requests := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sos_requests_total",
		Help: "HTTP requests issued to the service.",
	})
	buckets := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sos_bucket_count",
		Help: "Aggregation buckets in the current run.",
	})
	columns := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sos_column_count",
		Help: "Columns in the widest table of the current run.",
	})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sos_request_seconds",
		Help:    "Service request round-trip time.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	})

	prometheus.MustRegister(parsed, features, empty, dropped, rows, requests,
		buckets, columns, latency)

	return &PromObs{
		counters: map[string]prometheus.Counter{
			"sos_observations_parsed_total":  parsed,
			"sos_features_emitted_total":     features,
			"sos_empty_procedures_total":     empty,
			"sos_out_of_range_dropped_total": dropped,
			"sos_rows_written_total":         rows,
			"sos_requests_total":             requests,
		},
		gauges: map[string]prometheus.Gauge{
			"sos_bucket_count": buckets,
			"sos_column_count": columns,
		},
		histos: map[string]prometheus.Observer{
			"sos_request_seconds": latency,
		},
	}
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	log.Printf("INFO: %s%s", msg, formatFields(fields))
}

func (p *PromObs) LogWarn(msg string, fields ...ports.Field) {
	log.Printf("WARN: %s%s", msg, formatFields(fields))
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	if err != nil {
		log.Printf("ERROR: %s: %v%s", msg, err, formatFields(fields))
		return
	}
	log.Printf("ERROR: %s%s", msg, formatFields(fields))
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func formatFields(fields []ports.Field) string {
	if len(fields) == 0 {
		return ""
	}
	var b strings.Builder
	for _, f := range fields {
		fmt.Fprintf(&b, " %s=%v", f.Key, f.Value)
	}
	return b.String()
}

var _ ports.Observability = (*PromObs)(nil)
