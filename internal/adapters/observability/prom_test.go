package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPromObsMetrics(t *testing.T) {
	origReg := prometheus.DefaultRegisterer
	origGatherer := prometheus.DefaultGatherer
	t.Cleanup(func() {
		prometheus.DefaultRegisterer = origReg
		prometheus.DefaultGatherer = origGatherer
	})

	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg

	obs := NewPromObs()

	obs.IncCounter("sos_observations_parsed_total", 12)
	if got := testutil.ToFloat64(obs.counters["sos_observations_parsed_total"]); got != 12 {
		t.Fatalf("expected parsed counter 12, got %f", got)
	}

	obs.IncCounter("sos_out_of_range_dropped_total", 3)
	if got := testutil.ToFloat64(obs.counters["sos_out_of_range_dropped_total"]); got != 3 {
		t.Fatalf("expected drop counter 3, got %f", got)
	}

	obs.SetGauge("sos_bucket_count", 7)
	if got := testutil.ToFloat64(obs.gauges["sos_bucket_count"]); got != 7 {
		t.Fatalf("expected bucket gauge 7, got %f", got)
	}

	obs.ObserveLatency("sos_request_seconds", 0.25)
	hCollector := obs.histos["sos_request_seconds"].(prometheus.Collector)
	if samples := testutil.CollectAndCount(hCollector); samples != 1 {
		t.Fatalf("expected latency histogram to record 1 sample, got %d", samples)
	}

	// unknown names are ignored, not registered lazily
	obs.IncCounter("sos_unknown_total", 1)
	obs.SetGauge("sos_unknown", 1)
	obs.ObserveLatency("sos_unknown_seconds", 1)
}
