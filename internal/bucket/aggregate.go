package bucket

import (
	"fmt"
	"sort"
	"time"

	"github.com/pesekon2/sosflow/internal/domain"
)

// Method selects how a bucket's value list collapses to one scalar.
type Method string

const (
	// MethodAverage divides the sum by the count.
	MethodAverage Method = "average"
	// MethodSum accumulates.
	MethodSum Method = "sum"
)

// ParseMethod validates an aggregation method name. Unsupported methods are
// a configuration error, rejected before any request is made.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodAverage, MethodSum:
		return Method(s), nil
	}
	return "", fmt.Errorf("%w: %q (want average or sum)", domain.ErrUnsupportedMethod, s)
}

// Apply reduces a non-empty value list.
func (m Method) Apply(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	if m == MethodAverage {
		return total / float64(len(values))
	}
	return total
}

// AggregatedValue is one procedure's scalar for one bucket.
type AggregatedValue struct {
	Procedure   string
	BucketStart time.Time
	Value       float64
}

// Aggregate reduces every (bucket, procedure) value list of an assignment.
// Output is ordered by bucket start, then procedure name, so downstream
// table writes are deterministic. Empty buckets produce nothing.
func Aggregate(a *Assignment, m Method) []AggregatedValue {
	starts := make([]int64, 0, len(a.Buckets))
	for s := range a.Buckets {
		starts = append(starts, s)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i] < starts[j] })

	var out []AggregatedValue
	for _, s := range starts {
		procs := a.Buckets[s]
		names := make([]string, 0, len(procs))
		for name := range procs {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			out = append(out, AggregatedValue{
				Procedure:   name,
				BucketStart: time.Unix(s, 0).UTC(),
				Value:       m.Apply(procs[name]),
			})
		}
	}
	return out
}
