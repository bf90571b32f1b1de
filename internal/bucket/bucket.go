// Package bucket partitions a requested event-time range into fixed-width
// intervals and assigns observations to them.
package bucket

import (
	"fmt"
	"time"

	"github.com/pesekon2/sosflow/internal/domain"
)

// Bucketer partitions [start, end] into contiguous half-open intervals
// [s, s+granularity) keyed by their start instant in epoch seconds. The last
// bucket may be partial.
type Bucketer struct {
	start       int64
	end         int64
	granularity int64
}

// New validates the range and granularity. Granularity is in seconds; 1
// means every observation lands in its own bucket.
func New(start, end time.Time, granularity int64) (*Bucketer, error) {
	if granularity <= 0 {
		return nil, fmt.Errorf("granularity must be positive, got %d", granularity)
	}
	s, e := start.Unix(), end.Unix()
	if e < s {
		return nil, fmt.Errorf("event time range ends before it starts")
	}
	return &Bucketer{start: s, end: e, granularity: granularity}, nil
}

// Count returns the number of buckets covering the range.
func (b *Bucketer) Count() int {
	span := b.end - b.start + 1
	return int((span + b.granularity - 1) / b.granularity)
}

// Starts returns every bucket start in ascending order.
func (b *Bucketer) Starts() []int64 {
	starts := make([]int64, 0, b.Count())
	for s := b.start; s <= b.end; s += b.granularity {
		starts = append(starts, s)
	}
	return starts
}

// Assignment groups raw observed values by bucket start and procedure name.
// Buckets that received no values are absent from the map.
type Assignment struct {
	// Buckets maps bucket start (epoch seconds) to procedure name to the
	// values that fell into the interval, in series iteration order.
	Buckets map[int64]map[string][]float64
	// Dropped counts observations outside the requested range. A server
	// honoring the event-time filter never produces these.
	Dropped int
	// EmptyProcedures lists procedures kept by the import-empty flag;
	// their synthetic series are not assigned to any bucket.
	EmptyProcedures []string
}

// Assign places every timestamped value of every feature into its bucket.
// Assignment uses direct index arithmetic: a timestamp t belongs to the
// bucket with start s such that s <= t < s+granularity.
func (b *Bucketer) Assign(features []domain.Feature) (*Assignment, error) {
	out := &Assignment{Buckets: make(map[int64]map[string][]float64)}
	count := int64(b.Count())

	for _, f := range features {
		if f.Empty {
			out.EmptyProcedures = append(out.EmptyProcedures, f.Name)
			continue
		}
		for key, value := range f.Series {
			ts, err := domain.DecodeKey(key)
			if err != nil {
				return nil, fmt.Errorf("procedure %s: %w", f.Name, err)
			}
			t := ts.Unix()
			if t < b.start {
				out.Dropped++
				continue
			}
			idx := (t - b.start) / b.granularity
			if idx >= count {
				out.Dropped++
				continue
			}
			start := b.start + idx*b.granularity
			procs, ok := out.Buckets[start]
			if !ok {
				procs = make(map[string][]float64)
				out.Buckets[start] = procs
			}
			procs[f.Name] = append(procs[f.Name], value)
		}
	}
	return out, nil
}
