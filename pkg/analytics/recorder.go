package analytics

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"dnsdig/pkg/logging"
)

// recordTimeout bounds the background persistence of one sample.
const recordTimeout = 1 * time.Second

// Recorder appends latency samples and answers stats queries. Recording
// is best-effort and detached from the caller: the UDP response has
// already gone out by the time the sample is persisted.
type Recorder struct {
	store  Store
	logger *logging.Logger
	now    func() time.Time
}

// NewRecorder creates a recorder over the given store.
func NewRecorder(store Store, logger *logging.Logger) *Recorder {
	return &Recorder{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Record persists one sample asynchronously. Failures are logged, never
// surfaced to the query path.
func (r *Recorder) Record(name string, recordType uint16, resolveMs float64, ttl uint32) {
	sample := Sample{
		Name:        name,
		RecordType:  recordType,
		ResolveTime: resolveMs,
		TTL:         ttl,
		CreatedAt:   r.now(),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()

		if err := r.store.Insert(ctx, sample); err != nil {
			r.logger.Warn("Failed to persist latency sample", "name", name, "error", err)
		}
	}()
}

// Statistics computes windowed stats ending now. Returns nil when the
// window holds no samples.
func (r *Recorder) Statistics(ctx context.Context, tf Timeframe) (*Results, error) {
	upper := r.now()
	lower := upper.Add(-tf.Duration())

	values, err := r.store.Window(ctx, lower, upper)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, nil
	}

	return computeResults(values), nil
}

// computeResults reduces a non-empty sample set. Percentiles use the
// nearest-rank method, which keeps min <= p75 <= p99 <= max by
// construction.
func computeResults(values []float64) *Results {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}

	n := len(sorted)
	median := sorted[n/2]
	if n%2 == 0 {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}

	return &Results{
		Average:     sum / float64(n),
		Median:      median,
		Minimum:     sorted[0],
		Maximum:     sorted[n-1],
		Percentiles: []float64{percentile(sorted, 0.75), percentile(sorted, 0.99)},
	}
}

// percentile returns the nearest-rank percentile of a sorted slice.
func percentile(sorted []float64, p float64) float64 {
	rank := int(math.Ceil(p*float64(len(sorted)))) - 1
	if rank < 0 {
		rank = 0
	}
	return sorted[rank]
}

// ReportLoop emits a stats table for the rolling 60-minute window every
// interval until the context is cancelled. The output is advisory.
func (r *Recorder) ReportLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			stats, err := r.Statistics(ctx, Minutes60)
			if err != nil {
				r.logger.Warn("Failed to compute stats", "error", err)
				continue
			}
			if stats != nil {
				renderStatsTable(stats, Minutes60)
			}
		case <-ctx.Done():
			return
		}
	}
}

func renderStatsTable(stats *Results, tf Timeframe) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintf(w, "\nAverage\tMedian\tMinimum\tMaximum\t75%%\t99%%\t\n")
	fmt.Fprintf(w, "%.2f ms\t%.2f ms\t%.2f ms\t%.2f ms\t%.2f ms\t%.2f ms\t\n",
		stats.Average, stats.Median, stats.Minimum, stats.Maximum,
		stats.Percentiles[0], stats.Percentiles[1])
	fmt.Fprintf(w, "Last %d minutes\n\n", tf)
	w.Flush()
}
