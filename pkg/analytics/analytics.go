// Package analytics records per-query latency samples and computes
// rolling windowed statistics over them.
package analytics

import (
	"context"
	"time"
)

// Sample is one append-only latency measurement. Samples are never
// mutated after insertion.
type Sample struct {
	Name        string    `bson:"name"`
	RecordType  uint16    `bson:"record_type"`
	ResolveTime float64   `bson:"resolve_time"`
	TTL         uint32    `bson:"ttl"`
	CreatedAt   time.Time `bson:"created_at"`
}

// Store is the persistence contract: append samples, read back the
// resolve times of a window. Write-many, read-rare.
type Store interface {
	Insert(ctx context.Context, s Sample) error
	Window(ctx context.Context, from, to time.Time) ([]float64, error)
}

// Timeframe is a stats window length in minutes.
type Timeframe int

// Supported stats windows.
const (
	Minutes15 Timeframe = 15
	Minutes30 Timeframe = 30
	Minutes60 Timeframe = 60
	Minutes90 Timeframe = 90
	Hour6     Timeframe = 6 * 60
	Hour12    Timeframe = 12 * 60
	Day1      Timeframe = 24 * 60
	Day3      Timeframe = 3 * 24 * 60
	Week1     Timeframe = 7 * 24 * 60
	Month1    Timeframe = 30 * 24 * 60
)

// Duration returns the window length.
func (t Timeframe) Duration() time.Duration {
	return time.Duration(t) * time.Minute
}

// Results holds windowed latency statistics in milliseconds.
// Percentiles carries p75 and p99, in that order.
type Results struct {
	Average     float64   `json:"average"`
	Median      float64   `json:"median"`
	Minimum     float64   `json:"minimum"`
	Maximum     float64   `json:"maximum"`
	Percentiles []float64 `json:"percentiles"`
}
