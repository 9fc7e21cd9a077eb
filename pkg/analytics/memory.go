package analytics

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Store for tests and dev runs without a
// document database.
type Memory struct {
	mu      sync.Mutex
	samples []Sample
}

// NewMemory returns an empty in-process store.
func NewMemory() *Memory {
	return &Memory{}
}

var _ Store = (*Memory)(nil)

// Insert implements the Store interface.
func (m *Memory) Insert(ctx context.Context, s Sample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples = append(m.samples, s)
	return nil
}

// Window implements the Store interface.
func (m *Memory) Window(ctx context.Context, from, to time.Time) ([]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var values []float64
	for _, s := range m.samples {
		if !s.CreatedAt.Before(from) && !s.CreatedAt.After(to) {
			values = append(values, s.ResolveTime)
		}
	}
	return values, nil
}

// Len reports the number of stored samples.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.samples)
}
