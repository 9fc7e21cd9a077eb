package analytics

import (
	"context"
	"testing"
	"time"

	"dnsdig/pkg/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatistics(t *testing.T) {
	store := NewMemory()
	r := NewRecorder(store, logging.NewDefault())

	now := time.Now().UTC()
	for _, ms := range []float64{10, 20, 30, 40, 50} {
		require.NoError(t, store.Insert(context.Background(), Sample{
			Name:        "example.com.",
			RecordType:  1,
			ResolveTime: ms,
			TTL:         60,
			CreatedAt:   now,
		}))
	}

	stats, err := r.Statistics(context.Background(), Minutes60)
	require.NoError(t, err)
	require.NotNil(t, stats)

	assert.Equal(t, 10.0, stats.Minimum)
	assert.Equal(t, 50.0, stats.Maximum)
	assert.Equal(t, 30.0, stats.Average)
	assert.Equal(t, 30.0, stats.Median)
	require.Len(t, stats.Percentiles, 2)
	assert.Equal(t, 40.0, stats.Percentiles[0])
	assert.Equal(t, 50.0, stats.Percentiles[1])
}

func TestStatisticsEmptyWindow(t *testing.T) {
	r := NewRecorder(NewMemory(), logging.NewDefault())

	stats, err := r.Statistics(context.Background(), Minutes60)
	require.NoError(t, err)
	assert.Nil(t, stats)
}

func TestStatisticsExcludesOldSamples(t *testing.T) {
	store := NewMemory()
	r := NewRecorder(store, logging.NewDefault())

	now := time.Now().UTC()
	require.NoError(t, store.Insert(context.Background(), Sample{
		ResolveTime: 500,
		CreatedAt:   now.Add(-2 * time.Hour),
	}))
	require.NoError(t, store.Insert(context.Background(), Sample{
		ResolveTime: 10,
		CreatedAt:   now,
	}))

	stats, err := r.Statistics(context.Background(), Minutes60)
	require.NoError(t, err)
	require.NotNil(t, stats)
	assert.Equal(t, 10.0, stats.Maximum)
}

func TestStatisticsOrdering(t *testing.T) {
	store := NewMemory()
	r := NewRecorder(store, logging.NewDefault())

	now := time.Now().UTC()
	for _, ms := range []float64{7.5, 120, 3, 88, 42, 42, 19} {
		require.NoError(t, store.Insert(context.Background(), Sample{ResolveTime: ms, CreatedAt: now}))
	}

	stats, err := r.Statistics(context.Background(), Minutes60)
	require.NoError(t, err)
	require.NotNil(t, stats)

	assert.LessOrEqual(t, stats.Minimum, stats.Percentiles[0])
	assert.LessOrEqual(t, stats.Percentiles[0], stats.Percentiles[1])
	assert.LessOrEqual(t, stats.Percentiles[1], stats.Maximum)
	assert.LessOrEqual(t, stats.Minimum, stats.Average)
	assert.LessOrEqual(t, stats.Average, stats.Maximum)
}

func TestRecordAsync(t *testing.T) {
	store := NewMemory()
	r := NewRecorder(store, logging.NewDefault())

	r.Record("example.com.", 1, 12.5, 60)

	assert.Eventually(t, func() bool {
		return store.Len() == 1
	}, time.Second, 10*time.Millisecond)

	values, err := store.Window(context.Background(),
		time.Now().UTC().Add(-time.Minute), time.Now().UTC().Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, values, 1)
	assert.Equal(t, 12.5, values[0])
}

func TestTimeframeDuration(t *testing.T) {
	assert.Equal(t, time.Hour, Minutes60.Duration())
	assert.Equal(t, 30*24*time.Hour, Month1.Duration())
}
