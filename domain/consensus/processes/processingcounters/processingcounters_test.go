package processingcounters

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCountersConcurrentIncrements(t *testing.T) {
	counters := New()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			counters.HeaderProcessed()
			counters.DirectParentEdgesObserved(2)
			counters.DependencyResolved()
		}()
	}
	wg.Wait()

	snapshot := counters.Snapshot()
	require.Equal(t, uint64(100), snapshot.HeadersProcessed)
	require.Equal(t, uint64(200), snapshot.DirectParentEdges)
	require.Equal(t, uint64(100), snapshot.DependenciesResolved)
	require.Equal(t, uint64(0), snapshot.Invalidations)
}

func TestCollectorExposesCountersToRegistry(t *testing.T) {
	counters := New()
	counters.HeaderProcessed()
	counters.Invalidated()

	collector := NewCollector(counters)
	registry := prometheus.NewRegistry()
	require.NoError(t, registry.Register(collector))

	count, err := testutil.GatherAndCount(registry)
	require.NoError(t, err)
	require.Equal(t, 4, count, "all four counters must be collectible")
}
