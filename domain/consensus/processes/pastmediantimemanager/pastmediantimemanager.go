// Package pastmediantimemanager computes the past median time used by
// pre-PoW validation's timestamp-deviation check (spec.md §4.6 step 5),
// ported from the teacher's consensus/pastmediantime.PastMedianTime: the
// window size is 2*timestampDeviationTolerance-1 blue ancestors, and the
// result is the median of their timestamps.
package pastmediantimemanager

import (
	"github.com/dagchain/ghostnode/domain/consensus/datastructures/blockwindowcachestore"
	"github.com/dagchain/ghostnode/domain/consensus/datastructures/ghostdagstore"
	"github.com/dagchain/ghostnode/domain/consensus/datastructures/headersstore"
	"github.com/dagchain/ghostnode/domain/consensus/model/externalapi"
	"github.com/dagchain/ghostnode/domain/consensus/utils/blockwindow"
	"github.com/dagchain/ghostnode/infrastructure/db/database"
)

// Manager computes past-median-time for one DAG level.
type Manager struct {
	timestampDeviationTolerance uint64

	ghostdag *ghostdagstore.Store
	headers  *headersstore.Store
	cache    *blockwindowcachestore.Store
}

// New creates a past-median-time manager.
func New(timestampDeviationTolerance uint64, ghostdag *ghostdagstore.Store, headers *headersstore.Store,
	cache *blockwindowcachestore.Store) *Manager {
	return &Manager{
		timestampDeviationTolerance: timestampDeviationTolerance,
		ghostdag:                    ghostdag,
		headers:                     headers,
		cache:                       cache,
	}
}

// WindowSize returns the number of blue ancestors the median is computed
// over: 2*timestampDeviationTolerance-1, the teacher's own formula.
func (m *Manager) WindowSize() uint64 {
	return 2*m.timestampDeviationTolerance - 1
}

// PastMedianTime returns the window (for caching into
// blockwindowcachestore during commit, per SPEC_FULL.md §4 item 1) and
// the median timestamp in milliseconds, for a block whose own GhostdagData
// is selfData.
func (m *Manager) PastMedianTime(dbContext database.DataAccessor, hash *externalapi.DomainHash,
	selfData *externalapi.GhostdagData) (blockwindowcachestore.BlockWindowHeap, int64, error) {

	if window, ok := m.cache.Get(hash); ok {
		return window, blockwindow.MedianTimestamp(window), nil
	}
	window, err := blockwindow.Build(dbContext, m.ghostdag, m.headers, selfData, m.WindowSize())
	if err != nil {
		return nil, 0, err
	}
	return window, blockwindow.MedianTimestamp(window), nil
}
