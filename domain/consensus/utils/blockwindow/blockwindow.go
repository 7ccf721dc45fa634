// Package blockwindow builds the bounded, nearest-first window of blue
// ancestor blocks that the past-median-time and difficulty managers both
// walk (grounded on the teacher's consensus/pastmediantime package, whose
// import of a sibling consensus/blockwindow package names this exact
// shape without shipping its body in the retrieval pack - rebuilt here
// following the standard GHOSTDAG windowing algorithm: walk the blue
// mergeset of the block under construction, then of its selected parent,
// and so on up the selected-parent chain, until windowSize blocks have
// been collected or the chain is exhausted).
package blockwindow

import (
	"github.com/dagchain/ghostnode/domain/consensus/datastructures/blockwindowcachestore"
	"github.com/dagchain/ghostnode/domain/consensus/datastructures/ghostdagstore"
	"github.com/dagchain/ghostnode/domain/consensus/datastructures/headersstore"
	"github.com/dagchain/ghostnode/domain/consensus/model/externalapi"
	"github.com/dagchain/ghostnode/infrastructure/db/database"
)

// Build returns the windowSize nearest blue ancestors of a block whose
// own GhostdagData is selfData (selfData's hash need not exist in the
// ghostdag store yet - this is the common case, since the window is
// built while the new header is still being processed). Nearest-first:
// selfData's own mergeset blues come first, then the selected parent's,
// and so on.
func Build(dbContext database.DataAccessor, ghostdag *ghostdagstore.Store, headers *headersstore.Store,
	selfData *externalapi.GhostdagData, windowSize uint64) (blockwindowcachestore.BlockWindowHeap, error) {

	window := make(blockwindowcachestore.BlockWindowHeap, 0, windowSize)

	current := selfData
	for uint64(len(window)) < windowSize && current != nil {
		for _, blue := range current.MergeSetBlues {
			if uint64(len(window)) >= windowSize {
				break
			}
			if blue.IsOrigin() {
				continue
			}
			header, err := headers.Get(dbContext, blue)
			if err != nil {
				return nil, err
			}
			window = append(window, blockwindowcachestore.WindowBlock{
				Hash:               blue,
				TimeInMilliseconds: header.TimeInMilliseconds,
				Bits:               header.Bits,
			})
		}
		if current.SelectedParent == nil || current.SelectedParent.IsOrigin() {
			break
		}
		next, err := ghostdag.Get(dbContext, current.SelectedParent)
		if err != nil {
			return nil, err
		}
		current = next
	}
	return window, nil
}

// MedianTimestamp returns the median of the window's timestamps, the
// timestamp-deviation-tolerance check's input (spec.md §4.6 step 5). An
// empty window (only genesis in its own past) has no median and returns
// zero; callers treat that as "no constraint".
func MedianTimestamp(window blockwindowcachestore.BlockWindowHeap) int64 {
	if len(window) == 0 {
		return 0
	}
	timestamps := make([]int64, len(window))
	for i, block := range window {
		timestamps[i] = block.TimeInMilliseconds
	}
	// insertion sort: windows are small (bounded by configuration), and
	// this avoids pulling in sort.Slice for a handful of elements.
	for i := 1; i < len(timestamps); i++ {
		for j := i; j > 0 && timestamps[j-1] > timestamps[j]; j-- {
			timestamps[j-1], timestamps[j] = timestamps[j], timestamps[j-1]
		}
	}
	return timestamps[len(timestamps)/2]
}
