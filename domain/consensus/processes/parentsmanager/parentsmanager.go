// Package parentsmanager provides ParentsAtLevel, the typed
// parent-filtering service the header processor calls once per level
// while building a header's processing context (SPEC_FULL.md §4, item 2).
// Kept as its own service rather than inlined into the header processor,
// mirroring the original's `parents_manager.parents_at_level(header, level)`
// call sites so the processor itself stays thin.
package parentsmanager

import "github.com/dagchain/ghostnode/domain/consensus/model/externalapi"

// Manager answers "what are this header's parents at level ℓ".
type Manager struct{}

// New creates a parents manager.
func New() *Manager {
	return &Manager{}
}

// ParentsAtLevel returns the parents header declares at level: for level
// 0 this is the header's direct parents; for level > 0 a header whose
// ParentsAtLevel is shallower than level has no relations that high and
// parentsmanager reports that as empty, same as DomainBlockHeader.ParentsAt.
func (m *Manager) ParentsAtLevel(header *externalapi.DomainBlockHeader, level externalapi.BlockLevel) []*externalapi.DomainHash {
	return header.ParentsAt(level)
}
