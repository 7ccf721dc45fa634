// Package headerprocessor implements C6 (spec.md §4.6): the per-header
// pipeline that validates a newly received header and commits it into
// every store that needs to record it, as a single atomic batch. It is
// the orchestrator the whole core is built to support - every other
// component (C1-C5, C7) exists to be driven from here.
package headerprocessor

import (
	"github.com/dagchain/ghostnode/domain/consensus/datastructures/ghostdagstore"
	"github.com/dagchain/ghostnode/domain/consensus/datastructures/reachabilitydatastore"
	"github.com/dagchain/ghostnode/domain/consensus/datastructures/relationsstore"
	"github.com/dagchain/ghostnode/domain/consensus/processes/ghostdagmanager"
	"github.com/dagchain/ghostnode/domain/consensus/processes/reachabilitymanager"
)

// levelStores bundles the per-level stores and managers spec.md §3
// ("each level has its own relations, ghostdag, and reachability view")
// requires: one full set per DAG level 0..=MaxBlockLevel.
type levelStores struct {
	relations    *relationsstore.Store
	ghostdag     *ghostdagstore.Store
	ghostdagMgr  *ghostdagmanager.Manager
	reachability *reachabilitydatastore.Store
	reachMgr     *reachabilitymanager.Manager
}
