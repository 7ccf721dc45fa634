package headerprocessor

import (
	"sync"

	"github.com/dagchain/ghostnode/dagconfig"
	"github.com/dagchain/ghostnode/domain/consensus/datastructures/blockwindowcachestore"
	"github.com/dagchain/ghostnode/domain/consensus/datastructures/daastore"
	"github.com/dagchain/ghostnode/domain/consensus/datastructures/depthstore"
	"github.com/dagchain/ghostnode/domain/consensus/datastructures/ghostdagstore"
	"github.com/dagchain/ghostnode/domain/consensus/datastructures/headersselectedtipstore"
	"github.com/dagchain/ghostnode/domain/consensus/datastructures/headersstore"
	"github.com/dagchain/ghostnode/domain/consensus/datastructures/pruningstore"
	"github.com/dagchain/ghostnode/domain/consensus/datastructures/reachabilitydatastore"
	"github.com/dagchain/ghostnode/domain/consensus/datastructures/relationsstore"
	"github.com/dagchain/ghostnode/domain/consensus/datastructures/statusesstore"
	"github.com/dagchain/ghostnode/domain/consensus/model/externalapi"
	"github.com/dagchain/ghostnode/domain/consensus/pipeline/blocktask"
	"github.com/dagchain/ghostnode/domain/consensus/pipeline/dependencymanager"
	"github.com/dagchain/ghostnode/domain/consensus/processes/blockdepthmanager"
	"github.com/dagchain/ghostnode/domain/consensus/processes/difficultymanager"
	"github.com/dagchain/ghostnode/domain/consensus/processes/ghostdagmanager"
	"github.com/dagchain/ghostnode/domain/consensus/processes/parentsmanager"
	"github.com/dagchain/ghostnode/domain/consensus/processes/pastmediantimemanager"
	"github.com/dagchain/ghostnode/domain/consensus/processes/processingcounters"
	"github.com/dagchain/ghostnode/domain/consensus/processes/reachabilitymanager"
	"github.com/dagchain/ghostnode/domain/consensus/utils/hashserialization"
	"github.com/dagchain/ghostnode/infrastructure/db/database"
	"github.com/dagchain/ghostnode/infrastructure/logger"
)

var log = logger.NewLogger("PROC")

// Processor is the header-processing core: one instance owns every
// per-level manager/store plus the level-agnostic stores, and drives the
// pipeline of spec.md §4.6 for each BlockTask it receives.
type Processor struct {
	params *dagconfig.Params
	db     database.DataAccessor

	levels []*levelStores // indexed 0..=params.MaxBlockLevel

	headers     *headersstore.Store
	statuses    *statusesstore.Store
	daa         *daastore.Store
	depth       *depthstore.Store
	pruning     *pruningstore.Store
	selectedTip *headersselectedtipstore.Store

	windowCacheDifficulty     *blockwindowcachestore.Store
	windowCachePastMedianTime *blockwindowcachestore.Store

	pastMedianTime *pastmediantimemanager.Manager
	difficulty     *difficultymanager.Manager
	blockDepth     *blockdepthmanager.Manager
	parents        *parentsmanager.Manager

	counters *processingcounters.Counters
	tasks    *dependencymanager.Manager

	pendingMu sync.Mutex
	pending   map[externalapi.DomainHash]*pendingBlock

	receiver   <-chan blocktask.Task
	bodySender chan<- blocktask.Task
	pool       *workerPool
}

// pendingBlock is the payload the dependency manager's generic Hash/Sink
// bookkeeping can't itself carry: the header processor keeps it in its
// own side table, keyed by the same hash registered with tasks.
type pendingBlock struct {
	block *blocktask.Block
}

// New constructs a header processor wired to one fresh levelStores set
// per configured level, plus the level-agnostic stores and support
// managers shared with other pipeline stages.
func New(
	params *dagconfig.Params,
	db database.DataAccessor,
	headers *headersstore.Store,
	statuses *statusesstore.Store,
	daa *daastore.Store,
	depth *depthstore.Store,
	pruning *pruningstore.Store,
	selectedTip *headersselectedtipstore.Store,
	windowCacheDifficulty, windowCachePastMedianTime *blockwindowcachestore.Store,
	counters *processingcounters.Counters,
	receiver <-chan blocktask.Task,
	bodySender chan<- blocktask.Task,
	numWorkers int,
) *Processor {
	levels := make([]*levelStores, int(params.MaxBlockLevel)+1)
	for level := 0; level < len(levels); level++ {
		l := externalapi.BlockLevel(level)
		reachStore := reachabilitydatastore.New(l)
		reachMgr := reachabilitymanager.New(reachStore)
		relations := relationsstore.New(l)
		ghostdagStore := ghostdagstore.New(l)
		ghostdagMgr := ghostdagmanager.New(params.KAtLevel(l), reachMgr, relations, ghostdagStore, headers)
		levels[level] = &levelStores{
			relations:    relations,
			ghostdag:     ghostdagStore,
			ghostdagMgr:  ghostdagMgr,
			reachability: reachStore,
			reachMgr:     reachMgr,
		}
	}

	return &Processor{
		params:                    params,
		db:                        db,
		levels:                    levels,
		headers:                   headers,
		statuses:                  statuses,
		daa:                       daa,
		depth:                     depth,
		pruning:                   pruning,
		selectedTip:               selectedTip,
		windowCacheDifficulty:     windowCacheDifficulty,
		windowCachePastMedianTime: windowCachePastMedianTime,
		pastMedianTime: pastmediantimemanager.New(params.TimestampDeviationTolerance,
			levels[0].ghostdag, headers, windowCachePastMedianTime),
		difficulty: difficultymanager.New(params.DifficultyWindowSize, params.TargetTimePerBlock, params.GenesisBits,
			levels[0].ghostdag, headers, windowCacheDifficulty),
		blockDepth: blockdepthmanager.New(params.MergeDepth, params.FinalityDepth, levels[0].ghostdag),
		parents:    parentsmanager.New(),
		counters:   counters,
		tasks:      dependencymanager.New(),
		pending:    make(map[externalapi.DomainHash]*pendingBlock),
		receiver:   receiver,
		bodySender: bodySender,
		pool:       newWorkerPool(numWorkers),
	}
}

// Run drains the upstream channel until Exit, spawning a worker per
// admissible header and forwarding Exit once every in-flight header has
// finished (spec.md §4.6 "Public contract").
func (p *Processor) Run() {
	log.Infof("header processor started with %d worker(s)", p.pool.size())

	for task := range p.receiver {
		if task.Kind == blocktask.Exit {
			break
		}
		p.submit(task)
	}

	p.tasks.WaitForIdle()
	p.pool.wait()
	log.Infof("header processor drained, forwarding exit downstream")
	p.bodySender <- blocktask.ExitTask()
}

// submit registers task's block with the dependency manager, stashing
// its payload in the side table, and spawns a worker immediately if
// every direct parent is already admitted.
func (p *Processor) submit(task blocktask.Task) {
	header := task.Block.Header
	hash := hashserialization.HeaderHash(header)
	depHash := dependencymanager.Hash(*hash)

	directParents := header.DirectParents()
	parentHashes := make([]dependencymanager.Hash, len(directParents))
	for i, parent := range directParents {
		parentHashes[i] = dependencymanager.Hash(*parent)
	}

	sinks := make([]dependencymanager.Sink, len(task.Sinks))
	for i, s := range task.Sinks {
		sinks[i] = s
	}

	p.pendingMu.Lock()
	if _, ok := p.pending[*hash]; !ok {
		p.pending[*hash] = &pendingBlock{block: task.Block}
	}
	p.pendingMu.Unlock()

	ready := p.tasks.Register(depHash, parentHashes, p.isAdmitted, sinks...)
	if ready {
		p.pool.spawn(func() { p.queueBlock(hash) })
	}
}

// isAdmitted reports whether hash already has a recorded status - the
// dependency manager's sole notion of "this parent is admitted" (spec.md
// §4.5, §5: "A header is released to validation only after all its
// direct parents have been admitted").
func (p *Processor) isAdmitted(hash dependencymanager.Hash) bool {
	domainHash := externalapi.DomainHash(hash)
	has, err := p.statuses.Has(p.db, &domainHash)
	return err == nil && has
}
