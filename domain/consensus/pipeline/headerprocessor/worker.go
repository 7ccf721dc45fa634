package headerprocessor

import (
	"github.com/dagchain/ghostnode/domain/consensus/model/externalapi"
	"github.com/dagchain/ghostnode/domain/consensus/pipeline/blocktask"
	"github.com/dagchain/ghostnode/domain/consensus/pipeline/dependencymanager"
)

// queueBlock is one worker's unit of work: try to begin processing hash,
// run the pipeline, hand the result to End, and recursively spawn
// whichever dependents End reports are now admissible (mirrors the
// teacher's own queue_block/try_begin/end/spawn-dependents loop).
func (p *Processor) queueBlock(hash *externalapi.DomainHash) {
	depHash := dependencymanager.Hash(*hash)
	if !p.tasks.TryBegin(depHash) {
		return
	}

	p.pendingMu.Lock()
	pending := p.pending[*hash]
	p.pendingMu.Unlock()

	status, err := p.processHeader(hash, pending.block)

	dependents := p.tasks.End(depHash, p.isAdmitted, func(sinks []dependencymanager.Sink) {
		p.pendingMu.Lock()
		delete(p.pending, *hash)
		p.pendingMu.Unlock()

		result := blocktask.Result{Status: status, Err: err}
		if err != nil || !pending.block.HasBody() {
			for _, s := range sinks {
				s.(blocktask.Sink).Send(result)
			}
			return
		}
		p.bodySender <- blocktask.NewProcessTask(pending.block, sinksOf(sinks))
	})

	for _, dependent := range dependents {
		dependentHash := externalapi.DomainHash(dependent)
		p.pool.spawn(func() { p.queueBlock(&dependentHash) })
	}
}

func sinksOf(sinks []dependencymanager.Sink) []blocktask.Sink {
	out := make([]blocktask.Sink, len(sinks))
	for i, s := range sinks {
		out[i] = s.(blocktask.Sink)
	}
	return out
}
