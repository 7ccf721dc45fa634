// Package blocktask defines the BlockTask message the header processor
// consumes from its upstream channel and forwards to its downstream
// channel (spec.md §6): Process(block, sinks) or Exit.
package blocktask

import (
	"github.com/dagchain/ghostnode/domain/consensus/model/externalapi"
)

// Block is a header submission: its header, an optional body (absent for
// header-only submissions), and optional pre-computed per-level
// GhostdagData for trusted headers (spec.md §4.6 step 4, §6 Open
// Question 4: trusted GhostdagData is accepted without re-validation).
type Block struct {
	Header              *externalapi.DomainBlockHeader
	Body                *externalapi.DomainBlock
	PrecomputedGhostdag []*externalapi.GhostdagData // indexed by level; nil entries mean "not trusted at this level"
}

// IsTrusted reports whether the submission carries any pre-computed
// GhostdagData.
func (b *Block) IsTrusted() bool {
	for _, data := range b.PrecomputedGhostdag {
		if data != nil {
			return true
		}
	}
	return false
}

// Result is delivered exactly once to every sink attached to a hash
// (spec.md §6 "Sink contract").
type Result struct {
	Status externalapi.BlockStatus
	Err    error
}

// Sink is a one-shot result channel; a dropped sink (nobody ever reads
// it) is explicitly allowed to be ignored by a sender, per spec.md §6.
type Sink chan Result

// Send delivers result to the sink without blocking forever on a
// capacity-0 channel with no reader: sinks are always created buffered
// by their owner (capacity 1), so this is a plain, non-blocking-in-
// practice send; if the caller in fact created an unbuffered, unread
// sink, dropping the result is the documented behavior.
func (s Sink) Send(result Result) {
	select {
	case s <- result:
	default:
	}
}

// Kind distinguishes the two BlockTask variants.
type Kind int

const (
	// Process carries a Block plus its Sinks.
	Process Kind = iota
	// Exit requests a drain-then-stop.
	Exit
)

// Task is a single message on the upstream/downstream channel.
type Task struct {
	Kind  Kind
	Block *Block
	Sinks []Sink
}

// NewProcessTask constructs a Process task.
func NewProcessTask(block *Block, sinks []Sink) Task {
	return Task{Kind: Process, Block: block, Sinks: sinks}
}

// ExitTask constructs the Exit task.
func ExitTask() Task {
	return Task{Kind: Exit}
}
