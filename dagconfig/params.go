// Package dagconfig holds the network-parameter struct the header
// processor and its support managers are configured from: the
// Configuration enumeration of spec.md §6, in the shape of the teacher's
// own dagconfig.Params (a single struct of named knobs passed by
// reference to every manager's constructor, rather than a global).
package dagconfig

import "github.com/dagchain/ghostnode/domain/consensus/model/externalapi"

// Params is the full set of consensus parameters a ghostnode instance
// runs with (spec.md §6 "Configuration").
type Params struct {
	// MaxBlockLevel is the number of DAG levels (0..=MaxBlockLevel).
	MaxBlockLevel externalapi.BlockLevel

	// KPerLevel is the GHOSTDAG k-cluster bound at each level, indexed
	// 0..=MaxBlockLevel.
	KPerLevel []externalapi.KType

	// DifficultyWindowSize is the number of blue ancestors the
	// difficulty manager averages over.
	DifficultyWindowSize uint64

	// TimestampDeviationTolerance bounds how far a header's timestamp
	// may exceed the network-adjusted present; the past-median-time
	// window size is 2*TimestampDeviationTolerance-1.
	TimestampDeviationTolerance uint64

	// TargetTimePerBlock is the expected milliseconds between blocks,
	// used by the difficulty manager's retarget.
	TargetTimePerBlock uint64

	// MergesetSizeLimit bounds a header's post-GHOSTDAG mergeset size.
	MergesetSizeLimit uint64

	// MaxBlockParents bounds the number of direct parents a header may
	// declare at level 0.
	MaxBlockParents uint8

	// MergeDepth and FinalityDepth are the blue-score distances the
	// block-depth manager walks back for the merge-depth root and the
	// finality point, respectively.
	MergeDepth    uint64
	FinalityDepth uint64

	GenesisHash      *externalapi.DomainHash
	GenesisBits      uint32
	GenesisTimestamp int64

	// SkipProofOfWork disables the PoW check in post-PoW validation,
	// for test networks.
	SkipProofOfWork bool
	// ProcessGenesis gates process_genesis_if_needed (spec.md §4.6.2).
	ProcessGenesis bool

	// MaxAddresses, MaxConnectionFailedCount, and BanDurationSeconds
	// configure the address directory (C8, spec.md §4.8).
	MaxAddresses              int
	MaxConnectionFailedCount  int
	BanDurationSeconds        int64
}

// KAtLevel returns the k-cluster bound at level, or the deepest
// configured level's bound if level exceeds the configured slice (a
// defensive default rather than a panic, since callers iterate
// 0..=MaxBlockLevel and KPerLevel is expected to have exactly that many
// entries).
func (p *Params) KAtLevel(level externalapi.BlockLevel) externalapi.KType {
	if int(level) < len(p.KPerLevel) {
		return p.KPerLevel[level]
	}
	if len(p.KPerLevel) == 0 {
		return 0
	}
	return p.KPerLevel[len(p.KPerLevel)-1]
}

// MainnetParams returns the default parameter set used by cmd/ghostnoded
// and by integration tests that want realistic-scale configuration.
func MainnetParams() *Params {
	kPerLevel := make([]externalapi.KType, 1)
	kPerLevel[0] = 18

	return &Params{
		MaxBlockLevel:               0,
		KPerLevel:                   kPerLevel,
		DifficultyWindowSize:        2641,
		TimestampDeviationTolerance: 132,
		TargetTimePerBlock:          1000,
		MergesetSizeLimit:           180,
		MaxBlockParents:             10,
		MergeDepth:                  3600,
		FinalityDepth:               86400,
		GenesisBits:                 0x207fffff,
		GenesisTimestamp:            0,
		SkipProofOfWork:             false,
		ProcessGenesis:              true,
		MaxAddresses:                4096,
		MaxConnectionFailedCount:    3,
		BanDurationSeconds:          24 * 60 * 60,
	}
}
