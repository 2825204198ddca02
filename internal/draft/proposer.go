// Package draft proposes speculative-decoding draft tokens for a batch of
// in-flight requests.
//
// A Proposer owns fixed per-slot buffers allocated once at construction. The
// serving loop resets a slot's history when it assigns a request, appends
// committed tokens as they are accepted, and calls Propose once per decoding
// step. Propose is pure computation: it never blocks and holds no locks.
package draft

import "golang.org/x/sync/errgroup"

// Proposer produces draft tokens for each slot of a batch.
type Proposer interface {
	// Propose computes drafts for the slots described by step, updating
	// step's per-slot outputs in place.
	Propose(step *Step) (*DraftBuffer, error)
	// State returns the per-slot histories the proposer matches against.
	State() *BatchState
	Config() Config
}

// New builds the proposer variant named by cfg.Method.
func New(cfg Config) (Proposer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch normalizeMethod(cfg.Method) {
	case MethodNone:
		return newNoneProposer(cfg), nil
	default:
		return NewNgramProposer(cfg)
	}
}

// noneProposer never drafts but keeps the phase bookkeeping identical to the
// n-gram variant so it can stand in as a baseline.
type noneProposer struct {
	cfg    Config
	state  *BatchState
	drafts *DraftBuffer
}

func newNoneProposer(cfg Config) *noneProposer {
	cfg.Method = MethodNone
	return &noneProposer{
		cfg:    cfg,
		state:  newBatchState(cfg.MaxBatchSize, cfg.MaxSeqLen),
		drafts: newDraftBuffer(cfg.MaxBatchSize, cfg.MaxDraftTokens),
	}
}

func (p *noneProposer) Config() Config     { return p.cfg }
func (p *noneProposer) State() *BatchState { return p.state }

func (p *noneProposer) Propose(step *Step) (*DraftBuffer, error) {
	if err := step.validate(p.cfg.MaxBatchSize); err != nil {
		return nil, err
	}
	p.drafts.releaseFrom(step.RealBatchSize)
	for b := range step.RealBatchSize {
		if advancePhase(step, p.drafts, b) {
			p.drafts.count[b] = 0
			step.SeqLensThisTime[b] = 1
		}
	}
	return p.drafts, nil
}

// forEachSlot runs fn for every slot in [0,n). With more than one worker the
// slots are fanned out; fn must only touch its own slot's buffers.
func forEachSlot(n, workers int, fn func(b int)) {
	if workers <= 1 || n <= 1 {
		for b := range n {
			fn(b)
		}
		return
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for b := range n {
		g.Go(func() error {
			fn(b)
			return nil
		})
	}
	_ = g.Wait()
}
