package draft

import "slices"

// MatchWindow is an earlier occurrence of a history's trailing n-gram.
type MatchWindow struct {
	// N is the n-gram length.
	N int
	// Pos is the index in the history where the earlier occurrence starts.
	Pos int
}

// FindMatch looks for the longest trailing n-gram of history (at most
// maxNgram tokens) that also occurs earlier, wholly before the trailing
// window. Among occurrences of the same length the one closest to the end
// wins.
func FindMatch(history []int32, maxNgram int) (MatchWindow, bool) {
	l := len(history)
	for n := min(maxNgram, l); n >= 1; n-- {
		window := history[l-n:]
		for p := l - 2*n; p >= 0; p-- {
			if history[p] != window[0] {
				continue
			}
			if slices.Equal(history[p:p+n], window) {
				return MatchWindow{N: n, Pos: p}, true
			}
		}
	}
	return MatchWindow{}, false
}

// Match writes into dst the tokens that followed the best earlier occurrence
// of history's trailing n-gram and returns how many were written. It never
// writes more than len(dst) tokens and never copies past the end of history.
func Match(history []int32, maxNgram int, dst []int32) int {
	if len(history) < 1 || len(dst) == 0 {
		return 0
	}
	m, ok := FindMatch(history, maxNgram)
	if !ok {
		return 0
	}
	start := m.Pos + m.N
	end := min(start+len(dst), len(history))
	if start >= end {
		return 0
	}
	return copy(dst, history[start:end])
}

// NgramProposer implements inference-with-reference drafting: the trailing
// n-gram of each slot's committed history is looked up earlier in the same
// history and the tokens that followed it become the draft.
type NgramProposer struct {
	cfg    Config
	state  *BatchState
	drafts *DraftBuffer
}

// NewNgramProposer validates cfg and allocates all per-slot buffers.
func NewNgramProposer(cfg Config) (*NgramProposer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Method = MethodNgram
	return &NgramProposer{
		cfg:    cfg,
		state:  newBatchState(cfg.MaxBatchSize, cfg.MaxSeqLen),
		drafts: newDraftBuffer(cfg.MaxBatchSize, cfg.MaxDraftTokens),
	}, nil
}

func (p *NgramProposer) Config() Config       { return p.cfg }
func (p *NgramProposer) State() *BatchState   { return p.state }
func (p *NgramProposer) Drafts() *DraftBuffer { return p.drafts }

// Propose fills the draft buffer for every decoder-phase slot in step. The
// returned buffer is owned by the proposer and reused by the next call.
func (p *NgramProposer) Propose(step *Step) (*DraftBuffer, error) {
	if err := step.validate(p.cfg.MaxBatchSize); err != nil {
		return nil, err
	}
	p.drafts.releaseFrom(step.RealBatchSize)
	forEachSlot(step.RealBatchSize, p.cfg.Workers, func(b int) {
		if !advancePhase(step, p.drafts, b) {
			return
		}
		hist := p.state.History(b)
		l := min(step.StepIdx[b], len(hist))
		n := Match(hist[:l], p.cfg.MaxNgramSize, p.drafts.row(b))
		p.drafts.count[b] = n
		step.SeqLensThisTime[b] = n + 1
	})
	return p.drafts, nil
}

// advancePhase applies the phase rules for slot b and reports whether the
// slot should be matched this call.
func advancePhase(step *Step, drafts *DraftBuffer, b int) bool {
	if step.SeqLensThisTime[b] == 0 || step.Phases[b] == PhaseIdle {
		drafts.count[b] = 0
		return false
	}
	switch step.Phases[b] {
	case PhaseEncoding:
		drafts.count[b] = 0
		return false
	case PhasePrefilled:
		step.Phases[b] = PhaseDecoding
	}
	return true
}
