// Package speculate replays recorded requests through a draft proposer the
// way a batched serving loop would: requests are assigned to fixed slots,
// prefilled, then decoded step by step with drafts verified against the
// target's recorded continuation.
package speculate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samcharles93/lookahead/internal/draft"
	"github.com/samcharles93/lookahead/internal/logger"
)

var ErrInvalidRequest = errors.New("invalid replay request")

// Request is one recorded generation to replay.
type Request struct {
	ID     string
	Prompt []int32
	// Reference is the continuation the target model produced.
	Reference []int32
	// MaxNewTokens caps generation; values <= 0 replay the whole reference.
	MaxNewTokens int
}

// Loop drives a Proposer over a queue of requests.
type Loop struct {
	Proposer draft.Proposer
	// Verifier defaults to ReferenceVerifier.
	Verifier Verifier
	// Logger defaults to the context logger.
	Logger logger.Logger
}

type liveSlot struct {
	req    *Request
	stats  RequestStats
	commit []int32
}

// Run replays reqs to completion, filling free slots first-come first-served.
// A contract violation from the proposer aborts the run.
func (l *Loop) Run(ctx context.Context, reqs []Request) (stats Stats, err error) {
	if l.Proposer == nil {
		return stats, errors.New("speculate: nil proposer")
	}
	log := l.Logger
	if log == nil {
		log = logger.FromContext(ctx)
	}
	verifier := l.Verifier
	if verifier == nil {
		verifier = ReferenceVerifier{}
	}

	cfg := l.Proposer.Config()
	state := l.Proposer.State()
	for i := range reqs {
		if err := checkRequest(&reqs[i], state.Capacity()); err != nil {
			return stats, err
		}
	}

	slots := make([]*liveSlot, cfg.MaxBatchSize)
	full := draft.NewStep(cfg.MaxBatchSize)
	start := time.Now()
	defer func() { stats.Duration = time.Since(start) }()

	next, live := 0, 0
	for next < len(reqs) || live > 0 {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		for b := range slots {
			if next >= len(reqs) {
				break
			}
			if slots[b] != nil {
				continue
			}
			req := &reqs[next]
			next++
			if err := state.Reset(b, req.Prompt); err != nil {
				return stats, err
			}
			full.StepIdx[b] = 0
			full.SeqLensThisTime[b] = len(req.Prompt)
			full.Phases[b] = draft.PhaseEncoding
			slots[b] = &liveSlot{
				req:    req,
				stats:  RequestStats{ID: req.ID, Slot: b, PromptTokens: len(req.Prompt)},
				commit: make([]int32, 0, cfg.MaxDraftTokens+1),
			}
			live++
			log.Debug("assigned request", "id", req.ID, "slot", b, "prompt_tokens", len(req.Prompt))
		}

		n := realBatchSize(slots)
		step := &draft.Step{
			RealBatchSize:   n,
			StepIdx:         full.StepIdx[:n],
			SeqLensThisTime: full.SeqLensThisTime[:n],
			Phases:          full.Phases[:n],
		}
		drafts, err := l.Proposer.Propose(step)
		if err != nil {
			return stats, fmt.Errorf("batch step %d: %w", stats.BatchSteps, err)
		}
		stats.BatchSteps++

		for b := range n {
			s := slots[b]
			if s == nil {
				continue
			}
			var proposed []int32
			if step.Phases[b] == draft.PhaseEncoding {
				step.Phases[b] = draft.PhasePrefilled
			} else {
				proposed = drafts.Draft(b)
			}
			done, err := advance(state, verifier, b, s, proposed)
			if err != nil {
				return stats, fmt.Errorf("batch step %d: %w", stats.BatchSteps-1, err)
			}
			step.StepIdx[b] = state.Len(b)
			step.SeqLensThisTime[b] = 1
			if !done {
				continue
			}

			if err := state.Clear(b); err != nil {
				return stats, err
			}
			step.StepIdx[b] = 0
			step.SeqLensThisTime[b] = 0
			step.Phases[b] = draft.PhaseIdle
			slots[b] = nil
			live--
			stats.add(s.stats)
			log.Debug("finished request", "id", s.stats.ID, "slot", b,
				"generated", s.stats.Generated, "steps", s.stats.Steps, "accepted", s.stats.Accepted)
		}
	}

	log.Info("replay finished",
		"requests", stats.Requests,
		"batch_steps", stats.BatchSteps,
		"generated", stats.Generated,
		"acceptance", fmt.Sprintf("%.3f", stats.AcceptanceRate()),
		"tokens_per_step", fmt.Sprintf("%.3f", stats.TokensPerStep()),
		"elapsed", time.Since(start))
	return stats, nil
}

// advance verifies one step's drafts for slot b and commits the accepted
// tokens plus the target's next token. It reports whether the request is done.
func advance(state *draft.BatchState, v Verifier, b int, s *liveSlot, proposed []int32) (bool, error) {
	s.stats.Steps++
	s.stats.Drafted += len(proposed)

	accepted, next, ok := v.Verify(s.req, s.stats.Generated, proposed)
	s.commit = append(s.commit[:0], proposed[:accepted]...)
	if ok {
		s.commit = append(s.commit, next)
	}

	room := state.Capacity() - state.Len(b)
	if limit := s.req.MaxNewTokens; limit > 0 {
		room = min(room, limit-s.stats.Generated)
	}
	truncated := len(s.commit) > room
	if truncated {
		s.commit = s.commit[:room]
	}
	s.stats.Accepted += min(accepted, len(s.commit))

	if err := state.Append(b, s.commit...); err != nil {
		return true, err
	}
	s.stats.Output = append(s.stats.Output, s.commit...)
	s.stats.Generated += len(s.commit)

	done := !ok || truncated || state.Len(b) >= state.Capacity()
	if limit := s.req.MaxNewTokens; limit > 0 && s.stats.Generated >= limit {
		done = true
	}
	return done, nil
}

func checkRequest(req *Request, capacity int) error {
	if len(req.Prompt) == 0 {
		return fmt.Errorf("%w: request %q has an empty prompt", ErrInvalidRequest, req.ID)
	}
	if len(req.Prompt) >= capacity {
		return fmt.Errorf("%w: request %q prompt of %d tokens leaves no room in a %d-token slot",
			ErrInvalidRequest, req.ID, len(req.Prompt), capacity)
	}
	return nil
}

func realBatchSize(slots []*liveSlot) int {
	for b := len(slots) - 1; b >= 0; b-- {
		if slots[b] != nil {
			return b + 1
		}
	}
	return 0
}
