// Package api exposes the draft proposer over HTTP for ad-hoc proposals and
// inspection.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/lookahead/internal/draft"
	"github.com/samcharles93/lookahead/internal/logger"
	"github.com/samcharles93/lookahead/internal/version"
)

// Server serves proposals from a single proposer. The proposer performs no
// locking of its own, so every call that touches its slots holds mu.
type Server struct {
	mu       sync.Mutex
	proposer draft.Proposer
	step     *draft.Step
	log      logger.Logger
	clock    func() time.Time

	calls     int64
	sequences int64
	drafted   int64
}

func NewServer(p draft.Proposer, log logger.Logger) *Server {
	if log == nil {
		log = logger.Discard()
	}
	return &Server{
		proposer: p,
		step:     draft.NewStep(p.Config().MaxBatchSize),
		log:      log,
		clock:    time.Now,
	}
}

func (s *Server) Register(e *echo.Echo) {
	e.POST("/v1/propose", s.handlePropose)
	e.GET("/v1/config", s.handleConfig)
	e.GET("/v1/stats", s.handleStats)
	e.GET("/healthz", s.handleHealth)
}

func (s *Server) handleHealth(c *echo.Context) error {
	return writeJSON(c, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.String(),
	})
}

func (s *Server) handleConfig(c *echo.Context) error {
	return writeJSON(c, http.StatusOK, ConfigResponse{
		Object: "draft.config",
		Config: s.proposer.Config(),
	})
}

func (s *Server) handleStats(c *echo.Context) error {
	s.mu.Lock()
	resp := StatsResponse{
		Object:        "draft.stats",
		Calls:         s.calls,
		Sequences:     s.sequences,
		DraftedTokens: s.drafted,
	}
	s.mu.Unlock()
	return writeJSON(c, http.StatusOK, resp)
}

func (s *Server) handlePropose(c *echo.Context) error {
	req, err := decodeJSON[ProposeRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, newInvalidRequest("", err.Error()))
	}
	phases, limit, err := s.validate(&req)
	if err != nil {
		return writeBadRequest(c, err)
	}

	results, err := s.propose(req.Sequences, phases, limit)
	if err != nil {
		if errors.Is(err, draft.ErrContractViolation) {
			return writeBadRequest(c, newInvalidRequest("sequences", err.Error()))
		}
		s.log.Error("propose failed", "error", err)
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error(), "")
	}

	return writeJSON(c, http.StatusOK, ProposeResponse{
		ID:      "prop_" + uuid.NewString(),
		Object:  "draft.proposal",
		Created: s.clock().Unix(),
		Method:  s.proposer.Config().Method,
		Results: results,
	})
}

func (s *Server) validate(req *ProposeRequest) ([]draft.Phase, int, error) {
	cfg := s.proposer.Config()
	if len(req.Sequences) == 0 {
		return nil, 0, newInvalidRequest("sequences", "at least one sequence is required")
	}
	if len(req.Sequences) > cfg.MaxBatchSize {
		return nil, 0, newInvalidRequest("sequences",
			fmt.Sprintf("%d sequences exceed max batch size %d", len(req.Sequences), cfg.MaxBatchSize))
	}

	limit := cfg.MaxDraftTokens
	if req.MaxDraftTokens != nil {
		if *req.MaxDraftTokens < 1 || *req.MaxDraftTokens > cfg.MaxDraftTokens {
			return nil, 0, newInvalidRequest("max_draft_tokens",
				fmt.Sprintf("must be between 1 and %d", cfg.MaxDraftTokens))
		}
		limit = *req.MaxDraftTokens
	}

	phases := make([]draft.Phase, len(req.Sequences))
	for i, seq := range req.Sequences {
		param := fmt.Sprintf("sequences[%d]", i)
		if len(seq.Tokens) == 0 {
			return nil, 0, newInvalidRequest(param, "tokens must not be empty")
		}
		if len(seq.Tokens) > cfg.MaxSeqLen {
			return nil, 0, newInvalidRequest(param,
				fmt.Sprintf("%d tokens exceed max sequence length %d", len(seq.Tokens), cfg.MaxSeqLen))
		}
		if seq.StepIdx != nil && *seq.StepIdx < 0 {
			return nil, 0, newInvalidRequest(param, "step_idx must not be negative")
		}
		phases[i] = draft.PhaseDecoding
		if seq.Phase != "" {
			p, err := draft.ParsePhase(seq.Phase)
			if err != nil || p == draft.PhaseIdle {
				return nil, 0, newInvalidRequest(param, fmt.Sprintf("unsupported phase %q", seq.Phase))
			}
			phases[i] = p
		}
	}
	return phases, limit, nil
}

func (s *Server) propose(seqs []SequenceInput, phases []draft.Phase, limit int) ([]SequenceResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.proposer.State()
	n := len(seqs)
	defer func() {
		for b := range n {
			_ = state.Clear(b)
		}
	}()

	step := &draft.Step{
		RealBatchSize:   n,
		StepIdx:         s.step.StepIdx[:n],
		SeqLensThisTime: s.step.SeqLensThisTime[:n],
		Phases:          s.step.Phases[:n],
	}
	for b, seq := range seqs {
		if err := state.Reset(b, seq.Tokens); err != nil {
			return nil, err
		}
		step.StepIdx[b] = len(seq.Tokens)
		if seq.StepIdx != nil {
			step.StepIdx[b] = *seq.StepIdx
		}
		step.Phases[b] = phases[b]
		step.SeqLensThisTime[b] = 1
		if phases[b] == draft.PhaseEncoding {
			step.SeqLensThisTime[b] = len(seq.Tokens)
		}
	}

	drafts, err := s.proposer.Propose(step)
	if err != nil {
		return nil, err
	}

	results := make([]SequenceResult, n)
	for b := range n {
		d := drafts.Draft(b)
		d = d[:min(len(d), limit)]
		seqLen := step.SeqLensThisTime[b]
		if step.Phases[b] != draft.PhaseEncoding {
			seqLen = len(d) + 1
		}
		results[b] = SequenceResult{
			Index:          b,
			Draft:          append([]int32{}, d...),
			Count:          len(d),
			SeqLenThisTime: seqLen,
			Phase:          step.Phases[b].String(),
		}
		s.drafted += int64(len(d))
	}
	s.calls++
	s.sequences += int64(n)
	s.log.Debug("proposed drafts", "sequences", n, "limit", limit)
	return results, nil
}
