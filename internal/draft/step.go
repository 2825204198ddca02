package draft

import "fmt"

// Phase is a slot's position in the request lifecycle. Transitions are one-way
// per request: Encoding -> Prefilled -> Decoding. The scheduler resets the
// phase when a slot is reassigned.
type Phase uint8

const (
	// PhaseIdle marks a slot that holds no live request.
	PhaseIdle Phase = iota
	// PhaseEncoding marks a slot whose prompt is being processed this step.
	PhaseEncoding
	// PhasePrefilled marks a slot whose prompt is processed and whose first
	// decode step is due. Propose moves it to PhaseDecoding.
	PhasePrefilled
	// PhaseDecoding marks a slot generating token by token.
	PhaseDecoding
)

var phaseNames = [...]string{
	PhaseIdle:      "idle",
	PhaseEncoding:  "encoding",
	PhasePrefilled: "prefilled",
	PhaseDecoding:  "decoding",
}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("phase(%d)", uint8(p))
}

// Valid reports whether p is one of the defined phases.
func (p Phase) Valid() bool {
	return int(p) < len(phaseNames)
}

// ParsePhase converts a phase name back to a Phase.
func ParsePhase(s string) (Phase, error) {
	for i, name := range phaseNames {
		if name == s {
			return Phase(i), nil
		}
	}
	return PhaseIdle, fmt.Errorf("unknown phase %q", s)
}

// Step carries the per-call batch inputs and the in-place outputs of Propose.
// Every slice is indexed by slot and must have exactly RealBatchSize entries.
type Step struct {
	RealBatchSize int

	// StepIdx bounds how many history tokens are committed for each slot.
	StepIdx []int

	// SeqLensThisTime is the number of positions occupied by each slot this
	// step; zero means the slot holds no live request. For slots that were
	// matched, Propose overwrites it with the draft count plus one.
	SeqLensThisTime []int

	// Phases is read and updated in place.
	Phases []Phase
}

// NewStep allocates a Step for n slots with every slot idle.
func NewStep(n int) *Step {
	return &Step{
		RealBatchSize:   n,
		StepIdx:         make([]int, n),
		SeqLensThisTime: make([]int, n),
		Phases:          make([]Phase, n),
	}
}

func (s *Step) validate(maxBatch int) error {
	if s == nil {
		return violation(-1, "nil step")
	}
	n := s.RealBatchSize
	if n < 0 || n > maxBatch {
		return violation(-1, "real batch size %d out of range [0,%d]", n, maxBatch)
	}
	if len(s.StepIdx) != n || len(s.SeqLensThisTime) != n || len(s.Phases) != n {
		return violation(-1, "batch length mismatch: real=%d step_idx=%d seq_lens_this_time=%d phases=%d",
			n, len(s.StepIdx), len(s.SeqLensThisTime), len(s.Phases))
	}
	for b := range n {
		if s.StepIdx[b] < 0 {
			return violation(b, "negative step_idx %d", s.StepIdx[b])
		}
		if s.SeqLensThisTime[b] < 0 {
			return violation(b, "negative seq_lens_this_time %d", s.SeqLensThisTime[b])
		}
		if !s.Phases[b].Valid() {
			return violation(b, "unknown %s", s.Phases[b])
		}
	}
	return nil
}
