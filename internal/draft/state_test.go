package draft

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBatchStateLifecycle(t *testing.T) {
	t.Parallel()

	s := newBatchState(2, 4)
	if s.Slots() != 2 || s.Capacity() != 4 {
		t.Fatalf("got slots=%d capacity=%d", s.Slots(), s.Capacity())
	}
	if err := s.Reset(1, []int32{1, 2}); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if err := s.Append(1, 3, 4); err != nil {
		t.Fatalf("append: %v", err)
	}
	if diff := cmp.Diff([]int32{1, 2, 3, 4}, s.History(1)); diff != "" {
		t.Fatalf("history mismatch (-want +got):\n%s", diff)
	}
	if s.Len(0) != 0 {
		t.Fatalf("slot 0 should be empty, has %d tokens", s.Len(0))
	}

	if err := s.Reset(1, []int32{9}); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if diff := cmp.Diff([]int32{9}, s.History(1)); diff != "" {
		t.Fatalf("history after reset (-want +got):\n%s", diff)
	}
	if err := s.Clear(1); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if s.Len(1) != 0 {
		t.Fatalf("cleared slot has %d tokens", s.Len(1))
	}
}

func TestBatchStateCapacity(t *testing.T) {
	t.Parallel()

	s := newBatchState(1, 3)
	if err := s.Reset(0, []int32{1, 2, 3, 4}); !errors.Is(err, ErrContractViolation) {
		t.Fatalf("oversized prompt: got %v", err)
	}
	if err := s.Reset(0, []int32{1, 2}); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if err := s.Append(0, 3, 4); !errors.Is(err, ErrContractViolation) {
		t.Fatalf("overflowing append: got %v", err)
	}
	if s.Len(0) != 2 {
		t.Fatalf("failed append changed length to %d", s.Len(0))
	}
	if err := s.Append(5, 1); !errors.Is(err, ErrContractViolation) {
		t.Fatalf("out of range slot: got %v", err)
	}
}

func TestBatchStateSlotsDoNotAlias(t *testing.T) {
	t.Parallel()

	s := newBatchState(2, 2)
	if err := s.Reset(0, []int32{1, 2}); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if err := s.Reset(1, []int32{3, 4}); err != nil {
		t.Fatalf("reset: %v", err)
	}
	// Appending past a full slot must fail rather than spill into the next.
	if err := s.Append(0, 5); err == nil {
		t.Fatalf("expected capacity error")
	}
	if diff := cmp.Diff([]int32{3, 4}, s.History(1)); diff != "" {
		t.Fatalf("slot 1 corrupted (-want +got):\n%s", diff)
	}
}

func TestParsePhase(t *testing.T) {
	t.Parallel()

	for _, p := range []Phase{PhaseIdle, PhaseEncoding, PhasePrefilled, PhaseDecoding} {
		got, err := ParsePhase(p.String())
		if err != nil || got != p {
			t.Fatalf("round trip %s: got %s err=%v", p, got, err)
		}
	}
	if _, err := ParsePhase("verifying"); err == nil {
		t.Fatalf("expected error for unknown phase")
	}
}
