package speculate

import "time"

// RequestStats describes how one request was served.
type RequestStats struct {
	ID           string
	Slot         int
	PromptTokens int
	// Steps counts model invocations for the request, prefill included.
	Steps     int
	Drafted   int
	Accepted  int
	Generated int
	Output    []int32
}

// AcceptanceRate is the fraction of proposed drafts the target accepted.
func (r RequestStats) AcceptanceRate() float64 {
	if r.Drafted == 0 {
		return 0
	}
	return float64(r.Accepted) / float64(r.Drafted)
}

// TokensPerStep is the mean number of tokens committed per invocation.
// Without drafting it is 1.
func (r RequestStats) TokensPerStep() float64 {
	if r.Steps == 0 {
		return 0
	}
	return float64(r.Generated) / float64(r.Steps)
}

// Stats aggregates a replay run.
type Stats struct {
	Requests int
	// BatchSteps counts Propose calls, one per batch iteration.
	BatchSteps int
	Steps      int
	Drafted    int
	Accepted   int
	Generated  int
	Duration   time.Duration

	PerRequest []RequestStats
}

func (s *Stats) add(r RequestStats) {
	s.Requests++
	s.Steps += r.Steps
	s.Drafted += r.Drafted
	s.Accepted += r.Accepted
	s.Generated += r.Generated
	s.PerRequest = append(s.PerRequest, r)
}

func (s Stats) AcceptanceRate() float64 {
	if s.Drafted == 0 {
		return 0
	}
	return float64(s.Accepted) / float64(s.Drafted)
}

func (s Stats) TokensPerStep() float64 {
	if s.Steps == 0 {
		return 0
	}
	return float64(s.Generated) / float64(s.Steps)
}
