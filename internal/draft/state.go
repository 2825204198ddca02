package draft

// BatchState owns the per-slot token histories. All buffers are allocated
// once for the configured batch size and sequence length and reused across
// requests.
//
// BatchState performs no locking. A slot's Reset/Append/Clear must not run
// concurrently with a Propose call that reads the same slot.
type BatchState struct {
	history    []int32 // [maxBatch * capacity]
	historyLen []int
	capacity   int
}

func newBatchState(maxBatch, capacity int) *BatchState {
	return &BatchState{
		history:    make([]int32, maxBatch*capacity),
		historyLen: make([]int, maxBatch),
		capacity:   capacity,
	}
}

// Slots returns the number of slots the state was allocated for.
func (s *BatchState) Slots() int {
	return len(s.historyLen)
}

// Capacity returns the maximum number of tokens a slot can hold.
func (s *BatchState) Capacity() int {
	return s.capacity
}

// Len returns the number of valid tokens in a slot's history.
func (s *BatchState) Len(slot int) int {
	if slot < 0 || slot >= len(s.historyLen) {
		return 0
	}
	return s.historyLen[slot]
}

// History returns the valid prefix of a slot's history. The slice aliases the
// state's buffer and is only valid until the slot is next modified.
func (s *BatchState) History(slot int) []int32 {
	if slot < 0 || slot >= len(s.historyLen) {
		return nil
	}
	return s.row(slot)[:s.historyLen[slot]]
}

// Reset assigns a new request to a slot, replacing its history with prompt.
func (s *BatchState) Reset(slot int, prompt []int32) error {
	if err := s.checkSlot(slot); err != nil {
		return err
	}
	if len(prompt) > s.capacity {
		return violation(slot, "prompt of %d tokens exceeds capacity %d", len(prompt), s.capacity)
	}
	copy(s.row(slot), prompt)
	s.historyLen[slot] = len(prompt)
	return nil
}

// Append commits generated tokens to the end of a slot's history.
func (s *BatchState) Append(slot int, tokens ...int32) error {
	if err := s.checkSlot(slot); err != nil {
		return err
	}
	n := s.historyLen[slot]
	if n+len(tokens) > s.capacity {
		return violation(slot, "appending %d tokens to %d exceeds capacity %d", len(tokens), n, s.capacity)
	}
	copy(s.row(slot)[n:], tokens)
	s.historyLen[slot] = n + len(tokens)
	return nil
}

// Clear releases a slot. Its buffer contents are left in place.
func (s *BatchState) Clear(slot int) error {
	if err := s.checkSlot(slot); err != nil {
		return err
	}
	s.historyLen[slot] = 0
	return nil
}

func (s *BatchState) row(slot int) []int32 {
	off := slot * s.capacity
	return s.history[off : off+s.capacity : off+s.capacity]
}

func (s *BatchState) checkSlot(slot int) error {
	if slot < 0 || slot >= len(s.historyLen) {
		return violation(-1, "slot %d out of range [0,%d)", slot, len(s.historyLen))
	}
	return nil
}
