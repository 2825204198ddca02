package draft

// DraftBuffer holds the drafts produced by the most recent Propose call,
// laid out as [slots][maxDraftTokens]. Entries past a slot's count keep
// whatever value they held before the call.
type DraftBuffer struct {
	tokens []int32
	count  []int
	width  int
}

func newDraftBuffer(maxBatch, maxDraftTokens int) *DraftBuffer {
	return &DraftBuffer{
		tokens: make([]int32, maxBatch*maxDraftTokens),
		count:  make([]int, maxBatch),
		width:  maxDraftTokens,
	}
}

// Width returns the per-slot capacity (max draft tokens).
func (d *DraftBuffer) Width() int {
	return d.width
}

// Count returns the number of tokens actually proposed for slot.
func (d *DraftBuffer) Count(slot int) int {
	if slot < 0 || slot >= len(d.count) {
		return 0
	}
	return d.count[slot]
}

// Draft returns the proposed tokens for slot. The slice aliases the buffer.
func (d *DraftBuffer) Draft(slot int) []int32 {
	if slot < 0 || slot >= len(d.count) {
		return nil
	}
	return d.row(slot)[:d.count[slot]]
}

// releaseFrom zeroes the counts of slots at or past n, which the current
// call does not cover.
func (d *DraftBuffer) releaseFrom(n int) {
	for b := n; b < len(d.count); b++ {
		d.count[b] = 0
	}
}

// Tokens returns the whole flat buffer, including stale tail entries.
func (d *DraftBuffer) Tokens() []int32 {
	return d.tokens
}

func (d *DraftBuffer) row(slot int) []int32 {
	off := slot * d.width
	return d.tokens[off : off+d.width : off+d.width]
}
