package speculate

// Verifier stands in for the target model: given the tokens a request has
// generated so far and the drafts proposed for this step, it reports how many
// drafts the target accepts and the token it produces after them.
type Verifier interface {
	// Verify returns the number of accepted drafts and the next target token.
	// ok is false when the target has nothing left to produce after the
	// accepted drafts.
	Verify(req *Request, generated int, drafts []int32) (accepted int, next int32, ok bool)
}

// ReferenceVerifier replays a recorded greedy continuation: a draft token is
// accepted when it equals the reference token at the same position.
type ReferenceVerifier struct{}

func (ReferenceVerifier) Verify(req *Request, generated int, drafts []int32) (int, int32, bool) {
	ref := req.Reference
	accepted := 0
	for accepted < len(drafts) {
		pos := generated + accepted
		if pos >= len(ref) || ref[pos] != drafts[accepted] {
			break
		}
		accepted++
	}
	pos := generated + accepted
	if pos >= len(ref) {
		return accepted, 0, false
	}
	return accepted, ref[pos], true
}
