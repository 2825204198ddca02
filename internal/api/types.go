package api

import "github.com/samcharles93/lookahead/internal/draft"

type ProposeRequest struct {
	Sequences []SequenceInput `json:"sequences"`
	// MaxDraftTokens may lower the server's configured bound for this call.
	MaxDraftTokens *int `json:"max_draft_tokens,omitempty"`
}

type SequenceInput struct {
	Tokens []int32 `json:"tokens"`
	// Phase is "encoding", "prefilled" or "decoding" (the default).
	Phase string `json:"phase,omitempty"`
	// StepIdx bounds the committed tokens; defaults to len(Tokens).
	StepIdx *int `json:"step_idx,omitempty"`
}

type ProposeResponse struct {
	ID      string           `json:"id"`
	Object  string           `json:"object"`
	Created int64            `json:"created"`
	Method  string           `json:"method"`
	Results []SequenceResult `json:"results"`
}

type SequenceResult struct {
	Index          int     `json:"index"`
	Draft          []int32 `json:"draft"`
	Count          int     `json:"count"`
	SeqLenThisTime int     `json:"seq_len_this_time"`
	Phase          string  `json:"phase"`
}

type ConfigResponse struct {
	Object string       `json:"object"`
	Config draft.Config `json:"config"`
}

type StatsResponse struct {
	Object        string `json:"object"`
	Calls         int64  `json:"calls"`
	Sequences     int64  `json:"sequences"`
	DraftedTokens int64  `json:"drafted_tokens"`
}

type ResponseError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Param   string `json:"param,omitempty"`
	Code    string `json:"code,omitempty"`
}
