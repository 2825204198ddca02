package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/lookahead/internal/draft"
)

func newTestEcho(t *testing.T, cfg draft.Config) (*echo.Echo, *Server) {
	t.Helper()
	p, err := draft.New(cfg)
	if err != nil {
		t.Fatalf("new proposer: %v", err)
	}
	server := NewServer(p, nil)
	e := echo.New()
	server.Register(e)
	return e, server
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeProposal(t *testing.T, rec *httptest.ResponseRecorder) ProposeResponse {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("propose status: got %d body=%s", rec.Code, rec.Body.String())
	}
	var resp ProposeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode propose response: %v", err)
	}
	return resp
}

func TestProposeDecoding(t *testing.T) {
	t.Parallel()

	e, _ := newTestEcho(t, draft.DefaultConfig())
	resp := decodeProposal(t, doJSON(t, e, http.MethodPost, "/v1/propose",
		`{"sequences":[{"tokens":[1,2,3,4,1,2]},{"tokens":[9,8,7]}]}`))

	if !strings.HasPrefix(resp.ID, "prop_") {
		t.Fatalf("unexpected id %q", resp.ID)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("results: got %d want 2", len(resp.Results))
	}
	got := resp.Results[0]
	if diff := cmp.Diff([]int32{3, 4, 1, 2}, got.Draft); diff != "" {
		t.Fatalf("draft mismatch (-want +got):\n%s", diff)
	}
	if got.Count != 4 || got.SeqLenThisTime != 5 || got.Phase != "decoding" {
		t.Fatalf("unexpected result: %+v", got)
	}
	if miss := resp.Results[1]; miss.Count != 0 || miss.SeqLenThisTime != 1 || len(miss.Draft) != 0 {
		t.Fatalf("expected no draft for sequence without repeats, got %+v", miss)
	}
}

func TestProposeMaxDraftTokensOverride(t *testing.T) {
	t.Parallel()

	e, _ := newTestEcho(t, draft.DefaultConfig())
	resp := decodeProposal(t, doJSON(t, e, http.MethodPost, "/v1/propose",
		`{"sequences":[{"tokens":[1,2,3,4,1,2]}],"max_draft_tokens":2}`))
	got := resp.Results[0]
	if diff := cmp.Diff([]int32{3, 4}, got.Draft); diff != "" {
		t.Fatalf("draft mismatch (-want +got):\n%s", diff)
	}
	if got.SeqLenThisTime != 3 {
		t.Fatalf("seq_len_this_time: got %d want 3", got.SeqLenThisTime)
	}
}

func TestProposePhases(t *testing.T) {
	t.Parallel()

	e, _ := newTestEcho(t, draft.DefaultConfig())
	resp := decodeProposal(t, doJSON(t, e, http.MethodPost, "/v1/propose",
		`{"sequences":[
			{"tokens":[5,6,5,6],"phase":"encoding"},
			{"tokens":[5,6,7,5,6],"phase":"prefilled"},
			{"tokens":[5,6,7,5,6],"step_idx":2}
		]}`))

	enc := resp.Results[0]
	if enc.Count != 0 || enc.SeqLenThisTime != 4 || enc.Phase != "encoding" {
		t.Fatalf("encoding slot: %+v", enc)
	}
	pre := resp.Results[1]
	if pre.Phase != "decoding" {
		t.Fatalf("prefilled slot should move to decoding, got %q", pre.Phase)
	}
	if diff := cmp.Diff([]int32{7, 5, 6}, pre.Draft); diff != "" {
		t.Fatalf("prefilled draft mismatch (-want +got):\n%s", diff)
	}
	// Only [5,6] is committed, so nothing can match.
	if short := resp.Results[2]; short.Count != 0 {
		t.Fatalf("step_idx should bound the history, got %+v", short)
	}
}

func TestProposeValidationErrors(t *testing.T) {
	t.Parallel()

	cfg := draft.DefaultConfig()
	cfg.MaxBatchSize = 2
	cfg.MaxSeqLen = 8
	e, _ := newTestEcho(t, cfg)

	cases := []struct {
		name  string
		body  string
		param string
	}{
		{"malformed", `{"sequences":`, ""},
		{"empty", `{"sequences":[]}`, "sequences"},
		{"too many", `{"sequences":[{"tokens":[1]},{"tokens":[1]},{"tokens":[1]}]}`, "sequences"},
		{"empty tokens", `{"sequences":[{"tokens":[]}]}`, "sequences[0]"},
		{"too long", `{"sequences":[{"tokens":[1,2,3,4,5,6,7,8,9]}]}`, "sequences[0]"},
		{"idle", `{"sequences":[{"tokens":[1],"phase":"idle"}]}`, "sequences[0]"},
		{"unknown phase", `{"sequences":[{"tokens":[1],"phase":"sideways"}]}`, "sequences[0]"},
		{"negative step", `{"sequences":[{"tokens":[1],"step_idx":-1}]}`, "sequences[0]"},
		{"override above bound", `{"sequences":[{"tokens":[1]}],"max_draft_tokens":6}`, "max_draft_tokens"},
		{"override zero", `{"sequences":[{"tokens":[1]}],"max_draft_tokens":0}`, "max_draft_tokens"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, e, http.MethodPost, "/v1/propose", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d body=%s", rec.Code, rec.Body.String())
			}
			var body struct {
				Error ResponseError `json:"error"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if body.Error.Type != "invalid_request_error" {
				t.Fatalf("unexpected error type %q", body.Error.Type)
			}
			if body.Error.Param != tc.param {
				t.Fatalf("param: got %q want %q", body.Error.Param, tc.param)
			}
		})
	}
}

func TestProposeReleasesSlots(t *testing.T) {
	t.Parallel()

	e, server := newTestEcho(t, draft.DefaultConfig())
	decodeProposal(t, doJSON(t, e, http.MethodPost, "/v1/propose",
		`{"sequences":[{"tokens":[1,2,1]},{"tokens":[3,3]}]}`))

	state := server.proposer.State()
	for b := range 2 {
		if n := state.Len(b); n != 0 {
			t.Fatalf("slot %d still holds %d tokens", b, n)
		}
	}
}

func TestConfigStatsAndHealth(t *testing.T) {
	t.Parallel()

	e, _ := newTestEcho(t, draft.DefaultConfig())

	rec := doJSON(t, e, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("healthz: got %d body=%s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, e, http.MethodGet, "/v1/config", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("config status: got %d body=%s", rec.Code, rec.Body.String())
	}
	var cfg ConfigResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &cfg); err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if cfg.Config.MaxDraftTokens != draft.DefaultMaxDraftTokens || cfg.Config.MaxNgramSize != draft.DefaultMaxNgramSize {
		t.Fatalf("unexpected config: %+v", cfg.Config)
	}

	decodeProposal(t, doJSON(t, e, http.MethodPost, "/v1/propose",
		`{"sequences":[{"tokens":[1,2,3,4,1,2]},{"tokens":[1]}]}`))

	rec = doJSON(t, e, http.MethodGet, "/v1/stats", "")
	var stats StatsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.Calls != 1 || stats.Sequences != 2 || stats.DraftedTokens != 4 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
