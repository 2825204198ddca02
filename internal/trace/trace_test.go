package trace

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadJSONL(t *testing.T) {
	t.Parallel()

	in := `{"id":"a","prompt":[1,2,3],"output":[4,5]}

{"prompt":[9],"output":[]}
`
	recs, err := LoadJSONL(strings.NewReader(in))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("records: got %d want 2", len(recs))
	}
	if diff := cmp.Diff(Record{ID: "a", Prompt: []int32{1, 2, 3}, Output: []int32{4, 5}}, recs[0]); diff != "" {
		t.Fatalf("record 0 (-want +got):\n%s", diff)
	}
	if !strings.HasPrefix(recs[1].ID, "req_") {
		t.Fatalf("expected generated id, got %q", recs[1].ID)
	}
}

func TestLoadRejectsEmptyPrompt(t *testing.T) {
	t.Parallel()

	_, err := LoadJSONL(strings.NewReader(`{"id":"x","prompt":[],"output":[1]}`))
	if !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord, got %v", err)
	}
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()

	in := `
- id: first
  prompt: [5, 6, 5]
  output: [6, 5]
- prompt: [1]
  output: [2]
`
	recs, err := LoadYAML(strings.NewReader(in))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(recs) != 2 || recs[0].ID != "first" {
		t.Fatalf("unexpected records: %+v", recs)
	}
	if diff := cmp.Diff([]int32{6, 5}, recs[0].Output); diff != "" {
		t.Fatalf("output (-want +got):\n%s", diff)
	}
}

func TestPackRoundTripThroughLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "trace.json")
	if err := os.WriteFile(src, []byte(`[{"id":"a","prompt":[1,2],"output":[3]},{"id":"b","prompt":[4],"output":[5,6]}]`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	recs, err := Load(src)
	if err != nil {
		t.Fatalf("load json: %v", err)
	}

	packed := filepath.Join(dir, "trace.tkp")
	if err := WritePack(packed, recs); err != nil {
		t.Fatalf("write pack: %v", err)
	}
	back, err := Load(packed)
	if err != nil {
		t.Fatalf("load pack: %v", err)
	}
	if len(back) != len(recs) {
		t.Fatalf("records: got %d want %d", len(back), len(recs))
	}
	for i := range recs {
		if diff := cmp.Diff(recs[i].Prompt, back[i].Prompt); diff != "" {
			t.Fatalf("record %d prompt (-want +got):\n%s", i, diff)
		}
		if diff := cmp.Diff(recs[i].Output, back[i].Output); diff != "" {
			t.Fatalf("record %d output (-want +got):\n%s", i, diff)
		}
	}
	if back[1].ID != "trace.tkp#1" {
		t.Fatalf("pack id: got %q", back[1].ID)
	}
}

func TestLoadUnknownExtension(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "trace.csv")
	if err := os.WriteFile(p, []byte("1,2"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(p); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
}

func TestToRequests(t *testing.T) {
	t.Parallel()

	recs := []Record{
		{ID: "a", Prompt: []int32{1, 2}, Output: []int32{3}},
		{ID: "b", Prompt: []int32{4}, Output: []int32{5, 6}},
	}
	reqs := ToRequests(recs, 7)
	if len(reqs) != 2 {
		t.Fatalf("requests: got %d want 2", len(reqs))
	}
	if reqs[1].ID != "b" || reqs[1].MaxNewTokens != 7 {
		t.Fatalf("unexpected request: %+v", reqs[1])
	}
	if diff := cmp.Diff([]int32{5, 6}, reqs[1].Reference); diff != "" {
		t.Fatalf("reference mismatch (-want +got):\n%s", diff)
	}
}
