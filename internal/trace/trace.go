// Package trace loads recorded requests (a prompt plus the output the target
// model produced for it) used to replay speculative decoding offline.
package trace

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/samcharles93/lookahead/internal/speculate"
	"github.com/samcharles93/lookahead/pkg/tokpack"
)

var ErrInvalidRecord = errors.New("invalid trace record")

// Record is one recorded request.
type Record struct {
	ID     string  `json:"id,omitempty" yaml:"id,omitempty"`
	Prompt []int32 `json:"prompt" yaml:"prompt"`
	Output []int32 `json:"output" yaml:"output"`
}

func (r *Record) normalize(line int) error {
	if len(r.Prompt) == 0 {
		return fmt.Errorf("%w: record %d has an empty prompt", ErrInvalidRecord, line)
	}
	if r.ID == "" {
		r.ID = "req_" + uuid.NewString()
	}
	return nil
}

// LoadJSONL reads one JSON record per line. Blank lines are skipped.
func LoadJSONL(r io.Reader) ([]Record, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)

	var out []Record
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if err := rec.normalize(line); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadJSON reads a JSON array of records.
func LoadJSON(r io.Reader) ([]Record, error) {
	var out []Record
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, err
	}
	for i := range out {
		if err := out[i].normalize(i + 1); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// LoadYAML reads a YAML list of records.
func LoadYAML(r io.Reader) ([]Record, error) {
	var out []Record
	if err := yaml.NewDecoder(r).Decode(&out); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	for i := range out {
		if err := out[i].normalize(i + 1); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// LoadPack reads every entry of a token pack. The tokens are copied so the
// records outlive the mapping.
func LoadPack(path string) ([]Record, error) {
	f, err := tokpack.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	out := make([]Record, 0, f.Len())
	for i := range f.Len() {
		prompt, output, _ := f.Entry(i)
		rec := Record{
			ID:     fmt.Sprintf("%s#%d", filepath.Base(path), i),
			Prompt: append([]int32(nil), prompt...),
			Output: append([]int32(nil), output...),
		}
		if err := rec.normalize(i + 1); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Load picks a reader by file extension.
func Load(path string) ([]Record, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".tkp" {
		return LoadPack(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	switch ext {
	case ".jsonl", ".ndjson":
		return LoadJSONL(f)
	case ".json":
		return LoadJSON(f)
	case ".yaml", ".yml":
		return LoadYAML(f)
	default:
		return nil, fmt.Errorf("unsupported trace format %q", ext)
	}
}

// WritePack stores records in a token pack at path. Record IDs are not kept.
func WritePack(path string, records []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w, err := tokpack.NewWriter(f)
	if err != nil {
		_ = f.Close()
		return err
	}
	for i, rec := range records {
		if err := w.Add(rec.Prompt, rec.Output); err != nil {
			_ = f.Close()
			return fmt.Errorf("record %d: %w", i, err)
		}
	}
	if err := w.Finalise(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// ToRequests turns records into replay requests. maxNewTokens <= 0 replays
// each recorded output in full.
func ToRequests(records []Record, maxNewTokens int) []speculate.Request {
	out := make([]speculate.Request, len(records))
	for i, rec := range records {
		out[i] = speculate.Request{
			ID:           rec.ID,
			Prompt:       rec.Prompt,
			Reference:    rec.Output,
			MaxNewTokens: maxNewTokens,
		}
	}
	return out
}
