package main

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// parseTokens accepts ids separated by commas and/or whitespace, optionally
// wrapped in brackets ("1,2,3", "1 2 3", "[1, 2, 3]").
func parseTokens(s string) ([]int32, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	out := make([]int32, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseInt(f, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid token %q", f)
		}
		if v < 0 || v > math.MaxInt32 {
			return nil, fmt.Errorf("token %d out of range", v)
		}
		out = append(out, int32(v))
	}
	return out, nil
}

// readSequences parses one token sequence per non-empty line.
func readSequences(r io.Reader) ([][]int32, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	var out [][]int32
	line := 0
	for sc.Scan() {
		line++
		if strings.TrimSpace(sc.Text()) == "" {
			continue
		}
		toks, err := parseTokens(sc.Text())
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, toks)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func formatTokens(toks []int32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, t := range toks {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.FormatInt(int64(t), 10))
	}
	b.WriteByte(']')
	return b.String()
}
