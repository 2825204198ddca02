package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const envPackOutDir = "LOOKAHEAD_PACK_OUT_DIR"

// resolvePackOut picks the output path for a packed trace. An explicit
// output wins; otherwise the trace's base name is placed under
// $LOOKAHEAD_PACK_OUT_DIR or ./out with a .tkp extension. The second return
// value reports whether the path was defaulted.
func resolvePackOut(inPath, outFlag string) (string, bool, error) {
	outFlag = strings.TrimSpace(outFlag)
	if outFlag != "" {
		outPath := filepath.Clean(outFlag)
		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			return "", false, err
		}
		return outPath, false, nil
	}

	base := filepath.Base(filepath.Clean(inPath))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "", true, fmt.Errorf("invalid input path: %q", inPath)
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))

	outDir := strings.TrimSpace(os.Getenv(envPackOutDir))
	if outDir == "" {
		outDir = filepath.Join(".", "out")
	}

	outPath := filepath.Join(outDir, base+".tkp")
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", true, err
	}
	return outPath, true, nil
}
