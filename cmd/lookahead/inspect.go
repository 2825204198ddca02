package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/lookahead/pkg/tokpack"
)

const previewTokens = 8

func inspectCmd() *cli.Command {
	var limit int64

	return &cli.Command{
		Name:      "inspect",
		Usage:     "Inspect a .tkp token pack",
		ArgsUsage: "<file.tkp>",
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:        "limit",
				Usage:       "number of entries to list (0 lists none, -1 lists all)",
				Value:       20,
				Destination: &limit,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.Args().First()
			if path == "" {
				return cli.Exit("error: a .tkp path is required", 1)
			}
			f, err := tokpack.Open(path)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: open %s: %v", path, err), 1)
			}
			defer func() { _ = f.Close() }()

			printPackSummary(os.Stdout, path, f)
			if limit != 0 {
				_, _ = fmt.Fprintln(os.Stdout)
				printPackEntries(os.Stdout, f, int(limit))
			}
			return nil
		},
	}
}

func printPackSummary(w io.Writer, path string, f *tokpack.File) {
	h := f.Header
	table := tablewriter.NewWriter(w)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding(" ")
	table.AppendBulk([][]string{
		{"File:", path},
		{"Version:", fmt.Sprintf("%d.%d", h.Major, h.Minor)},
		{"Entries:", strconv.Itoa(f.Len())},
		{"Tokens:", strconv.Itoa(f.TotalTokens())},
		{"Size:", strconv.FormatUint(h.FileSize, 10) + " bytes"},
	})
	table.Render()
}

func printPackEntries(w io.Writer, f *tokpack.File, limit int) {
	n := f.Len()
	if limit > 0 {
		n = min(n, limit)
	}
	data := make([][]string, 0, n)
	for i := range n {
		prompt, output, _ := f.Entry(i)
		data = append(data, []string{
			strconv.Itoa(i),
			strconv.Itoa(len(prompt)),
			strconv.Itoa(len(output)),
			previewOf(prompt),
		})
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ENTRY", "PROMPT", "OUTPUT", "PROMPT TOKENS"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()

	if n < f.Len() {
		_, _ = fmt.Fprintf(w, "... %d more\n", f.Len()-n)
	}
}

func previewOf(toks []int32) string {
	if len(toks) <= previewTokens {
		return formatTokens(toks)
	}
	s := formatTokens(toks[:previewTokens])
	return s[:len(s)-1] + fmt.Sprintf(" …+%d]", len(toks)-previewTokens)
}
