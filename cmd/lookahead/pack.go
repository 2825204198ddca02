package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/lookahead/internal/logger"
	"github.com/samcharles93/lookahead/internal/trace"
)

func packCmd() *cli.Command {
	var (
		in  string
		out string
	)

	return &cli.Command{
		Name:  "pack",
		Usage: "Pack a JSONL/JSON/YAML trace into a .tkp token pack",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "in",
				Aliases:     []string{"i"},
				Usage:       "input trace (.jsonl, .json, .yaml)",
				Destination: &in,
			},
			&cli.StringFlag{
				Name:        "out",
				Aliases:     []string{"o"},
				Usage:       "output .tkp path (defaults to $" + envPackOutDir + " or ./out)",
				Destination: &out,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			if in == "" {
				in = cmd.Args().First()
			}
			if in == "" {
				return cli.Exit("error: --in is required", 1)
			}

			records, err := trace.Load(in)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: load trace: %v", err), 1)
			}
			outPath, defaulted, err := resolvePackOut(in, out)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: resolve output: %v", err), 1)
			}
			if defaulted {
				log.Info("no --out given, using default", "path", outPath)
			}
			if err := trace.WritePack(outPath, records); err != nil {
				return cli.Exit(fmt.Sprintf("error: write pack: %v", err), 1)
			}

			tokens := 0
			for _, r := range records {
				tokens += len(r.Prompt) + len(r.Output)
			}
			log.Info("packed trace", "records", len(records), "tokens", tokens, "path", outPath)
			return nil
		},
	}
}
