package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/lookahead/internal/draft"
	"github.com/samcharles93/lookahead/internal/logger"
)

type proposal struct {
	Sequence       int     `json:"sequence"`
	Draft          []int32 `json:"draft"`
	SeqLenThisTime int     `json:"seq_len_this_time"`
}

func proposeCmd() *cli.Command {
	var (
		tokens string
		asJSON bool
	)

	flags := append([]cli.Flag{}, proposerFlags()...)
	flags = append(flags,
		&cli.StringFlag{
			Name:        "tokens",
			Aliases:     []string{"t"},
			Usage:       "token ids of one sequence; reads one sequence per line from stdin when omitted",
			Destination: &tokens,
		},
		&cli.BoolFlag{
			Name:        "json",
			Usage:       "print proposals as JSON lines",
			Destination: &asJSON,
		},
	)

	return &cli.Command{
		Name:  "propose",
		Usage: "Propose draft tokens for decoding sequences",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyProposerConfig(cmd, fileConfig)

			seqs, err := collectSequences(tokens, os.Stdin)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: read tokens: %v", err), 1)
			}
			if len(seqs) == 0 {
				return cli.Exit("error: no token sequences given", 1)
			}

			cfg := proposerConfig()
			if len(seqs) > cfg.MaxBatchSize {
				cfg.MaxBatchSize = len(seqs)
			}
			p, err := draft.New(cfg)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			log.Debug("proposer ready", "method", p.Config().Method, "sequences", len(seqs))

			out, err := proposeOnce(p, seqs)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: propose: %v", err), 1)
			}
			return printProposals(os.Stdout, out, asJSON)
		},
	}
}

func collectSequences(flagTokens string, stdin io.Reader) ([][]int32, error) {
	if strings.TrimSpace(flagTokens) == "" {
		return readSequences(stdin)
	}
	toks, err := parseTokens(flagTokens)
	if err != nil {
		return nil, err
	}
	return [][]int32{toks}, nil
}

// proposeOnce runs a single decoding step with every sequence fully committed.
func proposeOnce(p draft.Proposer, seqs [][]int32) ([]proposal, error) {
	state := p.State()
	step := draft.NewStep(len(seqs))
	for b, seq := range seqs {
		if err := state.Reset(b, seq); err != nil {
			return nil, err
		}
		step.StepIdx[b] = len(seq)
		step.SeqLensThisTime[b] = 1
		step.Phases[b] = draft.PhaseDecoding
	}
	drafts, err := p.Propose(step)
	if err != nil {
		return nil, err
	}
	out := make([]proposal, len(seqs))
	for b := range seqs {
		out[b] = proposal{
			Sequence:       b,
			Draft:          append([]int32{}, drafts.Draft(b)...),
			SeqLenThisTime: step.SeqLensThisTime[b],
		}
	}
	return out, nil
}

func printProposals(w io.Writer, out []proposal, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		for _, p := range out {
			if err := enc.Encode(p); err != nil {
				return err
			}
		}
		return nil
	}
	for _, p := range out {
		_, _ = fmt.Fprintf(w, "%d: draft=%s seq_len=%d\n", p.Sequence, formatTokens(p.Draft), p.SeqLenThisTime)
	}
	return nil
}
