package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/lookahead/internal/draft"
	"github.com/samcharles93/lookahead/internal/logger"
	"github.com/samcharles93/lookahead/internal/speculate"
	"github.com/samcharles93/lookahead/internal/trace"
)

type replayRun struct {
	Method string          `json:"method"`
	Stats  speculate.Stats `json:"-"`

	Requests       int     `json:"requests"`
	BatchSteps     int     `json:"batch_steps"`
	Steps          int     `json:"steps"`
	Drafted        int     `json:"drafted"`
	Accepted       int     `json:"accepted"`
	Generated      int     `json:"generated"`
	AcceptanceRate float64 `json:"acceptance_rate"`
	TokensPerStep  float64 `json:"tokens_per_step"`
	ElapsedMS      int64   `json:"elapsed_ms"`
}

func newReplayRun(method string, s speculate.Stats) replayRun {
	return replayRun{
		Method:         method,
		Stats:          s,
		Requests:       s.Requests,
		BatchSteps:     s.BatchSteps,
		Steps:          s.Steps,
		Drafted:        s.Drafted,
		Accepted:       s.Accepted,
		Generated:      s.Generated,
		AcceptanceRate: s.AcceptanceRate(),
		TokensPerStep:  s.TokensPerStep(),
		ElapsedMS:      s.Duration.Milliseconds(),
	}
}

func replayCmd() *cli.Command {
	var (
		maxNewTokens int64
		baseline     bool
		perRequest   bool
		asJSON       bool
	)

	flags := append([]cli.Flag{}, proposerFlags()...)
	flags = append(flags,
		&cli.Int64Flag{
			Name:        "max-new-tokens",
			Usage:       "cap generated tokens per request (0 replays each recorded output in full)",
			Destination: &maxNewTokens,
		},
		&cli.BoolFlag{
			Name:        "baseline",
			Usage:       "also replay without drafting for comparison",
			Destination: &baseline,
		},
		&cli.BoolFlag{
			Name:        "per-request",
			Usage:       "list statistics for every request",
			Destination: &perRequest,
		},
		&cli.BoolFlag{
			Name:        "json",
			Usage:       "print the summary as JSON",
			Destination: &asJSON,
		},
	)

	return &cli.Command{
		Name:      "replay",
		Usage:     "Replay a recorded trace through the draft proposer",
		ArgsUsage: "<trace>",
		Flags:     flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyProposerConfig(cmd, fileConfig)

			path := cmd.Args().First()
			if path == "" {
				return cli.Exit("error: a trace path is required", 1)
			}
			records, err := trace.Load(path)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: load trace: %v", err), 1)
			}
			reqs := trace.ToRequests(records, int(maxNewTokens))
			log.Info("loaded trace", "path", path, "requests", len(reqs))

			cfg := proposerConfig()
			runs := make([]replayRun, 0, 2)
			run, err := replayWith(ctx, cfg, reqs)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: replay: %v", err), 1)
			}
			runs = append(runs, run)

			if baseline && run.Method != draft.MethodNone {
				cfg.Method = draft.MethodNone
				base, err := replayWith(ctx, cfg, reqs)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: baseline replay: %v", err), 1)
				}
				runs = append(runs, base)
			}

			if asJSON {
				return json.NewEncoder(os.Stdout).Encode(runs)
			}
			printReplaySummary(os.Stdout, runs)
			if perRequest {
				_, _ = fmt.Fprintln(os.Stdout)
				printRequestStats(os.Stdout, run.Stats.PerRequest)
			}
			return nil
		},
	}
}

func replayWith(ctx context.Context, cfg draft.Config, reqs []speculate.Request) (replayRun, error) {
	p, err := draft.New(cfg)
	if err != nil {
		return replayRun{}, err
	}
	loop := speculate.Loop{Proposer: p}
	stats, err := loop.Run(ctx, reqs)
	if err != nil {
		return replayRun{}, err
	}
	return newReplayRun(p.Config().Method, stats), nil
}

func printReplaySummary(w io.Writer, runs []replayRun) {
	data := make([][]string, 0, len(runs))
	for _, r := range runs {
		data = append(data, []string{
			r.Method,
			strconv.Itoa(r.Requests),
			strconv.Itoa(r.BatchSteps),
			strconv.Itoa(r.Steps),
			strconv.Itoa(r.Generated),
			strconv.Itoa(r.Drafted),
			strconv.Itoa(r.Accepted),
			fmt.Sprintf("%.1f%%", 100*r.AcceptanceRate),
			fmt.Sprintf("%.3f", r.TokensPerStep),
			r.Stats.Duration.String(),
		})
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"METHOD", "REQUESTS", "BATCH STEPS", "STEPS", "GENERATED", "DRAFTED", "ACCEPTED", "ACCEPTANCE", "TOKENS/STEP", "ELAPSED"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()
}

func printRequestStats(w io.Writer, reqs []speculate.RequestStats) {
	data := make([][]string, 0, len(reqs))
	for _, r := range reqs {
		data = append(data, []string{
			r.ID,
			strconv.Itoa(r.Slot),
			strconv.Itoa(r.PromptTokens),
			strconv.Itoa(r.Generated),
			strconv.Itoa(r.Steps),
			fmt.Sprintf("%d/%d", r.Accepted, r.Drafted),
			fmt.Sprintf("%.3f", r.TokensPerStep()),
		})
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "SLOT", "PROMPT", "GENERATED", "STEPS", "ACCEPTED", "TOKENS/STEP"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()
}
