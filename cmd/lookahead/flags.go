package main

import (
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/lookahead/internal/draft"
)

var (
	method         string
	maxDraftTokens int64
	maxNgramSize   int64
	maxBatchSize   int64
	maxSeqLen      int64
	workers        int64
	logLevel       string
	logFormat      string
	debug          bool
)

func proposerFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "method",
			Usage:       "draft method (ngram, inference_with_reference, none)",
			Value:       draft.MethodNgram,
			Destination: &method,
		},
		&cli.Int64Flag{
			Name:        "max-draft-tokens",
			Aliases:     []string{"k"},
			Usage:       "most draft tokens proposed per sequence per step",
			Value:       draft.DefaultMaxDraftTokens,
			Destination: &maxDraftTokens,
		},
		&cli.Int64Flag{
			Name:        "max-ngram-size",
			Aliases:     []string{"n"},
			Usage:       "longest trailing n-gram to match",
			Value:       draft.DefaultMaxNgramSize,
			Destination: &maxNgramSize,
		},
		&cli.Int64Flag{
			Name:        "max-batch-size",
			Aliases:     []string{"batch"},
			Usage:       "number of sequence slots",
			Value:       draft.DefaultMaxBatchSize,
			Destination: &maxBatchSize,
		},
		&cli.Int64Flag{
			Name:        "max-seq-len",
			Aliases:     []string{"ctx"},
			Usage:       "token capacity of each slot",
			Value:       draft.DefaultMaxSeqLen,
			Destination: &maxSeqLen,
		},
		&cli.Int64Flag{
			Name:        "workers",
			Usage:       "goroutines used to match slots (<= 1 is sequential)",
			Value:       1,
			Destination: &workers,
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

// proposerConfig builds the proposer configuration from the flag variables.
func proposerConfig() draft.Config {
	return draft.Config{
		Method:         method,
		MaxDraftTokens: int(maxDraftTokens),
		MaxNgramSize:   int(maxNgramSize),
		MaxBatchSize:   int(maxBatchSize),
		MaxSeqLen:      int(maxSeqLen),
		Workers:        int(workers),
	}
}
