package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/lookahead/internal/logger"
)

func main() {
	app := &cli.Command{
		Name:   "lookahead",
		Usage:  "N-gram draft proposer for speculative decoding",
		Flags:  loggingFlags(),
		Before: setup,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			proposeCmd(),
			replayCmd(),
			packCmd(),
			inspectCmd(),
			serveCmd(),
			versionCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the config file and installs the logger into the command context.
func setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	fileConfig = LoadConfig()
	applyLoggingConfig(cmd, fileConfig)

	level := logger.ParseLevel(logLevel)
	if debug {
		level = slog.LevelDebug
	}
	log := logger.New(logFormat, level, os.Stderr)
	return logger.WithContext(ctx, log), nil
}
