package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/clutch/internal/replay"
	"github.com/okian/clutch/pkg/logger"
)

const (
	defaultRounds   = 6
	defaultInterval = 500 * time.Millisecond
	defaultSettle   = 3 * time.Second
	defaultTimeout  = 10 * time.Second
	runTimeout      = 30 * time.Minute
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:3000", "Base URL of the service")
		rounds    = flag.Int("rounds", defaultRounds, "Rounds to script")
		interval  = flag.Duration("interval", defaultInterval, "Pause between documents")
		settle    = flag.Duration("settle", defaultSettle, "Wait before reading notifications")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		token     = flag.String("token", "", "auth.token to embed in every document")
		seed      = flag.Uint64("seed", 1, "Script seed")
		output    = flag.String("output", "", "Write the rendered documents to this file")
		logFormat = flag.String("log-format", "text", "text or json")
		verbose   = flag.Bool("verbose", false, "Log every event and notification")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		replay.ShowHelp()
		return
	}

	if err := logger.Init(logger.WithFormat(*logFormat)); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	cfg := &replay.Config{
		BaseURL:    *baseURL,
		Rounds:     *rounds,
		Interval:   *interval,
		Settle:     *settle,
		Timeout:    *timeout,
		Token:      *token,
		Seed:       *seed,
		OutputFile: *output,
		Verbose:    *verbose,
	}
	if _, err := replay.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("Replay failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
