package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/guestrank/internal/batchcli"
	"github.com/okian/guestrank/pkg/logger"
)

const (
	defaultGenerate  = 100
	defaultChunkSize = 50
	defaultWorkers   = 4
	defaultTop       = 10
	defaultTimeout   = 2 * time.Minute
	runTimeout       = 30 * time.Minute
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:9080", "Base URL of the service")
		file      = flag.String("guests", "", "YAML or JSON file with a top-level guests list")
		generate  = flag.Int("generate", defaultGenerate, "Synthetic guests to generate when -guests is not set")
		org       = flag.String("org", "", "Organization id stamped on generated guests")
		chunkSize = flag.Int("chunk", defaultChunkSize, "Guests per batch request")
		workers   = flag.Int("workers", defaultWorkers, "Concurrent batch requests")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		force     = flag.Bool("force", false, "Bypass the score cache")
		top       = flag.Int("top", defaultTop, "Highest scores to print")
		verbose   = flag.Bool("verbose", false, "Log every chunk")
		logFormat = flag.String("log-format", "text", "Log format: text or json")
	)
	flag.Parse()

	if err := logger.InitWithOptions(logger.Options{Format: *logFormat, Writer: os.Stderr}); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	sum, err := batchcli.Run(ctx, &batchcli.Config{
		BaseURL:        *baseURL,
		GuestsFile:     *file,
		Generate:       *generate,
		OrganizationID: *org,
		ChunkSize:      *chunkSize,
		Workers:        *workers,
		Timeout:        *timeout,
		ForceRefresh:   *force,
		Top:            *top,
		Verbose:        *verbose,
	}, os.Stdout)
	if err != nil {
		os.Stderr.WriteString("score-batch: " + err.Error() + "\n")
		cancel()
		stop()
		os.Exit(1)
	}
	if sum.Failed > 0 {
		cancel()
		stop()
		os.Exit(1)
	}
}
