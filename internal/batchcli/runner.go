package batchcli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/guestrank/internal/domain/model"
	"github.com/okian/guestrank/pkg/logger"
)

// Run loads or generates guests, scores them in chunks and writes a report to out.
func Run(ctx context.Context, cfg *Config, out io.Writer) (Summary, error) {
	log := logger.Named("score-batch")
	start := time.Now()

	guests, err := guestsFor(cfg)
	if err != nil {
		return Summary{}, err
	}

	client := NewClient(cfg.BaseURL, cfg.Timeout)
	if err := client.Health(ctx); err != nil {
		return Summary{}, err
	}

	log.Info(ctx, "scoring guests",
		logger.String("base_url", cfg.BaseURL),
		logger.Int("guests", len(guests)),
		logger.Int("chunk_size", cfg.ChunkSize),
		logger.Int("workers", cfg.Workers),
		logger.Bool("force_refresh", cfg.ForceRefresh))

	sum := Summary{Reasons: map[string]int{}}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Workers, 1))
	for i, part := range chunk(guests, cfg.ChunkSize) {
		g.Go(func() error {
			resp, err := client.Batch(gctx, part, cfg.ForceRefresh)

			mu.Lock()
			defer mu.Unlock()
			sum.Requests++
			if err != nil {
				sum.Total += len(part)
				sum.Failed += len(part)
				sum.Errors = append(sum.Errors, fmt.Sprintf("chunk %d: %v", i, err))
				log.Warn(gctx, "chunk failed", logger.Int("chunk", i), logger.Error(err))
				return nil
			}
			sum.merge(resp)
			if cfg.Verbose {
				log.Info(gctx, "chunk scored", logger.Int("chunk", i),
					logger.Int("processed", resp.Processed), logger.Int("failed", resp.Failed))
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.SliceStable(sum.Top, func(a, b int) bool { return sum.Top[a].Score > sum.Top[b].Score })
	if cfg.Top >= 0 && len(sum.Top) > cfg.Top {
		sum.Top = sum.Top[:cfg.Top]
	}
	sum.Duration = time.Since(start)

	WriteSummary(out, sum)
	return sum, ctx.Err()
}

func guestsFor(cfg *Config) ([]model.Guest, error) {
	if cfg.GuestsFile != "" {
		return LoadGuests(cfg.GuestsFile)
	}
	if cfg.Generate <= 0 {
		return nil, ErrNoGuests
	}
	return GenerateGuests(cfg.Generate, cfg.OrganizationID, nil), nil
}

func (s *Summary) merge(resp BatchResponse) {
	s.Total += resp.Total
	s.Processed += resp.Processed
	s.Failed += resp.Failed
	for _, r := range resp.Results {
		if !r.Success || r.Data == nil {
			if r.Error != "" {
				s.Errors = append(s.Errors, r.GuestID+": "+r.Error)
			}
			continue
		}
		s.Reasons[r.Data.Reason]++
		if r.Data.Cached {
			s.Cached++
		}
		s.Top = append(s.Top, *r.Data)
	}
}

// WriteSummary prints a human readable report.
func WriteSummary(w io.Writer, s Summary) {
	fmt.Fprintf(w, "requests: %d  guests: %d  processed: %d  failed: %d  cached: %d  took: %s\n",
		s.Requests, s.Total, s.Processed, s.Failed, s.Cached, s.Duration.Round(time.Millisecond))

	reasons := make([]string, 0, len(s.Reasons))
	for r := range s.Reasons {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		fmt.Fprintf(w, "  %-8s %d\n", r, s.Reasons[r])
	}

	if len(s.Top) > 0 {
		fmt.Fprintln(w, "top guests:")
		for i, g := range s.Top {
			fmt.Fprintf(w, "  %3d. %-36s %6.2f\n", i+1, g.GuestID, g.Score)
		}
	}
	for _, e := range s.Errors {
		fmt.Fprintf(w, "error: %s\n", e)
	}
}
