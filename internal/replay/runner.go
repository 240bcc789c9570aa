package replay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/clutch/pkg/logger"
)

const (
	directoryPermission = 0750
	filePermission      = 0600
)

// Run executes a complete replay and returns its statistics.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	log := logger.Named("replay")
	stats := &Stats{StartTime: time.Now(), ByKind: make(map[string]int)}

	log.Info(ctx, "starting replay",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("rounds", cfg.Rounds),
		logger.Duration("interval", cfg.Interval),
		logger.Any("seed", cfg.Seed))

	client := newHTTPClient(cfg.Timeout)
	if err := checkServiceHealth(ctx, client, cfg.BaseURL); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	frames := Script(cfg.Rounds, cfg.Seed, cfg.Token)
	stats.FramesGenerated = len(frames)

	if err := submitFrames(ctx, cfg, client, frames, stats); err != nil {
		return stats, fmt.Errorf("frame submission failed: %w", err)
	}

	if cfg.Settle > 0 {
		log.Info(ctx, "waiting for queued requests to be served", logger.Duration("settle", cfg.Settle))
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case <-time.After(cfg.Settle):
		}
	}

	items, err := fetchNotifications(ctx, client, cfg.BaseURL)
	if err != nil {
		return stats, fmt.Errorf("notification retrieval failed: %w", err)
	}
	stats.Notifications = len(items)
	if cfg.Verbose {
		for i := len(items) - 1; i >= 0; i-- {
			log.Info(ctx, "coach said",
				logger.String("event", items[i].EventType),
				logger.String("source", items[i].Source),
				logger.String("text", items[i].Text))
		}
	}

	if cfg.OutputFile != "" {
		if err := saveFrames(cfg.OutputFile, frames); err != nil {
			log.Warn(ctx, "failed to save frames", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)
	return stats, nil
}

func checkServiceHealth(ctx context.Context, client *HTTPClient, baseURL string) error {
	resp, err := client.Get(ctx, baseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	return nil
}

// submitFrames posts frames in order. Order matters to the differencer, so
// there is no worker pool here.
func submitFrames(ctx context.Context, cfg *Config, client *HTTPClient, frames []Frame, stats *Stats) error {
	log := logger.Named("replay")
	url := cfg.BaseURL + "/gsi"

	for i := range frames {
		if i > 0 && cfg.Interval > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(cfg.Interval):
			}
		}

		events, err := postFrame(ctx, client, url, &frames[i])
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			stats.FramesFailed++
			log.Warn(ctx, "frame rejected",
				logger.Int("round", frames[i].Round),
				logger.String("frame", frames[i].Label),
				logger.Error(err))
			continue
		}
		stats.FramesPosted++

		for _, ev := range events {
			stats.EventsDetected++
			stats.ByKind[ev.Kind]++
			if ev.Admitted {
				stats.EventsAdmitted++
			}
			if ev.Queued {
				stats.EventsQueued++
			}
			if cfg.Verbose {
				log.Info(ctx, "event",
					logger.Int("round", frames[i].Round),
					logger.String("kind", ev.Kind),
					logger.String("priority", ev.Priority),
					logger.Bool("admitted", ev.Admitted),
					logger.String("reason", ev.Reason),
					logger.Bool("queued", ev.Queued))
			}
		}
	}
	return nil
}

func saveFrames(filename string, frames []Frame) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(frames, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal frames: %w", err)
	}
	return os.WriteFile(filename, data, filePermission)
}

func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var admitRate float64
	if stats.EventsDetected > 0 {
		admitRate = float64(stats.EventsAdmitted) / float64(stats.EventsDetected) * 100
	}
	log.Info(ctx, "final statistics",
		logger.Int("framesGenerated", stats.FramesGenerated),
		logger.Int("framesPosted", stats.FramesPosted),
		logger.Int("framesFailed", stats.FramesFailed),
		logger.Int("eventsDetected", stats.EventsDetected),
		logger.Int("eventsAdmitted", stats.EventsAdmitted),
		logger.Int("eventsQueued", stats.EventsQueued),
		logger.Any("byKind", stats.ByKind),
		logger.Int("notifications", stats.Notifications),
		logger.Duration("duration", stats.Duration),
		logger.Float64("admitRate", admitRate))
}
