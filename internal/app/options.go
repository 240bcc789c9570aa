package service

import (
	"time"

	"github.com/okian/clutch/internal/adapters/inference"
	"github.com/okian/clutch/internal/adapters/notify"
	"github.com/okian/clutch/internal/config"
	"github.com/okian/clutch/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig sets the process configuration. Defaults come from config.New.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.cfg = cfg
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithGenerator backs inference with gen instead of the configured provider.
func WithGenerator(gen inference.Generator) Option {
	return func(s *Service) {
		s.gen = gen
	}
}

// WithSink adds a notification sink.
func WithSink(sink notify.Sink) Option {
	return func(s *Service) {
		if sink != nil {
			s.sinks = append(s.sinks, sink)
		}
	}
}

// WithClock overrides time.Now for the orchestrator, memory and notifications.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
