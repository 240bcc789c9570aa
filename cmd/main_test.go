package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	service "github.com/okian/clutch/internal/app"
	"github.com/okian/clutch/internal/config"
	"github.com/okian/clutch/pkg/logger"
	"github.com/okian/clutch/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smartystreets/goconvey/convey"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.New()
	cfg.Addr = "127.0.0.1:0"
	cfg.ShutdownTimeout = 2 * time.Second
	cfg.Memory.Path = filepath.Join(t.TempDir(), "memory.json.zst")
	return cfg
}

func TestNewHTTPServer(t *testing.T) {
	convey.Convey("Given a configured service", t, func() {
		cfg := testConfig(t)
		svc, err := service.New(service.WithConfig(cfg), service.WithLogger(logger.Nop()))
		convey.So(err, convey.ShouldBeNil)

		srv := newHTTPServer(context.Background(), cfg, svc)

		convey.Convey("Then the server carries the configured timeouts", func() {
			convey.So(srv.Addr, convey.ShouldEqual, cfg.Addr)
			convey.So(srv.ReadHeaderTimeout, convey.ShouldEqual, readHeaderTimeout)
			convey.So(srv.WriteTimeout, convey.ShouldEqual, writeTimeout)
		})

		convey.Convey("Then the coaching routes are registered", func() {
			for _, path := range []string{"/status", "/stats", "/notifications", "/healthz"} {
				w := httptest.NewRecorder()
				srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			}
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a cancelled root context", t, func() {
		cfg := testConfig(t)
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- run(ctx, cfg, logger.Nop()) }()

		time.Sleep(50 * time.Millisecond)
		cancel()

		convey.Convey("Then run shuts down cleanly", func() {
			select {
			case err := <-done:
				convey.So(err, convey.ShouldBeNil)
			case <-time.After(5 * time.Second):
				convey.So("run did not return", convey.ShouldBeEmpty)
			}
		})
	})

	convey.Convey("Given an address that cannot be bound", t, func() {
		cfg := testConfig(t)
		cfg.Addr = "256.0.0.1:99999"

		convey.Convey("Then run reports the listen failure", func() {
			err := run(context.Background(), cfg, logger.Nop())
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestMetricsUpdaters(t *testing.T) {
	convey.Convey("Given the background metric updaters", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		convey.Convey("Then they stop with their context", func() {
			convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})

		convey.Convey("Then an isolated metrics manager can be built", func() {
			manager := metrics.NewManager(metrics.WithPrometheusRegistry(prometheus.NewRegistry()))
			convey.So(manager, convey.ShouldNotBeNil)
		})
	})
}
