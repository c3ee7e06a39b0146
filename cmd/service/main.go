package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/wind-weibull-service/internal/analysis"
	"github.com/kjstillabower/wind-weibull-service/internal/cache"
	"github.com/kjstillabower/wind-weibull-service/internal/circuitbreaker"
	"github.com/kjstillabower/wind-weibull-service/internal/config"
	"github.com/kjstillabower/wind-weibull-service/internal/dataset"
	httphandler "github.com/kjstillabower/wind-weibull-service/internal/http"
	"github.com/kjstillabower/wind-weibull-service/internal/lifecycle"
	"github.com/kjstillabower/wind-weibull-service/internal/observability"
	"github.com/kjstillabower/wind-weibull-service/internal/service"
)

const version = "0.1.0"

func main() {
	logger, err := observability.NewLogger("service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	ds, err := dataset.Load(cfg.DataPath)
	if err != nil {
		logger.Fatal("dataset", zap.Error(err))
	}
	logger.Info("dataset loaded", zap.String("path", cfg.DataPath), zap.Int("records", ds.Len()))

	a, err := newApp(cfg, ds, logger)
	if err != nil {
		logger.Fatal("wiring", zap.Error(err))
	}
	srv, state, analysisService, memcacheCloser := a.srv, a.state, a.analyses, a.memcache

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cities := cfg.Cities
	if len(cities) == 0 {
		cities = ds.Cities()
	}
	if cfg.WarmCache {
		warmer := cache.NewWarmer(analysisService, logger)
		warmCtx, warmCancel := context.WithTimeout(ctx, 30*time.Second)
		if err := warmer.Warm(warmCtx, cities, cfg.Variables); err != nil {
			logger.Warn("cache warming failed", zap.Error(err))
		}
		warmCancel()
		if cfg.WarmInterval > 0 {
			go func() {
				err := warmer.WarmPeriodic(ctx, cities, cfg.Variables, cfg.WarmInterval)
				if err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("periodic cache warming stopped", zap.Error(err))
				}
			}()
		}
	}
	state.Set(lifecycle.Serving)

	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	state.Set(lifecycle.Draining)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	logger.Info("waiting for in-flight requests", zap.Int64("count", httphandler.InFlightCount()))
	if err := httphandler.WaitForInFlight(shutdownCtx, 50*time.Millisecond); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}

	if memcacheCloser != nil {
		if err := memcacheCloser.Close(); err != nil {
			logger.Error("memcached close", zap.Error(err))
		}
	}
	logger.Info("shutdown complete")

	if err := observability.FlushTelemetry(logger); err != nil {
		fmt.Fprintf(os.Stderr, "telemetry flush: %v\n", err)
	}
}

// app is the wired service: the HTTP server plus the pieces main drives
// through startup, warming and shutdown.
type app struct {
	srv      *http.Server
	state    *lifecycle.State
	analyses *service.AnalysisService
	memcache *cache.MemcachedCache // nil unless the memcached backend is selected
}

func newApp(cfg *config.Config, ds *dataset.Dataset, logger *zap.Logger) (*app, error) {
	analyzer := analysis.New(ds, analysis.Options{
		Method:        cfg.Estimator,
		WindVariable:  cfg.WindVariable,
		DensityStep:   cfg.DensityStep,
		HistogramBins: cfg.HistogramBins,
	}, logger)

	var cacheSvc cache.Cache
	var memcacheCloser *cache.MemcachedCache
	switch cfg.CacheBackend {
	case "memcached":
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		if err != nil {
			return nil, fmt.Errorf("memcached cache: %w", err)
		}
		memcacheCloser = mc
		cacheSvc = mc
		logger.Info("cache backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
		if cfg.CircuitBreakerEnabled {
			cb := circuitbreaker.New(circuitbreaker.Config{
				Name:             "memcached",
				FailureThreshold: cfg.CircuitBreakerFailureThreshold,
				SuccessThreshold: cfg.CircuitBreakerSuccessThreshold,
				Timeout:          cfg.CircuitBreakerTimeout,
				OnStateChange: func(from, to circuitbreaker.State) {
					observability.RecordBreakerTransition(from.String(), to.String(), int(to))
					logger.Warn("cache circuit breaker transition", zap.Stringer("from", from), zap.Stringer("to", to))
				},
			})
			cacheSvc = cache.NewBreakerCache(mc, cb)
			logger.Info("cache circuit breaker enabled",
				zap.Int("failure_threshold", cfg.CircuitBreakerFailureThreshold),
				zap.Duration("timeout", cfg.CircuitBreakerTimeout))
		}
	default:
		cacheSvc = cache.NewInMemoryCache()
		logger.Info("cache backend: in_memory")
	}
	analysisService := service.NewAnalysisService(analyzer, cacheSvc, cfg.CacheTTL, cfg.RequestTimeout)

	state := &lifecycle.State{}
	healthConfig := &httphandler.HealthConfig{State: state, Version: version}
	if memcacheCloser != nil {
		healthConfig.CachePing = memcacheCloser.Ping
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	handler := httphandler.NewHandler(analysisService, healthConfig, logger, httphandler.Limits{
		CityMinLength:   cfg.CityMinLength,
		CityMaxLength:   cfg.CityMaxLength,
		SampleMaxValues: cfg.SampleMaxValues,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      httphandler.WithCORS(httphandler.NewRouter(handler, logger, limiter, cfg.RequestTimeout), cfg.CORSOrigins),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
	}
	return &app{srv: srv, state: state, analyses: analysisService, memcache: memcacheCloser}, nil
}
