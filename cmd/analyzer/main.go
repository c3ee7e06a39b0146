package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/wind-weibull-service/internal/analysis"
	"github.com/kjstillabower/wind-weibull-service/internal/artifact"
	"github.com/kjstillabower/wind-weibull-service/internal/config"
	"github.com/kjstillabower/wind-weibull-service/internal/dataset"
	"github.com/kjstillabower/wind-weibull-service/internal/observability"
)

func main() {
	logger, err := observability.NewLogger("analyzer")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	code := run(logger)
	if err := observability.FlushTelemetry(logger); err != nil {
		fmt.Fprintf(os.Stderr, "telemetry flush: %v\n", err)
	}
	os.Exit(code)
}

func run(logger *zap.Logger) int {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("config", zap.Error(err))
		return 1
	}

	ds, err := dataset.Load(cfg.DataPath)
	if err != nil {
		logger.Error("dataset", zap.Error(err))
		return 1
	}
	cities := cfg.Cities
	if len(cities) == 0 {
		cities = ds.Cities()
	}
	logger.Info("dataset loaded",
		zap.String("path", cfg.DataPath),
		zap.Int("records", ds.Len()),
		zap.Int("cities", len(cities)),
		zap.Int("variables", len(cfg.Variables)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	analyzer := analysis.New(ds, analysis.Options{
		Method:        cfg.Estimator,
		WindVariable:  cfg.WindVariable,
		DensityStep:   cfg.DensityStep,
		HistogramBins: cfg.HistogramBins,
	}, logger)
	writer := artifact.NewWriter(cfg.HistogramsDir, cfg.OutputDir, logger)

	start := time.Now()
	var written, flagged, failed int
	for _, r := range analyzer.Run(ctx, cities, cfg.Variables) {
		if r.Err != nil {
			failed++
			logger.Warn("analysis failed",
				zap.String("city", r.City),
				zap.String("variable", string(r.Variable)),
				zap.Error(r.Err))
			continue
		}
		if err := writer.Write(r.Analysis); err != nil {
			logger.Error("write artifacts", zap.String("city", r.City), zap.String("variable", string(r.Variable)), zap.Error(err))
			return 1
		}
		written++
		if !r.Analysis.Fitted() {
			flagged++
		}
	}

	logger.Info("analysis complete",
		zap.Int("written", written),
		zap.Int("flagged", flagged),
		zap.Int("failed", failed),
		zap.Duration("elapsed", time.Since(start)))
	if written == 0 && failed > 0 {
		return 1
	}
	return 0
}
