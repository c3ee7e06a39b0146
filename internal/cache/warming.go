package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/kjstillabower/wind-weibull-service/internal/models"
	"github.com/kjstillabower/wind-weibull-service/internal/observability"
)

// AnalysisFetcher is implemented by the service layer. Fetching through it
// populates the cache; Warmer depends on it to avoid importing the service package.
type AnalysisFetcher interface {
	GetAnalysis(ctx context.Context, city string, variable models.Variable) (models.Analysis, error)
}

// Warmer prefetches analyses for a fixed set of cities and variables.
type Warmer struct {
	fetcher AnalysisFetcher
	logger  *zap.Logger
}

// NewWarmer creates a Warmer that uses the given fetcher and logger.
func NewWarmer(fetcher AnalysisFetcher, logger *zap.Logger) *Warmer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Warmer{fetcher: fetcher, logger: logger}
}

// Warm fetches every (city, variable) pair concurrently, one goroutine per city.
// Returns the joined errors of the pairs that failed.
func (w *Warmer) Warm(ctx context.Context, cities []string, variables []models.Variable) error {
	start := time.Now()
	observability.CacheWarmingTotal.Inc()
	w.logger.Info("warming cache", zap.Int("cities", len(cities)), zap.Int("variables", len(variables)))

	var wg sync.WaitGroup
	errCh := make(chan error, len(cities)*len(variables))
	for _, city := range cities {
		city := city
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, v := range variables {
				if _, err := w.fetcher.GetAnalysis(ctx, city, v); err != nil {
					errCh <- fmt.Errorf("warm %s/%s: %w", city, v, err)
				}
			}
		}()
	}
	wg.Wait()
	close(errCh)

	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}
	duration := time.Since(start).Seconds()
	observability.CacheWarmingDurationSeconds.Observe(duration)
	w.logger.Info("cache warming complete",
		zap.Int("cities", len(cities)),
		zap.Int("errors", len(errs)),
		zap.Float64("duration_seconds", duration))
	if len(errs) > 0 {
		observability.CacheWarmingErrorsTotal.Inc()
		return fmt.Errorf("cache warming: %w", errors.Join(errs...))
	}
	return nil
}

// WarmPeriodic runs an initial Warm, then schedules a refresh every interval
// until ctx is done. Refreshes never overlap; a run still in progress when the
// next one is due causes that one to be skipped.
func (w *Warmer) WarmPeriodic(ctx context.Context, cities []string, variables []models.Variable, interval time.Duration) error {
	if err := w.Warm(ctx, cities, variables); err != nil {
		w.logger.Warn("initial cache warm failed", zap.Error(err))
	}

	scheduler := gocron.NewScheduler(time.UTC)
	_, err := scheduler.Every(interval).WaitForSchedule().SingletonMode().Do(func() {
		if ctx.Err() != nil {
			return
		}
		if err := w.Warm(ctx, cities, variables); err != nil {
			w.logger.Warn("periodic cache warm failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule cache warming: %w", err)
	}
	scheduler.StartAsync()
	defer scheduler.Stop()

	<-ctx.Done()
	return ctx.Err()
}
