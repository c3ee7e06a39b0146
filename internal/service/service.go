package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/wind-weibull-service/internal/analysis"
	"github.com/kjstillabower/wind-weibull-service/internal/cache"
	"github.com/kjstillabower/wind-weibull-service/internal/models"
	"github.com/kjstillabower/wind-weibull-service/internal/observability"
	"github.com/kjstillabower/wind-weibull-service/internal/weibull"
)

// Analyzer builds a single analysis. *analysis.Analyzer implements it.
type Analyzer interface {
	Analyze(ctx context.Context, city string, variable models.Variable) (models.Analysis, error)
}

// AnalysisService serves analyses using the cache-aside pattern. Concurrent
// misses for the same key share one computation.
type AnalysisService struct {
	analyzer  Analyzer
	cache     cache.Cache
	ttl       time.Duration
	coalescer *requestCoalescer
}

// NewAnalysisService creates an AnalysisService. ttl is the cache lifetime of a
// computed analysis; coalesceTimeout bounds how long a caller waits on a shared computation.
func NewAnalysisService(analyzer Analyzer, c cache.Cache, ttl, coalesceTimeout time.Duration) *AnalysisService {
	return &AnalysisService{
		analyzer:  analyzer,
		cache:     c,
		ttl:       ttl,
		coalescer: newRequestCoalescer(coalesceTimeout),
	}
}

// loggerFromContext extracts the request-scoped logger set by the HTTP middleware.
func loggerFromContext(ctx context.Context) *zap.Logger {
	if v := ctx.Value("logger"); v != nil {
		if l, ok := v.(*zap.Logger); ok && l != nil {
			return l
		}
	}
	return zap.NewNop()
}

// GetAnalysis returns the analysis for city and variable, computing and caching it on a miss.
// Cache failures are logged and counted but never fail the request.
func (s *AnalysisService) GetAnalysis(ctx context.Context, city string, variable models.Variable) (models.Analysis, error) {
	key := cache.Key(city, variable)
	logger := loggerFromContext(ctx)
	start := time.Now()

	cached, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		observability.CacheErrorsTotal.WithLabelValues("get").Inc()
		logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		observability.CacheHitsTotal.WithLabelValues("analysis").Inc()
		logger.Debug("analysis served", zap.String("key", key), zap.Bool("cached", true), zap.Duration("duration", time.Since(start)))
		return cached, nil
	}

	// The shared computation outlives any single caller's cancellation.
	bg := context.WithoutCancel(ctx)
	a, shared, err := s.coalescer.Do(ctx, key, func() (models.Analysis, error) {
		a, err := s.analyzer.Analyze(bg, city, variable)
		if err != nil {
			return models.Analysis{}, err
		}
		if setErr := s.cache.Set(bg, key, a, s.ttl); setErr != nil {
			observability.CacheErrorsTotal.WithLabelValues("set").Inc()
			logger.Warn("cache set failed", zap.String("key", key), zap.Error(setErr))
		}
		return a, nil
	})
	if shared {
		observability.RequestCoalescingHitsTotal.Inc()
	}
	if err != nil {
		return models.Analysis{}, err
	}
	logger.Debug("analysis served", zap.String("key", key), zap.Bool("cached", false), zap.Bool("coalesced", shared), zap.Duration("duration", time.Since(start)))
	return a, nil
}

// Fit fits a caller-supplied sample. Results are not cached.
func (s *AnalysisService) Fit(ctx context.Context, values []float64, method weibull.Method, step float64) (models.FitResult, error) {
	if err := ctx.Err(); err != nil {
		return models.FitResult{}, err
	}
	return analysis.FitSample(values, method, step)
}
