package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kjstillabower/wind-weibull-service/internal/cache"
	"github.com/kjstillabower/wind-weibull-service/internal/models"
	"github.com/kjstillabower/wind-weibull-service/internal/weibull"
)

type mockAnalyzer struct {
	calls atomic.Int32
	delay time.Duration
	err   error
}

func (m *mockAnalyzer) Analyze(ctx context.Context, city string, v models.Variable) (models.Analysis, error) {
	m.calls.Add(1)
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.err != nil {
		return models.Analysis{}, m.err
	}
	return models.Analysis{City: city, Variable: v, WeibullParams: &weibull.Params{K: 2, C: 5}}, nil
}

type mockCache struct {
	mu     sync.Mutex
	data   map[string]models.Analysis
	getErr error
	setErr error
}

func (m *mockCache) Get(ctx context.Context, key string) (models.Analysis, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return models.Analysis{}, false, m.getErr
	}
	val, ok := m.data[key]
	return val, ok, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value models.Analysis, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	if m.data == nil {
		m.data = make(map[string]models.Analysis)
	}
	m.data[key] = value
	return nil
}

// TestAnalysisService_GetAnalysis_CacheHit verifies a cached analysis is
// returned without running the analyzer.
func TestAnalysisService_GetAnalysis_CacheHit(t *testing.T) {
	an := &mockAnalyzer{}
	c := &mockCache{data: map[string]models.Analysis{
		cache.Key("SAN GIL", models.Temperature): {City: "SAN GIL", EstimationError: "from cache"},
	}}
	svc := NewAnalysisService(an, c, time.Minute, time.Second)

	got, err := svc.GetAnalysis(context.Background(), "SAN GIL", models.Temperature)
	if err != nil {
		t.Fatalf("GetAnalysis() error = %v", err)
	}
	if got.EstimationError != "from cache" {
		t.Errorf("GetAnalysis() = %+v, want cached value", got)
	}
	if an.calls.Load() != 0 {
		t.Errorf("analyzer called %d times on hit, want 0", an.calls.Load())
	}
}

// TestAnalysisService_GetAnalysis_CacheMiss verifies a miss computes the
// analysis and populates the cache.
func TestAnalysisService_GetAnalysis_CacheMiss(t *testing.T) {
	an := &mockAnalyzer{}
	c := &mockCache{}
	svc := NewAnalysisService(an, c, time.Minute, time.Second)

	got, err := svc.GetAnalysis(context.Background(), "POPAYÁN", models.WindVelocity)
	if err != nil {
		t.Fatalf("GetAnalysis() error = %v", err)
	}
	if got.City != "POPAYÁN" || !got.Fitted() {
		t.Errorf("GetAnalysis() = %+v", got)
	}
	if _, ok, _ := c.Get(context.Background(), cache.Key("POPAYÁN", models.WindVelocity)); !ok {
		t.Error("analysis was not cached after miss")
	}

	if _, err := svc.GetAnalysis(context.Background(), "POPAYÁN", models.WindVelocity); err != nil {
		t.Fatalf("second GetAnalysis() error = %v", err)
	}
	if an.calls.Load() != 1 {
		t.Errorf("analyzer called %d times, want 1", an.calls.Load())
	}
}

func TestAnalysisService_GetAnalysis_AnalyzerError(t *testing.T) {
	errNoCity := errors.New("unknown city")
	c := &mockCache{}
	svc := NewAnalysisService(&mockAnalyzer{err: errNoCity}, c, time.Minute, time.Second)

	_, err := svc.GetAnalysis(context.Background(), "BOGOTÁ", models.Temperature)
	if !errors.Is(err, errNoCity) {
		t.Errorf("GetAnalysis() error = %v, want errNoCity", err)
	}
	if len(c.data) != 0 {
		t.Error("failed analysis must not be cached")
	}
}

// TestAnalysisService_GetAnalysis_CacheErrorsAreNotFatal verifies that cache
// get/set failures are logged and the computed analysis is still returned.
func TestAnalysisService_GetAnalysis_CacheErrorsAreNotFatal(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	ctx := context.WithValue(context.Background(), "logger", zap.New(core))
	c := &mockCache{getErr: errors.New("connection refused"), setErr: errors.New("connection refused")}
	svc := NewAnalysisService(&mockAnalyzer{}, c, time.Minute, time.Second)

	got, err := svc.GetAnalysis(ctx, "SAN GIL", models.Temperature)
	if err != nil {
		t.Fatalf("GetAnalysis() error = %v, want nil despite cache failures", err)
	}
	if got.City != "SAN GIL" {
		t.Errorf("GetAnalysis() = %+v", got)
	}
	if logs.FilterMessage("cache get failed").Len() != 1 || logs.FilterMessage("cache set failed").Len() != 1 {
		t.Errorf("expected get and set warnings, got %d entries", logs.Len())
	}
}

// TestAnalysisService_GetAnalysis_CoalescesMisses verifies concurrent misses
// for one key run the analyzer once.
func TestAnalysisService_GetAnalysis_CoalescesMisses(t *testing.T) {
	an := &mockAnalyzer{delay: 50 * time.Millisecond}
	svc := NewAnalysisService(an, &mockCache{}, time.Minute, time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.GetAnalysis(context.Background(), "SAN GIL", models.Temperature); err != nil {
				t.Errorf("GetAnalysis() error = %v", err)
			}
		}()
	}
	wg.Wait()
	if an.calls.Load() != 1 {
		t.Errorf("analyzer called %d times, want 1", an.calls.Load())
	}
}

func TestAnalysisService_Fit(t *testing.T) {
	svc := NewAnalysisService(&mockAnalyzer{}, &mockCache{}, time.Minute, time.Second)

	got, err := svc.Fit(context.Background(), []float64{3.2, 4.5, 2.1, 5.6, 3.3, 4.0, 2.9, 6.1, 3.7, 4.4}, weibull.MethodMoments, weibull.DefaultStep)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	if got.Density.Len() != 62 {
		t.Errorf("Density.Len() = %d, want 62", got.Density.Len())
	}

	_, err = svc.Fit(context.Background(), []float64{1, 1, 1}, weibull.MethodMoments, weibull.DefaultStep)
	if !errors.Is(err, weibull.ErrDegenerateSample) {
		t.Errorf("Fit(identical) error = %v, want ErrDegenerateSample", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.Fit(ctx, []float64{1, 2}, weibull.MethodMoments, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("Fit(canceled) error = %v, want context.Canceled", err)
	}
}
