// Package analysis turns per-city observation samples into Weibull analyses:
// fitted parameters, a density curve and the descriptive statistics around them.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/wind-weibull-service/internal/models"
	"github.com/kjstillabower/wind-weibull-service/internal/observability"
	"github.com/kjstillabower/wind-weibull-service/internal/summary"
	"github.com/kjstillabower/wind-weibull-service/internal/weibull"
)

// SampleSource supplies the readings of one variable for one city.
// *dataset.Dataset implements it.
type SampleSource interface {
	Values(city string, v models.Variable) ([]float64, error)
}

// Options controls how analyses are built.
type Options struct {
	Method        weibull.Method
	WindVariable  models.Variable
	DensityStep   float64
	HistogramBins int
}

// Analyzer builds analyses from a SampleSource. It holds no mutable state and is
// safe for concurrent use.
type Analyzer struct {
	source SampleSource
	opts   Options
	logger *zap.Logger
	now    func() time.Time
}

// Result is the outcome of one (city, variable) unit in Run.
type Result struct {
	City     string
	Variable models.Variable
	Analysis models.Analysis
	Err      error
}

// New returns an Analyzer. Zero option fields fall back to moments estimation,
// wind velocity, weibull.DefaultStep and 20 histogram bins.
func New(source SampleSource, opts Options, logger *zap.Logger) *Analyzer {
	if opts.Method == "" {
		opts.Method = weibull.MethodMoments
	}
	if opts.WindVariable == "" {
		opts.WindVariable = models.WindVelocity
	}
	if opts.DensityStep == 0 {
		opts.DensityStep = weibull.DefaultStep
	}
	if opts.HistogramBins <= 0 {
		opts.HistogramBins = 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{source: source, opts: opts, logger: logger, now: time.Now}
}

// Analyze builds the analysis for one city and variable.
func (a *Analyzer) Analyze(ctx context.Context, city string, variable models.Variable) (models.Analysis, error) {
	if err := ctx.Err(); err != nil {
		return models.Analysis{}, err
	}
	params, fitErr := a.fitWind(city)
	return a.build(city, variable, params, fitErr)
}

// Run analyzes every (city, variable) pair. Cities are processed concurrently;
// the wind sample of each city is fitted once and shared by its variables.
// Results come back in (city, variable) input order, and a failed unit never
// stops the others.
func (a *Analyzer) Run(ctx context.Context, cities []string, variables []models.Variable) []Result {
	start := time.Now()
	results := make([]Result, len(cities)*len(variables))
	var wg sync.WaitGroup
	for ci, city := range cities {
		ci, city := ci, city
		wg.Add(1)
		go func() {
			defer wg.Done()
			params, fitErr := a.fitWind(city)
			for vi, v := range variables {
				r := Result{City: city, Variable: v}
				if err := ctx.Err(); err != nil {
					r.Err = err
				} else {
					r.Analysis, r.Err = a.build(city, v, params, fitErr)
				}
				results[ci*len(variables)+vi] = r
			}
		}()
	}
	wg.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	a.logger.Info("analysis run complete",
		zap.Int("cities", len(cities)),
		zap.Int("units", len(results)),
		zap.Int("failed", failed),
		zap.Duration("duration", time.Since(start)))
	return results
}

// fitWind estimates Weibull parameters from the city's wind sample.
func (a *Analyzer) fitWind(city string) (weibull.Params, error) {
	sample, err := a.source.Values(city, a.opts.WindVariable)
	if err != nil {
		return weibull.Params{}, fmt.Errorf("wind sample: %w", err)
	}
	params, err := fit(sample, a.opts.Method)
	if err != nil {
		a.logger.Warn("weibull estimation failed",
			zap.String("city", city),
			zap.String("method", string(a.opts.Method)),
			zap.Int("sample_size", len(sample)),
			zap.Error(err))
		return weibull.Params{}, err
	}
	a.logger.Debug("weibull fitted",
		zap.String("city", city),
		zap.Float64("k", params.K),
		zap.Float64("c", params.C))
	return params, nil
}

// fit runs the estimator and records its outcome and latency.
func fit(sample []float64, method weibull.Method) (weibull.Params, error) {
	start := time.Now()
	params, err := weibull.Fit(sample, method)
	outcome := "success"
	switch {
	case errors.Is(err, weibull.ErrDegenerateSample):
		outcome = "degenerate"
	case err != nil:
		outcome = "error"
	}
	observability.RecordFit(string(method), outcome, time.Since(start).Seconds())
	return params, err
}

// FitSample fits a caller-supplied sample and samples its density over [0, max(values)].
func FitSample(values []float64, method weibull.Method, step float64) (models.FitResult, error) {
	params, err := fit(values, method)
	if err != nil {
		return models.FitResult{}, err
	}
	curve, err := weibull.DensityCurve(params, values, step)
	if err != nil {
		return models.FitResult{}, err
	}
	return models.FitResult{Method: method, Params: params, Density: curve}, nil
}

// build assembles an analysis. The variable sample is filtered once and feeds
// the statistics and the density range. A failed fit is flagged on the
// analysis; only a missing variable sample fails the unit.
func (a *Analyzer) build(city string, variable models.Variable, params weibull.Params, fitErr error) (models.Analysis, error) {
	values, err := a.source.Values(city, variable)
	if err != nil {
		observability.AnalysesTotal.WithLabelValues("failed").Inc()
		return models.Analysis{}, fmt.Errorf("analyze %s/%s: %w", city, variable, err)
	}

	out := models.Analysis{
		City:        city,
		Variable:    variable,
		Estimator:   a.opts.Method,
		GeneratedAt: a.now().UTC(),
	}
	if out.WhiskerPlotData, err = summary.FiveNumber(values); err != nil {
		observability.AnalysesTotal.WithLabelValues("failed").Inc()
		return models.Analysis{}, fmt.Errorf("analyze %s/%s: %w", city, variable, err)
	}
	if out.Summary, err = summary.Describe(values); err != nil {
		observability.AnalysesTotal.WithLabelValues("failed").Inc()
		return models.Analysis{}, fmt.Errorf("analyze %s/%s: %w", city, variable, err)
	}
	if out.Histogram, err = summary.NewHistogram(values, a.opts.HistogramBins); err != nil {
		observability.AnalysesTotal.WithLabelValues("failed").Inc()
		return models.Analysis{}, fmt.Errorf("analyze %s/%s: %w", city, variable, err)
	}

	if fitErr == nil {
		curve, err := weibull.DensityCurve(params, values, a.opts.DensityStep)
		if err != nil {
			fitErr = fmt.Errorf("density curve: %w", err)
		} else {
			p := params
			out.WeibullParams = &p
			out.Density = &curve
		}
	}
	if fitErr != nil {
		out.EstimationError = fitErr.Error()
		observability.AnalysesTotal.WithLabelValues("flagged").Inc()
		return out, nil
	}
	observability.AnalysesTotal.WithLabelValues("fitted").Inc()
	return out, nil
}
