package models

import (
	"time"

	"github.com/kjstillabower/wind-weibull-service/internal/summary"
	"github.com/kjstillabower/wind-weibull-service/internal/weibull"
)

// Analysis is the per-(city, variable) artifact handed to rendering and serialization.
// WeibullParams and Density are nil when the wind sample could not be fitted;
// EstimationError then explains why.
type Analysis struct {
	City            string            `json:"city"`
	Variable        Variable          `json:"variable"`
	Estimator       weibull.Method    `json:"estimator"`
	WeibullParams   *weibull.Params   `json:"weibull_params,omitempty"`
	Density         *weibull.Curve    `json:"density,omitempty"`
	Histogram       summary.Histogram `json:"histogram"`
	Summary         summary.Stats     `json:"summary"`
	WhiskerPlotData summary.Whisker   `json:"whisker_plot_data"`
	EstimationError string            `json:"estimation_error,omitempty"`
	GeneratedAt     time.Time         `json:"generated_at"`
}

// Fitted reports whether the analysis carries Weibull parameters.
func (a Analysis) Fitted() bool {
	return a.WeibullParams != nil
}

// FitResult is a standalone fit of a caller-supplied sample.
type FitResult struct {
	Method  weibull.Method `json:"method"`
	Params  weibull.Params `json:"params"`
	Density weibull.Curve  `json:"density"`
}
