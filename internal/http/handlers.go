package http

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/kjstillabower/wind-weibull-service/internal/dataset"
	"github.com/kjstillabower/wind-weibull-service/internal/lifecycle"
	"github.com/kjstillabower/wind-weibull-service/internal/models"
	"github.com/kjstillabower/wind-weibull-service/internal/summary"
	"github.com/kjstillabower/wind-weibull-service/internal/validation"
	"github.com/kjstillabower/wind-weibull-service/internal/weibull"
)

// AnalysisProvider is the service layer seen by the handlers.
type AnalysisProvider interface {
	GetAnalysis(ctx context.Context, city string, variable models.Variable) (models.Analysis, error)
	Fit(ctx context.Context, values []float64, method weibull.Method, step float64) (models.FitResult, error)
}

// HealthConfig holds the inputs of the health handler.
type HealthConfig struct {
	// State is the process phase; nil reports healthy.
	State *lifecycle.State

	// CachePing, when set, is called to check cache reachability. Used when backend is memcached.
	CachePing func() error

	Version string
}

// Limits bounds request input.
type Limits struct {
	CityMinLength    int
	CityMaxLength    int
	SampleMaxValues  int
	MaxDensityPoints int
}

// DefaultMaxDensityPoints caps the curve length of POST /weibull/fit.
const DefaultMaxDensityPoints = weibull.MaxCurvePoints

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	analyses         AnalysisProvider
	healthConfig     *HealthConfig
	logger           *zap.Logger
	limits           Limits
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler. Zero limits fall back to 1..100 rune city
// names, 100000 sample values and DefaultMaxDensityPoints.
func NewHandler(analyses AnalysisProvider, healthConfig *HealthConfig, logger *zap.Logger, limits Limits) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limits.CityMinLength <= 0 {
		limits.CityMinLength = 1
	}
	if limits.CityMaxLength <= 0 {
		limits.CityMaxLength = 100
	}
	if limits.SampleMaxValues <= 0 {
		limits.SampleMaxValues = 100000
	}
	if limits.MaxDensityPoints <= 0 || limits.MaxDensityPoints > weibull.MaxCurvePoints {
		limits.MaxDensityPoints = DefaultMaxDensityPoints
	}
	return &Handler{
		analyses:     analyses,
		healthConfig: healthConfig,
		logger:       logger,
		limits:       limits,
	}
}

// GetAnalysis handles GET /analyses/{city}/{variable}.
func (h *Handler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	city, err := validation.ValidateCity(vars["city"], h.limits.CityMinLength, h.limits.CityMaxLength)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_CITY", err.Error())
		return
	}
	variable, err := models.ParseVariable(vars["variable"])
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_VARIABLE", err.Error())
		return
	}

	result, err := h.analyses.GetAnalysis(r.Context(), city, variable)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// fitRequest is the body of POST /weibull/fit. Step is a pointer so an explicit
// zero is rejected rather than defaulted.
type fitRequest struct {
	Values []float64 `json:"values"`
	Method string    `json:"method"`
	Step   *float64  `json:"step"`
}

// PostFit handles POST /weibull/fit.
func (h *Handler) PostFit(w http.ResponseWriter, r *http.Request) {
	// A JSON number is at most ~25 bytes; leave room for the rest of the body.
	r.Body = http.MaxBytesReader(w, r.Body, int64(h.limits.SampleMaxValues)*32+4096)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	var req fitRequest
	if err := dec.Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_BODY", "request body must be a JSON object with a values array")
		return
	}
	if err := validation.ValidateSample(req.Values, h.limits.SampleMaxValues); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_VALUES", err.Error())
		return
	}
	method, err := weibull.ParseMethod(req.Method)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_METHOD", err.Error())
		return
	}
	step := weibull.DefaultStep
	if req.Step != nil {
		step = *req.Step
	}
	if step <= 0 {
		writeError(w, r, http.StatusBadRequest, "INVALID_STEP", "step must be positive")
		return
	}
	if hi := floats.Max(req.Values); hi > 0 && math.Floor(hi/step) >= float64(h.limits.MaxDensityPoints) {
		writeError(w, r, http.StatusBadRequest, "DENSITY_TOO_LARGE", "max(values)/step exceeds the density point limit")
		return
	}

	result, err := h.analyses.Fit(r.Context(), req.Values, method, step)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus()

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := make(map[string]string)
	version := "dev"
	if h.healthConfig != nil {
		if h.healthConfig.CachePing != nil {
			if h.healthConfig.CachePing() == nil {
				checks["cache"] = "healthy"
			} else {
				checks["cache"] = "unhealthy"
			}
		}
		if h.healthConfig.Version != "" {
			version = h.healthConfig.Version
		}
	}
	writeJSON(w, result.statusCode, map[string]interface{}{
		"status":    result.status,
		"service":   "wind-weibull-service",
		"version":   version,
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// computeHealthStatus maps the lifecycle phase to a status; only Serving is 200.
func (h *Handler) computeHealthStatus() healthResult {
	if h.healthConfig == nil || h.healthConfig.State == nil {
		return healthResult{lifecycle.Serving.String(), http.StatusOK}
	}
	phase := h.healthConfig.State.Phase()
	if phase != lifecycle.Serving {
		return healthResult{phase.String(), http.StatusServiceUnavailable}
	}
	return healthResult{phase.String(), http.StatusOK}
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard error format with code, message,
// and requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	corrID, _ := r.Context().Value("correlation_id").(string)
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": corrID,
		},
	})
}

// writeServiceError maps service-layer errors onto HTTP responses. Unexpected
// errors are logged at ERROR with the request-scoped logger.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	logger, ok := r.Context().Value("logger").(*zap.Logger)
	if !ok || logger == nil {
		logger = zap.NewNop()
	}
	switch {
	case errors.Is(err, dataset.ErrUnknownCity):
		writeError(w, r, http.StatusNotFound, "CITY_NOT_FOUND", err.Error())
	case errors.Is(err, summary.ErrEmpty):
		writeError(w, r, http.StatusNotFound, "NO_DATA", "no readings for the requested city and variable")
	case errors.Is(err, weibull.ErrDegenerateSample):
		writeError(w, r, http.StatusUnprocessableEntity, "DEGENERATE_SAMPLE", err.Error())
	case errors.Is(err, weibull.ErrCurveTooLarge):
		writeError(w, r, http.StatusBadRequest, "DENSITY_TOO_LARGE", err.Error())
	case errors.Is(err, weibull.ErrNoConvergence):
		writeError(w, r, http.StatusUnprocessableEntity, "NO_CONVERGENCE", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, r, http.StatusGatewayTimeout, "TIMEOUT", "request timed out")
	case errors.Is(err, context.Canceled):
		logger.Debug("request canceled", zap.Error(err))
		writeError(w, r, http.StatusServiceUnavailable, "CANCELED", "request canceled")
	default:
		logger.Error("analysis failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}
