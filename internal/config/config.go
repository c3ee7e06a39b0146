package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kjstillabower/wind-weibull-service/internal/models"
	"github.com/kjstillabower/wind-weibull-service/internal/weibull"
)

// Config holds analyzer and service configuration loaded from YAML and env.
type Config struct {
	DataPath  string
	Cities    []string
	Variables []models.Variable

	Estimator     weibull.Method
	WindVariable  models.Variable
	DensityStep   float64
	HistogramBins int

	HistogramsDir string
	OutputDir     string

	ServerPort     string
	RequestTimeout time.Duration
	CORSOrigins    []string // empty disables CORS

	CacheTTL     time.Duration
	CacheBackend string // "in_memory" or "memcached"

	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	// Breaker around the memcached backend; ignored for in_memory.
	CircuitBreakerEnabled          bool
	CircuitBreakerFailureThreshold int
	CircuitBreakerSuccessThreshold int
	CircuitBreakerTimeout          time.Duration

	RateLimitRPS   int
	RateLimitBurst int

	WarmCache       bool
	WarmInterval    time.Duration // 0 disables periodic warming
	ShutdownTimeout time.Duration

	SampleMaxValues int
	CityMaxLength   int
	CityMinLength   int
}

type fileConfig struct {
	Data struct {
		Path      string   `yaml:"path"`
		Cities    []string `yaml:"cities"`
		Variables []string `yaml:"variables"`
	} `yaml:"data"`

	Analysis struct {
		Estimator     string  `yaml:"estimator"`
		WindVariable  string  `yaml:"wind_variable"`
		DensityStep   float64 `yaml:"density_step"`
		HistogramBins int     `yaml:"histogram_bins"`
	} `yaml:"analysis"`

	Output struct {
		HistogramsDir string `yaml:"histograms_dir"`
		Dir           string `yaml:"dir"`
	} `yaml:"output"`

	Server struct {
		Port        string   `yaml:"port"`
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"server"`

	Request struct {
		Timeout         string `yaml:"timeout"`
		SampleMaxValues int    `yaml:"sample_max_values"`
		CityMaxLength   int    `yaml:"city_max_length"`
		CityMinLength   int    `yaml:"city_min_length"`
	} `yaml:"request"`

	Cache struct {
		Backend      string `yaml:"backend"`
		TTL          string `yaml:"ttl"`
		Warm         *bool  `yaml:"warm"`
		WarmInterval string `yaml:"warm_interval"`
		Memcached    struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
	} `yaml:"cache"`

	Reliability struct {
		RateLimitRPS   int `yaml:"rate_limit_rps"`
		RateLimitBurst int `yaml:"rate_limit_burst"`

		CircuitBreaker struct {
			Enabled          *bool  `yaml:"enabled"`
			FailureThreshold int    `yaml:"failure_threshold"`
			SuccessThreshold int    `yaml:"success_threshold"`
			Timeout          string `yaml:"timeout"`
		} `yaml:"circuit_breaker"`
	} `yaml:"reliability"`

	Shutdown struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"shutdown"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev).
// DATA_PATH, CACHE_BACKEND and MEMCACHED_ADDRS env vars override the file. Call from project root.
func Load() (*Config, error) {
	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := &Config{}

	cfg.DataPath = strings.TrimSpace(os.Getenv("DATA_PATH"))
	if cfg.DataPath == "" {
		cfg.DataPath = strings.TrimSpace(fc.Data.Path)
	}
	if cfg.DataPath == "" {
		cfg.DataPath = "data.json"
	}
	cfg.Cities = fc.Data.Cities

	variables := fc.Data.Variables
	if len(variables) == 0 {
		variables = []string{string(models.WindVelocity), string(models.Temperature)}
	}
	for _, name := range variables {
		v, err := models.ParseVariable(name)
		if err != nil {
			return nil, fmt.Errorf("data.variables: %w", err)
		}
		cfg.Variables = append(cfg.Variables, v)
	}

	cfg.Estimator, err = weibull.ParseMethod(fc.Analysis.Estimator)
	if err != nil {
		return nil, fmt.Errorf("analysis.estimator: %w", err)
	}
	cfg.WindVariable = models.WindVelocity
	if fc.Analysis.WindVariable != "" {
		cfg.WindVariable, err = models.ParseVariable(fc.Analysis.WindVariable)
		if err != nil {
			return nil, fmt.Errorf("analysis.wind_variable: %w", err)
		}
	}
	cfg.DensityStep = fc.Analysis.DensityStep
	if cfg.DensityStep == 0 {
		cfg.DensityStep = weibull.DefaultStep
	}
	cfg.HistogramBins = fc.Analysis.HistogramBins
	if cfg.HistogramBins <= 0 {
		cfg.HistogramBins = 20
	}

	cfg.HistogramsDir = fc.Output.HistogramsDir
	if cfg.HistogramsDir == "" {
		cfg.HistogramsDir = "histograms"
	}
	cfg.OutputDir = fc.Output.Dir
	if cfg.OutputDir == "" {
		cfg.OutputDir = "output"
	}

	cfg.ServerPort = fc.Server.Port
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}
	for _, o := range fc.Server.CORSOrigins {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}
	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 5*time.Second)
	cfg.SampleMaxValues = fc.Request.SampleMaxValues
	if cfg.SampleMaxValues <= 0 {
		cfg.SampleMaxValues = 100000
	}
	cfg.CityMaxLength = fc.Request.CityMaxLength
	if cfg.CityMaxLength <= 0 {
		cfg.CityMaxLength = 100
	}
	cfg.CityMinLength = fc.Request.CityMinLength
	if cfg.CityMinLength <= 0 {
		cfg.CityMinLength = 1
	}

	cfg.CacheTTL = parseDuration(fc.Cache.TTL, 10*time.Minute)
	cfg.CacheBackend = strings.TrimSpace(strings.ToLower(os.Getenv("CACHE_BACKEND")))
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = strings.TrimSpace(strings.ToLower(fc.Cache.Backend))
	}
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = "in_memory"
	}
	cfg.WarmCache = true
	if fc.Cache.Warm != nil {
		cfg.WarmCache = *fc.Cache.Warm
	}
	cfg.WarmInterval = parseDuration(fc.Cache.WarmInterval, 0)
	cfg.MemcachedAddrs = strings.TrimSpace(os.Getenv("MEMCACHED_ADDRS"))
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = strings.TrimSpace(fc.Cache.Memcached.Addrs)
	}
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = "localhost:11211"
	}
	cfg.MemcachedTimeout = parseDuration(fc.Cache.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = fc.Cache.Memcached.MaxIdleConns
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}

	cfg.RateLimitRPS = fc.Reliability.RateLimitRPS
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 50
	}
	cfg.RateLimitBurst = fc.Reliability.RateLimitBurst
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 100
	}

	cfg.CircuitBreakerEnabled = true
	if fc.Reliability.CircuitBreaker.Enabled != nil {
		cfg.CircuitBreakerEnabled = *fc.Reliability.CircuitBreaker.Enabled
	}
	cfg.CircuitBreakerFailureThreshold = fc.Reliability.CircuitBreaker.FailureThreshold
	if cfg.CircuitBreakerFailureThreshold <= 0 {
		cfg.CircuitBreakerFailureThreshold = 5
	}
	cfg.CircuitBreakerSuccessThreshold = fc.Reliability.CircuitBreaker.SuccessThreshold
	if cfg.CircuitBreakerSuccessThreshold <= 0 {
		cfg.CircuitBreakerSuccessThreshold = 2
	}
	cfg.CircuitBreakerTimeout = parseDuration(fc.Reliability.CircuitBreaker.Timeout, 30*time.Second)

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

// validate performs post-load validation of configuration values.
func validate(cfg *Config) error {
	if cfg.DensityStep <= 0 || math.IsNaN(cfg.DensityStep) || math.IsInf(cfg.DensityStep, 0) {
		return fmt.Errorf("analysis.density_step must be positive, got %v", cfg.DensityStep)
	}
	if cfg.CityMinLength > cfg.CityMaxLength {
		return fmt.Errorf("request.city_min_length (%d) exceeds city_max_length (%d)", cfg.CityMinLength, cfg.CityMaxLength)
	}
	switch cfg.CacheBackend {
	case "in_memory", "memcached":
		// valid
	default:
		return fmt.Errorf("cache.backend must be in_memory or memcached, got %q", cfg.CacheBackend)
	}
	return nil
}
