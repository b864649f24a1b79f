package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	Jobs        JobsConfig      `toml:"jobs"`
	Rasterizer  RasterConfig    `toml:"rasterizer"`
	Detector    DetectorConfig  `toml:"detector"`
	OCR         OCRConfig       `toml:"ocr"`
	Gemini      GeminiConfig    `toml:"gemini"`
	Claude      ClaudeConfig    `toml:"claude"`
	LLM         LLMConfig       `toml:"llm"`
	Report      ReportConfig    `toml:"report"`
	Workers     WorkersConfig   `toml:"workers"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"gt=0,lte=65535"`
	Host string `toml:"host" validate:"required"`
}

type StorageConfig struct {
	Badger     BadgerConfig     `toml:"badger"`
	Filesystem FilesystemConfig `toml:"filesystem"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"` // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"`         // Delete database on startup for clean test runs
}

type FilesystemConfig struct {
	Uploads string `toml:"uploads" validate:"required"` // Directory for uploaded blueprint files
	Output  string `toml:"output" validate:"required"`  // Directory for per-job page images and artifacts
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Format string   `toml:"format"` // "json" or "text"
	Output []string `toml:"output"` // "stdout", "file"
}

// JobsConfig contains job lifecycle configuration
type JobsConfig struct {
	StaleAfter    string `toml:"stale_after"`    // Duration after which a silent processing job is failed (default: "30m")
	SweepSchedule string `toml:"sweep_schedule"` // Cron schedule for the stale-job sweep (default: every 5 minutes)
}

// RasterConfig contains page rasterization configuration
type RasterConfig struct {
	DPI int `toml:"dpi" validate:"gt=0"` // Render resolution for PDF pages (default: 300)
}

// DetectorConfig contains symbol detection configuration
type DetectorConfig struct {
	ModelPath     string  `toml:"model_path"`      // Path to the learned detector weights file
	MinModelBytes int64   `toml:"min_model_bytes"` // Minimum weight file size considered usable (default: 1024)
	Endpoint      string  `toml:"endpoint"`        // Inference server URL for the learned detector
	Timeout       string  `toml:"timeout"`         // Per-page inference timeout (default: "60s")
	Confidence    float64 `toml:"confidence"`      // Minimum confidence for learned detections (default: 0.25)
}

// OCRConfig contains symbol label recognition configuration
type OCRConfig struct {
	Endpoint   string `toml:"endpoint"`    // OCR server URL
	Timeout    string `toml:"timeout"`     // Per-crop recognition timeout (default: "15s")
	CropMargin int    `toml:"crop_margin"` // Pixels of context added around each detection box (default: 60)
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`     // Google Gemini API key
	Model       string  `toml:"model"`       // Model for grouping operations (default: "gemini-2.0-flash")
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "5m")
	RateLimit   string  `toml:"rate_limit"`  // Rate limit duration string (default: "4s" for 15 RPM)
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.1)
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`     // Anthropic API key
	Model       string  `toml:"model"`       // Model for grouping operations (default: "claude-haiku-3-5-20241022")
	MaxTokens   int     `toml:"max_tokens"`  // Maximum tokens in response (default: 8192)
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "5m")
	RateLimit   string  `toml:"rate_limit"`  // Rate limit duration string (default: "1s")
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.1)
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig contains unified configuration for all AI providers
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider"` // "gemini" or "claude" (default: "gemini")
}

// ReportConfig controls the PDF takeoff report artifact
type ReportConfig struct {
	Enabled bool `toml:"enabled"` // Write a PDF report alongside the result (default: true)
}

// WorkersConfig contains configuration for job worker behavior
type WorkersConfig struct {
	Concurrency     int `toml:"concurrency"`      // Number of jobs processed in parallel (default: 2)
	PageConcurrency int `toml:"page_concurrency"` // Pages detected in parallel within a job (default: 4)
	QueueDepth      int `toml:"queue_depth"`      // Pending job buffer before submission blocks (default: 64)
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability.
// Only user-facing settings should be exposed in takeoff.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/db",
			},
			Filesystem: FilesystemConfig{
				Uploads: "./data/uploads",
				Output:  "./data/output",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout", "file"},
		},
		Jobs: JobsConfig{
			StaleAfter:    "30m",
			SweepSchedule: "*/5 * * * *",
		},
		Rasterizer: RasterConfig{
			DPI: 300,
		},
		Detector: DetectorConfig{
			ModelPath:     "./models/symbol_detector.pt",
			MinModelBytes: 1024,
			Endpoint:      "",
			Timeout:       "60s",
			Confidence:    0.25,
		},
		OCR: OCRConfig{
			Endpoint:   "",
			Timeout:    "15s",
			CropMargin: 60,
		},
		Gemini: GeminiConfig{
			APIKey:      "",
			Model:       "gemini-2.0-flash",
			Timeout:     "5m",
			RateLimit:   "4s",
			Temperature: 0.1,
		},
		Claude: ClaudeConfig{
			APIKey:      "",
			Model:       "claude-haiku-3-5-20241022",
			MaxTokens:   8192,
			Timeout:     "5m",
			RateLimit:   "1s",
			Temperature: 0.1,
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderGemini,
		},
		Report: ReportConfig{
			Enabled: true,
		},
		Workers: WorkersConfig{
			Concurrency:     2,
			PageConcurrency: 4,
			QueueDepth:      64,
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env. Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks structural constraints on the resolved configuration
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	for _, d := range []struct {
		name  string
		value string
	}{
		{"jobs.stale_after", c.Jobs.StaleAfter},
		{"detector.timeout", c.Detector.Timeout},
		{"ocr.timeout", c.OCR.Timeout},
		{"gemini.timeout", c.Gemini.Timeout},
		{"claude.timeout", c.Claude.Timeout},
	} {
		if _, err := time.ParseDuration(d.value); err != nil {
			return fmt.Errorf("invalid duration for %s: %w", d.name, err)
		}
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("TAKEOFF_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("TAKEOFF_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("TAKEOFF_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Storage configuration
	if badgerPath := os.Getenv("TAKEOFF_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
	if uploads := os.Getenv("TAKEOFF_UPLOADS_DIR"); uploads != "" {
		config.Storage.Filesystem.Uploads = uploads
	}
	if output := os.Getenv("TAKEOFF_OUTPUT_DIR"); output != "" {
		config.Storage.Filesystem.Output = output
	}

	// Logging configuration
	if level := os.Getenv("TAKEOFF_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("TAKEOFF_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}

	// Jobs configuration
	if staleAfter := os.Getenv("TAKEOFF_JOBS_STALE_AFTER"); staleAfter != "" {
		config.Jobs.StaleAfter = staleAfter
	}

	// Detector configuration
	if modelPath := os.Getenv("TAKEOFF_DETECTOR_MODEL_PATH"); modelPath != "" {
		config.Detector.ModelPath = modelPath
	}
	if endpoint := os.Getenv("TAKEOFF_DETECTOR_ENDPOINT"); endpoint != "" {
		config.Detector.Endpoint = endpoint
	}

	// OCR configuration
	if endpoint := os.Getenv("TAKEOFF_OCR_ENDPOINT"); endpoint != "" {
		config.OCR.Endpoint = endpoint
	}

	// Gemini configuration
	if apiKey := os.Getenv("TAKEOFF_GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	} else if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if model := os.Getenv("TAKEOFF_GEMINI_MODEL"); model != "" {
		config.Gemini.Model = model
	}
	if rateLimit := os.Getenv("TAKEOFF_GEMINI_RATE_LIMIT"); rateLimit != "" {
		config.Gemini.RateLimit = rateLimit
	}

	// Claude configuration
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if apiKey := os.Getenv("TAKEOFF_CLAUDE_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey // TAKEOFF_ prefix takes priority
	}
	if model := os.Getenv("TAKEOFF_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}
	if maxTokens := os.Getenv("TAKEOFF_CLAUDE_MAX_TOKENS"); maxTokens != "" {
		if mt, err := strconv.Atoi(maxTokens); err == nil {
			config.Claude.MaxTokens = mt
		}
	}

	// LLM provider configuration
	if provider := os.Getenv("TAKEOFF_LLM_DEFAULT_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(provider)
	}

	// Workers configuration
	if concurrency := os.Getenv("TAKEOFF_WORKERS_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil {
			config.Workers.Concurrency = c
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	// Command-line flags have highest priority
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}
