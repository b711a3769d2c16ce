package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Store    StoreConfig    `yaml:"store"`
	Server   ServerConfig   `yaml:"server"`
	OCR      OCRConfig      `yaml:"ocr"`
	LLM      LLMConfig      `yaml:"llm"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Batch    BatchConfig    `yaml:"batch"`
	LogLevel string         `yaml:"log_level"`
}

// StoreConfig selects and configures the recipe store
type StoreConfig struct {
	Backend          string        `yaml:"backend"` // json | sqlite | postgres | none
	Path             string        `yaml:"path"`    // json file or sqlite file
	DSN              string        `yaml:"dsn"`     // postgres
	MaxConns         int32         `yaml:"max_conns"`
	MinConns         int32         `yaml:"min_conns"`
	MaxConnLifetime  time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout      time.Duration `yaml:"dial_timeout"`
	StatementTimeout time.Duration `yaml:"statement_timeout"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr         string        `yaml:"grpc_addr"`
	WatchDir         string        `yaml:"watch_dir"` // empty disables the folder watcher
	WatchContributor string        `yaml:"watch_contributor"`
	WatchDebounce    time.Duration `yaml:"watch_debounce"`
	Workers          int           `yaml:"workers"`
	JobTimeout       time.Duration `yaml:"job_timeout"`
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Tesseract        string `yaml:"tesseract"`
	Pdftoppm         string `yaml:"pdftoppm"`
	Language         string `yaml:"language"`
	HeicConverter    string `yaml:"heic_converter"`
	TessdataDir      string `yaml:"tessdata_dir"`
	ArtifactCacheDir string `yaml:"artifact_cache_dir"`
	TSVConfidence    bool   `yaml:"tsv_confidence"`
}

// LLMConfig holds completion provider configuration
type LLMConfig struct {
	Provider        string        `yaml:"provider"` // openai | anthropic
	Model           string        `yaml:"model"`
	APIKey          string        `yaml:"api_key"`
	BaseURL         string        `yaml:"base_url"`
	Temperature     float32       `yaml:"temperature"`
	MaxTokens       int           `yaml:"max_tokens"`
	EstimateTokens  int           `yaml:"estimate_tokens"`
	Timeout         time.Duration `yaml:"timeout"`
	EstimateTimeout time.Duration `yaml:"estimate_timeout"`
	HeuristicOnly   bool          `yaml:"heuristic_only"`
}

// PipelineConfig holds per-document thresholds and timeouts
type PipelineConfig struct {
	MinTextLength    int           `yaml:"min_text_length"`
	MinConfidence    float32       `yaml:"min_confidence"`
	MinOCRConfidence float32       `yaml:"min_ocr_confidence"`
	ExtractTimeout   time.Duration `yaml:"extract_timeout"`
}

// BatchConfig holds pacing for batch runs
type BatchConfig struct {
	ChunkSize     int           `yaml:"chunk_size"`
	ChunkPause    time.Duration `yaml:"chunk_pause"`
	DocumentPause time.Duration `yaml:"document_pause"`
	Workers       int           `yaml:"workers"`
}

// DefaultConfig returns the built-in defaults before file or env overrides.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Backend:         "json",
			Path:            "recipes.json",
			MaxConns:        10,
			MinConns:        1,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     3 * time.Second,
		},
		Server: ServerConfig{
			GRPCAddr:      ":8080",
			WatchDebounce: time.Second,
			Workers:       2,
			JobTimeout:    5 * time.Minute,
		},
		OCR: OCRConfig{
			Tesseract:        "tesseract",
			Pdftoppm:         "pdftoppm",
			Language:         "eng",
			HeicConverter:    "magick",
			ArtifactCacheDir: "./tmp",
		},
		LLM: LLMConfig{
			Provider:        "openai",
			Temperature:     0.0,
			MaxTokens:       4000,
			EstimateTokens:  1000,
			Timeout:         90 * time.Second,
			EstimateTimeout: 30 * time.Second,
		},
		Pipeline: PipelineConfig{
			MinTextLength:    50,
			MinConfidence:    0.60,
			MinOCRConfidence: 0.60,
			ExtractTimeout:   2 * time.Minute,
		},
		Batch: BatchConfig{
			ChunkSize:     10,
			ChunkPause:    2 * time.Second,
			DocumentPause: 500 * time.Millisecond,
			Workers:       1,
		},
		LogLevel: "info",
	}
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	cfg := DefaultConfig()
	applyEnv(cfg)
	return cfg
}

// LoadConfigFile reads a YAML file over the defaults, then applies environment overrides.
// An empty path behaves like LoadConfig.
func LoadConfigFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, NewAppError(CodeConfig, "parse config "+path, err)
		}
	}
	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Store.Backend = getEnv("STORE_BACKEND", cfg.Store.Backend)
	cfg.Store.Path = getEnv("STORE_PATH", cfg.Store.Path)
	cfg.Store.DSN = getEnv("DB_URL", cfg.Store.DSN)
	cfg.Store.MaxConns = getEnvAsInt32("DB_MAX_CONNS", cfg.Store.MaxConns)
	cfg.Store.MinConns = getEnvAsInt32("DB_MIN_CONNS", cfg.Store.MinConns)
	cfg.Store.MaxConnLifetime = getEnvAsDuration("DB_MAX_CONN_LIFETIME", cfg.Store.MaxConnLifetime)
	cfg.Store.MaxConnIdleTime = getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", cfg.Store.MaxConnIdleTime)
	cfg.Store.DialTimeout = getEnvAsDuration("DB_DIAL_TIMEOUT", cfg.Store.DialTimeout)
	cfg.Store.StatementTimeout = getEnvAsDuration("DB_STATEMENT_TIMEOUT", cfg.Store.StatementTimeout)

	cfg.Server.GRPCAddr = getEnv("GRPC_ADDR", cfg.Server.GRPCAddr)
	cfg.Server.WatchDir = getEnv("WATCH_DIR", cfg.Server.WatchDir)
	cfg.Server.WatchContributor = getEnv("WATCH_CONTRIBUTOR", cfg.Server.WatchContributor)
	cfg.Server.WatchDebounce = getEnvAsDuration("WATCH_DEBOUNCE", cfg.Server.WatchDebounce)
	cfg.Server.Workers = getEnvAsInt("SERVER_WORKERS", cfg.Server.Workers)
	cfg.Server.JobTimeout = getEnvAsDuration("SERVER_JOB_TIMEOUT", cfg.Server.JobTimeout)

	cfg.OCR.Tesseract = getEnv("TESSERACT_BIN", cfg.OCR.Tesseract)
	cfg.OCR.Pdftoppm = getEnv("PDFTOPPM_BIN", cfg.OCR.Pdftoppm)
	cfg.OCR.Language = getEnv("OCR_LANG", cfg.OCR.Language)
	cfg.OCR.HeicConverter = getEnv("HEIC_CONVERTER", cfg.OCR.HeicConverter)
	cfg.OCR.TessdataDir = getEnv("TESSDATA_PREFIX", cfg.OCR.TessdataDir)
	cfg.OCR.ArtifactCacheDir = getEnv("ARTIFACT_CACHE_DIR", cfg.OCR.ArtifactCacheDir)
	cfg.OCR.TSVConfidence = getEnvAsBool("OCR_TSV_CONFIDENCE", cfg.OCR.TSVConfidence)

	cfg.LLM.Provider = strings.ToLower(getEnv("LLM_PROVIDER", cfg.LLM.Provider))
	switch cfg.LLM.Provider {
	case "anthropic":
		cfg.LLM.APIKey = getEnv("ANTHROPIC_API_KEY", cfg.LLM.APIKey)
		cfg.LLM.Model = getEnv("ANTHROPIC_MODEL", cfg.LLM.Model)
	default:
		cfg.LLM.APIKey = getEnv("OPENAI_API_KEY", cfg.LLM.APIKey)
		cfg.LLM.Model = getEnv("OPENAI_MODEL", cfg.LLM.Model)
	}
	cfg.LLM.BaseURL = getEnv("LLM_BASE_URL", cfg.LLM.BaseURL)
	cfg.LLM.Temperature = getEnvAsFloat32("LLM_TEMPERATURE", cfg.LLM.Temperature)
	cfg.LLM.MaxTokens = getEnvAsInt("LLM_MAX_TOKENS", cfg.LLM.MaxTokens)
	cfg.LLM.EstimateTokens = getEnvAsInt("LLM_ESTIMATE_TOKENS", cfg.LLM.EstimateTokens)
	cfg.LLM.Timeout = getEnvAsDuration("LLM_TIMEOUT", cfg.LLM.Timeout)
	cfg.LLM.EstimateTimeout = getEnvAsDuration("ESTIMATE_TIMEOUT", cfg.LLM.EstimateTimeout)
	cfg.LLM.HeuristicOnly = getEnvAsBool("ESTIMATE_HEURISTIC_ONLY", cfg.LLM.HeuristicOnly)

	cfg.Pipeline.MinTextLength = getEnvAsInt("MIN_TEXT_LENGTH", cfg.Pipeline.MinTextLength)
	cfg.Pipeline.MinConfidence = getEnvAsFloat32("MIN_CONFIDENCE", cfg.Pipeline.MinConfidence)
	cfg.Pipeline.MinOCRConfidence = getEnvAsFloat32("MIN_OCR_CONFIDENCE", cfg.Pipeline.MinOCRConfidence)
	cfg.Pipeline.ExtractTimeout = getEnvAsDuration("EXTRACT_TIMEOUT", cfg.Pipeline.ExtractTimeout)

	cfg.Batch.ChunkSize = getEnvAsInt("BATCH_CHUNK_SIZE", cfg.Batch.ChunkSize)
	cfg.Batch.ChunkPause = getEnvAsDuration("BATCH_CHUNK_PAUSE", cfg.Batch.ChunkPause)
	cfg.Batch.DocumentPause = getEnvAsDuration("BATCH_DOC_PAUSE", cfg.Batch.DocumentPause)
	cfg.Batch.Workers = getEnvAsInt("BATCH_WORKERS", cfg.Batch.Workers)

	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "json", "sqlite":
		if c.Store.Path == "" {
			return NewAppError(CodeConfig, "STORE_PATH is required for "+c.Store.Backend+" store", ErrInvalidInput)
		}
	case "postgres":
		if c.Store.DSN == "" {
			return NewAppError(CodeConfig, "DB_URL is required for postgres store", ErrInvalidInput)
		}
	case "none", "":
	default:
		return NewAppError(CodeConfig, "unknown STORE_BACKEND "+c.Store.Backend, ErrInvalidInput)
	}
	switch c.LLM.Provider {
	case "openai", "anthropic":
	default:
		return NewAppError(CodeConfig, "unknown LLM_PROVIDER "+c.LLM.Provider, ErrInvalidInput)
	}
	if c.LLM.APIKey == "" {
		return NewAppError(CodeConfig, "API key is required for provider "+c.LLM.Provider, ErrInvalidInput)
	}
	if c.Pipeline.MinTextLength < 0 {
		return NewAppError(CodeConfig, "MIN_TEXT_LENGTH must not be negative", ErrInvalidInput)
	}
	if c.Batch.ChunkSize <= 0 {
		return NewAppError(CodeConfig, "BATCH_CHUNK_SIZE must be positive", ErrInvalidInput)
	}
	return nil
}
