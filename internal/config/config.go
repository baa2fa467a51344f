package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EmbeddingProviderONNX   = "onnx"
	EmbeddingProviderOpenAI = "openai"
	EmbeddingProviderOllama = "ollama"

	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	App       AppConfig       `toml:"app" yaml:"app"`
	Auth      AuthConfig      `toml:"auth" yaml:"auth"`
	LLM       LLMConfig       `toml:"llm" yaml:"llm"`
	Embedding EmbeddingConfig `toml:"embedding" yaml:"embedding"`
	Storage   StorageConfig   `toml:"storage" yaml:"storage"`
	Postgres  PostgresConfig  `toml:"postgres" yaml:"postgres"`
	Redis     RedisConfig     `toml:"redis" yaml:"redis"`
	RabbitMQ  RabbitMQConfig  `toml:"rabbitmq" yaml:"rabbitmq"`
	MinIO     MinIOConfig     `toml:"minio" yaml:"minio"`
	Arxiv     ArxivConfig     `toml:"arxiv" yaml:"arxiv"`
	PDF       PDFConfig       `toml:"pdf" yaml:"pdf"`
}

type AppConfig struct {
	Name        string   `toml:"name" yaml:"name"`
	Env         string   `toml:"env" yaml:"env"`
	Host        string   `toml:"host" yaml:"host"`
	Port        int      `toml:"port" yaml:"port"`
	GinMode     string   `toml:"gin_mode" yaml:"gin_mode"`
	LogLevel    string   `toml:"log_level" yaml:"log_level"`
	LogFormat   string   `toml:"log_format" yaml:"log_format"`
	CORSOrigins []string `toml:"cors_origins" yaml:"cors_origins"`
}

type AuthConfig struct {
	JWTSecret       string `toml:"jwt_secret" yaml:"jwt_secret"`
	JWTExpireMinute int    `toml:"jwt_expire_minute" yaml:"jwt_expire_minute"`
}

type LLMConfig struct {
	BaseURL        string  `toml:"base_url" yaml:"base_url"`
	APIKey         string  `toml:"api_key" yaml:"api_key"`
	Model          string  `toml:"model" yaml:"model"`
	Temperature    float64 `toml:"temperature" yaml:"temperature"`
	TimeoutSeconds int     `toml:"timeout_seconds" yaml:"timeout_seconds"`
	HistoryWindow  int     `toml:"history_window" yaml:"history_window"`
	ContextPapers  int     `toml:"context_papers" yaml:"context_papers"`
}

type EmbeddingConfig struct {
	Provider      string `toml:"provider" yaml:"provider"`
	Dimensions    int    `toml:"dimensions" yaml:"dimensions"`
	MaxInputChars int    `toml:"max_input_chars" yaml:"max_input_chars"`

	// onnx
	ModelPath         string `toml:"model_path" yaml:"model_path"`
	TokenizerPath     string `toml:"tokenizer_path" yaml:"tokenizer_path"`
	ONNXSharedLibPath string `toml:"onnx_shared_lib_path" yaml:"onnx_shared_lib_path"`
	MaxTokens         int    `toml:"max_tokens" yaml:"max_tokens"`

	// openai / ollama
	BaseURL        string `toml:"base_url" yaml:"base_url"`
	APIKey         string `toml:"api_key" yaml:"api_key"`
	Model          string `toml:"model" yaml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds" yaml:"timeout_seconds"`
}

type StorageConfig struct {
	Driver string `toml:"driver" yaml:"driver"`
}

type PostgresConfig struct {
	URL      string `toml:"url" yaml:"url"`
	Host     string `toml:"host" yaml:"host"`
	Port     int    `toml:"port" yaml:"port"`
	User     string `toml:"user" yaml:"user"`
	Password string `toml:"password" yaml:"password"`
	DB       string `toml:"db" yaml:"db"`
	SSLMode  string `toml:"sslmode" yaml:"sslmode"`
}

type RedisConfig struct {
	Addr              string `toml:"addr" yaml:"addr"`
	Password          string `toml:"password" yaml:"password"`
	DB                int    `toml:"db" yaml:"db"`
	HistoryTTLSeconds int    `toml:"history_ttl_seconds" yaml:"history_ttl_seconds"`
}

type RabbitMQConfig struct {
	URL      string `toml:"url" yaml:"url"`
	Exchange string `toml:"exchange" yaml:"exchange"`
}

type MinIOConfig struct {
	Endpoint  string `toml:"endpoint" yaml:"endpoint"`
	AccessKey string `toml:"access_key" yaml:"access_key"`
	SecretKey string `toml:"secret_key" yaml:"secret_key"`
	Bucket    string `toml:"bucket" yaml:"bucket"`
	UseSSL    bool   `toml:"use_ssl" yaml:"use_ssl"`
}

type ArxivConfig struct {
	BaseURL        string `toml:"base_url" yaml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds" yaml:"timeout_seconds"`
	MinIntervalMS  int    `toml:"min_interval_ms" yaml:"min_interval_ms"`
}

type PDFConfig struct {
	ErrorLogPath           string `toml:"error_log_path" yaml:"error_log_path"`
	MaxUploadMB            int    `toml:"max_upload_mb" yaml:"max_upload_mb"`
	DownloadTimeoutSeconds int    `toml:"download_timeout_seconds" yaml:"download_timeout_seconds"`
	AbstractChars          int    `toml:"abstract_chars" yaml:"abstract_chars"`
}

func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load(getEnv("ENV_FILE", ".env"))

	cfg := defaultConfig()

	configPath := getEnv("CONFIG_FILE", "configs/config.toml")
	if _, err := os.Stat(configPath); err == nil {
		if err := decodeFile(configPath, cfg); err != nil {
			return nil, err
		}
	}

	overrideByEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read config file failed: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return fmt.Errorf("decode yaml config file failed: %w", err)
		}
	default:
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return fmt.Errorf("decode config file failed: %w", err)
		}
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Embedding.Dimensions <= 0 {
		return errors.New("embedding.dimensions must be positive")
	}
	switch c.Embedding.Provider {
	case EmbeddingProviderONNX, EmbeddingProviderOpenAI, EmbeddingProviderOllama:
	default:
		return fmt.Errorf("unknown embedding.provider %q", c.Embedding.Provider)
	}
	switch c.Storage.Driver {
	case StorageDriverPostgres, StorageDriverMemory:
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	if c.LLM.HistoryWindow < 0 || c.LLM.ContextPapers < 0 {
		return errors.New("llm.history_window and llm.context_papers must not be negative")
	}
	return nil
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.App.Host, c.App.Port)
}

func (c *Config) PostgresDSN() string {
	if c.Postgres.URL != "" {
		return c.Postgres.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Postgres.Host,
		c.Postgres.Port,
		c.Postgres.User,
		c.Postgres.Password,
		c.Postgres.DB,
		c.Postgres.SSLMode,
	)
}

func (c *Config) JWTExpiration() time.Duration {
	return time.Duration(c.Auth.JWTExpireMinute) * time.Minute
}

func (c *Config) MaxUploadBytes() int64 {
	return int64(c.PDF.MaxUploadMB) << 20
}

func defaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:        "researchhub",
			Env:         "dev",
			Host:        "0.0.0.0",
			Port:        8000,
			GinMode:     "debug",
			LogLevel:    "info",
			LogFormat:   "text",
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Auth: AuthConfig{
			JWTSecret:       "change-me-in-production",
			JWTExpireMinute: 30,
		},
		LLM: LLMConfig{
			BaseURL:        "https://api.groq.com/openai/v1",
			Model:          "llama-3.3-70b-versatile",
			Temperature:    0.3,
			TimeoutSeconds: 60,
			HistoryWindow:  5,
			ContextPapers:  3,
		},
		Embedding: EmbeddingConfig{
			Provider:       EmbeddingProviderONNX,
			Dimensions:     384,
			MaxInputChars:  8000,
			ModelPath:      "assets/all-MiniLM-L6-v2/model.onnx",
			TokenizerPath:  "assets/all-MiniLM-L6-v2/tokenizer.json",
			MaxTokens:      256,
			BaseURL:        "http://localhost:11434",
			Model:          "all-minilm:l6-v2",
			TimeoutSeconds: 30,
		},
		Storage: StorageConfig{
			Driver: StorageDriverPostgres,
		},
		Postgres: PostgresConfig{
			Host:    "127.0.0.1",
			Port:    5432,
			User:    "postgres",
			DB:      "researchhub",
			SSLMode: "disable",
		},
		Redis: RedisConfig{
			Addr:              "127.0.0.1:6379",
			HistoryTTLSeconds: 300,
		},
		RabbitMQ: RabbitMQConfig{
			Exchange: "researchhub.events",
		},
		MinIO: MinIOConfig{
			Bucket: "papers",
		},
		Arxiv: ArxivConfig{
			BaseURL:        "https://export.arxiv.org/api/query",
			TimeoutSeconds: 20,
			MinIntervalMS:  3000,
		},
		PDF: PDFConfig{
			ErrorLogPath:           "pdf_errors.log",
			MaxUploadMB:            20,
			DownloadTimeoutSeconds: 60,
			AbstractChars:          1000,
		},
	}
}

func overrideByEnv(cfg *Config) {
	cfg.App.Name = getEnv("APP_NAME", cfg.App.Name)
	cfg.App.Env = getEnv("APP_ENV", cfg.App.Env)
	cfg.App.Host = getEnv("APP_HOST", cfg.App.Host)
	cfg.App.Port = getEnvAsInt("APP_PORT", cfg.App.Port)
	cfg.App.GinMode = getEnv("GIN_MODE", cfg.App.GinMode)
	cfg.App.LogLevel = getEnv("LOG_LEVEL", cfg.App.LogLevel)
	cfg.App.LogFormat = getEnv("LOG_FORMAT", cfg.App.LogFormat)
	cfg.App.CORSOrigins = getEnvAsList("CORS_ORIGINS", cfg.App.CORSOrigins)

	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.JWTExpireMinute = getEnvAsInt("JWT_EXPIRE_MINUTE", cfg.Auth.JWTExpireMinute)

	cfg.LLM.BaseURL = getEnv("LLM_BASE_URL", cfg.LLM.BaseURL)
	cfg.LLM.APIKey = getEnv("GROQ_API_KEY", cfg.LLM.APIKey)
	cfg.LLM.APIKey = getEnv("LLM_API_KEY", cfg.LLM.APIKey)
	cfg.LLM.Model = getEnv("LLM_MODEL", cfg.LLM.Model)
	cfg.LLM.Temperature = getEnvAsFloat("LLM_TEMPERATURE", cfg.LLM.Temperature)
	cfg.LLM.TimeoutSeconds = getEnvAsInt("LLM_TIMEOUT_SECONDS", cfg.LLM.TimeoutSeconds)
	cfg.LLM.HistoryWindow = getEnvAsInt("LLM_HISTORY_WINDOW", cfg.LLM.HistoryWindow)
	cfg.LLM.ContextPapers = getEnvAsInt("LLM_CONTEXT_PAPERS", cfg.LLM.ContextPapers)

	cfg.Embedding.Provider = getEnv("EMBEDDING_PROVIDER", cfg.Embedding.Provider)
	cfg.Embedding.Dimensions = getEnvAsInt("EMBEDDING_DIMENSIONS", cfg.Embedding.Dimensions)
	cfg.Embedding.MaxInputChars = getEnvAsInt("EMBEDDING_MAX_INPUT_CHARS", cfg.Embedding.MaxInputChars)
	cfg.Embedding.ModelPath = getEnv("EMBEDDING_MODEL_PATH", cfg.Embedding.ModelPath)
	cfg.Embedding.TokenizerPath = getEnv("EMBEDDING_TOKENIZER_PATH", cfg.Embedding.TokenizerPath)
	cfg.Embedding.ONNXSharedLibPath = getEnv("EMBEDDING_ONNX_LIB", cfg.Embedding.ONNXSharedLibPath)
	cfg.Embedding.MaxTokens = getEnvAsInt("EMBEDDING_MAX_TOKENS", cfg.Embedding.MaxTokens)
	cfg.Embedding.BaseURL = getEnv("EMBEDDING_BASE_URL", cfg.Embedding.BaseURL)
	cfg.Embedding.APIKey = getEnv("EMBEDDING_API_KEY", cfg.Embedding.APIKey)
	cfg.Embedding.Model = getEnv("EMBEDDING_MODEL", cfg.Embedding.Model)
	cfg.Embedding.TimeoutSeconds = getEnvAsInt("EMBEDDING_TIMEOUT_SECONDS", cfg.Embedding.TimeoutSeconds)

	cfg.Storage.Driver = getEnv("STORAGE_DRIVER", cfg.Storage.Driver)

	cfg.Postgres.URL = getEnv("DATABASE_URL", cfg.Postgres.URL)
	cfg.Postgres.Host = getEnv("POSTGRES_HOST", cfg.Postgres.Host)
	cfg.Postgres.Port = getEnvAsInt("POSTGRES_PORT", cfg.Postgres.Port)
	cfg.Postgres.User = getEnv("POSTGRES_USER", cfg.Postgres.User)
	cfg.Postgres.Password = getEnv("POSTGRES_PASSWORD", cfg.Postgres.Password)
	cfg.Postgres.DB = getEnv("POSTGRES_DB", cfg.Postgres.DB)
	cfg.Postgres.SSLMode = getEnv("POSTGRES_SSLMODE", cfg.Postgres.SSLMode)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.HistoryTTLSeconds = getEnvAsInt("REDIS_HISTORY_TTL_SECONDS", cfg.Redis.HistoryTTLSeconds)

	cfg.RabbitMQ.URL = getEnv("RABBITMQ_URL", cfg.RabbitMQ.URL)
	cfg.RabbitMQ.Exchange = getEnv("RABBITMQ_EXCHANGE", cfg.RabbitMQ.Exchange)

	cfg.MinIO.Endpoint = getEnv("MINIO_ENDPOINT", cfg.MinIO.Endpoint)
	cfg.MinIO.AccessKey = getEnv("MINIO_ACCESS_KEY", cfg.MinIO.AccessKey)
	cfg.MinIO.SecretKey = getEnv("MINIO_SECRET_KEY", cfg.MinIO.SecretKey)
	cfg.MinIO.Bucket = getEnv("MINIO_BUCKET", cfg.MinIO.Bucket)
	cfg.MinIO.UseSSL = getEnvAsBool("MINIO_USE_SSL", cfg.MinIO.UseSSL)

	cfg.Arxiv.BaseURL = getEnv("ARXIV_BASE_URL", cfg.Arxiv.BaseURL)
	cfg.Arxiv.TimeoutSeconds = getEnvAsInt("ARXIV_TIMEOUT_SECONDS", cfg.Arxiv.TimeoutSeconds)
	cfg.Arxiv.MinIntervalMS = getEnvAsInt("ARXIV_MIN_INTERVAL_MS", cfg.Arxiv.MinIntervalMS)

	cfg.PDF.ErrorLogPath = getEnv("PDF_ERROR_LOG", cfg.PDF.ErrorLogPath)
	cfg.PDF.MaxUploadMB = getEnvAsInt("PDF_MAX_UPLOAD_MB", cfg.PDF.MaxUploadMB)
	cfg.PDF.DownloadTimeoutSeconds = getEnvAsInt("PDF_DOWNLOAD_TIMEOUT_SECONDS", cfg.PDF.DownloadTimeoutSeconds)
	cfg.PDF.AbstractChars = getEnvAsInt("PDF_ABSTRACT_CHARS", cfg.PDF.AbstractChars)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsFloat(key string, fallback float64) float64 {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string, fallback []string) []string {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
