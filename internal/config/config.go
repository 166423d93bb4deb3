package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable read by Load
const EnvPrefix = "PRICING"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Sources   SourcesConfig   `yaml:"sources" envconfig:"SOURCES"`
	Engine    EngineConfig    `yaml:"engine" envconfig:"ENGINE"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	RateLimit RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" default:"1048576"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	// CalculationTimeout bounds one background recalculation
	CalculationTimeout time.Duration `yaml:"calculation_timeout" envconfig:"CALCULATION_TIMEOUT" default:"10m" validate:"gt=0"`
}

// RateLimitConfig throttles the recalculation endpoint
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"1" validate:"gt=0"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"3" validate:"min=1"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn warning error"`
	Format      string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output      string `yaml:"output" envconfig:"OUTPUT" default:"stdout" validate:"oneof=stdout stderr console file both"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/pricing.log"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT" default:"false"`
}

// PathsConfig contains file system paths configuration. Relative entries
// are resolved against Root.
type PathsConfig struct {
	Root      string `yaml:"root" envconfig:"ROOT" default:"."`
	DataDir   string `yaml:"data_dir" envconfig:"DATA_DIR" default:"."`
	OutputDir string `yaml:"output_dir" envconfig:"OUTPUT_DIR" default:"."`
	LogsDir   string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// SourcesConfig names the input files. Empty or missing workbooks fall back
// to the newest file in the data directory matching the source's patterns.
type SourcesConfig struct {
	PO       string `yaml:"po" envconfig:"PO" default:"PO.xlsx"`
	SINAPI   string `yaml:"sinapi" envconfig:"SINAPI" default:"SINAPI_Referência_2024_08.xlsx"`
	CDHU     string `yaml:"cdhu" envconfig:"CDHU" default:"TABELA COMPLETA CDHU.xlsx"`
	SICRO    string `yaml:"sicro" envconfig:"SICRO" default:"CE 07-2025 Relatório Analítico de Composições de Custos.xlsx"`
	Database string `yaml:"database" envconfig:"DATABASE" default:"dados/projeto.sqlite"`
}

// EngineConfig tunes the composition solver
type EngineConfig struct {
	MaxPasses int `yaml:"max_passes" envconfig:"MAX_PASSES" default:"15" validate:"min=1,max=1000"`
}

// TelemetryConfig controls tracing and metrics
type TelemetryConfig struct {
	Enabled        bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	ServiceName    string  `yaml:"service_name" envconfig:"SERVICE_NAME" default:"pricing"`
	Environment    string  `yaml:"environment" envconfig:"ENVIRONMENT" default:"development"`
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" default:"none" validate:"oneof=stdout none"`
	MetricExporter string  `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER" default:"prometheus" validate:"oneof=prometheus none"`
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" default:"1" validate:"gte=0,lte=1"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int      `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE" default:"1024" validate:"min=0"`
	WriteBufferSize int      `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE" default:"1024" validate:"min=0"`
	AllowedOrigins  []string `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	var cfg Config

	// Load from environment variables first
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// Load from config file if exists
	if configFile := getConfigFilePath(); configFile != "" {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// pick keeps an explicitly set env value, otherwise the file value when the
// file sets one.
func pick[T comparable](env, file, def T) T {
	var zero T
	if env != def || file == zero {
		return env
	}
	return file
}

// mergeConfigs merges file config with env config (env takes precedence
// whenever it differs from the built-in default)
func mergeConfigs(fileConfig, envConfig Config) Config {
	def := Default()
	out := envConfig

	out.Server.Port = pick(envConfig.Server.Port, fileConfig.Server.Port, def.Server.Port)
	out.Server.ReadTimeout = pick(envConfig.Server.ReadTimeout, fileConfig.Server.ReadTimeout, def.Server.ReadTimeout)
	out.Server.WriteTimeout = pick(envConfig.Server.WriteTimeout, fileConfig.Server.WriteTimeout, def.Server.WriteTimeout)
	out.Server.IdleTimeout = pick(envConfig.Server.IdleTimeout, fileConfig.Server.IdleTimeout, def.Server.IdleTimeout)
	out.Server.ShutdownTimeout = pick(envConfig.Server.ShutdownTimeout, fileConfig.Server.ShutdownTimeout, def.Server.ShutdownTimeout)
	out.Server.CalculationTimeout = pick(envConfig.Server.CalculationTimeout, fileConfig.Server.CalculationTimeout, def.Server.CalculationTimeout)

	out.Logging.Level = pick(envConfig.Logging.Level, fileConfig.Logging.Level, def.Logging.Level)
	out.Logging.Output = pick(envConfig.Logging.Output, fileConfig.Logging.Output, def.Logging.Output)
	out.Logging.FilePath = pick(envConfig.Logging.FilePath, fileConfig.Logging.FilePath, def.Logging.FilePath)
	out.Logging.Development = envConfig.Logging.Development || fileConfig.Logging.Development

	out.Paths.Root = pick(envConfig.Paths.Root, fileConfig.Paths.Root, def.Paths.Root)
	out.Paths.DataDir = pick(envConfig.Paths.DataDir, fileConfig.Paths.DataDir, def.Paths.DataDir)
	out.Paths.OutputDir = pick(envConfig.Paths.OutputDir, fileConfig.Paths.OutputDir, def.Paths.OutputDir)
	out.Paths.LogsDir = pick(envConfig.Paths.LogsDir, fileConfig.Paths.LogsDir, def.Paths.LogsDir)

	out.Sources.PO = pick(envConfig.Sources.PO, fileConfig.Sources.PO, def.Sources.PO)
	out.Sources.SINAPI = pick(envConfig.Sources.SINAPI, fileConfig.Sources.SINAPI, def.Sources.SINAPI)
	out.Sources.CDHU = pick(envConfig.Sources.CDHU, fileConfig.Sources.CDHU, def.Sources.CDHU)
	out.Sources.SICRO = pick(envConfig.Sources.SICRO, fileConfig.Sources.SICRO, def.Sources.SICRO)
	out.Sources.Database = pick(envConfig.Sources.Database, fileConfig.Sources.Database, def.Sources.Database)

	out.Engine.MaxPasses = pick(envConfig.Engine.MaxPasses, fileConfig.Engine.MaxPasses, def.Engine.MaxPasses)

	out.Telemetry.ServiceName = pick(envConfig.Telemetry.ServiceName, fileConfig.Telemetry.ServiceName, def.Telemetry.ServiceName)
	out.Telemetry.Environment = pick(envConfig.Telemetry.Environment, fileConfig.Telemetry.Environment, def.Telemetry.Environment)
	out.Telemetry.TraceExporter = pick(envConfig.Telemetry.TraceExporter, fileConfig.Telemetry.TraceExporter, def.Telemetry.TraceExporter)
	out.Telemetry.MetricExporter = pick(envConfig.Telemetry.MetricExporter, fileConfig.Telemetry.MetricExporter, def.Telemetry.MetricExporter)

	out.RateLimit.RPS = pick(envConfig.RateLimit.RPS, fileConfig.RateLimit.RPS, def.RateLimit.RPS)
	out.RateLimit.Burst = pick(envConfig.RateLimit.Burst, fileConfig.RateLimit.Burst, def.RateLimit.Burst)

	out.WebSocket.ReadBufferSize = pick(envConfig.WebSocket.ReadBufferSize, fileConfig.WebSocket.ReadBufferSize, def.WebSocket.ReadBufferSize)
	out.WebSocket.WriteBufferSize = pick(envConfig.WebSocket.WriteBufferSize, fileConfig.WebSocket.WriteBufferSize, def.WebSocket.WriteBufferSize)
	if len(out.WebSocket.AllowedOrigins) == 0 {
		out.WebSocket.AllowedOrigins = fileConfig.WebSocket.AllowedOrigins
	}

	return out
}

// validate checks the struct tags and normalizes logging settings
func (c *Config) validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	// Logs are always JSON
	c.Logging.Format = "json"
	if c.Logging.Level == "warning" {
		c.Logging.Level = "warn"
	}
	return nil
}

// Validate exposes validation for configs assembled outside Load
func (c *Config) Validate() error {
	return c.validate()
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if explicit := os.Getenv(EnvPrefix + "_CONFIG"); explicit != "" {
		return explicit
	}

	// Check for config file in common locations
	locations := []string{
		"pricing.yaml",
		"config.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:               8080,
			ReadTimeout:        15 * time.Second,
			WriteTimeout:       15 * time.Second,
			IdleTimeout:        60 * time.Second,
			MaxHeaderBytes:     1 << 20, // 1MB
			ShutdownTimeout:    30 * time.Second,
			CalculationTimeout: 10 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "stdout",
			FilePath: "logs/pricing.log",
		},
		Paths: PathsConfig{
			Root:      ".",
			DataDir:   ".",
			OutputDir: ".",
			LogsDir:   "logs",
		},
		Sources: SourcesConfig{
			PO:       "PO.xlsx",
			SINAPI:   "SINAPI_Referência_2024_08.xlsx",
			CDHU:     "TABELA COMPLETA CDHU.xlsx",
			SICRO:    "CE 07-2025 Relatório Analítico de Composições de Custos.xlsx",
			Database: "dados/projeto.sqlite",
		},
		Engine: EngineConfig{
			MaxPasses: DefaultMaxPasses,
		},
		Telemetry: TelemetryConfig{
			Enabled:        true,
			ServiceName:    AppName,
			Environment:    "development",
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			SampleRatio:    1.0,
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			RPS:     1,
			Burst:   3,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}
