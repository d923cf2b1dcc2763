package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable, e.g. PULSE_SERVER_PORT
const EnvPrefix = "PULSE"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Source    SourceConfig    `yaml:"source" envconfig:"SOURCE"`
	Export    ExportConfig    `yaml:"export" envconfig:"EXPORT"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"60s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// SecurityConfig contains request throttling configuration
type SecurityConfig struct {
	RateLimit RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"20"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"40"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/pulse.log"`
}

// SourceConfig describes where enrollment records are loaded from
type SourceConfig struct {
	// AppsScriptURL is the deployed web app answering ?action=getData
	AppsScriptURL string        `yaml:"apps_script_url" envconfig:"APPS_SCRIPT_URL"`
	FetchTimeout  time.Duration `yaml:"fetch_timeout" envconfig:"FETCH_TIMEOUT" default:"30s"`

	SheetID         string `yaml:"sheet_id" envconfig:"SHEET_ID"`
	SheetRange      string `yaml:"sheet_range" envconfig:"SHEET_RANGE" default:"Sheet1"`
	SheetsAPIKey    string `yaml:"sheets_api_key" envconfig:"SHEETS_API_KEY"`
	CredentialsFile string `yaml:"credentials_file" envconfig:"CREDENTIALS_FILE"`

	// StatusPolicy selects the status classifier: strict or loose
	StatusPolicy string `yaml:"status_policy" envconfig:"STATUS_POLICY" default:"strict"`
}

// ExportConfig contains upload and download limits
type ExportConfig struct {
	MaxUploadBytes int64  `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES" default:"10485760"`
	OutputDir      string `yaml:"output_dir" envconfig:"OUTPUT_DIR" default:"reports"`
}

// TelemetryConfig toggles metrics and tracing exporters
type TelemetryConfig struct {
	MetricExporter string  `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER" default:"prometheus"`
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" default:"none"`
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" default:"1"`
	Environment    string  `yaml:"environment" envconfig:"ENVIRONMENT" default:"development"`
}

// Load loads configuration from environment variables and an optional config file
func Load() (*Config, error) {
	return LoadFrom(getConfigFilePath())
}

// LoadFrom loads configuration with configFile as the YAML layer.
// An empty configFile skips the file layer.
func LoadFrom(configFile string) (*Config, error) {
	var cfg Config

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			fileConfig, err := loadFromFile(configFile)
			if err != nil {
				return nil, fmt.Errorf("failed to load config from file: %w", err)
			}
			cfg = mergeConfigs(*fileConfig, cfg)
		}
	}

	if err := cfg.Validate(); err != nil {
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

// mergeConfigs layers explicitly set environment variables over the file config.
// envconfig has already applied defaults, so a field counts as set from the
// environment only when its variable is present.
func mergeConfigs(fileConfig, envConfig Config) Config {
	out := envConfig

	pick := func(env string) bool {
		_, ok := os.LookupEnv(EnvPrefix + "_" + env)
		return ok
	}

	if !pick("SERVER_PORT") && fileConfig.Server.Port != 0 {
		out.Server.Port = fileConfig.Server.Port
	}
	if !pick("SERVER_READ_TIMEOUT") && fileConfig.Server.ReadTimeout != 0 {
		out.Server.ReadTimeout = fileConfig.Server.ReadTimeout
	}
	if !pick("SERVER_WRITE_TIMEOUT") && fileConfig.Server.WriteTimeout != 0 {
		out.Server.WriteTimeout = fileConfig.Server.WriteTimeout
	}
	if !pick("LOGGING_LEVEL") && fileConfig.Logging.Level != "" {
		out.Logging.Level = fileConfig.Logging.Level
	}
	if !pick("LOGGING_OUTPUT") && fileConfig.Logging.Output != "" {
		out.Logging.Output = fileConfig.Logging.Output
	}
	if !pick("LOGGING_FILE_PATH") && fileConfig.Logging.FilePath != "" {
		out.Logging.FilePath = fileConfig.Logging.FilePath
	}
	if !pick("SOURCE_APPS_SCRIPT_URL") && fileConfig.Source.AppsScriptURL != "" {
		out.Source.AppsScriptURL = fileConfig.Source.AppsScriptURL
	}
	if !pick("SOURCE_FETCH_TIMEOUT") && fileConfig.Source.FetchTimeout != 0 {
		out.Source.FetchTimeout = fileConfig.Source.FetchTimeout
	}
	if !pick("SOURCE_SHEET_ID") && fileConfig.Source.SheetID != "" {
		out.Source.SheetID = fileConfig.Source.SheetID
	}
	if !pick("SOURCE_SHEET_RANGE") && fileConfig.Source.SheetRange != "" {
		out.Source.SheetRange = fileConfig.Source.SheetRange
	}
	if !pick("SOURCE_SHEETS_API_KEY") && fileConfig.Source.SheetsAPIKey != "" {
		out.Source.SheetsAPIKey = fileConfig.Source.SheetsAPIKey
	}
	if !pick("SOURCE_CREDENTIALS_FILE") && fileConfig.Source.CredentialsFile != "" {
		out.Source.CredentialsFile = fileConfig.Source.CredentialsFile
	}
	if !pick("SOURCE_STATUS_POLICY") && fileConfig.Source.StatusPolicy != "" {
		out.Source.StatusPolicy = fileConfig.Source.StatusPolicy
	}
	if !pick("EXPORT_MAX_UPLOAD_BYTES") && fileConfig.Export.MaxUploadBytes != 0 {
		out.Export.MaxUploadBytes = fileConfig.Export.MaxUploadBytes
	}
	if !pick("EXPORT_OUTPUT_DIR") && fileConfig.Export.OutputDir != "" {
		out.Export.OutputDir = fileConfig.Export.OutputDir
	}
	if !pick("SECURITY_RATE_LIMIT_ENABLED") && fileConfig.Security.RateLimit.RPS != 0 {
		out.Security.RateLimit = fileConfig.Security.RateLimit
	}
	if !pick("TELEMETRY_METRIC_EXPORTER") && fileConfig.Telemetry.MetricExporter != "" {
		out.Telemetry.MetricExporter = fileConfig.Telemetry.MetricExporter
	}
	if !pick("TELEMETRY_TRACE_EXPORTER") && fileConfig.Telemetry.TraceExporter != "" {
		out.Telemetry.TraceExporter = fileConfig.Telemetry.TraceExporter
	}

	return out
}

// Validate checks the configuration and normalizes enumerations
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Source.FetchTimeout <= 0 {
		return fmt.Errorf("source fetch timeout must be positive")
	}

	if c.Source.AppsScriptURL != "" {
		if err := ValidateSourceURL(c.Source.AppsScriptURL); err != nil {
			return err
		}
	}

	c.Source.StatusPolicy = strings.ToLower(strings.TrimSpace(c.Source.StatusPolicy))
	switch c.Source.StatusPolicy {
	case "":
		c.Source.StatusPolicy = StatusPolicyStrict
	case StatusPolicyStrict, StatusPolicyLoose:
	default:
		return fmt.Errorf("unknown status policy: %q", c.Source.StatusPolicy)
	}

	if c.Export.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive")
	}

	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}

	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		c.Logging.Output = "console"
	}

	return nil
}

// ValidateSourceURL checks that raw is an absolute http(s) URL
func ValidateSourceURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid source url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("source url must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("source url has no host")
	}
	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if p := os.Getenv(EnvPrefix + "_CONFIG_FILE"); p != "" {
		return p
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Security: SecurityConfig{
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     20,
				Burst:   40,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/pulse.log",
		},
		Source: SourceConfig{
			FetchTimeout: DefaultFetchTimeout,
			SheetRange:   "Sheet1",
			StatusPolicy: StatusPolicyStrict,
		},
		Export: ExportConfig{
			MaxUploadBytes: DefaultMaxUploadBytes,
			OutputDir:      "reports",
		},
		Telemetry: TelemetryConfig{
			MetricExporter: "prometheus",
			TraceExporter:  "none",
			SampleRatio:    1,
			Environment:    "development",
		},
	}
}
