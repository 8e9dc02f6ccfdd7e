package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix prefixes every environment variable, e.g. GRADES_SERVER_PORT.
const EnvPrefix = "GRADES"

// ConfigFileEnv names a YAML file that overrides the search locations.
const ConfigFileEnv = "GRADES_CONFIG_FILE"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Upload    UploadConfig    `yaml:"upload" envconfig:"UPLOAD"`
	Workbook  WorkbookConfig  `yaml:"workbook" envconfig:"WORKBOOK"`
	Export    ExportConfig    `yaml:"export" envconfig:"EXPORT"`
	Sheets    SheetsConfig    `yaml:"sheets" envconfig:"SHEETS"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"90s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" default:"1048576"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" default:"75s"`
	OpenBrowser     bool          `yaml:"open_browser" envconfig:"OPEN_BROWSER" default:"false"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS" default:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
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
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/gradereport.log"`
}

// UploadConfig limits spreadsheet uploads and the sessions they create.
type UploadConfig struct {
	MaxBytes    int64         `yaml:"max_bytes" envconfig:"MAX_BYTES" default:"10485760"`
	SessionTTL  time.Duration `yaml:"session_ttl" envconfig:"SESSION_TTL" default:"2h"`
	MaxSessions int           `yaml:"max_sessions" envconfig:"MAX_SESSIONS" default:"100"`
}

// WorkbookConfig describes where the grade table sits in the workbook.
type WorkbookConfig struct {
	SheetName   string `yaml:"sheet_name" envconfig:"SHEET_NAME" default:"Pasiekimų ir lankomumo"`
	SkipRows    int    `yaml:"skip_rows" envconfig:"SKIP_ROWS" default:"3"`
	WindowStart int    `yaml:"window_start" envconfig:"WINDOW_START" default:"2"`
	WindowEnd   int    `yaml:"window_end" envconfig:"WINDOW_END" default:"25"`
}

// ExportConfig configures PDF rendering.
type ExportConfig struct {
	Title      string        `yaml:"title" envconfig:"TITLE" default:"Mokinių pasiekimų ataskaita"`
	TempDir    string        `yaml:"temp_dir" envconfig:"TEMP_DIR"`
	ChromePath string        `yaml:"chrome_path" envconfig:"CHROME_PATH"`
	Headless   bool          `yaml:"headless" envconfig:"HEADLESS" default:"true"`
	NoSandbox  bool          `yaml:"no_sandbox" envconfig:"NO_SANDBOX" default:"false"`
	Timeout    time.Duration `yaml:"timeout" envconfig:"TIMEOUT" default:"60s"`
	DisablePDF bool          `yaml:"disable_pdf" envconfig:"DISABLE_PDF" default:"false"`
}

// SheetsConfig enables importing grades straight from Google Sheets.
type SheetsConfig struct {
	Enabled         bool   `yaml:"enabled" envconfig:"ENABLED" default:"false"`
	CredentialsFile string `yaml:"credentials_file" envconfig:"CREDENTIALS_FILE"`
	APIKey          string `yaml:"api_key" envconfig:"API_KEY"`
}

// TelemetryConfig selects the OpenTelemetry exporters.
type TelemetryConfig struct {
	Environment    string  `yaml:"environment" envconfig:"ENVIRONMENT" default:"development"`
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" default:"none"`
	MetricExporter string  `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER" default:"prometheus"`
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" default:"1"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE" default:"1024"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE" default:"4096"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD" default:"30s"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT" default:"60s"`
	MaxMessageBytes int64         `yaml:"max_message_bytes" envconfig:"MAX_MESSAGE_BYTES" default:"4096"`
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
		cfg = mergeConfigs(*fileConfig, cfg, os.LookupEnv)
	}

	// Validate configuration
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

// mergeConfigs lets file values replace defaults. A value explicitly set in
// the environment always wins.
func mergeConfigs(fileConfig, envConfig Config, lookup func(string) (string, bool)) Config {
	set := func(name string) bool {
		_, ok := lookup(EnvPrefix + "_" + name)
		return ok
	}

	// Server config
	if fileConfig.Server.Port != 0 && !set("SERVER_PORT") {
		envConfig.Server.Port = fileConfig.Server.Port
	}
	if fileConfig.Server.ReadTimeout != 0 && !set("SERVER_READ_TIMEOUT") {
		envConfig.Server.ReadTimeout = fileConfig.Server.ReadTimeout
	}
	if fileConfig.Server.WriteTimeout != 0 && !set("SERVER_WRITE_TIMEOUT") {
		envConfig.Server.WriteTimeout = fileConfig.Server.WriteTimeout
	}
	if fileConfig.Server.RequestTimeout != 0 && !set("SERVER_REQUEST_TIMEOUT") {
		envConfig.Server.RequestTimeout = fileConfig.Server.RequestTimeout
	}
	if fileConfig.Server.OpenBrowser && !set("SERVER_OPEN_BROWSER") {
		envConfig.Server.OpenBrowser = true
	}

	// Security config
	if len(fileConfig.Security.AllowedOrigins) > 0 && !set("SECURITY_ALLOWED_ORIGINS") {
		envConfig.Security.AllowedOrigins = fileConfig.Security.AllowedOrigins
	}
	if fileConfig.Security.RateLimit.RPS != 0 && !set("SECURITY_RATE_LIMIT_RPS") {
		envConfig.Security.RateLimit.RPS = fileConfig.Security.RateLimit.RPS
	}
	if fileConfig.Security.RateLimit.Burst != 0 && !set("SECURITY_RATE_LIMIT_BURST") {
		envConfig.Security.RateLimit.Burst = fileConfig.Security.RateLimit.Burst
	}

	// Logging config
	if fileConfig.Logging.Level != "" && !set("LOGGING_LEVEL") {
		envConfig.Logging.Level = fileConfig.Logging.Level
	}
	if fileConfig.Logging.Output != "" && !set("LOGGING_OUTPUT") {
		envConfig.Logging.Output = fileConfig.Logging.Output
	}
	if fileConfig.Logging.FilePath != "" && !set("LOGGING_FILE_PATH") {
		envConfig.Logging.FilePath = fileConfig.Logging.FilePath
	}

	// Upload config
	if fileConfig.Upload.MaxBytes != 0 && !set("UPLOAD_MAX_BYTES") {
		envConfig.Upload.MaxBytes = fileConfig.Upload.MaxBytes
	}
	if fileConfig.Upload.SessionTTL != 0 && !set("UPLOAD_SESSION_TTL") {
		envConfig.Upload.SessionTTL = fileConfig.Upload.SessionTTL
	}
	if fileConfig.Upload.MaxSessions != 0 && !set("UPLOAD_MAX_SESSIONS") {
		envConfig.Upload.MaxSessions = fileConfig.Upload.MaxSessions
	}

	// Workbook config
	if fileConfig.Workbook.SheetName != "" && !set("WORKBOOK_SHEET_NAME") {
		envConfig.Workbook.SheetName = fileConfig.Workbook.SheetName
	}
	if fileConfig.Workbook.SkipRows != 0 && !set("WORKBOOK_SKIP_ROWS") {
		envConfig.Workbook.SkipRows = fileConfig.Workbook.SkipRows
	}

	// Export config
	if fileConfig.Export.Title != "" && !set("EXPORT_TITLE") {
		envConfig.Export.Title = fileConfig.Export.Title
	}
	if fileConfig.Export.TempDir != "" && !set("EXPORT_TEMP_DIR") {
		envConfig.Export.TempDir = fileConfig.Export.TempDir
	}
	if fileConfig.Export.ChromePath != "" && !set("EXPORT_CHROME_PATH") {
		envConfig.Export.ChromePath = fileConfig.Export.ChromePath
	}
	if fileConfig.Export.NoSandbox && !set("EXPORT_NO_SANDBOX") {
		envConfig.Export.NoSandbox = true
	}
	if fileConfig.Export.Timeout != 0 && !set("EXPORT_TIMEOUT") {
		envConfig.Export.Timeout = fileConfig.Export.Timeout
	}
	if fileConfig.Export.DisablePDF && !set("EXPORT_DISABLE_PDF") {
		envConfig.Export.DisablePDF = true
	}

	// Sheets config
	if fileConfig.Sheets.Enabled && !set("SHEETS_ENABLED") {
		envConfig.Sheets.Enabled = true
	}
	if fileConfig.Sheets.CredentialsFile != "" && !set("SHEETS_CREDENTIALS_FILE") {
		envConfig.Sheets.CredentialsFile = fileConfig.Sheets.CredentialsFile
	}
	if fileConfig.Sheets.APIKey != "" && !set("SHEETS_API_KEY") {
		envConfig.Sheets.APIKey = fileConfig.Sheets.APIKey
	}

	// Telemetry config
	if fileConfig.Telemetry.Environment != "" && !set("TELEMETRY_ENVIRONMENT") {
		envConfig.Telemetry.Environment = fileConfig.Telemetry.Environment
	}
	if fileConfig.Telemetry.TraceExporter != "" && !set("TELEMETRY_TRACE_EXPORTER") {
		envConfig.Telemetry.TraceExporter = fileConfig.Telemetry.TraceExporter
	}
	if fileConfig.Telemetry.MetricExporter != "" && !set("TELEMETRY_METRIC_EXPORTER") {
		envConfig.Telemetry.MetricExporter = fileConfig.Telemetry.MetricExporter
	}

	return envConfig
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("upload max bytes must be positive")
	}

	if strings.TrimSpace(c.Workbook.SheetName) == "" {
		return fmt.Errorf("workbook sheet name must not be empty")
	}

	if c.Workbook.SkipRows < 0 {
		return fmt.Errorf("workbook skip rows must not be negative")
	}

	if c.Workbook.WindowStart < 2 || c.Workbook.WindowEnd <= c.Workbook.WindowStart {
		return fmt.Errorf("invalid subject column window [%d, %d)", c.Workbook.WindowStart, c.Workbook.WindowEnd)
	}

	if c.Sheets.Enabled && c.Sheets.CredentialsFile == "" && c.Sheets.APIKey == "" {
		return fmt.Errorf("sheets import requires a credentials file or an api key")
	}

	switch strings.ToLower(c.Logging.Output) {
	case "console", "file", "both":
	default:
		return fmt.Errorf("invalid logging output: %s", c.Logging.Output)
	}

	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/gradereport.log"
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if explicit := os.Getenv(ConfigFileEnv); explicit != "" {
		return explicit
	}

	// Check for config file in common locations
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

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    90 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  75 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     20,
				Burst:   40,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "console",
			FilePath: "logs/gradereport.log",
		},
		Upload: UploadConfig{
			MaxBytes:    10 << 20, // 10MB
			SessionTTL:  2 * time.Hour,
			MaxSessions: 100,
		},
		Workbook: WorkbookConfig{
			SheetName:   DefaultSheetName,
			SkipRows:    DefaultSkipRows,
			WindowStart: DefaultWindowStart,
			WindowEnd:   DefaultWindowEnd,
		},
		Export: ExportConfig{
			Title:    DefaultReportTitle,
			Headless: true,
			Timeout:  60 * time.Second,
		},
		Telemetry: TelemetryConfig{
			Environment:    "development",
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			SampleRatio:    1,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			PingPeriod:      30 * time.Second,
			PongWait:        60 * time.Second,
			MaxMessageBytes: 4096,
		},
	}
}
