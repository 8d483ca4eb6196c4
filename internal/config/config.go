package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	apperrors "github.com/gmsas95/invoice-audit/internal/errors"
)

// Config holds all configuration for invoice-audit
type Config struct {
	Environment string           `mapstructure:"environment"`
	Server      ServerConfig     `mapstructure:"server"`
	Security    SecurityConfig   `mapstructure:"security"`
	Storage     StorageConfig    `mapstructure:"storage"`
	Extraction  ExtractionConfig `mapstructure:"extraction"`
	Ledger      LedgerConfig     `mapstructure:"ledger"`
	Reconcile   ReconcileConfig  `mapstructure:"reconcile"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Address      string `mapstructure:"address"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	BodyLimitMB  int    `mapstructure:"body_limit_mb"`
}

// SecurityConfig holds CORS settings
type SecurityConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// StorageConfig holds upload directory settings
type StorageConfig struct {
	DataDir       string        `mapstructure:"data_dir"`
	UploadDir     string        `mapstructure:"upload_dir"`
	UploadTTL     time.Duration `mapstructure:"upload_ttl"`
	SweepSchedule string        `mapstructure:"sweep_schedule"`
}

// ExtractionConfig holds rasterizer and vision model settings
type ExtractionConfig struct {
	APIKey          string        `mapstructure:"api_key"`
	Model           string        `mapstructure:"model"`
	GhostscriptPath string        `mapstructure:"ghostscript_path"`
	Resolution      int           `mapstructure:"resolution"`
	JPEGQuality     int           `mapstructure:"jpeg_quality"`
	MaxPages        int           `mapstructure:"max_pages"`
	BatchSize       int           `mapstructure:"batch_size"`
	BatchDelay      time.Duration `mapstructure:"batch_delay"`
	RPM             int           `mapstructure:"rpm"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	BreakerFailures uint32        `mapstructure:"breaker_failures"`
	BreakerTimeout  time.Duration `mapstructure:"breaker_timeout"`
}

// LedgerConfig holds spreadsheet reading settings
type LedgerConfig struct {
	Sheet         string `mapstructure:"sheet"`
	ColumnMapFile string `mapstructure:"column_map_file"`
}

// ReconcileConfig holds matching policy settings
type ReconcileConfig struct {
	GrossNetCritical bool `mapstructure:"grossnet_critical"`
}

// Load loads configuration from file, env, and defaults
func Load(configPath, dataDir string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if dataDir == "" {
		dataDir = getDefaultDataDir()
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	v.Set("storage.data_dir", dataDir)
	v.SetDefault("storage.upload_dir", filepath.Join(dataDir, "uploads"))

	if configPath == "" {
		configPath = filepath.Join(dataDir, "invoice-audit.yaml")
	}

	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeConfigInvalid, "failed to read config")
		}
	}

	// AUDIT_SERVER_PORT, AUDIT_EXTRACTION_API_KEY, ...
	v.SetEnvPrefix("AUDIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	loadEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("server.address", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 600)
	v.SetDefault("server.body_limit_mb", 5)

	v.SetDefault("security.allow_origins", []string{"*"})

	v.SetDefault("storage.upload_ttl", time.Hour)
	v.SetDefault("storage.sweep_schedule", "@every 15m")

	v.SetDefault("extraction.model", "gemini-1.5-flash")
	v.SetDefault("extraction.ghostscript_path", "gs")
	v.SetDefault("extraction.resolution", 300)
	v.SetDefault("extraction.jpeg_quality", 100)
	v.SetDefault("extraction.max_pages", 100)
	v.SetDefault("extraction.batch_size", 10)
	v.SetDefault("extraction.batch_delay", 80*time.Second)
	v.SetDefault("extraction.rpm", 15)
	v.SetDefault("extraction.request_timeout", 90*time.Second)
	v.SetDefault("extraction.breaker_failures", 5)
	v.SetDefault("extraction.breaker_timeout", 60*time.Second)

	v.SetDefault("reconcile.grossnet_critical", true)
}

func getDefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "invoice-audit")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}

	return filepath.Join(home, ".local", "share", "invoice-audit")
}

// loadEnvOverrides applies alias variables that AutomaticEnv cannot see
func loadEnvOverrides(cfg *Config) {
	if apiKey := lookupEnv("AUDIT_EXTRACTION_API_KEY"); apiKey != "" {
		cfg.Extraction.APIKey = apiKey
	}

	if env := lookupEnv("AUDIT_ENVIRONMENT"); env != "" {
		cfg.Environment = env
	}

	if port := os.Getenv("PORT"); port != "" && os.Getenv("AUDIT_SERVER_PORT") == "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
}

func validate(cfg *Config) error {
	invalid := func(format string, args ...any) error {
		return apperrors.New(apperrors.CodeConfigInvalid, fmt.Sprintf(format, args...))
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return invalid("server.port out of range: %d", cfg.Server.Port)
	}
	if cfg.Server.BodyLimitMB <= 0 {
		return invalid("server.body_limit_mb must be positive")
	}
	if cfg.Extraction.BatchSize <= 0 {
		return invalid("extraction.batch_size must be positive")
	}
	if cfg.Extraction.BatchDelay < 0 {
		return invalid("extraction.batch_delay must not be negative")
	}
	if cfg.Extraction.MaxPages <= 0 {
		return invalid("extraction.max_pages must be positive")
	}
	if cfg.Storage.UploadDir == "" {
		return invalid("storage.upload_dir is required")
	}
	return nil
}

// IsProduction reports whether detailed error output should be suppressed.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// ListenAddr returns the address the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// HasVisionModel reports whether PDF extraction can run.
func (c *Config) HasVisionModel() bool {
	return c.Extraction.APIKey != ""
}
