// Package config provides YAML configuration with environment variable
// overrides for the safeguard service.
package config

import (
	"fmt"
	"time"

	"github.com/havenmind/safeguard/internal/domain"
)

// Default configuration values.
const (
	defaultServiceName       = "safeguard"
	defaultServiceVersion    = "1.0.0"
	defaultServicePort       = 8085
	defaultDBHost            = "localhost"
	defaultDBPort            = "5432"
	defaultDBUser            = "postgres"
	defaultDBName            = "safeguard"
	defaultDBSSLMode         = "disable"
	defaultAnalyzerURL       = "http://risk-analyzer:8086"
	defaultAnalyzerTimeout   = 5 * time.Second
	defaultAnalyzerRPS       = 20
	defaultAnalyzerBurst     = 40
	defaultSensitivity       = "medium"
	defaultBatchConcurrency  = 10
	defaultNotifyTimeout     = 10 * time.Second
	defaultLogLevel          = "info"
	defaultLogFormat         = "json"
	defaultModerateEscalate  = 10 * time.Minute
	defaultSevereEscalate    = 5 * time.Minute
	defaultEmergencyEscalate = 2 * time.Minute
)

// Config holds all configuration for the safeguard service.
type Config struct {
	Service   ServiceConfig   `yaml:"service"`
	Database  DatabaseConfig  `yaml:"database"`
	Analyzer  AnalyzerConfig  `yaml:"analyzer"`
	Detection DetectionConfig `yaml:"detection"`
	Protocol  ProtocolConfig  `yaml:"protocol"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServiceConfig holds service-level configuration.
type ServiceConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Port    int    `env:"SAFEGUARD_PORT" yaml:"port"`
	Debug   bool   `env:"APP_DEBUG"      yaml:"debug"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Host     string `env:"POSTGRES_HOST"     yaml:"host"`
	Port     string `env:"POSTGRES_PORT"     yaml:"port"`
	User     string `env:"POSTGRES_USER"     yaml:"user"`
	Password string `env:"POSTGRES_PASSWORD" yaml:"password"`
	Database string `env:"POSTGRES_DB"       yaml:"database"`
	SSLMode  string `env:"POSTGRES_SSLMODE"  yaml:"sslmode"`
}

// AnalyzerConfig holds the model analyzer sidecar configuration.
type AnalyzerConfig struct {
	Enabled bool          `env:"ANALYZER_ENABLED" yaml:"enabled"`
	URL     string        `env:"ANALYZER_URL"     yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
	RPS     int           `yaml:"rps"`
	Burst   int           `yaml:"burst"`
}

// DetectionConfig holds risk detection configuration.
type DetectionConfig struct {
	// Sensitivity is the default assessment sensitivity (low, medium, high).
	Sensitivity string `env:"DETECTION_SENSITIVITY" yaml:"sensitivity"`
	// LexiconPath points to an optional YAML lexicon extension file.
	LexiconPath string `env:"LEXICON_PATH" yaml:"lexicon_path"`
	// BatchConcurrency bounds the batch assessment worker pool.
	BatchConcurrency int `yaml:"batch_concurrency"`
}

// ProtocolConfig holds crisis protocol configuration.
type ProtocolConfig struct {
	// Alerts configures one entry per alert level.
	Alerts []domain.AlertConfiguration `yaml:"alerts"`
	// Channels maps alert levels to staff channel identifiers.
	Channels map[domain.AlertLevel][]string `yaml:"channels"`
	// Webhooks maps channel identifiers to webhook URLs.
	Webhooks map[string]string `yaml:"webhooks"`
	// EmergencyTerms overrides the built-in immediate-danger term list.
	EmergencyTerms []string `yaml:"emergency_terms"`
	// NotifyTimeout bounds a single webhook delivery.
	NotifyTimeout time.Duration `yaml:"notify_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL"  yaml:"level"`
	Format string `env:"LOG_FORMAT" yaml:"format"`
}

// Load reads the YAML config file at path, applies defaults and env
// overrides, and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := load(path, &cfg); err != nil {
		return nil, err
	}

	cfg.setDefaults()
	// Env always wins, including over defaults.
	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Service.Name == "" {
		c.Service.Name = defaultServiceName
	}
	if c.Service.Version == "" {
		c.Service.Version = defaultServiceVersion
	}
	if c.Service.Port == 0 {
		c.Service.Port = defaultServicePort
	}
	if c.Database.Host == "" {
		c.Database.Host = defaultDBHost
	}
	if c.Database.Port == "" {
		c.Database.Port = defaultDBPort
	}
	if c.Database.User == "" {
		c.Database.User = defaultDBUser
	}
	if c.Database.Database == "" {
		c.Database.Database = defaultDBName
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = defaultDBSSLMode
	}
	if c.Analyzer.URL == "" {
		c.Analyzer.URL = defaultAnalyzerURL
	}
	if c.Analyzer.Timeout == 0 {
		c.Analyzer.Timeout = defaultAnalyzerTimeout
	}
	if c.Analyzer.RPS == 0 {
		c.Analyzer.RPS = defaultAnalyzerRPS
	}
	if c.Analyzer.Burst == 0 {
		c.Analyzer.Burst = defaultAnalyzerBurst
	}
	if c.Detection.Sensitivity == "" {
		c.Detection.Sensitivity = defaultSensitivity
	}
	if c.Detection.BatchConcurrency == 0 {
		c.Detection.BatchConcurrency = defaultBatchConcurrency
	}
	if c.Protocol.NotifyTimeout == 0 {
		c.Protocol.NotifyTimeout = defaultNotifyTimeout
	}
	if len(c.Protocol.Alerts) == 0 {
		c.Protocol.Alerts = DefaultAlertConfigurations()
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Service.Port <= 0 || c.Service.Port > 65535 {
		return fmt.Errorf("service port out of range: %d", c.Service.Port)
	}
	if !domain.Sensitivity(c.Detection.Sensitivity).Valid() {
		return fmt.Errorf("unknown detection sensitivity: %q", c.Detection.Sensitivity)
	}
	if c.Detection.BatchConcurrency < 0 {
		return fmt.Errorf("batch concurrency must not be negative: %d", c.Detection.BatchConcurrency)
	}
	seen := make(map[domain.AlertLevel]bool, len(c.Protocol.Alerts))
	for _, ac := range c.Protocol.Alerts {
		if !ac.Level.Valid() {
			return fmt.Errorf("unknown alert level: %q", ac.Level)
		}
		if seen[ac.Level] {
			return fmt.Errorf("duplicate alert configuration for level %q", ac.Level)
		}
		seen[ac.Level] = true
	}
	for level := range c.Protocol.Channels {
		if !level.Valid() {
			return fmt.Errorf("unknown alert level in channels: %q", level)
		}
	}
	return nil
}

// DefaultAlertConfigurations returns the built-in alert ladder used when
// the config file does not define one.
func DefaultAlertConfigurations() []domain.AlertConfiguration {
	return []domain.AlertConfiguration{
		{
			Level:            domain.AlertLevelConcern,
			Name:             "Concern",
			Description:      "Low-confidence risk signal worth awareness",
			ThresholdScore:   0.4,
			RequiredActions:  []string{"review transcript"},
			ResponseTemplate: "Concern-level signal detected: {terms}",
		},
		{
			Level:             domain.AlertLevelModerate,
			Name:              "Moderate",
			Description:       "Clear risk indicators requiring follow-up",
			ThresholdScore:    0.5,
			AutoEscalateAfter: defaultModerateEscalate,
			RequiredActions:   []string{"review transcript", "check in with user"},
			ResponseTemplate:  "Moderate alert ({level}): detected {terms}",
		},
		{
			Level:             domain.AlertLevelSevere,
			Name:              "Severe",
			Description:       "Strong crisis indicators, urgent response needed",
			ThresholdScore:    0.7,
			AutoEscalateAfter: defaultSevereEscalate,
			RequiredActions:   []string{"contact user immediately", "notify duty clinician"},
			ResponseTemplate:  "SEVERE alert ({level}): detected {terms}",
		},
		{
			Level:             domain.AlertLevelEmergency,
			Name:              "Emergency",
			Description:       "Immediate danger indicators",
			ThresholdScore:    0.9,
			AutoEscalateAfter: defaultEmergencyEscalate,
			RequiredActions:   []string{"contact user immediately", "engage emergency services if unreachable"},
			ResponseTemplate:  "EMERGENCY ({level}): detected {terms}. Immediate response required.",
		},
	}
}
