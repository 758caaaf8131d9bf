package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/AnomFIN/AnomRadar/pkg/engine"
)

// Config is the application configuration assembled from the optional
// anomradar.yaml file and ANOMRADAR_* environment variables. Environment
// variables win over file values, file values win over defaults.
type Config struct {
	ServerPort int

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string

	ProbeTimeout   time.Duration
	ScanTimeout    time.Duration
	MaxConcurrency int
	MaxRetries     int
	UserAgent      string
	Resolvers      []string
	ThresholdHigh  int
	ThresholdMed   int
	ThresholdLow   int

	ReportDir     string
	ReportFormats []string

	CacheDir string
	CacheTTL time.Duration

	RegistryURL string

	LogLevel string
}

// LoadConfig reads anomradar.yaml from the config search paths. A missing
// file is not an error, defaults and environment variables still apply.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("anomradar")
	v.SetConfigType("yaml")

	configPaths := []string{GetConfigPath()}
	if configPaths[0] != "./config" {
		configPaths = append(configPaths, "./config")
	}
	configPaths = append(configPaths, ".", "/etc/anomradar", "$HOME/.anomradar")
	for _, path := range configPaths {
		v.AddConfigPath(path)
	}

	v.SetEnvPrefix("ANOMRADAR")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	def := engine.DefaultEngineConfig()
	defaults := map[string]interface{}{
		"server.port":            8080,
		"database.host":          "localhost",
		"database.port":          5432,
		"database.user":          "anomradar",
		"database.password":      "anomradar",
		"database.name":          "anomradar",
		"engine.probe_timeout":   def.ProbeTimeout.String(),
		"engine.scan_timeout":    def.ScanTimeout.String(),
		"engine.max_concurrency": def.MaxConcurrency,
		"engine.max_retries":     def.MaxRetries,
		"engine.user_agent":      def.UserAgent,
		"engine.resolvers":       def.Resolvers,
		"engine.threshold_high":  def.Thresholds.High,
		"engine.threshold_med":   def.Thresholds.Medium,
		"engine.threshold_low":   def.Thresholds.Low,
		"reports.dir":            "./reports",
		"reports.formats":        []string{"json", "html"},
		"cache.dir":              "./cache",
		"cache.ttl":              "24h",
		"registry.url":           "https://avoindata.prh.fi/opendata-ytj-api/v3",
		"log.level":              "info",
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Warnf("No anomradar.yaml found in %v, using defaults and environment", configPaths)
		} else {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		log.Infof("Loaded config file: %s", v.ConfigFileUsed())
	}

	cfg := &Config{
		ServerPort:     v.GetInt("server.port"),
		DBHost:         v.GetString("database.host"),
		DBPort:         v.GetInt("database.port"),
		DBUser:         v.GetString("database.user"),
		DBPassword:     v.GetString("database.password"),
		DBName:         v.GetString("database.name"),
		ProbeTimeout:   v.GetDuration("engine.probe_timeout"),
		ScanTimeout:    v.GetDuration("engine.scan_timeout"),
		MaxConcurrency: v.GetInt("engine.max_concurrency"),
		MaxRetries:     v.GetInt("engine.max_retries"),
		UserAgent:      v.GetString("engine.user_agent"),
		Resolvers:      v.GetStringSlice("engine.resolvers"),
		ThresholdHigh:  v.GetInt("engine.threshold_high"),
		ThresholdMed:   v.GetInt("engine.threshold_med"),
		ThresholdLow:   v.GetInt("engine.threshold_low"),
		ReportDir:      v.GetString("reports.dir"),
		ReportFormats:  v.GetStringSlice("reports.formats"),
		CacheDir:       v.GetString("cache.dir"),
		CacheTTL:       v.GetDuration("cache.ttl"),
		RegistryURL:    v.GetString("registry.url"),
		LogLevel:       v.GetString("log.level"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the engine would refuse at scan time, so
// misconfiguration surfaces at startup instead.
func (c *Config) Validate() error {
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("invalid server.port %d, must be 1-65535", c.ServerPort)
	}
	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("invalid engine.probe_timeout %s, must be positive", c.ProbeTimeout)
	}
	if c.MaxConcurrency < 0 {
		return fmt.Errorf("invalid engine.max_concurrency %d, must not be negative", c.MaxConcurrency)
	}
	thresholds := engine.Thresholds{High: c.ThresholdHigh, Medium: c.ThresholdMed, Low: c.ThresholdLow}
	if err := thresholds.Validate(); err != nil {
		return err
	}
	for _, format := range c.ReportFormats {
		switch format {
		case "json", "html", "xlsx":
		default:
			return fmt.Errorf("invalid report format %q, must be one of: json, html, xlsx", format)
		}
	}
	return nil
}

// DSN builds the postgres connection string for gorm.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
}

// EngineConfig converts the application config into the scan engine's own
// configuration type.
func (c *Config) EngineConfig() engine.Config {
	return engine.Config{
		ProbeTimeout:   c.ProbeTimeout,
		ScanTimeout:    c.ScanTimeout,
		MaxConcurrency: c.MaxConcurrency,
		MaxRetries:     c.MaxRetries,
		UserAgent:      c.UserAgent,
		Resolvers:      c.Resolvers,
		Thresholds: engine.Thresholds{
			High:   c.ThresholdHigh,
			Medium: c.ThresholdMed,
			Low:    c.ThresholdLow,
		},
	}
}

// ParseLogLevel maps the configured log level onto a logrus level,
// defaulting to info on unknown values.
func (c *Config) ParseLogLevel() log.Level {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return level
}

// GetConfigPath returns the directory searched first for config files.
func GetConfigPath() string {
	if path := os.Getenv("ANOMRADAR_CONFIG_PATH"); path != "" {
		return path
	}
	return "./config"
}
