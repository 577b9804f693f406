package config

import (
	"errors"
	"fmt"
	"github.com/spf13/viper"
	"strings"
	"time"
)

const EnvPrefix = "DEMO"

const (
	ExporterOTLPGRPC = "otlp-grpc"
	ExporterOTLPHTTP = "otlp-http"
	ExporterStdout   = "stdout"
	ExporterNone     = "none"
)

const (
	DefaultAddr            = ":8000"
	DefaultServiceName     = "monitorizacion-champagne"
	DefaultServiceVersion  = "0.1.0"
	DefaultLogLevel        = "info"
	DefaultCollectorTarget = "localhost:4317"
)

var (
	ErrUnknownExporter = errors.New("unknown exporter")
	ErrInvalidValue    = errors.New("invalid configuration value")
)

type Config struct {
	Server  ServerConfig   `mapstructure:"server"`
	Service ServiceConfig  `mapstructure:"service"`
	Log     LogConfig      `mapstructure:"log"`
	Traces  ExporterConfig `mapstructure:"traces"`
	Metrics MetricsConfig  `mapstructure:"metrics"`
	Logs    ExporterConfig `mapstructure:"logs"`
	Work    WorkConfig     `mapstructure:"work"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type ServiceConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

// LogConfig controls the local log sink. File enables rotation through lumberjack
// in addition to stdout.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// ExporterConfig selects where one OpenTelemetry signal is shipped.
type ExporterConfig struct {
	Exporter string `mapstructure:"exporter"`
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
}

type MetricsConfig struct {
	ExporterConfig `mapstructure:",squash"`
	Interval       time.Duration `mapstructure:"interval"`
}

type WorkConfig struct {
	TaskUnit time.Duration `mapstructure:"task_unit"`
}

var defaults = map[string]interface{}{
	"server.addr":             DefaultAddr,
	"server.shutdown_timeout": 10 * time.Second,
	"service.name":            DefaultServiceName,
	"service.version":         DefaultServiceVersion,
	"log.level":               DefaultLogLevel,
	"log.format":              "json",
	"log.file":                "",
	"log.max_size_mb":         100,
	"log.max_backups":         3,
	"log.max_age_days":        28,
	"traces.exporter":         ExporterOTLPGRPC,
	"traces.endpoint":         DefaultCollectorTarget,
	"traces.insecure":         true,
	"metrics.exporter":        ExporterOTLPGRPC,
	"metrics.endpoint":        DefaultCollectorTarget,
	"metrics.insecure":        true,
	"metrics.interval":        5 * time.Second,
	"logs.exporter":           ExporterNone,
	"logs.endpoint":           DefaultCollectorTarget,
	"logs.insecure":           true,
	"work.task_unit":          100 * time.Millisecond,
}

// SetDefaults registers every known key on v so that environment overrides are
// picked up by Unmarshal.
func SetDefaults(v *viper.Viper) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load resolves the configuration from defaults, the optional YAML file at path,
// DEMO_* environment variables and any flags already bound on v.
func Load(v *viper.Viper, path string) (Config, error) {
	SetDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("unable to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default resolves the configuration from defaults and DEMO_* environment
// variables only.
func Default() (Config, error) {
	return Load(viper.New(), "")
}

func (c Config) Validate() error {
	signals := map[string]ExporterConfig{
		"traces":  c.Traces,
		"metrics": c.Metrics.ExporterConfig,
		"logs":    c.Logs,
	}
	for signal, exporter := range signals {
		if err := validateExporter(signal, exporter); err != nil {
			return err
		}
	}
	if c.Logs.Exporter == ExporterStdout {
		return fmt.Errorf("logs exporter %q is not supported: %w", c.Logs.Exporter, ErrUnknownExporter)
	}
	if c.Metrics.Exporter != ExporterNone && c.Metrics.Interval <= 0 {
		return fmt.Errorf("metrics.interval must be positive: %w", ErrInvalidValue)
	}
	if c.Work.TaskUnit < 0 {
		return fmt.Errorf("work.task_unit must not be negative: %w", ErrInvalidValue)
	}
	if c.Service.Name == "" {
		return fmt.Errorf("service.name must be set: %w", ErrInvalidValue)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format %q: %w", c.Log.Format, ErrInvalidValue)
	}
	return nil
}

func validateExporter(signal string, exporter ExporterConfig) error {
	switch exporter.Exporter {
	case ExporterOTLPGRPC, ExporterOTLPHTTP:
		if exporter.Endpoint == "" {
			return fmt.Errorf("%s.endpoint must be set for exporter %s: %w", signal, exporter.Exporter, ErrInvalidValue)
		}
		return nil
	case ExporterStdout, ExporterNone:
		return nil
	default:
		return fmt.Errorf("%s exporter %q: %w", signal, exporter.Exporter, ErrUnknownExporter)
	}
}
