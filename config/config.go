// Package config loads the settings of pathtrace from defaults, a config
// file, a .env file, and PATHTRACE_ environment variables.
package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes the environment variables that override settings.
const EnvPrefix = "PATHTRACE"

// FileName is the base name of the config file, without extension.
const FileName = "pathtrace"

// Config represents the complete pathtrace configuration
type Config struct {
	Trace     TraceConfig     `mapstructure:"trace"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Smoothing SmoothingConfig `mapstructure:"smoothing"`
	Reporting ReportingConfig `mapstructure:"reporting"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
}

// TraceConfig controls the execution engine
type TraceConfig struct {
	// ParallelTimeoutMs bounds every parallel step
	ParallelTimeoutMs int `mapstructure:"parallel_timeout_ms"`
	// MaxConcurrency caps the members of a parallel step that run at once.
	// 0 means unbounded.
	MaxConcurrency int `mapstructure:"max_concurrency"`
	// MemorySampler is "process" (resident set size) or "runtime" (Go heap)
	MemorySampler string `mapstructure:"memory_sampler"`
}

// AnalysisConfig holds the bottleneck and advisory thresholds
type AnalysisConfig struct {
	CriticalPercent float64 `mapstructure:"critical_percent"`
	MajorPercent    float64 `mapstructure:"major_percent"`
	MinorPercent    float64 `mapstructure:"minor_percent"`
	SlowTraceMs     int     `mapstructure:"slow_trace_ms"`
	LongTraceMs     int     `mapstructure:"long_trace_ms"`
	HighMemoryBytes int64   `mapstructure:"high_memory_bytes"`
}

// SmoothingConfig controls the smoothing loop
type SmoothingConfig struct {
	OptimizationThreshold float64 `mapstructure:"optimization_threshold"`
	TargetImprovement     float64 `mapstructure:"target_improvement"`
	IterationLimit        int     `mapstructure:"iteration_limit"`
	PauseMs               int     `mapstructure:"pause_ms"`
}

// ReportingConfig controls how traces are rendered and persisted
type ReportingConfig struct {
	// Sink is "none", "json", or "sqlite"
	Sink string `mapstructure:"sink"`
	// Dir is where persisted traces go
	Dir   string `mapstructure:"dir"`
	Color bool   `mapstructure:"color"`
}

// LoggingConfig controls the logger
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MonitorConfig controls the monitoring server
type MonitorConfig struct {
	Port        int  `mapstructure:"port"`
	OpenBrowser bool `mapstructure:"open_browser"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Trace: TraceConfig{
			ParallelTimeoutMs: 30000,
			MaxConcurrency:    0,
			MemorySampler:     "process",
		},
		Analysis: AnalysisConfig{
			CriticalPercent: 40,
			MajorPercent:    20,
			MinorPercent:    10,
			SlowTraceMs:     5000,
			LongTraceMs:     1000,
			HighMemoryBytes: 50_000_000,
		},
		Smoothing: SmoothingConfig{
			OptimizationThreshold: 0.75,
			TargetImprovement:     0.90,
			IterationLimit:        10,
			PauseMs:               100,
		},
		Reporting: ReportingConfig{
			Sink:  "none",
			Dir:   "traces",
			Color: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Monitor: MonitorConfig{
			Port:        0,
			OpenBrowser: false,
		},
	}
}

// ParallelTimeout returns the parallel step timeout as a duration
func (c *TraceConfig) ParallelTimeout() time.Duration {
	return time.Duration(c.ParallelTimeoutMs) * time.Millisecond
}

// Pause returns the pause between smoothing iterations as a duration
func (c *SmoothingConfig) Pause() time.Duration {
	return time.Duration(c.PauseMs) * time.Millisecond
}

// SetDefaults registers default values with viper
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("trace.parallel_timeout_ms", defaults.Trace.ParallelTimeoutMs)
	v.SetDefault("trace.max_concurrency", defaults.Trace.MaxConcurrency)
	v.SetDefault("trace.memory_sampler", defaults.Trace.MemorySampler)

	v.SetDefault("analysis.critical_percent", defaults.Analysis.CriticalPercent)
	v.SetDefault("analysis.major_percent", defaults.Analysis.MajorPercent)
	v.SetDefault("analysis.minor_percent", defaults.Analysis.MinorPercent)
	v.SetDefault("analysis.slow_trace_ms", defaults.Analysis.SlowTraceMs)
	v.SetDefault("analysis.long_trace_ms", defaults.Analysis.LongTraceMs)
	v.SetDefault("analysis.high_memory_bytes", defaults.Analysis.HighMemoryBytes)

	v.SetDefault("smoothing.optimization_threshold", defaults.Smoothing.OptimizationThreshold)
	v.SetDefault("smoothing.target_improvement", defaults.Smoothing.TargetImprovement)
	v.SetDefault("smoothing.iteration_limit", defaults.Smoothing.IterationLimit)
	v.SetDefault("smoothing.pause_ms", defaults.Smoothing.PauseMs)

	v.SetDefault("reporting.sink", defaults.Reporting.Sink)
	v.SetDefault("reporting.dir", defaults.Reporting.Dir)
	v.SetDefault("reporting.color", defaults.Reporting.Color)

	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.format", defaults.Logging.Format)

	v.SetDefault("monitor.port", defaults.Monitor.Port)
	v.SetDefault("monitor.open_browser", defaults.Monitor.OpenBrowser)
}

// Setup prepares viper for loading: defaults, environment variables with the
// PATHTRACE_ prefix, and the config file search path. Variables from
// envFile are exported first unless they are already set. A missing envFile
// is not an error.
func Setup(v *viper.Viper, cfgFile, envFile string) error {
	if envFile != "" {
		err := godotenv.Load(envFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	err := v.ReadInConfig()
	if err == nil {
		return nil
	}

	var notFound viper.ConfigFileNotFoundError
	if cfgFile == "" && errors.As(err, &notFound) {
		return nil
	}

	return err
}

// Load unmarshals the configuration from viper and validates it
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}
