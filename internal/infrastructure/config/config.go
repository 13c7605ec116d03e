package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppConfig contains all application configuration
type AppConfig struct {
	App     App     `mapstructure:"app"`
	Server  Server  `mapstructure:"server"`
	Redis   Redis   `mapstructure:"redis"`
	Logger  Logger  `mapstructure:"logger"`
	Jobs    Jobs    `mapstructure:"jobs"`
	Metrics Metrics `mapstructure:"metrics"`
	Tracing Tracing `mapstructure:"tracing"`
	Feature Feature `mapstructure:"feature"`
}

type App struct {
	Name         string        `mapstructure:"name"`
	Version      string        `mapstructure:"version"`
	Environment  string        `mapstructure:"environment"`
	Debug        bool          `mapstructure:"debug"`
	Timezone     string        `mapstructure:"timezone"`
	GracefulStop time.Duration `mapstructure:"graceful_stop"`
}

type Server struct {
	HTTP ServerHTTP `mapstructure:"http"`
}

type ServerHTTP struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
	CORS           CORS          `mapstructure:"cors"`
}

type CORS struct {
	Enabled        bool     `mapstructure:"enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
	ExposedHeaders []string `mapstructure:"exposed_headers"`
	MaxAge         int      `mapstructure:"max_age"`
}

type Redis struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type Logger struct {
	Level       string   `mapstructure:"level"`
	Encoding    string   `mapstructure:"encoding"`
	OutputPaths []string `mapstructure:"output_paths"`
	ErrorPaths  []string `mapstructure:"error_paths"`
	Development bool     `mapstructure:"development"`
}

// Jobs carries the asynchronous job pipeline's entire configuration surface:
// producer/consumer concurrency, the distributed store's recovery loop, and
// the retry backoff schedule applied on handler failure.
type Jobs struct {
	Store                        string `mapstructure:"store"` // "memory" or "redis"
	MaximumConcurrency           int    `mapstructure:"maximum_concurrency"`
	MaximumQueueSize              int    `mapstructure:"maximum_queue_size"`
	PollingIntervalMs            int    `mapstructure:"polling_interval_ms"`
	BatchSize                    int    `mapstructure:"batch_size"`
	JobTimeoutMinutes            int    `mapstructure:"job_timeout_minutes"`
	DefaultMaxRetries            int    `mapstructure:"default_max_retries"`
	RetryDelayBaseSeconds        int    `mapstructure:"retry_delay_base_seconds"`
	EnableDistributedJobRecovery bool   `mapstructure:"enable_distributed_job_recovery"`
	RecoveryCheckIntervalSeconds int    `mapstructure:"recovery_check_interval_seconds"`
	ErrorBackoffMs               int    `mapstructure:"error_backoff_ms"`
	ShutdownGraceSeconds         int    `mapstructure:"shutdown_grace_seconds"`
}

func (j Jobs) PollingInterval() time.Duration {
	return time.Duration(j.PollingIntervalMs) * time.Millisecond
}

func (j Jobs) ErrorBackoff() time.Duration {
	return time.Duration(j.ErrorBackoffMs) * time.Millisecond
}

func (j Jobs) JobTimeout() time.Duration {
	return time.Duration(j.JobTimeoutMinutes) * time.Minute
}

func (j Jobs) RetryDelayBase() time.Duration {
	return time.Duration(j.RetryDelayBaseSeconds) * time.Second
}

func (j Jobs) RecoveryCheckInterval() time.Duration {
	return time.Duration(j.RecoveryCheckIntervalSeconds) * time.Second
}

func (j Jobs) ShutdownGrace() time.Duration {
	return time.Duration(j.ShutdownGraceSeconds) * time.Second
}

type Metrics struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
	Port    int    `mapstructure:"port"`
}

type Tracing struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

type Feature struct {
	EnablePprof       bool `mapstructure:"enable_pprof"`
	EnableHealthCheck bool `mapstructure:"enable_health_check"`
	EnableMetrics     bool `mapstructure:"enable_metrics"`
}

// LoadConfig loads configuration from various sources
func LoadConfig(configPath string) (*AppConfig, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("../configs")
	}

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config AppConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "async-endpoints")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.timezone", "UTC")
	v.SetDefault("app.graceful_stop", "30s")

	v.SetDefault("server.http.host", "0.0.0.0")
	v.SetDefault("server.http.port", 8080)
	v.SetDefault("server.http.read_timeout", "30s")
	v.SetDefault("server.http.write_timeout", "30s")
	v.SetDefault("server.http.idle_timeout", "120s")
	v.SetDefault("server.http.max_header_bytes", 1048576)

	v.SetDefault("server.http.cors.enabled", true)
	v.SetDefault("server.http.cors.allowed_origins", []string{"*"})
	v.SetDefault("server.http.cors.allowed_methods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("server.http.cors.allowed_headers", []string{"*"})
	v.SetDefault("server.http.cors.max_age", 86400)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 5)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")
	v.SetDefault("redis.idle_timeout", "5m")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "json")
	v.SetDefault("logger.output_paths", []string{"stdout"})
	v.SetDefault("logger.error_paths", []string{"stderr"})
	v.SetDefault("logger.development", false)

	v.SetDefault("jobs.store", "memory")
	v.SetDefault("jobs.maximum_concurrency", 8)
	v.SetDefault("jobs.maximum_queue_size", 256)
	v.SetDefault("jobs.polling_interval_ms", 250)
	v.SetDefault("jobs.batch_size", 10)
	v.SetDefault("jobs.job_timeout_minutes", 10)
	v.SetDefault("jobs.default_max_retries", 3)
	v.SetDefault("jobs.retry_delay_base_seconds", 2)
	v.SetDefault("jobs.enable_distributed_job_recovery", false)
	v.SetDefault("jobs.recovery_check_interval_seconds", 60)
	v.SetDefault("jobs.error_backoff_ms", 1000)
	v.SetDefault("jobs.shutdown_grace_seconds", 30)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.port", 9090)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "async-endpoints")
	v.SetDefault("tracing.sample_rate", 0.1)

	v.SetDefault("feature.enable_pprof", false)
	v.SetDefault("feature.enable_health_check", true)
	v.SetDefault("feature.enable_metrics", true)
}

// validateConfig validates the configuration
func validateConfig(config *AppConfig) error {
	if config.App.Name == "" {
		return fmt.Errorf("app.name is required")
	}

	if config.Server.HTTP.Port <= 0 || config.Server.HTTP.Port > 65535 {
		return fmt.Errorf("server.http.port must be between 1 and 65535")
	}

	if config.Jobs.MaximumConcurrency <= 0 {
		return fmt.Errorf("jobs.maximum_concurrency must be positive")
	}

	if config.Jobs.MaximumQueueSize <= 0 {
		return fmt.Errorf("jobs.maximum_queue_size must be positive")
	}

	if config.Jobs.Store != "memory" && config.Jobs.Store != "redis" {
		return fmt.Errorf("jobs.store must be either \"memory\" or \"redis\"")
	}

	return nil
}
