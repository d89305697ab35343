package config

import (
	"errors"

	"github.com/spf13/viper"
)

/**
 * Server configuration parameters
 * @property {string} address - Server listening address (e.g. ":5880")
 * @property {string} mode - Application mode (debug/release/test)
 */
type ServerConfig struct {
	Address string `mapstructure:"address"`
	Mode    string `mapstructure:"mode"`
}

/**
 * Logging configuration
 * @property {string} level - Log level (debug/info/warn/error)
 * @property {string} path - Log file path
 */
type LogConfig struct {
	Level string `mapstructure:"level"`
	Path  string `mapstructure:"path"`
}

/**
 * Metrics configuration
 * @property {string} pushgateway - Pushgateway address for metrics
 */
type MetricsConfig struct {
	Pushgateway string `mapstructure:"pushgateway"`
}

/**
 * Registry configuration for remote deployment artifacts
 * @property {string} namespace - Image registry namespace for claracore images
 */
type RegistryConfig struct {
	Namespace string `mapstructure:"namespace"`
}

/**
 * Interval configuration in seconds
 * @property {int} health_poll - Health monitor poll interval
 * @property {int} health_timeout - Per-probe HTTP timeout
 */
type IntervalConfig struct {
	HealthPoll    int `mapstructure:"health_poll"`
	HealthTimeout int `mapstructure:"health_timeout"`
}

var ErrServiceNotFound = errors.New("service not found")

type AppConfig struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Registry RegistryConfig `mapstructure:"registry"`
	Interval IntervalConfig `mapstructure:"interval"`
}

/**
 * Load application configuration from YAML file
 */
func LoadConfig() (*AppConfig, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.clara")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg AppConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

var Config AppConfig

func collectConfig(cfg *AppConfig) *AppConfig {
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":5880"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Registry.Namespace == "" {
		cfg.Registry.Namespace = "clara17verse"
	}
	if cfg.Interval.HealthPoll == 0 {
		cfg.Interval.HealthPoll = 120
	}
	if cfg.Interval.HealthTimeout == 0 {
		cfg.Interval.HealthTimeout = 5
	}
	return cfg
}

func init() {
	cfg, err := LoadConfig()
	if err == nil {
		Config = *cfg
	}
	collectConfig(&Config)
}
