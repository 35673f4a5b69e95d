package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Render  RenderConfig  `mapstructure:"render"`
}

// ServerConfig holds orchestrator endpoint configuration
type ServerConfig struct {
	URL        string        `mapstructure:"url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	TimeoutStr string        `mapstructure:"timeout"` // For parsing string duration
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	LogFile  string `mapstructure:"log_file"`
	Preserve bool   `mapstructure:"preserve"`
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"` // "text" or "json"
}

// RenderConfig holds terminal output configuration
type RenderConfig struct {
	ShowThinking bool   `mapstructure:"show_thinking"`
	ShowSources  bool   `mapstructure:"show_sources"`
	CodeTheme    string `mapstructure:"code_theme"`
}

// Global config instance
var cfg *Config

// Get returns the global config instance
func Get() *Config {
	if cfg == nil {
		panic("config not initialized")
	}
	return cfg
}

// Load loads configuration from file and environment
func Load(cfgFile string) (*Config, error) {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}

		xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
		if xdgConfigHome == "" {
			xdgConfigHome = filepath.Join(home, ".config")
		}

		viper.AddConfigPath("./.chatstream") // Check project directory first
		viper.AddConfigPath(filepath.Join(xdgConfigHome, "chatstream"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("settings")
	}

	viper.SetEnvPrefix("CHATSTREAM")
	viper.AutomaticEnv()
	bindEnvironmentVariables()

	// Missing config file is fine, defaults and env cover everything
	_ = viper.ReadInConfig()

	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := processDurations(cfg); err != nil {
		return nil, fmt.Errorf("failed to process durations: %w", err)
	}

	return cfg, nil
}

// setDefaults sets all default configuration values
func setDefaults() {
	viper.SetDefault("server.url", "http://localhost:8080")
	viper.SetDefault("server.timeout", "30s")

	viper.SetDefault("logging.log_file", "./.chatstream/system.log")
	viper.SetDefault("logging.preserve", false)
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")

	viper.SetDefault("render.show_thinking", true)
	viper.SetDefault("render.show_sources", true)
	viper.SetDefault("render.code_theme", "monokai")
}

// bindEnvironmentVariables binds specific environment variables to Viper keys
func bindEnvironmentVariables() {
	viper.BindEnv("server.url", "CHATSTREAM_SERVER_URL")
	viper.BindEnv("server.timeout", "CHATSTREAM_SERVER_TIMEOUT")
	viper.BindEnv("logging.log_file", "CHATSTREAM_LOG_FILE")
	viper.BindEnv("logging.level", "CHATSTREAM_LOG_LEVEL")
	viper.BindEnv("logging.preserve", "CHATSTREAM_LOG_PRESERVE")
	viper.BindEnv("logging.format", "CHATSTREAM_LOG_FORMAT")
	viper.BindEnv("render.show_thinking", "CHATSTREAM_SHOW_THINKING")
}

// processDurations converts string durations to time.Duration
func processDurations(cfg *Config) error {
	if cfg.Server.TimeoutStr != "" {
		d, err := time.ParseDuration(cfg.Server.TimeoutStr)
		if err != nil {
			return fmt.Errorf("invalid server.timeout: %w", err)
		}
		cfg.Server.Timeout = d
	} else if cfg.Server.Timeout == 0 {
		cfg.Server.Timeout = 30 * time.Second
	}

	return nil
}

// GetConfigFileUsed returns the path to the config file being used
func GetConfigFileUsed() string {
	return viper.ConfigFileUsed()
}
