package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	General     GeneralConfig     `mapstructure:"general"`
	Data        DataConfig        `mapstructure:"data"`
	Performance PerformanceConfig `mapstructure:"performance"`
}

type GeneralConfig struct {
	// ReconnectOnRestore reconnects restored workspaces at startup instead of
	// leaving them idle until the user asks.
	ReconnectOnRestore bool `mapstructure:"reconnect_on_restore"`
	SaveDebounceMs     int  `mapstructure:"save_debounce_ms"`
}

type DataConfig struct {
	DefaultPageSize int `mapstructure:"default_page_size"`
}

type PerformanceConfig struct {
	QueryTimeoutMs int `mapstructure:"query_timeout_ms"`
}

// GetDefaults returns a Config with all default values
func GetDefaults() *Config {
	return &Config{
		General: GeneralConfig{
			ReconnectOnRestore: false,
			SaveDebounceMs:     1000,
		},
		Data: DataConfig{
			DefaultPageSize: 100,
		},
		Performance: PerformanceConfig{
			QueryTimeoutMs: 30000,
		},
	}
}

// Load loads configuration from files
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// User config directory first, then the working directory.
	if configDir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(configDir, "dbdeck"))
	}
	v.AddConfigPath(".")

	v.SetDefault("general.reconnect_on_restore", false)
	v.SetDefault("general.save_debounce_ms", 1000)
	v.SetDefault("data.default_page_size", 100)
	v.SetDefault("performance.query_timeout_ms", 30000)

	// Read config (it's okay if file doesn't exist, we have defaults)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// StateDBPath returns the path of the SQLite state database.
func StateDBPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "dbdeck", "state.db"), nil
}
