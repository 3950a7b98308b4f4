package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	LogFile string `mapstructure:"log_file"`
	Persist bool   `mapstructure:"persist"`
	Level   string `mapstructure:"level"`
}

// TemplatesConfig holds template discovery configuration.
type TemplatesConfig struct {
	// Paths are directories imported into the shared library at startup.
	Paths []string `mapstructure:"paths"`
	// DefaultLanguage is the language constraint applied when a retrieval
	// does not name one explicitly.
	DefaultLanguage string `mapstructure:"default_language"`
}

// Config represents the application configuration.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Templates TemplatesConfig `mapstructure:"templates"`
}

var (
	mu      sync.RWMutex
	current *Config
)

// Init loads configuration from the given file (or the defaults when the
// path is empty), environment variables included.
func Init(cfgFile string) error {
	viper.SetEnvPrefix("LLT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("logging.log_file", "llt.log")
	viper.SetDefault("logging.persist", false)
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("templates.paths", []string{})
	viper.SetDefault("templates.default_language", "en")

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		viper.SetConfigName(".llt")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		// Missing config files are fine; defaults apply.
		if err := viper.ReadInConfig(); err != nil {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	mu.Lock()
	current = cfg
	mu.Unlock()
	return nil
}

// Get returns the loaded configuration, or defaults when Init was never
// called.
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	if current == nil {
		return &Config{
			Logging: LoggingConfig{LogFile: "llt.log", Level: "info"},
			Templates: TemplatesConfig{
				DefaultLanguage: "en",
			},
		}
	}
	return current
}
