package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Provider selects which assistant answers chat messages.
type Provider string

const (
	// ProviderBackend routes chat through the backend's POST /chat.
	ProviderBackend Provider = "backend"
	// ProviderOpenAI talks to an OpenAI-compatible endpoint directly.
	ProviderOpenAI Provider = "openai"
)

// Config holds the application configuration
type Config struct {
	Backend    BackendConfig
	Assistant  AssistantConfig
	Server     ServerConfig
	LocalStore LocalStoreConfig `mapstructure:"localstore"`
	Log        LogConfig
}

// BackendConfig holds the remote conversation/chat/scheduling backend configuration
type BackendConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// AssistantConfig holds the assistant provider configuration
type AssistantConfig struct {
	Provider     Provider `mapstructure:"provider"`
	BaseURL      string   `mapstructure:"base_url"`
	APIKey       string   `mapstructure:"api_key"`
	Model        string   `mapstructure:"model"`
	SystemPrompt string   `mapstructure:"system_prompt"`
}

// ServerConfig holds the view server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

// LocalStoreConfig holds the device-local key-value store configuration
type LocalStoreConfig struct {
	Path string `mapstructure:"path"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

const envPrefix = "HEALTHASSIST"

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend.base_url", "http://localhost:8080/api")
	v.SetDefault("backend.timeout", 30*time.Second)
	v.SetDefault("assistant.provider", string(ProviderBackend))
	v.SetDefault("assistant.base_url", "")
	v.SetDefault("assistant.api_key", "")
	v.SetDefault("assistant.model", "gpt-4o-mini")
	v.SetDefault("assistant.system_prompt", "")
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", "3000")
	v.SetDefault("localstore.path", "healthassist.db")
	v.SetDefault("log.level", "info")
}

// Load loads the configuration from config.yaml (or the file named by
// CONFIG_PATH), then applies HEALTHASSIST_* environment overrides. A .env
// file in the working directory is read first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, err
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	config.Backend.BaseURL = strings.TrimRight(config.Backend.BaseURL, "/")

	return &config, nil
}
