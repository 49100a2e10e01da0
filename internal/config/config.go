package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

// Config holds process configuration resolved from the environment.
type Config struct {
	// Language-model backend
	Provider            string `envconfig:"LLM_PROVIDER" default:"azure"`
	AzureOpenAIEndpoint string `envconfig:"AZURE_OPENAI_ENDPOINT"`
	AzureOpenAIKey      string `envconfig:"AZURE_OPENAI_KEY"`
	AzureDeployment     string `envconfig:"AZURE_OPENAI_DEPLOYMENT"`
	AnthropicAPIKey     string `envconfig:"ANTHROPIC_API_KEY"`
	AnthropicModel      string `envconfig:"ANTHROPIC_MODEL" default:"claude-sonnet-4-20250514"`

	// Shared store
	DataDir string `envconfig:"AMPARO_DATA_DIR" default:"configs/data"`

	// Prompt and tool-schema files
	ConfigDir string `envconfig:"AMPARO_CONFIG_DIR" default:"configs"`

	// Logging
	LogLevel  string `envconfig:"AMPARO_LOG_LEVEL" default:"info"`
	LogPretty bool   `envconfig:"AMPARO_LOG_PRETTY" default:"true"`
	LogFile   string `envconfig:"AMPARO_LOG_FILE"`

	// Store backup schedule, empty disables it
	BackupSchedule string `envconfig:"AMPARO_BACKUP_SCHEDULE"`
	BackupDir      string `envconfig:"AMPARO_BACKUP_DIR" default:"configs/data/backups"`
}

// Validate checks that the configured provider has its credentials set.
func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Provider)) {
	case "azure":
		if c.AzureOpenAIEndpoint == "" || c.AzureOpenAIKey == "" || c.AzureDeployment == "" {
			return errors.New("azure provider requires AZURE_OPENAI_ENDPOINT, AZURE_OPENAI_KEY and AZURE_OPENAI_DEPLOYMENT")
		}
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return errors.New("anthropic provider requires ANTHROPIC_API_KEY")
		}
	default:
		return fmt.Errorf("unsupported provider: %s", c.Provider)
	}
	return nil
}

// Load resolves the environment file and decodes the configuration.
// A .env at the project root takes precedence over a local one, matching
// the deployment layout where all processes share one credentials file.
func Load() (*Config, error) {
	if path := resolveEnvPath(); path != "" {
		if err := exportEnvironment(path); err != nil {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	var conf Config
	if err := envconfig.Process("", &conf); err != nil {
		return nil, err
	}

	return &conf, nil
}

func resolveEnvPath() string {
	candidates := []string{
		filepath.Join("..", ".env"),
		".env",
	}
	for _, path := range candidates {
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

func exportEnvironment(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return err
	}

	for k, val := range v.AllSettings() {
		key := strings.ToUpper(k)
		if _, present := os.LookupEnv(key); present {
			continue // real environment wins over the file
		}
		if err := os.Setenv(key, fmt.Sprint(val)); err != nil {
			return err
		}
	}

	return nil
}
