package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix is the prefix for all loader environment variables.
const EnvPrefix = "LOADER"

// DefaultPayloadPath is the fixed payload location on the API. The verify
// response never alters it.
const DefaultPayloadPath = "/v3/files/scripts/esp-main.lua"

// Config represents the complete loader configuration.
//
// Values come from the environment (prefix LOADER, with an optional .env
// file) and an optional YAML file; environment values take precedence.
type Config struct {
	// ScriptKey is the operator-supplied license key. Read from
	// LOADER_SCRIPT_KEY; never persisted, never logged unmasked.
	ScriptKey string `yaml:"script_key" envconfig:"SCRIPT_KEY"`

	API     APIConfig     `yaml:"api" envconfig:"API"`
	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
	Runner  RunnerConfig  `yaml:"runner" envconfig:"RUNNER"`
}

// APIConfig points the loader at the licensing service.
type APIConfig struct {
	BaseURL         string        `yaml:"base_url" envconfig:"BASE_URL" default:"https://api.visualscripts.dev" validate:"required,url"`
	PayloadPath     string        `yaml:"payload_path" envconfig:"PAYLOAD_PATH" default:"/v3/files/scripts/esp-main.lua" validate:"required,startswith=/"`
	VerifyTimeout   time.Duration `yaml:"verify_timeout" envconfig:"VERIFY_TIMEOUT" default:"10s"`
	RegisterTimeout time.Duration `yaml:"register_timeout" envconfig:"REGISTER_TIMEOUT" default:"5s"`
	FetchTimeout    time.Duration `yaml:"fetch_timeout" envconfig:"FETCH_TIMEOUT" default:"30s"`
	HealthCheck     bool          `yaml:"health_check" envconfig:"HEALTH_CHECK" default:"true"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Format      string `yaml:"format" envconfig:"FORMAT" default:"text" validate:"oneof=json text"`
	Output      string `yaml:"output" envconfig:"OUTPUT" default:"stderr" validate:"oneof=stderr file both"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/loader.log"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT" default:"false"`
}

// RunnerConfig controls how the fetched payload is executed.
type RunnerConfig struct {
	// Command is the interpreter argv the payload file is appended to.
	Command []string `yaml:"command" envconfig:"COMMAND" default:"lua" validate:"required,min=1"`
	// WorkDir is the working directory for the payload process. Empty
	// means inherit the loader's.
	WorkDir string `yaml:"work_dir" envconfig:"WORK_DIR"`
}

// Load loads configuration from the environment and an optional YAML file.
//
// A .env file in the working directory is folded into the environment first
// (the operator workflow is .env based). A failure here is the loader's
// "environment unsupported" condition: nothing else can proceed without
// readable configuration.
func Load() (*Config, error) {
	// Best effort: absence of a .env file is the normal case.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	configFile := configFilePath()
	if _, err := os.Stat(configFile); err == nil {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// configFilePath resolves the optional YAML config file location.
func configFilePath() string {
	if path := os.Getenv(EnvPrefix + "_CONFIG_FILE"); path != "" {
		return path
	}
	return "loader.yml"
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// mergeConfigs overlays file values where the environment left a field
// empty. Environment values (including envconfig defaults) win.
func mergeConfigs(fileConfig, envConfig Config) Config {
	merged := envConfig

	if merged.ScriptKey == "" {
		merged.ScriptKey = fileConfig.ScriptKey
	}
	if merged.API.BaseURL == "" {
		merged.API.BaseURL = fileConfig.API.BaseURL
	}
	if merged.API.PayloadPath == "" {
		merged.API.PayloadPath = fileConfig.API.PayloadPath
	}
	if merged.API.VerifyTimeout == 0 {
		merged.API.VerifyTimeout = fileConfig.API.VerifyTimeout
	}
	if merged.API.RegisterTimeout == 0 {
		merged.API.RegisterTimeout = fileConfig.API.RegisterTimeout
	}
	if merged.API.FetchTimeout == 0 {
		merged.API.FetchTimeout = fileConfig.API.FetchTimeout
	}
	if merged.Logging.Level == "" {
		merged.Logging.Level = fileConfig.Logging.Level
	}
	if merged.Logging.Format == "" {
		merged.Logging.Format = fileConfig.Logging.Format
	}
	if merged.Logging.Output == "" {
		merged.Logging.Output = fileConfig.Logging.Output
	}
	if merged.Logging.FilePath == "" {
		merged.Logging.FilePath = fileConfig.Logging.FilePath
	}
	if len(merged.Runner.Command) == 0 {
		merged.Runner.Command = fileConfig.Runner.Command
	}
	if merged.Runner.WorkDir == "" {
		merged.Runner.WorkDir = fileConfig.Runner.WorkDir
	}

	return merged
}

// Validate checks structural constraints. The script key is deliberately
// not required here: its absence is a distinct fatal condition with its
// own operator-facing message, reported by the loader before any network
// call is made.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return err
	}
	return nil
}
