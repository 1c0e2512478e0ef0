// Package config loads run settings from config.yaml, .env and the
// environment. Flags are applied on top by the CLI.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

const EnvPrefix = "JOBFILL"

// Strategies for deciding field values
const (
	StrategyHeuristic = "heuristic"
	StrategyLLM       = "llm"
)

// Config holds every setting of a run
type Config struct {
	Browser BrowserConfig `mapstructure:"browser"`
	Timing  TimingConfig  `mapstructure:"timing"`
	AI      AIConfig      `mapstructure:"ai"`
	Logger  LoggerConfig  `mapstructure:"logger"`
	Output  string        `mapstructure:"output"`
}

type BrowserConfig struct {
	Headless     bool          `mapstructure:"headless"`
	ExecPath     string        `mapstructure:"exec_path"`
	UserDataDir  string        `mapstructure:"user_data_dir"`
	WindowWidth  int           `mapstructure:"window_width"`
	WindowHeight int           `mapstructure:"window_height"`
	HumanTyping  bool          `mapstructure:"human_typing"`
	KeepOpen     bool          `mapstructure:"keep_open"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// TimingConfig holds the pauses that make a run watchable
type TimingConfig struct {
	Settle          time.Duration `mapstructure:"settle"`
	ControlsTimeout time.Duration `mapstructure:"controls_timeout"`
	ScrollPause     time.Duration `mapstructure:"scroll_pause"`
	HighlightHold   time.Duration `mapstructure:"highlight_hold"`
	FieldPause      time.Duration `mapstructure:"field_pause"`
}

type AIConfig struct {
	Provider      string        `mapstructure:"provider"`
	Strategy      string        `mapstructure:"strategy"`
	Model         string        `mapstructure:"model"`
	BaseURL       string        `mapstructure:"base_url"`
	MaxTokens     int           `mapstructure:"max_tokens"`
	Temperature   float32       `mapstructure:"temperature"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RatePerMinute int           `mapstructure:"rate_per_minute"`
	GroqAPIKey    string        `mapstructure:"groq_api_key"`
	GeminiAPIKey  string        `mapstructure:"gemini_api_key"`
}

// APIKey returns the key for the selected provider
func (c AIConfig) APIKey() string {
	if strings.EqualFold(c.Provider, "gemini") {
		return c.GeminiAPIKey
	}
	return c.GroqAPIKey
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// SetDefaults registers every key, which also lets AutomaticEnv see them
func SetDefaults(v *viper.Viper) {
	v.SetDefault("output", "")

	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.user_data_dir", "")
	v.SetDefault("browser.window_width", 1280)
	v.SetDefault("browser.window_height", 720)
	v.SetDefault("browser.human_typing", false)
	v.SetDefault("browser.keep_open", true)
	v.SetDefault("browser.timeout", "10m")

	v.SetDefault("timing.settle", "5s")
	v.SetDefault("timing.controls_timeout", "10s")
	v.SetDefault("timing.scroll_pause", "500ms")
	v.SetDefault("timing.highlight_hold", "1s")
	v.SetDefault("timing.field_pause", "1s")

	v.SetDefault("ai.provider", "groq")
	v.SetDefault("ai.strategy", StrategyHeuristic)
	v.SetDefault("ai.model", "")
	v.SetDefault("ai.base_url", "")
	v.SetDefault("ai.max_tokens", 200)
	v.SetDefault("ai.temperature", 0.7)
	v.SetDefault("ai.timeout", "10s")
	v.SetDefault("ai.rate_per_minute", 30)
	v.SetDefault("ai.groq_api_key", "")
	v.SetDefault("ai.gemini_api_key", "")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.file", "")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 28)
	v.SetDefault("logger.compress", false)
}

// Load reads envFile (if present), then path (if present) with environment
// overrides. An explicit path that does not exist is an error; the default
// ./config.yaml is optional.
func Load(path, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(expand(envFile)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(expand(path))
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("ai.groq_api_key", EnvPrefix+"_AI_GROQ_API_KEY", "GROQ_API_KEY"); err != nil {
		return nil, err
	}
	if err := v.BindEnv("ai.gemini_api_key", EnvPrefix+"_AI_GEMINI_API_KEY", "GEMINI_API_KEY"); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.Browser.ExecPath = expand(cfg.Browser.ExecPath)
	cfg.Browser.UserDataDir = expand(cfg.Browser.UserDataDir)
	cfg.Logger.File = expand(cfg.Logger.File)
	cfg.Output = expand(cfg.Output)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the run cannot work with
func (c *Config) Validate() error {
	switch c.AI.Strategy {
	case StrategyHeuristic, StrategyLLM:
	default:
		return fmt.Errorf("unknown strategy %q (want %s or %s)", c.AI.Strategy, StrategyHeuristic, StrategyLLM)
	}
	switch strings.ToLower(c.AI.Provider) {
	case "groq", "gemini":
	default:
		return fmt.Errorf("unknown ai provider %q (want groq or gemini)", c.AI.Provider)
	}
	if c.Browser.WindowWidth <= 0 || c.Browser.WindowHeight <= 0 {
		return fmt.Errorf("invalid window size %dx%d", c.Browser.WindowWidth, c.Browser.WindowHeight)
	}
	return nil
}

// expand resolves a leading ~ and leaves everything else untouched
func expand(path string) string {
	if path == "" {
		return path
	}
	out, err := homedir.Expand(path)
	if err != nil {
		return path
	}
	return out
}

// Expand is exported for arguments that name files, like the profile
func Expand(path string) string {
	return expand(path)
}
