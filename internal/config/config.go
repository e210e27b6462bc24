// Package config loads the application configuration from defaults, an
// optional YAML file, an optional dotenv file and BOT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/edgard/phraseguard/internal/moderation"
)

// Config is the root configuration.
type Config struct {
	Logger     LoggerConfig     `mapstructure:"logger"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Moderation ModerationConfig `mapstructure:"moderation"`
	Database   DatabaseConfig   `mapstructure:"database"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Messages   MessagesConfig   `mapstructure:"messages"`

	// EnvFile is the dotenv file loaded at startup and rewritten with the
	// phrase list on shutdown. Empty disables both.
	EnvFile string `mapstructure:"env_file"`
}

// LoggerConfig controls the slog handler.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TelegramConfig holds Bot API settings.
type TelegramConfig struct {
	Token string `mapstructure:"token" validate:"required"`
	// DrainTimeout bounds how long shutdown waits for in-flight updates.
	DrainTimeout time.Duration `mapstructure:"drain_timeout" validate:"min=0"`
}

// ModerationConfig holds phrase and sanction settings.
type ModerationConfig struct {
	// PhrasesEnv names the environment variable holding the initial
	// colon-separated phrase list.
	PhrasesEnv string        `mapstructure:"phrases_env" validate:"required"`
	Sanction   string        `mapstructure:"sanction"    validate:"oneof=ban kick none"`
	ReplyTTL   time.Duration `mapstructure:"reply_ttl"   validate:"min=1s"`
}

// DatabaseConfig holds journal storage settings.
type DatabaseConfig struct {
	Path      string        `mapstructure:"path"      validate:"required"`
	Retention time.Duration `mapstructure:"retention" validate:"min=0"`
}

// HTTPConfig holds the ops API settings. An empty ListenAddr disables it.
type HTTPConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// SchedulerConfig holds periodic task settings keyed by task name.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// TaskConfig enables a task and sets its cron schedule.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}

// MessagesConfig holds the operator-facing response texts.
type MessagesConfig struct {
	InputEmpty     string `mapstructure:"input_empty"      validate:"required"`
	PhraseTooShort string `mapstructure:"phrase_too_short" validate:"required"`
	PhraseAdded    string `mapstructure:"phrase_added"     validate:"required"`
	PhraseExists   string `mapstructure:"phrase_exists"    validate:"required"`
	PhraseRemoved  string `mapstructure:"phrase_removed"   validate:"required"`
	PhraseNotFound string `mapstructure:"phrase_not_found" validate:"required"`
	ListEmpty      string `mapstructure:"list_empty"       validate:"required"`
	ListHeader     string `mapstructure:"list_header"      validate:"required"`
	HelpHeader     string `mapstructure:"help_header"      validate:"required"`
}

// Moderation converts the texts for the command processor.
func (m MessagesConfig) Moderation() moderation.Messages {
	return moderation.Messages{
		InputEmpty:     m.InputEmpty,
		PhraseTooShort: m.PhraseTooShort,
		PhraseAdded:    m.PhraseAdded,
		PhraseExists:   m.PhraseExists,
		PhraseRemoved:  m.PhraseRemoved,
		PhraseNotFound: m.PhraseNotFound,
		ListEmpty:      m.ListEmpty,
		ListHeader:     m.ListHeader,
		HelpHeader:     m.HelpHeader,
	}
}

// SanctionMode returns the parsed sanction. LoadConfig has already validated it.
func (c *Config) SanctionMode() moderation.Sanction {
	s, err := moderation.ParseSanction(c.Moderation.Sanction)
	if err != nil {
		return moderation.SanctionBan
	}
	return s
}

// InitialPhrases reads the startup phrase list from the environment.
func (c *Config) InitialPhrases(logger *slog.Logger) []string {
	raw, ok := os.LookupEnv(c.Moderation.PhrasesEnv)
	return moderation.ParsePhraseList(raw, ok, logger)
}

// LoadConfig reads the configuration. A missing file at path is not an error.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
			slog.Info("Config file not found, using defaults and environment", "path", path)
		}
	}

	// Values already in the environment win over the dotenv file.
	if envFile := v.GetString("env_file"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
			}
			slog.Debug("Env file not found, skipping", "path", envFile)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if err := cfg.Messages.Moderation().Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
