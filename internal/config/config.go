package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v3"
	"github.com/go-ozzo/ozzo-validation/v3/is"
)

const (
	DefaultEndpoint    = "https://practicum.yandex.ru/api/user_api/homework_statuses/"
	DefaultRetryPeriod = 600 * time.Second
)

// ErrMissingVariables is returned when a required environment variable is unset.
var ErrMissingVariables = errors.New("missing required variables")

var chatIDPattern = regexp.MustCompile(`^(-?\d+|@[A-Za-z][A-Za-z0-9_]{4,})$`)

// Config holds all configuration for the homework notifier
type Config struct {
	// Review API settings
	PracticumToken    string
	PracticumEndpoint string
	RetryPeriod       time.Duration
	HTTPTimeout       time.Duration
	APIMaxRetries     int
	APIRetryInitial   time.Duration
	InitialFromDate   int64

	// Telegram settings
	TelegramToken       string
	TelegramChatID      string
	TelegramAPIEndpoint string

	// GitHub mirror settings (optional)
	GitHubToken       string
	GitHubAppID       string
	GitHubPrivateKey  string
	GitHubNotifyRepo  string
	GitHubNotifyIssue int
	// GitHubAPIURL overrides https://api.github.com (GitHub Enterprise)
	GitHubAPIURL string

	// Server settings
	Port int

	CheckpointDB string
	VerdictsFile string
	LogLevel     string
	HistorySize  int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	if err := checkRequired("PRACTICUM_TOKEN", "TELEGRAM_TOKEN", "TELEGRAM_CHAT_ID"); err != nil {
		return nil, err
	}

	cfg := &Config{
		PracticumToken:      os.Getenv("PRACTICUM_TOKEN"),
		PracticumEndpoint:   getEnv("PRACTICUM_ENDPOINT", DefaultEndpoint),
		RetryPeriod:         time.Duration(getEnvInt("RETRY_PERIOD", int(DefaultRetryPeriod/time.Second))) * time.Second,
		HTTPTimeout:         time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 10)) * time.Second,
		APIMaxRetries:       getEnvInt("API_MAX_RETRIES", 2),
		APIRetryInitial:     time.Duration(getEnvInt("API_RETRY_SECONDS", 1)) * time.Second,
		InitialFromDate:     getEnvInt64("INITIAL_FROM_DATE", 0),
		TelegramToken:       os.Getenv("TELEGRAM_TOKEN"),
		TelegramChatID:      strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID")),
		TelegramAPIEndpoint: os.Getenv("TELEGRAM_API_ENDPOINT"),
		GitHubToken:         os.Getenv("GITHUB_TOKEN"),
		GitHubAppID:         os.Getenv("GITHUB_APP_ID"),
		GitHubPrivateKey:    normalizePrivateKey(os.Getenv("GITHUB_PRIVATE_KEY")),
		GitHubNotifyRepo:    os.Getenv("GITHUB_NOTIFY_REPO"),
		GitHubNotifyIssue:   getEnvInt("GITHUB_NOTIFY_ISSUE", 0),
		GitHubAPIURL:        os.Getenv("GITHUB_API_URL"),
		Port:                getEnvInt("PORT", 8000),
		CheckpointDB:        os.Getenv("CHECKPOINT_DB"),
		VerdictsFile:        os.Getenv("VERDICTS_FILE"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		HistorySize:         getEnvInt("HISTORY_SIZE", 100),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// checkRequired reports every missing variable at once.
func checkRequired(keys ...string) error {
	var missing []string
	for _, key := range keys {
		if strings.TrimSpace(os.Getenv(key)) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingVariables, strings.Join(missing, ", "))
	}
	return nil
}

// Validate checks field formats and ranges
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(
		c,
		validation.Field(&c.PracticumToken, validation.Required),
		validation.Field(&c.PracticumEndpoint, validation.Required, is.URL),
		validation.Field(&c.RetryPeriod, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.HTTPTimeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.APIMaxRetries, validation.Min(0)),
		validation.Field(&c.APIRetryInitial, validation.Required),
		validation.Field(&c.InitialFromDate, validation.Min(int64(0))),
		validation.Field(&c.TelegramToken, validation.Required),
		validation.Field(&c.TelegramChatID, validation.Required, validation.Match(chatIDPattern)),
		validation.Field(&c.GitHubAPIURL, is.URL),
		validation.Field(&c.Port, validation.Min(0), validation.Max(65535)),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.HistorySize, validation.Min(1)),
	); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return c.validateGitHubMirror()
}

func (c *Config) validateGitHubMirror() error {
	if !c.GitHubMirrorEnabled() {
		return nil
	}
	if parts := strings.Split(c.GitHubNotifyRepo, "/"); len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("GITHUB_NOTIFY_REPO must be owner/repo, got %q", c.GitHubNotifyRepo)
	}
	if c.GitHubNotifyIssue <= 0 {
		return fmt.Errorf("GITHUB_NOTIFY_ISSUE must be greater than 0")
	}
	if c.GitHubToken != "" {
		return nil
	}
	if c.GitHubAppID == "" || c.GitHubPrivateKey == "" {
		return fmt.Errorf("GITHUB_TOKEN or GITHUB_APP_ID with GITHUB_PRIVATE_KEY is required for the GitHub mirror")
	}
	return nil
}

// GitHubMirrorEnabled reports whether notifications are also posted to a GitHub issue.
func (c *Config) GitHubMirrorEnabled() bool {
	return c.GitHubNotifyRepo != ""
}

func normalizePrivateKey(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}

	if strings.HasPrefix(trimmed, "\"") && strings.HasSuffix(trimmed, "\"") {
		trimmed = strings.TrimPrefix(trimmed, "\"")
		trimmed = strings.TrimSuffix(trimmed, "\"")
	}
	if strings.HasPrefix(trimmed, "'") && strings.HasSuffix(trimmed, "'") {
		trimmed = strings.TrimPrefix(trimmed, "'")
		trimmed = strings.TrimSuffix(trimmed, "'")
	}

	trimmed = strings.ReplaceAll(trimmed, "\r\n", "\n")
	trimmed = strings.ReplaceAll(trimmed, "\r", "\n")
	if strings.Contains(trimmed, "\\n") {
		trimmed = strings.ReplaceAll(trimmed, "\\r", "")
		trimmed = strings.ReplaceAll(trimmed, "\\n", "\n")
	}

	return trimmed
}

// getEnv gets environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets environment variable as int with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
