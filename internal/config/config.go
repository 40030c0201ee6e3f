package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	envLogLevel        = "SNAPPER_LOG_LEVEL"
	envWatchMode       = "SNAPPER_WATCH_MODE"
	envLedgerPath      = "SNAPPER_LEDGER_PATH"
	envWebhookURL      = "SNAPPER_WEBHOOK_URL"
	envWebhookTemplate = "SNAPPER_WEBHOOK_TEMPLATE"
	envSlackWebhookURL = "SNAPPER_SLACK_WEBHOOK_URL"
	envDryRun          = "SNAPPER_DRY_RUN"
	envHealthPort      = "SNAPPER_HEALTH_PORT"
	envMetricsPort     = "SNAPPER_METRICS_PORT"
)

const (
	defaultIntervalSeconds = 60
	defaultLogLevel        = "info"
)

// Watch modes.
const (
	WatchModePoll   = "poll"
	WatchModeNotify = "notify"
)

// Usage is printed for -h and for malformed command lines.
const Usage = `usage: save-snapper [--snap-dir DIR] [--interval SECONDS] SAVE_FILE

Copies SAVE_FILE into DIR every time its in-game date changes.

  --snap-dir DIR        snapshot directory (default: directory of SAVE_FILE)
  --interval SECONDS    poll interval in seconds (default: 60)
`

// ErrHelp is returned when -h or --help is given.
var ErrHelp = flag.ErrHelp

// UsageError reports a malformed command line.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string {
	return e.Err.Error()
}

func (e *UsageError) Unwrap() error {
	return e.Err
}

// Config describes the command line and the SNAPPER_* environment.
type Config struct {
	SavePath     string
	SnapshotDir  string
	PollInterval time.Duration

	LogLevel        string
	WatchMode       string
	LedgerPath      string
	WebhookURL      string
	WebhookTemplate string
	SlackWebhookURL string
	DryRun          bool
	HealthPort      int
	MetricsPort     int
}

// Load parses args (without the program name) and the environment, reading
// a local .env file if present. Existing environment variables take
// precedence over values in .env. Command line problems are *UsageError.
func Load(args []string) (Config, error) {
	cfg, err := parseArgs(args)
	if err != nil {
		return Config{}, err
	}

	if err := loadDotEnvIfPresent(".env"); err != nil {
		return Config{}, err
	}

	cfg.LogLevel = defaultLogLevel
	cfg.WatchMode = WatchModePoll

	if value, ok := lookupTrimmed(envLogLevel); ok && value != "" {
		cfg.LogLevel = value
	}

	if value, ok := lookupTrimmed(envWatchMode); ok && value != "" {
		mode := strings.ToLower(value)
		if mode != WatchModePoll && mode != WatchModeNotify {
			return Config{}, fmt.Errorf("invalid %s: %q (want %s or %s)", envWatchMode, value, WatchModePoll, WatchModeNotify)
		}
		cfg.WatchMode = mode
	}

	if value, ok := lookupTrimmed(envLedgerPath); ok {
		cfg.LedgerPath = value
	}

	if value, ok := lookupTrimmed(envWebhookURL); ok && value != "" {
		if err := validateURL(value, envWebhookURL); err != nil {
			return Config{}, err
		}
		cfg.WebhookURL = value
	}

	if value, ok := lookupTrimmed(envWebhookTemplate); ok && value != "" {
		body, err := os.ReadFile(value)
		if err != nil {
			return Config{}, fmt.Errorf("read %s: %w", envWebhookTemplate, err)
		}
		cfg.WebhookTemplate = string(body)
	}

	if value, ok := lookupTrimmed(envSlackWebhookURL); ok && value != "" {
		if err := validateURL(value, envSlackWebhookURL); err != nil {
			return Config{}, err
		}
		cfg.SlackWebhookURL = value
	}

	if value, ok := lookupTrimmed(envDryRun); ok && value != "" {
		dryRun, err := strconv.ParseBool(value)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", envDryRun, err)
		}
		cfg.DryRun = dryRun
	}

	if cfg.HealthPort, err = parsePort(envHealthPort); err != nil {
		return Config{}, err
	}
	if cfg.MetricsPort, err = parsePort(envMetricsPort); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// parseArgs accepts flags on either side of the save path.
func parseArgs(args []string) (Config, error) {
	var (
		snapDir  string
		interval int
	)

	fs := flag.NewFlagSet("save-snapper", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&snapDir, "snap-dir", "", "snapshot directory")
	fs.IntVar(&interval, "interval", defaultIntervalSeconds, "poll interval in seconds")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return Config{}, ErrHelp
		}
		return Config{}, &UsageError{Err: err}
	}
	if fs.NArg() == 0 {
		return Config{}, &UsageError{Err: errors.New("save file path is required")}
	}

	savePath := fs.Arg(0)
	if err := fs.Parse(fs.Args()[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return Config{}, ErrHelp
		}
		return Config{}, &UsageError{Err: err}
	}
	if fs.NArg() > 0 {
		return Config{}, &UsageError{Err: fmt.Errorf("unexpected argument %q", fs.Arg(0))}
	}

	if strings.TrimSpace(savePath) == "" {
		return Config{}, &UsageError{Err: errors.New("save file path is required")}
	}
	if interval <= 0 {
		return Config{}, &UsageError{Err: fmt.Errorf("--interval must be greater than zero, got %d", interval)}
	}

	return Config{
		SavePath:     savePath,
		SnapshotDir:  snapDir,
		PollInterval: time.Duration(interval) * time.Second,
	}, nil
}

func parsePort(key string) (int, error) {
	value, ok := lookupTrimmed(key)
	if !ok || value == "" {
		return 0, nil
	}
	port, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if port < 0 || port > 65535 {
		return 0, fmt.Errorf("invalid %s: port %d out of range", key, port)
	}
	return port, nil
}

func lookupTrimmed(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(value), true
}

func loadDotEnvIfPresent(path string) error {
	err := godotenv.Load(path)
	if err == nil {
		return nil
	}

	var pathErr *os.PathError
	if errors.As(err, &pathErr) && errors.Is(pathErr.Err, os.ErrNotExist) {
		return nil
	}

	return err
}

func validateURL(value, name string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("invalid %s: must include scheme and host", name)
	}
	return nil
}
