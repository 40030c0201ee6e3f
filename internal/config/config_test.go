package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var allEnv = []string{
	envLogLevel,
	envWatchMode,
	envLedgerPath,
	envWebhookURL,
	envWebhookTemplate,
	envSlackWebhookURL,
	envDryRun,
	envHealthPort,
	envMetricsPort,
}

func TestLoad_Args(t *testing.T) {
	cases := []struct {
		name      string
		args      []string
		wantUsage bool
		want      Config
	}{
		{
			name: "defaults",
			args: []string{"/saves/Riverside_123"},
			want: Config{SavePath: "/saves/Riverside_123", PollInterval: 60 * time.Second},
		},
		{
			name: "flags before path",
			args: []string{"--snap-dir", "/snaps", "--interval", "5", "/saves/Riverside_123"},
			want: Config{SavePath: "/saves/Riverside_123", SnapshotDir: "/snaps", PollInterval: 5 * time.Second},
		},
		{
			name: "flags after path",
			args: []string{"/saves/Riverside_123", "--interval=15", "-snap-dir=/snaps"},
			want: Config{SavePath: "/saves/Riverside_123", SnapshotDir: "/snaps", PollInterval: 15 * time.Second},
		},
		{
			name: "flags on both sides",
			args: []string{"--interval", "2", "/saves/Riverside_123", "--snap-dir", "/snaps"},
			want: Config{SavePath: "/saves/Riverside_123", SnapshotDir: "/snaps", PollInterval: 2 * time.Second},
		},
		{name: "missing path", args: nil, wantUsage: true},
		{name: "only flags", args: []string{"--interval", "5"}, wantUsage: true},
		{name: "zero interval", args: []string{"--interval", "0", "save"}, wantUsage: true},
		{name: "negative interval", args: []string{"save", "--interval", "-3"}, wantUsage: true},
		{name: "non numeric interval", args: []string{"--interval", "1m", "save"}, wantUsage: true},
		{name: "unknown flag", args: []string{"--retention", "3", "save"}, wantUsage: true},
		{name: "extra positional", args: []string{"save", "other"}, wantUsage: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			isolate(t)

			got, err := Load(tc.args)
			if tc.wantUsage {
				var usageErr *UsageError
				if !errors.As(err, &usageErr) {
					t.Fatalf("expected *UsageError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			tc.want.LogLevel = defaultLogLevel
			tc.want.WatchMode = WatchModePoll
			if got != tc.want {
				t.Fatalf("unexpected config: %+v", got)
			}
		})
	}
}

func TestLoad_Help(t *testing.T) {
	isolate(t)

	for _, args := range [][]string{{"-h"}, {"save", "--help"}} {
		if _, err := Load(args); !errors.Is(err, ErrHelp) {
			t.Fatalf("Load(%v) = %v, want ErrHelp", args, err)
		}
	}
}

func TestLoad_Environment(t *testing.T) {
	tmplPath := filepath.Join(t.TempDir(), "body.tmpl")
	if err := os.WriteFile(tmplPath, []byte(`{"text":"{{ .Snapshot.Path }}"}`), 0o600); err != nil {
		t.Fatalf("write template: %v", err)
	}

	cases := []struct {
		name    string
		env     map[string]string
		wantErr bool
		check   func(t *testing.T, cfg Config)
	}{
		{
			name: "all settings",
			env: map[string]string{
				envLogLevel:        "debug",
				envWatchMode:       "NOTIFY",
				envLedgerPath:      "/var/lib/snapper/ledger.json",
				envWebhookURL:      "https://example.com/hook",
				envWebhookTemplate: tmplPath,
				envSlackWebhookURL: "https://hooks.slack.com/services/T00/B00/XXX",
				envDryRun:          "true",
				envHealthPort:      "8080",
				envMetricsPort:     "9090",
			},
			check: func(t *testing.T, cfg Config) {
				if cfg.LogLevel != "debug" || cfg.WatchMode != WatchModeNotify {
					t.Fatalf("unexpected level/mode: %q %q", cfg.LogLevel, cfg.WatchMode)
				}
				if cfg.LedgerPath != "/var/lib/snapper/ledger.json" {
					t.Fatalf("unexpected ledger path %q", cfg.LedgerPath)
				}
				if cfg.WebhookURL != "https://example.com/hook" || cfg.SlackWebhookURL == "" {
					t.Fatalf("unexpected urls: %q %q", cfg.WebhookURL, cfg.SlackWebhookURL)
				}
				if cfg.WebhookTemplate != `{"text":"{{ .Snapshot.Path }}"}` {
					t.Fatalf("template not loaded: %q", cfg.WebhookTemplate)
				}
				if !cfg.DryRun || cfg.HealthPort != 8080 || cfg.MetricsPort != 9090 {
					t.Fatalf("unexpected dry run/ports: %+v", cfg)
				}
			},
		},
		{
			name: "core inputs ignore environment",
			env: map[string]string{
				"SNAPPER_INTERVAL": "1",
				"SNAPPER_SNAP_DIR": "/elsewhere",
			},
			check: func(t *testing.T, cfg Config) {
				if cfg.PollInterval != 60*time.Second || cfg.SnapshotDir != "" {
					t.Fatalf("environment leaked into core inputs: %+v", cfg)
				}
			},
		},
		{name: "invalid watch mode", env: map[string]string{envWatchMode: "inotify"}, wantErr: true},
		{name: "invalid webhook url", env: map[string]string{envWebhookURL: "not-a-url"}, wantErr: true},
		{name: "invalid slack url", env: map[string]string{envSlackWebhookURL: "hooks.slack.com/x"}, wantErr: true},
		{name: "missing template file", env: map[string]string{envWebhookTemplate: "/does/not/exist.tmpl"}, wantErr: true},
		{name: "invalid dry run", env: map[string]string{envDryRun: "sometimes"}, wantErr: true},
		{name: "invalid health port", env: map[string]string{envHealthPort: "http"}, wantErr: true},
		{name: "metrics port out of range", env: map[string]string{envMetricsPort: "70000"}, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			isolate(t)
			for key, value := range tc.env {
				t.Setenv(key, value)
			}

			got, err := Load([]string{"save"})
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				var usageErr *UsageError
				if errors.As(err, &usageErr) {
					t.Fatalf("environment errors must not be usage errors: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tc.check(t, got)
		})
	}
}

func TestLoad_DotEnvAndEnvOverride(t *testing.T) {
	tmpDir := isolate(t)

	dotenv := []byte(`
# example .env
SNAPPER_LOG_LEVEL=warn
SNAPPER_WEBHOOK_URL=https://example.com/from-dotenv
SNAPPER_HEALTH_PORT=8081
`)
	if err := os.WriteFile(filepath.Join(tmpDir, ".env"), dotenv, 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	t.Setenv(envWebhookURL, "https://example.com/from-env")

	got, err := Load([]string{"save"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.WebhookURL != "https://example.com/from-env" {
		t.Fatalf("webhook url did not prefer env: %s", got.WebhookURL)
	}
	if got.LogLevel != "warn" {
		t.Fatalf("log level not loaded from .env: %s", got.LogLevel)
	}
	if got.HealthPort != 8081 {
		t.Fatalf("health port not loaded from .env: %d", got.HealthPort)
	}
}

// isolate clears every SNAPPER_* variable and moves into an empty directory
// so no stray .env is picked up. Both are restored when the test ends.
func isolate(t *testing.T) string {
	t.Helper()
	for _, key := range allEnv {
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("unsetenv %s: %v", key, err)
		}
	}

	dir := t.TempDir()
	original, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(original); err != nil {
			t.Errorf("restore dir: %v", err)
		}
	})
	return dir
}
