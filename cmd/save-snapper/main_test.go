package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRun_ExitCodes(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "Riverside_123456789")

	cases := []struct {
		name     string
		args     []string
		wantCode int
		wantOut  string
	}{
		{name: "help", args: []string{"-h"}, wantCode: exitOK, wantOut: "usage:"},
		{name: "no save path", args: nil, wantCode: exitUsage, wantOut: "save file path is required"},
		{name: "bad interval", args: []string{"--interval", "0", missing}, wantCode: exitUsage, wantOut: "--interval"},
		{name: "missing save file", args: []string{missing}, wantCode: exitFatal, wantOut: "config " + missing},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			var stderr bytes.Buffer

			code := run(context.Background(), tc.args, &stderr)
			if code != tc.wantCode {
				t.Fatalf("exit code = %d, want %d (stderr: %s)", code, tc.wantCode, stderr.String())
			}
			if !strings.Contains(stderr.String(), tc.wantOut) {
				t.Fatalf("stderr %q does not contain %q", stderr.String(), tc.wantOut)
			}
		})
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	t.Chdir(t.TempDir())
	dir := t.TempDir()
	save := filepath.Join(dir, "Riverside_123456789")
	body := `<SaveGame><player><farmName>Riverside</farmName></player>` +
		`<uniqueIDForThisGame>123456789</uniqueIDForThisGame>` +
		`<year>1</year><currentSeason>spring</currentSeason><dayOfMonth>1</dayOfMonth></SaveGame>`
	if err := os.WriteFile(save, []byte(body), 0o600); err != nil {
		t.Fatalf("write save: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var stderr bytes.Buffer
	if code := run(ctx, []string{save}, &stderr); code != exitOK {
		t.Fatalf("exit code = %d, want %d (stderr: %s)", code, exitOK, stderr.String())
	}
}
