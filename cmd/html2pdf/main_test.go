package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestRunMain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		args       []string
		wantCode   int
		wantStdout string
		wantStderr string
	}{
		{name: "no args", wantCode: ExitUsage, wantStderr: "Usage: html2pdf <command>"},
		{name: "version", args: []string{"version"}, wantCode: ExitSuccess, wantStdout: "html2pdf " + Version},
		{name: "version flag", args: []string{"--version"}, wantCode: ExitSuccess, wantStdout: "html2pdf "},
		{name: "help", args: []string{"help"}, wantCode: ExitSuccess, wantStdout: "Commands:"},
		{name: "help convert", args: []string{"help", "convert"}, wantCode: ExitSuccess, wantStdout: "--selector"},
		{name: "help doctor", args: []string{"help", "doctor"}, wantCode: ExitSuccess, wantStdout: "--json"},
		{name: "help unknown", args: []string{"help", "nope"}, wantCode: ExitUsage, wantStderr: "unknown command: nope"},
		{name: "convert help", args: []string{"convert", "--help"}, wantCode: ExitSuccess, wantStderr: "--margin"},
		{name: "bad flag", args: []string{"convert", "--bogus"}, wantCode: ExitUsage, wantStderr: "help convert"},
		{name: "no input", args: []string{"convert"}, wantCode: ExitIO, wantStderr: "error: no input specified"},
		{name: "doctor bad flag", args: []string{"doctor", "--bogus"}, wantCode: ExitUsage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := newTestEnv(t)
			if got := runMain(context.Background(), tt.args, env.Environment); got != tt.wantCode {
				t.Errorf("runMain() = %d, want %d (stderr %q)", got, tt.wantCode, env.stderr.String())
			}
			if tt.wantStdout != "" && !strings.Contains(env.stdout.String(), tt.wantStdout) {
				t.Errorf("stdout = %q, want %q", env.stdout.String(), tt.wantStdout)
			}
			if tt.wantStderr != "" && !strings.Contains(env.stderr.String(), tt.wantStderr) {
				t.Errorf("stderr = %q, want %q", env.stderr.String(), tt.wantStderr)
			}
		})
	}
}

func TestRunMain_ConvertIsDefault(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := writeFile(t, dir, "notes.md", "# Notes\n\n- one\n- two\n")

	env := newTestEnv(t)
	if got := runMain(context.Background(), []string{input, "--style", "markdown"}, env.Environment); got != ExitSuccess {
		t.Fatalf("runMain() = %d, stderr %q", got, env.stderr.String())
	}
	if _, err := os.Stat(filepath.Join(dir, "notes.pdf")); err != nil {
		t.Errorf("output missing: %v", err)
	}
}

func TestRunMain_FailedConversion(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := writeFile(t, dir, "page.html", "<p>x</p>")

	env := newTestEnv(t)
	got := runMain(context.Background(), []string{"convert", input, "--style", "fancy"}, env.Environment)
	if got != ExitUsage {
		t.Errorf("runMain() = %d, want %d", got, ExitUsage)
	}
	stderr := env.stderr.String()
	if !strings.Contains(stderr, "FAILED "+input) || !strings.Contains(stderr, "available: default, markdown, minimal") {
		t.Errorf("stderr = %q, want the failure with the style hint", stderr)
	}
	if strings.Count(stderr, "hint:") != 1 {
		t.Errorf("stderr = %q, want the hint printed once", stderr)
	}
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		verbose bool
		quiet   bool
		want    zapcore.Level
	}{
		{name: "default", want: zapcore.WarnLevel},
		{name: "verbose", verbose: true, want: zapcore.DebugLevel},
		{name: "quiet", quiet: true, want: zapcore.ErrorLevel},
		{name: "verbose wins", verbose: true, quiet: true, want: zapcore.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := newTestEnv(t)
			logger := newLogger(env.stderr, tt.verbose, tt.quiet)
			if got := logger.Level(); got != tt.want {
				t.Errorf("Level() = %v, want %v", got, tt.want)
			}

			logger.Warn("disk almost full")
			if logged := strings.Contains(env.stderr.String(), "disk almost full"); logged != (tt.want <= zapcore.WarnLevel) {
				t.Errorf("stderr = %q", env.stderr.String())
			}
		})
	}
}
