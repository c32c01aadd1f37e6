package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alnah/go-html2pdf/internal/config"
)

const envPrefix = "HTML2PDF_"

// envConfig holds overrides read from HTML2PDF_* variables.
type envConfig struct {
	ConfigPath string // HTML2PDF_CONFIG
	Style      string // HTML2PDF_STYLE
	Timeout    string // HTML2PDF_TIMEOUT
	InputDir   string // HTML2PDF_INPUT_DIR
	OutputDir  string // HTML2PDF_OUTPUT_DIR
	PageSize   string // HTML2PDF_PAGE_SIZE
	Backend    string // HTML2PDF_BACKEND
	RemoteURL  string // HTML2PDF_REMOTE_URL
	Workers    int    // HTML2PDF_WORKERS
}

// knownEnvVars lists the recognized variables, to flag typos.
var knownEnvVars = map[string]bool{
	"HTML2PDF_CONFIG":     true,
	"HTML2PDF_STYLE":      true,
	"HTML2PDF_TIMEOUT":    true,
	"HTML2PDF_INPUT_DIR":  true,
	"HTML2PDF_OUTPUT_DIR": true,
	"HTML2PDF_PAGE_SIZE":  true,
	"HTML2PDF_BACKEND":    true,
	"HTML2PDF_REMOTE_URL": true,
	"HTML2PDF_WORKERS":    true,
	"HTML2PDF_CONTAINER":  true, // read by doctor
}

// loadEnvConfig reads the HTML2PDF_* variables through getenv. Malformed
// worker counts are ignored; the timeout is validated with the config.
func loadEnvConfig(getenv func(string) string) *envConfig {
	cfg := &envConfig{
		ConfigPath: getenv("HTML2PDF_CONFIG"),
		Style:      getenv("HTML2PDF_STYLE"),
		Timeout:    getenv("HTML2PDF_TIMEOUT"),
		InputDir:   getenv("HTML2PDF_INPUT_DIR"),
		OutputDir:  getenv("HTML2PDF_OUTPUT_DIR"),
		PageSize:   getenv("HTML2PDF_PAGE_SIZE"),
		Backend:    getenv("HTML2PDF_BACKEND"),
		RemoteURL:  getenv("HTML2PDF_REMOTE_URL"),
	}
	if workers := getenv("HTML2PDF_WORKERS"); workers != "" {
		if n, err := strconv.Atoi(workers); err == nil && n > 0 {
			cfg.Workers = n
		}
	}
	return cfg
}

// warnUnknownEnvVars writes a warning for every unrecognized HTML2PDF_*
// entry of environ.
func warnUnknownEnvVars(w io.Writer, environ []string) {
	for _, kv := range environ {
		name, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, envPrefix) && !knownEnvVars[name] {
			fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
		}
	}
}

// applyEnvConfig fills config fields the file left empty. Flags are merged
// afterwards, so the precedence is flags, environment, file, defaults.
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	if env.Style != "" && cfg.Style.Name == "" {
		cfg.Style.Name = env.Style
	}
	if env.Timeout != "" && cfg.Renderer.Timeout == "" {
		cfg.Renderer.Timeout = env.Timeout
	}
	if env.InputDir != "" && cfg.Input.DefaultDir == "" {
		cfg.Input.DefaultDir = env.InputDir
	}
	if env.OutputDir != "" && cfg.Output.DefaultDir == "" {
		cfg.Output.DefaultDir = env.OutputDir
	}
	if env.PageSize != "" && cfg.Page.Format == "" && len(cfg.Page.Size) == 0 {
		cfg.Page.Format = env.PageSize
	}
	if env.Backend != "" && cfg.Renderer.Backend == "" {
		cfg.Renderer.Backend = env.Backend
	}
	if env.RemoteURL != "" && cfg.Renderer.RemoteURL == "" {
		cfg.Renderer.RemoteURL = env.RemoteURL
	}
	if env.Workers > 0 && cfg.Workers == 0 {
		cfg.Workers = env.Workers
	}
}
