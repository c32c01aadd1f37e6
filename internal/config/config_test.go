package config

// Notes:
// - LoadConfig name resolution changes the working directory, so those
//   subtests are not parallel.
// - The permission test is skipped when running as root, where chmod 0000
//   does not prevent reading.

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alnah/go-html2pdf/internal/imaging"
	"github.com/alnah/go-html2pdf/internal/pdfdoc"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("setup: %v", err)
	}
	return path
}

// ---------------------------------------------------------------------------
// TestConfig_Validate
// ---------------------------------------------------------------------------

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{name: "default", cfg: *DefaultConfig()},
		{
			name: "full page",
			cfg: Config{Page: PageConfig{
				Format: "letter", Unit: "in", Orientation: "landscape", Margin: []float64{0.5, 1},
			}},
		},
		{
			name: "single margin applies to every side",
			cfg:  Config{Page: PageConfig{Margin: Margin{10}}},
		},
		{
			name:    "unknown format",
			cfg:     Config{Page: PageConfig{Format: "b17"}},
			wantErr: ErrInvalidValue,
		},
		{
			name:    "bad size",
			cfg:     Config{Page: PageConfig{Size: []float64{100}}},
			wantErr: ErrInvalidValue,
		},
		{
			name:    "three margins",
			cfg:     Config{Page: PageConfig{Margin: []float64{1, 2, 3}}},
			wantErr: ErrInvalidValue,
		},
		{
			name:    "margin swallowing page",
			cfg:     Config{Page: PageConfig{Margin: []float64{200}}},
			wantErr: ErrInvalidValue,
		},
		{
			name:    "bad unit",
			cfg:     Config{Page: PageConfig{Unit: "furlong"}},
			wantErr: ErrInvalidValue,
		},
		{
			name:    "bad image type",
			cfg:     Config{Image: imaging.Options{Format: "bmp"}},
			wantErr: ErrInvalidValue,
		},
		{
			name:    "bad image quality",
			cfg:     Config{Image: imaging.Options{Quality: 2}},
			wantErr: ErrInvalidValue,
		},
		{
			name:    "negative scale",
			cfg:     Config{Renderer: RendererConfig{Scale: -1}},
			wantErr: ErrInvalidValue,
		},
		{
			name:    "bad timeout",
			cfg:     Config{Renderer: RendererConfig{Timeout: "soon"}},
			wantErr: ErrInvalidValue,
		},
		{
			name:    "too many workers",
			cfg:     Config{Workers: MaxWorkers + 1},
			wantErr: ErrInvalidValue,
		},
		{
			name:    "title too long",
			cfg:     Config{Properties: pdfdoc.Properties{Title: strings.Repeat("x", MaxPropertyLength+1)}},
			wantErr: ErrFieldTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.cfg.Validate()
			if tt.wantErr == nil && err != nil {
				t.Fatalf("Validate() unexpected error: %v", err)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestRendererConfig_TimeoutDuration
// ---------------------------------------------------------------------------

func TestRendererConfig_TimeoutDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		timeout string
		want    time.Duration
		wantErr bool
	}{
		{timeout: "", want: 0},
		{timeout: "45s", want: 45 * time.Second},
		{timeout: "2m", want: 2 * time.Minute},
		{timeout: "-1s", wantErr: true},
		{timeout: "x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.timeout, func(t *testing.T) {
			t.Parallel()

			got, err := RendererConfig{Timeout: tt.timeout}.TimeoutDuration()
			if (err != nil) != tt.wantErr {
				t.Fatalf("TimeoutDuration() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("TimeoutDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestConfig_Settings
// ---------------------------------------------------------------------------

func TestConfig_Settings(t *testing.T) {
	t.Parallel()

	t.Run("default config sets nothing", func(t *testing.T) {
		t.Parallel()

		if got := DefaultConfig().Settings(); len(got) != 0 {
			t.Errorf("Settings() = %v, want empty", got)
		}
	})

	t.Run("overrides are keyed for the worker", func(t *testing.T) {
		t.Parallel()

		links := false
		compress := false
		cfg := Config{
			Output:      OutputConfig{Filename: "report.pdf"},
			Page:        PageConfig{Format: "letter", Margin: []float64{10}, Compress: &compress},
			Image:       imaging.Options{Format: "png"},
			Renderer:    RendererConfig{Scale: 1, BackgroundColor: "#eee"},
			Properties:  pdfdoc.Properties{Title: "Report"},
			EnableLinks: &links,
		}

		got := cfg.Settings()
		if got["filename"] != "report.pdf" {
			t.Errorf("filename = %v", got["filename"])
		}
		if m, ok := got["margin"].(float64); !ok || m != 10 {
			t.Errorf("margin = %v (%T), want the scalar 10", got["margin"], got["margin"])
		}
		pdf, ok := got["pdf"].(pdfdoc.Options)
		if !ok {
			t.Fatalf("pdf = %T, want pdfdoc.Options", got["pdf"])
		}
		if pdf.Format != "letter" || pdf.Compress || pdf.Unit != "mm" {
			t.Errorf("pdf = %+v", pdf)
		}
		img, ok := got["image"].(map[string]any)
		if !ok || img["type"] != "png" {
			t.Errorf("image = %v", got["image"])
		}
		if _, ok := img["quality"]; ok {
			t.Error("image quality should be left to the worker default")
		}
		r, ok := got["renderer"].(map[string]any)
		if !ok || r["scale"] != 1.0 || r["backgroundColor"] != "#eee" {
			t.Errorf("renderer = %v", got["renderer"])
		}
		if p, ok := got["properties"].(pdfdoc.Properties); !ok || p.Title != "Report" {
			t.Errorf("properties = %v", got["properties"])
		}
		if got["enableLinks"] != false {
			t.Errorf("enableLinks = %v", got["enableLinks"])
		}
	})
}

// ---------------------------------------------------------------------------
// TestLoadConfig
// ---------------------------------------------------------------------------

func TestLoadConfig(t *testing.T) {
	t.Run("empty name", func(t *testing.T) {
		if _, err := LoadConfig(""); !errors.Is(err, ErrEmptyConfigName) {
			t.Errorf("error = %v, want ErrEmptyConfigName", err)
		}
	})

	t.Run("valid file", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "test.yaml", `style:
  name: markdown
page:
  format: a5
  orientation: landscape
  margin: [5, 10]
image:
  type: png
renderer:
  backend: chromedp
  timeout: 1m
  scale: 1.5
properties:
  title: Hello
enableLinks: false
workers: 4
`)

		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if cfg.Style.Name != "markdown" {
			t.Errorf("Style.Name = %q", cfg.Style.Name)
		}
		if cfg.Page.Format != "a5" || cfg.Page.Orientation != "landscape" || len(cfg.Page.Margin) != 2 {
			t.Errorf("Page = %+v", cfg.Page)
		}
		if cfg.Image.Format != "png" {
			t.Errorf("Image.Format = %q", cfg.Image.Format)
		}
		if cfg.Renderer.Backend != "chromedp" || cfg.Renderer.Scale != 1.5 {
			t.Errorf("Renderer = %+v", cfg.Renderer)
		}
		if cfg.Properties.Title != "Hello" {
			t.Errorf("Properties.Title = %q", cfg.Properties.Title)
		}
		if cfg.EnableLinks == nil || *cfg.EnableLinks {
			t.Errorf("EnableLinks = %v, want false", cfg.EnableLinks)
		}
		if cfg.Workers != 4 {
			t.Errorf("Workers = %d", cfg.Workers)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadConfig("/nonexistent/path/config.yaml"); !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("error = %v, want ErrConfigNotFound", err)
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "bad.yaml", "page: [unclosed")
		if _, err := LoadConfig(path); !errors.Is(err, ErrConfigParse) {
			t.Errorf("error = %v, want ErrConfigParse", err)
		}
	})

	t.Run("unknown field", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "unknown.yaml", "footer:\n  enabled: true\n")
		if _, err := LoadConfig(path); !errors.Is(err, ErrConfigParse) {
			t.Errorf("error = %v, want ErrConfigParse", err)
		}
	})

	t.Run("scalar margin", func(t *testing.T) {
		for _, margin := range []string{"0.5", "[0.5]"} {
			path := writeConfig(t, t.TempDir(), "margin.yaml", "page:\n  unit: in\n  margin: "+margin+"\n")
			cfg, err := LoadConfig(path)
			if err != nil {
				t.Fatalf("margin %s: LoadConfig() error = %v", margin, err)
			}
			if got := cfg.Page.Margin.Value(); got != 0.5 {
				t.Errorf("margin %s: Value() = %v, want 0.5", margin, got)
			}
		}
	})

	t.Run("non-numeric margin", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "margin.yaml", "page:\n  margin: wide\n")
		if _, err := LoadConfig(path); !errors.Is(err, ErrConfigParse) {
			t.Errorf("error = %v, want ErrConfigParse", err)
		}
	})

	t.Run("invalid value", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "margin.yaml", "page:\n  margin: [1, 2, 3]\n")
		if _, err := LoadConfig(path); !errors.Is(err, ErrInvalidValue) {
			t.Errorf("error = %v, want ErrInvalidValue", err)
		}
	})

	t.Run("unreadable file", func(t *testing.T) {
		if os.Geteuid() == 0 {
			t.Skip("root can read mode 0000 files")
		}
		path := writeConfig(t, t.TempDir(), "locked.yaml", "workers: 1\n")
		if err := os.Chmod(path, 0); err != nil {
			t.Fatalf("setup chmod: %v", err)
		}
		defer os.Chmod(path, 0o600)

		_, err := LoadConfig(path)
		if err == nil || errors.Is(err, ErrConfigNotFound) {
			t.Errorf("error = %v, want a read error", err)
		}
	})

	t.Run("name resolves in working directory", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "myconfig.yml", "workers: 2\n")
		t.Chdir(dir)

		cfg, err := LoadConfig("myconfig")
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if cfg.Workers != 2 {
			t.Errorf("Workers = %d, want 2", cfg.Workers)
		}
	})

	t.Run("unknown name lists searched paths", func(t *testing.T) {
		t.Chdir(t.TempDir())

		_, err := LoadConfig("no-such-config")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("error = %v, want ErrConfigNotFound", err)
		}
		if !strings.Contains(err.Error(), "no-such-config.yaml") {
			t.Errorf("error %q should list searched paths", err)
		}
	})
}

func TestSearchPaths(t *testing.T) {
	t.Parallel()

	paths := SearchPaths("work")
	if len(paths) < 2 || paths[0] != "work.yaml" || paths[1] != "work.yml" {
		t.Errorf("SearchPaths() = %v", paths)
	}
}
