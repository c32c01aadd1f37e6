// Package config loads the YAML configuration of the html2pdf command and
// turns it into worker settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/go-html2pdf/internal/fileutil"
	"github.com/alnah/go-html2pdf/internal/geometry"
	"github.com/alnah/go-html2pdf/internal/imaging"
	"github.com/alnah/go-html2pdf/internal/pdfdoc"
	"github.com/alnah/go-html2pdf/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// Field length limits.
const (
	MaxPathLength     = 4096
	MaxFilenameLength = 255
	MaxPropertyLength = 500
	MaxColorLength    = 32
	MaxNameLength     = 64
	MaxWorkers        = 32
)

// Config holds the command configuration.
type Config struct {
	Input       InputConfig       `yaml:"input"`
	Output      OutputConfig      `yaml:"output"`
	Style       StyleConfig       `yaml:"style"`
	Page        PageConfig        `yaml:"page"`
	Image       imaging.Options   `yaml:"image"`
	Renderer    RendererConfig    `yaml:"renderer"`
	Properties  pdfdoc.Properties `yaml:"properties"`
	EnableLinks *bool             `yaml:"enableLinks"`
	Workers     int               `yaml:"workers"` // 0 = auto
}

// InputConfig defines input source options.
type InputConfig struct {
	DefaultDir string `yaml:"defaultDir"`
	Selector   string `yaml:"selector"` // CSS selector narrowing HTML sources
}

// OutputConfig defines output destination options.
type OutputConfig struct {
	DefaultDir string `yaml:"defaultDir"` // empty = next to the source
	Filename   string `yaml:"filename"`   // single-file mode only
}

// StyleConfig selects the stylesheet injected into the live document.
type StyleConfig struct {
	Name     string `yaml:"name"`
	BasePath string `yaml:"basePath"` // empty = embedded styles only
}

// PageConfig defines the PDF page geometry.
type PageConfig struct {
	Format      string    `yaml:"format"`
	Size        []float64 `yaml:"size"` // [width, height] in Unit, overrides Format
	Unit        string    `yaml:"unit"`
	Orientation string    `yaml:"orientation"`
	Margin      Margin    `yaml:"margin"`
	Compress    *bool     `yaml:"compress"`
}

// Margin is page.margin: one number, or a list of 1, 2 or 4 numbers.
type Margin []float64

// UnmarshalYAML accepts a bare number as a one-element list.
func (m *Margin) UnmarshalYAML(unmarshal func(any) error) error {
	var v float64
	if err := unmarshal(&v); err == nil {
		*m = Margin{v}
		return nil
	}
	var list []float64
	if err := unmarshal(&list); err != nil {
		return err
	}
	*m = list
	return nil
}

// Value returns the margin in the shape the worker accepts: a scalar for
// a single number, the list otherwise.
func (m Margin) Value() any {
	if len(m) == 1 {
		return m[0]
	}
	return []float64(m)
}

func (p PageConfig) isZero() bool {
	return p.Format == "" && len(p.Size) == 0 && p.Unit == "" &&
		p.Orientation == "" && p.Compress == nil
}

// RendererConfig defines the headless browser and capture options.
type RendererConfig struct {
	Backend         string  `yaml:"backend"`
	Timeout         string  `yaml:"timeout"` // Go duration, e.g. "45s"
	RemoteURL       string  `yaml:"remoteURL"`
	Scale           float64 `yaml:"scale"`
	BackgroundColor string  `yaml:"backgroundColor"`
}

// TimeoutDuration parses Timeout. An empty value yields zero.
func (r RendererConfig) TimeoutDuration() (time.Duration, error) {
	if r.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(r.Timeout)
	if err != nil {
		return 0, fmt.Errorf("%w: renderer.timeout: %v", ErrInvalidValue, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%w: renderer.timeout: negative duration %s", ErrInvalidValue, d)
	}
	return d, nil
}

// DefaultConfig returns a configuration that leaves every worker default
// in place.
func DefaultConfig() *Config {
	return &Config{}
}

// Validate checks field lengths and value ranges.
func (c *Config) Validate() error {
	fields := []struct {
		name  string
		value string
		max   int
	}{
		{"input.defaultDir", c.Input.DefaultDir, MaxPathLength},
		{"input.selector", c.Input.Selector, MaxPropertyLength},
		{"output.defaultDir", c.Output.DefaultDir, MaxPathLength},
		{"output.filename", c.Output.Filename, MaxFilenameLength},
		{"style.name", c.Style.Name, MaxNameLength},
		{"style.basePath", c.Style.BasePath, MaxPathLength},
		{"page.format", c.Page.Format, MaxNameLength},
		{"page.unit", c.Page.Unit, MaxNameLength},
		{"page.orientation", c.Page.Orientation, MaxNameLength},
		{"renderer.backend", c.Renderer.Backend, MaxNameLength},
		{"renderer.remoteURL", c.Renderer.RemoteURL, MaxPathLength},
		{"renderer.backgroundColor", c.Renderer.BackgroundColor, MaxColorLength},
		{"properties.title", c.Properties.Title, MaxPropertyLength},
		{"properties.subject", c.Properties.Subject, MaxPropertyLength},
		{"properties.author", c.Properties.Author, MaxPropertyLength},
		{"properties.keywords", c.Properties.Keywords, MaxPropertyLength},
		{"properties.creator", c.Properties.Creator, MaxPropertyLength},
	}
	for _, f := range fields {
		if err := validateFieldLength(f.name, f.value, f.max); err != nil {
			return err
		}
	}

	if c.Page.Format != "" && !geometry.IsFormat(c.Page.Format) {
		return fmt.Errorf("%w: page.format %q", ErrInvalidValue, c.Page.Format)
	}
	if len(c.Page.Size) != 0 && len(c.Page.Size) != 2 {
		return fmt.Errorf("%w: page.size needs [width, height], got %v", ErrInvalidValue, c.Page.Size)
	}
	var margin geometry.Margin
	if c.Page.Margin != nil {
		m, err := geometry.NormalizeMargin(c.Page.Margin.Value())
		if err != nil {
			return fmt.Errorf("%w: page.margin: %v", ErrInvalidValue, err)
		}
		margin = m
	}
	opts := geometry.Options{
		Format:      c.Page.Format,
		Size:        c.Page.Size,
		Unit:        c.Page.Unit,
		Orientation: c.Page.Orientation,
	}
	if _, err := geometry.Compute(opts, margin); err != nil {
		return fmt.Errorf("%w: page: %v", ErrInvalidValue, err)
	}
	if c.Image.Format != "" || c.Image.Quality != 0 {
		img := c.Image
		if img.Format == "" {
			img.Format = imaging.DefaultFormat
		}
		if img.Quality == 0 {
			img.Quality = imaging.DefaultQuality
		}
		if err := img.Validate(); err != nil {
			return fmt.Errorf("%w: image: %v", ErrInvalidValue, err)
		}
	}
	if c.Renderer.Scale < 0 {
		return fmt.Errorf("%w: renderer.scale must be positive, got %.2f", ErrInvalidValue, c.Renderer.Scale)
	}
	if _, err := c.Renderer.TimeoutDuration(); err != nil {
		return err
	}
	if c.Workers < 0 || c.Workers > MaxWorkers {
		return fmt.Errorf("%w: workers must be between 0 and %d, got %d", ErrInvalidValue, MaxWorkers, c.Workers)
	}
	return nil
}

// Settings returns the worker settings the configuration overrides, keyed
// the way the worker's Set accepts them. Zero values are left out.
func (c *Config) Settings() map[string]any {
	s := make(map[string]any)
	if c.Output.Filename != "" {
		s["filename"] = c.Output.Filename
	}
	if c.Page.Margin != nil {
		s["margin"] = c.Page.Margin.Value()
	}
	if !c.Page.isZero() {
		pdf := pdfdoc.DefaultOptions()
		if c.Page.Format != "" {
			pdf.Format = c.Page.Format
		}
		if len(c.Page.Size) == 2 {
			pdf.Size = c.Page.Size
		}
		if c.Page.Unit != "" {
			pdf.Unit = c.Page.Unit
		}
		if c.Page.Orientation != "" {
			pdf.Orientation = c.Page.Orientation
		}
		if c.Page.Compress != nil {
			pdf.Compress = *c.Page.Compress
		}
		s["pdf"] = pdf
	}
	if c.Image != (imaging.Options{}) {
		img := map[string]any{}
		if c.Image.Format != "" {
			img["type"] = c.Image.Format
		}
		if c.Image.Quality != 0 {
			img["quality"] = c.Image.Quality
		}
		s["image"] = img
	}
	if c.Renderer.Scale != 0 || c.Renderer.BackgroundColor != "" {
		r := map[string]any{}
		if c.Renderer.Scale != 0 {
			r["scale"] = c.Renderer.Scale
		}
		if c.Renderer.BackgroundColor != "" {
			r["backgroundColor"] = c.Renderer.BackgroundColor
		}
		s["renderer"] = r
	}
	if !c.Properties.IsZero() {
		s["properties"] = c.Properties
	}
	if c.EnableLinks != nil {
		s["enableLinks"] = *c.EnableLinks
	}
	return s
}

func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// LoadConfig loads configuration from a file path or config name. A value
// containing a path separator is a path; anything else is a name searched
// in the current directory, then in the user config directory. Missing
// files are an error.
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	configPath := nameOrPath
	if !isFilePath(nameOrPath) {
		var err error
		if configPath, err = resolveConfigPath(nameOrPath); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yamlutil.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SearchPaths lists the files LoadConfig tries for a config name.
func SearchPaths(name string) []string {
	extensions := []string{".yaml", ".yml"}
	paths := make([]string, 0, len(extensions)*2)
	for _, ext := range extensions {
		paths = append(paths, name+ext)
	}
	if dir, err := os.UserConfigDir(); err == nil {
		for _, ext := range extensions {
			paths = append(paths, filepath.Join(dir, "go-html2pdf", name+ext))
		}
	}
	return paths
}

func isFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}

func resolveConfigPath(name string) (string, error) {
	paths := SearchPaths(name)
	for _, p := range paths {
		if fileutil.FileExists(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(paths, ", "))
}
