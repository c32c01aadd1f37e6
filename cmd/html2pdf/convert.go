package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"

	html2pdf "github.com/alnah/go-html2pdf"
	"github.com/alnah/go-html2pdf/internal/config"
)

// Sentinel errors for the convert command.
var (
	ErrNoInput    = errors.New("no input specified")
	ErrReadCSS    = errors.New("failed to read CSS file")
	ErrReadSource = errors.New("failed to read source file")
	ErrWritePDF   = errors.New("failed to write PDF file")
	ErrConversion = errors.New("conversion failed")
	ErrFlagMargin = fmt.Errorf("%w: --margin", html2pdf.ErrInvalidMargin)
)

// conversionParams is what every file of a batch shares.
type conversionParams struct {
	settings  html2pdf.Options
	selector  string
	assetPath string
	logger    *zap.Logger
	verbose   bool
}

// runConvert loads and merges the configuration, discovers the sources
// and converts them in parallel. It returns the first failure when any
// conversion failed, after every result has been printed.
func runConvert(ctx context.Context, args []string, flags *convertFlags, env *Environment, logger *zap.Logger) error {
	if err := validateWorkers(flags.workers); err != nil {
		return err
	}

	envCfg := loadEnvConfig(env.Getenv)
	warnUnknownEnvVars(env.Stderr, env.Environ())

	cfg, err := loadConfig(flags.common.config, envCfg)
	if err != nil {
		return err
	}
	applyEnvConfig(envCfg, cfg)
	if err := mergeFlags(flags, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	inputPath, err := resolveInputPath(args, cfg)
	if err != nil {
		return err
	}
	files, err := discoverFiles(inputPath, resolveOutputDir(flags.output, cfg))
	if err != nil {
		return fmt.Errorf("discovering files: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("%w: no HTML or Markdown files in %s", ErrNoInput, inputPath)
	}

	settings, err := buildSettings(cfg, flags.assets.css)
	if err != nil {
		return err
	}

	timeout, err := cfg.Renderer.TimeoutDuration()
	if err != nil {
		return err
	}
	browser := html2pdf.BrowserConfig{
		Backend:   cfg.Renderer.Backend,
		Timeout:   timeout,
		RemoteURL: cfg.Renderer.RemoteURL,
		Logger:    logger.Named("browser"),
	}
	size := min(html2pdf.ResolvePoolSize(cfg.Workers), len(files))
	logger.Debug("starting conversion",
		zap.Int("files", len(files)),
		zap.Int("workers", size),
		zap.String("backend", lo.CoalesceOrEmpty(browser.Backend, html2pdf.BackendRod)))

	pool, err := env.NewPool(size, browser)
	if err != nil {
		return err
	}
	defer func() {
		if err := pool.Close(); err != nil {
			logger.Warn("closing browsers", zap.Error(err))
		}
	}()

	params := &conversionParams{
		settings:  settings,
		selector:  cfg.Input.Selector,
		assetPath: cfg.Style.BasePath,
		logger:    logger,
		verbose:   flags.common.verbose,
	}
	results := convertBatch(ctx, pool, files, params)

	if failed := printResultsWithWriter(results, flags.common.quiet, flags.common.verbose, env); failed > 0 {
		first, _ := lo.Find(results, func(r ConversionResult) bool { return r.Err != nil })
		return fmt.Errorf("%w: %d of %d file(s): %w", ErrConversion, failed, len(results), first.Err)
	}
	return nil
}

// loadConfig loads the --config file, else HTML2PDF_CONFIG, else defaults.
func loadConfig(flagConfig string, env *envConfig) (*config.Config, error) {
	name := lo.CoalesceOrEmpty(flagConfig, env.ConfigPath)
	if name == "" {
		return config.DefaultConfig(), nil
	}
	cfg, err := config.LoadConfig(name)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// mergeFlags writes explicitly set flags over cfg.
func mergeFlags(flags *convertFlags, cfg *config.Config) error {
	if flags.workers > 0 {
		cfg.Workers = flags.workers
	}
	if flags.timeout != "" {
		cfg.Renderer.Timeout = flags.timeout
	}

	p := flags.page
	if p.format != "" {
		cfg.Page.Format = p.format
		cfg.Page.Size = nil
	}
	if p.orientation != "" {
		cfg.Page.Orientation = p.orientation
	}
	if p.unit != "" {
		cfg.Page.Unit = p.unit
	}
	if p.margin != "" {
		m, err := parseMargin(p.margin)
		if err != nil {
			return err
		}
		cfg.Page.Margin = m
	}

	r := flags.render
	if r.backend != "" {
		cfg.Renderer.Backend = r.backend
	}
	if r.remoteURL != "" {
		cfg.Renderer.RemoteURL = r.remoteURL
	}
	if r.scale != 0 {
		cfg.Renderer.Scale = r.scale
	}
	if r.background != "" {
		cfg.Renderer.BackgroundColor = r.background
	}
	if r.imageType != "" {
		cfg.Image.Format = r.imageType
	}
	if r.quality != 0 {
		cfg.Image.Quality = r.quality
	}
	if r.selector != "" {
		cfg.Input.Selector = r.selector
	}
	if r.noLinks {
		cfg.EnableLinks = lo.ToPtr(false)
	}

	if flags.assets.style != "" {
		cfg.Style.Name = flags.assets.style
	}
	if flags.assets.assetPath != "" {
		cfg.Style.BasePath = flags.assets.assetPath
	}

	props := flags.properties
	cfg.Properties.Title = lo.CoalesceOrEmpty(props.title, cfg.Properties.Title)
	cfg.Properties.Subject = lo.CoalesceOrEmpty(props.subject, cfg.Properties.Subject)
	cfg.Properties.Author = lo.CoalesceOrEmpty(props.author, cfg.Properties.Author)
	cfg.Properties.Keywords = lo.CoalesceOrEmpty(props.keywords, cfg.Properties.Keywords)
	return nil
}

// parseMargin reads 1, 2 or 4 numbers separated by commas or spaces.
// Shape and sign are checked by the worker when the setting is applied.
func parseMargin(s string) ([]float64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty value", ErrFlagMargin)
	}
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", ErrFlagMargin, f)
		}
		out = append(out, v)
	}
	return out, nil
}

// buildSettings turns the merged configuration into the worker settings
// every file receives.
func buildSettings(cfg *config.Config, cssFile string) (html2pdf.Options, error) {
	settings := html2pdf.Options(cfg.Settings())
	if cfg.Style.Name != "" {
		settings[html2pdf.KeyStyle] = cfg.Style.Name
	}
	if cssFile != "" {
		css, err := os.ReadFile(cssFile) // #nosec G304 -- user-provided path
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrReadCSS, err)
		}
		settings[html2pdf.KeyCSS] = string(css)
	}
	props := cfg.Properties
	if props.Creator == "" {
		props.Creator = "html2pdf " + Version
	}
	settings[html2pdf.KeyProperties] = props
	return settings, nil
}
