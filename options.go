package html2pdf

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/alnah/go-html2pdf/internal/assets"
	"github.com/alnah/go-html2pdf/internal/pdfdoc"
	"github.com/alnah/go-html2pdf/internal/raster"
)

// Option configures a Worker.
type Option func(*Worker)

// Collaborator types.
type (
	// Rasterizer renders HTML trees to images.
	Rasterizer = raster.Rasterizer
	// BrowserConfig configures the headless Chrome rasterizer.
	BrowserConfig = raster.Config
	// DocumentWriter composes the PDF.
	DocumentWriter = pdfdoc.Writer
	// DocumentFactory creates a DocumentWriter from document options.
	DocumentFactory = pdfdoc.Factory
)

// Rasterizer backends.
const (
	BackendRod      = raster.BackendRod
	BackendChromedp = raster.BackendChromedp
)

// NewBrowserRasterizer creates a headless Chrome rasterizer. The browser
// is launched on first use.
func NewBrowserRasterizer(cfg BrowserConfig) (Rasterizer, error) {
	return raster.NewBrowser(cfg)
}

// WithLogger sets the logger. A nil logger disables logging.
func WithLogger(l *zap.Logger) Option {
	return func(w *Worker) {
		if l == nil {
			l = zap.NewNop()
		}
		w.logger = l
	}
}

// WithRasterizer sets the rasterizer. The worker does not close it.
// Panics if r is nil (programmer error).
func WithRasterizer(r Rasterizer) Option {
	if r == nil {
		panic("html2pdf: WithRasterizer rasterizer must not be nil")
	}
	return func(w *Worker) {
		w.rasterizer = r
		w.ownsRasterizer = false
	}
}

// WithBrowser configures the browser the worker launches when no
// rasterizer was given. The worker closes it on Close.
func WithBrowser(cfg BrowserConfig) Option {
	return func(w *Worker) {
		w.browser = cfg
	}
}

// WithBackend selects the browser driver, rod or chromedp.
func WithBackend(name string) Option {
	return func(w *Worker) {
		w.browser.Backend = name
	}
}

// WithTimeout bounds browser page loads.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("html2pdf: WithTimeout duration must be positive")
	}
	return func(w *Worker) {
		w.browser.Timeout = d
	}
}

// WithDocumentFactory replaces the PDF writer.
// Panics if f is nil (programmer error).
func WithDocumentFactory(f DocumentFactory) Option {
	if f == nil {
		panic("html2pdf: WithDocumentFactory factory must not be nil")
	}
	return func(w *Worker) {
		w.newDocument = f
	}
}

// WithAssetPath loads styles from {dir}/styles before the embedded ones.
// An unusable directory rejects the worker's chain.
func WithAssetPath(dir string) Option {
	return func(w *Worker) {
		r, err := assets.NewResolver(dir)
		if err != nil {
			w.initErr = fmt.Errorf("%w: %w", ErrInvalidOption, err)
			return
		}
		w.styles = r
	}
}

// WithStylesheet adds CSS to the live document the source is laid out in.
func WithStylesheet(css string) Option {
	return func(w *Worker) {
		w.stylesheets = append(w.stylesheets, css)
	}
}
