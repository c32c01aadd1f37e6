package html2pdf

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/alnah/go-html2pdf/internal/assets"
	"github.com/alnah/go-html2pdf/internal/chain"
	"github.com/alnah/go-html2pdf/internal/dom"
	"github.com/alnah/go-html2pdf/internal/fileutil"
	"github.com/alnah/go-html2pdf/internal/imaging"
	"github.com/alnah/go-html2pdf/internal/markdown"
	"github.com/alnah/go-html2pdf/internal/pdfdoc"
	"github.com/alnah/go-html2pdf/internal/progress"
	"github.com/alnah/go-html2pdf/internal/raster"
)

// Chain types.
type (
	// Step is a named unit of work queued on a Worker.
	Step = chain.Step
	// StepFunc receives the value of the previous step.
	StepFunc = chain.Func
	// RecoverFunc handles a rejection; returning a nil error clears it.
	RecoverFunc = chain.RecoverFunc
	// Future is the settled outcome of a drained Worker.
	Future = chain.Future
	// Progress is a snapshot of the progress counters.
	Progress = progress.Snapshot
	// Observer is notified of every progress change.
	Observer = progress.Observer
)

// Source kinds accepted by From.
const (
	SourceHTML     = "string"
	SourceElement  = "element"
	SourceSurface  = "canvas"
	SourceImage    = "img"
	SourceMarkdown = "markdown"
)

// Worker converts an HTML tree to PDF through the container, surface,
// image and document stages. Methods queue steps and return the worker;
// nothing runs until Run or Future drains the queue. A Worker is safe for
// concurrent use, but Close must not overlap a drain.
type Worker struct {
	chain   *chain.Chain
	tracker *progress.Tracker
	logger  *zap.Logger

	rmu            sync.Mutex
	rasterizer     raster.Rasterizer
	ownsRasterizer bool
	browser        raster.Config

	newDocument pdfdoc.Factory
	styles      assets.StyleLoader
	stylesheets []string
	live        *dom.Document
	markdown    *markdown.Converter
	initErr     error

	state    state
	settings settings
}

// New creates a Worker with default settings: a4 portrait in millimetres,
// no margin, jpeg images at 0.95 quality and links enabled.
func New(opts ...Option) *Worker {
	tracker := progress.New()
	w := &Worker{
		chain:       chain.New(tracker),
		tracker:     tracker,
		logger:      zap.NewNop(),
		newDocument: pdfdoc.New,
		styles:      assets.NewEmbeddedLoader(),
		markdown:    markdown.NewConverter(),
		settings:    defaultSettings(),
	}
	for _, opt := range opts {
		opt(w)
	}

	base, err := w.styles.LoadStyle(assets.DefaultStyleName)
	if err != nil && w.initErr == nil {
		w.initErr = fmt.Errorf("%w: %w", ErrInvalidOption, err)
	}
	w.live = dom.NewDocument(append([]string{base}, w.stylesheets...)...)

	if w.initErr != nil {
		w.reject("init", w.initErr)
	}
	return w
}

// Convert renders src to a PDF file at path, like a one-shot worker
// configured with opts.
func Convert(ctx context.Context, src any, path string, opts Options, workerOpts ...Option) error {
	w := New(workerOpts...)
	_, err := w.Set(opts).From(src).Save(path).Run(ctx)
	return errors.Join(err, w.Close())
}

// From queues setting the source. The kind is detected from the value
// unless given:
//
//	string        HTML markup, parsed into a <div>
//	*html.Node    an element, used as is
//	image.Image   a surface, skipping the container stage
//	*EncodedImage an encoded image, skipping the surface stages
//	[]byte        an encoded PNG, JPEG or GIF image
//
// A data URI string is read as an image with the img kind.
// The markdown kind converts a string from Markdown first.
func (w *Worker) From(src any, kind ...string) *Worker {
	k := ""
	if len(kind) > 0 {
		k = kind[0]
	}
	w.chain.Then(chain.Step{
		Name: "from",
		Do: func(ctx context.Context, prev any) (any, error) {
			return w.setSource(ctx, src, k)
		},
	})
	return w
}

// FromMarkdown queues converting Markdown to the source. Relative image
// and link paths resolve against baseDir when it is not empty.
func (w *Worker) FromMarkdown(content, baseDir string) *Worker {
	w.chain.Then(chain.Step{
		Name: "from markdown",
		Do: func(ctx context.Context, prev any) (any, error) {
			return w.markdownSource(ctx, content, baseDir)
		},
	})
	return w
}

// FromSelector queues using the first element of markup matching the CSS
// selector as the source.
func (w *Worker) FromSelector(markup, selector string) *Worker {
	w.chain.Then(chain.Step{
		Name: "from selector",
		Do: func(ctx context.Context, prev any) (any, error) {
			n, err := dom.Select(markup, selector)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrUnknownSource, err)
			}
			w.state.source = n
			return n, nil
		},
	})
	return w
}

// FromFile queues reading an HTML or Markdown file as the source. Relative
// paths inside it resolve against the file's directory.
func (w *Worker) FromFile(path string) *Worker {
	w.chain.Then(chain.Step{
		Name: "from file",
		Do: func(ctx context.Context, prev any) (any, error) {
			data, err := os.ReadFile(path) // #nosec G304 -- path is caller-provided
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrUnknownSource, err)
			}
			dir := filepath.Dir(path)
			if fileutil.SourceKind(path) == fileutil.KindMarkdown {
				return w.markdownSource(ctx, string(data), dir)
			}
			n, err := dom.ParseFragment(string(data))
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrUnknownSource, err)
			}
			if err := markdown.RewriteRelativePaths(n, dir); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrUnknownSource, err)
			}
			w.state.source = n
			return n, nil
		},
	})
	return w
}

func (w *Worker) setSource(ctx context.Context, src any, kind string) (any, error) {
	if kind == "" {
		kind = sourceKind(src)
	}
	switch kind {
	case SourceHTML, "html":
		markup, ok := src.(string)
		if !ok {
			break
		}
		n, err := dom.ParseFragment(markup)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnknownSource, err)
		}
		w.state.source = n
		return n, nil
	case SourceMarkdown:
		content, ok := src.(string)
		if !ok {
			break
		}
		return w.markdownSource(ctx, content, "")
	case SourceElement, "node":
		n, ok := src.(*html.Node)
		if !ok || n == nil {
			break
		}
		w.state.source = n
		return n, nil
	case SourceSurface, "surface":
		s, ok := src.(image.Image)
		if !ok || s == nil {
			break
		}
		w.state.surface = s
		return s, nil
	case SourceImage, "image":
		img, err := encodedSource(src)
		if err != nil {
			return nil, err
		}
		w.state.img = img
		return img, nil
	}
	return nil, fmt.Errorf("%w: %T as %q", ErrUnknownSource, src, kind)
}

func sourceKind(src any) string {
	switch src.(type) {
	case string:
		return SourceHTML
	case *html.Node:
		return SourceElement
	case *imaging.Encoded, []byte:
		return SourceImage
	case image.Image:
		return SourceSurface
	}
	return "unknown"
}

func encodedSource(src any) (*imaging.Encoded, error) {
	switch v := src.(type) {
	case *imaging.Encoded:
		if v != nil {
			return v, nil
		}
	case []byte:
		img, err := imaging.Decode(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnknownSource, err)
		}
		return img, nil
	case string:
		_, data, err := imaging.ParseDataURI(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnknownSource, err)
		}
		return encodedSource(data)
	}
	return nil, fmt.Errorf("%w: %T as image", ErrUnknownSource, src)
}

func (w *Worker) markdownSource(ctx context.Context, content, baseDir string) (any, error) {
	fragment, err := w.markdown.ToFragment(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnknownSource, err)
	}
	n, err := dom.ParseFragment(fragment)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnknownSource, err)
	}
	if err := markdown.RewriteRelativePaths(n, baseDir); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnknownSource, err)
	}
	css, err := w.styles.LoadStyle(assets.MarkdownStyleName)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOption, err)
	}
	w.live.AddStylesheet(css)
	w.state.source = n
	return n, nil
}

// Then queues fn under name.
func (w *Worker) Then(name string, fn StepFunc) *Worker {
	w.chain.Then(chain.Step{Name: name, Do: fn})
	return w
}

// ThenList queues steps in order, each tracked on its own.
func (w *Worker) ThenList(steps ...Step) *Worker {
	w.chain.Then(steps...)
	return w
}

// Catch queues a rejection handler. It only runs when an earlier step
// failed.
func (w *Worker) Catch(fn RecoverFunc) *Worker {
	w.chain.Then(chain.Step{Name: "catch", Recover: fn})
	return w
}

// Fail queues a step that rejects with msg.
func (w *Worker) Fail(msg string) *Worker {
	return w.reject("fail", fmt.Errorf("%w: %s", ErrStepFailed, msg))
}

// Listen registers fn for progress notifications right away. A nil fn
// leaves an ErrNilObserver rejection on the chain.
func (w *Worker) Listen(fn Observer) *Worker {
	if err := w.tracker.Listen(fn); err != nil {
		return w.reject("listen", err)
	}
	return w
}

// Run drains the queue and returns the last value, or the rejection no
// Catch handled.
func (w *Worker) Run(ctx context.Context) (any, error) {
	return w.chain.Run(ctx)
}

// Future drains the queue in the background.
func (w *Worker) Future(ctx context.Context) *Future {
	return w.chain.Future(ctx)
}

// Progress returns the current progress.
func (w *Worker) Progress() Progress {
	return w.tracker.Snapshot()
}

// Pending returns the number of queued steps not started yet.
func (w *Worker) Pending() int {
	return w.chain.Pending()
}

// Stack returns the names of every step queued so far.
func (w *Worker) Stack() []string {
	return w.tracker.Stack()
}

// Close detaches any overlay left attached and closes the browser the
// worker launched itself.
func (w *Worker) Close() error {
	w.state.release()

	w.rmu.Lock()
	defer w.rmu.Unlock()
	if w.rasterizer == nil || !w.ownsRasterizer {
		return nil
	}
	err := w.rasterizer.Close()
	w.rasterizer = nil
	return err
}

func (w *Worker) reject(name string, err error) *Worker {
	w.chain.Then(chain.Step{
		Name: name,
		Do: func(ctx context.Context, prev any) (any, error) {
			return nil, err
		},
	})
	return w
}

func (w *Worker) ensureRasterizer() (raster.Rasterizer, error) {
	w.rmu.Lock()
	defer w.rmu.Unlock()
	if w.rasterizer != nil {
		return w.rasterizer, nil
	}

	cfg := w.browser
	if cfg.Logger == nil {
		cfg.Logger = w.logger
	}
	b, err := raster.NewBrowser(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOption, err)
	}
	w.rasterizer, w.ownsRasterizer = b, true
	return b, nil
}
