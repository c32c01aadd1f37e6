package raster

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/alnah/go-html2pdf/internal/dom"
	"github.com/alnah/go-html2pdf/internal/imaging"
)

// Backends.
const (
	BackendRod      = "rod"
	BackendChromedp = "chromedp"
)

// DefaultTimeout bounds page loads when the context has no deadline.
const DefaultTimeout = 30 * time.Second

const targetIDPrefix = "html2pdf__target-"

// Config configures a browser-backed rasterizer.
type Config struct {
	// Backend is rod (default) or chromedp.
	Backend string
	// Timeout bounds page loads when the context has no deadline.
	Timeout time.Duration
	// BrowserBin is the Chrome binary. Defaults to $ROD_BROWSER_BIN.
	BrowserBin string
	// NoSandbox disables the Chrome sandbox. Implied in CI and containers.
	NoSandbox bool
	// RemoteURL connects to a running browser instead of launching one.
	RemoteURL string
	// Logger receives debug output. Defaults to a no-op logger.
	Logger *zap.Logger
}

// viewport is what a loaded page was laid out with.
type viewport struct {
	width  int
	height int
	scale  float64
}

// clip is a capture rectangle in document coordinates.
type clip struct {
	X, Y, Width, Height float64
}

// measurement is a node box in document coordinates.
type measurement struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Found  bool    `json:"found"`
	Links  []struct {
		Href   string  `json:"href"`
		X      float64 `json:"x"`
		Y      float64 `json:"y"`
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	} `json:"links"`
}

// session is one browser tab.
type session interface {
	load(ctx context.Context, markup string, vp viewport, timeout time.Duration) error
	measure(ctx context.Context, id string) (measurement, error)
	capture(ctx context.Context, c clip) ([]byte, error)
	close() error
}

// Compile-time interface check.
var _ Rasterizer = (*Browser)(nil)

// Browser is a Rasterizer backed by headless Chrome. The browser starts
// lazily on first use and the loaded page is reused while the document
// markup and viewport stay the same.
type Browser struct {
	cfg    Config
	logger *zap.Logger
	open   func(Config) (session, error)

	mu       sync.Mutex
	sess     session
	markup   string
	viewport viewport
}

// NewBrowser creates a browser rasterizer. No browser is launched until
// the first call.
func NewBrowser(cfg Config) (*Browser, error) {
	if cfg.Backend == "" {
		cfg.Backend = BackendRod
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.BrowserBin == "" {
		cfg.BrowserBin = os.Getenv("ROD_BROWSER_BIN")
	}
	if os.Getenv("CI") == "true" || os.Getenv("ROD_NO_SANDBOX") == "1" || cfg.BrowserBin != "" {
		cfg.NoSandbox = true
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	var open func(Config) (session, error)
	switch cfg.Backend {
	case BackendRod:
		open = openRod
	case BackendChromedp:
		open = openChromedp
	default:
		return nil, fmt.Errorf("%w: %q (expected %s, %s)", ErrUnknownBackend, cfg.Backend, BackendRod, BackendChromedp)
	}

	return &Browser{cfg: cfg, logger: cfg.Logger, open: open}, nil
}

// Rasterize captures node. The capture always has the requested size;
// areas below the node are filled with the background color.
func (b *Browser) Rasterize(ctx context.Context, node *html.Node, opts Options) (image.Image, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	box, vp, err := b.prepare(ctx, node, opts)
	if err != nil {
		return nil, err
	}

	width := float64(opts.Width)
	if width <= 0 {
		width = box.Width
	}
	height := float64(opts.Height)
	if height <= 0 {
		height = box.Height
	}

	outW := int(math.Ceil(width * vp.scale))
	outH := int(math.Ceil(height * vp.scale))
	visible := math.Min(height, box.Height-float64(opts.Y))

	if visible <= 0 || width <= 0 {
		return pad(nil, outW, outH, opts.BackgroundColor), nil
	}

	c := clip{
		X:      box.X + float64(opts.X),
		Y:      box.Y + float64(opts.Y),
		Width:  width,
		Height: visible,
	}
	b.logger.Debug("capturing",
		zap.Float64("x", c.X), zap.Float64("y", c.Y),
		zap.Float64("width", c.Width), zap.Float64("height", c.Height))

	data, err := b.sess.capture(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCapture, err)
	}
	img, err := imaging.DecodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCapture, err)
	}
	return pad(img, outW, outH, opts.BackgroundColor), nil
}

// Measure reports the box of node and the anchors inside it.
func (b *Browser) Measure(ctx context.Context, node *html.Node, opts Options) (Layout, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	box, _, err := b.prepare(ctx, node, opts)
	if err != nil {
		return Layout{}, err
	}

	layout := Layout{Width: box.Width, Height: box.Height}
	for _, l := range box.Links {
		layout.Links = append(layout.Links, Link{Href: l.Href, X: l.X, Y: l.Y, Width: l.Width, Height: l.Height})
	}
	return layout, nil
}

// Close shuts the browser down.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sess == nil {
		return nil
	}
	err := b.sess.close()
	b.sess = nil
	b.markup = ""
	return err
}

// prepare loads the document node belongs to and measures node.
func (b *Browser) prepare(ctx context.Context, node *html.Node, opts Options) (measurement, viewport, error) {
	if err := ctx.Err(); err != nil {
		return measurement{}, viewport{}, err
	}

	id := dom.EnsureID(node, targetIDPrefix)
	markup, err := dom.Render(dom.Root(node))
	if err != nil {
		return measurement{}, viewport{}, err
	}

	vp := viewport{width: opts.WindowWidth, height: opts.WindowHeight, scale: opts.Scale}
	if vp.width <= 0 {
		vp.width = DefaultWindowWidth
	}
	if vp.height <= 0 {
		vp.height = DefaultWindowHeight
	}
	if vp.scale <= 0 {
		vp.scale = 1
	}

	if err := b.ensureSession(); err != nil {
		return measurement{}, viewport{}, err
	}

	if markup != b.markup || vp != b.viewport {
		timeout := b.cfg.Timeout
		if deadline, ok := ctx.Deadline(); ok {
			timeout = time.Until(deadline)
			if timeout <= 0 {
				return measurement{}, viewport{}, context.DeadlineExceeded
			}
		}
		b.logger.Debug("loading document",
			zap.Int("bytes", len(markup)),
			zap.Int("viewportWidth", vp.width),
			zap.Int("viewportHeight", vp.height),
			zap.Float64("scale", vp.scale))
		if err := b.sess.load(ctx, markup, vp, timeout); err != nil {
			b.markup = ""
			return measurement{}, viewport{}, fmt.Errorf("%w: %v", ErrPageLoad, err)
		}
		b.markup, b.viewport = markup, vp
	}

	box, err := b.sess.measure(ctx, id)
	if err != nil {
		return measurement{}, viewport{}, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	if !box.Found {
		return measurement{}, viewport{}, fmt.Errorf("%w: #%s", ErrTargetNotFound, id)
	}
	return box, vp, nil
}

func (b *Browser) ensureSession() error {
	if b.sess != nil {
		return nil
	}
	sess, err := b.open(b.cfg)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	b.sess = sess
	return nil
}

// pad draws img at the top-left of a w by h canvas filled with bg.
// A nil img yields a blank canvas.
func pad(img image.Image, w, h int, bg string) image.Image {
	if img != nil {
		if b := img.Bounds(); b.Dx() == w && b.Dy() == h {
			return img
		}
	}
	canvas := image.NewRGBA(image.Rect(0, 0, max(w, 1), max(h, 1)))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: parseColor(bg)}, image.Point{}, draw.Src)
	if img != nil {
		draw.Draw(canvas, img.Bounds().Sub(img.Bounds().Min), img, img.Bounds().Min, draw.Over)
	}
	return canvas
}

var namedColors = map[string]color.Color{
	"":            color.White,
	"white":       color.White,
	"black":       color.Black,
	"transparent": color.Transparent,
}

// parseColor understands the named colors above and #rgb or #rrggbb.
// Anything else is white.
func parseColor(s string) color.Color {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[s]; ok {
		return c
	}
	hex, ok := strings.CutPrefix(s, "#")
	if !ok {
		return color.White
	}
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.White
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.White
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}
