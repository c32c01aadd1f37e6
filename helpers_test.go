package html2pdf

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"sync"
	"testing"

	"golang.org/x/net/html"

	"github.com/alnah/go-html2pdf/internal/imaging"
	"github.com/alnah/go-html2pdf/internal/raster"
)

// ---------------------------------------------------------------------------
// Test Helpers
// ---------------------------------------------------------------------------

// Compile-time interface checks.
var (
	_ Rasterizer     = (*fakeRasterizer)(nil)
	_ DocumentWriter = (*fakeDocument)(nil)
)

// fakeRasterizer reports a fixed content height and returns small solid
// captures, recording the options of every call.
type fakeRasterizer struct {
	mu        sync.Mutex
	height    float64
	links     []raster.Link
	err       error
	measured  []raster.Options
	offsets   []int
	attached  []bool
	closed    int
	liveCheck func(*html.Node) bool
}

func (f *fakeRasterizer) Rasterize(_ context.Context, node *html.Node, opts raster.Options) (image.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.liveCheck != nil {
		f.attached = append(f.attached, f.liveCheck(node))
	}
	if f.err != nil {
		return nil, f.err
	}
	f.offsets = append(f.offsets, opts.Y)
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := range 8 {
		for y := range 8 {
			img.Set(x, y, color.Gray{Y: 200})
		}
	}
	return img, nil
}

func (f *fakeRasterizer) Measure(_ context.Context, _ *html.Node, opts raster.Options) (raster.Layout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return raster.Layout{}, f.err
	}
	f.measured = append(f.measured, opts)
	return raster.Layout{Width: float64(opts.Width), Height: f.height, Links: f.links}, nil
}

func (f *fakeRasterizer) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeRasterizer) captures() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.offsets...)
}

// fakeLink is one AddLink call.
type fakeLink struct {
	page                int
	x, y, width, height float64
	url                 string
}

// fakeImage is one AddImage call.
type fakeImage struct {
	page                int
	x, y, width, height float64
}

// fakeDocument records the composition calls of a Writer.
type fakeDocument struct {
	mu     sync.Mutex
	opts   DocumentOptions
	pages  int
	images []fakeImage
	links  []fakeLink
	props  Properties
	saved  string
}

func newFakeFactory() (DocumentFactory, func() *fakeDocument) {
	var (
		mu   sync.Mutex
		last *fakeDocument
	)
	factory := func(opts DocumentOptions) (DocumentWriter, error) {
		mu.Lock()
		defer mu.Unlock()
		last = &fakeDocument{opts: opts}
		return last, nil
	}
	get := func() *fakeDocument {
		mu.Lock()
		defer mu.Unlock()
		return last
	}
	return factory, get
}

func (d *fakeDocument) AddPage() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pages++
	return nil
}

func (d *fakeDocument) AddImage(_ *imaging.Encoded, x, y, w, h float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.images = append(d.images, fakeImage{page: d.pages, x: x, y: y, width: w, height: h})
	return nil
}

func (d *fakeDocument) AddLink(x, y, w, h float64, url string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.links = append(d.links, fakeLink{page: d.pages, x: x, y: y, width: w, height: h, url: url})
}

func (d *fakeDocument) SetProperties(p Properties) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.props = p
}

func (d *fakeDocument) PageCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pages
}

func (d *fakeDocument) Output() ([]byte, error) {
	return []byte("%PDF-fake"), nil
}

func (d *fakeDocument) Save(path string) error {
	d.mu.Lock()
	d.saved = path
	d.mu.Unlock()
	return os.WriteFile(path, []byte("%PDF-fake"), 0o644)
}

// newTestWorker returns a worker wired to fakes.
func newTestWorker(t *testing.T, r *fakeRasterizer, opts ...Option) (*Worker, func() *fakeDocument) {
	t.Helper()

	factory, doc := newFakeFactory()
	w := New(append([]Option{WithRasterizer(r), WithDocumentFactory(factory)}, opts...)...)
	t.Cleanup(func() { _ = w.Close() })
	return w, doc
}

// pngBytes encodes a small opaque PNG.
func pngBytes(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	for x := range 4 {
		for y := range 3 {
			img.Set(x, y, color.RGBA{R: 10, G: 20, B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}
