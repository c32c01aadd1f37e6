package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"golang.org/x/net/html"

	html2pdf "github.com/alnah/go-html2pdf"
	"github.com/alnah/go-html2pdf/internal/raster"
)

// ---------------------------------------------------------------------------
// Test Helpers
// ---------------------------------------------------------------------------

// Compile-time interface checks.
var (
	_ html2pdf.Rasterizer = (*fakeRasterizer)(nil)
	_ Pool                = (*fakePool)(nil)
)

// fakeRasterizer lays every node out at a fixed height and returns small
// solid captures.
type fakeRasterizer struct {
	height float64
	err    error
}

func (f *fakeRasterizer) Rasterize(_ context.Context, _ *html.Node, _ raster.Options) (image.Image, error) {
	if f.err != nil {
		return nil, f.err
	}
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := range 8 {
		for y := range 8 {
			img.Set(x, y, color.Gray{Y: 200})
		}
	}
	return img, nil
}

func (f *fakeRasterizer) Measure(_ context.Context, _ *html.Node, opts raster.Options) (raster.Layout, error) {
	if f.err != nil {
		return raster.Layout{}, f.err
	}
	return raster.Layout{Width: float64(opts.Width), Height: f.height}, nil
}

func (f *fakeRasterizer) Close() error { return nil }

// fakePool hands out one shared fakeRasterizer per slot.
type fakePool struct {
	mu         sync.Mutex
	size       int
	rasterizer *fakeRasterizer
	acquireErr error
	acquired   int
	released   int
	closed     bool
	cfg        html2pdf.BrowserConfig
}

func (p *fakePool) Acquire() (html2pdf.Rasterizer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.acquireErr != nil {
		return nil, p.acquireErr
	}
	p.acquired++
	return p.rasterizer, nil
}

func (p *fakePool) Release(html2pdf.Rasterizer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.released++
}

func (p *fakePool) Size() int { return p.size }

func (p *fakePool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// testEnv is an Environment writing to buffers, with a fixed variable set
// and a fake pool factory.
type testEnv struct {
	*Environment
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	vars   map[string]string
	pool   *fakePool
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	te := &testEnv{
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
		vars:   map[string]string{},
		pool:   &fakePool{rasterizer: &fakeRasterizer{height: 10}},
	}
	te.Environment = &Environment{
		Stdout: te.stdout,
		Stderr: te.stderr,
		Getenv: func(k string) string { return te.vars[k] },
		Environ: func() []string {
			out := make([]string, 0, len(te.vars))
			for k, v := range te.vars {
				out = append(out, k+"="+v)
			}
			return out
		},
		NewPool: func(size int, cfg html2pdf.BrowserConfig) (Pool, error) {
			te.pool.size = size
			te.pool.cfg = cfg
			return te.pool, nil
		},
	}
	return te
}

// writeFile creates dir/name with content, making parent directories.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}
