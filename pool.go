package html2pdf

import (
	"errors"
	"runtime"
	"sync"
)

// Pool sizing constants.
const (
	// MinPoolSize ensures at least one browser is available.
	MinPoolSize = 1

	// MaxPoolSize caps browser instances to limit memory (~200MB each).
	MaxPoolSize = 8

	// cpuDivisor leaves headroom for Chrome child processes.
	cpuDivisor = 2
)

// RasterizerPool hands out browser rasterizers for parallel conversions.
// Each rasterizer owns one browser; they are created lazily on Acquire.
type RasterizerPool struct {
	size    int
	cfg     BrowserConfig
	newFunc func(BrowserConfig) (Rasterizer, error)

	mu      sync.Mutex
	all     []Rasterizer
	sem     chan Rasterizer
	created int
	closed  bool
}

// ErrPoolClosed is returned by Acquire after Close.
var ErrPoolClosed = errors.New("rasterizer pool closed")

// NewRasterizerPool creates a pool of up to n browsers configured by cfg.
// The configuration is checked once here so Acquire only fails on a
// closed pool.
func NewRasterizerPool(n int, cfg BrowserConfig) (*RasterizerPool, error) {
	if n < 1 {
		n = 1
	}
	if _, err := NewBrowserRasterizer(cfg); err != nil {
		return nil, err
	}
	return &RasterizerPool{
		size:    n,
		cfg:     cfg,
		newFunc: NewBrowserRasterizer,
		all:     make([]Rasterizer, 0, n),
		sem:     make(chan Rasterizer, n),
	}, nil
}

// Acquire returns an idle rasterizer, creating one while under capacity.
// Blocks when all are in use.
func (p *RasterizerPool) Acquire() (Rasterizer, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	select {
	case r := <-p.sem:
		p.mu.Unlock()
		return r, nil
	default:
	}
	if p.created < p.size {
		p.created++
		p.mu.Unlock()

		r, err := p.newFunc(p.cfg)
		p.mu.Lock()
		defer p.mu.Unlock()
		if err != nil {
			p.created--
			return nil, err
		}
		if p.closed {
			// Close ran during the launch and never saw this browser.
			_ = r.Close()
			return nil, ErrPoolClosed
		}
		p.all = append(p.all, r)
		return r, nil
	}
	p.mu.Unlock()

	r, ok := <-p.sem
	if !ok {
		return nil, ErrPoolClosed
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrPoolClosed
	}
	return r, nil
}

// Release returns r to the pool. Releasing after Close is a no-op.
// The channel holds one slot per created rasterizer, so the send under
// the lock never blocks; an extra release of the same rasterizer is dropped.
func (p *RasterizerPool) Release(r Rasterizer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	select {
	case p.sem <- r:
	default:
	}
}

// Close shuts every browser down and joins their errors.
func (p *RasterizerPool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.sem)
	all := p.all
	p.mu.Unlock()

	var errs []error
	for _, r := range all {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Size returns the pool capacity.
func (p *RasterizerPool) Size() int {
	return p.size
}

// ResolvePoolSize picks the pool size: workers when positive, otherwise
// half of GOMAXPROCS clamped to [MinPoolSize, MaxPoolSize].
func ResolvePoolSize(workers int) int {
	if workers > 0 {
		return workers
	}

	n := runtime.GOMAXPROCS(0) / cpuDivisor
	if n < MinPoolSize {
		return MinPoolSize
	}
	if n > MaxPoolSize {
		return MaxPoolSize
	}
	return n
}
