package raster

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Compile-time interface check.
var _ session = (*chromedpSession)(nil)

// chromedpSession drives one tab through the Chrome DevTools Protocol.
type chromedpSession struct {
	allocCancel context.CancelFunc
	tab         context.Context
	tabCancel   context.CancelFunc
	logger      *zap.Logger
}

func openChromedp(cfg Config) (session, error) {
	s := &chromedpSession{logger: cfg.Logger}

	var allocCtx context.Context
	if cfg.RemoteURL != "" {
		allocCtx, s.allocCancel = chromedp.NewRemoteAllocator(context.Background(), cfg.RemoteURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("font-render-hinting", "none"),
			chromedp.Flag("hide-scrollbars", true),
		)
		if cfg.BrowserBin != "" {
			opts = append(opts, chromedp.ExecPath(cfg.BrowserBin))
		}
		if cfg.NoSandbox {
			opts = append(opts, chromedp.NoSandbox)
		}
		allocCtx, s.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	}

	s.tab, s.tabCancel = chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			s.logger.Debug(fmt.Sprintf(format, args...))
		}),
	)

	// The first Run starts the browser.
	if err := chromedp.Run(s.tab, chromedp.Navigate("about:blank")); err != nil {
		_ = s.close()
		return nil, err
	}
	return s, nil
}

// run executes actions on the tab, cancelled by either ctx or the tab.
func (s *chromedpSession) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.tab)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (s *chromedpSession) load(ctx context.Context, markup string, vp viewport, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return s.run(ctx,
		emulation.SetDeviceMetricsOverride(int64(vp.width), int64(vp.height), vp.scale, false),
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, markup).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

func (s *chromedpSession) measure(ctx context.Context, id string) (measurement, error) {
	var raw string
	if err := s.run(ctx, chromedp.Evaluate(measureExpression(id), &raw)); err != nil {
		return measurement{}, err
	}
	return parseMeasurement(raw)
}

func (s *chromedpSession) capture(ctx context.Context, c clip) ([]byte, error) {
	var data []byte
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		data, err = page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormatPng).
			WithClip(&page.Viewport{X: c.X, Y: c.Y, Width: c.Width, Height: c.Height, Scale: 1}).
			WithFromSurface(true).
			WithCaptureBeyondViewport(true).
			Do(ctx)
		return err
	}))
	return data, err
}

func (s *chromedpSession) close() error {
	if s.tabCancel != nil {
		s.tabCancel()
		s.tabCancel = nil
	}
	if s.allocCancel != nil {
		s.allocCancel()
		s.allocCancel = nil
	}
	return nil
}
