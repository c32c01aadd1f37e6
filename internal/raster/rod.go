package raster

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/alnah/go-html2pdf/internal/fileutil"
	"github.com/alnah/go-html2pdf/internal/process"
)

// Compile-time interface check.
var _ session = (*rodSession)(nil)

// rodSession drives one tab through go-rod. Rod downloads Chromium on
// first run if no browser binary is configured.
type rodSession struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	cleanup  func()
	logger   *zap.Logger
}

func openRod(cfg Config) (session, error) {
	s := &rodSession{logger: cfg.Logger}

	controlURL := cfg.RemoteURL
	if controlURL == "" {
		l := launcher.New()
		if cfg.BrowserBin != "" {
			l = l.Bin(cfg.BrowserBin)
		}
		if cfg.NoSandbox {
			l = l.NoSandbox(true)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, err
		}
		s.launcher = l
		controlURL = u
	}

	s.browser = rod.New().ControlURL(controlURL)
	if err := s.browser.Connect(); err != nil {
		s.kill()
		return nil, err
	}

	page, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = s.close()
		return nil, err
	}
	s.page = page
	return s, nil
}

// load writes markup to a temporary file and navigates to it, so relative
// file references resolve the same way they would from disk.
func (s *rodSession) load(ctx context.Context, markup string, vp viewport, timeout time.Duration) error {
	path, cleanup, err := fileutil.WriteTempFile(markup, "html")
	if err != nil {
		return err
	}
	if s.cleanup != nil {
		s.cleanup()
	}
	s.cleanup = cleanup

	page := s.page.Context(ctx)
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             vp.width,
		Height:            vp.height,
		DeviceScaleFactor: vp.scale,
	}); err != nil {
		return fmt.Errorf("setting viewport: %w", err)
	}
	if err := page.Navigate("file://" + path); err != nil {
		return fmt.Errorf("navigating: %w", err)
	}
	if err := page.Timeout(timeout).WaitLoad(); err != nil {
		return fmt.Errorf("waiting for load: %w", err)
	}
	return nil
}

func (s *rodSession) measure(ctx context.Context, id string) (measurement, error) {
	res, err := s.page.Context(ctx).Eval(measureFunc, id)
	if err != nil {
		return measurement{}, err
	}
	return parseMeasurement(res.Value.Str())
}

func (s *rodSession) capture(ctx context.Context, c clip) ([]byte, error) {
	return s.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
		Clip: &proto.PageViewport{
			X:      c.X,
			Y:      c.Y,
			Width:  c.Width,
			Height: c.Height,
			Scale:  1,
		},
		FromSurface:           true,
		CaptureBeyondViewport: true,
	})
}

func (s *rodSession) close() error {
	if s.cleanup != nil {
		s.cleanup()
		s.cleanup = nil
	}
	var err error
	if s.browser != nil {
		err = s.browser.Close()
		s.browser = nil
	}
	s.kill()
	return err
}

// kill makes sure the launched Chrome and its children are gone.
func (s *rodSession) kill() {
	if s.launcher == nil {
		return
	}
	if pid := s.launcher.PID(); pid > 0 {
		process.KillProcessGroup(pid)
	}
	s.launcher.Kill()
	s.logger.Debug("browser process stopped")
	s.launcher = nil
}
