package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	html2pdf "github.com/alnah/go-html2pdf"
	"github.com/alnah/go-html2pdf/internal/fileutil"
	"github.com/alnah/go-html2pdf/internal/pdfdoc"
)

// dirPermissions is rwxr-x---.
const dirPermissions = 0o750

// ConversionResult holds the outcome of a single conversion.
type ConversionResult struct {
	InputPath  string
	OutputPath string
	Pages      int // verbose runs only
	Err        error
	Duration   time.Duration
}

// ResultSummary holds the count of succeeded and failed conversions.
type ResultSummary struct {
	Succeeded int
	Failed    int
}

// convertBatch converts files with up to pool.Size() goroutines, each
// holding one rasterizer for its whole share of the jobs. Results keep
// the order of files.
func convertBatch(ctx context.Context, pool Pool, files []FileToConvert, params *conversionParams) []ConversionResult {
	if len(files) == 0 {
		return nil
	}

	concurrency := min(pool.Size(), len(files))
	results := make([]ConversionResult, len(files))
	jobs := make(chan int, len(files))
	var wg sync.WaitGroup

	for range concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()

			r, err := pool.Acquire()
			if err != nil {
				for idx := range jobs {
					results[idx] = ConversionResult{InputPath: files[idx].InputPath, Err: err}
				}
				return
			}
			defer pool.Release(r)

			for idx := range jobs {
				if ctx.Err() != nil {
					results[idx] = ConversionResult{InputPath: files[idx].InputPath, Err: ctx.Err()}
					continue
				}
				results[idx] = convertFile(ctx, r, files[idx], params)
			}
		}()
	}

	for i := range files {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
	return results
}

// convertFile runs one source through a worker bound to r and saves the
// PDF.
func convertFile(ctx context.Context, r html2pdf.Rasterizer, f FileToConvert, params *conversionParams) ConversionResult {
	start := time.Now()
	result := ConversionResult{InputPath: f.InputPath, OutputPath: f.OutputPath}
	done := func(err error) ConversionResult {
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}

	if err := os.MkdirAll(filepath.Dir(f.OutputPath), dirPermissions); err != nil {
		return done(fmt.Errorf("%w: %w", ErrWritePDF, err))
	}

	logger := params.logger.With(zap.String("input", f.InputPath))
	opts := []html2pdf.Option{html2pdf.WithRasterizer(r), html2pdf.WithLogger(logger)}
	if params.assetPath != "" {
		opts = append(opts, html2pdf.WithAssetPath(params.assetPath))
	}
	w := html2pdf.New(opts...)
	defer func() { _ = w.Close() }()

	if params.verbose {
		w.Listen(func(p html2pdf.Progress) {
			logger.Debug("progress",
				zap.String("stage", p.Stage),
				zap.Int("completed", p.Completed),
				zap.Int("total", p.Total))
		})
	}

	w.Set(params.settings)
	if params.selector != "" && fileutil.SourceKind(f.InputPath) == fileutil.KindHTML {
		markup, err := os.ReadFile(f.InputPath) // #nosec G304 -- discovered path
		if err != nil {
			return done(fmt.Errorf("%w: %w", ErrReadSource, err))
		}
		w.FromSelector(string(markup), params.selector)
	} else {
		w.FromFile(f.InputPath)
	}

	if _, err := w.Save(f.OutputPath).Run(ctx); err != nil {
		return done(err)
	}
	if params.verbose {
		result.Pages = countPages(f.OutputPath, logger)
	}
	return done(nil)
}

// countPages reads back a written PDF. Failures are logged, not returned:
// the file is already saved.
func countPages(path string, logger *zap.Logger) int {
	data, err := os.ReadFile(path) // #nosec G304 -- path written by this process
	if err != nil {
		logger.Warn("reading PDF back", zap.Error(err))
		return 0
	}
	info, err := pdfdoc.Inspect(data)
	if err != nil {
		logger.Warn("inspecting PDF", zap.Error(err))
		return 0
	}
	return info.Pages
}

// countResults tallies succeeded and failed conversions.
func countResults(results []ConversionResult) ResultSummary {
	var summary ResultSummary
	for _, r := range results {
		if r.Err != nil {
			summary.Failed++
		} else {
			summary.Succeeded++
		}
	}
	return summary
}

// printResultsWithWriter reports each result and returns the failure count.
// Failures always go to stderr; successes are silenced by quiet.
func printResultsWithWriter(results []ConversionResult, quiet, verbose bool, env *Environment) int {
	summary := countResults(results)

	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(env.Stderr, "FAILED %s: %v%s\n", r.InputPath, r.Err, hintFor(r.Err))
			continue
		}
		if quiet {
			continue
		}
		if verbose {
			fmt.Fprintf(env.Stdout, "%s -> %s (%d page(s), %v)\n", r.InputPath, r.OutputPath, r.Pages, r.Duration.Round(time.Millisecond))
		} else {
			fmt.Fprintf(env.Stdout, "Created %s\n", r.OutputPath)
		}
	}

	if !quiet && len(results) > 1 {
		fmt.Fprintf(env.Stdout, "\n%d succeeded, %d failed\n", summary.Succeeded, summary.Failed)
	}
	return summary.Failed
}
