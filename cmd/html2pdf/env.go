package main

import (
	"io"
	"os"

	html2pdf "github.com/alnah/go-html2pdf"
)

// Pool hands out rasterizers to conversion goroutines.
type Pool interface {
	Acquire() (html2pdf.Rasterizer, error)
	Release(html2pdf.Rasterizer)
	Size() int
	Close() error
}

// Compile-time interface implementation check.
var _ Pool = (*html2pdf.RasterizerPool)(nil)

// Environment holds the process dependencies commands read and write
// through, so tests can swap them.
type Environment struct {
	Stdout  io.Writer
	Stderr  io.Writer
	Getenv  func(string) string
	Environ func() []string
	NewPool func(size int, cfg html2pdf.BrowserConfig) (Pool, error)
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Getenv:  os.Getenv,
		Environ: os.Environ,
		NewPool: newBrowserPool,
	}
}

func newBrowserPool(size int, cfg html2pdf.BrowserConfig) (Pool, error) {
	p, err := html2pdf.NewRasterizerPool(size, cfg)
	if err != nil {
		return nil, err
	}
	return p, nil
}
