// Package raster turns HTML trees into pixels.
//
// A Rasterizer lays out the document a node belongs to and captures the
// node's box, optionally offset and clipped, at a device scale. The
// browser-backed implementation drives headless Chrome through go-rod or
// chromedp.
package raster

import (
	"context"
	"errors"
	"image"

	"golang.org/x/net/html"
)

// Sentinel errors for rasterization.
var (
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageLoad       = errors.New("failed to load page")
	ErrCapture        = errors.New("failed to capture screenshot")
	ErrTargetNotFound = errors.New("target element not found")
	ErrUnknownBackend = errors.New("unknown rasterizer backend")
)

// Options control one capture. Lengths are CSS pixels.
type Options struct {
	// X and Y offset the capture from the top-left corner of the node.
	X int
	Y int
	// Width and Height size the capture. Zero means the node's box.
	Width  int
	Height int
	// WindowWidth and WindowHeight size the layout viewport.
	// Zero means DefaultWindowWidth by DefaultWindowHeight.
	WindowWidth  int
	WindowHeight int
	// Scale is the device pixel ratio. Zero means 1.
	Scale float64
	// BackgroundColor fills capture areas the node does not cover.
	BackgroundColor string
	// Extra carries backend-specific settings.
	Extra map[string]any
}

// Default viewport when Options leave it unset.
const (
	DefaultWindowWidth  = 1024
	DefaultWindowHeight = 768
)

// Link is an anchor inside a measured node, relative to the node's
// top-left corner.
type Link struct {
	Href   string
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Layout is the measured box of a node.
type Layout struct {
	Width  float64
	Height float64
	Links  []Link
}

// Rasterizer renders nodes to images.
type Rasterizer interface {
	// Rasterize captures node with opts.
	Rasterize(ctx context.Context, node *html.Node, opts Options) (image.Image, error)
	// Measure lays out node with opts and reports its box and links.
	Measure(ctx context.Context, node *html.Node, opts Options) (Layout, error)
	// Close releases the rasterizer's resources.
	Close() error
}
