// Package geometry computes page dimensions, margins and the inner content
// box in document units and in CSS pixels.
package geometry

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
)

// Sentinel errors for geometry computation.
var (
	ErrInvalidMargin      = errors.New("invalid margin")
	ErrUnknownFormat      = errors.New("unknown page format")
	ErrUnknownUnit        = errors.New("unknown unit")
	ErrInvalidOrientation = errors.New("invalid orientation")
)

// Defaults applied when Options leave a field empty.
const (
	DefaultFormat      = "a4"
	DefaultUnit        = "mm"
	DefaultOrientation = Portrait
)

// Orientations.
const (
	Portrait  = "portrait"
	Landscape = "landscape"
)

// pointsPerUnit maps a unit to the number of PDF points in one unit.
var pointsPerUnit = map[string]float64{
	"pt": 1,
	"mm": 72 / 25.4,
	"cm": 72 / 2.54,
	"in": 72,
}

// formats holds paper sizes in points, portrait.
var formats = map[string][2]float64{
	"a0":      {2383.94, 3370.39},
	"a1":      {1683.78, 2383.94},
	"a2":      {1190.55, 1683.78},
	"a3":      {841.89, 1190.55},
	"a4":      {595.28, 841.89},
	"a5":      {419.53, 595.28},
	"a6":      {297.64, 419.53},
	"letter":  {612, 792},
	"legal":   {612, 1008},
	"tabloid": {792, 1224},
	"ledger":  {1224, 792},
}

// Options describe the outer page.
type Options struct {
	// Format is a named paper size. Ignored when Size is set.
	Format string `mapstructure:"format" yaml:"format"`
	// Size is an explicit [width, height] in Unit.
	Size []float64 `mapstructure:"size" yaml:"size"`
	// Unit is one of pt, mm, cm, in.
	Unit string `mapstructure:"unit" yaml:"unit"`
	// Orientation is portrait or landscape.
	Orientation string `mapstructure:"orientation" yaml:"orientation"`
}

// Margin is a normalized top, right, bottom, left margin in document units.
type Margin [4]float64

func (m Margin) Top() float64    { return m[0] }
func (m Margin) Right() float64  { return m[1] }
func (m Margin) Bottom() float64 { return m[2] }
func (m Margin) Left() float64   { return m[3] }

// Inner is the content box inside the margins.
type Inner struct {
	Width  float64
	Height float64

	// PxWidth and PxHeight are floored CSS pixel sizes used to size
	// rasterization; the Exact fields keep the unrounded values.
	PxWidth       int
	PxHeight      int
	ExactPxWidth  float64
	ExactPxHeight float64

	// Ratio is Height / Width.
	Ratio float64
}

// Page is the computed geometry of one page.
type Page struct {
	Width  float64
	Height float64
	Unit   string
	// K is the number of PDF points per document unit.
	K      float64
	Margin Margin
	Inner  Inner
}

// Orientation reports the orientation implied by the outer size.
func (p *Page) Orientation() string {
	if p.Width > p.Height {
		return Landscape
	}
	return Portrait
}

// Compute derives the page geometry for opts and margin.
func Compute(opts Options, margin Margin) (*Page, error) {
	unit := strings.ToLower(strings.TrimSpace(opts.Unit))
	if unit == "" {
		unit = DefaultUnit
	}
	k, ok := pointsPerUnit[unit]
	if !ok {
		return nil, fmt.Errorf("%w: %q (expected pt, mm, cm, in)", ErrUnknownUnit, opts.Unit)
	}

	width, height, err := outerSize(opts, k)
	if err != nil {
		return nil, err
	}

	orientation := strings.ToLower(strings.TrimSpace(opts.Orientation))
	switch orientation {
	case "", "p", Portrait:
		if width > height {
			width, height = height, width
		}
	case "l", Landscape:
		if height > width {
			width, height = height, width
		}
	default:
		return nil, fmt.Errorf("%w: %q (expected portrait, landscape)", ErrInvalidOrientation, opts.Orientation)
	}

	return WithMargin(&Page{Width: width, Height: height, Unit: unit, K: k}, margin)
}

// WithMargin returns a copy of p with margin applied and the inner box
// recomputed from the outer size.
func WithMargin(p *Page, margin Margin) (*Page, error) {
	for _, v := range margin {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMargin, [4]float64(margin))
		}
	}

	innerW := p.Width - margin[1] - margin[3]
	innerH := p.Height - margin[0] - margin[2]
	if innerW <= 0 || innerH <= 0 {
		return nil, fmt.Errorf("%w: %v leaves no content area on a %gx%g%s page",
			ErrInvalidMargin, [4]float64(margin), p.Width, p.Height, p.Unit)
	}

	page := *p
	page.Margin = margin
	page.Inner = Inner{
		Width:         innerW,
		Height:        innerH,
		PxWidth:       ToPx(innerW, p.K),
		PxHeight:      ToPx(innerH, p.K),
		ExactPxWidth:  ToExactPx(innerW, p.K),
		ExactPxHeight: ToExactPx(innerH, p.K),
		Ratio:         innerH / innerW,
	}
	return &page, nil
}

func outerSize(opts Options, k float64) (float64, float64, error) {
	if len(opts.Size) > 0 {
		if len(opts.Size) != 2 || opts.Size[0] <= 0 || opts.Size[1] <= 0 {
			return 0, 0, fmt.Errorf("%w: size %v must be two positive numbers", ErrUnknownFormat, opts.Size)
		}
		return opts.Size[0], opts.Size[1], nil
	}

	name := strings.ToLower(strings.TrimSpace(opts.Format))
	if name == "" {
		name = DefaultFormat
	}
	pt, ok := formats[name]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrUnknownFormat, opts.Format)
	}
	return pt[0] / k, pt[1] / k, nil
}

// ToExactPx converts a length in document units to CSS pixels.
func ToExactPx(v, k float64) float64 {
	return v * k / 72 * 96
}

// ToPx converts a length in document units to whole CSS pixels, rounding down.
func ToPx(v, k float64) int {
	return int(math.Floor(ToExactPx(v, k)))
}

// IsFormat reports whether name is a known paper size.
func IsFormat(name string) bool {
	_, ok := formats[strings.ToLower(name)]
	return ok
}

// NormalizeMargin accepts a scalar, a two-element [vertical, horizontal]
// pair or a four-element [top, right, bottom, left] list. Every other shape,
// including non-numeric elements, is ErrInvalidMargin.
func NormalizeMargin(v any) (Margin, error) {
	if m, ok := v.(Margin); ok {
		return m, nil
	}
	if f, ok := toFloat(v); ok {
		return Margin{f, f, f, f}, nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return Margin{}, fmt.Errorf("%w: %v (expected number, [v, h] or [t, r, b, l])", ErrInvalidMargin, v)
	}

	values := make([]float64, rv.Len())
	for i := range values {
		f, ok := toFloat(rv.Index(i).Interface())
		if !ok {
			return Margin{}, fmt.Errorf("%w: element %d of %v is not a number", ErrInvalidMargin, i, v)
		}
		values[i] = f
	}

	switch len(values) {
	case 2:
		return Margin{values[0], values[1], values[0], values[1]}, nil
	case 4:
		return Margin{values[0], values[1], values[2], values[3]}, nil
	default:
		return Margin{}, fmt.Errorf("%w: %v (expected number, [v, h] or [t, r, b, l])", ErrInvalidMargin, v)
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
