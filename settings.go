package html2pdf

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/go-viper/mapstructure/v2"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/alnah/go-html2pdf/internal/chain"
	"github.com/alnah/go-html2pdf/internal/geometry"
	"github.com/alnah/go-html2pdf/internal/imaging"
	"github.com/alnah/go-html2pdf/internal/pdfdoc"
)

// Options maps setting or state names to values, as accepted by Set.
type Options map[string]any

// Re-exported collaborator types.
type (
	ImageOptions    = imaging.Options
	DocumentOptions = pdfdoc.Options
	Properties      = pdfdoc.Properties
	Margin          = geometry.Margin
	PageSize        = geometry.Page
	EncodedImage    = imaging.Encoded
)

// RendererOptions are passed to the rasterizer for every capture.
type RendererOptions struct {
	// Scale is the device pixel ratio of captures.
	Scale float64 `mapstructure:"scale" yaml:"scale"`
	// BackgroundColor fills capture areas the content does not cover.
	BackgroundColor string `mapstructure:"backgroundColor" yaml:"backgroundColor"`
	// JavaScriptEnabled keeps <script> elements when cloning the source.
	JavaScriptEnabled bool `mapstructure:"javascriptEnabled" yaml:"javascriptEnabled"`
	// WindowWidth and WindowHeight size the layout viewport of single
	// surface captures. Multi-page captures pin them to the page box.
	WindowWidth  int `mapstructure:"windowWidth" yaml:"windowWidth"`
	WindowHeight int `mapstructure:"windowHeight" yaml:"windowHeight"`
	// Extra is handed to the rasterizer untouched.
	Extra map[string]any `mapstructure:",remain" yaml:"extra"`
}

// Setting keys.
const (
	KeyFilename    = "filename"
	KeyMargin      = "margin"
	KeyImage       = "image"
	KeyEnableLinks = "enableLinks"
	KeyRenderer    = "renderer"
	KeyPDF         = "pdf"
	KeyProperties  = "properties"
	KeyStyle       = "style"
	KeyCSS         = "css"
)

// State keys.
const (
	KeySource    = "source"
	KeyContainer = "container"
	KeyOverlay   = "overlay"
	KeySurface   = "surface"
	KeySurfaces  = "surfaces"
	KeyImg       = "img"
	KeyImgs      = "imgs"
	KeyDocument  = "document"
	KeyPageSize  = "pageSize"
)

// keyAliases maps alternative spellings to their canonical key.
var keyAliases = map[string]string{
	"src":                KeySource,
	"canvas":             KeySurface,
	"canvases":           KeySurfaces,
	"images":             KeyImgs,
	"jsPDF":              KeyPDF,
	"html2canvas":        KeyRenderer,
	"documentProperties": KeyProperties,
}

// settingOrder is the order Set applies known settings in. Remaining keys
// follow sorted by name and pageSize always comes last.
var settingOrder = []string{
	KeyFilename, KeyMargin, KeyImage, KeyEnableLinks, KeyRenderer,
	KeyPDF, KeyProperties, KeyStyle, KeyCSS,
}

var stateKeys = []string{
	KeySource, KeyContainer, KeyOverlay, KeySurface, KeySurfaces,
	KeyImg, KeyImgs, KeyDocument, KeyPageSize,
}

const defaultFilename = "file.pdf"

// DefaultScale is the capture device pixel ratio.
const DefaultScale = 2

// settings is the worker configuration.
type settings struct {
	filename    string
	margin      geometry.Margin
	image       imaging.Options
	enableLinks bool
	renderer    RendererOptions
	pdf         pdfdoc.Options
	properties  pdfdoc.Properties
	extra       map[string]any
}

func defaultSettings() settings {
	return settings{
		filename:    defaultFilename,
		image:       imaging.DefaultOptions(),
		enableLinks: true,
		renderer:    RendererOptions{Scale: DefaultScale, BackgroundColor: "#ffffff"},
		pdf:         pdfdoc.DefaultOptions(),
		extra:       make(map[string]any),
	}
}

// canonicalKey resolves an alias to its canonical key.
func canonicalKey(key string) string {
	if k, ok := keyAliases[key]; ok {
		return k
	}
	return key
}

// IsStateKey reports whether key names pipeline state rather than a
// setting.
func IsStateKey(key string) bool {
	return slices.Contains(stateKeys, canonicalKey(key))
}

// orderedKeys returns the canonical keys of opts in the order Set
// applies them.
func orderedKeys(opts Options) []string {
	present := make(map[string]bool, len(opts))
	for k := range opts {
		present[canonicalKey(k)] = true
	}

	known := lo.Filter(settingOrder, func(k string, _ int) bool { return present[k] })
	rest := lo.Without(lo.Keys(present), append(slices.Clone(settingOrder), KeyPageSize)...)
	slices.Sort(rest)

	keys := append(known, rest...)
	if present[KeyPageSize] {
		keys = append(keys, KeyPageSize)
	}
	return keys
}

// canonicalValues maps opts onto canonical keys. When an alias and its
// canonical key are both present the canonical spelling wins.
func canonicalValues(opts Options) map[string]any {
	values := make(map[string]any, len(opts))
	keys := lo.Keys(opts)
	slices.Sort(keys)
	for _, k := range keys {
		ck := canonicalKey(k)
		if _, taken := values[ck]; taken && k != ck {
			continue
		}
		values[ck] = opts[k]
	}
	return values
}

// Set queues one step per key writing the value to the settings or to the
// pipeline state. Margin and pdf changes recompute the page geometry; an
// explicit pageSize is taken as is.
func (w *Worker) Set(opts Options) *Worker {
	values := canonicalValues(opts)
	for _, key := range orderedKeys(opts) {
		value := values[key]
		w.chain.Then(chain.Step{
			Name: "set " + key,
			Do: func(ctx context.Context, prev any) (any, error) {
				if err := w.apply(key, value); err != nil {
					return nil, err
				}
				w.logger.Debug("setting applied", zap.String("key", key))
				return prev, nil
			},
		})
	}
	return w
}

// Using is an alias of Set.
func (w *Worker) Using(opts Options) *Worker {
	return w.Set(opts)
}

// Get queues a step resolving key from the pipeline state or the
// settings. When fn is non-nil its result replaces the value.
func (w *Worker) Get(key string, fn func(any) any) *Worker {
	key = canonicalKey(key)
	w.chain.Then(chain.Step{
		Name: "get " + key,
		Do: func(ctx context.Context, prev any) (any, error) {
			v := w.lookup(key)
			if fn != nil {
				v = fn(v)
			}
			return v, nil
		},
	})
	return w
}

func (w *Worker) apply(key string, value any) error {
	s := &w.settings
	switch key {
	case KeyFilename:
		name, ok := value.(string)
		if !ok || name == "" {
			return fmt.Errorf("%w: filename must be a non-empty string, got %T", ErrInvalidOption, value)
		}
		s.filename = name

	case KeyMargin:
		m, err := geometry.NormalizeMargin(value)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidMargin, err)
		}
		prev := s.margin
		s.margin = m
		if err := w.computePageSize(); err != nil {
			s.margin = prev
			return err
		}

	case KeyImage:
		img, err := decodeOption(key, s.image, imageAliases(value))
		if err != nil {
			return err
		}
		if err := img.Validate(); err != nil {
			return fmt.Errorf("%w: image: %w", ErrInvalidOption, err)
		}
		s.image = img

	case KeyEnableLinks:
		on, ok := value.(bool)
		if !ok {
			return fmt.Errorf("%w: enableLinks must be a bool, got %T", ErrInvalidOption, value)
		}
		s.enableLinks = on

	case KeyRenderer:
		r, err := decodeOption(key, s.renderer, value)
		if err != nil {
			return err
		}
		if r.Scale <= 0 {
			return fmt.Errorf("%w: renderer scale must be positive, got %v", ErrInvalidOption, r.Scale)
		}
		s.renderer = r

	case KeyPDF:
		pdf, err := decodeOption(key, s.pdf, value)
		if err != nil {
			return err
		}
		prev := s.pdf
		s.pdf = pdf
		if err := w.computePageSize(); err != nil {
			s.pdf = prev
			return err
		}

	case KeyProperties:
		p, err := decodeOption(key, s.properties, value)
		if err != nil {
			return err
		}
		s.properties = p

	case KeyStyle:
		name, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: style must be a string, got %T", ErrInvalidOption, value)
		}
		css, err := w.styles.LoadStyle(name)
		if err != nil {
			return fmt.Errorf("%w: style: %w", ErrInvalidOption, err)
		}
		w.live.AddStylesheet(css)

	case KeyCSS:
		css, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: css must be a string, got %T", ErrInvalidOption, value)
		}
		w.live.AddStylesheet(css)

	case KeyPageSize:
		return w.setPageSize(value)

	default:
		if IsStateKey(key) {
			return w.state.set(key, value)
		}
		s.extra[key] = value
	}
	return nil
}

func (w *Worker) lookup(key string) any {
	s := w.settings
	switch key {
	case KeyFilename:
		return s.filename
	case KeyMargin:
		return s.margin
	case KeyImage:
		return s.image
	case KeyEnableLinks:
		return s.enableLinks
	case KeyRenderer:
		return s.renderer
	case KeyPDF:
		return s.pdf
	case KeyProperties:
		return s.properties
	}
	if IsStateKey(key) {
		return w.state.get(key)
	}
	return s.extra[key]
}

// computePageSize derives the page geometry from the document options
// and margin.
func (w *Worker) computePageSize() error {
	page, err := geometry.Compute(w.settings.pdf.Options, w.settings.margin)
	if err != nil {
		return pageSizeError(err)
	}
	w.state.pageSize = page
	return nil
}

// setPageSize stores an explicit geometry. One without an inner box gets
// the inner box of the current margin.
func (w *Worker) setPageSize(value any) error {
	var page geometry.Page
	switch v := value.(type) {
	case *geometry.Page:
		if v == nil {
			w.state.pageSize = nil
			return nil
		}
		page = *v
	case geometry.Page:
		page = v
	default:
		return fmt.Errorf("%w: pageSize must be a page geometry, got %T", ErrInvalidOption, value)
	}

	if page.Inner == (geometry.Inner{}) {
		if page.K == 0 {
			return fmt.Errorf("%w: pageSize needs a unit scale", ErrInvalidOption)
		}
		p, err := geometry.WithMargin(&page, w.settings.margin)
		if err != nil {
			return pageSizeError(err)
		}
		page = *p
	}
	w.state.pageSize = &page
	return nil
}

func pageSizeError(err error) error {
	if errors.Is(err, geometry.ErrInvalidMargin) {
		return fmt.Errorf("%w: %w", ErrInvalidMargin, err)
	}
	return fmt.Errorf("%w: pdf: %w", ErrInvalidOption, err)
}

// imageAliases maps the "format" spelling of the image type onto "type".
// When both are given, "type" wins.
func imageAliases(value any) any {
	m, ok := value.(map[string]any)
	if !ok {
		return value
	}
	format, ok := m["format"]
	if !ok {
		return value
	}
	out := maps.Clone(m)
	delete(out, "format")
	if _, ok := out["type"]; !ok {
		out["type"] = format
	}
	return out
}

// decodeOption merges value into cur. Values of the option type are taken
// as is; maps are decoded over cur so unset fields keep their value.
// Unknown keys are rejected unless the option type collects them.
func decodeOption[T any](key string, cur T, value any) (T, error) {
	switch v := value.(type) {
	case T:
		return v, nil
	case *T:
		if v != nil {
			return *v, nil
		}
		return cur, nil
	}

	out := cur
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		WeaklyTypedInput: true,
		Squash:           true,
		ErrorUnused:      true,
	})
	if err != nil {
		return cur, fmt.Errorf("%w: %s: %w", ErrInvalidOption, key, err)
	}
	if err := dec.Decode(value); err != nil {
		return cur, fmt.Errorf("%w: %s: %w", ErrInvalidOption, key, err)
	}
	return out, nil
}

// stateValue type checks a value injected into the pipeline state.
func stateValue[T any](key string, value any) (T, error) {
	var zero T
	if value == nil {
		return zero, nil
	}
	v, ok := value.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s: unexpected type %T", ErrInvalidOption, key, value)
	}
	return v, nil
}
