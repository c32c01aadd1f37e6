package html2pdf

import (
	"context"
	"fmt"
	"image"
	"math"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/alnah/go-html2pdf/internal/chain"
	"github.com/alnah/go-html2pdf/internal/dom"
	"github.com/alnah/go-html2pdf/internal/imaging"
	"github.com/alnah/go-html2pdf/internal/raster"
)

// Stage targets accepted by To.
const (
	TargetContainer = "container"
	TargetSurface   = "surface"
	TargetSurfaces  = "surfaces"
	TargetImage     = "image"
	TargetImages    = "images"
	TargetDocument  = "document"
)

var targetAliases = map[string]string{
	"canvas":   TargetSurface,
	"canvases": TargetSurfaces,
	"img":      TargetImage,
	"imgs":     TargetImages,
	"pdf":      TargetDocument,
}

// Class names and id prefix of the scaffolding around the cloned source.
const (
	overlayClass      = "html2pdf__overlay"
	containerClass    = "html2pdf__container"
	containerIDPrefix = "html2pdf__container-"
)

// To queues the stage producing target along with whatever prerequisite
// stages turn out to be missing when it runs.
func (w *Worker) To(target string) *Worker {
	steps, err := w.stage(target)
	if err != nil {
		return w.reject("to "+target, err)
	}
	w.chain.Then(steps...)
	return w
}

// stage returns the steps of a stage: a prerequisite check that defers
// the producing stages when needed, then the body.
func (w *Worker) stage(target string) ([]chain.Step, error) {
	if t, ok := targetAliases[target]; ok {
		target = t
	}
	switch target {
	case TargetContainer:
		return w.steps(target, w.containerReady, w.containerStage), nil
	case TargetSurface:
		return w.steps(target, w.surfaceReady, w.surfaceStage), nil
	case TargetSurfaces:
		return w.steps(target, w.surfaceReady, w.surfacesStage), nil
	case TargetImage:
		return w.steps(target, w.imageReady, w.imageStage), nil
	case TargetImages:
		return w.steps(target, w.imagesReady, w.imagesStage), nil
	case TargetDocument:
		return w.steps(target, w.documentReady, w.documentStage), nil
	default:
		return nil, fmt.Errorf("%w: %q (expected container, surface, surfaces, image, images, document)", ErrInvalidTarget, target)
	}
}

// mustStage is stage for targets known to be valid.
func (w *Worker) mustStage(target string) []chain.Step {
	steps, err := w.stage(target)
	if err != nil {
		panic(err)
	}
	return steps
}

// readyFunc confirms the prerequisites of a stage or returns the steps
// establishing them.
type readyFunc func() ([]chain.Step, error)

func (w *Worker) steps(name string, ready readyFunc, body chain.Func) []chain.Step {
	check := chain.Step{
		Name: name + " prerequisites",
		Do: func(ctx context.Context, prev any) (any, error) {
			missing, err := ready()
			if err != nil {
				return nil, err
			}
			if len(missing) > 0 {
				return chain.Defer(missing...)
			}
			return prev, nil
		},
	}
	return []chain.Step{check, {Name: name, Do: body}}
}

func (w *Worker) pageSizeStep() chain.Step {
	return chain.Step{
		Name: "page size",
		Do: func(ctx context.Context, prev any) (any, error) {
			return prev, w.computePageSize()
		},
	}
}

// ---------------------------------------------------------------------------
// Prerequisites
// ---------------------------------------------------------------------------

func (w *Worker) containerReady() ([]chain.Step, error) {
	if w.state.source == nil {
		return nil, ErrMissingSource
	}
	if w.state.pageSize == nil {
		return []chain.Step{w.pageSizeStep()}, nil
	}
	return nil, nil
}

func (w *Worker) surfaceReady() ([]chain.Step, error) {
	if w.state.attached.Attached() {
		return nil, nil
	}
	if !w.state.injected || w.state.container == nil {
		return w.mustStage(TargetContainer), nil
	}
	var missing []chain.Step
	if !w.live.Contains(w.state.container) {
		missing = append(missing, w.attachStep())
	}
	if w.state.pageSize == nil {
		missing = append(missing, w.pageSizeStep())
	}
	return missing, nil
}

// attachStep attaches an injected container, together with the elements
// enclosing it, to the live document.
func (w *Worker) attachStep() chain.Step {
	return chain.Step{
		Name: "attach container",
		Do: func(ctx context.Context, prev any) (any, error) {
			top := w.state.container
			for top.Parent != nil && top.Parent.Type == html.ElementNode {
				top = top.Parent
			}
			w.state.attached = w.live.Attach(top)
			return prev, nil
		},
	}
}

func (w *Worker) imageReady() ([]chain.Step, error) {
	if w.state.surface != nil {
		return nil, nil
	}
	return w.mustStage(TargetSurface), nil
}

func (w *Worker) imagesReady() ([]chain.Step, error) {
	if len(w.state.surfaceList()) > 0 {
		return nil, nil
	}
	return w.mustStage(TargetSurfaces), nil
}

func (w *Worker) documentReady() ([]chain.Step, error) {
	var missing []chain.Step
	if len(w.state.imageList()) == 0 {
		missing = append(missing, w.mustStage(TargetImages)...)
	}
	if w.state.pageSize == nil {
		missing = append(missing, w.pageSizeStep())
	}
	return missing, nil
}

// ---------------------------------------------------------------------------
// Bodies
// ---------------------------------------------------------------------------

// containerStage clones the source into a container sized to the page
// content width, wraps it in an overlay and attaches the overlay to the
// live document.
func (w *Worker) containerStage(ctx context.Context, prev any) (any, error) {
	w.state.release()

	page := w.state.pageSize
	source := dom.Clone(w.state.source, w.settings.renderer.JavaScriptEnabled)

	container := dom.NewElement("div", html.Attribute{Key: "class", Val: containerClass})
	dom.EnsureID(container, containerIDPrefix)
	dom.SetStyle(container, map[string]string{
		"width":            strconv.FormatFloat(page.Inner.Width, 'f', -1, 64) + page.Unit,
		"height":           "auto",
		"margin":           "auto",
		"background-color": "white",
	})
	container.AppendChild(source)

	overlay := dom.NewElement("div", html.Attribute{Key: "class", Val: overlayClass})
	overlay.AppendChild(container)

	w.state.container = container
	w.state.overlay = overlay
	w.state.injected = false
	w.state.attached = w.live.Attach(overlay)

	w.logger.Debug("container attached",
		zap.Float64("width", page.Inner.Width),
		zap.String("unit", page.Unit))
	return container, nil
}

// surfaceStage captures the whole container as one surface.
func (w *Worker) surfaceStage(ctx context.Context, prev any) (any, error) {
	defer w.state.release()

	r, err := w.ensureRasterizer()
	if err != nil {
		return nil, err
	}
	surface, err := r.Rasterize(ctx, w.state.container, w.rasterOptions())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRasterization, err)
	}
	w.state.surface = surface
	return surface, nil
}

// surfacesStage captures the container page by page. Consecutive pages
// overlap by one pixel row so no row falls between two captures.
func (w *Worker) surfacesStage(ctx context.Context, prev any) (any, error) {
	defer w.state.release()

	r, err := w.ensureRasterizer()
	if err != nil {
		return nil, err
	}

	inner := w.state.pageSize.Inner
	opts := w.rasterOptions()
	opts.Width, opts.Height = inner.PxWidth, inner.PxHeight
	opts.WindowWidth, opts.WindowHeight = inner.PxWidth, inner.PxHeight

	layout, err := r.Measure(ctx, w.state.container, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRasterization, err)
	}

	nPages := PageCount(layout.Height, inner.PxHeight)
	stride := max(inner.PxHeight-1, 1)
	surfaces := make([]image.Image, 0, nPages)
	for page := range nPages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		opts.Y = page * stride
		surface, err := r.Rasterize(ctx, w.state.container, opts)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d of %d: %w", ErrRasterization, page+1, nPages, err)
		}
		surfaces = append(surfaces, surface)
		w.logger.Debug("page captured",
			zap.Int("page", page+1),
			zap.Int("pages", nPages),
			zap.Int("offset", opts.Y))
	}

	w.state.surfaces = surfaces
	w.state.links, w.state.linkStride = nil, 0
	if w.settings.enableLinks {
		w.state.links, w.state.linkStride = layout.Links, stride
	}
	return surfaces, nil
}

// PageCount returns how many pages of pageHeight pixels content of the
// given height spans. Content with no height still yields one page.
func PageCount(contentHeight float64, pageHeight int) int {
	if pageHeight <= 0 || contentHeight <= 0 {
		return 1
	}
	return max(int(math.Ceil(contentHeight/float64(pageHeight))), 1)
}

// imageStage encodes the single surface.
func (w *Worker) imageStage(ctx context.Context, prev any) (any, error) {
	img, err := imaging.Encode(w.state.surface, w.settings.image)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding surface: %w", ErrInvalidOption, err)
	}
	w.state.img = img
	return img, nil
}

// imagesStage encodes every surface, in order.
func (w *Worker) imagesStage(ctx context.Context, prev any) (any, error) {
	surfaces := w.state.surfaceList()
	imgs := make([]*imaging.Encoded, 0, len(surfaces))
	for i, s := range surfaces {
		img, err := imaging.Encode(s, w.settings.image)
		if err != nil {
			return nil, fmt.Errorf("%w: encoding surface %d: %w", ErrInvalidOption, i+1, err)
		}
		imgs = append(imgs, img)
	}
	w.state.imgs = imgs
	return imgs, nil
}

// documentStage creates the document on first use and draws every image
// not placed yet on a page of its own, inside the margins.
func (w *Worker) documentStage(ctx context.Context, prev any) (any, error) {
	if w.state.document == nil {
		doc, err := w.newDocument(w.settings.pdf)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDocument, err)
		}
		w.state.document = doc
		w.state.placed = 0
	}

	page := w.state.pageSize
	m, inner := page.Margin, page.Inner
	imgs := w.state.imageList()
	for i := w.state.placed; i < len(imgs); i++ {
		if err := w.state.document.AddPage(); err != nil {
			return nil, fmt.Errorf("%w: adding page %d: %w", ErrDocument, i+1, err)
		}
		if err := w.state.document.AddImage(imgs[i], m.Left(), m.Top(), inner.Width, inner.Height); err != nil {
			return nil, fmt.Errorf("%w: drawing page %d: %w", ErrDocument, i+1, err)
		}
		w.addLinks(i)
		w.state.placed = i + 1
	}

	w.logger.Debug("document composed", zap.Int("pages", w.state.document.PageCount()))
	return w.state.document, nil
}

// addLinks annotates the current page with the anchors captured on page
// index i.
func (w *Worker) addLinks(i int) {
	if !w.settings.enableLinks || w.state.linkStride == 0 {
		return
	}
	page := w.state.pageSize
	inner := page.Inner
	if inner.PxWidth == 0 || inner.PxHeight == 0 {
		return
	}
	sx := inner.Width / float64(inner.PxWidth)
	sy := inner.Height / float64(inner.PxHeight)
	top := float64(i * w.state.linkStride)
	bottom := top + float64(inner.PxHeight)

	for _, l := range w.state.links {
		if l.Href == "" || l.Y < top || l.Y >= bottom {
			continue
		}
		x := page.Margin.Left() + l.X*sx
		y := page.Margin.Top() + (l.Y-top)*sy
		width := min(l.Width*sx, inner.Width-l.X*sx)
		height := min(l.Height*sy, inner.Height-(l.Y-top)*sy)
		w.state.document.AddLink(x, y, width, height, l.Href)
	}
}

func (w *Worker) rasterOptions() raster.Options {
	r := w.settings.renderer
	return raster.Options{
		WindowWidth:     r.WindowWidth,
		WindowHeight:    r.WindowHeight,
		Scale:           r.Scale,
		BackgroundColor: r.BackgroundColor,
		Extra:           r.Extra,
	}
}
