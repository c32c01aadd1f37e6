// Package pdfdoc composes encoded page images into a PDF document.
package pdfdoc

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/jung-kurt/gofpdf"

	"github.com/alnah/go-html2pdf/internal/geometry"
	"github.com/alnah/go-html2pdf/internal/imaging"
)

// Sentinel errors for document composition.
var (
	ErrNoPage = errors.New("no page to draw on")
	ErrNoData = errors.New("image has no data")
	ErrWrite  = errors.New("PDF write failed")
)

// Options describe the document format.
type Options struct {
	geometry.Options `mapstructure:",squash" yaml:",inline"`

	// Compress enables stream compression.
	Compress bool `mapstructure:"compress" yaml:"compress"`
}

// DefaultOptions returns a4 portrait in millimetres, compressed.
func DefaultOptions() Options {
	return Options{
		Options: geometry.Options{
			Format:      geometry.DefaultFormat,
			Unit:        geometry.DefaultUnit,
			Orientation: geometry.DefaultOrientation,
		},
		Compress: true,
	}
}

// Properties is the document metadata.
type Properties struct {
	Title    string `mapstructure:"title" yaml:"title"`
	Subject  string `mapstructure:"subject" yaml:"subject"`
	Author   string `mapstructure:"author" yaml:"author"`
	Keywords string `mapstructure:"keywords" yaml:"keywords"`
	Creator  string `mapstructure:"creator" yaml:"creator"`
}

// IsZero reports whether no property is set.
func (p Properties) IsZero() bool {
	return p == Properties{}
}

// Writer is a document under composition. Pages can be appended after
// an Output or Save; every Output renders the document as it is then.
type Writer interface {
	// AddPage starts a new page with the document's page size.
	AddPage() error
	// AddImage draws img on the current page at x, y with size w, h in
	// document units.
	AddImage(img *imaging.Encoded, x, y, w, h float64) error
	// AddLink adds an external link annotation on the current page.
	AddLink(x, y, w, h float64, url string)
	// SetProperties sets the document metadata.
	SetProperties(p Properties)
	// PageCount returns the number of pages added so far.
	PageCount() int
	// Output renders the document and returns its bytes.
	Output() ([]byte, error)
	// Save renders the document and writes it to path.
	Save(path string) error
}

// Factory creates a Writer for the given options.
type Factory func(opts Options) (Writer, error)

// Compile-time interface check.
var _ Writer = (*gofpdfWriter)(nil)

type placedImage struct {
	img                 *imaging.Encoded
	x, y, width, height float64
}

type placedLink struct {
	x, y, width, height float64
	url                 string
}

type pageContent struct {
	images []placedImage
	links  []placedLink
}

// gofpdfWriter records pages and renders them with gofpdf on demand.
// gofpdf documents cannot grow after output, so each render starts a
// fresh one.
type gofpdfWriter struct {
	mu    sync.Mutex
	page  *geometry.Page
	opts  Options
	pages []pageContent
	props Properties
}

// New creates a gofpdf-backed writer.
func New(opts Options) (Writer, error) {
	page, err := geometry.Compute(opts.Options, geometry.Margin{})
	if err != nil {
		return nil, err
	}
	return &gofpdfWriter{page: page, opts: opts}, nil
}

func (w *gofpdfWriter) AddPage() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pages = append(w.pages, pageContent{})
	return nil
}

func (w *gofpdfWriter) AddImage(img *imaging.Encoded, x, y, width, height float64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.pages) == 0 {
		return ErrNoPage
	}
	if img == nil || len(img.Data) == 0 {
		return ErrNoData
	}
	cur := &w.pages[len(w.pages)-1]
	cur.images = append(cur.images, placedImage{img: img, x: x, y: y, width: width, height: height})
	return nil
}

func (w *gofpdfWriter) AddLink(x, y, width, height float64, url string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.pages) == 0 {
		return
	}
	cur := &w.pages[len(w.pages)-1]
	cur.links = append(cur.links, placedLink{x: x, y: y, width: width, height: height, url: url})
}

// SetProperties merges p into the metadata; empty fields keep their
// previous value.
func (w *gofpdfWriter) SetProperties(p Properties) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if p.Title != "" {
		w.props.Title = p.Title
	}
	if p.Subject != "" {
		w.props.Subject = p.Subject
	}
	if p.Author != "" {
		w.props.Author = p.Author
	}
	if p.Keywords != "" {
		w.props.Keywords = p.Keywords
	}
	if p.Creator != "" {
		w.props.Creator = p.Creator
	}
}

func (w *gofpdfWriter) PageCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pages)
}

func (w *gofpdfWriter) Output() ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        w.page.Unit,
		Size:           gofpdf.SizeType{Wd: w.page.Width, Ht: w.page.Height},
	})
	pdf.SetCompression(w.opts.Compress)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	setProperties(pdf, w.props)

	n := 0
	for i, pc := range w.pages {
		pdf.AddPage()
		for _, im := range pc.images {
			n++
			name := fmt.Sprintf("page-image-%d", n)
			opts := gofpdf.ImageOptions{ImageType: imageType(im.img.Format)}
			pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(im.img.Data))
			pdf.ImageOptions(name, im.x, im.y, im.width, im.height, false, opts, 0, "")
		}
		for _, l := range pc.links {
			pdf.LinkString(l.x, l.y, l.width, l.height, l.url)
		}
		if err := pdf.Error(); err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", ErrWrite, i+1, err)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return buf.Bytes(), nil
}

func (w *gofpdfWriter) Save(path string) error {
	data, err := w.Output()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { // #nosec G306 -- output files are meant to be shared
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}

func setProperties(pdf *gofpdf.Fpdf, p Properties) {
	if p.Title != "" {
		pdf.SetTitle(p.Title, true)
	}
	if p.Subject != "" {
		pdf.SetSubject(p.Subject, true)
	}
	if p.Author != "" {
		pdf.SetAuthor(p.Author, true)
	}
	if p.Keywords != "" {
		pdf.SetKeywords(p.Keywords, true)
	}
	if p.Creator != "" {
		pdf.SetCreator(p.Creator, true)
	}
}

func imageType(format string) string {
	switch strings.ToLower(format) {
	case imaging.PNG:
		return "PNG"
	case imaging.GIF:
		return "GIF"
	default:
		return "JPG"
	}
}
