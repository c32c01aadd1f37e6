package html2pdf

import (
	"image"

	"golang.org/x/net/html"

	"github.com/alnah/go-html2pdf/internal/dom"
	"github.com/alnah/go-html2pdf/internal/geometry"
	"github.com/alnah/go-html2pdf/internal/imaging"
	"github.com/alnah/go-html2pdf/internal/pdfdoc"
	"github.com/alnah/go-html2pdf/internal/raster"
)

// state is the working data threaded through the stages. It is only
// touched from chain steps, which never run concurrently.
type state struct {
	source    *html.Node
	container *html.Node
	overlay   *html.Node
	attached  *dom.Attachment
	// injected marks a container set by the caller; it is reused
	// instead of rebuilt from source.
	injected bool

	// The singular and plural forms coexist; a non-empty list wins.
	surface  image.Image
	surfaces []image.Image
	img      *imaging.Encoded
	imgs     []*imaging.Encoded

	document pdfdoc.Writer
	// placed counts images already drawn into document.
	placed int

	pageSize *geometry.Page

	// links are anchor boxes relative to the container, recorded by
	// multi-page captures. linkStride is the vertical page step in CSS
	// pixels they were captured with.
	links      []raster.Link
	linkStride int
}

func (s *state) surfaceList() []image.Image {
	if len(s.surfaces) > 0 {
		return s.surfaces
	}
	if s.surface != nil {
		return []image.Image{s.surface}
	}
	return nil
}

func (s *state) imageList() []*imaging.Encoded {
	if len(s.imgs) > 0 {
		return s.imgs
	}
	if s.img != nil {
		return []*imaging.Encoded{s.img}
	}
	return nil
}

// release detaches the overlay from the live document, if attached.
func (s *state) release() {
	s.attached.Release()
}

func (s *state) get(key string) any {
	switch key {
	case KeySource:
		return s.source
	case KeyContainer:
		return s.container
	case KeyOverlay:
		return s.overlay
	case KeySurface:
		return s.surface
	case KeySurfaces:
		return s.surfaces
	case KeyImg:
		return s.img
	case KeyImgs:
		return s.imgs
	case KeyDocument:
		return s.document
	case KeyPageSize:
		return s.pageSize
	}
	return nil
}

func (s *state) set(key string, value any) error {
	var err error
	switch key {
	case KeySource:
		s.source, err = stateValue[*html.Node](key, value)
	case KeyContainer:
		s.container, err = stateValue[*html.Node](key, value)
		s.injected = err == nil && s.container != nil
	case KeyOverlay:
		s.overlay, err = stateValue[*html.Node](key, value)
	case KeySurface:
		s.surface, err = stateValue[image.Image](key, value)
	case KeySurfaces:
		s.surfaces, err = stateValue[[]image.Image](key, value)
	case KeyImg:
		s.img, err = stateValue[*imaging.Encoded](key, value)
	case KeyImgs:
		s.imgs, err = stateValue[[]*imaging.Encoded](key, value)
	case KeyDocument:
		s.document, err = stateValue[pdfdoc.Writer](key, value)
		if err == nil {
			s.placed = 0
		}
	}
	return err
}
