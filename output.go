package html2pdf

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/alnah/go-html2pdf/internal/chain"
	"github.com/alnah/go-html2pdf/internal/imaging"
)

// Output types.
const (
	OutputBytes         = "bytes"
	OutputArrayBuffer   = "arraybuffer"
	OutputBase64        = "base64"
	OutputDataURIString = "datauristring"
	OutputDataURLString = "dataurlstring"
	OutputDataURI       = "datauri"
	OutputDataURL       = "dataurl"
	OutputImage         = "img"
)

// Output sources.
const (
	FromDocument = "document"
	FromImage    = "image"
)

const pdfMIME = "application/pdf"

// Output queues an export of the document (from empty, "document" or
// "pdf") or of the single image (from "image" or "img"), producing the
// missing stages first. The exported value becomes the chain value:
//
//	bytes, arraybuffer            []byte
//	base64                        string
//	datauristring, dataurlstring  string (data URI)
//	datauri, dataurl              string (data URI)
//	img (image only, or empty)    *EncodedImage
//
// An unsupported type rejects before any stage runs.
func (w *Worker) Output(kind, from string) *Worker {
	source, err := outputSource(from)
	if err == nil {
		err = checkOutputKind(kind, source)
	}
	if err != nil {
		return w.reject("output", err)
	}

	w.chain.Then(w.steps("output "+kind, w.outputReady(source), func(ctx context.Context, prev any) (any, error) {
		if source == TargetImage {
			return w.outputImage(kind)
		}
		return w.outputDocument(kind)
	})...)
	return w
}

// outputReady reuses an existing document or image and only runs the
// producing stage when there is none.
func (w *Worker) outputReady(source string) readyFunc {
	return func() ([]chain.Step, error) {
		switch {
		case source == TargetImage && w.state.img != nil:
			return nil, nil
		case source == TargetDocument && w.state.document != nil:
			return nil, nil
		}
		return w.mustStage(source), nil
	}
}

// Export is an alias of Output.
func (w *Worker) Export(kind, from string) *Worker {
	return w.Output(kind, from)
}

// Bytes runs the chain through the document stage and returns the PDF.
func (w *Worker) Bytes(ctx context.Context) ([]byte, error) {
	v, err := w.Output(OutputBytes, FromDocument).Run(ctx)
	if err != nil {
		return nil, err
	}
	data, ok := v.([]byte)
	if !ok {
		return nil, fmt.Errorf("%w: document output is %T", ErrDocument, v)
	}
	return data, nil
}

// Save queues writing the document to a file. A non-empty filename
// replaces the filename setting; properties, when given, replace the
// document properties. Properties are applied to the document right
// before it is written.
func (w *Worker) Save(filename string, props ...Properties) *Worker {
	opts := Options{}
	if filename != "" {
		opts[KeyFilename] = filename
	}
	if len(props) > 0 {
		opts[KeyProperties] = props[len(props)-1]
	}
	if len(opts) > 0 {
		w.Set(opts)
	}

	w.chain.Then(w.steps("save", w.outputReady(TargetDocument), func(ctx context.Context, prev any) (any, error) {
		doc := w.state.document
		doc.SetProperties(w.settings.properties)
		if err := doc.Save(w.settings.filename); err != nil {
			return nil, fmt.Errorf("%w: saving %s: %w", ErrDocument, w.settings.filename, err)
		}
		w.logger.Info("document saved",
			zap.String("path", w.settings.filename),
			zap.Int("pages", doc.PageCount()))
		return w.settings.filename, nil
	})...)
	return w
}

// SaveAs is an alias of Save.
func (w *Worker) SaveAs(filename string, props ...Properties) *Worker {
	return w.Save(filename, props...)
}

func outputSource(from string) (string, error) {
	switch strings.ToLower(from) {
	case "", FromDocument, "pdf":
		return TargetDocument, nil
	case FromImage, "img":
		return TargetImage, nil
	default:
		return "", fmt.Errorf("%w: source %q (expected document, image)", ErrUnsupportedOutput, from)
	}
}

func checkOutputKind(kind, source string) error {
	switch strings.ToLower(kind) {
	case OutputBytes, OutputArrayBuffer, OutputBase64,
		OutputDataURIString, OutputDataURLString, OutputDataURI, OutputDataURL:
		return nil
	case OutputImage, "":
		if source == TargetImage {
			return nil
		}
	}
	return fmt.Errorf("%w: %q from %s", ErrUnsupportedOutput, kind, source)
}

func (w *Worker) outputDocument(kind string) (any, error) {
	doc := w.state.document
	doc.SetProperties(w.settings.properties)
	data, err := doc.Output()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDocument, err)
	}

	switch strings.ToLower(kind) {
	case OutputBytes, OutputArrayBuffer:
		return data, nil
	case OutputBase64:
		return base64.StdEncoding.EncodeToString(data), nil
	default:
		return documentDataURI(w.settings.filename, data), nil
	}
}

func (w *Worker) outputImage(kind string) (any, error) {
	img := w.state.img
	switch strings.ToLower(kind) {
	case OutputImage, "":
		return img, nil
	case OutputBytes, OutputArrayBuffer:
		return img.Data, nil
	case OutputBase64:
		return base64.StdEncoding.EncodeToString(img.Data), nil
	default:
		return img.DataURI(), nil
	}
}

// documentDataURI embeds the filename as a media type parameter.
func documentDataURI(filename string, data []byte) string {
	mime := pdfMIME
	if filename != "" {
		mime += ";filename=" + url.PathEscape(filename)
	}
	return imaging.DataURI(mime, data)
}
