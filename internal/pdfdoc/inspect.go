package pdfdoc

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrInvalidPDF is returned when generated bytes do not parse as a PDF.
var ErrInvalidPDF = errors.New("invalid PDF")

// Info summarizes a PDF.
type Info struct {
	Pages int
	Bytes int
}

// Inspect parses data and reports its page count.
func Inspect(data []byte) (Info, error) {
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		return Info{}, fmt.Errorf("%w: missing %%PDF header", ErrInvalidPDF)
	}

	ctx, err := api.ReadContext(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}

	return Info{Pages: ctx.PageCount, Bytes: len(data)}, nil
}
