package main

import (
	"context"
	"errors"
	"os"

	html2pdf "github.com/alnah/go-html2pdf"
	"github.com/alnah/go-html2pdf/internal/assets"
	"github.com/alnah/go-html2pdf/internal/config"
	"github.com/alnah/go-html2pdf/internal/hints"
	"github.com/alnah/go-html2pdf/internal/raster"
)

// Exit codes follow Unix conventions: 0 success, 1 general, 2 usage, and
// custom codes below 126.
const (
	ExitSuccess = 0 // Successful conversion
	ExitGeneral = 1 // General/unexpected error
	ExitUsage   = 2 // Invalid flags, config, or settings
	ExitIO      = 3 // File not found, permission denied
	ExitBrowser = 4 // Browser/Chrome errors
)

// exitCodeFor maps an error to an exit code through errors.Is, so every
// layer must wrap with %w. Browser failures win over I/O, and I/O over
// usage, because collaborator errors carry both their kind and the
// underlying cause.
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	if errors.Is(err, raster.ErrBrowserConnect) ||
		errors.Is(err, raster.ErrPageLoad) ||
		errors.Is(err, raster.ErrCapture) ||
		errors.Is(err, html2pdf.ErrRasterization) {
		return ExitBrowser
	}

	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrNoInput) ||
		errors.Is(err, ErrReadCSS) ||
		errors.Is(err, ErrReadSource) ||
		errors.Is(err, ErrWritePDF) ||
		errors.Is(err, html2pdf.ErrDocument) {
		return ExitIO
	}

	if errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, raster.ErrUnknownBackend) ||
		errors.Is(err, html2pdf.ErrConfiguration) ||
		errors.Is(err, html2pdf.ErrPrecondition) ||
		errors.Is(err, ErrInvalidExtension) ||
		errors.Is(err, ErrInvalidWorkerCount) ||
		errors.Is(err, ErrUnknownCommand) {
		return ExitUsage
	}

	return ExitGeneral
}

// hintFor returns an actionable hint for err, or "".
func hintFor(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, raster.ErrBrowserConnect):
		return hints.ForBrowserConnect()
	case errors.Is(err, raster.ErrPageLoad), errors.Is(err, context.DeadlineExceeded):
		return hints.ForTimeout()
	case errors.Is(err, config.ErrConfigNotFound):
		return hints.ForConfigNotFound(config.SearchPaths("html2pdf"))
	case errors.Is(err, assets.ErrStyleNotFound):
		return hints.ForStyleNotFound(assets.EmbeddedStyles())
	case errors.Is(err, raster.ErrUnknownBackend):
		return hints.ForBackend([]string{html2pdf.BackendRod, html2pdf.BackendChromedp})
	case errors.Is(err, html2pdf.ErrInvalidMargin):
		return hints.ForMargin()
	case errors.Is(err, ErrWritePDF):
		return hints.ForOutputDirectory()
	}
	return ""
}
