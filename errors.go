package html2pdf

import (
	"errors"
	"fmt"

	"github.com/alnah/go-html2pdf/internal/progress"
)

// Error kinds. Every specific error below wraps one of them, so callers
// can match either level with errors.Is.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrPrecondition  = errors.New("precondition failed")
	ErrCollaborator  = errors.New("collaborator failure")
)

// Configuration errors.
var (
	ErrInvalidMargin     = fmt.Errorf("%w: invalid margin", ErrConfiguration)
	ErrUnsupportedOutput = fmt.Errorf("%w: unsupported output type", ErrConfiguration)
	ErrInvalidTarget     = fmt.Errorf("%w: invalid target", ErrConfiguration)
	ErrUnknownSource     = fmt.Errorf("%w: unknown source type", ErrConfiguration)
	ErrInvalidOption     = fmt.Errorf("%w: invalid option", ErrConfiguration)
)

// Precondition errors.
var (
	ErrMissingSource = fmt.Errorf("%w: no source", ErrPrecondition)
)

// Collaborator errors. The underlying rasterizer or writer error stays
// matchable alongside these.
var (
	ErrRasterization = fmt.Errorf("%w: rasterization failed", ErrCollaborator)
	ErrDocument      = fmt.Errorf("%w: document writer failed", ErrCollaborator)
)

// ErrStepFailed is returned by steps queued with Fail.
var ErrStepFailed = errors.New("step failed")

// ErrNilObserver is the rejection left by Listen(nil).
var ErrNilObserver = progress.ErrNilObserver
