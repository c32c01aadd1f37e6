// Package fileutil holds the small file helpers shared by the rasterizer
// and the command line tool.
package fileutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Sentinel errors for file utility operations.
var (
	ErrExtensionEmpty         = errors.New("extension cannot be empty")
	ErrExtensionPathTraversal = errors.New("extension contains path separator or null byte")
)

// Source kinds recognised from file extensions.
const (
	KindHTML     = "html"
	KindMarkdown = "markdown"
)

// WriteTempFile writes content to a new temp file named with the given
// extension and returns its path with a cleanup func removing it.
func WriteTempFile(content, extension string) (path string, cleanup func(), err error) {
	if err := ValidateExtension(extension); err != nil {
		return "", nil, err
	}

	tmpFile, err := os.CreateTemp("", "html2pdf-*."+extension)
	if err != nil {
		return "", nil, fmt.Errorf("creating temp file: %w", err)
	}

	path = tmpFile.Name()
	cleanup = func() { _ = os.Remove(path) }

	if _, writeErr := tmpFile.WriteString(content); writeErr != nil {
		_ = tmpFile.Close()
		cleanup()
		return "", nil, fmt.Errorf("writing temp file: %w", writeErr)
	}
	if closeErr := tmpFile.Close(); closeErr != nil {
		cleanup()
		return "", nil, fmt.Errorf("closing temp file: %w", closeErr)
	}
	return path, cleanup, nil
}

// ValidateExtension checks that the extension is safe for temp file names.
func ValidateExtension(extension string) error {
	if extension == "" {
		return ErrExtensionEmpty
	}
	if strings.ContainsAny(extension, "/\\\x00") {
		return ErrExtensionPathTraversal
	}
	return nil
}

// FileExists reports whether path exists and is not a directory.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// SourceKind guesses the source kind from the file extension. Unknown
// extensions are treated as HTML.
func SourceKind(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown", ".mdown", ".mkd":
		return KindMarkdown
	default:
		return KindHTML
	}
}

// IsSource reports whether path has an extension the converter accepts.
func IsSource(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm", ".xhtml", ".md", ".markdown", ".mdown", ".mkd":
		return true
	}
	return false
}

// OutputPath returns the PDF path for input. With an empty outDir the PDF
// sits next to the input; otherwise it is placed in outDir.
func OutputPath(input, outDir string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)) + ".pdf"
	if outDir == "" {
		return filepath.Join(filepath.Dir(input), base)
	}
	return filepath.Join(outDir, base)
}
