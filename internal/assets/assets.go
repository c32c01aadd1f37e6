// Package assets provides the stylesheets injected into the live document
// before rasterization.
//
// Styles are loaded by name (without the .css extension) from the embedded
// styles/ directory, or from a custom directory laid out as
// {basePath}/styles/{name}.css. A Resolver tries the custom directory first
// and falls back to the embedded styles when a name is not found there.
package assets

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Sentinel errors for asset operations.
var (
	ErrStyleNotFound    = errors.New("style not found")
	ErrInvalidAssetName = errors.New("invalid asset name")
	ErrInvalidBasePath  = errors.New("invalid base path")
	ErrAssetRead        = errors.New("failed to read asset")
	ErrPathTraversal    = errors.New("path traversal detected")
)

// Built-in style names.
const (
	DefaultStyleName  = "default"
	MarkdownStyleName = "markdown"
)

//go:embed styles/*.css
var styles embed.FS

// StyleLoader loads a stylesheet by name.
type StyleLoader interface {
	LoadStyle(name string) (string, error)
}

// Compile-time interface checks.
var (
	_ StyleLoader = (*EmbeddedLoader)(nil)
	_ StyleLoader = (*FilesystemLoader)(nil)
	_ StyleLoader = (*Resolver)(nil)
)

var defaultLoader = &EmbeddedLoader{}

// LoadStyle loads an embedded style.
func LoadStyle(name string) (string, error) {
	return defaultLoader.LoadStyle(name)
}

// EmbeddedStyles lists the names of the embedded styles, sorted.
func EmbeddedStyles() []string {
	entries, err := styles.ReadDir("styles")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), ".css"); ok {
			names = append(names, name)
		}
	}
	return names
}

// EmbeddedLoader loads styles compiled into the binary.
type EmbeddedLoader struct{}

// NewEmbeddedLoader creates an EmbeddedLoader.
func NewEmbeddedLoader() *EmbeddedLoader {
	return &EmbeddedLoader{}
}

func (e *EmbeddedLoader) LoadStyle(name string) (string, error) {
	if err := ValidateAssetName(name); err != nil {
		return "", err
	}
	content, err := styles.ReadFile("styles/" + name + ".css")
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrStyleNotFound, name)
	}
	return string(content), nil
}

// FilesystemLoader loads styles from {basePath}/styles.
type FilesystemLoader struct {
	basePath string
}

// NewFilesystemLoader checks that basePath is a readable directory.
func NewFilesystemLoader(basePath string) (*FilesystemLoader, error) {
	if basePath == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidBasePath)
	}

	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBasePath, err)
	}
	// Containment checks compare real paths.
	if realPath, err := filepath.EvalSymlinks(absPath); err == nil {
		absPath = realPath
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBasePath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: not a directory: %s", ErrInvalidBasePath, absPath)
	}
	return &FilesystemLoader{basePath: absPath}, nil
}

func (f *FilesystemLoader) LoadStyle(name string) (string, error) {
	if err := ValidateAssetName(name); err != nil {
		return "", err
	}

	path := filepath.Join(f.basePath, "styles", name+".css")
	if real, err := filepath.EvalSymlinks(path); err == nil {
		path = real
	}
	if !strings.HasPrefix(path, f.basePath+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q escapes %s", ErrPathTraversal, name, f.basePath)
	}

	content, err := os.ReadFile(path) // #nosec G304 -- path validated above
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %q", ErrStyleNotFound, name)
		}
		return "", fmt.Errorf("%w: %v", ErrAssetRead, err)
	}
	return string(content), nil
}

// Resolver tries a custom directory before the embedded styles.
type Resolver struct {
	custom   StyleLoader
	embedded StyleLoader
}

// NewResolver creates a Resolver. An empty customBasePath uses embedded
// styles only.
func NewResolver(customBasePath string) (*Resolver, error) {
	r := &Resolver{embedded: NewEmbeddedLoader()}
	if customBasePath != "" {
		fs, err := NewFilesystemLoader(customBasePath)
		if err != nil {
			return nil, err
		}
		r.custom = fs
	}
	return r, nil
}

// LoadStyle falls back to embedded styles only when the custom directory
// has no such style; validation and I/O errors are returned as is.
func (r *Resolver) LoadStyle(name string) (string, error) {
	if r.custom != nil {
		content, err := r.custom.LoadStyle(name)
		if err == nil || !errors.Is(err, ErrStyleNotFound) {
			return content, err
		}
	}
	return r.embedded.LoadStyle(name)
}

// ValidateAssetName rejects empty names and names with path separators
// or dots.
func ValidateAssetName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidAssetName)
	}
	if strings.ContainsAny(name, "/\\.") {
		return fmt.Errorf("%w: %q", ErrInvalidAssetName, name)
	}
	return nil
}
