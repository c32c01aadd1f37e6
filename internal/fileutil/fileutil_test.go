package fileutil_test

// Notes:
// - Write and close failures in WriteTempFile are not triggered; forcing
//   disk errors is platform-specific.

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alnah/go-html2pdf/internal/fileutil"
)

// ---------------------------------------------------------------------------
// TestValidateExtension
// ---------------------------------------------------------------------------

func TestValidateExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		extension string
		wantErr   error
	}{
		{name: "html", extension: "html"},
		{name: "empty", extension: "", wantErr: fileutil.ErrExtensionEmpty},
		{name: "forward slash", extension: "../etc/passwd", wantErr: fileutil.ErrExtensionPathTraversal},
		{name: "backslash", extension: "..\\system32", wantErr: fileutil.ErrExtensionPathTraversal},
		{name: "null byte", extension: "html\x00exe", wantErr: fileutil.ErrExtensionPathTraversal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if err := fileutil.ValidateExtension(tt.extension); !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateExtension(%q) = %v, want %v", tt.extension, err, tt.wantErr)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestWriteTempFile
// ---------------------------------------------------------------------------

func TestWriteTempFile(t *testing.T) {
	t.Parallel()

	content := "<html><body>Test</body></html>"
	path, cleanup, err := fileutil.WriteTempFile(content, "html")
	if err != nil {
		t.Fatalf("WriteTempFile() error = %v", err)
	}

	if !strings.Contains(filepath.Base(path), "html2pdf-") {
		t.Errorf("path %q does not contain prefix html2pdf-", path)
	}
	if !strings.HasSuffix(path, ".html") {
		t.Errorf("path %q does not end in .html", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read temp file: %v", err)
	}
	if string(data) != content {
		t.Errorf("file content = %q, want %q", data, content)
	}

	cleanup()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("temp file still exists after cleanup: %s", path)
	}
}

func TestWriteTempFile_InvalidExtension(t *testing.T) {
	t.Parallel()

	path, cleanup, err := fileutil.WriteTempFile("x", "")
	if !errors.Is(err, fileutil.ErrExtensionEmpty) {
		t.Errorf("WriteTempFile() error = %v, want %v", err, fileutil.ErrExtensionEmpty)
	}
	if path != "" || cleanup != nil {
		t.Errorf("WriteTempFile() = (%q, %v), want empty results", path, cleanup != nil)
	}
}

// ---------------------------------------------------------------------------
// TestFileExists
// ---------------------------------------------------------------------------

func TestFileExists(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "a.html")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	tests := []struct {
		name string
		path string
		want bool
	}{
		{name: "file", path: file, want: true},
		{name: "directory", path: dir, want: false},
		{name: "missing", path: filepath.Join(dir, "missing.html"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := fileutil.FileExists(tt.path); got != tt.want {
				t.Errorf("FileExists(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestSourceKind / TestIsSource
// ---------------------------------------------------------------------------

func TestSourceKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want string
	}{
		{path: "doc.md", want: fileutil.KindMarkdown},
		{path: "DOC.MARKDOWN", want: fileutil.KindMarkdown},
		{path: "page.html", want: fileutil.KindHTML},
		{path: "page.htm", want: fileutil.KindHTML},
		{path: "noext", want: fileutil.KindHTML},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()

			if got := fileutil.SourceKind(tt.path); got != tt.want {
				t.Errorf("SourceKind(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestIsSource(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want bool
	}{
		{path: "a.html", want: true},
		{path: "a.md", want: true},
		{path: "a.XHTML", want: true},
		{path: "a.pdf", want: false},
		{path: "a", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()

			if got := fileutil.IsSource(tt.path); got != tt.want {
				t.Errorf("IsSource(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestOutputPath
// ---------------------------------------------------------------------------

func TestOutputPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		outDir string
		want   string
	}{
		{name: "next to input", input: filepath.Join("docs", "a.html"), want: filepath.Join("docs", "a.pdf")},
		{name: "into out dir", input: filepath.Join("docs", "b.md"), outDir: "out", want: filepath.Join("out", "b.pdf")},
		{name: "no extension", input: "c", want: "c.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := fileutil.OutputPath(tt.input, tt.outDir); got != tt.want {
				t.Errorf("OutputPath(%q, %q) = %q, want %q", tt.input, tt.outDir, got, tt.want)
			}
		})
	}
}
