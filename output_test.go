package html2pdf

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alnah/go-html2pdf/internal/imaging"
	"github.com/alnah/go-html2pdf/internal/pdfdoc"
)

// Notes:
// - Most cases use fakeDocument, whose output is the fixed "%PDF-fake".
// - The gofpdf-backed cases check real PDF bytes with pdfdoc.Inspect.

func TestOutput_Document(t *testing.T) {
	t.Parallel()

	fake := []byte("%PDF-fake")
	tests := []struct {
		kind  string
		check func(t *testing.T, v any)
	}{
		{kind: OutputBytes, check: wantBytes(fake)},
		{kind: OutputArrayBuffer, check: wantBytes(fake)},
		{kind: OutputBase64, check: wantString(base64.StdEncoding.EncodeToString(fake))},
		{kind: OutputDataURIString, check: wantString("data:application/pdf;filename=report.pdf;base64," + base64.StdEncoding.EncodeToString(fake))},
		{kind: OutputDataURLString, check: wantPrefix("data:application/pdf;filename=report.pdf;base64,")},
		{kind: OutputDataURI, check: wantPrefix("data:application/pdf;")},
		{kind: "DataURL", check: wantPrefix("data:application/pdf;")},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			t.Parallel()

			w, _ := newTestWorker(t, &fakeRasterizer{height: 10})
			v, err := w.
				Set(Options{KeyFilename: "report.pdf"}).
				From("<p>x</p>").
				Output(tt.kind, "").
				Run(context.Background())
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			tt.check(t, v)
		})
	}
}

func TestOutput_Image(t *testing.T) {
	t.Parallel()

	data := pngBytes(t)
	tests := []struct {
		kind  string
		check func(t *testing.T, v any)
	}{
		{kind: OutputImage, check: func(t *testing.T, v any) {
			img, ok := v.(*EncodedImage)
			if !ok || !bytes.Equal(img.Data, data) {
				t.Errorf("value = %T, want the injected image", v)
			}
		}},
		{kind: OutputBytes, check: wantBytes(data)},
		{kind: OutputBase64, check: wantString(base64.StdEncoding.EncodeToString(data))},
		{kind: OutputDataURIString, check: wantPrefix("data:image/png;base64,")},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			t.Parallel()

			r := &fakeRasterizer{}
			w, _ := newTestWorker(t, r)
			v, err := w.From(data).Output(tt.kind, FromImage).Run(context.Background())
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			tt.check(t, v)
			if len(r.captures()) != 0 {
				t.Error("an injected image should not be rasterized again")
			}
		})
	}
}

func TestOutput_ImageFromSource(t *testing.T) {
	t.Parallel()

	r := &fakeRasterizer{height: 10}
	w, _ := newTestWorker(t, r)
	v, err := w.From("<p>x</p>").Output(OutputImage, "img").Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if _, ok := v.(*EncodedImage); !ok {
		t.Errorf("value = %T, want *EncodedImage", v)
	}
	if len(r.captures()) != 1 {
		t.Errorf("captures = %d, want 1", len(r.captures()))
	}
}

func TestOutput_Unsupported(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		kind string
		from string
	}{
		{name: "unknown type", kind: "xyz"},
		{name: "img from document", kind: OutputImage, from: FromDocument},
		{name: "unknown source", kind: OutputBytes, from: "canvas"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := &fakeRasterizer{height: 10}
			w, _ := newTestWorker(t, r)
			_, err := w.From("<p>x</p>").Output(tt.kind, tt.from).Run(context.Background())
			if !errors.Is(err, ErrUnsupportedOutput) {
				t.Fatalf("Run() error = %v, want %v", err, ErrUnsupportedOutput)
			}
			if w.state.container != nil || w.state.document != nil {
				t.Error("no stage should run for an unsupported output")
			}
			if len(r.captures()) != 0 {
				t.Error("rasterizer should not be called")
			}
		})
	}
}

func TestOutput_ExportIsAlias(t *testing.T) {
	t.Parallel()

	w, _ := newTestWorker(t, &fakeRasterizer{height: 10})
	v, err := w.From("<p>x</p>").Export(OutputBase64, FromDocument).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if _, ok := v.(string); !ok {
		t.Errorf("value = %T, want string", v)
	}
}

func TestOutput_AppliesProperties(t *testing.T) {
	t.Parallel()

	w, doc := newTestWorker(t, &fakeRasterizer{height: 10})
	_, err := w.
		Set(Options{KeyProperties: map[string]any{"title": "Quarterly", "author": "Ops"}}).
		From("<p>x</p>").
		Output(OutputBytes, "").
		Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if p := doc().props; p.Title != "Quarterly" || p.Author != "Ops" {
		t.Errorf("properties = %+v", p)
	}
}

// ---------------------------------------------------------------------------
// Save
// ---------------------------------------------------------------------------

func TestSave(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.pdf")
	w, doc := newTestWorker(t, &fakeRasterizer{height: 10})
	v, err := w.From("<p>x</p>").SaveAs(path, Properties{Title: "Saved"}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if v != path {
		t.Errorf("Run() = %v, want %s", v, path)
	}
	if doc().saved != path || doc().props.Title != "Saved" {
		t.Errorf("saved = %q with %+v", doc().saved, doc().props)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("output file missing: %v", err)
	}
}

func TestSave_ReusesDocument(t *testing.T) {
	t.Parallel()

	r := &fakeRasterizer{height: 10}
	w, doc := newTestWorker(t, r)
	dir := t.TempDir()

	_, err := w.
		From("<p>x</p>").
		To(TargetDocument).
		Save(filepath.Join(dir, "a.pdf")).
		Save(filepath.Join(dir, "b.pdf")).
		Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(r.captures()) != 1 || doc().PageCount() != 1 {
		t.Errorf("captures = %d, pages = %d, want 1 and 1", len(r.captures()), doc().PageCount())
	}
}

func TestSave_WriteError(t *testing.T) {
	t.Parallel()

	w, _ := newTestWorker(t, &fakeRasterizer{height: 10})
	_, err := w.From("<p>x</p>").Save(filepath.Join(t.TempDir(), "missing", "out.pdf")).Run(context.Background())
	if !errors.Is(err, ErrDocument) {
		t.Errorf("Run() error = %v, want %v", err, ErrDocument)
	}
}

// ---------------------------------------------------------------------------
// gofpdf
// ---------------------------------------------------------------------------

func TestBytes_RealDocument(t *testing.T) {
	t.Parallel()

	pxH := defaultPage(t).Inner.PxHeight
	r := &fakeRasterizer{height: 2.5 * float64(pxH)}
	w := New(WithRasterizer(r))
	t.Cleanup(func() { _ = w.Close() })

	data, err := w.
		Set(Options{KeyMargin: 10, KeyProperties: Properties{Title: "Real"}}).
		From("<p>x</p>").
		Bytes(context.Background())
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}

	info, err := pdfdoc.Inspect(data)
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
	if info.Pages != 3 {
		t.Errorf("pages = %d, want 3", info.Pages)
	}
}

func TestSave_AfterOutputAppliesPropertiesAndNewPages(t *testing.T) {
	t.Parallel()

	w := New(WithRasterizer(&fakeRasterizer{height: 10}))
	t.Cleanup(func() { _ = w.Close() })
	ctx := context.Background()

	first, err := w.From("<p>x</p>").Bytes(ctx)
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	if info, err := pdfdoc.Inspect(first); err != nil || info.Pages != 1 {
		t.Fatalf("first output = (%+v, %v), want 1 page", info, err)
	}

	extra, err := imaging.Decode(pngBytes(t))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	path := filepath.Join(t.TempDir(), "grown.pdf")
	_, err = w.
		Set(Options{KeyImgs: []*imaging.Encoded{extra, extra}}).
		To(TargetDocument).
		Save(path, Properties{Title: "After output"}).
		Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	if info, err := pdfdoc.Inspect(data); err != nil || info.Pages != 2 {
		t.Errorf("saved = (%+v, %v), want 2 pages", info, err)
	}
	if !bytes.Contains(data, []byte("/Title")) {
		t.Error("saved document is missing the title passed to Save")
	}
}

func TestConvert(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "converted.pdf")
	err := Convert(context.Background(), "<h1>Hi</h1>", path, Options{KeyImage: map[string]any{"type": "png"}},
		WithRasterizer(&fakeRasterizer{height: 10}))
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	if info, err := pdfdoc.Inspect(data); err != nil || info.Pages != 1 {
		t.Errorf("Inspect() = (%+v, %v), want 1 page", info, err)
	}
}

// ---------------------------------------------------------------------------
// Checks
// ---------------------------------------------------------------------------

func wantBytes(want []byte) func(*testing.T, any) {
	return func(t *testing.T, v any) {
		t.Helper()
		if got, ok := v.([]byte); !ok || !bytes.Equal(got, want) {
			t.Errorf("value = %v, want %q", v, want)
		}
	}
}

func wantString(want string) func(*testing.T, any) {
	return func(t *testing.T, v any) {
		t.Helper()
		if v != want {
			t.Errorf("value = %v, want %q", v, want)
		}
	}
}

func wantPrefix(prefix string) func(*testing.T, any) {
	return func(t *testing.T, v any) {
		t.Helper()
		if s, ok := v.(string); !ok || !strings.HasPrefix(s, prefix) {
			t.Errorf("value = %v, want prefix %q", v, prefix)
		}
	}
}
