// Package markdown converts Markdown sources into HTML fragments that the
// worker can clone into its container.
//
// Conversion runs goldmark with GFM, footnotes and chroma class-based
// highlighting. Raw HTML in the Markdown is not passed through; the
// ==highlight== syntax is carried through goldmark as private-use
// placeholders and turned into <mark> elements afterwards.
package markdown

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// ErrConversion indicates goldmark failed to render the source.
var ErrConversion = errors.New("markdown conversion failed")

// Highlight placeholders pass through goldmark unchanged.
const (
	markStart = "\uE000"
	markEnd   = "\uE001"
)

var (
	crlfOrCR           = regexp.MustCompile(`\r\n?`)
	multipleBlankLines = regexp.MustCompile(`\n{3,}`)
	highlightPattern   = regexp.MustCompile(`==([^=\n]+?)==`)
	fencePattern       = regexp.MustCompile("^\\s{0,3}(```|~~~)")
)

// Converter renders Markdown to HTML fragments.
type Converter struct {
	md goldmark.Markdown
}

// NewConverter creates a Converter with GFM extensions and syntax
// highlighting.
func NewConverter() *Converter {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Footnote,
			highlighting.NewHighlighting(
				highlighting.WithFormatOptions(chromahtml.WithClasses(true)),
			),
		),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
	)
	return &Converter{md: md}
}

// ToFragment converts content to an HTML fragment without a document
// wrapper. Goldmark has no context support, so conversion runs in a
// goroutine and ctx only bounds the wait.
func (c *Converter) ToFragment(ctx context.Context, content string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	type result struct {
		html string
		err  error
	}
	done := make(chan result, 1)

	go func() {
		var buf bytes.Buffer
		if err := c.md.Convert([]byte(Preprocess(content)), &buf); err != nil {
			done <- result{err: fmt.Errorf("%w: %v", ErrConversion, err)}
			return
		}
		done <- result{html: convertMarks(buf.String())}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		return r.html, r.err
	}
}

// Preprocess normalizes line endings, compresses runs of blank lines and
// marks ==highlight== spans outside fenced code blocks.
func Preprocess(content string) string {
	content = crlfOrCR.ReplaceAllString(content, "\n")
	content = multipleBlankLines.ReplaceAllString(content, "\n\n")

	lines := strings.Split(content, "\n")
	inFence := false
	for i, line := range lines {
		if fencePattern.MatchString(line) {
			inFence = !inFence
			continue
		}
		if !inFence {
			lines[i] = highlightPattern.ReplaceAllString(line, markStart+"$1"+markEnd)
		}
	}
	return strings.Join(lines, "\n")
}

func convertMarks(s string) string {
	return strings.NewReplacer(markStart, "<mark>", markEnd, "</mark>").Replace(s)
}
