package markdown

import (
	"context"
	"strings"
	"testing"
)

// Notes:
// - Conversion is checked on substrings; goldmark's exact whitespace is not
//   part of the contract.

func TestConverter_ToFragment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		input        string
		wantContains []string
		wantExcludes []string
	}{
		{
			name:         "heading gets id",
			input:        "# Title",
			wantContains: []string{`<h1 id="title">Title</h1>`},
			wantExcludes: []string{"<html", "<body"},
		},
		{
			name:         "gfm table",
			input:        "| a | b |\n|---|---|\n| 1 | 2 |",
			wantContains: []string{"<table>", "<td>1</td>"},
		},
		{
			name:         "highlight",
			input:        "some ==marked== text",
			wantContains: []string{"<mark>marked</mark>"},
		},
		{
			name:         "highlight kept literal in fence",
			input:        "```\na ==b== c\n```",
			wantContains: []string{"==b=="},
			wantExcludes: []string{"<mark>"},
		},
		{
			name:         "raw html escaped",
			input:        "<script>alert(1)</script>",
			wantExcludes: []string{"<script>"},
		},
		{
			name:         "code highlighted with classes",
			input:        "```go\nfunc main() {}\n```",
			wantContains: []string{`class="chroma"`},
		},
	}

	c := NewConverter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := c.ToFragment(context.Background(), tt.input)
			if err != nil {
				t.Fatalf("ToFragment() error = %v", err)
			}
			for _, want := range tt.wantContains {
				if !strings.Contains(got, want) {
					t.Errorf("ToFragment() = %q, want to contain %q", got, want)
				}
			}
			for _, exclude := range tt.wantExcludes {
				if strings.Contains(got, exclude) {
					t.Errorf("ToFragment() = %q, should not contain %q", got, exclude)
				}
			}
		})
	}
}

func TestConverter_ToFragment_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewConverter().ToFragment(ctx, "# x"); err != context.Canceled {
		t.Errorf("ToFragment() error = %v, want %v", err, context.Canceled)
	}
}

func TestPreprocess(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "crlf", input: "a\r\nb\rc", want: "a\nb\nc"},
		{name: "blank lines compressed", input: "a\n\n\n\nb", want: "a\n\nb"},
		{name: "highlight", input: "==x==", want: markStart + "x" + markEnd},
		{name: "unterminated highlight", input: "==x", want: "==x"},
		{name: "tilde fence", input: "~~~\n==x==\n~~~", want: "~~~\n==x==\n~~~"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := Preprocess(tt.input); got != tt.want {
				t.Errorf("Preprocess(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
