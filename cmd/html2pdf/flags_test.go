package main

import (
	"bytes"
	"errors"
	"slices"
	"strings"
	"testing"

	flag "github.com/spf13/pflag"
)

func TestParseConvertFlags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		args     []string
		check    func(t *testing.T, f *convertFlags)
		wantArgs []string
		wantErr  bool
	}{
		{
			name:     "positional and short flags",
			args:     []string{"docs/", "-o", "out", "-w", "3", "-q", "-p", "letter", "-m", "10,20", "-s", "#main"},
			wantArgs: []string{"docs/"},
			check: func(t *testing.T, f *convertFlags) {
				if f.output != "out" || f.workers != 3 || !f.common.quiet {
					t.Errorf("flags = %+v", f)
				}
				if f.page.format != "letter" || f.page.margin != "10,20" || f.render.selector != "#main" {
					t.Errorf("page = %+v, selector = %q", f.page, f.render.selector)
				}
			},
		},
		{
			name: "long flags",
			args: []string{
				"page.html", "--backend", "chromedp", "--scale", "1.5", "--image-type", "png",
				"--quality", "0.8", "--no-links", "--style", "minimal", "--css", "extra.css",
				"--title", "T", "--author", "A", "--timeout", "90s", "--orientation", "landscape", "--unit", "in",
			},
			wantArgs: []string{"page.html"},
			check: func(t *testing.T, f *convertFlags) {
				r := f.render
				if r.backend != "chromedp" || r.scale != 1.5 || r.imageType != "png" || r.quality != 0.8 || !r.noLinks {
					t.Errorf("render = %+v", r)
				}
				if f.assets.style != "minimal" || f.assets.css != "extra.css" {
					t.Errorf("assets = %+v", f.assets)
				}
				if f.properties.title != "T" || f.properties.author != "A" || f.timeout != "90s" {
					t.Errorf("properties = %+v, timeout = %q", f.properties, f.timeout)
				}
				if f.page.orientation != "landscape" || f.page.unit != "in" {
					t.Errorf("page = %+v", f.page)
				}
			},
		},
		{name: "unknown flag", args: []string{"--watermark", "x"}, wantErr: true},
		{name: "bad int", args: []string{"-w", "many"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var stderr bytes.Buffer
			f, args, err := parseConvertFlags(tt.args, &stderr)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseConvertFlags() error = %v", err)
			}
			if !slices.Equal(args, tt.wantArgs) {
				t.Errorf("args = %v, want %v", args, tt.wantArgs)
			}
			tt.check(t, f)
			if stderr.Len() != 0 {
				t.Errorf("stderr = %q, want empty", stderr.String())
			}
		})
	}
}

func TestParseConvertFlags_Help(t *testing.T) {
	t.Parallel()

	var stderr bytes.Buffer
	_, _, err := parseConvertFlags([]string{"--help"}, &stderr)
	if !errors.Is(err, flag.ErrHelp) {
		t.Errorf("error = %v, want %v", err, flag.ErrHelp)
	}
	if !strings.Contains(stderr.String(), "--margin") {
		t.Errorf("stderr = %q, want convert usage", stderr.String())
	}
}

// TestConvertUsage_ListsEveryFlag keeps the hand-written usage in step with
// the registered flags.
func TestConvertUsage_ListsEveryFlag(t *testing.T) {
	t.Parallel()

	var usage bytes.Buffer
	printConvertUsage(&usage)

	newConvertFlagSet(&convertFlags{}).VisitAll(func(f *flag.Flag) {
		if !strings.Contains(usage.String(), "--"+f.Name) {
			t.Errorf("usage does not mention --%s", f.Name)
		}
	})
}
