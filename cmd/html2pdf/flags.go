package main

import (
	"io"

	flag "github.com/spf13/pflag"
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// pageFlags holds page geometry flags.
type pageFlags struct {
	format      string
	orientation string
	unit        string
	margin      string // 1, 2 or 4 numbers, comma or space separated
}

// renderFlags holds browser and capture flags.
type renderFlags struct {
	backend    string
	remoteURL  string
	scale      float64
	background string
	imageType  string
	quality    float64
	selector   string
	noLinks    bool
}

// assetFlags holds stylesheet flags.
type assetFlags struct {
	style     string // embedded or custom style name
	css       string // extra CSS file
	assetPath string // custom asset directory
}

// propertyFlags holds PDF metadata flags.
type propertyFlags struct {
	title    string
	subject  string
	author   string
	keywords string
}

// convertFlags holds all flags for the convert command.
type convertFlags struct {
	common     commonFlags
	output     string
	workers    int
	timeout    string
	page       pageFlags
	render     renderFlags
	assets     assetFlags
	properties propertyFlags
}

func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show timing and debug logs")
}

func addPageFlags(fs *flag.FlagSet, f *pageFlags) {
	fs.StringVarP(&f.format, "page-size", "p", "", "paper format: a4, letter, legal, ...")
	fs.StringVar(&f.orientation, "orientation", "", "portrait or landscape")
	fs.StringVar(&f.unit, "unit", "", "page unit: mm, pt, cm, in")
	fs.StringVarP(&f.margin, "margin", "m", "", "margin in page units: \"10\", \"10,20\" or \"10,20,10,20\"")
}

func addRenderFlags(fs *flag.FlagSet, f *renderFlags) {
	fs.StringVar(&f.backend, "backend", "", "browser backend: rod or chromedp")
	fs.StringVar(&f.remoteURL, "remote-url", "", "connect to a running browser instead of launching one")
	fs.Float64Var(&f.scale, "scale", 0, "device pixel ratio of the capture")
	fs.StringVar(&f.background, "background", "", "capture background color")
	fs.StringVar(&f.imageType, "image-type", "", "page image encoding: jpeg or png")
	fs.Float64Var(&f.quality, "quality", 0, "JPEG quality in (0, 1]")
	fs.StringVarP(&f.selector, "selector", "s", "", "convert only the first element matching this CSS selector")
	fs.BoolVar(&f.noLinks, "no-links", false, "do not add clickable link areas")
}

func addAssetFlags(fs *flag.FlagSet, f *assetFlags) {
	fs.StringVar(&f.style, "style", "", "stylesheet name (default, markdown, minimal)")
	fs.StringVar(&f.css, "css", "", "extra CSS file")
	fs.StringVar(&f.assetPath, "asset-path", "", "directory holding custom styles/")
}

func addPropertyFlags(fs *flag.FlagSet, f *propertyFlags) {
	fs.StringVar(&f.title, "title", "", "PDF title")
	fs.StringVar(&f.subject, "subject", "", "PDF subject")
	fs.StringVar(&f.author, "author", "", "PDF author")
	fs.StringVar(&f.keywords, "keywords", "", "PDF keywords")
}

// newConvertFlagSet registers every convert flag into f.
func newConvertFlagSet(f *convertFlags) *flag.FlagSet {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)

	fs.StringVarP(&f.output, "output", "o", "", "output file or directory")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel browsers (0 = auto)")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "page load timeout (e.g. 30s, 2m)")

	addCommonFlags(fs, &f.common)
	addPageFlags(fs, &f.page)
	addRenderFlags(fs, &f.render)
	addAssetFlags(fs, &f.assets)
	addPropertyFlags(fs, &f.properties)
	return fs
}

// parseConvertFlags parses convert command flags and returns positional args.
// Usage goes to stderr on --help.
func parseConvertFlags(args []string, stderr io.Writer) (*convertFlags, []string, error) {
	f := &convertFlags{}
	fs := newConvertFlagSet(f)
	fs.SetOutput(stderr)
	fs.Usage = func() { printConvertUsage(stderr) }

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}
