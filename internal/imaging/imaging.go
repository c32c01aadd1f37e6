// Package imaging encodes rasterized surfaces into image bytes and data URIs.
package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"math"
	"strings"
)

// Sentinel errors for image encoding.
var (
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrInvalidQuality    = errors.New("image quality must be between 0 and 1")
	ErrInvalidDataURI    = errors.New("invalid data URI")
)

// Supported formats.
const (
	JPEG = "jpeg"
	PNG  = "png"
	GIF  = "gif"
)

// Default encoding settings.
const (
	DefaultFormat  = JPEG
	DefaultQuality = 0.95
)

// Options control encoding.
type Options struct {
	Format  string  `mapstructure:"type" yaml:"type"`
	Quality float64 `mapstructure:"quality" yaml:"quality"`
}

// DefaultOptions returns jpeg at 0.95.
func DefaultOptions() Options {
	return Options{Format: DefaultFormat, Quality: DefaultQuality}
}

// Validate normalizes the format name and checks the quality range.
func (o *Options) Validate() error {
	format, err := NormalizeFormat(o.Format)
	if err != nil {
		return err
	}
	o.Format = format
	if o.Quality < 0 || o.Quality > 1 || math.IsNaN(o.Quality) {
		return fmt.Errorf("%w: got %v", ErrInvalidQuality, o.Quality)
	}
	return nil
}

// NormalizeFormat maps aliases such as jpg and image/png to a format name.
// An empty name is the default format.
func NormalizeFormat(name string) (string, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), "image/") {
	case "", "jpeg", "jpg":
		return JPEG, nil
	case "png":
		return PNG, nil
	case "gif":
		return GIF, nil
	default:
		return "", fmt.Errorf("%w: %q (expected jpeg, png, gif)", ErrUnsupportedFormat, name)
	}
}

// Encoded is an image in its encoded form.
type Encoded struct {
	Format string
	Data   []byte
	Width  int
	Height int
}

// MIME returns the media type of the encoded image.
func (e *Encoded) MIME() string {
	return "image/" + e.Format
}

// DataURI returns the image as a base64 data URI.
func (e *Encoded) DataURI() string {
	return DataURI(e.MIME(), e.Data)
}

// Encode encodes img with opts. JPEG output is flattened onto white
// because the format carries no alpha channel.
func Encode(img image.Image, opts Options) (*Encoded, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	var err error
	switch opts.Format {
	case JPEG:
		q := int(math.Round(opts.Quality * 100))
		q = min(max(q, 1), 100)
		err = jpeg.Encode(&buf, flatten(img), &jpeg.Options{Quality: q})
	case PNG:
		err = png.Encode(&buf, img)
	case GIF:
		err = gif.Encode(&buf, img, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", opts.Format, err)
	}

	b := img.Bounds()
	return &Encoded{Format: opts.Format, Data: buf.Bytes(), Width: b.Dx(), Height: b.Dy()}, nil
}

// Decode reads encoded bytes, detecting the format.
func Decode(data []byte) (*Encoded, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	format, err = NormalizeFormat(format)
	if err != nil {
		return nil, err
	}
	return &Encoded{Format: format, Data: data, Width: cfg.Width, Height: cfg.Height}, nil
}

// DecodeImage decodes encoded bytes to pixels.
func DecodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	return img, nil
}

// DataURI builds a base64 data URI.
func DataURI(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ParseDataURI extracts the media type and payload of a base64 data URI.
func ParseDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, fmt.Errorf("%w: missing data: prefix", ErrInvalidDataURI)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("%w: missing payload separator", ErrInvalidDataURI)
	}
	mime, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", nil, fmt.Errorf("%w: only base64 payloads are supported", ErrInvalidDataURI)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
	}
	return mime, data, nil
}

func flatten(img image.Image) image.Image {
	b := img.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(dst, b, img, b.Min, draw.Over)
	return dst
}
