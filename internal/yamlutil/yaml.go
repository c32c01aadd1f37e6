// Package yamlutil keeps goccy/go-yaml behind a small API with an input
// size limit, so callers never import the YAML library directly.
package yamlutil

import (
	"errors"
	"fmt"

	"github.com/goccy/go-yaml"
)

// MaxInputSize limits YAML input (default 1MB).
var MaxInputSize = 1 << 20

var (
	ErrNilData        = errors.New("yamlutil: nil or empty data")
	ErrNilDestination = errors.New("yamlutil: nil destination pointer")
	ErrInputTooLarge  = errors.New("yamlutil: input exceeds maximum size")
)

// UnmarshalStrict decodes data into v and rejects unknown fields.
func UnmarshalStrict(data []byte, v any) error {
	switch {
	case len(data) == 0:
		return ErrNilData
	case len(data) > MaxInputSize:
		return fmt.Errorf("%w: %d bytes (max %d)", ErrInputTooLarge, len(data), MaxInputSize)
	case v == nil:
		return ErrNilDestination
	}
	if err := yaml.UnmarshalWithOptions(data, v, yaml.Strict()); err != nil {
		return fmt.Errorf("yamlutil: %w", err)
	}
	return nil
}
