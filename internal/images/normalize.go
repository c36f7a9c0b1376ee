// Package images prepares uploaded event images for storage.
package images

import (
	"fmt"

	"github.com/h2non/bimg"
)

const (
	MaxWidth    = 1600
	JPEGQuality = 85
)

// Normalize re-encodes data as JPEG, shrinking it to MaxWidth when wider.
// It satisfies storage.Transformer.
func Normalize(data []byte) ([]byte, string, error) {
	img := bimg.NewImage(data)
	size, err := img.Size()
	if err != nil {
		return nil, "", fmt.Errorf("read image size: %w", err)
	}

	options := bimg.Options{
		Type:          bimg.JPEG,
		Quality:       JPEGQuality,
		StripMetadata: true,
	}
	if size.Width > MaxWidth {
		options.Width = MaxWidth
	}

	out, err := img.Process(options)
	if err != nil {
		return nil, "", fmt.Errorf("process image: %w", err)
	}
	return out, "image/jpeg", nil
}
