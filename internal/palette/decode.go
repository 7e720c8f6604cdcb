package palette

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	// MaxEdge is the longest edge an image is sampled at.
	MaxEdge = 100
	// MaxPixels is the largest image Decode accepts.
	MaxPixels = 25_000_000
)

var ErrImageTooLarge = errors.New("image too large")

// Decode reads a jpeg, png, gif or webp image. The header is checked first so
// oversized images are rejected before their pixels are allocated.
func Decode(data []byte) (image.Image, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, "", fmt.Errorf("%w: %s %dx%d", ErrImageTooLarge, format, cfg.Width, cfg.Height)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	return img, format, nil
}

// Downscale shrinks img so that its longest edge is at most MaxEdge, smaller
// images are returned as is.
func Downscale(img image.Image) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= MaxEdge && h <= MaxEdge {
		return img
	}

	if w >= h {
		h = max(1, h*MaxEdge/w)
		w = MaxEdge
	} else {
		w = max(1, w*MaxEdge/h)
		h = MaxEdge
	}

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
	return dst
}
