package service

import (
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"math"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	thumbnailSize    = 256
	thumbnailQuality = 85
)

// renderThumbnail decodes an image and writes a JPEG whose longest side is at
// most size pixels. Images already smaller are not upscaled.
func renderThumbnail(src io.Reader, dst io.Writer, size int) error {
	img, _, err := image.Decode(src)
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid image dimensions %dx%d", width, height)
	}

	scale := float64(size) / float64(max(width, height))
	if scale > 1 {
		scale = 1
	}

	targetWidth := max(1, int(math.Round(float64(width)*scale)))
	targetHeight := max(1, int(math.Round(float64(height)*scale)))

	scaled := image.NewRGBA(image.Rect(0, 0, targetWidth, targetHeight))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), img, bounds, draw.Over, nil)

	return jpeg.Encode(dst, scaled, &jpeg.Options{Quality: thumbnailQuality})
}
