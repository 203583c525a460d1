// Package assets post-processes downloaded course material.
package assets

import (
	"bytes"
	"context"
	"image"
	_ "image/gif" // GIF decoder registration
	"image/jpeg"
	_ "image/png" // PNG decoder registration
	"os"
	"strings"

	"golang.org/x/image/draw"
)

// ImageService normalizes downloaded slide and figure images: capping
// dimensions and re-encoding as JPEG keeps large lecture screenshots
// from dominating the mirror's disk usage.
type ImageService struct{}

// NewImageService creates a new ImageService.
func NewImageService() *ImageService {
	return &ImageService{}
}

// Resize scales an image to fit within maxWidth x maxHeight, preserving
// aspect ratio, and returns it as JPEG-encoded bytes. Images already
// within bounds are re-encoded without scaling.
//
// Catmull-Rom is used for high-quality downscaling.
func (s *ImageService) Resize(ctx context.Context, data []byte, maxWidth, maxHeight int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width > maxWidth || height > maxHeight {
		ratio := float64(width) / float64(height)
		if float64(maxWidth)/float64(maxHeight) > ratio {
			width = int(float64(maxHeight) * ratio)
			height = maxHeight
		} else {
			height = int(float64(maxWidth) / ratio)
			width = maxWidth
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ConvertToJPEG re-encodes an image (PNG, GIF, JPEG) as JPEG with 90%
// quality.
func (s *ImageService) ConvertToJPEG(ctx context.Context, data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// NormalizeFile converts the image at path to a JPEG next to the
// original, returning the new path. A positive maxSize also bounds the
// dimensions; zero or less converts without resizing. A file that
// already carries a .jpg name is normalized in place. The original is
// removed on success.
func (s *ImageService) NormalizeFile(ctx context.Context, path string, maxSize int) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	var normalized []byte
	if maxSize > 0 {
		normalized, err = s.Resize(ctx, data, maxSize, maxSize)
	} else {
		normalized, err = s.ConvertToJPEG(ctx, data)
	}
	if err != nil {
		return "", err
	}

	outPath := path
	if ext := strings.ToLower(lastExt(path)); ext != ".jpg" && ext != ".jpeg" {
		outPath = strings.TrimSuffix(path, lastExt(path)) + ".jpg"
	}
	if err := os.WriteFile(outPath, normalized, 0644); err != nil {
		return "", err
	}
	if outPath != path {
		os.Remove(path)
	}
	return outPath, nil
}

func lastExt(path string) string {
	if i := strings.LastIndex(path, "."); i >= 0 {
		return path[i:]
	}
	return ""
}
