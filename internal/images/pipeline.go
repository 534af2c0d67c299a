package images

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"math"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// MaxFileSize is the upload ceiling checked before any decoding.
const MaxFileSize = 10 << 20

var (
	ErrFileTooLarge = errors.New("image too large")
	ErrEmptyFile    = errors.New("empty image file")
)

type Format int

const (
	JPEG Format = iota
	PNG
)

// CheckSize rejects files above MaxFileSize.
func CheckSize(size int64) error {
	if size <= 0 {
		return ErrEmptyFile
	}
	if size > MaxFileSize {
		return fmt.Errorf("%w: %.1f MB, images must be 10 MB or smaller",
			ErrFileTooLarge, float64(size)/(1<<20))
	}
	return nil
}

// ScaledSize returns the output dimensions for an image of w x h. Only images
// whose longer side exceeds max are shrunk; the aspect ratio is kept.
func ScaledSize(w, h, max int) (int, int) {
	if max <= 0 || (w <= max && h <= max) {
		return w, h
	}
	if w >= h {
		return max, int(math.Round(float64(h) * float64(max) / float64(w)))
	}
	return int(math.Round(float64(w) * float64(max) / float64(h))), max
}

// Process decodes data, shrinks it to fit maxDimension and re-encodes it.
// quality is in the 0-1 range and only applies to JPEG output.
func Process(data []byte, maxDimension int, quality float64, format Format) ([]byte, error) {
	if err := CheckSize(int64(len(data))); err != nil {
		return nil, err
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	b := src.Bounds()
	w, h := ScaledSize(b.Dx(), b.Dy(), maxDimension)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	op := draw.Src
	if format == JPEG {
		// JPEG has no alpha channel; flatten onto white
		draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
		op = draw.Over
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, op, nil)

	var buf bytes.Buffer
	switch format {
	case PNG:
		err = png.Encode(&buf, dst)
	default:
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality(quality)})
	}
	if err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}

func jpegQuality(q float64) int {
	n := int(math.Round(q * 100))
	if n < 1 {
		return 1
	}
	if n > 100 {
		return 100
	}
	return n
}
