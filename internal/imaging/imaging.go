// Package imaging prepares kiosk captures for storage on attendance records.
package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const jpegQuality = 85

// ErrEmpty is returned for an empty capture.
var ErrEmpty = errors.New("empty image")

// DecodeCapture accepts raw base64 or a data URL ("data:image/jpeg;base64,...").
func DecodeCapture(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, ","); strings.HasPrefix(s, "data:") && i >= 0 {
		s = s[i+1:]
	}
	if s == "" {
		return nil, ErrEmpty
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decoding capture: %w", err)
	}
	return data, nil
}

// fit returns the size of a w x h image scaled to fit within maxSize.
func fit(w, h, maxSize int) (int, int) {
	if maxSize <= 0 || (w <= maxSize && h <= maxSize) {
		return w, h
	}
	if w > h {
		return maxSize, max(1, int(float64(h)*float64(maxSize)/float64(w)))
	}
	return max(1, int(float64(w)*float64(maxSize)/float64(h))), maxSize
}

// Normalize decodes any supported image, shrinks it to fit within maxSize
// keeping the aspect ratio and re-encodes it as JPEG.
func Normalize(data []byte, maxSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := fit(bounds.Dx(), bounds.Dy(), maxSize)
	out := img
	if w != bounds.Dx() || h != bounds.Dy() {
		resized := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
		out = resized
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
