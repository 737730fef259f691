// Package generator encodes rendered overlays as PNG or JPEG.
//
// All output follows a unified pipeline: render an image.Image first, then
// encode it to a writer, a data URL, or a file through a Saver.
package generator

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"strings"
)

// Format is an output encoding.
type Format string

const (
	PNG  Format = "png"
	JPEG Format = "jpeg"
)

// UnmarshalText implements encoding.TextUnmarshaler. "jpg" is accepted as JPEG.
func (f *Format) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "png", "":
		*f = PNG
	case "jpeg", "jpg":
		*f = JPEG
	default:
		return fmt.Errorf("unsupported format %q: use png or jpeg", text)
	}
	return nil
}

func (f Format) String() string { return string(f) }

// MIME returns the media type of f.
func (f Format) MIME() string {
	if f == JPEG {
		return "image/jpeg"
	}
	return "image/png"
}

// Ext returns the file extension of f, including the dot.
func (f Format) Ext() string {
	if f == JPEG {
		return ".jpg"
	}
	return ".png"
}

// Quality bounds accepted from settings.
const (
	MinQuality     = 0.1
	MaxQuality     = 1.0
	DefaultQuality = 0.95
)

// ClampQuality limits q to [MinQuality, MaxQuality]; zero or NaN means DefaultQuality.
func ClampQuality(q float64) float64 {
	if q == 0 || math.IsNaN(q) {
		return DefaultQuality
	}
	return math.Min(math.Max(q, MinQuality), MaxQuality)
}

// jpegQuality maps a 0.1–1 quality onto image/jpeg's 1–100 scale.
func jpegQuality(q float64) int {
	return min(max(int(math.Round(ClampQuality(q)*100)), 1), 100)
}

// Encode writes img to w. quality is ignored for PNG.
func Encode(w io.Writer, img image.Image, format Format, quality float64) error {
	switch format {
	case PNG, "":
		if err := png.Encode(w, img); err != nil {
			return fmt.Errorf("encode PNG: %w", err)
		}
	case JPEG:
		if err := jpeg.Encode(w, img, &jpeg.Options{Quality: jpegQuality(quality)}); err != nil {
			return fmt.Errorf("encode JPEG: %w", err)
		}
	default:
		return fmt.Errorf("unsupported format %q: use png or jpeg", format)
	}
	return nil
}

// EncodeBytes is Encode into memory.
func EncodeBytes(img image.Image, format Format, quality float64) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, img, format, quality); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DataURL encodes img as an embeddable data URI.
func DataURL(img image.Image, format Format, quality float64) (string, error) {
	data, err := EncodeBytes(img, format, quality)
	if err != nil {
		return "", err
	}
	if format == "" {
		format = PNG
	}
	return "data:" + format.MIME() + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
