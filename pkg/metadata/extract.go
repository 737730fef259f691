// extract.go - Extractor collaborators: raw image bytes -> Raw record.
package metadata

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
	"k8s.io/klog/v2"
)

// Extractor reads camera metadata from an encoded image. Implementations
// never return an error: any failure yields a zero Raw.
type Extractor interface {
	Extract(ctx context.Context, r io.ReadSeeker) Raw
}

// Backend names an Extractor implementation.
type Backend string

const (
	BackendGoexif    Backend = "goexif"
	BackendImagemeta Backend = "imagemeta"
	BackendExiftool  Backend = "exiftool"
)

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *Backend) UnmarshalText(text []byte) error {
	switch v := Backend(strings.ToLower(strings.TrimSpace(string(text)))); v {
	case BackendGoexif, BackendImagemeta, BackendExiftool:
		*b = v
	case "":
		*b = BackendGoexif
	default:
		return fmt.Errorf("unknown metadata backend %q: use goexif, imagemeta or exiftool", text)
	}
	return nil
}

func (b Backend) String() string { return string(b) }

// NewExtractor returns the extractor for backend. exiftoolPath is only used
// by the exiftool backend and may be empty to search $PATH.
func NewExtractor(backend Backend, exiftoolPath string) Extractor {
	switch backend {
	case BackendImagemeta:
		return ImagemetaExtractor{}
	case BackendExiftool:
		return &ExiftoolExtractor{BinaryPath: exiftoolPath}
	default:
		return GoexifExtractor{}
	}
}

// ExtractBytes is a convenience wrapper over an in-memory file.
func ExtractBytes(ctx context.Context, e Extractor, data []byte) Raw {
	return e.Extract(ctx, bytes.NewReader(data))
}

// ── goexif ──

// GoexifExtractor reads TIFF/EXIF blocks from JPEG (and raw TIFF) files.
type GoexifExtractor struct{}

// Extract implements Extractor.
func (GoexifExtractor) Extract(_ context.Context, r io.ReadSeeker) Raw {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return Raw{}
	}
	x, err := exif.Decode(r)
	if err != nil {
		klog.V(1).Infof("goexif: no usable EXIF: %v", err)
		return Raw{}
	}

	var raw Raw
	raw.Camera.Make = exifString(x, exif.Make)
	raw.Camera.Model = exifString(x, exif.Model)
	raw.Lens.Make = exifString(x, exif.LensMake)
	raw.Lens.Model = exifString(x, exif.LensModel)
	raw.Lens.FocalLength = exifRat(x, exif.FocalLength)
	raw.Exposure.FNumber = exifRat(x, exif.FNumber)
	raw.Exposure.ExposureTime = exifRat(x, exif.ExposureTime)
	if tag, err := x.Get(exif.ISOSpeedRatings); err == nil {
		if v, err := tag.Int(0); err == nil {
			raw.Exposure.ISO = v
		}
	}
	raw.Capture.DateTime = exifString(x, exif.DateTimeOriginal)
	if raw.Capture.DateTime == "" {
		raw.Capture.DateTime = exifString(x, exif.DateTime)
	}
	return raw
}

func exifString(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil || tag.Format() != tiff.StringVal {
		return ""
	}
	s, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimRight(s, "\x00"))
}

func exifRat(x *exif.Exif, name exif.FieldName) float64 {
	tag, err := x.Get(name)
	if err != nil {
		return 0
	}
	num, den, err := tag.Rat2(0)
	if err != nil || den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
