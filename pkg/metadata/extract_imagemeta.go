// extract_imagemeta.go - Streaming extractor for JPEG, PNG, WebP, TIFF and HEIF.
package metadata

import (
	"bytes"
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/bep/imagemeta"
	"k8s.io/klog/v2"
)

// ImagemetaExtractor reads EXIF through github.com/bep/imagemeta, which also
// understands the PNG, WebP and HEIF containers goexif cannot open.
type ImagemetaExtractor struct{}

// Extract implements Extractor.
func (ImagemetaExtractor) Extract(ctx context.Context, r io.ReadSeeker) Raw {
	format, ok := sniffFormat(r)
	if !ok {
		klog.V(1).Infof("imagemeta: unrecognized container")
		return Raw{}
	}

	var tags imagemeta.Tags
	_, err := imagemeta.Decode(imagemeta.Options{
		R:           r,
		ImageFormat: format,
		Sources:     imagemeta.EXIF,
		HandleTag: func(ti imagemeta.TagInfo) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			tags.Add(ti)
			return nil
		},
	})
	if err != nil {
		klog.V(1).Infof("imagemeta: decode: %v", err)
		return Raw{}
	}

	t := tags.EXIF()
	var raw Raw
	raw.Camera.Make = tagString(t, "Make")
	raw.Camera.Model = tagString(t, "Model")
	raw.Lens.Make = tagString(t, "LensMake")
	raw.Lens.Model = tagString(t, "LensModel")
	raw.Lens.FocalLength = tagFloat(t, "FocalLength")
	raw.Exposure.FNumber = tagFloat(t, "FNumber")
	raw.Exposure.ExposureTime = tagFloat(t, "ExposureTime")
	raw.Exposure.ISO = int(tagFloat(t, "ISOSpeedRatings"))
	raw.Capture.DateTime = tagString(t, "DateTimeOriginal")
	if raw.Capture.DateTime == "" {
		raw.Capture.DateTime = tagString(t, "DateTime")
	}
	return raw
}

// sniffFormat maps magic bytes to an imagemeta.ImageFormat and rewinds r.
func sniffFormat(r io.ReadSeeker) (imagemeta.ImageFormat, bool) {
	head := make([]byte, 12)
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, false
	}
	n, _ := io.ReadFull(r, head)
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, false
	}
	head = head[:n]

	switch {
	case bytes.HasPrefix(head, []byte{0xFF, 0xD8}):
		return imagemeta.JPEG, true
	case bytes.HasPrefix(head, []byte("\x89PNG")):
		return imagemeta.PNG, true
	case bytes.HasPrefix(head, []byte("II*\x00")), bytes.HasPrefix(head, []byte("MM\x00*")):
		return imagemeta.TIFF, true
	case len(head) >= 12 && string(head[:4]) == "RIFF" && string(head[8:12]) == "WEBP":
		return imagemeta.WebP, true
	case len(head) >= 12 && string(head[4:8]) == "ftyp":
		if string(head[8:12]) == "avif" {
			return imagemeta.AVIF, true
		}
		return imagemeta.HEIF, true
	}
	return 0, false
}

func tagString(tags map[string]imagemeta.TagInfo, name string) string {
	ti, ok := tags[name]
	if !ok {
		return ""
	}
	s, ok := ti.Value.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(strings.TrimRight(s, "\x00"))
}

func tagFloat(tags map[string]imagemeta.TagInfo, name string) float64 {
	ti, ok := tags[name]
	if !ok {
		return 0
	}
	return toFloat(ti.Value)
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case imagemeta.Rat[uint32]:
		return n.Float64()
	case imagemeta.Rat[int32]:
		return n.Float64()
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case []uint16:
		if len(n) > 0 {
			return float64(n[0])
		}
	case []any:
		if len(n) > 0 {
			return toFloat(n[0])
		}
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err == nil {
			return f
		}
	}
	return 0
}
