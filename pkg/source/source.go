// Package source validates uploaded photos and decodes them to bitmaps.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/dustin/go-humanize"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp"
	"k8s.io/klog/v2"
)

// DefaultMaxBytes is the default upload limit.
const DefaultMaxBytes = 20 << 20

var (
	// ErrValidation is wrapped by every Validate failure.
	ErrValidation = errors.New("invalid file")
	// ErrDecodeFailed means the bytes could not be turned into a bitmap.
	ErrDecodeFailed = errors.New("decode failed")
)

// Accepted media types.
var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/heic": true,
	"image/heif": true,
}

// MIMEType returns the media type for a file name based on its extension,
// or "" when unknown.
func MIMEType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	}
	t := mime.TypeByExtension(ext)
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = t[:i]
	}
	return t
}

// Validate checks an upload before decoding. An empty mimeType is derived
// from the name. maxBytes <= 0 means DefaultMaxBytes.
func Validate(name string, size int64, mimeType string, maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if mimeType == "" {
		mimeType = MIMEType(name)
	}
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if mimeType == "image/jpg" {
		mimeType = "image/jpeg"
	}
	if !allowedTypes[mimeType] {
		return fmt.Errorf("%w: Unsupported file type. Please use JPEG, PNG, WebP or HEIC files.", ErrValidation)
	}
	if size > maxBytes {
		return TooLarge(maxBytes)
	}
	return nil
}

// TooLarge is the Validate error for files over maxBytes.
func TooLarge(maxBytes int64) error {
	return fmt.Errorf("%w: File too large. Maximum size is %s.", ErrValidation, humanize.IBytes(uint64(maxBytes)))
}

// Image is a decoded source photo with orientation applied.
type Image struct {
	Bitmap image.Image
	Width  int
	Height int
	Format string // decoder name: "jpeg", "png" or "webp"
}

// Aspect returns Width/Height.
func (i *Image) Aspect() float64 {
	if i == nil || i.Height == 0 {
		return 0
	}
	return float64(i.Width) / float64(i.Height)
}

// Load decodes data and applies its EXIF orientation.
func Load(ctx context.Context, data []byte) (*Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if isHEIF(data) {
			return nil, fmt.Errorf("%w: HEIC/HEIF images have no decoder; convert to JPEG first", ErrDecodeFailed)
		}
		return nil, fmt.Errorf("%w: %w", ErrDecodeFailed, err)
	}

	if format == "jpeg" {
		img = applyOrientation(img, orientation(bytes.NewReader(data)))
	}

	b := img.Bounds()
	return &Image{Bitmap: img, Width: b.Dx(), Height: b.Dy(), Format: format}, nil
}

// orientation reads the EXIF orientation tag. Missing or unreadable
// EXIF counts as 1 (upright).
func orientation(r io.Reader) int {
	x, err := exif.Decode(r)
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	o, err := tag.Int(0)
	if err != nil {
		return 1
	}
	return o
}

// applyOrientation undoes the camera rotation recorded in EXIF. imaging's
// Rotate90/Rotate270 turn counter-clockwise/clockwise respectively.
func applyOrientation(img image.Image, o int) image.Image {
	switch o {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	case 1:
		return img
	}
	klog.V(1).Infof("ignoring unknown EXIF orientation %d", o)
	return img
}

// isHEIF reports whether data starts with an ISO-BMFF ftyp box of a
// HEIF brand.
func isHEIF(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "hevc", "hevx", "mif1", "msf1", "heim", "heis":
		return true
	}
	return false
}
