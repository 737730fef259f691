package render

import (
	"image/color"
	"math"

	"github.com/xob0t/exifoverlay/pkg/generator"
)

// parseHexColor converts a "#rrggbb" (or "#rgb") string to color.NRGBA.
// Anything else yields white.
func parseHexColor(hex string) color.NRGBA {
	return generator.ParseHexNRGBA(hex)
}

// withAlpha returns c with its alpha replaced by a (clamped to 0–1).
func withAlpha(c color.NRGBA, a float64) color.NRGBA {
	a = math.Min(math.Max(a, 0), 1)
	c.A = uint8(math.Round(a * 255))
	return c
}
