// fonts.go - Font management with custom TTF support and embedded fallback fonts.
// Uses golang.org/x/image/font for OpenType rendering. Each family falls back
// to a bundled Go font when no custom font is configured or loading fails.
package render

import (
	"fmt"
	"math"
	"os"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"k8s.io/klog/v2"
)

// Font families understood by templates.
const (
	FamilySans  = "sans"
	FamilySerif = "serif"
	FamilyMono  = "mono"
)

// FontPaths optionally points families at custom TTF/OTF files.
type FontPaths struct {
	Sans  string `toml:"sans"`
	Serif string `toml:"serif"`
	Mono  string `toml:"mono"`
}

// faceCacheSize bounds the number of open faces per manager.
const faceCacheSize = 32

var (
	embeddedOnce sync.Once
	embedded     map[string]*opentype.Font
	embeddedErr  error
)

// embeddedFonts parses the bundled fonts once per process.
func embeddedFonts() (map[string]*opentype.Font, error) {
	embeddedOnce.Do(func() {
		embedded = make(map[string]*opentype.Font, 3)
		for family, data := range map[string][]byte{
			FamilySans:  goregular.TTF,
			FamilySerif: gomedium.TTF,
			FamilyMono:  gomono.TTF,
		} {
			f, err := opentype.Parse(data)
			if err != nil {
				embeddedErr = fmt.Errorf("failed to parse embedded %s font: %w", family, err)
				return
			}
			embedded[family] = f
		}
	})
	return embedded, embeddedErr
}

type faceKey struct {
	family string
	size   int64 // size in 1/64 px
}

// FontManager hands out font faces by family and size. Faces are cached;
// like font.Face itself, a FontManager is not safe for concurrent drawing.
type FontManager struct {
	fonts map[string]*opentype.Font
	faces *lru.Cache[faceKey, font.Face]
}

// NewFontManager creates a font manager. Custom paths that cannot be read
// or parsed are logged and replaced by the embedded font.
func NewFontManager(paths FontPaths) (*FontManager, error) {
	base, err := embeddedFonts()
	if err != nil {
		return nil, err
	}

	fonts := make(map[string]*opentype.Font, len(base))
	for k, v := range base {
		fonts[k] = v
	}
	for family, path := range map[string]string{
		FamilySans:  paths.Sans,
		FamilySerif: paths.Serif,
		FamilyMono:  paths.Mono,
	} {
		if path == "" {
			continue
		}
		f, err := parseFontFile(path)
		if err != nil {
			klog.Warningf("could not load custom %s font %q, using default: %v", family, path, err)
			continue
		}
		fonts[family] = f
	}

	faces, err := lru.NewWithEvict[faceKey, font.Face](faceCacheSize, func(_ faceKey, f font.Face) {
		f.Close()
	})
	if err != nil {
		return nil, fmt.Errorf("face cache: %w", err)
	}

	return &FontManager{fonts: fonts, faces: faces}, nil
}

func parseFontFile(path string) (*opentype.Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	return f, nil
}

// Family normalizes a template font family to one of the known families.
func Family(name string) string {
	switch n := strings.ToLower(name); {
	case strings.Contains(n, "mono"):
		return FamilyMono
	case strings.Contains(n, "serif") && !strings.Contains(n, "sans"):
		return FamilySerif
	}
	return FamilySans
}

// GetFace returns a font.Face for family at size pixels (72 DPI).
func (fm *FontManager) GetFace(family string, size float64) (font.Face, error) {
	family = Family(family)
	key := faceKey{family: family, size: int64(math.Round(size * 64))}
	if f, ok := fm.faces.Get(key); ok {
		return f, nil
	}

	face, err := opentype.NewFace(fm.fonts[family], &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}
	fm.faces.Add(key, face)
	return face, nil
}

// Measurer implements FaceSource.
func (fm *FontManager) Measurer(family string, size float64) (Measurer, error) {
	face, err := fm.GetFace(family, size)
	if err != nil {
		return nil, err
	}
	return faceMeasurer{face}, nil
}

type faceMeasurer struct{ face font.Face }

func (m faceMeasurer) Measure(text string) float64 {
	return float64(font.MeasureString(m.face, text)) / 64
}
