package metadata

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"

	"github.com/bep/imagemeta"
	qt "github.com/frankban/quicktest"
)

func pngBytes(c *qt.C) []byte {
	var buf bytes.Buffer
	c.Assert(png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 3))), qt.IsNil)
	return buf.Bytes()
}

func TestExtractorsNeverFail(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	inputs := map[string][]byte{
		"empty":    nil,
		"garbage":  []byte("definitely not an image"),
		"png":      pngBytes(c),
		"jpeg-ish": {0xFF, 0xD8, 0xFF, 0xE1, 0x00, 0x02},
	}

	for _, e := range []Extractor{GoexifExtractor{}, ImagemetaExtractor{}} {
		for name, data := range inputs {
			raw := ExtractBytes(ctx, e, data)
			c.Assert(raw.IsZero(), qt.IsTrue, qt.Commentf("%T %s", e, name))
		}
	}
}

func TestSniffFormat(t *testing.T) {
	c := qt.New(t)

	for _, test := range []struct {
		head []byte
		want imagemeta.ImageFormat
		ok   bool
	}{
		{[]byte{0xFF, 0xD8, 0xFF, 0xE0}, imagemeta.JPEG, true},
		{[]byte("\x89PNG\r\n\x1a\n"), imagemeta.PNG, true},
		{[]byte("RIFF\x00\x00\x00\x00WEBPVP8 "), imagemeta.WebP, true},
		{[]byte("\x00\x00\x00\x18ftypheic"), imagemeta.HEIF, true},
		{[]byte("\x00\x00\x00\x18ftypavif"), imagemeta.AVIF, true},
		{[]byte("II*\x00\x08\x00"), imagemeta.TIFF, true},
		{[]byte("GIF89a"), 0, false},
	} {
		r := bytes.NewReader(test.head)
		got, ok := sniffFormat(r)
		c.Assert(ok, qt.Equals, test.ok)
		c.Assert(got, qt.Equals, test.want)
		c.Assert(r.Len(), qt.Equals, len(test.head), qt.Commentf("reader must be rewound"))
	}
}

func TestBackendUnmarshalText(t *testing.T) {
	c := qt.New(t)

	var b Backend
	c.Assert(b.UnmarshalText([]byte(" ImageMeta ")), qt.IsNil)
	c.Assert(b, qt.Equals, BackendImagemeta)
	c.Assert(b.UnmarshalText(nil), qt.IsNil)
	c.Assert(b, qt.Equals, BackendGoexif)
	c.Assert(b.UnmarshalText([]byte("exiv2")), qt.ErrorMatches, `unknown metadata backend "exiv2".*`)

	c.Assert(NewExtractor(BackendImagemeta, ""), qt.Equals, Extractor(ImagemetaExtractor{}))
	c.Assert(NewExtractor("", ""), qt.Equals, Extractor(GoexifExtractor{}))
}

func TestToFloat(t *testing.T) {
	c := qt.New(t)
	r, err := imagemeta.NewRat[uint32](1, 200)
	c.Assert(err, qt.IsNil)
	c.Assert(toFloat(r), qt.Equals, 0.005)
	c.Assert(toFloat(uint16(400)), qt.Equals, 400.0)
	c.Assert(toFloat([]uint16{800, 0}), qt.Equals, 800.0)
	c.Assert(toFloat(" 2.8 "), qt.Equals, 2.8)
	c.Assert(toFloat(struct{}{}), qt.Equals, 0.0)
}
