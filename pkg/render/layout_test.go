package render

import (
	"math"
	"testing"
	"unicode/utf8"

	qt "github.com/frankban/quicktest"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/xob0t/exifoverlay/pkg/metadata"
	"github.com/xob0t/exifoverlay/pkg/template"
)

// approx compares floats that went through layout arithmetic.
var approx = qt.CmpEquals(cmpopts.EquateApprox(0, 1e-9))

// fixedFaces measures every rune as half the font size wide.
type fixedFaces struct{}

func (fixedFaces) Measurer(_ string, size float64) (Measurer, error) {
	return fixedAdvance(size / 2), nil
}

type fixedAdvance float64

func (a fixedAdvance) Measure(text string) float64 {
	return float64(a) * float64(utf8.RuneCountInString(text))
}

func mustLookup(c *qt.C, id string) template.Template {
	t, err := template.Lookup(id)
	c.Assert(err, qt.IsNil)
	return t
}

func fullMetadata() metadata.Metadata {
	return metadata.Normalize(metadata.Raw{
		Camera:   metadata.Camera{Make: "SONY", Model: "ILCE-7M4"},
		Lens:     metadata.Lens{Model: "FE 24-70mm F2.8 GM II", FocalLength: 35},
		Exposure: metadata.Exposure{ISO: 100, FNumber: 4, ExposureTime: 0.004},
		Capture:  metadata.Capture{DateTime: "2023:11:02 07:15:00"},
	})
}

func TestCalculateOptimalSize(t *testing.T) {
	c := qt.New(t)

	for _, test := range []struct{ w, h, wantW, wantH int }{
		{8000, 4000, 4096, 2048},
		{2000, 1000, 2000, 1000},
		{3000, 6000, 2048, 4096},
		{4096, 4096, 4096, 4096},
		{5000, 5000, 4096, 4096},
		{6000, 4000, 4096, 2731},
	} {
		w, h := CalculateOptimalSize(test.w, test.h)
		c.Assert([2]int{w, h}, qt.Equals, [2]int{test.wantW, test.wantH}, qt.Commentf("%dx%d", test.w, test.h))
	}
}

func TestImageRect(t *testing.T) {
	c := qt.New(t)

	c.Assert(ImageRect(1000, 1000, 2), qt.Equals, Rect{X: 0, Y: 250, W: 1000, H: 500})
	c.Assert(ImageRect(1000, 1000, 0.5), qt.Equals, Rect{X: 250, Y: 0, W: 500, H: 1000})
	c.Assert(ImageRect(1920, 1080, 16.0/9), approx, Rect{W: 1920, H: 1080})
	c.Assert(ImageRect(800, 600, 0), qt.Equals, Rect{W: 800, H: 600})
}

func TestScaleAndMargin(t *testing.T) {
	c := qt.New(t)

	c.Assert(ScaleFactor(1920, 1080), qt.Equals, 1.08)
	c.Assert(Margin(0.1), qt.Equals, 10.0)
	c.Assert(Margin(1), qt.Equals, 20.0)
	c.Assert(Margin(1.5), qt.Equals, 30.0)
	c.Assert(Margin(4), qt.Equals, 40.0)
}

func TestBottomRightMarginEveryTemplate(t *testing.T) {
	c := qt.New(t)

	for _, tpl := range template.All() {
		c.Run(tpl.ID, func(c *qt.C) {
			l, err := ResolveLayout(tpl, fullMetadata(), 1000, 1000, template.BottomRight, 1, fixedFaces{})
			c.Assert(err, qt.IsNil)
			c.Assert(l.Margin, qt.Equals, 20.0)
			c.Assert(l.Panel.Bottom(), approx, 1000-l.Margin)
			c.Assert(l.Panel.Right(), approx, 1000-l.Margin)
		})
	}
}

func TestPanelStaysInsideImage(t *testing.T) {
	c := qt.New(t)

	for _, tpl := range template.All() {
		for _, corner := range template.Corners {
			for _, aspect := range []float64{1080.0 / 1920, 1, 1.5} {
				l, err := ResolveLayout(tpl, fullMetadata(), 1080, 1920, corner, aspect, fixedFaces{})
				c.Assert(err, qt.IsNil)
				comment := qt.Commentf("%s %s %.2f: panel %+v image %+v", tpl.ID, corner, aspect, l.Panel, l.Image)
				c.Assert(l.Panel.X >= l.Image.X-1e-9, qt.IsTrue, comment)
				c.Assert(l.Panel.Right() <= l.Image.Right()+1e-9, qt.IsTrue, comment)
				c.Assert(l.Panel.Y >= l.Image.Y-1e-9, qt.IsTrue, comment)
				for _, o := range l.TextFlow().Origins {
					c.Assert(o.X >= 0 && o.X <= 1080, qt.IsTrue, comment)
				}
			}
		}
	}

	// A strip wider than the image shrinks to the image less two margins.
	l, err := ResolveLayout(mustLookup(c, "infostrip"), fullMetadata(), 1080, 1920, template.BottomRight, 1080.0/1920, fixedFaces{})
	c.Assert(err, qt.IsNil)
	c.Assert(l.Panel.W, approx, 1080-2*l.Margin)
	c.Assert(l.Panel.X, approx, l.Margin)
}

func TestCornerPlacementLetterboxed(t *testing.T) {
	c := qt.New(t)
	tpl := mustLookup(c, "minimal")

	// 2:1 source in a square canvas: image spans y 250 to 750.
	for corner, want := range map[template.Corner]func(l Layout) (float64, float64){
		template.TopLeft:     func(l Layout) (float64, float64) { return 20, 270 },
		template.TopRight:    func(l Layout) (float64, float64) { return 980 - l.Panel.W, 270 },
		template.BottomLeft:  func(l Layout) (float64, float64) { return 20, 730 - l.Panel.H },
		template.BottomRight: func(l Layout) (float64, float64) { return 980 - l.Panel.W, 730 - l.Panel.H },
	} {
		l, err := ResolveLayout(tpl, fullMetadata(), 1000, 1000, corner, 2, fixedFaces{})
		c.Assert(err, qt.IsNil)
		x, y := want(l)
		c.Assert(l.Panel.X, approx, x, qt.Commentf("%s", corner))
		c.Assert(l.Panel.Y, approx, y, qt.Commentf("%s", corner))
		c.Assert(l.Corner, qt.Equals, corner)
	}
}

func TestPanelWidthAndFont(t *testing.T) {
	c := qt.New(t)
	tpl := mustLookup(c, "classic")

	l, err := ResolveLayout(tpl, fullMetadata(), 2000, 1500, template.TopLeft, 4.0/3, fixedFaces{})
	c.Assert(err, qt.IsNil)
	c.Assert(l.Scale, approx, 1.5)
	c.Assert(l.Panel.W, approx, 350*1.5)
	c.Assert(l.FontSize, approx, 24.0)
	c.Assert(l.Padding, approx, 24.0)
	c.Assert(l.Radius, approx, 12.0)
	c.Assert(l.LineHeight, approx, 24.0*LineSpacing)

	// Small canvases clamp the font to the floor.
	l, err = ResolveLayout(tpl, fullMetadata(), 400, 300, template.TopLeft, 4.0/3, fixedFaces{})
	c.Assert(err, qt.IsNil)
	c.Assert(l.FontSize, qt.Equals, MinFontSize)
}

func TestAllMissingRendersNA(t *testing.T) {
	c := qt.New(t)
	tpl := mustLookup(c, "minimal")

	l, err := ResolveLayout(tpl, metadata.Metadata{}, 1000, 1000, template.TopLeft, 1, fixedFaces{})
	c.Assert(err, qt.IsNil)
	c.Assert(l.Lines, qt.DeepEquals, []string{
		"Camera: N/A",
		"Lens: N/A",
		"Focal Length: N/A",
		"Aperture: N/A",
		"Shutter: N/A",
		"ISO: N/A",
		"Date: N/A",
	})
	c.Assert(l.Panel.H, qt.Equals, PanelExtent(7, l.Padding, l.LineHeight))
}

func TestPanelHeightIsContentDriven(t *testing.T) {
	c := qt.New(t)

	full := mustLookup(c, "minimal")
	single := full.Clone()
	for i := range single.Fields {
		single.Fields[i].Visible = single.Fields[i].Key == metadata.FieldISO
	}

	lf, err := ResolveLayout(full, fullMetadata(), 1000, 1000, template.TopLeft, 1, fixedFaces{})
	c.Assert(err, qt.IsNil)
	ls, err := ResolveLayout(single, fullMetadata(), 1000, 1000, template.TopLeft, 1, fixedFaces{})
	c.Assert(err, qt.IsNil)
	c.Assert(ls.Lines, qt.DeepEquals, []string{"ISO: ISO 100"})
	c.Assert(ls.Panel.H < lf.Panel.H, qt.IsTrue)

	// Wrapping a long value grows the panel.
	long := fullMetadata()
	name := "A Very Long Lens Name That Cannot Possibly Fit On A Single Line Of This Panel"
	long.Lens = &name
	ll, err := ResolveLayout(full, long, 1000, 1000, template.TopLeft, 1, fixedFaces{})
	c.Assert(err, qt.IsNil)
	c.Assert(len(ll.Lines) > len(lf.Lines), qt.IsTrue)
	c.Assert(ll.Panel.H > lf.Panel.H, qt.IsTrue)

	prev := -1.0
	for n := 0; n < 20; n++ {
		h := PanelExtent(n, 12, 19.6)
		c.Assert(h >= prev, qt.IsTrue)
		prev = h
	}
}

func TestTemplateIsNotMutated(t *testing.T) {
	c := qt.New(t)

	tpl := mustLookup(c, "film")
	before := tpl.Clone()
	l, err := ResolveLayout(tpl, fullMetadata(), 600, 1000, template.BottomLeft, 0.6, fixedFaces{})
	c.Assert(err, qt.IsNil)
	c.Assert(tpl, qt.DeepEquals, before)

	c.Assert(l.Template.Position.X, qt.Equals, l.Panel.X)
	c.Assert(l.Template.Position.Y, qt.Equals, l.Panel.Y)
	c.Assert(l.Template.Position.Width, qt.Equals, l.Panel.W)
	c.Assert(l.Template.Position.Height, qt.Equals, l.Panel.H)
	c.Assert(l.Template.Style, qt.DeepEquals, tpl.Style)
	c.Assert(l.Template.Fields, qt.DeepEquals, tpl.Fields)
}

func TestCornerOverride(t *testing.T) {
	c := qt.New(t)
	tpl := mustLookup(c, "film")

	l, err := ResolveLayout(tpl, fullMetadata(), 1500, 1000, template.TopLeft, 1.5, fixedFaces{})
	c.Assert(err, qt.IsNil)
	c.Assert(l.Corner, qt.Equals, template.BottomRight)
	c.Assert(l.Rotated, qt.IsFalse)
	c.Assert(l.Panel.Right(), approx, 1500-l.Margin)

	l, err = ResolveLayout(tpl, fullMetadata(), 600, 1000, template.BottomLeft, 0.6, fixedFaces{})
	c.Assert(err, qt.IsNil)
	c.Assert(l.Corner, qt.Equals, template.TopRight)
	c.Assert(l.Rotated, qt.IsTrue)
}

func TestRotatedTopRightFlow(t *testing.T) {
	c := qt.New(t)
	tpl := mustLookup(c, "film")

	// A portrait canvas holding a portrait image.
	l, err := ResolveLayout(tpl, fullMetadata(), 600, 1000, template.TopLeft, 0.6, fixedFaces{})
	c.Assert(err, qt.IsNil)
	c.Assert(l.Rotated, qt.IsTrue)
	c.Assert(l.Corner, qt.Equals, template.TopRight)

	// Panel runs along the right edge, inset by two margins.
	c.Assert(l.Panel.W, qt.Equals, PanelExtent(len(l.Lines), l.Padding, l.LineHeight))
	c.Assert(l.Panel.H, approx, tpl.Position.Width*l.Scale)
	c.Assert(l.Panel.Right(), approx, 600-2*l.Margin)
	c.Assert(l.Panel.Y, qt.Equals, l.Margin)

	f := l.TextFlow()
	c.Assert(f.Angle, qt.Equals, math.Pi/2)
	c.Assert(f.Origins, qt.HasLen, len(l.Lines))
	for i, o := range f.Origins {
		// Text starts below the panel top and never above the canvas.
		c.Assert(o.Y, approx, l.Panel.Y+l.Padding)
		c.Assert(o.Y > 0, qt.IsTrue)
		// Glyph tops face the right edge and stay inside the panel.
		c.Assert(o.X+l.FontSize <= l.Panel.Right()-l.Padding+1e-9, qt.IsTrue)
		if i > 0 {
			c.Assert(o.X < f.Origins[i-1].X, qt.IsTrue, qt.Commentf("lines advance away from the edge"))
		}
	}
}

func TestRotatedBottomRightFlow(t *testing.T) {
	c := qt.New(t)
	tpl := mustLookup(c, "film")
	tpl.CornerOverride.Portrait = template.BottomRight

	l, err := ResolveLayout(tpl, fullMetadata(), 600, 1000, template.TopLeft, 0.6, fixedFaces{})
	c.Assert(err, qt.IsNil)
	c.Assert(l.Rotated, qt.IsTrue)
	c.Assert(l.Panel.Bottom(), approx, 1000-l.Margin)

	f := l.TextFlow()
	c.Assert(f.Angle, qt.Equals, -math.Pi/2)
	for _, o := range f.Origins {
		c.Assert(o.Y, approx, l.Panel.Bottom()-l.Padding)
		c.Assert(o.X-l.FontSize >= l.Panel.X+l.Padding-1e-9, qt.IsTrue)
	}
}

func TestStandardFlowAlignment(t *testing.T) {
	c := qt.New(t)
	tpl := mustLookup(c, "minimal")

	for align, want := range map[template.Alignment]func(l Layout) float64{
		template.AlignLeft:   func(l Layout) float64 { return l.Panel.X + l.Padding },
		template.AlignCenter: func(l Layout) float64 { return l.Panel.X + l.Panel.W/2 },
		template.AlignRight:  func(l Layout) float64 { return l.Panel.Right() - l.Padding },
	} {
		tpl.Position.Alignment = align
		l, err := ResolveLayout(tpl, fullMetadata(), 1000, 1000, template.TopLeft, 1, fixedFaces{})
		c.Assert(err, qt.IsNil)
		f := l.TextFlow()
		c.Assert(f.Angle, qt.Equals, 0.0)
		for i, o := range f.Origins {
			c.Assert(o.X, approx, want(l))
			c.Assert(o.Y, approx, l.Panel.Y+l.Padding+l.FontSize+float64(i)*l.LineHeight)
		}
	}
}

func TestResolveLayoutInvalidCanvas(t *testing.T) {
	c := qt.New(t)
	_, err := ResolveLayout(template.Default(), metadata.Metadata{}, 0, 100, template.TopLeft, 1, fixedFaces{})
	c.Assert(err, qt.ErrorIs, ErrInvalidCanvas)
}
