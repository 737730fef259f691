// renderer.go - Overlay rasterizer: source image, panel background, text lines.
// Uses a layered approach: image -> panel -> (shadow) -> text. Coordinates
// come from ResolveLayout in logical pixels; the backing canvas is
// PixelRatio times larger and is downsampled to the requested size at the end.
package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/anthonynsimon/bild/blur"
	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"golang.org/x/image/font"

	"github.com/xob0t/exifoverlay/pkg/generator"
	"github.com/xob0t/exifoverlay/pkg/metadata"
	"github.com/xob0t/exifoverlay/pkg/template"
)

var (
	// ErrContextUnavailable means no backing canvas could be allocated.
	// The render call cannot proceed.
	ErrContextUnavailable = errors.New("drawing context unavailable")
	// ErrNoSource is returned when the render context has no image.
	ErrNoSource = errors.New("no source image")
)

// Backing canvas limits, matching what browsers allow for a 2D canvas.
const (
	maxBackingEdge = 32767
	maxBackingArea = 16384 * 16384
)

// Rotated-mode drop shadow.
var shadowColor = color.NRGBA{0, 0, 0, 153}

const shadowBlur = 4.0 // logical px

// Settings are the output settings of one render.
type Settings struct {
	Width    int              `json:"width"`
	Height   int              `json:"height"`
	Quality  float64          `json:"quality"`
	Format   generator.Format `json:"format"`
	Position template.Corner  `json:"overlayPosition"`
}

// RenderContext is everything one render call depends on.
type RenderContext struct {
	Source     image.Image
	Template   template.Template
	Metadata   metadata.Metadata
	Settings   Settings
	PixelRatio float64 // device pixel ratio; <= 0 means 1
}

func (rc RenderContext) ratio() float64 {
	if rc.PixelRatio <= 0 || math.IsNaN(rc.PixelRatio) || math.IsInf(rc.PixelRatio, 0) {
		return 1
	}
	return rc.PixelRatio
}

// SourceAspect returns width/height of img, or 0 for an empty image.
func SourceAspect(img image.Image) float64 {
	if img == nil {
		return 0
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return 0
	}
	return float64(b.Dx()) / float64(b.Dy())
}

// Renderer draws overlays. It owns a FontManager and is therefore not safe
// for concurrent use; create one per goroutine.
type Renderer struct {
	fontManager *FontManager
}

// NewRenderer creates a new overlay renderer.
func NewRenderer(fonts FontPaths) (*Renderer, error) {
	fm, err := NewFontManager(fonts)
	if err != nil {
		return nil, err
	}

	return &Renderer{
		fontManager: fm,
	}, nil
}

// Layout resolves the panel for rc without drawing anything.
func (r *Renderer) Layout(rc RenderContext) (Layout, error) {
	faces := scaledFaces{fm: r.fontManager, ratio: rc.ratio()}
	return ResolveLayout(rc.Template, rc.Metadata, rc.Settings.Width, rc.Settings.Height,
		rc.Settings.Position, SourceAspect(rc.Source), faces)
}

// Render draws the overlay and returns an image of exactly
// Settings.Width × Settings.Height pixels.
func (r *Renderer) Render(ctx context.Context, rc RenderContext) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if rc.Source == nil {
		return nil, ErrNoSource
	}

	w, h := rc.Settings.Width, rc.Settings.Height
	dpr := rc.ratio()

	// 1. Backing canvas at device resolution, logical coordinates.
	dc, err := newContext(w, h, dpr)
	if err != nil {
		return nil, err
	}

	layout, err := r.Layout(rc)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}

	dc.Scale(dpr, dpr)

	// 2. Clear, then the source image.
	dc.SetColor(color.Transparent)
	dc.Clear()
	drawSource(dc, rc.Source, layout.Image, dpr)

	// 3. Panel background.
	style := rc.Template.Style
	drawPanel(dc, layout, style)

	// 4/5. Text, with a shadow underneath in rotated mode.
	face, err := r.fontManager.GetFace(style.FontFamily, layout.FontSize*dpr)
	if err != nil {
		return nil, fmt.Errorf("text: %w", err)
	}
	flow := layout.TextFlow()
	if layout.Rotated {
		drawShadow(dc, face, layout, flow, dpr)
	}
	dc.SetFontFace(face)
	dc.SetColor(parseHexColor(style.TextColor))
	drawLines(dc, layout.Lines, flow, dpr, 0, 0)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if dpr == 1 {
		return dc.Image(), nil
	}
	return imaging.Resize(dc.Image(), w, h, imaging.Lanczos), nil
}

// newContext allocates the DPR-scaled backing canvas.
func newContext(w, h int, dpr float64) (*gg.Context, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: %w: %dx%d", ErrContextUnavailable, ErrInvalidCanvas, w, h)
	}
	pw := int(math.Round(float64(w) * dpr))
	ph := int(math.Round(float64(h) * dpr))
	if pw <= 0 || ph <= 0 || pw > maxBackingEdge || ph > maxBackingEdge || pw*ph > maxBackingArea {
		return nil, fmt.Errorf("%w: backing canvas %dx%d exceeds limits", ErrContextUnavailable, pw, ph)
	}
	return gg.NewContext(pw, ph), nil
}

// drawSource resamples the source straight to its device-pixel rectangle
// and blits it untransformed.
func drawSource(dc *gg.Context, src image.Image, dst Rect, dpr float64) {
	x0, y0 := int(math.Round(dst.X*dpr)), int(math.Round(dst.Y*dpr))
	x1, y1 := int(math.Round(dst.Right()*dpr)), int(math.Round(dst.Bottom()*dpr))
	if x1 <= x0 || y1 <= y0 {
		return
	}

	var img image.Image = src
	if b := src.Bounds(); b.Dx() != x1-x0 || b.Dy() != y1-y0 {
		img = imaging.Resize(src, x1-x0, y1-y0, imaging.Lanczos)
	}

	dc.Push()
	dc.Identity()
	dc.DrawImage(img, x0, y0)
	dc.Pop()
}

func drawPanel(dc *gg.Context, l Layout, style template.Style) {
	if style.Opacity <= 0 {
		return
	}
	p := l.Panel
	dc.SetColor(withAlpha(parseHexColor(style.BackgroundColor), style.Opacity))
	if l.Radius > 0 {
		dc.DrawRoundedRectangle(p.X, p.Y, p.W, p.H, math.Min(l.Radius, math.Min(p.W, p.H)/2))
	} else {
		dc.DrawRectangle(p.X, p.Y, p.W, p.H)
	}
	dc.Fill()
}

// drawLines draws each line at its flow origin. Text is rasterized at
// device resolution under an identity matrix so glyphs stay sharp;
// (offX, offY) shifts the device origin.
func drawLines(dc *gg.Context, lines []string, flow Flow, dpr, offX, offY float64) {
	for i, line := range lines {
		o := flow.Origins[i]
		dc.Push()
		dc.Identity()
		dc.Translate(o.X*dpr-offX, o.Y*dpr-offY)
		if flow.Angle != 0 {
			dc.Rotate(flow.Angle)
		}
		dc.DrawStringAnchored(line, 0, 0, flow.AnchorX, 0)
		dc.Pop()
	}
}

// drawShadow draws the lines in the shadow colour on a scratch canvas
// around the panel, blurs it and composites it below the text.
func drawShadow(dc *gg.Context, face font.Face, l Layout, flow Flow, dpr float64) {
	spread := math.Ceil(3 * shadowBlur * dpr)
	p := l.Panel
	ox := math.Floor(p.X*dpr - spread)
	oy := math.Floor(p.Y*dpr - spread)
	w := int(math.Ceil(p.W*dpr + 2*spread))
	h := int(math.Ceil(p.H*dpr + 2*spread))
	if w <= 0 || h <= 0 {
		return
	}

	sc := gg.NewContext(w, h)
	sc.SetFontFace(face)
	sc.SetColor(shadowColor)
	drawLines(sc, l.Lines, flow, dpr, ox, oy)

	blurred := blur.Gaussian(sc.Image(), shadowBlur*dpr)

	dc.Push()
	dc.Identity()
	dc.DrawImage(blurred, int(ox), int(oy))
	dc.Pop()
}

// scaledFaces measures text with the device-resolution face that will draw
// it, reporting widths in logical pixels.
type scaledFaces struct {
	fm    *FontManager
	ratio float64
}

func (s scaledFaces) Measurer(family string, size float64) (Measurer, error) {
	face, err := s.fm.GetFace(family, size*s.ratio)
	if err != nil {
		return nil, err
	}
	return scaledMeasurer{face: face, ratio: s.ratio}, nil
}

type scaledMeasurer struct {
	face  font.Face
	ratio float64
}

func (m scaledMeasurer) Measure(text string) float64 {
	return float64(font.MeasureString(m.face, text)) / 64 / m.ratio
}
