// layout.go - Pure layout step: template + metadata + canvas -> resolved panel.
// Nothing here draws; the rasterizer consumes the returned Layout as-is.
package render

import (
	"errors"
	"fmt"
	"math"

	"github.com/xob0t/exifoverlay/pkg/metadata"
	"github.com/xob0t/exifoverlay/pkg/template"
)

const (
	// ReferenceEdge is the design-space edge length template units refer to.
	ReferenceEdge = 1000.0
	// MaxEdge caps the long edge of the output canvas.
	MaxEdge = 4096
	// MinFontSize is the post-scale font size floor.
	MinFontSize = 12.0
	// LineSpacing is the line height as a multiple of the font size.
	LineSpacing = 1.4
)

// ErrInvalidCanvas is returned for non-positive canvas dimensions.
var ErrInvalidCanvas = errors.New("invalid canvas size")

// Rect is an axis-aligned rectangle in logical canvas pixels.
type Rect struct {
	X, Y, W, H float64
}

// Right returns the right edge.
func (r Rect) Right() float64 { return r.X + r.W }

// Bottom returns the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.H }

// Layout is a fully resolved panel for one render call.
type Layout struct {
	// Template is a copy of the input with Position patched to the
	// resolved panel box in canvas pixels. Style and Fields are untouched.
	Template template.Template

	CanvasW, CanvasH int
	Image            Rect // drawn image rectangle (letterboxed)
	Panel            Rect
	Lines            []string

	Scale      float64
	Margin     float64
	FontSize   float64
	Padding    float64
	Radius     float64
	LineHeight float64

	Corner  template.Corner // corner actually used
	Rotated bool            // text runs along the panel's long edge
}

// ScaleFactor maps design-space units onto a canvas.
func ScaleFactor(canvasW, canvasH int) float64 {
	return float64(min(canvasW, canvasH)) / ReferenceEdge
}

// Margin returns the responsive panel margin for a scale factor.
func Margin(scale float64) float64 {
	return math.Min(math.Max(20*scale, 10), 40)
}

// CalculateOptimalSize caps the long edge at MaxEdge, keeping the aspect
// ratio. Sizes that already fit are returned unchanged.
func CalculateOptimalSize(w, h int) (int, int) {
	if w <= MaxEdge && h <= MaxEdge {
		return w, h
	}
	aspect := float64(w) / float64(h)
	if aspect > 1 {
		return MaxEdge, int(math.Round(MaxEdge / aspect))
	}
	return int(math.Round(MaxEdge * aspect)), MaxEdge
}

// ImageRect letterboxes a source with the given aspect ratio (w/h) into the
// canvas. Wider sources fit the width and are centred vertically; the
// rest fit the height and are centred horizontally.
func ImageRect(canvasW, canvasH int, srcAspect float64) Rect {
	cw, ch := float64(canvasW), float64(canvasH)
	if srcAspect <= 0 || math.IsNaN(srcAspect) || math.IsInf(srcAspect, 0) {
		return Rect{W: cw, H: ch}
	}
	if srcAspect > cw/ch {
		h := cw / srcAspect
		return Rect{X: 0, Y: (ch - h) / 2, W: cw, H: h}
	}
	w := ch * srcAspect
	return Rect{X: (cw - w) / 2, Y: 0, W: w, H: ch}
}

// ResolveLayout computes image placement, panel geometry and the wrapped
// lines for one render. The template argument is never modified.
func ResolveLayout(tpl template.Template, meta metadata.Metadata, canvasW, canvasH int, corner template.Corner, srcAspect float64, faces FaceSource) (Layout, error) {
	if canvasW <= 0 || canvasH <= 0 {
		return Layout{}, fmt.Errorf("%w: %dx%d", ErrInvalidCanvas, canvasW, canvasH)
	}

	scale := ScaleFactor(canvasW, canvasH)
	l := Layout{
		CanvasW:  canvasW,
		CanvasH:  canvasH,
		Image:    ImageRect(canvasW, canvasH, srcAspect),
		Scale:    scale,
		Margin:   Margin(scale),
		FontSize: math.Max(MinFontSize, tpl.Style.FontSize*scale),
		Padding:  tpl.Style.Padding * scale,
		Radius:   tpl.Style.BorderRadius * scale,
		Corner:   corner,
	}
	l.LineHeight = l.FontSize * LineSpacing

	if l.Corner == "" {
		l.Corner = template.TopLeft
	}
	if tpl.CornerOverride != nil {
		l.Corner = tpl.CornerOverride.Resolve(srcAspect)
	}
	l.Rotated = tpl.SupportsEdgeRotation && srcAspect > 0 && srcAspect < 1

	m, err := faces.Measurer(tpl.Style.FontFamily, l.FontSize)
	if err != nil {
		return Layout{}, fmt.Errorf("measure: %w", err)
	}

	// The panel runs along one side of the drawn image and never past it.
	length := tpl.Position.Width * scale
	room := l.Image.W - 2*l.Margin
	if l.Rotated {
		room = l.Image.H - 2*l.Margin
	}
	length = math.Max(0, math.Min(length, room))
	l.Lines = WrapAll(tpl.Text(meta), length-2*l.Padding, m)
	thickness := PanelExtent(len(l.Lines), l.Padding, l.LineHeight)

	if l.Rotated {
		l.Panel = l.place(thickness, length, l.Margin)
	} else {
		l.Panel = l.place(length, thickness, 0)
	}

	l.Template = tpl.Clone()
	l.Template.Position.X = l.Panel.X
	l.Template.Position.Y = l.Panel.Y
	l.Template.Position.Width = l.Panel.W
	l.Template.Position.Height = l.Panel.H

	return l, nil
}

// PanelExtent is the panel size across its lines: padding on both sides
// plus one line height per line.
func PanelExtent(lines int, padding, lineHeight float64) float64 {
	return 2*padding + float64(lines)*lineHeight
}

// place anchors a w×h panel inside the drawn image rectangle. extra is an
// additional inset applied on right-hand corners.
func (l Layout) place(w, h, extra float64) Rect {
	r := Rect{W: w, H: h}
	if l.Corner.Right() {
		r.X = l.Image.Right() - w - l.Margin - extra
	} else {
		r.X = l.Image.X + l.Margin
	}
	if l.Corner.Bottom() {
		r.Y = l.Image.Bottom() - h - l.Margin
	} else {
		r.Y = l.Image.Y + l.Margin
	}
	return r
}

// Point is a logical canvas coordinate.
type Point struct{ X, Y float64 }

// Flow describes how each line is placed: a baseline origin per line plus
// the rotation (radians, clockwise) applied around that origin, and the
// horizontal anchor along the text direction (0 left, 0.5 centre, 1 right).
type Flow struct {
	Origins []Point
	Angle   float64
	AnchorX float64
}

// TextFlow returns where each of l.Lines is drawn.
func (l Layout) TextFlow() Flow {
	ax := anchor(l.Template.Position.Alignment)
	f := Flow{AnchorX: ax, Origins: make([]Point, len(l.Lines))}
	p := l.Panel

	if !l.Rotated {
		x := p.X + l.Padding + ax*(p.W-2*l.Padding)
		for i := range l.Lines {
			f.Origins[i] = Point{X: x, Y: p.Y + l.Padding + l.FontSize + float64(i)*l.LineHeight}
		}
		return f
	}

	run := ax * (p.H - 2*l.Padding) // offset along the text direction
	if l.Corner.Bottom() {
		// Reads bottom to top; lines advance toward the right edge.
		f.Angle = -math.Pi / 2
		for i := range l.Lines {
			f.Origins[i] = Point{
				X: p.X + l.Padding + l.FontSize + float64(i)*l.LineHeight,
				Y: p.Bottom() - l.Padding - run,
			}
		}
		return f
	}

	// Reads top to bottom; lines advance leftward, away from the edge.
	f.Angle = math.Pi / 2
	for i := range l.Lines {
		f.Origins[i] = Point{
			X: p.Right() - l.Padding - l.FontSize - float64(i)*l.LineHeight,
			Y: p.Y + l.Padding + run,
		}
	}
	return f
}

func anchor(a template.Alignment) float64 {
	switch a {
	case template.AlignCenter:
		return 0.5
	case template.AlignRight:
		return 1
	}
	return 0
}
