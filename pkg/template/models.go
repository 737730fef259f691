// Package template provides the fixed catalog of overlay templates.
//
// Templates are immutable values: the layout step derives a position-patched
// copy per render and never writes back into the catalog.
package template

import (
	"fmt"
	"strings"

	"github.com/xob0t/exifoverlay/pkg/metadata"
)

// ── Template types ──

// Template is one overlay preset.
type Template struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Style       Style    `json:"style"`
	Position    Position `json:"position"`
	Fields      []Field  `json:"fields"` // render order

	// SupportsEdgeRotation turns on rotated text flow for portrait sources.
	SupportsEdgeRotation bool `json:"supportsEdgeRotation,omitempty"`
	// CornerOverride pins the panel corner by source orientation,
	// ignoring the user's choice. Nil means the user's corner is used.
	CornerOverride *CornerOverride `json:"cornerOverride,omitempty"`
}

// Style defines the panel appearance. Pixel values are design-space units
// (relative to a 1000px reference edge).
type Style struct {
	FontFamily      string  `json:"fontFamily"` // "sans", "serif" or "mono"
	FontSize        float64 `json:"fontSize"`
	TextColor       string  `json:"textColor"`       // "#rrggbb"
	BackgroundColor string  `json:"backgroundColor"` // "#rrggbb"
	Opacity         float64 `json:"opacity"`         // panel background alpha, 0–1
	Padding         float64 `json:"padding"`
	BorderRadius    float64 `json:"borderRadius"`
}

// Position is the design-space panel box. X/Y are kept for reference only:
// the layout step replaces them with a corner-resolved position.
type Position struct {
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Width     float64   `json:"width"`
	Height    float64   `json:"height"`
	Alignment Alignment `json:"alignment"`
}

// Field is one metadata line in the panel.
type Field struct {
	Key     metadata.Field `json:"key"`
	Label   string         `json:"label"`
	Visible bool           `json:"visible"`
	Format  Formatter      `json:"format"`
}

// CornerOverride selects a corner by source orientation.
type CornerOverride struct {
	Portrait  Corner `json:"portrait"`
	Landscape Corner `json:"landscape"` // also used for square sources
}

// Resolve returns the corner for a source with the given aspect ratio
// (width / height).
func (o CornerOverride) Resolve(aspect float64) Corner {
	if aspect < 1 {
		return o.Portrait
	}
	return o.Landscape
}

// VisibleFields returns the fields that may render, in order.
func (t Template) VisibleFields() []Field {
	out := make([]Field, 0, len(t.Fields))
	for _, f := range t.Fields {
		if f.Visible {
			out = append(out, f)
		}
	}
	return out
}

// Text returns the rendered text of every visible field, in order.
// Missing values render as "{label}: N/A"; fields are never skipped.
func (t Template) Text(m metadata.Metadata) []string {
	fields := t.VisibleFields()
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		v, ok := m.Get(f.Key)
		out = append(out, f.Format.Apply(f.Label, v, ok))
	}
	return out
}

// ── Enums ──

// Corner is one of the four panel anchor corners.
type Corner string

const (
	TopLeft     Corner = "top-left"
	TopRight    Corner = "top-right"
	BottomLeft  Corner = "bottom-left"
	BottomRight Corner = "bottom-right"
)

// Corners lists all corners.
var Corners = []Corner{TopLeft, TopRight, BottomLeft, BottomRight}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Corner) UnmarshalText(text []byte) error {
	v := Corner(strings.ToLower(strings.TrimSpace(string(text))))
	switch v {
	case TopLeft, TopRight, BottomLeft, BottomRight:
		*c = v
		return nil
	}
	return fmt.Errorf("invalid corner %q: use top-left, top-right, bottom-left or bottom-right", text)
}

func (c Corner) String() string { return string(c) }

// Right reports whether the corner is on the right edge.
func (c Corner) Right() bool { return c == TopRight || c == BottomRight }

// Bottom reports whether the corner is on the bottom edge.
func (c Corner) Bottom() bool { return c == BottomLeft || c == BottomRight }

// Alignment is the horizontal text anchor inside the panel.
type Alignment string

const (
	AlignLeft   Alignment = "left"
	AlignCenter Alignment = "center"
	AlignRight  Alignment = "right"
)

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Alignment) UnmarshalText(text []byte) error {
	v := Alignment(strings.ToLower(strings.TrimSpace(string(text))))
	switch v {
	case AlignLeft, AlignCenter, AlignRight:
		*a = v
		return nil
	case "":
		*a = AlignLeft
		return nil
	}
	return fmt.Errorf("invalid alignment %q", text)
}
