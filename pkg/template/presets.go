// presets.go - Built-in template data.
package template

import "github.com/xob0t/exifoverlay/pkg/metadata"

// Preset identifies a catalog entry.
type Preset string

const (
	Minimal   Preset = "minimal"
	Classic   Preset = "classic"
	Modern    Preset = "modern"
	Film      Preset = "film"
	Technical Preset = "technical"
	InfoStrip Preset = "infostrip"
)

// Declared lists every known preset id in menu order. Declared presets
// without a registered template are shown as unavailable.
var Declared = []Preset{Minimal, Classic, Modern, Film, Technical, InfoStrip}

// DefaultPreset is selected at startup.
const DefaultPreset = Minimal

// labels is a shorthand for the common all-visible field list.
func labels(camera, lens, focal, aperture, shutter, iso, date string) []Field {
	return []Field{
		{Key: metadata.FieldCamera, Label: camera, Visible: true},
		{Key: metadata.FieldLens, Label: lens, Visible: true},
		{Key: metadata.FieldFocalLength, Label: focal, Visible: true},
		{Key: metadata.FieldAperture, Label: aperture, Visible: true},
		{Key: metadata.FieldShutterSpeed, Label: shutter, Visible: true},
		{Key: metadata.FieldISO, Label: iso, Visible: true},
		{Key: metadata.FieldDateTime, Label: date, Visible: true},
	}
}

// registered holds the templates that can actually be selected.
// Modern is declared but not registered: its emoji labels have no glyphs
// in the bundled fonts.
var registered = map[Preset]Template{
	Minimal: {
		ID:          string(Minimal),
		Name:        "Minimal",
		Description: "Clean and simple design with essential information",
		Style: Style{
			FontFamily:      "sans",
			FontSize:        14,
			TextColor:       "#ffffff",
			BackgroundColor: "#000000",
			Opacity:         0.8,
			Padding:         12,
			BorderRadius:    4,
		},
		Position: Position{X: 20, Y: 20, Width: 300, Height: 180, Alignment: AlignLeft},
		Fields:   labels("Camera", "Lens", "Focal Length", "Aperture", "Shutter", "ISO", "Date"),
	},

	Classic: {
		ID:          string(Classic),
		Name:        "Classic",
		Description: "Traditional photography style with elegant typography",
		Style: Style{
			FontFamily:      "serif",
			FontSize:        16,
			TextColor:       "#2d3748",
			BackgroundColor: "#f7fafc",
			Opacity:         0.9,
			Padding:         16,
			BorderRadius:    8,
		},
		Position: Position{X: 30, Y: 30, Width: 350, Height: 150, Alignment: AlignLeft},
		Fields:   labels("Camera", "Lens", "Focal Length", "Aperture", "Shutter Speed", "ISO", "Date & Time"),
	},

	Film: {
		ID:          string(Film),
		Name:        "Film",
		Description: "Retro film-camera date imprint style",
		Style: Style{
			FontFamily:      "mono",
			FontSize:        30,
			TextColor:       "#ff6a00",
			BackgroundColor: "#000000",
			Opacity:         0,
			Padding:         10,
			BorderRadius:    0,
		},
		Position: Position{X: 20, Y: 20, Width: 300, Height: 40, Alignment: AlignLeft},
		Fields: []Field{
			{Key: metadata.FieldDateTime, Label: "", Visible: true, Format: Formatter{Kind: FormatFilmDate}},
			{Key: metadata.FieldCamera, Label: "Camera"},
			{Key: metadata.FieldLens, Label: "Lens"},
			{Key: metadata.FieldFocalLength, Label: "Focal Length"},
			{Key: metadata.FieldAperture, Label: "Aperture"},
			{Key: metadata.FieldShutterSpeed, Label: "Shutter"},
			{Key: metadata.FieldISO, Label: "ISO"},
		},
		SupportsEdgeRotation: true,
		CornerOverride:       &CornerOverride{Portrait: TopRight, Landscape: BottomRight},
	},

	Technical: {
		ID:          string(Technical),
		Name:        "Technical",
		Description: "Detailed specs with monospaced layout",
		Style: Style{
			FontFamily:      "mono",
			FontSize:        13,
			TextColor:       "#111827",
			BackgroundColor: "#f3f4f6",
			Opacity:         0.95,
			Padding:         14,
			BorderRadius:    6,
		},
		Position: Position{X: 24, Y: 24, Width: 360, Height: 180, Alignment: AlignLeft},
		Fields: func() []Field {
			f := labels("Camera", "Lens", "Focal", "Aperture", "Shutter", "ISO", "Captured")
			f[6].Format = Formatter{
				Kind:    FormatRegexDate,
				Pattern: `^(\d{4})/(\d{2})/(\d{2}) (\d{2}):(\d{2})$`,
				Layout:  "$1-$2-$3 $4:$5",
			}
			return f
		}(),
	},

	InfoStrip: {
		ID:          string(InfoStrip),
		Name:        "Info Strip",
		Description: "Black footer strip with white EXIF text",
		Style: Style{
			FontFamily:      "sans",
			FontSize:        16,
			TextColor:       "#ffffff",
			BackgroundColor: "#000000",
			Opacity:         1,
			Padding:         16,
			BorderRadius:    0,
		},
		Position: Position{X: 0, Y: 0, Width: 1000, Height: 200, Alignment: AlignLeft},
		Fields:   labels("Camera", "Lens", "Focal Length", "Aperture", "Shutter", "ISO", "Date"),
	},
}
