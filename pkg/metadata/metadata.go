// Package metadata turns loosely structured camera metadata into display strings.
//
// Extraction is best-effort: every extractor collapses failures into an empty
// Raw record, and Normalize never fails. The overlay panel always renders,
// even with no metadata at all.
package metadata

// ── Raw record (extractor output) ──

// Raw is the loosely structured record produced by an extractor.
// Zero values mean the tag was absent.
type Raw struct {
	Camera   Camera   `json:"camera"`
	Lens     Lens     `json:"lens"`
	Exposure Exposure `json:"exposure"`
	Capture  Capture  `json:"capture"`
}

// Camera holds body identification tags.
type Camera struct {
	Make  string `json:"make,omitempty"`
	Model string `json:"model,omitempty"`
}

// Lens holds lens identification and focal length (mm).
type Lens struct {
	Make        string  `json:"make,omitempty"`
	Model       string  `json:"model,omitempty"`
	FocalLength float64 `json:"focalLength,omitempty"`
}

// Exposure holds exposure settings. ShutterSpeed is a precomputed display
// string some sources provide (e.g. exiftool's "1/250"); it wins over ExposureTime.
type Exposure struct {
	ISO          int     `json:"iso,omitempty"`
	FNumber      float64 `json:"fNumber,omitempty"`
	ExposureTime float64 `json:"exposureTime,omitempty"` // seconds
	ShutterSpeed string  `json:"shutterSpeed,omitempty"`
}

// Capture holds the capture timestamp as the source wrote it.
type Capture struct {
	DateTime string `json:"dateTime,omitempty"`
}

// IsZero reports whether no tag at all was extracted.
func (r Raw) IsZero() bool {
	return r == Raw{}
}

// ── Normalized record ──

// Field names a display field of Metadata.
type Field string

const (
	FieldCamera       Field = "camera"
	FieldLens         Field = "lens"
	FieldFocalLength  Field = "focalLength"
	FieldISO          Field = "iso"
	FieldAperture     Field = "aperture"
	FieldShutterSpeed Field = "shutterSpeed"
	FieldDateTime     Field = "dateTime"
)

// Fields lists every field in declaration order.
var Fields = []Field{FieldCamera, FieldLens, FieldFocalLength, FieldISO, FieldAperture, FieldShutterSpeed, FieldDateTime}

// Metadata is the normalized record. A nil field means "not available".
type Metadata struct {
	Camera       *string `json:"camera"`
	Lens         *string `json:"lens"`
	FocalLength  *string `json:"focalLength"`
	ISO          *string `json:"iso"`
	Aperture     *string `json:"aperture"`
	ShutterSpeed *string `json:"shutterSpeed"`
	DateTime     *string `json:"dateTime"`
}

// Get returns the value of f and whether it is present.
func (m Metadata) Get(f Field) (string, bool) {
	var p *string
	switch f {
	case FieldCamera:
		p = m.Camera
	case FieldLens:
		p = m.Lens
	case FieldFocalLength:
		p = m.FocalLength
	case FieldISO:
		p = m.ISO
	case FieldAperture:
		p = m.Aperture
	case FieldShutterSpeed:
		p = m.ShutterSpeed
	case FieldDateTime:
		p = m.DateTime
	}
	if p == nil {
		return "", false
	}
	return *p, true
}

// Valid reports whether f is a known field name.
func (f Field) Valid() bool {
	for _, k := range Fields {
		if k == f {
			return true
		}
	}
	return false
}
