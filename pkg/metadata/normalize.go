// normalize.go - Raw record -> display strings.
package metadata

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DisplayLayout is the fixed date layout used for every parsed timestamp.
const DisplayLayout = "2006/01/02 15:04"

// Layouts tried in order before the strict EXIF pattern.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

var exifDatePattern = regexp.MustCompile(`^(\d{4}):(\d{2}):(\d{2})\s(\d{2}):(\d{2}):(\d{2})$`)

// Normalize converts a raw record into display strings. It never fails:
// absent or unusable values become nil.
func Normalize(raw Raw) Metadata {
	return Metadata{
		Camera:       joinNames(raw.Camera.Make, raw.Camera.Model),
		Lens:         joinNames(raw.Lens.Make, raw.Lens.Model),
		FocalLength:  formatFocalLength(raw.Lens.FocalLength),
		ISO:          formatISO(raw.Exposure.ISO),
		Aperture:     formatAperture(raw.Exposure.FNumber),
		ShutterSpeed: formatShutterSpeed(raw.Exposure.ShutterSpeed, raw.Exposure.ExposureTime),
		DateTime:     FormatDateTime(raw.Capture.DateTime),
	}
}

func joinNames(make_, model string) *string {
	make_ = strings.TrimSpace(make_)
	model = strings.TrimSpace(model)
	switch {
	case make_ != "" && model != "":
		return ptr(make_ + " " + model)
	case make_ != "":
		return ptr(make_)
	case model != "":
		return ptr(model)
	}
	return nil
}

func formatFocalLength(mm float64) *string {
	if !usable(mm) {
		return nil
	}
	return ptr(fmt.Sprintf("%dmm", int64(math.Round(mm))))
}

func formatISO(iso int) *string {
	if iso <= 0 {
		return nil
	}
	return ptr("ISO " + strconv.Itoa(iso))
}

func formatAperture(f float64) *string {
	if !usable(f) {
		return nil
	}
	return ptr("f/" + strconv.FormatFloat(f, 'f', -1, 64))
}

// formatShutterSpeed prefers a precomputed string over the exposure time.
func formatShutterSpeed(precomputed string, seconds float64) *string {
	if s := strings.TrimSpace(precomputed); s != "" {
		return ptr(s)
	}
	if !usable(seconds) {
		return nil
	}
	return ptr(ShutterString(seconds))
}

// ShutterString renders an exposure time: "2s" for one second or longer,
// "1/200s" below that.
func ShutterString(seconds float64) string {
	if seconds >= 1 {
		return strconv.FormatFloat(seconds, 'f', -1, 64) + "s"
	}
	return fmt.Sprintf("1/%ds", int64(math.Round(1/seconds)))
}

// FormatDateTime parses s as a standard timestamp, then as a strict EXIF
// timestamp, and renders it with DisplayLayout. Unparseable input is
// returned unchanged; empty input yields nil.
func FormatDateTime(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if t, ok := ParseDateTime(s); ok {
		return ptr(t.Format(DisplayLayout))
	}
	return ptr(s)
}

// ParseDateTime is the parsing half of FormatDateTime. Timestamps keep
// their own zone; zone-less values are read as wall-clock time.
func ParseDateTime(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	m := exifDatePattern.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	n := make([]int, 6)
	for i := range n {
		n[i], _ = strconv.Atoi(m[i+1])
	}
	t := time.Date(n[0], time.Month(n[1]), n[2], n[3], n[4], n[5], 0, time.UTC)
	// time.Date normalizes out-of-range parts (month 13, hour 25); reject those.
	if t.Year() != n[0] || int(t.Month()) != n[1] || t.Day() != n[2] || t.Hour() != n[3] || t.Minute() != n[4] {
		return time.Time{}, false
	}
	return t, true
}

func usable(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func ptr(s string) *string { return &s }
