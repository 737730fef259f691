// formatters.go - Closed set of field formatters, dispatched by kind.
package template

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/xob0t/exifoverlay/pkg/metadata"
)

// FormatKind selects a field formatter.
type FormatKind string

const (
	// FormatPlain renders "{label}: {value}" ("{value}" for an empty label).
	FormatPlain FormatKind = ""
	// FormatFilmDate renders a film-camera date imprint: "'YY.MM.DD".
	FormatFilmDate FormatKind = "filmDate"
	// FormatRegexDate rewrites the value with Pattern and Layout
	// (regexp.Expand syntax: $1, ${name}).
	FormatRegexDate FormatKind = "regexDate"
)

// Missing is the placeholder for an unavailable value.
const Missing = "N/A"

// FilmDateMissing is the film imprint for an unavailable date.
const FilmDateMissing = "'--.--.--"

var filmDatePattern = regexp.MustCompile(`(\d{4})[/\-:.](\d{2})[/\-:.](\d{2})`)

// Formatter is a tagged formatter value. The zero value is FormatPlain.
type Formatter struct {
	Kind     FormatKind `json:"kind,omitempty"`
	Pattern  string     `json:"pattern,omitempty"`  // FormatRegexDate
	Layout   string     `json:"layout,omitempty"`   // FormatRegexDate
	Fallback string     `json:"fallback,omitempty"` // FormatRegexDate: text for a missing value
}

// Apply renders one field. ok reports whether the value is present.
func (f Formatter) Apply(label, value string, ok bool) string {
	switch f.Kind {
	case FormatFilmDate:
		if !ok {
			return FilmDateMissing
		}
		return filmDate(value)
	case FormatRegexDate:
		if !ok {
			if f.Fallback != "" {
				return f.Fallback
			}
			return withLabel(label, Missing)
		}
		return withLabel(label, f.rewrite(value))
	default:
		if !ok {
			return withLabel(label, Missing)
		}
		return withLabel(label, value)
	}
}

// Validate reports a malformed formatter.
func (f Formatter) Validate() error {
	switch f.Kind {
	case FormatPlain, FormatFilmDate:
		return nil
	case FormatRegexDate:
		if f.Layout == "" {
			return fmt.Errorf("regexDate formatter needs a layout")
		}
		if _, err := compile(f.Pattern); err != nil {
			return fmt.Errorf("regexDate pattern: %w", err)
		}
		return nil
	}
	return fmt.Errorf("unknown formatter kind %q", f.Kind)
}

func (f Formatter) rewrite(value string) string {
	re, err := compile(f.Pattern)
	if err != nil {
		return value
	}
	m := re.FindStringSubmatchIndex(value)
	if m == nil {
		return value
	}
	return string(re.ExpandString(nil, f.Layout, value, m))
}

func withLabel(label, value string) string {
	if label == "" {
		return value
	}
	return label + ": " + value
}

// filmDate converts a date string to "'YY.MM.DD". Values that hold no
// recognisable date are returned unchanged.
func filmDate(value string) string {
	if m := filmDatePattern.FindStringSubmatch(value); m != nil {
		return fmt.Sprintf("'%s.%s.%s", m[1][2:], m[2], m[3])
	}
	if t, ok := metadata.ParseDateTime(strings.TrimSpace(value)); ok {
		return t.Format("'06.01.02")
	}
	return value
}

// Patterns are fixed catalog data, compiled once.
var (
	patternMu    sync.Mutex
	patternCache = map[string]*regexp.Regexp{}
)

func compile(pattern string) (*regexp.Regexp, error) {
	patternMu.Lock()
	defer patternMu.Unlock()
	if re, ok := patternCache[pattern]; ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	patternCache[pattern] = re
	return re, nil
}
