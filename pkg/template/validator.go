// validator.go - Catalog consistency checks and human-readable listing.
package template

import (
	"fmt"
	"io"
	"strings"
)

// Validate checks a template for problems that would degrade rendering.
// Returns warnings (never fatal errors) for graceful degradation.
func Validate(t Template) []string {
	var warnings []string

	if t.Position.Width <= 0 {
		warnings = append(warnings, fmt.Sprintf("%s: non-positive panel width %v", t.ID, t.Position.Width))
	}
	if t.Style.FontSize <= 0 {
		warnings = append(warnings, fmt.Sprintf("%s: non-positive font size %v", t.ID, t.Style.FontSize))
	}
	if t.Style.Opacity < 0 || t.Style.Opacity > 1 {
		warnings = append(warnings, fmt.Sprintf("%s: opacity %v outside 0–1", t.ID, t.Style.Opacity))
	}
	if t.CornerOverride == nil && t.SupportsEdgeRotation {
		warnings = append(warnings, fmt.Sprintf("%s: edge rotation without a corner override uses the user's corner", t.ID))
	}

	seen := make(map[string]struct{}, len(t.Fields))
	visible := 0
	for _, f := range t.Fields {
		if !f.Key.Valid() {
			warnings = append(warnings, fmt.Sprintf("%s: unknown field %q renders as N/A", t.ID, f.Key))
		}
		if _, dup := seen[string(f.Key)]; dup {
			warnings = append(warnings, fmt.Sprintf("%s: field %q listed twice", t.ID, f.Key))
		}
		seen[string(f.Key)] = struct{}{}
		if err := f.Format.Validate(); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: field %q: %v", t.ID, f.Key, err))
		}
		if f.Visible {
			visible++
		}
	}
	if visible == 0 {
		warnings = append(warnings, fmt.Sprintf("%s: no visible fields, panel will be empty", t.ID))
	}

	return warnings
}

// ValidateCatalog runs Validate over every registered template.
func ValidateCatalog() []string {
	var warnings []string
	for _, t := range All() {
		warnings = append(warnings, Validate(t)...)
	}
	return warnings
}

// Describe writes a human-readable listing of the catalog.
func Describe(w io.Writer) error {
	var s strings.Builder
	s.WriteString("Templates:\n")
	for _, e := range Entries() {
		mark := ""
		switch {
		case !e.Available:
			mark = " (unavailable)"
		case e.Default:
			mark = " (default)"
		}
		s.WriteString(fmt.Sprintf("\n  [%s] %s%s\n", e.ID, e.Name, mark))
		if !e.Available {
			continue
		}
		t, _ := Lookup(e.ID)
		s.WriteString(fmt.Sprintf("    %s\n", t.Description))
		for _, f := range t.Fields {
			if !f.Visible {
				continue
			}
			label := f.Label
			if label == "" {
				label = "(no label)"
			}
			kind := string(f.Format.Kind)
			if kind == "" {
				kind = "plain"
			}
			s.WriteString(fmt.Sprintf("    %-14s %-13s %s\n", f.Key, label, kind))
		}
		if t.SupportsEdgeRotation {
			s.WriteString("    rotates along the long edge on portrait images\n")
		}
	}

	_, err := io.WriteString(w, s.String())
	return err
}
