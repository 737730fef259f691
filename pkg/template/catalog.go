// catalog.go - Read-only preset lookup.
package template

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrUnknown is returned for ids that are not declared presets.
	ErrUnknown = errors.New("unknown template")
	// ErrUnavailable is returned for declared presets with no registered template.
	ErrUnavailable = errors.New("template not available")
)

// Lookup returns a copy of the registered template for id.
func Lookup(id string) (Template, error) {
	p := Preset(strings.ToLower(strings.TrimSpace(id)))
	if !slices.Contains(Declared, p) {
		return Template{}, fmt.Errorf("%w: %q", ErrUnknown, id)
	}
	t, ok := registered[p]
	if !ok {
		return Template{}, fmt.Errorf("%w: %q", ErrUnavailable, id)
	}
	return t.Clone(), nil
}

// Available reports whether id can be selected.
func Available(id string) bool {
	_, err := Lookup(id)
	return err == nil
}

// Default returns the startup template.
func Default() Template {
	return registered[DefaultPreset].Clone()
}

// Entry describes one declared preset for selection menus.
type Entry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Available   bool   `json:"available"`
	Default     bool   `json:"default"`
}

// Entries lists every declared preset in menu order, available or not.
func Entries() []Entry {
	out := make([]Entry, 0, len(Declared))
	for _, p := range Declared {
		e := Entry{ID: string(p), Name: string(p), Default: p == DefaultPreset}
		if t, ok := registered[p]; ok {
			e.Name = t.Name
			e.Description = t.Description
			e.Available = true
		}
		out = append(out, e)
	}
	return out
}

// All returns copies of every registered template in menu order.
func All() []Template {
	var out []Template
	for _, p := range Declared {
		if t, ok := registered[p]; ok {
			out = append(out, t.Clone())
		}
	}
	return out
}

// Clone returns a deep copy; callers may modify it freely.
func (t Template) Clone() Template {
	c := t
	c.Fields = slices.Clone(t.Fields)
	if t.CornerOverride != nil {
		o := *t.CornerOverride
		c.CornerOverride = &o
	}
	return c
}
