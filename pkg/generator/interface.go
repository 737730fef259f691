package generator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Saver persists encoded output. It is the file-save side of an export;
// the overlay core never writes files itself.
type Saver interface {
	Save(name string, data []byte) (string, error)
}

// DirSaver writes files into Dir, creating it when needed.
type DirSaver struct {
	Dir string
}

// Save writes data to Dir/name and returns the path written.
func (s DirSaver) Save(name string, data []byte) (string, error) {
	if name == "" || filepath.Base(name) != name {
		return "", fmt.Errorf("invalid output name %q", name)
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", s.Dir, err)
	}
	path := filepath.Join(s.Dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// OutputName derives "<base>_exif<ext>" from a source file name.
func OutputName(source string, format Format) string {
	base := filepath.Base(source)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "image"
	}
	return base + "_exif" + format.Ext()
}
