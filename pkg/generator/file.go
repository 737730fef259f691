// file.go - Encoded file writer.
package generator

import (
	"image"
	"path/filepath"
)

// Save encodes img and writes it to path through a DirSaver, creating the
// parent directory when needed.
func Save(path string, img image.Image, format Format, quality float64) error {
	data, err := EncodeBytes(img, format, quality)
	if err != nil {
		return err
	}
	_, err = DirSaver{Dir: filepath.Dir(path)}.Save(filepath.Base(path), data)
	return err
}
