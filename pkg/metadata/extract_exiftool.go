// extract_exiftool.go - Extractor backed by an installed exiftool binary.
package metadata

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/barasher/go-exiftool"
	"k8s.io/klog/v2"
)

// ExiftoolExtractor keeps one exiftool process open for its lifetime.
// The process starts on first use; Close stops it.
type ExiftoolExtractor struct {
	BinaryPath string // empty: search $PATH

	once    sync.Once
	et      *exiftool.Exiftool
	initErr error
}

func (e *ExiftoolExtractor) start() error {
	e.once.Do(func() {
		opts := []func(*exiftool.Exiftool) error{exiftool.NoPrintConversion()}
		if e.BinaryPath != "" {
			opts = append(opts, exiftool.SetExiftoolBinaryPath(e.BinaryPath))
		}
		e.et, e.initErr = exiftool.NewExiftool(opts...)
		if e.initErr != nil {
			klog.Warningf("exiftool unavailable, metadata will be empty: %v", e.initErr)
		}
	})
	return e.initErr
}

// Close stops the exiftool process, if one was started.
func (e *ExiftoolExtractor) Close() error {
	if e.et == nil {
		return nil
	}
	return e.et.Close()
}

// Extract implements Extractor. exiftool reads from disk, so non-file
// readers are spooled to a temporary file first.
func (e *ExiftoolExtractor) Extract(ctx context.Context, r io.ReadSeeker) Raw {
	if err := e.start(); err != nil {
		return Raw{}
	}
	if ctx.Err() != nil {
		return Raw{}
	}

	path, cleanup, err := spool(r)
	if err != nil {
		klog.V(1).Infof("exiftool: %v", err)
		return Raw{}
	}
	defer cleanup()

	return e.ExtractFile(path)
}

// ExtractFile reads metadata from a file on disk.
func (e *ExiftoolExtractor) ExtractFile(path string) Raw {
	if err := e.start(); err != nil {
		return Raw{}
	}
	fms := e.et.ExtractMetadata(path)
	if len(fms) == 0 || fms[0].Err != nil {
		if len(fms) > 0 {
			klog.V(1).Infof("exiftool %s: %v", path, fms[0].Err)
		}
		return Raw{}
	}
	fm := fms[0]

	str := func(k string) string {
		v, _ := fm.GetString(k)
		return v
	}
	num := func(k string) float64 {
		v, _ := fm.GetFloat(k)
		return v
	}

	var raw Raw
	raw.Camera.Make = str("Make")
	raw.Camera.Model = str("Model")
	raw.Lens.Make = str("LensMake")
	raw.Lens.Model = str("LensModel")
	raw.Lens.FocalLength = num("FocalLength")
	raw.Exposure.FNumber = num("FNumber")
	raw.Exposure.ExposureTime = num("ExposureTime")
	if iso, err := fm.GetInt("ISO"); err == nil {
		raw.Exposure.ISO = int(iso)
	}
	raw.Capture.DateTime = str("DateTimeOriginal")
	if raw.Capture.DateTime == "" {
		raw.Capture.DateTime = str("CreateDate")
	}
	return raw
}

// spool returns a filesystem path holding r's content.
func spool(r io.ReadSeeker) (string, func(), error) {
	noop := func() {}
	if f, ok := r.(*os.File); ok {
		return f.Name(), noop, nil
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", noop, fmt.Errorf("rewind: %w", err)
	}
	tmp, err := os.CreateTemp("", "exifoverlay-*")
	if err != nil {
		return "", noop, fmt.Errorf("create temp file: %w", err)
	}
	cleanup := func() { os.Remove(tmp.Name()) }
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		cleanup()
		return "", noop, fmt.Errorf("spool: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", noop, fmt.Errorf("spool: %w", err)
	}
	return tmp.Name(), cleanup, nil
}
