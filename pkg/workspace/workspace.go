// Package workspace holds the current photo, template and output settings
// and turns them into renders.
//
// Every mutation bumps a generation counter. A render that finishes after
// the state it was started from has changed reports ErrSuperseded and its
// result is discarded, so the latest inputs always win.
package workspace

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"

	"k8s.io/klog/v2"

	"github.com/xob0t/exifoverlay/pkg/generator"
	"github.com/xob0t/exifoverlay/pkg/metadata"
	"github.com/xob0t/exifoverlay/pkg/render"
	"github.com/xob0t/exifoverlay/pkg/source"
	"github.com/xob0t/exifoverlay/pkg/template"
)

var (
	// ErrSuperseded means the inputs changed while the render ran.
	ErrSuperseded = errors.New("render superseded by newer input")
	// ErrNoImage is returned when rendering or exporting without a photo.
	ErrNoImage = errors.New("no image loaded")
)

// Workspace is safe for concurrent use.
type Workspace struct {
	mu       sync.Mutex
	gen      uint64
	photo    *source.Image
	meta     metadata.Metadata
	tpl      template.Template
	settings render.Settings
	dpr      float64
	last     image.Image     // most recent render of the current generation
	lastSet  render.Settings // settings last was rendered with

	renderMu sync.Mutex // Renderer is single-goroutine
	renderer *render.Renderer

	afterRender  func() // test hook, runs before the generation check
	beforeExport func() // test hook, runs before Export renders
}

// New creates a workspace with the default template selected.
func New(r *render.Renderer, settings render.Settings, pixelRatio float64) *Workspace {
	return &Workspace{
		renderer: r,
		tpl:      template.Default(),
		settings: settings,
		dpr:      pixelRatio,
	}
}

// bump invalidates in-flight renders. Callers hold w.mu.
func (w *Workspace) bump() {
	w.gen++
	w.last = nil
}

// Generation returns the current input generation.
func (w *Workspace) Generation() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.gen
}

// Open decodes data, extracts its metadata with ex and makes it the
// current photo.
func (w *Workspace) Open(ctx context.Context, data []byte, ex metadata.Extractor) error {
	img, err := source.Load(ctx, data)
	if err != nil {
		return err
	}
	raw := ex.Extract(ctx, bytes.NewReader(data))

	w.mu.Lock()
	defer w.mu.Unlock()
	w.photo = img
	w.meta = metadata.Normalize(raw)
	w.bump()
	return nil
}

// SetImage replaces the photo, keeping the current metadata.
func (w *Workspace) SetImage(img *source.Image) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.photo = img
	w.bump()
}

// ImageSize returns the current photo's pixel size, or zeros without one.
func (w *Workspace) ImageSize() (int, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.photo == nil {
		return 0, 0
	}
	return w.photo.Width, w.photo.Height
}

// SetMetadata replaces the metadata.
func (w *Workspace) SetMetadata(m metadata.Metadata) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.meta = m
	w.bump()
}

// Metadata returns the current metadata.
func (w *Workspace) Metadata() metadata.Metadata {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.meta
}

// SelectTemplate switches to a registered template.
func (w *Workspace) SelectTemplate(id string) error {
	t, err := template.Lookup(id)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tpl = t
	w.bump()
	return nil
}

// Template returns a copy of the selected template.
func (w *Workspace) Template() template.Template {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tpl.Clone()
}

// UpdateSettings applies fn to the output settings.
func (w *Workspace) UpdateSettings(fn func(*render.Settings)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fn(&w.settings)
	w.settings.Quality = generator.ClampQuality(w.settings.Quality)
	w.bump()
}

// Settings returns the output settings.
func (w *Workspace) Settings() render.Settings {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.settings
}

// SetPixelRatio changes the device pixel ratio used for rendering.
func (w *Workspace) SetPixelRatio(dpr float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.dpr = dpr
	w.bump()
}

// snapshot captures the render inputs and their generation.
func (w *Workspace) snapshot() (render.RenderContext, uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.photo == nil {
		return render.RenderContext{}, 0, ErrNoImage
	}
	return render.RenderContext{
		Source:     w.photo.Bitmap,
		Template:   w.tpl.Clone(),
		Metadata:   w.meta,
		Settings:   w.settings,
		PixelRatio: w.dpr,
	}, w.gen, nil
}

// Render draws the current state. It returns ErrSuperseded if any input
// changed before the render finished.
func (w *Workspace) Render(ctx context.Context) (image.Image, error) {
	img, _, err := w.render(ctx)
	return img, err
}

// render is Render that also reports the settings the image was drawn with.
func (w *Workspace) render(ctx context.Context) (image.Image, render.Settings, error) {
	rc, gen, err := w.snapshot()
	if err != nil {
		return nil, render.Settings{}, err
	}

	w.renderMu.Lock()
	img, err := w.renderer.Render(ctx, rc)
	w.renderMu.Unlock()
	if err != nil {
		return nil, render.Settings{}, fmt.Errorf("render: %w", err)
	}
	if w.afterRender != nil {
		w.afterRender()
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.gen != gen {
		klog.V(1).Infof("dropping render of generation %d, now at %d", gen, w.gen)
		return nil, render.Settings{}, ErrSuperseded
	}
	w.last, w.lastSet = img, rc.Settings
	return img, rc.Settings, nil
}

// Export encodes the latest render of the current state to out, rendering
// first if needed. It returns the format written.
func (w *Workspace) Export(ctx context.Context, out io.Writer) (generator.Format, error) {
	w.mu.Lock()
	img, s := w.last, w.lastSet
	w.mu.Unlock()

	if img == nil {
		if w.beforeExport != nil {
			w.beforeExport()
		}
		var err error
		if img, s, err = w.render(ctx); err != nil {
			return "", err
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	format := s.Format
	if format == "" {
		format = generator.PNG
	}
	if err := generator.Encode(out, img, format, s.Quality); err != nil {
		return "", err
	}
	return format, nil
}
