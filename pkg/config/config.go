// Package config loads exifoverlay settings from a TOML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/dustin/go-humanize"
	"k8s.io/klog/v2"

	"github.com/xob0t/exifoverlay/pkg/generator"
	"github.com/xob0t/exifoverlay/pkg/metadata"
	"github.com/xob0t/exifoverlay/pkg/render"
	"github.com/xob0t/exifoverlay/pkg/source"
	"github.com/xob0t/exifoverlay/pkg/template"
)

// EnvVar overrides the config file location.
const EnvVar = "EXIFOVERLAY_CONFIG"

// Config is the full file layout.
type Config struct {
	Render   Render           `toml:"render"`
	Fonts    render.FontPaths `toml:"fonts"`
	Server   Server           `toml:"server"`
	Metadata Metadata         `toml:"metadata"`
}

// Render holds output settings and the initial template.
type Render struct {
	Width      int              `toml:"width"`
	Height     int              `toml:"height"`
	Quality    float64          `toml:"quality"`
	Format     generator.Format `toml:"format"`
	Position   template.Corner  `toml:"position"`
	PixelRatio float64          `toml:"pixel_ratio"`
	FitToImage bool             `toml:"fit_to_image"`
	Template   string           `toml:"template"`
	MaxInput   HumanBytes       `toml:"max_input"`
}

// Server configures `exifoverlay serve`.
type Server struct {
	Addr      string     `toml:"addr"`
	MaxUpload HumanBytes `toml:"max_upload"`
	WasmDir   string     `toml:"wasm_dir"`
}

// Metadata selects the EXIF extractor.
type Metadata struct {
	Backend      metadata.Backend `toml:"backend"`
	ExiftoolPath string           `toml:"exiftool_path"`
}

// HumanBytes decodes human-readable sizes such as "20 MiB".
type HumanBytes uint64

// UnmarshalText implements toml.TextUnmarshaler.
func (h *HumanBytes) UnmarshalText(text []byte) error {
	n, err := humanize.ParseBytes(string(text))
	if err != nil {
		return fmt.Errorf("invalid size %q: %w", text, err)
	}
	*h = HumanBytes(n)
	return nil
}

// String converts the size back into a human-readable representation.
func (h HumanBytes) String() string {
	return humanize.IBytes(uint64(h))
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Render: Render{
			Width:      1920,
			Height:     1080,
			Quality:    generator.DefaultQuality,
			Format:     generator.PNG,
			Position:   template.TopLeft,
			PixelRatio: 1,
			FitToImage: true,
			Template:   string(template.DefaultPreset),
			MaxInput:   source.DefaultMaxBytes,
		},
		Server: Server{
			Addr:      ":8080",
			MaxUpload: source.DefaultMaxBytes,
		},
		Metadata: Metadata{Backend: metadata.BackendGoexif},
	}
}

// DefaultPath is ~/.config/exifoverlay/config.toml (or the platform equivalent).
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(dir, "exifoverlay", "config.toml")
}

// Load reads the config at path. An empty path falls back to $EXIFOVERLAY_CONFIG
// and then DefaultPath. A missing default file yields Default(); a missing
// file that was asked for explicitly is an error.
func Load(path string) (Config, error) {
	explicit := true
	if path == "" {
		path = os.Getenv(EnvVar)
	}
	if path == "" {
		path, explicit = DefaultPath(), false
	}

	conf := Default()
	md, err := toml.DecodeFile(path, &conf)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			klog.V(1).Infof("no config at %s, using defaults", path)
			return Default(), nil
		}
		return Config{}, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	for _, key := range md.Undecoded() {
		klog.Warningf("config %s: unknown key %q", path, key.String())
	}

	if err := conf.Normalize(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return conf, nil
}

// Normalize clamps numeric settings and checks the template id.
func (c *Config) Normalize() error {
	d := Default()
	if c.Render.Width <= 0 {
		c.Render.Width = d.Render.Width
	}
	if c.Render.Height <= 0 {
		c.Render.Height = d.Render.Height
	}
	c.Render.Quality = generator.ClampQuality(c.Render.Quality)
	if c.Render.PixelRatio <= 0 || math.IsNaN(c.Render.PixelRatio) || math.IsInf(c.Render.PixelRatio, 0) {
		c.Render.PixelRatio = 1
	}
	if c.Render.Format == "" {
		c.Render.Format = generator.PNG
	}
	if c.Render.Position == "" {
		c.Render.Position = template.TopLeft
	}
	if c.Render.Template == "" {
		c.Render.Template = d.Render.Template
	}
	if _, err := template.Lookup(c.Render.Template); err != nil {
		return err
	}
	if c.Render.MaxInput == 0 {
		c.Render.MaxInput = d.Render.MaxInput
	}
	if c.Server.MaxUpload == 0 {
		c.Server.MaxUpload = d.Server.MaxUpload
	}
	return nil
}

// Settings converts the render section for a canvas of the given size.
func (r Render) Settings(width, height int) render.Settings {
	return render.Settings{
		Width:    width,
		Height:   height,
		Quality:  r.Quality,
		Format:   r.Format,
		Position: r.Position,
	}
}

// CanvasSize picks the output size for a source of srcW×srcH pixels:
// the capped source size when FitToImage is set, the configured size otherwise.
func (r Render) CanvasSize(srcW, srcH int) (int, int) {
	if r.FitToImage && srcW > 0 && srcH > 0 {
		return render.CalculateOptimalSize(srcW, srcH)
	}
	return r.Width, r.Height
}

// WriteExample writes ExampleTOML to path, refusing to overwrite.
func WriteExample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if _, err := f.WriteString(ExampleTOML()); err != nil {
		f.Close()
		return fmt.Errorf("write config: %w", err)
	}
	return f.Close()
}

// ExampleTOML returns a commented config file holding the defaults.
func ExampleTOML() string {
	d := Default()
	var ids []string
	for _, e := range template.Entries() {
		if e.Available {
			ids = append(ids, e.ID)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# exifoverlay configuration\n\n")
	fmt.Fprintf(&b, "[render]\n")
	fmt.Fprintf(&b, "# Canvas size used when fit_to_image is false.\n")
	fmt.Fprintf(&b, "width = %d\n", d.Render.Width)
	fmt.Fprintf(&b, "height = %d\n", d.Render.Height)
	fmt.Fprintf(&b, "# Size the canvas from the photo (long edge capped at %d).\n", render.MaxEdge)
	fmt.Fprintf(&b, "fit_to_image = %t\n", d.Render.FitToImage)
	fmt.Fprintf(&b, "# png or jpeg; quality (0.1-1) applies to jpeg only.\n")
	fmt.Fprintf(&b, "format = %q\n", d.Render.Format)
	fmt.Fprintf(&b, "quality = %g\n", d.Render.Quality)
	fmt.Fprintf(&b, "# top-left, top-right, bottom-left or bottom-right.\n")
	fmt.Fprintf(&b, "position = %q\n", d.Render.Position)
	fmt.Fprintf(&b, "pixel_ratio = %.1f\n", d.Render.PixelRatio)
	fmt.Fprintf(&b, "# One of: %s.\n", strings.Join(ids, ", "))
	fmt.Fprintf(&b, "template = %q\n", d.Render.Template)
	fmt.Fprintf(&b, "# Photos larger than this are rejected before decoding.\n")
	fmt.Fprintf(&b, "max_input = %q\n\n", d.Render.MaxInput.String())
	fmt.Fprintf(&b, "[fonts]\n")
	fmt.Fprintf(&b, "# Optional TTF/OTF files; bundled Go fonts are used otherwise.\n")
	fmt.Fprintf(&b, "# sans = \"/usr/share/fonts/TTF/Inter-Regular.ttf\"\n")
	fmt.Fprintf(&b, "# serif = \"\"\n")
	fmt.Fprintf(&b, "# mono = \"\"\n\n")
	fmt.Fprintf(&b, "[server]\n")
	fmt.Fprintf(&b, "addr = %q\n", d.Server.Addr)
	fmt.Fprintf(&b, "max_upload = %q\n", d.Server.MaxUpload.String())
	fmt.Fprintf(&b, "# Directory holding main.wasm and wasm_exec.js.\n")
	fmt.Fprintf(&b, "wasm_dir = \"\"\n\n")
	fmt.Fprintf(&b, "[metadata]\n")
	fmt.Fprintf(&b, "# goexif, imagemeta or exiftool.\n")
	fmt.Fprintf(&b, "backend = %q\n", d.Metadata.Backend)
	fmt.Fprintf(&b, "exiftool_path = \"\"\n")
	return b.String()
}
