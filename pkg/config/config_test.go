package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"
	qt "github.com/frankban/quicktest"

	"github.com/xob0t/exifoverlay/pkg/generator"
	"github.com/xob0t/exifoverlay/pkg/metadata"
	"github.com/xob0t/exifoverlay/pkg/render"
	"github.com/xob0t/exifoverlay/pkg/source"
	"github.com/xob0t/exifoverlay/pkg/template"
)

func writeFile(c *qt.C, content string) string {
	path := filepath.Join(c.TempDir(), "config.toml")
	c.Assert(os.WriteFile(path, []byte(content), 0o644), qt.IsNil)
	return path
}

func TestLoadFile(t *testing.T) {
	c := qt.New(t)

	path := writeFile(c, `
[render]
width = 800
format = "jpg"
quality = 3
position = "Bottom-Right"
template = "film"

[fonts]
mono = "/fonts/mono.ttf"

[server]
max_upload = "5 MiB"

[metadata]
backend = "exiftool"
exiftool_path = "/usr/bin/exiftool"
`)
	conf, err := Load(path)
	c.Assert(err, qt.IsNil)

	want := Default()
	want.Render.Width = 800
	want.Render.Format = generator.JPEG
	want.Render.Quality = 1
	want.Render.Position = template.BottomRight
	want.Render.Template = "film"
	want.Fonts = render.FontPaths{Mono: "/fonts/mono.ttf"}
	want.Server.MaxUpload = 5 << 20
	want.Metadata = Metadata{Backend: metadata.BackendExiftool, ExiftoolPath: "/usr/bin/exiftool"}
	c.Assert(conf, qt.DeepEquals, want)
}

func TestLoadErrors(t *testing.T) {
	c := qt.New(t)

	_, err := Load(filepath.Join(c.TempDir(), "missing.toml"))
	c.Assert(err, qt.ErrorMatches, "failed to load config .*")

	_, err = Load(writeFile(c, "[render]\ntemplate = \"modern\"\n"))
	c.Assert(err, qt.ErrorIs, template.ErrUnavailable)

	_, err = Load(writeFile(c, "[render]\nposition = \"middle\"\n"))
	c.Assert(err, qt.ErrorMatches, `(?s).*invalid corner.*`)

	_, err = Load(writeFile(c, "[server]\nmax_upload = \"lots\"\n"))
	c.Assert(err, qt.ErrorMatches, `(?s).*invalid size.*`)
}

func TestLoadDefaults(t *testing.T) {
	c := qt.New(t)

	// No explicit path and no file at the default location.
	c.Setenv(EnvVar, "")
	c.Setenv("XDG_CONFIG_HOME", c.TempDir())
	c.Setenv("HOME", c.TempDir())
	conf, err := Load("")
	c.Assert(err, qt.IsNil)
	c.Assert(conf, qt.DeepEquals, Default())

	// The environment variable counts as explicit.
	c.Setenv(EnvVar, filepath.Join(c.TempDir(), "nope.toml"))
	_, err = Load("")
	c.Assert(err, qt.IsNotNil)

	path := writeFile(c, "[render]\nheight = 600\n")
	c.Setenv(EnvVar, path)
	conf, err = Load("")
	c.Assert(err, qt.IsNil)
	c.Assert(conf.Render.Height, qt.Equals, 600)
}

func TestNormalize(t *testing.T) {
	c := qt.New(t)

	conf := Config{}
	c.Assert(conf.Normalize(), qt.IsNil)
	c.Assert(conf.Render.Width, qt.Equals, 1920)
	c.Assert(conf.Render.Height, qt.Equals, 1080)
	c.Assert(conf.Render.Quality, qt.Equals, generator.DefaultQuality)
	c.Assert(conf.Render.PixelRatio, qt.Equals, 1.0)
	c.Assert(conf.Render.Format, qt.Equals, generator.PNG)
	c.Assert(conf.Render.Position, qt.Equals, template.TopLeft)
	c.Assert(conf.Render.Template, qt.Equals, "minimal")
	c.Assert(conf.Server.MaxUpload.String(), qt.Equals, "20 MiB")
	c.Assert(conf.Render.MaxInput, qt.Equals, HumanBytes(source.DefaultMaxBytes))

	conf.Render.Quality = 0.01
	c.Assert(conf.Normalize(), qt.IsNil)
	c.Assert(conf.Render.Quality, qt.Equals, generator.MinQuality)
}

func TestCanvasSize(t *testing.T) {
	c := qt.New(t)

	r := Default().Render
	w, h := r.CanvasSize(6000, 4000)
	c.Assert([2]int{w, h}, qt.Equals, [2]int{4096, 2731})

	r.FitToImage = false
	w, h = r.CanvasSize(6000, 4000)
	c.Assert([2]int{w, h}, qt.Equals, [2]int{1920, 1080})

	s := r.Settings(640, 480)
	c.Assert(s, qt.Equals, render.Settings{
		Width: 640, Height: 480, Quality: generator.DefaultQuality,
		Format: generator.PNG, Position: template.TopLeft,
	})
}

func TestExample(t *testing.T) {
	c := qt.New(t)

	var conf Config
	_, err := toml.Decode(ExampleTOML(), &conf)
	c.Assert(err, qt.IsNil)
	c.Assert(conf.Normalize(), qt.IsNil)
	c.Assert(conf, qt.DeepEquals, Default())

	path := filepath.Join(c.TempDir(), "sub", "config.toml")
	c.Assert(WriteExample(path), qt.IsNil)
	loaded, err := Load(path)
	c.Assert(err, qt.IsNil)
	c.Assert(loaded, qt.DeepEquals, Default())

	c.Assert(WriteExample(path), qt.ErrorMatches, "write config: .*")
}
