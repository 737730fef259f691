// render.go - Single-photo render and the pipeline shared by batch and watch.
package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	flag "github.com/spf13/pflag"
	"k8s.io/klog/v2"

	"github.com/xob0t/exifoverlay/pkg/config"
	"github.com/xob0t/exifoverlay/pkg/generator"
	"github.com/xob0t/exifoverlay/pkg/metadata"
	"github.com/xob0t/exifoverlay/pkg/render"
	"github.com/xob0t/exifoverlay/pkg/source"
	"github.com/xob0t/exifoverlay/pkg/template"
)

// renderFlags are the options every rendering subcommand accepts.
type renderFlags struct {
	configPath string
	tpl        string
	position   string
	width      int
	height     int
	fit        bool
	format     string
	quality    float64
	dpr        float64
	backend    string
	exiftool   string
}

func (f *renderFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.configPath, "config", "", "Config file (default $"+config.EnvVar+" or "+config.DefaultPath()+")")
	fs.StringVarP(&f.tpl, "template", "t", "", "Template id")
	fs.StringVarP(&f.position, "position", "p", "", "Overlay corner")
	fs.IntVar(&f.width, "width", 0, "Canvas width when --fit=false")
	fs.IntVar(&f.height, "height", 0, "Canvas height when --fit=false")
	fs.BoolVar(&f.fit, "fit", true, "Size the canvas from the photo")
	fs.StringVar(&f.format, "format", "", "Output format: png or jpeg")
	fs.Float64VarP(&f.quality, "quality", "q", 0, "JPEG quality (0.1-1)")
	fs.Float64Var(&f.dpr, "dpr", 0, "Device pixel ratio")
	fs.StringVar(&f.backend, "backend", "", "Metadata extractor: goexif, imagemeta or exiftool")
	fs.StringVar(&f.exiftool, "exiftool", "", "Path to the exiftool binary")
}

// load reads the config file and applies the flags the user set.
func (f *renderFlags) load(fs *flag.FlagSet) (config.Config, error) {
	conf, err := config.Load(f.configPath)
	if err != nil {
		return config.Config{}, err
	}

	r := &conf.Render
	if fs.Changed("template") {
		r.Template = f.tpl
	}
	if fs.Changed("position") {
		if err := r.Position.UnmarshalText([]byte(f.position)); err != nil {
			return config.Config{}, err
		}
	}
	if fs.Changed("width") {
		r.Width = f.width
	}
	if fs.Changed("height") {
		r.Height = f.height
	}
	if fs.Changed("fit") {
		r.FitToImage = f.fit
	}
	if fs.Changed("format") {
		if err := r.Format.UnmarshalText([]byte(f.format)); err != nil {
			return config.Config{}, err
		}
	}
	if fs.Changed("quality") {
		r.Quality = f.quality
	}
	if fs.Changed("dpr") {
		r.PixelRatio = f.dpr
	}
	if fs.Changed("backend") {
		if err := conf.Metadata.Backend.UnmarshalText([]byte(f.backend)); err != nil {
			return config.Config{}, err
		}
	}
	if fs.Changed("exiftool") {
		conf.Metadata.ExiftoolPath = f.exiftool
	}

	if err := conf.Normalize(); err != nil {
		return config.Config{}, err
	}
	return conf, nil
}

// pipeline turns photo files into overlay files. It is not safe for
// concurrent use; batch gives each worker its own.
type pipeline struct {
	conf      config.Config
	tpl       template.Template
	renderer  *render.Renderer
	extractor metadata.Extractor
}

func newPipeline(conf config.Config) (*pipeline, error) {
	tpl, err := template.Lookup(conf.Render.Template)
	if err != nil {
		return nil, err
	}
	r, err := render.NewRenderer(conf.Fonts)
	if err != nil {
		return nil, err
	}
	return &pipeline{
		conf:      conf,
		tpl:       tpl,
		renderer:  r,
		extractor: metadata.NewExtractor(conf.Metadata.Backend, conf.Metadata.ExiftoolPath),
	}, nil
}

func (p *pipeline) Close() error {
	if c, ok := p.extractor.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// outputPath is the default output for in, placed in dir (or beside in).
func (p *pipeline) outputPath(in, dir string) string {
	if dir == "" {
		dir = filepath.Dir(in)
	}
	return filepath.Join(dir, generator.OutputName(in, p.conf.Render.Format))
}

// renderFile renders the photo at in and writes the result to out.
func (p *pipeline) renderFile(ctx context.Context, in, out string) error {
	start := time.Now()
	fi, err := os.Stat(in)
	if err != nil {
		return fmt.Errorf("read %s: %w", in, err)
	}
	if err := source.Validate(in, fi.Size(), "", int64(p.conf.Render.MaxInput)); err != nil {
		return fmt.Errorf("%s: %w", in, err)
	}
	data, err := os.ReadFile(in)
	if err != nil {
		return fmt.Errorf("read %s: %w", in, err)
	}

	img, err := source.Load(ctx, data)
	if err != nil {
		return fmt.Errorf("%s: %w", in, err)
	}
	meta := metadata.Normalize(p.extractor.Extract(ctx, bytes.NewReader(data)))

	w, h := p.conf.Render.CanvasSize(img.Width, img.Height)
	result, err := p.renderer.Render(ctx, render.RenderContext{
		Source:     img.Bitmap,
		Template:   p.tpl,
		Metadata:   meta,
		Settings:   p.conf.Render.Settings(w, h),
		PixelRatio: p.conf.Render.PixelRatio,
	})
	if err != nil {
		return fmt.Errorf("render %s: %w", in, err)
	}

	if err := generator.Save(out, result, p.conf.Render.Format, p.conf.Render.Quality); err != nil {
		return err
	}
	klog.V(1).Infof("rendered %s -> %s (%dx%d, %s, %s)", in, out, w, h, p.tpl.ID, time.Since(start).Round(time.Millisecond))
	return nil
}

func runRender(ctx context.Context, args []string) error {
	fs := newFlagSet("render")
	var (
		rf     renderFlags
		input  string
		output string
	)
	rf.register(fs)
	fs.StringVarP(&input, "input", "i", "", "Photo to render")
	fs.StringVarP(&output, "output", "o", "", "Output file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if input == "" && fs.NArg() > 0 {
		input = fs.Arg(0)
	}
	if input == "" {
		return fmt.Errorf("input photo is required (-i)")
	}

	conf, err := rf.load(fs)
	if err != nil {
		return err
	}
	p, err := newPipeline(conf)
	if err != nil {
		return err
	}
	defer p.Close()

	if output == "" {
		output = p.outputPath(input, "")
	}
	if err := p.renderFile(ctx, input, output); err != nil {
		return err
	}
	fmt.Printf("Saved: %s\n", output)
	return nil
}
