// exifoverlay - Camera metadata overlays for photos.
//
// Usage:
//
//	exifoverlay [render] -i <photo> [-o <file>] [options]
//	exifoverlay templates
//	exifoverlay meta -i <photo> [--backend goexif|imagemeta|exiftool]
//	exifoverlay init [--config <path>]
//	exifoverlay watch --dir <in> --out <out> [options]
//	exifoverlay batch --dir <in> --out <out> [--keep-originals] [options]
//	exifoverlay serve [--addr :8080] [--wasm-dir <dir>]
package main

import (
	"context"
	"encoding/json"
	"errors"
	goflag "flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	flag "github.com/spf13/pflag"
	"k8s.io/klog/v2"

	"github.com/xob0t/exifoverlay/clients/server"
	"github.com/xob0t/exifoverlay/pkg/config"
	"github.com/xob0t/exifoverlay/pkg/metadata"
	"github.com/xob0t/exifoverlay/pkg/template"
)

func main() {
	klog.InitFlags(nil)
	defer klog.Flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := dispatch(ctx, os.Args[1:]); err != nil && !errors.Is(err, flag.ErrHelp) {
		fatal(err)
	}
}

func dispatch(ctx context.Context, args []string) error {
	if len(args) == 0 {
		printUsage()
		return fmt.Errorf("no input given")
	}

	switch args[0] {
	case "render":
		return runRender(ctx, args[1:])
	case "templates":
		return runTemplates(args[1:])
	case "meta":
		return runMeta(ctx, args[1:])
	case "init":
		return runInit(args[1:])
	case "watch":
		return runWatch(ctx, args[1:])
	case "batch":
		return runBatch(ctx, args[1:])
	case "serve":
		return runServe(ctx, args[1:])
	case "help", "-h", "--help":
		printUsage()
		return nil
	default:
		// Default: render mode (all flags on root).
		return runRender(ctx, args)
	}
}

// newFlagSet returns a flag set that also understands klog's -v and friends.
func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.AddGoFlagSet(goflag.CommandLine)
	fs.Usage = printUsage
	return fs
}

func runTemplates(args []string) error {
	fs := newFlagSet("templates")
	if err := fs.Parse(args); err != nil {
		return err
	}
	for _, w := range template.ValidateCatalog() {
		klog.Warningf("catalog: %s", w)
	}
	return template.Describe(os.Stdout)
}

func runMeta(ctx context.Context, args []string) error {
	fs := newFlagSet("meta")
	var (
		configPath string
		input      string
		backend    string
		raw        bool
	)
	fs.StringVar(&configPath, "config", "", "Config file (default $"+config.EnvVar+" or "+config.DefaultPath()+")")
	fs.StringVarP(&input, "input", "i", "", "Photo to inspect")
	fs.StringVar(&backend, "backend", "", "Extractor: goexif, imagemeta or exiftool")
	fs.BoolVar(&raw, "raw", false, "Print the raw record instead of display strings")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if input == "" && fs.NArg() > 0 {
		input = fs.Arg(0)
	}
	if input == "" {
		return fmt.Errorf("input photo is required (-i)")
	}

	conf, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if backend != "" {
		if err := conf.Metadata.Backend.UnmarshalText([]byte(backend)); err != nil {
			return err
		}
	}

	ex := metadata.NewExtractor(conf.Metadata.Backend, conf.Metadata.ExiftoolPath)
	if c, ok := ex.(interface{ Close() error }); ok {
		defer c.Close()
	}

	f, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("open %s: %w", input, err)
	}
	defer f.Close()
	r := ex.Extract(ctx, f)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if raw {
		return enc.Encode(r)
	}
	return enc.Encode(metadata.Normalize(r))
}

func runInit(args []string) error {
	fs := newFlagSet("init")
	var path string
	fs.StringVar(&path, "config", config.DefaultPath(), "Where to write the example config")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := config.WriteExample(path); err != nil {
		return err
	}
	fmt.Printf("Created: %s\n", path)
	fmt.Println("Run: exifoverlay -i photo.jpg")
	return nil
}

func runServe(ctx context.Context, args []string) error {
	fs := newFlagSet("serve")
	var (
		configPath string
		addr       string
		wasmDir    string
		open       bool
	)
	fs.StringVar(&configPath, "config", "", "Config file")
	fs.StringVar(&addr, "addr", "", "Listen address (default from config, :8080)")
	fs.StringVar(&wasmDir, "wasm-dir", "", "Directory holding main.wasm and wasm_exec.js")
	fs.BoolVar(&open, "open", false, "Open the UI in a browser")
	if err := fs.Parse(args); err != nil {
		return err
	}

	conf, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if addr != "" {
		conf.Server.Addr = addr
	}
	if wasmDir != "" {
		conf.Server.WasmDir = wasmDir
	}

	return server.Run(ctx, server.Options{
		Addr:      conf.Server.Addr,
		WasmDir:   conf.Server.WasmDir,
		MaxUpload: int64(conf.Server.MaxUpload),
		Extractor: metadata.NewExtractor(conf.Metadata.Backend, conf.Metadata.ExiftoolPath),
		Open:      open,
	})
}

func fatal(err error) {
	klog.Flush()
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func printUsage() {
	fmt.Fprint(os.Stderr, strings.TrimLeft(`
exifoverlay - Camera metadata overlays for photos

USAGE:
    exifoverlay [render] -i <photo> [-o <file>] [options]
    exifoverlay templates
    exifoverlay meta -i <photo> [--backend <name>] [--raw]
    exifoverlay init [--config <path>]
    exifoverlay watch --dir <in> --out <out> [options]
    exifoverlay batch --dir <in> --out <out> [--keep-originals] [options]
    exifoverlay serve [--addr :8080] [--wasm-dir <dir>] [--open]

RENDER OPTIONS:
    -i, --input <path>       Photo (JPEG, PNG or WebP)
    -o, --output <path>      Output file (default: <name>_exif.<ext> next to the photo)
    -t, --template <id>      Template id (see: exifoverlay templates)
    -p, --position <corner>  top-left, top-right, bottom-left or bottom-right
    --width, --height <px>   Canvas size when --fit=false
    --fit                    Size the canvas from the photo (default: true)
    --format <png|jpeg>      Output format
    -q, --quality <0.1-1>    JPEG quality
    --dpr <ratio>            Device pixel ratio for supersampled text
    --backend <name>         Metadata extractor: goexif, imagemeta or exiftool
    --exiftool <path>        exiftool binary for --backend exiftool
    --config <path>          Config file (default: $EXIFOVERLAY_CONFIG or ~/.config/exifoverlay/config.toml)
    -v <level>               Log verbosity

BATCH OPTIONS:
    --dir, --out <dir>       Source tree and output tree
    --keep-originals         Copy each photo to <out>/originals
    -j, --jobs <n>           Parallel renders (default: CPU count)

EXAMPLES:
    exifoverlay init
    exifoverlay -i IMG_0042.jpg
    exifoverlay -i IMG_0042.jpg -t film -o out.jpg --format jpeg -q 0.9
    exifoverlay batch --dir ~/Pictures/trip --out ~/Pictures/trip-exif --keep-originals
    exifoverlay serve --wasm-dir dist --open
`, "\n"))
}
