//go:build js && wasm

// exifoverlay WASM - Client-side renderer.
// Compiled with: GOOS=js GOARCH=wasm go build -o main.wasm ./clients/wasm/
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"syscall/js"

	"github.com/xob0t/exifoverlay/pkg/generator"
	"github.com/xob0t/exifoverlay/pkg/metadata"
	"github.com/xob0t/exifoverlay/pkg/render"
	"github.com/xob0t/exifoverlay/pkg/template"
	"github.com/xob0t/exifoverlay/pkg/workspace"
)

var (
	ws        *workspace.Workspace
	extractor = metadata.GoexifExtractor{}
)

func main() {
	r, err := render.NewRenderer(render.FontPaths{})
	if err != nil {
		fmt.Println("exifoverlay WASM: renderer:", err)
		return
	}
	ws = workspace.New(r, render.Settings{
		Width:    1920,
		Height:   1080,
		Quality:  generator.DefaultQuality,
		Format:   generator.PNG,
		Position: template.TopLeft,
	}, 1)

	fmt.Println("exifoverlay WASM loaded")

	// Register JS-callable functions.
	js.Global().Set("goLoadImage", js.FuncOf(loadImage))
	js.Global().Set("goSetMetadata", js.FuncOf(setMetadata))
	js.Global().Set("goSelectTemplate", js.FuncOf(selectTemplate))
	js.Global().Set("goUpdateSettings", js.FuncOf(updateSettings))
	js.Global().Set("goSetPixelRatio", js.FuncOf(setPixelRatio))
	js.Global().Set("goRender", js.FuncOf(renderOverlay))
	js.Global().Set("goListTemplates", js.FuncOf(listTemplates))
	js.Global().Set("goReady", js.ValueOf(true))

	// Block forever (WASM must not exit).
	select {}
}

func fail(format string, args ...any) js.Value {
	return js.ValueOf("error: " + fmt.Sprintf(format, args...))
}

// goLoadImage(base64Data) - decode a photo and read its metadata.
// Returns JSON {width, height, metadata} with the canvas size capped for output.
func loadImage(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return fail("need base64Data")
	}
	data, err := base64.StdEncoding.DecodeString(args[0].String())
	if err != nil {
		return fail("invalid base64: %v", err)
	}
	if err := ws.Open(context.Background(), data, extractor); err != nil {
		return fail("%v", err)
	}

	w, h := render.CalculateOptimalSize(ws.ImageSize())
	out, err := json.Marshal(struct {
		Width    int               `json:"width"`
		Height   int               `json:"height"`
		Metadata metadata.Metadata `json:"metadata"`
	}{w, h, ws.Metadata()})
	if err != nil {
		return fail("encode: %v", err)
	}
	return js.ValueOf(string(out))
}

// goSetMetadata(metadataJSON) - replace the record drawn in the panel,
// e.g. with one read by the server's extractor.
func setMetadata(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return fail("need metadataJSON")
	}
	var m metadata.Metadata
	if err := json.Unmarshal([]byte(args[0].String()), &m); err != nil {
		return fail("parse metadata: %v", err)
	}
	ws.SetMetadata(m)
	return js.ValueOf("ok")
}

// goSelectTemplate(id)
func selectTemplate(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return fail("need id")
	}
	if err := ws.SelectTemplate(args[0].String()); err != nil {
		return fail("%v", err)
	}
	return js.ValueOf("ok")
}

// goUpdateSettings(settingsJSON) - {width, height, quality, format, overlayPosition}.
func updateSettings(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return fail("need settingsJSON")
	}
	var next render.Settings
	if err := json.Unmarshal([]byte(args[0].String()), &next); err != nil {
		return fail("parse settings: %v", err)
	}
	if next.Width <= 0 || next.Height <= 0 {
		return fail("width and height must be positive")
	}
	ws.UpdateSettings(func(s *render.Settings) { *s = next })
	return js.ValueOf("ok")
}

// goSetPixelRatio(devicePixelRatio)
func setPixelRatio(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return fail("need ratio")
	}
	ws.SetPixelRatio(args[0].Float())
	return js.ValueOf("ok")
}

// goRender() - render the current state and return a data URL.
func renderOverlay(this js.Value, args []js.Value) any {
	ctx := context.Background()
	img, err := ws.Render(ctx)
	switch {
	case errors.Is(err, workspace.ErrSuperseded):
		return js.ValueOf("superseded")
	case err != nil:
		return fail("%v", err)
	}
	s := ws.Settings()
	url, err := generator.DataURL(img, s.Format, s.Quality)
	if err != nil {
		return fail("encode: %v", err)
	}
	return js.ValueOf(url)
}

// goListTemplates() - JSON list of catalog entries.
func listTemplates(this js.Value, args []js.Value) any {
	out, err := json.Marshal(template.Entries())
	if err != nil {
		return fail("encode: %v", err)
	}
	return js.ValueOf(string(out))
}
