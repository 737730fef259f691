// Package server hosts the exifoverlay web UI.
//
// Rendering happens in the browser through the WASM module; the server only
// serves static files, the template catalog and a metadata probe.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"k8s.io/klog/v2"

	"github.com/xob0t/exifoverlay/pkg/metadata"
	"github.com/xob0t/exifoverlay/pkg/source"
	"github.com/xob0t/exifoverlay/pkg/template"
)

//go:embed web/*
var webContent embed.FS

// multipart framing allowance on top of the file size limit
const formOverhead = 1 << 20

// Options configures the server.
type Options struct {
	Addr      string
	WasmDir   string // directory holding main.wasm and wasm_exec.js
	MaxUpload int64
	Extractor metadata.Extractor
	Open      bool // open a browser once listening
}

type srv struct {
	opts Options
}

// Handler builds the HTTP routes.
func Handler(opts Options) (http.Handler, error) {
	if opts.MaxUpload <= 0 {
		opts.MaxUpload = source.DefaultMaxBytes
	}
	if opts.Extractor == nil {
		opts.Extractor = metadata.GoexifExtractor{}
	}
	s := &srv{opts: opts}

	webFS, err := fs.Sub(webContent, "web")
	if err != nil {
		return nil, fmt.Errorf("embed web: %w", err)
	}

	mux := http.NewServeMux()

	// API routes.
	mux.HandleFunc("GET /api/templates", s.handleTemplates)
	mux.HandleFunc("GET /api/templates/{id}", s.handleTemplate)
	mux.HandleFunc("POST /api/metadata", s.handleMetadata)

	// WASM build output.
	if opts.WasmDir != "" {
		mux.Handle("GET /wasm/", http.StripPrefix("/wasm/", http.FileServer(http.Dir(opts.WasmDir))))
	} else {
		mux.HandleFunc("GET /wasm/", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "WASM module not configured: start with --wasm-dir", http.StatusNotFound)
		})
	}

	// Static files.
	mux.Handle("/", http.FileServer(http.FS(webFS)))

	return mux, nil
}

// Run serves until ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	h, err := Handler(opts)
	if err != nil {
		return err
	}
	if c, ok := opts.Extractor.(io.Closer); ok {
		defer c.Close()
	}

	hs := &http.Server{
		Addr:              opts.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- hs.ListenAndServe() }()

	url := "http://" + opts.Addr
	if strings.HasPrefix(opts.Addr, ":") {
		url = "http://localhost" + opts.Addr
	}
	klog.Infof("exifoverlay UI on %s", url)
	if opts.Open {
		go openBrowser(url)
	}

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := hs.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

// ── Templates ──

type templateEntry struct {
	template.Entry
	Template *template.Template `json:"template,omitempty"`
}

func (s *srv) handleTemplates(w http.ResponseWriter, r *http.Request) {
	entries := template.Entries()
	out := make([]templateEntry, 0, len(entries))
	for _, e := range entries {
		te := templateEntry{Entry: e}
		if e.Available {
			if t, err := template.Lookup(e.ID); err == nil {
				te.Template = &t
			}
		}
		out = append(out, te)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *srv) handleTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := template.Lookup(r.PathValue("id"))
	switch {
	case errors.Is(err, template.ErrUnknown):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// ── Metadata probe ──

type metadataResponse struct {
	Name     string            `json:"name"`
	Size     int64             `json:"size"`
	Raw      metadata.Raw      `json:"raw"`
	Metadata metadata.Metadata `json:"metadata"`
}

func (s *srv) handleMetadata(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUpload+formOverhead)
	f, hdr, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			http.Error(w, source.TooLarge(s.opts.MaxUpload).Error(), http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "no file: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer f.Close()

	ct := hdr.Header.Get("Content-Type")
	if ct == "application/octet-stream" {
		ct = "" // fall back to the file extension
	}
	if err := source.Validate(hdr.Filename, hdr.Size, ct, s.opts.MaxUpload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	raw := s.opts.Extractor.Extract(r.Context(), f)
	klog.V(1).Infof("metadata probe %s (%d bytes): %+v", hdr.Filename, hdr.Size, raw)

	writeJSON(w, http.StatusOK, metadataResponse{
		Name:     hdr.Filename,
		Size:     hdr.Size,
		Raw:      raw,
		Metadata: metadata.Normalize(raw),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		klog.V(1).Infof("write response: %v", err)
	}
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "darwin":
		cmd = exec.Command("open", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	cmd.Stdout, cmd.Stderr = os.Stderr, os.Stderr
	if err := cmd.Start(); err != nil {
		klog.Warningf("open browser: %v", err)
	}
}
