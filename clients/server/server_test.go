package server

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/xob0t/exifoverlay/pkg/metadata"
)

func newTestServer(c *qt.C, opts Options) *httptest.Server {
	h, err := Handler(opts)
	c.Assert(err, qt.IsNil)
	ts := httptest.NewServer(h)
	c.Cleanup(ts.Close)
	return ts
}

func upload(c *qt.C, url, name, contentType string, data []byte) *http.Response {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	c.Assert(err, qt.IsNil)
	_, err = part.Write(data)
	c.Assert(err, qt.IsNil)
	c.Assert(mw.Close(), qt.IsNil)

	resp, err := http.Post(url+"/api/metadata", mw.FormDataContentType(), &body)
	c.Assert(err, qt.IsNil)
	c.Cleanup(func() { resp.Body.Close() })
	return resp
}

func pngBytes(c *qt.C) []byte {
	var buf bytes.Buffer
	c.Assert(png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 4, 4))), qt.IsNil)
	return buf.Bytes()
}

func TestTemplates(t *testing.T) {
	c := qt.New(t)
	ts := newTestServer(c, Options{})

	resp, err := http.Get(ts.URL + "/api/templates")
	c.Assert(err, qt.IsNil)
	defer resp.Body.Close()
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)

	var entries []struct {
		ID        string          `json:"id"`
		Available bool            `json:"available"`
		Default   bool            `json:"default"`
		Template  json.RawMessage `json:"template"`
	}
	c.Assert(json.NewDecoder(resp.Body).Decode(&entries), qt.IsNil)
	c.Assert(entries, qt.HasLen, 6)
	c.Assert(entries[0].ID, qt.Equals, "minimal")
	c.Assert(entries[0].Default, qt.IsTrue)
	for _, e := range entries {
		c.Assert(e.Available, qt.Equals, e.ID != "modern", qt.Commentf("%s", e.ID))
		c.Assert(len(e.Template) > 0, qt.Equals, e.Available)
	}

	for path, status := range map[string]int{
		"/api/templates/film":     http.StatusOK,
		"/api/templates/modern":   http.StatusConflict,
		"/api/templates/polaroid": http.StatusNotFound,
	} {
		resp, err := http.Get(ts.URL + path)
		c.Assert(err, qt.IsNil)
		resp.Body.Close()
		c.Assert(resp.StatusCode, qt.Equals, status, qt.Commentf("%s", path))
	}
}

func TestMetadataProbe(t *testing.T) {
	c := qt.New(t)
	ts := newTestServer(c, Options{MaxUpload: 4096})

	c.Run("png without exif", func(c *qt.C) {
		resp := upload(c, ts.URL, "shot.png", "image/png", pngBytes(c))
		c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
		var got metadataResponse
		c.Assert(json.NewDecoder(resp.Body).Decode(&got), qt.IsNil)
		c.Assert(got.Name, qt.Equals, "shot.png")
		c.Assert(got.Raw.IsZero(), qt.IsTrue)
		c.Assert(got.Metadata, qt.DeepEquals, metadata.Metadata{})
	})

	c.Run("type from extension", func(c *qt.C) {
		resp := upload(c, ts.URL, "shot.png", "application/octet-stream", pngBytes(c))
		c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
	})

	c.Run("unsupported type", func(c *qt.C) {
		resp := upload(c, ts.URL, "anim.gif", "image/gif", []byte("GIF89a"))
		c.Assert(resp.StatusCode, qt.Equals, http.StatusBadRequest)
		body, _ := io.ReadAll(resp.Body)
		c.Assert(string(body), qt.Contains, "Unsupported file type. Please use JPEG, PNG, WebP or HEIC files.")
	})

	c.Run("too large", func(c *qt.C) {
		resp := upload(c, ts.URL, "big.jpg", "image/jpeg", make([]byte, 8192))
		c.Assert(resp.StatusCode, qt.Equals, http.StatusBadRequest)
		body, _ := io.ReadAll(resp.Body)
		c.Assert(string(body), qt.Contains, "File too large. Maximum size is 4.0 KiB.")
	})

	c.Run("no file", func(c *qt.C) {
		resp, err := http.Post(ts.URL+"/api/metadata", "text/plain", strings.NewReader("x"))
		c.Assert(err, qt.IsNil)
		defer resp.Body.Close()
		c.Assert(resp.StatusCode, qt.Equals, http.StatusBadRequest)
	})
}

func TestStaticAndWasm(t *testing.T) {
	c := qt.New(t)

	ts := newTestServer(c, Options{})
	resp, err := http.Get(ts.URL + "/")
	c.Assert(err, qt.IsNil)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
	c.Assert(string(body), qt.Contains, "<title>exifoverlay</title>")

	resp, err = http.Get(ts.URL + "/wasm/main.wasm")
	c.Assert(err, qt.IsNil)
	resp.Body.Close()
	c.Assert(resp.StatusCode, qt.Equals, http.StatusNotFound)

	dir := c.TempDir()
	c.Assert(os.WriteFile(filepath.Join(dir, "main.wasm"), []byte("\x00asm"), 0o644), qt.IsNil)
	ts = newTestServer(c, Options{WasmDir: dir})
	resp, err = http.Get(ts.URL + "/wasm/main.wasm")
	c.Assert(err, qt.IsNil)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
	c.Assert(string(body), qt.Equals, "\x00asm")
}
