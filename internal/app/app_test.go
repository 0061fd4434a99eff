package app

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hyperifyio/pagebook/internal/extract"
)

// fixedExtractor writes a canned article record, standing in for the
// external extraction boundary.
type fixedExtractor struct {
	record string
}

func (f *fixedExtractor) Extract(_ context.Context, _, outPath string) error {
	return os.WriteFile(outPath, []byte(f.record), 0o644)
}

func encodeTestImage(t *testing.T, format string) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: uint8(40 * x), B: uint8(40 * y), A: 255})
		}
	}
	var buf bytes.Buffer
	var err error
	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, img, nil)
	default:
		err = png.Encode(&buf, img)
	}
	if err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func countWorkDirs(t *testing.T) int {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(os.TempDir(), workDirPrefix+"*"))
	if err != nil {
		t.Fatal(err)
	}
	return len(matches)
}

func readBookEntry(t *testing.T, path, name string) string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer zr.Close()
	for _, f := range zr.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				t.Fatal(err)
			}
			defer rc.Close()
			data, err := io.ReadAll(rc)
			if err != nil {
				t.Fatal(err)
			}
			return string(data)
		}
	}
	t.Fatalf("entry %s not found in %s", name, path)
	return ""
}

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		OutputPath:        filepath.Join(t.TempDir(), "book.epub"),
		UserAgent:         "pagebook-test",
		PerRequestTimeout: 5 * time.Second,
		MaxAttempts:       1,
	}
}

func TestRun_EndToEnd(t *testing.T) {
	var imageFetches int32
	jpegData := encodeTestImage(t, "jpeg")
	pngData := encodeTestImage(t, "png")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/article-1":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(`<html><body><p>raw page</p></body></html>`))
		case "/photo.jpg":
			atomic.AddInt32(&imageFetches, 1)
			w.Header().Set("Content-Type", "image/jpeg")
			_, _ = w.Write(jpegData)
		case "/logo.png":
			atomic.AddInt32(&imageFetches, 1)
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(pngData)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	content := `<p>intro <img src=\"photo.jpg\"> outro <img src=\"` + srv.URL + `/logo.png\"></p>`
	record := `{"title":"T","byline":"B","content":"` + content + `"}`

	cfg := testConfig(t)
	cfg.TargetURL = srv.URL + "/article-1"
	a := New(cfg)
	a.Extractor = &fixedExtractor{record: record}

	before := countWorkDirs(t)
	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if after := countWorkDirs(t); after != before {
		t.Fatalf("working directory not cleaned up: %d != %d", after, before)
	}
	if got := atomic.LoadInt32(&imageFetches); got != 2 {
		t.Fatalf("expected 2 image fetches, got %d", got)
	}

	opf := readBookEntry(t, cfg.OutputPath, "OEBPS/content.opf")
	for _, want := range []string{"<dc:title>T</dc:title>", ">B</dc:creator>", `href="images/photo.jpg"`, `href="images/logo.png"`} {
		if !strings.Contains(opf, want) {
			t.Errorf("OPF missing %q", want)
		}
	}
	title := readBookEntry(t, cfg.OutputPath, "OEBPS/title.xhtml")
	if !strings.Contains(title, "T") {
		t.Fatalf("title page missing title")
	}
	article := readBookEntry(t, cfg.OutputPath, "OEBPS/article.xhtml")
	if !strings.Contains(article, `src="images/photo.jpg"`) || !strings.Contains(article, `src="images/logo.png"`) {
		t.Fatalf("image references not rewritten: %s", article)
	}
}

func TestRun_InvalidURLLeavesNoTraces(t *testing.T) {
	cfg := testConfig(t)
	cfg.TargetURL = "not a url"

	before := countWorkDirs(t)
	err := New(cfg).Run(context.Background())
	if !errors.Is(err, ErrInvalidTargetURL) {
		t.Fatalf("expected ErrInvalidTargetURL, got %v", err)
	}
	if after := countWorkDirs(t); after != before {
		t.Fatalf("workspace created for invalid URL")
	}
	if _, err := os.Stat(cfg.OutputPath); !os.IsNotExist(err) {
		t.Fatalf("output written for invalid URL")
	}
}

func TestRun_RelativeSchemelessURLRejected(t *testing.T) {
	cfg := testConfig(t)
	cfg.TargetURL = "example.com/story"
	if err := New(cfg).Run(context.Background()); !errors.Is(err, ErrInvalidTargetURL) {
		t.Fatalf("expected ErrInvalidTargetURL, got %v", err)
	}
}

func TestRun_MissingTitleAbortsBeforeImageFetch(t *testing.T) {
	var imageFetches int32
	pngData := encodeTestImage(t, "png")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/img") {
			atomic.AddInt32(&imageFetches, 1)
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(pngData)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>page</body></html>"))
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.TargetURL = srv.URL + "/article"
	a := New(cfg)
	a.Extractor = &fixedExtractor{record: `{"byline":"B","content":"<img src=\"/img/a.png\">"}`}

	err := a.Run(context.Background())
	var mf *extract.MissingFieldError
	if !errors.As(err, &mf) || mf.Field != "title" {
		t.Fatalf("expected MissingFieldError for title, got %v", err)
	}
	if got := atomic.LoadInt32(&imageFetches); got != 0 {
		t.Fatalf("expected no image fetches before validation failure, got %d", got)
	}
	if _, err := os.Stat(cfg.OutputPath); !os.IsNotExist(err) {
		t.Fatalf("output written despite validation failure")
	}
}

func TestRun_ImageFetchFailureAbortsRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/article" {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html><body>page</body></html>"))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.TargetURL = srv.URL + "/article"
	a := New(cfg)
	a.Extractor = &fixedExtractor{record: `{"title":"T","byline":"B","content":"<img src=\"gone.png\">"}`}

	before := countWorkDirs(t)
	err := a.Run(context.Background())
	if err == nil {
		t.Fatalf("expected error for failed image fetch")
	}
	if after := countWorkDirs(t); after != before {
		t.Fatalf("working directory not cleaned up on error path")
	}
	if _, err := os.Stat(cfg.OutputPath); !os.IsNotExist(err) {
		t.Fatalf("output written despite failed run")
	}
}

func TestRun_NoImages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>page</body></html>"))
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.TargetURL = srv.URL + "/story"
	a := New(cfg)
	a.Extractor = &fixedExtractor{record: `{"title":"T","byline":"B","content":"<p>no pictures here</p>"}`}

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	article := readBookEntry(t, cfg.OutputPath, "OEBPS/article.xhtml")
	if !strings.Contains(article, "no pictures here") {
		t.Fatalf("content missing: %s", article)
	}
}

func TestRun_OutputFromTitle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>page</body></html>"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	cfg := testConfig(t)
	cfg.OutputPath = filepath.Join(dir, "book.epub")
	cfg.OutputFromTitle = true
	cfg.TargetURL = srv.URL + "/story"
	a := New(cfg)
	a.Extractor = &fixedExtractor{record: `{"title":"Écrits & Ideas","byline":"B","content":"<p>x</p>"}`}

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	want := filepath.Join(dir, "ecrits-ideas.epub")
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("expected output at %s: %v", want, err)
	}
}

func TestRun_PDFSidecar(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>page</body></html>"))
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.EnablePDF = true
	cfg.TargetURL = srv.URL + "/story"
	a := New(cfg)
	a.Extractor = &fixedExtractor{record: `{"title":"T","byline":"B","content":"<p>first</p><p>second</p>"}`}

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	pdfPath := strings.TrimSuffix(cfg.OutputPath, ".epub") + ".pdf"
	data, err := os.ReadFile(pdfPath)
	if err != nil {
		t.Fatalf("expected pdf sidecar: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("sidecar is not a PDF")
	}
}
