package epub

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"testing"
)

func buildSample(t *testing.T) *bytes.Buffer {
	t.Helper()
	b := NewBuilder()
	b.SetTitle("A Title")
	b.SetAuthor("An Author")
	b.SetDate("2024-01-02")
	if err := b.AddSection(Section{Filename: "title.xhtml", Title: "A Title", Body: "A Title", Type: RefTitlePage}); err != nil {
		t.Fatal(err)
	}
	if err := b.AddSection(Section{Filename: "article.xhtml", Title: "A Title", Body: `<p>Hello <img src="images/photo.jpg"/></p>`}); err != nil {
		t.Fatal(err)
	}
	if err := b.AddResource("images/photo.jpg", []byte("jpegbytes"), "image/jpeg"); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := b.WriteTo(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	return &buf
}

func readEntry(t *testing.T, zr *zip.Reader, name string) string {
	t.Helper()
	for _, f := range zr.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				t.Fatalf("open %s: %v", name, err)
			}
			defer rc.Close()
			data, err := io.ReadAll(rc)
			if err != nil {
				t.Fatalf("read %s: %v", name, err)
			}
			return string(data)
		}
	}
	t.Fatalf("entry %s not found", name)
	return ""
}

func TestWriteTo_MimetypeFirstAndStored(t *testing.T) {
	buf := buildSample(t)
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("not a zip: %v", err)
	}
	if len(zr.File) == 0 || zr.File[0].Name != "mimetype" {
		t.Fatalf("expected first entry mimetype")
	}
	if zr.File[0].Method != zip.Store {
		t.Fatalf("mimetype must be stored uncompressed")
	}
	if got := readEntry(t, zr, "mimetype"); got != "application/epub+zip" {
		t.Fatalf("unexpected mimetype content: %q", got)
	}
}

func TestWriteTo_ContainerPointsAtOPF(t *testing.T) {
	buf := buildSample(t)
	zr, _ := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	c := readEntry(t, zr, "META-INF/container.xml")
	if !strings.Contains(c, `full-path="OEBPS/content.opf"`) {
		t.Fatalf("container.xml missing OPF path: %s", c)
	}
}

func TestWriteTo_OPFContents(t *testing.T) {
	buf := buildSample(t)
	zr, _ := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	opf := readEntry(t, zr, "OEBPS/content.opf")

	for _, want := range []string{
		"<dc:title>A Title</dc:title>",
		`opf:role="aut"`,
		"An Author",
		"<dc:date>2024-01-02</dc:date>",
		`href="images/photo.jpg"`,
		`media-type="image/jpeg"`,
		`href="article.xhtml"`,
		`type="title-page"`,
		"urn:uuid:",
	} {
		if !strings.Contains(opf, want) {
			t.Errorf("OPF missing %q:\n%s", want, opf)
		}
	}
}

func TestWriteTo_SectionsAndResources(t *testing.T) {
	buf := buildSample(t)
	zr, _ := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))

	title := readEntry(t, zr, "OEBPS/title.xhtml")
	if !strings.Contains(title, "A Title") {
		t.Fatalf("title page missing title text")
	}
	article := readEntry(t, zr, "OEBPS/article.xhtml")
	if !strings.Contains(article, `<img src="images/photo.jpg"/>`) {
		t.Fatalf("article body not preserved verbatim: %s", article)
	}
	if got := readEntry(t, zr, "OEBPS/images/photo.jpg"); got != "jpegbytes" {
		t.Fatalf("resource bytes mismatch: %q", got)
	}
	ncx := readEntry(t, zr, "OEBPS/toc.ncx")
	if !strings.Contains(ncx, `src="article.xhtml"`) {
		t.Fatalf("toc.ncx missing navpoint: %s", ncx)
	}
}

func TestWriteTo_RequiresTitleAndSection(t *testing.T) {
	var buf bytes.Buffer
	b := NewBuilder()
	if err := b.WriteTo(&buf); err == nil {
		t.Fatalf("expected error without title")
	}
	b.SetTitle("T")
	if err := b.WriteTo(&buf); err == nil {
		t.Fatalf("expected error without sections")
	}
}

func TestAddResource_RejectsBadNames(t *testing.T) {
	b := NewBuilder()
	for _, name := range []string{"", "/abs.png", "../escape.png"} {
		if err := b.AddResource(name, nil, "image/png"); err == nil {
			t.Errorf("expected error for name %q", name)
		}
	}
	if err := b.AddResource("images/a.png", nil, "image/png"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.AddResource("images/a.png", nil, "image/png"); err == nil {
		t.Fatalf("expected duplicate name error")
	}
	if err := b.AddResource("images/b.png", nil, ""); err == nil {
		t.Fatalf("expected missing media type error")
	}
}

func TestTitleEscapedInHead(t *testing.T) {
	b := NewBuilder()
	b.SetTitle("Fish & Chips <deluxe>")
	if err := b.AddSection(Section{Filename: "t.xhtml", Title: "Fish & Chips <deluxe>", Body: "x"}); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := b.WriteTo(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	zr, _ := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	page := readEntry(t, zr, "OEBPS/t.xhtml")
	if !strings.Contains(page, "<title>Fish &amp; Chips &lt;deluxe&gt;</title>") {
		t.Fatalf("head title not escaped: %s", page)
	}
}
