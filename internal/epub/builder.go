package epub

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// mimetypeContent is the required content of the "mimetype" file in a valid ePub.
const mimetypeContent = "application/epub+zip"

// contentDir is the directory inside the archive holding the package
// document and all content files.
const contentDir = "OEBPS"

// RefType classifies a content section for the OPF guide.
type RefType string

const (
	// RefTitlePage marks a section as the book's title page.
	RefTitlePage RefType = "title-page"
	// RefText marks a section as the beginning of the main text.
	RefText RefType = "text"
)

// Section is one content document in reading order.
type Section struct {
	// Filename is the archive-internal name, e.g. "article.xhtml".
	Filename string
	// Title labels the section in the table of contents.
	Title string
	// Body is the section's markup, placed verbatim inside the XHTML body.
	Body string
	// Type optionally classifies the section in the OPF guide.
	Type RefType
}

type resource struct {
	name      string
	data      []byte
	mediaType string
}

// Builder assembles an EPUB 2 container in memory and serializes it with
// WriteTo. A Builder is not safe for concurrent use.
type Builder struct {
	title      string
	author     string
	language   string
	date       string
	identifier string
	sections   []Section
	resources  []resource
	names      map[string]bool
}

// NewBuilder returns an empty Builder with language "en".
func NewBuilder() *Builder {
	return &Builder{language: "en", names: map[string]bool{}}
}

func (b *Builder) SetTitle(title string)   { b.title = title }
func (b *Builder) SetAuthor(author string) { b.author = author }
func (b *Builder) SetDate(date string)     { b.date = date }

// SetLanguage sets the dc:language value. Empty input is ignored.
func (b *Builder) SetLanguage(lang string) {
	if strings.TrimSpace(lang) != "" {
		b.language = lang
	}
}

// SetIdentifier sets the book's unique identifier. When unset, WriteTo
// generates a urn:uuid value.
func (b *Builder) SetIdentifier(id string) { b.identifier = id }

// AddSection appends a content document to the reading order.
func (b *Builder) AddSection(s Section) error {
	if err := b.claimName(s.Filename); err != nil {
		return err
	}
	if !strings.HasSuffix(strings.ToLower(s.Filename), ".xhtml") {
		return fmt.Errorf("epub: section filename %q must end in .xhtml", s.Filename)
	}
	b.sections = append(b.sections, s)
	return nil
}

// AddResource embeds an auxiliary file such as an image. name is the
// archive-internal path relative to the content directory, e.g.
// "images/photo.jpg".
func (b *Builder) AddResource(name string, data []byte, mediaType string) error {
	if err := b.claimName(name); err != nil {
		return err
	}
	if strings.TrimSpace(mediaType) == "" {
		return fmt.Errorf("epub: resource %q has no media type", name)
	}
	b.resources = append(b.resources, resource{name: name, data: data, mediaType: mediaType})
	return nil
}

// claimName validates an archive-internal name and reserves it.
func (b *Builder) claimName(name string) error {
	cleaned := path.Clean(name)
	if name == "" || cleaned != name || strings.HasPrefix(name, "/") || strings.HasPrefix(cleaned, "..") {
		return fmt.Errorf("epub: invalid archive name %q", name)
	}
	if b.names[name] {
		return fmt.Errorf("epub: duplicate archive name %q", name)
	}
	b.names[name] = true
	return nil
}

// WriteTo serializes the complete container to w. The mimetype entry is
// written first and stored uncompressed, as the format requires.
func (b *Builder) WriteTo(w io.Writer) error {
	if b.title == "" {
		return fmt.Errorf("epub: title is required")
	}
	if len(b.sections) == 0 {
		return fmt.Errorf("epub: at least one section is required")
	}
	identifier := b.identifier
	if identifier == "" {
		identifier = "urn:uuid:" + uuid.NewString()
	}

	zw := zip.NewWriter(w)

	// mimetype must be the first entry and must not be compressed.
	fw, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		return fmt.Errorf("epub: create mimetype: %w", err)
	}
	if _, err := fw.Write([]byte(mimetypeContent)); err != nil {
		return fmt.Errorf("epub: write mimetype: %w", err)
	}

	opfData, err := b.packageOPF(identifier)
	if err != nil {
		return err
	}
	ncxData, err := b.tocNCX(identifier)
	if err != nil {
		return err
	}

	type entry struct {
		name string
		data []byte
	}
	files := []entry{
		{"META-INF/container.xml", containerXML()},
		{contentDir + "/content.opf", opfData},
		{contentDir + "/toc.ncx", ncxData},
	}
	for _, s := range b.sections {
		files = append(files, entry{contentDir + "/" + s.Filename, sectionXHTML(s)})
	}
	for _, r := range b.resources {
		files = append(files, entry{contentDir + "/" + r.name, r.data})
	}

	for _, f := range files {
		fw, err := zw.Create(f.name)
		if err != nil {
			return fmt.Errorf("epub: create %s: %w", f.name, err)
		}
		if _, err := fw.Write(f.data); err != nil {
			return fmt.Errorf("epub: write %s: %w", f.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("epub: finalize archive: %w", err)
	}
	return nil
}
