// Package epub implements a minimal writer for EPUB 2 containers.
//
// It produces the canonical archive layout: a stored "mimetype" entry first,
// META-INF/container.xml pointing at the OPF package document, the OPF
// manifest/spine/guide, an NCX table of contents, one XHTML file per
// content section, and any embedded resources such as images.
//
// Use [NewBuilder], set metadata, add sections and resources, then call
// [Builder.WriteTo]:
//
//	b := epub.NewBuilder()
//	b.SetTitle("Title")
//	b.SetAuthor("Author")
//	_ = b.AddSection(epub.Section{Filename: "article.xhtml", Title: "Title", Body: markup})
//	err := b.WriteTo(f)
package epub
