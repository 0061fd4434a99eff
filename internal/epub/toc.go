package epub

import (
	"encoding/xml"
	"strconv"
)

// NCX write-side schema, the EPUB 2 table of contents.

type ncx struct {
	XMLName  xml.Name  `xml:"ncx"`
	Xmlns    string    `xml:"xmlns,attr"`
	Version  string    `xml:"version,attr"`
	Head     ncxHead   `xml:"head"`
	DocTitle ncxText   `xml:"docTitle"`
	NavMap   ncxNavMap `xml:"navMap"`
}

type ncxHead struct {
	Metas []ncxMeta `xml:"meta"`
}

type ncxMeta struct {
	Name    string `xml:"name,attr"`
	Content string `xml:"content,attr"`
}

type ncxText struct {
	Text string `xml:"text"`
}

type ncxNavMap struct {
	Points []ncxNavPoint `xml:"navPoint"`
}

type ncxNavPoint struct {
	ID        string     `xml:"id,attr"`
	PlayOrder int        `xml:"playOrder,attr"`
	Label     ncxText    `xml:"navLabel"`
	Content   ncxContent `xml:"content"`
}

type ncxContent struct {
	Src string `xml:"src,attr"`
}

// tocNCX renders toc.ncx with one flat navPoint per section. Sections
// without a title fall back to the book title.
func (b *Builder) tocNCX(identifier string) ([]byte, error) {
	doc := ncx{
		Xmlns:   "http://www.daisy.org/z3986/2005/ncx/",
		Version: "2005-1",
		Head: ncxHead{Metas: []ncxMeta{
			{Name: "dtb:uid", Content: identifier},
			{Name: "dtb:depth", Content: "1"},
			{Name: "dtb:totalPageCount", Content: "0"},
			{Name: "dtb:maxPageNumber", Content: "0"},
		}},
		DocTitle: ncxText{Text: b.title},
	}
	for i, s := range b.sections {
		title := s.Title
		if title == "" {
			title = b.title
		}
		doc.NavMap.Points = append(doc.NavMap.Points, ncxNavPoint{
			ID:        "navpoint-" + strconv.Itoa(i+1),
			PlayOrder: i + 1,
			Label:     ncxText{Text: title},
			Content:   ncxContent{Src: s.Filename},
		})
	}
	return marshalXML(doc)
}
