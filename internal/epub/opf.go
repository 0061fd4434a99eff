package epub

import (
	"encoding/xml"
	"fmt"
)

// The write-side OPF model mirrors the reader-side schema: a <package>
// root with metadata, manifest, spine, and guide children. Namespaces are
// declared explicitly since encoding/xml emits attribute names verbatim.

type opfPackage struct {
	XMLName          xml.Name    `xml:"package"`
	Xmlns            string      `xml:"xmlns,attr"`
	Version          string      `xml:"version,attr"`
	UniqueIdentifier string      `xml:"unique-identifier,attr"`
	Metadata         opfMetadata `xml:"metadata"`
	Manifest         opfManifest `xml:"manifest"`
	Spine            opfSpine    `xml:"spine"`
	Guide            *opfGuide   `xml:"guide,omitempty"`
}

type opfMetadata struct {
	XmlnsDC    string        `xml:"xmlns:dc,attr"`
	XmlnsOPF   string        `xml:"xmlns:opf,attr"`
	Title      string        `xml:"dc:title"`
	Creator    *opfCreator   `xml:"dc:creator,omitempty"`
	Language   string        `xml:"dc:language"`
	Identifier opfIdentifier `xml:"dc:identifier"`
	Date       string        `xml:"dc:date,omitempty"`
}

// opfCreator is a dc:creator entry; role "aut" marks the author.
type opfCreator struct {
	Value string `xml:",chardata"`
	Role  string `xml:"opf:role,attr"`
}

type opfIdentifier struct {
	Value string `xml:",chardata"`
	ID    string `xml:"id,attr"`
}

type opfManifest struct {
	Items []opfManifestItem `xml:"item"`
}

type opfManifestItem struct {
	ID        string `xml:"id,attr"`
	Href      string `xml:"href,attr"`
	MediaType string `xml:"media-type,attr"`
}

type opfSpine struct {
	Toc      string            `xml:"toc,attr"`
	ItemRefs []opfSpineItemRef `xml:"itemref"`
}

type opfSpineItemRef struct {
	IDRef string `xml:"idref,attr"`
}

type opfGuide struct {
	References []opfGuideReference `xml:"reference"`
}

type opfGuideReference struct {
	Type  string `xml:"type,attr"`
	Title string `xml:"title,attr"`
	Href  string `xml:"href,attr"`
}

// packageOPF renders the OPF package document. Hrefs in the manifest are
// relative to the OPF's own directory.
func (b *Builder) packageOPF(identifier string) ([]byte, error) {
	pkg := opfPackage{
		Xmlns:            "http://www.idpf.org/2007/opf",
		Version:          "2.0",
		UniqueIdentifier: "BookId",
		Metadata: opfMetadata{
			XmlnsDC:    "http://purl.org/dc/elements/1.1/",
			XmlnsOPF:   "http://www.idpf.org/2007/opf",
			Title:      b.title,
			Language:   b.language,
			Identifier: opfIdentifier{Value: identifier, ID: "BookId"},
			Date:       b.date,
		},
		Manifest: opfManifest{
			Items: []opfManifestItem{
				{ID: "ncx", Href: "toc.ncx", MediaType: "application/x-dtbncx+xml"},
			},
		},
		Spine: opfSpine{Toc: "ncx"},
	}
	if b.author != "" {
		pkg.Metadata.Creator = &opfCreator{Value: b.author, Role: "aut"}
	}

	var guide opfGuide
	for i, s := range b.sections {
		id := fmt.Sprintf("section%d", i+1)
		pkg.Manifest.Items = append(pkg.Manifest.Items, opfManifestItem{
			ID: id, Href: s.Filename, MediaType: "application/xhtml+xml",
		})
		pkg.Spine.ItemRefs = append(pkg.Spine.ItemRefs, opfSpineItemRef{IDRef: id})
		if s.Type != "" {
			guide.References = append(guide.References, opfGuideReference{
				Type: string(s.Type), Title: s.Title, Href: s.Filename,
			})
		}
	}
	for i, r := range b.resources {
		pkg.Manifest.Items = append(pkg.Manifest.Items, opfManifestItem{
			ID: fmt.Sprintf("resource%d", i+1), Href: r.name, MediaType: r.mediaType,
		})
	}
	if len(guide.References) > 0 {
		pkg.Guide = &guide
	}

	return marshalXML(pkg)
}

// containerXML renders META-INF/container.xml pointing at the package
// document.
func containerXML() []byte {
	type rootFile struct {
		FullPath  string `xml:"full-path,attr"`
		MediaType string `xml:"media-type,attr"`
	}
	type container struct {
		XMLName   xml.Name   `xml:"container"`
		Version   string     `xml:"version,attr"`
		Xmlns     string     `xml:"xmlns,attr"`
		RootFiles []rootFile `xml:"rootfiles>rootfile"`
	}
	data, _ := marshalXML(container{
		Version: "1.0",
		Xmlns:   "urn:oasis:names:tc:opendocument:xmlns:container",
		RootFiles: []rootFile{
			{FullPath: contentDir + "/content.opf", MediaType: "application/oebps-package+xml"},
		},
	})
	return data
}

func marshalXML(v any) ([]byte, error) {
	body, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("epub: marshal xml: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}
