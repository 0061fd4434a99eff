package app

import (
	"strings"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/net/html"

	"github.com/hyperifyio/pagebook/internal/extract"
)

// writeArticlePDF renders a plain-text PDF rendition of the article. This is
// intentionally simple: title, byline, then paragraphs, with no attempt at
// full HTML layout or embedded images.
func writeArticlePDF(article *extract.Article, outPath string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 16)
	pdf.MultiCell(0, 8, tr(*article.Title), "", "L", false)
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "I", 11)
	pdf.MultiCell(0, 6, tr(*article.Byline), "", "L", false)
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 11)
	for _, para := range articleParagraphs(article) {
		pdf.MultiCell(0, 5, tr(para), "", "L", false)
		pdf.Ln(3)
	}
	return pdf.OutputFileAndClose(outPath)
}

// articleParagraphs derives paragraph-sized text chunks, preferring the
// extractor's plain content over the full markup.
func articleParagraphs(article *extract.Article) []string {
	src := ""
	if article.PlainContent != nil && strings.TrimSpace(*article.PlainContent) != "" {
		src = *article.PlainContent
	} else if article.Content != nil {
		src = *article.Content
	}
	text := htmlToText(src)

	var paras []string
	for _, chunk := range strings.Split(text, "\n") {
		if p := strings.TrimSpace(chunk); p != "" {
			paras = append(paras, p)
		}
	}
	return paras
}

// htmlToText flattens markup to text, inserting newlines after block
// elements so paragraph boundaries survive. Plain text input passes
// through unchanged apart from whitespace handling.
func htmlToText(s string) string {
	node, err := html.Parse(strings.NewReader(s))
	if err != nil || node == nil {
		return s
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe":
				return
			}
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "p", "h1", "h2", "h3", "h4", "h5", "h6", "li", "br", "div":
				b.WriteString("\n")
			}
		}
	}
	walk(node)
	return b.String()
}
