// Package resolve discovers image references in purified article markup and
// normalizes each one to an absolute URL against the article's origin.
package resolve

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrMissingSrc is returned when an <img> element carries no src attribute.
// There is no per-image skip policy: one bad reference fails the document.
var ErrMissingSrc = errors.New("img element has no src attribute")

// Images scans htmlContent for <img> elements in document order and returns
// one absolute URL per element. References that are already absolute are
// kept verbatim; relative ones (including absolute-path and
// protocol-relative forms) are joined against origin. A missing src or an
// unparseable reference aborts the whole resolution.
func Images(htmlContent string, origin *url.URL) ([]string, error) {
	if strings.TrimSpace(htmlContent) == "" {
		return nil, nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("parse content: %w", err)
	}

	var urls []string
	var firstErr error
	doc.Find("img").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		src, ok := sel.Attr("src")
		if !ok {
			firstErr = fmt.Errorf("image %d: %w", i, ErrMissingSrc)
			return false
		}
		ref, err := url.Parse(src)
		if err != nil {
			firstErr = fmt.Errorf("image %d: malformed src %q: %w", i, src, err)
			return false
		}
		if ref.IsAbs() {
			urls = append(urls, src)
			return true
		}
		// Relative is the one tolerated case: join, don't reject.
		urls = append(urls, origin.ResolveReference(ref).String())
		return true
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return urls, nil
}
