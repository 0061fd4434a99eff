// Package assemble turns a purified article and its downloaded images into
// a packaged EPUB document.
package assemble

import (
	"bytes"
	"fmt"
	"html"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/nfnt/resize"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/pagebook/internal/epub"
	"github.com/hyperifyio/pagebook/internal/extract"
)

// Image pairs a downloaded file with the absolute URL it came from. The URL
// is the key for rewriting in-content references to the embedded resource.
type Image struct {
	SourceURL string
	LocalPath string
}

// Options tunes assembly behavior.
type Options struct {
	// Origin is the article's source page URL, needed to resolve relative
	// in-content references the same way the resolver did.
	Origin *url.URL
	// MaxImageWidth downscales wider images before embedding. Zero
	// disables resampling and embeds the original bytes.
	MaxImageWidth int
}

// mediaTypes maps lower-cased image file extensions to declared media
// types. Extensions are normalized first, so .JPG and .jpg agree.
var mediaTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
}

// Build produces the complete EPUB bytes for the article: metadata from
// title/byline/date, a title page, one chapter with the article markup, and
// every image embedded as a resource. Content image references are
// rewritten to the embedded resource paths so the images actually render
// offline. Any missing required field, undecodable image, or container
// failure aborts assembly.
func Build(article *extract.Article, images []Image, opts Options) ([]byte, error) {
	if err := article.Validate(); err != nil {
		return nil, err
	}

	b := epub.NewBuilder()
	b.SetTitle(*article.Title)
	b.SetAuthor(*article.Byline)
	if article.Date != nil {
		b.SetDate(*article.Date)
	}

	embedded := make(map[string]string, len(images))
	for _, img := range images {
		name, data, mediaType, err := prepareImage(img.LocalPath, opts.MaxImageWidth)
		if err != nil {
			return nil, err
		}
		if err := b.AddResource(name, data, mediaType); err != nil {
			return nil, err
		}
		embedded[img.SourceURL] = name
	}

	content, err := rewriteImageRefs(*article.Content, opts.Origin, embedded)
	if err != nil {
		return nil, err
	}

	if err := b.AddSection(epub.Section{
		Filename: "title.xhtml",
		Title:    *article.Title,
		Body:     html.EscapeString(*article.Title),
		Type:     epub.RefTitlePage,
	}); err != nil {
		return nil, err
	}
	if err := b.AddSection(epub.Section{
		Filename: "article.xhtml",
		Title:    *article.Title,
		Body:     content,
		Type:     epub.RefText,
	}); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := b.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// prepareImage validates an image file by decoding it, optionally
// downscales it, and returns the archive-internal resource name, the bytes
// to embed, and the declared media type.
func prepareImage(path string, maxWidth int) (string, []byte, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, "", fmt.Errorf("read image %s: %w", path, err)
	}
	decoded, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", nil, "", fmt.Errorf("decode image %s: %w", path, err)
	}

	if maxWidth > 0 && decoded.Bounds().Dx() > maxWidth {
		scaled := resize.Resize(uint(maxWidth), 0, decoded, resize.Lanczos3)
		reencoded, err := encodeImage(scaled, format)
		if err != nil {
			return "", nil, "", fmt.Errorf("re-encode image %s: %w", path, err)
		}
		log.Debug().Str("file", path).Int("width", maxWidth).Msg("downscaled image")
		data = reencoded
	}

	name := filepath.Base(path)
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	mediaType, ok := mediaTypes[ext]
	if !ok {
		// Unknown extension; trust the decoded format instead.
		mediaType = "image/" + format
	}
	return "images/" + name, data, mediaType, nil
}

func encodeImage(img image.Image, format string) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case "jpeg":
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
			return nil, err
		}
	case "png":
		if err := png.Encode(&buf, img); err != nil {
			return nil, err
		}
	case "gif":
		if err := gif.Encode(&buf, img, nil); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported image format %q", format)
	}
	return buf.Bytes(), nil
}

// rewriteImageRefs repoints img src attributes from their original URLs to
// the embedded resource paths. References are resolved against origin with
// the same join semantics the resolver used, so relative and absolute forms
// both find their downloaded counterpart. Unmatched references are left
// alone.
func rewriteImageRefs(content string, origin *url.URL, embedded map[string]string) (string, error) {
	if len(embedded) == 0 {
		return content, nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("parse content: %w", err)
	}
	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		src, ok := sel.Attr("src")
		if !ok {
			return
		}
		key := src
		if ref, err := url.Parse(src); err == nil && !ref.IsAbs() && origin != nil {
			key = origin.ResolveReference(ref).String()
		}
		if name, ok := embedded[key]; ok {
			sel.SetAttr("src", name)
		}
	})
	rewritten, err := doc.Find("body").Html()
	if err != nil {
		return "", fmt.Errorf("serialize content: %w", err)
	}
	return rewritten, nil
}
