package epub

import (
	"bytes"
	"encoding/xml"
)

const xhtmlDoctype = `<?xml version="1.0" encoding="utf-8"?>
<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.1//EN" "http://www.w3.org/TR/xhtml11/DTD/xhtml11.dtd">
`

// sectionXHTML wraps a section's body markup in a complete XHTML document.
// The body is emitted verbatim; only the head title is escaped.
func sectionXHTML(s Section) []byte {
	var buf bytes.Buffer
	buf.WriteString(xhtmlDoctype)
	buf.WriteString(`<html xmlns="http://www.w3.org/1999/xhtml">` + "\n<head>\n<title>")
	_ = xml.EscapeText(&buf, []byte(s.Title))
	buf.WriteString("</title>\n</head>\n<body>\n")
	buf.WriteString(s.Body)
	buf.WriteString("\n</body>\n</html>\n")
	return buf.Bytes()
}
