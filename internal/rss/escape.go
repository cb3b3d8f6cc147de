package rss

import "strings"

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// escapeXML escapes the five reserved markup characters in a single pass,
// so an ampersand in the input is never escaped twice.
func escapeXML(s string) string {
	return xmlEscaper.Replace(s)
}

// cdata wraps s in a CDATA section, splitting any "]]>" the content
// itself contains so the section cannot be terminated early.
func cdata(s string) string {
	return "<![CDATA[" + strings.ReplaceAll(s, "]]>", "]]]]><![CDATA[>") + "]]>"
}
