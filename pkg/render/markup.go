package render

import (
	"strings"

	"github.com/Sternrassler/boba-gallery/pkg/sanitize"
)

// attribute is a name/value pair written by markup. Values are escaped on
// output; url values are validated by sanitize.EscapeURL first.
type attribute struct {
	name  string
	value string
	url   bool
}

func attr(name, value string) attribute    { return attribute{name: name, value: value} }
func urlAttr(name, value string) attribute { return attribute{name: name, value: value, url: true} }

// markup is the only way cards reach the output: element and attribute
// names are literals in this package and every value passes through the
// sanitizers.
type markup struct {
	sb     strings.Builder
	indent int
}

func (m *markup) line() {
	m.sb.WriteByte('\n')
	for i := 0; i < m.indent; i++ {
		m.sb.WriteString("  ")
	}
}

func (m *markup) writeAttrs(attrs []attribute) {
	for _, a := range attrs {
		v := a.value
		if a.url {
			v = sanitize.EscapeURL(v)
		}
		m.sb.WriteByte(' ')
		m.sb.WriteString(a.name)
		m.sb.WriteString(`="`)
		m.sb.WriteString(sanitize.EscapeHTML(v))
		m.sb.WriteByte('"')
	}
}

// open writes a start tag on a new line and indents what follows.
func (m *markup) open(tag string, attrs ...attribute) {
	m.line()
	m.sb.WriteByte('<')
	m.sb.WriteString(tag)
	m.writeAttrs(attrs)
	m.sb.WriteByte('>')
	m.indent++
}

// close writes an end tag on a new line.
func (m *markup) close(tag string) {
	m.indent--
	m.line()
	m.sb.WriteString("</")
	m.sb.WriteString(tag)
	m.sb.WriteByte('>')
}

// void writes a self-closing element.
func (m *markup) void(tag string, attrs ...attribute) {
	m.line()
	m.sb.WriteByte('<')
	m.sb.WriteString(tag)
	m.writeAttrs(attrs)
	m.sb.WriteString(" />")
}

// inline writes <tag attrs>text</tag> on one line.
func (m *markup) inline(tag, text string, attrs ...attribute) {
	m.line()
	m.sb.WriteByte('<')
	m.sb.WriteString(tag)
	m.writeAttrs(attrs)
	m.sb.WriteByte('>')
	m.sb.WriteString(sanitize.EscapeHTML(text))
	m.sb.WriteString("</")
	m.sb.WriteString(tag)
	m.sb.WriteByte('>')
}

func (m *markup) String() string {
	return strings.TrimPrefix(m.sb.String(), "\n")
}
