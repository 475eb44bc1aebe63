package browser

import (
	"fmt"
	"strings"
)

// Literal quotes s as an XPath 1.0 string literal. XPath has no escape
// sequences, so a value holding both quote kinds is built with concat().
func Literal(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}

	var b strings.Builder
	b.WriteString("concat(")
	for i, part := range strings.Split(s, "'") {
		if i > 0 {
			b.WriteString(`, "'", `)
		}
		b.WriteString("'" + part + "'")
	}
	b.WriteString(")")
	return b.String()
}

// FrameXPath matches a frame or iframe element called name.
func FrameXPath(name string) string {
	lit := Literal(name)
	return fmt.Sprintf("//frame[@name = %s] | //iframe[@name = %s]", lit, lit)
}
