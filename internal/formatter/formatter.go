package formatter

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/mcncl/jsonform/internal/models"
)

// DefaultIndent matches the two-space layout users see in the text editor.
const DefaultIndent = "  "

// Formatter renders a JSONValue as pretty-printed JSON text.
type Formatter struct {
	indent string
}

// NewFormatter creates a new Formatter using DefaultIndent
func NewFormatter() *Formatter {
	return &Formatter{indent: DefaultIndent}
}

// NewFormatterWithIndent creates a Formatter with a custom indent unit.
func NewFormatterWithIndent(indent string) *Formatter {
	if indent == "" {
		indent = DefaultIndent
	}
	return &Formatter{indent: indent}
}

// Format serializes v. Object members are written in insertion order, empty
// containers are written as {} and [], and no trailing newline is added.
func (f *Formatter) Format(v *models.JSONValue) string {
	var b strings.Builder
	f.write(&b, v, 0)
	return b.String()
}

func (f *Formatter) write(b *strings.Builder, v *models.JSONValue, depth int) {
	switch v.Kind {
	case models.Null:
		b.WriteString("null")
	case models.Bool:
		if v.Bool {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case models.Number:
		if v.Num == "" {
			b.WriteString("0")
		} else {
			b.WriteString(string(v.Num))
		}
	case models.String:
		b.WriteString(quote(v.Str))
	case models.Object:
		if v.Len() == 0 {
			b.WriteString("{}")
			return
		}
		b.WriteString("{\n")
		for i, m := range v.Members {
			f.pad(b, depth+1)
			b.WriteString(quote(m.Key))
			b.WriteString(": ")
			f.write(b, m.Value, depth+1)
			if i < len(v.Members)-1 {
				b.WriteByte(',')
			}
			b.WriteByte('\n')
		}
		f.pad(b, depth)
		b.WriteByte('}')
	case models.Array:
		if v.Len() == 0 {
			b.WriteString("[]")
			return
		}
		b.WriteString("[\n")
		for i, item := range v.Items {
			f.pad(b, depth+1)
			f.write(b, item, depth+1)
			if i < len(v.Items)-1 {
				b.WriteByte(',')
			}
			b.WriteByte('\n')
		}
		f.pad(b, depth)
		b.WriteByte(']')
	}
}

func (f *Formatter) pad(b *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		b.WriteString(f.indent)
	}
}

// quote escapes s as a JSON string without HTML escaping, so "<" stays "<".
func quote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		// Encoding a Go string cannot fail.
		panic(err)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
