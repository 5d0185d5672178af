// Package render provides Surface implementations for the field tree.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/mcncl/jsonform/internal/form"
	"github.com/mcncl/jsonform/internal/scalar"
)

// TextSurface paints a field tree as an indented outline, one node per line.
// Callbacks are ignored; it is used for terminal output.
type TextSurface struct {
	w      io.Writer
	indent string
	depth  int
	err    error
}

// NewTextSurface creates a TextSurface writing to w.
func NewTextSurface(w io.Writer) *TextSurface {
	return &TextSurface{w: w, indent: "  "}
}

// Err returns the first write error, if any.
func (t *TextSurface) Err() error { return t.err }

func (t *TextSurface) line(s string) {
	if t.err != nil {
		return
	}
	_, t.err = io.WriteString(t.w, strings.Repeat(t.indent, t.depth)+s+"\n")
}

// Field implements form.Surface.
func (t *TextSurface) Field(node *form.FieldNode, _ func(string) error) {
	value := node.Raw
	switch node.Editor {
	case scalar.Text, scalar.Multiline:
		value = fmt.Sprintf("%q", node.Raw)
	}
	if node.Error != "" {
		t.line(fmt.Sprintf("%s = %s  ! %s", node.Caption(), value, node.Error))
		return
	}
	t.line(node.Caption() + " = " + value)
}

// Group implements form.Surface.
func (t *TextSurface) Group(node *form.FieldNode, children func()) {
	t.line(node.Caption())
	t.depth++
	children()
	t.depth--
}

// Affordance implements form.Surface. Only the add control is shown; remove
// controls would repeat on every item.
func (t *TextSurface) Affordance(node *form.FieldNode, action form.Action, _ func() error) {
	if action == form.AddItem {
		t.line("+ add item")
	}
}
