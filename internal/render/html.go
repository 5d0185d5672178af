package render

import (
	"fmt"
	"hash/fnv"
	"html"
	"html/template"
	"strconv"
	"strings"

	"github.com/iancoleman/strcase"

	"github.com/mcncl/jsonform/internal/form"
	"github.com/mcncl/jsonform/internal/scalar"
)

// HTMLSurface paints a field tree as plain HTML forms that post back to a
// form session. Every field, add and remove control is its own <form>, so the
// page works without scripts.
type HTMLSurface struct {
	base string
	b    strings.Builder
}

// NewHTMLSurface creates a surface whose controls post to base + "/field",
// base + "/add" and base + "/remove".
func NewHTMLSurface(base string) *HTMLSurface {
	return &HTMLSurface{base: strings.TrimSuffix(base, "/")}
}

// HTML returns the markup painted so far.
func (h *HTMLSurface) HTML() template.HTML {
	return template.HTML(h.b.String())
}

// ElementID derives a stable DOM id from a node path, e.g. users[0].firstName
// becomes "field-users-0-first-name". Ids only use [a-z0-9-]; keys that do not
// kebab-case into that set, including the empty key, become a "k" + hash segment.
func ElementID(node *form.FieldNode) string {
	parts := []string{"field"}
	for _, s := range node.Path {
		if s.IsIndex {
			parts = append(parts, strconv.Itoa(s.Index))
			continue
		}
		parts = append(parts, idSegment(s.Key))
	}
	if len(parts) == 1 {
		parts = append(parts, "root")
	}
	return strings.Join(parts, "-")
}

const idChars = "abcdefghijklmnopqrstuvwxyz0123456789-"

func idSegment(key string) string {
	if k := strcase.ToKebab(key); k != "" && strings.Trim(k, idChars) == "" {
		return k
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return fmt.Sprintf("k%08x", h.Sum32())
}

func (h *HTMLSurface) openForm(action string, node *form.FieldNode) {
	p, _ := node.Path.MarshalJSON()
	fmt.Fprintf(&h.b, `<form method="post" action="%s/%s"><input type="hidden" name="path" value="%s">`,
		html.EscapeString(h.base), action, html.EscapeString(string(p)))
}

// Field implements form.Surface.
func (h *HTMLSurface) Field(node *form.FieldNode, _ func(string) error) {
	id := html.EscapeString(ElementID(node))
	h.b.WriteString(`<div class="field-group">`)
	h.openForm("field", node)
	fmt.Fprintf(&h.b, `<label for="%s" title="%s">%s</label>`,
		id, html.EscapeString(node.Caption()), html.EscapeString(node.Title()))

	switch node.Editor {
	case scalar.Choice:
		fmt.Fprintf(&h.b, `<select id="%s" name="value">`, id)
		for _, c := range scalar.Choices {
			selected := ""
			if c == node.Raw {
				selected = " selected"
			}
			fmt.Fprintf(&h.b, `<option value="%s"%s>%s</option>`, c, selected, c)
		}
		h.b.WriteString(`</select>`)
	case scalar.Numeric:
		fmt.Fprintf(&h.b, `<input id="%s" name="value" type="number" step="any" value="%s">`, id, html.EscapeString(node.Raw))
	case scalar.Multiline:
		rows := strings.Count(node.Raw, "\n") + 2
		fmt.Fprintf(&h.b, `<textarea id="%s" name="value" rows="%d">%s</textarea>`, id, rows, html.EscapeString(node.Raw))
	case scalar.NullToken:
		fmt.Fprintf(&h.b, `<input id="%s" name="value" type="text" value="" placeholder="null">`, id)
	default:
		fmt.Fprintf(&h.b, `<input id="%s" name="value" type="text" value="%s">`, id, html.EscapeString(node.Raw))
	}
	h.b.WriteString(`<button type="submit">Save</button></form>`)
	if node.Error != "" {
		fmt.Fprintf(&h.b, `<div class="field-error">%s</div>`, html.EscapeString(node.Error))
	}
	h.b.WriteString(`</div>`)
}

// Group implements form.Surface.
func (h *HTMLSurface) Group(node *form.FieldNode, children func()) {
	class := "object-container"
	if node.Kind == form.ArrayField {
		class = "array-container"
	}
	fmt.Fprintf(&h.b, `<fieldset class="%s" id="%s"><legend><strong>%s</strong></legend>`,
		class, html.EscapeString(ElementID(node)), html.EscapeString(node.Caption()))
	children()
	h.b.WriteString(`</fieldset>`)
}

// Affordance implements form.Surface.
func (h *HTMLSurface) Affordance(node *form.FieldNode, action form.Action, _ func() error) {
	switch action {
	case form.AddItem:
		h.openForm("add", node)
		h.b.WriteString(`<button type="submit" class="add-btn">Add Item</button></form>`)
	case form.RemoveItem:
		parent, last := node.Path.Parent()
		p, _ := parent.MarshalJSON()
		fmt.Fprintf(&h.b, `<form method="post" action="%s/remove"><input type="hidden" name="path" value="%s"><input type="hidden" name="index" value="%d"><button type="submit" class="remove-btn">Remove</button></form>`,
			html.EscapeString(h.base), html.EscapeString(string(p)), last.Index)
	}
}
