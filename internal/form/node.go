package form

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/iancoleman/strcase"

	"github.com/mcncl/jsonform/internal/models"
	"github.com/mcncl/jsonform/internal/path"
	"github.com/mcncl/jsonform/internal/scalar"
)

// NodeKind is the variant of a FieldNode.
type NodeKind int

const (
	PrimitiveField NodeKind = iota
	ObjectField
	ArrayField
)

func (k NodeKind) String() string {
	switch k {
	case ObjectField:
		return "object"
	case ArrayField:
		return "array"
	default:
		return "primitive"
	}
}

// MarshalText lets node kinds appear by name in JSON payloads.
func (k NodeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// FieldNode is the transient, UI-facing projection of one document node.
// Nodes are rebuilt whenever the whole document is replaced and must not be
// kept across such a replacement.
type FieldNode struct {
	Kind NodeKind  `json:"kind"`
	Path path.Path `json:"path"`
	// Key is the member name for object children and empty otherwise.
	Key       string        `json:"key,omitempty"`
	ValueKind models.Kind   `json:"type"`
	Editor    scalar.Editor `json:"editor"`
	Raw       string        `json:"value"`
	// Error holds the last rejected edit of a primitive field.
	Error    string       `json:"error,omitempty"`
	Children []*FieldNode `json:"children,omitempty"`
}

// IsItem reports whether the node is an element of an array.
func (n *FieldNode) IsItem() bool {
	last, ok := n.Path.Last()
	return ok && last.IsIndex
}

// Index returns the array index of an item node, or -1.
func (n *FieldNode) Index() int {
	if last, ok := n.Path.Last(); ok && last.IsIndex {
		return last.Index
	}
	return -1
}

// Name is the short name shown in front of the caption: the key, the item
// index, or nothing for the root. The empty key is shown as "".
func (n *FieldNode) Name() string {
	last, ok := n.Path.Last()
	switch {
	case !ok:
		return ""
	case last.IsIndex:
		return fmt.Sprintf("[%d]", last.Index)
	case last.Key == "":
		return `""`
	default:
		return last.Key
	}
}

// Caption labels the node with its name and kind, e.g. "tags: (Array)" or
// "age: (number)".
func (n *FieldNode) Caption() string {
	var kind string
	switch n.Kind {
	case ObjectField:
		kind = "(Object)"
	case ArrayField:
		kind = "(Array)"
	default:
		kind = "(" + n.ValueKind.String() + ")"
	}
	if name := n.Name(); name != "" {
		return name + ": " + kind
	}
	return kind
}

// Title is a human readable version of the key, e.g. "first_name" -> "First name".
func (n *FieldNode) Title() string {
	if n.Key == "" {
		return n.Name()
	}
	words := strcase.ToDelimited(n.Key, ' ')
	if words == "" {
		return n.Key
	}
	r, size := utf8.DecodeRuneInString(words)
	return string(unicode.ToUpper(r)) + words[size:]
}

// Build projects value at p into a field tree. It has no side effects.
func Build(value *models.JSONValue, p path.Path) *FieldNode {
	return build(value, p, "")
}

func build(value *models.JSONValue, p path.Path, key string) *FieldNode {
	switch value.Kind {
	case models.Object:
		node := &FieldNode{Kind: ObjectField, Path: p, Key: key, ValueKind: models.Object}
		node.Children = make([]*FieldNode, 0, len(value.Members))
		for _, m := range value.Members {
			node.Children = append(node.Children, build(m.Value, p.Key(m.Key), m.Key))
		}
		return node
	case models.Array:
		node := &FieldNode{Kind: ArrayField, Path: p, Key: key, ValueKind: models.Array}
		node.Children = buildItems(value, p)
		return node
	default:
		return &FieldNode{
			Kind:      PrimitiveField,
			Path:      p,
			Key:       key,
			ValueKind: value.Kind,
			Editor:    scalar.EditorFor(value),
			Raw:       scalar.Raw(value),
		}
	}
}

func buildItems(arr *models.JSONValue, p path.Path) []*FieldNode {
	items := make([]*FieldNode, 0, len(arr.Items))
	for i, item := range arr.Items {
		items = append(items, build(item, p.Index(i), ""))
	}
	return items
}

// Value reads the field tree back into a JSON value.
func (n *FieldNode) Value() (*models.JSONValue, error) {
	switch n.Kind {
	case ObjectField:
		obj := models.NewObject()
		for _, c := range n.Children {
			v, err := c.Value()
			if err != nil {
				return nil, err
			}
			obj.Set(c.Key, v)
		}
		return obj, nil
	case ArrayField:
		arr := models.NewArray()
		for _, c := range n.Children {
			v, err := c.Value()
			if err != nil {
				return nil, err
			}
			arr.Items = append(arr.Items, v)
		}
		return arr, nil
	default:
		if n.ValueKind == models.Null {
			return models.NewNull(), nil
		}
		return scalar.Coerce(n.ValueKind, n.Raw)
	}
}
