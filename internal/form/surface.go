package form

import (
	"github.com/mcncl/jsonform/internal/path"
)

// Action is a clickable affordance attached to array nodes.
type Action int

const (
	// AddItem appends an item to an array.
	AddItem Action = iota
	// RemoveItem removes one array item.
	RemoveItem
)

func (a Action) String() string {
	if a == RemoveItem {
		return "remove"
	}
	return "add"
}

// Surface is the rendering toolkit a field tree is painted on. Layout and
// styling belong to the implementation.
type Surface interface {
	// Field creates a labeled input for a primitive node.
	Field(node *FieldNode, onEdit func(raw string) error)
	// Group creates a container for an object or array node; children renders its content.
	Group(node *FieldNode, children func())
	// Affordance creates a clickable control. RemoveItem affordances are
	// created for the item node, AddItem affordances for the array node.
	Affordance(node *FieldNode, action Action, onClick func() error)
}

// Materialize paints the whole field tree on surface.
func (s *Synchronizer) Materialize(surface Surface) {
	s.materialize(surface, s.root, false)
}

// MaterializeAt paints the subtree at p, e.g. an array whose items were just
// re-indexed by RemoveItem.
func (s *Synchronizer) MaterializeAt(surface Surface, p path.Path) error {
	node, err := s.Find(p)
	if err != nil {
		return err
	}
	s.materialize(surface, node, node.IsItem())
	return nil
}

func (s *Synchronizer) materialize(surface Surface, node *FieldNode, inArray bool) {
	p := node.Path
	if inArray {
		parent, last := p.Parent()
		surface.Affordance(node, RemoveItem, func() error {
			return s.RemoveItem(parent, last.Index)
		})
	}

	switch node.Kind {
	case PrimitiveField:
		surface.Field(node, func(raw string) error {
			return s.Edit(p, raw)
		})
	case ObjectField:
		surface.Group(node, func() {
			for _, c := range node.Children {
				s.materialize(surface, c, false)
			}
		})
	case ArrayField:
		surface.Group(node, func() {
			for _, c := range node.Children {
				s.materialize(surface, c, true)
			}
			surface.Affordance(node, AddItem, func() error {
				_, err := s.AddItem(p)
				return err
			})
		})
	}
}
