// Package form keeps a field tree and the text editor synchronized with a
// document. UI edits mutate the document in place and regenerate the text;
// text edits replace the document and rebuild the field tree from scratch.
package form

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mcncl/jsonform/internal/document"
	"github.com/mcncl/jsonform/internal/errors"
	"github.com/mcncl/jsonform/internal/models"
	"github.com/mcncl/jsonform/internal/path"
	"github.com/mcncl/jsonform/internal/scalar"
	"github.com/mcncl/jsonform/internal/textview"
)

// Synchronizer routes edits between a Document, its field tree and its text view.
// It is not safe for concurrent use.
type Synchronizer struct {
	doc  *document.Document
	view *textview.View
	root *FieldNode
	log  *zap.Logger
}

// New builds the field tree and the text for doc.
func New(doc *document.Document, view *textview.View, log *zap.Logger) *Synchronizer {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Synchronizer{doc: doc, view: view, log: log.Named("form")}
	s.rebuild()
	s.view.Show(doc.Root())
	return s
}

// Document returns the synchronized document.
func (s *Synchronizer) Document() *document.Document { return s.doc }

// View returns the text view.
func (s *Synchronizer) View() *textview.View { return s.view }

// Root returns the root of the current field tree.
func (s *Synchronizer) Root() *FieldNode { return s.root }

// Text returns the current editor text.
func (s *Synchronizer) Text() string { return s.view.Text() }

func (s *Synchronizer) rebuild() {
	s.root = Build(s.doc.Root(), path.Path{})
}

// Find locates the field node addressing p.
func (s *Synchronizer) Find(p path.Path) (*FieldNode, error) {
	node := s.root
	for i, step := range p {
		var next *FieldNode
		switch {
		case step.IsIndex && node.Kind == ArrayField:
			if step.Index >= 0 && step.Index < len(node.Children) {
				next = node.Children[step.Index]
			}
		case !step.IsIndex && node.Kind == ObjectField:
			for _, c := range node.Children {
				if c.Key == step.Key {
					next = c
					break
				}
			}
		}
		if next == nil {
			return nil, errors.NewPathError(p[:i+1].String(), errors.ErrPathNotFound)
		}
		node = next
	}
	return node, nil
}

// Edit applies a raw UI value to the primitive field at p. The value is
// coerced to the field's current kind; a rejected value leaves the document
// untouched and is recorded on the field node. Only the edited node changes.
func (s *Synchronizer) Edit(p path.Path, raw string) error {
	node, err := s.Find(p)
	if err != nil {
		return err
	}
	if node.Kind != PrimitiveField {
		return errors.NewPathError(p.String(), errors.ErrNotScalar)
	}

	value, err := scalar.Coerce(node.ValueKind, raw)
	if err != nil {
		node.Error = errors.UserFriendlyError(err)
		return err
	}
	if err := s.doc.SetScalar(p, value); err != nil {
		s.log.Error("field tree out of sync with document", zap.Stringer("path", p), zap.Error(err))
		return err
	}

	node.ValueKind = value.Kind
	node.Editor = scalar.EditorFor(value)
	node.Raw = scalar.Raw(value)
	node.Error = ""
	s.view.Show(s.doc.Root())
	return nil
}

func (s *Synchronizer) arrayNode(p path.Path) (*FieldNode, error) {
	node, err := s.Find(p)
	if err != nil {
		return nil, err
	}
	if node.Kind != ArrayField {
		return nil, errors.NewPathError(p.String(), errors.ErrNotAnArray)
	}
	return node, nil
}

// AddItem appends an item to the array at p and builds exactly one new child
// node for it. Sibling nodes are left as they are.
func (s *Synchronizer) AddItem(p path.Path) (*FieldNode, error) {
	node, err := s.arrayNode(p)
	if err != nil {
		return nil, err
	}
	item, idx, err := s.doc.AppendArrayItem(p)
	if err != nil {
		return nil, err
	}
	if idx != len(node.Children) {
		s.log.Error("array node out of sync with document",
			zap.Stringer("path", p), zap.Int("items", idx), zap.Int("nodes", len(node.Children)))
		node.Children = buildItems(s.mustGet(p), p)
	} else {
		node.Children = append(node.Children, Build(item, p.Index(idx)))
	}
	s.view.Show(s.doc.Root())
	return node.Children[idx], nil
}

// RemoveItem removes item index from the array at p and rebuilds the children
// of that array only, since every later sibling changes its index.
func (s *Synchronizer) RemoveItem(p path.Path, index int) error {
	node, err := s.arrayNode(p)
	if err != nil {
		return err
	}
	if err := s.doc.RemoveArrayItem(p, index); err != nil {
		return err
	}
	node.Children = buildItems(s.mustGet(p), p)
	s.view.Show(s.doc.Root())
	return nil
}

func (s *Synchronizer) mustGet(p path.Path) *models.JSONValue {
	v, err := s.doc.Get(p)
	if err != nil {
		// p was resolved a moment ago by the same handler.
		panic(fmt.Sprintf("form: path %s vanished: %v", p, err))
	}
	return v
}

// SetText handles input typed into the text editor. Valid JSON replaces the
// document and rebuilds the whole field tree; blank text changes nothing;
// invalid text only sets the view's error indicator.
func (s *Synchronizer) SetText(text string) (textview.Outcome, error) {
	value, outcome, err := s.view.Input(text)
	switch outcome {
	case textview.Replaced:
		s.Replace(value)
	case textview.Invalid:
		s.log.Debug("text edit rejected", zap.Error(err))
	}
	return outcome, err
}

// Replace installs value as the new document root, rebuilds the field tree
// and regenerates the text.
func (s *Synchronizer) Replace(value *models.JSONValue) {
	s.doc.ReplaceRoot(value)
	s.rebuild()
	s.view.Show(s.doc.Root())
	s.log.Debug("document replaced", zap.Stringer("kind", s.doc.Root().Kind))
}

// Check verifies that the field tree still reads back as the document.
func (s *Synchronizer) Check() error {
	fromTree, err := s.root.Value()
	if err != nil {
		return fmt.Errorf("read field tree: %w", err)
	}
	if !fromTree.Equal(s.doc.Root()) {
		return fmt.Errorf("field tree diverged from document")
	}
	return nil
}
