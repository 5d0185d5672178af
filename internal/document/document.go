// Package document holds the canonical JSON value of a form together with the
// remembered default items of arrays that were emptied.
package document

import (
	"slices"

	"github.com/mcncl/jsonform/internal/errors"
	"github.com/mcncl/jsonform/internal/models"
	"github.com/mcncl/jsonform/internal/path"
)

// Document owns the live JSON value. It is not safe for concurrent use;
// callers serialize access (see internal/session).
type Document struct {
	root     *models.JSONValue
	defaults map[string]*models.JSONValue
}

// New creates a Document around root. A nil root becomes JSON null.
func New(root *models.JSONValue) *Document {
	if root == nil {
		root = models.NewNull()
	}
	return &Document{
		root:     root,
		defaults: make(map[string]*models.JSONValue),
	}
}

// Root returns the live root value.
func (d *Document) Root() *models.JSONValue {
	return d.root
}

// Get resolves p against the document.
func (d *Document) Get(p path.Path) (*models.JSONValue, error) {
	cur := d.root
	for i, step := range p {
		next, ok := descend(cur, step)
		if !ok {
			return nil, errors.NewPathError(p[:i+1].String(), errors.ErrPathNotFound)
		}
		cur = next
	}
	return cur, nil
}

func descend(v *models.JSONValue, step path.Step) (*models.JSONValue, bool) {
	if step.IsIndex {
		if v.Kind != models.Array || step.Index < 0 || step.Index >= len(v.Items) {
			return nil, false
		}
		return v.Items[step.Index], true
	}
	return v.Get(step.Key)
}

// SetScalar replaces the value at p with a primitive. The existing value may be
// of any kind; the parent of p must be an object holding the key or an array
// holding the index. An empty path replaces a scalar root.
func (d *Document) SetScalar(p path.Path, value *models.JSONValue) error {
	if value == nil || !value.Kind.IsScalar() {
		return errors.NewPathError(p.String(), errors.ErrNotScalar)
	}
	if p.IsRoot() {
		d.root = value
		return nil
	}

	parentPath, last := p.Parent()
	parent, err := d.Get(parentPath)
	if err != nil {
		return err
	}
	if _, ok := descend(parent, last); !ok {
		return errors.NewPathError(p.String(), errors.ErrPathNotFound)
	}
	if last.IsIndex {
		parent.Items[last.Index] = value
	} else {
		parent.Set(last.Key, value)
	}
	return nil
}

func (d *Document) array(p path.Path) (*models.JSONValue, error) {
	v, err := d.Get(p)
	if err != nil {
		return nil, err
	}
	if v.Kind != models.Array {
		return nil, errors.NewPathError(p.String(), errors.ErrNotAnArray)
	}
	return v, nil
}

// AppendArrayItem appends a new element to the array at p and returns it with
// its index. The element is a deep copy of item 0, or of the remembered
// default for p when the array is empty, or an empty string otherwise.
func (d *Document) AppendArrayItem(p path.Path) (*models.JSONValue, int, error) {
	arr, err := d.array(p)
	if err != nil {
		return nil, 0, err
	}

	var item *models.JSONValue
	switch {
	case len(arr.Items) > 0:
		item = arr.Items[0].Clone()
	default:
		if remembered, ok := d.defaults[p.String()]; ok {
			item = remembered.Clone()
		} else {
			item = models.NewString("")
		}
	}

	arr.Items = append(arr.Items, item)
	return item, len(arr.Items) - 1, nil
}

// RemoveArrayItem removes element index from the array at p. Removing the last
// remaining element records it as the default for p, replacing any earlier one.
func (d *Document) RemoveArrayItem(p path.Path, index int) error {
	arr, err := d.array(p)
	if err != nil {
		return err
	}
	if index < 0 || index >= arr.Len() {
		return errors.NewIndexError(p.String(), index, arr.Len())
	}

	if arr.Len() == 1 {
		d.defaults[p.String()] = arr.Items[0]
	}
	arr.Items = slices.Delete(arr.Items, index, index+1)
	return nil
}

// ReplaceRoot installs a new root. Remembered defaults are kept because they
// are keyed by path and still apply when the new document has the same shape.
func (d *Document) ReplaceRoot(root *models.JSONValue) {
	if root == nil {
		root = models.NewNull()
	}
	d.root = root
}

// DefaultFor returns the remembered default item for the array at p.
func (d *Document) DefaultFor(p path.Path) (*models.JSONValue, bool) {
	v, ok := d.defaults[p.String()]
	return v, ok
}
