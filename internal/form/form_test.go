package form

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcncl/jsonform/internal/document"
	"github.com/mcncl/jsonform/internal/errors"
	"github.com/mcncl/jsonform/internal/formatter"
	"github.com/mcncl/jsonform/internal/models"
	"github.com/mcncl/jsonform/internal/parser"
	"github.com/mcncl/jsonform/internal/path"
	"github.com/mcncl/jsonform/internal/scalar"
	"github.com/mcncl/jsonform/internal/textview"
)

func mustParse(t *testing.T, s string) *models.JSONValue {
	t.Helper()
	v, err := parser.ParseString(s)
	require.NoError(t, err)
	return v
}

func newSync(t *testing.T, s string) *Synchronizer {
	t.Helper()
	return New(document.New(mustParse(t, s)), textview.New(nil, parser.Options{}), nil)
}

func canonical(t *testing.T, s string) string {
	t.Helper()
	return formatter.NewFormatter().Format(mustParse(t, s))
}

func TestBuild_ReadsBackToSameText(t *testing.T) {
	docs := []string{
		`{"name": "Ann", "age": 30, "admin": false, "nick": null, "tags": ["a", "b"], "address": {"city": "Oslo", "zip": "0150"}}`,
		`[{"x": 1}, {"x": 2, "y": [[], {}]}]`,
		`"root string"`,
		`{"empty": {}, "none": [], "n": -1.5e3}`,
	}

	f := formatter.NewFormatter()
	for _, d := range docs {
		t.Run(d, func(t *testing.T) {
			v := mustParse(t, d)
			tree := Build(v, path.Path{})

			back, err := tree.Value()
			require.NoError(t, err)
			assert.Equal(t, f.Format(v), f.Format(back))
		})
	}
}

func TestBuild_Shape(t *testing.T) {
	tree := Build(mustParse(t, `{"user": {"first_name": "Ann"}, "tags": ["x"], "bio": "`+strings.Repeat("y", 50)+`"}`), path.Path{})

	require.Equal(t, ObjectField, tree.Kind)
	require.Len(t, tree.Children, 3)

	user := tree.Children[0]
	assert.Equal(t, ObjectField, user.Kind)
	assert.Equal(t, "user: (Object)", user.Caption())

	first := user.Children[0]
	assert.Equal(t, PrimitiveField, first.Kind)
	assert.Equal(t, "user.first_name", first.Path.String())
	assert.Equal(t, "first_name: (string)", first.Caption())
	assert.Equal(t, "First name", first.Title())
	assert.Equal(t, scalar.Text, first.Editor)

	tags := tree.Children[1]
	assert.Equal(t, ArrayField, tags.Kind)
	assert.Equal(t, "tags: (Array)", tags.Caption())
	assert.True(t, tags.Children[0].IsItem())
	assert.Equal(t, "[0]: (string)", tags.Children[0].Caption())
	assert.Equal(t, "[0]", tags.Children[0].Title())

	assert.Equal(t, scalar.Multiline, tree.Children[2].Editor)
	assert.Equal(t, "(Object)", tree.Caption())
	assert.False(t, tree.IsItem())
	assert.Equal(t, -1, tree.Index())
}

func TestBuild_EmptyKey(t *testing.T) {
	tree := Build(mustParse(t, `{"": {"": 1}}`), path.Path{})

	outer := tree.Children[0]
	assert.Equal(t, `"": (Object)`, outer.Caption())
	assert.Equal(t, `""`, outer.Title())

	inner := outer.Children[0]
	assert.Equal(t, `"": (number)`, inner.Caption())
	assert.Equal(t, `""`, inner.Title())
	assert.Len(t, inner.Path, 2)
}

func TestNew_ShowsText(t *testing.T) {
	s := newSync(t, `{"a":1}`)
	assert.Equal(t, canonical(t, `{"a":1}`), s.Text())
	assert.NoError(t, s.Check())
}

func TestEdit_InvalidUTF8SurvivesRoundTrip(t *testing.T) {
	s := newSync(t, `["a"]`)
	require.NoError(t, s.Edit(path.Path{}.Index(0), "bad\xffbyte"))

	reparsed := mustParse(t, s.Text())
	assert.True(t, s.Document().Root().Equal(reparsed))
	assert.NoError(t, s.Check())
}

func TestEdit_BooleanCoercion(t *testing.T) {
	s := newSync(t, `{"on": true}`)
	on := path.Path{}.Key("on")

	require.NoError(t, s.Edit(on, "false"))

	v, err := s.Document().Get(on)
	require.NoError(t, err)
	assert.Equal(t, models.Bool, v.Kind)
	assert.False(t, v.Bool)
	assert.Equal(t, canonical(t, `{"on": false}`), s.Text())

	node, err := s.Find(on)
	require.NoError(t, err)
	assert.Equal(t, "false", node.Raw)
}

func TestEdit_OnlyTouchesEditedNode(t *testing.T) {
	s := newSync(t, `{"a": "x", "b": {"c": 1}}`)
	before := s.Root().Children[1]

	require.NoError(t, s.Edit(path.Path{}.Key("a"), "changed"))

	assert.Same(t, before, s.Root().Children[1])
	assert.Equal(t, canonical(t, `{"a": "changed", "b": {"c": 1}}`), s.Text())
	assert.NoError(t, s.Check())
}

func TestEdit_InvalidNumberIsRejected(t *testing.T) {
	s := newSync(t, `{"n": 5}`)
	n := path.Path{}.Key("n")
	text := s.Text()

	err := s.Edit(n, "abc")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrInvalidNumber))

	v, _ := s.Document().Get(n)
	assert.Equal(t, "5", string(v.Num))
	assert.Equal(t, text, s.Text())

	node, _ := s.Find(n)
	assert.NotEmpty(t, node.Error)

	require.NoError(t, s.Edit(n, "7"))
	assert.Empty(t, node.Error)
	assert.Equal(t, canonical(t, `{"n": 7}`), s.Text())
}

func TestEdit_NullBecomesString(t *testing.T) {
	s := newSync(t, `{"nick": null}`)
	nick := path.Path{}.Key("nick")

	require.NoError(t, s.Edit(nick, "null"))
	assert.Equal(t, canonical(t, `{"nick": null}`), s.Text())

	require.NoError(t, s.Edit(nick, "bob"))
	assert.Equal(t, canonical(t, `{"nick": "bob"}`), s.Text())

	node, _ := s.Find(nick)
	assert.Equal(t, models.String, node.ValueKind)
	assert.Equal(t, scalar.Text, node.Editor)
}

func TestEdit_Errors(t *testing.T) {
	s := newSync(t, `{"obj": {}}`)

	err := s.Edit(path.Path{}.Key("missing"), "x")
	assert.True(t, stderrors.Is(err, errors.ErrPathNotFound))

	err = s.Edit(path.Path{}.Key("obj"), "x")
	assert.True(t, stderrors.Is(err, errors.ErrNotScalar))
}

func TestEdit_RootScalar(t *testing.T) {
	s := newSync(t, `"hello"`)
	require.NoError(t, s.Edit(nil, "bye"))
	assert.Equal(t, `"bye"`, s.Text())
}

func TestAddItem_AppendsOneNode(t *testing.T) {
	s := newSync(t, `[{"x": 1}]`)
	first := s.Root().Children[0]

	node, err := s.AddItem(nil)
	require.NoError(t, err)

	require.Len(t, s.Root().Children, 2)
	assert.Same(t, first, s.Root().Children[0], "existing items are not rebuilt")
	assert.Same(t, node, s.Root().Children[1])
	assert.Equal(t, "[1]", node.Path.String())
	assert.Equal(t, canonical(t, `[{"x": 1}, {"x": 1}]`), s.Text())

	require.NoError(t, s.Edit(path.Path{}.Index(1).Key("x"), "2"))
	assert.Equal(t, canonical(t, `[{"x": 1}, {"x": 2}]`), s.Text())
	assert.NoError(t, s.Check())
}

func TestRemoveItem_ReindexesSiblings(t *testing.T) {
	s := newSync(t, `[10, 20, 30]`)

	require.NoError(t, s.RemoveItem(nil, 1))
	assert.Equal(t, canonical(t, `[10, 30]`), s.Text())
	require.Len(t, s.Root().Children, 2)
	assert.Equal(t, "[1]", s.Root().Children[1].Path.String())
	assert.Equal(t, "30", s.Root().Children[1].Raw)

	require.NoError(t, s.RemoveItem(nil, 1))
	assert.Equal(t, canonical(t, `[10]`), s.Text())
	assert.NoError(t, s.Check())

	err := s.RemoveItem(nil, 3)
	assert.True(t, stderrors.Is(err, errors.ErrIndexOutOfRange))
}

func TestRemoveThenAdd_ReusesLastItem(t *testing.T) {
	s := newSync(t, `{"list": ["a"]}`)
	list := path.Path{}.Key("list")

	require.NoError(t, s.RemoveItem(list, 0))
	assert.Equal(t, canonical(t, `{"list": []}`), s.Text())

	_, err := s.AddItem(list)
	require.NoError(t, err)
	assert.Equal(t, canonical(t, `{"list": ["a"]}`), s.Text())
}

func TestAddItem_NotAnArray(t *testing.T) {
	s := newSync(t, `{"obj": {}}`)
	_, err := s.AddItem(path.Path{}.Key("obj"))
	assert.True(t, stderrors.Is(err, errors.ErrNotAnArray))
}

func TestSetText(t *testing.T) {
	s := newSync(t, `{"a": 1}`)
	oldRoot := s.Root()
	oldDoc := s.Document().Root()

	outcome, err := s.SetText(`{"a":}`)
	require.Error(t, err)
	assert.Equal(t, textview.Invalid, outcome)
	assert.Same(t, oldDoc, s.Document().Root(), "invalid text leaves the document alone")
	assert.Same(t, oldRoot, s.Root(), "invalid text does not rebuild the field tree")
	assert.Equal(t, `{"a":}`, s.Text())
	assert.Error(t, s.View().Err())

	outcome, err = s.SetText("")
	require.NoError(t, err)
	assert.Equal(t, textview.Unchanged, outcome)
	assert.Same(t, oldDoc, s.Document().Root())
	assert.NoError(t, s.View().Err())

	outcome, err = s.SetText(`{"b": [true]}`)
	require.NoError(t, err)
	assert.Equal(t, textview.Replaced, outcome)
	assert.NotSame(t, oldRoot, s.Root())
	assert.Equal(t, canonical(t, `{"b": [true]}`), s.Text())
	assert.NoError(t, s.Check())
}

// recorder is a Surface that keeps the callbacks it is handed.
type recorder struct {
	lines  []string
	depth  int
	edits  map[string]func(string) error
	clicks map[string]func() error
}

func newRecorder() *recorder {
	return &recorder{edits: map[string]func(string) error{}, clicks: map[string]func() error{}}
}

func (r *recorder) emit(s string) {
	r.lines = append(r.lines, strings.Repeat("  ", r.depth)+s)
}

func (r *recorder) Field(node *FieldNode, onEdit func(string) error) {
	r.emit(node.Caption() + " = " + node.Raw)
	r.edits[node.Path.String()] = onEdit
}

func (r *recorder) Group(node *FieldNode, children func()) {
	r.emit(node.Caption())
	r.depth++
	children()
	r.depth--
}

func (r *recorder) Affordance(node *FieldNode, action Action, onClick func() error) {
	r.emit("<" + action.String() + ">")
	r.clicks[action.String()+" "+node.Path.String()] = onClick
}

func TestMaterialize(t *testing.T) {
	s := newSync(t, `{"name": "Ann", "tags": ["x", "y"]}`)
	r := newRecorder()
	s.Materialize(r)

	assert.Equal(t, []string{
		"(Object)",
		"  name: (string) = Ann",
		"  tags: (Array)",
		"    <remove>",
		"    [0]: (string) = x",
		"    <remove>",
		"    [1]: (string) = y",
		"    <add>",
	}, r.lines)

	require.NoError(t, r.edits["name"]("Bob"))
	require.NoError(t, r.clicks["add tags"]())
	assert.Equal(t, canonical(t, `{"name": "Bob", "tags": ["x", "y", "x"]}`), s.Text())

	require.NoError(t, r.clicks["remove tags[0]"]())
	assert.Equal(t, canonical(t, `{"name": "Bob", "tags": ["y", "x"]}`), s.Text())

	// Indices moved, so the array is painted again before the next click.
	r = newRecorder()
	require.NoError(t, s.MaterializeAt(r, path.Path{}.Key("tags")))
	require.NoError(t, r.clicks["remove tags[1]"]())
	assert.Equal(t, canonical(t, `{"name": "Bob", "tags": ["y"]}`), s.Text())

	assert.Error(t, s.MaterializeAt(r, path.Path{}.Key("missing")))
}
