package parser

import (
	stderrors "errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcncl/jsonform/internal/errors"
	"github.com/mcncl/jsonform/internal/formatter"
	"github.com/mcncl/jsonform/internal/models"
)

func TestParse_SimpleObject(t *testing.T) {
	jsonStr := `{"name": "John Doe", "age": 30, "isStudent": false, "city": null}`
	root, err := Parse(strings.NewReader(jsonStr))
	require.NoError(t, err)

	expected := models.NewObject(
		models.Member{Key: "name", Value: models.NewString("John Doe")},
		models.Member{Key: "age", Value: models.NewNumber("30")},
		models.Member{Key: "isStudent", Value: models.NewBool(false)},
		models.Member{Key: "city", Value: models.NewNull()},
	)
	assert.True(t, expected.Equal(root), "got %s", formatter.NewFormatter().Format(root))
}

func TestParse_PreservesKeyOrder(t *testing.T) {
	root, err := ParseString(`{"zebra": 1, "apple": 2, "mango": {"b": 1, "a": 2}}`)
	require.NoError(t, err)

	assert.Equal(t, []string{"zebra", "apple", "mango"}, keysOf(root))
	mango, ok := root.Get("mango")
	require.True(t, ok)
	assert.Equal(t, []string{"b", "a"}, keysOf(mango))
}

func TestParse_DuplicateKeysKeepFirstPositionLastValue(t *testing.T) {
	root, err := ParseString(`{"a": 1, "b": 2, "a": 3}`)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, keysOf(root))
	a, _ := root.Get("a")
	assert.Equal(t, "3", string(a.Num))
}

func TestParse_RootKinds(t *testing.T) {
	tests := []struct {
		input string
		kind  models.Kind
	}{
		{`[1, "test", true, null, 3.14]`, models.Array},
		{`"just a string"`, models.String},
		{`42`, models.Number},
		{`true`, models.Bool},
		{`null`, models.Null},
		{`{}`, models.Object},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			root, err := ParseString(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, root.Kind)
		})
	}
}

func TestParse_RoundTrip(t *testing.T) {
	inputs := []string{
		`{"name": "Jane", "id": 123, "tags": ["go", "json"], "meta": {"deep": [[], {}, [1.5e3, -0.25]]}}`,
		`[{"x": 1}, {"x": 2, "y": null}]`,
		`"plain"`,
		`{"unicode": "héllo ☃", "escaped": "line\nbreak \"quoted\" <tag>"}`,
		`[]`,
	}

	f := formatter.NewFormatter()
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			v, err := ParseString(in)
			require.NoError(t, err)

			text := f.Format(v)
			again, err := ParseString(text)
			require.NoError(t, err)

			assert.True(t, v.Equal(again), "round trip changed value:\n%s", text)
			assert.Equal(t, text, f.Format(again))
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		sentinel error
	}{
		{"empty", "", errors.ErrEmptyInput},
		{"whitespace", "   \n\t", errors.ErrEmptyInput},
		{"missing value", `{"a":}`, errors.ErrInvalidJSON},
		{"unterminated object", `{"a": 1`, errors.ErrInvalidJSON},
		{"unterminated array", `[1, 2`, errors.ErrInvalidJSON},
		{"bare word", `{"invalid": json}`, errors.ErrInvalidJSON},
		{"unquoted key", `{a: 1}`, errors.ErrInvalidJSON},
		{"multiple values", `{} {}`, errors.ErrMultipleJSON},
		{"trailing garbage", `{} x`, errors.ErrInvalidJSON},
		{"trailing comma", `[1, 2,]`, errors.ErrInvalidJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, tt.sentinel), "got %v", err)

			var appErr *errors.AppError
			require.True(t, stderrors.As(err, &appErr))
			assert.Equal(t, errors.ErrorTypeParsing, appErr.Type)
		})
	}
}

func TestParse_Lenient(t *testing.T) {
	input := `{
		// comment
		"a": 1,
		"b": [1, 2,],
	}`

	_, err := ParseString(input)
	require.Error(t, err)

	root, err := ParseStringWithOptions(input, Options{Lenient: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keysOf(root))
	b, _ := root.Get("b")
	assert.Equal(t, 2, b.Len())
}

func TestParseString_Empty(t *testing.T) {
	_, err := ParseString("  ")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrEmptyInput))
}

func TestParseFile(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "parse_file_*.json")
	require.NoError(t, err)
	defer func() { _ = os.Remove(tmpFile.Name()) }()

	_, err = tmpFile.WriteString(`{"user": {"name": "Alice", "id": 42}}`)
	require.NoError(t, err)
	_ = tmpFile.Close()

	root, err := ParseFile(tmpFile.Name(), Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"user"}, keysOf(root))
}

func TestParseFile_Errors(t *testing.T) {
	_, err := ParseFile("", Options{})
	assert.Error(t, err)

	_, err = ParseFile("/non/existent/file.json", Options{})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrFileNotFound))

	empty, err := os.CreateTemp("", "parse_empty_*.json")
	require.NoError(t, err)
	defer func() { _ = os.Remove(empty.Name()) }()
	_ = empty.Close()

	_, err = ParseFile(empty.Name(), Options{})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrFileEmpty))
}

func keysOf(v *models.JSONValue) []string {
	keys := make([]string, 0, len(v.Members))
	for _, m := range v.Members {
		keys = append(keys, m.Key)
	}
	return keys
}
