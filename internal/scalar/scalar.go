// Package scalar maps JSON primitive kinds to editing affordances and coerces
// raw UI input back into JSON values. It knows nothing about paths or documents.
package scalar

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mcncl/jsonform/internal/errors"
	"github.com/mcncl/jsonform/internal/models"
)

// MultilineThreshold is the length past which a string editor grows.
const MultilineThreshold = 40

// Editor is the kind of input used to edit a primitive.
type Editor int

const (
	// Text is a single-line free text input.
	Text Editor = iota
	// Multiline is a free text input that grows with its content.
	Multiline
	// Numeric accepts number literals only.
	Numeric
	// Choice is a two-state true/false selection.
	Choice
	// NullToken shows the literal null; typing anything else turns the field into a string.
	NullToken
)

func (e Editor) String() string {
	switch e {
	case Text:
		return "text"
	case Multiline:
		return "multiline"
	case Numeric:
		return "number"
	case Choice:
		return "choice"
	case NullToken:
		return "null"
	default:
		return "unknown"
	}
}

// MarshalText lets editors appear by name in JSON payloads.
func (e Editor) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// Choices lists the allowed raw values for a Choice editor.
var Choices = []string{"true", "false"}

// EditorFor picks the editor for a primitive value.
func EditorFor(v *models.JSONValue) Editor {
	switch v.Kind {
	case models.Bool:
		return Choice
	case models.Number:
		return Numeric
	case models.Null:
		return NullToken
	default:
		if strings.Contains(v.Str, "\n") || utf8.RuneCountInString(v.Str) > MultilineThreshold {
			return Multiline
		}
		return Text
	}
}

// Raw returns the initial raw UI value for a primitive.
func Raw(v *models.JSONValue) string {
	switch v.Kind {
	case models.Bool:
		if v.Bool {
			return "true"
		}
		return "false"
	case models.Number:
		return string(v.Num)
	case models.String:
		return v.Str
	default:
		return "null"
	}
}

// Coerce converts raw UI input into a value of the given kind.
//
//   - boolean: "true" is true, anything else is false
//   - number: must be a JSON number literal, otherwise a coercion error is returned
//   - string: identity, with invalid UTF-8 replaced by U+FFFD
//   - null: "" or "null" stays null, any other text becomes a string
func Coerce(kind models.Kind, raw string) (*models.JSONValue, error) {
	switch kind {
	case models.Bool:
		return models.NewBool(raw == "true"), nil
	case models.Number:
		return parseNumber(raw)
	case models.String:
		return models.NewString(validText(raw)), nil
	case models.Null:
		if t := strings.TrimSpace(raw); t == "" || t == "null" {
			return models.NewNull(), nil
		}
		return models.NewString(validText(raw)), nil
	default:
		return nil, errors.NewCoercionError(fmt.Sprintf("%s values are not edited as scalars", kind), errors.ErrNotScalar)
	}
}

// validText matches what serialization writes, so edited strings survive a
// serialize/parse round trip.
func validText(raw string) string {
	return strings.ToValidUTF8(raw, "\uFFFD")
}

func parseNumber(raw string) (*models.JSONValue, error) {
	t := strings.TrimSpace(raw)
	if !isNumberLiteral(t) {
		return nil, errors.NewCoercionError(fmt.Sprintf("%q is not a number", raw), errors.ErrInvalidNumber)
	}
	return models.NewNumber(json.Number(t)), nil
}

// isNumberLiteral checks the JSON number grammar, which rejects NaN, Inf,
// hex and leading '+' that strconv would accept.
func isNumberLiteral(s string) bool {
	if s == "" || (s[0] != '-' && (s[0] < '0' || s[0] > '9')) {
		return false
	}
	var v json.Number
	return json.Unmarshal([]byte(s), &v) == nil
}
