// Package textview keeps the free-text JSON editor in step with the document.
// It is the only place where malformed input can enter the system.
package textview

import (
	"strings"

	"github.com/mcncl/jsonform/internal/formatter"
	"github.com/mcncl/jsonform/internal/models"
	"github.com/mcncl/jsonform/internal/parser"
)

// Outcome describes what a text edit did.
type Outcome int

const (
	// Unchanged means the text was blank; nothing is replaced and no error is shown.
	Unchanged Outcome = iota
	// Replaced means the text parsed and the caller must install the new value.
	Replaced
	// Invalid means the text did not parse; the document keeps its last valid value.
	Invalid
)

func (o Outcome) String() string {
	switch o {
	case Replaced:
		return "replaced"
	case Invalid:
		return "invalid"
	default:
		return "unchanged"
	}
}

// View holds the current editor text and its inline error indicator.
type View struct {
	formatter *formatter.Formatter
	opts      parser.Options
	text      string
	err       error
}

// New creates a View. A nil formatter uses the default two-space layout.
func New(f *formatter.Formatter, opts parser.Options) *View {
	if f == nil {
		f = formatter.NewFormatter()
	}
	return &View{formatter: f, opts: opts}
}

// Serialize renders v the way the editor shows it.
func (v *View) Serialize(value *models.JSONValue) string {
	return v.formatter.Format(value)
}

// Show regenerates the editor text from value and clears any error.
func (v *View) Show(value *models.JSONValue) {
	v.text = v.Serialize(value)
	v.err = nil
}

// Text returns the editor text, which may differ from the document while Err is set.
func (v *View) Text() string { return v.text }

// Options returns the parser options used for editor input.
func (v *View) Options() parser.Options { return v.opts }

// Err returns the parse error currently shown next to the editor, if any.
func (v *View) Err() error { return v.err }

// Input records text typed or pasted into the editor and parses it. On Replaced
// the parsed value is returned; on Invalid the parse error is returned and kept
// as the inline indicator until the next valid or blank input.
func (v *View) Input(text string) (*models.JSONValue, Outcome, error) {
	v.text = text
	if strings.TrimSpace(text) == "" {
		v.err = nil
		return nil, Unchanged, nil
	}

	value, err := parser.ParseWithOptions(strings.NewReader(text), v.opts)
	if err != nil {
		v.err = err
		return nil, Invalid, err
	}
	v.err = nil
	return value, Replaced, nil
}
