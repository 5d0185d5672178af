// Package path addresses nodes inside a JSON document.
package path

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Step is a single descent: an object key, or an array index when IsIndex is set.
type Step struct {
	Key     string
	Index   int
	IsIndex bool
}

// Path is an ordered sequence of steps from the document root.
// The zero value addresses the root.
type Path []Step

// Key returns a new path extended with an object key. p is never modified.
func (p Path) Key(key string) Path {
	return p.with(Step{Key: key})
}

// Index returns a new path extended with an array index. p is never modified.
func (p Path) Index(i int) Path {
	return p.with(Step{Index: i, IsIndex: true})
}

func (p Path) with(s Step) Path {
	next := make(Path, len(p), len(p)+1)
	copy(next, p)
	return append(next, s)
}

// IsRoot reports whether p addresses the document root.
func (p Path) IsRoot() bool { return len(p) == 0 }

// Parent returns the path without its last step and that last step.
// Calling Parent on the root panics.
func (p Path) Parent() (Path, Step) {
	return p[:len(p)-1 : len(p)-1], p[len(p)-1]
}

// Last returns the final step. ok is false for the root.
func (p Path) Last() (Step, bool) {
	if len(p) == 0 {
		return Step{}, false
	}
	return p[len(p)-1], true
}

// Equal reports whether both paths have the same step sequence.
func (p Path) Equal(o Path) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

// String renders the path as `a.b[0]`. Keys that are not plain identifiers are
// written as `["some key"]`, which keeps the form unambiguous and parseable.
func (p Path) String() string {
	var b strings.Builder
	for i, s := range p {
		switch {
		case s.IsIndex:
			b.WriteString("[" + strconv.Itoa(s.Index) + "]")
		case isIdent(s.Key):
			if i > 0 {
				b.WriteByte('.')
			}
			b.WriteString(s.Key)
		default:
			b.WriteString("[" + strconv.Quote(s.Key) + "]")
		}
	}
	return b.String()
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$' || r == '-' && i > 0:
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// Parse reads the String form back into a Path. The empty string is the root.
func Parse(s string) (Path, error) {
	p := Path{}
	i := 0
	for i < len(s) {
		switch c := s[i]; {
		case c == '[':
			end, step, err := parseBracket(s, i)
			if err != nil {
				return nil, err
			}
			p = append(p, step)
			i = end
		case c == '.':
			if i == 0 || i == len(s)-1 || s[i+1] == '.' || s[i+1] == '[' {
				return nil, fmt.Errorf("invalid path %q: misplaced '.' at offset %d", s, i)
			}
			i++
		default:
			if len(p) > 0 && s[i-1] != '.' {
				return nil, fmt.Errorf("invalid path %q: expected '.' or '[' at offset %d", s, i)
			}
			start := i
			for i < len(s) && s[i] != '.' && s[i] != '[' {
				i++
			}
			p = append(p, Step{Key: s[start:i]})
		}
	}
	return p, nil
}

func parseBracket(s string, start int) (int, Step, error) {
	rest := s[start+1:]
	if strings.HasPrefix(rest, `"`) {
		quoted, err := strconv.QuotedPrefix(rest)
		if err != nil {
			return 0, Step{}, fmt.Errorf("invalid path %q: bad quoted key at offset %d: %w", s, start, err)
		}
		if !strings.HasPrefix(rest[len(quoted):], "]") {
			return 0, Step{}, fmt.Errorf("invalid path %q: missing ']' at offset %d", s, start)
		}
		key, _ := strconv.Unquote(quoted)
		return start + 1 + len(quoted) + 1, Step{Key: key}, nil
	}
	end := strings.IndexByte(rest, ']')
	if end < 0 {
		return 0, Step{}, fmt.Errorf("invalid path %q: missing ']' at offset %d", s, start)
	}
	idx, err := strconv.Atoi(rest[:end])
	if err != nil || idx < 0 {
		return 0, Step{}, fmt.Errorf("invalid path %q: bad index %q", s, rest[:end])
	}
	return start + 1 + end + 1, Step{Index: idx, IsIndex: true}, nil
}

// MarshalJSON encodes the path as an array of strings and integers,
// e.g. ["users", 0, "name"].
func (p Path) MarshalJSON() ([]byte, error) {
	steps := make([]interface{}, len(p))
	for i, s := range p {
		if s.IsIndex {
			steps[i] = s.Index
		} else {
			steps[i] = s.Key
		}
	}
	return json.Marshal(steps)
}

// UnmarshalJSON accepts the array form produced by MarshalJSON, or the String form.
func (p *Path) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := Parse(s)
		if err != nil {
			return err
		}
		*p = parsed
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("path must be an array of keys and indices: %w", err)
	}
	out := make(Path, 0, len(raw))
	for _, r := range raw {
		var key string
		if err := json.Unmarshal(r, &key); err == nil {
			out = append(out, Step{Key: key})
			continue
		}
		var idx int
		if err := json.Unmarshal(r, &idx); err != nil || idx < 0 {
			return fmt.Errorf("path step %s is neither a key nor an index", string(r))
		}
		out = append(out, Step{Index: idx, IsIndex: true})
	}
	*p = out
	return nil
}
