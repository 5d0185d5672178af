package models

import (
	"encoding/json"
)

// Kind identifies which variant of the JSON tagged union a JSONValue holds.
type Kind int

const (
	Null Kind = iota
	Bool
	Number
	String
	Object
	Array
)

// String returns the JSON name of the kind, as shown next to form captions.
func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "boolean"
	case Number:
		return "number"
	case String:
		return "string"
	case Object:
		return "object"
	case Array:
		return "array"
	default:
		return "unknown"
	}
}

// MarshalText lets kinds appear by name in JSON payloads.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// IsScalar reports whether the kind is one of the four JSON primitives.
func (k Kind) IsScalar() bool {
	return k != Object && k != Array
}

// Member is a single name/value pair of a JSON object.
type Member struct {
	Key   string
	Value *JSONValue
}

// JSONValue is a tagged union over the JSON value kinds.
// Only the field matching Kind is meaningful. Object members keep their
// insertion order, which is also the order used when serializing.
type JSONValue struct {
	Kind    Kind
	Bool    bool
	Num     json.Number
	Str     string
	Members []Member
	Items   []*JSONValue
}

// NewNull creates a JSON null.
func NewNull() *JSONValue { return &JSONValue{Kind: Null} }

// NewBool creates a JSON boolean.
func NewBool(b bool) *JSONValue { return &JSONValue{Kind: Bool, Bool: b} }

// NewNumber creates a JSON number from its textual form.
func NewNumber(n json.Number) *JSONValue { return &JSONValue{Kind: Number, Num: n} }

// NewString creates a JSON string.
func NewString(s string) *JSONValue { return &JSONValue{Kind: String, Str: s} }

// NewObject creates a JSON object with members in the given order.
func NewObject(members ...Member) *JSONValue {
	obj := &JSONValue{Kind: Object, Members: make([]Member, 0, len(members))}
	for _, m := range members {
		obj.Set(m.Key, m.Value)
	}
	return obj
}

// NewArray creates a JSON array.
func NewArray(items ...*JSONValue) *JSONValue {
	if items == nil {
		items = []*JSONValue{}
	}
	return &JSONValue{Kind: Array, Items: items}
}

// Len returns the number of members or items for containers and zero otherwise.
func (v *JSONValue) Len() int {
	switch v.Kind {
	case Object:
		return len(v.Members)
	case Array:
		return len(v.Items)
	default:
		return 0
	}
}

// Get looks up an object member by key.
func (v *JSONValue) Get(key string) (*JSONValue, bool) {
	if v.Kind != Object {
		return nil, false
	}
	for _, m := range v.Members {
		if m.Key == key {
			return m.Value, true
		}
	}
	return nil, false
}

// Set replaces the member stored under key, or appends a new member when the
// key is not present yet. Replacing keeps the member's original position.
func (v *JSONValue) Set(key string, value *JSONValue) {
	for i := range v.Members {
		if v.Members[i].Key == key {
			v.Members[i].Value = value
			return
		}
	}
	v.Members = append(v.Members, Member{Key: key, Value: value})
}

// Clone returns a deep copy that shares no structure with v.
func (v *JSONValue) Clone() *JSONValue {
	if v == nil {
		return nil
	}
	c := &JSONValue{Kind: v.Kind, Bool: v.Bool, Num: v.Num, Str: v.Str}
	switch v.Kind {
	case Object:
		c.Members = make([]Member, len(v.Members))
		for i, m := range v.Members {
			c.Members[i] = Member{Key: m.Key, Value: m.Value.Clone()}
		}
	case Array:
		c.Items = make([]*JSONValue, len(v.Items))
		for i, item := range v.Items {
			c.Items[i] = item.Clone()
		}
	}
	return c
}

// Equal reports structural equality. Object member order is significant.
func (v *JSONValue) Equal(o *JSONValue) bool {
	if v == nil || o == nil {
		return v == o
	}
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case Null:
		return true
	case Bool:
		return v.Bool == o.Bool
	case Number:
		return v.Num == o.Num
	case String:
		return v.Str == o.Str
	case Object:
		if len(v.Members) != len(o.Members) {
			return false
		}
		for i := range v.Members {
			if v.Members[i].Key != o.Members[i].Key || !v.Members[i].Value.Equal(o.Members[i].Value) {
				return false
			}
		}
		return true
	case Array:
		if len(v.Items) != len(o.Items) {
			return false
		}
		for i := range v.Items {
			if !v.Items[i].Equal(o.Items[i]) {
				return false
			}
		}
		return true
	}
	return false
}
