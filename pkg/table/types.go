package table

import (
	"fmt"
	"strings"
)

// Type is the declared semantic type of a column.
type Type uint8

const (
	Invalid Type = iota
	Integer
	Float
	Text
	Boolean
	Timestamp
	Categorical
)

var typeNames = [...]string{
	Invalid:     "invalid",
	Integer:     "integer",
	Float:       "float",
	Text:        "text",
	Boolean:     "boolean",
	Timestamp:   "timestamp",
	Categorical: "categorical",
}

// Types lists every valid column type in declaration order.
var Types = []Type{Integer, Float, Text, Boolean, Timestamp, Categorical}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// Valid reports whether t is one of the declared column types.
func (t Type) Valid() bool {
	return t >= Integer && t <= Categorical
}

// Numeric reports whether values of t can be read as float64.
func (t Type) Numeric() bool {
	return t == Integer || t == Float
}

// Textual reports whether values of t are strings.
func (t Type) Textual() bool {
	return t == Text || t == Categorical
}

// ParseType accepts the canonical type names and the common aliases used in
// pipeline definitions ("int", "double", "string", "datetime", "category").
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "integer", "int", "int64", "bigint":
		return Integer, nil
	case "float", "float64", "double", "real", "numeric":
		return Float, nil
	case "text", "string", "str", "varchar":
		return Text, nil
	case "boolean", "bool":
		return Boolean, nil
	case "timestamp", "datetime", "time", "date":
		return Timestamp, nil
	case "categorical", "category":
		return Categorical, nil
	}
	return Invalid, fmt.Errorf("table: unknown column type %q", s)
}

func (t Type) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("table: cannot marshal %s", t)
	}
	return []byte(t.String()), nil
}

func (t *Type) UnmarshalText(b []byte) error {
	parsed, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Field is a column name with its declared type.
type Field struct {
	Name string `json:"name" mapstructure:"name"`
	Type Type   `json:"type" mapstructure:"type"`
}

// Schema is the ordered list of fields of a table.
type Schema []Field

// Names returns the field names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return names
}

// Index returns the position of the named field or -1.
func (s Schema) Index(name string) int {
	for i, f := range s {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Lookup returns the declared type of the named field.
func (s Schema) Lookup(name string) (Type, bool) {
	if i := s.Index(name); i >= 0 {
		return s[i].Type, true
	}
	return Invalid, false
}

// Equal reports whether both schemas have the same fields in the same order.
func (s Schema) Equal(o Schema) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

func (s Schema) String() string {
	parts := make([]string, len(s))
	for i, f := range s {
		parts[i] = f.Name + ":" + f.Type.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
