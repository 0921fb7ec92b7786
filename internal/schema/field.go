// Package schema holds the ordered, named set of fields shared by every record
// of a dataset.
//
// The [Registry] assigns each field a contiguous index in insertion order and
// a stable [FieldID] handle, keeps name and handle lookups consistent with that
// order, and tracks which fields derive their value from a record's position.
// Structural changes are reported synchronously to a single [Subscriber].
package schema

import (
	"fmt"
	"strings"
)

// FieldType represents the data type of a field's values.
type FieldType int

const (
	FieldText FieldType = iota
	FieldEnum
	FieldDate
	FieldNumeric
	FieldBool
)

var fieldTypeNames = [...]string{
	FieldText:    "text",
	FieldEnum:    "enum",
	FieldDate:    "date",
	FieldNumeric: "numeric",
	FieldBool:    "bool",
}

// String returns the field type name.
func (t FieldType) String() string {
	if t < 0 || int(t) >= len(fieldTypeNames) {
		return "unknown"
	}
	return fieldTypeNames[t]
}

// ParseFieldType converts a type name ("text", "date", ...) to a FieldType.
// Matching is case-insensitive.
func ParseFieldType(s string) (FieldType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, name := range fieldTypeNames {
		if name == s {
			return FieldType(t), nil
		}
	}
	return FieldText, fmt.Errorf("unknown field type: %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t FieldType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *FieldType) UnmarshalText(b []byte) error {
	parsed, err := ParseFieldType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Descriptor is the configuration input for a single field.
type Descriptor struct {
	Name    string    `json:"name"`              // Unique field name
	Heading string    `json:"heading,omitempty"` // Display heading, defaults to Name
	Type    FieldType `json:"type"`

	// DependsOnRecordIndex marks fields whose value is derived from the
	// record's index in its collection.
	DependsOnRecordIndex bool `json:"dependsOnRecordIndex,omitempty"`

	// DependsOnRowIndex marks fields whose value is derived from the row the
	// record currently occupies in the view.
	DependsOnRowIndex bool `json:"dependsOnRowIndex,omitempty"`
}

// FieldID is a registry-assigned handle identifying a field for the lifetime
// of the registry. IDs are never reused, even after the field is cleared.
type FieldID uint32

// Field is a field installed in a Registry. The descriptor fields must not be
// modified after registration.
type Field struct {
	Descriptor

	id    FieldID
	index int
}

// ID returns the registry-assigned handle.
func (f *Field) ID() FieldID { return f.id }

// Index returns the field's position at the time it was added. Use
// Registry.FieldIndex for a lookup that fails once the field is cleared.
func (f *Field) Index() int { return f.index }

// DisplayHeading returns the heading, falling back to the name.
func (f *Field) DisplayHeading() string {
	if f.Heading != "" {
		return f.Heading
	}
	return f.Name
}

func (f *Field) String() string {
	return fmt.Sprintf("%s#%d", f.Name, f.index)
}
