// Package optional provides a JSON field wrapper that distinguishes absent
// keys from explicit nulls. Partial updates use it so that omitted fields are
// left untouched while fields set to null clear the stored value.
package optional

import "encoding/json"

// Field wraps a value that may be absent, null, or set.
type Field[T any] struct {
	set   bool
	null  bool
	value T
}

// Of returns a set Field holding v.
func Of[T any](v T) Field[T] {
	return Field[T]{set: true, value: v}
}

// Null returns a Field explicitly set to null.
func Null[T any]() Field[T] {
	return Field[T]{set: true, null: true}
}

// IsSet reports whether the key was present in the payload (including null).
func (f Field[T]) IsSet() bool { return f.set }

// IsNull reports whether the key was present and explicitly null.
func (f Field[T]) IsNull() bool { return f.set && f.null }

// Value returns the value and whether a non-null value is present.
func (f Field[T]) Value() (T, bool) {
	if !f.set || f.null {
		var zero T
		return zero, false
	}
	return f.value, true
}

// UnmarshalJSON is only invoked for keys present in the payload, so a zero
// Field means "absent".
func (f *Field[T]) UnmarshalJSON(b []byte) error {
	f.set = true
	if string(b) == "null" {
		f.null = true
		return nil
	}
	return json.Unmarshal(b, &f.value)
}

// MarshalJSON renders null for absent or null fields.
func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.set || f.null {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}
