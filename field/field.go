// Package field defines setting values and the sets that group them.
//
// A Field is identified by a stable code, carries a typed payload, and knows
// its declared default. Fields are safe for concurrent use: editing code may
// change values while a save serializes them.
package field

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/goliatone/go-settings/layering"
)

// ErrTypeMismatch reports a payload that cannot be stored in a field's type.
var ErrTypeMismatch = errors.New("field: type mismatch")

// Field is a single setting value.
type Field interface {
	// Code is the stable identity of the field inside its group.
	Code() string
	// Value returns a copy of the current payload, or nil when unset.
	Value() any
	// Reset restores the declared default.
	Reset()
	// New returns a fresh field of the same definition holding its default.
	New() Field

	json.Marshaler
	json.Unmarshaler
}

// Copy transfers the payload of src onto dst through their JSON forms, so
// fields of different concrete kinds (a decoded Raw and a typed field) can
// exchange values.
func Copy(dst, src Field) error {
	if dst == nil || src == nil {
		return fmt.Errorf("field: copy requires both fields")
	}
	payload, err := src.MarshalJSON()
	if err != nil {
		return fmt.Errorf("field: marshal %q: %w", src.Code(), err)
	}
	if err := dst.UnmarshalJSON(payload); err != nil {
		return fmt.Errorf("field: copy into %q: %w", dst.Code(), err)
	}
	return nil
}

// Typed is a field holding a value of type T.
type Typed[T any] struct {
	code string
	name string
	def  T

	mu    sync.RWMutex
	value T
}

// NewTyped declares a field with the given code, display name, and default.
func NewTyped[T any](code, name string, def T) *Typed[T] {
	return &Typed[T]{
		code:  code,
		name:  name,
		def:   layering.Clone(def),
		value: layering.Clone(def),
	}
}

// Bool declares a boolean field.
func Bool(code, name string, def bool) *Typed[bool] {
	return NewTyped(code, name, def)
}

// Int declares an integer field.
func Int(code, name string, def int) *Typed[int] {
	return NewTyped(code, name, def)
}

// String declares a string field.
func String(code, name string, def string) *Typed[string] {
	return NewTyped(code, name, def)
}

// StringList declares an ordered list of strings.
func StringList(code, name string, def []string) *Typed[[]string] {
	return NewTyped(code, name, def)
}

func (f *Typed[T]) Code() string { return f.code }

// Name is the human readable label of the field.
func (f *Typed[T]) Name() string { return f.name }

// Default returns a copy of the declared default.
func (f *Typed[T]) Default() T { return layering.Clone(f.def) }

// Get returns a copy of the current value.
func (f *Typed[T]) Get() T {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return layering.Clone(f.value)
}

// Set replaces the current value.
func (f *Typed[T]) Set(value T) {
	f.mu.Lock()
	f.value = layering.Clone(value)
	f.mu.Unlock()
}

func (f *Typed[T]) Value() any { return f.Get() }

func (f *Typed[T]) Reset() { f.Set(f.def) }

func (f *Typed[T]) New() Field { return f.fresh() }

func (f *Typed[T]) fresh() *Typed[T] {
	return NewTyped(f.code, f.name, f.def)
}

func (f *Typed[T]) MarshalJSON() ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return json.Marshal(f.value)
}

// UnmarshalJSON stores payload when it decodes into T. A JSON null leaves the
// current value untouched.
func (f *Typed[T]) UnmarshalJSON(payload []byte) error {
	if isNull(payload) {
		return nil
	}
	var next T
	if err := json.Unmarshal(payload, &next); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrTypeMismatch, f.code, err)
	}
	f.mu.Lock()
	f.value = next
	f.mu.Unlock()
	return nil
}

func isNull(payload []byte) bool {
	trimmed := bytes.TrimSpace(payload)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
