package field

import (
	"sort"
	"sync"

	json "github.com/goccy/go-json"
)

// Set maps field codes to fields. It is safe for concurrent use.
type Set struct {
	mu     sync.RWMutex
	fields map[string]Field
}

// NewSet builds a set from fields; later duplicates replace earlier ones.
func NewSet(fields ...Field) *Set {
	s := &Set{fields: make(map[string]Field, len(fields))}
	for _, f := range fields {
		s.Add(f)
	}
	return s
}

// Add stores f under its code, replacing any previous field.
func (s *Set) Add(f Field) {
	if f == nil {
		return
	}
	s.mu.Lock()
	if s.fields == nil {
		s.fields = map[string]Field{}
	}
	s.fields[f.Code()] = f
	s.mu.Unlock()
}

// Get returns the field stored under code.
func (s *Set) Get(code string) (Field, bool) {
	if s == nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.fields[code]
	return f, ok
}

// Has reports whether code is present.
func (s *Set) Has(code string) bool {
	_, ok := s.Get(code)
	return ok
}

// Len returns the number of fields.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.fields)
}

// Codes returns the field codes sorted alphabetically.
func (s *Set) Codes() []string {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	codes := make([]string, 0, len(s.fields))
	for code := range s.fields {
		codes = append(codes, code)
	}
	s.mu.RUnlock()
	sort.Strings(codes)
	return codes
}

// Fields returns the fields ordered by code.
func (s *Set) Fields() []Field {
	codes := s.Codes()
	out := make([]Field, 0, len(codes))
	for _, code := range codes {
		if f, ok := s.Get(code); ok {
			out = append(out, f)
		}
	}
	return out
}

// Reset restores every field to its default in place.
func (s *Set) Reset() {
	for _, f := range s.Fields() {
		f.Reset()
	}
}

// Snapshot copies the current values keyed by code.
func (s *Set) Snapshot() map[string]any {
	fields := s.Fields()
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		out[f.Code()] = f.Value()
	}
	return out
}

// Payloads marshals every field keyed by code.
func (s *Set) Payloads() (map[string][]byte, error) {
	fields := s.Fields()
	out := make(map[string][]byte, len(fields))
	for _, f := range fields {
		payload, err := f.MarshalJSON()
		if err != nil {
			return nil, err
		}
		out[f.Code()] = payload
	}
	return out, nil
}

func (s *Set) MarshalJSON() ([]byte, error) {
	payloads, err := s.Payloads()
	if err != nil {
		return nil, err
	}
	raw := make(map[string]json.RawMessage, len(payloads))
	for code, payload := range payloads {
		raw[code] = payload
	}
	return json.Marshal(raw)
}
