package field

import (
	"slices"
)

// Option is one selectable entry of a Select field.
type Option struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Select holds a set of option ids chosen from a declared catalog.
type Select struct {
	*Typed[[]string]
	options []Option
}

// NewSelect declares a select field. The default selection keeps its order.
func NewSelect(code, name string, def []string, options ...Option) *Select {
	return &Select{
		Typed:   NewTyped(code, name, def),
		options: slices.Clone(options),
	}
}

// Options returns the declared catalog.
func (s *Select) Options() []Option {
	return slices.Clone(s.options)
}

// Contains reports whether id is currently selected.
func (s *Select) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.value, id)
}

func (s *Select) New() Field {
	return &Select{Typed: s.fresh(), options: s.options}
}
