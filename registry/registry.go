// Package registry is the catalog of setting groups and their canonical
// fields. The store consults it on every reconciliation; it never owns it.
package registry

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/goliatone/go-settings/field"
)

var (
	// ErrGroupCodeRequired indicates a group registered without a code.
	ErrGroupCodeRequired = errors.New("registry: group code must be provided")
	// ErrDuplicateGroup indicates a group code registered twice.
	ErrDuplicateGroup = errors.New("registry: group codes must be unique")
	// ErrDuplicateField indicates a field code repeated inside one group.
	ErrDuplicateField = errors.New("registry: field codes must be unique within a group")
)

// Group describes one setting group: a stable code plus the ordered canonical
// fields, each holding its declared default.
type Group struct {
	Code   string
	Name   string
	Fields []field.Field
}

// Field returns the canonical field registered under code.
func (g Group) Field(code string) (field.Field, bool) {
	for _, f := range g.Fields {
		if f != nil && f.Code() == code {
			return f, true
		}
	}
	return nil, false
}

// Registry lists the setting groups currently known to the application.
type Registry interface {
	Groups() []Group
}

// Func adapts a function to Registry.
type Func func() []Group

// Groups implements Registry.
func (fn Func) Groups() []Group {
	if fn == nil {
		return nil
	}
	return fn()
}

// Static is an in-memory registry. Groups keep their registration order.
type Static struct {
	mu     sync.RWMutex
	order  []string
	groups map[string]Group
}

// NewStatic builds a registry pre-populated with groups.
func NewStatic(groups ...Group) (*Static, error) {
	r := &Static{groups: map[string]Group{}}
	for _, g := range groups {
		if err := r.Register(g); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds g to the catalog.
func (r *Static) Register(g Group) error {
	code := strings.TrimSpace(g.Code)
	if code == "" {
		return ErrGroupCodeRequired
	}
	seen := make(map[string]struct{}, len(g.Fields))
	fields := make([]field.Field, 0, len(g.Fields))
	for _, f := range g.Fields {
		if f == nil {
			continue
		}
		if _, ok := seen[f.Code()]; ok {
			return fmt.Errorf("%w: %s.%s", ErrDuplicateField, code, f.Code())
		}
		seen[f.Code()] = struct{}{}
		fields = append(fields, f)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.groups == nil {
		r.groups = map[string]Group{}
	}
	if _, ok := r.groups[code]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateGroup, code)
	}
	r.groups[code] = Group{Code: code, Name: g.Name, Fields: fields}
	r.order = append(r.order, code)
	return nil
}

// Retire removes the group registered under code and reports whether it
// existed. Documents drop the group on their next reconciliation.
func (r *Static) Retire(code string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.groups[code]; !ok {
		return false
	}
	delete(r.groups, code)
	r.order = slices.DeleteFunc(r.order, func(c string) bool { return c == code })
	return true
}

// Group returns the group registered under code.
func (r *Static) Group(code string) (Group, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.groups[code]
	if !ok {
		return Group{}, false
	}
	g.Fields = slices.Clone(g.Fields)
	return g, true
}

// Groups implements Registry.
func (r *Static) Groups() []Group {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Group, 0, len(r.order))
	for _, code := range r.order {
		g := r.groups[code]
		g.Fields = slices.Clone(g.Fields)
		out = append(out, g)
	}
	return out
}
