package settings

import (
	"fmt"

	"github.com/goliatone/go-settings/field"
)

// Reconcile rebuilds tenantID's groups from the registry, carrying over the
// non-null values of incoming by group and field code. A nil incoming resets
// the document to defaults. It returns the number of values that could not
// be copied; those fields keep their defaults.
func (s *Store) Reconcile(tenantID string, incoming map[string]*field.Set) int {
	return s.reconcile(s.GetOrCreate(tenantID), incoming)
}

// reconcile rebuilds doc's groups from the registry. Every canonical field
// starts at its default and takes the incoming value with the same code when
// that value is non-null. Groups and fields the registry no longer declares
// are dropped.
func (s *Store) reconcile(doc *Document, incoming map[string]*field.Set) int {
	logger := s.logger(doc.Tenant())
	failures := 0
	groups := map[string]*field.Set{}

	for _, g := range s.registry.Groups() {
		old := incoming[g.Code]
		set := field.NewSet()
		for _, proto := range g.Fields {
			if proto == nil {
				continue
			}
			fresh := proto.New()
			if prev, ok := old.Get(proto.Code()); ok && prev != nil && prev.Value() != nil {
				if err := copyField(fresh, prev); err != nil {
					failures++
					logger.Error("settings field copy failed",
						"group", g.Code,
						"field", proto.Code(),
						"error", err,
					)
				}
			}
			set.Add(fresh)
		}
		groups[g.Code] = set
	}

	doc.replaceGroups(groups)
	return failures
}

func (s *Store) resetToDefaults(doc *Document) {
	s.reconcile(doc, nil)
}

func copyField(dst, src field.Field) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrFieldCopy, r)
		}
	}()
	if err := field.Copy(dst, src); err != nil {
		return fmt.Errorf("%w: %w", ErrFieldCopy, err)
	}
	return nil
}
