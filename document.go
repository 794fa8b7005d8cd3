package settings

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	json "github.com/goccy/go-json"

	"github.com/goliatone/go-settings/field"
	"github.com/goliatone/go-settings/internal/codec"
	"github.com/goliatone/go-settings/layering"
)

// Document is one tenant's configuration: setting groups keyed by code, each
// holding a field set. Field values may be edited directly by callers between
// loads and saves.
type Document struct {
	tenant      string
	initialized atomic.Bool

	mu     sync.RWMutex
	groups map[string]*field.Set
}

func newDocument(tenant string) *Document {
	return &Document{tenant: tenant, groups: map[string]*field.Set{}}
}

// Tenant returns the normalized tenant id owning the document.
func (d *Document) Tenant() string { return d.tenant }

// Initialized reports whether a load cycle has completed. Unload leaves it set.
func (d *Document) Initialized() bool { return d.initialized.Load() }

// Group returns the field set stored under code.
func (d *Document) Group(code string) (*field.Set, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	set, ok := d.groups[code]
	return set, ok
}

// GroupCodes returns the group codes sorted alphabetically.
func (d *Document) GroupCodes() []string {
	d.mu.RLock()
	codes := make([]string, 0, len(d.groups))
	for code := range d.groups {
		codes = append(codes, code)
	}
	d.mu.RUnlock()
	sort.Strings(codes)
	return codes
}

// HasGroup reports whether the document holds group code.
func (d *Document) HasGroup(code string) bool {
	_, ok := d.Group(code)
	return ok
}

// HasField reports whether the document holds field group.code.
func (d *Document) HasField(group, code string) bool {
	_, ok := d.Field(group, code)
	return ok
}

// Field returns the field group.code.
func (d *Document) Field(group, code string) (field.Field, bool) {
	set, ok := d.Group(group)
	if !ok {
		return nil, false
	}
	return set.Get(code)
}

// Snapshot copies every value as group -> field -> value.
func (d *Document) Snapshot() map[string]map[string]any {
	groups := d.groupsView()
	out := make(map[string]map[string]any, len(groups))
	for code, set := range groups {
		out[code] = set.Snapshot()
	}
	return out
}

func (d *Document) groupsView() map[string]*field.Set {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]*field.Set, len(d.groups))
	for code, set := range d.groups {
		out[code] = set
	}
	return out
}

func (d *Document) replaceGroups(groups map[string]*field.Set) {
	if groups == nil {
		groups = map[string]*field.Set{}
	}
	d.mu.Lock()
	d.groups = groups
	d.mu.Unlock()
}

// resetFields restores every field to its default without replacing sets.
func (d *Document) resetFields() {
	for _, set := range d.groupsView() {
		set.Reset()
	}
}

// wire captures the persisted shape from the current values.
func (d *Document) wire() (codec.Wire, error) {
	groups := d.groupsView()
	out := make(map[string]map[string]json.RawMessage, len(groups))
	for code, set := range groups {
		payloads, err := set.Payloads()
		if err != nil {
			return codec.Wire{}, fmt.Errorf("group %q: %w", code, err)
		}
		fields := make(map[string]json.RawMessage, len(payloads))
		for fieldCode, payload := range payloads {
			fields[fieldCode] = payload
		}
		out[code] = fields
	}
	return codec.Wire{SettingGroups: out}, nil
}

// mergeWire layers decoded groups over the current values and returns the
// result as raw sets. Fields missing from the blob keep their in-memory
// payload. The document itself is left untouched; reconciliation installs
// the canonical sets built from the returned map.
func (d *Document) mergeWire(incoming codec.Wire) (map[string]*field.Set, error) {
	current, err := d.wire()
	if err != nil {
		return nil, err
	}
	merged := layering.MergeLayers(incoming.SettingGroups, current.SettingGroups)

	groups := make(map[string]*field.Set, len(merged))
	for code, fields := range merged {
		set := field.NewSet()
		for fieldCode, payload := range fields {
			set.Add(field.NewRaw(fieldCode, payload))
		}
		groups[code] = set
	}
	return groups, nil
}
