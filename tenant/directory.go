// Package tenant answers which tenant is currently active and how tenants are
// displayed.
package tenant

import (
	"errors"
	"fmt"
	"sync"
)

// ErrUnknown reports a tenant id the directory has no label for.
var ErrUnknown = errors.New("tenant: unknown tenant")

// Directory resolves the active tenant and display labels.
type Directory interface {
	// Current returns the active tenant id, empty when none is active.
	Current() string
	// Label returns the display label for id.
	Label(id string) (string, error)
}

// Static is a mutable in-memory Directory.
type Static struct {
	mu      sync.RWMutex
	current string
	labels  map[string]string
}

func NewStatic(current string) *Static {
	return &Static{current: current, labels: map[string]string{}}
}

// SetCurrent switches the active tenant.
func (d *Static) SetCurrent(id string) {
	d.mu.Lock()
	d.current = id
	d.mu.Unlock()
}

// SetLabel records the display label for id.
func (d *Static) SetLabel(id, label string) {
	d.mu.Lock()
	if d.labels == nil {
		d.labels = map[string]string{}
	}
	d.labels[id] = label
	d.mu.Unlock()
}

func (d *Static) Current() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.current
}

func (d *Static) Label(id string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	label, ok := d.labels[id]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknown, id)
	}
	return label, nil
}
