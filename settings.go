// Package settings keeps one configuration document per tenant in memory,
// persists it through a gateway and reconciles it against the field
// registry every time it is read.
//
// A Store is built once by the application and shared by every caller:
//
//	reg, _ := registry.NewStatic(groups...)
//	gw, _ := persist.NewFileGateway(dir)
//	store, _ := settings.New(reg, gw, settings.WithDirectory(users))
//	doc := store.Load(ctx, "2088")
//	...
//	store.Save(ctx, "2088", false)
//
// Load never fails: blobs with unknown members are repaired, malformed blobs
// are replaced with defaults. Save skips the write when the persisted blob is
// already canonical.
package settings

import (
	"context"
	"errors"
	"strings"
)

// DefaultTenant is the key used for an empty tenant id. Its document lives in
// the shared default slot that other tenants bootstrap from.
const DefaultTenant = "default"

var (
	// ErrRegistryRequired indicates New was called without a registry.
	ErrRegistryRequired = errors.New("settings: registry is required")
	// ErrGatewayRequired indicates New was called without a gateway.
	ErrGatewayRequired = errors.New("settings: persistence gateway is required")
	// ErrEncode reports a document that could not be rendered.
	ErrEncode = errors.New("settings: encode failed")
	// ErrFieldCopy reports a value that could not be carried onto its
	// canonical field during reconciliation.
	ErrFieldCopy = errors.New("settings: field copy failed")
	// ErrLoadPanic reports a panic recovered while loading.
	ErrLoadPanic = errors.New("settings: load panicked")
)

// Notifier is told when the active tenant's configuration finished loading,
// so task scheduling can pick up new values.
type Notifier interface {
	ConfigChanged(ctx context.Context, tenantID string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, tenantID string)

func (fn NotifierFunc) ConfigChanged(ctx context.Context, tenantID string) {
	if fn != nil {
		fn(ctx, tenantID)
	}
}

// NormalizeTenant maps an empty or blank id to DefaultTenant.
func NormalizeTenant(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return DefaultTenant
	}
	return id
}
