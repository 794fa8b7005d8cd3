// Package persist stores configuration blobs. A Location names either the
// shared default slot or one tenant's slot; a Gateway reads and writes the
// bytes stored there.
package persist

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports a location with no stored blob.
	ErrNotFound = errors.New("persist: blob not found")
	// ErrInvalidTenant reports a tenant id that cannot name a location.
	ErrInvalidTenant = errors.New("persist: invalid tenant id")
	// ErrLockTimeout reports a write that could not acquire its lock in time.
	ErrLockTimeout = errors.New("persist: lock timeout")
)

// Domain names the blob kind inside a slot.
const Domain = "settings"

// Location identifies one persisted blob.
type Location struct {
	tenant string
	shared bool
}

// Default is the shared default slot every tenant bootstraps from.
func Default() Location { return Location{shared: true} }

// ForTenant is the slot owned by tenant id.
func ForTenant(id string) Location { return Location{tenant: id} }

// Shared reports whether l is the shared default slot.
func (l Location) Shared() bool { return l.shared }

// Tenant returns the owning tenant id, empty for the shared slot.
func (l Location) Tenant() string { return l.tenant }

// Key returns a deterministic identifier for l.
func (l Location) Key() string {
	if l.shared {
		return "system/" + Domain
	}
	return fmt.Sprintf("tenant/%s/%s", l.tenant, Domain)
}

func (l Location) String() string { return l.Key() }

// Gateway reads and writes configuration blobs.
type Gateway interface {
	Exists(ctx context.Context, loc Location) (bool, error)
	Read(ctx context.Context, loc Location) ([]byte, error)
	Write(ctx context.Context, loc Location, blob []byte) error
}
