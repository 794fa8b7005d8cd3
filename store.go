package settings

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/goliatone/go-settings/internal/codec"
	"github.com/goliatone/go-settings/persist"
	"github.com/goliatone/go-settings/pkg/activity"
	"github.com/goliatone/go-settings/registry"
)

// Store owns the tenant -> document map. Documents are created on first
// access and live as long as the store.
type Store struct {
	registry registry.Registry
	gateway  persist.Gateway
	cfg      storeConfig
	emitter  *activity.Emitter
	decoder  *codec.Decoder

	docs sync.Map // normalized tenant id -> *Document

	// One lock per operation kind, shared by every tenant.
	loadMu   sync.Mutex
	saveMu   sync.Mutex
	unloadMu sync.Mutex
}

// New builds a store over reg and gateway.
func New(reg registry.Registry, gateway persist.Gateway, opts ...Option) (*Store, error) {
	if reg == nil {
		return nil, ErrRegistryRequired
	}
	if gateway == nil {
		return nil, ErrGatewayRequired
	}
	cfg := applyOptions(opts)
	return &Store{
		registry: reg,
		gateway:  gateway,
		cfg:      cfg,
		emitter:  activity.NewEmitter(cfg.activityHooks, cfg.channel),
		decoder:  codec.NewDecoder(),
	}, nil
}

// GetOrCreate returns the document for tenantID, creating an empty one on
// first access. It performs no I/O.
func (s *Store) GetOrCreate(tenantID string) *Document {
	key := NormalizeTenant(tenantID)
	if doc, ok := s.docs.Load(key); ok {
		return doc.(*Document)
	}
	doc, _ := s.docs.LoadOrStore(key, newDocument(key))
	return doc.(*Document)
}

// Active returns the document of the tenant the directory reports as current.
func (s *Store) Active() *Document {
	return s.GetOrCreate(s.cfg.directory.Current())
}

// IsLoaded reports whether tenantID's document completed a load.
func (s *Store) IsLoaded(tenantID string) bool {
	return s.GetOrCreate(tenantID).Initialized()
}

// Tenants returns the ids of every materialized document, sorted.
func (s *Store) Tenants() []string {
	var ids []string
	s.docs.Range(func(key, _ any) bool {
		ids = append(ids, key.(string))
		return true
	})
	sort.Strings(ids)
	return ids
}

// Unload resets every field of tenantID's document to its default in place.
// The document stays registered and keeps its initialized flag.
func (s *Store) Unload(ctx context.Context, tenantID string) {
	s.unloadMu.Lock()
	defer s.unloadMu.Unlock()

	doc := s.GetOrCreate(tenantID)
	doc.resetFields()
	s.logger(doc.Tenant()).Info("settings unloaded")
	s.emit(ctx, activity.BuildSettingsUnloadedEvent(activity.SettingsEventInput{
		TenantID: doc.Tenant(),
		Location: locationFor(doc.Tenant()).Key(),
	}))
}

// UnloadActive unloads the current tenant's document.
func (s *Store) UnloadActive(ctx context.Context) {
	s.Unload(ctx, s.cfg.directory.Current())
}

func (s *Store) logger(tenantID string) *slog.Logger {
	return s.cfg.logger.With("tenant", tenantID)
}

// label names a tenant for log lines. Lookup failures fall back to the id.
func (s *Store) label(tenantID string) string {
	if tenantID == DefaultTenant {
		return s.cfg.defaultLabel
	}
	label, err := s.cfg.directory.Label(tenantID)
	if err != nil || label == "" {
		return tenantID
	}
	return label
}

// isActive reports whether tenantID is the directory's current tenant. An
// empty current id selects the default document, as Active does.
func (s *Store) isActive(tenantID string) bool {
	return NormalizeTenant(s.cfg.directory.Current()) == tenantID
}

func (s *Store) emit(ctx context.Context, event activity.Event) {
	if err := s.emitter.Emit(ctx, event); err != nil {
		s.cfg.logger.Warn("activity hook failed", "verb", event.Verb, "tenant", event.TenantID, "error", err)
	}
}

func locationFor(tenantID string) persist.Location {
	if tenantID == DefaultTenant {
		return persist.Default()
	}
	return persist.ForTenant(tenantID)
}
