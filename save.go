package settings

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/goliatone/go-settings/internal/codec"
	"github.com/goliatone/go-settings/persist"
	"github.com/goliatone/go-settings/pkg/activity"
)

// IsModified reports whether tenantID's document needs saving: there is no
// persisted blob, the blob cannot be read, the document cannot be encoded,
// or its canonical text differs from the blob.
func (s *Store) IsModified(ctx context.Context, tenantID string) bool {
	doc := s.GetOrCreate(tenantID)
	loc := locationFor(doc.Tenant())

	exists, err := s.gateway.Exists(ctx, loc)
	if err != nil || !exists {
		return true
	}
	persisted, err := s.gateway.Read(ctx, loc)
	if err != nil {
		return true
	}
	canonical, err := s.encode(doc)
	if err != nil {
		return true
	}
	return !bytes.Equal(canonical, persisted)
}

// Save persists tenantID's document. Unless force is set, an unmodified
// document is not written and Save reports success.
func (s *Store) Save(ctx context.Context, tenantID string, force bool) bool {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	doc := s.GetOrCreate(tenantID)
	if !force && !s.IsModified(ctx, doc.Tenant()) {
		return true
	}

	logger := s.logger(doc.Tenant())
	loc := locationFor(doc.Tenant())
	blob, err := s.encode(doc)
	if err != nil {
		logger.Error("settings save failed", "stage", "encode", "error", err)
		return false
	}
	if err := s.gateway.Write(ctx, loc, blob); err != nil {
		logger.Error("settings save failed", "stage", "write", "location", loc.Key(), "error", err)
		return false
	}

	revision := uuid.NewString()
	logger.Info("settings saved", "label", s.label(doc.Tenant()), "revision", revision)
	s.emit(ctx, activity.BuildSettingsSavedEvent(activity.SettingsEventInput{
		TenantID: doc.Tenant(),
		Location: loc.Key(),
		Revision: revision,
	}))
	return true
}

// Encode renders tenantID's document in canonical form.
func (s *Store) Encode(tenantID string) ([]byte, error) {
	return s.encode(s.GetOrCreate(tenantID))
}

func (s *Store) encode(doc *Document) ([]byte, error) {
	wire, err := doc.wire()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	out, err := codec.Encode(wire)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return out, nil
}

func (s *Store) write(ctx context.Context, doc *Document, loc persist.Location) error {
	blob, err := s.encode(doc)
	if err != nil {
		return err
	}
	return s.gateway.Write(ctx, loc, blob)
}
