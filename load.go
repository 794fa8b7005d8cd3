package settings

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/goliatone/go-settings/field"
	"github.com/goliatone/go-settings/persist"
	"github.com/goliatone/go-settings/pkg/activity"
)

// Load reads tenantID's blob into its document and reconciles it with the
// registry. It always returns a usable document:
//
//   - the shared default slot is created from defaults when missing;
//   - a tenant blob is decoded, one unrecognized member is stripped and the
//     decode retried, and the canonical form is written back when it differs;
//   - without a tenant blob the shared default blob is used as a template and
//     the result written to the tenant slot;
//   - with neither, defaults are written;
//   - any failure resets the document to defaults and tries to persist them.
//
// The document is then marked initialized, and the notifier fires when
// tenantID is the active tenant.
func (s *Store) Load(ctx context.Context, tenantID string) *Document {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	doc := s.GetOrCreate(tenantID)
	loc := locationFor(doc.Tenant())
	logger := s.logger(doc.Tenant()).With("location", loc.Key())
	logger.Debug("loading settings", "label", s.label(doc.Tenant()))

	if err := s.loadInto(ctx, doc, loc, logger); err != nil {
		logger.Error("settings load failed, resetting to defaults", "error", err)
		s.recoverDefaults(ctx, doc, loc, logger, err)
	}

	doc.initialized.Store(true)
	if s.cfg.notifier != nil && s.isActive(doc.Tenant()) {
		s.cfg.notifier.ConfigChanged(ctx, doc.Tenant())
	}
	return doc
}

func (s *Store) loadInto(ctx context.Context, doc *Document, loc persist.Location, logger *slog.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrLoadPanic, r)
		}
	}()

	if loc.Shared() {
		exists, err := s.gateway.Exists(ctx, loc)
		if err != nil {
			return err
		}
		if !exists {
			logger.Info("default settings missing, writing defaults")
			s.resetToDefaults(doc)
			if err := s.write(ctx, doc, loc); err != nil {
				return err
			}
		}
	}

	exists, err := s.gateway.Exists(ctx, loc)
	if err != nil {
		return err
	}
	if exists {
		return s.loadPersisted(ctx, doc, loc, logger)
	}

	templateExists, err := s.gateway.Exists(ctx, persist.Default())
	if err != nil {
		return err
	}
	if templateExists {
		return s.loadTemplate(ctx, doc, loc, logger)
	}

	s.resetToDefaults(doc)
	if err := s.write(ctx, doc, loc); err != nil {
		return err
	}
	s.emitLoaded(ctx, doc, loc, activity.SourceDefaults)
	return nil
}

func (s *Store) loadPersisted(ctx context.Context, doc *Document, loc persist.Location, logger *slog.Logger) error {
	raw, err := s.gateway.Read(ctx, loc)
	if err != nil {
		return err
	}
	stripped, merged, err := s.decodeInto(doc, raw, logger)
	if err != nil {
		return err
	}
	s.reconcile(doc, merged)

	canonical, err := s.encode(doc)
	if err != nil {
		logger.Warn("settings not rewritten", "error", err)
	} else if stripped != "" || !bytes.Equal(canonical, raw) {
		if err := s.gateway.Write(ctx, loc, canonical); err != nil {
			return err
		}
		logger.Info("settings rewritten in canonical form", "member", stripped)
		s.emit(ctx, activity.BuildSettingsRepairedEvent(activity.SettingsEventInput{
			TenantID: doc.Tenant(),
			Location: loc.Key(),
			Member:   stripped,
		}))
	}
	s.emitLoaded(ctx, doc, loc, activity.SourceTenant)
	return nil
}

func (s *Store) loadTemplate(ctx context.Context, doc *Document, loc persist.Location, logger *slog.Logger) error {
	raw, err := s.gateway.Read(ctx, persist.Default())
	if err != nil {
		return err
	}
	_, merged, err := s.decodeInto(doc, raw, logger)
	if err != nil {
		return fmt.Errorf("default template: %w", err)
	}
	s.reconcile(doc, merged)
	if err := s.write(ctx, doc, loc); err != nil {
		return err
	}
	logger.Info("settings copied from default template")
	s.emitLoaded(ctx, doc, loc, activity.SourceTemplate)
	return nil
}

// decodeInto decodes raw and layers it over doc's values without publishing
// the result. An unrecognized member is stripped and the decode retried
// exactly once; the stripped member path is returned.
func (s *Store) decodeInto(doc *Document, raw []byte, logger *slog.Logger) (string, map[string]*field.Set, error) {
	result := s.decoder.Decode(raw)
	stripped := ""
	if !result.OK() && result.Member() != "" {
		stripped = strings.Join(result.Path, ".")
		logger.Warn("unrecognized settings member, stripping and retrying", "member", stripped)
		cleaned, err := s.decoder.Strip(raw, result.Path...)
		if err != nil {
			return stripped, nil, err
		}
		result = s.decoder.Decode(cleaned)
	}
	if err := result.Err(); err != nil {
		return stripped, nil, err
	}
	merged, err := doc.mergeWire(result.Wire)
	return stripped, merged, err
}

// recoverDefaults resets doc and tries to persist it. Failures are logged.
func (s *Store) recoverDefaults(ctx context.Context, doc *Document, loc persist.Location, logger *slog.Logger, cause error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("settings recovery panicked", "panic", r)
		}
	}()

	s.resetToDefaults(doc)
	if err := s.write(ctx, doc, loc); err != nil {
		logger.Error("settings recovery write failed", "error", err)
	}
	s.emit(ctx, activity.BuildSettingsResetEvent(activity.SettingsEventInput{
		TenantID: doc.Tenant(),
		Location: loc.Key(),
		Reason:   cause.Error(),
	}))
	s.emitLoaded(ctx, doc, loc, activity.SourceRecovery)
}

func (s *Store) emitLoaded(ctx context.Context, doc *Document, loc persist.Location, source string) {
	s.emit(ctx, activity.BuildSettingsLoadedEvent(activity.SettingsEventInput{
		TenantID: doc.Tenant(),
		Location: loc.Key(),
		Source:   source,
	}))
}
