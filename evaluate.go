package settings

import (
	"context"
	"time"

	"github.com/goliatone/go-settings/rules"
)

// Evaluate runs expression against a snapshot of tenantID's document using
// the configured evaluator. Groups are bound by code, so
// `customSettings.onlyOnceDaily` reads one field.
func (s *Store) Evaluate(ctx context.Context, tenantID, expression string) (any, error) {
	return s.EvaluateWith(ctx, tenantID, expression, rules.Context{})
}

// EvaluateWith is Evaluate with caller-supplied args, metadata and clock.
// The snapshot and tenant are always taken from the document.
func (s *Store) EvaluateWith(ctx context.Context, tenantID, expression string, rc rules.Context) (any, error) {
	doc := s.GetOrCreate(tenantID)
	rc.Snapshot = doc.Snapshot()
	rc.Tenant = doc.Tenant()

	engine := rules.EngineName(s.cfg.evaluator)
	start := time.Now()
	value, err := s.cfg.evaluator.Evaluate(rc, expression)
	s.logger(doc.Tenant()).DebugContext(ctx, "settings rule evaluated",
		"engine", engine,
		"expr", expression,
		"duration", time.Since(start),
		"error", err,
	)
	if err != nil {
		return nil, err
	}
	return value, nil
}
