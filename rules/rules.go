// Package rules evaluates expressions over a tenant's settings snapshot.
//
// Each setting group is bound as a top-level variable holding its field
// values, so `customSettings.onlyOnceDaily && len(customSettings.autoHandleOnceDailyTimes) > 0`
// reads naturally. The bindings `tenant`, `now`, `args` and `metadata` are
// always present.
package rules

import (
	"fmt"
	"strings"
	"time"
)

// Engine names.
const (
	EngineExpr = "expr"
	EngineCEL  = "cel"
	EngineJS   = "js"
)

// Context carries the inputs of one evaluation.
type Context struct {
	// Snapshot maps group code -> field code -> value.
	Snapshot map[string]map[string]any
	Tenant   string
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
}

func (ctx Context) withDefaults() Context {
	if ctx.Now == nil {
		now := time.Now()
		ctx.Now = &now
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	if ctx.Snapshot == nil {
		ctx.Snapshot = map[string]map[string]any{}
	}
	return ctx
}

func (ctx Context) tenantLabel() string {
	if ctx.Tenant == "" {
		return "unknown"
	}
	return ctx.Tenant
}

// bindings flattens ctx into the variables an expression sees.
func (ctx Context) bindings() map[string]any {
	env := map[string]any{
		"now":      *ctx.Now,
		"args":     ctx.Args,
		"metadata": ctx.Metadata,
		"tenant":   ctx.Tenant,
	}
	for group, fields := range ctx.Snapshot {
		values := make(map[string]any, len(fields))
		for code, value := range fields {
			values[code] = value
		}
		env[group] = values
	}
	return env
}

// Evaluator executes expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx Context, expr string) (any, error)
	Compile(expr string) (CompiledRule, error)
}

// CompiledRule is a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx Context) (any, error)
}

// Option configures any of the engines.
type Option func(*config)

type config struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// WithProgramCache reuses compiled programs across evaluations.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *config) {
		cfg.cache = cache
	}
}

// WithFunctionRegistry exposes registry functions to expressions, both by
// name and through call(name, args...).
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *config) {
		if registry == nil {
			return
		}
		cfg.registry = registry.Clone()
	}
}

func applyOptions(opts []Option) config {
	cfg := config{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// New builds the evaluator for engine.
func New(engine string, opts ...Option) (Evaluator, error) {
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case "", EngineExpr:
		return NewExprEvaluator(opts...), nil
	case EngineCEL:
		return NewCELEvaluator(opts...), nil
	case EngineJS:
		evaluator := NewJSEvaluator(opts...)
		if evaluator == nil {
			return nil, fmt.Errorf("%w: js (build with -tags js_eval)", ErrEngineUnavailable)
		}
		return evaluator, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrEngineUnavailable, engine)
	}
}

// EngineName reports the engine behind e.
func EngineName(e Evaluator) string {
	switch e.(type) {
	case nil:
		return "unknown"
	case *exprEvaluator:
		return EngineExpr
	case *celEvaluator:
		return EngineCEL
	}
	if named, ok := e.(interface{ engine() string }); ok {
		return named.engine()
	}
	return "custom"
}
