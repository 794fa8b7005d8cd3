package rules

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyExpression   = errors.New("rules: expression must not be empty")
	ErrEngineUnavailable = errors.New("rules: engine unavailable")

	errCallName = errors.New("rules: call expects a function name as its first argument")
)

// EvaluationError reports a failed compile or run together with the engine,
// the expression and the tenant it was evaluated for.
type EvaluationError struct {
	Engine string
	Expr   string
	Tenant string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString("rules: ")
	b.WriteString(e.Engine)
	if e.Expr == "" {
		b.WriteString(" <empty expression>")
	} else {
		fmt.Fprintf(&b, " %q", e.Expr)
	}
	if e.Tenant != "" {
		b.WriteString(" for tenant ")
		b.WriteString(e.Tenant)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// wrapEvaluationError attaches engine, expression and tenant to err. An
// EvaluationError already in the chain only has its blank fields filled.
func wrapEvaluationError(engine, expr, tenant string, err error) error {
	if err == nil {
		return nil
	}
	var existing *EvaluationError
	if !errors.As(err, &existing) {
		return &EvaluationError{Engine: engine, Expr: expr, Tenant: tenant, Err: err}
	}
	fill := func(dst *string, value string) {
		if *dst == "" {
			*dst = value
		}
	}
	fill(&existing.Engine, engine)
	fill(&existing.Expr, expr)
	fill(&existing.Tenant, tenant)
	return existing
}
