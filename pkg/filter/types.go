// Package filter evaluates row predicates for tabular results.
//
// Each row's columns are exposed as top-level variables and as the "row" map.
// Filter parameters are available under "params", the evaluation time under
// "now". Three engines are provided: expr-lang (default), CEL, and goja
// JavaScript when built with the js_eval tag.
package filter

import (
	"fmt"
	"time"
)

// Engine names accepted by New.
const (
	EngineExpr = "expr"
	EngineCEL  = "cel"
	EngineJS   = "js"
)

// RowContext carries the inputs of one predicate evaluation.
type RowContext struct {
	Row    map[string]any
	Params map[string]any
	Now    *time.Time
	View   string
}

func (ctx RowContext) withDefaults() RowContext {
	if ctx.Now == nil {
		now := time.Now()
		ctx.Now = &now
	}
	if ctx.Row == nil {
		ctx.Row = map[string]any{}
	}
	if ctx.Params == nil {
		ctx.Params = map[string]any{}
	}
	return ctx
}

func (ctx RowContext) timestamp() time.Time {
	return *ctx.withDefaults().Now
}

func (ctx RowContext) viewLabel() string {
	if ctx.View == "" {
		return "unknown"
	}
	return ctx.View
}

// Evaluator runs filter expressions.
type Evaluator interface {
	Engine() string
	Evaluate(ctx RowContext, expr string) (any, error)
	Compile(expr string) (Program, error)
}

// Program is a compiled expression that can be evaluated per row.
type Program interface {
	Evaluate(ctx RowContext) (any, error)
}

// Match evaluates program and requires a boolean result.
func Match(program Program, ctx RowContext) (bool, error) {
	if program == nil {
		return false, fmt.Errorf("filter: program is nil")
	}
	out, err := program.Evaluate(ctx)
	if err != nil {
		return false, err
	}
	switch v := out.(type) {
	case bool:
		return v, nil
	case nil:
		return false, nil
	default:
		return false, &EvaluationError{View: ctx.viewLabel(), Err: fmt.Errorf("predicate returned %T, want bool", out)}
	}
}

// New constructs the evaluator registered for engine. An empty engine selects
// expr.
func New(engine string, opts ...Option) (Evaluator, error) {
	switch engine {
	case "", EngineExpr:
		return NewExprEvaluator(opts...), nil
	case EngineCEL:
		return NewCELEvaluator(opts...), nil
	case EngineJS:
		if !jsEvaluatorAvailable() {
			return nil, fmt.Errorf("filter: js engine requires the js_eval build tag")
		}
		return NewJSEvaluator(opts...), nil
	default:
		return nil, fmt.Errorf("filter: unknown engine %q", engine)
	}
}

func environment(ctx RowContext, registry *FunctionRegistry) map[string]any {
	env := map[string]any{
		"now":    ctx.timestamp(),
		"params": ctx.Params,
		"row":    ctx.Row,
	}
	for key, value := range ctx.Row {
		if _, reserved := env[key]; reserved {
			continue
		}
		env[key] = value
	}
	if registry != nil {
		env["call"] = func(name string, arguments ...any) (any, error) {
			return registry.Call(name, arguments...)
		}
		for _, name := range registry.Names() {
			fn := name
			env[fn] = func(arguments ...any) (any, error) {
				return registry.Call(fn, arguments...)
			}
		}
	}
	return env
}
