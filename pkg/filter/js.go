//go:build js_eval

package filter

import (
	"fmt"
	"time"

	"github.com/dop251/goja"
)

type jsEvaluator struct {
	cfg evaluatorConfig
}

// NewJSEvaluator constructs an Evaluator backed by goja.
func NewJSEvaluator(opts ...Option) Evaluator {
	return &jsEvaluator{cfg: applyOptions(opts)}
}

func (e *jsEvaluator) Engine() string { return EngineJS }

func (e *jsEvaluator) Evaluate(ctx RowContext, expression string) (any, error) {
	program, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return program.Evaluate(ctx)
}

func (e *jsEvaluator) Compile(expression string) (Program, error) {
	if expression == "" {
		return nil, annotate(EngineJS, "", "", ErrEmptyExpression)
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return &jsProgram{evaluator: e, expression: expression, program: program}, nil
}

func (e *jsEvaluator) loadOrCompile(expression string) (*goja.Program, error) {
	key := EngineJS + ":" + expression
	if e.cfg.cache != nil {
		if cached, ok := e.cfg.cache.Get(key); ok {
			if program, ok := cached.(*goja.Program); ok {
				return program, nil
			}
		}
	}
	program, err := goja.Compile("", fmt.Sprintf("(function(){ return (%s); })()", expression), false)
	if err != nil {
		return nil, annotate(EngineJS, expression, "", err)
	}
	if e.cfg.cache != nil {
		e.cfg.cache.Set(key, program)
	}
	return program, nil
}

type jsProgram struct {
	evaluator  *jsEvaluator
	expression string
	program    *goja.Program
}

func (p *jsProgram) Evaluate(ctx RowContext) (any, error) {
	start := time.Now()
	ctx = ctx.withDefaults()
	vm := goja.New()
	for key, value := range environment(ctx, p.evaluator.cfg.registry) {
		if err := vm.Set(key, value); err != nil {
			return nil, annotate(EngineJS, p.expression, ctx.viewLabel(), err)
		}
	}
	value, err := vm.RunProgram(p.program)
	var result any
	if err != nil {
		err = annotate(EngineJS, p.expression, ctx.viewLabel(), err)
	} else {
		result = value.Export()
	}
	p.evaluator.cfg.logger.LogEvaluation(LogEvent{
		Engine:   EngineJS,
		Expr:     p.expression,
		View:     ctx.viewLabel(),
		Duration: time.Since(start),
		Err:      err,
	})
	return result, err
}

func jsEvaluatorAvailable() bool {
	return true
}
