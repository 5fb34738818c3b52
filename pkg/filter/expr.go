package filter

import (
	"time"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

type exprEvaluator struct {
	cfg evaluatorConfig
}

// NewExprEvaluator constructs an Evaluator backed by expr-lang/expr.
func NewExprEvaluator(opts ...Option) Evaluator {
	return &exprEvaluator{cfg: applyOptions(opts)}
}

func (e *exprEvaluator) Engine() string { return EngineExpr }

// Evaluate compiles (or reuses) expression and runs it against ctx.
func (e *exprEvaluator) Evaluate(ctx RowContext, expression string) (any, error) {
	program, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return program.Evaluate(ctx)
}

// Compile returns a program that can be run once per row.
func (e *exprEvaluator) Compile(expression string) (Program, error) {
	if expression == "" {
		return nil, annotate(EngineExpr, "", "", ErrEmptyExpression)
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return &exprProgram{evaluator: e, program: program, expression: expression}, nil
}

func (e *exprEvaluator) loadOrCompile(expression string) (*exprvm.Program, error) {
	if e.cfg.cache != nil {
		if cached, ok := e.cfg.cache.Get(EngineExpr + ":" + expression); ok {
			if program, ok := cached.(*exprvm.Program); ok {
				return program, nil
			}
		}
	}
	options := []exprlang.Option{
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	}
	for _, name := range e.cfg.registry.Names() {
		fn := name
		options = append(options, exprlang.Function(fn, func(arguments ...any) (any, error) {
			return e.cfg.registry.Call(fn, arguments...)
		}))
	}
	program, err := exprlang.Compile(expression, options...)
	if err != nil {
		return nil, annotate(EngineExpr, expression, "", err)
	}
	if e.cfg.cache != nil {
		e.cfg.cache.Set(EngineExpr+":"+expression, program)
	}
	return program, nil
}

type exprProgram struct {
	evaluator  *exprEvaluator
	program    *exprvm.Program
	expression string
}

func (p *exprProgram) Evaluate(ctx RowContext) (any, error) {
	start := time.Now()
	ctx = ctx.withDefaults()
	result, err := exprlang.Run(p.program, environment(ctx, p.evaluator.cfg.registry))
	if err != nil {
		err = annotate(EngineExpr, p.expression, ctx.viewLabel(), err)
	}
	p.evaluator.cfg.logger.LogEvaluation(LogEvent{
		Engine:   EngineExpr,
		Expr:     p.expression,
		View:     ctx.viewLabel(),
		Duration: time.Since(start),
		Err:      err,
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
