package filter

import (
	"sort"
	"strings"
	"time"

	celgo "github.com/google/cel-go/cel"
	functions "github.com/google/cel-go/common/functions"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
)

type celEvaluator struct {
	cfg evaluatorConfig
}

// NewCELEvaluator constructs an Evaluator backed by cel-go. CEL checks
// expressions against declared variables, so programs are compiled per
// distinct column set.
func NewCELEvaluator(opts ...Option) Evaluator {
	return &celEvaluator{cfg: applyOptions(opts)}
}

func (e *celEvaluator) Engine() string { return EngineCEL }

func (e *celEvaluator) Evaluate(ctx RowContext, expression string) (any, error) {
	program, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return program.Evaluate(ctx)
}

func (e *celEvaluator) Compile(expression string) (Program, error) {
	if expression == "" {
		return nil, annotate(EngineCEL, "", "", ErrEmptyExpression)
	}
	return &celProgram{evaluator: e, expression: expression}, nil
}

func (e *celEvaluator) loadOrCompile(expression string, columns []string) (celgo.Program, error) {
	key := EngineCEL + ":" + strings.Join(columns, ",") + ":" + expression
	if e.cfg.cache != nil {
		if cached, ok := e.cfg.cache.Get(key); ok {
			if program, ok := cached.(celgo.Program); ok {
				return program, nil
			}
		}
	}
	env, err := e.buildEnv(columns)
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, annotate(EngineCEL, expression, "", issues.Err())
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, annotate(EngineCEL, expression, "", err)
	}
	if e.cfg.cache != nil {
		e.cfg.cache.Set(key, program)
	}
	return program, nil
}

func (e *celEvaluator) buildEnv(columns []string) (*celgo.Env, error) {
	opts := []celgo.EnvOption{
		celgo.Variable("now", celgo.TimestampType),
		celgo.Variable("params", celgo.DynType),
		celgo.Variable("row", celgo.DynType),
	}
	if e.cfg.registry != nil {
		opts = append(opts, celgo.Function("call", celgo.Overload(
			"call_dyn",
			[]*celgo.Type{celgo.StringType, celgo.ListType(celgo.DynType)},
			celgo.DynType,
			celgo.FunctionBinding(e.callBinding()),
		)))
	}
	for _, column := range columns {
		if column == "now" || column == "params" || column == "row" {
			continue
		}
		opts = append(opts, celgo.Variable(column, celgo.DynType))
	}
	return celgo.NewEnv(opts...)
}

func (e *celEvaluator) callBinding() functions.FunctionOp {
	return func(values ...ref.Val) ref.Val {
		if len(values) != 2 {
			return types.NewErr("filter: call requires a name and an argument list")
		}
		name, ok := values[0].Value().(string)
		if !ok {
			return types.NewErr("filter: call name must be string")
		}
		list, ok := values[1].(traits.Lister)
		if !ok {
			return types.NewErr("filter: call arguments must be a list")
		}
		size, _ := list.Size().(types.Int)
		args := make([]any, 0, int(size))
		for i := types.Int(0); i < size; i++ {
			args = append(args, list.Get(i).Value())
		}
		result, err := e.cfg.registry.Call(name, args...)
		if err != nil {
			return types.NewErr("%s", err.Error())
		}
		if result == nil {
			return types.NullValue
		}
		return types.DefaultTypeAdapter.NativeToValue(result)
	}
}

type celProgram struct {
	evaluator  *celEvaluator
	expression string
}

func (p *celProgram) Evaluate(ctx RowContext) (any, error) {
	start := time.Now()
	ctx = ctx.withDefaults()
	columns := make([]string, 0, len(ctx.Row))
	for column := range ctx.Row {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	result, err := p.run(ctx, columns)
	if err != nil {
		err = annotate(EngineCEL, p.expression, ctx.viewLabel(), err)
	}
	p.evaluator.cfg.logger.LogEvaluation(LogEvent{
		Engine:   EngineCEL,
		Expr:     p.expression,
		View:     ctx.viewLabel(),
		Duration: time.Since(start),
		Err:      err,
	})
	return result, err
}

func (p *celProgram) run(ctx RowContext, columns []string) (any, error) {
	program, err := p.evaluator.loadOrCompile(p.expression, columns)
	if err != nil {
		return nil, err
	}
	activation := map[string]any{
		"now":    ctx.timestamp(),
		"params": ctx.Params,
		"row":    ctx.Row,
	}
	for key, value := range ctx.Row {
		if _, reserved := activation[key]; reserved {
			continue
		}
		activation[key] = value
	}
	out, _, err := program.Eval(activation)
	if err != nil {
		return nil, err
	}
	return out.Value(), nil
}
