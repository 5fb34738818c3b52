package filter

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyExpression is returned by Compile for a blank expression.
var ErrEmptyExpression = errors.New("expression must not be empty")

// EvaluationError ties a compile or match failure to its engine, the
// expression text and, while matching, the view being filtered.
type EvaluationError struct {
	Engine string
	Expr   string
	View   string
	Err    error
}

func (e *EvaluationError) Error() string {
	var b strings.Builder
	b.WriteString("filter")
	if e.Engine != "" {
		b.WriteString(" [" + e.Engine + "]")
	}
	if e.View != "" {
		b.WriteString(" on view " + e.View)
	}
	if e.Expr != "" {
		fmt.Fprintf(&b, " in %q", e.Expr)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *EvaluationError) Unwrap() error { return e.Err }

// annotate attaches engine, expression and view to err. An EvaluationError
// already in the chain keeps the fields it has and gains the blank ones.
func annotate(engine, expr, view string, err error) error {
	if err == nil {
		return nil
	}
	var inner *EvaluationError
	if !errors.As(err, &inner) {
		return &EvaluationError{Engine: engine, Expr: expr, View: view, Err: err}
	}
	if inner.Engine == "" {
		inner.Engine = engine
	}
	if inner.Expr == "" {
		inner.Expr = expr
	}
	if inner.View == "" {
		inner.View = view
	}
	return inner
}
