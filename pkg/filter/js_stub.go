//go:build !js_eval

package filter

// NewJSEvaluator is unavailable without the js_eval build tag and returns nil.
func NewJSEvaluator(opts ...Option) Evaluator {
	_ = applyOptions(opts)
	return nil
}

func jsEvaluatorAvailable() bool {
	return false
}
