// Package condition defines the predicate contract used for conditional
// requirements such as "required unless editing" or "required for drivers".
package condition

// Context is the read-only form state a predicate is evaluated against.
// Values holds the flat field map; Role and EditMode are exposed to
// expressions as `role` and `mode.edit`.
type Context struct {
	Values   map[string]any
	Role     string
	EditMode bool
}

// Evaluator decides whether a predicate holds for the supplied context.
// Implementations must be side-effect free.
type Evaluator interface {
	Eval(rule string, ctx Context) (bool, error)
}

// EvaluatorFunc adapts a function into an Evaluator.
type EvaluatorFunc func(rule string, ctx Context) (bool, error)

// Eval delegates to the underlying function.
func (fn EvaluatorFunc) Eval(rule string, ctx Context) (bool, error) {
	return fn(rule, ctx)
}
