package visibility

// Evaluator decides whether a rule holds for the current form state. Subject
// names what is being evaluated (an out condition, a section) and is only
// used for error messages.
type Evaluator interface {
	Eval(subject, rule string, ctx Context) (bool, error)
}

// Context carries the state a rule can reference. Values holds control state
// keyed by control id (checkables map to bool, other controls to their
// string value) and by control name (the group's serialized value). Extras
// exposes session data such as the user level.
type Context struct {
	Values map[string]any
	Extras map[string]any
}

// EvaluatorFunc adapts a function into an Evaluator.
type EvaluatorFunc func(subject, rule string, ctx Context) (bool, error)

// Eval delegates to the underlying function.
func (fn EvaluatorFunc) Eval(subject, rule string, ctx Context) (bool, error) {
	return fn(subject, rule, ctx)
}
