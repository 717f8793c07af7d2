// Package celexpr evaluates visibility rules written in CEL.
//
// Three variables are declared:
//
//	checked  list(string)       ids of checked controls
//	values   map(string, dyn)   every entry of visibility.Context.Values
//	extras   map(string, dyn)   visibility.Context.Extras
//
// A typical out condition reads `"s1q1-op2" in checked && extras.userLevel != 3`.
package celexpr

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/goliatone/go-formwizard/pkg/visibility"
)

// Evaluator compiles rules once and caches the resulting programs.
type Evaluator struct {
	env *cel.Env

	mu       sync.RWMutex
	programs map[string]cel.Program
}

// New builds the CEL environment.
func New() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("checked", cel.ListType(cel.StringType)),
		cel.Variable("values", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("extras", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("visibility/celexpr: create env: %w", err)
	}
	return &Evaluator{env: env, programs: make(map[string]cel.Program)}, nil
}

// Eval runs rule against ctx. Empty rules are false.
func (e *Evaluator) Eval(subject, rule string, ctx visibility.Context) (bool, error) {
	rule = strings.TrimSpace(rule)
	if rule == "" {
		return false, nil
	}
	prg, err := e.program(rule)
	if err != nil {
		return false, fmt.Errorf("visibility/celexpr: %s: %w", subject, err)
	}

	out, _, err := prg.Eval(map[string]any{
		"checked": checkedIDs(ctx.Values),
		"values":  nonNil(ctx.Values),
		"extras":  nonNil(ctx.Extras),
	})
	if err != nil {
		return false, fmt.Errorf("visibility/celexpr: %s: eval: %w", subject, err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("visibility/celexpr: %s: rule %q is not boolean", subject, rule)
	}
	return result, nil
}

func (e *Evaluator) program(rule string) (cel.Program, error) {
	e.mu.RLock()
	prg, hit := e.programs[rule]
	e.mu.RUnlock()
	if hit {
		return prg, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if prg, hit = e.programs[rule]; hit {
		return prg, nil
	}
	ast, issues := e.env.Compile(rule)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile: %w", issues.Err())
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program: %w", err)
	}
	e.programs[rule] = prg
	return prg, nil
}

func checkedIDs(values map[string]any) []string {
	out := make([]string, 0, len(values))
	for id, v := range values {
		if b, ok := v.(bool); ok && b {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func nonNil(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

var _ visibility.Evaluator = (*Evaluator)(nil)
