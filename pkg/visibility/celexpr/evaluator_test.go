package celexpr

import (
	"testing"

	"github.com/goliatone/go-formwizard/pkg/visibility"
)

func TestEvaluator_CheckedAndExtras(t *testing.T) {
	eval, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := visibility.Context{
		Values: map[string]any{"s1q1-op2": true, "s1q2-op1": false, "s1q1": "No"},
		Extras: map[string]any{"userLevel": 3},
	}

	cases := []struct {
		rule string
		want bool
	}{
		{`"s1q1-op2" in checked`, true},
		{`"s1q2-op1" in checked`, false},
		{`"s1q1-op2" in checked && extras.userLevel == 3`, true},
		{`values["s1q1"] == "No"`, true},
		{``, false},
	}
	for _, tc := range cases {
		got, err := eval.Eval("out", tc.rule, ctx)
		if err != nil {
			t.Fatalf("Eval(%q): %v", tc.rule, err)
		}
		if got != tc.want {
			t.Errorf("Eval(%q) = %v, want %v", tc.rule, got, tc.want)
		}
	}
	if len(eval.programs) != 4 {
		t.Fatalf("expected 4 cached programs, got %d", len(eval.programs))
	}
}

func TestEvaluator_Errors(t *testing.T) {
	eval, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := eval.Eval("out", `checked +`, visibility.Context{}); err == nil {
		t.Fatalf("expected compile error")
	}
	if _, err := eval.Eval("out", `size(checked)`, visibility.Context{}); err == nil {
		t.Fatalf("expected non-boolean error")
	}
}
