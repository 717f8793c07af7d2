package expr

import (
	"testing"

	"github.com/goliatone/go-formwizard/pkg/visibility"
)

func TestEvaluator_Rules(t *testing.T) {
	t.Parallel()

	ctx := visibility.Context{
		Values: map[string]any{
			"s1q1-op2": true,
			"s1q2-op1": true,
			"s1q4-op2": false,
			"s1q1":     "No",
		},
		Extras: map[string]any{"userLevel": 3},
	}

	cases := []struct {
		rule string
		want bool
	}{
		{"s1q1-op2", true},
		{"s1q4-op2", false},
		{"!s1q4-op2", true},
		{"s1q1-op2 && s1q2-op1", true},
		{"s1q1-op2 && s1q4-op2", false},
		{"s1q4-op2 || s1q2-op1", true},
		{"(s1q4-op2 || s1q2-op1) && !unknown", true},
		{`s1q1 == "No"`, true},
		{`s1q1 != 'No'`, false},
		{"extras.userLevel == 3", true},
		{"extras.userLevel != 2", true},
		{"", false},
	}

	eval := New()
	for _, tc := range cases {
		got, err := eval.Eval("out", tc.rule, ctx)
		if err != nil {
			t.Fatalf("Eval(%q) error: %v", tc.rule, err)
		}
		if got != tc.want {
			t.Errorf("Eval(%q) = %v, want %v", tc.rule, got, tc.want)
		}
	}
}

func TestEvaluator_SyntaxErrors(t *testing.T) {
	t.Parallel()

	eval := New()
	for _, rule := range []string{"(a && b", "a ==", "a && && b", `a == "open`, "a # b"} {
		if _, err := eval.Eval("out", rule, visibility.Context{}); err == nil {
			t.Errorf("Eval(%q) expected error", rule)
		}
	}
}
