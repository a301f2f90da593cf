package validate

import (
	"strings"
	"testing"
)

const minimalSkeleton = `class FooBar extends HTMLElement {}
customElements.define('foo-bar', FooBar);`

func TestCode_AcceptsMinimalSkeleton(t *testing.T) {
	result := Code(minimalSkeleton)
	if !result.Valid {
		t.Fatalf("Valid = false (%s: %s), want true", result.FailingRule, result.Reason)
	}
	if result.FailingRule != "" {
		t.Errorf("FailingRule = %q, want empty", result.FailingRule)
	}
}

func TestCode_Rejections(t *testing.T) {
	tests := []struct {
		name string
		src  string
		rule string
	}{
		{name: "empty", src: "", rule: RuleNonEmpty},
		{name: "whitespace only", src: "   \n\t", rule: RuleNonEmpty},
		{name: "non-extending class", src: "class FooBar {}\ncustomElements.define('foo-bar', FooBar);", rule: RuleExtendsElement},
		{name: "extends something else", src: "class FooBar extends LitElementBase {}\ncustomElements.define('foo-bar', FooBar);", rule: RuleExtendsElement},
		{name: "missing registration", src: "class FooBar extends HTMLElement { connectedCallback() {} }", rule: RuleRegisters},
		{name: "registers a different class", src: "class FooBar extends HTMLElement {}\ncustomElements.define('foo-bar', Other);", rule: RuleRegisters},
		{name: "under 20 chars", src: "class A{}", rule: RuleExtendsElement},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Code(tt.src)
			if result.Valid {
				t.Fatal("Valid = true, want false")
			}
			if result.FailingRule != tt.rule {
				t.Errorf("FailingRule = %q, want %q", result.FailingRule, tt.rule)
			}
			if result.Reason == "" {
				t.Error("Reason should not be empty")
			}
		})
	}
}

func TestCode_ShortStringsAlwaysRejected(t *testing.T) {
	for n := 0; n < MinLength; n++ {
		if Code(strings.Repeat("x", n)).Valid {
			t.Errorf("string of length %d accepted", n)
		}
	}
}

func TestValidate_MinLengthRuleAlone(t *testing.T) {
	rules := []Rule{{Name: RuleMinLength, Check: checkMinLength}}

	if Validate("short", rules).FailingRule != RuleMinLength {
		t.Error("expected min_length failure")
	}
	if !Validate(strings.Repeat("a", MinLength), rules).Valid {
		t.Error("expected 20-char string to pass min_length")
	}
}

func TestValidate_CustomRuleAppended(t *testing.T) {
	noEval := Rule{
		Name: "no_eval",
		Check: func(src string) (bool, string) {
			if strings.Contains(src, "eval(") {
				return false, "eval is not allowed"
			}
			return true, ""
		},
	}
	rules := append(DefaultRules(), noEval)

	if !Validate(minimalSkeleton, rules).Valid {
		t.Error("skeleton should pass with custom rule")
	}

	bad := minimalSkeleton + "\neval('1');"
	result := Validate(bad, rules)
	if result.FailingRule != "no_eval" {
		t.Errorf("FailingRule = %q, want no_eval", result.FailingRule)
	}
}

func TestValidate_FirstFailureWins(t *testing.T) {
	calls := 0
	rules := []Rule{
		{Name: "a", Check: func(string) (bool, string) { calls++; return false, "a failed" }},
		{Name: "b", Check: func(string) (bool, string) { calls++; return false, "b failed" }},
	}

	result := Validate("anything", rules)
	if result.FailingRule != "a" {
		t.Errorf("FailingRule = %q, want a", result.FailingRule)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestCode_TemplateLiteralTag(t *testing.T) {
	src := "class UserCard extends HTMLElement {}\ncustomElements.define(`user-card`, UserCard);"
	if !Code(src).Valid {
		t.Error("template-literal tag name should be accepted")
	}
}
