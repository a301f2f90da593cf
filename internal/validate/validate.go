// Package validate rejects implausible generated components without executing them.
package validate

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MinLength is the shortest source accepted by the min_length rule.
const MinLength = 20

// Rule names, in default evaluation order.
const (
	RuleNonEmpty       = "non_empty"
	RuleExtendsElement = "extends_html_element"
	RuleRegisters      = "registers_custom_element"
	RuleMinLength      = "min_length"
)

// Rule is a named structural predicate over source text.
// Check returns ok=false with a human-readable reason on failure.
type Rule struct {
	Name  string
	Check func(src string) (ok bool, reason string)
}

// Result is the outcome of running a rule list.
type Result struct {
	Valid       bool   `json:"valid"`
	FailingRule string `json:"failing_rule,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// classRegex captures the name of a class extending HTMLElement.
var classRegex = regexp.MustCompile(`class\s+([A-Za-z_$][\w$]*)\s+extends\s+HTMLElement\b`)

// DefaultRules returns the standard rule list. Callers may append their own.
func DefaultRules() []Rule {
	return []Rule{
		{Name: RuleNonEmpty, Check: checkNonEmpty},
		{Name: RuleExtendsElement, Check: checkExtendsElement},
		{Name: RuleRegisters, Check: checkRegisters},
		{Name: RuleMinLength, Check: checkMinLength},
	}
}

// Validate runs rules in order; the first failure wins.
func Validate(src string, rules []Rule) Result {
	for _, r := range rules {
		if ok, reason := r.Check(src); !ok {
			return Result{Valid: false, FailingRule: r.Name, Reason: reason}
		}
	}
	return Result{Valid: true}
}

// Code validates src against DefaultRules.
func Code(src string) Result {
	return Validate(src, DefaultRules())
}

func checkNonEmpty(src string) (bool, string) {
	if strings.TrimSpace(src) == "" {
		return false, "code is empty"
	}
	return true, ""
}

func checkExtendsElement(src string) (bool, string) {
	if !classRegex.MatchString(src) {
		return false, "no class declaration extending HTMLElement"
	}
	return true, ""
}

// checkRegisters requires customElements.define(<tag>, <Class>) for a class
// that extends HTMLElement.
func checkRegisters(src string) (bool, string) {
	for _, m := range classRegex.FindAllStringSubmatch(src, -1) {
		define := regexp.MustCompile(`customElements\s*\.\s*define\s*\(\s*(['"` + "`" + `])[^'"` + "`" + `]+['"` + "`" + `]\s*,\s*` + regexp.QuoteMeta(m[1]) + `\b`)
		if define.MatchString(src) {
			return true, ""
		}
	}
	return false, "no customElements.define call registering the element class"
}

func checkMinLength(src string) (bool, string) {
	if utf8.RuneCountInString(src) < MinLength {
		return false, "code is shorter than 20 characters"
	}
	return true, ""
}
