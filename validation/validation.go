// Package validation validates resolved configuration values against
// rule lists.
package validation

import (
	"fmt"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"go.uber.org/multierr"
)

// A Rule checks a resolved configuration value. The param is the part
// after "=" in the rule list, empty when not given.
type Rule func(value cty.Value, param string) error

// A Validator maintains a list of registered validation rules.
type Validator struct {
	rules map[string]Rule
}

// New creates a new empty validator. Rules should be added with Add();
// AddBuiltin() registers the common rules.
func New() *Validator {
	return &Validator{
		rules: make(map[string]Rule),
	}
}

// An InvalidRuleError is returned when a rule list cannot be processed.
// This indicates a programmer error, rather than an invalid value.
type InvalidRuleError struct {
	Reason string
}

func (e InvalidRuleError) Error() string {
	return fmt.Sprintf("invalid rule: %s", e.Reason)
}

// Add registers a new validation rule.
//
// Not safe for concurrent access.
//
// Panics if a rule with the same name has already been registered.
func (v *Validator) Add(name string, rule Rule) {
	if _, ok := v.rules[name]; ok {
		panic(fmt.Sprintf("a rule with name %q has already been registered", name))
	}
	v.rules[name] = rule
}

// Validate validates the given value against rules.
//
// Rules must be provided in a comma separated list (without space):
//
//	rule1,rule2
//
// Additional parameters can be provided to rules:
//
//	min=3,max=10
//
// If rules is empty, no validation is performed.
func (v *Validator) Validate(value cty.Value, rules string) error {
	if rules == "" {
		return nil
	}
	parts := strings.Split(rules, ",")
	var err error
	for i, p := range parts {
		val := strings.SplitN(p, "=", 2)
		name := val[0]
		if name == "" {
			return InvalidRuleError{Reason: fmt.Sprintf("name not set for rule %d", i)}
		}
		param := ""
		if len(val) == 2 {
			param = val[1]
		}
		fn := v.rules[name]
		if fn == nil {
			return InvalidRuleError{Reason: fmt.Sprintf("no such rule: %q", name)}
		}
		err = multierr.Append(err, fn(value, param))
	}
	return err
}
