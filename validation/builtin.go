package validation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// AddBuiltin adds the built in common rules.
func AddBuiltin(validator *Validator) {
	validator.Add("required", required)
	validator.Add("min", min)
	validator.Add("max", max)
	validator.Add("oneof", oneof)
}

// Default returns a validator with the built in rules registered.
func Default() *Validator {
	v := New()
	AddBuiltin(v)
	return v
}

func required(value cty.Value, param string) error {
	if value.IsNull() {
		return fmt.Errorf("value is required")
	}
	if value.Type() == cty.String && value.AsString() == "" {
		return fmt.Errorf("value must not be empty")
	}
	return nil
}

func min(value cty.Value, param string) error {
	return bound("min", value, param, false)
}

func max(value cty.Value, param string) error {
	return bound("max", value, param, true)
}

// bound checks a lower or upper bound. For strings, tuples and objects
// the bound applies to the length; for numbers to the value itself.
func bound(name string, value cty.Value, param string, upper bool) error {
	if value.IsNull() {
		return nil
	}
	n, err := strconv.ParseFloat(param, 64)
	if err != nil {
		return InvalidRuleError{Reason: fmt.Sprintf("%s: %v", name, err)}
	}

	ty := value.Type()
	switch {
	case ty == cty.String:
		l := float64(len(value.AsString()))
		if upper && l > n {
			return fmt.Errorf("length must be at most %v characters", n)
		}
		if !upper && l < n {
			return fmt.Errorf("length must be at least %v characters", n)
		}
	case ty == cty.Number:
		f, _ := value.AsBigFloat().Float64()
		if upper && f > n {
			return fmt.Errorf("must be %v or less", n)
		}
		if !upper && f < n {
			return fmt.Errorf("must be %v or more", n)
		}
	case ty.IsTupleType() || ty.IsObjectType() || ty.IsListType() || ty.IsMapType():
		l := float64(value.LengthInt())
		if upper && l > n {
			return fmt.Errorf("length must be %v or less", n)
		}
		if !upper && l < n {
			return fmt.Errorf("length must be %v or more", n)
		}
	default:
		return InvalidRuleError{Reason: fmt.Sprintf("%s: cannot check %s", name, ty.FriendlyName())}
	}
	return nil
}

func oneof(value cty.Value, param string) error {
	if value.IsNull() {
		return nil
	}
	if value.Type() != cty.String {
		return InvalidRuleError{Reason: fmt.Sprintf("oneof: cannot check %s", value.Type().FriendlyName())}
	}
	s := value.AsString()
	allowed := strings.Fields(param)
	for _, a := range allowed {
		if s == a {
			return nil
		}
	}
	return fmt.Errorf("must be one of %s", strings.Join(allowed, ", "))
}
