package resolver

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// mustNew creates a resolver from a definition that is known to be
// valid. Only used by the built-in constructors.
func mustNew(def Definition) *Resolver {
	r, err := New(def)
	if err != nil {
		panic(err)
	}
	return r
}

func staticLeaf(label string, v cty.Value) *Resolver {
	return mustNew(Definition{
		Label: Fixed(label),
		Resolve: func(context.Context, *Context) (cty.Value, error) {
			return v, nil
		},
	})
}

// StaticString returns a resolver that always resolves to s.
func StaticString(label, s string) *Resolver {
	return staticLeaf(label, cty.StringVal(s))
}

// StaticNumber returns a resolver that always resolves to n.
func StaticNumber(label string, n float64) *Resolver {
	return staticLeaf(label, cty.NumberFloatVal(n))
}

// StaticBool returns a resolver that always resolves to b.
func StaticBool(label string, b bool) *Resolver {
	return staticLeaf(label, cty.BoolVal(b))
}

// StaticList returns a resolver that always resolves to the given
// sequence of values.
func StaticList(label string, items []cty.Value) *Resolver {
	if len(items) == 0 {
		return staticLeaf(label, cty.EmptyTupleVal)
	}
	return staticLeaf(label, cty.TupleVal(items))
}

// StaticMap returns a resolver that always resolves to the given mapping.
func StaticMap(label string, items map[string]cty.Value) *Resolver {
	if len(items) == 0 {
		return staticLeaf(label, cty.EmptyObjectVal)
	}
	return staticLeaf(label, cty.ObjectVal(items))
}

// StaticValue returns a resolver that always resolves to the config
// value converted from the given Go value. Strings, bools, numeric
// types, slices, maps and structs are supported; see gocty for the
// exact mapping.
//
// Returns an error if the value has no config value equivalent.
func StaticValue(label string, v interface{}) (*Resolver, error) {
	ty, err := gocty.ImpliedType(v)
	if err != nil {
		return nil, errors.Wrapf(err, "no config type for %T", v)
	}
	cv, err := gocty.ToCtyValue(v, ty)
	if err != nil {
		return nil, errors.Wrapf(err, "convert %T", v)
	}
	return staticLeaf(label, cv), nil
}

// Func returns a leaf resolver that evaluates fn on every attempt.
func Func(label string, fn EvalFunc) *Resolver {
	return mustNew(Definition{
		Label:   Fixed(label),
		Resolve: fn,
	})
}

// CachedFunc is Func with caching enabled. If key is empty, the cache
// key is derived from the resolver's own full path. This lets ad hoc
// computations, such as generated secrets, opt into memoization without
// a hand-rolled key.
func CachedFunc(label, key string, fn EvalFunc) *Resolver {
	ck := Fixed(key)
	if key == "" {
		ck = func(rc *Context) (string, error) {
			return rc.Resolver().FullPath(), nil
		}
	}
	return mustNew(Definition{
		Label:    Fixed(label),
		CacheKey: ck,
		Resolve:  fn,
	})
}

// Pick returns a resolver that copies the resolved value of another node
// in the same entity, optionally through a pure transform.
//
// The source is declared as a schema dependency during the structural
// pass. If the source has not resolved yet at evaluation time, the
// resolver resolves successfully to an object value of the form
// {"error": <message>} instead of failing. Callers that need failure
// semantics should use Func with Context.Get instead.
func Pick(label, source string, transform func(cty.Value) cty.Value) *Resolver {
	return mustNew(Definition{
		Label: Fixed(label),
		Process: func(rc *Context) ([]DeferredCheck, error) {
			if err := rc.Declare(source); err != nil {
				return nil, err
			}
			return nil, nil
		},
		Resolve: func(ctx context.Context, rc *Context) (cty.Value, error) {
			v, err := rc.Get(source)
			if err != nil {
				if re, ok := AsResolutionError(err); ok && re.Retryable {
					return errorValue(re), nil
				}
				return cty.NilVal, err
			}
			if transform != nil {
				v = transform(v)
			}
			return v, nil
		},
	})
}

// errorValue encodes an error as a config value.
func errorValue(err error) cty.Value {
	return cty.ObjectVal(map[string]cty.Value{
		"error": cty.StringVal(err.Error()),
	})
}

// Default case keys recognised by SwitchBy.
const (
	switchDefaultKey      = "_default"
	switchDefaultShortKey = "_"
)

// SwitchBy returns a branch-set resolver that selects a case by
// comparing the resolved value of the discriminant node against each
// case key.
//
// cases maps a case key to the resolver used when the discriminant
// equals that key. The key "_default" (or "_") marks the fallback used
// when no case matches. The discriminant is declared as a schema
// dependency during the structural pass; an invalid discriminant path is
// appended to the owning node's error list rather than failing the pass.
func SwitchBy(label, discriminant string, cases map[string]*Resolver) *Resolver {
	keys := make([]string, 0, len(cases))
	for k := range cases {
		if k == switchDefaultKey || k == switchDefaultShortKey {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	branches := make([]BranchDef, 0, len(cases))
	for _, k := range keys {
		k := k
		branches = append(branches, BranchDef{
			ID:    k,
			Label: k,
			Condition: func(rc *Context) (bool, error) {
				v, err := rc.Get(discriminant)
				if err != nil {
					return false, err
				}
				return v.Equals(cty.StringVal(k)).True(), nil
			},
			Resolver: cases[k],
		})
	}

	def := cases[switchDefaultKey]
	if def == nil {
		def = cases[switchDefaultShortKey]
	}
	if def != nil {
		branches = append(branches, BranchDef{
			ID:       switchDefaultKey,
			Label:    "default",
			Default:  true,
			Resolver: def,
		})
	}

	return mustNew(Definition{
		Label: Fixed(label),
		Process: func(rc *Context) ([]DeferredCheck, error) {
			if err := rc.Declare(discriminant); err != nil {
				rc.Node().AddSchemaError(err)
			}
			return nil, nil
		},
		Branches: branches,
	})
}
