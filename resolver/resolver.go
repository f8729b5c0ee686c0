package resolver

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/zclconf/go-cty/cty"
)

// A Text produces a string for one resolution attempt. Icon, label and
// cache key are all texts, so they can be fixed strings or derived from
// the resolution context.
type Text func(rc *Context) (string, error)

// Fixed returns a Text that always produces s.
func Fixed(s string) Text {
	return func(*Context) (string, error) { return s, nil }
}

// An EvalFunc computes a leaf resolver's value. It may read other nodes'
// values through the resolution context, registering dependencies on
// them as it does.
type EvalFunc func(ctx context.Context, rc *Context) (cty.Value, error)

// A DeferredCheck is returned from a structural pass and runs after the
// entire graph's structural pass has completed. It is used for
// cross-node validation that requires the full graph to exist.
type DeferredCheck func() error

// A ProcessFunc is the one-time structural pass of a resolver. It may
// register schema dependencies through the context, append structural
// errors to the owning node, and return deferred checks.
type ProcessFunc func(rc *Context) ([]DeferredCheck, error)

// A Definition describes a resolver. Exactly one of Resolve or Branches
// must be set.
type Definition struct {
	// Icon optionally identifies the resolver in user interfaces.
	Icon Text

	// Label describes the resolver in diagnostics.
	Label Text

	// CacheKey enables caching of the resolved value under the produced
	// key. A nil CacheKey disables caching.
	CacheKey Text

	// Process is the optional one-time structural pass.
	Process ProcessFunc

	// Resolve is the leaf evaluation function.
	Resolve EvalFunc

	// Branches is the ordered set of conditional cases.
	Branches []BranchDef
}

// A Resolver computes the value of a single configuration node, either
// directly through an evaluation function or by delegating to one of its
// branches.
//
// A Resolver must be created with New and attached to its owning node
// with Bind before it is processed or resolved.
type Resolver struct {
	node Node

	// chain is the branch-id chain from the node's top-level resolver
	// down to this resolver. Empty for a top-level resolver. The chain
	// stands in for a back-reference to the owning branch; it is all
	// that path computation needs.
	chain []string

	fn       EvalFunc
	process  ProcessFunc
	iconText Text
	labelTxt Text
	cacheKey Text
	branches []*Branch

	// mu guards the attempt-scoped state below, including the branch
	// activation flags. Distinct nodes may be resolved concurrently, and
	// a dependent observes this state through its resolution context
	// while the owning goroutine writes it. mu is never held across
	// evaluation functions, conditions or nested resolution.
	mu sync.RWMutex

	icon  string
	label string

	resolved   bool
	value      cty.Value
	resErr     *ResolutionError
	usingCache bool

	deps DependencyMap
}

// New creates a resolver from a definition.
//
// The definition must contain exactly one of a leaf evaluation function
// or a branch set. A branch set must not contain duplicate ids or more
// than one default branch, and every non-default branch needs a
// condition.
func New(def Definition) (*Resolver, error) {
	if def.Resolve == nil && len(def.Branches) == 0 {
		return nil, errors.New("definition has neither an evaluation function nor branches")
	}
	if def.Resolve != nil && len(def.Branches) > 0 {
		return nil, errors.New("definition has both an evaluation function and branches")
	}

	r := &Resolver{
		fn:       def.Resolve,
		process:  def.Process,
		iconText: def.Icon,
		labelTxt: def.Label,
		cacheKey: def.CacheKey,
		deps:     make(DependencyMap),
	}

	seen := make(map[string]struct{}, len(def.Branches))
	haveDefault := false
	for _, bd := range def.Branches {
		if bd.ID == "" {
			return nil, errors.New("branch has no id")
		}
		if bd.Resolver == nil {
			return nil, errors.Errorf("branch %q has no resolver", bd.ID)
		}
		if _, ok := seen[bd.ID]; ok {
			return nil, errors.Errorf("duplicate branch id %q", bd.ID)
		}
		seen[bd.ID] = struct{}{}
		if bd.Default {
			if haveDefault {
				return nil, errors.Errorf("branch %q: a default branch is already defined", bd.ID)
			}
			haveDefault = true
		} else if bd.Condition == nil {
			return nil, errors.Errorf("branch %q has no condition", bd.ID)
		}
		r.branches = append(r.branches, &Branch{
			owner:    r,
			id:       bd.ID,
			label:    bd.Label,
			def:      bd.Default,
			cond:     bd.Condition,
			resolver: bd.Resolver,
		})
	}

	return r, nil
}

// Bind attaches the resolver to its owning node. Bind is called once by
// the owning graph when the node is built. Nested branch resolvers are
// bound to the same node with their branch-id chain appended.
func (r *Resolver) Bind(node Node) {
	r.bind(node, nil)
}

func (r *Resolver) bind(node Node, chain []string) {
	r.node = node
	r.chain = chain
	for _, b := range r.branches {
		next := make([]string, len(chain)+1)
		copy(next, chain)
		next[len(chain)] = b.id
		b.resolver.bind(node, next)
	}
}

// Node returns the owning node. Nil until Bind is called.
func (r *Resolver) Node() Node { return r.node }

// FullPath returns the unique identity of the resolver: the owning
// node's full path, joined with "#" to the branch-id chain when the
// resolver is nested inside branches.
func (r *Resolver) FullPath() string {
	base := ""
	if r.node != nil {
		base = r.node.FullPath()
	}
	if len(r.chain) == 0 {
		return base
	}
	return base + "#" + strings.Join(r.chain, "/")
}

// Icon returns the icon evaluated in the most recent attempt.
func (r *Resolver) Icon() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.icon
}

// Label returns the label evaluated in the most recent attempt.
func (r *Resolver) Label() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.label
}

// Branches returns the branches of a branch-set resolver, in declared
// order. Nil for a leaf resolver.
func (r *Resolver) Branches() []*Branch { return r.branches }

// ActiveBranch returns the branch chosen in the most recent attempt, or
// nil if none is active.
func (r *Resolver) ActiveBranch() *Branch {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.activeBranchLocked()
}

// activeBranchLocked requires r.mu to be held.
func (r *Resolver) activeBranchLocked() *Branch {
	for _, b := range r.branches {
		if b.active {
			return b
		}
	}
	return nil
}

// IsResolved reports whether the most recent attempt completed. For a
// branch set this only means a branch was chosen and delegated to; use
// IsFullyResolved to decide whether the value is usable.
func (r *Resolver) IsResolved() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.resolved
}

// IsUsingCache reports whether the most recent attempt was satisfied
// from the cache.
func (r *Resolver) IsUsingCache() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.usingCache
}

// Value returns the value produced by the most recent attempt.
func (r *Resolver) Value() cty.Value {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.value
}

// Err returns the error recorded on this resolver by the most recent
// attempt. For a branch set the delegated outcome is not included; use
// DeepErr for that.
func (r *Resolver) Err() *ResolutionError {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.resErr
}

// DeepErr returns this resolver's own error, or the first error found
// along the active branch chain.
func (r *Resolver) DeepErr() *ResolutionError {
	r.mu.RLock()
	re := r.resErr
	b := r.activeBranchLocked()
	r.mu.RUnlock()
	if re != nil {
		return re
	}
	if b != nil {
		return b.resolver.DeepErr()
	}
	return nil
}

// IsFullyResolved reports whether the most recent attempt produced a
// usable value: the resolver resolved, and no error exists on it or
// anywhere along its active branch chain.
func (r *Resolver) IsFullyResolved() bool {
	r.mu.RLock()
	resolved := r.resolved
	r.mu.RUnlock()
	return resolved && r.DeepErr() == nil
}

// Dependencies returns the resolver's dependency map. The mode selects
// whether branch maps are included.
func (r *Resolver) Dependencies(mode DepMode) DependencyMap {
	r.mu.RLock()
	out := make(DependencyMap, len(r.deps))
	out.MergeAll(r.deps)
	active := r.activeBranchLocked()
	r.mu.RUnlock()
	switch mode {
	case DepsActive:
		if active != nil {
			out.MergeAll(active.resolver.Dependencies(DepsActive))
		}
	case DepsAll:
		for _, b := range r.branches {
			out.MergeAll(b.resolver.Dependencies(DepsAll))
		}
	}
	return out
}

func (r *Resolver) addDependency(path string, kind DependencyKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deps == nil {
		r.deps = make(DependencyMap)
	}
	r.deps.Merge(path, kind)
}

// ResetResolutionState clears all attempt-scoped state: the prior value,
// error and cache flag, branch activation (recursively), and
// resolution-kind dependency entries. Schema-kind entries persist.
func (r *Resolver) ResetResolutionState() {
	r.mu.Lock()
	r.resolved = false
	r.value = cty.NilVal
	r.resErr = nil
	r.usingCache = false
	r.deps.dropResolution()
	for _, b := range r.branches {
		b.active = false
	}
	r.mu.Unlock()
	for _, b := range r.branches {
		b.resolver.ResetResolutionState()
	}
}

// Process runs the one-time structural pass for the resolver and,
// recursively, for every branch resolver. The returned checks must be
// run after the entire graph's structural pass has completed.
func (r *Resolver) Process(rc *Context) ([]DeferredCheck, error) {
	var deferred []DeferredCheck
	if r.process != nil {
		d, err := r.process(rc)
		if err != nil {
			return nil, err
		}
		deferred = append(deferred, d...)
	}
	for _, b := range r.branches {
		d, err := b.resolver.Process(rc.forResolver(b.resolver))
		if err != nil {
			return nil, err
		}
		deferred = append(deferred, d...)
	}
	return deferred, nil
}

// Resolve runs one resolution attempt against the given context. The
// outcome is recorded on the resolver; the returned error mirrors it as
// a convenience. A nil return means the resolver, and for a branch set
// its active branch chain, produced a usable value.
//
// Resolve panics if no branch condition matches and the set has no
// default branch. That is a configuration defect in the definition, not
// a resolution failure, and is deliberately not recorded as one.
func (r *Resolver) Resolve(ctx context.Context, rc *Context) error {
	r.ResetResolutionState()

	if err := r.evalIdentity(rc); err != nil {
		return r.fail(err)
	}

	key, err := r.cacheKeyFor(rc)
	if err != nil {
		return r.fail(err)
	}

	if key != "" {
		v, ok, err := rc.CacheGet(ctx, key)
		if err != nil {
			return r.fail(errors.Wrap(err, "read cache"))
		}
		if ok {
			r.mu.Lock()
			r.value = v
			r.resolved = true
			r.usingCache = true
			r.mu.Unlock()
			return nil
		}
	}

	if len(r.branches) > 0 {
		if err := r.resolveBranches(ctx, rc); err != nil {
			return err
		}
	} else {
		v, err := r.fn(ctx, rc)
		if err != nil {
			return r.fail(err)
		}
		r.mu.Lock()
		r.value = v
		r.resolved = true
		r.mu.Unlock()
	}

	if key != "" && cacheable(r.Value()) {
		if err := rc.CachePut(ctx, key, r.Value()); err != nil {
			r.mu.Lock()
			r.resolved = false
			r.mu.Unlock()
			return r.fail(errors.Wrap(err, "write cache"))
		}
	}

	return nil
}

func (r *Resolver) resolveBranches(ctx context.Context, rc *Context) error {
	var chosen *Branch
	for _, b := range r.branches {
		if b.def {
			continue
		}
		ok, err := b.cond(rc)
		if err != nil {
			// A failing condition aborts the whole attempt. The default
			// branch is a fallback for "no match" only.
			re, isTyped := AsResolutionError(err)
			if !isTyped {
				re = &ResolutionError{
					Kind:   KindResolution,
					Path:   r.FullPath(),
					Reason: fmt.Sprintf("condition of branch %q failed", b.id),
					Cause:  err,
				}
			}
			r.mu.Lock()
			r.resErr = re
			r.mu.Unlock()
			return re
		}
		if ok {
			chosen = b
			break
		}
	}

	if chosen == nil {
		for _, b := range r.branches {
			if b.def {
				chosen = b
				break
			}
		}
	}
	if chosen == nil {
		panic(fmt.Sprintf("resolver %s: no branch matched and no default branch is defined", r.FullPath()))
	}

	r.mu.Lock()
	for _, b := range r.branches {
		b.active = b == chosen
	}
	r.mu.Unlock()

	err := chosen.resolver.Resolve(ctx, rc.forResolver(chosen.resolver))

	// The value is copied up and the set is marked resolved regardless
	// of the delegated outcome; it records that delegation occurred.
	// The chain outcome is reported by IsFullyResolved and DeepErr.
	v := chosen.resolver.Value()
	r.mu.Lock()
	r.value = v
	r.resolved = true
	r.mu.Unlock()
	return err
}

func (r *Resolver) evalIdentity(rc *Context) error {
	icon, label := "", ""
	if r.iconText != nil {
		s, err := r.iconText(rc)
		if err != nil {
			return errors.Wrap(err, "evaluate icon")
		}
		icon = s
	}
	if r.labelTxt != nil {
		s, err := r.labelTxt(rc)
		if err != nil {
			return errors.Wrap(err, "evaluate label")
		}
		label = s
	}
	r.mu.Lock()
	if r.iconText != nil {
		r.icon = icon
	}
	if r.labelTxt != nil {
		r.label = label
	}
	r.mu.Unlock()
	return nil
}

func (r *Resolver) cacheKeyFor(rc *Context) (string, error) {
	if r.cacheKey == nil {
		return "", nil
	}
	key, err := r.cacheKey(rc)
	if err != nil {
		return "", errors.Wrap(err, "evaluate cache key")
	}
	return key, nil
}

// fail records err as the attempt's failure, preserving typed resolution
// errors together with their retryable flag.
func (r *Resolver) fail(err error) *ResolutionError {
	re, ok := AsResolutionError(err)
	if ok {
		if re.Path == "" {
			re.Path = r.FullPath()
		}
	} else {
		re = NewResolutionError(r.FullPath(), err)
	}
	r.mu.Lock()
	r.resErr = re
	r.mu.Unlock()
	return re
}

// cacheable reports whether a value may be written to the cache. Null
// and unknown values are never cached.
func cacheable(v cty.Value) bool {
	return !v.IsNull() && v.IsKnown()
}
