package resolver

// A Condition decides whether a branch applies for the current attempt.
type Condition func(rc *Context) (bool, error)

// A BranchDef describes one conditional case in a branch-set definition.
type BranchDef struct {
	// ID identifies the branch within its set. IDs form the branch chain
	// in the resolver's full path.
	ID string

	// Label describes the branch in diagnostics.
	Label string

	// Condition selects the branch. It is not evaluated for the default
	// branch.
	Condition Condition

	// Default marks the branch chosen when no condition matches.
	Default bool

	// Resolver computes the value when the branch is chosen.
	Resolver *Resolver
}

// A Branch is a conditioned case inside a branch-set resolver. Its
// definition is immutable; the only mutable state is the activation flag,
// set exclusively by the owning resolver during Resolve and guarded by
// the owning resolver's mutex.
type Branch struct {
	owner    *Resolver
	id       string
	label    string
	def      bool
	cond     Condition
	resolver *Resolver
	active   bool
}

// ID returns the branch id.
func (b *Branch) ID() string { return b.id }

// Label returns the branch label.
func (b *Branch) Label() string { return b.label }

// IsDefault reports whether the branch is the fallback of its set.
func (b *Branch) IsDefault() bool { return b.def }

// Resolver returns the inner resolver.
func (b *Branch) Resolver() *Resolver { return b.resolver }

// IsActive reports whether the branch was chosen in the most recent
// attempt of the owning resolver.
func (b *Branch) IsActive() bool {
	b.owner.mu.RLock()
	defer b.owner.mu.RUnlock()
	return b.active
}
