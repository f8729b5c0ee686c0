package graph

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
	"github.com/zclconf/go-cty/cty"

	"github.com/confgraph/confgraph/resolver"
)

// An Entity groups the configuration nodes of one entity.
type Entity struct {
	graph *Graph
	name  string
	nodes map[string]*Node
}

// Name returns the entity name.
func (e *Entity) Name() string { return e.name }

// Root returns the graph the entity belongs to.
func (e *Entity) Root() resolver.Root { return e.graph }

// AddNode adds a configuration node at the given path within the
// entity, owning the given resolver. The resolver is bound to the node.
//
// Returns an error if the path is empty or a node already exists at the
// path.
func (e *Entity) AddNode(path string, r *resolver.Resolver) (*Node, error) {
	if path == "" {
		return nil, errors.New("node has no path")
	}
	if _, ok := e.nodes[path]; ok {
		return nil, errors.Errorf("node %q already exists in entity %q", path, e.name)
	}
	n := &Node{
		entity: e,
		path:   path,
		res:    r,
	}
	r.Bind(n)
	e.nodes[path] = n
	return n, nil
}

// Node returns the node at the given path within the entity. Returns
// nil if the node does not exist.
func (e *Entity) Node(path string) resolver.Node {
	n, ok := e.nodes[path]
	if !ok {
		return nil
	}
	return n
}

// NodeAt is Node with the concrete type. Returns nil if the node does
// not exist.
func (e *Entity) NodeAt(path string) *Node {
	return e.nodes[path]
}

// Paths returns the paths of all nodes in the entity, sorted.
func (e *Entity) Paths() []string {
	out := make([]string, 0, len(e.nodes))
	for p := range e.nodes {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// A CoercionError is recorded when a node's coercion hook rejects the
// resolved value.
type CoercionError struct {
	Path string
	Err  error
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("%s: coerce: %v", e.Path, e.Err)
}

// A ValidationError is recorded when a node's resolved value fails its
// validation rules.
type ValidationError struct {
	Path string
	Err  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// A Node is a single configuration value within an entity.
type Node struct {
	entity *Entity
	path   string
	res    *resolver.Resolver

	// rules is the comma separated validation rule list applied to the
	// resolved value, in the validation package's format.
	rules string

	// coerce optionally normalizes the resolved value before
	// validation.
	coerce func(cty.Value) (cty.Value, error)

	schemaErrs []error
}

// Path returns the node's path within its entity.
func (n *Node) Path() string { return n.path }

// FullPath returns the node's path qualified with its entity.
func (n *Node) FullPath() string { return n.entity.name + "." + n.path }

// Entity returns the entity the node belongs to.
func (n *Node) Entity() resolver.Entity { return n.entity }

// Resolver returns the resolver that computes the node's value.
func (n *Node) Resolver() *resolver.Resolver { return n.res }

// SetRules sets the validation rule list applied to the resolved value.
func (n *Node) SetRules(rules string) { n.rules = rules }

// SetCoerce sets a hook that normalizes the resolved value before
// validation. A returned error marks the node invalid with a
// CoercionError.
func (n *Node) SetCoerce(fn func(cty.Value) (cty.Value, error)) { n.coerce = fn }

// AddSchemaError appends a structural error to the node's error list.
func (n *Node) AddSchemaError(err error) {
	n.schemaErrs = append(n.schemaErrs, err)
}

// SchemaErrors returns the structural errors recorded on the node.
func (n *Node) SchemaErrors() []error { return n.schemaErrs }

// IsResolved reports whether the node's value is available: the
// resolver's most recent attempt fully resolved.
func (n *Node) IsResolved() bool { return n.res.IsFullyResolved() }

// Value returns the resolved value, after coercion if a hook is set.
func (n *Node) Value() cty.Value {
	v := n.res.Value()
	if n.coerce != nil {
		c, err := n.coerce(v)
		if err != nil {
			return v
		}
		v = c
	}
	return v
}

// IsValid reports whether the resolved value passes the node's coercion
// hook and validation rules. False when the node is not resolved.
func (n *Node) IsValid() bool {
	return n.Invalid() == nil
}

// Invalid returns the reason the node is invalid, or nil if the node is
// resolved and its value passes coercion and validation.
func (n *Node) Invalid() error {
	if !n.IsResolved() {
		if err := n.res.DeepErr(); err != nil {
			return err
		}
		return errors.Errorf("%s is not resolved", n.FullPath())
	}
	v := n.res.Value()
	if n.coerce != nil {
		c, err := n.coerce(v)
		if err != nil {
			return &CoercionError{Path: n.FullPath(), Err: err}
		}
		v = c
	}
	if err := n.entity.graph.validator.Validate(v, n.rules); err != nil {
		return &ValidationError{Path: n.FullPath(), Err: err}
	}
	return nil
}
