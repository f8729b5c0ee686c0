// Package graph maintains configuration entities and their nodes.
//
// A Graph is the root: it owns named entities, each entity owns named
// configuration nodes, and every node owns the resolver that computes
// its value. The graph implements the capability surface the resolver
// package consumes for dependency lookup.
package graph

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/confgraph/confgraph/resolver"
	"github.com/confgraph/confgraph/validation"
)

// A Graph is the root of all configuration entities.
type Graph struct {
	entities  map[string]*Entity
	validator *validation.Validator
}

// New creates a new empty graph. If v is nil, a validator with the built
// in rules is used for node validation.
func New(v *validation.Validator) *Graph {
	if v == nil {
		v = validation.Default()
	}
	return &Graph{
		entities:  make(map[string]*Entity),
		validator: v,
	}
}

// AddEntity adds a new named entity to the graph.
//
// The name must not be empty or contain ".", and must not already exist.
func (g *Graph) AddEntity(name string) (*Entity, error) {
	if name == "" {
		return nil, errors.New("entity has no name")
	}
	if strings.Contains(name, ".") {
		return nil, errors.Errorf("entity name %q must not contain %q", name, ".")
	}
	if _, ok := g.entities[name]; ok {
		return nil, errors.Errorf("entity %q already exists", name)
	}
	e := &Entity{
		graph: g,
		name:  name,
		nodes: make(map[string]*Node),
	}
	g.entities[name] = e
	return e, nil
}

// Entity returns the entity with the given name. Returns nil if the
// entity does not exist.
func (g *Graph) Entity(name string) *Entity {
	return g.entities[name]
}

// Entities returns all entities, sorted by name.
func (g *Graph) Entities() []*Entity {
	names := make([]string, 0, len(g.entities))
	for n := range g.entities {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]*Entity, len(names))
	for i, n := range names {
		out[i] = g.entities[n]
	}
	return out
}

// Nodes returns every node in the graph, sorted by full path.
func (g *Graph) Nodes() []*Node {
	var out []*Node
	for _, e := range g.Entities() {
		for _, p := range e.Paths() {
			out = append(out, e.nodes[p])
		}
	}
	return out
}

// Item returns the node at the given full path ("entity.path"). A
// trailing "#..." branch chain is ignored. Returns nil if no such node
// exists.
func (g *Graph) Item(fullPath string) resolver.Node {
	if i := strings.IndexByte(fullPath, '#'); i >= 0 {
		fullPath = fullPath[:i]
	}
	parts := strings.SplitN(fullPath, ".", 2)
	if len(parts) < 2 {
		return nil
	}
	e, ok := g.entities[parts[0]]
	if !ok {
		return nil
	}
	n, ok := e.nodes[parts[1]]
	if !ok {
		return nil
	}
	return n
}

// Process runs the one-time structural pass for every node in the
// graph, then all deferred checks returned by the passes. Structural
// failures are recorded on the offending node and aggregated into the
// returned error.
func (g *Graph) Process(cache resolver.Cache) error {
	var err error
	var deferred []resolver.DeferredCheck
	for _, n := range g.Nodes() {
		rc := resolver.NewResolverContext(n.res, cache)
		d, perr := n.res.Process(rc)
		if perr != nil {
			n.AddSchemaError(perr)
			err = multierr.Append(err, errors.Wrapf(perr, "process %s", n.FullPath()))
			continue
		}
		deferred = append(deferred, d...)
	}
	for _, fn := range deferred {
		err = multierr.Append(err, fn())
	}
	return err
}
