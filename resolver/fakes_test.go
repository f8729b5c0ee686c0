package resolver

import (
	"context"
	"sort"
	"sync"

	"github.com/zclconf/go-cty/cty"
)

// Fakes for the capability surface the engine consumes from the owning
// graph. The real implementation lives in the graph package; these keep
// the engine tests self-contained.

type fakeRoot struct {
	nodes map[string]*fakeNode
}

func (r *fakeRoot) Item(fullPath string) Node {
	n, ok := r.nodes[fullPath]
	if !ok {
		return nil
	}
	return n
}

type fakeEntity struct {
	name  string
	root  *fakeRoot
	nodes map[string]*fakeNode
}

func newFakeEntity(name string) *fakeEntity {
	return &fakeEntity{
		name:  name,
		root:  &fakeRoot{nodes: make(map[string]*fakeNode)},
		nodes: make(map[string]*fakeNode),
	}
}

func (e *fakeEntity) Name() string { return e.name }

func (e *fakeEntity) Node(path string) Node {
	n, ok := e.nodes[path]
	if !ok {
		return nil
	}
	return n
}

func (e *fakeEntity) Paths() []string {
	out := make([]string, 0, len(e.nodes))
	for p := range e.nodes {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (e *fakeEntity) Root() Root { return e.root }

// add creates a node in the entity. The node reports as resolved and
// valid with the given value; use the fields to change that.
func (e *fakeEntity) add(path string, value cty.Value) *fakeNode {
	n := &fakeNode{
		entity:   e,
		path:     path,
		resolved: true,
		valid:    true,
		value:    value,
	}
	e.nodes[path] = n
	e.root.nodes[n.FullPath()] = n
	return n
}

// addUnresolved creates a node that has no value yet.
func (e *fakeEntity) addUnresolved(path string) *fakeNode {
	n := e.add(path, cty.NilVal)
	n.resolved = false
	return n
}

type fakeNode struct {
	entity     *fakeEntity
	path       string
	resolved   bool
	valid      bool
	value      cty.Value
	schemaErrs []error
}

func (n *fakeNode) Path() string             { return n.path }
func (n *fakeNode) FullPath() string         { return n.entity.name + "." + n.path }
func (n *fakeNode) IsResolved() bool         { return n.resolved }
func (n *fakeNode) IsValid() bool            { return n.valid }
func (n *fakeNode) Value() cty.Value         { return n.value }
func (n *fakeNode) Entity() Entity           { return n.entity }
func (n *fakeNode) AddSchemaError(err error) { n.schemaErrs = append(n.schemaErrs, err) }

// spyCache records all cache traffic.
type spyCache struct {
	mu   sync.Mutex
	data map[string]cty.Value
	gets []string
	puts []string
}

func (c *spyCache) Get(ctx context.Context, key string) (cty.Value, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets = append(c.gets, key)
	v, ok := c.data[key]
	if !ok {
		return cty.NilVal, false, nil
	}
	return v, true, nil
}

func (c *spyCache) Put(ctx context.Context, key string, value cty.Value) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		c.data = make(map[string]cty.Value)
	}
	c.puts = append(c.puts, key)
	c.data[key] = value
	return nil
}
