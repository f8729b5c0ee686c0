package resolver

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"github.com/zclconf/go-cty/cty"

	"github.com/confgraph/confgraph/suggest"
)

// A Node is the capability surface the engine needs from a configuration
// node in the owning graph.
type Node interface {
	// Path returns the node's path within its entity.
	Path() string

	// FullPath returns the node's path qualified with its entity.
	FullPath() string

	// IsResolved reports whether the node's value is available.
	IsResolved() bool

	// IsValid reports whether the resolved value passed validation.
	// Only meaningful once the node is resolved.
	IsValid() bool

	// Value returns the resolved value.
	Value() cty.Value

	// Entity returns the entity the node belongs to.
	Entity() Entity

	// AddSchemaError appends a structural error to the node's error list.
	AddSchemaError(err error)
}

// An Entity groups the configuration nodes of one entity.
type Entity interface {
	// Name returns the entity name.
	Name() string

	// Node returns the node at the given path within the entity, or nil
	// if no such node exists.
	Node(path string) Node

	// Paths returns the paths of all nodes in the entity.
	Paths() []string

	// Root returns the graph root the entity belongs to.
	Root() Root
}

// A Root provides graph-wide node lookup.
type Root interface {
	// Item returns the node at the given full path, or nil if no such
	// node exists.
	Item(fullPath string) Node
}

// A Cache stores resolved values between attempts. Implementations must
// support concurrent access to independent keys. A cache that always
// misses and discards every write is a valid implementation; resolvers
// must not assume persistence.
type Cache interface {
	// Get returns the cached value for key. The second return value is
	// false on a miss.
	Get(ctx context.Context, key string) (cty.Value, bool, error)

	// Put stores a value under key.
	Put(ctx context.Context, key string, value cty.Value) error
}

// A Context is the ephemeral handle for one resolution attempt. It
// provides dependency lookup and cache access. A context is bound to a
// node and, in the normal case, to the node's resolver; it must not be
// reused across attempts. Nested branch resolution forks a child
// context.
type Context struct {
	node     Node
	resolver *Resolver
	cache    Cache
	depends  map[string]struct{}
}

// NewContext creates a context bound directly to a node, without a
// resolver. Used for introspection outside a resolution attempt.
func NewContext(node Node, cache Cache) *Context {
	return &Context{
		node:    node,
		cache:   cache,
		depends: make(map[string]struct{}),
	}
}

// NewResolverContext creates a context for one attempt of the given
// resolver. The resolver must be bound to its node.
func NewResolverContext(r *Resolver, cache Cache) *Context {
	if r.node == nil {
		panic("resolver is not bound to a node")
	}
	return &Context{
		node:     r.node,
		resolver: r,
		cache:    cache,
		depends:  make(map[string]struct{}),
	}
}

// forResolver forks a fresh context for a nested resolver of the same
// node. The child accumulates its own dependency set.
func (c *Context) forResolver(r *Resolver) *Context {
	return &Context{
		node:     c.node,
		resolver: r,
		cache:    c.cache,
		depends:  make(map[string]struct{}),
	}
}

// Node returns the bound node.
func (c *Context) Node() Node { return c.node }

// Resolver returns the bound resolver. Nil when the context is bound
// directly to a node.
func (c *Context) Resolver() *Resolver { return c.resolver }

// DependsOn returns the full paths recorded on this context, in lexical
// order.
func (c *Context) DependsOn() []string {
	out := make([]string, 0, len(c.depends))
	for p := range c.depends {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// path identifies the context in errors.
func (c *Context) path() string {
	if c.resolver != nil {
		return c.resolver.FullPath()
	}
	return c.node.FullPath()
}

// lookup finds a node within the bound entity. A miss produces a schema
// error carrying a suggestion for a close match.
func (c *Context) lookup(path string) (Node, error) {
	entity := c.node.Entity()
	node := entity.Node(path)
	if node == nil {
		return nil, &SchemaError{
			Path:       path,
			Reason:     "no such node in entity " + entity.Name(),
			Suggestion: suggest.Path(path, entity.Paths()),
		}
	}
	return node, nil
}

// record adds the target to the context's dependency set and, when a
// resolver is bound, merges it into the resolver's dependency map.
func (c *Context) record(target Node, kind DependencyKind) {
	full := target.FullPath()
	c.depends[full] = struct{}{}
	if c.resolver != nil {
		c.resolver.addDependency(full, kind)
	}
}

// Get returns the resolved value of another node in the same entity,
// recording a resolution-kind dependency on it.
//
// If the target is not resolved yet, Get fails with the retryable
// not-resolved error; a scheduler uses that signal to defer and retry
// the resolver later. If the target is resolved but invalid, Get fails
// with the non-retryable invalid-dependency error.
func (c *Context) Get(path string) (cty.Value, error) {
	node, err := c.lookup(path)
	if err != nil {
		return cty.NilVal, err
	}
	c.record(node, DependencyResolution)
	if !node.IsResolved() {
		return cty.NilVal, NotResolvedError(c.path(), node.FullPath())
	}
	if !node.IsValid() {
		return cty.NilVal, InvalidDependencyError(c.path(), node.FullPath())
	}
	return node.Value(), nil
}

// Declare registers a schema-kind dependency on another node in the same
// entity without reading its value. Used by resolvers that front-load
// their dependencies during the structural pass.
func (c *Context) Declare(path string) error {
	node, err := c.lookup(path)
	if err != nil {
		return err
	}
	c.record(node, DependencySchema)
	return nil
}

// DeclaredDependencyValues returns the resolved value for every path in
// the bound resolver's dependency map, both schema and resolution kind,
// applying the same not-resolved and invalid checks as Get against the
// graph root.
func (c *Context) DeclaredDependencyValues() (map[string]cty.Value, error) {
	if c.resolver == nil {
		return nil, errors.New("context is not bound to a resolver")
	}
	root := c.node.Entity().Root()
	deps := c.resolver.Dependencies(DepsSelf)
	out := make(map[string]cty.Value, len(deps))
	for _, full := range deps.Paths() {
		item := root.Item(full)
		if item == nil {
			return nil, &SchemaError{Path: full, Reason: "no such node in graph"}
		}
		if !item.IsResolved() {
			return nil, NotResolvedError(c.path(), full)
		}
		if !item.IsValid() {
			return nil, InvalidDependencyError(c.path(), full)
		}
		out[full] = item.Value()
	}
	return out, nil
}

// cacheStorageKey scopes a cache key to the resolver's full path, so two
// resolvers using the same key do not collide.
func (c *Context) cacheStorageKey(key string) string {
	return key + "@" + c.path()
}

// CacheGet reads the cached value for key. A nil cache always misses.
func (c *Context) CacheGet(ctx context.Context, key string) (cty.Value, bool, error) {
	if c.cache == nil {
		return cty.NilVal, false, nil
	}
	return c.cache.Get(ctx, c.cacheStorageKey(key))
}

// CachePut stores a value under key. A nil cache discards the write.
// Null values are never stored.
func (c *Context) CachePut(ctx context.Context, key string, value cty.Value) error {
	if c.cache == nil {
		return nil
	}
	if !cacheable(value) {
		return nil
	}
	return c.cache.Put(ctx, c.cacheStorageKey(key), value)
}

// CacheGetOrSet returns the cached value for key, computing and storing
// it with fn on a miss.
func (c *Context) CacheGetOrSet(ctx context.Context, key string, fn func() (cty.Value, error)) (cty.Value, error) {
	v, ok, err := c.CacheGet(ctx, key)
	if err != nil {
		return cty.NilVal, err
	}
	if ok {
		return v, nil
	}
	v, err = fn()
	if err != nil {
		return cty.NilVal, err
	}
	if err := c.CachePut(ctx, key, v); err != nil {
		return cty.NilVal, err
	}
	return v, nil
}
