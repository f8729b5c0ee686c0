package graph

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/zclconf/go-cty/cty"

	"github.com/confgraph/confgraph/resolver"
)

func TestGraph_AddEntity(t *testing.T) {
	g := New(nil)

	if _, err := g.AddEntity("app"); err != nil {
		t.Fatalf("AddEntity() err = %v", err)
	}
	if g.Entity("app") == nil {
		t.Fatalf("Entity() = nil")
	}

	tests := []struct {
		name   string
		entity string
	}{
		{"Empty", ""},
		{"Dotted", "a.b"},
		{"Duplicate", "app"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := g.AddEntity(tt.entity); err == nil {
				t.Errorf("Want error")
			}
		})
	}
}

func TestEntity_AddNode(t *testing.T) {
	g := New(nil)
	e, err := g.AddEntity("app")
	if err != nil {
		t.Fatalf("AddEntity() err = %v", err)
	}

	n, err := e.AddNode("db.host", resolver.StaticString("host", "localhost"))
	if err != nil {
		t.Fatalf("AddNode() err = %v", err)
	}
	if got, want := n.FullPath(), "app.db.host"; got != want {
		t.Errorf("FullPath() = %q, want %q", got, want)
	}
	if got, want := n.Resolver().FullPath(), "app.db.host"; got != want {
		t.Errorf("resolver FullPath() = %q, want %q", got, want)
	}

	if _, err := e.AddNode("db.host", resolver.StaticString("host", "x")); err == nil {
		t.Errorf("Want error for duplicate path")
	}
	if _, err := e.AddNode("", resolver.StaticString("host", "x")); err == nil {
		t.Errorf("Want error for empty path")
	}
}

func TestGraph_Item(t *testing.T) {
	g := New(nil)
	e, _ := g.AddEntity("app")
	if _, err := e.AddNode("db.host", resolver.StaticString("host", "localhost")); err != nil {
		t.Fatalf("AddNode() err = %v", err)
	}

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"Exists", "app.db.host", true},
		{"BranchChainIgnored", "app.db.host#a/b", true},
		{"UnknownNode", "app.db.port", false},
		{"UnknownEntity", "other.db.host", false},
		{"NoEntity", "app", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := g.Item(tt.path)
			if (got != nil) != tt.want {
				t.Errorf("Item(%q) = %v, want exists %t", tt.path, got, tt.want)
			}
		})
	}
}

func TestGraph_Nodes_sorted(t *testing.T) {
	g := New(nil)
	a, _ := g.AddEntity("a")
	b, _ := g.AddEntity("b")
	if _, err := b.AddNode("x", resolver.StaticString("x", "1")); err != nil {
		t.Fatal(err)
	}
	if _, err := a.AddNode("z", resolver.StaticString("z", "2")); err != nil {
		t.Fatal(err)
	}
	if _, err := a.AddNode("y", resolver.StaticString("y", "3")); err != nil {
		t.Fatal(err)
	}

	var got []string
	for _, n := range g.Nodes() {
		got = append(got, n.FullPath())
	}
	want := []string{"a.y", "a.z", "b.x"}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("Diff (-got +want)\n%s", diff)
	}
}

func TestGraph_Process(t *testing.T) {
	g := New(nil)
	e, _ := g.AddEntity("app")

	if _, err := e.AddNode("env", resolver.StaticString("env", "prod")); err != nil {
		t.Fatal(err)
	}

	deferredRan := false
	r := mustResolver(t, resolver.Definition{
		Label: resolver.Fixed("val"),
		Process: func(rc *resolver.Context) ([]resolver.DeferredCheck, error) {
			if err := rc.Declare("env"); err != nil {
				return nil, err
			}
			return []resolver.DeferredCheck{func() error {
				deferredRan = true
				return nil
			}}, nil
		},
		Resolve: func(ctx context.Context, rc *resolver.Context) (cty.Value, error) {
			return rc.Get("env")
		},
	})
	if _, err := e.AddNode("val", r); err != nil {
		t.Fatal(err)
	}

	if err := g.Process(nil); err != nil {
		t.Fatalf("Process() err = %v", err)
	}
	if !deferredRan {
		t.Errorf("deferred check did not run")
	}
	want := resolver.DependencyMap{"app.env": resolver.DependencySchema}
	if diff := cmp.Diff(r.Dependencies(resolver.DepsSelf), want); diff != "" {
		t.Errorf("Diff (-got +want)\n%s", diff)
	}
}

func TestGraph_Process_structuralError(t *testing.T) {
	g := New(nil)
	e, _ := g.AddEntity("app")

	r := mustResolver(t, resolver.Definition{
		Label: resolver.Fixed("val"),
		Process: func(rc *resolver.Context) ([]resolver.DeferredCheck, error) {
			return nil, rc.Declare("missing")
		},
		Resolve: func(ctx context.Context, rc *resolver.Context) (cty.Value, error) {
			return cty.True, nil
		},
	})
	n, err := e.AddNode("val", r)
	if err != nil {
		t.Fatal(err)
	}

	if err := g.Process(nil); err == nil {
		t.Fatalf("Want error")
	}
	if len(n.SchemaErrors()) != 1 {
		t.Errorf("schema errors = %d, want 1", len(n.SchemaErrors()))
	}
}

func TestNode_IsValid(t *testing.T) {
	g := New(nil)
	e, _ := g.AddEntity("app")

	n, err := e.AddNode("env", resolver.StaticString("env", "staging"))
	if err != nil {
		t.Fatal(err)
	}
	n.SetRules("oneof=dev prod")

	ctx := context.Background()
	r := n.Resolver()
	if err := r.Resolve(ctx, resolver.NewResolverContext(r, nil)); err != nil {
		t.Fatalf("Resolve() err = %v", err)
	}

	if n.IsValid() {
		t.Fatalf("IsValid() = true for a value outside the allowed set")
	}
	if _, ok := n.Invalid().(*ValidationError); !ok {
		t.Errorf("Invalid() = %T, want *ValidationError", n.Invalid())
	}
}

func TestNode_IsValid_unresolved(t *testing.T) {
	g := New(nil)
	e, _ := g.AddEntity("app")
	n, err := e.AddNode("env", resolver.StaticString("env", "prod"))
	if err != nil {
		t.Fatal(err)
	}

	if n.IsValid() {
		t.Errorf("IsValid() = true before resolution")
	}
}

func TestNode_coercion(t *testing.T) {
	g := New(nil)
	e, _ := g.AddEntity("app")

	n, err := e.AddNode("port", resolver.StaticString("port", "5432"))
	if err != nil {
		t.Fatal(err)
	}
	n.SetCoerce(func(v cty.Value) (cty.Value, error) {
		if v.Type() != cty.String {
			return v, nil
		}
		return cty.ParseNumberVal(v.AsString())
	})

	ctx := context.Background()
	r := n.Resolver()
	if err := r.Resolve(ctx, resolver.NewResolverContext(r, nil)); err != nil {
		t.Fatalf("Resolve() err = %v", err)
	}

	if !n.IsValid() {
		t.Fatalf("IsValid() = false: %v", n.Invalid())
	}
	if !n.Value().RawEquals(cty.NumberIntVal(5432)) {
		t.Errorf("Value() = %#v, want the coerced number", n.Value())
	}
}

func TestNode_coercionError(t *testing.T) {
	g := New(nil)
	e, _ := g.AddEntity("app")

	n, err := e.AddNode("port", resolver.StaticString("port", "not-a-number"))
	if err != nil {
		t.Fatal(err)
	}
	n.SetCoerce(func(v cty.Value) (cty.Value, error) {
		return cty.NilVal, errors.New("not a number")
	})

	ctx := context.Background()
	r := n.Resolver()
	if err := r.Resolve(ctx, resolver.NewResolverContext(r, nil)); err != nil {
		t.Fatalf("Resolve() err = %v", err)
	}

	if n.IsValid() {
		t.Fatalf("IsValid() = true")
	}
	if _, ok := n.Invalid().(*CoercionError); !ok {
		t.Errorf("Invalid() = %T, want *CoercionError", n.Invalid())
	}
}

func mustResolver(t *testing.T, def resolver.Definition) *resolver.Resolver {
	t.Helper()
	r, err := resolver.New(def)
	if err != nil {
		t.Fatalf("New() err = %v", err)
	}
	return r
}
