package cache

import (
	"context"
	"testing"

	"github.com/zclconf/go-cty/cty"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := &Memory{}

	if _, ok, err := m.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("Get() = ok %t, err %v, want a miss", ok, err)
	}

	want := cty.ObjectVal(map[string]cty.Value{
		"host": cty.StringVal("localhost"),
		"port": cty.NumberIntVal(5432),
	})
	if err := m.Put(ctx, "db", want); err != nil {
		t.Fatalf("Put() err = %v", err)
	}

	got, ok, err := m.Get(ctx, "db")
	if err != nil {
		t.Fatalf("Get() err = %v", err)
	}
	if !ok {
		t.Fatalf("Get() ok = false, want hit")
	}
	if !got.RawEquals(want) {
		t.Errorf("Get() = %#v, want %#v", got, want)
	}

	if err := m.Put(ctx, "db", cty.StringVal("replaced")); err != nil {
		t.Fatalf("Put() err = %v", err)
	}
	got, _, _ = m.Get(ctx, "db")
	if !got.RawEquals(cty.StringVal("replaced")) {
		t.Errorf("Get() = %#v after overwrite", got)
	}

	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}
}
