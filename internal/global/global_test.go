package global

import (
	"testing"

	"github.com/kryptco/wlserver/internal/resource"
)

func TestManagerAddAssignsMonotonicNames(t *testing.T) {
	m := NewManager()
	g1 := m.Add("wl_compositor", 4, func(resource.NewResource[resource.Untyped]) {})
	g2 := m.Add("wl_shm", 1, func(resource.NewResource[resource.Untyped]) {})

	if g1.Name != 1 || g2.Name != 2 {
		t.Fatalf("expected names 1, 2, got %d, %d", g1.Name, g2.Name)
	}
	if len(m.All()) != 2 {
		t.Fatalf("expected 2 registered globals, got %d", len(m.All()))
	}
}

func TestNextNamePanicsOnOverflow(t *testing.T) {
	m := &Manager{nextName: ^uint32(0)}
	defer func() {
		if recover() == nil {
			t.Fatal("expected NextName to panic on overflow")
		}
	}()
	m.NextName()
}

func TestBindByNameInvokesConstructor(t *testing.T) {
	m := NewManager()
	var bound bool
	g := m.Add("wl_compositor", 4, func(resource.NewResource[resource.Untyped]) {
		bound = true
	})

	if err := m.BindByName(g.Name, resource.NewResource[resource.Untyped]{}); err != nil {
		t.Fatal(err)
	}
	if !bound {
		t.Fatal("expected the bind constructor to run")
	}
}

func TestBindByNameNotFound(t *testing.T) {
	m := NewManager()
	if err := m.BindByName(999, resource.NewResource[resource.Untyped]{}); err != ErrGlobalNotFound {
		t.Fatalf("expected ErrGlobalNotFound, got %v", err)
	}
}
