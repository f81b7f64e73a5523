package object

import (
	"testing"

	"github.com/kryptco/wlserver/internal/wire"
)

func TestDispatcherDispatchesToHandler(t *testing.T) {
	var gotOpcode uint16
	d := NewDispatcher(func(state interface{}, objID ID, opcode uint16, args []wire.Arg) error {
		gotOpcode = opcode
		return nil
	}, nil)

	if err := d.Dispatch(nil, 1, 3, nil); err != nil {
		t.Fatal(err)
	}
	if gotOpcode != 3 {
		t.Fatalf("expected opcode 3, got %d", gotOpcode)
	}
}

func TestDispatchDestructorRunsExactlyOnce(t *testing.T) {
	calls := 0
	d := NewDispatcher(nil, func(state interface{}, objID ID) error {
		calls++
		return nil
	})

	if err := d.DispatchDestructor(nil, 1); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Fatalf("expected destructor to run once, ran %d times", calls)
	}

	if err := d.DispatchDestructor(nil, 1); err != ErrAlreadyDestroyed {
		t.Fatalf("expected ErrAlreadyDestroyed on second call, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("destructor must not run again, ran %d times", calls)
	}
}

func TestDispatchAfterDestroyFails(t *testing.T) {
	d := NewDispatcher(func(interface{}, ID, uint16, []wire.Arg) error {
		t.Fatal("handler should not run after destruction")
		return nil
	}, nil)

	if err := d.DispatchDestructor(nil, 1); err != nil {
		t.Fatal(err)
	}
	if err := d.Dispatch(nil, 1, 0, nil); err != ErrAlreadyDestroyed {
		t.Fatalf("expected ErrAlreadyDestroyed, got %v", err)
	}
}

func TestNullDispatcherDiscardsRequests(t *testing.T) {
	d := NullDispatcher("wl_surface")
	if err := d.Dispatch(nil, 1, 0, nil); err != nil {
		t.Fatalf("null dispatcher should not error, got %v", err)
	}
}
