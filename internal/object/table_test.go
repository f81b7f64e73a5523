package object

import "testing"

func TestTableInsertAndGet(t *testing.T) {
	tbl := NewTable()
	if err := tbl.Insert(1, "wl_surface", NullDispatcher("wl_surface"), nil); err != nil {
		t.Fatal(err)
	}
	o, ok := tbl.Get(1)
	if !ok {
		t.Fatal("expected object 1 to be present")
	}
	if o.InterfaceName != "wl_surface" {
		t.Fatalf("got interface %q", o.InterfaceName)
	}
	if tbl.Len() != 1 {
		t.Fatalf("expected Len() == 1, got %d", tbl.Len())
	}
}

func TestTableInsertDuplicateID(t *testing.T) {
	tbl := NewTable()
	if err := tbl.Insert(1, "wl_surface", nil, nil); err != nil {
		t.Fatal(err)
	}
	if err := tbl.Insert(1, "wl_buffer", nil, nil); err != ErrIDInUse {
		t.Fatalf("expected ErrIDInUse, got %v", err)
	}
}

func TestTableInsertRejectsServerAllocatedID(t *testing.T) {
	tbl := NewTable()
	if err := tbl.Insert(MinServerID, "wl_surface", nil, nil); err != ErrInvalidID {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	if err := tbl.InsertAnonymous(MinServerID); err != ErrInvalidID {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	if tbl.Len() != 0 {
		t.Fatalf("expected nothing to be inserted, Len()=%d", tbl.Len())
	}
}

func TestTableFixInterface(t *testing.T) {
	tbl := NewTable()
	if err := tbl.InsertAnonymous(5); err != nil {
		t.Fatal(err)
	}
	o, _ := tbl.Get(5)
	if !o.Anonymous() {
		t.Fatal("expected newly inserted id to be anonymous")
	}
	if !tbl.FixInterface(5, "wl_callback", NullDispatcher("wl_callback")) {
		t.Fatal("FixInterface on a present id should succeed")
	}
	o, _ = tbl.Get(5)
	if o.Anonymous() {
		t.Fatal("expected object to no longer be anonymous")
	}
	if tbl.FixInterface(6, "wl_callback", nil) {
		t.Fatal("FixInterface on an absent id should fail")
	}
}

func TestTableDestroyPendingSweep(t *testing.T) {
	tbl := NewTable()
	tbl.Insert(1, "wl_surface", nil, nil)
	tbl.Insert(2, "wl_buffer", nil, nil)

	if _, ok := tbl.FindFirstDestroyPending(); ok {
		t.Fatal("expected no destroy-pending objects yet")
	}
	if !tbl.MarkDestroyPending(1) {
		t.Fatal("MarkDestroyPending(1) should succeed")
	}

	o, ok := tbl.FindFirstDestroyPending()
	if !ok || o.ID != 1 {
		t.Fatalf("expected to sweep object 1, got %+v ok=%v", o, ok)
	}
	if tbl.Len() != 1 {
		t.Fatalf("sweep should remove the object from the table, Len()=%d", tbl.Len())
	}
	if _, ok := tbl.FindFirstDestroyPending(); ok {
		t.Fatal("expected no further destroy-pending objects")
	}
}

func TestTableDrainAll(t *testing.T) {
	tbl := NewTable()
	tbl.Insert(1, "wl_surface", nil, nil)
	tbl.Insert(2, "wl_buffer", nil, nil)

	drained := tbl.DrainAll()
	if len(drained) != 2 {
		t.Fatalf("expected 2 drained objects, got %d", len(drained))
	}
	if tbl.Len() != 0 {
		t.Fatalf("expected empty table after drain, Len()=%d", tbl.Len())
	}
}

func TestIDAllocationRanges(t *testing.T) {
	if !ID(1).IsClientAllocated() {
		t.Error("1 should be client-allocated")
	}
	if ID(1).IsServerAllocated() {
		t.Error("1 should not be server-allocated")
	}
	if !ID(0xFF000001).IsServerAllocated() {
		t.Error("0xFF000001 should be server-allocated")
	}
	if ID(0xFF000001).IsClientAllocated() {
		t.Error("0xFF000001 should not be client-allocated")
	}
}
