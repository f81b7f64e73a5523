package protocol

import (
	"testing"

	"github.com/kryptco/wlserver/internal/proto"
)

func TestWlShmFormatFromUint32(t *testing.T) {
	v, err := WlShmFormatFromUint32(1)
	if err != nil || v != WlShmFormatXrgb8888 {
		t.Fatalf("got %v, %v", v, err)
	}
	if _, err := WlShmFormatFromUint32(99); err != ErrInvalidEnumValue {
		t.Fatalf("expected ErrInvalidEnumValue, got %v", err)
	}
}

func TestWlSeatCapabilityFromBits(t *testing.T) {
	v, err := WlSeatCapabilityFromBits(uint32(WlSeatCapabilityPointer | WlSeatCapabilityTouch))
	if err != nil {
		t.Fatal(err)
	}
	if v&WlSeatCapabilityPointer == 0 || v&WlSeatCapabilityTouch == 0 {
		t.Fatalf("expected pointer and touch bits set, got %v", v)
	}
	if _, err := WlSeatCapabilityFromBits(1 << 31); err != ErrInvalidEnumValue {
		t.Fatalf("expected ErrInvalidEnumValue for an undeclared bit, got %v", err)
	}
}

func TestRegisterDemoInterfaces(t *testing.T) {
	reg := proto.NewRegistry()
	RegisterDemoInterfaces(reg)

	for _, name := range []string{
		"wl_compositor", "wl_surface", "wl_shm", "wl_shm_pool",
		"wl_buffer", "wl_seat", "wl_pointer", "wl_keyboard", "wl_output",
	} {
		if _, ok := reg.Lookup(name); !ok {
			t.Errorf("expected %s to be registered", name)
		}
	}
}

func TestWlSurfaceDestructorRequestFlags(t *testing.T) {
	if WlSurfaceInterface.IsDestructorRequest(SurfaceRequestDestroy) != true {
		t.Fatal("expected surface.destroy to be the destructor request")
	}
	if WlSurfaceInterface.IsDestructorRequest(SurfaceRequestCommit) != false {
		t.Fatal("expected surface.commit to not be a destructor request")
	}
}
