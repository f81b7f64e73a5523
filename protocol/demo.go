package protocol

import (
	"errors"

	"github.com/kryptco/wlserver/internal/proto"
	"github.com/kryptco/wlserver/internal/wire"
)

// ErrInvalidEnumValue is returned by the Xxx FromUint32/FromBits
// conversions below when the wire carries a value the enum/bitfield
// declaration does not cover (§4.7: "returns InvalidEnumValue on
// unknown bits/inputs").
var ErrInvalidEnumValue = errors.New("protocol: invalid enum value")

// Demo interface unit types, carrying their interface identity
// through the type system the way the built-ins do.
type (
	WlCompositor struct{}
	WlSurface    struct{}
	WlShm        struct{}
	WlShmPool    struct{}
	WlBuffer     struct{}
	WlSeat       struct{}
	WlPointer    struct{}
	WlKeyboard   struct{}
	WlOutput     struct{}
)

// WlShmFormat is a plain enum (§4.7 rule (a)): a closed set of u32
// values with a checked conversion.
type WlShmFormat uint32

const (
	WlShmFormatArgb8888 WlShmFormat = 0
	WlShmFormatXrgb8888 WlShmFormat = 1
)

// WlShmFormatFromUint32 converts a raw wire value, failing on a value
// outside the declared set.
func WlShmFormatFromUint32(v uint32) (WlShmFormat, error) {
	switch WlShmFormat(v) {
	case WlShmFormatArgb8888, WlShmFormatXrgb8888:
		return WlShmFormat(v), nil
	default:
		return 0, ErrInvalidEnumValue
	}
}

// WlSeatCapability is a bitflag enum (§4.7 rule (b), XML bitfield="true").
type WlSeatCapability uint32

const (
	WlSeatCapabilityPointer  WlSeatCapability = 1 << 0
	WlSeatCapabilityKeyboard WlSeatCapability = 1 << 1
	WlSeatCapabilityTouch    WlSeatCapability = 1 << 2
)

const wlSeatCapabilityAllBits = uint32(WlSeatCapabilityPointer | WlSeatCapabilityKeyboard | WlSeatCapabilityTouch)

// WlSeatCapabilityFromBits converts a raw wire bitmask, failing if any
// bit outside the declared set is present.
func WlSeatCapabilityFromBits(v uint32) (WlSeatCapability, error) {
	if v&^wlSeatCapabilityAllBits != 0 {
		return 0, ErrInvalidEnumValue
	}
	return WlSeatCapability(v), nil
}

// Request/event opcodes for the demo set.
const (
	CompositorRequestCreateSurface uint16 = 0

	SurfaceRequestAttach  uint16 = 0
	SurfaceRequestDamage  uint16 = 1
	SurfaceRequestFrame   uint16 = 2
	SurfaceRequestCommit  uint16 = 3
	SurfaceRequestDestroy uint16 = 4

	ShmRequestCreatePool uint16 = 0
	ShmEventFormat       uint16 = 0

	ShmPoolRequestCreateBuffer uint16 = 0
	ShmPoolRequestDestroy      uint16 = 1
	ShmPoolRequestResize       uint16 = 2

	BufferRequestDestroy uint16 = 0
	BufferEventRelease   uint16 = 0

	SeatRequestGetPointer  uint16 = 0
	SeatRequestGetKeyboard uint16 = 1
	SeatRequestGetTouch    uint16 = 2
	SeatEventCapabilities  uint16 = 0

	PointerEventMotion uint16 = 0

	KeyboardEventKeymap uint16 = 0
	KeyboardEventEnter  uint16 = 1
	KeyboardEventLeave  uint16 = 2
	KeyboardEventKey    uint16 = 3

	OutputEventGeometry uint16 = 0
	OutputEventMode     uint16 = 1
	OutputEventDone     uint16 = 2
)

// WlCompositorInterface — exercises new_id with a statically-known
// interface as the sole request argument.
var WlCompositorInterface = &proto.Interface{
	Name:    "wl_compositor",
	Version: 4,
	Requests: []proto.Schema{
		CompositorRequestCreateSurface: {{Type: wire.NewID, Interface: "wl_surface"}},
	},
}

// WlSurfaceInterface — exercises a nullable object, plain ints, a
// destructor request, and a zero-argument request.
var WlSurfaceInterface = &proto.Interface{
	Name:    "wl_surface",
	Version: 4,
	Requests: []proto.Schema{
		SurfaceRequestAttach:  {{Type: wire.Object, Interface: "wl_buffer", Nullable: true}, {Type: wire.Int}, {Type: wire.Int}},
		SurfaceRequestDamage:  {{Type: wire.Int}, {Type: wire.Int}, {Type: wire.Int}, {Type: wire.Int}},
		SurfaceRequestFrame:   {{Type: wire.NewID, Interface: "wl_callback"}},
		SurfaceRequestCommit:  {},
		SurfaceRequestDestroy: {},
	},
	DestructorRequest: []bool{false, false, false, false, true},
}

// WlShmInterface — exercises fd (create_pool) and a plain-enum event.
var WlShmInterface = &proto.Interface{
	Name:    "wl_shm",
	Version: 1,
	Requests: []proto.Schema{
		ShmRequestCreatePool: {{Type: wire.NewID, Interface: "wl_shm_pool"}, {Type: wire.Fd}, {Type: wire.Int}},
	},
	Events: []proto.Schema{
		ShmEventFormat: {{Type: wire.Uint}},
	},
}

// WlShmPoolInterface — exercises multiple plain ints plus an
// enum-valued uint in one request.
var WlShmPoolInterface = &proto.Interface{
	Name:    "wl_shm_pool",
	Version: 1,
	Requests: []proto.Schema{
		ShmPoolRequestCreateBuffer: {{Type: wire.NewID, Interface: "wl_buffer"}, {Type: wire.Int}, {Type: wire.Int}, {Type: wire.Int}, {Type: wire.Int}, {Type: wire.Uint}},
		ShmPoolRequestDestroy:      {},
		ShmPoolRequestResize:       {{Type: wire.Int}},
	},
	DestructorRequest: []bool{false, true, false},
}

// WlBufferInterface — minimal destructor + event pair.
var WlBufferInterface = &proto.Interface{
	Name:    "wl_buffer",
	Version: 1,
	Requests: []proto.Schema{
		BufferRequestDestroy: {},
	},
	Events: []proto.Schema{
		BufferEventRelease: {},
	},
	DestructorRequest: []bool{true},
}

// WlSeatInterface — exercises new_id fan-out (one parent object
// producing children of three different interfaces) and a bitflag
// event.
var WlSeatInterface = &proto.Interface{
	Name:    "wl_seat",
	Version: 7,
	Requests: []proto.Schema{
		SeatRequestGetPointer:  {{Type: wire.NewID, Interface: "wl_pointer"}},
		SeatRequestGetKeyboard: {{Type: wire.NewID, Interface: "wl_keyboard"}},
		SeatRequestGetTouch:    {{Type: wire.NewID, Interface: "wl_touch"}},
	},
	Events: []proto.Schema{
		SeatEventCapabilities: {{Type: wire.Uint}},
	},
}

// WlPointerInterface — exercises Fixed24_8 arguments.
var WlPointerInterface = &proto.Interface{
	Name:    "wl_pointer",
	Version: 7,
	Events: []proto.Schema{
		PointerEventMotion: {{Type: wire.Uint}, {Type: wire.Fixed24_8}, {Type: wire.Fixed24_8}},
	},
}

// WlKeyboardInterface — exercises fd (keymap), array (enter's
// currently-pressed-keys vector), and a plain object reference.
var WlKeyboardInterface = &proto.Interface{
	Name:    "wl_keyboard",
	Version: 7,
	Events: []proto.Schema{
		KeyboardEventKeymap: {{Type: wire.Uint}, {Type: wire.Fd}, {Type: wire.Uint}},
		KeyboardEventEnter:  {{Type: wire.Uint}, {Type: wire.Object, Interface: "wl_surface"}, {Type: wire.Array}},
		KeyboardEventLeave:  {{Type: wire.Uint}, {Type: wire.Object, Interface: "wl_surface"}},
		KeyboardEventKey:    {{Type: wire.Uint}, {Type: wire.Uint}, {Type: wire.Uint}, {Type: wire.Uint}},
	},
}

// WlOutputInterface — exercises multi-argument events mixing string,
// int, and enum-typed fields, with no requests at all.
var WlOutputInterface = &proto.Interface{
	Name:    "wl_output",
	Version: 4,
	Events: []proto.Schema{
		OutputEventGeometry: {
			{Type: wire.Int}, {Type: wire.Int},
			{Type: wire.Int}, {Type: wire.Int},
			{Type: wire.Int},
			{Type: wire.String}, {Type: wire.String},
			{Type: wire.Int},
		},
		OutputEventMode: {{Type: wire.Uint}, {Type: wire.Int}, {Type: wire.Int}, {Type: wire.Int}},
		OutputEventDone: {},
	},
}

// RegisterDemoInterfaces adds every demo-set interface to reg, for
// servers that want the argument-type-mapping demo set available for
// introspection/testing without wiring up global advertisement.
func RegisterDemoInterfaces(reg *proto.Registry) {
	for _, iface := range []*proto.Interface{
		WlCompositorInterface, WlSurfaceInterface,
		WlShmInterface, WlShmPoolInterface, WlBufferInterface,
		WlSeatInterface, WlPointerInterface, WlKeyboardInterface,
		WlOutputInterface,
	} {
		reg.Register(iface)
	}
}
