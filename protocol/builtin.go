// Package protocol holds the interface bindings the server core
// bootstraps with (wl_display, wl_registry, wl_callback, §6) plus a
// small demo set exercising every row of the code generator's
// argument-type mapping table (§4.7, §11.1 of the expanded design).
// These files are hand-authored in the layout wlscanner emits (unit
// types, opcode constants, *proto.Interface values, checked enum
// conversions), but with shorter opcode constant names and without
// the generator's typed message structs or RegisterInterfaces.
package protocol

import (
	"github.com/kryptco/wlserver/internal/proto"
	"github.com/kryptco/wlserver/internal/resource"
	"github.com/kryptco/wlserver/internal/wire"
)

// WlDisplay, WlRegistry, WlCallback are unit types carrying their
// interface's identity through the Go type system — the rendering of
// the generator's "unit type I" rule (§4.7) for interfaces with no
// statically-known-interface parent.
type (
	WlDisplay  struct{}
	WlRegistry struct{}
	WlCallback struct{}
)

// Request opcodes, sequential per the interface's XML declaration
// order (§4.7 Opcode assignment).
const (
	DisplayRequestSync        uint16 = 0
	DisplayRequestGetRegistry uint16 = 1

	RegistryRequestBind uint16 = 0
)

// Event opcodes.
const (
	DisplayEventError    uint16 = 0
	DisplayEventDeleteID uint16 = 1

	RegistryEventGlobal       uint16 = 0
	RegistryEventGlobalRemove uint16 = 1

	CallbackEventDone uint16 = 0
)

// WlDisplayInterface is the Protocol Registry entry for wl_display.
var WlDisplayInterface = &proto.Interface{
	Name:    "wl_display",
	Version: 1,
	Requests: []proto.Schema{
		DisplayRequestSync:        {{Type: wire.NewID, Interface: "wl_callback"}},
		DisplayRequestGetRegistry: {{Type: wire.NewID, Interface: "wl_registry"}},
	},
	Events: []proto.Schema{
		DisplayEventError:    {{Type: wire.Object}, {Type: wire.Uint}, {Type: wire.String}},
		DisplayEventDeleteID: {{Type: wire.Uint}},
	},
	DestructorRequest: []bool{false, false},
}

// WlRegistryInterface is the Protocol Registry entry for wl_registry.
// bind's new_id argument carries no statically-known interface: the
// codec reads interface name, version, and id together (§4.1).
var WlRegistryInterface = &proto.Interface{
	Name:    "wl_registry",
	Version: 1,
	Requests: []proto.Schema{
		RegistryRequestBind: {{Type: wire.Uint}, {Type: wire.NewID}},
	},
	Events: []proto.Schema{
		RegistryEventGlobal:       {{Type: wire.Uint}, {Type: wire.String}, {Type: wire.Uint}},
		RegistryEventGlobalRemove: {{Type: wire.Uint}},
	},
	DestructorRequest: []bool{false},
}

// WlCallbackInterface is the Protocol Registry entry for wl_callback.
// It declares no requests; the object is destroyed directly by the
// server after emitting done, never via a client request.
var WlCallbackInterface = &proto.Interface{
	Name:     "wl_callback",
	Version:  1,
	Requests: nil,
	Events: []proto.Schema{
		CallbackEventDone: {{Type: wire.Uint}},
	},
}

// SendCallbackDone emits wl_callback.done(callback_data).
func SendCallbackDone(r resource.Resource[WlCallback], callbackData uint32) error {
	return r.SendEventArgs(CallbackEventDone, WlCallbackInterface.Events[CallbackEventDone],
		[]wire.Arg{{Kind: wire.KindUint, Uint: callbackData}})
}

// SendRegistryGlobal emits wl_registry.global(name, interface, version).
func SendRegistryGlobal(r resource.Resource[WlRegistry], name uint32, interfaceName string, version uint32) error {
	return r.SendEventArgs(RegistryEventGlobal, WlRegistryInterface.Events[RegistryEventGlobal], []wire.Arg{
		{Kind: wire.KindUint, Uint: name},
		{Kind: wire.KindString, Bytes: []byte(interfaceName)},
		{Kind: wire.KindUint, Uint: version},
	})
}

// SendDisplayDeleteID emits wl_display.delete_id(id).
func SendDisplayDeleteID(r resource.Resource[WlDisplay], id uint32) error {
	return r.SendEventArgs(DisplayEventDeleteID, WlDisplayInterface.Events[DisplayEventDeleteID],
		[]wire.Arg{{Kind: wire.KindUint, Uint: id}})
}

// SendDisplayError emits wl_display.error(object_id, code, message).
func SendDisplayError(r resource.Resource[WlDisplay], objectID uint32, code uint32, message string) error {
	return r.SendEventArgs(DisplayEventError, WlDisplayInterface.Events[DisplayEventError], []wire.Arg{
		{Kind: wire.KindObject, Object: objectID},
		{Kind: wire.KindUint, Uint: code},
		{Kind: wire.KindString, Bytes: []byte(message)},
	})
}
