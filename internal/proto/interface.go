// Package proto holds the Protocol Registry (§4.2): the compiled-in,
// read-only description of every interface's request/event argument
// schemas, consumed by the wire codec, the dispatcher, and the code
// generator's emitted bridging code.
package proto

import "github.com/kryptco/wlserver/internal/wire"

// Title is an (name, version) pair used at runtime when a concrete
// interface identity must travel on the wire — dynamic-interface
// new_id arguments and global advertisements.
type Title struct {
	Name    string
	Version uint32
}

// Schema is the ordered argument descriptor list for a single opcode.
type Schema []wire.ArgumentDesc

// FdCount counts the Fd-typed elements of a schema, the value the
// transport's read algorithm needs to know how many ancillary fds a
// given (interface, opcode) request will carry.
func (s Schema) FdCount() int {
	n := 0
	for _, d := range s {
		if d.Type == wire.Fd {
			n++
		}
	}
	return n
}

// Interface is the compile-time record for one protocol interface:
// its name, version, and the parallel request/event schema tables
// indexed by opcode (opcode assignment is declaration order, §4.2).
type Interface struct {
	Name    string
	Version uint32

	Requests []Schema
	Events   []Schema

	// DestructorRequest marks which request opcodes are declared
	// type="destructor" in the source XML (§4.7 glossary).
	DestructorRequest []bool
}

// Title returns the interface's (name, version) pair.
func (i *Interface) Title() Title {
	return Title{Name: i.Name, Version: i.Version}
}

// RequestSchema returns the argument schema for a request opcode.
func (i *Interface) RequestSchema(opcode uint16) (Schema, bool) {
	if int(opcode) >= len(i.Requests) {
		return nil, false
	}
	return i.Requests[opcode], true
}

// EventSchema returns the argument schema for an event opcode.
func (i *Interface) EventSchema(opcode uint16) (Schema, bool) {
	if int(opcode) >= len(i.Events) {
		return nil, false
	}
	return i.Events[opcode], true
}

// IsDestructorRequest reports whether opcode is a declared destructor
// for this interface.
func (i *Interface) IsDestructorRequest(opcode uint16) bool {
	if int(opcode) >= len(i.DestructorRequest) {
		return false
	}
	return i.DestructorRequest[opcode]
}

// Registry is the static, read-only set of every interface compiled
// into the server, looked up by name.
type Registry struct {
	byName map[string]*Interface
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Interface)}
}

// Register adds iface, keyed by its Name. A later Register with the
// same name overwrites the earlier entry (used in tests only; the
// generator emits a single registration per interface).
func (r *Registry) Register(iface *Interface) {
	r.byName[iface.Name] = iface
}

// Lookup finds an interface by name.
func (r *Registry) Lookup(name string) (*Interface, bool) {
	i, ok := r.byName[name]
	return i, ok
}
