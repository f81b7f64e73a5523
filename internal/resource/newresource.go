package resource

import (
	"github.com/kryptco/wlserver/internal/object"
	"github.com/kryptco/wlserver/internal/wire"
)

// RequestHandler is the typed per-interface request handler a caller
// supplies to Register: state is the server's type-erased value,
// res is the now-typed resource, opcode/args are the decoded request.
// The code generator's emitted glue narrows opcode/args to a typed
// request enum before calling further into user code; at this layer
// they remain dynamic so Register stays generator-independent.
type RequestHandler[I any] func(state interface{}, res Resource[I], opcode uint16, args []wire.Arg) error

// DestroyHandler is the typed per-interface destructor handler.
type DestroyHandler[I any] func(state interface{}, res Resource[I]) error

// NewResource is the exactly-one creation token for a new object: it
// is produced either when the server creates a child for a client or
// when the dispatcher parses a new_id argument, and it is consumed
// exactly once by Register, which installs the dispatcher and user
// data and yields a freely-cloneable Resource[I].
type NewResource[I any] struct {
	client        ClientHandle
	id            object.ID
	interfaceName string
	registered    bool
}

// NewNewResource constructs a creation token for id, which must
// already exist in the client's table as an anonymous (or freshly
// inserted) object.
func NewNewResource[I any](client ClientHandle, id object.ID, interfaceName string) NewResource[I] {
	return NewResource[I]{client: client, id: id, interfaceName: interfaceName}
}

// ID returns the object id this token will register.
func (n NewResource[I]) ID() object.ID { return n.id }

// Client returns the owning client handle.
func (n NewResource[I]) Client() ClientHandle { return n.client }

// DowncastNew narrows a NewResource[Untyped] to NewResource[I], used
// when a global's Bind constructor receives an untyped token and must
// recover the concrete interface before registering. It succeeds iff
// the token's interface name equals expectedInterfaceName, and
// returns false otherwise.
func DowncastNew[I any](n NewResource[Untyped], expectedInterfaceName string) (NewResource[I], bool) {
	if n.interfaceName != expectedInterfaceName {
		return NewResource[I]{}, false
	}
	return NewResource[I]{client: n.client, id: n.id, interfaceName: n.interfaceName}, true
}

// Register installs handle/destroy as the object's dispatcher and
// data as its user data box, fixing the object's interface from
// anonymous to I. Panics if called twice on the same token — Register
// is the exactly-one creation contract's enforcement point.
func (n *NewResource[I]) Register(data interface{}, handle RequestHandler[I], destroy DestroyHandler[I]) Resource[I] {
	if n.registered {
		panic("resource: NewResource already registered")
	}
	n.registered = true

	client := n.client
	id := n.id
	dispatcher := object.NewDispatcher(
		func(state interface{}, objID object.ID, opcode uint16, args []wire.Arg) error {
			return handle(state, Resource[I]{client: client, id: objID}, opcode, args)
		},
		func(state interface{}, objID object.ID) error {
			if destroy == nil {
				return nil
			}
			return destroy(state, Resource[I]{client: client, id: objID})
		},
	)
	n.client.Objects().FixInterface(n.id, n.interfaceName, dispatcher)
	if obj, ok := n.client.Objects().Get(n.id); ok {
		obj.Data = data
	}
	return Resource[I]{client: client, id: id}
}
