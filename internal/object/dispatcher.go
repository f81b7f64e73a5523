package object

import (
	"log"

	"github.com/kryptco/wlserver/internal/wire"
)

// HandleFunc is the type-erased request entry point installed behind
// a Dispatcher: given the server's state, the target object id, the
// opcode, and the raw decoded arguments, it performs the downcast to
// the concrete resource/request types and invokes the user's handler.
type HandleFunc func(state interface{}, objID ID, opcode uint16, args []wire.Arg) error

// DestroyFunc is the type-erased destructor entry point.
type DestroyFunc func(state interface{}, objID ID) error

// Dispatcher is the type-erased bundle an Object carries (§4.5): a
// boxed pair of closures bridging the dynamic codec to a typed
// handler, plus the "destroyed" flag that makes destructor dispatch
// idempotent from the caller's perspective (AlreadyDestroyed on a
// second attempt).
type Dispatcher struct {
	handle    HandleFunc
	destroy   DestroyFunc
	destroyed bool
}

// NewDispatcher builds a Dispatcher from a request handler and an
// optional destructor handler (nil if the interface declares none).
func NewDispatcher(handle HandleFunc, destroy DestroyFunc) *Dispatcher {
	return &Dispatcher{handle: handle, destroy: destroy}
}

// NullDispatcher returns a Dispatcher that logs and discards every
// request routed to it. The server installs one on objects it creates
// without a handler (the wl_callback of wl_display.sync). Objects
// added by Table.InsertAnonymous carry no dispatcher at all until
// NewResource.Register installs one.
func NullDispatcher(interfaceName string) *Dispatcher {
	return &Dispatcher{
		handle: func(_ interface{}, objID ID, opcode uint16, _ []wire.Arg) error {
			log.Printf("object: discarding request opcode %d on unimplemented object %d (%s)", opcode, objID, interfaceName)
			return nil
		},
	}
}

// Dispatch routes one request to the installed handler.
func (d *Dispatcher) Dispatch(state interface{}, objID ID, opcode uint16, args []wire.Arg) error {
	if d.destroyed {
		return ErrAlreadyDestroyed
	}
	return d.handle(state, objID, opcode, args)
}

// DispatchDestructor runs the destructor exactly once; subsequent
// calls fail with ErrAlreadyDestroyed.
func (d *Dispatcher) DispatchDestructor(state interface{}, objID ID) error {
	if d.destroyed {
		return ErrAlreadyDestroyed
	}
	d.destroyed = true
	if d.destroy == nil {
		return nil
	}
	return d.destroy(state, objID)
}
