// Package resource implements Resource Handles (§4.4): weak, typed
// references to objects living in a client's object Table, the site
// of send_event, downcasting, and destruction marking.
package resource

import (
	"errors"
	"fmt"

	"github.com/kryptco/wlserver/internal/object"
	"github.com/kryptco/wlserver/internal/wire"
)

var (
	// ErrClientMissing is returned by SendEvent when the owning
	// client has already disconnected.
	ErrClientMissing = errors.New("resource: client missing")
	// ErrSenderMissing is returned by SendEvent when the object no
	// longer exists in its client's table.
	ErrSenderMissing = errors.New("resource: sender missing")
	// ErrTypeMismatch names a failed interface downcast. Downcast and
	// DowncastAnonymous report that case with a false result; no
	// function in this package returns ErrTypeMismatch.
	ErrTypeMismatch = errors.New("resource: type mismatch")
	// ErrDataTypeMismatch is returned by GetDataAs[T] when the object's
	// stored data is not of the requested type.
	ErrDataTypeMismatch = errors.New("resource: data type mismatch")
)

// Untyped marks a Resource whose interface is known but whose user
// data type is not inspected.
type Untyped struct{}

// Anonymous marks a Resource whose interface has not yet been fixed;
// used only during parsing of a dynamic-interface new_id.
type Anonymous struct{}

// ClientHandle is the narrow view of a Client that the resource
// package needs: its object table, its transport, and its liveness.
// The server package's Client type implements this; resource does not
// import server, avoiding an import cycle.
type ClientHandle interface {
	Objects() *object.Table
	Send(id object.ID, opcode uint16, payload []byte, fds []int) error
	Alive() bool
}

// Resource is a weak, typed reference (client, object) plus a phantom
// interface tag carried only at the type level via I. It never owns
// the referenced object; the Table does. Accessors never fail — they
// return a value that may itself be dead; IsAlive/GetData report
// liveness explicitly.
type Resource[I any] struct {
	client ClientHandle
	id     object.ID
}

// New wraps (client, id) as a Resource[I]. Used by the server when it
// already knows an object's interface matches I (e.g. the built-in
// wl_display at id 1).
func New[I any](client ClientHandle, id object.ID) Resource[I] {
	return Resource[I]{client: client, id: id}
}

// Client returns the owning client handle.
func (r Resource[I]) Client() ClientHandle { return r.client }

// ID returns the referenced object id.
func (r Resource[I]) ID() object.ID { return r.id }

// IsAlive reports whether both the client and the referenced object
// still exist.
func (r Resource[I]) IsAlive() bool {
	if r.client == nil || !r.client.Alive() {
		return false
	}
	_, ok := r.client.Objects().Get(r.id)
	return ok
}

// Destroy sets the destroy-pending flag; the server's sweep phase
// runs the destructor and removes the object before the next inbound
// dispatch (§4.6). Idempotent: calling it twice has the same effect
// as calling it once.
func (r Resource[I]) Destroy() {
	if r.client == nil {
		return
	}
	r.client.Objects().MarkDestroyPending(r.id)
}

// GetData returns the object's opaque user data box along with
// whether the object is still alive. Callers type-assert the result
// themselves; GetDataAs below does this for them.
func (r Resource[I]) GetData() (interface{}, bool) {
	if r.client == nil {
		return nil, false
	}
	obj, ok := r.client.Objects().Get(r.id)
	if !ok {
		return nil, false
	}
	return obj.Data, true
}

// GetDataAs returns a typed view of the object's user data, or
// ErrDataTypeMismatch if the stored value is not a T.
func GetDataAs[T any, I any](r Resource[I]) (T, error) {
	var zero T
	raw, ok := r.GetData()
	if !ok {
		return zero, ErrSenderMissing
	}
	typed, ok := raw.(T)
	if !ok {
		return zero, ErrDataTypeMismatch
	}
	return typed, nil
}

// SendEvent encodes args per schema, frames it under opcode, and
// hands it to the client's transport.
func (r Resource[I]) SendEvent(opcode uint16, schema wire.ArgumentDesc, args []wire.Arg) error {
	return r.sendEvent(opcode, []wire.ArgumentDesc{schema}, args)
}

// SendEventArgs is the general form: schema is the full ordered
// argument descriptor list for this event opcode.
func (r Resource[I]) SendEventArgs(opcode uint16, schema []wire.ArgumentDesc, args []wire.Arg) error {
	return r.sendEvent(opcode, schema, args)
}

func (r Resource[I]) sendEvent(opcode uint16, schema []wire.ArgumentDesc, args []wire.Arg) error {
	if r.client == nil || !r.client.Alive() {
		return ErrClientMissing
	}
	if _, ok := r.client.Objects().Get(r.id); !ok {
		return ErrSenderMissing
	}
	payload, fds, err := wire.EncodeArgs(schema, args)
	if err != nil {
		return fmt.Errorf("resource: serialize event: %w", err)
	}
	return r.client.Send(r.id, opcode, payload, fds)
}

// Downcast narrows an Untyped resource to Resource[I],
// succeeding iff the object's recorded interface name equals
// expectedInterfaceName (§4.4: "exact-name match only", subset
// version compatibility is out of scope per §9).
func Downcast[I any](r Resource[Untyped], expectedInterfaceName string) (Resource[I], bool) {
	if r.client == nil {
		return Resource[I]{}, false
	}
	obj, ok := r.client.Objects().Get(r.id)
	if !ok || obj.InterfaceName != expectedInterfaceName {
		return Resource[I]{}, false
	}
	return Resource[I]{client: r.client, id: r.id}, true
}

// DowncastAnonymous is Downcast for a resource still in the anonymous
// phantom state (mid-parse of a dynamic new_id).
func DowncastAnonymous[I any](r Resource[Anonymous], expectedInterfaceName string) (Resource[I], bool) {
	if r.client == nil {
		return Resource[I]{}, false
	}
	obj, ok := r.client.Objects().Get(r.id)
	if !ok || obj.InterfaceName != expectedInterfaceName {
		return Resource[I]{}, false
	}
	return Resource[I]{client: r.client, id: r.id}, true
}
