// Package object implements the per-client object table (§4.3) and the
// type-erased dispatcher bundle each object carries (§4.5).
package object

import (
	"errors"

	"github.com/kryptco/wlserver/internal/wire"
)

var (
	// ErrIDInUse is returned by Insert/InsertAnonymous when id already
	// names a live object.
	ErrIDInUse = errors.New("object: id already in use")
	// ErrAlreadyDestroyed is returned when a dispatcher already marked
	// destroyed is asked to dispatch again.
	ErrAlreadyDestroyed = errors.New("object: already destroyed")
	// ErrInvalidID is returned by Insert/InsertAnonymous when a
	// client-supplied new_id falls outside the client-allocated range
	// (§3): the server range [MinServerID, MaxServerID] is reserved and
	// never silently accepted from a client.
	ErrInvalidID = errors.New("object: id outside client-allocated range")
)

// ID is a 32-bit object id, unique within its owning client.
type ID uint32

// Id allocation ranges from the Wayland protocol (§3).
const (
	MinClientID ID = 1
	MaxClientID ID = 0xFEFFFFFF
	MinServerID ID = 0xFF000000
	MaxServerID ID = 0xFFFFFFFF
)

// IsClientAllocated reports whether id falls in the range clients are
// permitted to choose for their own new_id arguments.
func (id ID) IsClientAllocated() bool {
	return id >= MinClientID && id <= MaxClientID
}

// IsServerAllocated reports whether id falls in the range reserved
// for objects the server creates via outgoing events.
func (id ID) IsServerAllocated() bool {
	return id >= MinServerID && id <= MaxServerID
}

// Object is one entry of a client's object table: its current
// interface binding (empty while anonymous), its dispatcher (nil
// while anonymous), its opaque user data, and its destroy-pending
// flag.
type Object struct {
	ID             ID
	InterfaceName  string
	Dispatcher     *Dispatcher
	Data           interface{}
	DestroyPending bool
}

// Anonymous reports whether the object's interface has not yet been
// fixed (a new_id argument whose interface is chosen dynamically, mid
// parse).
func (o *Object) Anonymous() bool {
	return o.InterfaceName == ""
}

// Table is the per-client id → Object map. It is not safe for
// concurrent use: per §5, it is accessed only from the single server
// goroutine, between handler calls.
type Table struct {
	objects map[ID]*Object
}

// NewTable returns an empty object table.
func NewTable() *Table {
	return &Table{objects: make(map[ID]*Object)}
}

// Insert adds a fully-typed object, failing with ErrInvalidID if id
// falls outside the client-allocated range and ErrIDInUse if id is
// already present.
func (t *Table) Insert(id ID, interfaceName string, dispatcher *Dispatcher, data interface{}) error {
	if !id.IsClientAllocated() {
		return ErrInvalidID
	}
	if _, exists := t.objects[id]; exists {
		return ErrIDInUse
	}
	t.objects[id] = &Object{ID: id, InterfaceName: interfaceName, Dispatcher: dispatcher, Data: data}
	return nil
}

// InsertAnonymous adds a placeholder object with no fixed interface
// and no dispatcher, used while parsing a dynamic-interface new_id.
// Fails with ErrInvalidID if id falls outside the client-allocated
// range, and ErrIDInUse if id is already present.
func (t *Table) InsertAnonymous(id ID) error {
	if !id.IsClientAllocated() {
		return ErrInvalidID
	}
	if _, exists := t.objects[id]; exists {
		return ErrIDInUse
	}
	t.objects[id] = &Object{ID: id}
	return nil
}

// Get returns the object record for id, if present.
func (t *Table) Get(id ID) (*Object, bool) {
	o, ok := t.objects[id]
	return o, ok
}

// FixInterface fills in an anonymous object's interface and dispatcher
// once both are known (called from NewResource.Register).
func (t *Table) FixInterface(id ID, interfaceName string, dispatcher *Dispatcher) bool {
	o, ok := t.objects[id]
	if !ok {
		return false
	}
	o.InterfaceName = interfaceName
	o.Dispatcher = dispatcher
	return true
}

// MarkDestroyPending sets the destroy flag on id's object, returning
// false if id is not present.
func (t *Table) MarkDestroyPending(id ID) bool {
	o, ok := t.objects[id]
	if !ok {
		return false
	}
	o.DestroyPending = true
	return true
}

// FindFirstDestroyPending removes and returns an object whose destroy
// flag is set, or (nil, false) if none remain.
func (t *Table) FindFirstDestroyPending() (*Object, bool) {
	for id, o := range t.objects {
		if o.DestroyPending {
			delete(t.objects, id)
			return o, true
		}
	}
	return nil, false
}

// Remove deletes and returns id's object record.
func (t *Table) Remove(id ID) (*Object, bool) {
	o, ok := t.objects[id]
	if ok {
		delete(t.objects, id)
	}
	return o, ok
}

// DrainAll removes and returns every object in the table, for use
// when a client disconnects.
func (t *Table) DrainAll() []*Object {
	out := make([]*Object, 0, len(t.objects))
	for id, o := range t.objects {
		out = append(out, o)
		delete(t.objects, id)
	}
	return out
}

// Len reports the number of live objects.
func (t *Table) Len() int { return len(t.objects) }

// ExpectedFdCount is a convenience for the transport's read algorithm:
// given a request schema, counts how many Fd-typed arguments it
// declares.
func ExpectedFdCount(schema []wire.ArgumentDesc) int {
	n := 0
	for _, d := range schema {
		if d.Type == wire.Fd {
			n++
		}
	}
	return n
}
