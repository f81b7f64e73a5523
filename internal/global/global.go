// Package global implements global registration and by-name binding
// (the GlobalManager of the original design): server-side interface
// advertisements and the constructors invoked when a client binds one
// via wl_registry.bind.
package global

import (
	"errors"
	"math"

	"github.com/kryptco/wlserver/internal/resource"
)

// ErrGlobalNotFound is returned by BindByName when no registered
// global has the given name.
var ErrGlobalNotFound = errors.New("global: not found")

// ErrNamesExhausted is the panic value used when the monotonic name
// counter would wrap past uint32, matching the original's panic on
// u32 overflow (§9: "alternative wrap-around strategies are
// deliberately not adopted").
const ErrNamesExhausted = "global: names exhausted"

// BindFunc attaches a concrete per-object implementation to an
// anonymous NewResource produced by a bind request. It must install
// an implementation (via NewResource.Register) before returning.
type BindFunc func(newRes resource.NewResource[resource.Untyped])

// Global is one server-side registration: a monotonically-assigned
// name, the interface it advertises, and the constructor invoked on
// bind.
type Global struct {
	Name          uint32
	InterfaceName string
	Version       uint32
	Bind          BindFunc
}

// Manager owns the monotonic name counter and the list of registered
// globals. It never removes a global (§3: "never destroyed in this
// design").
type Manager struct {
	nextName uint32
	globals  []*Global
}

// NewManager returns a Manager with an empty global list, names
// starting at 1.
func NewManager() *Manager {
	return &Manager{nextName: 1}
}

// NextName mints the next monotonic global name, panicking on uint32
// overflow.
func (m *Manager) NextName() uint32 {
	if m.nextName == math.MaxUint32 {
		panic(ErrNamesExhausted)
	}
	n := m.nextName
	m.nextName++
	return n
}

// Add registers a new global and returns its record. The caller (the
// server, which holds the client list) is responsible for advertising
// it to every already-connected client immediately afterward, and to
// every future client during its get_registry handling.
func (m *Manager) Add(interfaceName string, version uint32, bind BindFunc) *Global {
	g := &Global{Name: m.NextName(), InterfaceName: interfaceName, Version: version, Bind: bind}
	m.globals = append(m.globals, g)
	return g
}

// All returns every registered global, in registration order.
func (m *Manager) All() []*Global {
	return m.globals
}

// BindByName resolves name to a Global and invokes its constructor
// with newRes. The constructor's own Register failure (e.g. a panic)
// is the caller's responsibility to isolate per §7 ("Global dispatch
// ... logged; per-bind, client continues").
func (m *Manager) BindByName(name uint32, newRes resource.NewResource[resource.Untyped]) error {
	for _, g := range m.globals {
		if g.Name == name {
			g.Bind(newRes)
			return nil
		}
	}
	return ErrGlobalNotFound
}
