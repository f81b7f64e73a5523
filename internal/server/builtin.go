package server

import (
	"fmt"

	"github.com/kryptco/wlserver/internal/global"
	"github.com/kryptco/wlserver/internal/object"
	"github.com/kryptco/wlserver/internal/resource"
	"github.com/kryptco/wlserver/internal/wire"
	"github.com/kryptco/wlserver/protocol"
)

// installDisplay seeds a freshly-accepted client's object table with
// wl_display at id 1, bound to the built-in implementation, before
// the first byte is ever read from it (§3 invariant).
func (s *Server) installDisplay(c *Client) error {
	disp := object.NewDispatcher(
		func(state interface{}, objID object.ID, opcode uint16, args []wire.Arg) error {
			return s.handleDisplayRequest(c, state, opcode, args)
		},
		nil, // wl_display is never destroyed via a request
	)
	return c.objects.Insert(1, protocol.WlDisplayInterface.Name, disp, nil)
}

func (s *Server) handleDisplayRequest(c *Client, state interface{}, opcode uint16, args []wire.Arg) error {
	switch opcode {
	case protocol.DisplayRequestSync:
		callbackID := object.ID(args[0].NewID)
		if err := c.objects.Insert(callbackID, protocol.WlCallbackInterface.Name, object.NullDispatcher(protocol.WlCallbackInterface.Name), nil); err != nil {
			return err
		}
		cb := resource.New[protocol.WlCallback](c, callbackID)
		serial := s.NextSerial()
		if err := protocol.SendCallbackDone(cb, serial); err != nil {
			return err
		}
		cb.Destroy()
		return nil

	case protocol.DisplayRequestGetRegistry:
		registryID := object.ID(args[0].NewID)
		disp := object.NewDispatcher(
			func(state interface{}, objID object.ID, opcode uint16, args []wire.Arg) error {
				return s.handleRegistryRequest(c, state, opcode, args)
			},
			nil,
		)
		if err := c.objects.Insert(registryID, protocol.WlRegistryInterface.Name, disp, nil); err != nil {
			return err
		}
		c.registryID = registryID
		for _, g := range s.globals.All() {
			if err := s.advertiseGlobal(c, g); err != nil {
				s.logger.Errorf("client %d: advertise %s: %v", c.id, g.InterfaceName, err)
			}
		}
		return nil

	default:
		return fmt.Errorf("server: wl_display: unknown request opcode %d", opcode)
	}
}

func (s *Server) handleRegistryRequest(c *Client, state interface{}, opcode uint16, args []wire.Arg) error {
	switch opcode {
	case protocol.RegistryRequestBind:
		name := args[0].Uint
		id := object.ID(args[1].NewID)
		interfaceName := args[1].NewIDInterface
		if err := c.objects.InsertAnonymous(id); err != nil {
			return err
		}
		newRes := resource.NewNewResource[resource.Untyped](c, id, interfaceName)
		if err := s.globals.BindByName(name, newRes); err != nil {
			// §7: a bind failure is per-bind, the client continues.
			s.logger.Errorf("client %d: bind name=%d interface=%q: %v", c.id, name, interfaceName, err)
		}
		return nil

	default:
		return fmt.Errorf("server: wl_registry: unknown request opcode %d", opcode)
	}
}

// advertiseGlobal emits wl_registry.global for g to c, a no-op if c
// has not yet bound a registry.
func (s *Server) advertiseGlobal(c *Client, g *global.Global) error {
	if c.registryID == 0 {
		return nil
	}
	reg := resource.New[protocol.WlRegistry](c, c.registryID)
	return protocol.SendRegistryGlobal(reg, g.Name, g.InterfaceName, g.Version)
}

// emitDeleteID emits wl_display.delete_id(id) from the client's
// display object, strictly after any other event for that object
// (§4.6: callers only invoke this from the sweep phase).
func (s *Server) emitDeleteID(c *Client, id object.ID) error {
	disp := resource.New[protocol.WlDisplay](c, 1)
	return protocol.SendDisplayDeleteID(disp, uint32(id))
}
