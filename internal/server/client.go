package server

import (
	uuid "github.com/satori/go.uuid"

	"github.com/kryptco/wlserver/internal/object"
	"github.com/kryptco/wlserver/internal/wire"
)

// Client is a connected peer (§3): its framed transport, its object
// table, its opaque per-connection user state, and the ids of its
// bound wl_display/wl_registry once known. It implements
// resource.ClientHandle so Resource/NewResource can reach it without
// the resource package importing server.
type Client struct {
	id        uint64
	traceID   uuid.UUID
	transport *wire.FramedTransport
	objects   *object.Table
	state     interface{}

	registryID object.ID // 0 until get_registry is handled
	alive      bool

	server *Server
}

// Objects returns the client's object table.
func (c *Client) Objects() *object.Table { return c.objects }

// Alive reports whether the client connection is still live.
func (c *Client) Alive() bool { return c.alive }

// State returns the client's opaque per-connection user state.
func (c *Client) State() interface{} { return c.state }

// ID returns the server-internal client id (not a wire object id).
func (c *Client) ID() uint64 { return c.id }

// TraceID returns the per-connection log-correlation id.
func (c *Client) TraceID() uuid.UUID { return c.traceID }

// Send frames payload/fds under (id, opcode) and hands it to the
// transport's write algorithm (§4.1).
func (c *Client) Send(id object.ID, opcode uint16, payload []byte, fds []int) error {
	msg, err := wire.EncodeMessage(uint32(id), opcode, payload)
	if err != nil {
		return err
	}
	return c.transport.SendMessage(msg, fds)
}

// fdCountFor resolves the expected out-of-band fd count for a
// (sender, opcode) request pair via the object table + protocol
// registry, for the transport's read algorithm.
func (c *Client) fdCountFor(sender uint32, opcode uint16) int {
	obj, ok := c.objects.Get(object.ID(sender))
	if !ok {
		return 0
	}
	schema, ok := c.server.schemaFor(obj.InterfaceName, opcode)
	if !ok {
		return 0
	}
	return schema.FdCount()
}
