package server

import (
	"testing"

	"golang.org/x/sys/unix"

	"github.com/kryptco/wlserver/internal/object"
	"github.com/kryptco/wlserver/internal/proto"
	"github.com/kryptco/wlserver/internal/resource"
	"github.com/kryptco/wlserver/internal/wire"
	"github.com/kryptco/wlserver/protocol"
)

// newTestServer builds a Server with the built-in interfaces
// registered but no listening socket, for tests that drive Dispatch
// internals directly against a hand-wired Client.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	return New(nil, Config{
		BufferSize:  wire.DefaultBufferSize,
		FdQueueCap:  wire.DefaultFdQueueCap,
		ReadRetries: wire.DefaultReadRetries,
	})
}

// newConnectedClient creates a socketpair, wraps one end in a Client
// owned by s with wl_display already installed, and returns the
// Client plus the peer fd the test drives directly. The peer fd is
// closed by the caller.
func newConnectedClient(t *testing.T, s *Server) (*Client, int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	c := &Client{
		id:        1,
		transport: wire.NewFramedTransport(fds[0], wire.DefaultBufferSize, wire.DefaultFdQueueCap, wire.DefaultReadRetries),
		objects:   object.NewTable(),
		alive:     true,
		server:    s,
	}
	if err := s.installDisplay(c); err != nil {
		t.Fatalf("installDisplay: %v", err)
	}
	s.clients[fds[0]] = c
	t.Cleanup(func() { _ = unix.Close(fds[1]) })
	return c, fds[1]
}

func sendRaw(t *testing.T, peerFd int, sender uint32, opcode uint16, schema []wire.ArgumentDesc, args []wire.Arg) {
	t.Helper()
	payload, fds, err := wire.EncodeArgs(schema, args)
	if err != nil {
		t.Fatalf("EncodeArgs: %v", err)
	}
	msg, err := wire.EncodeMessage(sender, opcode, payload)
	if err != nil {
		t.Fatalf("EncodeMessage: %v", err)
	}
	var oob []byte
	if len(fds) > 0 {
		oob = unix.UnixRights(fds...)
	}
	if _, err := unix.SendmsgN(peerFd, msg, oob, nil, 0); err != nil {
		t.Fatalf("Sendmsg: %v", err)
	}
}

func recvRaw(t *testing.T, peerFd int) *wire.RawMessage {
	t.Helper()
	buf := make([]byte, 4096)
	oob := make([]byte, 256)
	// Read one frame only: the header first, then exactly the rest of
	// its size, since a stream socket may hold several frames at once.
	n, oobn, _, _, err := unix.Recvmsg(peerFd, buf[:wire.HeaderSize], oob, 0)
	if err != nil {
		t.Fatalf("Recvmsg: %v", err)
	}
	h, err := wire.DecodeHeader(buf[:n])
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	for n < int(h.Size) {
		m, err := unix.Read(peerFd, buf[n:h.Size])
		if err != nil || m == 0 {
			t.Fatalf("Read: n=%d err=%v", m, err)
		}
		n += m
	}
	scms, err := unix.ParseSocketControlMessage(oob[:oobn])
	if err != nil {
		t.Fatalf("ParseSocketControlMessage: %v", err)
	}
	var fds []int
	for _, scm := range scms {
		got, err := unix.ParseUnixRights(&scm)
		if err != nil {
			t.Fatalf("ParseUnixRights: %v", err)
		}
		fds = append(fds, got...)
	}
	msg, err := wire.FromData(buf[:n], fds)
	if err != nil {
		t.Fatalf("FromData: %v", err)
	}
	return &msg
}

func TestNextSerialMonotonicAndExhaustion(t *testing.T) {
	s := newTestServer(t)
	if s.NextSerial() != 0 || s.NextSerial() != 1 {
		t.Fatal("expected serials to start at 0 and increase by one")
	}

	s.serial = ^uint32(0)
	defer func() {
		if recover() == nil {
			t.Fatal("expected NextSerial to panic on uint32 exhaustion")
		}
	}()
	s.NextSerial()
}

func TestSchemaForResolvesByInterfaceAndOpcode(t *testing.T) {
	s := newTestServer(t)
	schema, ok := s.schemaFor("wl_display", protocol.DisplayRequestSync)
	if !ok || len(schema) != 1 {
		t.Fatalf("got %+v, %v", schema, ok)
	}
	if _, ok := s.schemaFor("wl_nonexistent", 0); ok {
		t.Fatal("expected an unregistered interface to miss")
	}
}

func TestRouteDisplaySyncRepliesWithCallbackDoneAndDeleteID(t *testing.T) {
	s := newTestServer(t)
	c, peerFd := newConnectedClient(t, s)

	sendRaw(t, peerFd, 1, protocol.DisplayRequestSync,
		protocol.WlDisplayInterface.Requests[protocol.DisplayRequestSync],
		[]wire.Arg{{Kind: wire.KindNewID, NewID: 2}})

	s.readAndRoute(c)
	if !c.alive {
		t.Fatal("expected the client to remain connected after a valid sync request")
	}
	s.sweep(c)

	if err := c.transport.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	done := recvRaw(t, peerFd)
	if done.Sender != 2 || done.Opcode != protocol.CallbackEventDone {
		t.Fatalf("expected callback.done on object 2, got %+v", done)
	}

	deleteID := recvRaw(t, peerFd)
	if deleteID.Sender != 1 || deleteID.Opcode != protocol.DisplayEventDeleteID {
		t.Fatalf("expected wl_display.delete_id, got %+v", deleteID)
	}

	if _, ok := c.objects.Get(2); ok {
		t.Fatal("expected the callback object to be swept after its one-shot destruction")
	}
}

func TestRouteUnknownReceiverDisconnects(t *testing.T) {
	s := newTestServer(t)
	c, peerFd := newConnectedClient(t, s)
	_ = peerFd

	sendRaw(t, peerFd, 99, 0, nil, nil)
	s.readAndRoute(c)

	if c.alive {
		t.Fatal("expected routing a message to a nonexistent receiver to disconnect the client")
	}
}

func TestRouteRejectsServerAllocatedNewID(t *testing.T) {
	s := newTestServer(t)
	c, peerFd := newConnectedClient(t, s)

	sendRaw(t, peerFd, 1, protocol.DisplayRequestSync,
		protocol.WlDisplayInterface.Requests[protocol.DisplayRequestSync],
		[]wire.Arg{{Kind: wire.KindNewID, NewID: uint32(object.MinServerID)}})

	s.readAndRoute(c)
	if c.alive {
		t.Fatal("expected a client-chosen new_id in the server-allocated range to disconnect the client")
	}
	if _, ok := c.objects.Get(object.MinServerID); ok {
		t.Fatal("expected the out-of-range id to never enter the object table")
	}
}

func TestRegistryBindRejectsServerAllocatedNewID(t *testing.T) {
	s := newTestServer(t)
	c, peerFd := newConnectedClient(t, s)

	sendRaw(t, peerFd, 1, protocol.DisplayRequestGetRegistry,
		protocol.WlDisplayInterface.Requests[protocol.DisplayRequestGetRegistry],
		[]wire.Arg{{Kind: wire.KindNewID, NewID: 3}})
	s.readAndRoute(c)
	if err := c.transport.Flush(); err != nil {
		t.Fatal(err)
	}
	if !c.alive {
		t.Fatal("expected get_registry with a valid id to succeed")
	}

	sendRaw(t, peerFd, 3, protocol.RegistryRequestBind,
		protocol.WlRegistryInterface.Requests[protocol.RegistryRequestBind],
		[]wire.Arg{
			{Kind: wire.KindUint, Uint: 1},
			{Kind: wire.KindNewIDDynamic, NewID: uint32(object.MinServerID), NewIDInterface: "wl_compositor", NewIDVersion: 1},
		})
	s.readAndRoute(c)

	if c.alive {
		t.Fatal("expected a bind into the server-allocated range to disconnect the client")
	}
}

func TestRouteMarksDestructorRequestsPending(t *testing.T) {
	s := newTestServer(t)
	c, peerFd := newConnectedClient(t, s)

	var destroyed bool
	disp := object.NewDispatcher(func(interface{}, object.ID, uint16, []wire.Arg) error {
		return nil
	}, func(interface{}, object.ID) error {
		destroyed = true
		return nil
	})
	if err := c.objects.Insert(50, "wl_surface", disp, nil); err != nil {
		t.Fatal(err)
	}
	s.registry.Register(&surfaceStub)

	sendRaw(t, peerFd, 50, 0, nil, nil)
	s.readAndRoute(c)

	obj, ok := c.objects.Get(50)
	if !ok || !obj.DestroyPending {
		t.Fatal("expected the destructor request to mark the object destroy-pending")
	}

	s.sweep(c)
	if !destroyed {
		t.Fatal("expected sweep to run the destructor")
	}
	if _, ok := c.objects.Get(50); ok {
		t.Fatal("expected sweep to remove the object")
	}
}

func TestDisconnectDrainsObjectsAndClosesTransport(t *testing.T) {
	s := newTestServer(t)
	c, peerFd := newConnectedClient(t, s)
	_ = peerFd

	var destroyed bool
	disp := object.NewDispatcher(nil, func(interface{}, object.ID) error {
		destroyed = true
		return nil
	})
	if err := c.objects.Insert(60, "wl_surface", disp, nil); err != nil {
		t.Fatal(err)
	}

	s.disconnect(c, ErrServerStopped)

	if c.alive {
		t.Fatal("expected disconnect to mark the client dead")
	}
	if !destroyed {
		t.Fatal("expected disconnect to run every remaining object's destructor")
	}
	if _, ok := s.clients[c.transport.Fd()]; ok {
		t.Fatal("expected disconnect to drop the client from the server's client map")
	}
}

func TestRegisterGlobalAdvertisesOnlyToBoundRegistries(t *testing.T) {
	s := newTestServer(t)
	c, peerFd := newConnectedClient(t, s)

	// No registry bound yet: RegisterGlobal must not try to send.
	g := s.RegisterGlobal("wl_compositor", 1, func(resource.NewResource[resource.Untyped]) {})
	if g.Name != 1 {
		t.Fatalf("expected the first global to get name 1, got %d", g.Name)
	}

	// Bind a registry: get_registry advertises the already-registered
	// wl_compositor on object 3, and a second global registered
	// afterwards is advertised there too. The first event read is
	// wl_compositor's wl_registry.global.
	sendRaw(t, peerFd, 1, protocol.DisplayRequestGetRegistry,
		protocol.WlDisplayInterface.Requests[protocol.DisplayRequestGetRegistry],
		[]wire.Arg{{Kind: wire.KindNewID, NewID: 3}})
	s.readAndRoute(c)
	if err := c.transport.Flush(); err != nil {
		t.Fatal(err)
	}

	s.RegisterGlobal("wl_shm", 1, func(resource.NewResource[resource.Untyped]) {})
	if err := c.transport.Flush(); err != nil {
		t.Fatal(err)
	}

	ev := recvRaw(t, peerFd)
	if ev.Sender != 3 || ev.Opcode != protocol.RegistryEventGlobal {
		t.Fatalf("expected wl_registry.global on object 3, got %+v", ev)
	}
}

func TestRegistryBindInvokesGlobalConstructor(t *testing.T) {
	s := newTestServer(t)
	c, peerFd := newConnectedClient(t, s)

	sendRaw(t, peerFd, 1, protocol.DisplayRequestGetRegistry,
		protocol.WlDisplayInterface.Requests[protocol.DisplayRequestGetRegistry],
		[]wire.Arg{{Kind: wire.KindNewID, NewID: 3}})
	s.readAndRoute(c)
	if err := c.transport.Flush(); err != nil {
		t.Fatal(err)
	}

	var bound object.ID
	s.globals.Add("wl_compositor", 1, func(nr resource.NewResource[resource.Untyped]) {
		bound = nr.ID()
	})

	sendRaw(t, peerFd, 3, protocol.RegistryRequestBind,
		protocol.WlRegistryInterface.Requests[protocol.RegistryRequestBind],
		[]wire.Arg{
			{Kind: wire.KindUint, Uint: 1},
			{Kind: wire.KindNewIDDynamic, NewID: 4, NewIDInterface: "wl_compositor", NewIDVersion: 1},
		})
	s.readAndRoute(c)

	if bound != 4 {
		t.Fatalf("expected the bind constructor to run with id 4, got %d", bound)
	}
}

// surfaceStub is a minimal registered interface used only to exercise
// the destructor-request sweep path in TestRouteMarksDestructorRequestsPending.
var surfaceStub = proto.Interface{
	Name:              "wl_surface",
	Version:           1,
	Requests:          []proto.Schema{{}},
	DestructorRequest: []bool{true},
}
