package server

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"runtime/debug"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru"
	"github.com/op/go-logging"
	uuid "github.com/satori/go.uuid"
	"golang.org/x/sys/unix"

	"github.com/kryptco/wlserver/internal/global"
	"github.com/kryptco/wlserver/internal/object"
	"github.com/kryptco/wlserver/internal/proto"
	"github.com/kryptco/wlserver/internal/wire"
	"github.com/kryptco/wlserver/internal/wlog"
	"github.com/kryptco/wlserver/protocol"
)

// ErrServerStopped is the disconnect reason Close records for every
// client it drops. Run returns the context's own error on cancel.
var ErrServerStopped = errors.New("server: stopped")

// StateCtor constructs the per-client opaque user state value invoked
// on accept (§4.6 step 2).
type StateCtor func() interface{}

// Server is the single-threaded, cooperative compositor core (§4.6).
// There is exactly one goroutine driving Dispatch/Run; no lock guards
// any of its structures (§5).
type Server struct {
	cfg      Config
	listenFd int

	clients      map[int]*Client // keyed by transport fd
	nextClientID uint64

	registry *proto.Registry
	globals  *global.Manager

	state     interface{}
	stateCtor StateCtor

	serial uint32 // accessed via sync/atomic

	logger     *logging.Logger
	debugFlags wlog.DebugFlags
	retired    *lru.Cache
}

// New constructs a Server with the given server-wide state value and
// configuration, registering the built-in interfaces (§6) into its
// Protocol Registry.
func New(initialState interface{}, cfg Config) *Server {
	retired, _ := lru.New(cfg.FdQueueCap * 4)
	s := &Server{
		cfg:        cfg,
		clients:    make(map[int]*Client),
		registry:   proto.NewRegistry(),
		globals:    global.NewManager(),
		state:      initialState,
		logger:     wlog.Setup("wlserver", cfg.UseSyslog),
		debugFlags: wlog.FlagsFromEnv(),
		retired:    retired,
	}
	s.registry.Register(protocol.WlDisplayInterface)
	s.registry.Register(protocol.WlRegistryInterface)
	s.registry.Register(protocol.WlCallbackInterface)
	return s
}

// SetClientStateCtor installs the constructor invoked for each newly
// accepted client's opaque per-connection state.
func (s *Server) SetClientStateCtor(ctor StateCtor) { s.stateCtor = ctor }

// RegisterInterface adds iface to the Protocol Registry, required
// before any global advertising that interface can be bound.
func (s *Server) RegisterInterface(iface *proto.Interface) {
	s.registry.Register(iface)
}

// Registry returns the server's Protocol Registry, for callers that
// bulk-register a generated interface set (e.g. a wlscanner-emitted
// RegisterInterfaces function) rather than one interface at a time.
func (s *Server) Registry() *proto.Registry {
	return s.registry
}

// RegisterGlobal registers a new global advertising interfaceName at
// version, installing bind as its bind constructor, and immediately
// advertises it to every already-connected client (§3, §6).
func (s *Server) RegisterGlobal(interfaceName string, version uint32, bind global.BindFunc) *global.Global {
	g := s.globals.Add(interfaceName, version, bind)
	for _, c := range s.clients {
		if err := s.advertiseGlobal(c, g); err != nil {
			s.logger.Errorf("advertise %s to client %d: %v", interfaceName, c.id, err)
		}
	}
	return g
}

// NextSerial mints a monotonically increasing serial, panicking on
// uint32 exhaustion per §7/§9 (fatal server abort, no wraparound).
func (s *Server) NextSerial() uint32 {
	for {
		old := atomic.LoadUint32(&s.serial)
		if old == math.MaxUint32 {
			panic("server: serials exhausted")
		}
		if atomic.CompareAndSwapUint32(&s.serial, old, old+1) {
			return old
		}
	}
}

// Listen binds and listens on the configured Unix domain socket,
// non-blocking, removing any stale socket file first.
func (s *Server) Listen() error {
	_ = os.Remove(s.cfg.SocketPath)
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("server: socket: %w", err)
	}
	sa := &unix.SockaddrUnix{Name: s.cfg.SocketPath}
	if err := unix.Bind(fd, sa); err != nil {
		_ = unix.Close(fd)
		return fmt.Errorf("server: bind %s: %w", s.cfg.SocketPath, err)
	}
	if err := unix.Listen(fd, 16); err != nil {
		_ = unix.Close(fd)
		return fmt.Errorf("server: listen: %w", err)
	}
	s.listenFd = fd
	s.logger.Noticef("listening on %s", s.cfg.SocketPath)
	return nil
}

// Close shuts down the listening socket and every connected client.
func (s *Server) Close() error {
	for _, c := range s.clients {
		s.disconnect(c, ErrServerStopped)
	}
	if s.listenFd != 0 {
		return unix.Close(s.listenFd)
	}
	return nil
}

// tryAccept makes one non-blocking accept on the listening socket
// (§4.6 step 2): if a new connection is present, it constructs a Client,
// seeds wl_display at id 1, and invokes the state constructor.
func (s *Server) tryAccept() {
	nfd, _, err := unix.Accept4(s.listenFd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) {
			return
		}
		s.logger.Errorf("accept: %v", err)
		return
	}

	s.nextClientID++
	c := &Client{
		id:        s.nextClientID,
		traceID:   uuid.NewV4(),
		transport: wire.NewFramedTransport(nfd, s.cfg.BufferSize, s.cfg.FdQueueCap, s.cfg.ReadRetries),
		objects:   object.NewTable(),
		alive:     true,
		server:    s,
	}
	if err := s.installDisplay(c); err != nil {
		s.logger.Errorf("install wl_display: %v", err)
		_ = unix.Close(nfd)
		return
	}
	if s.stateCtor != nil {
		c.state = s.stateCtor()
	}
	s.clients[nfd] = c
	s.logger.Noticef("client %d connected (trace %s)", c.id, c.traceID)
}

// pollClients polls every client fd for POLLIN|POLLHUP with a 0
// timeout (§4.6 step 3), returning the clients ready for a read.
func (s *Server) pollClients() ([]*Client, error) {
	if len(s.clients) == 0 {
		return nil, nil
	}
	fds := make([]unix.PollFd, 0, len(s.clients))
	order := make([]*Client, 0, len(s.clients))
	for _, c := range s.clients {
		fds = append(fds, unix.PollFd{Fd: int32(c.transport.Fd()), Events: unix.POLLIN})
		order = append(order, c)
	}
	n, err := unix.Poll(fds, 0)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return nil, nil
		}
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	ready := make([]*Client, 0, n)
	for i, pfd := range fds {
		if pfd.Revents&(unix.POLLIN|unix.POLLHUP) != 0 {
			ready = append(ready, order[i])
		}
	}
	return ready, nil
}

// schemaFor resolves the request schema for (interfaceName, opcode).
func (s *Server) schemaFor(interfaceName string, opcode uint16) (proto.Schema, bool) {
	iface, ok := s.registry.Lookup(interfaceName)
	if !ok {
		return nil, false
	}
	return iface.RequestSchema(opcode)
}

// Dispatch runs one server loop iteration (§4.6): flush, accept,
// poll, route at most one message per ready client, sweep.
func (s *Server) Dispatch() error {
	for _, c := range s.clients {
		if !c.alive {
			continue
		}
		if err := c.transport.Flush(); err != nil {
			s.disconnect(c, fmt.Errorf("flush: %w", err))
		}
	}

	s.tryAccept()

	ready, err := s.pollClients()
	if err != nil {
		s.logger.Errorf("poll: %v", err)
	}

	for _, c := range ready {
		if !c.alive {
			continue
		}
		s.readAndRoute(c)
	}

	for _, c := range s.clients {
		if c.alive {
			s.sweep(c)
		}
	}

	return nil
}

func (s *Server) readAndRoute(c *Client) {
	msg, err := c.transport.TryReadMessage(c.fdCountFor)
	if err != nil {
		switch {
		case errors.Is(err, wire.ErrNoProgress), errors.Is(err, wire.ErrInsufficientData):
			return
		case errors.Is(err, wire.ErrConnectionClosed):
			s.disconnect(c, err)
			return
		default:
			s.disconnect(c, err)
			return
		}
	}
	s.route(c, msg)
}

func (s *Server) route(c *Client, msg *wire.RawMessage) {
	senderID := object.ID(msg.Sender)
	obj, ok := c.objects.Get(senderID)
	if !ok {
		s.disconnect(c, fmt.Errorf("server: request receiver %d doesn't exist", senderID))
		return
	}

	schema, hasSchema := s.schemaFor(obj.InterfaceName, msg.Opcode)
	if !hasSchema {
		s.disconnect(c, fmt.Errorf("server: unknown opcode %d for interface %q", msg.Opcode, obj.InterfaceName))
		return
	}

	args, err := wire.DecodeArgs(schema, msg.Payload, msg.Fds)
	if err != nil {
		s.disconnect(c, fmt.Errorf("server: parse %s.%d: %w", obj.InterfaceName, msg.Opcode, err))
		return
	}

	if s.debugFlags.Requests {
		s.logger.Debugf("client %d: -> %s@%d.%d %v", c.id, obj.InterfaceName, senderID, msg.Opcode, args)
	}

	if err := s.safeDispatch(obj.Dispatcher, senderID, msg.Opcode, args); err != nil {
		s.disconnect(c, err)
		return
	}

	if iface, ok := s.registry.Lookup(obj.InterfaceName); ok && iface.IsDestructorRequest(msg.Opcode) {
		c.objects.MarkDestroyPending(senderID)
	}
}

// safeDispatch recovers a handler panic and converts it into a fatal
// client-connection error, never letting it propagate into the
// server goroutine's own call stack (§4.5, §7).
func (s *Server) safeDispatch(d *object.Dispatcher, id object.ID, opcode uint16, args []wire.Arg) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Errorf("handler panic on object %d opcode %d: %v\n%s", id, opcode, r, debug.Stack())
			err = fmt.Errorf("server: handler panic: %v", r)
		}
	}()
	return d.Dispatch(s.state, id, opcode, args)
}

// sweep repeatedly pulls destroy-pending objects, runs their
// destructors, and emits delete_id, until none remain (§4.6 step 5).
func (s *Server) sweep(c *Client) {
	for {
		obj, ok := c.objects.FindFirstDestroyPending()
		if !ok {
			return
		}
		if obj.Dispatcher != nil {
			if err := obj.Dispatcher.DispatchDestructor(s.state, obj.ID); err != nil {
				s.logger.Errorf("client %d: destructor for %d: %v", c.id, obj.ID, err)
			}
		}
		s.rememberRetired(c, obj.ID)
		if err := s.emitDeleteID(c, obj.ID); err != nil {
			s.logger.Errorf("client %d: delete_id for %d: %v", c.id, obj.ID, err)
		}
	}
}

func (s *Server) rememberRetired(c *Client, id object.ID) {
	if s.retired == nil {
		return
	}
	key := fmt.Sprintf("%d:%d", c.id, id)
	if s.retired.Contains(key) {
		s.logger.Warningf("client %d: object id %d retired more than once", c.id, id)
	}
	s.retired.Add(key, struct{}{})
}

// disconnect runs every remaining object's destructor (order
// unspecified, §4.6 step 6) and drops the client.
func (s *Server) disconnect(c *Client, reason error) {
	if !c.alive {
		return
	}
	c.alive = false
	s.logger.Noticef("client %d disconnected: %v", c.id, reason)

	for _, obj := range c.objects.DrainAll() {
		if obj.Dispatcher == nil {
			continue
		}
		if err := obj.Dispatcher.DispatchDestructor(s.state, obj.ID); err != nil {
			s.logger.Errorf("client %d: destructor during disconnect for %d: %v", c.id, obj.ID, err)
		}
	}
	_ = c.transport.Close()
	delete(s.clients, c.transport.Fd())
}

// Run calls Dispatch until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := s.Dispatch(); err != nil {
			return err
		}
	}
}
