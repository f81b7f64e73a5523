package wire

import (
	"errors"

	"golang.org/x/sys/unix"
)

// Bounds from §4.1/§6: default buffer sizes and fd queue caps.
const (
	DefaultBufferSize  = 16 * 1024
	DefaultFdQueueCap  = 16
	MaxFdsPerRecvmsg   = 8
	DefaultReadRetries = 2
	defaultFlushTries  = 2
)

// FramedTransport is the duplex, SCM_RIGHTS-aware byte+fd stream over
// a single Unix domain socket fd. It owns inbound/outbound
// MessageBuffers and fd queues bounded per §4.1/§6, and implements the
// non-blocking read/write algorithms of §4.1.
//
// Grounded on gogpu-gogpu's internal/platform/wayland/display.go
// (Sendmsg/Recvmsg/UnixRights/ParseSocketControlMessage usage) and the
// original wl_server/src/net.rs (NetClient try_read_message/
// try_send_message, RECV_TRIES/FLUSH_TRIES retry budgets).
type FramedTransport struct {
	fd int

	inBuf   *MessageBuffer
	inFds   []int
	fdCap   int
	retries int

	outBuf      *MessageBuffer
	outFds      []int
	flushTries  int
	recvScratch []byte
	oobScratch  []byte
}

// NewFramedTransport wraps fd (already a non-blocking Unix stream
// socket) in a FramedTransport with the given buffer/fd bounds.
func NewFramedTransport(fd int, bufferSize, fdQueueCap, readRetries int) *FramedTransport {
	return &FramedTransport{
		fd:          fd,
		inBuf:       NewMessageBuffer(bufferSize),
		outBuf:      NewMessageBuffer(bufferSize),
		fdCap:       fdQueueCap,
		retries:     readRetries,
		flushTries:  defaultFlushTries,
		recvScratch: make([]byte, bufferSize),
		oobScratch:  make([]byte, unix.CmsgSpace(MaxFdsPerRecvmsg*4)),
	}
}

// Fd returns the underlying socket file descriptor, for poll.
func (t *FramedTransport) Fd() int { return t.fd }

// Close closes the underlying socket.
func (t *FramedTransport) Close() error {
	return unix.Close(t.fd)
}

// fillOnce issues one non-blocking recvmsg, appending any bytes and
// fds received to the inbound buffer/queue.
func (t *FramedTransport) fillOnce() error {
	n, oobn, _, _, err := unix.Recvmsg(t.fd, t.recvScratch, t.oobScratch, unix.MSG_CMSG_CLOEXEC|unix.MSG_DONTWAIT)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) {
			return ErrNoProgress
		}
		return err
	}
	if n == 0 {
		return ErrConnectionClosed
	}
	fds, err := parseRightsFds(t.oobScratch[:oobn])
	if err != nil {
		return err
	}
	if len(t.inFds)+len(fds) > t.fdCap {
		closeAll(fds)
		return ErrBufferFull
	}
	if err := t.inBuf.Append(t.recvScratch[:n]); err != nil {
		closeAll(fds)
		return err
	}
	t.inFds = append(t.inFds, fds...)
	return nil
}

// TryReadMessage implements the Read algorithm of §4.1: fill until a
// header is available, resolve the expected fd count for
// (sender, opcode) via fdCount, fill until the full frame and its fds
// are buffered (bounded retries), then return the assembled message.
//
// fdCount may be nil, in which case no fds are expected. Returns
// ErrNoProgress if nothing at all is available yet, ErrInsufficientData
// if the retry budget is exhausted after a header was decoded, and
// ErrConnectionClosed on orderly peer shutdown.
func (t *FramedTransport) TryReadMessage(fdCount func(sender uint32, opcode uint16) int) (*RawMessage, error) {
	for t.inBuf.Len() < HeaderSize {
		if err := t.fillOnce(); err != nil {
			if errors.Is(err, ErrNoProgress) && t.inBuf.Len() == 0 {
				return nil, ErrNoProgress
			}
			if errors.Is(err, ErrNoProgress) {
				return nil, ErrInsufficientData
			}
			return nil, err
		}
	}

	h, err := DecodeHeader(t.inBuf.Bytes())
	if err != nil {
		return nil, err
	}
	if int(h.Size) > t.inBuf.Cap() {
		return nil, ErrInvalidFraming
	}

	wantFds := 0
	if fdCount != nil {
		wantFds = fdCount(h.Sender, h.Opcode)
	}

	tries := 0
	for t.inBuf.Len() < int(h.Size) || len(t.inFds) < wantFds {
		if tries > t.retries {
			return nil, ErrInsufficientData
		}
		if err := t.fillOnce(); err != nil {
			if errors.Is(err, ErrNoProgress) {
				tries++
				continue
			}
			return nil, err
		}
	}

	data := make([]byte, h.Size)
	copy(data, t.inBuf.Bytes()[:h.Size])
	fds := make([]int, wantFds)
	copy(fds, t.inFds[:wantFds])

	t.inBuf.Advance(int(h.Size))
	remainingFds := make([]int, len(t.inFds)-wantFds)
	copy(remainingFds, t.inFds[wantFds:])
	t.inFds = remainingFds

	return FromDataPtr(data, fds)
}

// FromDataPtr is FromData returning a pointer, for transport callers.
func FromDataPtr(data []byte, fds []int) (*RawMessage, error) {
	m, err := FromData(data, fds)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (t *FramedTransport) sendOnce(data []byte, fds []int) (int, error) {
	var oob []byte
	if len(fds) > 0 {
		oob = unix.UnixRights(fds...)
	}
	n, err := unix.SendmsgN(t.fd, data, oob, nil, unix.MSG_DONTWAIT)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) {
			return 0, ErrNoProgress
		}
		return 0, err
	}
	return n, nil
}

// SendMessage implements the Write algorithm of §4.1: if the outbound
// buffer is empty, try to send directly; a partial send's tail is
// buffered without its fds, which went out with that first send.
// Otherwise the message and its fds are appended and a flush is
// attempted opportunistically.
func (t *FramedTransport) SendMessage(data []byte, fds []int) error {
	if t.outBuf.Len() == 0 {
		n, err := t.sendOnce(data, fds)
		if err != nil && !errors.Is(err, ErrNoProgress) {
			return err
		}
		if err == nil {
			if n >= len(data) {
				return nil
			}
			data = data[n:]
			fds = nil
		}
	}
	if err := t.outBuf.Append(data); err != nil {
		return ErrBufferFull
	}
	if len(t.outFds)+len(fds) > t.fdCap {
		return ErrBufferFull
	}
	t.outFds = append(t.outFds, fds...)
	return t.Flush()
}

// Flush drains as much of the outbound buffer as the socket accepts,
// within a bounded retry count, without blocking.
func (t *FramedTransport) Flush() error {
	for tries := 0; t.outBuf.Len() > 0 && tries <= t.flushTries; tries++ {
		n, err := t.sendOnce(t.outBuf.Bytes(), t.outFds)
		if err != nil {
			if errors.Is(err, ErrNoProgress) {
				return nil
			}
			return err
		}
		t.outBuf.Advance(n)
		t.outFds = nil
		if n == 0 {
			tries++
		}
	}
	return nil
}

// parseRightsFds extracts SCM_RIGHTS file descriptors from a recvmsg
// control message buffer.
func parseRightsFds(oob []byte) ([]int, error) {
	if len(oob) == 0 {
		return nil, nil
	}
	scms, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return nil, err
	}
	var fds []int
	for _, scm := range scms {
		if scm.Header.Level != unix.SOL_SOCKET || scm.Header.Type != unix.SCM_RIGHTS {
			continue
		}
		got, err := unix.ParseUnixRights(&scm)
		if err != nil {
			return nil, err
		}
		fds = append(fds, got...)
	}
	return fds, nil
}

func closeAll(fds []int) {
	for _, fd := range fds {
		_ = unix.Close(fd)
	}
}
