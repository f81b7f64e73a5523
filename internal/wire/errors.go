// Package wire implements the Wayland wire codec: message framing,
// dynamic argument encoding/decoding, and the SCM_RIGHTS-aware duplex
// transport over a Unix domain socket.
package wire

import "errors"

var (
	// ErrShortPayload is returned when the payload cursor runs out of
	// bytes before a schema element has been fully consumed.
	ErrShortPayload = errors.New("wire: short payload")
	// ErrMissingFd is returned when an fd-typed argument is read but
	// the inbound fd queue is empty.
	ErrMissingFd = errors.New("wire: missing file descriptor")
	// ErrLengthExceedsFrame is returned when a string or array length
	// prefix claims more bytes than remain in the payload.
	ErrLengthExceedsFrame = errors.New("wire: length exceeds frame")
	// ErrStringNotNulTerminated is advisory: the decoded string byte
	// vector did not end with a NUL where one was expected.
	ErrStringNotNulTerminated = errors.New("wire: string not nul terminated")
	// ErrInvalidFraming is returned when a header's size field is
	// smaller than the header itself or larger than the buffer bound.
	ErrInvalidFraming = errors.New("wire: invalid framing")
	// ErrArrayTooLong is returned when an array argument's length
	// would not fit in a u32 length prefix.
	ErrArrayTooLong = errors.New("wire: array too long")
	// ErrMessageTooLong is returned when a framed message's total size
	// would not fit in the u16 size field.
	ErrMessageTooLong = errors.New("wire: message too long")
	// ErrBufferFull is returned when an in/out buffer bound would be
	// exceeded by a read or a pending write.
	ErrBufferFull = errors.New("wire: buffer full")
	// ErrInsufficientData is returned by the read algorithm when a
	// complete frame could not be assembled within the retry budget.
	ErrInsufficientData = errors.New("wire: insufficient data")
	// ErrNoProgress signals EAGAIN: no bytes were available this call.
	ErrNoProgress = errors.New("wire: no progress")
	// ErrConnectionClosed is returned when a recvmsg observes the
	// peer's orderly shutdown (a zero-length read).
	ErrConnectionClosed = errors.New("wire: connection closed")
)
