package wire

import "encoding/binary"

// HeaderSize is the fixed size, in bytes, of a message header:
// sender (u32) + opcode (u16) + size (u16).
const HeaderSize = 8

// Header is the fixed portion of every Wayland wire message.
type Header struct {
	Sender uint32
	Opcode uint16
	Size   uint16 // header + payload, in bytes
}

// DecodeHeader parses the first HeaderSize bytes of b as a Header.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, ErrShortPayload
	}
	h := Header{
		Sender: nativeEndian.Uint32(b[0:4]),
		Opcode: nativeEndian.Uint16(b[4:6]),
		Size:   nativeEndian.Uint16(b[6:8]),
	}
	if h.Size < HeaderSize {
		return Header{}, ErrInvalidFraming
	}
	return h, nil
}

// EncodeHeader writes h into an 8-byte slice.
func EncodeHeader(h Header) []byte {
	b := make([]byte, HeaderSize)
	nativeEndian.PutUint32(b[0:4], h.Sender)
	nativeEndian.PutUint16(b[4:6], h.Opcode)
	nativeEndian.PutUint16(b[6:8], h.Size)
	return b
}

// RawMessage is a complete, decoded-header message with its raw
// payload and the file descriptors delivered alongside it.
type RawMessage struct {
	Sender  uint32
	Opcode  uint16
	Payload []byte
	Fds     []int
}

// FromData builds a RawMessage from a full frame (header included)
// plus its out-of-band fds. The frame must be exactly h.Size bytes.
func FromData(data []byte, fds []int) (RawMessage, error) {
	h, err := DecodeHeader(data)
	if err != nil {
		return RawMessage{}, err
	}
	if int(h.Size) != len(data) {
		return RawMessage{}, ErrInvalidFraming
	}
	return RawMessage{
		Sender:  h.Sender,
		Opcode:  h.Opcode,
		Payload: data[HeaderSize:],
		Fds:     fds,
	}, nil
}

// nativeEndian is the host's byte order. Wayland's wire format has no
// on-wire byte-order field; clients and servers must share endianness.
var nativeEndian = binary.NativeEndian
