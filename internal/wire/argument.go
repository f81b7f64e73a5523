package wire

import "math"

// ArgumentType enumerates the wire-level argument kinds a schema
// element can declare.
type ArgumentType int

const (
	Int ArgumentType = iota
	Uint
	Fixed24_8
	String
	Object
	NewID
	Array
	Fd
)

// ArgumentDesc describes one schema element: its wire type, the
// interface it is statically bound to (empty for untyped objects or
// dynamic-interface new_ids), and whether a null value is legal.
type ArgumentDesc struct {
	Type      ArgumentType
	Interface string
	Nullable  bool
}

// Fixed is a 24.8 signed fixed-point quantity transmitted as a raw
// native-endian u32. The codec never interprets the value; callers
// that need float arithmetic use ToFloat64/FixedFromFloat64.
type Fixed uint32

// ToFloat64 interprets the Fixed value as a 24.8 fixed-point number.
func (f Fixed) ToFloat64() float64 {
	return float64(int32(f)) / 256.0
}

// FixedFromFloat64 constructs a Fixed from a float64.
func FixedFromFloat64(v float64) Fixed {
	return Fixed(int32(v * 256.0))
}

// ArgKind discriminates the dynamic Arg union.
type ArgKind int

const (
	KindInt ArgKind = iota
	KindUint
	KindFixed
	KindString
	KindArray
	KindObject
	KindNewID
	KindNewIDDynamic
	KindFd
)

// Arg is a single dynamically-typed argument value, the currency the
// codec exchanges with the dispatcher. Exactly one set of fields is
// meaningful, selected by Kind.
type Arg struct {
	Kind ArgKind

	Int   int32
	Uint  uint32
	Fixed Fixed

	// Bytes holds a String's payload (NUL excluded) or an Array's raw
	// bytes. IsNull distinguishes a null string from an empty one.
	Bytes  []byte
	IsNull bool

	// Object/NewID carry the 32-bit id; 0 means null for Object.
	Object uint32
	NewID  uint32

	// NewIDInterface/NewIDVersion are populated only for a dynamic-
	// interface new_id (wl_registry.bind).
	NewIDInterface string
	NewIDVersion   uint32

	Fd int
}

func padded(n int) int {
	return (n + 3) &^ 3
}

// ArgReader decodes a sequence of dynamic arguments from a message
// payload and its associated fd queue, in schema order.
type ArgReader struct {
	payload []byte
	pos     int
	fds     []int
	fdPos   int
}

// NewArgReader constructs a reader over payload, popping fds from fds
// in order as Fd-typed schema elements are read.
func NewArgReader(payload []byte, fds []int) *ArgReader {
	return &ArgReader{payload: payload, fds: fds}
}

func (r *ArgReader) remaining() int {
	return len(r.payload) - r.pos
}

func (r *ArgReader) take(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, ErrShortPayload
	}
	b := r.payload[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// Int reads a plain 4-byte signed integer.
func (r *ArgReader) Int() (int32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return int32(nativeEndian.Uint32(b)), nil
}

// Uint reads a plain 4-byte unsigned integer.
func (r *ArgReader) Uint() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return nativeEndian.Uint32(b), nil
}

// FixedVal reads a 4-byte 24.8 fixed-point value.
func (r *ArgReader) FixedVal() (Fixed, error) {
	v, err := r.Uint()
	return Fixed(v), err
}

// String reads a length-prefixed, NUL-terminated, 4-padded string.
// A length of 0 denotes null; the returned bytes exclude the NUL.
func (r *ArgReader) String() (b []byte, isNull bool, err error) {
	length, err := r.Uint()
	if err != nil {
		return nil, false, err
	}
	if length == 0 {
		return nil, true, nil
	}
	if length > uint32(r.remaining()) {
		return nil, false, ErrLengthExceedsFrame
	}
	raw, err := r.take(int(length))
	if err != nil {
		return nil, false, err
	}
	if _, err := r.take(padded(int(length)) - int(length)); err != nil {
		return nil, false, err
	}
	if len(raw) == 0 || raw[len(raw)-1] != 0 {
		return raw, false, ErrStringNotNulTerminated
	}
	return raw[:len(raw)-1], false, nil
}

// Array reads a length-prefixed, 4-padded raw byte array.
func (r *ArgReader) Array() ([]byte, error) {
	length, err := r.Uint()
	if err != nil {
		return nil, err
	}
	if length > uint32(r.remaining()) {
		return nil, ErrLengthExceedsFrame
	}
	raw, err := r.take(int(length))
	if err != nil {
		return nil, err
	}
	if _, err := r.take(padded(int(length)) - int(length)); err != nil {
		return nil, err
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, nil
}

// ObjectID reads a 4-byte object id; 0 denotes null.
func (r *ArgReader) ObjectID() (uint32, error) {
	return r.Uint()
}

// NewIDStatic reads a 4-byte new_id for a statically-known interface.
func (r *ArgReader) NewIDStatic() (uint32, error) {
	return r.Uint()
}

// NewIDDynamic reads interface-name, version, id for a dynamic-
// interface new_id (used only by wl_registry.bind).
func (r *ArgReader) NewIDDynamic() (interfaceName string, version uint32, id uint32, err error) {
	nameBytes, isNull, err := r.String()
	if err != nil {
		return "", 0, 0, err
	}
	if isNull {
		return "", 0, 0, ErrShortPayload
	}
	version, err = r.Uint()
	if err != nil {
		return "", 0, 0, err
	}
	id, err = r.Uint()
	if err != nil {
		return "", 0, 0, err
	}
	return string(nameBytes), version, id, nil
}

// Fd pops the next out-of-band file descriptor.
func (r *ArgReader) Fd() (int, error) {
	if r.fdPos >= len(r.fds) {
		return 0, ErrMissingFd
	}
	fd := r.fds[r.fdPos]
	r.fdPos++
	return fd, nil
}

// ArgWriter assembles a payload byte vector and fd vector from a
// sequence of dynamic argument values.
type ArgWriter struct {
	payload []byte
	fds     []int
}

// NewArgWriter returns an empty writer.
func NewArgWriter() *ArgWriter {
	return &ArgWriter{}
}

func (w *ArgWriter) putUint32(v uint32) {
	var b [4]byte
	nativeEndian.PutUint32(b[:], v)
	w.payload = append(w.payload, b[:]...)
}

// PutInt appends a plain 4-byte signed integer.
func (w *ArgWriter) PutInt(v int32) {
	w.putUint32(uint32(v))
}

// PutUint appends a plain 4-byte unsigned integer.
func (w *ArgWriter) PutUint(v uint32) {
	w.putUint32(v)
}

// PutFixed appends a raw 24.8 fixed-point word.
func (w *ArgWriter) PutFixed(v Fixed) {
	w.putUint32(uint32(v))
}

// PutString appends a length-prefixed, NUL-terminated, 4-padded
// string. isNull writes a zero length prefix and nothing else.
func (w *ArgWriter) PutString(b []byte, isNull bool) error {
	if isNull {
		w.putUint32(0)
		return nil
	}
	length := len(b) + 1 // account for trailing NUL
	if uint64(length) > math.MaxUint32 {
		return ErrArrayTooLong
	}
	w.putUint32(uint32(length))
	w.payload = append(w.payload, b...)
	w.payload = append(w.payload, 0)
	for i := length; i < padded(length); i++ {
		w.payload = append(w.payload, 0)
	}
	return nil
}

// PutArray appends a length-prefixed, 4-padded raw byte array.
func (w *ArgWriter) PutArray(b []byte) error {
	if uint64(len(b)) > math.MaxUint32 {
		return ErrArrayTooLong
	}
	w.putUint32(uint32(len(b)))
	w.payload = append(w.payload, b...)
	for i := len(b); i < padded(len(b)); i++ {
		w.payload = append(w.payload, 0)
	}
	return nil
}

// PutObject appends a 4-byte object id (0 for null).
func (w *ArgWriter) PutObject(id uint32) {
	w.putUint32(id)
}

// PutNewIDStatic appends a 4-byte new_id for a statically-known
// interface.
func (w *ArgWriter) PutNewIDStatic(id uint32) {
	w.putUint32(id)
}

// PutNewIDDynamic appends interface-name, version, id for a dynamic-
// interface new_id.
func (w *ArgWriter) PutNewIDDynamic(interfaceName string, version, id uint32) error {
	if err := w.PutString([]byte(interfaceName), false); err != nil {
		return err
	}
	w.putUint32(version)
	w.putUint32(id)
	return nil
}

// PutFd queues an out-of-band file descriptor.
func (w *ArgWriter) PutFd(fd int) {
	w.fds = append(w.fds, fd)
}

// Finish returns the assembled payload and fd vector, failing if the
// total framed message size would exceed a u16.
func (w *ArgWriter) Finish() ([]byte, []int, error) {
	if HeaderSize+len(w.payload) > math.MaxUint16 {
		return nil, nil, ErrMessageTooLong
	}
	return w.payload, w.fds, nil
}
