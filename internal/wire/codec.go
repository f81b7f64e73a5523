package wire

// DecodeArgs parses payload/fds into a dynamic argument vector driven
// by schema, in schema order. This is the Reader contract of §4.1.
func DecodeArgs(schema []ArgumentDesc, payload []byte, fds []int) ([]Arg, error) {
	r := NewArgReader(payload, fds)
	args := make([]Arg, 0, len(schema))
	for _, desc := range schema {
		arg, err := decodeOne(r, desc)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	return args, nil
}

func decodeOne(r *ArgReader, desc ArgumentDesc) (Arg, error) {
	switch desc.Type {
	case Int:
		v, err := r.Int()
		return Arg{Kind: KindInt, Int: v}, err
	case Uint:
		v, err := r.Uint()
		return Arg{Kind: KindUint, Uint: v}, err
	case Fixed24_8:
		v, err := r.FixedVal()
		return Arg{Kind: KindFixed, Fixed: v}, err
	case String:
		b, isNull, err := r.String()
		if err != nil && err != ErrStringNotNulTerminated {
			return Arg{}, err
		}
		if isNull && !desc.Nullable {
			return Arg{}, ErrShortPayload
		}
		return Arg{Kind: KindString, Bytes: b, IsNull: isNull}, nil
	case Array:
		b, err := r.Array()
		return Arg{Kind: KindArray, Bytes: b}, err
	case Object:
		id, err := r.ObjectID()
		if err != nil {
			return Arg{}, err
		}
		if id == 0 && !desc.Nullable {
			return Arg{}, ErrShortPayload
		}
		return Arg{Kind: KindObject, Object: id}, nil
	case NewID:
		if desc.Interface == "" {
			name, version, id, err := r.NewIDDynamic()
			return Arg{Kind: KindNewIDDynamic, NewIDInterface: name, NewIDVersion: version, NewID: id}, err
		}
		id, err := r.NewIDStatic()
		return Arg{Kind: KindNewID, NewID: id}, err
	case Fd:
		fd, err := r.Fd()
		return Arg{Kind: KindFd, Fd: fd}, err
	default:
		return Arg{}, ErrInvalidFraming
	}
}

// EncodeArgs serializes a dynamic argument vector produced in schema
// order back into a payload byte vector and fd vector. This is the
// Writer contract of §4.1.
func EncodeArgs(schema []ArgumentDesc, args []Arg) ([]byte, []int, error) {
	if len(schema) != len(args) {
		return nil, nil, ErrShortPayload
	}
	w := NewArgWriter()
	for i, desc := range schema {
		if err := encodeOne(w, desc, args[i]); err != nil {
			return nil, nil, err
		}
	}
	return w.Finish()
}

func encodeOne(w *ArgWriter, desc ArgumentDesc, arg Arg) error {
	switch desc.Type {
	case Int:
		w.PutInt(arg.Int)
	case Uint:
		w.PutUint(arg.Uint)
	case Fixed24_8:
		w.PutFixed(arg.Fixed)
	case String:
		return w.PutString(arg.Bytes, arg.IsNull)
	case Array:
		return w.PutArray(arg.Bytes)
	case Object:
		w.PutObject(arg.Object)
	case NewID:
		if desc.Interface == "" {
			return w.PutNewIDDynamic(arg.NewIDInterface, arg.NewIDVersion, arg.NewID)
		}
		w.PutNewIDStatic(arg.NewID)
	case Fd:
		w.PutFd(arg.Fd)
	default:
		return ErrInvalidFraming
	}
	return nil
}

// EncodeMessage frames a fully-encoded payload with the given sender
// and opcode, failing if the total size would exceed a u16.
func EncodeMessage(sender uint32, opcode uint16, payload []byte) ([]byte, error) {
	size := HeaderSize + len(payload)
	if size > 0xFFFF {
		return nil, ErrMessageTooLong
	}
	h := EncodeHeader(Header{Sender: sender, Opcode: opcode, Size: uint16(size)})
	return append(h, payload...), nil
}
