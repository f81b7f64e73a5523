package wlscanner

import (
	"fmt"

	"github.com/kryptco/wlserver/internal/wire"
)

// ArgWireType maps an XML <arg type="..."> attribute to its wire
// ArgumentType. A "new_id" arg with no interface attribute is the
// dynamic-interface form (wl_registry.bind); ArgumentDesc reports it
// with an empty Interface field, matching the codec's dynamic/static
// distinction (§4.1, §4.7).
func ArgWireType(a Arg) (wire.ArgumentType, error) {
	switch a.Type {
	case "int":
		return wire.Int, nil
	case "uint":
		return wire.Uint, nil
	case "fixed":
		return wire.Fixed24_8, nil
	case "string":
		return wire.String, nil
	case "object":
		return wire.Object, nil
	case "new_id":
		return wire.NewID, nil
	case "array":
		return wire.Array, nil
	case "fd":
		return wire.Fd, nil
	default:
		return 0, fmt.Errorf("wlscanner: unknown argument type %q", a.Type)
	}
}

// ArgumentDesc converts an XML <arg> into the wire schema element the
// codec consumes.
func ArgumentDesc(a Arg) (wire.ArgumentDesc, error) {
	t, err := ArgWireType(a)
	if err != nil {
		return wire.ArgumentDesc{}, err
	}
	return wire.ArgumentDesc{
		Type:      t,
		Interface: a.Interface,
		Nullable:  a.AllowNull,
	}, nil
}

// Schema converts an ordered argument list into a full schema,
// matching proto.Schema's element type.
func Schema(args []Arg) ([]wire.ArgumentDesc, error) {
	out := make([]wire.ArgumentDesc, len(args))
	for i, a := range args {
		d, err := ArgumentDesc(a)
		if err != nil {
			return nil, fmt.Errorf("arg %q: %w", a.Name, err)
		}
		out[i] = d
	}
	return out, nil
}

// splitEnumRef splits an <arg enum="..."> value into its optional
// "other_interface" namespace and bare enum name.
func splitEnumRef(qualifiedEnum string) (namespace, name string) {
	for i := len(qualifiedEnum) - 1; i >= 0; i-- {
		if qualifiedEnum[i] == '.' {
			return qualifiedEnum[:i], qualifiedEnum[i+1:]
		}
	}
	return "", qualifiedEnum
}
