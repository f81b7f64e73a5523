package wlscanner

import (
	"bytes"
	"fmt"
	"strings"
)

// enumRegistry maps a generated enum's Go name to whether it is a
// bitfield (selecting FromBits over FromUint32 at decode sites).
type enumRegistry map[string]bool

func buildEnumRegistry(p *Protocol) enumRegistry {
	reg := make(enumRegistry)
	for _, iface := range p.Interfaces {
		for _, e := range iface.Enums {
			reg[GoEnumName(iface.Name, e.Name)] = e.Bitfield
		}
	}
	return reg
}

// resolveEnumGoName resolves an <arg enum="..."> reference to its
// generated Go type name, defaulting to the enclosing interface when
// the reference carries no "other_interface." namespace.
func resolveEnumGoName(currentInterface, qualifiedEnum string) string {
	ns, name := splitEnumRef(qualifiedEnum)
	if ns == "" {
		ns = currentInterface
	}
	return GoEnumName(ns, name)
}

// messageModel is everything writeMessages needs to render one
// request or event: its XML name and argument list.
type messageModel struct {
	Name string
	Args []Arg
}

// writeMessages renders, for one (interface, side) pair, the
// per-message argument structs (skipped for zero-argument messages),
// the tagged sum-type struct carrying one optional field per variant,
// and the FromArgs/IntoArgs conversion functions (§4.7's message trait).
func writeMessages(w *bytes.Buffer, ifaceName, side string, opcodeConstPrefix string, msgs []messageModel, enums enumRegistry, needsDynamicNewID *bool) error {
	goIface := SnakeToCamel(ifaceName)
	sumTypeName := goIface + side

	for _, m := range msgs {
		if len(m.Args) == 0 {
			continue
		}
		structName := sumTypeName + SnakeToCamel(m.Name) + "Args"
		if err := writeArgsStruct(w, ifaceName, structName, m.Args, enums, needsDynamicNewID); err != nil {
			return fmt.Errorf("%s.%s: %w", ifaceName, m.Name, err)
		}
	}

	fmt.Fprintf(w, "\n// %s is the decoded argument payload for one %s %s, keyed by Opcode.\ntype %s struct {\n\tOpcode uint16\n", sumTypeName, ifaceName, strings.ToLower(side), sumTypeName)
	for _, m := range msgs {
		if len(m.Args) == 0 {
			continue
		}
		fmt.Fprintf(w, "\t%s %sArgs\n", SnakeToCamel(m.Name), sumTypeName+SnakeToCamel(m.Name))
	}
	fmt.Fprintf(w, "}\n")

	if err := writeFromArgs(w, ifaceName, sumTypeName, opcodeConstPrefix, msgs, enums, needsDynamicNewID); err != nil {
		return err
	}
	writeIntoArgs(w, sumTypeName, opcodeConstPrefix, msgs)
	return nil
}

func writeArgsStruct(w *bytes.Buffer, ifaceName, structName string, args []Arg, enums enumRegistry, needsDynamicNewID *bool) error {
	fmt.Fprintf(w, "\n// %s holds one message's decoded argument fields.\ntype %s struct {\n", structName, structName)
	for _, a := range args {
		typ, err := argFieldType(ifaceName, a, enums)
		if err != nil {
			return err
		}
		if a.Type == "new_id" && a.Interface == "" {
			*needsDynamicNewID = true
		}
		fmt.Fprintf(w, "\t%s %s\n", SnakeToCamel(a.Name), typ)
	}
	fmt.Fprintf(w, "}\n")
	return nil
}

func argFieldType(ifaceName string, a Arg, enums enumRegistry) (string, error) {
	switch a.Type {
	case "int", "uint":
		if a.Enum != "" {
			return resolveEnumGoName(ifaceName, a.Enum), nil
		}
		if a.Type == "int" {
			return "int32", nil
		}
		return "uint32", nil
	case "fixed":
		return "wire.Fixed", nil
	case "string":
		if a.AllowNull {
			return "*string", nil
		}
		return "string", nil
	case "array":
		return "[]byte", nil
	case "fd":
		return "int", nil
	case "object":
		return "object.ID", nil
	case "new_id":
		if a.Interface == "" {
			return "DynamicNewID", nil
		}
		return "object.ID", nil
	default:
		return "", fmt.Errorf("unknown argument type %q", a.Type)
	}
}

func writeFromArgs(w *bytes.Buffer, ifaceName, sumTypeName, opcodeConstPrefix string, msgs []messageModel, enums enumRegistry, needsDynamicNewID *bool) error {
	fmt.Fprintf(w, `
// %sFromArgs narrows opcode-dispatched, schema-decoded arguments into
// their typed %s variant, consuming them in schema order.
func %sFromArgs(opcode uint16, args []wire.Arg) (%s, error) {
	switch opcode {
`, sumTypeName, sumTypeName, sumTypeName, sumTypeName)

	for _, m := range msgs {
		constName := opcodeConstPrefix + SnakeToCamel(m.Name)
		fmt.Fprintf(w, "\tcase %s:\n", constName)
		if len(m.Args) == 0 {
			fmt.Fprintf(w, "\t\treturn %s{Opcode: opcode}, nil\n", sumTypeName)
			continue
		}
		argsStructName := sumTypeName + SnakeToCamel(m.Name) + "Args"
		fmt.Fprintf(w, "\t\tif len(args) != %d {\n\t\t\treturn %s{}, fmt.Errorf(\"%s: %s: expected %d arguments, got %%d\", len(args))\n\t\t}\n", len(m.Args), sumTypeName, ifaceName, m.Name, len(m.Args))
		fmt.Fprintf(w, "\t\tvar v %s\n", argsStructName)
		if hasEnumField(m.Args) {
			fmt.Fprintf(w, "\t\tvar err error\n")
		}
		for i, a := range m.Args {
			stmt, err := decodeFieldStmt(ifaceName, sumTypeName, a, i, enums)
			if err != nil {
				return fmt.Errorf("%s.%s arg %q: %w", ifaceName, m.Name, a.Name, err)
			}
			fmt.Fprintf(w, "\t\t%s\n", stmt)
		}
		fmt.Fprintf(w, "\t\treturn %s{Opcode: opcode, %s: v}, nil\n", sumTypeName, SnakeToCamel(m.Name))
	}

	fmt.Fprintf(w, `	default:
		return %s{}, fmt.Errorf("%s: unknown opcode %%d", opcode)
	}
}
`, sumTypeName, ifaceName)
	return nil
}

// hasEnumField reports whether any argument in args decodes through an
// enum constructor, which needs a shared err variable in FromArgs.
func hasEnumField(args []Arg) bool {
	for _, a := range args {
		if (a.Type == "int" || a.Type == "uint") && a.Enum != "" {
			return true
		}
	}
	return false
}

func decodeFieldStmt(ifaceName, sumTypeName string, a Arg, i int, enums enumRegistry) (string, error) {
	field := SnakeToCamel(a.Name)
	arg := fmt.Sprintf("args[%d]", i)
	switch a.Type {
	case "int":
		if a.Enum != "" {
			goName := resolveEnumGoName(ifaceName, a.Enum)
			fn := goName + "FromUint32"
			if enums[goName] {
				fn = goName + "FromBits"
			}
			return fmt.Sprintf("v.%s, err = %s(uint32(%s.Int))\n\t\tif err != nil {\n\t\t\treturn %s{}, err\n\t\t}", field, fn, arg, sumTypeName), nil
		}
		return fmt.Sprintf("v.%s = %s.Int", field, arg), nil
	case "uint":
		if a.Enum != "" {
			goName := resolveEnumGoName(ifaceName, a.Enum)
			fn := goName + "FromUint32"
			if enums[goName] {
				fn = goName + "FromBits"
			}
			return fmt.Sprintf("v.%s, err = %s(%s.Uint)\n\t\tif err != nil {\n\t\t\treturn %s{}, err\n\t\t}", field, fn, arg, sumTypeName), nil
		}
		return fmt.Sprintf("v.%s = %s.Uint", field, arg), nil
	case "fixed":
		return fmt.Sprintf("v.%s = %s.Fixed", field, arg), nil
	case "string":
		if a.AllowNull {
			return fmt.Sprintf("if !%s.IsNull {\n\t\t\ts := string(%s.Bytes)\n\t\t\tv.%s = &s\n\t\t}", arg, arg, field), nil
		}
		return fmt.Sprintf("v.%s = string(%s.Bytes)", field, arg), nil
	case "array":
		return fmt.Sprintf("v.%s = %s.Bytes", field, arg), nil
	case "fd":
		return fmt.Sprintf("v.%s = %s.Fd", field, arg), nil
	case "object":
		return fmt.Sprintf("v.%s = object.ID(%s.Object)", field, arg), nil
	case "new_id":
		if a.Interface == "" {
			return fmt.Sprintf("v.%s = DynamicNewID{Interface: %s.NewIDInterface, Version: %s.NewIDVersion, ID: object.ID(%s.NewID)}", field, arg, arg, arg), nil
		}
		return fmt.Sprintf("v.%s = object.ID(%s.NewID)", field, arg), nil
	default:
		return "", fmt.Errorf("unknown argument type %q", a.Type)
	}
}

func writeIntoArgs(w *bytes.Buffer, sumTypeName, opcodeConstPrefix string, msgs []messageModel) {
	fmt.Fprintf(w, `
// IntoArgs renders v back into wire-ready dynamic arguments, the
// mirror of %sFromArgs.
func (v %s) IntoArgs() []wire.Arg {
	switch v.Opcode {
`, sumTypeName, sumTypeName)

	for _, m := range msgs {
		constName := opcodeConstPrefix + SnakeToCamel(m.Name)
		fmt.Fprintf(w, "\tcase %s:\n", constName)
		if len(m.Args) == 0 {
			fmt.Fprintf(w, "\t\treturn nil\n")
			continue
		}
		field := SnakeToCamel(m.Name)
		fmt.Fprintf(w, "\t\treturn []wire.Arg{\n")
		for _, a := range m.Args {
			fmt.Fprintf(w, "\t\t\t%s,\n", encodeFieldExpr("v."+field, a))
		}
		fmt.Fprintf(w, "\t\t}\n")
	}
	fmt.Fprintf(w, "\tdefault:\n\t\treturn nil\n\t}\n}\n")
}

func encodeFieldExpr(structExpr string, a Arg) string {
	field := structExpr + "." + SnakeToCamel(a.Name)
	switch a.Type {
	case "int":
		if a.Enum != "" {
			return fmt.Sprintf("wire.Arg{Kind: wire.KindInt, Int: int32(%s)}", field)
		}
		return fmt.Sprintf("wire.Arg{Kind: wire.KindInt, Int: %s}", field)
	case "uint":
		if a.Enum != "" {
			return fmt.Sprintf("wire.Arg{Kind: wire.KindUint, Uint: uint32(%s)}", field)
		}
		return fmt.Sprintf("wire.Arg{Kind: wire.KindUint, Uint: %s}", field)
	case "fixed":
		return fmt.Sprintf("wire.Arg{Kind: wire.KindFixed, Fixed: %s}", field)
	case "string":
		if a.AllowNull {
			return fmt.Sprintf("stringArg(%s)", field)
		}
		return fmt.Sprintf("wire.Arg{Kind: wire.KindString, Bytes: []byte(%s)}", field)
	case "array":
		return fmt.Sprintf("wire.Arg{Kind: wire.KindArray, Bytes: %s}", field)
	case "fd":
		return fmt.Sprintf("wire.Arg{Kind: wire.KindFd, Fd: %s}", field)
	case "object":
		return fmt.Sprintf("wire.Arg{Kind: wire.KindObject, Object: uint32(%s)}", field)
	case "new_id":
		if a.Interface == "" {
			return fmt.Sprintf("wire.Arg{Kind: wire.KindNewIDDynamic, NewIDInterface: %s.Interface, NewIDVersion: %s.Version, NewID: uint32(%s.ID)}", field, field, field)
		}
		return fmt.Sprintf("wire.Arg{Kind: wire.KindNewID, NewID: uint32(%s)}", field)
	default:
		return fmt.Sprintf("/* unknown argument type %q */", a.Type)
	}
}
