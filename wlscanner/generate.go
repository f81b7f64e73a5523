package wlscanner

import (
	"bytes"
	"fmt"
	"go/format"
	"strings"
	"text/template"

	"github.com/kryptco/wlserver/internal/wire"
)

// wireTypeIdents names the wire.ArgumentType constant for each value,
// for rendering a generated ArgumentDesc literal's Type field.
var wireTypeIdents = map[wire.ArgumentType]string{
	wire.Int:       "Int",
	wire.Uint:      "Uint",
	wire.Fixed24_8: "Fixed24_8",
	wire.String:    "String",
	wire.Object:    "Object",
	wire.NewID:     "NewID",
	wire.Array:     "Array",
	wire.Fd:        "Fd",
}

// Generate renders the Go source for every interface in p into a
// single file in package packageName, in the shape hand-authored
// under protocol/ (builtin.go, demo.go): opcode constants, enum
// types with checked conversions, *proto.Interface schema values, and
// a RegisterInterfaces function.
func Generate(p *Protocol, packageName string) ([]byte, error) {
	var unitTypes, enums, opcodes, interfaces, messages bytes.Buffer
	var varNames []string
	needsObject := false
	needsDynamicNewID := false

	enumReg := buildEnumRegistry(p)

	for _, iface := range p.Interfaces {
		goName := SnakeToCamel(iface.Name)
		fmt.Fprintf(&unitTypes, "\t%s struct{}\n", goName)

		if err := writeEnums(&enums, iface); err != nil {
			return nil, err
		}
		if err := writeOpcodes(&opcodes, iface); err != nil {
			return nil, err
		}
		varName, err := writeInterface(&interfaces, iface)
		if err != nil {
			return nil, err
		}
		varNames = append(varNames, varName)

		goIface := SnakeToCamel(iface.Name)
		reqMsgs := requestsToMessages(iface.Requests)
		evtMsgs := eventsToMessages(iface.Events)
		if err := writeMessages(&messages, iface.Name, "Request", goIface+"Request", reqMsgs, enumReg, &needsDynamicNewID); err != nil {
			return nil, err
		}
		if err := writeMessages(&messages, iface.Name, "Event", goIface+"Event", evtMsgs, enumReg, &needsDynamicNewID); err != nil {
			return nil, err
		}
		if interfaceUsesObjectIDs(iface) {
			needsObject = true
		}
	}
	if needsDynamicNewID {
		needsObject = true
	}

	data := fileData{
		SourceName:         p.Name,
		Package:            packageName,
		Imports:            renderImports(needsObject),
		NeedsObjectGuard:   needsObject,
		NeedsDynamicNewID:  needsDynamicNewID,
		UnitTypes:          unitTypes.String(),
		Enums:              enums.String(),
		Opcodes:            opcodes.String(),
		Interfaces:         interfaces.String(),
		Messages:           messages.String(),
		InterfaceVarNames:  varNames,
	}

	var buf bytes.Buffer
	if err := fileTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("wlscanner: render template: %w", err)
	}

	out, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("wlscanner: gofmt generated source: %w", err)
	}
	return out, nil
}

func requestsToMessages(rs []Request) []messageModel {
	out := make([]messageModel, len(rs))
	for i, r := range rs {
		out[i] = messageModel{Name: r.Name, Args: r.Args}
	}
	return out
}

func eventsToMessages(es []Event) []messageModel {
	out := make([]messageModel, len(es))
	for i, e := range es {
		out[i] = messageModel{Name: e.Name, Args: e.Args}
	}
	return out
}

func renderImports(needsObject bool) string {
	var b strings.Builder
	b.WriteString("import (\n\t\"errors\"\n\t\"fmt\"\n\n")
	if needsObject {
		b.WriteString("\t\"github.com/kryptco/wlserver/internal/object\"\n")
	}
	b.WriteString("\t\"github.com/kryptco/wlserver/internal/proto\"\n\t\"github.com/kryptco/wlserver/internal/wire\"\n)")
	return b.String()
}

func interfaceUsesObjectIDs(iface Interface) bool {
	check := func(args []Arg) bool {
		for _, a := range args {
			if a.Type == "object" || a.Type == "new_id" {
				return true
			}
		}
		return false
	}
	for _, r := range iface.Requests {
		if check(r.Args) {
			return true
		}
	}
	for _, e := range iface.Events {
		if check(e.Args) {
			return true
		}
	}
	return false
}

type fileData struct {
	SourceName        string
	Package           string
	Imports           string
	NeedsObjectGuard  bool
	NeedsDynamicNewID bool
	UnitTypes         string
	Enums             string
	Opcodes           string
	Interfaces        string
	Messages          string
	InterfaceVarNames []string
}

var fileTemplate = template.Must(template.New("protocol").Parse(`// Code generated by wlscanner from {{.SourceName}}.xml. DO NOT EDIT.

package {{.Package}}

{{.Imports}}

// ErrInvalidEnumValue is returned by the Xxx FromUint32/FromBits
// conversions below when the wire carries a value outside the
// declared set.
var ErrInvalidEnumValue = errors.New("{{.Package}}: invalid enum value")

{{if .NeedsObjectGuard}}var _ object.ID
{{end}}
{{if .NeedsDynamicNewID}}// DynamicNewID carries a bind-time interface identity for a new_id
// argument with no statically known interface (wl_registry.bind and
// its protocol-specific analogues).
type DynamicNewID struct {
	Interface string
	Version   uint32
	ID        object.ID
}
{{end}}

// stringArg renders a nullable string field as a wire.Arg, a null
// pointer becoming a null string on the wire.
func stringArg(s *string) wire.Arg {
	if s == nil {
		return wire.Arg{Kind: wire.KindString, IsNull: true}
	}
	return wire.Arg{Kind: wire.KindString, Bytes: []byte(*s)}
}

type (
{{.UnitTypes}})
{{.Enums}}
{{.Opcodes}}
{{.Interfaces}}
{{.Messages}}
// RegisterInterfaces adds every interface generated from {{.SourceName}}.xml to reg.
func RegisterInterfaces(reg *proto.Registry) {
	for _, iface := range []*proto.Interface{
{{range .InterfaceVarNames}}		{{.}},
{{end}}	} {
		reg.Register(iface)
	}
}
`))

func writeEnums(w *bytes.Buffer, iface Interface) error {
	for _, e := range iface.Enums {
		goName := GoEnumName(iface.Name, e.Name)
		fmt.Fprintf(w, "\n// %s is generated from %s.%s.\ntype %s uint32\n\nconst (\n", goName, iface.Name, e.Name, goName)
		for _, entry := range e.Entries {
			v, err := ParseEntryValue(entry.Value)
			if err != nil {
				return fmt.Errorf("wlscanner: %s.%s entry %q: %w", iface.Name, e.Name, entry.Name, err)
			}
			constName := goName + SanitizeEnumVariant(SnakeToCamel(entry.Name))
			fmt.Fprintf(w, "\t%s %s = %d\n", constName, goName, v)
		}
		fmt.Fprintf(w, ")\n")

		if e.Bitfield {
			writeBitfieldConversion(w, iface, e, goName)
		} else {
			writePlainEnumConversion(w, iface, e, goName)
		}
	}
	return nil
}

func writeBitfieldConversion(w *bytes.Buffer, iface Interface, e Enum, goName string) {
	var maskTerms []string
	for _, entry := range e.Entries {
		constName := goName + SanitizeEnumVariant(SnakeToCamel(entry.Name))
		maskTerms = append(maskTerms, "uint32("+constName+")")
	}
	mask := "0"
	if len(maskTerms) > 0 {
		mask = strings.Join(maskTerms, "|")
	}
	fmt.Fprintf(w, `
const %sAllBits = uint32(%s)

// %sFromBits converts a raw wire bitmask, failing if any bit outside
// the declared set is present.
func %sFromBits(v uint32) (%s, error) {
	if v&^%sAllBits != 0 {
		return 0, ErrInvalidEnumValue
	}
	return %s(v), nil
}
`, goName, mask, goName, goName, goName, goName, goName)
}

func writePlainEnumConversion(w *bytes.Buffer, iface Interface, e Enum, goName string) {
	fmt.Fprintf(w, `
// %sFromUint32 converts a raw wire value, failing on a value outside
// the declared set.
func %sFromUint32(v uint32) (%s, error) {
	switch %s(v) {
	case `, goName, goName, goName, goName)
	for i, entry := range e.Entries {
		if i > 0 {
			w.WriteString(", ")
		}
		w.WriteString(goName + SanitizeEnumVariant(SnakeToCamel(entry.Name)))
	}
	fmt.Fprintf(w, `:
		return %s(v), nil
	default:
		return 0, ErrInvalidEnumValue
	}
}
`, goName)
}

func writeOpcodes(w *bytes.Buffer, iface Interface) error {
	goIface := SnakeToCamel(iface.Name)
	if len(iface.Requests) > 0 {
		fmt.Fprintf(w, "\nconst (\n")
		for i, r := range iface.Requests {
			fmt.Fprintf(w, "\t%sRequest%s uint16 = %d\n", goIface, SnakeToCamel(r.Name), i)
		}
		fmt.Fprintf(w, ")\n")
	}
	if len(iface.Events) > 0 {
		fmt.Fprintf(w, "\nconst (\n")
		for i, e := range iface.Events {
			fmt.Fprintf(w, "\t%sEvent%s uint16 = %d\n", goIface, SnakeToCamel(e.Name), i)
		}
		fmt.Fprintf(w, ")\n")
	}
	return nil
}

func writeInterface(w *bytes.Buffer, iface Interface) (string, error) {
	goIface := SnakeToCamel(iface.Name)
	varName := goIface + "Interface"

	fmt.Fprintf(w, "\n// %s is generated from the %s interface.\nvar %s = &proto.Interface{\n\tName:    %q,\n\tVersion: %d,\n", varName, iface.Name, varName, iface.Name, iface.Version)

	if len(iface.Requests) > 0 {
		fmt.Fprintf(w, "\tRequests: []proto.Schema{\n")
		for _, r := range iface.Requests {
			schema, err := renderSchema(r.Args)
			if err != nil {
				return "", fmt.Errorf("wlscanner: %s.%s: %w", iface.Name, r.Name, err)
			}
			fmt.Fprintf(w, "\t\t%sRequest%s: %s,\n", goIface, SnakeToCamel(r.Name), schema)
		}
		fmt.Fprintf(w, "\t},\n")
	}

	if len(iface.Events) > 0 {
		fmt.Fprintf(w, "\tEvents: []proto.Schema{\n")
		for _, e := range iface.Events {
			schema, err := renderSchema(e.Args)
			if err != nil {
				return "", fmt.Errorf("wlscanner: %s.%s: %w", iface.Name, e.Name, err)
			}
			fmt.Fprintf(w, "\t\t%sEvent%s: %s,\n", goIface, SnakeToCamel(e.Name), schema)
		}
		fmt.Fprintf(w, "\t},\n")
	}

	if hasDestructor(iface.Requests) {
		fmt.Fprintf(w, "\tDestructorRequest: []bool{")
		for i, r := range iface.Requests {
			if i > 0 {
				w.WriteString(", ")
			}
			if r.IsDestructor() {
				w.WriteString("true")
			} else {
				w.WriteString("false")
			}
		}
		fmt.Fprintf(w, "},\n")
	}

	fmt.Fprintf(w, "}\n")
	return varName, nil
}

func hasDestructor(requests []Request) bool {
	for _, r := range requests {
		if r.IsDestructor() {
			return true
		}
	}
	return false
}

func renderSchema(args []Arg) (string, error) {
	if len(args) == 0 {
		return "{}", nil
	}
	var parts []string
	for _, a := range args {
		part, err := renderArgDesc(a)
		if err != nil {
			return "", err
		}
		parts = append(parts, part)
	}
	return "{" + strings.Join(parts, ", ") + "}", nil
}

func renderArgDesc(a Arg) (string, error) {
	desc, err := ArgumentDesc(a)
	if err != nil {
		return "", err
	}
	var fields []string
	fields = append(fields, "Type: wire."+wireTypeIdents[desc.Type])
	if desc.Interface != "" {
		fields = append(fields, fmt.Sprintf("Interface: %q", desc.Interface))
	}
	if desc.Nullable {
		fields = append(fields, "Nullable: true")
	}
	return "{" + strings.Join(fields, ", ") + "}", nil
}
