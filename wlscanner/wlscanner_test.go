package wlscanner

import (
	"regexp"
	"strings"
	"testing"

	"github.com/kryptco/wlserver/internal/wire"
)

// collapseSpace normalizes gofmt's column-alignment padding (runs of
// spaces inserted to line up adjacent const/struct-field declarations)
// so generated-source assertions don't depend on sibling name lengths.
var spaceRun = regexp.MustCompile(`[ \t]+`)

func collapseSpace(s string) string {
	return spaceRun.ReplaceAllString(s, " ")
}

func TestSnakeToCamel(t *testing.T) {
	cases := map[string]string{
		"wl_surface":     "WlSurface",
		"create_surface": "CreateSurface",
		"destroy":        "Destroy",
		"":               "",
	}
	for in, want := range cases {
		if got := SnakeToCamel(in); got != want {
			t.Errorf("SnakeToCamel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeEnumVariant(t *testing.T) {
	if got := SanitizeEnumVariant("90"); got != "_90" {
		t.Errorf("got %q", got)
	}
	if got := SanitizeEnumVariant("normal"); got != "normal" {
		t.Errorf("got %q", got)
	}
}

func TestGoEnumName(t *testing.T) {
	if got := GoEnumName("wl_output", "transform"); got != "WlOutputTransform" {
		t.Errorf("got %q", got)
	}
}

// TestSanitizeEnumVariantSurvivesCamelCase locks in the composition
// order the generator actually uses: SanitizeEnumVariant runs after
// SnakeToCamel, not before, since SnakeToCamel would otherwise discard
// the leading underscore as an empty split segment.
func TestSanitizeEnumVariantSurvivesCamelCase(t *testing.T) {
	if got := SanitizeEnumVariant(SnakeToCamel("90")); got != "_90" {
		t.Errorf("got %q, want %q", got, "_90")
	}
	if got := SnakeToCamel(SanitizeEnumVariant("90")); got == "_90" {
		t.Fatal("SnakeToCamel after SanitizeEnumVariant should strip the underscore back out (composition-order regression check)")
	}
}

func TestParseEntryValue(t *testing.T) {
	cases := map[string]uint32{
		"0":      0,
		"10":     10,
		"0x10":   16,
		"0X1F":   31,
		"0xFFFF": 0xFFFF,
	}
	for in, want := range cases {
		got, err := ParseEntryValue(in)
		if err != nil {
			t.Errorf("ParseEntryValue(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseEntryValue(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestSplitEnumRef(t *testing.T) {
	ns, name := splitEnumRef("wl_output.transform")
	if ns != "wl_output" || name != "transform" {
		t.Errorf("got ns=%q name=%q", ns, name)
	}
	ns, name = splitEnumRef("transform")
	if ns != "" || name != "transform" {
		t.Errorf("got ns=%q name=%q", ns, name)
	}
}

func TestArgWireType(t *testing.T) {
	typ, err := ArgWireType(Arg{Type: "fixed"})
	if err != nil || typ != wire.Fixed24_8 {
		t.Fatalf("got %v, %v", typ, err)
	}
	if _, err := ArgWireType(Arg{Type: "bogus"}); err == nil {
		t.Fatal("expected an error for an unknown argument type")
	}
}

func TestSchemaConvertsArgList(t *testing.T) {
	args := []Arg{
		{Name: "x", Type: "int"},
		{Name: "target", Type: "object", Interface: "wl_surface", AllowNull: true},
	}
	schema, err := Schema(args)
	if err != nil {
		t.Fatal(err)
	}
	if len(schema) != 2 {
		t.Fatalf("expected 2 schema elements, got %d", len(schema))
	}
	if schema[1].Type != wire.Object || schema[1].Interface != "wl_surface" || !schema[1].Nullable {
		t.Fatalf("got %+v", schema[1])
	}
}

const fixtureXML = `<?xml version="1.0" encoding="UTF-8"?>
<protocol name="demo_gen">
  <copyright>Test fixture.</copyright>
  <interface name="demo_widget" version="2">
    <enum name="kind">
      <entry name="square" value="0"/>
      <entry name="circle" value="1"/>
      <entry name="90" value="2"/>
    </enum>
    <enum name="flags" bitfield="true">
      <entry name="visible" value="1"/>
      <entry name="focused" value="2"/>
    </enum>
    <request name="resize">
      <arg name="width" type="int"/>
      <arg name="height" type="int"/>
      <arg name="kind" type="uint" enum="kind"/>
    </request>
    <request name="bind_child">
      <arg name="id" type="new_id"/>
    </request>
    <request name="destroy" type="destructor">
    </request>
    <event name="moved">
      <arg name="x" type="fixed"/>
      <arg name="y" type="fixed"/>
      <arg name="label" type="string" allow-null="true"/>
    </event>
    <event name="state">
      <arg name="flags" type="uint" enum="flags"/>
    </event>
  </interface>
</protocol>
`

func TestParseFixture(t *testing.T) {
	p, err := Parse(strings.NewReader(fixtureXML))
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "demo_gen" {
		t.Fatalf("got protocol name %q", p.Name)
	}
	if len(p.Interfaces) != 1 {
		t.Fatalf("expected 1 interface, got %d", len(p.Interfaces))
	}
	iface := p.Interfaces[0]
	if iface.Name != "demo_widget" || iface.Version != 2 {
		t.Fatalf("got %+v", iface)
	}
	if len(iface.Requests) != 3 || len(iface.Events) != 2 || len(iface.Enums) != 2 {
		t.Fatalf("got %d requests, %d events, %d enums", len(iface.Requests), len(iface.Events), len(iface.Enums))
	}
	if !iface.Requests[2].IsDestructor() {
		t.Fatal("expected the third request (destroy) to be a destructor")
	}
}

func TestParseRejectsMissingProtocolName(t *testing.T) {
	_, err := Parse(strings.NewReader(`<protocol><interface name="x" version="1"/></protocol>`))
	if err != ErrNoProtocolName {
		t.Fatalf("expected ErrNoProtocolName, got %v", err)
	}
}

func TestGenerateProducesExpectedSymbols(t *testing.T) {
	p, err := Parse(strings.NewReader(fixtureXML))
	if err != nil {
		t.Fatal(err)
	}
	out, err := Generate(p, "demogen")
	if err != nil {
		t.Fatal(err)
	}
	src := collapseSpace(string(out))

	for _, want := range []string{
		"package demogen",
		"DemoWidgetKind uint32",
		"DemoWidgetKindSquare DemoWidgetKind = 0",
		"DemoWidgetKindCircle DemoWidgetKind = 1",
		"DemoWidgetKind_90 DemoWidgetKind = 2",
		"func DemoWidgetKindFromUint32(v uint32) (DemoWidgetKind, error)",
		"DemoWidgetFlags uint32",
		"func DemoWidgetFlagsFromBits(v uint32) (DemoWidgetFlags, error)",
		"DemoWidgetRequestResize uint16 = 0",
		"DemoWidgetRequestBindChild uint16 = 1",
		"DemoWidgetRequestDestroy uint16 = 2",
		"DemoWidgetEventMoved uint16 = 0",
		"DemoWidgetEventState uint16 = 1",
		"DestructorRequest: []bool{false, false, true}",
		"type DemoWidgetRequestResizeArgs struct",
		"type DemoWidgetRequest struct",
		"func DemoWidgetRequestFromArgs(opcode uint16, args []wire.Arg) (DemoWidgetRequest, error)",
		"func (v DemoWidgetEvent) IntoArgs() []wire.Arg",
		"DynamicNewID",
		"func RegisterInterfaces(reg *proto.Registry)",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("generated source missing %q\n--- source ---\n%s", want, src)
		}
	}
}

func TestGenerateOmitsObjectImportWhenUnneeded(t *testing.T) {
	p, err := Parse(strings.NewReader(`<protocol name="no_objects">
  <copyright>c</copyright>
  <interface name="pure_scalar" version="1">
    <request name="set_value">
      <arg name="v" type="int"/>
    </request>
  </interface>
</protocol>`))
	if err != nil {
		t.Fatal(err)
	}
	out, err := Generate(p, "noobjects")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(out), "internal/object") {
		t.Errorf("expected no internal/object import when no interface uses object/new_id args:\n%s", out)
	}
}
