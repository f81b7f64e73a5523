// Package wlscanner parses Wayland protocol XML descriptions and
// generates Go bindings in the layout of the hand-authored ones under
// protocol/ (§4.7): per-interface
// opcode constants, argument schemas, enum types, and a *proto.Interface
// value ready for Registry.Register.
//
// Grounded on wl_scanner/src/scanner.rs's two-pass (XML tree, then
// descriptor) design, collapsed into Go's single-pass encoding/xml
// struct-tag decoding, in the shape of the other_examples wl-scanner
// ports (malcolmstill/wl-scanner, dkolbly/wl-scanner).
package wlscanner

import "encoding/xml"

// Protocol is the root <protocol> element: a named collection of
// interfaces plus the mandatory copyright notice.
type Protocol struct {
	XMLName    xml.Name    `xml:"protocol"`
	Name       string      `xml:"name,attr"`
	Copyright  string      `xml:"copyright"`
	Interfaces []Interface `xml:"interface"`
}

// Description is the optional <description> child carried by most
// elements; Body is the free-text content, Summary the one-line attribute.
type Description struct {
	Summary string `xml:"summary,attr"`
	Body    string `xml:",chardata"`
}

// Interface is one <interface>: its declared requests and events in
// XML declaration order (opcode assignment, §4.2) plus any enums.
type Interface struct {
	Name        string      `xml:"name,attr"`
	Version     uint32      `xml:"version,attr"`
	Description Description `xml:"description"`
	Requests    []Request   `xml:"request"`
	Events      []Event     `xml:"event"`
	Enums       []Enum      `xml:"enum"`
}

// Request is a <request>: type="destructor" marks it as the interface's
// destructor request (§4.7 glossary).
type Request struct {
	Name        string      `xml:"name,attr"`
	Type        string      `xml:"type,attr"`
	Since       uint32      `xml:"since,attr"`
	Description Description `xml:"description"`
	Args        []Arg       `xml:"arg"`
}

// Event is an <event>, argument-schema identical to Request.
type Event struct {
	Name        string      `xml:"name,attr"`
	Since       uint32      `xml:"since,attr"`
	Description Description `xml:"description"`
	Args        []Arg       `xml:"arg"`
}

// Arg is one <arg>: Type is the raw Wayland type name ("int", "uint",
// "fixed", "string", "object", "new_id", "array", "fd"); Interface is
// present for a statically-typed object/new_id; Enum, when non-empty,
// names the enum this argument's value is drawn from, optionally
// qualified as "other_interface.enum_name".
type Arg struct {
	Name      string `xml:"name,attr"`
	Type      string `xml:"type,attr"`
	Interface string `xml:"interface,attr"`
	Enum      string `xml:"enum,attr"`
	AllowNull bool   `xml:"allow-null,attr"`
	Summary   string `xml:"summary,attr"`
}

// Enum is an <enum>: Bitfield selects the bitflag rendering (§4.7 rule
// (b)) over the plain closed-set rendering (rule (a)).
type Enum struct {
	Name        string      `xml:"name,attr"`
	Bitfield    bool        `xml:"bitfield,attr"`
	Description Description `xml:"description"`
	Entries     []Entry     `xml:"entry"`
}

// Entry is one <entry> of an enum, its Value in decimal or 0x-prefixed
// hex (ParseEntryValue handles both).
type Entry struct {
	Name    string `xml:"name,attr"`
	Value   string `xml:"value,attr"`
	Summary string `xml:"summary,attr"`
}

// IsDestructor reports whether this request is declared type="destructor".
func (r Request) IsDestructor() bool { return r.Type == "destructor" }
