// Package model defines the canonical object model shared by the normalizer,
// the indexed store, the reference resolver and the query facade.
//
// Objects are built once during ingestion and treated as immutable afterwards.
// Readers may hold pointers to them across requests.
package model

import (
	"fmt"
	"strings"
)

// ObjectType is the closed set of object categories
type ObjectType string

const (
	TypeTable         ObjectType = "Table"
	TypePage          ObjectType = "Page"
	TypeCodeunit      ObjectType = "Codeunit"
	TypeReport        ObjectType = "Report"
	TypeQuery         ObjectType = "Query"
	TypeXmlPort       ObjectType = "XmlPort"
	TypeEnum          ObjectType = "Enum"
	TypeInterface     ObjectType = "Interface"
	TypePermissionSet ObjectType = "PermissionSet"
	TypeControlAddIn  ObjectType = "ControlAddIn"
)

// ObjectTypes lists every object type in canonical order.
var ObjectTypes = []ObjectType{
	TypeTable,
	TypePage,
	TypeCodeunit,
	TypeReport,
	TypeQuery,
	TypeXmlPort,
	TypeEnum,
	TypeInterface,
	TypePermissionSet,
	TypeControlAddIn,
}

// ParseObjectType resolves a type name case-insensitively
func ParseObjectType(s string) (ObjectType, error) {
	for _, t := range ObjectTypes {
		if strings.EqualFold(string(t), s) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown object type: %q", s)
}

// Ordinal returns the position of the type in ObjectTypes, used for stable ordering
func (t ObjectType) Ordinal() int {
	for i, ot := range ObjectTypes {
		if ot == t {
			return i
		}
	}
	return len(ObjectTypes)
}

// Package identifies one loaded package
type Package struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Publisher string `json:"publisher,omitempty"`
	AppID     string `json:"appId,omitempty"`
	Path      string `json:"path,omitempty"`
}

// String renders the package as "Name (Version)"
func (p Package) String() string {
	if p.Version == "" {
		return p.Name
	}
	return p.Name + " (" + p.Version + ")"
}

// Property is a single name/value pair in source order
type Property struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// TypeRef describes a declared data type such as `Record Customer` or `Code[20]`
type TypeRef struct {
	Name      string `json:"name"`
	Subtype   string `json:"subtype,omitempty"`
	SubtypeID int    `json:"subtypeId,omitempty"`
	Length    int    `json:"length,omitempty"`
	Temporary bool   `json:"temporary,omitempty"`
}

// String formats the type the way it is written in source
func (t TypeRef) String() string {
	var b strings.Builder
	b.WriteString(t.Name)
	if t.Length > 0 {
		fmt.Fprintf(&b, "[%d]", t.Length)
	}
	if t.Subtype != "" {
		b.WriteByte(' ')
		b.WriteString(quoteIdent(t.Subtype))
	}
	if t.Temporary {
		b.WriteString(" temporary")
	}
	return b.String()
}

// References reports whether the type points at the named object
func (t TypeRef) References(name string) bool {
	return t.Subtype != "" && strings.EqualFold(t.Subtype, name)
}

// Field is a table field
type Field struct {
	ID         int        `json:"id"`
	Name       string     `json:"name"`
	Type       TypeRef    `json:"type"`
	Properties []Property `json:"properties,omitempty"`
}

// Key is a table key
type Key struct {
	Name       string     `json:"name"`
	Fields     []string   `json:"fields"`
	Properties []Property `json:"properties,omitempty"`
}

// Control is a node of a page control tree
type Control struct {
	ID         int        `json:"id,omitempty"`
	Name       string     `json:"name"`
	Kind       string     `json:"kind,omitempty"`
	Properties []Property `json:"properties,omitempty"`
	Children   []Control  `json:"children,omitempty"`
}

// Parameter is a procedure parameter
type Parameter struct {
	Name  string  `json:"name"`
	Type  TypeRef `json:"type"`
	ByRef bool    `json:"byRef,omitempty"`
}

// Procedure is a declared method
type Procedure struct {
	Name       string      `json:"name"`
	Properties []Property  `json:"properties,omitempty"`
	Attributes []string    `json:"attributes,omitempty"`
	Parameters []Parameter `json:"parameters,omitempty"`
	ReturnType *TypeRef    `json:"returnType,omitempty"`
}

// Signature renders the procedure header
func (p Procedure) Signature() string {
	var b strings.Builder
	b.WriteString("procedure ")
	b.WriteString(quoteIdent(p.Name))
	b.WriteByte('(')
	for i, param := range p.Parameters {
		if i > 0 {
			b.WriteString("; ")
		}
		if param.ByRef {
			b.WriteString("var ")
		}
		b.WriteString(quoteIdent(param.Name))
		b.WriteString(": ")
		b.WriteString(param.Type.String())
	}
	b.WriteByte(')')
	if p.ReturnType != nil && p.ReturnType.Name != "" {
		b.WriteString(": ")
		b.WriteString(p.ReturnType.String())
	}
	return b.String()
}

// Variable is a global variable declaration
type Variable struct {
	Name string  `json:"name"`
	Type TypeRef `json:"type"`
}

// Column is a data item column
type Column struct {
	Name       string     `json:"name"`
	Expression string     `json:"expression,omitempty"`
	Properties []Property `json:"properties,omitempty"`
}

// DataItem is a node of a report, query or xmlport data-item tree
type DataItem struct {
	Name       string     `json:"name"`
	Table      string     `json:"table,omitempty"`
	Properties []Property `json:"properties,omitempty"`
	Columns    []Column   `json:"columns,omitempty"`
	Children   []DataItem `json:"children,omitempty"`
}

// EnumValue is one enum member
type EnumValue struct {
	ID         int        `json:"id"`
	Name       string     `json:"name"`
	Properties []Property `json:"properties,omitempty"`
}

// Object is the canonical form of one declared object. Type-specific
// members are only populated for the types that declare them.
type Object struct {
	ID          int         `json:"id,omitempty"`
	Name        string      `json:"name"`
	Type        ObjectType  `json:"type"`
	Package     string      `json:"package"`
	Namespace   string      `json:"namespace,omitempty"`
	SourceFile  string      `json:"sourceFile,omitempty"`
	Properties  []Property  `json:"properties,omitempty"`
	Variables   []Variable  `json:"variables,omitempty"`
	Procedures  []Procedure `json:"procedures,omitempty"`
	Fields      []Field     `json:"fields,omitempty"`
	Keys        []Key       `json:"keys,omitempty"`
	SourceTable string      `json:"sourceTable,omitempty"`
	Controls    []Control   `json:"controls,omitempty"`
	DataItems   []DataItem  `json:"dataItems,omitempty"`
	Values      []EnumValue `json:"values,omitempty"`
}

// Property returns the first property with the given name (case-insensitive)
func (o *Object) Property(name string) (string, bool) {
	return FindProperty(o.Properties, name)
}

// Field returns the field with the given name (case-insensitive)
func (o *Object) Field(name string) (*Field, bool) {
	for i := range o.Fields {
		if strings.EqualFold(o.Fields[i].Name, name) {
			return &o.Fields[i], true
		}
	}
	return nil, false
}

// String renders "Type ID Name"
func (o *Object) String() string {
	if o.ID != 0 {
		return fmt.Sprintf("%s %d %s", o.Type, o.ID, quoteIdent(o.Name))
	}
	return fmt.Sprintf("%s %s", o.Type, quoteIdent(o.Name))
}

// FindProperty returns the first property with the given name (case-insensitive)
func FindProperty(props []Property, name string) (string, bool) {
	for _, p := range props {
		if strings.EqualFold(p.Name, name) {
			return p.Value, true
		}
	}
	return "", false
}

// CountControls counts every control in the tree
func CountControls(controls []Control) int {
	n := 0
	for i := range controls {
		n += 1 + CountControls(controls[i].Children)
	}
	return n
}

// CountDataItems counts every data item in the tree
func CountDataItems(items []DataItem) int {
	n := 0
	for i := range items {
		n += 1 + CountDataItems(items[i].Children)
	}
	return n
}

// WalkControls visits controls depth-first in source order
func WalkControls(controls []Control, fn func(c *Control, depth int)) {
	walkControls(controls, 0, fn)
}

func walkControls(controls []Control, depth int, fn func(c *Control, depth int)) {
	for i := range controls {
		fn(&controls[i], depth)
		walkControls(controls[i].Children, depth+1, fn)
	}
}

// WalkDataItems visits data items depth-first in source order
func WalkDataItems(items []DataItem, fn func(d *DataItem, depth int)) {
	walkDataItems(items, 0, fn)
}

func walkDataItems(items []DataItem, depth int, fn func(d *DataItem, depth int)) {
	for i := range items {
		fn(&items[i], depth)
		walkDataItems(items[i].Children, depth+1, fn)
	}
}

// quoteIdent wraps identifiers containing non-word characters in double quotes
func quoteIdent(s string) string {
	for _, r := range s {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return `"` + s + `"`
		}
	}
	return s
}
