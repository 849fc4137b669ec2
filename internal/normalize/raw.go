package normalize

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// The raw* types mirror the metadata document. Keys that changed name between
// schema generations are declared once per variant as pointers so that the
// extractor can tell "absent" from "empty" and pick the first variant present.

type rawProperty struct {
	Name  flexString `json:"Name"`
	Value flexString `json:"Value"`
}

type rawSubtype struct {
	Name flexString `json:"Name"`
	ID   flexInt    `json:"Id"`
}

// rawTypeRef accepts either a structured type definition or its source text
type rawTypeRef struct {
	Name      string
	Subtype   string
	SubtypeID int
	Length    int
	Temporary bool
}

func (t *rawTypeRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = parseTypeText(s)
		return nil
	}

	var def struct {
		Name      flexString  `json:"Name"`
		Subtype   *rawSubtype `json:"Subtype"`
		Temporary bool        `json:"Temporary"`
		Length    flexInt     `json:"Length"`
	}
	if err := json.Unmarshal(data, &def); err != nil {
		return err
	}
	parsed := parseTypeText(string(def.Name))
	t.Name = parsed.Name
	t.Length = parsed.Length
	if def.Length > 0 {
		t.Length = int(def.Length)
	}
	t.Subtype = parsed.Subtype
	if def.Subtype != nil {
		t.Subtype = unquote(string(def.Subtype.Name))
		t.SubtypeID = int(def.Subtype.ID)
	}
	t.Temporary = def.Temporary || parsed.Temporary
	return nil
}

type rawParameter struct {
	Name           flexString  `json:"Name"`
	TypeDefinition *rawTypeRef `json:"TypeDefinition"`
	Type           *rawTypeRef `json:"Type"`
	IsVar          *bool       `json:"IsVar"`
	ByReference    *bool       `json:"ByReference"`
}

type rawAttribute struct {
	Name flexString `json:"Name"`
}

type rawMethod struct {
	Name                 flexString     `json:"Name"`
	Properties           []rawProperty  `json:"Properties"`
	Attributes           []rawAttribute `json:"Attributes"`
	Parameters           []rawParameter `json:"Parameters"`
	ReturnTypeDefinition *rawTypeRef    `json:"ReturnTypeDefinition"`
	ReturnType           *rawTypeRef    `json:"ReturnType"`
}

type rawVariable struct {
	Name           flexString  `json:"Name"`
	TypeDefinition *rawTypeRef `json:"TypeDefinition"`
	Type           *rawTypeRef `json:"Type"`
}

type rawField struct {
	ID             flexInt       `json:"Id"`
	Name           flexString    `json:"Name"`
	TypeDefinition *rawTypeRef   `json:"TypeDefinition"`
	Type           *rawTypeRef   `json:"Type"`
	Properties     []rawProperty `json:"Properties"`
}

type rawKey struct {
	Name       flexString    `json:"Name"`
	FieldNames *[]flexString `json:"FieldNames"`
	Fields     *[]flexString `json:"Fields"`
	Properties []rawProperty `json:"Properties"`
}

type rawControl struct {
	ID         flexInt       `json:"Id"`
	Name       flexString    `json:"Name"`
	Kind       flexString    `json:"Kind"`
	Properties []rawProperty `json:"Properties"`
	Controls   *[]rawControl `json:"Controls"`
	Layout     *[]rawControl `json:"Layout"`
}

type rawColumn struct {
	Name             flexString    `json:"Name"`
	SourceExpression *flexString   `json:"SourceExpression"`
	SourceExpr       *flexString   `json:"SourceExpr"`
	Properties       []rawProperty `json:"Properties"`
}

type rawDataItem struct {
	Name          flexString     `json:"Name"`
	RelatedTable  *flexString    `json:"RelatedTable"`
	SourceTable   *flexString    `json:"SourceTable"`
	DataItemTable *flexString    `json:"DataItemTable"`
	Properties    []rawProperty  `json:"Properties"`
	Columns       []rawColumn    `json:"Columns"`
	DataItems     *[]rawDataItem `json:"DataItems"`
	Elements      *[]rawDataItem `json:"Elements"`
}

type rawEnumValue struct {
	ID         flexInt       `json:"Id"`
	Name       flexString    `json:"Name"`
	Properties []rawProperty `json:"Properties"`
}

// rawBase holds the members every object category shares
type rawBase struct {
	ID                      flexInt       `json:"Id"`
	Name                    flexString    `json:"Name"`
	Properties              []rawProperty `json:"Properties"`
	ReferenceSourceFileName flexString    `json:"ReferenceSourceFileName"`
	Variables               []rawVariable `json:"Variables"`
	Methods                 *[]rawMethod  `json:"Methods"`
	Procedures              *[]rawMethod  `json:"Procedures"`
}

type rawTable struct {
	rawBase
	Fields []rawField `json:"Fields"`
	Keys   []rawKey   `json:"Keys"`
}

type rawPage struct {
	rawBase
	Controls *[]rawControl `json:"Controls"`
	Layout   *[]rawControl `json:"Layout"`
}

type rawDataSet struct {
	rawBase
	DataItems *[]rawDataItem `json:"DataItems"`
	Elements  *[]rawDataItem `json:"Elements"`
	Schema    *[]rawDataItem `json:"Schema"`
}

type rawEnum struct {
	rawBase
	Values     *[]rawEnumValue `json:"Values"`
	EnumValues *[]rawEnumValue `json:"EnumValues"`
}

// rawIdentity is decoded on failure to name the object in the warning
type rawIdentity struct {
	ID   flexInt    `json:"Id"`
	Name flexString `json:"Name"`
}

// flexInt accepts a JSON number, a numeric string or null
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	s := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*f = 0
			return nil
		}
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid integer %s", data)
	}
	*f = flexInt(int(n))
	return nil
}

// flexString accepts a string, number or boolean; nested values keep their
// compact JSON text
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, data); err != nil {
			return err
		}
		*f = flexString(buf.String())
	default:
		*f = flexString(data)
	}
	return nil
}

func firstBool(values ...*bool) bool {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return false
}

func firstString(values ...*flexString) (string, bool) {
	for _, v := range values {
		if v != nil {
			return string(*v), true
		}
	}
	return "", false
}

func firstType(values ...*rawTypeRef) *rawTypeRef {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func first[T any](values ...*[]T) []T {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return nil
}
