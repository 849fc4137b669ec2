package normalize

import (
	"strconv"
	"strings"
)

// objectTypeNames are the data types whose subtype names another object
var objectTypeNames = map[string]bool{
	"record":          true,
	"page":            true,
	"codeunit":        true,
	"report":          true,
	"query":           true,
	"xmlport":         true,
	"enum":            true,
	"interface":       true,
	"testpage":        true,
	"testrequestpage": true,
}

// parseTypeText parses type source text such as `Record "Sales Header" temporary`
// or `Code[20]`.
func parseTypeText(s string) rawTypeRef {
	var t rawTypeRef
	s = strings.TrimSpace(s)
	if s == "" {
		return t
	}

	if lower := strings.ToLower(s); strings.HasSuffix(lower, " temporary") {
		t.Temporary = true
		s = strings.TrimSpace(s[:len(s)-len(" temporary")])
	}

	head, rest, _ := strings.Cut(s, " ")
	name, length := splitLength(head)
	if !objectTypeNames[strings.ToLower(name)] {
		t.Name, t.Length = splitLength(s)
		return t
	}

	t.Name = name
	t.Length = length
	t.Subtype = unquote(strings.TrimSpace(rest))
	return t
}

// splitLength splits "Code[20]" into ("Code", 20)
func splitLength(s string) (string, int) {
	open := strings.IndexByte(s, '[')
	if open <= 0 || !strings.HasSuffix(s, "]") {
		return s, 0
	}
	n, err := strconv.Atoi(s[open+1 : len(s)-1])
	if err != nil {
		return s, 0
	}
	return s[:open], n
}

// unquote strips surrounding double quotes from an identifier
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
