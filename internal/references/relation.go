package references

import "strings"

// relationTarget is one branch of a TableRelation property such as
//
//	IF (Type = CONST(Item)) Item."No." WHERE (Blocked = CONST(false)) ELSE Resource
type relationTarget struct {
	Table     string
	Field     string
	Condition string
	Filter    string
}

// parseTableRelation splits a relation into its conditional branches. Text it
// cannot make sense of yields no targets rather than an error.
func parseTableRelation(s string) []relationTarget {
	var out []relationTarget
	for _, branch := range splitKeyword(s, "ELSE") {
		branch = strings.TrimSpace(branch)
		var t relationTarget

		if indexKeyword(branch, "IF") == 0 {
			cond, rest, ok := cutGroup(strings.TrimSpace(branch[2:]))
			if !ok {
				continue
			}
			t.Condition = cond
			branch = strings.TrimSpace(rest)
		}

		target := branch
		if i := indexKeyword(branch, "WHERE"); i >= 0 {
			target = strings.TrimSpace(branch[:i])
			if filter, _, ok := cutGroup(strings.TrimSpace(branch[i+len("WHERE"):])); ok {
				t.Filter = filter
			}
		}

		t.Table, t.Field = splitQualified(target)
		if t.Table != "" {
			out = append(out, t)
		}
	}
	return out
}

// indexKeyword finds kw as a whole word outside quotes and parentheses
func indexKeyword(s, kw string) int {
	depth := 0
	quoted := false
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '"':
			quoted = !quoted
		case quoted:
		case c == '(':
			depth++
		case c == ')':
			if depth > 0 {
				depth--
			}
		case depth == 0 && i+len(kw) <= len(s) && strings.EqualFold(s[i:i+len(kw)], kw):
			before := i == 0 || !isIdentByte(s[i-1])
			after := i+len(kw) == len(s) || !isIdentByte(s[i+len(kw)])
			if before && after {
				return i
			}
		}
	}
	return -1
}

func splitKeyword(s, kw string) []string {
	var parts []string
	for {
		i := indexKeyword(s, kw)
		if i < 0 {
			return append(parts, s)
		}
		parts = append(parts, s[:i])
		s = s[i+len(kw):]
	}
}

// cutGroup expects s to start with a parenthesized group and returns its
// contents and whatever follows it
func cutGroup(s string) (inner, rest string, ok bool) {
	if !strings.HasPrefix(s, "(") {
		return "", s, false
	}
	depth := 0
	quoted := false
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '"':
			quoted = !quoted
		case quoted:
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return strings.TrimSpace(s[1:i]), s[i+1:], true
			}
		}
	}
	return "", s, false
}

// splitQualified parses `Table`, `"Sales Header"` or `"Sales Header"."No."`
func splitQualified(s string) (table, field string) {
	table, rest := readIdent(strings.TrimSpace(s))
	if strings.HasPrefix(rest, ".") {
		field, _ = readIdent(rest[1:])
	}
	return table, field
}

func readIdent(s string) (ident, rest string) {
	if strings.HasPrefix(s, `"`) {
		if end := strings.IndexByte(s[1:], '"'); end >= 0 {
			return s[1 : end+1], s[end+2:]
		}
		return strings.Trim(s, `"`), ""
	}
	end := strings.IndexFunc(s, func(r rune) bool {
		return r == '.' || r == ' ' || r == '\t' || r == '('
	})
	if end < 0 {
		return s, ""
	}
	return s[:end], s[end:]
}

func isIdentByte(b byte) bool {
	return b == '_' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}
