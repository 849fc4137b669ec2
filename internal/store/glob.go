package store

import (
	"strings"
)

// glob is a compiled, case-insensitive wildcard pattern anchored at both
// ends. `*` matches any run of characters (including none) and `?` matches
// exactly one.
type glob struct {
	pattern  []rune
	lower    string
	wildcard bool
	prefix   string   // literal text before the first wildcard
	literals []string // literal runs between wildcards
}

func compileGlob(pattern string) *glob {
	lower := strings.ToLower(pattern)
	g := &glob{
		pattern:  []rune(lower),
		lower:    lower,
		wildcard: strings.ContainsAny(lower, "*?"),
	}
	if i := strings.IndexAny(lower, "*?"); i >= 0 {
		g.prefix = lower[:i]
	} else {
		g.prefix = lower
	}
	for _, part := range strings.FieldsFunc(lower, func(r rune) bool { return r == '*' || r == '?' }) {
		g.literals = append(g.literals, part)
	}
	return g
}

// matchAll reports whether the pattern accepts every name
func (g *glob) matchAll() bool {
	return strings.Trim(g.lower, "*") == "" && g.lower != ""
}

// match tests a name that is already lower-case
func (g *glob) match(name string) bool {
	if !g.wildcard {
		return name == g.lower
	}
	return wildcardMatch(g.pattern, []rune(name))
}

// matchFold tests a name of any case
func (g *glob) matchFold(name string) bool {
	return g.match(strings.ToLower(name))
}

// wildcardMatch is the classic greedy star/backtrack matcher
func wildcardMatch(p, s []rune) bool {
	pi, si := 0, 0
	star, mark := -1, 0
	for si < len(s) {
		switch {
		case pi < len(p) && (p[pi] == '?' || p[pi] == s[si]):
			pi++
			si++
		case pi < len(p) && p[pi] == '*':
			star = pi
			mark = si
			pi++
		case star >= 0:
			pi = star + 1
			mark++
			si = mark
		default:
			return false
		}
	}
	for pi < len(p) && p[pi] == '*' {
		pi++
	}
	return pi == len(p)
}
