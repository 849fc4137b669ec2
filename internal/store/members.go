package store

import (
	"fmt"
	"strings"

	"github.com/alsym/alsym/internal/model"
)

// MemberKind selects a member collection of an object
type MemberKind string

const (
	MemberProcedures MemberKind = "procedures"
	MemberFields     MemberKind = "fields"
	MemberControls   MemberKind = "controls"
	MemberDataItems  MemberKind = "dataitems"
)

// MemberKinds lists every member kind
var MemberKinds = []MemberKind{MemberProcedures, MemberFields, MemberControls, MemberDataItems}

// ParseMemberKind resolves a member kind case-insensitively. "dataItems" and
// "data_items" are accepted for dataitems.
func ParseMemberKind(s string) (MemberKind, error) {
	norm := strings.ReplaceAll(strings.ToLower(s), "_", "")
	for _, k := range MemberKinds {
		if string(k) == norm {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown member kind: %q", s)
}

// MemberQuery selects members of one object
type MemberQuery struct {
	Object  string
	Type    model.ObjectType
	Package string
	Kind    MemberKind
	Pattern string
	Limit   int
	Offset  int
}

// Member is one entry of a member collection. Trees are flattened
// depth-first; Depth is the nesting level and Parent the enclosing node.
type Member struct {
	Kind       MemberKind       `json:"kind"`
	Name       string           `json:"name"`
	ID         int              `json:"id,omitempty"`
	Detail     string           `json:"detail,omitempty"`
	Depth      int              `json:"depth,omitempty"`
	Parent     string           `json:"parent,omitempty"`
	Properties []model.Property `json:"properties,omitempty"`

	Procedure *model.Procedure `json:"procedure,omitempty"`
	Field     *model.Field     `json:"field,omitempty"`
	Columns   []model.Column   `json:"columns,omitempty"`
}

// SearchMembers resolves the object named by q and pages through the member
// collection selected by q.Kind. The lookup result is returned so callers can
// report not-found and ambiguous objects.
func (v *View) SearchMembers(q MemberQuery) (Page[Member], LookupResult) {
	res := v.Lookup(LookupQuery{Name: q.Object, Type: q.Type, Package: q.Package})
	if res.Status != LookupFound {
		return paginate([]Member{}, q.Offset, q.Limit), res
	}

	var g *glob
	if q.Pattern != "" {
		g = compileGlob(q.Pattern)
	}
	all := MembersOf(res.Object, q.Kind)
	matches := make([]Member, 0, len(all))
	for _, m := range all {
		if g == nil || g.matchFold(m.Name) {
			matches = append(matches, m)
		}
	}
	return paginate(matches, q.Offset, q.Limit), res
}

// MembersOf flattens one member collection of obj in source order
func MembersOf(obj *model.Object, kind MemberKind) []Member {
	var out []Member
	switch kind {
	case MemberProcedures:
		for i := range obj.Procedures {
			p := &obj.Procedures[i]
			out = append(out, Member{
				Kind:       kind,
				Name:       p.Name,
				Detail:     p.Signature(),
				Properties: p.Properties,
				Procedure:  p,
			})
		}
	case MemberFields:
		for i := range obj.Fields {
			f := &obj.Fields[i]
			out = append(out, Member{
				Kind:       kind,
				Name:       f.Name,
				ID:         f.ID,
				Detail:     f.Type.String(),
				Properties: f.Properties,
				Field:      f,
			})
		}
	case MemberControls:
		var parents []string
		model.WalkControls(obj.Controls, func(c *model.Control, depth int) {
			parents = append(parents[:depth], c.Name)
			m := Member{
				Kind:       kind,
				Name:       c.Name,
				ID:         c.ID,
				Detail:     c.Kind,
				Depth:      depth,
				Properties: c.Properties,
			}
			if depth > 0 {
				m.Parent = parents[depth-1]
			}
			out = append(out, m)
		})
	case MemberDataItems:
		var parents []string
		model.WalkDataItems(obj.DataItems, func(d *model.DataItem, depth int) {
			parents = append(parents[:depth], d.Name)
			m := Member{
				Kind:       kind,
				Name:       d.Name,
				Detail:     d.Table,
				Depth:      depth,
				Properties: d.Properties,
				Columns:    d.Columns,
			}
			if depth > 0 {
				m.Parent = parents[depth-1]
			}
			out = append(out, m)
		})
	}
	return out
}
