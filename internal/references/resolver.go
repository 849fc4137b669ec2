// Package references derives reference edges between objects on demand.
//
// Edges are never stored. Each query scans the live object set of the store,
// so an edge can only point at objects that are currently queryable. Results
// are memoized per query and dropped whenever the store generation moves.
package references

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/alsym/alsym/internal/model"
	"github.com/alsym/alsym/internal/store"
)

// AnyField matches relations to any field of the target
const AnyField = "*"

// extendsProperties name the object an extension-style object builds on
var extendsProperties = []string{"Extends", "ExtendsObject", "Target"}

// Source supplies the current object set
type Source interface {
	View() *store.View
}

// Query selects edges pointing at Target
type Query struct {
	Target         string
	Field          string
	Kind           model.RelationKind
	SourceType     model.ObjectType
	IncludeContext bool
}

func (q Query) key() string {
	return fmt.Sprintf("%s|%s|%s|%s|%t",
		strings.ToLower(q.Target), strings.ToLower(q.Field), q.Kind, q.SourceType, q.IncludeContext)
}

// Resolver answers reference queries against a Source
type Resolver struct {
	src    Source
	logger *zap.Logger

	mu         sync.Mutex
	generation uint64
	cache      map[string][]model.Edge
	hits       uint64
}

// New creates a resolver over src
func New(src Source, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		src:    src,
		logger: logger.Named("references"),
		cache:  make(map[string][]model.Edge),
	}
}

// Resolve returns the edges matching q in stable order. An unknown target
// yields an empty slice.
func (r *Resolver) Resolve(q Query) []model.Edge {
	view := r.src.View()
	key := q.key()

	r.mu.Lock()
	if r.generation != view.Generation() {
		r.generation = view.Generation()
		r.cache = make(map[string][]model.Edge)
	}
	cached, ok := r.cache[key]
	if ok {
		r.hits++
	}
	r.mu.Unlock()

	if ok {
		return copyEdges(cached)
	}

	edges := resolve(view, q)

	r.mu.Lock()
	if r.generation == view.Generation() {
		r.cache[key] = edges
	}
	r.mu.Unlock()

	r.logger.Debug("references resolved",
		zap.String("target", q.Target),
		zap.String("kind", string(q.Kind)),
		zap.Int("edges", len(edges)),
		zap.Uint64("generation", view.Generation()),
	)
	return copyEdges(edges)
}

// CacheHits reports how many queries were answered from the memo
func (r *Resolver) CacheHits() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hits
}

func resolve(view *store.View, q Query) []model.Edge {
	target, ok := canonicalTarget(view, q.Target)
	if !ok {
		return []model.Edge{}
	}

	c := &collector{q: q, target: target, seen: make(map[edgeKey]struct{})}
	for _, obj := range view.Objects() {
		if q.SourceType != "" && obj.Type != q.SourceType {
			continue
		}
		c.scan(obj)
	}

	sort.SliceStable(c.edges, func(i, j int) bool {
		return lessEdge(&c.edges[i], &c.edges[j])
	})
	return c.edges
}

// canonicalTarget resolves the target to the spelling stored in the index
func canonicalTarget(view *store.View, name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}
	res := view.Lookup(store.LookupQuery{Name: name})
	switch res.Status {
	case store.LookupFound:
		return res.Object.Name, true
	case store.LookupAmbiguous:
		return res.Candidates[0].Name, true
	}
	return "", false
}

type edgeKey struct {
	pkg, typ, source, member, kind, field string
}

type collector struct {
	q      Query
	target string
	edges  []model.Edge
	seen   map[edgeKey]struct{}
}

func (c *collector) wants(kind model.RelationKind) bool {
	return c.q.Kind == "" || c.q.Kind == kind
}

func (c *collector) add(obj *model.Object, member string, kind model.RelationKind, field, context string) {
	key := edgeKey{
		pkg:    obj.Package,
		typ:    string(obj.Type),
		source: obj.Name,
		member: member,
		kind:   string(kind),
		field:  strings.ToLower(field),
	}
	if _, dup := c.seen[key]; dup {
		return
	}
	c.seen[key] = struct{}{}

	e := model.Edge{
		Source:        obj.Name,
		SourceType:    obj.Type,
		SourceID:      obj.ID,
		SourcePackage: obj.Package,
		SourceMember:  member,
		Kind:          kind,
		Target:        c.target,
		TargetField:   field,
	}
	if c.q.IncludeContext {
		e.Context = context
	}
	c.edges = append(c.edges, e)
}

func (c *collector) scan(obj *model.Object) {
	if c.wants(model.RelationExtends) {
		c.scanExtends(obj)
	}
	if c.tableKind() {
		c.scanSourceTable(obj)
		if c.q.Kind == "" || c.q.Field != "" {
			c.scanTableRelations(obj)
		}
	}
	c.scanDeclarations(obj)
}

// tableKind reports whether the query covers source_table and table_relation
// edges. Both kinds share one scan.
func (c *collector) tableKind() bool {
	switch c.q.Kind {
	case "", model.RelationSourceTable, model.RelationTableRelation:
		return true
	}
	return false
}

// tableKindFor tags table edges with the requested kind, or with the kind of
// the declaration site when no kind was requested
func (c *collector) tableKindFor(site model.RelationKind) model.RelationKind {
	if c.q.Kind == "" {
		return site
	}
	return c.q.Kind
}

func (c *collector) scanExtends(obj *model.Object) {
	for _, prop := range extendsProperties {
		v, ok := obj.Property(prop)
		if !ok {
			continue
		}
		if strings.EqualFold(unquote(v), c.target) {
			c.add(obj, "", model.RelationExtends, "", fmt.Sprintf("%s = %s", prop, v))
			return
		}
	}
}

func (c *collector) scanSourceTable(obj *model.Object) {
	if obj.SourceTable != "" && strings.EqualFold(obj.SourceTable, c.target) {
		c.add(obj, "", c.tableKindFor(model.RelationSourceTable), "", "SourceTable = "+obj.SourceTable)
	}
	model.WalkDataItems(obj.DataItems, func(d *model.DataItem, _ int) {
		if d.Table != "" && strings.EqualFold(d.Table, c.target) {
			c.add(obj, d.Name, c.tableKindFor(model.RelationSourceTable), "", "dataitem("+d.Name+"; "+d.Table+")")
		}
	})
}

// scanTableRelations parses the TableRelation property of every field.
// Field narrows to relations naming that target field; AnyField and the
// empty string accept all of them. With a table kind requested the scan
// only runs when a field was given.
func (c *collector) scanTableRelations(obj *model.Object) {
	for i := range obj.Fields {
		f := &obj.Fields[i]
		for _, p := range f.Properties {
			if !strings.EqualFold(p.Name, "TableRelation") {
				continue
			}
			for _, rt := range parseTableRelation(p.Value) {
				if !strings.EqualFold(rt.Table, c.target) {
					continue
				}
				if c.q.Field != "" && c.q.Field != AnyField && !strings.EqualFold(rt.Field, c.q.Field) {
					continue
				}
				c.add(obj, f.Name, c.tableKindFor(model.RelationTableRelation), rt.Field, p.Value)
			}
		}
	}
}

// scanDeclarations looks for type references in fields, global variables,
// parameters and return types. field_usage and table_usage cover every
// declaration site; without a kind each site reports its own kind.
func (c *collector) scanDeclarations(obj *model.Object) {
	usage := c.q.Kind == model.RelationFieldUsage || c.q.Kind == model.RelationTableUsage
	kindFor := func(site model.RelationKind) (model.RelationKind, bool) {
		switch {
		case usage:
			return c.q.Kind, true
		case c.q.Kind == "":
			return site, true
		default:
			return site, c.q.Kind == site
		}
	}

	if kind, ok := kindFor(model.RelationFieldUsage); ok {
		for i := range obj.Fields {
			f := &obj.Fields[i]
			if f.Type.References(c.target) {
				c.add(obj, f.Name, kind, "", fmt.Sprintf("field(%d; %s; %s)", f.ID, f.Name, f.Type))
			}
		}
	}
	if kind, ok := kindFor(model.RelationVariable); ok {
		for _, v := range obj.Variables {
			if v.Type.References(c.target) {
				c.add(obj, v.Name, kind, "", fmt.Sprintf("var %s: %s", v.Name, v.Type))
			}
		}
	}
	if kind, ok := kindFor(model.RelationParameter); ok {
		for i := range obj.Procedures {
			p := &obj.Procedures[i]
			for _, param := range p.Parameters {
				if param.Type.References(c.target) {
					c.add(obj, p.Name+"."+param.Name, kind, "", p.Signature())
				}
			}
		}
	}
	if kind, ok := kindFor(model.RelationReturnType); ok {
		for i := range obj.Procedures {
			p := &obj.Procedures[i]
			if p.ReturnType != nil && p.ReturnType.References(c.target) {
				c.add(obj, p.Name, kind, "", p.Signature())
			}
		}
	}
}

func lessEdge(a, b *model.Edge) bool {
	if la, lb := strings.ToLower(a.Source), strings.ToLower(b.Source); la != lb {
		return la < lb
	}
	if a.SourceType != b.SourceType {
		return a.SourceType.Ordinal() < b.SourceType.Ordinal()
	}
	if a.SourcePackage != b.SourcePackage {
		return a.SourcePackage < b.SourcePackage
	}
	if a.SourceMember != b.SourceMember {
		return a.SourceMember < b.SourceMember
	}
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	return a.TargetField < b.TargetField
}

func copyEdges(edges []model.Edge) []model.Edge {
	out := make([]model.Edge, len(edges))
	copy(out, edges)
	return out
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
