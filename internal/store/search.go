package store

import (
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/alsym/alsym/internal/model"
)

// SearchQuery filters objects. Empty fields do not filter. A Limit of zero
// or less returns every match from Offset on.
type SearchQuery struct {
	Pattern string
	Type    model.ObjectType
	Package string
	Domain  model.Domain
	Limit   int
	Offset  int
}

// Page is one window of an ordered result set
type Page[T any] struct {
	Items   []T  `json:"items"`
	Total   int  `json:"total"`
	Offset  int  `json:"offset"`
	Limit   int  `json:"limit"`
	HasMore bool `json:"hasMore"`
}

func paginate[T any](all []T, offset, limit int) Page[T] {
	if offset < 0 {
		offset = 0
	}
	page := Page[T]{Total: len(all), Offset: offset, Limit: limit}
	if offset >= len(all) {
		page.Items = []T{}
		return page
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	page.Items = all[offset:end]
	page.HasMore = end < len(all)
	return page
}

// Search returns the objects matching every filter of q in stable
// (name, type, package, id) order
func (v *View) Search(q SearchQuery) Page[*model.Object] {
	snap := v.snap

	var g *glob
	if q.Pattern != "" {
		g = compileGlob(q.Pattern)
		if g.matchAll() {
			g = nil
		}
	}

	candidates, ok := snap.filterCandidates(q.Type, q.Package)
	if !ok {
		return paginate([]*model.Object{}, q.Offset, q.Limit)
	}
	if g != nil {
		candidates = intersect(candidates, snap.nameCandidates(g))
	}

	accept := func(ord uint32) bool {
		if g != nil && !g.match(snap.lowerNames[ord]) {
			return false
		}
		if q.Domain != "" && model.Classify(snap.objects[ord].Name) != q.Domain {
			return false
		}
		return true
	}

	matches := make([]*model.Object, 0)
	if candidates == nil {
		for i := range snap.objects {
			if accept(uint32(i)) {
				matches = append(matches, snap.objects[i])
			}
		}
	} else {
		it := candidates.Iterator()
		for it.HasNext() {
			ord := it.Next()
			if accept(ord) {
				matches = append(matches, snap.objects[ord])
			}
		}
	}
	return paginate(matches, q.Offset, q.Limit)
}

// filterCandidates intersects the type and package indices. A nil bitmap
// means no filter applies; ok is false when a filter matches nothing.
func (s *snapshot) filterCandidates(typ model.ObjectType, pkg string) (*roaring.Bitmap, bool) {
	pkg = strings.ToLower(pkg)
	switch {
	case typ != "" && pkg != "":
		bm, ok := s.byPackageType[packageTypeKey{pkg: pkg, typ: typ}]
		if !ok {
			return nil, false
		}
		return bm.Clone(), true
	case typ != "":
		bm, ok := s.byType[typ]
		if !ok {
			return nil, false
		}
		return bm.Clone(), true
	case pkg != "":
		bm, ok := s.byPackage[pkg]
		if !ok {
			return nil, false
		}
		return bm.Clone(), true
	}
	return nil, true
}

// LookupQuery identifies one object by id and/or name
type LookupQuery struct {
	ID      int
	Name    string
	Type    model.ObjectType
	Package string
}

// LookupStatus is the outcome of a lookup
type LookupStatus string

const (
	LookupFound     LookupStatus = "found"
	LookupAmbiguous LookupStatus = "ambiguous"
	LookupNotFound  LookupStatus = "not_found"
)

// LookupResult carries either the single match or the ambiguous candidates
type LookupResult struct {
	Status     LookupStatus    `json:"status"`
	Object     *model.Object   `json:"object,omitempty"`
	Candidates []*model.Object `json:"candidates,omitempty"`
}

// Lookup resolves one object. Type and package filters are applied before
// ambiguity is declared, and an exact-case name match wins over matches
// that differ only by case.
func (v *View) Lookup(q LookupQuery) LookupResult {
	snap := v.snap
	if q.ID == 0 && q.Name == "" {
		return LookupResult{Status: LookupNotFound}
	}

	var ords []uint32
	if q.ID != 0 {
		ords = snap.byID[q.ID]
	} else {
		lo, hi := snap.exactRange(strings.ToLower(q.Name))
		for i := lo; i < hi; i++ {
			ords = append(ords, uint32(i))
		}
	}

	var matches []*model.Object
	for _, ord := range ords {
		obj := snap.objects[ord]
		if q.ID != 0 && q.Name != "" && !strings.EqualFold(obj.Name, q.Name) {
			continue
		}
		if q.Type != "" && obj.Type != q.Type {
			continue
		}
		if q.Package != "" && !strings.EqualFold(obj.Package, q.Package) {
			continue
		}
		matches = append(matches, obj)
	}

	if len(matches) > 1 && q.Name != "" {
		var exact []*model.Object
		for _, obj := range matches {
			if obj.Name == q.Name {
				exact = append(exact, obj)
			}
		}
		if len(exact) > 0 {
			matches = exact
		}
	}

	switch len(matches) {
	case 0:
		return LookupResult{Status: LookupNotFound}
	case 1:
		return LookupResult{Status: LookupFound, Object: matches[0]}
	default:
		return LookupResult{Status: LookupAmbiguous, Candidates: matches}
	}
}
