package store

import (
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/alsym/alsym/internal/model"
)

// snapshot is an immutable view of every queryable object with its indices.
// Ordinals are positions in the sorted objects slice, so iterating a bitmap
// yields results in the stable (name, type, package, id) order.
type snapshot struct {
	generation uint64
	objects    []*model.Object
	lowerNames []string

	byID          map[int][]uint32
	byType        map[model.ObjectType]*roaring.Bitmap
	byPackage     map[string]*roaring.Bitmap
	byPackageType map[packageTypeKey]*roaring.Bitmap
	trigrams      map[string]*roaring.Bitmap
}

type packageTypeKey struct {
	pkg string
	typ model.ObjectType
}

func emptySnapshot(generation uint64) *snapshot {
	return buildSnapshot(nil, generation)
}

// buildSnapshot indexes the objects of the active package versions
func buildSnapshot(active []*packageEntry, generation uint64) *snapshot {
	total := 0
	for _, e := range active {
		total += len(e.objects)
	}

	objects := make([]*model.Object, 0, total)
	for _, e := range active {
		objects = append(objects, e.objects...)
	}
	sort.SliceStable(objects, func(i, j int) bool {
		return lessObject(objects[i], objects[j])
	})

	snap := &snapshot{
		generation:    generation,
		objects:       objects,
		lowerNames:    make([]string, len(objects)),
		byID:          make(map[int][]uint32),
		byType:        make(map[model.ObjectType]*roaring.Bitmap),
		byPackage:     make(map[string]*roaring.Bitmap),
		byPackageType: make(map[packageTypeKey]*roaring.Bitmap),
		trigrams:      make(map[string]*roaring.Bitmap),
	}

	for i, obj := range objects {
		ord := uint32(i)
		lower := strings.ToLower(obj.Name)
		snap.lowerNames[i] = lower

		if obj.ID != 0 {
			snap.byID[obj.ID] = append(snap.byID[obj.ID], ord)
		}
		addTo(snap.byType, obj.Type, ord)
		pkg := strings.ToLower(obj.Package)
		addTo(snap.byPackage, pkg, ord)
		addTo(snap.byPackageType, packageTypeKey{pkg: pkg, typ: obj.Type}, ord)

		for _, tri := range trigramsOf(lower) {
			addTo(snap.trigrams, tri, ord)
		}
	}

	for _, bm := range snap.trigrams {
		bm.RunOptimize()
	}
	return snap
}

func addTo[K comparable](index map[K]*roaring.Bitmap, key K, ord uint32) {
	bm, ok := index[key]
	if !ok {
		bm = roaring.New()
		index[key] = bm
	}
	bm.Add(ord)
}

func lessObject(a, b *model.Object) bool {
	la, lb := strings.ToLower(a.Name), strings.ToLower(b.Name)
	if la != lb {
		return la < lb
	}
	if a.Type != b.Type {
		return a.Type.Ordinal() < b.Type.Ordinal()
	}
	if a.Package != b.Package {
		return a.Package < b.Package
	}
	if a.ID != b.ID {
		return a.ID < b.ID
	}
	return a.Name < b.Name
}

// trigramsOf returns the distinct byte trigrams of s
func trigramsOf(s string) []string {
	if len(s) < 3 {
		return nil
	}
	seen := make(map[string]struct{}, len(s))
	out := make([]string, 0, len(s)-2)
	for i := 0; i+3 <= len(s); i++ {
		tri := s[i : i+3]
		if _, ok := seen[tri]; ok {
			continue
		}
		seen[tri] = struct{}{}
		out = append(out, tri)
	}
	return out
}

// prefixRange returns the ordinal range [lo, hi) of names starting with prefix
func (s *snapshot) prefixRange(prefix string) (int, int) {
	lo := sort.SearchStrings(s.lowerNames, prefix)
	hi := lo + sort.Search(len(s.lowerNames)-lo, func(i int) bool {
		return !strings.HasPrefix(s.lowerNames[lo+i], prefix)
	})
	return lo, hi
}

// exactRange returns the ordinal range [lo, hi) of names equal to lower
func (s *snapshot) exactRange(lower string) (int, int) {
	lo := sort.SearchStrings(s.lowerNames, lower)
	hi := lo
	for hi < len(s.lowerNames) && s.lowerNames[hi] == lower {
		hi++
	}
	return lo, hi
}

// nameCandidates narrows the ordinals a pattern can match using the name
// index. It returns nil when the pattern cannot be narrowed.
func (s *snapshot) nameCandidates(g *glob) *roaring.Bitmap {
	if g.matchAll() {
		return nil
	}
	if !g.wildcard {
		lo, hi := s.exactRange(g.lower)
		return rangeBitmap(lo, hi)
	}
	if g.prefix != "" {
		lo, hi := s.prefixRange(g.prefix)
		return rangeBitmap(lo, hi)
	}

	var result *roaring.Bitmap
	for _, lit := range g.literals {
		tris := trigramsOf(lit)
		for _, tri := range tris {
			bm, ok := s.trigrams[tri]
			if !ok {
				return roaring.New()
			}
			if result == nil {
				result = bm.Clone()
			} else {
				result.And(bm)
			}
			if result.IsEmpty() {
				return result
			}
		}
	}
	return result
}

func rangeBitmap(lo, hi int) *roaring.Bitmap {
	bm := roaring.New()
	if hi > lo {
		bm.AddRange(uint64(lo), uint64(hi))
	}
	return bm
}

// intersect ANDs b into a, treating nil as "everything"
func intersect(a, b *roaring.Bitmap) *roaring.Bitmap {
	switch {
	case b == nil:
		return a
	case a == nil:
		return b.Clone()
	default:
		a.And(b)
		return a
	}
}
