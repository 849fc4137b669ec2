package store

import "github.com/alsym/alsym/internal/model"

// View is a read-only handle on one snapshot. Every query made through the
// same View sees the same object set even if an ingest completes meanwhile.
type View struct {
	snap *snapshot
}

// Generation of the underlying snapshot
func (v *View) Generation() uint64 {
	return v.snap.generation
}

// Len returns the number of queryable objects
func (v *View) Len() int {
	return len(v.snap.objects)
}

// Objects returns every queryable object in stable order. The slice is shared
// and must not be modified.
func (v *View) Objects() []*model.Object {
	return v.snap.objects
}

// Search runs a search against the current snapshot
func (s *Store) Search(q SearchQuery) Page[*model.Object] {
	return s.View().Search(q)
}

// Lookup runs a point lookup against the current snapshot
func (s *Store) Lookup(q LookupQuery) LookupResult {
	return s.View().Lookup(q)
}

// SearchMembers runs a member search against the current snapshot
func (s *Store) SearchMembers(q MemberQuery) (Page[Member], LookupResult) {
	return s.View().SearchMembers(q)
}
