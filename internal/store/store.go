// Package store holds canonical objects in memory behind lookup indices.
//
// Each ingest rebuilds an immutable snapshot of the active objects and swaps
// it in under the write lock, so readers always see either the old or the new
// object set of a package and never a mix.
package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/alsym/alsym/internal/model"
)

// Store is the in-memory object repository
type Store struct {
	mu       sync.RWMutex
	packages map[packageKey]*packageEntry
	snap     *snapshot

	// ingestMu serializes writers so snapshots are built one at a time
	ingestMu sync.Mutex
	seq      uint64

	logger *zap.Logger
}

type packageKey struct {
	name    string // lower-case
	version string
}

type packageEntry struct {
	pkg      model.Package
	objects  []*model.Object
	loadedAt time.Time
	seq      uint64
}

// IngestResult describes what an ingest did
type IngestResult struct {
	Package  model.Package `json:"package"`
	Objects  int           `json:"objects"`
	Skipped  bool          `json:"skipped,omitempty"`
	Replaced bool          `json:"replaced,omitempty"`
	Active   bool          `json:"active"`
}

// PackageInfo describes one loaded package version
type PackageInfo struct {
	model.Package
	Active   bool      `json:"active"`
	Objects  int       `json:"objects"`
	LoadedAt time.Time `json:"loadedAt"`
}

// Stats summarizes the queryable object set
type Stats struct {
	TotalObjects   int                      `json:"totalObjects"`
	ByType         map[model.ObjectType]int `json:"byType"`
	ByPackage      map[string]int           `json:"byPackage"`
	LoadedPackages int                      `json:"loadedPackages"`
	ActivePackages int                      `json:"activePackages"`
	Generation     uint64                   `json:"generation"`
}

// New creates an empty store
func New(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		packages: make(map[packageKey]*packageEntry),
		snap:     emptySnapshot(0),
		logger:   logger.Named("store"),
	}
}

// Ingest replaces the objects owned by pkg's exact (name, version). Ingesting
// an already loaded version is a no-op unless forceReload is set. After the
// swap only the highest version of each package name is queryable.
func (s *Store) Ingest(pkg model.Package, objects []*model.Object, forceReload bool) IngestResult {
	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	key := keyOf(pkg)

	s.mu.RLock()
	existing, exists := s.packages[key]
	current := s.snap
	s.mu.RUnlock()

	if exists && !forceReload {
		s.logger.Debug("package already loaded",
			zap.String("package", pkg.Name),
			zap.String("version", pkg.Version),
		)
		return IngestResult{
			Package: existing.pkg,
			Objects: len(existing.objects),
			Skipped: true,
			Active:  s.isActive(existing),
		}
	}

	owned := make([]*model.Object, 0, len(objects))
	for _, obj := range objects {
		if obj == nil || obj.Name == "" {
			continue
		}
		obj.Package = pkg.Name
		owned = append(owned, obj)
	}

	s.seq++
	entry := &packageEntry{
		pkg:      pkg,
		objects:  owned,
		loadedAt: time.Now(),
		seq:      s.seq,
	}

	next := make(map[packageKey]*packageEntry, len(s.packages)+1)
	s.mu.RLock()
	for k, v := range s.packages {
		next[k] = v
	}
	s.mu.RUnlock()
	next[key] = entry

	snap := buildSnapshot(activeEntries(next), current.generation+1)

	s.mu.Lock()
	s.packages = next
	s.snap = snap
	s.mu.Unlock()

	result := IngestResult{
		Package:  pkg,
		Objects:  len(owned),
		Replaced: exists,
		Active:   s.isActive(entry),
	}
	s.logger.Info("package ingested",
		zap.String("package", pkg.Name),
		zap.String("version", pkg.Version),
		zap.Int("objects", len(owned)),
		zap.Bool("replaced", exists),
		zap.Bool("active", result.Active),
		zap.Uint64("generation", snap.generation),
	)
	return result
}

// Clear drops every package
func (s *Store) Clear() {
	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.packages = make(map[packageKey]*packageEntry)
	s.snap = emptySnapshot(s.snap.generation + 1)
}

// Generation changes every time the queryable object set changes
func (s *Store) Generation() uint64 {
	return s.current().generation
}

// View returns a read-only view of the current object set
func (s *Store) View() *View {
	return &View{snap: s.current()}
}

// Packages lists every loaded package version, active or superseded
func (s *Store) Packages() []PackageInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := make(map[packageKey]bool)
	for _, e := range activeEntries(s.packages) {
		active[keyOf(e.pkg)] = true
	}

	infos := make([]PackageInfo, 0, len(s.packages))
	for k, e := range s.packages {
		infos = append(infos, PackageInfo{
			Package:  e.pkg,
			Active:   active[k],
			Objects:  len(e.objects),
			LoadedAt: e.loadedAt,
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		ni, nj := strings.ToLower(infos[i].Name), strings.ToLower(infos[j].Name)
		if ni != nj {
			return ni < nj
		}
		return CompareVersions(infos[i].Version, infos[j].Version) > 0
	})
	return infos
}

// Stats counts the queryable objects
func (s *Store) Stats() Stats {
	s.mu.RLock()
	loaded := len(s.packages)
	active := len(activeEntries(s.packages))
	snap := s.snap
	s.mu.RUnlock()

	stats := Stats{
		TotalObjects:   len(snap.objects),
		ByType:         make(map[model.ObjectType]int),
		ByPackage:      make(map[string]int),
		LoadedPackages: loaded,
		ActivePackages: active,
		Generation:     snap.generation,
	}
	for _, obj := range snap.objects {
		stats.ByType[obj.Type]++
		stats.ByPackage[obj.Package]++
	}
	return stats
}

func (s *Store) current() *snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

func (s *Store) isActive(entry *packageEntry) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range activeEntries(s.packages) {
		if e == entry {
			return true
		}
	}
	return false
}

// activeEntries picks the highest version of each package name. Equal
// versions resolve to the most recently loaded entry.
func activeEntries(packages map[packageKey]*packageEntry) []*packageEntry {
	best := make(map[string]*packageEntry)
	for k, e := range packages {
		cur, ok := best[k.name]
		if !ok {
			best[k.name] = e
			continue
		}
		c := CompareVersions(e.pkg.Version, cur.pkg.Version)
		if c > 0 || (c == 0 && e.seq > cur.seq) {
			best[k.name] = e
		}
	}

	out := make([]*packageEntry, 0, len(best))
	for _, e := range best {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

func keyOf(pkg model.Package) packageKey {
	return packageKey{name: strings.ToLower(pkg.Name), version: pkg.Version}
}
