// Package packages locates package files, decodes their metadata and feeds
// the normalized objects into the store.
package packages

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Extension of package files
const Extension = ".app"

// SymbolsDir is the directory the toolchain downloads dependency packages into
const SymbolsDir = ".alpackages"

var skipDirs = map[string]bool{
	".git":         true,
	".vscode":      true,
	"node_modules": true,
}

// Discover returns the package files under root in a stable order.
//
// A root naming a single package file returns just that file. With
// autoDiscover the tree is walked for .alpackages directories; when none hold
// packages, or autoDiscover is off, the package files directly in root are
// used.
func Discover(root string, autoDiscover bool) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("package path %s: %w", root, err)
	}
	if !info.IsDir() {
		if !isPackageFile(root) {
			return nil, fmt.Errorf("package path %s: not a %s file", root, Extension)
		}
		return []string{root}, nil
	}

	if autoDiscover {
		found, err := discoverSymbolDirs(root)
		if err != nil {
			return nil, err
		}
		if len(found) > 0 {
			return found, nil
		}
	}
	return listPackages(root)
}

func discoverSymbolDirs(root string) ([]string, error) {
	var found []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// unreadable subtrees are skipped
			if path != root && d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if skipDirs[d.Name()] {
			return filepath.SkipDir
		}
		if strings.EqualFold(d.Name(), SymbolsDir) {
			files, err := listPackages(path)
			if err != nil {
				return err
			}
			found = append(found, files...)
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover packages in %s: %w", root, err)
	}
	return found, nil
}

func listPackages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read package directory %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && isPackageFile(e.Name()) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func isPackageFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), Extension)
}
