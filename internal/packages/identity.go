package packages

import (
	"path/filepath"
	"strings"

	"github.com/alsym/alsym/internal/model"
	"github.com/alsym/alsym/internal/normalize"
)

// IdentityFromFileName derives a package identity from the conventional
// `Publisher_Name_Version.app` file name. Names that do not follow the
// convention use the whole base name with an empty version.
func IdentityFromFileName(file string) model.Package {
	base := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	pkg := model.Package{Name: base, Path: file}

	parts := strings.Split(base, "_")
	if len(parts) < 3 {
		return pkg
	}
	version := parts[len(parts)-1]
	if !looksLikeVersion(version) {
		return pkg
	}
	pkg.Publisher = parts[0]
	pkg.Name = strings.Join(parts[1:len(parts)-1], "_")
	pkg.Version = version
	return pkg
}

// identity prefers the document header and falls back to the file name
func identity(file string, h normalize.Header) model.Package {
	pkg := IdentityFromFileName(file)
	if h.Name != "" {
		pkg.Name = h.Name
	}
	if h.Version != "" {
		pkg.Version = h.Version
	}
	if h.Publisher != "" {
		pkg.Publisher = h.Publisher
	}
	pkg.AppID = h.AppID
	return pkg
}

func looksLikeVersion(s string) bool {
	if s == "" {
		return false
	}
	for _, part := range strings.Split(s, ".") {
		if part == "" {
			return false
		}
		for _, r := range part {
			if r < '0' || r > '9' {
				return false
			}
		}
	}
	return true
}
