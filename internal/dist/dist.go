package dist

import (
	"strings"

	"github.com/frederic-klein/yapm/internal/names"
)

// File represents a downloadable artifact published by a registry, e.g. one
// entry of a PyPI release.
type File struct {
	Filename string
	URL      string
	SHA256   string
	MD5      string
	Yanked   bool
}

// IsWheel reports whether the file is a built distribution.
func (f File) IsWheel() bool {
	return strings.HasSuffix(f.Filename, ".whl")
}

// Dist references one remote distribution: either a registry artifact
// (File set) or a user-supplied direct URL (URL set).
type Dist struct {
	Name    names.PackageName
	Version string // e.g. "1.2.3"; empty for direct URL dists
	File    *File  // registry artifact, nil for direct URL dists
	URL     string // direct URL as given, empty for registry dists
}

// NewRegistryDist references an artifact hosted by a registry.
func NewRegistryDist(name names.PackageName, version string, file File) *Dist {
	return &Dist{Name: name, Version: version, File: &file}
}

// NewDirectDist references an artifact at a user-supplied URL.
func NewDirectDist(name names.PackageName, url string) *Dist {
	return &Dist{Name: name, URL: url}
}

// Direct reports whether the dist was specified via a direct URL.
func (d *Dist) Direct() bool {
	return d.File == nil
}

// Requirement is a single dependency request: a package name plus either a
// version constraint (registry lookup) or a direct URL.
type Requirement struct {
	Name       names.PackageName
	Constraint string // e.g. ">=1.0, <2.0"; empty means any version
	URL        string // direct reference ("name @ url"), empty for registry
}
