package dist

import (
	"errors"
)

// ErrNotDirect is returned when direct URL provenance is requested for a
// registry-sourced distribution.
var ErrNotDirect = errors.New("registry distributions have no direct URL")

// DirectURLKind tags the variants of DirectURL.
type DirectURLKind int

const (
	// DirectURLArchive records an artifact obtained from a remote file URL.
	DirectURLArchive DirectURLKind = iota
	// DirectURLVCS records an artifact obtained from a VCS checkout.
	DirectURLVCS
)

// DirectURL is the provenance record persisted next to an installed artifact
// (PEP 610 direct_url.json). Exactly one of Archive and VCS is set,
// matching Kind.
type DirectURL struct {
	URL          string       `json:"url" yaml:"url"`
	Archive      *ArchiveInfo `json:"archive_info,omitempty" yaml:"archive_info,omitempty"`
	VCS          *VCSInfo     `json:"vcs_info,omitempty" yaml:"vcs_info,omitempty"`
	Subdirectory *string      `json:"subdirectory,omitempty" yaml:"subdirectory,omitempty"`
}

// ArchiveInfo carries the integrity data of an archive artifact. Both fields
// are filled in by the integrity layer after download; a record produced by
// classification alone carries neither.
type ArchiveInfo struct {
	Hash   string            `json:"hash,omitempty" yaml:"hash,omitempty"`
	Hashes map[string]string `json:"hashes,omitempty" yaml:"hashes,omitempty"`
}

// VCSInfo identifies the exact VCS checkout an artifact was built from.
type VCSInfo struct {
	VCS               string `json:"vcs" yaml:"vcs"`
	CommitID          string `json:"commit_id,omitempty" yaml:"commit_id,omitempty"`
	RequestedRevision string `json:"requested_revision,omitempty" yaml:"requested_revision,omitempty"`
}

// Kind returns the populated variant's tag.
func (d *DirectURL) Kind() DirectURLKind {
	if d.VCS != nil {
		return DirectURLVCS
	}
	return DirectURLArchive
}

// DirectURL converts the source into its provenance record. Registry sources
// have none and return ErrNotDirect. Remote file sources become archive
// records without integrity data; Git sources become VCS records carrying
// the locator's requested reference and, when the locator has been resolved,
// its precise commit id.
func (s Source) DirectURL() (*DirectURL, error) {
	switch s.kind {
	case SourceRegistry:
		return nil, ErrNotDirect
	case SourceRemote:
		return &DirectURL{
			URL:          s.url.String(),
			Archive:      &ArchiveInfo{},
			Subdirectory: s.subdirectory,
		}, nil
	case SourceGit:
		return &DirectURL{
			URL: s.git.URL().String(),
			VCS: &VCSInfo{
				VCS:               "git",
				CommitID:          s.git.Precise(),
				RequestedRevision: s.git.Reference(),
			},
			Subdirectory: s.subdirectory,
		}, nil
	default:
		panic("unknown source kind")
	}
}
