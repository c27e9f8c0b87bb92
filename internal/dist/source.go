package dist

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/frederic-klein/yapm/internal/vcs"
)

// SourceKind tags the variants of Source.
type SourceKind int

const (
	// SourceRegistry means the artifact is hosted by a package registry.
	SourceRegistry SourceKind = iota
	// SourceRemote means the artifact is an arbitrary remote file, like a
	// release archive on a forge.
	SourceRemote
	// SourceGit means the artifact is a Git repository checkout.
	SourceGit
)

// Source is the canonical classification of where a distribution's artifact
// lives. Exactly one variant is populated; Kind reports which. Values are
// built by ClassifySource/ClassifyURL or the variant constructors and are
// immutable.
type Source struct {
	kind SourceKind
	url  *url.URL     // registry and remote variants
	git  *vcs.Locator // git variant

	// subdirectory is the relative path inside the artifact to treat as the
	// project root. nil means absent; an empty string is a legitimate
	// present-but-empty value and is preserved verbatim, undecoded.
	subdirectory *string
}

// NewRegistrySource classifies an artifact hosted by a registry.
func NewRegistrySource(u *url.URL) Source {
	return Source{kind: SourceRegistry, url: u}
}

// NewRemoteSource classifies an artifact at an arbitrary remote URL.
func NewRemoteSource(u *url.URL, subdirectory *string) Source {
	return Source{kind: SourceRemote, url: u, subdirectory: subdirectory}
}

// NewGitSource classifies a Git repository checkout.
func NewGitSource(locator *vcs.Locator, subdirectory *string) Source {
	return Source{kind: SourceGit, git: locator, subdirectory: subdirectory}
}

// ClassifySource determines where a dist's artifact lives. Registry dists
// always classify as SourceRegistry; direct URL dists are interpreted by
// ClassifyURL.
func ClassifySource(d *Dist) (Source, error) {
	if !d.Direct() {
		u, err := url.Parse(d.File.URL)
		if err != nil {
			return Source{}, fmt.Errorf("parsing registry file URL: %w", err)
		}
		return NewRegistrySource(u), nil
	}

	u, err := url.Parse(d.URL)
	if err != nil {
		return Source{}, fmt.Errorf("parsing direct URL: %w", err)
	}
	return ClassifyURL(u)
}

// ClassifyURL interprets a direct artifact URL. A `git+` prefix selects the
// Git variant: the prefix is stripped and the remainder must itself parse as
// a URL acceptable to the VCS locator (failures surface, never fall back to
// SourceRemote). Without the prefix the original URL is kept as a remote
// file source. A `subdirectory=` token in the URL fragment, as in
//
//	https://git.example.com/MyProject.git@v1.0#egg=pkg&subdirectory=pkg_dir
//
// becomes the source's subdirectory; other fragment tokens are ignored.
func ClassifyURL(u *url.URL) (Source, error) {
	subdirectory := subdirectoryFromFragment(u.EscapedFragment())

	if rest, ok := strings.CutPrefix(u.String(), "git+"); ok {
		repo, err := url.Parse(rest)
		if err != nil {
			return Source{}, fmt.Errorf("parsing git URL: %w", err)
		}
		locator, err := vcs.NewLocator(repo)
		if err != nil {
			return Source{}, err
		}
		return NewGitSource(locator, subdirectory), nil
	}

	return NewRemoteSource(u, subdirectory), nil
}

// subdirectoryFromFragment returns the value of the first `subdirectory=`
// token of a `&`-separated fragment, or nil if there is none. The fragment
// must be in its raw form: the value is kept verbatim, percent-escapes
// included.
func subdirectoryFromFragment(fragment string) *string {
	for _, token := range strings.Split(fragment, "&") {
		if value, ok := strings.CutPrefix(token, "subdirectory="); ok {
			return &value
		}
	}
	return nil
}

// setSubdirectoryFragment replaces u's fragment with a `subdirectory=` token
// carrying the verbatim value, so escapes survive the round trip through
// URL.String.
func setSubdirectoryFragment(u *url.URL, subdirectory string) {
	raw := "subdirectory=" + subdirectory
	u.Fragment = raw
	u.RawFragment = ""
	if decoded, err := url.PathUnescape(raw); err == nil {
		u.Fragment = decoded
		u.RawFragment = raw
	}
}

// Kind returns the populated variant's tag.
func (s Source) Kind() SourceKind {
	return s.kind
}

// Git returns the VCS locator of a SourceGit, or nil for other variants.
func (s Source) Git() *vcs.Locator {
	return s.git
}

// Subdirectory returns the subdirectory inside the artifact, or nil if none
// was given.
func (s Source) Subdirectory() *string {
	return s.subdirectory
}

// WithLocator returns a copy of a SourceGit carrying the given locator,
// typically one pinned to a precise revision.
func (s Source) WithLocator(locator *vcs.Locator) Source {
	return Source{kind: s.kind, url: s.url, git: locator, subdirectory: s.subdirectory}
}

// URL reconstructs the source's URL. For a remote file source with a
// subdirectory, the fragment is replaced wholesale by `subdirectory=<path>`:
// any other fragment content the original URL carried (such as an `egg=`
// token) is dropped. Without a subdirectory the URL is returned as parsed.
// Reconstruction never fails: the Git variant's URL is assembled from the
// locator's stored components rather than re-parsed from a string.
func (s Source) URL() *url.URL {
	switch s.kind {
	case SourceRegistry:
		return s.url
	case SourceRemote:
		if s.subdirectory == nil {
			return s.url
		}
		u := *s.url
		setSubdirectoryFragment(&u, *s.subdirectory)
		return &u
	case SourceGit:
		u := s.git.URL()
		u.Scheme = "git+" + u.Scheme
		if ref := s.git.Reference(); ref != "" {
			u.Path += "@" + ref
			u.RawPath = ""
		}
		if s.subdirectory != nil {
			setSubdirectoryFragment(u, *s.subdirectory)
		}
		return u
	default:
		panic(fmt.Sprintf("unknown source kind %d", s.kind))
	}
}

func (s Source) String() string {
	return s.URL().String()
}
