package vcs

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// ErrUnsupportedScheme is returned for repository URLs whose scheme no VCS
// transport can serve.
var ErrUnsupportedScheme = errors.New("unsupported VCS scheme")

// ErrEmptyReference is returned when a URL ends in `@` with nothing after it.
var ErrEmptyReference = errors.New("missing revision after '@'")

var commitHashRe = regexp.MustCompile(`^[0-9a-f]{40}$`)

// Locator identifies a Git repository checkout: the repository URL, an
// optional requested reference (branch, tag or revision expression), and an
// optional precise commit id filled in once the reference has been resolved.
//
// The repository URL is stored as the parsed *url.URL it was constructed
// from, so turning a Locator back into a URL never re-parses a string and
// cannot fail.
type Locator struct {
	repo      *url.URL
	reference string
	precise   string
}

// NewLocator interprets a repository URL of the form
// `https://example.com/project.git@v1.0`. The `@revision` suffix, if present,
// is split off the path as the requested reference; a fragment, if present,
// is discarded (subdirectory handling belongs to the caller). The scheme must
// be one of https, http, ssh, git or file.
func NewLocator(u *url.URL) (*Locator, error) {
	switch u.Scheme {
	case "https", "http", "ssh", "git", "file":
	default:
		return nil, fmt.Errorf("%w %q in %s", ErrUnsupportedScheme, u.Scheme, u.Redacted())
	}

	repo := *u
	repo.Fragment = ""
	repo.RawFragment = ""

	var reference string
	if idx := strings.LastIndex(repo.Path, "@"); idx != -1 {
		reference = repo.Path[idx+1:]
		if reference == "" {
			return nil, fmt.Errorf("%w in %s", ErrEmptyReference, u.Redacted())
		}
		repo.Path = repo.Path[:idx]
		repo.RawPath = ""
	}

	loc := &Locator{repo: &repo, reference: reference}
	if commitHashRe.MatchString(reference) {
		loc.precise = reference
	}
	return loc, nil
}

// URL returns the repository URL, without any `@revision` suffix.
func (l *Locator) URL() *url.URL {
	u := *l.repo
	return &u
}

// Reference returns the requested reference, or "" if none was given.
func (l *Locator) Reference() string {
	return l.reference
}

// Precise returns the resolved commit id, or "" if the locator has not been
// resolved yet.
func (l *Locator) Precise() string {
	return l.precise
}

// WithPrecise returns a copy of the locator pinned to the given commit id.
func (l *Locator) WithPrecise(commit string) *Locator {
	return &Locator{repo: l.repo, reference: l.reference, precise: commit}
}

func (l *Locator) String() string {
	if l.reference == "" {
		return l.repo.String()
	}
	return l.repo.String() + "@" + l.reference
}
